package marketdata

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rustyeddy/quantlab/market"
)

// LoadCalendar reads an economic calendar CSV and returns the
// high-impact events for the given currencies within [start, end].
// Expected columns: DateTime, Currency, Impact, Event, Actual,
// Forecast, Previous. Rows whose actual or forecast cannot be parsed
// are dropped, since surprise strategies need both sides.
func LoadCalendar(path string, currencies []string, start, end time.Time) ([]market.EconomicEvent, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadCalendar(f, currencies, start, end)
}

// ReadCalendar is LoadCalendar over an arbitrary reader.
func ReadCalendar(r io.Reader, currencies []string, start, end time.Time) ([]market.EconomicEvent, error) {
	allowed := make(map[string]bool, len(currencies))
	for _, c := range currencies {
		allowed[strings.ToUpper(strings.TrimSpace(c))] = true
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	var events []market.EconomicEvent
	for i := 0; ; i++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(rec) < 6 {
			continue
		}

		t, ok := parseEventTime(rec[0])
		if !ok {
			continue // header or junk row
		}
		if (!start.IsZero() && t.Before(start)) || (!end.IsZero() && t.After(end)) {
			continue
		}

		currency := strings.ToUpper(strings.TrimSpace(rec[1]))
		if len(allowed) > 0 && !allowed[currency] {
			continue
		}
		if !strings.Contains(strings.ToLower(rec[2]), "high") {
			continue
		}

		actual, ok := ParseEventValue(rec[4])
		if !ok {
			continue
		}
		forecast, ok := ParseEventValue(rec[5])
		if !ok {
			continue
		}

		events = append(events, market.EconomicEvent{
			Date:     t,
			Currency: currency,
			Impact:   strings.TrimSpace(rec[2]),
			Event:    strings.TrimSpace(rec[3]),
			Actual:   actual,
			Forecast: forecast,
		})
	}
	return events, nil
}

// ParseEventValue parses calendar figures like "3.2%", "250K",
// "1.5M", "-0.3B" or "2.1T" into plain floats. Percent signs are
// stripped without scaling; the letter suffixes multiply.
func ParseEventValue(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	mult := 1.0
	switch {
	case strings.HasSuffix(s, "%"):
		s = strings.TrimSuffix(s, "%")
	case strings.HasSuffix(s, "K"):
		mult = 1e3
		s = strings.TrimSuffix(s, "K")
	case strings.HasSuffix(s, "M"):
		mult = 1e6
		s = strings.TrimSuffix(s, "M")
	case strings.HasSuffix(s, "B"):
		mult = 1e9
		s = strings.TrimSuffix(s, "B")
	case strings.HasSuffix(s, "T"):
		mult = 1e12
		s = strings.TrimSuffix(s, "T")
	}

	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return v * mult, true
}

var eventTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05-07:00",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

func parseEventTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range eventTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
