// Package marketdata loads bar series and economic calendars from
// the local data directory. Files follow the naming convention
// SYMBOL_START_END_TF.csv (optionally .csv.gz or .csv.xz); loads
// stitch every overlapping file, deduplicate on timestamp and
// resample when the requested timeframe has no native files.
package marketdata

import (
	"bufio"
	"compress/gzip"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ulikunitz/xz"
	"go.uber.org/zap"

	"github.com/rustyeddy/quantlab/market"
)

// Loader fetches bars for a symbol and timeframe within a window.
type Loader interface {
	Load(symbol string, tf market.Timeframe, start, end time.Time) (market.Series, error)
}

// DirLoader reads bar files from a flat directory.
type DirLoader struct {
	Dir string
	log *zap.Logger
}

// NewDirLoader returns a loader rooted at dir.
func NewDirLoader(dir string) *DirLoader {
	return &DirLoader{Dir: dir, log: zap.NewNop()}
}

// SetLogger replaces the loader's logger.
func (l *DirLoader) SetLogger(log *zap.Logger) {
	if log != nil {
		l.log = log
	}
}

// Load returns bars for [start, end]. When the timeframe has a
// configured finer source (5m and 15m from 1m, 4h from 1h), the
// source files are loaded and resampled.
func (l *DirLoader) Load(symbol string, tf market.Timeframe, start, end time.Time) (market.Series, error) {
	fetchTF := tf
	resample := false
	if src, ok := market.ResampleSource[tf]; ok {
		fetchTF = src
		resample = true
	}

	files, err := l.findFiles(symbol, fetchTF, start, end)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("marketdata: no %s %s files in %s", symbol, fetchTF, l.Dir)
	}

	var all market.Series
	for _, f := range files {
		bars, err := readBarFile(f)
		if err != nil {
			return nil, fmt.Errorf("marketdata: %s: %w", filepath.Base(f), err)
		}
		all = append(all, bars...)
	}

	all = stitch(all)
	all = all.Slice(start, end)
	if len(all) == 0 {
		return nil, fmt.Errorf("marketdata: no %s bars in [%s, %s]",
			symbol, start.Format("2006-01-02"), end.Format("2006-01-02"))
	}

	if resample {
		l.log.Debug("resampling",
			zap.String("symbol", symbol),
			zap.String("from", fetchTF.String()),
			zap.String("to", tf.String()),
			zap.Int("source_bars", len(all)))
		all = market.Resample(all, tf)
	}
	return all, nil
}

// findFiles returns every data file for symbol at tf whose name
// declares a date range overlapping [start, end].
func (l *DirLoader) findFiles(symbol string, tf market.Timeframe, start, end time.Time) ([]string, error) {
	entries, err := os.ReadDir(l.Dir)
	if err != nil {
		return nil, err
	}

	// Zero bounds are open, matching Series.Slice.
	startStr := "0000-00-00"
	if !start.IsZero() {
		startStr = start.Format("2006-01-02")
	}
	endStr := "9999-99-99"
	if !end.IsZero() {
		endStr = end.Format("2006-01-02")
	}
	prefix := symbol + "_"

	var files []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix) {
			continue
		}
		base := name
		for _, ext := range []string{".csv.xz", ".csv.gz", ".csv"} {
			if strings.HasSuffix(base, "_"+tf.String()+ext) {
				base = strings.TrimSuffix(base, ext)
				break
			}
		}
		if !strings.HasSuffix(base, "_"+tf.String()) {
			continue
		}

		// SYMBOL_START_END_TF: take the two date fields from the end.
		parts := strings.Split(strings.TrimSuffix(base, "_"+tf.String()), "_")
		if len(parts) < 3 {
			continue
		}
		fileStart := parts[len(parts)-2]
		fileEnd := parts[len(parts)-1]

		// Lexical compare works for ISO dates.
		if fileStart <= endStr && fileEnd >= startStr {
			files = append(files, filepath.Join(l.Dir, name))
		}
	}
	sort.Strings(files)
	return files, nil
}

// stitch sorts the combined bars and drops duplicate timestamps,
// keeping the first occurrence.
func stitch(bars market.Series) market.Series {
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	out := bars[:0]
	var last time.Time
	for _, b := range bars {
		if !last.IsZero() && b.Time.Equal(last) {
			continue
		}
		out = append(out, b)
		last = b.Time
	}
	return out
}

// readBarFile opens a bar file, transparently decompressing .gz and
// .xz variants.
func readBarFile(path string) (market.Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = bufio.NewReader(f)
	switch {
	case strings.HasSuffix(path, ".gz"):
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		r = gz
	case strings.HasSuffix(path, ".xz"):
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, err
		}
		r = xr
	}
	return ReadBars(r)
}

// ReadBars parses bar rows from r. Both comma and semicolon
// separated files are accepted; a header row is skipped when the
// first field does not parse as a time.
func ReadBars(r io.Reader) (market.Series, error) {
	br := bufio.NewReader(r)

	// Sniff the separator from the first line.
	first, err := br.Peek(512)
	if err != nil && err != io.EOF {
		return nil, err
	}
	sep := ','
	if line := string(first); strings.IndexByte(strings.SplitN(line, "\n", 2)[0], ';') >= 0 {
		sep = ';'
	}

	cr := csv.NewReader(br)
	cr.Comma = sep
	cr.FieldsPerRecord = -1

	var bars market.Series
	for i := 0; ; i++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(rec) < 5 {
			continue
		}

		t, ok := parseBarTime(rec[0])
		if !ok {
			if i == 0 {
				continue // header
			}
			return nil, fmt.Errorf("row %d: bad timestamp %q", i+1, rec[0])
		}

		vals := make([]float64, 0, 5)
		for _, s := range rec[1:] {
			v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if err != nil {
				v = 0
			}
			vals = append(vals, v)
		}
		for len(vals) < 5 {
			vals = append(vals, 0)
		}

		bars = append(bars, market.Bar{
			Time:   t,
			Open:   vals[0],
			High:   vals[1],
			Low:    vals[2],
			Close:  vals[3],
			Volume: vals[4],
		})
	}
	return bars, nil
}

var barTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"20060102 150405", // HistData
}

func parseBarTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range barTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
