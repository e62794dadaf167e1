package marketdata

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xyproto/unzip"

	"github.com/rustyeddy/quantlab/market"
)

// ImportHistDataZip extracts a HistData archive (semicolon separated
// minute bars, YYYYMMDD HHMMSS timestamps), merges every CSV inside
// and writes one normalised SYMBOL_START_END_1m.csv into dataDir.
// Returns the path of the file written.
func ImportHistDataZip(zipPath, dataDir, symbol string) (string, error) {
	tmp, err := os.MkdirTemp("", "histdata")
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(tmp)

	if err := unzip.Extract(zipPath, tmp); err != nil {
		return "", fmt.Errorf("marketdata: extract %s: %w", filepath.Base(zipPath), err)
	}

	var bars market.Series
	walkErr := filepath.Walk(tmp, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() || !strings.HasSuffix(strings.ToLower(path), ".csv") {
			return err
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()

		part, err := ReadBars(f)
		if err != nil {
			return fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		bars = append(bars, part...)
		return nil
	})
	if walkErr != nil {
		return "", walkErr
	}
	if len(bars) == 0 {
		return "", fmt.Errorf("marketdata: no bars in %s", filepath.Base(zipPath))
	}

	bars = stitch(bars)
	out := filepath.Join(dataDir, fmt.Sprintf("%s_%s_%s_1m.csv",
		symbol,
		bars.Start().Format("2006-01-02"),
		bars.End().Format("2006-01-02")))
	if err := WriteBars(out, bars); err != nil {
		return "", err
	}
	return out, nil
}

// WriteBars writes a series in the standard comma separated layout
// with a header row.
func WriteBars(path string, bars market.Series) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"Date", "Open", "High", "Low", "Close", "Volume"}); err != nil {
		return err
	}
	for _, b := range bars {
		rec := []string{
			b.Time.UTC().Format("2006-01-02 15:04:05"),
			fmtFloat(b.Open), fmtFloat(b.High), fmtFloat(b.Low),
			fmtFloat(b.Close), fmtFloat(b.Volume),
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func fmtFloat(v float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.6f", v), "0"), ".")
}
