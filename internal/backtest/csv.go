package backtest

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Bar is one OHLCV row reduced to what the strategy consumes.
type Bar struct {
	TS    time.Time
	Close float64
}

// ReadOHLCVCSV reads an OHLCV CSV and returns (timestamp, close) rows in
// ascending time order. A header row with a "close" column is autodetected;
// without one the columns are assumed to be timestamp,open,high,low,close.
// Timestamps may be epoch seconds or ISO8601.
func ReadOHLCVCSV(path string) ([]Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("backtest: read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("backtest: empty csv: %s", path)
	}

	tsIdx, closeIdx := 0, 4
	start := 0
	header := records[0]
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "timestamp", "time", "datetime":
			tsIdx = i
			start = 1
		case "close":
			closeIdx = i
			start = 1
		}
	}

	bars := make([]Bar, 0, len(records)-start)
	for _, row := range records[start:] {
		if len(row) <= tsIdx || len(row) <= closeIdx {
			continue
		}
		ts, err := parseTimestamp(row[tsIdx])
		if err != nil {
			continue
		}
		close, err := strconv.ParseFloat(strings.TrimSpace(row[closeIdx]), 64)
		if err != nil {
			continue
		}
		bars = append(bars, Bar{TS: ts, Close: close})
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].TS.Before(bars[j].TS) })
	return bars, nil
}

func parseTimestamp(val string) (time.Time, error) {
	val = strings.TrimSpace(val)

	// Epoch seconds, integer or fractional
	if sec, err := strconv.ParseFloat(val, 64); err == nil {
		return time.Unix(0, int64(sec*float64(time.Second))).UTC(), nil
	}

	// ISO8601
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, val); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("backtest: unrecognized timestamp %q", val)
}

// SaveEquityCurve writes the equity curve as a two-column CSV.
func SaveEquityCurve(path string, curve []EquityPoint) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"timestamp", "equity"}); err != nil {
		return err
	}
	for _, p := range curve {
		if err := w.Write([]string{p.TS.Format(time.RFC3339Nano), strconv.FormatFloat(p.Equity, 'f', 8, 64)}); err != nil {
			return err
		}
	}
	return nil
}
