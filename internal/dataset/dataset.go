// Package dataset loads OHLCV bars from CSV or XLSX files.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/dgnsrekt/lwcharts/internal/chart"
)

// ErrNoRows is returned for a file with a header but no bars.
var ErrNoRows = errors.New("dataset has no rows")

var timeColumns = []string{"time", "date", "datetime", "timestamp"}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"01-02-06",
	"1/2/2006",
}

// Load reads bars from path, picking the reader by extension. Bars come back
// sorted by time.
func Load(path string) ([]chart.Bar, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("dataset: %w", err)
		}
		defer f.Close()
		return ReadCSV(f)
	case ".xlsx", ".xlsm":
		return LoadXLSX(path, "")
	default:
		return nil, fmt.Errorf("dataset: unsupported file type %q", filepath.Ext(path))
	}
}

// ReadCSV parses a headed CSV stream.
func ReadCSV(r io.Reader) ([]chart.Bar, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("dataset: read csv: %w", err)
	}
	return parseRows(rows)
}

// LoadXLSX reads bars from sheet, or the first sheet when sheet is empty.
func LoadXLSX(path, sheet string) ([]chart.Bar, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("dataset: open xlsx: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("dataset: %s has no sheets", path)
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("dataset: read sheet %s: %w", sheet, err)
	}
	return parseRows(rows)
}

type columns struct {
	time, open, high, low, close, volume int
}

func header(row []string) (columns, error) {
	cols := columns{time: -1, open: -1, high: -1, low: -1, close: -1, volume: -1}
	for i, name := range row {
		switch n := strings.ToLower(strings.TrimSpace(name)); {
		case contains(timeColumns, n):
			if cols.time < 0 {
				cols.time = i
			}
		case n == "open":
			cols.open = i
		case n == "high":
			cols.high = i
		case n == "low":
			cols.low = i
		case n == "close":
			cols.close = i
		case n == "volume":
			cols.volume = i
		}
	}
	var missing []string
	for name, idx := range map[string]int{"time": cols.time, "open": cols.open, "high": cols.high, "low": cols.low, "close": cols.close} {
		if idx < 0 {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return cols, fmt.Errorf("dataset: missing columns: %s", strings.Join(missing, ", "))
	}
	return cols, nil
}

func parseRows(rows [][]string) ([]chart.Bar, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("dataset: empty file")
	}
	cols, err := header(rows[0])
	if err != nil {
		return nil, err
	}

	bars := make([]chart.Bar, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if blank(row) {
			continue
		}
		line := i + 2
		b, err := parseBar(row, cols)
		if err != nil {
			return nil, fmt.Errorf("dataset: row %d: %w", line, err)
		}
		bars = append(bars, b)
	}
	if len(bars) == 0 {
		return nil, ErrNoRows
	}
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars, nil
}

func parseBar(row []string, cols columns) (chart.Bar, error) {
	var b chart.Bar
	t, err := ParseTime(cell(row, cols.time))
	if err != nil {
		return b, err
	}
	b.Time = t
	for _, f := range []struct {
		name string
		idx  int
		dst  *float64
	}{
		{"open", cols.open, &b.Open},
		{"high", cols.high, &b.High},
		{"low", cols.low, &b.Low},
		{"close", cols.close, &b.Close},
	} {
		v, err := strconv.ParseFloat(cell(row, f.idx), 64)
		if err != nil {
			return b, fmt.Errorf("%s: %w", f.name, err)
		}
		*f.dst = v
	}
	if cols.volume >= 0 {
		if s := cell(row, cols.volume); s != "" {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return b, fmt.Errorf("volume: %w", err)
			}
			b.Volume = v
		}
	}
	return b, nil
}

// ParseTime accepts unix seconds, Excel serial dates and the common text
// layouts. Text without a zone is read as UTC.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty time")
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		// Excel serials stay far below any unix timestamp we chart.
		if v > 0 && v < 200000 {
			t, err := excelize.ExcelDateToTime(v, false)
			if err != nil {
				return time.Time{}, fmt.Errorf("excel date %q: %w", s, err)
			}
			return t.UTC(), nil
		}
		return time.Unix(int64(v), 0).UTC(), nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
