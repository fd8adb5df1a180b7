package dataset

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
)

func TestReadCSV(t *testing.T) {
	in := `Date,Open,High,Low,Close,Volume
2024-01-03,11,13,10,12,900
2024-01-02,10,12,9,11,1000

2024-01-04 09:30:00,12,14,11,13,
`
	bars, err := ReadCSV(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ReadCSV() = %v", err)
	}
	if len(bars) != 3 {
		t.Fatalf("bars = %d; want 3", len(bars))
	}
	if !bars[0].Time.Equal(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)) || bars[0].Volume != 1000 {
		t.Fatalf("first bar = %+v; want sorted by time", bars[0])
	}
	if last := bars[2]; last.Close != 13 || last.Volume != 0 || last.Time.Hour() != 9 {
		t.Fatalf("last bar = %+v", last)
	}
}

func TestReadCSVErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"missing columns", "time,open,close\n1,2,3\n", "missing columns: high, low"},
		{"bad number", "time,open,high,low,close\n1700000000,x,1,1,1\n", "row 2: open"},
		{"bad time", "time,open,high,low,close\nyesterday,1,1,1,1\n", "row 2: unrecognized time"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(tt.in))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("ReadCSV() = %v; want error containing %q", err, tt.want)
			}
		})
	}
	if _, err := ReadCSV(strings.NewReader("time,open,high,low,close\n")); !errors.Is(err, ErrNoRows) {
		t.Fatalf("header only = %v; want ErrNoRows", err)
	}
}

func TestParseTime(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"1700000000", time.Unix(1700000000, 0).UTC()},
		{"2024-03-01T12:00:00+02:00", time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)},
		{"2024-03-01", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{"45352", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := ParseTime(tt.in)
		if err != nil || !got.Equal(tt.want) {
			t.Fatalf("ParseTime(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
		}
	}
}

func TestLoadXLSX(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Sheet1"
	rows := [][]any{
		{"Time", "Open", "High", "Low", "Close", "Volume"},
		{"2024-01-02", 10, 12, 9, 11, 1000},
		{"2024-01-03", 11, 13, 10, 12.5, 900},
	}
	for i, row := range rows {
		cellName, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheet, cellName, &row); err != nil {
			t.Fatalf("SetSheetRow() = %v", err)
		}
	}
	path := filepath.Join(t.TempDir(), "bars.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("SaveAs() = %v", err)
	}

	bars, err := Load(path)
	if err != nil {
		t.Fatalf("Load() = %v", err)
	}
	if len(bars) != 2 || bars[1].Close != 12.5 || bars[0].Volume != 1000 {
		t.Fatalf("bars = %+v", bars)
	}
}

func TestLoadUnsupportedAndMissing(t *testing.T) {
	dir := t.TempDir()
	if _, err := Load(filepath.Join(dir, "bars.parquet")); err == nil {
		t.Fatal("Load(.parquet) = nil; want error")
	}
	if _, err := Load(filepath.Join(dir, "missing.csv")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("Load(missing) = %v; want ErrNotExist", err)
	}
}
