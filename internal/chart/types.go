package chart

import (
	"strings"
	"time"

	"github.com/dgnsrekt/lwcharts/internal/bridge"
)

// Bar is one OHLCV candle.
type Bar struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Tick is a single trade folded into the current bar.
type Tick struct {
	Time   time.Time
	Price  float64
	Volume float64
}

type wireBar struct {
	Time   int64   `json:"time"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// LineStyle mirrors the charting engine's LineStyle enum.
type LineStyle int

const (
	LineSolid LineStyle = iota
	LineDotted
	LineDashed
	LineLargeDashed
	LineSparseDotted
)

var lineStyleNames = map[string]LineStyle{
	"solid":         LineSolid,
	"dotted":        LineDotted,
	"dashed":        LineDashed,
	"large_dashed":  LineLargeDashed,
	"sparse_dotted": LineSparseDotted,
}

// ParseLineStyle accepts solid, dotted, dashed, large_dashed (or
// large-dashed) and sparse_dotted (or sparse-dotted).
func ParseLineStyle(s string) (LineStyle, error) {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	if key == "" {
		return LineSolid, nil
	}
	ls, ok := lineStyleNames[key]
	if !ok {
		return 0, bridge.NewError(bridge.CodeValidation, "invalid line style: "+s, nil)
	}
	return ls, nil
}

func (s LineStyle) Valid() bool { return s >= LineSolid && s <= LineSparseDotted }

func (s LineStyle) String() string {
	for name, v := range lineStyleNames {
		if v == s {
			return name
		}
	}
	return "unknown"
}
