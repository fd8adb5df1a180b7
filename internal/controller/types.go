package controller

import (
	"time"

	"github.com/dgnsrekt/lwcharts/internal/chart"
	"github.com/dgnsrekt/lwcharts/internal/drawing"
)

// ChartInfo summarizes a chart in the window.
type ChartInfo struct {
	ID       string   `json:"id"`
	Parent   string   `json:"parent,omitempty"`
	Position string   `json:"position,omitempty"`
	Width    float64  `json:"width"`
	Height   float64  `json:"height"`
	Series   []string `json:"series"`
	Textbox  []string `json:"textboxes"`
	Switcher []string `json:"switchers"`
	Toolbox  bool     `json:"toolbox"`
	Bars     int      `json:"bars"`
	Drawings int      `json:"drawings"`
}

// PointInput is a drawing anchor on the wire: UTC unix seconds and price.
type PointInput struct {
	Time  int64   `json:"time,omitempty" doc:"UTC unix seconds; ignored by horizontal lines"`
	Price float64 `json:"price,omitempty" doc:"Price; ignored by vertical lines and spans"`
}

func (p PointInput) point() drawing.Point {
	out := drawing.Point{Price: p.Price}
	if p.Time != 0 {
		out.Time = time.Unix(p.Time, 0).UTC()
	}
	return out
}

func pointInput(p drawing.Point) PointInput {
	out := PointInput{Price: p.Price}
	if !p.Time.IsZero() {
		out.Time = p.Time.Unix()
	}
	return out
}

// StyleInput is the wire form of drawing.Style.
type StyleInput struct {
	LineColor string `json:"line_color,omitempty"`
	LineStyle string `json:"line_style,omitempty" enum:"solid,dotted,dashed,large_dashed,sparse_dotted,"`
	Width     int    `json:"width,omitempty"`
	FillColor string `json:"fill_color,omitempty"`
	Text      string `json:"text,omitempty"`
}

func (s StyleInput) style() (drawing.Style, error) {
	ls, err := chart.ParseLineStyle(s.LineStyle)
	if err != nil {
		return drawing.Style{}, err
	}
	return drawing.Style{LineColor: s.LineColor, LineStyle: ls, Width: s.Width, FillColor: s.FillColor, Text: s.Text}, nil
}

func styleInput(s drawing.Style) StyleInput {
	return StyleInput{LineColor: s.LineColor, LineStyle: s.LineStyle.String(), Width: s.Width, FillColor: s.FillColor, Text: s.Text}
}

// DrawingRequest creates a drawing of any kind.
type DrawingRequest struct {
	Kind        string       `json:"kind" required:"true" enum:"HorizontalLine,VerticalLine,RayLine,Box,TrendLine,VerticalSpan"`
	Points      []PointInput `json:"points" required:"true" minItems:"1" maxItems:"2"`
	Style       StyleInput   `json:"style,omitempty"`
	Round       bool         `json:"round,omitempty"`
	AxisLabel   *bool        `json:"axis_label,omitempty" doc:"Horizontal lines only; default true"`
	Interactive bool         `json:"interactive,omitempty" doc:"Track moves made in the view"`
}

// DrawingInfo is the host-side state of a drawing.
type DrawingInfo struct {
	ID      string       `json:"id"`
	ChartID string       `json:"chart_id"`
	Kind    string       `json:"kind"`
	Points  []PointInput `json:"points"`
	Style   StyleInput   `json:"style"`
	Round   bool         `json:"round"`
	Deleted bool         `json:"deleted"`
}

func drawingInfo(d *drawing.Drawing) DrawingInfo {
	pts := d.Points()
	out := DrawingInfo{
		ID:      d.ID(),
		ChartID: d.Chart().ID(),
		Kind:    string(d.Kind()),
		Points:  make([]PointInput, len(pts)),
		Style:   styleInput(d.Style()),
		Round:   d.Round(),
		Deleted: d.Deleted(),
	}
	for i, p := range pts {
		out.Points[i] = pointInput(p)
	}
	return out
}

// ToolboxInfo describes a chart's saved drawing sets.
type ToolboxInfo struct {
	ChartID   string         `json:"chart_id"`
	HandlerID string         `json:"handler_id"`
	Tags      map[string]int `json:"tags" doc:"Tag to number of saved drawings"`
	Measures  []string       `json:"measure_handlers"`
}

// HealthInfo reports the view connection and registry sizes.
type HealthInfo struct {
	Status   string   `json:"status"`
	Charts   int      `json:"charts"`
	Drawings int      `json:"drawings"`
	Handlers []string `json:"handlers"`
}
