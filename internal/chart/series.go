package chart

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dgnsrekt/lwcharts/internal/bridge"
)

// SeriesKind selects the engine series type.
type SeriesKind string

const (
	SeriesLine      SeriesKind = "line"
	SeriesHistogram SeriesKind = "histogram"
)

// SeriesPoint is one value of a line or histogram series.
type SeriesPoint struct {
	Time  time.Time
	Value float64
	Color string // histogram bars only; empty keeps the series color
}

// SeriesOptions styles a line or histogram series.
type SeriesOptions struct {
	Color            string
	Style            LineStyle
	Width            int
	PriceLine        bool
	PriceLabel       bool
	PriceScaleID     string
	ScaleMarginTop   float64
	ScaleMarginBelow float64
}

// Series is an auxiliary series (indicator line, histogram) on a chart.
type Series struct {
	id    string
	name  string
	kind  SeriesKind
	chart *Chart
}

func (s *Series) ID() string       { return s.id }
func (s *Series) Name() string     { return s.name }
func (s *Series) Kind() SeriesKind { return s.kind }

// CreateLine adds a line series named name.
func (c *Chart) CreateLine(ctx context.Context, name string, opts SeriesOptions) (*Series, error) {
	return c.createSeries(ctx, SeriesLine, name, opts)
}

// CreateHistogram adds a histogram series named name.
func (c *Chart) CreateHistogram(ctx context.Context, name string, opts SeriesOptions) (*Series, error) {
	return c.createSeries(ctx, SeriesHistogram, name, opts)
}

func (c *Chart) createSeries(ctx context.Context, kind SeriesKind, name string, opts SeriesOptions) (*Series, error) {
	if strings.TrimSpace(name) == "" {
		return nil, bridge.NewError(bridge.CodeValidation, "series name is required", nil)
	}
	if !opts.Style.Valid() {
		return nil, bridge.NewError(bridge.CodeValidation, fmt.Sprintf("invalid line style: %d", opts.Style), nil)
	}
	if opts.Color == "" {
		opts.Color = "rgba(214, 237, 255, 0.6)"
	}
	if opts.Width <= 0 {
		opts.Width = 2
	}
	s := &Series{id: c.win.NewID("series"), name: name, kind: kind, chart: c}
	args := map[string]any{
		"kind":             string(kind),
		"name":             name,
		"color":            opts.Color,
		"lineStyle":        int(opts.Style),
		"lineWidth":        opts.Width,
		"priceLineVisible": opts.PriceLine,
		"lastValueVisible": opts.PriceLabel,
	}
	if opts.PriceScaleID != "" {
		args["priceScaleId"] = opts.PriceScaleID
		args["scaleMargins"] = map[string]float64{"top": opts.ScaleMarginTop, "bottom": opts.ScaleMarginBelow}
	}
	if err := c.Send(ctx, bridge.OpSeriesCreate, s.id, args); err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.series[s.id] = s
	c.mu.Unlock()
	return s, nil
}

// Series returns the chart's auxiliary series sorted by name.
func (c *Chart) Series() []*Series {
	c.mu.Lock()
	out := make([]*Series, 0, len(c.series))
	for _, s := range c.series {
		out = append(out, s)
	}
	c.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

// Set replaces the series data.
func (s *Series) Set(ctx context.Context, points []SeriesPoint) error {
	type wirePoint struct {
		Time  int64   `json:"time"`
		Value float64 `json:"value"`
		Color string  `json:"color,omitempty"`
	}
	wire := make([]wirePoint, len(points))
	for i, p := range points {
		wire[i] = wirePoint{Time: s.chart.TimeValue(p.Time), Value: p.Value, Color: p.Color}
	}
	return s.chart.Send(ctx, bridge.OpSeriesSetData, s.id, map[string]any{"points": wire})
}

// Delete removes the series from the view.
func (s *Series) Delete(ctx context.Context) error {
	if err := s.chart.Send(ctx, bridge.OpSeriesRemove, s.id, nil); err != nil {
		return err
	}
	s.chart.mu.Lock()
	delete(s.chart.series, s.id)
	s.chart.mu.Unlock()
	return nil
}

// VolumeProfileOptions configures the volume-by-price overlay.
type VolumeProfileOptions struct {
	Enabled                   bool    `json:"enabled"`
	Bins                      int     `json:"bins"`
	Color                     string  `json:"color"`
	WidthPercentage           float64 `json:"widthPercentage"`
	TextColor                 string  `json:"textColor"`
	AdaptiveVerticalBounds    bool    `json:"adaptiveVerticalBounds"`
	VolumeLabelPosition       string  `json:"volumeLabelPosition"`
	VolumeLabelFormat         string  `json:"volumeLabelFormat"`
	VolumeLabelVisible        bool    `json:"volumeLabelVisible"`
	MinBarWidthForInsideLabel int     `json:"minBarWidthForInsideLabel"`
	RangeMode                 string  `json:"rangeMode"`
	LastN                     int     `json:"lastN"`
}

// DefaultVolumeProfileOptions matches the view plugin defaults.
func DefaultVolumeProfileOptions() VolumeProfileOptions {
	return VolumeProfileOptions{
		Enabled:                   true,
		Bins:                      40,
		Color:                     "rgba(231,156,250,0.1)",
		WidthPercentage:           10,
		TextColor:                 "white",
		VolumeLabelPosition:       "right",
		VolumeLabelFormat:         "value",
		VolumeLabelVisible:        true,
		MinBarWidthForInsideLabel: 40,
		RangeMode:                 "visible",
		LastN:                     100,
	}
}

func (o VolumeProfileOptions) validate() error {
	invalid := func(msg string) error { return bridge.NewError(bridge.CodeValidation, msg, nil) }
	if o.Bins <= 0 {
		return invalid("volume profile bins must be positive")
	}
	if o.WidthPercentage <= 0 || o.WidthPercentage > 100 {
		return invalid("volume profile width percentage must be within (0,100]")
	}
	switch o.VolumeLabelPosition {
	case "right", "inside":
	default:
		return invalid("invalid volume label position: " + o.VolumeLabelPosition)
	}
	switch o.VolumeLabelFormat {
	case "value", "percent":
	default:
		return invalid("invalid volume label format: " + o.VolumeLabelFormat)
	}
	switch o.RangeMode {
	case "visible":
	case "last_n_visible", "last_n_total":
		if o.LastN <= 0 {
			return invalid("volume profile last_n must be positive for range mode " + o.RangeMode)
		}
	default:
		return invalid("invalid volume profile range mode: " + o.RangeMode)
	}
	return nil
}

// VolumeProfile attaches (or replaces) the chart's volume profile.
func (c *Chart) VolumeProfile(ctx context.Context, opts VolumeProfileOptions) error {
	if err := opts.validate(); err != nil {
		return err
	}
	return c.Send(ctx, bridge.OpVolumeProfile, c.SeriesID(), opts)
}
