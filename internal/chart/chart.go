package chart

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dgnsrekt/lwcharts/internal/bridge"
)

// Options configures a chart at creation time.
type Options struct {
	Width       float64 // fraction of the window, 0..1
	Height      float64
	Position    string // subcharts only: left, right, top, bottom
	Sync        bool   // subcharts only: sync time scale with the parent
	Location    *time.Location
	Toolbox     bool
	Volume      bool
	Background  string
	TextColor   string
	TimeVisible bool
}

type Option func(*Options)

func WithSize(width, height float64) Option {
	return func(o *Options) { o.Width, o.Height = width, height }
}

// WithLocation shifts every timestamp so the view shows wall-clock time in
// loc instead of UTC.
func WithLocation(loc *time.Location) Option {
	return func(o *Options) { o.Location = loc }
}

func WithToolbox(enabled bool) Option { return func(o *Options) { o.Toolbox = enabled } }

func WithVolume(enabled bool) Option { return func(o *Options) { o.Volume = enabled } }

func WithColors(background, text string) Option {
	return func(o *Options) { o.Background, o.TextColor = background, text }
}

func WithTimeVisible(v bool) Option { return func(o *Options) { o.TimeVisible = v } }

func defaultOptions() Options {
	return Options{
		Width:       1,
		Height:      1,
		Location:    time.UTC,
		Volume:      true,
		Background:  "#0c0d0f",
		TextColor:   "#d8d9db",
		TimeVisible: true,
	}
}

func (o Options) validate() error {
	if o.Width <= 0 || o.Width > 1 || o.Height <= 0 || o.Height > 1 {
		return bridge.NewError(bridge.CodeValidation, fmt.Sprintf("chart size must be within (0,1], got %gx%g", o.Width, o.Height), nil)
	}
	switch o.Position {
	case "", "left", "right", "top", "bottom":
	default:
		return bridge.NewError(bridge.CodeValidation, "invalid subchart position: "+o.Position, nil)
	}
	return nil
}

// Chart is the host-side handle of a chart (or subchart) in the view.
type Chart struct {
	id     string
	win    *Window
	parent *Chart
	opts   Options

	mu     sync.Mutex
	series map[string]*Series
	topbar *TopBar

	// barMu serializes candle updates; last and interval track the newest
	// bar and the spacing of the bars sent so far.
	barMu    sync.Mutex
	last     *Bar
	interval time.Duration
}

func newChart(w *Window, id string, parent *Chart, opts Options) *Chart {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	c := &Chart{id: id, win: w, parent: parent, opts: opts, series: make(map[string]*Series)}
	c.topbar = &TopBar{chart: c, boxes: make(map[string]*Textbox), switchers: make(map[string]*Switcher)}
	return c
}

func (c *Chart) ID() string { return c.id }

func (c *Chart) Window() *Window { return c.win }

// Parent returns the chart a subchart was created from, or nil.
func (c *Chart) Parent() *Chart { return c.parent }

// SeriesID names the chart's primary (candlestick) series in the view.
func (c *Chart) SeriesID() string { return c.id + ".series" }

func (c *Chart) Options() Options { return c.opts }

// TimeValue is the chart's single canonical time formatter: UTC seconds
// shifted into the chart's display location.
func (c *Chart) TimeValue(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	_, offset := t.In(c.opts.Location).Zone()
	return t.Unix() + int64(offset)
}

// TimeFromValue inverts TimeValue for times reported back by the view.
func (c *Chart) TimeFromValue(v int64) time.Time {
	if v == 0 {
		return time.Time{}
	}
	_, offset := time.Unix(v, 0).In(c.opts.Location).Zone()
	return time.Unix(v-int64(offset), 0).UTC()
}

// Send delivers a command scoped to this chart.
func (c *Chart) Send(ctx context.Context, op, target string, args any) error {
	return c.win.Send(ctx, bridge.Command{Op: op, Chart: c.id, Target: target, Args: args})
}

func (c *Chart) createArgs() map[string]any {
	args := map[string]any{
		"width":       c.opts.Width,
		"height":      c.opts.Height,
		"toolbox":     c.opts.Toolbox,
		"volume":      c.opts.Volume,
		"background":  c.opts.Background,
		"textColor":   c.opts.TextColor,
		"timeVisible": c.opts.TimeVisible,
	}
	if c.parent != nil {
		args["parent"] = c.parent.id
		args["position"] = c.opts.Position
		args["sync"] = c.opts.Sync
	}
	return args
}

// Subchart creates a chart sharing the window with c.
func (c *Chart) Subchart(ctx context.Context, position string, width, height float64, syncScale bool, opts ...Option) (*Chart, error) {
	cfg := c.opts
	cfg.Toolbox = false
	for _, o := range opts {
		o(&cfg)
	}
	cfg.Position, cfg.Width, cfg.Height, cfg.Sync = position, width, height, syncScale
	if cfg.Position == "" {
		cfg.Position = "left"
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	sub := newChart(c.win, c.win.NewID("chart"), c, cfg)
	if err := c.win.Send(ctx, bridge.Command{Op: bridge.OpChartCreate, Chart: sub.id, Args: sub.createArgs()}); err != nil {
		return nil, err
	}
	c.win.add(sub)
	return sub, nil
}

// SetBars replaces the primary series data.
func (c *Chart) SetBars(ctx context.Context, bars []Bar) error {
	c.barMu.Lock()
	defer c.barMu.Unlock()
	wire := make([]wireBar, len(bars))
	for i, b := range bars {
		wire[i] = c.wireBar(b)
	}
	if err := c.Send(ctx, bridge.OpChartSetData, c.SeriesID(), map[string]any{"bars": wire}); err != nil {
		return err
	}
	c.last, c.interval = nil, 0
	for i, b := range bars {
		if i > 0 {
			if d := b.Time.Sub(bars[i-1].Time); d > 0 && (c.interval == 0 || d < c.interval) {
				c.interval = d
			}
		}
		if c.last == nil || !b.Time.Before(c.last.Time) {
			c.last = &b
		}
	}
	return nil
}

// UpdateBar appends a bar or replaces the last one when the time matches.
func (c *Chart) UpdateBar(ctx context.Context, b Bar) error {
	c.barMu.Lock()
	defer c.barMu.Unlock()
	return c.updateBar(ctx, b)
}

func (c *Chart) updateBar(ctx context.Context, b Bar) error {
	if err := c.Send(ctx, bridge.OpChartUpdate, c.SeriesID(), map[string]any{"bar": c.wireBar(b)}); err != nil {
		return err
	}
	if c.last != nil && b.Time.After(c.last.Time) && c.interval == 0 {
		c.interval = b.Time.Sub(c.last.Time)
	}
	if c.last == nil || !b.Time.Before(c.last.Time) {
		c.last = &b
	}
	return nil
}

// UpdateFromTick folds a trade into the current bar: high, low and close
// follow the price and volume accumulates. A tick in a later period opens a
// new bar. Periods follow the spacing of the bars already on the chart;
// with a single bar every tick extends it.
func (c *Chart) UpdateFromTick(ctx context.Context, t Tick) error {
	if t.Time.IsZero() {
		return bridge.NewError(bridge.CodeValidation, "tick time is required", nil)
	}
	c.barMu.Lock()
	defer c.barMu.Unlock()

	start := t.Time
	switch {
	case c.interval > 0:
		start = t.Time.Truncate(c.interval)
	case c.last != nil && !t.Time.Before(c.last.Time):
		start = c.last.Time
	}
	if c.last != nil && start.Before(c.last.Time) {
		return bridge.NewError(bridge.CodeValidation, fmt.Sprintf("tick at %s precedes the current bar", t.Time.UTC().Format(time.RFC3339)), nil)
	}

	bar := Bar{Time: start, Open: t.Price, High: t.Price, Low: t.Price, Close: t.Price, Volume: t.Volume}
	if c.last != nil && start.Equal(c.last.Time) {
		bar = *c.last
		bar.High = max(bar.High, t.Price)
		bar.Low = min(bar.Low, t.Price)
		bar.Close = t.Price
		bar.Volume += t.Volume
	}
	return c.updateBar(ctx, bar)
}

func (c *Chart) Watermark(ctx context.Context, text, color string) error {
	if color == "" {
		color = "rgba(180, 180, 240, 0.7)"
	}
	return c.Send(ctx, bridge.OpChartWatermark, "", map[string]any{"text": text, "color": color})
}

func (c *Chart) Legend(ctx context.Context, visible bool) error {
	return c.Send(ctx, bridge.OpChartLegend, "", map[string]any{"visible": visible})
}

// TopBar returns the chart's topbar; widgets are created lazily.
func (c *Chart) TopBar() *TopBar { return c.topbar }

func (c *Chart) wireBar(b Bar) wireBar {
	return wireBar{
		Time:   c.TimeValue(b.Time),
		Open:   b.Open,
		High:   b.High,
		Low:    b.Low,
		Close:  b.Close,
		Volume: b.Volume,
	}
}
