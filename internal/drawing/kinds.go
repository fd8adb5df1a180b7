package drawing

import (
	"context"
	"log/slog"
	"time"

	"github.com/dgnsrekt/lwcharts/internal/bridge"
	"github.com/dgnsrekt/lwcharts/internal/chart"
)

// Option configures a drawing at construction time.
type Option func(*config)

type config struct {
	round     bool
	axisLabel bool
	handler   func(d *Drawing) bridge.Handler
}

// WithRound passes the view's anchor rounding flag through.
func WithRound(round bool) Option { return func(c *config) { c.round = round } }

// WithAxisLabel toggles the price-axis label of a horizontal line.
func WithAxisLabel(visible bool) Option { return func(c *config) { c.axisLabel = visible } }

// WithCallback runs fn on the event-delivery goroutine after the view moved
// the drawing. fn must not block.
func WithCallback(fn func(d *Drawing)) Option {
	return func(c *config) {
		c.handler = func(d *Drawing) bridge.Handler {
			return bridge.Sync(func(payload string) {
				if err := d.applyEvent(payload); err != nil {
					slog.Warn("drawing event dropped", "drawing_id", d.id, "error", err)
					return
				}
				fn(d)
			})
		}
	}
}

// WithAsyncCallback runs fn on its own goroutine after the view moved the
// drawing.
func WithAsyncCallback(fn func(ctx context.Context, d *Drawing) error) Option {
	return func(c *config) {
		c.handler = func(d *Drawing) bridge.Handler {
			return bridge.Async(func(ctx context.Context, payload string) error {
				if err := d.applyEvent(payload); err != nil {
					return err
				}
				return fn(ctx, d)
			})
		}
	}
}

// Spec is the kind-independent description used to create any drawing.
type Spec struct {
	Kind   Kind
	Points []Point
	Style  Style
}

// New creates a drawing of any kind from spec. HorizontalLine uses only the
// first point's price; VerticalLine only the first point's time; VerticalSpan
// ignores prices.
func New(ctx context.Context, c *chart.Chart, spec Spec, opts ...Option) (*Drawing, error) {
	need := 1
	if spec.Kind.TwoPoint() {
		need = 2
	}
	if len(spec.Points) != need {
		return nil, bridge.NewError(bridge.CodeValidation, "wrong number of points for "+string(spec.Kind), nil)
	}
	p := spec.Points
	switch spec.Kind {
	case KindHorizontalLine:
		return NewHorizontalLine(ctx, c, p[0].Price, spec.Style, opts...)
	case KindVerticalLine:
		return NewVerticalLine(ctx, c, p[0].Time, spec.Style, opts...)
	case KindRayLine:
		return NewRayLine(ctx, c, p[0], spec.Style, opts...)
	case KindBox:
		return NewBox(ctx, c, p[0], p[1], spec.Style, opts...)
	case KindTrendLine:
		return NewTrendLine(ctx, c, p[0], p[1], spec.Style, opts...)
	case KindVerticalSpan:
		return NewVerticalSpan(ctx, c, p[0].Time, p[1].Time, spec.Style, opts...)
	}
	return nil, bridge.NewError(bridge.CodeValidation, "unknown drawing kind: "+string(spec.Kind), nil)
}

// NewHorizontalLine draws a line across the chart at price.
func NewHorizontalLine(ctx context.Context, c *chart.Chart, price float64, s Style, opts ...Option) (*Drawing, error) {
	s = withDefaults(s, "rgb(122, 146, 202)", 2)
	d := &Drawing{kind: KindHorizontalLine, points: []Point{{Price: price}}}
	desc := pointDesc{Price: &price}
	return create(ctx, c, d, s, []pointDesc{desc}, opts)
}

// NewVerticalLine draws a line down the chart at t.
func NewVerticalLine(ctx context.Context, c *chart.Chart, t time.Time, s Style, opts ...Option) (*Drawing, error) {
	s = withDefaults(s, "#1E80F0", 1)
	d := &Drawing{kind: KindVerticalLine, points: []Point{{Time: t}}}
	v := c.TimeValue(t)
	return create(ctx, c, d, s, []pointDesc{{Time: &v}}, opts)
}

// NewRayLine draws a horizontal ray starting at the anchor.
func NewRayLine(ctx context.Context, c *chart.Chart, start Point, s Style, opts ...Option) (*Drawing, error) {
	s = withDefaults(s, "#1E80F0", 2)
	d := &Drawing{kind: KindRayLine, points: []Point{start}}
	return create(ctx, c, d, s, nil, opts)
}

// NewBox draws a filled rectangle between two corners.
func NewBox(ctx context.Context, c *chart.Chart, start, end Point, s Style, opts ...Option) (*Drawing, error) {
	s = withDefaults(s, "#1E80F0", 2)
	if s.FillColor == "" {
		s.FillColor = "rgba(255, 255, 255, 0.2)"
	}
	d := &Drawing{kind: KindBox, points: []Point{start, end}}
	return create(ctx, c, d, s, nil, opts)
}

// NewTrendLine draws a segment between two anchors.
func NewTrendLine(ctx context.Context, c *chart.Chart, start, end Point, s Style, opts ...Option) (*Drawing, error) {
	s = withDefaults(s, "#1E80F0", 2)
	d := &Drawing{kind: KindTrendLine, points: []Point{start, end}}
	return create(ctx, c, d, s, nil, opts)
}

// NewVerticalSpan shades the time range [start, end].
func NewVerticalSpan(ctx context.Context, c *chart.Chart, start, end time.Time, s Style, opts ...Option) (*Drawing, error) {
	if s.LineColor == "" {
		s.LineColor = "rgba(252, 219, 3, 0.2)"
	}
	d := &Drawing{kind: KindVerticalSpan, points: []Point{{Time: start}, {Time: end}}}
	return create(ctx, c, d, s, nil, opts)
}

func withDefaults(s Style, color string, width int) Style {
	if s.LineColor == "" {
		s.LineColor = color
	}
	if s.Width == 0 {
		s.Width = width
	}
	return s
}

// create registers the callback (if any) before the view can emit events
// for the new id, then sends drawing.create. descs overrides the default
// logical point descriptors.
func create(ctx context.Context, c *chart.Chart, d *Drawing, s Style, descs []pointDesc, opts []Option) (*Drawing, error) {
	if c == nil {
		return nil, bridge.NewError(bridge.CodeValidation, "drawing requires a chart", nil)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	cfg := config{axisLabel: true}
	for _, o := range opts {
		o(&cfg)
	}
	if !d.kind.Labeled() {
		s.Text = ""
	}
	d.id = c.Window().NewID("drawing")
	d.chart = c
	d.round = cfg.round
	d.style = s
	if descs == nil {
		descs = make([]pointDesc, len(d.points))
		for i, p := range d.points {
			descs[i] = d.describe(p)
		}
	}

	callback := ""
	if cfg.handler != nil {
		unregister, err := c.Window().Register(d.id, cfg.handler(d))
		if err != nil {
			return nil, err
		}
		d.unregister = unregister
		callback = d.id
	}

	args := map[string]any{
		"kind":    string(d.kind),
		"points":  descs,
		"options": s.wire(d.kind),
		"round":   d.round,
	}
	if d.kind == KindHorizontalLine {
		args["axisLabelVisible"] = cfg.axisLabel
	}
	if callback != "" {
		args["callback"] = callback
	}
	if err := c.Send(ctx, bridge.OpDrawingCreate, d.id, args); err != nil {
		if d.unregister != nil {
			d.unregister()
			d.unregister = nil
		}
		return nil, err
	}
	// Interactive horizontal lines join the toolbox so they can be dragged
	// and checkpointed with user drawings.
	if callback != "" && d.kind == KindHorizontalLine {
		if err := c.Send(ctx, bridge.OpToolboxAddDrawing, d.id, nil); err != nil {
			slog.Warn("toolbox add drawing failed", "drawing_id", d.id, "error", err)
		}
	}
	slog.Debug("drawing created", "drawing_id", d.id, "kind", d.kind, "chart_id", c.ID())
	return d, nil
}
