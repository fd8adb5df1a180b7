// Package drawing manages overlay primitives (lines, boxes, spans) attached
// to a chart's primary series in the view.
package drawing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dgnsrekt/lwcharts/internal/bridge"
	"github.com/dgnsrekt/lwcharts/internal/chart"
)

// ErrDeleted is the cause of every error returned by a deleted drawing.
var ErrDeleted = errors.New("drawing already deleted")

type Kind string

const (
	KindHorizontalLine Kind = "HorizontalLine"
	KindVerticalLine   Kind = "VerticalLine"
	KindRayLine        Kind = "RayLine"
	KindBox            Kind = "Box"
	KindTrendLine      Kind = "TrendLine"
	KindVerticalSpan   Kind = "VerticalSpan"
)

// ParseKind matches a kind name case-insensitively.
func ParseKind(s string) (Kind, error) {
	for _, k := range []Kind{KindHorizontalLine, KindVerticalLine, KindRayLine, KindBox, KindTrendLine, KindVerticalSpan} {
		if strings.EqualFold(string(k), s) {
			return k, nil
		}
	}
	return "", bridge.NewError(bridge.CodeValidation, "unknown drawing kind: "+s, nil)
}

// Labeled reports whether the kind renders a text label.
func (k Kind) Labeled() bool { return k == KindHorizontalLine || k == KindVerticalLine }

// TwoPoint reports whether the kind is anchored by a start and end point.
func (k Kind) TwoPoint() bool { return k == KindBox || k == KindTrendLine || k == KindVerticalSpan }

// Point is a time/price anchor.
type Point struct {
	Time  time.Time `json:"time"`
	Price float64   `json:"price"`
}

// Style is the visual configuration sent with applyOptions.
type Style struct {
	LineColor string          `json:"line_color"`
	LineStyle chart.LineStyle `json:"line_style"`
	Width     int             `json:"width"`
	FillColor string          `json:"fill_color,omitempty"`
	Text      string          `json:"text,omitempty"`
}

// DefaultStyle is applied by Options when no color is given.
func DefaultStyle() Style {
	return Style{LineColor: "#1E80F0", LineStyle: chart.LineSolid, Width: 4}
}

func (s Style) validate() error {
	if !s.LineStyle.Valid() {
		return bridge.NewError(bridge.CodeValidation, fmt.Sprintf("invalid line style: %d", s.LineStyle), nil)
	}
	if s.Width < 0 {
		return bridge.NewError(bridge.CodeValidation, fmt.Sprintf("invalid width: %d", s.Width), nil)
	}
	return nil
}

// wire renders the options object for the view. Labeled kinds always carry
// text so that an empty string clears the label.
func (s Style) wire(kind Kind) map[string]any {
	out := map[string]any{
		"lineColor": s.LineColor,
		"lineStyle": int(s.LineStyle),
		"width":     s.Width,
	}
	if s.FillColor != "" {
		out["fillColor"] = s.FillColor
	}
	if kind.Labeled() {
		out["text"] = s.Text
	}
	return out
}

// pointDesc is the wire form of an anchor. Logical asks the view to resolve
// the bar index from the time's screen coordinate.
type pointDesc struct {
	Time    *int64   `json:"time,omitempty"`
	Price   *float64 `json:"price,omitempty"`
	Logical bool     `json:"logical,omitempty"`
}

func (d *Drawing) describe(p Point) pointDesc {
	t := d.chart.TimeValue(p.Time)
	price := p.Price
	return pointDesc{Time: &t, Price: &price, Logical: true}
}

// Drawing is a primitive created in the view. All methods are safe for
// concurrent use; event callbacks mutate geometry from the transport
// goroutine.
type Drawing struct {
	id    string
	kind  Kind
	chart *chart.Chart
	round bool

	mu         sync.Mutex
	points     []Point
	style      Style
	deleted    bool
	unregister func()
}

func (d *Drawing) ID() string { return d.id }

func (d *Drawing) Kind() Kind { return d.kind }

func (d *Drawing) Chart() *chart.Chart { return d.chart }

func (d *Drawing) Round() bool { return d.round }

// Points returns a copy of the current anchors.
func (d *Drawing) Points() []Point {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Point, len(d.points))
	copy(out, d.points)
	return out
}

// Price is the first anchor's price (the level of a horizontal line).
func (d *Drawing) Price() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.points) == 0 {
		return 0
	}
	return d.points[0].Price
}

// Time is the first anchor's time (the position of a vertical line).
func (d *Drawing) Time() time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.points) == 0 {
		return time.Time{}
	}
	return d.points[0].Time
}

func (d *Drawing) Style() Style {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.style
}

func (d *Drawing) Deleted() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.deleted
}

func (d *Drawing) errDeleted() error {
	return bridge.NewError(bridge.CodeDrawingDeleted, "drawing "+d.id+" already deleted", ErrDeleted)
}

// live reports use after delete ahead of argument checks. mutate checks
// again under the lock.
func (d *Drawing) live() error {
	if d.Deleted() {
		return d.errDeleted()
	}
	return nil
}

// Update moves a two-point drawing (or a ray) to the given anchors. All
// descriptors travel in one command so the view applies them together.
func (d *Drawing) Update(ctx context.Context, points ...Point) error {
	if err := d.live(); err != nil {
		return err
	}
	want := 2
	if !d.kind.TwoPoint() {
		want = 1
	}
	if len(points) != want {
		return bridge.NewError(bridge.CodeValidation, fmt.Sprintf("%s takes %d point(s), got %d", d.kind, want, len(points)), nil)
	}
	descs := make([]pointDesc, len(points))
	for i, p := range points {
		descs[i] = d.describe(p)
	}
	return d.mutate(ctx, bridge.OpDrawingUpdate, map[string]any{"points": descs}, func() {
		d.points = append(d.points[:0], points...)
	})
}

// UpdatePrice moves a horizontal line.
func (d *Drawing) UpdatePrice(ctx context.Context, price float64) error {
	if err := d.live(); err != nil {
		return err
	}
	if d.kind != KindHorizontalLine {
		return bridge.NewError(bridge.CodeValidation, string(d.kind)+" has no single price", nil)
	}
	desc := pointDesc{Price: &price}
	return d.mutate(ctx, bridge.OpDrawingUpdate, map[string]any{"points": []pointDesc{desc}}, func() {
		d.points = []Point{{Price: price}}
	})
}

// UpdateTime moves a vertical line.
func (d *Drawing) UpdateTime(ctx context.Context, t time.Time) error {
	if err := d.live(); err != nil {
		return err
	}
	if d.kind != KindVerticalLine {
		return bridge.NewError(bridge.CodeValidation, string(d.kind)+" has no single time", nil)
	}
	v := d.chart.TimeValue(t)
	desc := pointDesc{Time: &v}
	return d.mutate(ctx, bridge.OpDrawingUpdate, map[string]any{"points": []pointDesc{desc}}, func() {
		d.points = []Point{{Time: t}}
	})
}

// Options restyles the drawing. The last call wins; text is dropped for
// kinds without a label.
func (d *Drawing) Options(ctx context.Context, s Style) error {
	if err := d.live(); err != nil {
		return err
	}
	if s.LineColor == "" {
		s.LineColor = DefaultStyle().LineColor
	}
	if err := s.validate(); err != nil {
		return err
	}
	if !d.kind.Labeled() {
		s.Text = ""
	}
	return d.mutate(ctx, bridge.OpDrawingOptions, s.wire(d.kind), func() { d.style = s })
}

// Delete detaches the drawing. It is irreversible.
func (d *Drawing) Delete(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.deleted {
		return d.errDeleted()
	}
	if err := d.chart.Send(ctx, bridge.OpDrawingDetach, d.id, nil); err != nil {
		return err
	}
	d.deleted = true
	if d.unregister != nil {
		d.unregister()
		d.unregister = nil
	}
	slog.Debug("drawing deleted", "drawing_id", d.id, "kind", d.kind, "chart_id", d.chart.ID())
	return nil
}

// mutate sends one command and applies the host-side change only on success.
// The lock is held across the send so a concurrent Delete cannot interleave.
func (d *Drawing) mutate(ctx context.Context, op string, args any, apply func()) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.deleted {
		return d.errDeleted()
	}
	if err := d.chart.Send(ctx, op, d.id, args); err != nil {
		return err
	}
	apply()
	return nil
}

// applyEvent updates geometry from a view event. Horizontal lines report a
// bare price; other kinds report their points as JSON.
func (d *Drawing) applyEvent(payload string) error {
	if d.kind == KindHorizontalLine {
		price, err := strconv.ParseFloat(strings.TrimSpace(payload), 64)
		if err != nil {
			return fmt.Errorf("drawing: parse price: %w", err)
		}
		d.mu.Lock()
		d.points = []Point{{Price: price}}
		d.mu.Unlock()
		return nil
	}
	var raw []struct {
		Time  *float64 `json:"time"`
		Price *float64 `json:"price"`
	}
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return fmt.Errorf("drawing: parse points: %w", err)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	pts := make([]Point, 0, len(raw))
	for i, r := range raw {
		var p Point
		if i < len(d.points) {
			p = d.points[i]
		}
		if r.Time != nil {
			p.Time = d.chart.TimeFromValue(int64(*r.Time))
		}
		if r.Price != nil {
			p.Price = *r.Price
		}
		pts = append(pts, p)
	}
	d.points = pts
	return nil
}
