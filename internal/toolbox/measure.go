package toolbox

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dgnsrekt/lwcharts/internal/bridge"
)

// Measure length display modes.
const (
	LengthTime = "time"
	LengthBars = "bars"
	LengthBoth = "both"
)

// MeasureEvent is one measure tool lifecycle event. Malformed is set when
// the payload could not be split and decoded; Type then holds the raw
// payload and Points is nil.
type MeasureEvent struct {
	Type      string `json:"type"`
	Points    any    `json:"points"`
	Malformed bool   `json:"malformed,omitempty"`
}

// ParseMeasureEvent decodes "<type>_~_<json points>", splitting on the
// first delimiter only.
func ParseMeasureEvent(payload string) MeasureEvent {
	typ, rest, ok := strings.Cut(payload, bridge.Delimiter)
	if !ok {
		return MeasureEvent{Type: payload, Malformed: true}
	}
	var points any
	if err := json.Unmarshal([]byte(rest), &points); err != nil {
		return MeasureEvent{Type: payload, Malformed: true}
	}
	return MeasureEvent{Type: typ, Points: points}
}

// Measure registers fn for measure tool events and routes the view's measure
// tool to it. Every call gets its own handler; the view only keeps the most
// recent route. A nil fn is a no-op.
func (tb *ToolBox) Measure(ctx context.Context, fn func(MeasureEvent)) (string, error) {
	if fn == nil {
		return "", nil
	}
	return tb.route(ctx, bridge.Sync(func(payload string) { fn(ParseMeasureEvent(payload)) }))
}

// MeasureAsync is Measure for callbacks that may block.
func (tb *ToolBox) MeasureAsync(ctx context.Context, fn func(context.Context, MeasureEvent) error) (string, error) {
	if fn == nil {
		return "", nil
	}
	return tb.route(ctx, bridge.Async(func(ctx context.Context, payload string) error {
		return fn(ctx, ParseMeasureEvent(payload))
	}))
}

func (tb *ToolBox) route(ctx context.Context, h bridge.Handler) (string, error) {
	tb.mu.Lock()
	tb.measureN++
	id := fmt.Sprintf("measure_%s_%d", tb.chart.ID(), tb.measureN)
	tb.mu.Unlock()

	unregister, err := tb.chart.Window().Register(id, h)
	if err != nil {
		return "", err
	}
	if err := tb.chart.Send(ctx, bridge.OpMeasureRoute, "", map[string]any{"handler": id}); err != nil {
		unregister()
		return "", err
	}
	tb.mu.Lock()
	tb.measures[id] = unregister
	tb.mu.Unlock()
	return id, nil
}

// MeasureHandlers lists the registered measure handler ids.
func (tb *ToolBox) MeasureHandlers() []string {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	ids := make([]string, 0, len(tb.measures))
	for id := range tb.measures {
		ids = append(ids, id)
	}
	return ids
}

// SetMeasureLengthDisplay picks what the measure label shows: time, bars
// or both. Any other mode fails before anything is sent.
func (tb *ToolBox) SetMeasureLengthDisplay(ctx context.Context, mode string) error {
	switch mode {
	case LengthTime, LengthBars, LengthBoth:
	default:
		return bridge.NewError(bridge.CodeValidation, "invalid measure length display mode: "+mode+" (want time, bars or both)", nil)
	}
	return tb.chart.Send(ctx, bridge.OpMeasureLengthStyle, "", map[string]any{"mode": mode})
}
