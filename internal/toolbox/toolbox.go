// Package toolbox drives the view's drawing toolbox: checkpointing user
// drawings per tag, restoring them, and routing the measure tool.
package toolbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/dgnsrekt/lwcharts/internal/bridge"
	"github.com/dgnsrekt/lwcharts/internal/chart"
)

// Widget supplies the tag drawings are checkpointed under, typically a
// topbar textbox holding the symbol.
type Widget interface {
	Value() string
}

// ToolBox is the host side of one chart's toolbox.
type ToolBox struct {
	chart     *chart.Chart
	handlerID string

	mu        sync.Mutex
	drawings  map[string][]json.RawMessage
	saveUnder Widget
	measureN  int
	measures  map[string]func()
}

// New enables the toolbox UI for c and subscribes to its checkpoints.
func New(ctx context.Context, c *chart.Chart) (*ToolBox, error) {
	tb := &ToolBox{
		chart:     c,
		handlerID: "save_drawings" + c.ID(),
		drawings:  make(map[string][]json.RawMessage),
		measures:  make(map[string]func()),
	}
	unregister, err := c.Window().Register(tb.handlerID, bridge.Sync(tb.checkpoint))
	if err != nil {
		return nil, err
	}
	if err := c.Send(ctx, bridge.OpToolboxCreate, "", map[string]any{"handler": c.ID()}); err != nil {
		unregister()
		return nil, err
	}
	slog.Info("toolbox created", "chart_id", c.ID(), "handler_id", tb.handlerID)
	return tb, nil
}

func (tb *ToolBox) Chart() *chart.Chart { return tb.chart }

// HandlerID is the identifier the view checkpoints drawings through.
func (tb *ToolBox) HandlerID() string { return tb.handlerID }

// SaveDrawingsUnder makes w's current value the key of future checkpoints.
func (tb *ToolBox) SaveDrawingsUnder(w Widget) {
	tb.mu.Lock()
	tb.saveUnder = w
	tb.mu.Unlock()
}

// LoadDrawings redraws the set saved under tag. Unknown or empty tags are a
// no-op. The view skips the command if its toolbox is gone by then.
func (tb *ToolBox) LoadDrawings(ctx context.Context, tag string) error {
	tb.mu.Lock()
	records := tb.drawings[tag]
	tb.mu.Unlock()
	if len(records) == 0 {
		return nil
	}
	return tb.chart.Send(ctx, bridge.OpToolboxLoad, "", map[string]any{"tag": tag, "drawings": records})
}

// Tags lists saved tags in order.
func (tb *ToolBox) Tags() []string {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tags := make([]string, 0, len(tb.drawings))
	for tag := range tb.drawings {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// Drawings returns a copy of the saved set for tag.
func (tb *ToolBox) Drawings(tag string) []json.RawMessage {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return cloneRecords(tb.drawings[tag])
}

// Snapshot returns a copy of the whole tag → drawings mapping.
func (tb *ToolBox) Snapshot() map[string][]json.RawMessage {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	out := make(map[string][]json.RawMessage, len(tb.drawings))
	for tag, records := range tb.drawings {
		out[tag] = cloneRecords(records)
	}
	return out
}

// checkpoint handles "save_drawings<chart>" events. Without a save-under
// widget the event is discarded.
func (tb *ToolBox) checkpoint(payload string) {
	tb.mu.Lock()
	w := tb.saveUnder
	tb.mu.Unlock()
	if w == nil {
		slog.Debug("checkpoint discarded", "chart_id", tb.chart.ID(), "reason", "no save-under widget")
		return
	}
	records, err := decodeRecords([]byte(payload))
	if err != nil {
		slog.Warn("checkpoint dropped", "chart_id", tb.chart.ID(), "error", err)
		return
	}
	tag := w.Value()
	tb.mu.Lock()
	tb.drawings[tag] = records
	tb.mu.Unlock()
	slog.Debug("drawings checkpointed", "chart_id", tb.chart.ID(), "tag", tag, "count", len(records))
}

// decodeRecords parses a JSON array of opaque records, compacting each so
// equal drawings compare equal regardless of the producer's whitespace.
func decodeRecords(data []byte) ([]json.RawMessage, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("toolbox: decode drawings: %w", err)
	}
	out := make([]json.RawMessage, len(raw))
	for i, r := range raw {
		var buf bytes.Buffer
		if err := json.Compact(&buf, r); err != nil {
			return nil, fmt.Errorf("toolbox: compact drawing %d: %w", i, err)
		}
		out[i] = buf.Bytes()
	}
	return out, nil
}

func cloneRecords(in []json.RawMessage) []json.RawMessage {
	if in == nil {
		return nil
	}
	out := make([]json.RawMessage, len(in))
	for i, r := range in {
		out[i] = append(json.RawMessage(nil), r...)
	}
	return out
}
