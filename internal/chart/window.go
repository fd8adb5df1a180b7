package chart

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/dgnsrekt/lwcharts/internal/bridge"
	"github.com/google/uuid"
)

// Window is one view instance: a bridge plus the charts living in it.
type Window struct {
	bridge *bridge.Bridge

	mu     sync.Mutex
	charts map[string]*Chart
}

func NewWindow(b *bridge.Bridge) *Window {
	return &Window{bridge: b, charts: make(map[string]*Chart)}
}

func (w *Window) Bridge() *bridge.Bridge { return w.bridge }

// NewID returns a process-unique identifier with the given prefix. Ids are
// only ever used as keys, never as script identifiers.
func (w *Window) NewID(prefix string) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	if prefix == "" {
		return id
	}
	return prefix + "_" + id
}

// Register installs an event handler in the window's registry.
func (w *Window) Register(id string, h bridge.Handler) (func(), error) {
	return w.bridge.Registry().Register(id, h)
}

// Send delivers a command, discarding the interpreter's result.
func (w *Window) Send(ctx context.Context, cmd bridge.Command) error {
	_, err := w.bridge.Send(ctx, cmd)
	return err
}

// NewChart creates the window's main chart (or an additional top-level one).
func (w *Window) NewChart(ctx context.Context, opts ...Option) (*Chart, error) {
	cfg := defaultOptions()
	for _, o := range opts {
		o(&cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	c := newChart(w, w.NewID("chart"), nil, cfg)
	if err := w.Send(ctx, bridge.Command{Op: bridge.OpChartCreate, Chart: c.id, Args: c.createArgs()}); err != nil {
		return nil, err
	}
	w.add(c)
	return c, nil
}

// Chart looks up a chart or subchart by id.
func (w *Window) Chart(id string) (*Chart, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	c, ok := w.charts[id]
	return c, ok
}

// Charts returns every chart in creation-independent id order.
func (w *Window) Charts() []*Chart {
	w.mu.Lock()
	out := make([]*Chart, 0, len(w.charts))
	for _, c := range w.charts {
		out = append(out, c)
	}
	w.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

func (w *Window) add(c *Chart) {
	w.mu.Lock()
	w.charts[c.id] = c
	w.mu.Unlock()
}
