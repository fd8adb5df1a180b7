package chart

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/dgnsrekt/lwcharts/internal/bridge"
)

// TopBar holds a chart's topbar widgets.
type TopBar struct {
	chart *Chart

	mu        sync.Mutex
	boxes     map[string]*Textbox
	switchers map[string]*Switcher
}

// Widget is a topbar control holding one string value.
type Widget interface {
	Name() string
	Value() string
	SetValue(ctx context.Context, v string) error
}

// Textbox is a topbar text widget whose value the view may change.
type Textbox struct {
	chart     *Chart
	name      string
	handlerID string

	mu    sync.RWMutex
	value string
}

// Textbox returns the widget called name, creating it with initial on first
// use. The view reports edits through handler "<chart>_topbar_<name>".
func (tb *TopBar) Textbox(ctx context.Context, name, initial string) (*Textbox, error) {
	if strings.TrimSpace(name) == "" {
		return nil, bridge.NewError(bridge.CodeValidation, "textbox name is required", nil)
	}
	tb.mu.Lock()
	if box, ok := tb.boxes[name]; ok {
		tb.mu.Unlock()
		return box, nil
	}
	_, taken := tb.switchers[name]
	tb.mu.Unlock()
	if taken {
		return nil, bridge.NewError(bridge.CodeValidation, "topbar widget "+name+" is a switcher", nil)
	}

	box := &Textbox{chart: tb.chart, name: name, handlerID: tb.chart.id + "_topbar_" + name, value: initial}
	unregister, err := tb.chart.win.Register(box.handlerID, bridge.Sync(box.set))
	if err != nil {
		return nil, err
	}
	args := map[string]any{"name": name, "value": initial, "handler": box.handlerID}
	if err := tb.chart.Send(ctx, bridge.OpTopbarTextbox, name, args); err != nil {
		unregister()
		return nil, err
	}

	tb.mu.Lock()
	defer tb.mu.Unlock()
	if existing, ok := tb.boxes[name]; ok {
		return existing, nil
	}
	tb.boxes[name] = box
	return box, nil
}

// Widget returns the textbox or switcher called name.
func (tb *TopBar) Widget(name string) (Widget, bool) {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	if box, ok := tb.boxes[name]; ok {
		return box, true
	}
	if sw, ok := tb.switchers[name]; ok {
		return sw, true
	}
	return nil, false
}

// Names lists the topbar's textboxes in name order.
func (tb *TopBar) Names() []string {
	tb.mu.Lock()
	out := make([]string, 0, len(tb.boxes))
	for name := range tb.boxes {
		out = append(out, name)
	}
	tb.mu.Unlock()
	sort.Strings(out)
	return out
}

func (tb *TopBar) SwitcherNames() []string {
	tb.mu.Lock()
	out := make([]string, 0, len(tb.switchers))
	for name := range tb.switchers {
		out = append(out, name)
	}
	tb.mu.Unlock()
	sort.Strings(out)
	return out
}

// Switcher returns the button group called name, creating it on first use.
// initial defaults to the first option. The view reports clicks through
// handler "<chart>_topbar_<name>"; values outside options are ignored.
func (tb *TopBar) Switcher(ctx context.Context, name string, options []string, initial string) (*Switcher, error) {
	if strings.TrimSpace(name) == "" {
		return nil, bridge.NewError(bridge.CodeValidation, "switcher name is required", nil)
	}
	if len(options) == 0 {
		return nil, bridge.NewError(bridge.CodeValidation, "switcher "+name+" needs at least one option", nil)
	}
	if initial == "" {
		initial = options[0]
	}
	if !slices.Contains(options, initial) {
		return nil, bridge.NewError(bridge.CodeValidation, "switcher "+name+": "+initial+" is not an option", nil)
	}
	tb.mu.Lock()
	if sw, ok := tb.switchers[name]; ok {
		tb.mu.Unlock()
		return sw, nil
	}
	_, taken := tb.boxes[name]
	tb.mu.Unlock()
	if taken {
		return nil, bridge.NewError(bridge.CodeValidation, "topbar widget "+name+" is a textbox", nil)
	}

	sw := &Switcher{chart: tb.chart, name: name, handlerID: tb.chart.id + "_topbar_" + name, options: slices.Clone(options), value: initial}
	unregister, err := tb.chart.win.Register(sw.handlerID, bridge.Sync(sw.set))
	if err != nil {
		return nil, err
	}
	if err := tb.chart.Send(ctx, bridge.OpTopbarSwitcher, name, sw.args(initial)); err != nil {
		unregister()
		return nil, err
	}

	tb.mu.Lock()
	defer tb.mu.Unlock()
	if existing, ok := tb.switchers[name]; ok {
		return existing, nil
	}
	tb.switchers[name] = sw
	return sw, nil
}

func (t *Textbox) Name() string { return t.name }

func (t *Textbox) HandlerID() string { return t.handlerID }

func (t *Textbox) Value() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.value
}

// SetValue updates the widget on both sides.
func (t *Textbox) SetValue(ctx context.Context, v string) error {
	args := map[string]any{"name": t.name, "value": v, "handler": t.handlerID}
	if err := t.chart.Send(ctx, bridge.OpTopbarTextbox, t.name, args); err != nil {
		return err
	}
	t.set(v)
	return nil
}

func (t *Textbox) set(v string) {
	t.mu.Lock()
	t.value = v
	t.mu.Unlock()
}

// Switcher is a topbar button group with exactly one active option.
type Switcher struct {
	chart     *Chart
	name      string
	handlerID string
	options   []string

	mu    sync.RWMutex
	value string
}

func (s *Switcher) Name() string { return s.name }

func (s *Switcher) HandlerID() string { return s.handlerID }

func (s *Switcher) Options() []string { return slices.Clone(s.options) }

func (s *Switcher) Value() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// SetValue activates option v on both sides.
func (s *Switcher) SetValue(ctx context.Context, v string) error {
	if !slices.Contains(s.options, v) {
		return bridge.NewError(bridge.CodeValidation, "switcher "+s.name+": "+v+" is not an option", nil)
	}
	if err := s.chart.Send(ctx, bridge.OpTopbarSwitcher, s.name, s.args(v)); err != nil {
		return err
	}
	s.set(v)
	return nil
}

func (s *Switcher) args(v string) map[string]any {
	return map[string]any{"name": s.name, "options": s.options, "value": v, "handler": s.handlerID}
}

func (s *Switcher) set(v string) {
	if !slices.Contains(s.options, v) {
		return
	}
	s.mu.Lock()
	s.value = v
	s.mu.Unlock()
}
