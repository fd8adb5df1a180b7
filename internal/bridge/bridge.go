package bridge

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Delimiter separates the handler id from its payload, and the fields of
// multi-part payloads, on the view → host path.
const Delimiter = "_~_"

// BindingName is the global function the view calls to emit events.
const BindingName = "lwcEmit"

// Transport executes scripts in the view and wires the event binding.
type Transport interface {
	// Evaluate runs script and returns its string result.
	Evaluate(ctx context.Context, script string) (string, error)
	// Bind exposes a global function `name` in the view; every call is
	// forwarded to sink with the single string argument.
	Bind(ctx context.Context, name string, sink func(payload string)) error
}

// Screenshotter is implemented by transports that can capture the view.
type Screenshotter interface {
	Screenshot(ctx context.Context, format string, quality int) ([]byte, error)
}

// Event describes one view → host delivery.
type Event struct {
	HandlerID string    `json:"handler_id"`
	Payload   string    `json:"payload"`
	Handled   bool      `json:"handled"`
	Received  time.Time `json:"received"`
}

// Bridge sends typed commands to the view and dispatches events coming back.
type Bridge struct {
	transport Transport
	registry  *Registry

	mu        sync.RWMutex
	baseCtx   context.Context
	observers map[int]func(Event)
	nextObs   int
}

func New(transport Transport) *Bridge {
	return &Bridge{
		transport: transport,
		registry:  NewRegistry(),
		baseCtx:   context.Background(),
		observers: make(map[int]func(Event)),
	}
}

// Start binds the event function in the view. ctx also becomes the context
// handed to async handlers.
func (b *Bridge) Start(ctx context.Context) error {
	b.mu.Lock()
	b.baseCtx = ctx
	b.mu.Unlock()
	if err := b.transport.Bind(ctx, BindingName, b.Deliver); err != nil {
		return NewError(CodeViewUnavailable, "bind event function failed", err)
	}
	slog.Info("bridge started", "binding", BindingName)
	return nil
}

func (b *Bridge) Registry() *Registry { return b.registry }

func (b *Bridge) Transport() Transport { return b.transport }

// Send serializes cmd and evaluates it in the view. The returned data is the
// interpreter's result, usually null.
func (b *Bridge) Send(ctx context.Context, cmd Command) (json.RawMessage, error) {
	script, err := cmd.Script()
	if err != nil {
		return nil, err
	}
	slog.Debug("bridge send", "op", cmd.Op, "chart", cmd.Chart, "target", cmd.Target)
	raw, err := b.transport.Evaluate(ctx, script)
	if err != nil {
		slog.Warn("bridge send failed", "op", cmd.Op, "target", cmd.Target, "error", err)
		return nil, err
	}
	env, err := DecodeEnvelope(raw)
	if err != nil {
		return nil, err
	}
	return env.Data, nil
}

// Observe registers fn to see every delivered event. The returned func
// removes it.
func (b *Bridge) Observe(fn func(Event)) func() {
	b.mu.Lock()
	id := b.nextObs
	b.nextObs++
	b.observers[id] = fn
	b.mu.Unlock()
	return func() {
		b.mu.Lock()
		delete(b.observers, id)
		b.mu.Unlock()
	}
}

// Deliver routes a raw "<handler-id>_~_<payload>" string to its handler.
// Unknown ids are ignored.
func (b *Bridge) Deliver(raw string) {
	id, payload, _ := strings.Cut(raw, Delimiter)
	h, ok := b.registry.Lookup(id)

	b.notify(Event{HandlerID: id, Payload: payload, Handled: ok, Received: time.Now().UTC()})

	if !ok {
		slog.Debug("bridge event for unknown handler", "handler_id", id)
		return
	}
	if h.IsAsync() {
		b.mu.RLock()
		ctx := b.baseCtx
		b.mu.RUnlock()
		go b.runAsync(ctx, id, h, payload)
		return
	}
	b.runSync(id, h, payload)
}

func (b *Bridge) runSync(id string, h Handler, payload string) {
	defer recoverHandler(id)
	h.sync(payload)
}

func (b *Bridge) runAsync(ctx context.Context, id string, h Handler, payload string) {
	defer recoverHandler(id)
	if err := h.async(ctx, payload); err != nil {
		slog.Warn("async handler failed", "handler_id", id, "error", err)
	}
}

func recoverHandler(id string) {
	if r := recover(); r != nil {
		slog.Error("handler panicked", "handler_id", id, "panic", r)
	}
}

func (b *Bridge) notify(evt Event) {
	b.mu.RLock()
	fns := make([]func(Event), 0, len(b.observers))
	for _, fn := range b.observers {
		fns = append(fns, fn)
	}
	b.mu.RUnlock()
	for _, fn := range fns {
		fn(evt)
	}
}
