package bridge

import (
	"context"
	"sort"
	"sync"
)

// Handler is a tagged callback variant: either a plain function run on the
// event-delivery goroutine, or a suspending one scheduled on its own
// goroutine so delivery never waits for it.
type Handler struct {
	sync  func(payload string)
	async func(ctx context.Context, payload string) error
}

// Sync wraps a handler that runs inline on the delivery path.
func Sync(fn func(payload string)) Handler { return Handler{sync: fn} }

// Async wraps a handler that is dispatched on its own goroutine.
func Async(fn func(ctx context.Context, payload string) error) Handler {
	return Handler{async: fn}
}

// IsAsync reports whether h is the suspending variant.
func (h Handler) IsAsync() bool { return h.async != nil }

func (h Handler) valid() bool { return h.sync != nil || h.async != nil }

type registration struct {
	gen     uint64
	handler Handler
}

// Registry maps handler identifiers to callbacks. Lookups happen on the
// transport read goroutine while registrations come from host code, so all
// access is locked.
type Registry struct {
	mu       sync.RWMutex
	gen      uint64
	handlers map[string]registration
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]registration)}
}

// Register installs h under id, replacing any previous handler with that id.
// The returned func removes this registration only; it is a no-op once the
// id has been re-registered.
func (r *Registry) Register(id string, h Handler) (func(), error) {
	if id == "" {
		return nil, NewError(CodeValidation, "handler id is required", nil)
	}
	if !h.valid() {
		return nil, NewError(CodeValidation, "handler function is required", nil)
	}
	r.mu.Lock()
	r.gen++
	gen := r.gen
	r.handlers[id] = registration{gen: gen, handler: h}
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if cur, ok := r.handlers[id]; ok && cur.gen == gen {
			delete(r.handlers, id)
		}
	}, nil
}

// Unregister removes whatever handler is registered under id.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	delete(r.handlers, id)
	r.mu.Unlock()
}

func (r *Registry) Lookup(id string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.handlers[id]
	return reg.handler, ok
}

// IDs returns the registered identifiers in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.handlers))
	for id := range r.handlers {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	sort.Strings(ids)
	return ids
}
