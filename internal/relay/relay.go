package relay

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/dgnsrekt/lwcharts/internal/bridge"
)

// Record is the JSON payload of every relayed event.
type Record struct {
	Feed      string    `json:"feed"`
	HandlerID string    `json:"handler_id"`
	Payload   string    `json:"payload"`
	Handled   bool      `json:"handled"`
	Received  time.Time `json:"received"`
}

// Journal persists relayed records; storage.JSONLWriter satisfies it.
type Journal interface {
	Write(record any) error
}

// Relay observes a bridge and publishes every view event to a Broker and,
// optionally, a journal.
type Relay struct {
	cfg     *RelayConfig
	broker  *Broker
	journal Journal

	unobserve func()
}

// NewRelay creates a relay engine. A nil cfg uses DefaultConfig.
func NewRelay(cfg *RelayConfig, broker *Broker, journal Journal) *Relay {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Relay{cfg: cfg, broker: broker, journal: journal}
}

// Start subscribes to the bridge's event stream.
func (r *Relay) Start(b *bridge.Bridge) {
	r.unobserve = b.Observe(r.onEvent)
	slog.Info("relay started", "feeds", len(r.cfg.Feeds), "journal", r.journal != nil)
}

// Stop unsubscribes from the bridge.
func (r *Relay) Stop() {
	if r.unobserve != nil {
		r.unobserve()
		r.unobserve = nil
	}
	slog.Info("relay stopped")
}

func (r *Relay) onEvent(e bridge.Event) {
	feed, ok := r.cfg.match(e.HandlerID, e.Handled)
	if !ok {
		return
	}
	rec := Record{Feed: feed, HandlerID: e.HandlerID, Payload: e.Payload, Handled: e.Handled, Received: e.Received}
	data, err := json.Marshal(rec)
	if err != nil {
		slog.Debug("relay: marshal event", "error", err)
		return
	}
	r.broker.Publish(Event{Feed: feed, Handler: e.HandlerID, Payload: string(data)})
	if r.journal != nil {
		if err := r.journal.Write(rec); err != nil {
			slog.Debug("relay: journal write failed", "handler_id", e.HandlerID, "error", err)
		}
	}
}
