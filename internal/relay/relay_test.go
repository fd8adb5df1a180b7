package relay

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dgnsrekt/lwcharts/internal/bridge"
	"github.com/dgnsrekt/lwcharts/internal/bridge/bridgetest"
)

type memJournal struct {
	mu   sync.Mutex
	recs []Record
}

func (m *memJournal) Write(r any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs = append(m.recs, r.(Record))
	return nil
}

func TestDefaultConfigMatchesHandlerKinds(t *testing.T) {
	cfg := DefaultConfig()
	tests := []struct {
		id      string
		handled bool
		want    string
		ok      bool
	}{
		{"measure_chart_1_0", true, "measure", true},
		{"save_drawingschart_1", true, "toolbox", true},
		{"drawing_abc", true, "drawing", true},
		{"chart_1_topbar_symbol", true, "topbar", true},
		{"whatever", true, "bridge", true},
		{"drawing_gone", false, "bridge", true},
	}
	for _, tt := range tests {
		got, ok := cfg.match(tt.id, tt.handled)
		if got != tt.want || ok != tt.ok {
			t.Fatalf("match(%q,%v) = %q,%v; want %q,%v", tt.id, tt.handled, got, ok, tt.want, tt.ok)
		}
	}
}

func TestUnknownHandlersDroppedWithoutCatchAll(t *testing.T) {
	cfg := &RelayConfig{Feeds: []FeedConfig{{Name: "drawing", HandlerPrefix: []string{"drawing_"}}}}
	if _, ok := cfg.match("drawing_x", false); ok {
		t.Fatal("unhandled event matched a feed without include_unknown")
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relay.yaml")
	body := "feeds:\n  - name: lines\n    handler_prefix: [\"drawing_\"]\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() = %v", err)
	}
	if len(cfg.Feeds) != 1 || cfg.Feeds[0].Name != "lines" || cfg.Feeds[0].HandlerPrefix[0] != "drawing_" {
		t.Fatalf("cfg = %+v", cfg)
	}

	if err := os.WriteFile(path, []byte("feeds:\n  - name: x\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("LoadConfig(missing prefix) = nil; want error")
	}
}

func TestRelayPublishesAndJournals(t *testing.T) {
	rec := bridgetest.New()
	b := bridge.New(rec)
	if err := b.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Registry().Register("drawing_1", bridge.Sync(func(string) {})); err != nil {
		t.Fatal(err)
	}

	broker := NewBroker()
	_, ch := broker.Subscribe()
	j := &memJournal{}
	r := NewRelay(nil, broker, j)
	r.Start(b)

	rec.Emit("drawing_1" + bridge.Delimiter + "101.5")

	select {
	case evt := <-ch:
		if evt.Feed != "drawing" || evt.Handler != "drawing_1" {
			t.Fatalf("event = %+v", evt)
		}
		var got Record
		if err := json.Unmarshal([]byte(evt.Payload), &got); err != nil {
			t.Fatal(err)
		}
		if got.Payload != "101.5" || !got.Handled {
			t.Fatalf("record = %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no event published")
	}
	if len(j.recs) != 1 {
		t.Fatalf("journal records = %d; want 1", len(j.recs))
	}

	r.Stop()
	rec.Emit("drawing_1" + bridge.Delimiter + "102")
	if published, _ := broker.Stats(); published != 1 {
		t.Fatalf("published = %d after Stop; want 1", published)
	}
}

func TestSSEHandlerFiltersByHandlerPrefix(t *testing.T) {
	broker := NewBroker()
	srv := httptest.NewServer(SSEHandler(broker))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"?handlers=measure_", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}

	deadline := time.Now().Add(2 * time.Second)
	for broker.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	broker.Publish(Event{Feed: "drawing", Handler: "drawing_1", Payload: `{"n":1}`})
	broker.Publish(Event{Feed: "measure", Handler: "measure_c_0", Payload: `{"n":2}`})

	sc := bufio.NewScanner(resp.Body)
	var lines []string
	for sc.Scan() {
		if line := sc.Text(); line != "" {
			lines = append(lines, line)
		}
		if len(lines) == 2 {
			break
		}
	}
	if strings.Join(lines, "|") != `event: measure|data: {"n":2}` {
		t.Fatalf("stream = %v", lines)
	}
}
