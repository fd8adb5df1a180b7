package cdpcontrol

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/dgnsrekt/lwcharts/internal/bridge"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func withDefaultHTTPClient(t *testing.T, transport http.RoundTripper) {
	t.Helper()
	origClient := http.DefaultClient
	t.Cleanup(func() {
		http.DefaultClient = origClient
	})
	http.DefaultClient = &http.Client{
		Transport: transport,
	}
}

func jsonResponse(body string) *http.Response {
	return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader(body))}
}

func TestSyncTabLockedWrapsListTargetsError(t *testing.T) {
	withDefaultHTTPClient(t, roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusInternalServerError,
			Body:       io.NopCloser(strings.NewReader(`oops`)),
		}, nil
	}))

	c := NewClient("http://example.com", "", time.Second)
	c.cdp = newRawCDP("http://example.com")

	err := c.syncTabLocked(context.Background())
	var codedErr *bridge.CodedError
	if !errors.As(err, &codedErr) {
		t.Fatalf("expected *bridge.CodedError, got %T (%v)", err, err)
	}
	if codedErr.Code != bridge.CodeViewUnavailable {
		t.Fatalf("error code = %s; want %s", codedErr.Code, bridge.CodeViewUnavailable)
	}
	if !strings.Contains(codedErr.Message, "failed to list targets") {
		t.Fatalf("error message = %q", codedErr.Message)
	}
}

func TestSyncTabLockedPicksFilteredPage(t *testing.T) {
	withDefaultHTTPClient(t, roundTripFunc(func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/json/list" {
			return &http.Response{StatusCode: http.StatusNotFound, Body: io.NopCloser(strings.NewReader(``))}, nil
		}
		return jsonResponse(`[
			{"id":"sw","type":"service_worker","url":"http://127.0.0.1:8188/view/sw.js"},
			{"id":"other","type":"page","url":"https://example.com/"},
			{"id":"view","type":"page","url":"http://127.0.0.1:8188/view/","title":"lwcharts"}
		]`), nil
	}))

	c := NewClient("http://example.com", "/VIEW/", time.Second)
	c.cdp = newRawCDP("http://example.com")
	c.sessionID = "stale"

	if err := c.syncTabLocked(context.Background()); err != nil {
		t.Fatalf("syncTabLocked() = %v", err)
	}
	tab, ok := c.Tab()
	if !ok || tab.TargetID != "view" || tab.Title != "lwcharts" {
		t.Fatalf("Tab() = %+v, %v", tab, ok)
	}
	if c.sessionID != "" {
		t.Fatal("session not reset after tab change")
	}
}

func TestSyncTabLockedNoMatch(t *testing.T) {
	withDefaultHTTPClient(t, roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(`[{"id":"a","type":"page","url":"https://example.com/"}]`), nil
	}))
	c := NewClient("http://example.com", "/view/", time.Second)
	c.cdp = newRawCDP("http://example.com")

	err := c.syncTabLocked(context.Background())
	var codedErr *bridge.CodedError
	if !errors.As(err, &codedErr) || codedErr.Code != bridge.CodeViewUnavailable {
		t.Fatalf("syncTabLocked() = %v; want VIEW_UNAVAILABLE", err)
	}
}

func TestConnectWithoutURL(t *testing.T) {
	c := NewClient("", "", time.Second)
	err := c.Connect(context.Background())
	var codedErr *bridge.CodedError
	if !errors.As(err, &codedErr) || codedErr.Code != bridge.CodeViewUnavailable {
		t.Fatalf("Connect() = %v; want VIEW_UNAVAILABLE", err)
	}
}

func TestShouldRetry(t *testing.T) {
	c := NewClient("", "", time.Second)
	tests := []struct {
		err  error
		want bool
	}{
		{bridge.NewError(bridge.CodeViewUnavailable, "x", nil), true},
		{bridge.NewError(bridge.CodeEvalFailure, "x", errors.New("websocket: close 1006")), true},
		{bridge.NewError(bridge.CodeEvalFailure, "x", errors.New("ReferenceError: lwc is not defined")), false},
		{bridge.NewError(bridge.CodeEvalFailure, "x", nil), false},
		{bridge.NewError(bridge.CodeEvalTimeout, "x", context.DeadlineExceeded), false},
		{fmt.Errorf("plain"), false},
	}
	for _, tt := range tests {
		if got := c.shouldRetry(tt.err); got != tt.want {
			t.Fatalf("shouldRetry(%v) = %v; want %v", tt.err, got, tt.want)
		}
	}
}

func TestRouteDeliversResponsesAndEvents(t *testing.T) {
	r := newRawCDP("http://example.com")

	ch := make(chan json.RawMessage, 1)
	r.pending[7] = ch
	r.route([]byte(`{"id":7,"result":{}}`))
	select {
	case resp := <-ch:
		if !strings.Contains(string(resp), `"id":7`) {
			t.Fatalf("response = %s", resp)
		}
	default:
		t.Fatal("response not routed")
	}

	var gotSession, gotName string
	unregister := r.registerEventHandler("Runtime.bindingCalled", func(sessionID string, params json.RawMessage) {
		var p struct {
			Name string `json:"name"`
		}
		_ = json.Unmarshal(params, &p)
		gotSession, gotName = sessionID, p.Name
	})
	r.route([]byte(`{"method":"Runtime.bindingCalled","sessionId":"s1","params":{"name":"lwcEmit","payload":"x"}}`))
	if gotSession != "s1" || gotName != "lwcEmit" {
		t.Fatalf("event = %q/%q", gotSession, gotName)
	}

	unregister()
	gotName = ""
	r.route([]byte(`{"method":"Runtime.bindingCalled","params":{"name":"lwcEmit"}}`))
	if gotName != "" {
		t.Fatal("handler ran after unregister")
	}
}

func TestBindingEventsReachSinkOffTheReadGoroutine(t *testing.T) {
	c := NewClient("", "", time.Second)
	got := make(chan string, 1)
	// No browser: Bind reports the failed attach but keeps the sink.
	if err := c.Bind(context.Background(), bridge.BindingName, func(p string) { got <- p }); err == nil {
		t.Fatal("Bind() without browser = nil; want error")
	}
	t.Cleanup(func() { _ = c.Close() })

	c.onBindingCalled("s1", json.RawMessage(`{"name":"other","payload":"ignored"}`))
	c.onBindingCalled("s1", json.RawMessage(`{"name":"lwcEmit","payload":"h_~_1"}`))
	select {
	case p := <-got:
		if p != "h_~_1" {
			t.Fatalf("payload = %q", p)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("payload never reached sink")
	}
}
