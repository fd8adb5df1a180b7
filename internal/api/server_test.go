package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dgnsrekt/lwcharts/internal/bridge"
	"github.com/dgnsrekt/lwcharts/internal/controller"
	"github.com/dgnsrekt/lwcharts/internal/relay"
)

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestMapErrStatusCodes(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{bridge.CodeValidation, http.StatusBadRequest},
		{bridge.CodeNotFound, http.StatusNotFound},
		{bridge.CodeDrawingDeleted, http.StatusConflict},
		{bridge.CodeEvalTimeout, http.StatusGatewayTimeout},
		{bridge.CodeViewUnavailable, http.StatusBadGateway},
		{bridge.CodeEvalFailure, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		h := NewServer(&stubService{err: bridge.NewError(tt.code, "boom", nil)}, Options{})
		w := do(t, h, http.MethodGet, "/api/v1/chart/chart_a", "")
		if w.Code != tt.want {
			t.Fatalf("%s: status = %d, want %d", tt.code, w.Code, tt.want)
		}
	}

	h := NewServer(&stubService{err: errors.New("plain")}, Options{})
	if w := do(t, h, http.MethodGet, "/health", ""); w.Code != http.StatusInternalServerError {
		t.Fatalf("plain error status = %d", w.Code)
	}
}

func TestSetBarsConvertsUnixSeconds(t *testing.T) {
	svc := &stubService{}
	h := NewServer(svc, Options{})
	w := do(t, h, http.MethodPut, "/api/v1/chart/chart_a/bars",
		`{"bars":[{"time":1700000000,"open":1,"high":2,"low":0.5,"close":1.5,"volume":10}]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	if len(svc.bars) != 1 || svc.bars[0].Time.Unix() != 1700000000 || svc.bars[0].Close != 1.5 {
		t.Fatalf("bars = %+v", svc.bars)
	}
	var out struct {
		Bars int `json:"bars"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil || out.Bars != 1 {
		t.Fatalf("body = %s (%v)", w.Body.String(), err)
	}
}

func TestAddTick(t *testing.T) {
	svc := &stubService{}
	h := NewServer(svc, Options{})
	w := do(t, h, http.MethodPost, "/api/v1/chart/chart_a/ticks", `{"time":1700000005,"price":2.5,"volume":3}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	if svc.tick.Time.Unix() != 1700000005 || svc.tick.Price != 2.5 || svc.tick.Volume != 3 {
		t.Fatalf("tick = %+v", svc.tick)
	}
	if w := do(t, h, http.MethodPost, "/api/v1/chart/chart_a/ticks", `{"time":1700000005}`); w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("missing price status = %d", w.Code)
	}
}

func TestCreateDrawingValidatesKind(t *testing.T) {
	svc := &stubService{drawing: controller.DrawingInfo{ID: "drawing_1", Kind: "TrendLine"}}
	h := NewServer(svc, Options{})

	w := do(t, h, http.MethodPost, "/api/v1/chart/chart_a/drawings",
		`{"kind":"TrendLine","points":[{"time":1,"price":1},{"time":2,"price":2}],"style":{"line_style":"dashed"}}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	if svc.request.Kind != "TrendLine" || len(svc.request.Points) != 2 || svc.request.Style.LineStyle != "dashed" {
		t.Fatalf("request = %+v", svc.request)
	}

	w = do(t, h, http.MethodPost, "/api/v1/chart/chart_a/drawings", `{"kind":"Circle","points":[{"price":1}]}`)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("bad kind status = %d", w.Code)
	}
}

func TestMeasureDisplayRejectsUnknownMode(t *testing.T) {
	h := NewServer(&stubService{}, Options{})
	if w := do(t, h, http.MethodPut, "/api/v1/chart/chart_a/toolbox/measure/display", `{"mode":"both"}`); w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if w := do(t, h, http.MethodPut, "/api/v1/chart/chart_a/toolbox/measure/display", `{"mode":"ticks"}`); w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("bad mode status = %d", w.Code)
	}
}

func TestSnapshotImageContentType(t *testing.T) {
	h := NewServer(&stubService{image: []byte("\x89PNG")}, Options{})
	w := do(t, h, http.MethodGet, "/api/v1/snapshots/snap1/image", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/png" {
		t.Fatalf("content type = %q", ct)
	}
	if w.Body.String() != "\x89PNG" {
		t.Fatalf("body = %q", w.Body.String())
	}
}

func TestOptionalMounts(t *testing.T) {
	view := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("view:" + r.URL.Path))
	})
	h := NewServer(&stubService{}, Options{Broker: relay.NewBroker(), View: view})

	if w := do(t, h, http.MethodGet, "/view/lwc.js", ""); w.Body.String() != "view:/lwc.js" {
		t.Fatalf("view body = %q", w.Body.String())
	}
	if w := do(t, h, http.MethodGet, "/view", ""); w.Code != http.StatusMovedPermanently {
		t.Fatalf("redirect status = %d", w.Code)
	}

	bare := NewServer(&stubService{}, Options{})
	if w := do(t, bare, http.MethodGet, "/api/v1/events", ""); w.Code != http.StatusNotFound {
		t.Fatalf("events without broker status = %d", w.Code)
	}
}
