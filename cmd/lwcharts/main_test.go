package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dgnsrekt/lwcharts/internal/bridge"
	"github.com/dgnsrekt/lwcharts/internal/bridge/bridgetest"
	"github.com/dgnsrekt/lwcharts/internal/chart"
	"github.com/dgnsrekt/lwcharts/internal/config"
	"github.com/dgnsrekt/lwcharts/internal/controller"
)

func TestDrawingsTags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "drawings.json")
	data := `{"SPY": [{"type":"Box","points":[],"options":{}}, {"type":"RayLine","points":[],"options":{}}], "AAPL": []}`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"drawings", "tags", path})
	if err := root.Execute(); err != nil {
		t.Fatalf("Execute() = %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("output = %q", out.String())
	}
	if !strings.HasPrefix(lines[1], "AAPL") || !strings.HasSuffix(lines[1], "0") {
		t.Fatalf("line 1 = %q", lines[1])
	}
	if !strings.HasPrefix(lines[2], "SPY") || !strings.HasSuffix(lines[2], "2") {
		t.Fatalf("line 2 = %q", lines[2])
	}
}

func TestDrawingsTagsMissingFile(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"drawings", "tags", filepath.Join(t.TempDir(), "nope.json")})
	if err := root.Execute(); err == nil {
		t.Fatal("Execute() = nil; want error")
	}
}

func TestBuildLayout(t *testing.T) {
	dir := t.TempDir()
	bars := filepath.Join(dir, "bars.csv")
	csv := "date,open,high,low,close,volume\n2024-01-02,1,2,0.5,1.5,100\n2024-01-03,1.5,2.5,1,2,200\n"
	if err := os.WriteFile(bars, []byte(csv), 0o644); err != nil {
		t.Fatal(err)
	}
	drawings := filepath.Join(dir, "drawings.json")
	if err := os.WriteFile(drawings, []byte(`{"SPY":[{"type":"Box","points":[],"options":{}}]}`), 0o644); err != nil {
		t.Fatal(err)
	}

	l := &config.Layout{Charts: []config.ChartEntry{{
		Name:      "main",
		Watermark: "SPY",
		Legend:    true,
		Topbar:    []config.TextboxEntry{{Name: "symbol", Value: "SPY"}, {Name: "timeframe", Options: []string{"1min", "5min"}}},
		Toolbox:   &config.ToolboxEntry{SaveUnder: "symbol", DrawingsFile: drawings},
		Subcharts: []config.SubchartEntry{{Name: "lower", Position: "bottom", Sync: true, Bars: bars}},
	}}}
	if err := l.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}

	ctx := context.Background()
	rec := bridgetest.New()
	b := bridge.New(rec)
	if err := b.Start(ctx); err != nil {
		t.Fatal(err)
	}
	win := chart.NewWindow(b)
	svc := controller.NewService(win, nil)

	exports, err := buildLayout(ctx, win, svc, l, bars)
	if err != nil {
		t.Fatalf("buildLayout() = %v", err)
	}
	if len(win.Charts()) != 2 {
		t.Fatalf("charts = %d; want 2", len(win.Charts()))
	}
	if len(exports) != 1 || exports[0].path != drawings {
		t.Fatalf("exports = %+v", exports)
	}

	ops := strings.Join(rec.Ops(), ",")
	for _, want := range []string{bridge.OpChartCreate, bridge.OpTopbarTextbox, bridge.OpTopbarSwitcher, bridge.OpChartWatermark, bridge.OpChartLegend, bridge.OpChartSetData, bridge.OpToolboxCreate} {
		if !strings.Contains(ops, want) {
			t.Fatalf("ops %s missing %s", ops, want)
		}
	}

	mainID := exports[0].chartID
	info, err := svc.GetToolbox(ctx, mainID)
	if err != nil {
		t.Fatalf("GetToolbox() = %v", err)
	}
	if info.Tags["SPY"] != 1 {
		t.Fatalf("imported tags = %v", info.Tags)
	}

	// Checkpoints from the view land under the textbox value.
	rec.Emit("save_drawings" + mainID + bridge.Delimiter + `[{"type":"RayLine","points":[],"options":{}},{"type":"Box","points":[],"options":{}}]`)
	exportDrawings(ctx, svc, exports)
	data, err := os.ReadFile(drawings)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "RayLine") {
		t.Fatalf("exported file = %s", data)
	}
}

func TestBuildLayoutBadLocation(t *testing.T) {
	rec := bridgetest.New()
	b := bridge.New(rec)
	_ = b.Start(context.Background())
	win := chart.NewWindow(b)
	l := &config.Layout{Charts: []config.ChartEntry{{Name: "main", Width: 1, Height: 1, Location: "Mars/Olympus"}}}
	if _, err := buildLayout(context.Background(), win, controller.NewService(win, nil), l, ""); err == nil {
		t.Fatal("buildLayout() = nil; want location error")
	}
}

func TestWaitForViewTimesOut(t *testing.T) {
	rec := bridgetest.New()
	err := waitForView(context.Background(), rec, 300*time.Millisecond)
	if err == nil {
		t.Fatal("waitForView() = nil; want VIEW_UNAVAILABLE")
	}
}
