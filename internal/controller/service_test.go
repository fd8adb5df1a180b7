package controller

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/dgnsrekt/lwcharts/internal/bridge"
	"github.com/dgnsrekt/lwcharts/internal/bridge/bridgetest"
	"github.com/dgnsrekt/lwcharts/internal/chart"
	"github.com/dgnsrekt/lwcharts/internal/snapshot"
	"github.com/dgnsrekt/lwcharts/internal/toolbox"
)

// shooter adds screenshots to the recording transport.
type shooter struct {
	*bridgetest.Recorder
	img []byte
}

func (s *shooter) Screenshot(ctx context.Context, format string, quality int) ([]byte, error) {
	return s.img, nil
}

type fixture struct {
	svc   *Service
	rec   *bridgetest.Recorder
	chart *chart.Chart
}

func newFixture(t *testing.T, transport bridge.Transport, rec *bridgetest.Recorder, withToolbox bool) fixture {
	t.Helper()
	ctx := context.Background()
	b := bridge.New(transport)
	if err := b.Start(ctx); err != nil {
		t.Fatalf("Start() = %v", err)
	}
	win := chart.NewWindow(b)
	c, err := win.NewChart(ctx, chart.WithToolbox(withToolbox))
	if err != nil {
		t.Fatalf("NewChart() = %v", err)
	}
	snaps, err := snapshot.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() = %v", err)
	}
	svc := NewService(win, snaps)
	if withToolbox {
		tb, err := toolbox.New(ctx, c)
		if err != nil {
			t.Fatalf("toolbox.New() = %v", err)
		}
		svc.AddToolbox(tb)
	}
	return fixture{svc: svc, rec: rec, chart: c}
}

func codeOf(err error) string {
	var coded *bridge.CodedError
	if errors.As(err, &coded) {
		return coded.Code
	}
	return ""
}

func TestRequireNonEmpty(t *testing.T) {
	s := &Service{}
	if err := s.requireNonEmpty("chart_1", "chart_id"); err != nil {
		t.Fatalf("requireNonEmpty() = %v; want nil", err)
	}

	err := s.requireNonEmpty("   ", "chart_id")
	var got *bridge.CodedError
	if !errors.As(err, &got) {
		t.Fatalf("requireNonEmpty() = %T; want *bridge.CodedError", err)
	}
	if got.Code != bridge.CodeValidation || got.Message != "chart_id is required" {
		t.Fatalf("requireNonEmpty() = %q/%q", got.Code, got.Message)
	}
}

func TestDrawingLifecycle(t *testing.T) {
	rec := bridgetest.New()
	f := newFixture(t, rec, rec, false)
	ctx := context.Background()

	info, err := f.svc.CreateDrawing(ctx, f.chart.ID(), DrawingRequest{
		Kind:   "TrendLine",
		Points: []PointInput{{Time: 1700000000, Price: 10}, {Time: 1700003600, Price: 12}},
		Style:  StyleInput{LineStyle: "dashed"},
	})
	if err != nil {
		t.Fatalf("CreateDrawing() = %v", err)
	}
	if info.Kind != "TrendLine" || len(info.Points) != 2 || info.Style.LineStyle != "dashed" {
		t.Fatalf("info = %+v", info)
	}

	list, _ := f.svc.ListDrawings(ctx, f.chart.ID())
	if len(list) != 1 || list[0].ID != info.ID {
		t.Fatalf("ListDrawings() = %+v", list)
	}
	if ci, _ := f.svc.GetChart(ctx, f.chart.ID()); ci.Drawings != 1 {
		t.Fatalf("chart drawings = %d", ci.Drawings)
	}

	moved, err := f.svc.UpdateDrawing(ctx, f.chart.ID(), info.ID, []PointInput{{Time: 1700000000, Price: 11}, {Time: 1700007200, Price: 13}})
	if err != nil || moved.Points[1].Price != 13 {
		t.Fatalf("UpdateDrawing() = %+v, %v", moved, err)
	}
	if _, err := f.svc.UpdateDrawing(ctx, f.chart.ID(), info.ID, []PointInput{{Price: 1}}); codeOf(err) != bridge.CodeValidation {
		t.Fatalf("UpdateDrawing(1 point) = %v; want VALIDATION", err)
	}

	styled, err := f.svc.SetDrawingOptions(ctx, f.chart.ID(), info.ID, StyleInput{LineColor: "#fff", Width: 3, Text: "dropped"})
	if err != nil || styled.Style.LineColor != "#fff" || styled.Style.Text != "" {
		t.Fatalf("SetDrawingOptions() = %+v, %v", styled, err)
	}

	if err := f.svc.DeleteDrawing(ctx, f.chart.ID(), info.ID); err != nil {
		t.Fatalf("DeleteDrawing() = %v", err)
	}
	if err := f.svc.DeleteDrawing(ctx, f.chart.ID(), info.ID); codeOf(err) != bridge.CodeNotFound {
		t.Fatalf("second DeleteDrawing() = %v; want NOT_FOUND", err)
	}
	if last, _ := rec.Last(); last.Op != bridge.OpDrawingDetach {
		t.Fatalf("last op = %q", last.Op)
	}
}

func TestHorizontalLineUpdateUsesPrice(t *testing.T) {
	rec := bridgetest.New()
	f := newFixture(t, rec, rec, false)
	ctx := context.Background()

	info, err := f.svc.CreateDrawing(ctx, f.chart.ID(), DrawingRequest{Kind: "HorizontalLine", Points: []PointInput{{Price: 100}}, Interactive: true})
	if err != nil {
		t.Fatalf("CreateDrawing() = %v", err)
	}
	got, err := f.svc.UpdateDrawing(ctx, f.chart.ID(), info.ID, []PointInput{{Price: 105.5}})
	if err != nil || got.Points[0].Price != 105.5 {
		t.Fatalf("UpdateDrawing() = %+v, %v", got, err)
	}

	rec.Emit(info.ID + bridge.Delimiter + "99.25")
	after, _ := f.svc.GetDrawing(ctx, f.chart.ID(), info.ID)
	if after.Points[0].Price != 99.25 {
		t.Fatalf("price after view move = %v", after.Points[0].Price)
	}
}

func TestUnknownIDs(t *testing.T) {
	rec := bridgetest.New()
	f := newFixture(t, rec, rec, false)
	ctx := context.Background()

	if _, err := f.svc.GetChart(ctx, "chart_nope"); codeOf(err) != bridge.CodeNotFound {
		t.Fatalf("GetChart() = %v", err)
	}
	if _, err := f.svc.GetDrawing(ctx, f.chart.ID(), "drawing_nope"); codeOf(err) != bridge.CodeNotFound {
		t.Fatalf("GetDrawing() = %v", err)
	}
	if _, err := f.svc.CreateDrawing(ctx, f.chart.ID(), DrawingRequest{Kind: "Circle", Points: []PointInput{{}}}); codeOf(err) != bridge.CodeValidation {
		t.Fatalf("CreateDrawing(Circle) = %v", err)
	}
	if err := f.svc.LoadDrawings(ctx, f.chart.ID(), "x"); codeOf(err) != bridge.CodeNotFound {
		t.Fatalf("LoadDrawings() without toolbox = %v", err)
	}
}

func TestSwitcherTagsCheckpoints(t *testing.T) {
	rec := bridgetest.New()
	f := newFixture(t, rec, rec, true)
	ctx := context.Background()
	chartID := f.chart.ID()

	if err := f.svc.CreateSwitcher(ctx, chartID, "timeframe", []string{"1min", "5min", "30min"}, "5min"); err != nil {
		t.Fatalf("CreateSwitcher() = %v", err)
	}
	last, _ := rec.Last()
	if last.Op != bridge.OpTopbarSwitcher {
		t.Fatalf("op = %s", last.Op)
	}
	if err := f.svc.SetTextbox(ctx, chartID, "timeframe", "2min"); codeOf(err) != bridge.CodeValidation {
		t.Fatalf("SetTextbox(switcher, bad option) = %v", err)
	}
	if err := f.svc.SaveDrawingsUnder(ctx, chartID, "timeframe"); err != nil {
		t.Fatalf("SaveDrawingsUnder(switcher) = %v", err)
	}

	sw, _ := f.chart.TopBar().Widget("timeframe")
	rec.Emit(sw.(*chart.Switcher).HandlerID() + bridge.Delimiter + "30min")
	tb, _ := f.svc.Toolbox(chartID)
	rec.Emit(tb.HandlerID() + bridge.Delimiter + `[{"type":"Box"}]`)

	info, err := f.svc.GetToolbox(ctx, chartID)
	if err != nil || info.Tags["30min"] != 1 {
		t.Fatalf("GetToolbox() = %+v, %v", info, err)
	}
	ci, _ := f.svc.GetChart(ctx, chartID)
	if len(ci.Switcher) != 1 || ci.Switcher[0] != "timeframe" {
		t.Fatalf("switchers = %v", ci.Switcher)
	}
}

func TestToolboxOperations(t *testing.T) {
	rec := bridgetest.New()
	f := newFixture(t, rec, rec, true)
	ctx := context.Background()
	chartID := f.chart.ID()

	if err := f.svc.SetTextbox(ctx, chartID, "symbol", "TSLA"); err != nil {
		t.Fatalf("SetTextbox() = %v", err)
	}
	if err := f.svc.SaveDrawingsUnder(ctx, chartID, "symbol"); err != nil {
		t.Fatalf("SaveDrawingsUnder() = %v", err)
	}
	if err := f.svc.SaveDrawingsUnder(ctx, chartID, "missing"); codeOf(err) != bridge.CodeNotFound {
		t.Fatalf("SaveDrawingsUnder(missing) = %v", err)
	}

	tb, _ := f.svc.Toolbox(chartID)
	rec.Emit(tb.HandlerID() + bridge.Delimiter + `[{"type":"Box"},{"type":"TrendLine"}]`)

	info, err := f.svc.GetToolbox(ctx, chartID)
	if err != nil || info.Tags["TSLA"] != 2 {
		t.Fatalf("GetToolbox() = %+v, %v", info, err)
	}

	path := filepath.Join(t.TempDir(), "drawings.json")
	if err := f.svc.ExportDrawings(ctx, chartID, path); err != nil {
		t.Fatalf("ExportDrawings() = %v", err)
	}
	ok, err := f.svc.ImportDrawings(ctx, chartID, filepath.Join(t.TempDir(), "none.json"))
	if ok || err != nil {
		t.Fatalf("ImportDrawings(missing) = %v, %v", ok, err)
	}
	if ok, err := f.svc.ImportDrawings(ctx, chartID, path); !ok || err != nil {
		t.Fatalf("ImportDrawings() = %v, %v", ok, err)
	}

	if err := f.svc.SetMeasureLengthDisplay(ctx, chartID, "furlongs"); codeOf(err) != bridge.CodeValidation {
		t.Fatalf("SetMeasureLengthDisplay(bad) = %v", err)
	}
	id, err := f.svc.EnableMeasure(ctx, chartID)
	if err != nil || id == "" {
		t.Fatalf("EnableMeasure() = %q, %v", id, err)
	}
}

func TestLoadBarsFromCSV(t *testing.T) {
	rec := bridgetest.New()
	f := newFixture(t, rec, rec, false)
	path := filepath.Join(t.TempDir(), "bars.csv")
	body := "time,open,high,low,close,volume\n1700000000,1,2,0.5,1.5,10\n1700000060,1.5,2.5,1,2,11\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	n, err := f.svc.LoadBars(context.Background(), f.chart.ID(), path)
	if err != nil || n != 2 {
		t.Fatalf("LoadBars() = %d, %v", n, err)
	}
	if last, _ := rec.Last(); last.Op != bridge.OpChartSetData {
		t.Fatalf("last op = %q", last.Op)
	}
	if ci, _ := f.svc.GetChart(context.Background(), f.chart.ID()); ci.Bars != 2 {
		t.Fatalf("chart bars = %d", ci.Bars)
	}
}

func TestSnapshots(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))); err != nil {
		t.Fatal(err)
	}
	rec := bridgetest.New()
	f := newFixture(t, &shooter{Recorder: rec, img: buf.Bytes()}, rec, false)
	ctx := context.Background()

	if _, err := f.svc.TakeSnapshot(ctx, f.chart.ID(), "gif", 0, ""); codeOf(err) != bridge.CodeValidation {
		t.Fatalf("TakeSnapshot(gif) = %v", err)
	}
	meta, err := f.svc.TakeSnapshot(ctx, f.chart.ID(), "", 0, " first ")
	if err != nil {
		t.Fatalf("TakeSnapshot() = %v", err)
	}
	if meta.Format != "png" || meta.Width != 4 || meta.Notes != "first" || meta.ChartID != f.chart.ID() {
		t.Fatalf("meta = %+v", meta)
	}

	list, _ := f.svc.ListSnapshots(ctx, "")
	if len(list) != 1 {
		t.Fatalf("ListSnapshots() = %d", len(list))
	}
	data, format, err := f.svc.ReadSnapshotImage(ctx, meta.ID)
	if err != nil || format != "png" || !bytes.Equal(data, buf.Bytes()) {
		t.Fatalf("ReadSnapshotImage() = %d, %q, %v", len(data), format, err)
	}
	if err := f.svc.DeleteSnapshot(ctx, meta.ID); err != nil {
		t.Fatalf("DeleteSnapshot() = %v", err)
	}
	if _, err := f.svc.GetSnapshot(ctx, meta.ID); codeOf(err) != bridge.CodeNotFound {
		t.Fatalf("GetSnapshot() after delete = %v", err)
	}
	if _, err := f.svc.GetSnapshot(ctx, "not-a-uuid"); codeOf(err) != bridge.CodeValidation {
		t.Fatalf("GetSnapshot(bad id) = %v", err)
	}
}

func TestSnapshotWithoutScreenshotter(t *testing.T) {
	rec := bridgetest.New()
	f := newFixture(t, rec, rec, false)
	if _, err := f.svc.TakeSnapshot(context.Background(), "", "png", 0, ""); codeOf(err) != bridge.CodeViewUnavailable {
		t.Fatalf("TakeSnapshot() = %v; want VIEW_UNAVAILABLE", err)
	}
}
