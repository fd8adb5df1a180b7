// Package controller keeps the per-process registry of charts, drawings and
// toolboxes and exposes the operations the control API scripts.
package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/dgnsrekt/lwcharts/internal/bridge"
	"github.com/dgnsrekt/lwcharts/internal/chart"
	"github.com/dgnsrekt/lwcharts/internal/dataset"
	"github.com/dgnsrekt/lwcharts/internal/drawing"
	"github.com/dgnsrekt/lwcharts/internal/snapshot"
	"github.com/dgnsrekt/lwcharts/internal/toolbox"
)

// Service wraps the window and the objects created through it.
type Service struct {
	win   *chart.Window
	snaps *snapshot.Store

	mu        sync.RWMutex
	toolboxes map[string]*toolbox.ToolBox
	drawings  map[string]*drawing.Drawing
	bars      map[string]int
}

func NewService(win *chart.Window, snaps *snapshot.Store) *Service {
	return &Service{
		win:       win,
		snaps:     snaps,
		toolboxes: make(map[string]*toolbox.ToolBox),
		drawings:  make(map[string]*drawing.Drawing),
		bars:      make(map[string]int),
	}
}

func (s *Service) requireNonEmpty(value, fieldName string) error {
	if strings.TrimSpace(value) == "" {
		return bridge.NewError(bridge.CodeValidation, fieldName+" is required", nil)
	}
	return nil
}

// AddToolbox registers a toolbox created at startup.
func (s *Service) AddToolbox(tb *toolbox.ToolBox) {
	s.mu.Lock()
	s.toolboxes[tb.Chart().ID()] = tb
	s.mu.Unlock()
}

// Toolbox returns the toolbox of a chart.
func (s *Service) Toolbox(chartID string) (*toolbox.ToolBox, error) {
	if _, err := s.chart(chartID); err != nil {
		return nil, err
	}
	s.mu.RLock()
	tb, ok := s.toolboxes[strings.TrimSpace(chartID)]
	s.mu.RUnlock()
	if !ok {
		return nil, bridge.NewError(bridge.CodeNotFound, "chart has no toolbox: "+chartID, nil)
	}
	return tb, nil
}

func (s *Service) chart(chartID string) (*chart.Chart, error) {
	if err := s.requireNonEmpty(chartID, "chart_id"); err != nil {
		return nil, err
	}
	c, ok := s.win.Chart(strings.TrimSpace(chartID))
	if !ok {
		return nil, bridge.NewError(bridge.CodeNotFound, "chart not found: "+chartID, nil)
	}
	return c, nil
}

// --- Charts ---

func (s *Service) ListCharts(ctx context.Context) ([]ChartInfo, error) {
	charts := s.win.Charts()
	out := make([]ChartInfo, 0, len(charts))
	for _, c := range charts {
		out = append(out, s.chartInfo(c))
	}
	return out, nil
}

func (s *Service) GetChart(ctx context.Context, chartID string) (ChartInfo, error) {
	c, err := s.chart(chartID)
	if err != nil {
		return ChartInfo{}, err
	}
	return s.chartInfo(c), nil
}

func (s *Service) chartInfo(c *chart.Chart) ChartInfo {
	opts := c.Options()
	info := ChartInfo{
		ID:       c.ID(),
		Position: opts.Position,
		Width:    opts.Width,
		Height:   opts.Height,
		Series:   []string{},
		Textbox:  c.TopBar().Names(),
		Switcher: c.TopBar().SwitcherNames(),
	}
	if p := c.Parent(); p != nil {
		info.Parent = p.ID()
	}
	for _, sr := range c.Series() {
		info.Series = append(info.Series, sr.Name())
	}
	s.mu.RLock()
	_, info.Toolbox = s.toolboxes[c.ID()]
	info.Bars = s.bars[c.ID()]
	for _, d := range s.drawings {
		if d.Chart() == c {
			info.Drawings++
		}
	}
	s.mu.RUnlock()
	return info
}

// SetBars replaces a chart's candles.
func (s *Service) SetBars(ctx context.Context, chartID string, bars []chart.Bar) error {
	c, err := s.chart(chartID)
	if err != nil {
		return err
	}
	if err := c.SetBars(ctx, bars); err != nil {
		return err
	}
	s.mu.Lock()
	s.bars[c.ID()] = len(bars)
	s.mu.Unlock()
	return nil
}

// LoadBars reads a CSV or XLSX dataset and sends it to the chart.
func (s *Service) LoadBars(ctx context.Context, chartID, path string) (int, error) {
	if err := s.requireNonEmpty(path, "path"); err != nil {
		return 0, err
	}
	bars, err := dataset.Load(strings.TrimSpace(path))
	if err != nil {
		return 0, bridge.NewError(bridge.CodeValidation, fmt.Sprintf("load bars: %v", err), err)
	}
	if err := s.SetBars(ctx, chartID, bars); err != nil {
		return 0, err
	}
	slog.Info("bars loaded", "chart_id", chartID, "path", path, "bars", len(bars))
	return len(bars), nil
}

// UpdateBar streams a single candle into a chart.
func (s *Service) UpdateBar(ctx context.Context, chartID string, bar chart.Bar) error {
	c, err := s.chart(chartID)
	if err != nil {
		return err
	}
	return c.UpdateBar(ctx, bar)
}

// UpdateFromTick folds a trade into a chart's current candle.
func (s *Service) UpdateFromTick(ctx context.Context, chartID string, tick chart.Tick) error {
	c, err := s.chart(chartID)
	if err != nil {
		return err
	}
	return c.UpdateFromTick(ctx, tick)
}

// SetTextbox sets a topbar widget value. Unknown names create a textbox;
// switchers only accept one of their options.
func (s *Service) SetTextbox(ctx context.Context, chartID, name, value string) error {
	if err := s.requireNonEmpty(name, "name"); err != nil {
		return err
	}
	c, err := s.chart(chartID)
	if err != nil {
		return err
	}
	if w, ok := c.TopBar().Widget(name); ok {
		return w.SetValue(ctx, value)
	}
	_, err = c.TopBar().Textbox(ctx, name, value)
	return err
}

// CreateSwitcher adds a topbar button group, e.g. a timeframe selector.
func (s *Service) CreateSwitcher(ctx context.Context, chartID, name string, options []string, value string) error {
	if err := s.requireNonEmpty(name, "name"); err != nil {
		return err
	}
	c, err := s.chart(chartID)
	if err != nil {
		return err
	}
	_, err = c.TopBar().Switcher(ctx, name, options, value)
	return err
}

// --- Drawings ---

func (s *Service) CreateDrawing(ctx context.Context, chartID string, req DrawingRequest) (DrawingInfo, error) {
	c, err := s.chart(chartID)
	if err != nil {
		return DrawingInfo{}, err
	}
	kind, err := drawing.ParseKind(req.Kind)
	if err != nil {
		return DrawingInfo{}, err
	}
	style, err := req.Style.style()
	if err != nil {
		return DrawingInfo{}, err
	}
	points := make([]drawing.Point, len(req.Points))
	for i, p := range req.Points {
		points[i] = p.point()
	}

	opts := []drawing.Option{drawing.WithRound(req.Round)}
	if req.AxisLabel != nil {
		opts = append(opts, drawing.WithAxisLabel(*req.AxisLabel))
	}
	if req.Interactive {
		opts = append(opts, drawing.WithCallback(func(d *drawing.Drawing) {
			slog.Debug("drawing moved in view", "drawing_id", d.ID(), "points", len(d.Points()))
		}))
	}

	d, err := drawing.New(ctx, c, drawing.Spec{Kind: kind, Points: points, Style: style}, opts...)
	if err != nil {
		return DrawingInfo{}, err
	}
	s.mu.Lock()
	s.drawings[d.ID()] = d
	s.mu.Unlock()
	slog.Info("drawing created", "chart_id", c.ID(), "drawing_id", d.ID(), "kind", kind)
	return drawingInfo(d), nil
}

func (s *Service) drawing(chartID, drawingID string) (*drawing.Drawing, error) {
	c, err := s.chart(chartID)
	if err != nil {
		return nil, err
	}
	if err := s.requireNonEmpty(drawingID, "drawing_id"); err != nil {
		return nil, err
	}
	s.mu.RLock()
	d, ok := s.drawings[strings.TrimSpace(drawingID)]
	s.mu.RUnlock()
	if !ok || d.Chart() != c {
		return nil, bridge.NewError(bridge.CodeNotFound, "drawing not found: "+drawingID, nil)
	}
	return d, nil
}

func (s *Service) ListDrawings(ctx context.Context, chartID string) ([]DrawingInfo, error) {
	c, err := s.chart(chartID)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	out := make([]DrawingInfo, 0, len(s.drawings))
	for _, d := range s.drawings {
		if d.Chart() == c {
			out = append(out, drawingInfo(d))
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Service) GetDrawing(ctx context.Context, chartID, drawingID string) (DrawingInfo, error) {
	d, err := s.drawing(chartID, drawingID)
	if err != nil {
		return DrawingInfo{}, err
	}
	return drawingInfo(d), nil
}

// UpdateDrawing moves a drawing to new anchor points.
func (s *Service) UpdateDrawing(ctx context.Context, chartID, drawingID string, points []PointInput) (DrawingInfo, error) {
	d, err := s.drawing(chartID, drawingID)
	if err != nil {
		return DrawingInfo{}, err
	}
	var updateErr error
	switch d.Kind() {
	case drawing.KindHorizontalLine:
		if len(points) != 1 {
			return DrawingInfo{}, bridge.NewError(bridge.CodeValidation, "horizontal line takes one point", nil)
		}
		updateErr = d.UpdatePrice(ctx, points[0].Price)
	case drawing.KindVerticalLine:
		if len(points) != 1 {
			return DrawingInfo{}, bridge.NewError(bridge.CodeValidation, "vertical line takes one point", nil)
		}
		updateErr = d.UpdateTime(ctx, points[0].point().Time)
	default:
		pts := make([]drawing.Point, len(points))
		for i, p := range points {
			pts[i] = p.point()
		}
		updateErr = d.Update(ctx, pts...)
	}
	if updateErr != nil {
		return DrawingInfo{}, updateErr
	}
	return drawingInfo(d), nil
}

func (s *Service) SetDrawingOptions(ctx context.Context, chartID, drawingID string, in StyleInput) (DrawingInfo, error) {
	d, err := s.drawing(chartID, drawingID)
	if err != nil {
		return DrawingInfo{}, err
	}
	style, err := in.style()
	if err != nil {
		return DrawingInfo{}, err
	}
	if err := d.Options(ctx, style); err != nil {
		return DrawingInfo{}, err
	}
	return drawingInfo(d), nil
}

// DeleteDrawing detaches the drawing and forgets it. A second delete of the
// same id reports NOT_FOUND.
func (s *Service) DeleteDrawing(ctx context.Context, chartID, drawingID string) error {
	d, err := s.drawing(chartID, drawingID)
	if err != nil {
		return err
	}
	if err := d.Delete(ctx); err != nil && !errors.Is(err, drawing.ErrDeleted) {
		return err
	}
	s.mu.Lock()
	delete(s.drawings, d.ID())
	s.mu.Unlock()
	slog.Info("drawing deleted", "chart_id", chartID, "drawing_id", d.ID())
	return nil
}

// --- Toolbox ---

func (s *Service) GetToolbox(ctx context.Context, chartID string) (ToolboxInfo, error) {
	tb, err := s.Toolbox(chartID)
	if err != nil {
		return ToolboxInfo{}, err
	}
	info := ToolboxInfo{ChartID: tb.Chart().ID(), HandlerID: tb.HandlerID(), Tags: map[string]int{}, Measures: tb.MeasureHandlers()}
	for tag, recs := range tb.Snapshot() {
		info.Tags[tag] = len(recs)
	}
	return info, nil
}

// SaveDrawingsUnder keys future checkpoints by the named topbar widget.
func (s *Service) SaveDrawingsUnder(ctx context.Context, chartID, textbox string) error {
	tb, err := s.Toolbox(chartID)
	if err != nil {
		return err
	}
	if err := s.requireNonEmpty(textbox, "textbox"); err != nil {
		return err
	}
	w, ok := tb.Chart().TopBar().Widget(strings.TrimSpace(textbox))
	if !ok {
		return bridge.NewError(bridge.CodeNotFound, "topbar widget not found: "+textbox, nil)
	}
	tb.SaveDrawingsUnder(w)
	return nil
}

func (s *Service) LoadDrawings(ctx context.Context, chartID, tag string) error {
	tb, err := s.Toolbox(chartID)
	if err != nil {
		return err
	}
	return tb.LoadDrawings(ctx, tag)
}

// ImportDrawings replaces the chart's saved sets from a file. A missing file
// leaves them untouched and reports false.
func (s *Service) ImportDrawings(ctx context.Context, chartID, path string) (bool, error) {
	tb, err := s.Toolbox(chartID)
	if err != nil {
		return false, err
	}
	if err := s.requireNonEmpty(path, "path"); err != nil {
		return false, err
	}
	ok, err := tb.ImportDrawings(strings.TrimSpace(path))
	if err != nil {
		return false, bridge.NewError(bridge.CodeValidation, fmt.Sprintf("import drawings: %v", err), err)
	}
	return ok, nil
}

func (s *Service) ExportDrawings(ctx context.Context, chartID, path string) error {
	tb, err := s.Toolbox(chartID)
	if err != nil {
		return err
	}
	if err := s.requireNonEmpty(path, "path"); err != nil {
		return err
	}
	return tb.ExportDrawings(strings.TrimSpace(path))
}

func (s *Service) SetMeasureLengthDisplay(ctx context.Context, chartID, mode string) error {
	tb, err := s.Toolbox(chartID)
	if err != nil {
		return err
	}
	return tb.SetMeasureLengthDisplay(ctx, mode)
}

// EnableMeasure routes measurement events to the event stream. The view keeps
// only the most recent route.
func (s *Service) EnableMeasure(ctx context.Context, chartID string) (string, error) {
	tb, err := s.Toolbox(chartID)
	if err != nil {
		return "", err
	}
	return tb.Measure(ctx, func(ev toolbox.MeasureEvent) {
		if ev.Malformed {
			slog.Warn("malformed measure event", "chart_id", chartID, "payload", ev.Type)
			return
		}
		slog.Debug("measure event", "chart_id", chartID, "type", ev.Type)
	})
}

// --- Snapshots ---

// TakeSnapshot captures the view and stores it under a new id.
func (s *Service) TakeSnapshot(ctx context.Context, chartID, format string, quality int, notes string) (snapshot.SnapshotMeta, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = "png"
	}
	if format != "png" && format != "jpeg" {
		return snapshot.SnapshotMeta{}, bridge.NewError(bridge.CodeValidation, "format must be \"png\" or \"jpeg\"", nil)
	}
	if quality < 0 || quality > 100 {
		return snapshot.SnapshotMeta{}, bridge.NewError(bridge.CodeValidation, "quality must be within 0..100", nil)
	}
	var info ChartInfo
	if strings.TrimSpace(chartID) != "" {
		c, err := s.chart(chartID)
		if err != nil {
			return snapshot.SnapshotMeta{}, err
		}
		info = s.chartInfo(c)
	}
	if s.snaps == nil {
		return snapshot.SnapshotMeta{}, bridge.NewError(bridge.CodeViewUnavailable, "snapshot store not configured", nil)
	}
	shooter, ok := s.win.Bridge().Transport().(bridge.Screenshotter)
	if !ok {
		return snapshot.SnapshotMeta{}, bridge.NewError(bridge.CodeViewUnavailable, "transport cannot capture screenshots", nil)
	}

	img, err := shooter.Screenshot(ctx, format, quality)
	if err != nil {
		return snapshot.SnapshotMeta{}, err
	}

	meta := snapshot.NewMeta(info.ID, format, img)
	meta.Bars = info.Bars
	meta.Drawings = info.Drawings
	meta.Notes = strings.TrimSpace(notes)
	if err := s.snaps.Save(meta, img); err != nil {
		return snapshot.SnapshotMeta{}, bridge.NewError(bridge.CodeEvalFailure, fmt.Sprintf("save snapshot: %v", err), err)
	}
	slog.Info("snapshot taken", "id", meta.ID, "chart_id", meta.ChartID, "size_bytes", meta.SizeBytes)
	return meta, nil
}

func (s *Service) ListSnapshots(ctx context.Context, chartID string) ([]snapshot.SnapshotMeta, error) {
	if s.snaps == nil {
		return nil, nil
	}
	return s.snaps.List(strings.TrimSpace(chartID))
}

func (s *Service) GetSnapshot(ctx context.Context, id string) (snapshot.SnapshotMeta, error) {
	if err := s.requireNonEmpty(id, "snapshot_id"); err != nil {
		return snapshot.SnapshotMeta{}, err
	}
	if s.snaps == nil {
		return snapshot.SnapshotMeta{}, bridge.NewError(bridge.CodeNotFound, "snapshot not found: "+id, nil)
	}
	meta, err := s.snaps.Get(strings.TrimSpace(id))
	if err != nil {
		return snapshot.SnapshotMeta{}, snapshotErr(err)
	}
	return meta, nil
}

func (s *Service) ReadSnapshotImage(ctx context.Context, id string) ([]byte, string, error) {
	if err := s.requireNonEmpty(id, "snapshot_id"); err != nil {
		return nil, "", err
	}
	if s.snaps == nil {
		return nil, "", bridge.NewError(bridge.CodeNotFound, "snapshot not found: "+id, nil)
	}
	data, format, err := s.snaps.ReadImage(strings.TrimSpace(id))
	if err != nil {
		return nil, "", snapshotErr(err)
	}
	return data, format, nil
}

func (s *Service) DeleteSnapshot(ctx context.Context, id string) error {
	if err := s.requireNonEmpty(id, "snapshot_id"); err != nil {
		return err
	}
	if s.snaps == nil {
		return bridge.NewError(bridge.CodeNotFound, "snapshot not found: "+id, nil)
	}
	if err := s.snaps.Delete(strings.TrimSpace(id)); err != nil {
		return snapshotErr(err)
	}
	return nil
}

func snapshotErr(err error) error {
	if errors.Is(err, snapshot.ErrNotFound) {
		return bridge.NewError(bridge.CodeNotFound, err.Error(), err)
	}
	if errors.Is(err, snapshot.ErrInvalidID) {
		return bridge.NewError(bridge.CodeValidation, err.Error(), err)
	}
	return bridge.NewError(bridge.CodeEvalFailure, err.Error(), err)
}

// --- Health ---

func (s *Service) Health(ctx context.Context) (HealthInfo, error) {
	s.mu.RLock()
	n := len(s.drawings)
	s.mu.RUnlock()
	return HealthInfo{
		Status:   "ok",
		Charts:   len(s.win.Charts()),
		Drawings: n,
		Handlers: s.win.Bridge().Registry().IDs(),
	}, nil
}
