package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dgnsrekt/lwcharts/internal/bridge"
	"github.com/dgnsrekt/lwcharts/internal/chart"
	"github.com/dgnsrekt/lwcharts/internal/controller"
	"github.com/dgnsrekt/lwcharts/internal/relay"
	"github.com/dgnsrekt/lwcharts/internal/snapshot"
)

type Service interface {
	ListCharts(ctx context.Context) ([]controller.ChartInfo, error)
	GetChart(ctx context.Context, chartID string) (controller.ChartInfo, error)
	SetBars(ctx context.Context, chartID string, bars []chart.Bar) error
	LoadBars(ctx context.Context, chartID, path string) (int, error)
	UpdateBar(ctx context.Context, chartID string, bar chart.Bar) error
	UpdateFromTick(ctx context.Context, chartID string, tick chart.Tick) error
	SetTextbox(ctx context.Context, chartID, name, value string) error
	CreateSwitcher(ctx context.Context, chartID, name string, options []string, value string) error

	CreateDrawing(ctx context.Context, chartID string, req controller.DrawingRequest) (controller.DrawingInfo, error)
	ListDrawings(ctx context.Context, chartID string) ([]controller.DrawingInfo, error)
	GetDrawing(ctx context.Context, chartID, drawingID string) (controller.DrawingInfo, error)
	UpdateDrawing(ctx context.Context, chartID, drawingID string, points []controller.PointInput) (controller.DrawingInfo, error)
	SetDrawingOptions(ctx context.Context, chartID, drawingID string, in controller.StyleInput) (controller.DrawingInfo, error)
	DeleteDrawing(ctx context.Context, chartID, drawingID string) error

	GetToolbox(ctx context.Context, chartID string) (controller.ToolboxInfo, error)
	SaveDrawingsUnder(ctx context.Context, chartID, textbox string) error
	LoadDrawings(ctx context.Context, chartID, tag string) error
	ImportDrawings(ctx context.Context, chartID, path string) (bool, error)
	ExportDrawings(ctx context.Context, chartID, path string) error
	SetMeasureLengthDisplay(ctx context.Context, chartID, mode string) error
	EnableMeasure(ctx context.Context, chartID string) (string, error)

	TakeSnapshot(ctx context.Context, chartID, format string, quality int, notes string) (snapshot.SnapshotMeta, error)
	ListSnapshots(ctx context.Context, chartID string) ([]snapshot.SnapshotMeta, error)
	GetSnapshot(ctx context.Context, id string) (snapshot.SnapshotMeta, error)
	ReadSnapshotImage(ctx context.Context, id string) ([]byte, string, error)
	DeleteSnapshot(ctx context.Context, id string) error

	Health(ctx context.Context) (controller.HealthInfo, error)
}

// Options mounts the optional non-REST surfaces next to the API.
type Options struct {
	// Broker backs GET /api/v1/events. Nil disables the stream.
	Broker *relay.Broker
	// View serves the charting page under /view/.
	View http.Handler
}

type chartIDInput struct {
	ChartID string `path:"chart_id"`
}

type statusOutput struct {
	Body struct {
		ChartID string `json:"chart_id,omitempty"`
		Status  string `json:"status"`
	}
}

func status(chartID, s string) *statusOutput {
	out := &statusOutput{}
	out.Body.ChartID = chartID
	out.Body.Status = s
	return out
}

func NewServer(svc Service, opts Options) http.Handler {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(requestLogger)
	router.Use(middleware.Recoverer)

	cfg := huma.DefaultConfig("lwcharts Control API", "1.0.0")
	cfg.DocsPath = ""
	api := humachi.New(router, cfg)

	router.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		if _, err := w.Write([]byte(docsHTML)); err != nil {
			slog.Debug("docs response write failed", "error", err)
		}
	})
	router.Get("/docs/events", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		if _, err := w.Write([]byte(eventsDocsHTML)); err != nil {
			slog.Debug("events docs response write failed", "error", err)
		}
	})
	if opts.Broker != nil {
		router.Get("/api/v1/events", relay.SSEHandler(opts.Broker))
	}
	if opts.View != nil {
		router.Handle("/view/*", http.StripPrefix("/view", opts.View))
		router.Get("/view", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/view/", http.StatusMovedPermanently)
		})
	}

	registerChartHandlers(api, svc)
	registerDrawingHandlers(api, svc)
	registerToolboxHandlers(api, svc)
	registerSnapshotHandlers(api, svc)

	return router
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	var coded *bridge.CodedError
	if errors.As(err, &coded) {
		switch coded.Code {
		case bridge.CodeValidation:
			return huma.Error400BadRequest(coded.Message)
		case bridge.CodeNotFound:
			return huma.Error404NotFound(coded.Message)
		case bridge.CodeDrawingDeleted:
			return huma.Error409Conflict(coded.Message)
		case bridge.CodeEvalTimeout:
			return huma.Error504GatewayTimeout(coded.Message)
		case bridge.CodeViewUnavailable:
			return huma.Error502BadGateway(coded.Message)
		default:
			return huma.Error500InternalServerError(fmt.Sprintf("%s: %s", coded.Code, coded.Message))
		}
	}
	return huma.Error500InternalServerError(err.Error())
}
