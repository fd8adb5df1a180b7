package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/dgnsrekt/lwcharts/internal/chart"
	"github.com/dgnsrekt/lwcharts/internal/controller"
)

// barInput is a candle on the wire; time is UTC unix seconds.
type barInput struct {
	Time   int64   `json:"time" required:"true"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume,omitempty"`
}

func (b barInput) bar() chart.Bar {
	return chart.Bar{Time: time.Unix(b.Time, 0).UTC(), Open: b.Open, High: b.High, Low: b.Low, Close: b.Close, Volume: b.Volume}
}

func registerChartHandlers(api huma.API, svc Service) {
	type healthOutput struct {
		Body controller.HealthInfo
	}
	huma.Register(api, huma.Operation{OperationID: "health", Method: http.MethodGet, Path: "/health", Summary: "Health check", Tags: []string{"Health"}},
		func(ctx context.Context, input *struct{}) (*healthOutput, error) {
			info, err := svc.Health(ctx)
			if err != nil {
				return nil, mapErr(err)
			}
			return &healthOutput{Body: info}, nil
		})

	type chartsOutput struct {
		Body struct {
			Charts []controller.ChartInfo `json:"charts"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "list-charts", Method: http.MethodGet, Path: "/api/v1/charts", Summary: "List charts in the window", Tags: []string{"Charts"}},
		func(ctx context.Context, input *struct{}) (*chartsOutput, error) {
			charts, err := svc.ListCharts(ctx)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &chartsOutput{}
			out.Body.Charts = charts
			if out.Body.Charts == nil {
				out.Body.Charts = []controller.ChartInfo{}
			}
			return out, nil
		})

	type chartOutput struct {
		Body controller.ChartInfo
	}
	huma.Register(api, huma.Operation{OperationID: "get-chart", Method: http.MethodGet, Path: "/api/v1/chart/{chart_id}", Summary: "Get chart", Tags: []string{"Charts"}},
		func(ctx context.Context, input *chartIDInput) (*chartOutput, error) {
			info, err := svc.GetChart(ctx, input.ChartID)
			if err != nil {
				return nil, mapErr(err)
			}
			return &chartOutput{Body: info}, nil
		})

	type barsOutput struct {
		Body struct {
			ChartID string `json:"chart_id"`
			Bars    int    `json:"bars"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "set-bars", Method: http.MethodPut, Path: "/api/v1/chart/{chart_id}/bars", Summary: "Replace chart candles", Tags: []string{"Charts"}},
		func(ctx context.Context, input *struct {
			ChartID string `path:"chart_id"`
			Body    struct {
				Bars []barInput `json:"bars" required:"true"`
			}
		}) (*barsOutput, error) {
			bars := make([]chart.Bar, len(input.Body.Bars))
			for i, b := range input.Body.Bars {
				bars[i] = b.bar()
			}
			if err := svc.SetBars(ctx, input.ChartID, bars); err != nil {
				return nil, mapErr(err)
			}
			out := &barsOutput{}
			out.Body.ChartID = input.ChartID
			out.Body.Bars = len(bars)
			return out, nil
		})

	huma.Register(api, huma.Operation{OperationID: "load-bars", Method: http.MethodPost, Path: "/api/v1/chart/{chart_id}/bars/load", Summary: "Load candles from a CSV or XLSX file", Tags: []string{"Charts"}},
		func(ctx context.Context, input *struct {
			ChartID string `path:"chart_id"`
			Body    struct {
				Path string `json:"path" required:"true" doc:"Server-side path to a .csv or .xlsx file"`
			}
		}) (*barsOutput, error) {
			n, err := svc.LoadBars(ctx, input.ChartID, input.Body.Path)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &barsOutput{}
			out.Body.ChartID = input.ChartID
			out.Body.Bars = n
			return out, nil
		})

	huma.Register(api, huma.Operation{OperationID: "update-bar", Method: http.MethodPost, Path: "/api/v1/chart/{chart_id}/bars", Summary: "Append or replace the last candle", Tags: []string{"Charts"}},
		func(ctx context.Context, input *struct {
			ChartID string `path:"chart_id"`
			Body    barInput
		}) (*statusOutput, error) {
			if err := svc.UpdateBar(ctx, input.ChartID, input.Body.bar()); err != nil {
				return nil, mapErr(err)
			}
			return status(input.ChartID, "updated"), nil
		})

	huma.Register(api, huma.Operation{OperationID: "add-tick", Method: http.MethodPost, Path: "/api/v1/chart/{chart_id}/ticks", Summary: "Fold a trade into the current candle", Tags: []string{"Charts"}},
		func(ctx context.Context, input *struct {
			ChartID string `path:"chart_id"`
			Body    struct {
				Time   int64   `json:"time" required:"true" doc:"UTC unix seconds"`
				Price  float64 `json:"price" required:"true"`
				Volume float64 `json:"volume,omitempty"`
			}
		}) (*statusOutput, error) {
			tick := chart.Tick{Time: time.Unix(input.Body.Time, 0).UTC(), Price: input.Body.Price, Volume: input.Body.Volume}
			if err := svc.UpdateFromTick(ctx, input.ChartID, tick); err != nil {
				return nil, mapErr(err)
			}
			return status(input.ChartID, "updated"), nil
		})

	huma.Register(api, huma.Operation{OperationID: "set-textbox", Method: http.MethodPut, Path: "/api/v1/chart/{chart_id}/topbar/{name}", Summary: "Set a topbar textbox", Tags: []string{"Charts"}},
		func(ctx context.Context, input *struct {
			ChartID string `path:"chart_id"`
			Name    string `path:"name"`
			Body    struct {
				Value string `json:"value"`
			}
		}) (*statusOutput, error) {
			if err := svc.SetTextbox(ctx, input.ChartID, input.Name, input.Body.Value); err != nil {
				return nil, mapErr(err)
			}
			return status(input.ChartID, "set"), nil
		})

	huma.Register(api, huma.Operation{OperationID: "create-switcher", Method: http.MethodPut, Path: "/api/v1/chart/{chart_id}/topbar/{name}/switcher", Summary: "Add a topbar switcher", Tags: []string{"Charts"}},
		func(ctx context.Context, input *struct {
			ChartID string `path:"chart_id"`
			Name    string `path:"name"`
			Body    struct {
				Options []string `json:"options" minItems:"1"`
				Value   string   `json:"value,omitempty" doc:"Active option; defaults to the first"`
			}
		}) (*statusOutput, error) {
			if err := svc.CreateSwitcher(ctx, input.ChartID, input.Name, input.Body.Options, input.Body.Value); err != nil {
				return nil, mapErr(err)
			}
			return status(input.ChartID, "created"), nil
		})
}
