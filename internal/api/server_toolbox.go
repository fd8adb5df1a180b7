package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/dgnsrekt/lwcharts/internal/controller"
)

func registerToolboxHandlers(api huma.API, svc Service) {
	type toolboxOutput struct {
		Body controller.ToolboxInfo
	}
	huma.Register(api, huma.Operation{OperationID: "get-toolbox", Method: http.MethodGet, Path: "/api/v1/chart/{chart_id}/toolbox", Summary: "Get saved drawing sets", Tags: []string{"Toolbox"}},
		func(ctx context.Context, input *chartIDInput) (*toolboxOutput, error) {
			info, err := svc.GetToolbox(ctx, input.ChartID)
			if err != nil {
				return nil, mapErr(err)
			}
			return &toolboxOutput{Body: info}, nil
		})

	huma.Register(api, huma.Operation{OperationID: "save-drawings-under", Method: http.MethodPut, Path: "/api/v1/chart/{chart_id}/toolbox/save-under", Summary: "Key saved drawings by a topbar textbox", Tags: []string{"Toolbox"}},
		func(ctx context.Context, input *struct {
			ChartID string `path:"chart_id"`
			Body    struct {
				Textbox string `json:"textbox" required:"true"`
			}
		}) (*statusOutput, error) {
			if err := svc.SaveDrawingsUnder(ctx, input.ChartID, input.Body.Textbox); err != nil {
				return nil, mapErr(err)
			}
			return status(input.ChartID, "saving"), nil
		})

	huma.Register(api, huma.Operation{OperationID: "load-drawings", Method: http.MethodPost, Path: "/api/v1/chart/{chart_id}/toolbox/load", Summary: "Show the drawings saved under a tag", Description: "An unknown tag is a no-op.", Tags: []string{"Toolbox"}},
		func(ctx context.Context, input *struct {
			ChartID string `path:"chart_id"`
			Body    struct {
				Tag string `json:"tag" required:"true"`
			}
		}) (*statusOutput, error) {
			if err := svc.LoadDrawings(ctx, input.ChartID, input.Body.Tag); err != nil {
				return nil, mapErr(err)
			}
			return status(input.ChartID, "loaded"), nil
		})

	type pathBody struct {
		Path string `json:"path" required:"true" doc:"Server-side JSON file"`
	}
	type importOutput struct {
		Body struct {
			ChartID  string `json:"chart_id"`
			Imported bool   `json:"imported" doc:"False when the file does not exist"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "import-drawings", Method: http.MethodPost, Path: "/api/v1/chart/{chart_id}/toolbox/import", Summary: "Replace saved sets from a file", Tags: []string{"Toolbox"}},
		func(ctx context.Context, input *struct {
			ChartID string `path:"chart_id"`
			Body    pathBody
		}) (*importOutput, error) {
			ok, err := svc.ImportDrawings(ctx, input.ChartID, input.Body.Path)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &importOutput{}
			out.Body.ChartID = input.ChartID
			out.Body.Imported = ok
			return out, nil
		})

	huma.Register(api, huma.Operation{OperationID: "export-drawings", Method: http.MethodPost, Path: "/api/v1/chart/{chart_id}/toolbox/export", Summary: "Write saved sets to a file", Tags: []string{"Toolbox"}},
		func(ctx context.Context, input *struct {
			ChartID string `path:"chart_id"`
			Body    pathBody
		}) (*statusOutput, error) {
			if err := svc.ExportDrawings(ctx, input.ChartID, input.Body.Path); err != nil {
				return nil, mapErr(err)
			}
			return status(input.ChartID, "exported"), nil
		})

	huma.Register(api, huma.Operation{OperationID: "set-measure-length-display", Method: http.MethodPut, Path: "/api/v1/chart/{chart_id}/toolbox/measure/display", Summary: "Choose how measurements show length", Tags: []string{"Toolbox"}},
		func(ctx context.Context, input *struct {
			ChartID string `path:"chart_id"`
			Body    struct {
				Mode string `json:"mode" required:"true" enum:"time,bars,both"`
			}
		}) (*statusOutput, error) {
			if err := svc.SetMeasureLengthDisplay(ctx, input.ChartID, input.Body.Mode); err != nil {
				return nil, mapErr(err)
			}
			return status(input.ChartID, "set"), nil
		})

	type measureOutput struct {
		Body struct {
			ChartID   string `json:"chart_id"`
			HandlerID string `json:"handler_id" doc:"Subscribe with /api/v1/events?handlers=<handler_id>"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "enable-measure", Method: http.MethodPost, Path: "/api/v1/chart/{chart_id}/toolbox/measure", Summary: "Route measurements to the event stream", Tags: []string{"Toolbox"}},
		func(ctx context.Context, input *chartIDInput) (*measureOutput, error) {
			id, err := svc.EnableMeasure(ctx, input.ChartID)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &measureOutput{}
			out.Body.ChartID = input.ChartID
			out.Body.HandlerID = id
			return out, nil
		})
}
