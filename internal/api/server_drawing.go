package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/dgnsrekt/lwcharts/internal/controller"
)

func registerDrawingHandlers(api huma.API, svc Service) {
	type drawingListOutput struct {
		Body struct {
			ChartID  string                   `json:"chart_id"`
			Drawings []controller.DrawingInfo `json:"drawings"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "list-drawings", Method: http.MethodGet, Path: "/api/v1/chart/{chart_id}/drawings", Summary: "List drawings created through the API", Tags: []string{"Drawings"}},
		func(ctx context.Context, input *chartIDInput) (*drawingListOutput, error) {
			list, err := svc.ListDrawings(ctx, input.ChartID)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &drawingListOutput{}
			out.Body.ChartID = input.ChartID
			out.Body.Drawings = list
			if out.Body.Drawings == nil {
				out.Body.Drawings = []controller.DrawingInfo{}
			}
			return out, nil
		})

	type drawingIDInput struct {
		ChartID   string `path:"chart_id"`
		DrawingID string `path:"drawing_id"`
	}
	type drawingOutput struct {
		Body controller.DrawingInfo
	}
	huma.Register(api, huma.Operation{OperationID: "create-drawing", Method: http.MethodPost, Path: "/api/v1/chart/{chart_id}/drawings", Summary: "Create a drawing", Tags: []string{"Drawings"}},
		func(ctx context.Context, input *struct {
			ChartID string `path:"chart_id"`
			Body    controller.DrawingRequest
		}) (*drawingOutput, error) {
			info, err := svc.CreateDrawing(ctx, input.ChartID, input.Body)
			if err != nil {
				return nil, mapErr(err)
			}
			return &drawingOutput{Body: info}, nil
		})

	huma.Register(api, huma.Operation{OperationID: "get-drawing", Method: http.MethodGet, Path: "/api/v1/chart/{chart_id}/drawings/{drawing_id}", Summary: "Get drawing by ID", Tags: []string{"Drawings"}},
		func(ctx context.Context, input *drawingIDInput) (*drawingOutput, error) {
			info, err := svc.GetDrawing(ctx, input.ChartID, input.DrawingID)
			if err != nil {
				return nil, mapErr(err)
			}
			return &drawingOutput{Body: info}, nil
		})

	huma.Register(api, huma.Operation{OperationID: "update-drawing", Method: http.MethodPut, Path: "/api/v1/chart/{chart_id}/drawings/{drawing_id}/points", Summary: "Move a drawing", Description: "Horizontal lines take one price, vertical lines one time; the other kinds take their full point list.", Tags: []string{"Drawings"}},
		func(ctx context.Context, input *struct {
			ChartID   string `path:"chart_id"`
			DrawingID string `path:"drawing_id"`
			Body      struct {
				Points []controller.PointInput `json:"points" required:"true" minItems:"1" maxItems:"2"`
			}
		}) (*drawingOutput, error) {
			info, err := svc.UpdateDrawing(ctx, input.ChartID, input.DrawingID, input.Body.Points)
			if err != nil {
				return nil, mapErr(err)
			}
			return &drawingOutput{Body: info}, nil
		})

	huma.Register(api, huma.Operation{OperationID: "set-drawing-options", Method: http.MethodPatch, Path: "/api/v1/chart/{chart_id}/drawings/{drawing_id}/options", Summary: "Restyle a drawing", Tags: []string{"Drawings"}},
		func(ctx context.Context, input *struct {
			ChartID   string `path:"chart_id"`
			DrawingID string `path:"drawing_id"`
			Body      controller.StyleInput
		}) (*drawingOutput, error) {
			info, err := svc.SetDrawingOptions(ctx, input.ChartID, input.DrawingID, input.Body)
			if err != nil {
				return nil, mapErr(err)
			}
			return &drawingOutput{Body: info}, nil
		})

	huma.Register(api, huma.Operation{OperationID: "delete-drawing", Method: http.MethodDelete, Path: "/api/v1/chart/{chart_id}/drawings/{drawing_id}", Summary: "Remove a drawing from the view", Tags: []string{"Drawings"}},
		func(ctx context.Context, input *drawingIDInput) (*statusOutput, error) {
			if err := svc.DeleteDrawing(ctx, input.ChartID, input.DrawingID); err != nil {
				return nil, mapErr(err)
			}
			return status(input.ChartID, "deleted"), nil
		})
}
