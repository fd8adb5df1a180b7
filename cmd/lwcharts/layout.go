package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgnsrekt/lwcharts/internal/chart"
	"github.com/dgnsrekt/lwcharts/internal/config"
	"github.com/dgnsrekt/lwcharts/internal/controller"
	"github.com/dgnsrekt/lwcharts/internal/toolbox"
)

// exportTarget is a toolbox whose drawings are written back on shutdown.
type exportTarget struct {
	chartID string
	path    string
}

// buildLayout creates every chart in l. barsOverride, when set, replaces the
// first chart's bars file.
func buildLayout(ctx context.Context, win *chart.Window, svc *controller.Service, l *config.Layout, barsOverride string) ([]exportTarget, error) {
	var exports []exportTarget
	for i, entry := range l.Charts {
		opts := []chart.Option{chart.WithSize(entry.Width, entry.Height), chart.WithToolbox(entry.Toolbox != nil)}
		if entry.Location != "" {
			loc, err := time.LoadLocation(entry.Location)
			if err != nil {
				return nil, fmt.Errorf("chart %s: location: %w", entry.Name, err)
			}
			opts = append(opts, chart.WithLocation(loc))
		}
		c, err := win.NewChart(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("chart %s: %w", entry.Name, err)
		}
		slog.Info("chart created", "name", entry.Name, "chart_id", c.ID())

		for _, tb := range entry.Topbar {
			var err error
			if len(tb.Options) > 0 {
				_, err = c.TopBar().Switcher(ctx, tb.Name, tb.Options, tb.Value)
			} else {
				_, err = c.TopBar().Textbox(ctx, tb.Name, tb.Value)
			}
			if err != nil {
				return nil, fmt.Errorf("chart %s: topbar %s: %w", entry.Name, tb.Name, err)
			}
		}
		if entry.Watermark != "" {
			if err := c.Watermark(ctx, entry.Watermark, "rgba(180, 180, 240, 0.7)"); err != nil {
				return nil, err
			}
		}
		if entry.Legend {
			if err := c.Legend(ctx, true); err != nil {
				return nil, err
			}
		}

		bars := entry.Bars
		if i == 0 && barsOverride != "" {
			bars = barsOverride
		}
		if bars != "" {
			if _, err := svc.LoadBars(ctx, c.ID(), bars); err != nil {
				return nil, fmt.Errorf("chart %s: %w", entry.Name, err)
			}
		}

		if entry.Toolbox != nil {
			tb, err := toolbox.New(ctx, c)
			if err != nil {
				return nil, fmt.Errorf("chart %s: toolbox: %w", entry.Name, err)
			}
			svc.AddToolbox(tb)
			if entry.Toolbox.SaveUnder != "" {
				if err := svc.SaveDrawingsUnder(ctx, c.ID(), entry.Toolbox.SaveUnder); err != nil {
					return nil, err
				}
			}
			if path := entry.Toolbox.DrawingsFile; path != "" {
				if _, err := svc.ImportDrawings(ctx, c.ID(), path); err != nil {
					return nil, err
				}
				exports = append(exports, exportTarget{chartID: c.ID(), path: path})
			}
		}

		for _, sub := range entry.Subcharts {
			sc, err := c.Subchart(ctx, sub.Position, sub.Width, sub.Height, sub.Sync)
			if err != nil {
				return nil, fmt.Errorf("subchart %s: %w", sub.Name, err)
			}
			slog.Info("subchart created", "name", sub.Name, "chart_id", sc.ID(), "parent", c.ID())
			if sub.Bars != "" {
				if _, err := svc.LoadBars(ctx, sc.ID(), sub.Bars); err != nil {
					return nil, fmt.Errorf("subchart %s: %w", sub.Name, err)
				}
			}
		}
	}
	return exports, nil
}

// exportDrawings writes every imported drawings file back out.
func exportDrawings(ctx context.Context, svc *controller.Service, targets []exportTarget) {
	for _, t := range targets {
		if err := svc.ExportDrawings(ctx, t.chartID, t.path); err != nil {
			slog.Error("drawings export failed", "chart_id", t.chartID, "path", t.path, "error", err)
		}
	}
}
