package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dgnsrekt/lwcharts/internal/api"
	"github.com/dgnsrekt/lwcharts/internal/bridge"
	"github.com/dgnsrekt/lwcharts/internal/browser"
	"github.com/dgnsrekt/lwcharts/internal/cdpcontrol"
	"github.com/dgnsrekt/lwcharts/internal/chart"
	"github.com/dgnsrekt/lwcharts/internal/config"
	"github.com/dgnsrekt/lwcharts/internal/controller"
	"github.com/dgnsrekt/lwcharts/internal/netutil"
	"github.com/dgnsrekt/lwcharts/internal/relay"
	"github.com/dgnsrekt/lwcharts/internal/snapshot"
	"github.com/dgnsrekt/lwcharts/internal/storage"
	"github.com/dgnsrekt/lwcharts/internal/viewassets"
	"github.com/dgnsrekt/lwcharts/internal/webview"
)

type serveFlags struct {
	layout      string
	bars        string
	relayConfig string
}

func newServeCmd() *cobra.Command {
	var f serveFlags
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Open the chart window and serve the control API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), f)
		},
	}
	cmd.Flags().StringVar(&f.layout, "layout", "", "Chart layout YAML (default: one chart with a toolbox)")
	cmd.Flags().StringVar(&f.bars, "bars", "", "CSV or XLSX bars for the first chart")
	cmd.Flags().StringVar(&f.relayConfig, "relay-config", "", "Event feed YAML (default: built-in feeds)")
	return cmd
}

// swapHandler lets the listener come up before the API exists: the browser
// has to load /view/ before the bridge can be started.
type swapHandler struct {
	h atomic.Pointer[http.Handler]
}

func (s *swapHandler) set(h http.Handler) { s.h.Store(&h) }

func (s *swapHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	(*s.h.Load()).ServeHTTP(w, r)
}

// viewTransport is an opened view plus its teardown.
type viewTransport struct {
	bridge.Transport
	done  <-chan struct{}
	close func()
}

func runServe(ctx context.Context, f serveFlags) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logCloser, err := setupLogger(cfg.SlogLevel(), cfg.LogFile)
	if err != nil {
		return fmt.Errorf("logger setup: %w", err)
	}
	defer logCloser.Close()

	slog.Info("lwcharts config loaded",
		"bind_addr", cfg.BindAddr,
		"backend", cfg.Backend,
		"eval_timeout_ms", cfg.EvalTimeoutMS,
		"port_auto_fallback", cfg.PortAutoFallback,
		"headless", cfg.Headless,
		"log_level", cfg.LogLevel,
		"journal_dir", cfg.JournalDir,
		"snapshot_dir", cfg.SnapshotDir,
	)

	layout := config.DefaultLayout()
	if f.layout != "" {
		if layout, err = config.LoadLayout(f.layout); err != nil {
			return err
		}
	}
	relayCfg := relay.DefaultConfig()
	if f.relayConfig != "" {
		if relayCfg, err = relay.LoadConfig(f.relayConfig); err != nil {
			return err
		}
	}

	if err := netutil.RequireLoopback(cfg.BindAddr); err != nil {
		return err
	}
	bindAddr, err := netutil.SelectBindAddr(cfg.BindAddr, cfg.PortCandidates, cfg.PortAutoFallback)
	if err != nil {
		return fmt.Errorf("select bind address: %w", err)
	}

	view, err := viewassets.Handler(viewassets.Page{LibURL: cfg.LibURL, BundleURL: cfg.BundleURL})
	if err != nil {
		return fmt.Errorf("view assets: %w", err)
	}
	broker := relay.NewBroker()
	snapStore, err := snapshot.NewStore(cfg.SnapshotDir)
	if err != nil {
		return fmt.Errorf("snapshot store: %w", err)
	}

	// Until the bridge is up, only the page itself is served.
	pageOnly := http.NewServeMux()
	pageOnly.Handle("/view/", http.StripPrefix("/view", view))
	handler := &swapHandler{}
	handler.set(pageOnly)
	srv := &http.Server{Addr: bindAddr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
	serveErr := make(chan error, 1)
	go func() {
		slog.Info("lwcharts listening", "addr", bindAddr, "docs", "http://"+bindAddr+"/docs")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("lwcharts shutdown failed", "error", err)
		}
	}()

	viewURL := "http://" + bindAddr + "/view/"
	transport, err := openTransport(ctx, cfg, viewURL)
	if err != nil {
		return err
	}
	defer transport.close()

	if err := waitForView(ctx, transport.Transport, 30*time.Second); err != nil {
		return err
	}

	// Snapshots type-assert Screenshotter on the bridge's transport.
	b := bridge.New(transport.Transport)
	if err := b.Start(ctx); err != nil {
		return err
	}

	var journal relay.Journal
	if cfg.JournalDir != "" {
		w := storage.NewJSONLWriterForStream(cfg.JournalDir, "events", 0, 0, "bridge")
		defer w.Close()
		journal = w
	}
	rel := relay.NewRelay(relayCfg, broker, journal)
	rel.Start(b)
	defer rel.Stop()

	win := chart.NewWindow(b)
	svc := controller.NewService(win, snapStore)
	exports, err := buildLayout(ctx, win, svc, layout, f.bars)
	if err != nil {
		return err
	}
	defer exportDrawings(context.Background(), svc, exports)

	handler.set(api.NewServer(svc, api.Options{Broker: broker, View: view}))
	slog.Info("lwcharts ready", "charts", len(win.Charts()), "view_url", viewURL)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	select {
	case sig := <-sigCh:
		slog.Info("lwcharts stopping", "signal", sig.String())
	case <-transport.done:
		slog.Info("view closed; stopping")
	case err := <-serveErr:
		return fmt.Errorf("control API server: %w", err)
	case <-ctx.Done():
	}
	return nil
}

func openTransport(ctx context.Context, cfg *config.Config, viewURL string) (*viewTransport, error) {
	timeout := time.Duration(cfg.EvalTimeoutMS) * time.Millisecond
	switch cfg.Backend {
	case config.BackendRawCDP:
		profile := cfg.ProfileDir
		if profile == "" {
			profile = filepath.Join(os.TempDir(), "lwcharts-profile")
		}
		launcher := browser.NewLauncher(browser.Config{
			CDPAddress: cfg.CDPAddress,
			CDPPort:    cfg.CDPPort,
			AppURL:     viewURL,
			ProfileDir: profile,
			Headless:   cfg.Headless,
			WindowSize: cfg.WindowSize,
		})
		if err := launcher.Launch(ctx); err != nil {
			return nil, fmt.Errorf("launch browser: %w", err)
		}
		client := cdpcontrol.NewClient(cfg.CDPURL(), cfg.TabURLFilter, timeout)
		if err := client.Connect(ctx); err != nil {
			launcher.Stop()
			return nil, fmt.Errorf("connect CDP: %w", err)
		}
		return &viewTransport{Transport: client, done: launcher.Exited(), close: func() {
			if err := client.Close(); err != nil {
				slog.Debug("CDP client close failed", "error", err)
			}
			launcher.Stop()
		}}, nil
	default:
		width, height, err := cfg.WindowDims()
		if err != nil {
			return nil, err
		}
		v, err := webview.Open(ctx, webview.Options{
			URL:         viewURL,
			Headless:    cfg.Headless,
			ProfileDir:  cfg.ProfileDir,
			Width:       width,
			Height:      height,
			EvalTimeout: timeout,
		})
		if err != nil {
			return nil, err
		}
		return &viewTransport{Transport: v, done: v.Done(), close: func() { _ = v.Close() }}, nil
	}
}

// waitForView polls until the interpreter and the charting library have
// loaded.
func waitForView(ctx context.Context, t bridge.Transport, limit time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, limit)
	defer cancel()
	const probe = `String(!!(window.lwc && window.LightweightCharts))`
	for {
		out, err := t.Evaluate(ctx, probe)
		if err == nil && out == "true" {
			return nil
		}
		select {
		case <-ctx.Done():
			return bridge.NewError(bridge.CodeViewUnavailable, "view did not load", err)
		case <-time.After(200 * time.Millisecond):
		}
	}
}
