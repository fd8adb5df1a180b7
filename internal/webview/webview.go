// Package webview runs the view in a browser window owned by chromedp and
// exposes it as a bridge.Transport.
package webview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/dgnsrekt/lwcharts/internal/bridge"
)

const eventQueueSize = 256

// Options configures the browser window.
type Options struct {
	URL         string
	Headless    bool
	ProfileDir  string
	Width       int
	Height      int
	EvalTimeout time.Duration
	// RemoteURL attaches to an existing browser's devtools websocket
	// instead of starting one.
	RemoteURL string
}

// View is one browser tab showing the charting page.
type View struct {
	opts        Options
	allocCancel context.CancelFunc
	tabCtx      context.Context
	tabCancel   context.CancelFunc

	evalMu sync.Mutex

	bindMu      sync.Mutex
	bindingName string
	sink        func(string)
	events      chan string
}

// allocatorOptions launches Chromium in app mode: no tabs, no omnibox.
func allocatorOptions(o Options) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.Flag("headless", o.Headless),
		chromedp.Flag("app", o.URL),
		chromedp.Flag("hide-scrollbars", o.Headless),
		chromedp.WindowSize(o.Width, o.Height),
	)
	if o.ProfileDir != "" {
		opts = append(opts, chromedp.UserDataDir(o.ProfileDir))
	}
	return opts
}

// Open starts (or attaches to) the browser and navigates to opts.URL.
func Open(ctx context.Context, opts Options) (*View, error) {
	if opts.URL == "" {
		return nil, bridge.NewError(bridge.CodeValidation, "view URL is required", nil)
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		opts.Width, opts.Height = 1280, 800
	}
	if opts.EvalTimeout <= 0 {
		opts.EvalTimeout = 10 * time.Second
	}

	var allocCtx context.Context
	var allocCancel context.CancelFunc
	if opts.RemoteURL != "" {
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(context.Background(), opts.RemoteURL)
	} else {
		allocCtx, allocCancel = chromedp.NewExecAllocator(context.Background(), allocatorOptions(opts)...)
	}
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	v := &View{opts: opts, allocCancel: allocCancel, tabCtx: tabCtx, tabCancel: tabCancel, events: make(chan string, eventQueueSize)}
	chromedp.ListenTarget(tabCtx, v.onEvent)
	go v.pump()

	// Abandoning startup tears the browser down.
	stop := context.AfterFunc(ctx, tabCancel)
	defer stop()

	if err := chromedp.Run(tabCtx, runtime.Enable(), chromedp.Navigate(opts.URL)); err != nil {
		v.Close()
		return nil, bridge.NewError(bridge.CodeViewUnavailable, "open view failed", err)
	}
	slog.Info("webview opened", "url", opts.URL, "headless", opts.Headless, "remote", opts.RemoteURL != "")
	return v, nil
}

// Close shuts down the tab and, when launched here, the browser.
func (v *View) Close() error {
	v.tabCancel()
	v.allocCancel()
	slog.Info("webview closed")
	return nil
}

// Done is closed when the browser goes away, e.g. the user closed the
// window.
func (v *View) Done() <-chan struct{} { return v.tabCtx.Done() }

// run executes actions on the tab, bounded by both ctx and the eval timeout.
func (v *View) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(v.tabCtx, v.opts.EvalTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	err := chromedp.Run(runCtx, actions...)
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return bridge.NewError(bridge.CodeEvalTimeout, "evaluation timed out", err)
	}
	if v.tabCtx.Err() != nil {
		return bridge.NewError(bridge.CodeViewUnavailable, "view closed", err)
	}
	return bridge.NewError(bridge.CodeEvalFailure, "evaluation failed", err)
}

// Evaluate implements bridge.Transport.
func (v *View) Evaluate(ctx context.Context, script string) (string, error) {
	v.evalMu.Lock()
	defer v.evalMu.Unlock()

	var out string
	err := v.run(ctx, chromedp.Evaluate(script, &out, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
		return p.WithAwaitPromise(true)
	}))
	if err != nil {
		slog.Warn("webview eval failed", "error", err)
		return "", err
	}
	return out, nil
}

// Bind implements bridge.Transport.
func (v *View) Bind(ctx context.Context, name string, sink func(string)) error {
	v.bindMu.Lock()
	v.bindingName = name
	v.sink = sink
	v.bindMu.Unlock()
	if err := v.run(ctx, runtime.AddBinding(name)); err != nil {
		return fmt.Errorf("webview: add binding %s: %w", name, err)
	}
	return nil
}

// Screenshot implements bridge.Screenshotter.
func (v *View) Screenshot(ctx context.Context, format string, quality int) ([]byte, error) {
	var buf []byte
	action := chromedp.ActionFunc(func(ctx context.Context) error {
		p := page.CaptureScreenshot().WithFromSurface(true)
		if format == "jpeg" {
			p = p.WithFormat(page.CaptureScreenshotFormatJpeg)
			if quality > 0 {
				p = p.WithQuality(int64(quality))
			}
		} else {
			p = p.WithFormat(page.CaptureScreenshotFormatPng)
		}
		var err error
		buf, err = p.Do(ctx)
		return err
	})
	if err := v.run(ctx, action); err != nil {
		return nil, err
	}
	return buf, nil
}

// onEvent runs on chromedp's event goroutine, which must never block.
func (v *View) onEvent(ev any) {
	switch e := ev.(type) {
	case *runtime.EventBindingCalled:
		v.bindMu.Lock()
		name := v.bindingName
		v.bindMu.Unlock()
		if e.Name != name {
			return
		}
		select {
		case v.events <- e.Payload:
		default:
			slog.Warn("webview event queue full; dropping event", "binding", name)
		}
	case *runtime.EventExceptionThrown:
		if e.ExceptionDetails != nil {
			slog.Warn("view exception", "text", e.ExceptionDetails.Text, "line", e.ExceptionDetails.LineNumber)
		}
	}
}

func (v *View) pump() {
	for {
		select {
		case <-v.tabCtx.Done():
			return
		case payload := <-v.events:
			v.bindMu.Lock()
			sink := v.sink
			v.bindMu.Unlock()
			if sink != nil {
				sink(payload)
			}
		}
	}
}
