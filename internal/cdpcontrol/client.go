// Package cdpcontrol attaches to an already running browser window over
// the Chrome DevTools Protocol and exposes it as a bridge.Transport.
package cdpcontrol

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dgnsrekt/lwcharts/internal/bridge"
)

// transientHints are substrings in error causes that indicate a transient
// failure worth retrying (e.g. broken connection, closed session).
var transientHints = []string{
	"context canceled",
	"target closed",
	"session closed",
	"websocket",
	"connection reset",
	"broken pipe",
	"eof",
	"connection refused",
	"connection closed",
	"cannot find context",
}

// eventQueueSize bounds binding payloads waiting for the sink.
const eventQueueSize = 256

// TabInfo describes the browser page hosting the view.
type TabInfo struct {
	TargetID string `json:"target_id"`
	URL      string `json:"url"`
	Title    string `json:"title,omitempty"`
}

type Client struct {
	cdpURL      string
	tabFilter   string
	evalTimeout time.Duration

	mu        sync.Mutex
	cdp       *rawCDP
	tab       *TabInfo
	sessionID string
	unbind    func()

	// evalMu serializes evaluations so commands reach the view in order.
	evalMu sync.Mutex

	bindMu      sync.Mutex
	bindingName string
	sink        func(string)
	events      chan string
	stopPump    chan struct{}
}

func NewClient(cdpURL, tabFilter string, evalTimeout time.Duration) *Client {
	return &Client{
		cdpURL:      cdpURL,
		tabFilter:   strings.ToLower(strings.TrimSpace(tabFilter)),
		evalTimeout: evalTimeout,
	}
}

func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectLocked(ctx)
}

func (c *Client) connectLocked(ctx context.Context) error {
	if c.cdpURL == "" {
		return bridge.NewError(bridge.CodeViewUnavailable, "missing CDP URL", nil)
	}

	slog.Info("cdpcontrol connect start", "cdp_url", c.cdpURL)
	c.cleanupLocked()

	c.cdp = newRawCDP(c.cdpURL)
	if err := c.cdp.connect(ctx); err != nil {
		c.cdp = nil
		return bridge.NewError(bridge.CodeViewUnavailable, "connect to CDP failed", err)
	}
	c.unbind = c.cdp.registerEventHandler("Runtime.bindingCalled", c.onBindingCalled)

	if err := c.syncTabLocked(ctx); err != nil {
		slog.Error("cdpcontrol initial tab sync failed", "error", err)
		c.cleanupLocked()
		return err
	}

	slog.Info("cdpcontrol connect ok", "cdp_url", c.cdpURL, "target_id", c.tab.TargetID)
	return nil
}

func (c *Client) Close() error {
	c.mu.Lock()
	c.cleanupLocked()
	c.mu.Unlock()

	c.bindMu.Lock()
	if c.stopPump != nil {
		close(c.stopPump)
		c.stopPump = nil
	}
	c.bindMu.Unlock()
	return nil
}

func (c *Client) cleanupLocked() {
	if c.cdp != nil {
		if c.sessionID != "" {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			_ = c.cdp.detachFromTarget(ctx, c.sessionID)
			cancel()
		}
		if c.unbind != nil {
			c.unbind()
			c.unbind = nil
		}
		c.cdp.close()
		c.cdp = nil
	}
	c.sessionID = ""
	c.tab = nil
}

// Tab returns the page currently hosting the view.
func (c *Client) Tab() (TabInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tab == nil {
		return TabInfo{}, false
	}
	return *c.tab, true
}

// Evaluate implements bridge.Transport. Transient failures are retried once
// after reconnecting.
func (c *Client) Evaluate(ctx context.Context, script string) (string, error) {
	c.evalMu.Lock()
	defer c.evalMu.Unlock()

	raw, err := c.evalOnce(ctx, script)
	if err == nil {
		return raw, nil
	}
	if !c.shouldRetry(err) {
		return "", err
	}

	slog.Warn("cdpcontrol eval retry after transient failure", "error", err)
	if recErr := c.reconnect(ctx); recErr != nil {
		slog.Error("cdpcontrol reconnect failed during retry", "error", recErr)
		return "", recErr
	}
	return c.evalOnce(ctx, script)
}

func (c *Client) evalOnce(ctx context.Context, script string) (string, error) {
	cdp, sessionID, err := c.ensureSession(ctx)
	if err != nil {
		return "", err
	}

	evalCtx, evalCancel := context.WithTimeout(ctx, c.evalTimeout)
	defer evalCancel()

	raw, err := cdp.evaluate(evalCtx, sessionID, script)
	if err != nil {
		slog.Warn("cdpcontrol eval failed", "session_id", sessionID, "error", err)
		c.resetSession(sessionID)
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(evalCtx.Err(), context.DeadlineExceeded) {
			return "", bridge.NewError(bridge.CodeEvalTimeout, "evaluation timed out", err)
		}
		return "", bridge.NewError(bridge.CodeEvalFailure, "evaluation failed", err)
	}
	return raw, nil
}

// Bind implements bridge.Transport. The binding is (re)installed on every
// session attach, so it survives reconnects and page reloads.
func (c *Client) Bind(ctx context.Context, name string, sink func(string)) error {
	c.bindMu.Lock()
	c.bindingName = name
	c.sink = sink
	if c.events == nil {
		c.events = make(chan string, eventQueueSize)
		c.stopPump = make(chan struct{})
		go c.pump(c.events, c.stopPump)
	}
	c.bindMu.Unlock()

	c.mu.Lock()
	cdp, sessionID := c.cdp, c.sessionID
	c.mu.Unlock()
	if cdp == nil || sessionID == "" {
		_, _, err := c.ensureSession(ctx)
		return err
	}
	if err := cdp.addBinding(ctx, sessionID, name); err != nil {
		return bridge.NewError(bridge.CodeViewUnavailable, "add binding failed", err)
	}
	return nil
}

// Screenshot implements bridge.Screenshotter.
func (c *Client) Screenshot(ctx context.Context, format string, quality int) ([]byte, error) {
	cdp, sessionID, err := c.ensureSession(ctx)
	if err != nil {
		return nil, err
	}
	data, err := cdp.captureScreenshot(ctx, sessionID, format, quality)
	if err != nil {
		return nil, bridge.NewError(bridge.CodeEvalFailure, "screenshot failed", err)
	}
	img, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, bridge.NewError(bridge.CodeEvalFailure, "decode screenshot", err)
	}
	return img, nil
}

// onBindingCalled runs on the websocket read goroutine and must not take
// c.mu, which is held across round trips. Payloads are queued for the pump
// so handlers may send commands without deadlocking the reader.
func (c *Client) onBindingCalled(_ string, params json.RawMessage) {
	var ev struct {
		Name    string `json:"name"`
		Payload string `json:"payload"`
	}
	if err := json.Unmarshal(params, &ev); err != nil {
		slog.Debug("cdpcontrol binding event undecodable", "error", err)
		return
	}
	c.bindMu.Lock()
	name, events := c.bindingName, c.events
	c.bindMu.Unlock()
	if ev.Name != name || events == nil {
		return
	}
	select {
	case events <- ev.Payload:
	default:
		slog.Warn("cdpcontrol event queue full; dropping event", "binding", name)
	}
}

func (c *Client) pump(events <-chan string, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case payload := <-events:
			c.bindMu.Lock()
			sink := c.sink
			c.bindMu.Unlock()
			if sink != nil {
				sink(payload)
			}
		}
	}
}

// ensureSession returns a session attached to the view tab, attaching and
// installing the binding if needed.
func (c *Client) ensureSession(ctx context.Context) (*rawCDP, string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cdp == nil {
		if err := c.connectLocked(ctx); err != nil {
			return nil, "", err
		}
	}
	if c.sessionID != "" {
		return c.cdp, c.sessionID, nil
	}
	if c.tab == nil {
		if err := c.syncTabLocked(ctx); err != nil {
			return nil, "", err
		}
	}

	sid, err := c.cdp.attachToTarget(ctx, c.tab.TargetID)
	if err != nil {
		return nil, "", bridge.NewError(bridge.CodeViewUnavailable, "attach to target failed", err)
	}
	if err := c.cdp.enableRuntime(ctx, sid); err != nil {
		return nil, "", bridge.NewError(bridge.CodeViewUnavailable, "enable runtime failed", err)
	}
	c.bindMu.Lock()
	name := c.bindingName
	c.bindMu.Unlock()
	if name != "" {
		if err := c.cdp.addBinding(ctx, sid, name); err != nil {
			return nil, "", bridge.NewError(bridge.CodeViewUnavailable, "add binding failed", err)
		}
	}
	c.sessionID = sid
	slog.Debug("cdpcontrol session attached", "target_id", c.tab.TargetID, "session_id", sid)
	return c.cdp, sid, nil
}

func (c *Client) resetSession(sessionID string) {
	c.mu.Lock()
	if c.sessionID == sessionID {
		c.sessionID = ""
	}
	c.mu.Unlock()
}

func (c *Client) reconnect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectLocked(ctx)
}

// syncTabLocked picks the view page: the first page target whose URL
// contains the filter, preferring a stable order.
func (c *Client) syncTabLocked(ctx context.Context) error {
	if c.cdp == nil {
		return bridge.NewError(bridge.CodeViewUnavailable, "CDP client not connected", nil)
	}

	targets, err := c.cdp.listTargets(ctx)
	if err != nil {
		return bridge.NewError(bridge.CodeViewUnavailable, "failed to list targets", err)
	}

	var pages []TabInfo
	for _, t := range targets {
		if t.Type != "page" {
			continue
		}
		if c.tabFilter != "" && !strings.Contains(strings.ToLower(t.URL), c.tabFilter) {
			continue
		}
		pages = append(pages, TabInfo{TargetID: string(t.TargetID), URL: t.URL, Title: t.Title})
	}
	if len(pages) == 0 {
		return bridge.NewError(bridge.CodeViewUnavailable, "no view tab matches filter "+c.tabFilter, nil)
	}
	sort.SliceStable(pages, func(i, j int) bool { return pages[i].URL < pages[j].URL })
	if c.tab == nil || c.tab.TargetID != pages[0].TargetID {
		c.sessionID = ""
	}
	tab := pages[0]
	c.tab = &tab

	slog.Debug("cdpcontrol tab sync", "targets", len(targets), "pages", len(pages), "target_id", tab.TargetID)
	return nil
}

func (c *Client) shouldRetry(err error) bool {
	var coded *bridge.CodedError
	if !errors.As(err, &coded) {
		return false
	}

	switch coded.Code {
	case bridge.CodeViewUnavailable:
		return true
	case bridge.CodeEvalFailure:
		if coded.Cause == nil {
			return false
		}
		cause := strings.ToLower(coded.Cause.Error())
		for _, hint := range transientHints {
			if strings.Contains(cause, hint) {
				return true
			}
		}
	}
	return false
}
