package webview

import (
	"context"
	"testing"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

func TestOpenRequiresURL(t *testing.T) {
	if _, err := Open(context.Background(), Options{}); err == nil {
		t.Fatal("Open(no url) = nil; want error")
	}
}

func TestAllocatorOptionsCount(t *testing.T) {
	base := len(chromedp.DefaultExecAllocatorOptions)
	if got := len(allocatorOptions(Options{URL: "http://x/"})); got != base+4 {
		t.Fatalf("options = %d; want %d", got, base+4)
	}
	if got := len(allocatorOptions(Options{URL: "http://x/", ProfileDir: "/tmp/p"})); got != base+5 {
		t.Fatalf("options with profile = %d; want %d", got, base+5)
	}
}

func TestBindingEventsArePumpedToSink(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	got := make(chan string, 1)
	v := &View{tabCtx: ctx, events: make(chan string, 4), bindingName: "lwcEmit", sink: func(p string) { got <- p }}
	go v.pump()

	v.onEvent(&runtime.EventBindingCalled{Name: "other", Payload: "ignored"})
	v.onEvent(&runtime.EventBindingCalled{Name: "lwcEmit", Payload: "h_~_x"})
	select {
	case p := <-got:
		if p != "h_~_x" {
			t.Fatalf("payload = %q", p)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("payload never reached sink")
	}
}
