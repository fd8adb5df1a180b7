package browser

import (
	"slices"
	"testing"
)

func TestArgsOpenAppWindow(t *testing.T) {
	l := NewLauncher(Config{
		CDPAddress: "127.0.0.1",
		CDPPort:    9333,
		AppURL:     "http://127.0.0.1:8188/view/",
		ProfileDir: "/tmp/profile",
	})
	args := l.args()
	if got := args[len(args)-1]; got != "--app=http://127.0.0.1:8188/view/" {
		t.Fatalf("last arg = %q", got)
	}
	for _, want := range []string{"--remote-debugging-port=9333", "--remote-debugging-address=127.0.0.1", "--window-size=1920,1080"} {
		if !slices.Contains(args, want) {
			t.Fatalf("args missing %q: %v", want, args)
		}
	}
	if slices.Contains(args, "--headless=new") {
		t.Fatal("headless flag set without Headless")
	}
}

func TestArgsHeadless(t *testing.T) {
	l := NewLauncher(Config{Headless: true, WindowSize: "800,600"})
	args := l.args()
	if !slices.Contains(args, "--headless=new") || !slices.Contains(args, "--window-size=800,600") {
		t.Fatalf("args = %v", args)
	}
}

func TestExitedNilWithoutLaunch(t *testing.T) {
	l := NewLauncher(Config{})
	if l.Exited() != nil {
		t.Fatal("Exited() before Launch should be nil")
	}
	l.Stop()
	if l.Running() {
		t.Fatal("Running() = true without a process")
	}
}
