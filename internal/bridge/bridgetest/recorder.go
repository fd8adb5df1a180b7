// Package bridgetest provides an in-memory bridge.Transport that records
// every command instead of talking to a browser.
package bridgetest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/dgnsrekt/lwcharts/internal/bridge"
)

const (
	execPrefix = "window.lwc.exec("
	execSuffix = ");\nreturn JSON.stringify({ok:true"
)

// Recorded is a decoded bridge.Command.
type Recorded struct {
	Op     string         `json:"op"`
	Chart  string         `json:"chart"`
	Target string         `json:"target"`
	Args   map[string]any `json:"args"`
}

// Recorder implements bridge.Transport.
type Recorder struct {
	mu       sync.Mutex
	commands []Recorded
	sinks    map[string]func(string)

	// Err, when set, is returned by Evaluate without recording.
	Err error
}

func New() *Recorder {
	return &Recorder{sinks: make(map[string]func(string))}
}

func (r *Recorder) Evaluate(ctx context.Context, script string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return "", r.Err
	}
	rec, err := decode(script)
	if err != nil {
		return "", err
	}
	r.commands = append(r.commands, rec)
	return `{"ok":true,"data":null}`, nil
}

func (r *Recorder) Bind(ctx context.Context, name string, sink func(string)) error {
	r.mu.Lock()
	r.sinks[name] = sink
	r.mu.Unlock()
	return nil
}

// Emit simulates the view calling the bound event function.
func (r *Recorder) Emit(payload string) {
	r.mu.Lock()
	sink := r.sinks[bridge.BindingName]
	r.mu.Unlock()
	if sink != nil {
		sink(payload)
	}
}

func (r *Recorder) Commands() []Recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Recorded, len(r.commands))
	copy(out, r.commands)
	return out
}

func (r *Recorder) Ops() []string {
	cmds := r.Commands()
	ops := make([]string, len(cmds))
	for i, c := range cmds {
		ops[i] = c.Op
	}
	return ops
}

// Last returns the most recent command; ok is false when none was sent.
func (r *Recorder) Last() (Recorded, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.commands) == 0 {
		return Recorded{}, false
	}
	return r.commands[len(r.commands)-1], true
}

func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.commands)
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	r.commands = nil
	r.mu.Unlock()
}

func decode(script string) (Recorded, error) {
	start := strings.Index(script, execPrefix)
	end := strings.LastIndex(script, execSuffix)
	if start < 0 || end < start {
		return Recorded{}, fmt.Errorf("bridgetest: script is not a bridge command")
	}
	var rec Recorded
	if err := json.Unmarshal([]byte(script[start+len(execPrefix):end]), &rec); err != nil {
		return Recorded{}, fmt.Errorf("bridgetest: decode command: %w", err)
	}
	return rec, nil
}
