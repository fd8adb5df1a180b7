package toolbox

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// ImportDrawings replaces the whole tag → drawings mapping with the contents
// of path. A missing file reports false and leaves the mapping untouched.
func (tb *ToolBox) ImportDrawings(path string) (bool, error) {
	set, err := ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	tb.mu.Lock()
	tb.drawings = set
	tb.mu.Unlock()
	slog.Info("drawings imported", "chart_id", tb.chart.ID(), "path", path, "tags", len(set))
	return true, nil
}

// ExportDrawings writes the whole mapping to path, overwriting it.
func (tb *ToolBox) ExportDrawings(path string) error {
	set := tb.Snapshot()
	if err := WriteFile(path, set); err != nil {
		return err
	}
	slog.Info("drawings exported", "chart_id", tb.chart.ID(), "path", path, "tags", len(set))
	return nil
}

// ReadFile decodes a drawings file: a JSON object mapping tag to a list of
// opaque drawing records.
func ReadFile(path string) (map[string][]json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("toolbox: decode %s: %w", path, err)
	}
	set := make(map[string][]json.RawMessage, len(raw))
	for tag, v := range raw {
		records, err := decodeRecords(v)
		if err != nil {
			return nil, fmt.Errorf("toolbox: tag %q: %w", tag, err)
		}
		set[tag] = records
	}
	return set, nil
}

// WriteFile encodes set with four-space indentation.
func WriteFile(path string, set map[string][]json.RawMessage) error {
	if set == nil {
		set = map[string][]json.RawMessage{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(set); err != nil {
		return fmt.Errorf("toolbox: encode drawings: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("toolbox: create dir: %w", err)
		}
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("toolbox: write %s: %w", path, err)
	}
	return nil
}
