package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	for _, k := range []string{"LWC_BIND_ADDR", "LWC_BACKEND", "LWC_EVAL_TIMEOUT_MS", "LWC_PORT_CANDIDATES", "LWC_WINDOW_SIZE"} {
		t.Setenv(k, "")
	}
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v", err)
	}
	if cfg.BindAddr != "127.0.0.1:8188" || cfg.Backend != BackendChromedp || cfg.EvalTimeoutMS != 5000 {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.CDPURL() != "http://127.0.0.1:9220" {
		t.Fatalf("CDPURL() = %q", cfg.CDPURL())
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("LWC_BACKEND", "RawCDP")
	t.Setenv("LWC_EVAL_TIMEOUT_MS", "10")
	t.Setenv("LWC_PORT_CANDIDATES", " 127.0.0.1:1, ,127.0.0.1:2")
	t.Setenv("LWC_HEADLESS", "true")
	t.Setenv("LWC_WINDOW_SIZE", "800, 600")
	t.Setenv("LWC_LOG_LEVEL", "DEBUG")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v", err)
	}
	if cfg.Backend != BackendRawCDP {
		t.Fatalf("Backend = %q", cfg.Backend)
	}
	if cfg.EvalTimeoutMS != 1000 {
		t.Fatalf("EvalTimeoutMS = %d; want clamp to 1000", cfg.EvalTimeoutMS)
	}
	if !reflect.DeepEqual(cfg.PortCandidates, []string{"127.0.0.1:1", "127.0.0.1:2"}) {
		t.Fatalf("PortCandidates = %v", cfg.PortCandidates)
	}
	if w, h, _ := cfg.WindowDims(); !cfg.Headless || w != 800 || h != 600 {
		t.Fatalf("headless=%v dims=%dx%d", cfg.Headless, w, h)
	}
	if cfg.SlogLevel() != slog.LevelDebug {
		t.Fatalf("SlogLevel() = %v", cfg.SlogLevel())
	}
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("LWC_BACKEND", "electron")
	if _, err := Load(); err == nil {
		t.Fatal("Load() = nil; want backend error")
	}
}

func TestLoadReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("SNAPSHOT_DIR", "")
	os.Unsetenv("SNAPSHOT_DIR") // godotenv never overrides a set variable, even an empty one
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("SNAPSHOT_DIR=/tmp/snaps-from-dotenv\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v", err)
	}
	if cfg.SnapshotDir != "/tmp/snaps-from-dotenv" {
		t.Fatalf("SnapshotDir = %q", cfg.SnapshotDir)
	}
}

func TestLoadLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layout.yaml")
	body := `charts:
  - name: main
    bars: data/ohlcv.csv
    topbar:
      - name: symbol
        value: TSLA
      - name: timeframe
        options: [1min, 5min]
    toolbox:
      save_under: symbol
      drawings_file: drawings.json
    subcharts:
      - name: lower
        position: bottom
        height: 0.3
        sync: true
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	l, err := LoadLayout(path)
	if err != nil {
		t.Fatalf("LoadLayout() = %v", err)
	}
	c := l.Charts[0]
	if c.Width != 1 || c.Height != 1 || c.Toolbox.SaveUnder != "symbol" || c.Topbar[0].Value != "TSLA" {
		t.Fatalf("chart = %+v", c)
	}
	if tf := c.Topbar[1]; len(tf.Options) != 2 || tf.Options[1] != "5min" {
		t.Fatalf("switcher entry = %+v", tf)
	}
	if s := c.Subcharts[0]; s.Position != "bottom" || s.Width != 0.5 || s.Height != 0.3 || !s.Sync {
		t.Fatalf("subchart = %+v", s)
	}
}

func TestLayoutValidate(t *testing.T) {
	tests := []struct {
		name   string
		layout Layout
	}{
		{"empty", Layout{}},
		{"unnamed chart", Layout{Charts: []ChartEntry{{}}}},
		{"save_under without textbox", Layout{Charts: []ChartEntry{{Name: "main", Toolbox: &ToolboxEntry{SaveUnder: "symbol"}}}}},
		{"unnamed subchart", Layout{Charts: []ChartEntry{{Name: "main", Subcharts: []SubchartEntry{{}}}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.layout.Validate(); err == nil {
				t.Fatal("Validate() = nil; want error")
			}
		})
	}
}
