// Package config loads process configuration from the environment (with an
// optional .env file) and chart layouts from YAML.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	BackendRawCDP   = "rawcdp"
	BackendChromedp = "chromedp"
)

// Config holds all configuration for the lwcharts host.
type Config struct {
	// Control API
	BindAddr         string
	PortCandidates   []string
	PortAutoFallback bool

	// View transport
	Backend       string
	CDPAddress    string
	CDPPort       int
	TabURLFilter  string
	EvalTimeoutMS int
	Headless      bool
	ProfileDir    string
	WindowSize    string
	LibURL        string
	BundleURL     string

	// Logging
	LogLevel string
	LogFile  string

	// Storage
	JournalDir  string
	SnapshotDir string
}

// Load reads configuration from environment variables and optional .env file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	}

	cfg := &Config{
		BindAddr:         getEnvOrDefault("LWC_BIND_ADDR", "127.0.0.1:8188"),
		PortCandidates:   getEnvListOrDefault("LWC_PORT_CANDIDATES", []string{"127.0.0.1:8189", "127.0.0.1:8190", "127.0.0.1:8191"}),
		PortAutoFallback: getEnvBoolOrDefault("LWC_PORT_AUTO_FALLBACK", true),
		Backend:          strings.ToLower(getEnvOrDefault("LWC_BACKEND", BackendChromedp)),
		CDPAddress:       getEnvOrDefault("CHROMIUM_CDP_ADDRESS", "127.0.0.1"),
		CDPPort:          getEnvIntOrDefault("CHROMIUM_CDP_PORT", 9220),
		TabURLFilter:     getEnvOrDefault("LWC_TAB_URL_FILTER", "/view/"),
		EvalTimeoutMS:    getEnvIntOrDefault("LWC_EVAL_TIMEOUT_MS", 5000),
		Headless:         getEnvBoolOrDefault("LWC_HEADLESS", false),
		ProfileDir:       getEnvOrDefault("LWC_PROFILE_DIR", ""),
		WindowSize:       getEnvOrDefault("LWC_WINDOW_SIZE", "1280,800"),
		LibURL:           getEnvOrDefault("LWC_LIB_URL", "https://unpkg.com/lightweight-charts@4.1.3/dist/lightweight-charts.standalone.production.js"),
		BundleURL:        getEnvOrDefault("LWC_BUNDLE_URL", ""),
		LogLevel:         strings.ToLower(getEnvOrDefault("LWC_LOG_LEVEL", "info")),
		LogFile:          getEnvOrDefault("LWC_LOG_FILE", "logs/lwcharts.log"),
		JournalDir:       getEnvOrDefault("LWC_JOURNAL_DIR", ""),
		SnapshotDir:      getEnvOrDefault("SNAPSHOT_DIR", "./snapshots"),
	}
	if cfg.EvalTimeoutMS < 1000 {
		cfg.EvalTimeoutMS = 1000
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Backend {
	case BackendRawCDP, BackendChromedp:
	default:
		return fmt.Errorf("config: LWC_BACKEND must be %q or %q, got %q", BackendRawCDP, BackendChromedp, c.Backend)
	}
	if _, _, err := c.WindowDims(); err != nil {
		return err
	}
	return nil
}

// CDPURL returns the CDP HTTP endpoint of an already running browser.
func (c *Config) CDPURL() string {
	return "http://" + c.CDPAddress + ":" + strconv.Itoa(c.CDPPort)
}

// WindowDims parses WindowSize ("W,H").
func (c *Config) WindowDims() (int, int, error) {
	w, h, ok := strings.Cut(c.WindowSize, ",")
	if !ok {
		return 0, 0, fmt.Errorf("config: LWC_WINDOW_SIZE must be W,H, got %q", c.WindowSize)
	}
	width, err1 := strconv.Atoi(strings.TrimSpace(w))
	height, err2 := strconv.Atoi(strings.TrimSpace(h))
	if err1 != nil || err2 != nil || width <= 0 || height <= 0 {
		return 0, 0, fmt.Errorf("config: LWC_WINDOW_SIZE must be W,H, got %q", c.WindowSize)
	}
	return width, height, nil
}

// SlogLevel maps LogLevel onto slog.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvIntOrDefault(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBoolOrDefault(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvListOrDefault(key string, defaultVal []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
