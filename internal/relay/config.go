package relay

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// FeedConfig names a group of bridge handlers by id prefix.
type FeedConfig struct {
	Name           string   `yaml:"name"`
	HandlerPrefix  []string `yaml:"handler_prefix"`
	IncludeUnknown bool     `yaml:"include_unknown,omitempty"`
}

// RelayConfig is the top-level YAML configuration.
type RelayConfig struct {
	Feeds []FeedConfig `yaml:"feeds"`
}

// DefaultConfig routes every event kind the view emits to its own feed.
// Feeds are matched in order; the final catch-all takes the rest.
func DefaultConfig() *RelayConfig {
	return &RelayConfig{Feeds: []FeedConfig{
		{Name: "measure", HandlerPrefix: []string{"measure_"}},
		{Name: "toolbox", HandlerPrefix: []string{"save_drawings"}},
		{Name: "drawing", HandlerPrefix: []string{"drawing_"}},
		{Name: "topbar", HandlerPrefix: []string{"chart_"}},
		{Name: "bridge", HandlerPrefix: []string{""}, IncludeUnknown: true},
	}}
}

// LoadConfig reads and validates a relay YAML config file.
func LoadConfig(path string) (*RelayConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("relay config: %w", err)
	}
	var cfg RelayConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("relay config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *RelayConfig) Validate() error {
	for i, f := range c.Feeds {
		if f.Name == "" {
			return fmt.Errorf("relay config: feed[%d] missing name", i)
		}
		if len(f.HandlerPrefix) == 0 {
			return fmt.Errorf("relay config: feed[%d] (%s) missing handler_prefix", i, f.Name)
		}
	}
	return nil
}

// match returns the first feed whose prefix matches the handler id.
func (c *RelayConfig) match(handlerID string, handled bool) (string, bool) {
	for _, f := range c.Feeds {
		if !handled && !f.IncludeUnknown {
			continue
		}
		for _, p := range f.HandlerPrefix {
			if strings.HasPrefix(handlerID, p) {
				return f.Name, true
			}
		}
	}
	return "", false
}
