package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// TextboxEntry is a topbar widget created at startup. Entries with options
// become switchers.
type TextboxEntry struct {
	Name    string   `yaml:"name"`
	Value   string   `yaml:"value"`
	Options []string `yaml:"options"`
}

// ToolboxEntry enables the drawing toolbox on a chart.
type ToolboxEntry struct {
	// SaveUnder names the topbar widget whose value tags saved drawings.
	SaveUnder string `yaml:"save_under"`
	// DrawingsFile is imported at startup and exported on shutdown.
	DrawingsFile string `yaml:"drawings_file"`
}

// SubchartEntry describes a chart sharing the window with its parent.
type SubchartEntry struct {
	Name     string  `yaml:"name"`
	Position string  `yaml:"position"`
	Width    float64 `yaml:"width"`
	Height   float64 `yaml:"height"`
	Sync     bool    `yaml:"sync"`
	Bars     string  `yaml:"bars"`
}

// ChartEntry describes one top-level chart.
type ChartEntry struct {
	Name      string          `yaml:"name"`
	Width     float64         `yaml:"width"`
	Height    float64         `yaml:"height"`
	Location  string          `yaml:"location"`
	Bars      string          `yaml:"bars"`
	Watermark string          `yaml:"watermark"`
	Legend    bool            `yaml:"legend"`
	Topbar    []TextboxEntry  `yaml:"topbar"`
	Toolbox   *ToolboxEntry   `yaml:"toolbox"`
	Subcharts []SubchartEntry `yaml:"subcharts"`
}

// Layout is the top-level YAML layout file.
type Layout struct {
	Charts []ChartEntry `yaml:"charts"`
}

// DefaultLayout is a single full-window chart with the toolbox enabled.
func DefaultLayout() *Layout {
	return &Layout{Charts: []ChartEntry{{
		Name:    "main",
		Width:   1,
		Height:  1,
		Toolbox: &ToolboxEntry{},
	}}}
}

// LoadLayout reads and validates a layout YAML file.
func LoadLayout(path string) (*Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("layout config: %w", err)
	}
	var l Layout
	if err := yaml.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("layout config: %w", err)
	}
	if err := l.Validate(); err != nil {
		return nil, err
	}
	return &l, nil
}

func (l *Layout) Validate() error {
	if len(l.Charts) < 1 {
		return fmt.Errorf("layout config: at least one chart entry is required")
	}
	for i := range l.Charts {
		c := &l.Charts[i]
		if c.Name == "" {
			return fmt.Errorf("layout config: charts[%d] missing name", i)
		}
		if c.Width == 0 {
			c.Width = 1
		}
		if c.Height == 0 {
			c.Height = 1
		}
		for j, tb := range c.Topbar {
			if tb.Name == "" {
				return fmt.Errorf("layout config: charts[%d].topbar[%d] missing name", i, j)
			}
		}
		if c.Toolbox != nil && c.Toolbox.SaveUnder != "" && !c.hasTextbox(c.Toolbox.SaveUnder) {
			return fmt.Errorf("layout config: charts[%d] toolbox save_under %q is not a topbar widget", i, c.Toolbox.SaveUnder)
		}
		for j := range c.Subcharts {
			s := &c.Subcharts[j]
			if s.Name == "" {
				return fmt.Errorf("layout config: charts[%d].subcharts[%d] missing name", i, j)
			}
			if s.Position == "" {
				s.Position = "left"
			}
			if s.Width == 0 {
				s.Width = 0.5
			}
			if s.Height == 0 {
				s.Height = 0.5
			}
		}
	}
	return nil
}

func (c *ChartEntry) hasTextbox(name string) bool {
	for _, tb := range c.Topbar {
		if tb.Name == name {
			return true
		}
	}
	return false
}
