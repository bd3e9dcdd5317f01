package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cwbudde/ksweep/internal/metric"
)

// DefaultPath is the project file looked up when --config is not given
const DefaultPath = "ksweep.yaml"

// Config holds the project configuration
type Config struct {
	Reference  string           `yaml:"reference"`
	Candidate  string           `yaml:"candidate"`
	Glob       string           `yaml:"glob"`
	Peak       float64          `yaml:"peak"`
	Keys       KeyRange         `yaml:"keys"`
	Comparator ComparatorConfig `yaml:"comparator"`
	Store      StoreConfig      `yaml:"store"`
	Render     RenderConfig     `yaml:"render"`
	Strategies []Strategy       `yaml:"strategies"`
	Plots      []Plot           `yaml:"plots"`
}

// KeyRange is the inclusive K range of a sweep
type KeyRange struct {
	From int `yaml:"from"`
	To   int `yaml:"to"`
}

// ComparatorConfig selects how image pairs are compared.
// An empty Path selects the in-process comparator.
type ComparatorConfig struct {
	Path    string        `yaml:"path"`
	Args    []string      `yaml:"args"`
	Timeout time.Duration `yaml:"timeout"`
	Format  string        `yaml:"format"`
	Env     []string      `yaml:"env"` // KEY=VALUE pairs added to the environment
}

// StoreConfig selects where result sets are persisted
type StoreConfig struct {
	Driver string `yaml:"driver"`
	Dir    string `yaml:"dir"`
	DB     string `yaml:"db"`
}

// RenderConfig holds plot output settings; sizes are in inches
type RenderConfig struct {
	Backend string  `yaml:"backend"`
	Dir     string  `yaml:"dir"`
	DPI     int     `yaml:"dpi"`
	Width   float64 `yaml:"width"`
	Height  float64 `yaml:"height"`
}

// Strategy describes one way of producing candidate images.
// Name is the result set the strategy's sweep is stored under.
type Strategy struct {
	Name   string `yaml:"name"`
	Label  string `yaml:"label"`
	Method string `yaml:"method"`
	Clamp  string `yaml:"clamp"`
}

// Interpolation methods
const (
	MethodBlock   = "block"
	MethodOverlap = "overlap"
	MethodSliding = "sliding"
)

// Clamp timings: values clamped to [0,1] after each interpolation pass, or
// once after both passes.
const (
	ClampEachStep = "each-step"
	ClampAtEnd    = "at-end"
)

// Plot is one configured comparison figure
type Plot struct {
	File   string       `yaml:"file"`
	Metric string       `yaml:"metric"`
	YLabel string       `yaml:"ylabel"`
	Title  string       `yaml:"title"`
	Log    bool         `yaml:"log"`
	Keys   []int        `yaml:"keys"`
	Series []PlotSeries `yaml:"series"`
}

// PlotSeries references a strategy, optionally overriding its label.
// In YAML it is either a bare strategy name or {strategy, label}.
type PlotSeries struct {
	Strategy string `yaml:"strategy"`
	Label    string `yaml:"label"`
}

func (ps *PlotSeries) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		ps.Strategy = value.Value
		ps.Label = ""
		return nil
	}

	type plain PlotSeries
	var p plain
	if err := value.Decode(&p); err != nil {
		return err
	}
	*ps = PlotSeries(p)
	return nil
}

// Default returns a configuration with default values
func Default() *Config {
	series := func(names ...string) []PlotSeries {
		out := make([]PlotSeries, len(names))
		for i, n := range names {
			out[i] = PlotSeries{Strategy: n}
		}
		return out
	}
	clampTiming := []PlotSeries{
		{Strategy: "sliding_0", Label: "Clamped each step"},
		{Strategy: "sliding_1", Label: "Clamp at last step"},
	}

	return &Config{
		Reference: "image/image2.txt",
		Candidate: "image/output_{K}.txt",
		Glob:      "image/output_*.txt",
		Peak:      1.0,
		Keys:      KeyRange{From: 1, To: 64},
		Comparator: ComparatorConfig{
			Timeout: 2 * time.Minute,
			Format:  "auto",
		},
		Store: StoreConfig{
			Driver: "fs",
			Dir:    "plots",
			DB:     "plots/results.db",
		},
		Render: RenderConfig{
			Backend: "gonum",
			Dir:     "plots",
			DPI:     300,
			Width:   12,
			Height:  8,
		},
		Strategies: []Strategy{
			{Name: "block_1", Label: "Block", Method: MethodBlock, Clamp: ClampAtEnd},
			{Name: "overlap_1", Label: "Overlap", Method: MethodOverlap, Clamp: ClampAtEnd},
			{Name: "sliding_1", Label: "Sliding", Method: MethodSliding, Clamp: ClampAtEnd},
			{Name: "sliding_0", Label: "Sliding (clamped each step)", Method: MethodSliding, Clamp: ClampEachStep},
		},
		Plots: []Plot{
			{File: "mse.png", Metric: "MSE", YLabel: "MSE Value", Log: true, Series: series("block_1", "overlap_1", "sliding_1")},
			{File: "psnr.png", Metric: "PSNR", YLabel: "PSNR Value (dB)", Series: series("block_1", "overlap_1", "sliding_1")},
			{File: "ssim.png", Metric: "SSIM", YLabel: "SSIM Value", Series: series("block_1", "overlap_1", "sliding_1")},
			{File: "clamp-timing.png", Metric: "SSIM", YLabel: "SSIM Value", Series: clampTiming},
			{File: "clamp-timing2.png", Metric: "PSNR", YLabel: "PSNR Value (dB)", Series: clampTiming},
		},
	}
}

// LoadFromFile loads configuration from a YAML file.
// Fields missing from the file keep their default values.
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", filename, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", filename, err)
	}

	return config, nil
}

// Load reads filename if it exists. When explicit is false a missing file
// yields the defaults.
func Load(filename string, explicit bool) (*Config, error) {
	if _, err := os.Stat(filename); errors.Is(err, os.ErrNotExist) && !explicit {
		return Default(), nil
	}
	return LoadFromFile(filename)
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(filename string) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Reference == "" {
		return fmt.Errorf("reference cannot be empty")
	}
	if !strings.Contains(c.Candidate, "{K}") {
		return fmt.Errorf("candidate template must contain {K}")
	}
	if c.Peak <= 0 {
		return fmt.Errorf("peak must be positive")
	}
	if c.Keys.From < 1 || c.Keys.From > c.Keys.To {
		return fmt.Errorf("keys must satisfy 1 <= from <= to, got %d..%d", c.Keys.From, c.Keys.To)
	}

	if c.Comparator.Timeout < 0 {
		return fmt.Errorf("comparator.timeout cannot be negative")
	}
	for _, kv := range c.Comparator.Env {
		if k, _, ok := strings.Cut(kv, "="); !ok || k == "" {
			return fmt.Errorf("comparator.env entries must be KEY=VALUE, got %q", kv)
		}
	}
	switch c.Comparator.Format {
	case "auto", "legacy", "structured":
	default:
		return fmt.Errorf("comparator.format must be auto, legacy or structured, got %q", c.Comparator.Format)
	}

	switch c.Store.Driver {
	case "fs":
		if c.Store.Dir == "" {
			return fmt.Errorf("store.dir cannot be empty")
		}
	case "sqlite":
		if c.Store.DB == "" {
			return fmt.Errorf("store.db cannot be empty")
		}
	default:
		return fmt.Errorf("store.driver must be fs or sqlite, got %q", c.Store.Driver)
	}

	switch c.Render.Backend {
	case "gonum", "chart":
	default:
		return fmt.Errorf("render.backend must be gonum or chart, got %q", c.Render.Backend)
	}
	if c.Render.DPI <= 0 || c.Render.Width <= 0 || c.Render.Height <= 0 {
		return fmt.Errorf("render dpi, width and height must be positive")
	}

	seen := make(map[string]bool, len(c.Strategies))
	for _, s := range c.Strategies {
		if s.Name == "" {
			return fmt.Errorf("strategy name cannot be empty")
		}
		if seen[s.Name] {
			return fmt.Errorf("duplicate strategy %q", s.Name)
		}
		seen[s.Name] = true

		switch s.Method {
		case "", MethodBlock, MethodOverlap, MethodSliding:
		default:
			return fmt.Errorf("strategy %s: unknown method %q", s.Name, s.Method)
		}
		switch s.Clamp {
		case "", ClampEachStep, ClampAtEnd:
		default:
			return fmt.Errorf("strategy %s: unknown clamp %q", s.Name, s.Clamp)
		}
	}

	for _, p := range c.Plots {
		if p.File == "" {
			return fmt.Errorf("plot file cannot be empty")
		}
		if _, err := metric.ParseKind(p.Metric); err != nil {
			return fmt.Errorf("plot %s: %w", p.File, err)
		}
		if len(p.Series) == 0 {
			return fmt.Errorf("plot %s: no series", p.File)
		}
		for _, ps := range p.Series {
			if !seen[ps.Strategy] {
				return fmt.Errorf("plot %s: unknown strategy %q", p.File, ps.Strategy)
			}
		}
		for _, k := range p.Keys {
			if k <= 0 {
				return fmt.Errorf("plot %s: invalid key %d", p.File, k)
			}
		}
	}

	return nil
}

// Strategy returns the strategy stored under name
func (c *Config) Strategy(name string) (Strategy, bool) {
	for _, s := range c.Strategies {
		if s.Name == name {
			return s, true
		}
	}
	return Strategy{}, false
}

// SeriesLabel returns the legend label for ps
func (c *Config) SeriesLabel(ps PlotSeries) string {
	if ps.Label != "" {
		return ps.Label
	}
	if s, ok := c.Strategy(ps.Strategy); ok && s.Label != "" {
		return s.Label
	}
	return ps.Strategy
}

// PlotPath resolves a plot file against the render directory
func (c *Config) PlotPath(file string) string {
	if filepath.IsAbs(file) || c.Render.Dir == "" {
		return file
	}
	return filepath.Join(c.Render.Dir, file)
}

// Description summarizes how a strategy produces its candidates
func (s Strategy) Description() string {
	method := s.Method
	if method == "" {
		method = "unspecified"
	}
	switch s.Clamp {
	case ClampEachStep:
		return method + " interpolation, clamped after each pass"
	case ClampAtEnd:
		return method + " interpolation, clamped after the last pass"
	}
	return method + " interpolation"
}
