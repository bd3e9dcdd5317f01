package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "ksweep.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default config should be valid: %v", err)
	}

	if cfg.Keys.From != 1 || cfg.Keys.To != 64 {
		t.Errorf("Expected keys 1..64, got %d..%d", cfg.Keys.From, cfg.Keys.To)
	}
	if len(cfg.Strategies) != 4 {
		t.Errorf("Expected 4 strategies, got %d", len(cfg.Strategies))
	}
	if len(cfg.Plots) != 5 {
		t.Errorf("Expected 5 plots, got %d", len(cfg.Plots))
	}
	if !cfg.Plots[0].Log {
		t.Error("Expected the MSE plot to use a log scale")
	}
}

func TestLoadFromFile_Overrides(t *testing.T) {
	path := writeConfig(t, `
reference: data/ref.txt
candidate: data/out_{K}.txt
peak: 255
keys:
  from: 2
  to: 8
comparator:
  path: ./compare
  args: ["--quiet"]
  timeout: 30s
  format: legacy
  env: ["OMP_NUM_THREADS=1"]
store:
  driver: sqlite
  db: results/all.db
strategies:
  - name: a
    label: Alpha
    method: block
  - name: b
    method: sliding
    clamp: each-step
plots:
  - file: custom.png
    metric: psnr
    keys: [2, 4, 8]
    series:
      - a
      - strategy: b
        label: Beta
`)

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}

	if cfg.Reference != "data/ref.txt" || cfg.Peak != 255 {
		t.Errorf("Unexpected reference/peak: %s %v", cfg.Reference, cfg.Peak)
	}
	if cfg.Keys.From != 2 || cfg.Keys.To != 8 {
		t.Errorf("Expected keys 2..8, got %d..%d", cfg.Keys.From, cfg.Keys.To)
	}
	if cfg.Comparator.Timeout != 30*time.Second {
		t.Errorf("Expected 30s timeout, got %v", cfg.Comparator.Timeout)
	}
	if len(cfg.Comparator.Args) != 1 || cfg.Comparator.Args[0] != "--quiet" {
		t.Errorf("Unexpected comparator args: %v", cfg.Comparator.Args)
	}
	if len(cfg.Comparator.Env) != 1 || cfg.Comparator.Env[0] != "OMP_NUM_THREADS=1" {
		t.Errorf("Unexpected comparator env: %v", cfg.Comparator.Env)
	}
	if cfg.Store.Driver != "sqlite" || cfg.Store.DB != "results/all.db" {
		t.Errorf("Unexpected store config: %+v", cfg.Store)
	}

	// Unset fields keep defaults
	if cfg.Render.DPI != 300 || cfg.Glob != "image/output_*.txt" {
		t.Errorf("Expected defaults for unset fields, got dpi=%d glob=%s", cfg.Render.DPI, cfg.Glob)
	}

	if len(cfg.Strategies) != 2 {
		t.Fatalf("Expected strategies replaced, got %d", len(cfg.Strategies))
	}
	if len(cfg.Plots) != 1 {
		t.Fatalf("Expected plots replaced, got %d", len(cfg.Plots))
	}

	p := cfg.Plots[0]
	if p.Series[0].Strategy != "a" || p.Series[0].Label != "" {
		t.Errorf("Expected scalar series 'a', got %+v", p.Series[0])
	}
	if p.Series[1].Strategy != "b" || p.Series[1].Label != "Beta" {
		t.Errorf("Expected mapping series b/Beta, got %+v", p.Series[1])
	}
	if got := cfg.SeriesLabel(p.Series[0]); got != "Alpha" {
		t.Errorf("Expected strategy label Alpha, got %s", got)
	}
	if got := cfg.SeriesLabel(p.Series[1]); got != "Beta" {
		t.Errorf("Expected override label Beta, got %s", got)
	}
}

func TestLoadFromFile_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"bad yaml", "keys: [", "failed to parse"},
		{"no placeholder", "candidate: out.txt", "{K}"},
		{"reversed keys", "keys: {from: 9, to: 3}", "keys"},
		{"zero peak", "peak: 0", "peak"},
		{"bad driver", "store: {driver: redis}", "store.driver"},
		{"bad backend", "render: {backend: svg}", "render.backend"},
		{"bad format", "comparator: {format: xml}", "comparator.format"},
		{"bad env", "comparator: {env: [NOEQUALS]}", "comparator.env"},
		{"unknown strategy", "plots: [{file: a.png, metric: MSE, series: [nope]}]", "unknown strategy"},
		{"bad metric", "plots: [{file: a.png, metric: LPIPS, series: [block_1]}]", "unknown metric"},
		{"duplicate strategy", "strategies: [{name: a}, {name: a}]", "duplicate"},
		{"bad clamp", "strategies: [{name: a, clamp: sometimes}]", "clamp"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromFile(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("Expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "none.yaml")

	cfg, err := Load(missing, false)
	if err != nil {
		t.Fatalf("Expected defaults for missing implicit config, got %v", err)
	}
	if cfg.Reference != Default().Reference {
		t.Error("Expected default reference")
	}

	if _, err := Load(missing, true); err == nil {
		t.Error("Expected error for missing explicit config")
	}
}

func TestSaveToFile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "ksweep.yaml")

	cfg := Default()
	cfg.Peak = 255
	if err := cfg.SaveToFile(path); err != nil {
		t.Fatalf("SaveToFile failed: %v", err)
	}

	loaded, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	if loaded.Peak != 255 || loaded.Comparator.Timeout != 2*time.Minute {
		t.Errorf("Round trip lost values: peak=%v timeout=%v", loaded.Peak, loaded.Comparator.Timeout)
	}
	if loaded.Plots[3].Series[0].Label != "Clamped each step" {
		t.Errorf("Expected series labels preserved, got %+v", loaded.Plots[3].Series[0])
	}
}

func TestPlotPath(t *testing.T) {
	cfg := Default()
	if got := cfg.PlotPath("mse.png"); got != filepath.Join("plots", "mse.png") {
		t.Errorf("Expected plots/mse.png, got %s", got)
	}
	abs := filepath.Join(t.TempDir(), "x.png")
	if got := cfg.PlotPath(abs); got != abs {
		t.Errorf("Expected absolute path unchanged, got %s", got)
	}
}

func TestStrategy_Description(t *testing.T) {
	cfg := Default()
	s, ok := cfg.Strategy("sliding_0")
	if !ok {
		t.Fatal("Expected sliding_0 strategy")
	}
	if !strings.Contains(s.Description(), "each pass") {
		t.Errorf("Unexpected description: %s", s.Description())
	}
}
