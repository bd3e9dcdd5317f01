package report

import (
	"fmt"
	"os"
	"path/filepath"
)

// Renderer writes a figure as a PNG file.
type Renderer interface {
	Render(path string, fig Figure) error
}

// Backend names accepted by NewRenderer
const (
	BackendGonum = "gonum"
	BackendChart = "chart"
)

// Options sets the output size; width and height are in inches.
type Options struct {
	Width  float64
	Height float64
	DPI    int
}

// DefaultOptions matches the 12x8 inch, 300 DPI figures of the sweep reports
func DefaultOptions() Options {
	return Options{Width: 12, Height: 8, DPI: 300}
}

// Validate checks the output size
func (o Options) Validate() error {
	if o.Width <= 0 || o.Height <= 0 {
		return fmt.Errorf("figure size must be positive, got %gx%g", o.Width, o.Height)
	}
	if o.DPI <= 0 {
		return fmt.Errorf("dpi must be positive, got %d", o.DPI)
	}
	return nil
}

// NewRenderer returns the renderer for backend
func NewRenderer(backend string, opts Options) (Renderer, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	switch backend {
	case BackendGonum, "":
		return NewPlotRenderer(opts), nil
	case BackendChart:
		return NewChartRenderer(opts), nil
	default:
		return nil, fmt.Errorf("unknown render backend %q (valid: %s, %s)", backend, BackendGonum, BackendChart)
	}
}

// createOutput creates path and any missing parent directories
func createOutput(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create plot directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create plot file: %w", err)
	}
	return f, nil
}
