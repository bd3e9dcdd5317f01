package report

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/wcharczuk/go-chart/v2"

	"github.com/cwbudde/ksweep/internal/align"
)

// ChartRenderer draws figures with go-chart. The secondary layer gets its
// own Y axis on the right. Log axes are drawn by plotting log10 of the
// values with decade tick labels.
type ChartRenderer struct {
	opts Options
}

// NewChartRenderer creates a go-chart renderer
func NewChartRenderer(opts Options) *ChartRenderer {
	return &ChartRenderer{opts: opts}
}

// Render draws fig and writes it as PNG to path
func (r *ChartRenderer) Render(path string, fig Figure) error {
	graph := chart.Chart{
		Title:  fig.Title,
		Width:  int(r.opts.Width * float64(r.opts.DPI)),
		Height: int(r.opts.Height * float64(r.opts.DPI)),
		DPI:    float64(r.opts.DPI),
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20},
		},
		XAxis: chart.XAxis{
			Name:  fig.X.Label,
			Range: &chart.ContinuousRange{Min: fig.X.Min, Max: fig.X.Max},
			Ticks: chartTicks(stepTicks(fig.X.Min, fig.X.Max, fig.X.Step, 0)),
		},
	}

	var series []chart.Series
	colorIndex := 0
	for i, layer := range fig.Layers() {
		yaxis, transformed := chartLayer(layer)
		if i == 0 {
			graph.YAxis = yaxis
		} else {
			graph.YAxisSecondary = yaxis
		}

		for _, s := range transformed {
			xs, ys := s.XY()
			cs := chart.ContinuousSeries{
				Name:    s.Name,
				XValues: xs,
				YValues: ys,
				Style: chart.Style{
					StrokeColor: chart.GetDefaultColor(colorIndex),
					StrokeWidth: 3,
					DotColor:    chart.GetDefaultColor(colorIndex),
					DotWidth:    5,
				},
			}
			if i > 0 {
				cs.YAxis = chart.YAxisSecondary
			}
			series = append(series, cs)
			colorIndex++
		}
	}

	if len(series) == 0 {
		return fmt.Errorf("nothing to draw in %s: no series has drawable points", path)
	}
	graph.Series = series
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	f, err := createOutput(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := graph.Render(chart.PNG, f); err != nil {
		return fmt.Errorf("failed to render chart %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close chart %s: %w", path, err)
	}

	slog.Debug("Chart written", "path", path, "backend", BackendChart)
	return nil
}

// chartLayer builds the Y axis for a layer and returns its series with
// undrawable points removed (and values log-transformed for log axes).
func chartLayer(layer Layer) (chart.YAxis, []align.NamedSeries) {
	cfg := layer.Axis

	var kept []align.NamedSeries
	var drawn [][]align.Point
	for _, s := range layer.Series {
		pts := drawable(s, cfg.Log)
		if len(pts) == 0 {
			continue
		}
		if cfg.Log {
			for i := range pts {
				pts[i].Value = math.Log10(pts[i].Value)
			}
		}
		drawn = append(drawn, pts)
		kept = append(kept, align.NamedSeries{Name: s.Name, Metric: s.Metric, Points: pts})
	}

	yaxis := chart.YAxis{Name: cfg.Label}

	switch {
	case cfg.Log:
		lo, hi := 0.0, 1.0
		if dlo, dhi, ok := dataRange(drawn); ok {
			lo, hi = math.Floor(dlo), math.Ceil(dhi)
			if lo == hi {
				hi++
			}
		}
		var ticks []chart.Tick
		for exp := int(lo); exp <= int(hi); exp++ {
			ticks = append(ticks, chart.Tick{Value: float64(exp), Label: formatDecade(exp)})
		}
		yaxis.Range = &chart.ContinuousRange{Min: lo, Max: hi}
		yaxis.Ticks = ticks

	case cfg.Fixed():
		yaxis.Range = &chart.ContinuousRange{Min: cfg.Min, Max: cfg.Max}
		yaxis.Ticks = chartTicks(stepTicks(cfg.Min, cfg.Max, cfg.Step, 0))

	default:
		lo, hi, ok := dataRange(drawn)
		if !ok {
			lo, hi = 0, 1
		}
		min, max, step := niceRange(lo, hi, 8)
		yaxis.Range = &chart.ContinuousRange{Min: min, Max: max}
		yaxis.Ticks = chartTicks(stepTicks(min, max, step, 0))
	}

	return yaxis, kept
}

func chartTicks(ticks []tick) []chart.Tick {
	out := make([]chart.Tick, 0, len(ticks))
	for _, t := range ticks {
		out = append(out, chart.Tick{Value: t.Value, Label: t.Label})
	}
	return out
}
