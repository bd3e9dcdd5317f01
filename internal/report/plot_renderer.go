package report

import (
	"fmt"
	"log/slog"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/cwbudde/ksweep/internal/align"
)

// PlotRenderer draws figures with gonum/plot.
// A secondary layer is drawn as a second panel sharing the K axis.
type PlotRenderer struct {
	opts Options
}

// NewPlotRenderer creates a gonum/plot renderer
func NewPlotRenderer(opts Options) *PlotRenderer {
	return &PlotRenderer{opts: opts}
}

// Render draws fig and writes it as PNG to path
func (r *PlotRenderer) Render(path string, fig Figure) error {
	layers := fig.Layers()
	plots := make([][]*plot.Plot, len(layers))
	for i, layer := range layers {
		p, err := r.layerPlot(fig.X, layer)
		if err != nil {
			return err
		}
		if i == 0 {
			p.Title.Text = fig.Title
		}
		plots[i] = []*plot.Plot{p}
	}

	img := vgimg.NewWith(
		vgimg.UseWH(vg.Length(r.opts.Width)*vg.Inch, vg.Length(r.opts.Height)*vg.Inch),
		vgimg.UseDPI(r.opts.DPI),
	)
	dc := draw.New(img)

	if len(plots) == 1 {
		plots[0][0].Draw(dc)
	} else {
		tiles := draw.Tiles{
			Rows:      len(plots),
			Cols:      1,
			PadTop:    vg.Points(4),
			PadBottom: vg.Points(4),
			PadLeft:   vg.Points(4),
			PadRight:  vg.Points(8),
			PadY:      vg.Points(12),
		}
		canvases := plot.Align(plots, tiles, dc)
		for i := range plots {
			plots[i][0].Draw(canvases[i][0])
		}
	}

	f, err := createOutput(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(f); err != nil {
		return fmt.Errorf("failed to write plot %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close plot %s: %w", path, err)
	}

	slog.Debug("Plot written", "path", path, "backend", BackendGonum)
	return nil
}

func (r *PlotRenderer) layerPlot(x Axis, layer Layer) (*plot.Plot, error) {
	p := plot.New()
	p.X.Label.Text = x.Label
	p.Y.Label.Text = layer.Axis.Label
	p.Legend.Top = true
	p.Add(plotter.NewGrid())

	var drawn [][]align.Point
	for i, s := range layer.Series {
		pts := drawable(s, layer.Axis.Log)
		if len(pts) == 0 {
			continue
		}
		drawn = append(drawn, pts)

		xys := make(plotter.XYs, len(pts))
		for j, pt := range pts {
			xys[j].X = float64(pt.K)
			xys[j].Y = pt.Value
		}

		line, points, err := plotter.NewLinePoints(xys)
		if err != nil {
			return nil, fmt.Errorf("failed to build series %s: %w", s.Name, err)
		}
		line.Color = plotutil.Color(i)
		line.Width = vg.Points(1.5)
		points.Shape = plotutil.Shape(i)
		points.Color = plotutil.Color(i)

		p.Add(line, points)
		p.Legend.Add(s.Name, line, points)
	}

	applyAxis(&p.X, x, drawn, false)
	applyAxis(&p.Y, layer.Axis, drawn, true)
	return p, nil
}

// applyAxis sets range, scale and ticks. It runs after the plotters are
// added since adding a plotter widens the range to its data.
func applyAxis(a *plot.Axis, cfg Axis, drawn [][]align.Point, values bool) {
	if cfg.Log {
		a.Scale = plot.LogScale{}
		a.Tick.Marker = plot.LogTicks{Prec: -1}
		if cfg.Fixed() && cfg.Min > 0 {
			a.Min, a.Max = cfg.Min, cfg.Max
		} else if lo, hi, ok := dataRange(drawn); ok && values {
			first, last := decades(lo, hi)
			if first == last {
				last++
			}
			a.Min, a.Max = pow10(first), pow10(last)
		} else {
			a.Min, a.Max = 1, 10
		}
		return
	}

	if cfg.Fixed() {
		a.Min, a.Max = cfg.Min, cfg.Max
	} else if _, _, ok := dataRange(drawn); !ok {
		a.Min, a.Max = 0, 1
	}
	if cfg.Step > 0 {
		a.Tick.Marker = stepTicker{step: cfg.Step, minor: cfg.Minor}
	}
}

// stepTicker places ticks at fixed intervals
type stepTicker struct {
	step, minor float64
}

func (t stepTicker) Ticks(min, max float64) []plot.Tick {
	var ticks []plot.Tick
	for _, tk := range stepTicks(min, max, t.step, t.minor) {
		ticks = append(ticks, plot.Tick{Value: tk.Value, Label: tk.Label})
	}
	return ticks
}
