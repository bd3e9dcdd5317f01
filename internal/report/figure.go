// Package report draws aligned series to PNG files.
//
// A Figure describes what to draw independent of the plotting library.
// Two renderers are provided: PlotRenderer (gonum/plot) and ChartRenderer
// (go-chart). Only the latter can draw a true secondary Y axis; PlotRenderer
// stacks the secondary layer in its own panel below the primary one.
package report

import (
	"log/slog"
	"math"

	"github.com/cwbudde/ksweep/internal/align"
)

// Axis configures one plot axis. Min == Max means the range follows the
// data. Step and Minor set major and minor tick spacing, 0 for automatic.
type Axis struct {
	Label string
	Min   float64
	Max   float64
	Step  float64
	Minor float64
	Log   bool
}

// Fixed reports whether the axis range is set explicitly
func (a Axis) Fixed() bool {
	return a.Max > a.Min
}

// Layer is a set of series sharing one Y axis.
type Layer struct {
	Axis   Axis
	Series []align.NamedSeries
}

// Figure is a complete chart: a shared K axis, a primary layer and an
// optional secondary layer.
type Figure struct {
	Title     string
	X         Axis
	Primary   Layer
	Secondary *Layer
}

// KAxisLabel is the label of the shared block size axis
const KAxisLabel = "Block Size (K)"

// KAxis returns the block size axis covering every key in series.
// The range starts at 0 and ends at the next multiple of 8, at least 64.
func KAxis(series ...align.NamedSeries) Axis {
	maxK := 64
	for _, s := range series {
		for _, p := range s.Points {
			if p.K > maxK {
				maxK = p.K
			}
		}
	}
	if rem := maxK % 8; rem != 0 {
		maxK += 8 - rem
	}
	return Axis{Label: KAxisLabel, Min: 0, Max: float64(maxK), Step: 8, Minor: 2}
}

// DualFigure plots PSNR and SSIM of one result set against K, PSNR on the
// primary axis and SSIM on the secondary one.
func DualFigure(psnr, ssim align.NamedSeries) Figure {
	psnr.Name = "PSNR"
	ssim.Name = "SSIM"
	return Figure{
		Title: "PSNR and SSIM vs Block Size",
		X:     KAxis(psnr, ssim),
		Primary: Layer{
			Axis:   Axis{Label: "PSNR Value (dB)", Min: 0, Max: 40, Step: 5, Minor: 1.25},
			Series: []align.NamedSeries{psnr},
		},
		Secondary: &Layer{
			Axis:   Axis{Label: "SSIM Value", Min: 0, Max: 1, Step: 0.125},
			Series: []align.NamedSeries{ssim},
		},
	}
}

// ComparisonFigure plots any number of aligned series of one metric.
func ComparisonFigure(title, ylabel string, series []align.NamedSeries, log bool) Figure {
	return Figure{
		Title: title,
		X:     KAxis(series...),
		Primary: Layer{
			Axis:   Axis{Label: ylabel, Log: log},
			Series: series,
		},
	}
}

// Layers returns the primary layer followed by the secondary one, if any
func (f Figure) Layers() []Layer {
	layers := []Layer{f.Primary}
	if f.Secondary != nil {
		layers = append(layers, *f.Secondary)
	}
	return layers
}

// drawable returns the points of s that can be drawn on an axis.
// Non-finite values are dropped, as are non-positive values on a log axis.
func drawable(s align.NamedSeries, log bool) []align.Point {
	pts := make([]align.Point, 0, len(s.Points))
	dropped := 0
	for _, p := range s.Points {
		if math.IsInf(p.Value, 0) || math.IsNaN(p.Value) || (log && p.Value <= 0) {
			dropped++
			continue
		}
		pts = append(pts, p)
	}
	if dropped > 0 {
		slog.Warn("Omitting points that cannot be drawn", "series", s.Name, "count", dropped, "log", log)
	}
	return pts
}

// dataRange returns the value range over pts, ok is false when pts is empty
func dataRange(series [][]align.Point) (lo, hi float64, ok bool) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, pts := range series {
		for _, p := range pts {
			lo = math.Min(lo, p.Value)
			hi = math.Max(hi, p.Value)
		}
	}
	if lo > hi {
		return 0, 0, false
	}
	return lo, hi, true
}
