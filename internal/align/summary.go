package align

import (
	"math"

	"github.com/cwbudde/ksweep/internal/metric"
	"github.com/montanaflynn/stats"
)

// Summary describes the finite values of a series.
type Summary struct {
	Count   int
	Skipped int // non-finite values left out
	Min     float64
	Max     float64
	Mean    float64
	Median  float64
	StdDev  float64 // sample standard deviation, 0 for a single value
	BestK   int     // key of the maximum (minimum for MSE)
}

// Summarize computes summary statistics over the finite values of s.
// An all non-finite series yields a zero Summary with Skipped set.
func Summarize(s NamedSeries) (Summary, error) {
	var data []float64
	var keys []int
	sum := Summary{}
	for _, p := range s.Points {
		if math.IsInf(p.Value, 0) || math.IsNaN(p.Value) {
			sum.Skipped++
			continue
		}
		data = append(data, p.Value)
		keys = append(keys, p.K)
	}
	if len(data) == 0 {
		return sum, nil
	}

	var err error
	sum.Count = len(data)
	if sum.Min, err = stats.Min(data); err != nil {
		return sum, err
	}
	if sum.Max, err = stats.Max(data); err != nil {
		return sum, err
	}
	if sum.Mean, err = stats.Mean(data); err != nil {
		return sum, err
	}
	if sum.Median, err = stats.Median(data); err != nil {
		return sum, err
	}
	if len(data) > 1 {
		if sum.StdDev, err = stats.StandardDeviationSample(data); err != nil {
			return sum, err
		}
	}

	best := sum.Max
	if s.Metric == metric.KindMSE {
		best = sum.Min
	}
	for i, v := range data {
		if v == best {
			sum.BestK = keys[i]
			break
		}
	}

	return sum, nil
}
