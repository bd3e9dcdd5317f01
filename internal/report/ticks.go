package report

import (
	"math"
	"strconv"
)

// tick is a library-neutral tick mark; minor ticks have no label
type tick struct {
	Value float64
	Label string
}

// stepTicks places major ticks every step and unlabeled minor ticks every
// minor between lo and hi.
func stepTicks(lo, hi, step, minor float64) []tick {
	if step <= 0 || hi < lo {
		return nil
	}

	var ticks []tick
	const eps = 1e-9
	first := math.Ceil(lo/step - eps)
	for i := first; i*step <= hi+eps*step; i++ {
		v := i * step
		ticks = append(ticks, tick{Value: v, Label: formatTick(v)})
	}

	if minor > 0 && minor < step {
		perMajor := step / minor
		first = math.Ceil(lo/minor - eps)
		for i := first; i*minor <= hi+eps*minor; i++ {
			if r := math.Mod(math.Abs(i), perMajor); r < eps || perMajor-r < eps {
				continue // already a major tick
			}
			ticks = append(ticks, tick{Value: i * minor})
		}
	}
	return ticks
}

// niceRange widens [lo, hi] to round numbers and picks a tick step that
// yields roughly n intervals.
func niceRange(lo, hi float64, n int) (min, max, step float64) {
	if hi <= lo {
		pad := math.Max(math.Abs(lo)*0.1, 1)
		lo, hi = lo-pad, hi+pad
	}

	step = niceNumber((hi - lo) / float64(n))
	min = math.Floor(lo/step) * step
	max = math.Ceil(hi/step) * step
	return min, max, step
}

func niceNumber(x float64) float64 {
	exp := math.Floor(math.Log10(x))
	frac := x / math.Pow(10, exp)

	var nice float64
	switch {
	case frac <= 1:
		nice = 1
	case frac <= 2:
		nice = 2
	case frac <= 5:
		nice = 5
	default:
		nice = 10
	}
	return nice * math.Pow(10, exp)
}

// decades returns the powers of ten spanning [lo, hi], both > 0
func decades(lo, hi float64) (first, last int) {
	return int(math.Floor(math.Log10(lo))), int(math.Ceil(math.Log10(hi)))
}

func formatTick(v float64) string {
	if math.Abs(v) < 1e-12 {
		v = 0
	}
	return strconv.FormatFloat(v, 'g', 6, 64)
}

func formatDecade(exp int) string {
	return strconv.FormatFloat(math.Pow(10, float64(exp)), 'g', -1, 64)
}

func pow10(exp int) float64 {
	return math.Pow(10, float64(exp))
}
