// Package align turns stored result sets into series that share the same
// keys, ready for plotting side by side.
package align

import (
	"errors"
	"fmt"
	"sort"

	"github.com/cwbudde/ksweep/internal/metric"
	"github.com/cwbudde/ksweep/internal/store"
)

// ErrNoCommonKeys is returned when the inputs share no key at all.
var ErrNoCommonKeys = errors.New("result sets have no keys in common")

// ErrMissingKey is returned when a requested key is absent from an input.
// Use errors.Is(err, ErrMissingKey) to check for this error.
var ErrMissingKey = &MissingKeyError{}

// MissingKeyError names the first requested key an input lacks.
type MissingKeyError struct {
	K      int
	Series string
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("key %d missing from series %q", e.K, e.Series)
}

func (e *MissingKeyError) Is(target error) bool {
	_, ok := target.(*MissingKeyError)
	return ok
}

// Input is a labeled result set to align.
type Input struct {
	Name    string
	Results *store.ResultSet
}

// Point is one (K, value) sample
type Point struct {
	K     int
	Value float64
}

// NamedSeries is a labeled sequence of points in ascending K order.
type NamedSeries struct {
	Name   string
	Metric metric.Kind
	Points []Point
}

// Keys returns the K of every point
func (s NamedSeries) Keys() []int {
	keys := make([]int, len(s.Points))
	for i, p := range s.Points {
		keys[i] = p.K
	}
	return keys
}

// Values returns the value of every point
func (s NamedSeries) Values() []float64 {
	values := make([]float64, len(s.Points))
	for i, p := range s.Points {
		values[i] = p.Value
	}
	return values
}

// XY returns the points as parallel float slices
func (s NamedSeries) XY() (xs, ys []float64) {
	xs = make([]float64, len(s.Points))
	ys = make([]float64, len(s.Points))
	for i, p := range s.Points {
		xs[i] = float64(p.K)
		ys[i] = p.Value
	}
	return xs, ys
}

// CommonKeys returns the keys present in every input, ascending.
func CommonKeys(inputs []Input) []int {
	if len(inputs) == 0 {
		return nil
	}

	common := inputs[0].Results.Keys()
	for _, in := range inputs[1:] {
		kept := common[:0:0]
		for _, k := range common {
			if in.Results.Has(k) {
				kept = append(kept, k)
			}
		}
		common = kept
	}
	return common
}

// Align extracts kind from every input over the same keys.
// With keys == nil the intersection of all inputs is used. An explicit key
// list is deduplicated and sorted; the first key absent from an input (inputs
// in order, keys ascending) fails with *MissingKeyError.
func Align(inputs []Input, kind metric.Kind, keys []int) ([]NamedSeries, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("no result sets to align")
	}
	kind, err := metric.ParseKind(string(kind))
	if err != nil {
		return nil, err
	}

	if keys == nil {
		keys = CommonKeys(inputs)
		if len(keys) == 0 {
			return nil, ErrNoCommonKeys
		}
	} else {
		if keys, err = normalizeKeys(keys); err != nil {
			return nil, err
		}
	}

	series := make([]NamedSeries, 0, len(inputs))
	for _, in := range inputs {
		s := NamedSeries{Name: in.Name, Metric: kind, Points: make([]Point, 0, len(keys))}
		for _, k := range keys {
			r, ok := in.Results.Get(k)
			if !ok {
				return nil, &MissingKeyError{K: k, Series: in.Name}
			}
			s.Points = append(s.Points, Point{K: k, Value: r.Value(kind)})
		}
		series = append(series, s)
	}

	return series, nil
}

// Filter returns the explicit keys present in every input, for callers that
// want partial coverage instead of a MissingKeyError.
func Filter(inputs []Input, keys []int) []int {
	var kept []int
	for _, k := range keys {
		present := true
		for _, in := range inputs {
			if !in.Results.Has(k) {
				present = false
				break
			}
		}
		if present {
			kept = append(kept, k)
		}
	}
	return kept
}

func normalizeKeys(keys []int) ([]int, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("explicit key list is empty")
	}

	seen := make(map[int]struct{}, len(keys))
	out := make([]int, 0, len(keys))
	for _, k := range keys {
		if k <= 0 {
			return nil, fmt.Errorf("invalid key %d: keys must be positive", k)
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Ints(out)
	return out, nil
}
