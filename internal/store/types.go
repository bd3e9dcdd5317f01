package store

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cwbudde/ksweep/internal/metric"
)

// ResultSet maps block size K to the metrics measured for it.
// Keys are unique positive integers; iteration order is always ascending K.
type ResultSet struct {
	results map[int]metric.Result
}

// NewResultSet creates an empty result set
func NewResultSet() *ResultSet {
	return &ResultSet{results: make(map[int]metric.Result)}
}

// Add records the result for k. Keys must be positive and not yet present.
func (rs *ResultSet) Add(k int, r metric.Result) error {
	if k <= 0 {
		return fmt.Errorf("invalid key %d: keys must be positive", k)
	}
	if _, exists := rs.results[k]; exists {
		return fmt.Errorf("duplicate key %d", k)
	}
	if rs.results == nil {
		rs.results = make(map[int]metric.Result)
	}
	rs.results[k] = r
	return nil
}

// Get returns the result for k
func (rs *ResultSet) Get(k int) (metric.Result, bool) {
	if rs == nil {
		return metric.Result{}, false
	}
	r, ok := rs.results[k]
	return r, ok
}

// Has reports whether k is present
func (rs *ResultSet) Has(k int) bool {
	_, ok := rs.Get(k)
	return ok
}

// Len returns the number of keys
func (rs *ResultSet) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.results)
}

// Keys returns all keys in ascending order
func (rs *ResultSet) Keys() []int {
	if rs == nil {
		return nil
	}
	keys := make([]int, 0, len(rs.results))
	for k := range rs.results {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

// Range returns the smallest and largest key; ok is false when empty
func (rs *ResultSet) Range() (lo, hi int, ok bool) {
	keys := rs.Keys()
	if len(keys) == 0 {
		return 0, 0, false
	}
	return keys[0], keys[len(keys)-1], true
}

// Values extracts one metric for every key
func (rs *ResultSet) Values(kind metric.Kind) map[int]float64 {
	values := make(map[int]float64, rs.Len())
	if rs == nil {
		return values
	}
	for k, r := range rs.results {
		values[k] = r.Value(kind)
	}
	return values
}

// Clone returns an independent copy
func (rs *ResultSet) Clone() *ResultSet {
	out := NewResultSet()
	if rs == nil {
		return out
	}
	for k, r := range rs.results {
		out.results[k] = r
	}
	return out
}

// PartialSuffix marks result sets persisted from an unfinished sweep
const PartialSuffix = ".partial"

// PartialName returns the name under which an unfinished sweep is stored
func PartialName(name string) string {
	return name + PartialSuffix
}

// IsPartial reports whether name refers to an unfinished sweep
func IsPartial(name string) bool {
	return strings.HasSuffix(name, PartialSuffix)
}

// ResultInfo describes a stored result set without its values.
type ResultInfo struct {
	// Name identifies the result set within its store (e.g. "sliding_1")
	Name string `json:"name"`

	// Keys is the number of K values present
	Keys int `json:"keys"`

	// MinK and MaxK bound the key range (zero when empty)
	MinK int `json:"minK"`
	MaxK int `json:"maxK"`

	// Updated records when the result set was last written
	Updated time.Time `json:"updated"`

	// Size is the on-disk size in bytes, 0 when not applicable
	Size int64 `json:"size"`
}

// Partial reports whether the info describes an unfinished sweep
func (i ResultInfo) Partial() bool {
	return IsPartial(i.Name)
}

// NewResultInfo summarizes rs under name
func NewResultInfo(name string, rs *ResultSet, updated time.Time, size int64) ResultInfo {
	info := ResultInfo{
		Name:    name,
		Keys:    rs.Len(),
		Updated: updated,
		Size:    size,
	}
	if lo, hi, ok := rs.Range(); ok {
		info.MinK, info.MaxK = lo, hi
	}
	return info
}

// Value is a float64 that survives JSON encoding when non-finite.
// Infinities and NaN are written as the strings "Infinity", "-Infinity"
// and "NaN".
type Value float64

func (v Value) MarshalJSON() ([]byte, error) {
	f := float64(v)
	switch {
	case math.IsInf(f, 1):
		return []byte(`"Infinity"`), nil
	case math.IsInf(f, -1):
		return []byte(`"-Infinity"`), nil
	case math.IsNaN(f):
		return []byte(`"NaN"`), nil
	}
	return json.Marshal(f)
}

func (v *Value) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		return fmt.Errorf("null is not a metric value")
	}

	if strings.HasPrefix(s, `"`) {
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
		switch text {
		case "Infinity", "+Infinity":
			*v = Value(math.Inf(1))
		case "-Infinity":
			*v = Value(math.Inf(-1))
		case "NaN":
			*v = Value(math.NaN())
		default:
			f, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return fmt.Errorf("invalid metric value %q", text)
			}
			*v = Value(f)
		}
		return nil
	}

	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*v = Value(f)
	return nil
}
