package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/cwbudde/ksweep/internal/metric"
)

// metricGroup holds one metric's values keyed by K.
// It marshals with keys in ascending numeric order.
type metricGroup map[int]Value

func (g metricGroup) MarshalJSON() ([]byte, error) {
	keys := make([]int, 0, len(g))
	for k := range g {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(strconv.Quote(strconv.Itoa(k)))
		buf.WriteByte(':')
		data, err := g[k].MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(data)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// resultDocument is the persisted shape:
// {"MSE": {"1": v, ...}, "PSNR": {...}, "SSIM": {...}}
type resultDocument struct {
	MSE  metricGroup `json:"MSE"`
	PSNR metricGroup `json:"PSNR"`
	SSIM metricGroup `json:"SSIM"`
}

// Marshal encodes rs as an indented result document
func Marshal(rs *ResultSet) ([]byte, error) {
	doc := resultDocument{
		MSE:  make(metricGroup, rs.Len()),
		PSNR: make(metricGroup, rs.Len()),
		SSIM: make(metricGroup, rs.Len()),
	}
	for _, k := range rs.Keys() {
		r, _ := rs.Get(k)
		doc.MSE[k] = Value(r.MSE)
		doc.PSNR[k] = Value(r.PSNR)
		doc.SSIM[k] = Value(r.SSIM)
	}

	data, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("failed to serialize results: %w", err)
	}
	return append(data, '\n'), nil
}

// bareNonFinite matches the unquoted Infinity/NaN tokens that Python's json
// module writes for non-finite floats.
var bareNonFinite = regexp.MustCompile(`(:\s*)(-?Infinity|NaN)\b`)

// Unmarshal decodes a result document. Every metric group must be present
// and all groups must cover the same positive integer keys.
func Unmarshal(data []byte) (*ResultSet, error) {
	data = bareNonFinite.ReplaceAll(data, []byte(`${1}"${2}"`))

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &CorruptError{Reason: "invalid JSON", Err: err}
	}

	groups := make(map[metric.Kind]map[int]float64, len(metric.Kinds))
	for _, kind := range metric.Kinds {
		msg, ok := raw[string(kind)]
		if !ok || string(bytes.TrimSpace(msg)) == "null" {
			return nil, &CorruptError{Reason: fmt.Sprintf("missing metric group %s", kind)}
		}

		var values map[string]Value
		if err := json.Unmarshal(msg, &values); err != nil {
			return nil, &CorruptError{Reason: fmt.Sprintf("invalid metric group %s", kind), Err: err}
		}

		parsed := make(map[int]float64, len(values))
		for key, v := range values {
			k, err := strconv.Atoi(key)
			if err != nil || k <= 0 {
				return nil, &CorruptError{Reason: fmt.Sprintf("invalid key %q in %s", key, kind)}
			}
			if _, dup := parsed[k]; dup {
				return nil, &CorruptError{Reason: fmt.Sprintf("duplicate key %d in %s", k, kind)}
			}
			parsed[k] = float64(v)
		}
		groups[kind] = parsed
	}

	keys := unionKeys(groups)
	rs := NewResultSet()
	for _, k := range keys {
		for _, kind := range metric.Kinds {
			if _, ok := groups[kind][k]; !ok {
				return nil, &CorruptError{Reason: fmt.Sprintf("key %d missing from %s", k, kind)}
			}
		}

		r := metric.Result{
			MSE:  groups[metric.KindMSE][k],
			PSNR: groups[metric.KindPSNR][k],
			SSIM: groups[metric.KindSSIM][k],
		}
		if r.MSE < 0 {
			return nil, &CorruptError{Reason: fmt.Sprintf("negative MSE %g at key %d", r.MSE, k)}
		}
		if err := rs.Add(k, r); err != nil {
			return nil, &CorruptError{Err: err}
		}
	}

	return rs, nil
}

func unionKeys(groups map[metric.Kind]map[int]float64) []int {
	seen := make(map[int]struct{})
	for _, g := range groups {
		for k := range g {
			seen[k] = struct{}{}
		}
	}
	keys := make([]int, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

// SaveFile atomically writes rs to path.
// Uses temp file + rename so an interrupted write never leaves a partial file.
func SaveFile(path string, rs *ResultSet) error {
	if rs == nil {
		return fmt.Errorf("result set cannot be nil")
	}

	data, err := Marshal(rs)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create result directory: %w", err)
		}
	}

	// Write to temporary file first (atomic pattern)
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp result file: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename result file: %w", err)
	}

	slog.Debug("Results saved", "path", path, "keys", rs.Len())
	return nil
}

// LoadFile reads a result document from path
func LoadFile(path string) (*ResultSet, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, &NotFoundError{Name: path}
	} else if err != nil {
		return nil, fmt.Errorf("failed to read result file: %w", err)
	}

	rs, err := Unmarshal(data)
	if err != nil {
		var corrupt *CorruptError
		if errors.As(err, &corrupt) {
			corrupt.Name = path
		}
		return nil, err
	}

	slog.Debug("Results loaded", "path", path, "keys", rs.Len())
	return rs, nil
}
