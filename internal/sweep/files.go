package sweep

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cwbudde/ksweep/internal/compare"
	"github.com/cwbudde/ksweep/internal/metric"
)

// FileResult is the outcome of comparing one explicit candidate file.
type FileResult struct {
	Path   string
	Result metric.Result
}

// ExpandCandidates resolves command-line candidates: a single argument is a
// glob pattern, several arguments are taken literally.
func ExpandCandidates(args []string) ([]string, error) {
	switch len(args) {
	case 0:
		return nil, nil
	case 1:
		matches, err := filepath.Glob(args[0])
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", args[0], err)
		}
		sort.Strings(matches)
		return matches, nil
	default:
		return args, nil
	}
}

// CompareFiles compares reference against each candidate in order and stops
// at the first failure. The results gathered before the failure are returned
// alongside a *FileError.
func CompareFiles(ctx context.Context, c compare.Comparator, reference string, candidates []string, fn func(FileResult)) ([]FileResult, error) {
	results := make([]FileResult, 0, len(candidates))

	for _, path := range candidates {
		select {
		case <-ctx.Done():
			return results, &FileError{Path: path, Err: ctx.Err()}
		default:
		}

		res, err := c.Compare(ctx, reference, path)
		if err != nil {
			return results, &FileError{Path: path, Err: err}
		}

		fr := FileResult{Path: path, Result: res}
		results = append(results, fr)
		if fn != nil {
			fn(fr)
		}
		slog.Debug("Compared file", "candidate", path, "mse", res.MSE)
	}

	return results, nil
}

// FormatFileResult renders a result line padded so results align for paths
// up to width characters.
func FormatFileResult(fr FileResult, width int) string {
	label := fr.Path + ":"
	if pad := width + 1 - len(label); pad > 0 {
		label += strings.Repeat(" ", pad)
	}
	return label + " " + fr.Result.String()
}

// LabelWidth returns the longest path length in paths
func LabelWidth(paths []string) int {
	width := 0
	for _, p := range paths {
		if len(p) > width {
			width = len(p)
		}
	}
	return width
}
