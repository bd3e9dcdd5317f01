package sweep

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/cwbudde/ksweep/internal/compare"
	"github.com/cwbudde/ksweep/internal/metric"
	"github.com/cwbudde/ksweep/internal/store"
)

// Placeholder is replaced by K in candidate templates
const Placeholder = "{K}"

// Config describes one sweep.
type Config struct {
	// Name is the result set name the sweep is persisted under
	Name string

	// Reference is the fixed reference image
	Reference string

	// Template derives the candidate image path from K, e.g. "image/output_{K}.txt"
	Template string

	// From and To bound the inclusive key range
	From int
	To   int
}

// Validate checks the sweep configuration
func (c Config) Validate() error {
	if c.Reference == "" {
		return fmt.Errorf("reference image cannot be empty")
	}
	if !strings.Contains(c.Template, Placeholder) {
		return fmt.Errorf("candidate template %q must contain %s", c.Template, Placeholder)
	}
	if c.From < 1 {
		return fmt.Errorf("key range must start at 1 or above, got %d", c.From)
	}
	if c.From > c.To {
		return fmt.Errorf("invalid key range %d..%d", c.From, c.To)
	}
	return nil
}

// Candidate returns the candidate image path for k
func (c Config) Candidate(k int) string {
	return strings.ReplaceAll(c.Template, Placeholder, strconv.Itoa(k))
}

// Keys returns every key in the range in ascending order
func (c Config) Keys() []int {
	if c.From > c.To {
		return nil
	}
	keys := make([]int, 0, c.To-c.From+1)
	for k := c.From; k <= c.To; k++ {
		keys = append(keys, k)
	}
	return keys
}

// Progress is reported after every completed key.
type Progress struct {
	RunID   string
	K       int
	Done    int
	Total   int
	Result  metric.Result
	Elapsed time.Duration
}

// Runner drives a comparator across a key range.
type Runner struct {
	Config     Config
	Comparator compare.Comparator

	// Journal, if set, receives one entry per completed key
	Journal *store.JournalWriter

	// Observer, if set, is called after each completed key
	Observer func(Progress)

	tracker *runTracker
}

// NewRunner creates a runner for cfg
func NewRunner(cfg Config, c compare.Comparator) *Runner {
	return &Runner{
		Config:     cfg,
		Comparator: c,
	}
}

// Status returns a snapshot of the most recent run.
// The zero Run is returned before Run or Resume is called.
func (r *Runner) Status() Run {
	if r.tracker == nil {
		return Run{}
	}
	return r.tracker.snapshot()
}

// Run compares every key in the configured range in ascending order.
// On failure it returns the keys completed so far together with a *Error.
func (r *Runner) Run(ctx context.Context) (*store.ResultSet, error) {
	return r.Resume(ctx, nil)
}

// Resume continues a sweep from prior, comparing only the keys prior lacks.
// Keys already in prior are kept as they are. A Runner drives one sweep at a
// time.
func (r *Runner) Resume(ctx context.Context, prior *store.ResultSet) (*store.ResultSet, error) {
	if err := r.Config.Validate(); err != nil {
		return nil, err
	}
	if r.Comparator == nil {
		return nil, fmt.Errorf("no comparator configured")
	}
	if r.tracker != nil && !r.tracker.snapshot().Done() {
		return nil, fmt.Errorf("sweep %s is already running", r.Config.Name)
	}

	results := prior.Clone()
	var pending []int
	for _, k := range r.Config.Keys() {
		if !results.Has(k) {
			pending = append(pending, k)
		}
	}

	r.tracker = newRunTracker(r.Config)
	r.tracker.update(func(run *Run) {
		run.State = StateRunning
		run.Completed = results.Len()
	})
	runID := r.tracker.snapshot().ID

	slog.Info("Starting sweep",
		"run_id", runID,
		"name", r.Config.Name,
		"reference", r.Config.Reference,
		"from", r.Config.From,
		"to", r.Config.To,
		"pending", len(pending),
	)

	total := len(r.Config.Keys())
	start := time.Now()

	for _, k := range pending {
		// Check for cancellation before each comparison
		select {
		case <-ctx.Done():
			err := &Error{K: k, LastOK: lastBefore(results, k), Err: ctx.Err()}
			r.tracker.finish(StateCancelled, err)
			slog.Warn("Sweep cancelled", "run_id", runID, "k", k, "last_ok", err.LastOK)
			return results, err
		default:
		}

		candidate := r.Config.Candidate(k)
		compareStart := time.Now()

		res, err := r.Comparator.Compare(ctx, r.Config.Reference, candidate)
		if err != nil {
			sweepErr := &Error{K: k, LastOK: lastBefore(results, k), Err: err}
			state := StateFailed
			if ctx.Err() != nil {
				state = StateCancelled
			}
			r.tracker.finish(state, sweepErr)
			slog.Debug("Comparison failed", "run_id", runID, "k", k, "candidate", candidate, "error", err)
			return results, sweepErr
		}
		elapsed := time.Since(compareStart)

		if err := results.Add(k, res); err != nil {
			sweepErr := &Error{K: k, LastOK: lastBefore(results, k), Err: err}
			r.tracker.finish(StateFailed, sweepErr)
			return results, sweepErr
		}

		r.tracker.update(func(run *Run) {
			run.Completed = results.Len()
			run.LastK = k
		})

		if r.Journal != nil {
			if err := r.Journal.Write(store.NewJournalEntry(runID, k, candidate, res, elapsed)); err != nil {
				slog.Warn("Failed to write journal entry", "k", k, "error", err)
			} else if err := r.Journal.Flush(); err != nil {
				slog.Warn("Failed to flush journal", "k", k, "error", err)
			}
		}

		if r.Observer != nil {
			r.Observer(Progress{
				RunID:   runID,
				K:       k,
				Done:    results.Len(),
				Total:   total,
				Result:  res,
				Elapsed: elapsed,
			})
		}

		slog.Debug("Compared", "k", k, "candidate", candidate, "mse", res.MSE, "psnr", res.PSNR, "ssim", res.SSIM, "elapsed", elapsed)
	}

	r.tracker.finish(StateCompleted, nil)
	slog.Info("Sweep completed",
		"run_id", runID,
		"name", r.Config.Name,
		"keys", results.Len(),
		"elapsed", time.Since(start),
	)

	return results, nil
}

// lastBefore returns the largest key in rs below k, or 0
func lastBefore(rs *store.ResultSet, k int) int {
	last := 0
	for _, key := range rs.Keys() {
		if key >= k {
			break
		}
		last = key
	}
	return last
}
