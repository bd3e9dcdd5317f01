package sweep

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/cwbudde/ksweep/internal/store"
)

// Persist stores the outcome of a sweep. A complete sweep is saved under name
// and any leftover partial set is removed; an unfinished one is saved under
// the partial name so it can be resumed. sweepErr is returned unchanged when
// persisting succeeds; a failed partial save yields a *PartialSaveError.
func Persist(st store.Store, name string, rs *store.ResultSet, sweepErr error) error {
	if sweepErr == nil {
		if err := st.SaveResults(name, rs); err != nil {
			return fmt.Errorf("failed to save results %s: %w", name, err)
		}
		if err := st.DeleteResults(store.PartialName(name)); err != nil && !errors.Is(err, store.ErrNotFound) {
			slog.Warn("Failed to remove partial results", "name", name, "error", err)
		}
		return nil
	}

	if rs.Len() == 0 {
		return sweepErr
	}

	partial := store.PartialName(name)
	if err := st.SaveResults(partial, rs); err != nil {
		return &PartialSaveError{Name: partial, Sweep: sweepErr, Err: err}
	}

	slog.Info("Partial results saved", "name", partial, "keys", rs.Len())
	return sweepErr
}

// LoadPartial returns the partial result set stored for name.
func LoadPartial(st store.Store, name string) (*store.ResultSet, error) {
	rs, err := st.LoadResults(store.PartialName(name))
	if err != nil {
		return nil, fmt.Errorf("no partial results for %s: %w", name, err)
	}
	return rs, nil
}
