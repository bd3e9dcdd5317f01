package store

// Store defines the interface for result set persistence.
//
// Error handling conventions:
//   - Return nil error on success
//   - Return ErrNotFound if the result set doesn't exist (for Load/Delete)
//   - Return ErrCorrupt if stored data cannot be reconstructed into a ResultSet
//   - Wrap underlying errors with context using fmt.Errorf("context: %w", err)
type Store interface {
	// SaveResults replaces the result set stored under name.
	// Writes are whole-set replacements; a failed write leaves the previous
	// version intact.
	SaveResults(name string, rs *ResultSet) error

	// LoadResults retrieves the result set stored under name.
	LoadResults(name string) (*ResultSet, error)

	// ListResults returns metadata for all stored result sets, sorted by name.
	ListResults() ([]ResultInfo, error)

	// DeleteResults removes the result set and its associated artifacts.
	DeleteResults(name string) error

	// Close releases resources held by the store.
	Close() error
}

// ErrNotFound is returned when a requested result set does not exist.
// Use errors.Is(err, ErrNotFound) to check for this error.
var ErrNotFound = &NotFoundError{}

// NotFoundError represents a missing result set or result file.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	if e.Name != "" {
		return "result set not found: " + e.Name
	}
	return "result set not found"
}

func (e *NotFoundError) Is(target error) bool {
	_, ok := target.(*NotFoundError)
	return ok
}

// ErrCorrupt is returned when stored data is not a complete result set.
// Use errors.Is(err, ErrCorrupt) to check for this error.
var ErrCorrupt = &CorruptError{}

// CorruptError describes why stored data could not be turned into a ResultSet.
type CorruptError struct {
	Name   string
	Reason string
	Err    error
}

func (e *CorruptError) Error() string {
	msg := "corrupt result set"
	if e.Name != "" {
		msg += " " + e.Name
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CorruptError) Unwrap() error {
	return e.Err
}

func (e *CorruptError) Is(target error) bool {
	_, ok := target.(*CorruptError)
	return ok
}
