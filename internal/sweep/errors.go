package sweep

import "fmt"

// Error reports the key at which a sweep stopped.
// LastOK is the largest completed key below K, including keys carried over
// by Resume, or 0 if there is none.
type Error struct {
	K      int
	LastOK int
	Err    error
}

func (e *Error) Error() string {
	if e.LastOK > 0 {
		return fmt.Sprintf("sweep failed at K=%d (last successful K=%d): %v", e.K, e.LastOK, e.Err)
	}
	return fmt.Sprintf("sweep failed at K=%d (no successful K): %v", e.K, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// FileError reports the candidate file that failed in list mode.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("compare %s: %v", e.Path, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// PartialSaveError reports a failed sweep whose completed keys could not be
// stored under the partial name. It unwraps to both failures.
type PartialSaveError struct {
	Name  string
	Sweep error
	Err   error
}

func (e *PartialSaveError) Error() string {
	return fmt.Sprintf("%v (saving partial results %s failed: %v)", e.Sweep, e.Name, e.Err)
}

func (e *PartialSaveError) Unwrap() []error {
	return []error{e.Sweep, e.Err}
}
