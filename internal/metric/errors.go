package metric

// ErrDimensionMismatch is returned when reference and candidate differ in size.
// Use errors.Is(err, ErrDimensionMismatch) to check for this error.
var ErrDimensionMismatch = &DimensionError{}

// DimensionError reports the two mismatching image shapes.
type DimensionError struct {
	Reference string
	Candidate string
}

func (e *DimensionError) Error() string {
	if e.Reference == "" && e.Candidate == "" {
		return "dimension mismatch"
	}
	return "dimension mismatch: reference " + e.Reference + ", candidate " + e.Candidate
}

func (e *DimensionError) Is(target error) bool {
	_, ok := target.(*DimensionError)
	return ok
}
