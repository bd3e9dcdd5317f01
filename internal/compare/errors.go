package compare

import "strconv"

// ErrComparisonFailed matches any ComparisonFailedError via errors.Is.
var ErrComparisonFailed = &ComparisonFailedError{}

// ComparisonFailedError is returned when the comparator reports an error,
// cannot be started, or exceeds its timeout.
type ComparisonFailedError struct {
	Message string
	Stderr  string
	Timeout bool
}

func (e *ComparisonFailedError) Error() string {
	if e.Message == "" {
		return "comparison failed"
	}
	return "comparison failed: " + e.Message
}

func (e *ComparisonFailedError) Is(target error) bool {
	_, ok := target.(*ComparisonFailedError)
	return ok
}

// ErrMalformedReport matches any MalformedReportError via errors.Is.
var ErrMalformedReport = &MalformedReportError{}

// MalformedReportError is returned when a report does not match the
// expected layout. Line is 0-indexed; -1 means the report as a whole.
type MalformedReportError struct {
	Line    int
	Content string
	Reason  string
	Err     error
}

func (e *MalformedReportError) Error() string {
	msg := "malformed report"
	if e.Line >= 0 {
		msg += " at line " + strconv.Itoa(e.Line)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Content != "" {
		msg += " (" + strconv.Quote(e.Content) + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MalformedReportError) Unwrap() error {
	return e.Err
}

func (e *MalformedReportError) Is(target error) bool {
	_, ok := target.(*MalformedReportError)
	return ok
}
