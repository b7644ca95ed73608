package leads

import "fmt"

// FormatError represents a problem with the uploaded CSV as a whole: missing
// required columns, an empty file, or exceeding the row cap. It rejects the
// submission before any job is created.
type FormatError struct {
	Message string
	Cause   error
}

func (e *FormatError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("csv format error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("csv format error: %s", e.Message)
}

func (e *FormatError) Unwrap() error {
	return e.Cause
}
