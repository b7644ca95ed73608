package generate

import "fmt"

// Error represents a failure to generate a personalized email for one lead.
// It is record-level: the engine records it as a failed outcome and the job
// continues.
type Error struct {
	Identity string
	Message  string
	Cause    error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("generation failed for %s: %s: %v", e.Identity, e.Message, e.Cause)
	}
	return fmt.Sprintf("generation failed for %s: %s", e.Identity, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}
