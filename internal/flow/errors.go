package flow

import "fmt"

// ValidationError marks a request rejected before any I/O, such as running
// the flow on an unknown task or archiving a task twice.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation: " + e.Reason
}

// RepositoryError marks a persistence failure. It is fatal to the current
// step: the flow halts without transitioning state, so a later RunFlow
// resumes from the last committed status.
type RepositoryError struct {
	Op  string
	Err error
}

func (e *RepositoryError) Error() string {
	return fmt.Sprintf("repository %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying store error.
func (e *RepositoryError) Unwrap() error {
	return e.Err
}
