package task

import (
	"errors"
	"fmt"
)

// Lifecycle ordering errors.
var (
	// ErrAlreadySubmitted is returned by Submit on a task that already
	// has a remote ID. Submission is not idempotent on the remote side;
	// submitting twice would create two remote tasks.
	ErrAlreadySubmitted = errors.New("task has already been submitted")

	// ErrNotSubmitted is returned by Poll on a task without a remote ID.
	ErrNotSubmitted = errors.New("task has not been submitted")

	// ErrNoRequest is returned by Submit when BuildRequest has not run.
	ErrNoRequest = errors.New("task has no request built")

	// ErrNoInputLocation is returned by BuildRequest when the input list
	// has not been published to a remotely readable location.
	ErrNoInputLocation = errors.New("task input list has no remote location")
)

// ValidationError is a local, pre-submission rejection of a task's input
// set. It is never sent to the remote service; the caller fixes the input
// and constructs again.
type ValidationError struct {
	Name   string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid input set for task %q: %s", e.Name, e.Reason)
}
