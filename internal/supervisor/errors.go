package supervisor

import (
	"errors"
	"fmt"
)

var (
	ErrNoSink      = errors.New("no sink configured or started")
	ErrNoSource    = errors.New("no source configured or started")
	ErrTaskFailure = errors.New("task failure")
)

// TaskFailureError wraps the error of the first adapter task that failed.
type TaskFailureError struct {
	Kind string
	Name string
	Err  error
}

func (e *TaskFailureError) Error() string {
	return fmt.Sprintf("%s %q failed: %v", e.Kind, e.Name, e.Err)
}

func (e *TaskFailureError) Unwrap() error { return e.Err }

func (e *TaskFailureError) Is(target error) bool { return target == ErrTaskFailure }
