package bus

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned by Recv once every publisher is closed and no
	// value is left to read.
	ErrClosed = errors.New("bus closed")

	// ErrLagged matches any *LaggedError.
	ErrLagged = errors.New("bus receiver lagged")
)

// LaggedError is informational: the subscriber can keep calling Recv.
type LaggedError struct {
	Count uint64
}

func (e *LaggedError) Error() string {
	return fmt.Sprintf("bus receiver lagged: %d messages skipped", e.Count)
}

func (e *LaggedError) Is(target error) bool { return target == ErrLagged }
