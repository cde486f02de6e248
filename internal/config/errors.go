package config

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("config not found")
	ErrParse    = errors.New("config parse")
)

// NotFoundError is returned when an explicit configuration path does not
// reference an existing file.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("config file not found: %s", e.Path)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// ParseError reports the layer that failed to load or extract.
type ParseError struct {
	Layer string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("config parse (%s): %v", e.Layer, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool { return target == ErrParse }
