package storage

import (
	"errors"
	"fmt"
)

// ErrMalformed is wrapped by ReadError when a store file exists but does not
// have the expected shape.
var ErrMalformed = errors.New("malformed recent workspaces store")

// ReadError reports a store file of a flavor that could not be read or
// parsed. Callers treat the flavor as having no recent workspaces.
type ReadError struct {
	Flavor string
	Path   string
	Err    error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("reading recent workspaces of %s from %s: %v", e.Flavor, e.Path, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}
