package provider

import "fmt"

// UnknownResultError is returned when a caller refers to a result id that is
// not part of the current result window, either because it was never
// returned by a search or because a newer search replaced the window.
type UnknownResultError struct {
	ID string
}

func (e *UnknownResultError) Error() string {
	return fmt.Sprintf("result %s not found", e.ID)
}
