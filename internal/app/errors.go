package app

import (
	"errors"
	"fmt"
)

// Application errors.
var (
	// ErrQuit signals that the user ended the session.
	ErrQuit = errors.New("quit requested")

	// ErrNotPluginAddon indicates the addon under development is not a plugin source.
	ErrNotPluginAddon = errors.New("addon is not a plugin source")

	// ErrTooManyRedirects indicates a chain of Container.Update builtins that does not settle.
	ErrTooManyRedirects = errors.New("too many container updates")
)

// InitError reports a component that failed to start.
type InitError struct {
	Component string
	Err       error
}

func (e *InitError) Error() string {
	return "init " + e.Component + ": " + e.Err.Error()
}

func (e *InitError) Unwrap() error {
	return e.Err
}

// DispatchError reports the final navigation of a session failing with no
// listing left to return to.
type DispatchError struct {
	URL string
	Err error
}

func (e *DispatchError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("dispatch %s failed", e.URL)
	}
	return fmt.Sprintf("dispatch %s failed: %v", e.URL, e.Err)
}

func (e *DispatchError) Unwrap() error {
	return e.Err
}
