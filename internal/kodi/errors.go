package kodi

import (
	"errors"
	"fmt"
)

// Sentinel errors for the simulator.
var (
	// ErrInvalidURL is returned when a URL is not a plugin:// URL.
	ErrInvalidURL = errors.New("invalid plugin url")

	// ErrNotPlugin is returned when dispatching to an addon that has no plugin entry point.
	ErrNotPlugin = errors.New("addon is not a plugin source")

	// ErrNoEntryPoint is returned when no loader provides an entry point.
	ErrNoEntryPoint = errors.New("no entry point")

	// ErrNotBound is returned when a host API call has no active request context.
	ErrNotBound = errors.New("no active request context")

	// ErrAlreadyFinished is returned when a finished cycle is finished again or modified.
	ErrAlreadyFinished = errors.New("request already finished")

	// ErrMissingTarget is returned when a list item has no target URL.
	ErrMissingTarget = errors.New("list item has no target url")

	// ErrNoOutput is returned when a plugin returns without producing anything.
	ErrNoOutput = errors.New("plugin produced nothing")

	// ErrHandleMismatch is returned when a call passes a handle other than the bound one.
	ErrHandleMismatch = errors.New("handle does not match active request")

	// ErrInvalidArgument is returned for shim arguments of the wrong type or range.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrReportedFailure is returned when the plugin finishes with succeeded=false.
	ErrReportedFailure = errors.New("plugin reported failure")

	// ErrUnknownSpecialPath is returned for special:// roots the host does not define.
	ErrUnknownSpecialPath = errors.New("unknown special path")

	// ErrNoHistory is returned by Back when the session is empty.
	ErrNoHistory = errors.New("no navigation history")

	// ErrNoSelection is returned when selecting an item that does not exist.
	ErrNoSelection = errors.New("no such item")

	// ErrTimeout is returned when a dispatch exceeds its deadline.
	ErrTimeout = errors.New("dispatch timed out")
)

// BindingError indicates a host API call made outside a dispatch cycle.
// It signals misuse of the simulator rather than a plugin bug.
type BindingError struct {
	Op string
}

func (e *BindingError) Error() string {
	return fmt.Sprintf("kodi: %s: %v", e.Op, ErrNotBound)
}

func (e *BindingError) Unwrap() error {
	return ErrNotBound
}

// ContractViolation indicates the plugin broke the host API contract.
type ContractViolation struct {
	Op  string
	Err error
}

func (e *ContractViolation) Error() string {
	return fmt.Sprintf("kodi: contract violation in %s: %v", e.Op, e.Err)
}

func (e *ContractViolation) Unwrap() error {
	return e.Err
}

// violation creates a ContractViolation for op.
func violation(op string, err error) *ContractViolation {
	return &ContractViolation{Op: op, Err: err}
}

// violationf creates a ContractViolation wrapping ErrInvalidArgument.
func violationf(op, format string, args ...any) *ContractViolation {
	return &ContractViolation{Op: op, Err: fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))}
}

// PluginRuntimeError indicates the plugin raised an error.
type PluginRuntimeError struct {
	AddonID string
	URL     string
	Err     error
}

func (e *PluginRuntimeError) Error() string {
	return fmt.Sprintf("kodi: plugin %s failed on %s: %v", e.AddonID, e.URL, e.Err)
}

func (e *PluginRuntimeError) Unwrap() error {
	return e.Err
}

// NavigationError indicates an invalid session navigation.
type NavigationError struct {
	Op  string
	Err error
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("kodi: %s: %v", e.Op, e.Err)
}

func (e *NavigationError) Unwrap() error {
	return e.Err
}

// IsContractViolation reports whether err is or wraps a ContractViolation.
func IsContractViolation(err error) bool {
	var cv *ContractViolation
	return errors.As(err, &cv)
}

// IsBindingError reports whether err is or wraps a BindingError.
func IsBindingError(err error) bool {
	var be *BindingError
	return errors.As(err, &be)
}
