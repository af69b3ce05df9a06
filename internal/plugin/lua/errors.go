package lua

import "errors"

// Errors for Lua state operations.
var (
	// ErrStateClosed is returned when operating on a closed state.
	ErrStateClosed = errors.New("lua state is closed")

	// ErrModuleNotFound is returned when require cannot locate a module.
	ErrModuleNotFound = errors.New("lua module not found")

	// ErrInvalidModuleName is returned for module names that could escape the search paths.
	ErrInvalidModuleName = errors.New("invalid lua module name")
)
