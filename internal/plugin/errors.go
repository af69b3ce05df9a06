package plugin

import "errors"

// Lua loader errors.
var (
	// ErrEntryOutsideAddon is returned when an entry file resolves outside
	// its addon directory.
	ErrEntryOutsideAddon = errors.New("entry file is outside the addon directory")

	// ErrDependencyNotFound is returned when an imported module addon is missing.
	ErrDependencyNotFound = errors.New("plugin dependency not found")
)
