package addon

import "errors"

// Addon metadata errors.
var (
	// ErrAddonNotFound is returned when an addon id cannot be resolved.
	ErrAddonNotFound = errors.New("addon not found")

	// ErrMissingDescriptor is returned when a directory has no addon.xml.
	ErrMissingDescriptor = errors.New("addon.xml not found")

	// ErrMissingID is returned when addon.xml has no id attribute.
	ErrMissingID = errors.New("addon: id is required")

	// ErrInvalidID is returned when the addon id contains illegal characters.
	ErrInvalidID = errors.New("addon: id must contain only letters, digits, dots, hyphens and underscores")

	// ErrMissingVersion is returned when addon.xml has no version attribute.
	ErrMissingVersion = errors.New("addon: version is required")

	// ErrNoLibrary is returned when the extension point has no library attribute.
	ErrNoLibrary = errors.New("addon: library parameter is missing from extension point")

	// ErrDependencyNotFound is returned when a required dependency is missing.
	ErrDependencyNotFound = errors.New("addon dependency not found")

	// ErrNoRoute is returned when no route matches a URL path.
	ErrNoRoute = errors.New("no route matches path")
)
