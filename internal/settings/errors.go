package settings

import (
	"errors"
	"fmt"
)

// Sentinel errors for the settings store.
var (
	// ErrEmptyAddonID is returned when an operation has no addon scope.
	ErrEmptyAddonID = errors.New("settings: empty addon id")

	// ErrEmptyKey is returned when a setting key is empty.
	ErrEmptyKey = errors.New("settings: empty key")
)

// TypeError indicates a stored value could not be converted to the requested type.
type TypeError struct {
	AddonID  string
	Key      string
	Value    string
	Expected string
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("settings: %s.%s: cannot convert %q to %s", e.AddonID, e.Key, e.Value, e.Expected)
}
