package config

import (
	"errors"

	"github.com/dshills/addondev/internal/config/loader"
)

// Errors returned by configuration operations.
var (
	// ErrValidationFailed indicates a value outside its allowed range.
	ErrValidationFailed = errors.New("validation failed")

	// ErrUnknownSetting indicates a key that no setting declares.
	ErrUnknownSetting = errors.New("unknown setting")
)

// ParseError represents an error while parsing a configuration file.
type ParseError = loader.ParseError
