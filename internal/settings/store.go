// Package settings holds per-addon user settings.
//
// Values are layered: defaults declared by the addon sit below values
// persisted for the user profile. The store is shared by every dispatch
// cycle of an addon and is safe for concurrent use.
package settings

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
)

// Persister loads and saves the user layer of an addon's settings.
type Persister interface {
	Load(addonID string) (map[string]string, error)
	Save(addonID string, values map[string]string) error
}

// Store is the settings store for all addons.
type Store struct {
	mu sync.Mutex

	defaults map[string]map[string]string

	// user values, loaded lazily from the persister
	values map[string]map[string]string

	persister Persister
	logger    *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithPersister sets the backing persister. Without one, values live in memory only.
func WithPersister(p Persister) Option {
	return func(s *Store) {
		s.persister = p
	}
}

// WithLogger sets the logger for the store.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// NewStore creates an empty settings store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		defaults: make(map[string]map[string]string),
		values:   make(map[string]map[string]string),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Defaults registers the default values for an addon, replacing earlier defaults.
func (s *Store) Defaults(addonID string, defaults map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := make(map[string]string, len(defaults))
	for k, v := range defaults {
		m[k] = v
	}
	s.defaults[addonID] = m
}

// Get returns a setting and whether it is known.
func (s *Store) Get(addonID, key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := s.userLocked(addonID)[key]; ok {
		return v, true
	}
	v, ok := s.defaults[addonID][key]
	return v, ok
}

// Value returns a setting, or an empty string when it is unknown.
func (s *Store) Value(addonID, key string) string {
	v, _ := s.Get(addonID, key)
	return v
}

// Set stores a user value and persists the addon's user layer. A value
// that cannot be saved is not kept.
func (s *Store) Set(addonID, key, value string) error {
	if addonID == "" {
		return ErrEmptyAddonID
	}
	if key == "" {
		return ErrEmptyKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user := s.userLocked(addonID)
	prev, had := user[key]
	user[key] = value

	if s.persister == nil {
		return nil
	}
	if err := s.persister.Save(addonID, user); err != nil {
		if had {
			user[key] = prev
		} else {
			delete(user, key)
		}
		return fmt.Errorf("failed to save settings for %s: %w", addonID, err)
	}
	return nil
}

// All returns the merged settings for an addon.
func (s *Store) All(addonID string) map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	merged := make(map[string]string)
	for k, v := range s.defaults[addonID] {
		merged[k] = v
	}
	for k, v := range s.userLocked(addonID) {
		merged[k] = v
	}
	return merged
}

// Reset drops cached user values so they are reloaded from the persister.
func (s *Store) Reset(addonID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, addonID)
}

// Bool returns a setting as a boolean. Empty values are false.
func (s *Store) Bool(addonID, key string) (bool, error) {
	v := strings.ToLower(strings.TrimSpace(s.Value(addonID, key)))
	switch v {
	case "true", "1":
		return true, nil
	case "false", "0", "":
		return false, nil
	}
	return false, &TypeError{AddonID: addonID, Key: key, Value: v, Expected: "bool"}
}

// Int returns a setting as an integer. Empty values are zero.
func (s *Store) Int(addonID, key string) (int, error) {
	v := strings.TrimSpace(s.Value(addonID, key))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, &TypeError{AddonID: addonID, Key: key, Value: v, Expected: "integer"}
	}
	return n, nil
}

// Number returns a setting as a float. Empty values are zero.
func (s *Store) Number(addonID, key string) (float64, error) {
	v := strings.TrimSpace(s.Value(addonID, key))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, &TypeError{AddonID: addonID, Key: key, Value: v, Expected: "number"}
	}
	return n, nil
}

// userLocked returns the user layer for an addon, loading it on first use.
// Caller must hold s.mu.
func (s *Store) userLocked(addonID string) map[string]string {
	if user, ok := s.values[addonID]; ok {
		return user
	}

	user := make(map[string]string)
	if s.persister != nil {
		loaded, err := s.persister.Load(addonID)
		if err != nil {
			s.logger.Warn("failed to load settings", "addon", addonID, "error", err)
		}
		for k, v := range loaded {
			user[k] = v
		}
	}
	s.values[addonID] = user
	return user
}
