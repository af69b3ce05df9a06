// Package cache persists plugin listings across runs.
//
// A FileStore keeps one JSON document per canonical plugin URL. Next to
// the Result itself each document carries a "cache" object with the
// write time, the addon version that produced it and a read counter.
// Entries older than the maximum age, or written by a different addon
// version, are discarded on load.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dshills/addondev/internal/kodi"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Fields of the bookkeeping object stamped into each document.
const (
	fieldStored  = "cache.stored_at"
	fieldVersion = "cache.addon_version"
	fieldReads   = "cache.reads"
)

// ext is the entry file extension.
const ext = ".json"

// VersionFunc returns the installed version of an addon, or "" if unknown.
type VersionFunc func(addonID string) string

// FileStore is a directory of cached Results. It implements kodi.DiskCache.
type FileStore struct {
	mu sync.Mutex

	dir     string
	maxAge  time.Duration
	version VersionFunc
	logger  *slog.Logger
	now     func() time.Time
}

// Option configures a FileStore.
type Option func(*FileStore)

// WithMaxAge expires entries older than d. Zero keeps entries forever.
func WithMaxAge(d time.Duration) Option {
	return func(s *FileStore) {
		s.maxAge = d
	}
}

// WithVersions expires entries written by another version of their addon.
func WithVersions(f VersionFunc) Option {
	return func(s *FileStore) {
		s.version = f
	}
}

// WithLogger sets the store logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *FileStore) {
		s.logger = l
	}
}

// NewFileStore creates a store in dir. The directory is created on first write.
func NewFileStore(dir string, opts ...Option) *FileStore {
	s := &FileStore{
		dir:    dir,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dir returns the cache directory.
func (s *FileStore) Dir() string {
	return s.dir
}

func canonical(url string) (string, error) {
	u, err := kodi.ParseURL(url)
	if err != nil {
		return "", err
	}
	return u.Canonical(), nil
}

// path returns the entry file for a canonical URL.
func (s *FileStore) path(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(s.dir, hex.EncodeToString(sum[:])+ext)
}

// Load returns the cached Result for url. A stale entry is removed and
// reported as a miss.
func (s *FileStore) Load(url string) (*kodi.Result, bool, error) {
	key, err := canonical(url)
	if err != nil {
		return nil, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.path(key)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read cache entry: %w", err)
	}

	if !gjson.ValidBytes(data) {
		s.logger.Warn("discarding corrupt cache entry", "url", key)
		return nil, false, s.removeLocked(path)
	}
	if reason := s.stale(data); reason != "" {
		s.logger.Debug("discarding stale cache entry", "url", key, "reason", reason)
		return nil, false, s.removeLocked(path)
	}

	var r kodi.Result
	if err := r.UnmarshalJSON(data); err != nil {
		s.logger.Warn("discarding undecodable cache entry", "url", key, "error", err)
		return nil, false, s.removeLocked(path)
	}

	reads := gjson.GetBytes(data, fieldReads).Int()
	if stamped, err := sjson.SetBytes(data, fieldReads, reads+1); err == nil {
		if err := writeFile(path, stamped); err != nil {
			s.logger.Debug("cache read counter not updated", "url", key, "error", err)
		}
	}
	return &r, true, nil
}

// stale returns why an entry must not be reused, or "".
func (s *FileStore) stale(data []byte) string {
	if s.maxAge > 0 {
		stored := time.Unix(gjson.GetBytes(data, fieldStored).Int(), 0)
		if s.now().Sub(stored) > s.maxAge {
			return "expired"
		}
	}
	if s.version != nil {
		id := gjson.GetBytes(data, "addon_id").String()
		if v := s.version(id); v != "" && v != gjson.GetBytes(data, fieldVersion).String() {
			return "addon version changed"
		}
	}
	return ""
}

// Store writes a Result under its canonical URL.
func (s *FileStore) Store(r *kodi.Result) error {
	data, err := r.MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	data, err = sjson.SetBytes(data, "cache", map[string]any{
		"stored_at":     s.now().Unix(),
		"addon_version": r.AddonVersion(),
		"reads":         0,
	})
	if err != nil {
		return fmt.Errorf("failed to stamp result: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	return writeFile(s.path(r.URL().Canonical()), data)
}

// Delete removes the entry for url, if any.
func (s *FileStore) Delete(url string) error {
	key, err := canonical(url)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeLocked(s.path(key))
}

// Clear removes every entry.
func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to list cache: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ext) {
			continue
		}
		if err := s.removeLocked(filepath.Join(s.dir, e.Name())); err != nil {
			return err
		}
	}
	return nil
}

// Reads returns how often the entry for url has been loaded.
func (s *FileStore) Reads(url string) int {
	key, err := canonical(url)
	if err != nil {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path(key))
	if err != nil {
		return 0
	}
	return int(gjson.GetBytes(data, fieldReads).Int())
}

// Len returns the number of entries on disk.
func (s *FileStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0
	}
	n := 0
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ext) {
			n++
		}
	}
	return n
}

func (s *FileStore) removeLocked(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove cache entry: %w", err)
	}
	return nil
}

// writeFile replaces path atomically.
func writeFile(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".entry-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace cache entry: %w", err)
	}
	return nil
}

var _ kodi.DiskCache = (*FileStore)(nil)
