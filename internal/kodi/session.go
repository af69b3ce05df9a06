package kodi

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Dispatcher runs one dispatch cycle.
type Dispatcher interface {
	Dispatch(ctx context.Context, url string) (*Result, error)
}

// DiskCache persists Results that carry CacheToDisk across processes.
type DiskCache interface {
	Load(url string) (*Result, bool, error)
	Store(r *Result) error
	Delete(url string) error
	Clear() error
}

type frame struct {
	url    string
	result *Result
}

// Session is a navigation history over dispatch Results with a per-URL cache.
type Session struct {
	mu sync.Mutex

	id         string
	dispatcher Dispatcher
	disk       DiskCache
	logger     *slog.Logger

	history []frame
	cache   map[string]*Result
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithDiskCache sets the store used for CacheToDisk Results.
func WithDiskCache(d DiskCache) SessionOption {
	return func(s *Session) {
		s.disk = d
	}
}

// WithSessionLogger sets the session logger.
func WithSessionLogger(l *slog.Logger) SessionOption {
	return func(s *Session) {
		s.logger = l
	}
}

// NewSession creates an empty navigation session.
func NewSession(d Dispatcher, opts ...SessionOption) *Session {
	s := &Session{
		id:         uuid.NewString(),
		dispatcher: d,
		logger:     slog.Default(),
		cache:      make(map[string]*Result),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("session", s.id)
	return s
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// cacheKey normalises a URL so equivalent URLs share a cache entry.
func cacheKey(raw string) (string, error) {
	u, err := ParseURL(raw)
	if err != nil {
		return "", err
	}
	return u.Canonical(), nil
}

// Navigate opens a URL: a cached Result is reused, otherwise the URL is
// dispatched and its cache directive applied. The Result is pushed onto
// the history.
func (s *Session) Navigate(ctx context.Context, url string) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.navigateLocked(ctx, url)
}

func (s *Session) navigateLocked(ctx context.Context, url string) (*Result, error) {
	key, err := cacheKey(url)
	if err != nil {
		return nil, &NavigationError{Op: "navigate", Err: err}
	}

	res := s.lookupLocked(key)
	if res == nil {
		res, err = s.dispatcher.Dispatch(ctx, url)
		if err != nil {
			return nil, err
		}
		s.applyLocked(key, res)
	}

	s.history = append(s.history, frame{url: key, result: res})
	return res, nil
}

func (s *Session) lookupLocked(key string) *Result {
	if res, ok := s.cache[key]; ok {
		s.logger.Debug("session cache hit", "url", key)
		return res
	}
	if s.disk == nil {
		return nil
	}

	res, ok, err := s.disk.Load(key)
	if err != nil {
		s.logger.Warn("disk cache read failed", "url", key, "error", err)
		return nil
	}
	if !ok {
		return nil
	}
	s.logger.Debug("disk cache hit", "url", key)
	s.cache[key] = res
	return res
}

// applyLocked caches a fresh Result according to its directive.
// Failed Results are never cached.
func (s *Session) applyLocked(key string, res *Result) {
	if !res.Succeeded() {
		s.evictLocked(key)
		return
	}

	switch res.Directive() {
	case CacheUpdateListing:
		s.evictLocked(key)
	case CacheToDisk:
		s.cache[key] = res
		if s.disk != nil {
			if err := s.disk.Store(res); err != nil {
				s.logger.Warn("disk cache write failed", "url", key, "error", err)
			}
		}
	default:
		s.cache[key] = res
	}
}

func (s *Session) evictLocked(key string) {
	delete(s.cache, key)
	if s.disk != nil {
		if err := s.disk.Delete(key); err != nil {
			s.logger.Warn("disk cache delete failed", "url", key, "error", err)
		}
	}
}

// Back pops the current Result and returns the one below it, which is nil
// when the history is now empty.
func (s *Session) Back() (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.history) == 0 {
		return nil, &NavigationError{Op: "back", Err: ErrNoHistory}
	}
	s.history = s.history[:len(s.history)-1]
	if len(s.history) == 0 {
		return nil, nil
	}
	return s.history[len(s.history)-1].result, nil
}

// Select navigates into item i of the current Result. A resolved target is
// presented with the selected item's label, art and info merged under the
// resolved item; the cached Result is left untouched.
func (s *Session) Select(ctx context.Context, i int) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.history) == 0 {
		return nil, &NavigationError{Op: "select", Err: ErrNoHistory}
	}
	cur := s.history[len(s.history)-1].result
	item, ok := cur.Item(i)
	if !ok {
		return nil, &NavigationError{Op: "select", Err: fmt.Errorf("%w: %d of %d", ErrNoSelection, i, cur.Len())}
	}
	if !IsPluginURL(item.Path) {
		return nil, &NavigationError{Op: "select", Err: fmt.Errorf("%w: %s", ErrInvalidURL, item.Path)}
	}

	res, err := s.navigateLocked(ctx, item.Path)
	if err != nil {
		return nil, err
	}
	if res.State() == StateResolved {
		res = res.withResolved(res.Resolved().Merge(item))
		s.history[len(s.history)-1].result = res
	}
	return res, nil
}

// Current returns the Result on top of the history, or nil.
func (s *Session) Current() *Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.history) == 0 {
		return nil
	}
	return s.history[len(s.history)-1].result
}

// Depth returns the number of Results in the history.
func (s *Session) Depth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history)
}

// History returns the URLs in the history, oldest first.
func (s *Session) History() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	urls := make([]string, len(s.history))
	for i, f := range s.history {
		urls[i] = f.url
	}
	return urls
}

// Invalidate drops the cached Result of a URL.
func (s *Session) Invalidate(url string) error {
	key, err := cacheKey(url)
	if err != nil {
		return &NavigationError{Op: "invalidate", Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictLocked(key)
	return nil
}

// InvalidateAll drops every cached Result, on disk included.
func (s *Session) InvalidateAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cache = make(map[string]*Result)
	if s.disk != nil {
		if err := s.disk.Clear(); err != nil {
			return fmt.Errorf("failed to clear disk cache: %w", err)
		}
	}
	s.logger.Debug("session cache cleared")
	return nil
}

// Cached reports whether a URL has a cached Result in memory.
func (s *Session) Cached(url string) bool {
	key, err := cacheKey(url)
	if err != nil {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.cache[key]
	return ok
}
