// Package watcher reports changes to addon source trees.
//
// A Watcher watches directories recursively through fsnotify, coalesces
// bursts of events per path and calls the registered handlers once the
// path has been quiet for the debounce interval.
package watcher

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Errors returned by the watcher.
var (
	ErrWatcherClosed = errors.New("watcher closed")
	ErrPathNotExist  = errors.New("path does not exist")
	ErrNotWatching   = errors.New("path not watched")
)

// Op is a set of file operations.
type Op uint32

const (
	OpCreate Op = 1 << iota
	OpWrite
	OpRemove
	OpRename
)

// Has reports whether op contains o.
func (op Op) Has(o Op) bool {
	return op&o != 0
}

// String returns the operation names joined by "|".
func (op Op) String() string {
	var names []string
	if op.Has(OpCreate) {
		names = append(names, "create")
	}
	if op.Has(OpWrite) {
		names = append(names, "write")
	}
	if op.Has(OpRemove) {
		names = append(names, "remove")
	}
	if op.Has(OpRename) {
		names = append(names, "rename")
	}
	if len(names) == 0 {
		return "unknown"
	}
	return strings.Join(names, "|")
}

// Event represents a file change event.
type Event struct {
	// Path is the absolute path to the changed file.
	Path string

	// Op is the operation that triggered the event.
	Op Op

	// Time is when the last coalesced event occurred.
	Time time.Time
}

// Handler is called when a file change is detected.
type Handler func(event Event)

// Filter reports whether changes to path are of interest.
type Filter func(path string) bool

// Watcher monitors directory trees for changes.
type Watcher struct {
	mu sync.RWMutex

	fsw      *fsnotify.Watcher
	paths    map[string]bool
	handlers []Handler

	debounce time.Duration
	filter   Filter
	logger   *slog.Logger

	pendingMu sync.Mutex
	pending   map[string]Event

	closed  bool
	closeCh chan struct{}
	wg      sync.WaitGroup
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets how long a path must be quiet before its event is
// delivered. Zero delivers every event immediately.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d >= 0 {
			w.debounce = d
		}
	}
}

// WithFilter restricts delivered events to paths the filter accepts.
func WithFilter(f Filter) Option {
	return func(w *Watcher) {
		w.filter = f
	}
}

// WithLogger sets the logger used for watch errors.
func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) {
		w.logger = l
	}
}

// New creates a watcher and starts its event loop.
func New(opts ...Option) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fsw:      fsw,
		paths:    make(map[string]bool),
		debounce: 200 * time.Millisecond,
		logger:   slog.Default(),
		pending:  make(map[string]Event),
		closeCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	w.wg.Add(1)
	go w.processLoop()

	if w.debounce > 0 {
		w.wg.Add(1)
		go w.debounceLoop()
	}
	return w, nil
}

// Hidden reports whether the base name of path is a dot file or an
// editor backup.
func Hidden(path string) bool {
	base := filepath.Base(path)
	if strings.HasSuffix(base, "~") || strings.HasSuffix(base, ".swp") {
		return true
	}
	return len(base) > 1 && base[0] == '.' && base != ".."
}

// WatchRecursive watches a directory and all subdirectories. Hidden
// directories are skipped.
func (w *Watcher) WatchRecursive(root string) error {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrPathNotExist
		}
		return err
	}
	if !info.IsDir() {
		return w.add(absRoot)
	}

	return filepath.WalkDir(absRoot, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // Skip unreadable entries
		}
		if !d.IsDir() {
			return nil
		}
		if p != absRoot && Hidden(d.Name()) {
			return filepath.SkipDir
		}
		if err := w.add(p); err != nil {
			w.logger.Warn("watch failed", "path", p, "error", err)
		}
		return nil
	})
}

func (w *Watcher) add(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWatcherClosed
	}
	if w.paths[path] {
		return nil
	}
	if err := w.fsw.Add(path); err != nil {
		return err
	}
	w.paths[path] = true
	return nil
}

// Unwatch stops watching a path.
func (w *Watcher) Unwatch(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWatcherClosed
	}
	if !w.paths[absPath] {
		return ErrNotWatching
	}
	delete(w.paths, absPath)
	return w.fsw.Remove(absPath)
}

// OnChange registers a handler for file change events.
func (w *Watcher) OnChange(handler Handler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers = append(w.handlers, handler)
}

// WatchedPaths returns the watched directories, sorted.
func (w *Watcher) WatchedPaths() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	paths := make([]string, 0, len(w.paths))
	for p := range w.paths {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Close stops the watcher. Pending debounced events are dropped.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.closeCh)
	w.mu.Unlock()

	w.wg.Wait()
	return w.fsw.Close()
}

func (w *Watcher) processLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.closeCh:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleFSEvent(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", "error", err)
		}
	}
}

func (w *Watcher) handleFSEvent(fsEvent fsnotify.Event) {
	op := convertOp(fsEvent.Op)
	if op == 0 {
		return // chmod only
	}

	// New directories are watched before filtering so their files are seen
	if op.Has(OpCreate) {
		if info, err := os.Stat(fsEvent.Name); err == nil && info.IsDir() && !Hidden(info.Name()) {
			if err := w.WatchRecursive(fsEvent.Name); err != nil {
				w.logger.Warn("watch failed", "path", fsEvent.Name, "error", err)
			}
		}
	}

	if Hidden(fsEvent.Name) {
		return
	}
	if w.filter != nil && !w.filter(fsEvent.Name) {
		return
	}

	event := Event{Path: fsEvent.Name, Op: op, Time: time.Now()}
	if w.debounce > 0 {
		w.queueEvent(event)
		return
	}
	w.emitEvent(event)
}

func convertOp(fsOp fsnotify.Op) Op {
	var op Op
	if fsOp.Has(fsnotify.Create) {
		op |= OpCreate
	}
	if fsOp.Has(fsnotify.Write) {
		op |= OpWrite
	}
	if fsOp.Has(fsnotify.Remove) {
		op |= OpRemove
	}
	if fsOp.Has(fsnotify.Rename) {
		op |= OpRename
	}
	return op
}

// queueEvent coalesces an event into the pending set:
// remove wins over everything, create survives later writes.
func (w *Watcher) queueEvent(event Event) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()

	existing, ok := w.pending[event.Path]
	if !ok {
		w.pending[event.Path] = event
		return
	}

	switch {
	case event.Op.Has(OpRemove):
		existing.Op = OpRemove
	case existing.Op.Has(OpRemove):
		existing.Op = event.Op
	default:
		existing.Op |= event.Op
	}
	existing.Time = event.Time
	w.pending[event.Path] = existing
}

func (w *Watcher) debounceLoop() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.debounce / 2)
	defer ticker.Stop()

	for {
		select {
		case <-w.closeCh:
			return
		case <-ticker.C:
			w.flush(time.Now())
		}
	}
}

// flush emits pending events that have been quiet for the debounce interval.
func (w *Watcher) flush(now time.Time) {
	stable := now.Add(-w.debounce)

	w.pendingMu.Lock()
	var ready []Event
	for path, ev := range w.pending {
		if !ev.Time.After(stable) {
			ready = append(ready, ev)
			delete(w.pending, path)
		}
	}
	w.pendingMu.Unlock()

	sort.Slice(ready, func(i, j int) bool { return ready[i].Path < ready[j].Path })
	for _, ev := range ready {
		w.emitEvent(ev)
	}
}

func (w *Watcher) emitEvent(event Event) {
	w.mu.RLock()
	handlers := make([]Handler, len(w.handlers))
	copy(handlers, w.handlers)
	w.mu.RUnlock()

	for _, handler := range handlers {
		w.safeCallHandler(handler, event)
	}
}

// safeCallHandler calls a handler, logging instead of dying on panic.
func (w *Watcher) safeCallHandler(handler Handler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("watch handler panicked", "path", event.Path, "panic", r)
		}
	}()
	handler(event)
}
