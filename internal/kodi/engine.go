package kodi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dshills/addondev/internal/addon"
	"github.com/dshills/addondev/internal/settings"
)

// EntryPoint runs a plugin for one dispatch cycle. It reports its listing
// through inv.API and returns when the plugin script completes.
type EntryPoint func(ctx context.Context, inv *Invocation) error

// Loader turns an addon entry file into an entry point.
type Loader interface {
	Load(a *addon.Addon, entry string) (EntryPoint, error)
}

// AddonResolver looks up addons by id.
type AddonResolver interface {
	Resolve(id string) (*addon.Addon, error)
}

// SettingsStore is the per-addon settings store used by the shims.
type SettingsStore interface {
	Get(addonID, key string) (string, bool)
	Set(addonID, key, value string) error
	Defaults(addonID string, defaults map[string]string)
	Bool(addonID, key string) (bool, error)
	Int(addonID, key string) (int, error)
	Number(addonID, key string) (float64, error)
}

// Prompter answers dialogs raised by plugins.
type Prompter interface {
	Input(heading, defaultValue string) (string, error)
	Select(heading string, options []string) (int, error)
	YesNo(heading, message string) (bool, error)
}

// Invocation is what an entry point receives for one dispatch cycle.
type Invocation struct {
	URL    PluginURL
	Handle int
	Addon  *addon.Addon
	Entry  string

	// API is bound to this cycle only.
	API *API
}

// Params returns the decoded query parameters.
func (inv *Invocation) Params() map[string]string {
	return inv.URL.Params()
}

// Argv returns the arguments the host passes to a plugin script:
// the base URL, the handle and the query string.
func (inv *Invocation) Argv() []string {
	return []string{inv.URL.Base(), strconv.Itoa(inv.Handle), inv.URL.QueryString()}
}

// Engine dispatches plugin:// URLs to plugins.
//
// One top-level dispatch runs at a time. Plugins may dispatch nested URLs
// from inside a cycle; those run on the same context stack and restore the
// caller's binding when they return.
type Engine struct {
	resolver AddonResolver
	loader   Loader
	settings SettingsStore
	paths    *SpecialPaths
	prompter Prompter
	logger   *slog.Logger
	timeout  time.Duration

	// sem serialises top-level dispatches
	sem   chan struct{}
	stack contextStack

	handles atomic.Int64

	mu     sync.Mutex
	addons map[string]*addonState
}

// addonState caches per-addon data loaded on first dispatch.
type addonState struct {
	strings map[int]string
}

// Option configures an Engine.
type Option func(*Engine)

// WithLoader sets the entry point loader.
func WithLoader(l Loader) Option {
	return func(e *Engine) {
		e.loader = l
	}
}

// WithSettings sets the settings store.
func WithSettings(s SettingsStore) Option {
	return func(e *Engine) {
		e.settings = s
	}
}

// WithSpecialPaths sets the special:// path mapping.
func WithSpecialPaths(p *SpecialPaths) Option {
	return func(e *Engine) {
		e.paths = p
	}
}

// WithPrompter sets the dialog prompter. Without one, dialogs return their defaults.
func WithPrompter(p Prompter) Option {
	return func(e *Engine) {
		e.prompter = p
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithTimeout bounds each top-level dispatch, nested dispatches included.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.timeout = d
	}
}

// NewEngine creates a dispatch engine.
func NewEngine(resolver AddonResolver, opts ...Option) *Engine {
	e := &Engine{
		resolver: resolver,
		loader:   NewFuncLoader(),
		settings: settings.NewStore(),
		paths:    NewSpecialPaths(filepath.Join(os.TempDir(), "addondev")),
		logger:   slog.Default(),
		sem:      make(chan struct{}, 1),
		addons:   make(map[string]*addonState),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Paths returns the special path mapping.
func (e *Engine) Paths() *SpecialPaths {
	return e.paths
}

// Depth returns the number of active dispatch cycles.
func (e *Engine) Depth() int {
	return e.stack.depth()
}

// dispatchKey marks a context as running inside a dispatch cycle.
type dispatchKey struct{}

type dispatchFrame struct {
	engine *Engine
	rc     *RequestContext
}

// callerFrom returns the request context that issued a nested dispatch.
func (e *Engine) callerFrom(ctx context.Context) *RequestContext {
	f, ok := ctx.Value(dispatchKey{}).(*dispatchFrame)
	if !ok || f.engine != e {
		return nil
	}
	return f.rc
}

// Dispatch runs the plugin for a URL and returns the frozen Result.
//
// Failures inside the plugin produce a failed Result, not an error. An error
// is returned only when no cycle could start: malformed URL, unknown addon,
// no route or no entry point. A nested dispatch must carry the context its
// entry point received; any other context while a cycle is active is a
// BindingError.
func (e *Engine) Dispatch(ctx context.Context, rawURL string) (*Result, error) {
	parent := e.callerFrom(ctx)
	if parent == nil {
		if e.stack.depth() > 0 {
			return nil, &BindingError{Op: "dispatch"}
		}
		select {
		case e.sem <- struct{}{}:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		defer func() { <-e.sem }()

		if e.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, e.timeout)
			defer cancel()
		}
	}
	return e.dispatch(ctx, parent, rawURL)
}

func (e *Engine) dispatch(ctx context.Context, parent *RequestContext, rawURL string) (*Result, error) {
	u, err := ParseURL(rawURL)
	if err != nil {
		return nil, err
	}

	a, err := e.resolver.Resolve(u.AddonID)
	if err != nil {
		return nil, fmt.Errorf("dispatch %s: %w", u, err)
	}
	if !a.IsPlugin() {
		return nil, fmt.Errorf("dispatch %s: %w: %s", u, ErrNotPlugin, a.ID)
	}

	router, err := addon.RouterFor(a)
	if err != nil {
		return nil, fmt.Errorf("dispatch %s: %w", u, err)
	}
	entry, err := router.Match(u.Path)
	if err != nil {
		return nil, fmt.Errorf("dispatch %s: %w", u, err)
	}
	ep, err := e.loader.Load(a, entry)
	if err != nil {
		return nil, fmt.Errorf("dispatch %s: %w", u, err)
	}

	e.prepare(a)

	rc := NewRequestContext(int(e.handles.Add(1)), u, a)
	if err := e.stack.push(parent, rc); err != nil {
		return nil, err
	}
	defer e.stack.pop(rc)

	inv := &Invocation{
		URL:    u,
		Handle: rc.Handle(),
		Addon:  a,
		Entry:  entry,
		API:    &API{engine: e, rc: rc},
	}
	ctx = context.WithValue(ctx, dispatchKey{}, &dispatchFrame{engine: e, rc: rc})

	e.logger.Debug("dispatch start", "addon", a.ID, "url", u.String(), "handle", rc.Handle(), "entry", entry, "depth", e.stack.depth())

	if err := e.run(ctx, ep, inv); err != nil {
		rc.Fail(e.classify(a, u, err))
	} else if rc.State() == StatePending {
		if rc.ItemCount() > 0 {
			// Implicit endOfDirectory with the host defaults
			_ = rc.FinishDirectory(DefaultDirectoryOptions())
		} else {
			_ = rc.Violate(violation("dispatch", ErrNoOutput))
		}
	}

	res := rc.Freeze()
	attrs := []any{"addon", a.ID, "url", u.String(), "handle", res.Handle(), "state", res.State().String(), "duration", res.Duration()}
	if res.State() == StateFailed {
		e.logger.Warn("dispatch failed", append(attrs, "error", res.Err())...)
	} else {
		e.logger.Debug("dispatch done", append(attrs, "items", res.Len(), "directive", res.Directive().String())...)
	}
	return res, nil
}

// run invokes the entry point, containing panics and honouring ctx.
func (e *Engine) run(ctx context.Context, ep EntryPoint, inv *Invocation) error {
	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("panic: %v", r)
			}
		}()
		done <- ep(ctx, inv)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// classify wraps plugin errors. Contract violations and binding errors keep
// their type.
func (e *Engine) classify(a *addon.Addon, u PluginURL, err error) error {
	var cv *ContractViolation
	if errors.As(err, &cv) || IsBindingError(err) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return &PluginRuntimeError{AddonID: a.ID, URL: u.String(), Err: err}
}

// prepare loads setting defaults and strings once per addon.
func (e *Engine) prepare(a *addon.Addon) *addonState {
	e.mu.Lock()
	defer e.mu.Unlock()

	if st, ok := e.addons[a.ID]; ok {
		return st
	}

	st := &addonState{}
	defaults, err := a.SettingDefaults()
	if err != nil {
		e.logger.Warn("failed to read setting defaults", "addon", a.ID, "error", err)
	}
	e.settings.Defaults(a.ID, defaults)

	st.strings, err = a.Strings()
	if err != nil {
		e.logger.Warn("failed to read strings", "addon", a.ID, "error", err)
	}
	e.addons[a.ID] = st
	return st
}

// Forget drops cached addon data so it is reloaded on the next dispatch.
func (e *Engine) Forget(addonID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.addons, addonID)
}

// FuncLoader provides Go entry points registered per addon.
type FuncLoader struct {
	mu      sync.RWMutex
	entries map[string]EntryPoint
}

// NewFuncLoader creates an empty FuncLoader.
func NewFuncLoader() *FuncLoader {
	return &FuncLoader{entries: make(map[string]EntryPoint)}
}

func funcKey(addonID, entry string) string {
	return addonID + "\x00" + entry
}

// Register sets the entry point used for every entry file of an addon.
func (l *FuncLoader) Register(addonID string, ep EntryPoint) {
	l.RegisterEntry(addonID, "", ep)
}

// RegisterEntry sets the entry point for one entry file of an addon.
func (l *FuncLoader) RegisterEntry(addonID, entry string, ep EntryPoint) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[funcKey(addonID, entry)] = ep
}

// Load implements Loader.
func (l *FuncLoader) Load(a *addon.Addon, entry string) (EntryPoint, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if ep, ok := l.entries[funcKey(a.ID, entry)]; ok {
		return ep, nil
	}
	if ep, ok := l.entries[funcKey(a.ID, "")]; ok {
		return ep, nil
	}
	return nil, fmt.Errorf("%w: %s (%s)", ErrNoEntryPoint, a.ID, entry)
}

// ChainLoader tries loaders in order, skipping those without an entry point.
type ChainLoader []Loader

// Load implements Loader.
func (c ChainLoader) Load(a *addon.Addon, entry string) (EntryPoint, error) {
	for _, l := range c {
		ep, err := l.Load(a, entry)
		if err == nil {
			return ep, nil
		}
		if !errors.Is(err, ErrNoEntryPoint) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: %s (%s)", ErrNoEntryPoint, a.ID, entry)
}
