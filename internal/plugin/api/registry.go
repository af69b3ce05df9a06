package api

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/addondev/internal/kodi"
)

// Module is a host module a plugin script loads with require.
type Module interface {
	// Name returns the module name (e.g., "xbmcplugin", "xbmcgui").
	Name() string

	// Register makes the module loadable in the Lua state.
	Register(L *lua.LState) error
}

// Registry manages host modules and their registration.
type Registry struct {
	mu      sync.RWMutex
	modules map[string]Module
}

// NewRegistry creates a new module registry.
func NewRegistry() *Registry {
	return &Registry{
		modules: make(map[string]Module),
	}
}

// Register adds a module to the registry.
func (r *Registry) Register(mod Module) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.modules[mod.Name()]; exists {
		return fmt.Errorf("module %q already registered", mod.Name())
	}

	r.modules[mod.Name()] = mod
	return nil
}

// List returns all registered module names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.modules))
	for name := range r.modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// InjectAll registers every module into the Lua state.
func (r *Registry) InjectAll(L *lua.LState) error {
	return r.Inject(L, r.List()...)
}

// Inject registers specific modules into the Lua state.
func (r *Registry) Inject(L *lua.LState, moduleNames ...string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, name := range moduleNames {
		mod, ok := r.modules[name]
		if !ok {
			return fmt.Errorf("module %q not found", name)
		}
		if err := mod.Register(L); err != nil {
			return fmt.Errorf("failed to register module %q: %w", name, err)
		}
	}

	return nil
}

// preload registers a module table under its name for require.
func preload(L *lua.LState, name string, build func(L *lua.LState) *lua.LTable) {
	L.PreloadModule(name, func(L *lua.LState) int {
		L.Push(build(L))
		return 1
	})
}

// DefaultRegistry creates a registry with every host module bound to env.
func DefaultRegistry(env *Env) (*Registry, error) {
	r := NewRegistry()

	modules := []Module{
		NewPluginModule(env),
		NewGUIModule(env),
		NewAddonModule(env),
		NewXBMCModule(env),
		NewVFSModule(env),
		NewUtilModule(),
		NewJSONModule(),
	}

	for _, mod := range modules {
		if err := r.Register(mod); err != nil {
			return nil, fmt.Errorf("failed to register module %q: %w", mod.Name(), err)
		}
	}

	return r, nil
}

// Env is the dispatch cycle a set of host modules acts on.
//
// Host modules raise Lua errors for failed host calls. The Go error behind
// the most recent one is kept so the caller can report it with its type.
type Env struct {
	// Ctx is the context the entry point was invoked with.
	Ctx context.Context

	// API is bound to the cycle.
	API *kodi.API

	// Logger receives module diagnostics.
	Logger *slog.Logger

	mu   sync.Mutex
	last error
}

// NewEnv creates an Env for one cycle.
func NewEnv(ctx context.Context, a *kodi.API, logger *slog.Logger) *Env {
	if logger == nil {
		logger = slog.Default()
	}
	return &Env{Ctx: ctx, API: a, Logger: logger}
}

// Err returns the error behind the most recent failed host call.
func (e *Env) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last
}

// raise records err and raises it as a Lua error. It does not return.
func (e *Env) raise(L *lua.LState, err error) {
	e.mu.Lock()
	e.last = err
	e.mu.Unlock()
	L.RaiseError("%s", err.Error())
}

// check raises err when it is non-nil.
func (e *Env) check(L *lua.LState, err error) {
	if err != nil {
		e.raise(L, err)
	}
}
