package plugin

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dshills/addondev/internal/addon"
	"github.com/dshills/addondev/internal/kodi"
	plua "github.com/dshills/addondev/internal/plugin/lua"
)

// Dependencies resolves the module addons an addon imports, dependencies first.
type Dependencies interface {
	Dependencies(a *addon.Addon) ([]*addon.Addon, error)
}

// LuaLoader turns .lua entry files of addons into entry points.
//
// Each dispatch runs in a fresh sandboxed state with the host modules
// preloaded. require searches the addon directory, its resources/lib and
// the library directories of imported module addons.
type LuaLoader struct {
	deps    Dependencies
	scripts *ScriptCache
	logger  *slog.Logger

	callStackSize int
}

// LoaderOption configures a LuaLoader.
type LoaderOption func(*LuaLoader)

// WithDependencies sets the resolver for imported module addons.
func WithDependencies(d Dependencies) LoaderOption {
	return func(l *LuaLoader) {
		l.deps = d
	}
}

// WithScriptCache sets the compiled script cache.
func WithScriptCache(c *ScriptCache) LoaderOption {
	return func(l *LuaLoader) {
		l.scripts = c
	}
}

// WithLogger sets the logger scripts print and log to.
func WithLogger(logger *slog.Logger) LoaderOption {
	return func(l *LuaLoader) {
		l.logger = logger
	}
}

// WithCallStackSize sets the Lua call depth of each state.
func WithCallStackSize(n int) LoaderOption {
	return func(l *LuaLoader) {
		l.callStackSize = n
	}
}

// NewLuaLoader creates a Lua loader.
func NewLuaLoader(opts ...LoaderOption) *LuaLoader {
	l := &LuaLoader{
		logger:        slog.Default(),
		callStackSize: plua.DefaultCallStackSize,
	}

	for _, opt := range opts {
		opt(l)
	}
	if l.scripts == nil {
		l.scripts = NewScriptCache()
	}

	return l
}

// Scripts returns the compiled script cache.
func (l *LuaLoader) Scripts() *ScriptCache {
	return l.scripts
}

// Load implements kodi.Loader. Entries that are not .lua files, and addons
// without a directory, have no entry point here.
func (l *LuaLoader) Load(a *addon.Addon, entry string) (kodi.EntryPoint, error) {
	if !strings.EqualFold(filepath.Ext(entry), ".lua") || a.Path() == "" {
		return nil, fmt.Errorf("%w: %s (%s)", kodi.ErrNoEntryPoint, a.ID, entry)
	}

	script, err := entryPath(a, entry)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(script); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", kodi.ErrNoEntryPoint, a.ID, err)
	}

	paths, err := l.modulePaths(a)
	if err != nil {
		return nil, err
	}

	h := &host{
		script:        script,
		modulePaths:   paths,
		scripts:       l.scripts,
		logger:        l.logger,
		callStackSize: l.callStackSize,
	}
	return h.run, nil
}

// entryPath resolves an entry file inside the addon directory.
func entryPath(a *addon.Addon, entry string) (string, error) {
	root := filepath.Clean(a.Path())
	script := filepath.Join(root, filepath.FromSlash(entry))

	rel, err := filepath.Rel(root, script)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s (%s)", ErrEntryOutsideAddon, a.ID, entry)
	}
	return script, nil
}

// modulePaths returns the require search path of an addon.
func (l *LuaLoader) modulePaths(a *addon.Addon) ([]string, error) {
	paths := []string{
		a.Path(),
		filepath.Join(a.Path(), "resources", "lib"),
	}
	if l.deps == nil {
		return paths, nil
	}

	deps, err := l.deps.Dependencies(a)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDependencyNotFound, err)
	}
	for _, dep := range deps {
		if dep.Type != addon.PointModule || dep.Path() == "" {
			continue
		}
		if lib, err := dep.LibraryPath(); err == nil {
			paths = append(paths, lib)
		} else {
			paths = append(paths, dep.Path())
		}
	}
	return paths, nil
}
