// Package app wires the addondev components and runs the interactive
// navigation loop.
//
// An Application loads the addon under development, discovers installed
// addons, and dispatches plugin URLs through the engine. Results are shown
// with the console presenter and the user picks the next item. Changes to
// the addon's sources invalidate every cached listing.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/dshills/addondev/internal/addon"
	"github.com/dshills/addondev/internal/cache"
	"github.com/dshills/addondev/internal/config"
	"github.com/dshills/addondev/internal/display"
	"github.com/dshills/addondev/internal/kodi"
	"github.com/dshills/addondev/internal/plugin"
	"github.com/dshills/addondev/internal/settings"
	"github.com/dshills/addondev/internal/watcher"
)

// Options configures the application beyond the config file.
type Options struct {
	// AddonPath is the directory of the addon under development.
	AddonPath string

	// URL is the first plugin URL to open. Defaults to the addon root.
	URL string

	// Preselect lists item indexes chosen before asking the user.
	Preselect []int

	// NoCache disables the disk cache for this run.
	NoCache bool

	// Input, Output and LogOutput default to the process streams.
	Input     io.Reader
	Output    io.Writer
	LogOutput io.Writer
}

// Application is the central coordinator for all addondev components.
type Application struct {
	cfg    *config.Config
	opts   Options
	logger *slog.Logger

	mu     sync.RWMutex
	target *addon.Addon

	repo     *addon.Repo
	settings *settings.Store
	paths    *kodi.SpecialPaths
	loader   *plugin.LuaLoader
	engine   *kodi.Engine
	disk     *cache.FileStore
	session  *kodi.Session
	watcher  *watcher.Watcher

	console   *Console
	presenter *display.Presenter

	stringsMu sync.Mutex
	strings   map[string]map[int]string

	preselect []int
}

// New creates an Application from a resolved configuration.
func New(ctx context.Context, cfg *config.Config, opts Options) (*Application, error) {
	if opts.AddonPath == "" {
		opts.AddonPath = "."
	}
	if opts.Input == nil {
		opts.Input = os.Stdin
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	app := &Application{
		cfg:       cfg,
		opts:      opts,
		logger:    NewLogger(opts.LogOutput, cfg.SlogLevel()),
		strings:   make(map[string]map[int]string),
		preselect: append([]int(nil), opts.Preselect...),
	}

	if err := app.bootstrap(ctx); err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

// bootstrap initializes all components in dependency order.
func (app *Application) bootstrap(ctx context.Context) error {
	// 1. Addon under development
	dir, err := filepath.Abs(app.opts.AddonPath)
	if err != nil {
		return &InitError{Component: "addon", Err: err}
	}
	target, err := addon.Load(dir)
	if err != nil {
		return &InitError{Component: "addon", Err: err}
	}
	if !target.IsPlugin() {
		return &InitError{Component: "addon", Err: fmt.Errorf("%w: %s", ErrNotPluginAddon, target.ID)}
	}
	app.target = target

	// 2. Installed addons; the one under development wins over copies
	search := append([]string(nil), app.cfg.Paths.Addons...)
	search = append(search, filepath.Join(app.cfg.Paths.Home, "addons"))
	app.repo = addon.NewRepo(addon.WithPaths(search...), addon.WithLogger(app.logger))
	app.repo.Add(target)
	if err := app.repo.Discover(ctx); err != nil {
		return &InitError{Component: "repo", Err: err}
	}

	// 3. Host filesystem and settings
	app.paths = kodi.NewSpecialPaths(app.cfg.Paths.Home)
	if err := app.paths.Ensure(); err != nil {
		return &InitError{Component: "paths", Err: err}
	}
	app.settings = settings.NewStore(
		settings.WithPersister(settings.NewXMLPersister(app.cfg.Paths.Home)),
		settings.WithLogger(app.logger),
	)

	// 4. Dispatch engine
	timeout, err := app.cfg.TimeoutDuration()
	if err != nil {
		return &InitError{Component: "engine", Err: err}
	}
	app.console = NewConsole(app.opts.Input, app.opts.Output)
	app.loader = plugin.NewLuaLoader(
		plugin.WithDependencies(app.repo),
		plugin.WithLogger(app.logger),
		plugin.WithCallStackSize(app.cfg.Runtime.CallStack),
	)
	app.engine = kodi.NewEngine(app.repo,
		kodi.WithLoader(app.loader),
		kodi.WithSettings(app.settings),
		kodi.WithSpecialPaths(app.paths),
		kodi.WithPrompter(app.console),
		kodi.WithLogger(app.logger),
		kodi.WithTimeout(timeout),
	)

	// 5. Session with optional disk cache
	sessionOpts := []kodi.SessionOption{kodi.WithSessionLogger(app.logger)}
	if app.cfg.Session.DiskCache && !app.opts.NoCache {
		app.disk = cache.NewFileStore(app.cfg.Paths.Cache,
			cache.WithVersions(app.addonVersion),
			cache.WithLogger(app.logger),
		)
		sessionOpts = append(sessionOpts, kodi.WithDiskCache(app.disk))
	}
	app.session = kodi.NewSession(app.engine, sessionOpts...)

	// 6. Source watcher
	if app.cfg.Session.Watch {
		w, err := watcher.New(watcher.WithFilter(isSourceFile), watcher.WithLogger(app.logger))
		if err != nil {
			return &InitError{Component: "watcher", Err: err}
		}
		app.watcher = w
		w.OnChange(app.onSourceChange)
		if err := w.WatchRecursive(target.Path()); err != nil {
			return &InitError{Component: "watcher", Err: err}
		}
	}

	// 7. Presenter
	app.presenter = display.New(app.opts.Output,
		display.WithDetailed(app.cfg.Display.Detailed),
		display.WithCrop(app.cfg.Display.Crop),
		display.WithLocalizer(app.localize),
	)

	app.logger.Debug("application ready",
		"addon", target.ID, "version", target.Version, "session", app.session.ID(), "addons", app.repo.Count())
	return nil
}

// Close releases the watcher.
func (app *Application) Close() {
	if app.watcher != nil {
		if err := app.watcher.Close(); err != nil {
			app.logger.Warn("closing watcher", "error", err)
		}
		app.watcher = nil
	}
}

// Addon returns the addon under development.
func (app *Application) Addon() *addon.Addon {
	app.mu.RLock()
	defer app.mu.RUnlock()
	return app.target
}

// Session returns the navigation session.
func (app *Application) Session() *kodi.Session {
	return app.session
}

// StartURL returns the URL the loop opens first.
func (app *Application) StartURL() string {
	if app.opts.URL != "" {
		return app.opts.URL
	}
	return kodi.BuildURL(app.Addon().ID, "/", nil)
}

func (app *Application) addonVersion(id string) string {
	a, err := app.repo.Resolve(id)
	if err != nil {
		return ""
	}
	return a.Version
}

// localize looks up a string of any known addon, loading strings.po once.
func (app *Application) localize(addonID string, id int) (string, bool) {
	app.stringsMu.Lock()
	defer app.stringsMu.Unlock()

	strs, ok := app.strings[addonID]
	if !ok {
		if a, err := app.repo.Resolve(addonID); err == nil {
			strs, err = a.Strings()
			if err != nil {
				app.logger.Debug("failed to read strings", "addon", addonID, "error", err)
			}
		}
		app.strings[addonID] = strs
	}
	s, ok := strs[id]
	return s, ok
}

// isSourceFile reports whether a change to path can alter plugin output.
func isSourceFile(path string) bool {
	switch filepath.Ext(path) {
	case ".lua", ".xml", ".po", ".yaml", ".yml", ".json":
		return true
	}
	return false
}

// onSourceChange drops everything derived from the addon's files.
func (app *Application) onSourceChange(ev watcher.Event) {
	app.logger.Info("addon source changed", "path", ev.Path, "op", ev.Op.String())

	target := app.Addon()
	if filepath.Base(ev.Path) == "addon.xml" && !ev.Op.Has(watcher.OpRemove) {
		if a, err := addon.Load(target.Path()); err != nil {
			app.logger.Warn("failed to reload addon.xml", "error", err)
		} else {
			app.mu.Lock()
			app.target = a
			app.mu.Unlock()
			app.repo.Add(a)
		}
	}

	app.loader.Scripts().Clear()
	app.engine.Forget(target.ID)
	app.stringsMu.Lock()
	delete(app.strings, target.ID)
	app.stringsMu.Unlock()
	if err := app.session.InvalidateAll(); err != nil {
		app.logger.Warn("failed to invalidate session", "error", err)
	}
}
