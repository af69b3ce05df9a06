package addon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
)

// DefaultDiscoveryConcurrency bounds concurrent addon.xml reads.
const DefaultDiscoveryConcurrency = 8

// Repo is the set of addons known to the simulator.
type Repo struct {
	mu sync.RWMutex

	// Search paths (checked in order, first path wins)
	paths []string

	addons map[string]*Addon

	concurrency int
	logger      *slog.Logger
}

// RepoOption configures a Repo.
type RepoOption func(*Repo)

// WithPaths sets the addon search paths.
func WithPaths(paths ...string) RepoOption {
	return func(r *Repo) {
		r.paths = paths
	}
}

// WithConcurrency sets the number of addon descriptors read in parallel.
func WithConcurrency(n int) RepoOption {
	return func(r *Repo) {
		r.concurrency = n
	}
}

// WithLogger sets the logger for the repo.
func WithLogger(l *slog.Logger) RepoOption {
	return func(r *Repo) {
		r.logger = l
	}
}

// NewRepo creates an addon repo.
func NewRepo(opts ...RepoOption) *Repo {
	r := &Repo{
		addons:      make(map[string]*Addon),
		concurrency: DefaultDiscoveryConcurrency,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Add registers an addon, replacing any addon with the same id.
// The addon under development is added this way so it wins over installed copies.
func (r *Repo) Add(a *Addon) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.addons[a.ID] = a
}

// Paths returns the configured search paths.
func (r *Repo) Paths() []string {
	return append([]string(nil), r.paths...)
}

// Discover scans the search paths for addon directories.
// Directories without a valid addon.xml are logged and skipped; addons
// already registered are kept.
func (r *Repo) Discover(ctx context.Context) error {
	type candidate struct {
		order int
		dir   string
	}

	var candidates []candidate
	for _, base := range r.paths {
		entries, err := os.ReadDir(base)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("failed to scan %s: %w", base, err)
		}
		for _, entry := range entries {
			if entry.IsDir() {
				candidates = append(candidates, candidate{order: len(candidates), dir: filepath.Join(base, entry.Name())})
			}
		}
	}

	loaded := make([]*Addon, len(candidates))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for _, c := range candidates {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			a, err := Load(c.dir)
			if err != nil {
				if !errors.Is(err, ErrMissingDescriptor) {
					r.logger.Warn("skipping invalid addon", "dir", c.dir, "error", err)
				}
				return nil
			}
			loaded[c.order] = a
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	seen := make(map[string]bool)
	for _, a := range loaded {
		if a == nil || seen[a.ID] {
			continue
		}
		seen[a.ID] = true
		if _, exists := r.addons[a.ID]; !exists {
			r.addons[a.ID] = a
		}
	}
	r.logger.Debug("discovered addons", "count", len(r.addons))
	return nil
}

// Resolve returns the addon with the given id.
func (r *Repo) Resolve(id string) (*Addon, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.addons[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAddonNotFound, id)
	}
	return a, nil
}

// Dependencies returns the transitive dependencies of an addon in load order
// (dependencies before dependents). Missing optional dependencies are skipped.
func (r *Repo) Dependencies(a *Addon) ([]*Addon, error) {
	var ordered []*Addon
	visited := map[string]bool{a.ID: true}

	var walk func(*Addon) error
	walk = func(cur *Addon) error {
		for _, dep := range cur.Requires {
			if visited[dep.ID] {
				continue
			}
			visited[dep.ID] = true

			resolved, err := r.Resolve(dep.ID)
			if err != nil {
				if dep.Optional {
					continue
				}
				return fmt.Errorf("%w: %s requires %s", ErrDependencyNotFound, cur.ID, dep.ID)
			}
			if err := walk(resolved); err != nil {
				return err
			}
			ordered = append(ordered, resolved)
		}
		return nil
	}

	if err := walk(a); err != nil {
		return nil, err
	}
	return ordered, nil
}

// List returns all known addons sorted by id.
func (r *Repo) List() []*Addon {
	r.mu.RLock()
	defer r.mu.RUnlock()

	addons := make([]*Addon, 0, len(r.addons))
	for _, a := range r.addons {
		addons = append(addons, a)
	}
	sort.Slice(addons, func(i, j int) bool {
		return addons[i].ID < addons[j].ID
	})
	return addons
}

// Count returns the number of known addons.
func (r *Repo) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.addons)
}
