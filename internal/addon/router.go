package addon

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// RoutesFile is the optional routing table inside an addon directory.
const RoutesFile = "routes.yaml"

// Route maps a plugin:// URL path pattern to an entry file.
//
// A pattern ending in "*" matches any path with the preceding prefix.
// Other patterns are matched with path.Match.
type Route struct {
	Pattern string `yaml:"pattern"`
	Entry   string `yaml:"entry"`
}

// specificity orders routes so that longer literal prefixes win.
func (r Route) specificity() int {
	return len(strings.TrimRight(r.Pattern, "*"))
}

func (r Route) matches(p string) bool {
	if strings.HasSuffix(r.Pattern, "*") && !strings.ContainsAny(strings.TrimSuffix(r.Pattern, "*"), "*?[") {
		return strings.HasPrefix(p, strings.TrimSuffix(r.Pattern, "*"))
	}
	ok, err := path.Match(r.Pattern, p)
	return err == nil && ok
}

type routesDoc struct {
	Routes []Route `yaml:"routes"`
}

// Router resolves URL paths to addon entry files.
type Router struct {
	routes []Route
}

// NewRouter creates a router from routes. Routes are tried most specific first.
func NewRouter(routes ...Route) *Router {
	sorted := append([]Route(nil), routes...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].specificity() > sorted[j].specificity()
	})
	return &Router{routes: sorted}
}

// RouterFor builds the routing table for an addon: routes from routes.yaml
// (if present) plus a catch-all route to the library entry point.
func RouterFor(a *Addon) (*Router, error) {
	var routes []Route

	// Addons built in memory have no directory and only use the library route
	if a.Path() != "" {
		data, err := os.ReadFile(filepath.Join(a.Path(), RoutesFile))
		switch {
		case err == nil:
			parsed, err := ParseRoutes(data)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", a.ID, err)
			}
			routes = parsed
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("failed to read routes: %w", err)
		}
	}

	if a.Library != "" {
		routes = append(routes, Route{Pattern: "/*", Entry: a.Library})
	}
	return NewRouter(routes...), nil
}

// ParseRoutes parses a routes.yaml document.
func ParseRoutes(data []byte) ([]Route, error) {
	var doc routesDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse routes: %w", err)
	}
	for i, r := range doc.Routes {
		if r.Pattern == "" || r.Entry == "" {
			return nil, fmt.Errorf("route %d: pattern and entry are required", i)
		}
		if !strings.HasPrefix(r.Pattern, "/") {
			doc.Routes[i].Pattern = "/" + r.Pattern
		}
	}
	return doc.Routes, nil
}

// Match returns the entry file for a URL path.
func (r *Router) Match(urlPath string) (string, error) {
	p := urlPath
	if p == "" {
		p = "/"
	}
	for _, route := range r.routes {
		if route.matches(p) {
			return route.Entry, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNoRoute, p)
}

// Routes returns the routing table in match order.
func (r *Router) Routes() []Route {
	return append([]Route(nil), r.routes...)
}
