package addon

import (
	"errors"
	"testing"
)

func TestRouterMatch(t *testing.T) {
	r := NewRouter(
		Route{Pattern: "/*", Entry: "main.lua"},
		Route{Pattern: "/search/*", Entry: "search.lua"},
		Route{Pattern: "/search/live/*", Entry: "live.lua"},
		Route{Pattern: "/play/?", Entry: "play.lua"},
	)

	tests := []struct {
		path string
		want string
	}{
		{"", "main.lua"},
		{"/", "main.lua"},
		{"/videos/new", "main.lua"},
		{"/search/", "search.lua"},
		{"/search/term", "search.lua"},
		{"/search/live/now", "live.lua"},
		{"/play/1", "play.lua"},
		{"/play/12", "main.lua"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := r.Match(tt.path)
			if err != nil {
				t.Fatalf("Match(%q) error = %v", tt.path, err)
			}
			if got != tt.want {
				t.Errorf("Match(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestRouterNoRoute(t *testing.T) {
	r := NewRouter(Route{Pattern: "/only", Entry: "only.lua"})

	if _, err := r.Match("/other"); !errors.Is(err, ErrNoRoute) {
		t.Errorf("Match() error = %v, want ErrNoRoute", err)
	}
}

func TestParseRoutes(t *testing.T) {
	data := []byte(`routes:
  - pattern: search/*
    entry: search.lua
  - pattern: /settings
    entry: settings.lua
`)

	routes, err := ParseRoutes(data)
	if err != nil {
		t.Fatalf("ParseRoutes() error = %v", err)
	}
	if len(routes) != 2 {
		t.Fatalf("len(routes) = %d, want 2", len(routes))
	}
	if routes[0].Pattern != "/search/*" {
		t.Errorf("routes[0].Pattern = %q, want %q", routes[0].Pattern, "/search/*")
	}

	if _, err := ParseRoutes([]byte("routes:\n  - pattern: /x\n")); err == nil {
		t.Error("ParseRoutes() without entry should return error")
	}
	if _, err := ParseRoutes([]byte("routes: [")); err == nil {
		t.Error("ParseRoutes() with invalid YAML should return error")
	}
}

func TestRouterFor(t *testing.T) {
	dir := writeAddon(t, t.TempDir(), "plugin.video.test", testDescriptor, map[string]string{
		RoutesFile: "routes:\n  - pattern: /search/*\n    entry: search.lua\n",
	})
	a, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	r, err := RouterFor(a)
	if err != nil {
		t.Fatalf("RouterFor() error = %v", err)
	}
	if len(r.Routes()) != 2 {
		t.Fatalf("len(Routes()) = %d, want 2", len(r.Routes()))
	}

	if got, _ := r.Match("/search/x"); got != "search.lua" {
		t.Errorf("Match(/search/x) = %q, want %q", got, "search.lua")
	}
	if got, _ := r.Match("/"); got != "main.lua" {
		t.Errorf("Match(/) = %q, want %q", got, "main.lua")
	}
}
