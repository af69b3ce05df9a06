package lua

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeModule(t *testing.T, dir, rel, code string) {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	if err := os.WriteFile(path, []byte(code), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
}

func TestSandboxRemovesLoaders(t *testing.T) {
	state := newTestState(t)

	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "io", "debug"} {
		code := `assert(` + name + ` == nil, "` + name + ` should be unavailable")`
		if err := state.DoString(context.Background(), code); err != nil {
			t.Errorf("%s: %v", name, err)
		}
	}
}

func TestSandboxTrimsOS(t *testing.T) {
	state := newTestState(t)

	code := `
		assert(type(os.time()) == "number", "os.time")
		assert(type(os.date("%Y")) == "string", "os.date")
		assert(os.execute == nil, "os.execute")
		assert(os.remove == nil, "os.remove")
		assert(os.getenv == nil, "os.getenv")
		assert(os.exit == nil, "os.exit")
	`
	if err := state.DoString(context.Background(), code); err != nil {
		t.Errorf("DoString() error = %v", err)
	}
}

func TestSandboxPrint(t *testing.T) {
	var lines []string
	state := newTestState(t, WithPrint(func(line string) { lines = append(lines, line) }))

	if err := state.DoString(context.Background(), `print("a", 1, true)`); err != nil {
		t.Fatalf("DoString() error = %v", err)
	}
	if len(lines) != 1 || lines[0] != "a\t1\ttrue" {
		t.Errorf("print lines = %q", lines)
	}
}

func TestSandboxRequire(t *testing.T) {
	lib := t.TempDir()
	writeModule(t, lib, "helpers.lua", `local M = {} function M.twice(x) return x * 2 end return M`)
	writeModule(t, lib, "pkg/init.lua", `return { name = "pkg" }`)
	writeModule(t, lib, "pkg/sub.lua", `counter = (counter or 0) + 1 return { n = counter }`)
	writeModule(t, lib, "noreturn.lua", `loaded_noreturn = true`)

	state := newTestState(t, WithModulePaths(lib))

	code := `
		local h = require("helpers")
		assert(h.twice(21) == 42, "helpers")
		assert(require("pkg").name == "pkg", "init.lua")
		local a = require("pkg.sub")
		local b = require("pkg.sub")
		assert(a == b and counter == 1, "modules load once")
		assert(require("noreturn") == true, "modules without a return value")
		assert(require("string") == string, "stdlib")
	`
	if err := state.DoString(context.Background(), code); err != nil {
		t.Errorf("DoString() error = %v", err)
	}
}

func TestSandboxRequireRejects(t *testing.T) {
	tests := []struct {
		name   string
		module string
		want   string
	}{
		{name: "missing", module: "nothere", want: "not found"},
		{name: "escape", module: "../secret", want: "invalid"},
		{name: "io", module: "io", want: "not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := newTestState(t, WithModulePaths(t.TempDir()))
			err := state.DoString(context.Background(), `require("`+tt.module+`")`)
			if err == nil {
				t.Fatalf("require(%q) error = nil", tt.module)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("require(%q) error = %v, want it to mention %q", tt.module, err, tt.want)
			}
		})
	}
}

func TestFindModule(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()
	writeModule(t, second, "a/b.lua", `return 1`)
	writeModule(t, first, "a/b.lua", `return 2`)

	s := NewSandbox(nil, []string{first, second}, nil)

	got, err := s.FindModule("a.b")
	if err != nil {
		t.Fatalf("FindModule() error = %v", err)
	}
	if want := filepath.Join(first, "a", "b.lua"); got != want {
		t.Errorf("FindModule() = %q, want %q", got, want)
	}
	if _, err := s.FindModule("a..b"); !errors.Is(err, ErrInvalidModuleName) {
		t.Errorf("FindModule(a..b) error = %v, want %v", err, ErrInvalidModuleName)
	}
	if _, err := s.FindModule("zzz"); !errors.Is(err, ErrModuleNotFound) {
		t.Errorf("FindModule(zzz) error = %v, want %v", err, ErrModuleNotFound)
	}
}
