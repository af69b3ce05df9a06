package lua

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	lua "github.com/yuin/gopher-lua"
)

// Sandbox restricts Lua execution to safe operations.
type Sandbox struct {
	L *lua.LState

	// directories searched by require, in order
	modulePaths []string
	print       func(string)
}

// NewSandbox creates a new sandbox for the Lua state. A nil print keeps the
// default print.
func NewSandbox(L *lua.LState, modulePaths []string, printFn func(string)) *Sandbox {
	return &Sandbox{
		L:           L,
		modulePaths: append([]string(nil), modulePaths...),
		print:       printFn,
	}
}

// Install sets up the sandbox restrictions.
func (s *Sandbox) Install() {
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring"} {
		s.L.SetGlobal(name, lua.LNil)
	}

	s.trimOS()
	s.installPrint()
	s.installRequire()
}

// safeOS lists the os functions plugins keep.
var safeOS = map[string]bool{
	"time":     true,
	"date":     true,
	"clock":    true,
	"difftime": true,
}

// trimOS removes os functions that touch the process or the filesystem.
func (s *Sandbox) trimOS() {
	osMod, ok := s.L.GetGlobal("os").(*lua.LTable)
	if !ok {
		return
	}
	var remove []string
	osMod.ForEach(func(k, _ lua.LValue) {
		if ks, ok := k.(lua.LString); ok && !safeOS[string(ks)] {
			remove = append(remove, string(ks))
		}
	})
	for _, name := range remove {
		osMod.RawSetString(name, lua.LNil)
	}
}

// installPrint redirects print when a print function is configured.
func (s *Sandbox) installPrint() {
	if s.print == nil {
		return
	}
	s.L.SetGlobal("print", s.L.NewFunction(func(L *lua.LState) int {
		n := L.GetTop()
		parts := make([]string, n)
		for i := 1; i <= n; i++ {
			parts[i-1] = L.ToStringMeta(L.Get(i)).String()
		}
		s.print(strings.Join(parts, "\t"))
		return 0
	}))
}

// moduleName restricts require names to dotted identifiers.
var moduleName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)

// installRequire replaces require with a version that resolves preloaded
// host modules and Lua files under the module paths only.
func (s *Sandbox) installRequire() {
	pkg, ok := s.L.GetGlobal("package").(*lua.LTable)
	if !ok {
		return
	}
	s.L.SetField(pkg, "path", lua.LString(""))
	s.L.SetField(pkg, "cpath", lua.LString(""))

	originalRequire := s.L.GetGlobal("require")

	s.L.SetGlobal("require", s.L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)

		loaded, _ := L.GetField(pkg, "loaded").(*lua.LTable)
		if loaded != nil {
			if v := loaded.RawGetString(name); v != lua.LNil {
				L.Push(v)
				return 1
			}
		}

		if preload, ok := L.GetField(pkg, "preload").(*lua.LTable); ok {
			if preload.RawGetString(name) != lua.LNil {
				L.Push(originalRequire)
				L.Push(lua.LString(name))
				L.Call(1, 1)
				return 1
			}
		}

		path, err := s.FindModule(name)
		if err != nil {
			L.RaiseError("module %q: %v", name, err)
			return 0
		}
		fn, err := L.LoadFile(path)
		if err != nil {
			L.RaiseError("error loading module %q from %s: %v", name, path, err)
			return 0
		}

		L.Push(fn)
		L.Push(lua.LString(name))
		L.Call(1, 1)
		ret := L.Get(-1)
		L.Pop(1)
		if ret == lua.LNil {
			ret = lua.LTrue
		}
		if loaded != nil {
			loaded.RawSetString(name, ret)
		}
		L.Push(ret)
		return 1
	}))
}

// FindModule locates a module file under the module paths. a.b resolves to
// a/b.lua or a/b/init.lua.
func (s *Sandbox) FindModule(name string) (string, error) {
	if !moduleName.MatchString(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidModuleName, name)
	}
	rel := filepath.FromSlash(strings.ReplaceAll(name, ".", "/"))
	for _, dir := range s.modulePaths {
		for _, candidate := range []string{rel + ".lua", filepath.Join(rel, "init.lua")} {
			path := filepath.Join(dir, candidate)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return path, nil
			}
		}
	}
	return "", fmt.Errorf("%w: %s", ErrModuleNotFound, name)
}
