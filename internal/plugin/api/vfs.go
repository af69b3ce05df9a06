package api

import (
	"os"
	"strings"

	lua "github.com/yuin/gopher-lua"
)

// VFSModule implements xbmcvfs: path translation and basic file checks.
type VFSModule struct {
	env *Env
}

// NewVFSModule creates the xbmcvfs module.
func NewVFSModule(env *Env) *VFSModule {
	return &VFSModule{env: env}
}

// Name returns the module name.
func (m *VFSModule) Name() string {
	return "xbmcvfs"
}

// Register registers the module into the Lua state.
func (m *VFSModule) Register(L *lua.LState) error {
	preload(L, m.Name(), func(L *lua.LState) *lua.LTable {
		mod := L.NewTable()
		L.SetField(mod, "translatePath", L.NewFunction(m.translatePath))
		L.SetField(mod, "exists", L.NewFunction(m.exists))
		L.SetField(mod, "mkdirs", L.NewFunction(m.mkdirs))
		return mod
	})
	return nil
}

// resolve translates special:// paths and leaves others untouched.
func (m *VFSModule) resolve(L *lua.LState, path string) string {
	if !strings.HasPrefix(path, "special://") {
		return path
	}
	p, err := m.env.API.TranslatePath(path)
	m.env.check(L, err)
	return p
}

// translatePath(path) -> string
func (m *VFSModule) translatePath(L *lua.LState) int {
	L.Push(lua.LString(m.resolve(L, m.env.str(L, "xbmcvfs.translatePath", 1))))
	return 1
}

// exists(path) -> bool
func (m *VFSModule) exists(L *lua.LState) int {
	_, err := os.Stat(m.resolve(L, m.env.str(L, "xbmcvfs.exists", 1)))
	L.Push(lua.LBool(err == nil))
	return 1
}

// mkdirs(path) -> bool
func (m *VFSModule) mkdirs(L *lua.LState) int {
	err := os.MkdirAll(m.resolve(L, m.env.str(L, "xbmcvfs.mkdirs", 1)), 0755)
	if err != nil {
		m.env.Logger.Debug("mkdirs failed", "error", err)
	}
	L.Push(lua.LBool(err == nil))
	return 1
}
