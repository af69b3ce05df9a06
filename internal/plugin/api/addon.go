package api

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/addondev/internal/kodi"
)

const addonType = "xbmcaddon.Addon"

// AddonModule implements xbmcaddon: addon metadata, settings and strings.
type AddonModule struct {
	env *Env
}

// NewAddonModule creates the xbmcaddon module.
func NewAddonModule(env *Env) *AddonModule {
	return &AddonModule{env: env}
}

// Name returns the module name.
func (m *AddonModule) Name() string {
	return "xbmcaddon"
}

// Register registers the module into the Lua state.
func (m *AddonModule) Register(L *lua.LState) error {
	mt := L.NewTypeMetatable(addonType)
	L.SetField(mt, "__index", L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"getAddonInfo":       m.getAddonInfo,
		"getSetting":         m.getSetting,
		"getSettingString":   m.getSetting,
		"getSettingBool":     m.getSettingBool,
		"getSettingInt":      m.getSettingInt,
		"getSettingNumber":   m.getSettingNumber,
		"setSetting":         m.setSetting,
		"setSettingString":   m.setSetting,
		"setSettingBool":     m.setSettingBool,
		"setSettingInt":      m.setSettingInt,
		"setSettingNumber":   m.setSettingNumber,
		"getLocalizedString": m.getLocalizedString,
	}))

	preload(L, m.Name(), func(L *lua.LState) *lua.LTable {
		mod := L.NewTable()
		L.SetField(mod, "Addon", L.NewFunction(m.newAddon))
		return mod
	})
	return nil
}

// Addon(id?) -> Addon
// Without an id the invoked addon is returned.
func (m *AddonModule) newAddon(L *lua.LState) int {
	x, err := m.env.API.Addon(m.env.optStr(L, "Addon", 1, ""))
	m.env.check(L, err)

	ud := L.NewUserData()
	ud.Value = x
	L.SetMetatable(ud, L.GetTypeMetatable(addonType))
	L.Push(ud)
	return 1
}

// self returns the Addon a method is called on.
func (m *AddonModule) self(L *lua.LState, op string) *kodi.AddonAPI {
	if ud, ok := L.Get(1).(*lua.LUserData); ok {
		if x, ok := ud.Value.(*kodi.AddonAPI); ok {
			return x
		}
	}
	m.env.argErrorf(L, op, 1, "Addon expected, got %s", L.Get(1).Type())
	return nil
}

// getAddonInfo(name) -> string
func (m *AddonModule) getAddonInfo(L *lua.LState) int {
	const op = "Addon.getAddonInfo"
	v, err := m.self(L, op).Info(m.env.str(L, op, 2))
	m.env.check(L, err)
	L.Push(lua.LString(v))
	return 1
}

// getSetting(id) -> string
func (m *AddonModule) getSetting(L *lua.LState) int {
	const op = "Addon.getSetting"
	v, err := m.self(L, op).Setting(m.env.str(L, op, 2))
	m.env.check(L, err)
	L.Push(lua.LString(v))
	return 1
}

// getSettingBool(id) -> bool
func (m *AddonModule) getSettingBool(L *lua.LState) int {
	const op = "Addon.getSettingBool"
	v, err := m.self(L, op).SettingBool(m.env.str(L, op, 2))
	m.env.check(L, err)
	L.Push(lua.LBool(v))
	return 1
}

// getSettingInt(id) -> number
func (m *AddonModule) getSettingInt(L *lua.LState) int {
	const op = "Addon.getSettingInt"
	v, err := m.self(L, op).SettingInt(m.env.str(L, op, 2))
	m.env.check(L, err)
	L.Push(lua.LNumber(v))
	return 1
}

// getSettingNumber(id) -> number
func (m *AddonModule) getSettingNumber(L *lua.LState) int {
	const op = "Addon.getSettingNumber"
	v, err := m.self(L, op).SettingNumber(m.env.str(L, op, 2))
	m.env.check(L, err)
	L.Push(lua.LNumber(v))
	return 1
}

// setSetting(id, value) -> nil
func (m *AddonModule) setSetting(L *lua.LState) int {
	const op = "Addon.setSetting"
	m.env.check(L, m.self(L, op).SetSetting(m.env.str(L, op, 2), m.env.str(L, op, 3)))
	return 0
}

func (m *AddonModule) setSettingBool(L *lua.LState) int {
	const op = "Addon.setSettingBool"
	m.env.check(L, m.self(L, op).SetSettingBool(m.env.str(L, op, 2), m.env.boolean(L, op, 3)))
	return 0
}

func (m *AddonModule) setSettingInt(L *lua.LState) int {
	const op = "Addon.setSettingInt"
	m.env.check(L, m.self(L, op).SetSettingInt(m.env.str(L, op, 2), m.env.integer(L, op, 3)))
	return 0
}

func (m *AddonModule) setSettingNumber(L *lua.LState) int {
	const op = "Addon.setSettingNumber"
	m.env.check(L, m.self(L, op).SetSettingNumber(m.env.str(L, op, 2), m.env.number(L, op, 3)))
	return 0
}

// getLocalizedString(id) -> string
func (m *AddonModule) getLocalizedString(L *lua.LState) int {
	const op = "Addon.getLocalizedString"
	v, err := m.self(L, op).LocalizedString(m.env.integer(L, op, 2))
	m.env.check(L, err)
	L.Push(lua.LString(v))
	return 1
}
