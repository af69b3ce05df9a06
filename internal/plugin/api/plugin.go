package api

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/addondev/internal/kodi"
)

// PluginModule implements xbmcplugin: listing output, resolution and
// per-handle settings.
type PluginModule struct {
	env *Env
}

// NewPluginModule creates the xbmcplugin module.
func NewPluginModule(env *Env) *PluginModule {
	return &PluginModule{env: env}
}

// Name returns the module name.
func (m *PluginModule) Name() string {
	return "xbmcplugin"
}

// Register registers the module into the Lua state.
func (m *PluginModule) Register(L *lua.LState) error {
	preload(L, m.Name(), func(L *lua.LState) *lua.LTable {
		mod := L.NewTable()

		L.SetField(mod, "addDirectoryItem", L.NewFunction(m.addDirectoryItem))
		L.SetField(mod, "addDirectoryItems", L.NewFunction(m.addDirectoryItems))
		L.SetField(mod, "endOfDirectory", L.NewFunction(m.endOfDirectory))
		L.SetField(mod, "setResolvedUrl", L.NewFunction(m.setResolvedURL))
		L.SetField(mod, "addSortMethod", L.NewFunction(m.addSortMethod))
		L.SetField(mod, "setContent", L.NewFunction(m.setContent))
		L.SetField(mod, "setPluginCategory", L.NewFunction(m.setPluginCategory))
		L.SetField(mod, "setProperty", L.NewFunction(m.setProperty))
		L.SetField(mod, "getSetting", L.NewFunction(m.getSetting))
		L.SetField(mod, "setSetting", L.NewFunction(m.setSetting))

		for name, method := range kodi.SortMethods() {
			L.SetField(mod, name, lua.LNumber(method))
		}
		return mod
	})
	return nil
}

// addDirectoryItem(handle, url, listitem?, isFolder?, totalItems?) -> true
// A nil url reaches the context as an item without a target.
func (m *PluginModule) addDirectoryItem(L *lua.LState) int {
	const op = "addDirectoryItem"
	handle := m.env.integer(L, op, 1)
	url := m.env.optStr(L, op, 2, "")
	item := m.env.optListItem(L, op, 3)
	isFolder := m.env.optBool(L, op, 4, false)

	m.env.check(L, m.env.API.AddDirectoryItem(handle, url, item, isFolder))
	L.Push(lua.LTrue)
	return 1
}

// addDirectoryItems(handle, {{url, listitem, isFolder}, ...}, totalItems?) -> true
func (m *PluginModule) addDirectoryItems(L *lua.LState) int {
	const op = "addDirectoryItems"
	handle := m.env.integer(L, op, 1)
	list := m.env.table(L, op, 2)

	items := make([]kodi.DirectoryItem, 0, list.Len())
	for i := 1; i <= list.Len(); i++ {
		entry, ok := list.RawGetInt(i).(*lua.LTable)
		if !ok {
			m.env.argErrorf(L, op, 2, "entry %d: {url, listitem, isFolder} table expected", i)
			return 0
		}
		it := kodi.DirectoryItem{IsFolder: lua.LVAsBool(entry.RawGetInt(3))}
		if s, ok := entry.RawGetInt(1).(lua.LString); ok {
			it.URL = string(s)
		}
		if ud, ok := entry.RawGetInt(2).(*lua.LUserData); ok {
			it.Item, _ = ud.Value.(*kodi.ListItem)
		}
		items = append(items, it)
	}

	m.env.check(L, m.env.API.AddDirectoryItems(handle, items))
	L.Push(lua.LTrue)
	return 1
}

// endOfDirectory(handle, succeeded?, updateListing?, cacheToDisc?) -> nil
func (m *PluginModule) endOfDirectory(L *lua.LState) int {
	const op = "endOfDirectory"
	handle := m.env.integer(L, op, 1)
	opts := []kodi.DirectoryOption{
		kodi.WithSucceeded(m.env.optBool(L, op, 2, true)),
		kodi.WithUpdateListing(m.env.optBool(L, op, 3, false)),
		kodi.WithCacheToDisc(m.env.optBool(L, op, 4, true)),
	}

	m.env.check(L, m.env.API.EndOfDirectory(handle, opts...))
	return 0
}

// setResolvedUrl(handle, succeeded, listitem) -> nil
func (m *PluginModule) setResolvedURL(L *lua.LState) int {
	const op = "setResolvedUrl"
	handle := m.env.integer(L, op, 1)
	succeeded := m.env.boolean(L, op, 2)
	item := m.env.optListItem(L, op, 3)

	m.env.check(L, m.env.API.SetResolvedURL(handle, succeeded, item))
	return 0
}

// addSortMethod(handle, sortMethod, labelMask?, label2Mask?) -> nil
func (m *PluginModule) addSortMethod(L *lua.LState) int {
	const op = "addSortMethod"
	handle := m.env.integer(L, op, 1)
	method := kodi.SortMethod(m.env.integer(L, op, 2))
	labelMask := m.env.optStr(L, op, 3, "")
	label2Mask := m.env.optStr(L, op, 4, "")

	m.env.check(L, m.env.API.AddSortMethod(handle, method, labelMask, label2Mask))
	return 0
}

// setContent(handle, content) -> nil
func (m *PluginModule) setContent(L *lua.LState) int {
	const op = "setContent"
	m.env.check(L, m.env.API.SetContent(m.env.integer(L, op, 1), m.env.str(L, op, 2)))
	return 0
}

// setPluginCategory(handle, category) -> nil
func (m *PluginModule) setPluginCategory(L *lua.LState) int {
	const op = "setPluginCategory"
	m.env.check(L, m.env.API.SetPluginCategory(m.env.integer(L, op, 1), m.env.str(L, op, 2)))
	return 0
}

// setProperty(handle, key, value) -> nil
func (m *PluginModule) setProperty(L *lua.LState) int {
	const op = "setProperty"
	m.env.check(L, m.env.API.SetProperty(m.env.integer(L, op, 1), m.env.str(L, op, 2), m.env.str(L, op, 3)))
	return 0
}

// getSetting(handle, id) -> string
func (m *PluginModule) getSetting(L *lua.LState) int {
	const op = "getSetting"
	v, err := m.env.API.PluginSetting(m.env.integer(L, op, 1), m.env.str(L, op, 2))
	m.env.check(L, err)
	L.Push(lua.LString(v))
	return 1
}

// setSetting(handle, id, value) -> nil
func (m *PluginModule) setSetting(L *lua.LState) int {
	const op = "setSetting"
	m.env.check(L, m.env.API.SetPluginSetting(m.env.integer(L, op, 1), m.env.str(L, op, 2), m.env.str(L, op, 3)))
	return 0
}
