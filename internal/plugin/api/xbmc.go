package api

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/addondev/internal/kodi"
)

const playlistType = "xbmc.PlayList"

// XBMCModule implements xbmc: logging, paths, info labels, builtins and
// the playlist.
type XBMCModule struct {
	env *Env
}

// NewXBMCModule creates the xbmc module.
func NewXBMCModule(env *Env) *XBMCModule {
	return &XBMCModule{env: env}
}

// Name returns the module name.
func (m *XBMCModule) Name() string {
	return "xbmc"
}

var logLevels = map[string]kodi.LogLevel{
	"LOGDEBUG":   kodi.LogDebug,
	"LOGINFO":    kodi.LogInfo,
	"LOGNOTICE":  kodi.LogNotice,
	"LOGWARNING": kodi.LogWarning,
	"LOGERROR":   kodi.LogError,
	"LOGSEVERE":  kodi.LogSevere,
	"LOGFATAL":   kodi.LogFatal,
	"LOGNONE":    kodi.LogNone,
}

// Register registers the module into the Lua state.
func (m *XBMCModule) Register(L *lua.LState) error {
	mt := L.NewTypeMetatable(playlistType)
	L.SetField(mt, "__index", L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"add": m.playlistAdd,
	}))

	preload(L, m.Name(), func(L *lua.LState) *lua.LTable {
		mod := L.NewTable()
		L.SetField(mod, "log", L.NewFunction(m.log))
		L.SetField(mod, "translatePath", L.NewFunction(m.translatePath))
		L.SetField(mod, "getInfoLabel", L.NewFunction(m.getInfoLabel))
		L.SetField(mod, "executebuiltin", L.NewFunction(m.executeBuiltin))
		L.SetField(mod, "PlayList", L.NewFunction(m.newPlaylist))

		for name, level := range logLevels {
			L.SetField(mod, name, lua.LNumber(level))
		}
		L.SetField(mod, "PLAYLIST_MUSIC", lua.LNumber(0))
		L.SetField(mod, "PLAYLIST_VIDEO", lua.LNumber(1))
		return mod
	})
	return nil
}

// log(msg, level?) -> nil
func (m *XBMCModule) log(L *lua.LState) int {
	msg := m.env.str(L, "log", 1)
	level := kodi.LogLevel(m.env.optInt(L, "log", 2, int(kodi.LogDebug)))

	m.env.check(L, m.env.API.Log(level, msg))
	return 0
}

// translatePath(path) -> string
func (m *XBMCModule) translatePath(L *lua.LState) int {
	p, err := m.env.API.TranslatePath(m.env.str(L, "translatePath", 1))
	m.env.check(L, err)
	L.Push(lua.LString(p))
	return 1
}

// getInfoLabel(name) -> string
func (m *XBMCModule) getInfoLabel(L *lua.LState) int {
	v, err := m.env.API.InfoLabel(m.env.str(L, "getInfoLabel", 1))
	m.env.check(L, err)
	L.Push(lua.LString(v))
	return 1
}

// executebuiltin(cmd, wait?) -> nil
// RunPlugin(url) runs the target synchronously as a nested dispatch.
func (m *XBMCModule) executeBuiltin(L *lua.LState) int {
	m.env.check(L, m.env.API.ExecuteBuiltin(m.env.Ctx, m.env.str(L, "executebuiltin", 1)))
	return 0
}

// PlayList(kind) -> PlayList
func (m *XBMCModule) newPlaylist(L *lua.LState) int {
	ud := L.NewUserData()
	ud.Value = m.env.optInt(L, "PlayList", 1, 1)
	L.SetMetatable(ud, L.GetTypeMetatable(playlistType))
	L.Push(ud)
	return 1
}

// playlist:add(url, listitem?) -> nil
func (m *XBMCModule) playlistAdd(L *lua.LState) int {
	const op = "PlayList.add"
	if _, ok := L.Get(1).(*lua.LUserData); !ok {
		m.env.argErrorf(L, op, 1, "PlayList expected, got %s", L.Get(1).Type())
	}
	url := m.env.str(L, op, 2)
	item := m.env.optListItem(L, op, 3)

	m.env.check(L, m.env.API.AddToPlaylist(url, item))
	return 0
}
