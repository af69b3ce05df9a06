package api

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/addondev/internal/kodi"
)

const (
	listItemType = "xbmcgui.ListItem"
	dialogType   = "xbmcgui.Dialog"
)

// GUIModule implements xbmcgui: the ListItem type and dialogs.
type GUIModule struct {
	env *Env
}

// NewGUIModule creates the xbmcgui module.
func NewGUIModule(env *Env) *GUIModule {
	return &GUIModule{env: env}
}

// Name returns the module name.
func (m *GUIModule) Name() string {
	return "xbmcgui"
}

// Register registers the module into the Lua state.
func (m *GUIModule) Register(L *lua.LState) error {
	m.registerListItemType(L)

	dialog := L.NewTypeMetatable(dialogType)
	L.SetField(dialog, "__index", L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"notification": m.notification,
		"ok":           m.ok,
		"input":        m.input,
		"select":       m.selectDialog,
		"yesno":        m.yesno,
	}))

	preload(L, m.Name(), func(L *lua.LState) *lua.LTable {
		mod := L.NewTable()
		L.SetField(mod, "ListItem", L.NewFunction(m.newListItem))
		L.SetField(mod, "Dialog", L.NewFunction(m.newDialog))

		L.SetField(mod, "NOTIFICATION_INFO", lua.LString("info"))
		L.SetField(mod, "NOTIFICATION_WARNING", lua.LString("warning"))
		L.SetField(mod, "NOTIFICATION_ERROR", lua.LString("error"))
		L.SetField(mod, "INPUT_ALPHANUM", lua.LNumber(0))
		return mod
	})
	return nil
}

// registerListItemType installs the ListItem metatable.
func (m *GUIModule) registerListItemType(L *lua.LState) {
	mt := L.NewTypeMetatable(listItemType)
	L.SetField(mt, "__index", L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"getLabel":            m.getLabel,
		"setLabel":            m.setLabel,
		"getLabel2":           m.getLabel2,
		"setLabel2":           m.setLabel2,
		"getPath":             m.getPath,
		"setPath":             m.setPath,
		"setArt":              m.setArt,
		"getArt":              m.getArt,
		"setInfo":             m.setInfo,
		"setProperty":         m.setProperty,
		"setProperties":       m.setProperties,
		"getProperty":         m.getProperty,
		"addStreamInfo":       m.addStreamInfo,
		"addContextMenuItems": m.addContextMenuItems,
		"setMimeType":         m.setMimeType,
		"setSubtitles":        m.setSubtitles,
		"setIsFolder":         m.setIsFolder,
		"setContentLookup":    func(*lua.LState) int { return 0 },
	}))
	L.SetField(mt, "__tostring", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LString("ListItem(" + m.item(L, "ListItem.__tostring").Label + ")"))
		return 1
	}))
}

// pushListItem wraps a ListItem as userdata.
func pushListItem(L *lua.LState, li *kodi.ListItem) {
	ud := L.NewUserData()
	ud.Value = li
	L.SetMetatable(ud, L.GetTypeMetatable(listItemType))
	L.Push(ud)
}

// item returns the ListItem a method is called on.
func (m *GUIModule) item(L *lua.LState, op string) *kodi.ListItem {
	return m.env.listItem(L, op, 1)
}

// ListItem(label?, label2?, path?) or ListItem{label=, label2=, path=} -> ListItem
func (m *GUIModule) newListItem(L *lua.LState) int {
	const op = "ListItem"
	li := kodi.NewListItem("")
	if tbl, ok := L.Get(1).(*lua.LTable); ok {
		li.SetLabel(getTableString(tbl, "label"))
		li.SetLabel2(getTableString(tbl, "label2"))
		li.SetPath(getTableString(tbl, "path"))
	} else {
		li.SetLabel(m.env.optStr(L, op, 1, ""))
		li.SetLabel2(m.env.optStr(L, op, 2, ""))
		li.SetPath(m.env.optStr(L, op, 3, ""))
	}
	pushListItem(L, li)
	return 1
}

func (m *GUIModule) getLabel(L *lua.LState) int {
	L.Push(lua.LString(m.item(L, "ListItem.getLabel").Label))
	return 1
}

func (m *GUIModule) setLabel(L *lua.LState) int {
	const op = "ListItem.setLabel"
	m.item(L, op).SetLabel(m.env.str(L, op, 2))
	return 0
}

func (m *GUIModule) getLabel2(L *lua.LState) int {
	L.Push(lua.LString(m.item(L, "ListItem.getLabel2").Label2))
	return 1
}

func (m *GUIModule) setLabel2(L *lua.LState) int {
	const op = "ListItem.setLabel2"
	m.item(L, op).SetLabel2(m.env.str(L, op, 2))
	return 0
}

func (m *GUIModule) getPath(L *lua.LState) int {
	L.Push(lua.LString(m.item(L, "ListItem.getPath").Path))
	return 1
}

func (m *GUIModule) setPath(L *lua.LState) int {
	const op = "ListItem.setPath"
	m.item(L, op).SetPath(m.env.str(L, op, 2))
	return 0
}

// setArt({thumb=, poster=, fanart=, icon=, ...})
func (m *GUIModule) setArt(L *lua.LState) int {
	const op = "ListItem.setArt"
	m.item(L, op).SetArt(m.env.stringMap(L, op, 2))
	return 0
}

// getArt(key) -> string
func (m *GUIModule) getArt(L *lua.LState) int {
	const op = "ListItem.getArt"
	L.Push(lua.LString(m.item(L, op).Art[m.env.str(L, op, 2)]))
	return 1
}

// setInfo(type, {label = value})
func (m *GUIModule) setInfo(L *lua.LState) int {
	const op = "ListItem.setInfo"
	li := m.item(L, op)
	infoType := m.env.str(L, op, 2)
	if err := li.SetInfo(infoType, m.env.record(L, op, 3)); err != nil {
		m.env.argError(L, op, 2, err)
	}
	return 0
}

func (m *GUIModule) setProperty(L *lua.LState) int {
	const op = "ListItem.setProperty"
	m.item(L, op).SetProperty(m.env.str(L, op, 2), m.env.str(L, op, 3))
	return 0
}

// setProperties({key = value})
func (m *GUIModule) setProperties(L *lua.LState) int {
	const op = "ListItem.setProperties"
	li := m.item(L, op)
	for k, v := range m.env.stringMap(L, op, 2) {
		li.SetProperty(k, v)
	}
	return 0
}

func (m *GUIModule) getProperty(L *lua.LState) int {
	const op = "ListItem.getProperty"
	L.Push(lua.LString(m.item(L, op).Property(m.env.str(L, op, 2))))
	return 1
}

// addStreamInfo(type, {codec=, width=, ...})
func (m *GUIModule) addStreamInfo(L *lua.LState) int {
	const op = "ListItem.addStreamInfo"
	li := m.item(L, op)
	streamType := m.env.str(L, op, 2)
	if err := li.AddStreamInfo(streamType, m.env.record(L, op, 3)); err != nil {
		m.env.argError(L, op, 2, err)
	}
	return 0
}

// addContextMenuItems({{label, action}, ...})
func (m *GUIModule) addContextMenuItems(L *lua.LState) int {
	const op = "ListItem.addContextMenuItems"
	li := m.item(L, op)
	list := m.env.table(L, op, 2)

	entries := make([]kodi.ContextMenuEntry, 0, list.Len())
	for i := 1; i <= list.Len(); i++ {
		pair, ok := list.RawGetInt(i).(*lua.LTable)
		if !ok {
			m.env.argErrorf(L, op, 2, "entry %d: {label, action} table expected", i)
			return 0
		}
		entries = append(entries, kodi.ContextMenuEntry{
			Label:  lua.LVAsString(pair.RawGetInt(1)),
			Action: lua.LVAsString(pair.RawGetInt(2)),
		})
	}
	if err := li.AddContextMenuItems(entries...); err != nil {
		m.env.argError(L, op, 2, err)
	}
	return 0
}

func (m *GUIModule) setMimeType(L *lua.LState) int {
	const op = "ListItem.setMimeType"
	m.item(L, op).SetMimeType(m.env.str(L, op, 2))
	return 0
}

// setSubtitles({path, ...})
func (m *GUIModule) setSubtitles(L *lua.LState) int {
	const op = "ListItem.setSubtitles"
	m.item(L, op).SetSubtitles(m.env.stringList(L, op, 2))
	return 0
}

func (m *GUIModule) setIsFolder(L *lua.LState) int {
	const op = "ListItem.setIsFolder"
	m.item(L, op).Folder = m.env.boolean(L, op, 2)
	return 0
}

// Dialog() -> Dialog
func (m *GUIModule) newDialog(L *lua.LState) int {
	ud := L.NewUserData()
	L.SetMetatable(ud, L.GetTypeMetatable(dialogType))
	L.Push(ud)
	return 1
}

// notification(heading, message, icon?, time?) -> nil
func (m *GUIModule) notification(L *lua.LState) int {
	const op = "Dialog.notification"
	heading := m.env.str(L, op, 2)
	message := m.env.str(L, op, 3)

	m.env.check(L, m.env.API.Notify(heading, message))
	return 0
}

// ok(heading, message) -> true
// Recorded like a notification; there is nobody to acknowledge it.
func (m *GUIModule) ok(L *lua.LState) int {
	const op = "Dialog.ok"
	m.env.check(L, m.env.API.Notify(m.env.str(L, op, 2), m.env.str(L, op, 3)))
	L.Push(lua.LTrue)
	return 1
}

// input(heading, default?, type?) -> string
// Cancelling returns "".
func (m *GUIModule) input(L *lua.LState) int {
	const op = "Dialog.input"
	heading := m.env.str(L, op, 2)
	defaultValue := m.env.optStr(L, op, 3, "")

	v, err := m.env.API.Input(heading, defaultValue)
	m.env.check(L, err)
	L.Push(lua.LString(v))
	return 1
}

// select(heading, {options}) -> index
// The index is 0-based; cancelling returns -1.
func (m *GUIModule) selectDialog(L *lua.LState) int {
	const op = "Dialog.select"
	heading := m.env.str(L, op, 2)
	options := m.env.stringList(L, op, 3)

	idx, err := m.env.API.Select(heading, options)
	m.env.check(L, err)
	L.Push(lua.LNumber(idx))
	return 1
}

// yesno(heading, message) -> bool
func (m *GUIModule) yesno(L *lua.LState) int {
	const op = "Dialog.yesno"
	heading := m.env.str(L, op, 2)
	message := m.env.optStr(L, op, 3, "")

	ok, err := m.env.API.YesNo(heading, message)
	m.env.check(L, err)
	L.Push(lua.LBool(ok))
	return 1
}
