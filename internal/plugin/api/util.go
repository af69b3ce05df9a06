package api

import (
	"net/url"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/addondev/internal/kodi"
	plua "github.com/dshills/addondev/internal/plugin/lua"
)

// UtilModule implements the pluginutil module: URL building and query
// parsing for plugin routing, plus string helpers Lua lacks.
type UtilModule struct{}

// NewUtilModule creates a new util module.
func NewUtilModule() *UtilModule {
	return &UtilModule{}
}

// Name returns the module name.
func (m *UtilModule) Name() string {
	return "pluginutil"
}

// Register registers the module into the Lua state.
func (m *UtilModule) Register(L *lua.LState) error {
	preload(L, m.Name(), func(L *lua.LState) *lua.LTable {
		mod := L.NewTable()

		// URL utilities
		L.SetField(mod, "build_url", L.NewFunction(m.buildURL))
		L.SetField(mod, "parse_query", L.NewFunction(m.parseQuery))
		L.SetField(mod, "quote", L.NewFunction(m.quote))
		L.SetField(mod, "unquote", L.NewFunction(m.unquote))

		// String utilities
		L.SetField(mod, "split", L.NewFunction(m.split))
		L.SetField(mod, "trim", L.NewFunction(m.trim))
		L.SetField(mod, "starts_with", L.NewFunction(m.startsWith))
		L.SetField(mod, "ends_with", L.NewFunction(m.endsWith))
		L.SetField(mod, "join", L.NewFunction(m.join))
		L.SetField(mod, "escape_pattern", L.NewFunction(m.escapePattern))
		return mod
	})
	return nil
}

// build_url(base, params?) -> string
// Builds a plugin URL. base is either plugin://<id>/<path> or a bare addon id.
func (m *UtilModule) buildURL(L *lua.LState) int {
	base := L.CheckString(1)
	params := plua.NewBridge(L).StringMap(L.OptTable(2, nil))

	addonID, path := base, "/"
	if kodi.IsPluginURL(base) {
		u, err := kodi.ParseURL(base)
		if err != nil {
			L.ArgError(1, err.Error())
			return 0
		}
		addonID, path = u.AddonID, u.Path
		for k, v := range u.Query {
			if _, ok := params[k]; !ok {
				params[k] = v
			}
		}
	}

	L.Push(lua.LString(kodi.BuildURL(addonID, path, params)))
	return 1
}

// parse_query(query) -> {key = value}
// Parses a query string with or without its leading "?". The first value of
// a repeated key wins.
func (m *UtilModule) parseQuery(L *lua.LState) int {
	query := strings.TrimPrefix(L.CheckString(1), "?")

	values, err := url.ParseQuery(query)
	if err != nil {
		L.ArgError(1, err.Error())
		return 0
	}

	tbl := L.NewTable()
	for k, v := range values {
		if len(v) > 0 {
			tbl.RawSetString(k, lua.LString(v[0]))
		}
	}
	L.Push(tbl)
	return 1
}

// quote(str) -> string
// Percent-encodes a string for use in a query.
func (m *UtilModule) quote(L *lua.LState) int {
	L.Push(lua.LString(url.QueryEscape(L.CheckString(1))))
	return 1
}

// unquote(str) -> string
// Decodes a percent-encoded string.
func (m *UtilModule) unquote(L *lua.LState) int {
	s, err := url.QueryUnescape(L.CheckString(1))
	if err != nil {
		L.ArgError(1, err.Error())
		return 0
	}
	L.Push(lua.LString(s))
	return 1
}

// split(str, sep) -> {parts}
// Splits a string by separator.
func (m *UtilModule) split(L *lua.LState) int {
	str := L.CheckString(1)
	sep := L.CheckString(2)

	parts := strings.Split(str, sep)
	tbl := L.NewTable()
	for i, part := range parts {
		tbl.RawSetInt(i+1, lua.LString(part))
	}

	L.Push(tbl)
	return 1
}

// trim(str) -> string
func (m *UtilModule) trim(L *lua.LState) int {
	L.Push(lua.LString(strings.TrimSpace(L.CheckString(1))))
	return 1
}

// starts_with(str, prefix) -> bool
func (m *UtilModule) startsWith(L *lua.LState) int {
	L.Push(lua.LBool(strings.HasPrefix(L.CheckString(1), L.CheckString(2))))
	return 1
}

// ends_with(str, suffix) -> bool
func (m *UtilModule) endsWith(L *lua.LState) int {
	L.Push(lua.LBool(strings.HasSuffix(L.CheckString(1), L.CheckString(2))))
	return 1
}

// join(tbl, sep) -> string
// Joins the sequence part of a table with a separator.
func (m *UtilModule) join(L *lua.LState) int {
	tbl := L.CheckTable(1)
	sep := L.OptString(2, "")

	L.Push(lua.LString(strings.Join(plua.NewBridge(L).StringSlice(tbl), sep)))
	return 1
}

// escape_pattern(str) -> string
// Escapes special characters for use in Lua patterns.
func (m *UtilModule) escapePattern(L *lua.LState) int {
	str := L.CheckString(1)

	// % must be escaped first to avoid double-escaping
	escaped := strings.ReplaceAll(str, "%", "%%")
	for _, ch := range []string{"^", "$", "(", ")", ".", "[", "]", "*", "+", "-", "?"} {
		escaped = strings.ReplaceAll(escaped, ch, "%"+ch)
	}

	L.Push(lua.LString(escaped))
	return 1
}

// getTableString returns a string field of a table, or "".
func getTableString(tbl *lua.LTable, key string) string {
	if v, ok := tbl.RawGetString(key).(lua.LString); ok {
		return string(v)
	}
	return ""
}
