package api

import (
	"encoding/json"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	lua "github.com/yuin/gopher-lua"

	plua "github.com/dshills/addondev/internal/plugin/lua"
)

// JSONModule implements the json module plugins use to read web APIs.
type JSONModule struct{}

// NewJSONModule creates the json module.
func NewJSONModule() *JSONModule {
	return &JSONModule{}
}

// Name returns the module name.
func (m *JSONModule) Name() string {
	return "json"
}

// Register registers the module into the Lua state.
func (m *JSONModule) Register(L *lua.LState) error {
	preload(L, m.Name(), func(L *lua.LState) *lua.LTable {
		mod := L.NewTable()
		L.SetField(mod, "decode", L.NewFunction(m.decode))
		L.SetField(mod, "encode", L.NewFunction(m.encode))
		L.SetField(mod, "get", L.NewFunction(m.get))
		L.SetField(mod, "set", L.NewFunction(m.set))
		return mod
	})
	return nil
}

// decode(str) -> value or nil, err
func (m *JSONModule) decode(L *lua.LState) int {
	s := L.CheckString(1)
	if !gjson.Valid(s) {
		L.Push(lua.LNil)
		L.Push(lua.LString("invalid json"))
		return 2
	}
	L.Push(plua.NewBridge(L).ToLuaValue(gjson.Parse(s).Value()))
	return 1
}

// encode(value) -> str or nil, err
func (m *JSONModule) encode(L *lua.LState) int {
	v := plua.NewBridge(L).ToGoValue(L.CheckAny(1))
	data, err := json.Marshal(v)
	if err != nil {
		L.Push(lua.LNil)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	L.Push(lua.LString(data))
	return 1
}

// get(str, path) -> value
// path uses gjson syntax, e.g. "results.#.title".
func (m *JSONModule) get(L *lua.LState) int {
	res := gjson.Get(L.CheckString(1), L.CheckString(2))
	if !res.Exists() {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(plua.NewBridge(L).ToLuaValue(res.Value()))
	return 1
}

// set(str, path, value) -> str or nil, err
func (m *JSONModule) set(L *lua.LState) int {
	src := L.CheckString(1)
	path := L.CheckString(2)
	v := plua.NewBridge(L).ToGoValue(L.CheckAny(3))

	out, err := sjson.Set(src, path, v)
	if err != nil {
		L.Push(lua.LNil)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	L.Push(lua.LString(out))
	return 1
}
