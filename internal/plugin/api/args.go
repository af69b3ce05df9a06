package api

import (
	"fmt"
	"math"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/addondev/internal/kodi"
	plua "github.com/dshills/addondev/internal/plugin/lua"
)

// Argument readers for host calls. A bad argument is a contract violation
// of the call: it is recorded on the cycle, then raised to the script.
// Readers named opt* return def for a missing or nil argument.

// argError records and raises a bad argument n of op. It does not return.
func (e *Env) argError(L *lua.LState, op string, n int, err error) {
	e.raise(L, e.API.InvalidArgument(op, fmt.Errorf("bad argument #%d: %w", n, err)))
}

func (e *Env) argErrorf(L *lua.LState, op string, n int, format string, args ...any) {
	e.argError(L, op, n, fmt.Errorf(format, args...))
}

func (e *Env) str(L *lua.LState, op string, n int) string {
	switch v := L.Get(n).(type) {
	case lua.LString:
		return string(v)
	case lua.LNumber:
		return v.String()
	}
	e.argErrorf(L, op, n, "string expected, got %s", L.Get(n).Type())
	return ""
}

func (e *Env) optStr(L *lua.LState, op string, n int, def string) string {
	if L.Get(n) == lua.LNil {
		return def
	}
	return e.str(L, op, n)
}

func (e *Env) integer(L *lua.LState, op string, n int) int {
	v, ok := L.Get(n).(lua.LNumber)
	if !ok {
		e.argErrorf(L, op, n, "integer expected, got %s", L.Get(n).Type())
		return 0
	}
	f := float64(v)
	if f != math.Trunc(f) {
		e.argErrorf(L, op, n, "integer expected, got %v", v)
		return 0
	}
	return int(f)
}

func (e *Env) optInt(L *lua.LState, op string, n int, def int) int {
	if L.Get(n) == lua.LNil {
		return def
	}
	return e.integer(L, op, n)
}

func (e *Env) number(L *lua.LState, op string, n int) float64 {
	v, ok := L.Get(n).(lua.LNumber)
	if !ok {
		e.argErrorf(L, op, n, "number expected, got %s", L.Get(n).Type())
		return 0
	}
	return float64(v)
}

func (e *Env) boolean(L *lua.LState, op string, n int) bool {
	v, ok := L.Get(n).(lua.LBool)
	if !ok {
		e.argErrorf(L, op, n, "boolean expected, got %s", L.Get(n).Type())
		return false
	}
	return bool(v)
}

func (e *Env) optBool(L *lua.LState, op string, n int, def bool) bool {
	if L.Get(n) == lua.LNil {
		return def
	}
	return e.boolean(L, op, n)
}

func (e *Env) table(L *lua.LState, op string, n int) *lua.LTable {
	tbl, ok := L.Get(n).(*lua.LTable)
	if !ok {
		e.argErrorf(L, op, n, "table expected, got %s", L.Get(n).Type())
		return nil
	}
	return tbl
}

// record reads a table with string keys as Go values.
func (e *Env) record(L *lua.LState, op string, n int) map[string]any {
	rec, ok := plua.NewBridge(L).ToGoValue(e.table(L, op, n)).(map[string]any)
	if !ok {
		e.argErrorf(L, op, n, "table with string keys expected")
		return nil
	}
	return rec
}

// stringMap reads a table of string values keyed by string.
func (e *Env) stringMap(L *lua.LState, op string, n int) map[string]string {
	return plua.NewBridge(L).StringMap(e.table(L, op, n))
}

// stringList reads a sequence of strings.
func (e *Env) stringList(L *lua.LState, op string, n int) []string {
	return plua.NewBridge(L).StringSlice(e.table(L, op, n))
}

func (e *Env) listItem(L *lua.LState, op string, n int) *kodi.ListItem {
	if ud, ok := L.Get(n).(*lua.LUserData); ok {
		if li, ok := ud.Value.(*kodi.ListItem); ok {
			return li
		}
	}
	e.argErrorf(L, op, n, "ListItem expected, got %s", L.Get(n).Type())
	return nil
}

func (e *Env) optListItem(L *lua.LState, op string, n int) *kodi.ListItem {
	if L.Get(n) == lua.LNil {
		return nil
	}
	return e.listItem(L, op, n)
}
