package plugin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/addondev/internal/kodi"
	"github.com/dshills/addondev/internal/plugin/api"
	plua "github.com/dshills/addondev/internal/plugin/lua"
)

// exitSignal is the error value sys.exit raises to end a script early.
const exitSignal = "sys.exit"

// host runs one entry script for one dispatch cycle.
type host struct {
	script        string
	modulePaths   []string
	scripts       *ScriptCache
	logger        *slog.Logger
	callStackSize int
}

// run is the kodi.EntryPoint of the script.
func (h *host) run(ctx context.Context, inv *kodi.Invocation) error {
	proto, err := h.scripts.Get(h.script)
	if err != nil {
		return err
	}

	logger := h.logger.With("addon", inv.Addon.ID, "handle", inv.Handle)
	state, err := plua.NewState(
		plua.WithCallStackSize(h.callStackSize),
		plua.WithModulePaths(h.modulePaths...),
		plua.WithPrint(func(line string) {
			logger.Info("plugin print", "line", line)
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to create lua state: %w", err)
	}
	defer state.Close()

	env := api.NewEnv(ctx, inv.API, logger)
	reg, err := api.DefaultRegistry(env)
	if err != nil {
		return err
	}
	L := state.LuaState()
	if err := reg.InjectAll(L); err != nil {
		return err
	}
	state.SetGlobal("sys", newSys(L, inv))

	if err := state.DoProto(ctx, proto); err != nil {
		return scriptError(env, err)
	}
	return nil
}

// newSys builds the sys table: argv as the host passes it, and exit.
func newSys(L *lua.LState, inv *kodi.Invocation) *lua.LTable {
	sys := L.NewTable()
	L.SetField(sys, "argv", plua.NewBridge(L).ToLuaValue(inv.Argv()))
	L.SetField(sys, "exit", L.NewFunction(func(L *lua.LState) int {
		L.Error(lua.LString(exitSignal), 0)
		return 0
	}))
	return sys
}

// scriptError maps a script failure to the error the entry point returns.
// A failed host call surfaces as its Go error so contract violations keep
// their type; sys.exit is a normal return.
func scriptError(env *api.Env, err error) error {
	var apiErr *lua.ApiError
	if errors.As(err, &apiErr) && apiErr.Object != nil && apiErr.Object.String() == exitSignal {
		return nil
	}
	if herr := env.Err(); herr != nil && strings.Contains(err.Error(), herr.Error()) {
		return herr
	}
	return err
}
