// Package lua provides the sandboxed Lua runtime that plugin scripts run in.
//
// This package wraps the gopher-lua library to provide:
//   - Sandboxed Lua state management
//   - Go-Lua type conversion bridge
//   - Cancellation through context.Context
//
// # State
//
// The State type manages a Lua runtime with sandboxing:
//
//	state, err := lua.NewState(
//	    lua.WithModulePaths(filepath.Join(addonDir, "resources", "lib")),
//	    lua.WithPrint(func(line string) { logger.Info(line) }),
//	)
//	if err != nil {
//	    return err
//	}
//	defer state.Close()
//
//	proto, err := lua.Compile("main.lua")
//	if err != nil {
//	    return err
//	}
//	if err := state.DoProto(ctx, proto); err != nil {
//	    return err
//	}
//
// A cancelled or expired ctx aborts the running script at its next
// instruction.
//
// # Sandbox
//
// The Sandbox restricts Lua code execution by:
//   - Removing dofile, loadfile, load and loadstring
//   - Leaving io and debug closed and trimming os to time and date functions
//   - Resolving require against preloaded host modules and the configured
//     module paths only
//
// # Bridge
//
// The Bridge provides bidirectional type conversion:
//
//	bridge := lua.NewBridge(state.LuaState())
//
//	// Lua to Go
//	labels := bridge.ToGoValue(tbl).(map[string]any)
//
//	// Go to Lua
//	argv := bridge.ToLuaValue([]string{base, handle, query})
package lua
