package lua

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"
)

// Default limits for Lua state.
const (
	DefaultCallStackSize = 256
	DefaultRegistrySize  = 64 * 1024
)

// State wraps gopher-lua with the sandbox plugin scripts run in.
//
// gopher-lua's LState is not goroutine-safe. The mutex serialises Go-side
// access; a script runs on the goroutine that called DoProto or DoString.
type State struct {
	L *lua.LState

	mu sync.Mutex

	callStackSize int
	modulePaths   []string
	print         func(string)

	closed bool
}

// StateOption configures a State.
type StateOption func(*State)

// WithCallStackSize sets the maximum Lua call depth.
func WithCallStackSize(n int) StateOption {
	return func(s *State) {
		s.callStackSize = n
	}
}

// WithModulePaths sets the directories require searches for Lua modules.
func WithModulePaths(dirs ...string) StateOption {
	return func(s *State) {
		s.modulePaths = append(s.modulePaths, dirs...)
	}
}

// WithPrint redirects the Lua print function.
func WithPrint(fn func(line string)) StateOption {
	return func(s *State) {
		s.print = fn
	}
}

// NewState creates a new sandboxed Lua state.
func NewState(opts ...StateOption) (*State, error) {
	state := &State{
		callStackSize: DefaultCallStackSize,
	}
	for _, opt := range opts {
		opt(state)
	}
	if state.callStackSize <= 0 {
		return nil, fmt.Errorf("invalid call stack size %d", state.callStackSize)
	}

	L := lua.NewState(lua.Options{
		SkipOpenLibs:  true,
		CallStackSize: state.callStackSize,
		RegistrySize:  DefaultRegistrySize,
	})
	state.L = L

	openSafeLibraries(L)

	NewSandbox(L, state.modulePaths, state.print).Install()

	return state, nil
}

// openSafeLibraries opens the standard libraries the sandbox starts from.
// io and debug stay closed; os is trimmed by the sandbox.
func openSafeLibraries(L *lua.LState) {
	lua.OpenPackage(L)
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
	lua.OpenCoroutine(L)
	lua.OpenOs(L)
}

// DoString executes a Lua string. ctx cancels the script.
func (s *State) DoString(ctx context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStateClosed
	}
	return s.run(ctx, func() error {
		return s.L.DoString(code)
	})
}

// DoProto executes a compiled chunk. ctx cancels the script.
func (s *State) DoProto(ctx context.Context, proto *lua.FunctionProto) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStateClosed
	}
	return s.run(ctx, func() error {
		s.L.Push(s.L.NewFunctionFromProto(proto))
		return s.L.PCall(0, lua.MultRet, nil)
	})
}

// Compile parses and compiles a Lua file. The result can run in any
// number of states.
func Compile(path string) (*lua.FunctionProto, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	chunk, err := parse.Parse(bufio.NewReader(f), path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	proto, err := lua.Compile(chunk, path)
	if err != nil {
		return nil, fmt.Errorf("failed to compile %s: %w", path, err)
	}
	return proto, nil
}

// run executes fn under ctx with panic recovery.
func (s *State) run(ctx context.Context, fn func() error) (err error) {
	s.L.SetContext(ctx)
	defer s.L.RemoveContext()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()
	if err := fn(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%w: %v", ctxErr, err)
		}
		return err
	}
	return nil
}

// SetGlobal sets a global variable.
func (s *State) SetGlobal(name string, value lua.LValue) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.L.SetGlobal(name, value)
}

// LuaState returns the underlying gopher-lua state.
//
// Direct access bypasses the mutex. Host modules use it to register
// themselves before the script runs.
func (s *State) LuaState() *lua.LState {
	return s.L
}

// Close releases all resources associated with the Lua state.
// After Close is called, DoProto and DoString return ErrStateClosed.
func (s *State) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.L.Close()
	s.closed = true
	return nil
}
