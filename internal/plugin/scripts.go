package plugin

import (
	"os"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"

	plua "github.com/dshills/addondev/internal/plugin/lua"
)

// ScriptCache keeps compiled entry scripts. A script is recompiled when its
// modification time or size changes.
type ScriptCache struct {
	mu      sync.Mutex
	scripts map[string]*compiled

	hits   int
	misses int
}

type compiled struct {
	proto   *lua.FunctionProto
	modTime time.Time
	size    int64
}

// NewScriptCache creates an empty script cache.
func NewScriptCache() *ScriptCache {
	return &ScriptCache{
		scripts: make(map[string]*compiled),
	}
}

// Get returns the compiled script at path, compiling it when needed.
func (c *ScriptCache) Get(path string) (*lua.FunctionProto, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if s, ok := c.scripts[path]; ok && s.modTime.Equal(info.ModTime()) && s.size == info.Size() {
		c.hits++
		return s.proto, nil
	}

	proto, err := plua.Compile(path)
	if err != nil {
		delete(c.scripts, path)
		return nil, err
	}
	c.misses++
	c.scripts[path] = &compiled{proto: proto, modTime: info.ModTime(), size: info.Size()}
	return proto, nil
}

// Forget drops one script.
func (c *ScriptCache) Forget(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.scripts, path)
}

// Clear drops every script.
func (c *ScriptCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scripts = make(map[string]*compiled)
}

// Len returns the number of cached scripts.
func (c *ScriptCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.scripts)
}

// Stats returns cache hits and compilations.
func (c *ScriptCache) Stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
