package kodi

import "sync"

// contextStack is the engine-managed stack of active request contexts.
// The top of the stack is the context bound to host API calls.
type contextStack struct {
	mu     sync.Mutex
	frames []*RequestContext
}

// push binds rc. A nested dispatch must come from the currently bound
// context; a top-level dispatch requires an empty stack.
func (s *contextStack) push(parent, rc *RequestContext) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var top *RequestContext
	if n := len(s.frames); n > 0 {
		top = s.frames[n-1]
	}
	if top != parent {
		return &BindingError{Op: "dispatch"}
	}
	s.frames = append(s.frames, rc)
	return nil
}

// pop unbinds rc and restores the caller's binding.
func (s *contextStack) pop(rc *RequestContext) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := len(s.frames) - 1; i >= 0; i-- {
		if s.frames[i] == rc {
			s.frames = append(s.frames[:i], s.frames[i+1:]...)
			return
		}
	}
}

// top returns the bound context, or nil outside a dispatch cycle.
func (s *contextStack) top() *RequestContext {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.frames) == 0 {
		return nil
	}
	return s.frames[len(s.frames)-1]
}

// isTop reports whether rc is the bound context.
func (s *contextStack) isTop(rc *RequestContext) bool {
	return rc != nil && s.top() == rc
}

// depth returns the number of active contexts.
func (s *contextStack) depth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames)
}
