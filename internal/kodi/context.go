package kodi

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dshills/addondev/internal/addon"
	"github.com/google/uuid"
)

// State is the terminal state of a request context.
type State int

const (
	StatePending State = iota
	StateDirectory
	StateResolved
	StateFailed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateDirectory:
		return "directory"
	case StateResolved:
		return "resolved"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Notification is a toast raised by the plugin through the dialog API.
type Notification struct {
	Heading string `json:"heading"`
	Message string `json:"message"`
}

// RequestContext is the state of one dispatch cycle.
//
// The engine creates a RequestContext per dispatch, binds it for the
// duration of the entry point, and freezes it into a Result. The terminal
// state transitions exactly once; contract violations after that are kept
// and turn the Result into a failure.
type RequestContext struct {
	mu sync.Mutex

	handle int
	url    PluginURL
	addon  *addon.Addon
	start  time.Time

	items         []*ListItem
	contentType   ContentType
	sortMethods   []SortEntry
	category      string
	properties    map[string]string
	playlist      []*ListItem
	builtins      []string
	notifications []Notification

	state     State
	resolved  *ListItem
	directive CacheDirective
	err       error

	// first violation recorded after the terminal transition
	late error
}

// NewRequestContext creates a pending request context.
func NewRequestContext(handle int, u PluginURL, a *addon.Addon) *RequestContext {
	return &RequestContext{
		handle:     handle,
		url:        u,
		addon:      a,
		start:      time.Now(),
		properties: make(map[string]string),
	}
}

// Handle returns the handle passed to the plugin.
func (rc *RequestContext) Handle() int {
	return rc.handle
}

// URL returns the invoked URL.
func (rc *RequestContext) URL() PluginURL {
	return rc.url
}

// Addon returns the addon being invoked.
func (rc *RequestContext) Addon() *addon.Addon {
	return rc.addon
}

// State returns the current state.
func (rc *RequestContext) State() State {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.state
}

// Category returns the plugin category set so far.
func (rc *RequestContext) Category() string {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.category
}

// ItemCount returns the number of recorded items.
func (rc *RequestContext) ItemCount() int {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return len(rc.items)
}

// RecordItem appends a directory item. The item must carry a target URL;
// an item without one fails the cycle.
func (rc *RequestContext) RecordItem(item *ListItem) error {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	if err := rc.checkPendingLocked("addDirectoryItem"); err != nil {
		return err
	}
	if item == nil {
		return rc.violateLocked(violationf("addDirectoryItem", "nil list item"))
	}
	if item.Path == "" {
		return rc.violateLocked(violation("addDirectoryItem", fmt.Errorf("%w: %q", ErrMissingTarget, item.Label)))
	}
	rc.items = append(rc.items, item.Clone())
	return nil
}

// SetContent sets the directory content type.
func (rc *RequestContext) SetContent(ct ContentType) error {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	if err := rc.checkPendingLocked("setContent"); err != nil {
		return err
	}
	rc.contentType = ct
	return nil
}

// AddSortMethod registers a sort method.
func (rc *RequestContext) AddSortMethod(entry SortEntry) error {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	if err := rc.checkPendingLocked("addSortMethod"); err != nil {
		return err
	}
	if !entry.Method.Valid() {
		return rc.violateLocked(violationf("addSortMethod", "unknown sort method %d", int(entry.Method)))
	}
	rc.sortMethods = append(rc.sortMethods, entry)
	return nil
}

// SetCategory sets the plugin category shown as the listing title.
func (rc *RequestContext) SetCategory(category string) error {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	if err := rc.checkPendingLocked("setPluginCategory"); err != nil {
		return err
	}
	rc.category = category
	return nil
}

// SetProperty sets a container property.
func (rc *RequestContext) SetProperty(key, value string) error {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	if err := rc.checkPendingLocked("setProperty"); err != nil {
		return err
	}
	rc.properties[key] = value
	return nil
}

// QueuePlaylist adds an item to the playlist that follows a resolved item.
func (rc *RequestContext) QueuePlaylist(item *ListItem) error {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	if item == nil {
		return rc.violateLocked(violationf("PlayList.add", "nil list item"))
	}
	rc.playlist = append(rc.playlist, item.Clone())
	return nil
}

// RecordBuiltin records an executed builtin command.
func (rc *RequestContext) RecordBuiltin(cmd string) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.builtins = append(rc.builtins, cmd)
}

// Notify records a notification.
func (rc *RequestContext) Notify(n Notification) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.notifications = append(rc.notifications, n)
}

// FinishDirectory ends the cycle as a directory listing.
// A listing that did not succeed fails the cycle.
func (rc *RequestContext) FinishDirectory(opts DirectoryOptions) error {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	if err := rc.checkPendingLocked("endOfDirectory"); err != nil {
		return err
	}
	if !opts.Succeeded {
		rc.state = StateFailed
		rc.err = ErrReportedFailure
		return nil
	}
	rc.state = StateDirectory
	rc.directive = opts.Directive()
	return nil
}

// FinishResolved ends the cycle with a resolved playable item.
func (rc *RequestContext) FinishResolved(succeeded bool, item *ListItem) error {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	if err := rc.checkPendingLocked("setResolvedUrl"); err != nil {
		return err
	}
	if !succeeded {
		rc.state = StateFailed
		rc.err = ErrReportedFailure
		return nil
	}
	if item == nil || item.Path == "" {
		return rc.violateLocked(violation("setResolvedUrl", ErrMissingTarget))
	}
	rc.state = StateResolved
	rc.resolved = item.Clone()
	return nil
}

// Fail ends the cycle with an error. A cycle that already failed keeps its
// first error; failing a finished cycle records the error as a late violation.
func (rc *RequestContext) Fail(err error) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	if rc.state == StateFailed {
		return
	}
	if rc.state != StatePending {
		if rc.late == nil {
			rc.late = err
		}
		return
	}
	rc.state = StateFailed
	rc.err = err
}

// Violate records a contract violation and returns it.
func (rc *RequestContext) Violate(cv *ContractViolation) error {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.violateLocked(cv)
}

func (rc *RequestContext) violateLocked(cv *ContractViolation) error {
	switch {
	case rc.state == StatePending:
		rc.state = StateFailed
		rc.err = cv
	case rc.late == nil:
		rc.late = cv
	}
	return cv
}

// checkPendingLocked returns a ContractViolation when the cycle already ended.
func (rc *RequestContext) checkPendingLocked(op string) error {
	if rc.state == StatePending {
		return nil
	}
	return rc.violateLocked(violation(op, fmt.Errorf("%w (state %s)", ErrAlreadyFinished, rc.state)))
}

// Freeze converts the context into an immutable Result.
func (rc *RequestContext) Freeze() *Result {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	r := &Result{
		id:          uuid.NewString(),
		url:         rc.url,
		handle:      rc.handle,
		state:       rc.state,
		contentType: rc.contentType,
		category:    rc.category,
		directive:   rc.directive,
		err:         rc.err,
		started:     rc.start,
		duration:    time.Since(rc.start),
	}
	if rc.addon != nil {
		r.addonID = rc.addon.ID
		r.addonVersion = rc.addon.Version
	}
	if rc.late != nil {
		r.state = StateFailed
		r.err = errors.Join(rc.err, rc.late)
	}

	// Side channels survive failures; listing data does not
	r.builtins = append([]string(nil), rc.builtins...)
	r.notifications = append([]Notification(nil), rc.notifications...)
	if r.state == StateFailed {
		r.directive = CacheNone
		return r
	}

	if r.state == StateDirectory {
		r.items = cloneItems(rc.items)
	}
	r.playlist = cloneItems(rc.playlist)
	r.sortMethods = append([]SortEntry(nil), rc.sortMethods...)
	r.properties = cloneStringMap(rc.properties)
	r.resolved = rc.resolved.Clone()
	return r
}

func cloneItems(items []*ListItem) []*ListItem {
	if len(items) == 0 {
		return nil
	}
	c := make([]*ListItem, len(items))
	for i, item := range items {
		c[i] = item.Clone()
	}
	return c
}
