package kodi

import (
	"encoding/json"
	"errors"
	"math"
	"time"
)

// Result is the frozen outcome of one dispatch cycle.
//
// A Result shares no state with the request context it came from and is
// never modified after creation. Accessors return copies.
type Result struct {
	id           string
	url          PluginURL
	addonID      string
	addonVersion string
	handle       int

	state       State
	items       []*ListItem
	contentType ContentType
	sortMethods []SortEntry
	category    string
	properties  map[string]string
	resolved    *ListItem
	playlist    []*ListItem

	builtins      []string
	notifications []Notification

	directive CacheDirective
	err       error
	started   time.Time
	duration  time.Duration
}

// ID returns the unique id of the Result.
func (r *Result) ID() string { return r.id }

// URL returns the dispatched URL.
func (r *Result) URL() PluginURL { return r.url }

// AddonID returns the id of the dispatched addon.
func (r *Result) AddonID() string { return r.addonID }

// AddonVersion returns the version of the dispatched addon.
func (r *Result) AddonVersion() string { return r.addonVersion }

// Handle returns the handle the plugin was invoked with.
func (r *Result) Handle() int { return r.handle }

// State returns the terminal state.
func (r *Result) State() State { return r.state }

// Succeeded reports whether the cycle produced a directory or a resolved item.
func (r *Result) Succeeded() bool {
	return r.state == StateDirectory || r.state == StateResolved
}

// Err returns the failure detail of a failed Result.
func (r *Result) Err() error { return r.err }

// ContentType returns the declared content type.
func (r *Result) ContentType() ContentType { return r.contentType }

// Category returns the plugin category.
func (r *Result) Category() string { return r.category }

// Directive returns the cache directive.
func (r *Result) Directive() CacheDirective { return r.directive }

// Started returns when the dispatch began.
func (r *Result) Started() time.Time { return r.started }

// Duration returns the wall-clock duration of the dispatch.
func (r *Result) Duration() time.Duration { return r.duration }

// Len returns the number of directory items.
func (r *Result) Len() int { return len(r.items) }

// Items returns copies of the directory items in declared order.
func (r *Result) Items() []*ListItem { return cloneItems(r.items) }

// Item returns a copy of the directory item at index i.
func (r *Result) Item(i int) (*ListItem, bool) {
	if i < 0 || i >= len(r.items) {
		return nil, false
	}
	return r.items[i].Clone(), true
}

// Resolved returns a copy of the resolved item, or nil.
func (r *Result) Resolved() *ListItem { return r.resolved.Clone() }

// Playlist returns copies of the items queued after the resolved item.
func (r *Result) Playlist() []*ListItem { return cloneItems(r.playlist) }

// SortMethods returns the registered sort methods.
func (r *Result) SortMethods() []SortEntry {
	return append([]SortEntry(nil), r.sortMethods...)
}

// Properties returns a copy of the container properties.
func (r *Result) Properties() map[string]string { return cloneStringMap(r.properties) }

// Builtins returns the builtin commands the plugin executed.
func (r *Result) Builtins() []string { return append([]string(nil), r.builtins...) }

// Notifications returns the notifications the plugin raised.
func (r *Result) Notifications() []Notification {
	return append([]Notification(nil), r.notifications...)
}

// withResolved returns a copy of r whose resolved item is replaced.
func (r *Result) withResolved(item *ListItem) *Result {
	c := *r
	c.resolved = item
	return &c
}

type resultJSON struct {
	ID            string            `json:"id"`
	URL           string            `json:"url"`
	AddonID       string            `json:"addon_id"`
	AddonVersion  string            `json:"addon_version"`
	Handle        int               `json:"handle"`
	State         State             `json:"state"`
	Items         []*ListItem       `json:"items,omitempty"`
	ContentType   ContentType       `json:"content_type,omitempty"`
	SortMethods   []SortEntry       `json:"sort_methods,omitempty"`
	Category      string            `json:"category,omitempty"`
	Properties    map[string]string `json:"properties,omitempty"`
	Resolved      *ListItem         `json:"resolved,omitempty"`
	Playlist      []*ListItem       `json:"playlist,omitempty"`
	Builtins      []string          `json:"builtins,omitempty"`
	Notifications []Notification    `json:"notifications,omitempty"`
	Directive     CacheDirective    `json:"directive"`
	Error         string            `json:"error,omitempty"`
	Started       time.Time         `json:"started"`
	Duration      time.Duration     `json:"duration"`
}

// MarshalJSON encodes the Result for the disk cache.
func (r *Result) MarshalJSON() ([]byte, error) {
	j := resultJSON{
		ID:            r.id,
		URL:           r.url.String(),
		AddonID:       r.addonID,
		AddonVersion:  r.addonVersion,
		Handle:        r.handle,
		State:         r.state,
		Items:         r.items,
		ContentType:   r.contentType,
		SortMethods:   r.sortMethods,
		Category:      r.category,
		Properties:    r.properties,
		Resolved:      r.resolved,
		Playlist:      r.playlist,
		Builtins:      r.builtins,
		Notifications: r.notifications,
		Directive:     r.directive,
		Started:       r.started,
		Duration:      r.duration,
	}
	if r.err != nil {
		j.Error = r.err.Error()
	}
	return json.Marshal(j)
}

// UnmarshalJSON decodes a Result written by MarshalJSON.
func (r *Result) UnmarshalJSON(data []byte) error {
	var j resultJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	u, err := ParseURL(j.URL)
	if err != nil {
		return err
	}

	*r = Result{
		id:            j.ID,
		url:           u,
		addonID:       j.AddonID,
		addonVersion:  j.AddonVersion,
		handle:        j.Handle,
		state:         j.State,
		items:         j.Items,
		contentType:   j.ContentType,
		sortMethods:   j.SortMethods,
		category:      j.Category,
		properties:    j.Properties,
		resolved:      j.Resolved,
		playlist:      j.Playlist,
		builtins:      j.Builtins,
		notifications: j.Notifications,
		directive:     j.Directive,
		started:       j.Started,
		duration:      j.Duration,
	}
	if j.Error != "" {
		r.err = errors.New(j.Error)
	}
	for _, li := range r.items {
		restoreIntegers(li)
	}
	for _, li := range r.playlist {
		restoreIntegers(li)
	}
	restoreIntegers(r.resolved)
	return nil
}

// restoreIntegers turns whole numbers that JSON decoded as float64 back into
// int64, the type labels set by a script carry.
func restoreIntegers(li *ListItem) {
	if li == nil {
		return
	}
	for _, labels := range li.Info {
		for k, v := range labels {
			labels[k] = wholeToInt(v)
		}
	}
	for _, streams := range li.StreamInfo {
		for _, values := range streams {
			for k, v := range values {
				values[k] = wholeToInt(v)
			}
		}
	}
}

func wholeToInt(v any) any {
	switch val := v.(type) {
	case float64:
		if val == math.Trunc(val) && math.Abs(val) < 1<<53 {
			return int64(val)
		}
	case []any:
		for i, e := range val {
			val[i] = wholeToInt(e)
		}
	case map[string]any:
		for k, e := range val {
			val[k] = wholeToInt(e)
		}
	}
	return v
}
