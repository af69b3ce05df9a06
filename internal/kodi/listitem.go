package kodi

import (
	"fmt"
	"strings"
)

// ContextMenuEntry is one context menu item: a label and the builtin it runs.
type ContextMenuEntry struct {
	Label  string `json:"label"`
	Action string `json:"action"`
}

// ListItem is a directory entry or resolved playable item built by a plugin.
//
// A ListItem is mutable while the plugin builds it. Items recorded into a
// request context are copied, so later changes by the plugin do not leak
// into a Result.
type ListItem struct {
	Label       string                          `json:"label"`
	Label2      string                          `json:"label2,omitempty"`
	Path        string                          `json:"path,omitempty"`
	Folder      bool                            `json:"folder"`
	Art         map[string]string               `json:"art,omitempty"`
	Info        map[InfoType]map[string]any     `json:"info,omitempty"`
	Properties  map[string]string               `json:"properties,omitempty"`
	StreamInfo  map[StreamType][]map[string]any `json:"stream_info,omitempty"`
	ContextMenu []ContextMenuEntry              `json:"context_menu,omitempty"`
	MimeType    string                          `json:"mime_type,omitempty"`
	Subtitles   []string                        `json:"subtitles,omitempty"`
}

// NewListItem creates a list item with a label.
func NewListItem(label string) *ListItem {
	return &ListItem{Label: label}
}

// SetLabel sets the primary label.
func (li *ListItem) SetLabel(label string) {
	li.Label = label
}

// SetLabel2 sets the secondary label.
func (li *ListItem) SetLabel2(label string) {
	li.Label2 = label
}

// SetPath sets the item's own path. Directory items take their target URL
// from addDirectoryItem instead.
func (li *ListItem) SetPath(path string) {
	li.Path = path
}

// SetArt merges artwork entries (thumb, poster, fanart, icon, ...).
func (li *ListItem) SetArt(art map[string]string) {
	if li.Art == nil {
		li.Art = make(map[string]string, len(art))
	}
	for k, v := range art {
		li.Art[strings.ToLower(k)] = v
	}
}

// SetInfo merges info labels into the given namespace.
func (li *ListItem) SetInfo(infoType string, labels map[string]any) error {
	t, err := ParseInfoType(infoType)
	if err != nil {
		return err
	}
	if li.Info == nil {
		li.Info = make(map[InfoType]map[string]any)
	}
	dst := li.Info[t]
	if dst == nil {
		dst = make(map[string]any, len(labels))
		li.Info[t] = dst
	}
	for k, v := range labels {
		dst[strings.ToLower(k)] = v
	}
	return nil
}

// SetProperty sets an item property. Keys are case-insensitive.
func (li *ListItem) SetProperty(key, value string) {
	if li.Properties == nil {
		li.Properties = make(map[string]string)
	}
	li.Properties[strings.ToLower(key)] = value
}

// Property returns an item property.
func (li *ListItem) Property(key string) string {
	return li.Properties[strings.ToLower(key)]
}

// AddStreamInfo appends a stream description of the given type.
func (li *ListItem) AddStreamInfo(streamType string, values map[string]any) error {
	t, err := ParseStreamType(streamType)
	if err != nil {
		return err
	}
	if li.StreamInfo == nil {
		li.StreamInfo = make(map[StreamType][]map[string]any)
	}
	li.StreamInfo[t] = append(li.StreamInfo[t], cloneAnyMap(values))
	return nil
}

// AddContextMenuItems appends context menu entries. Entries need a label and an action.
func (li *ListItem) AddContextMenuItems(entries ...ContextMenuEntry) error {
	for i, e := range entries {
		if e.Label == "" || e.Action == "" {
			return fmt.Errorf("%w: context menu entry %d needs a label and an action", ErrInvalidArgument, i)
		}
	}
	li.ContextMenu = append(li.ContextMenu, entries...)
	return nil
}

// SetMimeType sets the mime type.
func (li *ListItem) SetMimeType(mime string) {
	li.MimeType = mime
}

// SetSubtitles replaces the external subtitle files.
func (li *ListItem) SetSubtitles(files []string) {
	li.Subtitles = append([]string(nil), files...)
}

// Playable reports whether selecting the item plays it rather than opening a folder.
func (li *ListItem) Playable() bool {
	return !li.Folder || strings.EqualFold(li.Property("IsPlayable"), "true")
}

// InfoLabel returns an info label from any namespace, video first.
func (li *ListItem) InfoLabel(key string) (any, bool) {
	key = strings.ToLower(key)
	for _, t := range []InfoType{InfoVideo, InfoMusic, InfoPictures, InfoGame} {
		if v, ok := li.Info[t][key]; ok {
			return v, true
		}
	}
	return nil, false
}

// Clone returns a deep copy of the item.
func (li *ListItem) Clone() *ListItem {
	if li == nil {
		return nil
	}
	c := *li
	c.Art = cloneStringMap(li.Art)
	c.Properties = cloneStringMap(li.Properties)
	c.ContextMenu = append([]ContextMenuEntry(nil), li.ContextMenu...)
	c.Subtitles = append([]string(nil), li.Subtitles...)
	if li.Info != nil {
		c.Info = make(map[InfoType]map[string]any, len(li.Info))
		for t, m := range li.Info {
			c.Info[t] = cloneAnyMap(m)
		}
	}
	if li.StreamInfo != nil {
		c.StreamInfo = make(map[StreamType][]map[string]any, len(li.StreamInfo))
		for t, streams := range li.StreamInfo {
			for _, s := range streams {
				c.StreamInfo[t] = append(c.StreamInfo[t], cloneAnyMap(s))
			}
		}
	}
	return &c
}

// Merge returns a copy of base overlaid with the non-empty fields of li.
// Used to present a resolved item with the label and artwork of the item that
// led to it.
func (li *ListItem) Merge(base *ListItem) *ListItem {
	if base == nil {
		return li.Clone()
	}
	merged := base.Clone()
	merged.ContextMenu = nil

	src := li.Clone()
	if src.Label != "" {
		merged.Label = src.Label
	}
	if src.Label2 != "" {
		merged.Label2 = src.Label2
	}
	if src.Path != "" {
		merged.Path = src.Path
	}
	merged.Folder = src.Folder
	if src.MimeType != "" {
		merged.MimeType = src.MimeType
	}
	if len(src.Subtitles) > 0 {
		merged.Subtitles = src.Subtitles
	}
	merged.SetArt(src.Art)
	for k, v := range src.Properties {
		merged.SetProperty(k, v)
	}
	for t, labels := range src.Info {
		_ = merged.SetInfo(string(t), labels)
	}
	for t, streams := range src.StreamInfo {
		if merged.StreamInfo == nil {
			merged.StreamInfo = make(map[StreamType][]map[string]any)
		}
		merged.StreamInfo[t] = streams
	}
	return merged
}

func cloneStringMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	c := make(map[string]string, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

func cloneAnyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	c := make(map[string]any, len(m))
	for k, v := range m {
		c[k] = cloneValue(v)
	}
	return c
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return cloneAnyMap(val)
	case []any:
		c := make([]any, len(val))
		for i, e := range val {
			c[i] = cloneValue(e)
		}
		return c
	case []string:
		return append([]string(nil), val...)
	default:
		return v
	}
}
