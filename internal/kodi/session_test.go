package kodi

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
)

// countingDispatcher records how often each URL is dispatched.
type countingDispatcher struct {
	engine *Engine

	mu    sync.Mutex
	calls map[string]int
}

func newCountingDispatcher(e *Engine) *countingDispatcher {
	return &countingDispatcher{engine: e, calls: make(map[string]int)}
}

func (d *countingDispatcher) Dispatch(ctx context.Context, url string) (*Result, error) {
	d.mu.Lock()
	d.calls[url]++
	d.mu.Unlock()
	return d.engine.Dispatch(ctx, url)
}

func (d *countingDispatcher) count(url string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls[url]
}

// memDisk is an in-memory DiskCache that stores encoded Results.
type memDisk struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func newMemDisk() *memDisk {
	return &memDisk{entries: make(map[string][]byte)}
}

func (m *memDisk) Load(url string) (*Result, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.entries[url]
	if !ok {
		return nil, false, nil
	}
	var r Result
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, false, err
	}
	return &r, true, nil
}

func (m *memDisk) Store(r *Result) error {
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[r.URL().Canonical()] = data
	return nil
}

func (m *memDisk) Delete(url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, url)
	return nil
}

func (m *memDisk) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string][]byte)
	return nil
}

func newTestSession(t *testing.T, eps map[string]EntryPoint, opts ...SessionOption) (*Session, *countingDispatcher) {
	t.Helper()
	d := newCountingDispatcher(newTestEngine(t, eps))
	opts = append([]SessionOption{WithSessionLogger(testLogger())}, opts...)
	return NewSession(d, opts...), d
}

func TestSessionBackEmpty(t *testing.T) {
	s, _ := newTestSession(t, nil)

	_, err := s.Back()
	var nerr *NavigationError
	if !errors.As(err, &nerr) {
		t.Fatalf("Back() error = %v, want NavigationError", err)
	}
	if !errors.Is(err, ErrNoHistory) {
		t.Errorf("Back() error = %v, want %v", err, ErrNoHistory)
	}
}

func TestSessionNavigateBack(t *testing.T) {
	s, _ := newTestSession(t, map[string]EntryPoint{testAddonID: listing(2)})
	root := "plugin://" + testAddonID + "/"
	sub := "plugin://" + testAddonID + "/sub"

	first, err := s.Navigate(context.Background(), root)
	if err != nil {
		t.Fatalf("Navigate(root) error = %v", err)
	}
	before := s.Depth()

	if _, err := s.Navigate(context.Background(), sub); err != nil {
		t.Fatalf("Navigate(sub) error = %v", err)
	}
	if s.Depth() != before+1 {
		t.Errorf("Depth() after Navigate = %d, want %d", s.Depth(), before+1)
	}

	back, err := s.Back()
	if err != nil {
		t.Fatalf("Back() error = %v", err)
	}
	if s.Depth() != before {
		t.Errorf("Depth() after Back = %d, want %d", s.Depth(), before)
	}
	if back != first {
		t.Error("Back() did not return the parent result")
	}
	if s.Current() != first {
		t.Error("Current() is not the parent result")
	}

	last, err := s.Back()
	if err != nil {
		t.Fatalf("Back() error = %v", err)
	}
	if last != nil || s.Current() != nil || s.Depth() != 0 {
		t.Errorf("Back() to empty = %v, Depth() = %d", last, s.Depth())
	}
}

func TestSessionCacheDirectives(t *testing.T) {
	tests := []struct {
		name       string
		opts       []DirectoryOption
		wantCalls  int
		wantCached bool
	}{
		{name: "cache to disc", wantCalls: 1, wantCached: true},
		{name: "session only", opts: []DirectoryOption{WithCacheToDisc(false)}, wantCalls: 1, wantCached: true},
		{name: "update listing", opts: []DirectoryOption{WithUpdateListing(true)}, wantCalls: 2, wantCached: false},
		{name: "failed", opts: []DirectoryOption{WithSucceeded(false)}, wantCalls: 2, wantCached: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, d := newTestSession(t, map[string]EntryPoint{testAddonID: listing(1, tt.opts...)})
			url := "plugin://" + testAddonID + "/list"

			for i := 0; i < 2; i++ {
				if _, err := s.Navigate(context.Background(), url); err != nil {
					t.Fatalf("Navigate() error = %v", err)
				}
			}
			if got := d.count(url); got != tt.wantCalls {
				t.Errorf("dispatch count = %d, want %d", got, tt.wantCalls)
			}
			if got := s.Cached(url); got != tt.wantCached {
				t.Errorf("Cached() = %v, want %v", got, tt.wantCached)
			}
		})
	}
}

func TestSessionCacheKeyNormalised(t *testing.T) {
	s, d := newTestSession(t, map[string]EntryPoint{testAddonID: listing(1)})

	if _, err := s.Navigate(context.Background(), "plugin://"+testAddonID+"/list?b=2&a=1"); err != nil {
		t.Fatalf("Navigate() error = %v", err)
	}
	if _, err := s.Navigate(context.Background(), "plugin://"+testAddonID+"/list?a=1&b=2"); err != nil {
		t.Fatalf("Navigate() error = %v", err)
	}
	if got := d.count("plugin://" + testAddonID + "/list?a=1&b=2"); got != 0 {
		t.Errorf("reordered query dispatched %d times, want cache hit", got)
	}
}

func TestSessionDiskCache(t *testing.T) {
	disk := newMemDisk()
	eps := map[string]EntryPoint{testAddonID: listing(3)}
	url := "plugin://" + testAddonID + "/list"

	s1, d1 := newTestSession(t, eps, WithDiskCache(disk))
	first, err := s1.Navigate(context.Background(), url)
	if err != nil {
		t.Fatalf("Navigate() error = %v", err)
	}
	if d1.count(url) != 1 {
		t.Fatalf("dispatch count = %d, want 1", d1.count(url))
	}

	s2, d2 := newTestSession(t, eps, WithDiskCache(disk))
	second, err := s2.Navigate(context.Background(), url)
	if err != nil {
		t.Fatalf("Navigate() error = %v", err)
	}
	if d2.count(url) != 0 {
		t.Errorf("dispatch count = %d, want 0 with a disk hit", d2.count(url))
	}
	if second.ID() != first.ID() || second.Len() != 3 {
		t.Errorf("disk result = %s with %d items, want %s with 3", second.ID(), second.Len(), first.ID())
	}

	if err := s2.InvalidateAll(); err != nil {
		t.Fatalf("InvalidateAll() error = %v", err)
	}
	if _, ok, _ := disk.Load(url); ok {
		t.Error("disk entry survived InvalidateAll")
	}
	if s2.Cached(url) {
		t.Error("memory entry survived InvalidateAll")
	}
}

func TestSessionInvalidate(t *testing.T) {
	s, d := newTestSession(t, map[string]EntryPoint{testAddonID: listing(1)})
	url := "plugin://" + testAddonID + "/"

	if _, err := s.Navigate(context.Background(), url); err != nil {
		t.Fatalf("Navigate() error = %v", err)
	}
	if err := s.Invalidate(url); err != nil {
		t.Fatalf("Invalidate() error = %v", err)
	}
	if _, err := s.Navigate(context.Background(), url); err != nil {
		t.Fatalf("Navigate() error = %v", err)
	}
	if got := d.count(url); got != 2 {
		t.Errorf("dispatch count = %d, want 2", got)
	}
	if err := s.Invalidate("http://x"); err == nil {
		t.Error("Invalidate(non-plugin url) error = nil")
	}
}

func TestSessionSelect(t *testing.T) {
	root := func(ctx context.Context, inv *Invocation) error {
		movie := NewListItem("Big Movie")
		movie.SetArt(map[string]string{"thumb": "thumb.jpg"})
		movie.SetProperty("IsPlayable", "true")
		if err := inv.API.AddDirectoryItem(inv.Handle, "plugin://"+testAddonID+"/play?id=1", movie, false); err != nil {
			return err
		}
		if err := inv.API.AddDirectoryItem(inv.Handle, "http://example.com/direct.mp4", NewListItem("Direct"), false); err != nil {
			return err
		}
		return inv.API.EndOfDirectory(inv.Handle)
	}
	play := func(ctx context.Context, inv *Invocation) error {
		item := NewListItem("")
		item.SetPath("http://example.com/movie.mp4")
		return inv.API.SetResolvedURL(inv.Handle, true, item)
	}

	s, _ := newTestSession(t, map[string]EntryPoint{testAddonID: root})
	s.dispatcher.(*countingDispatcher).engine.loader.(*FuncLoader).RegisterEntry(testAddonID, "main.lua", func(ctx context.Context, inv *Invocation) error {
		if inv.URL.Path == "/play" {
			return play(ctx, inv)
		}
		return root(ctx, inv)
	})

	if _, err := s.Select(context.Background(), 0); !errors.Is(err, ErrNoHistory) {
		t.Errorf("Select() on empty session error = %v, want %v", err, ErrNoHistory)
	}
	if _, err := s.Navigate(context.Background(), "plugin://"+testAddonID+"/"); err != nil {
		t.Fatalf("Navigate() error = %v", err)
	}

	res, err := s.Select(context.Background(), 0)
	if err != nil {
		t.Fatalf("Select(0) error = %v", err)
	}
	if res.State() != StateResolved {
		t.Fatalf("State() = %v, want resolved (err %v)", res.State(), res.Err())
	}
	got := res.Resolved()
	if got.Label != "Big Movie" {
		t.Errorf("resolved Label = %q, want the selected item's label", got.Label)
	}
	if got.Path != "http://example.com/movie.mp4" {
		t.Errorf("resolved Path = %q", got.Path)
	}
	if got.Art["thumb"] != "thumb.jpg" {
		t.Errorf("resolved Art = %v", got.Art)
	}
	if s.Depth() != 2 {
		t.Errorf("Depth() = %d, want 2", s.Depth())
	}

	if _, err := s.Back(); err != nil {
		t.Fatalf("Back() error = %v", err)
	}

	tests := []struct {
		name  string
		index int
		want  error
	}{
		{name: "out of range", index: 5, want: ErrNoSelection},
		{name: "negative", index: -1, want: ErrNoSelection},
		{name: "not a plugin url", index: 1, want: ErrInvalidURL},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Select(context.Background(), tt.index)
			var nerr *NavigationError
			if !errors.As(err, &nerr) {
				t.Fatalf("Select(%d) error = %v, want NavigationError", tt.index, err)
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("Select(%d) error = %v, want %v", tt.index, err, tt.want)
			}
		})
	}
}

func TestSessionHistory(t *testing.T) {
	s, _ := newTestSession(t, map[string]EntryPoint{testAddonID: listing(1)})

	for _, u := range []string{"plugin://" + testAddonID + "/", "plugin://" + testAddonID + "/a?z=1&y=2"} {
		if _, err := s.Navigate(context.Background(), u); err != nil {
			t.Fatalf("Navigate(%q) error = %v", u, err)
		}
	}

	got := s.History()
	want := []string{"plugin://" + testAddonID + "/", "plugin://" + testAddonID + "/a?y=2&z=1"}
	if len(got) != len(want) {
		t.Fatalf("History() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("History()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if s.ID() == "" {
		t.Error("ID() is empty")
	}
}

func TestSessionDispatchError(t *testing.T) {
	s, _ := newTestSession(t, nil)

	if _, err := s.Navigate(context.Background(), "plugin://plugin.video.missing/"); err == nil {
		t.Fatal("Navigate() to unknown addon error = nil")
	}
	if s.Depth() != 0 {
		t.Errorf("Depth() = %d, failed navigation must not push", s.Depth())
	}

	var nerr *NavigationError
	if _, err := s.Navigate(context.Background(), "not a url"); !errors.As(err, &nerr) {
		t.Errorf("Navigate(bad url) error = %v, want NavigationError", err)
	}
}
