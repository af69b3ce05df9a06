package settings

import (
	"os"
	"path/filepath"
	"testing"
)

func TestXMLPersisterRoundTrip(t *testing.T) {
	home := t.TempDir()
	p := NewXMLPersister(home)

	values := map[string]string{"region": "uk", "quality": "<hd>"}
	if err := p.Save("plugin.a", values); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	want := filepath.Join(home, "userdata", "addon_data", "plugin.a", "settings.xml")
	if p.Path("plugin.a") != want {
		t.Errorf("Path() = %q, want %q", p.Path("plugin.a"), want)
	}
	if _, err := os.Stat(want); err != nil {
		t.Fatalf("settings file not written: %v", err)
	}

	got, err := p.Load("plugin.a")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	for k, v := range values {
		if got[k] != v {
			t.Errorf("Load()[%q] = %q, want %q", k, got[k], v)
		}
	}

	// No temp files are left behind
	entries, _ := os.ReadDir(filepath.Dir(want))
	if len(entries) != 1 {
		t.Errorf("addon_data entries = %d, want 1", len(entries))
	}
}

func TestXMLPersisterLoadMissing(t *testing.T) {
	p := NewXMLPersister(t.TempDir())

	got, err := p.Load("plugin.none")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Load() = %v, want empty", got)
	}
}

func TestXMLPersisterLoadLegacy(t *testing.T) {
	home := t.TempDir()
	p := NewXMLPersister(home)

	path := p.Path("plugin.a")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	legacy := `<settings><setting id="region" value="fr"/><setting id="user">bob</setting></settings>`
	if err := os.WriteFile(path, []byte(legacy), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := p.Load("plugin.a")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got["region"] != "fr" {
		t.Errorf("region = %q, want %q", got["region"], "fr")
	}
	if got["user"] != "bob" {
		t.Errorf("user = %q, want %q", got["user"], "bob")
	}
}

func TestStoreWithXMLPersister(t *testing.T) {
	home := t.TempDir()
	s := NewStore(WithPersister(NewXMLPersister(home)))
	if err := s.Set("plugin.a", "token", "abc"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	s2 := NewStore(WithPersister(NewXMLPersister(home)))
	if got := s2.Value("plugin.a", "token"); got != "abc" {
		t.Errorf("Value() = %q, want %q", got, "abc")
	}
}
