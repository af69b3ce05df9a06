package addon

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

const testDescriptor = `<?xml version="1.0" encoding="UTF-8"?>
<addon id="plugin.video.test" name="Test Plugin" version="1.2.0" provider-name="tester">
	<requires>
		<import addon="xbmc.python" version="3.0.0"/>
		<import addon="script.module.helper" version="1.0.0"/>
		<import addon="script.module.extra" version="0.1.0" optional="true"/>
	</requires>
	<extension point="xbmc.python.pluginsource" library="main.lua">
		<provides>video audio</provides>
	</extension>
	<extension point="xbmc.addon.metadata">
		<summary lang="de_DE">Zusammenfassung</summary>
		<summary lang="en_GB">A summary</summary>
		<description lang="en_US">A description</description>
		<disclaimer>Use at own risk</disclaimer>
		<assets>
			<icon>resources/icon.png</icon>
		</assets>
	</extension>
</addon>`

// writeAddon creates an addon directory under base with the given descriptor and extra files.
func writeAddon(t *testing.T, base, id, descriptor string, files map[string]string) string {
	t.Helper()

	dir := filepath.Join(base, id)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("Failed to create addon dir: %v", err)
	}
	if descriptor != "" {
		if err := os.WriteFile(filepath.Join(dir, "addon.xml"), []byte(descriptor), 0644); err != nil {
			t.Fatalf("Failed to write addon.xml: %v", err)
		}
	}
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("Failed to create dir: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("Failed to write %s: %v", name, err)
		}
	}
	return dir
}

// simpleDescriptor returns a minimal plugin descriptor with the given imports.
func simpleDescriptor(id string, imports ...string) string {
	requires := ""
	for _, imp := range imports {
		requires += imp
	}
	return fmt.Sprintf(`<addon id=%q name=%q version="1.0.0">
	<requires>%s</requires>
	<extension point="xbmc.python.module" library="lib"/>
</addon>`, id, id, requires)
}

func TestLoad(t *testing.T) {
	dir := writeAddon(t, t.TempDir(), "plugin.video.test", testDescriptor, nil)

	a, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if a.ID != "plugin.video.test" {
		t.Errorf("ID = %q, want %q", a.ID, "plugin.video.test")
	}
	if a.Name != "Test Plugin" {
		t.Errorf("Name = %q, want %q", a.Name, "Test Plugin")
	}
	if a.Version != "1.2.0" {
		t.Errorf("Version = %q, want %q", a.Version, "1.2.0")
	}
	if a.Provider != "tester" {
		t.Errorf("Provider = %q, want %q", a.Provider, "tester")
	}
	if a.Library != "main.lua" {
		t.Errorf("Library = %q, want %q", a.Library, "main.lua")
	}
	if !a.IsPlugin() {
		t.Error("IsPlugin() = false, want true")
	}
	if len(a.Provides) != 2 || a.Provides[0] != "video" {
		t.Errorf("Provides = %v, want [video audio]", a.Provides)
	}
	if a.Summary != "A summary" {
		t.Errorf("Summary = %q, want %q", a.Summary, "A summary")
	}
	if a.Description != "A description" {
		t.Errorf("Description = %q, want %q", a.Description, "A description")
	}
	if a.Disclaimer != "Use at own risk" {
		t.Errorf("Disclaimer = %q, want %q", a.Disclaimer, "Use at own risk")
	}
	if a.Path() != dir {
		t.Errorf("Path() = %q, want %q", a.Path(), dir)
	}

	// xbmc.python is provided by the host and is not a dependency
	if len(a.Requires) != 2 {
		t.Fatalf("len(Requires) = %d, want 2", len(a.Requires))
	}
	if a.Requires[0].ID != "script.module.helper" || a.Requires[0].Optional {
		t.Errorf("Requires[0] = %v", a.Requires[0])
	}
	if !a.Requires[1].Optional {
		t.Errorf("Requires[1].Optional = false, want true")
	}
}

func TestLoadMissingDescriptor(t *testing.T) {
	_, err := Load(t.TempDir())
	if !errors.Is(err, ErrMissingDescriptor) {
		t.Errorf("Load() error = %v, want ErrMissingDescriptor", err)
	}
}

func TestParseValidation(t *testing.T) {
	tests := []struct {
		name string
		xml  string
		want error
	}{
		{"missing id", `<addon version="1.0.0"/>`, ErrMissingID},
		{"invalid id", `<addon id="bad id" version="1.0.0"/>`, ErrInvalidID},
		{"missing version", `<addon id="plugin.x"/>`, ErrMissingVersion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.xml))
			if !errors.Is(err, tt.want) {
				t.Errorf("Parse() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestParseInvalidXML(t *testing.T) {
	if _, err := Parse([]byte("<addon")); err == nil {
		t.Error("Parse() with invalid XML should return error")
	}
}

func TestPickLang(t *testing.T) {
	tests := []struct {
		name  string
		texts []langText
		want  string
	}{
		{"empty", nil, ""},
		{"first fallback", []langText{{Lang: "fr_FR", Text: "fr"}, {Lang: "de_DE", Text: "de"}}, "fr"},
		{"en", []langText{{Lang: "fr_FR", Text: "fr"}, {Lang: "en", Text: "en"}}, "en"},
		{"en_US over en", []langText{{Lang: "en", Text: "en"}, {Lang: "en_US", Text: "us"}}, "us"},
		{"en_GB first", []langText{{Lang: "en_US", Text: "us"}, {Lang: "en_GB", Text: " gb "}}, "gb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := pickLang(tt.texts); got != tt.want {
				t.Errorf("pickLang() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAddonInfo(t *testing.T) {
	dir := writeAddon(t, t.TempDir(), "plugin.video.test", testDescriptor, map[string]string{
		"changelog-1.2.0.txt": "fixed things\n",
	})

	a, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	tests := []struct {
		name string
		want string
	}{
		{"id", "plugin.video.test"},
		{"name", "Test Plugin"},
		{"version", "1.2.0"},
		{"author", "tester"},
		{"type", PointPluginSource},
		{"path", dir},
		{"summary", "A summary"},
		{"changelog", "fixed things"},
		{"icon", filepath.Join(dir, "resources", "icon.png")},
		{"fanart", ""},
		{"stars", "-1"},
		{"unknown", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := a.Info(tt.name); got != tt.want {
				t.Errorf("Info(%q) = %q, want %q", tt.name, got, tt.want)
			}
		})
	}
}

func TestAddonFanartFallback(t *testing.T) {
	dir := writeAddon(t, t.TempDir(), "plugin.video.test", testDescriptor, map[string]string{
		"fanart.jpg": "jpg",
	})

	a, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got, want := a.Fanart(), filepath.Join(dir, "fanart.jpg"); got != want {
		t.Errorf("Fanart() = %q, want %q", got, want)
	}
}

func TestLibraryPath(t *testing.T) {
	a := &Addon{ID: "plugin.x", Version: "1.0.0", Library: "lib/main.lua"}
	a.SetPath("/addons/plugin.x")

	got, err := a.LibraryPath()
	if err != nil {
		t.Fatalf("LibraryPath() error = %v", err)
	}
	if want := filepath.Join("/addons/plugin.x", "lib", "main.lua"); got != want {
		t.Errorf("LibraryPath() = %q, want %q", got, want)
	}

	a.Library = ""
	if _, err := a.LibraryPath(); !errors.Is(err, ErrNoLibrary) {
		t.Errorf("LibraryPath() error = %v, want ErrNoLibrary", err)
	}
}
