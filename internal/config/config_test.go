package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

type memFS map[string]string

func (m memFS) ReadFile(path string) ([]byte, error) {
	s, ok := m[path]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return []byte(s), nil
}

// clearEnv blanks every mapped variable for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for env := range envMapping {
		t.Setenv(env, "")
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() error = %v", err)
	}
	if cfg.Runtime.CallStack != 256 {
		t.Errorf("CallStack = %d, want 256", cfg.Runtime.CallStack)
	}
	if d, _ := cfg.TimeoutDuration(); d != 30*time.Second {
		t.Errorf("TimeoutDuration() = %v, want 30s", d)
	}
	if !cfg.Session.Watch || !cfg.Session.DiskCache || !cfg.Display.Crop {
		t.Errorf("Default() = %+v, want watch, disk cache and crop on", cfg)
	}
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadFS(memFS{}, "/nope.toml")
	if err != nil {
		t.Fatalf("LoadFS() error = %v", err)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Level = %q, want info", cfg.Logging.Level)
	}
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	fsys := memFS{"/c.toml": `
[paths]
home = "/srv/kodi"
addons = ["/src/a", "/src/b"]

[logging]
level = "debug"

[runtime]
timeout = "2s"

[display]
detailed = true
`}

	cfg, err := LoadFS(fsys, "/c.toml")
	if err != nil {
		t.Fatalf("LoadFS() error = %v", err)
	}
	if cfg.Paths.Home != "/srv/kodi" {
		t.Errorf("Home = %q, want /srv/kodi", cfg.Paths.Home)
	}
	if len(cfg.Paths.Addons) != 2 || cfg.Paths.Addons[1] != "/src/b" {
		t.Errorf("Addons = %v", cfg.Paths.Addons)
	}
	if cfg.SlogLevel() != slog.LevelDebug {
		t.Errorf("SlogLevel() = %v, want debug", cfg.SlogLevel())
	}
	if d, _ := cfg.TimeoutDuration(); d != 2*time.Second {
		t.Errorf("TimeoutDuration() = %v, want 2s", d)
	}
	if !cfg.Display.Detailed {
		t.Error("Detailed = false, want true")
	}
	// untouched keys keep their defaults
	if cfg.Runtime.CallStack != 256 || !cfg.Display.Crop {
		t.Errorf("defaults lost: %+v", cfg)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("ADDONDEV_LOG_LEVEL", "warn")
	t.Setenv("ADDONDEV_CALL_STACK", "64")
	t.Setenv("ADDONDEV_WATCH", "false")
	t.Setenv("ADDONDEV_ADDONS", "/x"+string(os.PathListSeparator)+"/y")

	fsys := memFS{"/c.toml": "[logging]\nlevel = \"debug\"\n[paths]\naddons = [\"/a\"]\n"}
	cfg, err := LoadFS(fsys, "/c.toml")
	if err != nil {
		t.Fatalf("LoadFS() error = %v", err)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Level = %q, want warn", cfg.Logging.Level)
	}
	if cfg.Runtime.CallStack != 64 {
		t.Errorf("CallStack = %d, want 64", cfg.Runtime.CallStack)
	}
	if cfg.Session.Watch {
		t.Error("Watch = true, want false")
	}
	if len(cfg.Paths.Addons) != 2 || cfg.Paths.Addons[0] != "/x" {
		t.Errorf("Addons = %v, want [/x /y]", cfg.Paths.Addons)
	}
}

func TestLoadExpandsHome(t *testing.T) {
	clearEnv(t)
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	cfg, err := LoadFS(memFS{"/c.toml": "[paths]\nhome = \"~/kodi\"\n"}, "/c.toml")
	if err != nil {
		t.Fatalf("LoadFS() error = %v", err)
	}
	if want := filepath.Join(home, "kodi"); cfg.Paths.Home != want {
		t.Errorf("Home = %q, want %q", cfg.Paths.Home, want)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		wantParse bool
		wantErr   error
	}{
		{"syntax", "[paths\n", true, nil},
		{"unknown key", "[paths]\nhomes = \"/x\"\n", true, ErrUnknownSetting},
		{"wrong type", "[runtime]\ncall_stack = \"lots\"\n", true, nil},
		{"bad level", "[logging]\nlevel = \"loud\"\n", false, ErrValidationFailed},
		{"bad timeout", "[runtime]\ntimeout = \"soon\"\n", false, ErrValidationFailed},
		{"negative timeout", "[runtime]\ntimeout = \"-1s\"\n", false, ErrValidationFailed},
		{"zero call stack", "[runtime]\ncall_stack = 0\n", false, ErrValidationFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			_, err := LoadFS(memFS{"/c.toml": tt.content}, "/c.toml")
			if err == nil {
				t.Fatal("LoadFS() error = nil")
			}
			var pe *ParseError
			if got := errors.As(err, &pe); got != tt.wantParse {
				t.Errorf("errors.As(ParseError) = %v, want %v (err %v)", got, tt.wantParse, err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("LoadFS() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestTimeoutDisabled(t *testing.T) {
	for _, v := range []string{"", "0"} {
		cfg := Default()
		cfg.Runtime.Timeout = v
		if d, err := cfg.TimeoutDuration(); err != nil || d != 0 {
			t.Errorf("TimeoutDuration(%q) = %v, %v, want 0, nil", v, d, err)
		}
	}
}

func TestDefaultPath(t *testing.T) {
	p := DefaultPath()
	if p == "" {
		t.Skip("no user config dir")
	}
	if filepath.Base(p) != "config.toml" || filepath.Base(filepath.Dir(p)) != AppName {
		t.Errorf("DefaultPath() = %q", p)
	}
}
