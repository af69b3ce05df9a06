package main

import (
	"bytes"
	"flag"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/dshills/addondev/internal/config"
)

func newFlagSet() *flag.FlagSet {
	fs := flag.NewFlagSet("addondev", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func TestParseFlags(t *testing.T) {
	opts, err := parseFlags(newFlagSet(), []string{"-c", "x.toml", "-p", "1, 0", "-detailed", "./addon"})
	if err != nil {
		t.Fatalf("parseFlags() error = %v", err)
	}
	if opts.configPath != "x.toml" {
		t.Errorf("configPath = %q", opts.configPath)
	}
	if opts.addonPath != "./addon" {
		t.Errorf("addonPath = %q", opts.addonPath)
	}
	if !reflect.DeepEqual(opts.preselect, []int{1, 0}) {
		t.Errorf("preselect = %v", opts.preselect)
	}
	for _, name := range []string{"config", "preselect", "detailed"} {
		if !opts.visited[name] {
			t.Errorf("visited[%q] = false", name)
		}
	}
	if opts.visited["log-level"] {
		t.Error("log-level marked visited")
	}
}

func TestParseFlagsDefaults(t *testing.T) {
	opts, err := parseFlags(newFlagSet(), nil)
	if err != nil {
		t.Fatalf("parseFlags() error = %v", err)
	}
	if opts.addonPath != "." {
		t.Errorf("addonPath = %q, want .", opts.addonPath)
	}
	if opts.configPath != config.DefaultPath() {
		t.Errorf("configPath = %q, want default", opts.configPath)
	}
}

func TestParseFlagsErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"two dirs", []string{"a", "b"}},
		{"dir twice", []string{"-addon", "a", "b"}},
		{"bad preselect", []string{"-p", "1,x"}},
		{"negative preselect", []string{"-p", "-1"}},
		{"unknown flag", []string{"-bogus"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseFlags(newFlagSet(), tt.args); err == nil {
				t.Error("parseFlags() expected error")
			}
		})
	}
}

func TestApplyFlags(t *testing.T) {
	cfg := config.Default()
	opts, err := parseFlags(newFlagSet(), []string{"-no-crop", "-no-watch", "-timeout", "5s", "-log-level", "debug"})
	if err != nil {
		t.Fatalf("parseFlags() error = %v", err)
	}
	applyFlags(cfg, opts)

	if cfg.Display.Crop {
		t.Error("Crop = true, want false")
	}
	if cfg.Session.Watch {
		t.Error("Watch = true, want false")
	}
	if !cfg.Session.DiskCache {
		t.Error("DiskCache changed without -no-cache")
	}
	if cfg.Runtime.Timeout != "5s" || cfg.Logging.Level != "debug" {
		t.Errorf("Timeout = %q, Level = %q", cfg.Runtime.Timeout, cfg.Logging.Level)
	}
}

func writeAddon(t *testing.T, script string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "plugin.video.cli")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	xml := `<addon id="plugin.video.cli" name="CLI" version="1.0.0">
	<extension point="xbmc.plugin.lua" library="main.lua"/>
</addon>`
	if err := os.WriteFile(filepath.Join(dir, "addon.xml"), []byte(xml), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "main.lua"), []byte(script), 0644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func isolate(t *testing.T) []string {
	t.Helper()
	t.Setenv("ADDONDEV_HOME", t.TempDir())
	t.Setenv("ADDONDEV_CACHE_DIR", t.TempDir())
	for _, name := range []string{"ADDONS", "LOG_LEVEL", "TIMEOUT", "CALL_STACK", "DETAILED", "CROP", "WATCH", "DISK_CACHE"} {
		t.Setenv("ADDONDEV_"+name, "")
	}
	return []string{"-c", filepath.Join(t.TempDir(), "none.toml"), "-no-watch"}
}

func TestRunExitCodes(t *testing.T) {
	listing := `
local xbmcplugin = require("xbmcplugin")
local xbmcgui = require("xbmcgui")
local handle = tonumber(sys.argv[2])
xbmcplugin.addDirectoryItem(handle, "plugin://plugin.video.cli/?x=1", xbmcgui.ListItem("One"), true)
xbmcplugin.endOfDirectory(handle)
`
	tests := []struct {
		name   string
		script string
		args   []string
		want   int
		output string
	}{
		{"listing then quit", listing, nil, exitOK, "One"},
		{"failing root", `error("boom")`, nil, exitDispatch, ""},
		{"bad timeout", listing, []string{"-timeout", "soon"}, exitInit, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append(isolate(t), tt.args...)
			args = append(args, writeAddon(t, tt.script))

			var out, errOut bytes.Buffer
			got := run(args, strings.NewReader(""), &out, &errOut)
			if got != tt.want {
				t.Fatalf("run() = %d, want %d\nstderr: %s", got, tt.want, errOut.String())
			}
			if tt.output != "" && !strings.Contains(out.String(), tt.output) {
				t.Errorf("stdout missing %q\n%s", tt.output, out.String())
			}
		})
	}
}

func TestRunNotAnAddon(t *testing.T) {
	args := append(isolate(t), t.TempDir())
	if got := run(args, strings.NewReader(""), io.Discard, io.Discard); got != exitInit {
		t.Errorf("run() = %d, want %d", got, exitInit)
	}
}

func TestRunVersion(t *testing.T) {
	var out bytes.Buffer
	if got := run([]string{"-version"}, strings.NewReader(""), &out, io.Discard); got != exitOK {
		t.Fatalf("run() = %d", got)
	}
	if !strings.HasPrefix(out.String(), "addondev dev") {
		t.Errorf("version output = %q", out.String())
	}
}
