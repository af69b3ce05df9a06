package config

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dshills/addondev/internal/config/loader"
	"github.com/pelletier/go-toml/v2"
)

// AppName names the per-user config, data and cache directories.
const AppName = "addondev"

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "ADDONDEV_"

// envMapping maps environment variables onto config keys.
var envMapping = map[string]string{
	EnvPrefix + "HOME":       "paths.home",
	EnvPrefix + "CACHE_DIR":  "paths.cache",
	EnvPrefix + "ADDONS":     "paths.addons",
	EnvPrefix + "LOG_LEVEL":  "logging.level",
	EnvPrefix + "TIMEOUT":    "runtime.timeout",
	EnvPrefix + "CALL_STACK": "runtime.call_stack",
	EnvPrefix + "DETAILED":   "display.detailed",
	EnvPrefix + "CROP":       "display.crop",
	EnvPrefix + "WATCH":      "session.watch",
	EnvPrefix + "DISK_CACHE": "session.disk_cache",
}

// Config is the resolved addondev configuration.
type Config struct {
	Paths   Paths   `toml:"paths"`
	Logging Logging `toml:"logging"`
	Runtime Runtime `toml:"runtime"`
	Display Display `toml:"display"`
	Session Session `toml:"session"`
}

// Paths locates the mock host home, the disk cache and local addons.
type Paths struct {
	Home   string   `toml:"home"`
	Cache  string   `toml:"cache"`
	Addons []string `toml:"addons"`
}

// Logging configures the process logger.
type Logging struct {
	Level string `toml:"level"`
}

// Runtime bounds plugin execution.
type Runtime struct {
	// Timeout is a time.ParseDuration string; "0" disables it.
	Timeout   string `toml:"timeout"`
	CallStack int    `toml:"call_stack"`
}

// Display configures the console presenter.
type Display struct {
	Detailed bool `toml:"detailed"`
	Crop     bool `toml:"crop"`
}

// Session configures navigation caching.
type Session struct {
	Watch     bool `toml:"watch"`
	DiskCache bool `toml:"disk_cache"`
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		Paths: Paths{
			Home:  defaultDir(os.UserHomeDir, ".kodi"),
			Cache: defaultDir(os.UserCacheDir, AppName),
		},
		Logging: Logging{Level: "info"},
		Runtime: Runtime{Timeout: "30s", CallStack: 256},
		Display: Display{Crop: true},
		Session: Session{Watch: true, DiskCache: true},
	}
}

func defaultDir(base func() (string, error), name string) string {
	dir, err := base()
	if err != nil {
		return filepath.Join(os.TempDir(), AppName, name)
	}
	return filepath.Join(dir, name)
}

// DefaultPath returns the user config file location.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, AppName, "config.toml")
}

// Load resolves the configuration from defaults, the TOML file at path and
// the environment. A missing file is not an error.
func Load(path string) (*Config, error) {
	return LoadFS(loader.DefaultFS(), path)
}

// LoadFS is Load reading the file through fs.
func LoadFS(fs loader.FileSystem, path string) (*Config, error) {
	var sources []loader.Source
	if path != "" {
		sources = append(sources, loader.NewTOMLFile(fs, path))
	}
	sources = append(sources, loader.NewEnvLoader(envMapping, "paths.addons"))

	merged, err := loader.Merge(sources...)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := cfg.apply(path, merged); err != nil {
		return nil, err
	}
	cfg.expand()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// apply decodes a merged map over the defaults already in cfg.
func (c *Config) apply(source string, data map[string]any) error {
	if len(data) == 0 {
		return nil
	}
	raw, err := toml.Marshal(data)
	if err != nil {
		return fmt.Errorf("encoding merged config: %w", err)
	}

	dec := toml.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(c); err != nil {
		var sme *toml.StrictMissingError
		if errors.As(err, &sme) {
			return &ParseError{
				Path:    source,
				Message: fmt.Sprintf("%v: %s", ErrUnknownSetting, strings.TrimSpace(sme.String())),
				Err:     ErrUnknownSetting,
			}
		}
		return &ParseError{Path: source, Message: err.Error(), Err: err}
	}
	return nil
}

// expand resolves "~" and environment references in paths.
func (c *Config) expand() {
	c.Paths.Home = expandPath(c.Paths.Home)
	c.Paths.Cache = expandPath(c.Paths.Cache)
	for i, p := range c.Paths.Addons {
		c.Paths.Addons[i] = expandPath(p)
	}
}

func expandPath(p string) string {
	p = os.ExpandEnv(p)
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			p = filepath.Join(home, p[1:])
		}
	}
	return p
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if _, err := parseLevel(c.Logging.Level); err != nil {
		return err
	}
	if _, err := c.TimeoutDuration(); err != nil {
		return err
	}
	if c.Runtime.CallStack <= 0 {
		return fmt.Errorf("%w: runtime.call_stack must be positive, got %d", ErrValidationFailed, c.Runtime.CallStack)
	}
	if c.Paths.Home == "" {
		return fmt.Errorf("%w: paths.home is empty", ErrValidationFailed)
	}
	return nil
}

// TimeoutDuration returns the parsed dispatch timeout; zero means none.
func (c *Config) TimeoutDuration() (time.Duration, error) {
	if c.Runtime.Timeout == "" || c.Runtime.Timeout == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Runtime.Timeout)
	if err != nil {
		return 0, fmt.Errorf("%w: runtime.timeout: %v", ErrValidationFailed, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%w: runtime.timeout is negative", ErrValidationFailed)
	}
	return d, nil
}

// SlogLevel returns the configured log level.
func (c *Config) SlogLevel() slog.Level {
	l, _ := parseLevel(c.Logging.Level)
	return l
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("%w: logging.level %q", ErrValidationFailed, s)
	}
}
