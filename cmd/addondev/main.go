// Package main is the entry point for addondev, a terminal host for
// developing Kodi-style plugin addons.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/dshills/addondev/internal/app"
	"github.com/dshills/addondev/internal/config"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Exit codes.
const (
	exitOK       = 0
	exitInit     = 1
	exitDispatch = 2
)

// cliOptions holds the parsed command line.
type cliOptions struct {
	configPath string
	addonPath  string
	url        string
	preselect  []int
	logLevel   string
	detailed   bool
	noCrop     bool
	timeout    string
	noCache    bool
	noWatch    bool

	showVersion bool
	showHelp    bool

	// visited names the flags given explicitly
	visited map[string]bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("addondev", flag.ContinueOnError)
	fs.SetOutput(stderr)
	opts, err := parseFlags(fs, args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitInit
	}

	if opts.showHelp {
		fs.Usage()
		return exitOK
	}
	if opts.showVersion {
		fmt.Fprintf(stdout, "addondev %s\n", version)
		fmt.Fprintf(stdout, "Commit: %s\n", commit)
		fmt.Fprintf(stdout, "Built: %s\n", date)
		return exitOK
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitInit
	}

	// Handle signals for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, app.Options{
		AddonPath: opts.addonPath,
		URL:       opts.url,
		Preselect: opts.preselect,
		NoCache:   opts.noCache,
		Input:     stdin,
		Output:    stdout,
		LogOutput: stderr,
	})
	if err != nil {
		fmt.Fprintf(stderr, "Error: failed to initialize: %v\n", err)
		return exitInit
	}
	defer application.Close()

	if err := application.Run(ctx); err != nil {
		var de *app.DispatchError
		switch {
		case errors.Is(err, app.ErrQuit), errors.Is(err, context.Canceled):
			return exitOK
		case errors.As(err, &de):
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitDispatch
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitInit
	}
	return exitOK
}

func parseFlags(fs *flag.FlagSet, args []string) (*cliOptions, error) {
	opts := &cliOptions{visited: make(map[string]bool)}
	var preselect string

	fs.StringVar(&opts.configPath, "config", config.DefaultPath(), "Path to configuration file")
	fs.StringVar(&opts.configPath, "c", config.DefaultPath(), "Path to configuration file (shorthand)")
	fs.StringVar(&opts.addonPath, "addon", "", "Addon directory (default: current directory)")
	fs.StringVar(&opts.addonPath, "a", "", "Addon directory (shorthand)")
	fs.StringVar(&opts.url, "url", "", "Plugin URL to open first")
	fs.StringVar(&opts.url, "u", "", "Plugin URL to open first (shorthand)")
	fs.StringVar(&preselect, "preselect", "", "Comma separated item indexes to select without prompting")
	fs.StringVar(&preselect, "p", "", "Comma separated item indexes (shorthand)")
	fs.StringVar(&opts.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	fs.BoolVar(&opts.detailed, "detailed", false, "Show every listitem field on its own line")
	fs.BoolVar(&opts.detailed, "d", false, "Show every listitem field (shorthand)")
	fs.BoolVar(&opts.noCrop, "no-crop", false, "Do not crop lines to the terminal width")
	fs.StringVar(&opts.timeout, "timeout", "", "Dispatch timeout, e.g. 30s (0 disables)")
	fs.BoolVar(&opts.noCache, "no-cache", false, "Do not read or write the disk cache")
	fs.BoolVar(&opts.noWatch, "no-watch", false, "Do not reload when addon sources change")
	fs.BoolVar(&opts.showVersion, "version", false, "Show version information")
	fs.BoolVar(&opts.showVersion, "v", false, "Show version information (shorthand)")
	fs.BoolVar(&opts.showHelp, "help", false, "Show help message")
	fs.BoolVar(&opts.showHelp, "h", false, "Show help message (shorthand)")

	fs.Usage = func() {
		w := fs.Output()
		fmt.Fprintf(w, "addondev - run Kodi plugin addons from the terminal\n\n")
		fmt.Fprintf(w, "Usage: addondev [options] [addon-dir]\n\n")
		fmt.Fprintf(w, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(w, "\nExamples:\n")
		fmt.Fprintf(w, "  addondev                                  Open the addon in the current directory\n")
		fmt.Fprintf(w, "  addondev ./plugin.video.example           Open an addon directory\n")
		fmt.Fprintf(w, "  addondev -u 'plugin://plugin.video.example/?mode=list'\n")
		fmt.Fprintf(w, "  addondev -p 0,2 -detailed                 Walk into item 0, then item 2\n")
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	fs.Visit(func(f *flag.Flag) {
		opts.visited[canonicalFlag(f.Name)] = true
	})

	switch rest := fs.Args(); {
	case len(rest) > 1:
		return nil, fmt.Errorf("expected at most one addon directory, got %d", len(rest))
	case len(rest) == 1 && opts.addonPath != "":
		return nil, errors.New("addon directory given both as -addon and as an argument")
	case len(rest) == 1:
		opts.addonPath = rest[0]
	}
	if opts.addonPath == "" {
		opts.addonPath = "."
	}

	if preselect != "" {
		idx, err := parsePreselect(preselect)
		if err != nil {
			return nil, err
		}
		opts.preselect = idx
	}
	return opts, nil
}

// canonicalFlag maps shorthand flags to their long names.
func canonicalFlag(name string) string {
	switch name {
	case "c":
		return "config"
	case "a":
		return "addon"
	case "u":
		return "url"
	case "p":
		return "preselect"
	case "d":
		return "detailed"
	case "v":
		return "version"
	case "h":
		return "help"
	}
	return name
}

// parsePreselect parses "1,0,3" into item indexes.
func parsePreselect(s string) ([]int, error) {
	var idx []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid preselect index %q", part)
		}
		idx = append(idx, n)
	}
	return idx, nil
}

// loadConfig loads the configuration file and environment, then applies
// the flags given on the command line.
func loadConfig(opts *cliOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	applyFlags(cfg, opts)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyFlags(cfg *config.Config, opts *cliOptions) {
	if opts.visited["log-level"] {
		cfg.Logging.Level = opts.logLevel
	}
	if opts.visited["detailed"] {
		cfg.Display.Detailed = opts.detailed
	}
	if opts.visited["no-crop"] {
		cfg.Display.Crop = !opts.noCrop
	}
	if opts.visited["timeout"] {
		cfg.Runtime.Timeout = opts.timeout
	}
	if opts.visited["no-cache"] {
		cfg.Session.DiskCache = !opts.noCache
	}
	if opts.visited["no-watch"] {
		cfg.Session.Watch = !opts.noWatch
	}
}
