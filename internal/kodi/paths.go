package kodi

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// SpecialPaths maps special://<root>/ paths onto a mock host home directory.
type SpecialPaths struct {
	home  string
	roots map[string]string
}

// NewSpecialPaths lays out the host directories under home.
func NewSpecialPaths(home string) *SpecialPaths {
	userdata := filepath.Join(home, "userdata")
	temp := filepath.Join(home, "temp")

	roots := map[string]string{
		"home":           home,
		"xbmc":           home,
		"userdata":       userdata,
		"profile":        userdata,
		"masterprofile":  userdata,
		"videoplaylists": filepath.Join(userdata, "playlists", "video"),
		"musicplaylists": filepath.Join(userdata, "playlists", "music"),
		"addon_data":     filepath.Join(userdata, "addon_data"),
		"thumbnails":     filepath.Join(userdata, "Thumbnails"),
		"database":       filepath.Join(userdata, "Database"),
		"temp":           temp,
		"subtitles":      temp,
		"recordings":     temp,
		"screenshots":    temp,
		"logpath":        temp,
		"cdrips":         temp,
		"skin":           temp,
	}
	return &SpecialPaths{home: home, roots: roots}
}

// Home returns the mock host home directory.
func (p *SpecialPaths) Home() string {
	return p.home
}

// Root returns the directory of a special root.
func (p *SpecialPaths) Root(name string) (string, bool) {
	dir, ok := p.roots[strings.ToLower(name)]
	return dir, ok
}

// Roots returns the names of all special roots, sorted.
func (p *SpecialPaths) Roots() []string {
	names := make([]string, 0, len(p.roots))
	for name := range p.roots {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AddonData returns the profile directory of an addon.
func (p *SpecialPaths) AddonData(addonID string) string {
	return filepath.Join(p.roots["addon_data"], addonID)
}

// Translate converts a special:// path to a filesystem path. Other paths
// are returned unchanged. A trailing slash is preserved.
func (p *SpecialPaths) Translate(path string) (string, error) {
	if !strings.HasPrefix(path, "special://") {
		return path, nil
	}

	u, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	root, ok := p.Root(u.Host)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownSpecialPath, u.Host)
	}

	rel := strings.TrimPrefix(u.Path, "/")
	if rel == "" {
		return root + string(filepath.Separator), nil
	}
	translated := filepath.Join(root, filepath.FromSlash(rel))
	if strings.HasSuffix(rel, "/") {
		translated += string(filepath.Separator)
	}
	return translated, nil
}

// Ensure creates every special directory.
func (p *SpecialPaths) Ensure() error {
	for _, dir := range p.roots {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}
