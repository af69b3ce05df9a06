package addon

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Extension points recognised as executable addons.
const (
	PointPluginSource = "xbmc.python.pluginsource"
	PointLuaSource    = "xbmc.plugin.lua"
	PointModule       = "xbmc.python.module"
	PointMetadata     = "xbmc.addon.metadata"
)

// ignoredImports are host-provided dependencies that never resolve to an addon directory.
var ignoredImports = map[string]bool{
	"xbmc.python":      true,
	"xbmc.core":        true,
	"kodi.resource":    true,
	"xbmc.gui":         true,
	"xbmc.metadata":    true,
	"xbmc.addon":       true,
	"xbmc.json":        true,
	"kodi.binary":      true,
	"xbmc.pvr":         true,
	"kodi.inputstream": true,
}

// idPattern validates addon ids.
var idPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// Dependency is an addon required by another addon.
type Dependency struct {
	ID       string
	Version  string
	Optional bool
}

// String returns a string representation of the dependency.
func (d Dependency) String() string {
	return fmt.Sprintf("Dependency(id=%s, version=%s, optional=%t)", d.ID, d.Version, d.Optional)
}

// Addon describes an installed addon.
type Addon struct {
	// Identity
	ID       string
	Name     string
	Version  string
	Provider string

	// Entry point
	Type     string   // Extension point (pluginsource or module)
	Library  string   // Entry file or module directory, relative to Path
	Provides []string // Content types from <provides>

	// Metadata
	Summary     string
	Description string
	Disclaimer  string
	News        string
	IconAsset   string
	FanartAsset string

	Requires []Dependency

	path string
}

type addonXML struct {
	XMLName    xml.Name       `xml:"addon"`
	ID         string         `xml:"id,attr"`
	Name       string         `xml:"name,attr"`
	Version    string         `xml:"version,attr"`
	Provider   string         `xml:"provider-name,attr"`
	Imports    []importXML    `xml:"requires>import"`
	Extensions []extensionXML `xml:"extension"`
}

type importXML struct {
	Addon    string `xml:"addon,attr"`
	Version  string `xml:"version,attr"`
	Optional string `xml:"optional,attr"`
}

type extensionXML struct {
	Point        string     `xml:"point,attr"`
	Library      string     `xml:"library,attr"`
	Provides     string     `xml:"provides"`
	Summaries    []langText `xml:"summary"`
	Descriptions []langText `xml:"description"`
	Disclaimers  []langText `xml:"disclaimer"`
	News         string     `xml:"news"`
	Icon         string     `xml:"assets>icon"`
	Fanart       string     `xml:"assets>fanart"`
}

type langText struct {
	Lang string `xml:"lang,attr"`
	Text string `xml:",chardata"`
}

// Load loads an addon from its directory.
func Load(dir string) (*Addon, error) {
	path := filepath.Join(dir, "addon.xml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrMissingDescriptor, dir)
		}
		return nil, fmt.Errorf("failed to read addon.xml: %w", err)
	}

	a, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	a.path = dir
	return a, nil
}

// Parse parses an addon.xml document.
func Parse(data []byte) (*Addon, error) {
	var doc addonXML
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse addon.xml: %w", err)
	}

	a := &Addon{
		ID:       doc.ID,
		Name:     doc.Name,
		Version:  doc.Version,
		Provider: doc.Provider,
	}

	for _, imp := range doc.Imports {
		if ignoredImports[imp.Addon] {
			continue
		}
		a.Requires = append(a.Requires, Dependency{
			ID:       imp.Addon,
			Version:  imp.Version,
			Optional: imp.Optional == "true",
		})
	}

	for _, ext := range doc.Extensions {
		switch ext.Point {
		case PointPluginSource, PointLuaSource, PointModule:
			if a.Type == "" {
				a.Type = ext.Point
				a.Library = ext.Library
				a.Provides = strings.Fields(ext.Provides)
			}
		case PointMetadata:
			a.Summary = pickLang(ext.Summaries)
			a.Description = pickLang(ext.Descriptions)
			a.Disclaimer = pickLang(ext.Disclaimers)
			a.News = strings.TrimSpace(ext.News)
			a.IconAsset = strings.TrimSpace(ext.Icon)
			a.FanartAsset = strings.TrimSpace(ext.Fanart)
		}
	}

	if err := a.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}

// pickLang prefers en_GB, then en_US, then en, then the first entry.
func pickLang(texts []langText) string {
	for _, lang := range []string{"en_GB", "en_US", "en"} {
		for _, t := range texts {
			if t.Lang == lang {
				return strings.TrimSpace(t.Text)
			}
		}
	}
	if len(texts) > 0 {
		return strings.TrimSpace(texts[0].Text)
	}
	return ""
}

// Validate checks the addon identity.
func (a *Addon) Validate() error {
	if a.ID == "" {
		return ErrMissingID
	}
	if !idPattern.MatchString(a.ID) {
		return fmt.Errorf("%w: %s", ErrInvalidID, a.ID)
	}
	if a.Version == "" {
		return ErrMissingVersion
	}
	return nil
}

// Path returns the addon directory.
func (a *Addon) Path() string {
	return a.path
}

// SetPath sets the addon directory. Used for addons built in memory.
func (a *Addon) SetPath(dir string) {
	a.path = dir
}

// IsPlugin reports whether the addon provides plugin:// listings.
func (a *Addon) IsPlugin() bool {
	return a.Type == PointPluginSource || a.Type == PointLuaSource
}

// LibraryPath returns the absolute path of the library attribute.
func (a *Addon) LibraryPath() (string, error) {
	if a.Library == "" {
		return "", fmt.Errorf("%w: %s", ErrNoLibrary, a.ID)
	}
	return filepath.Join(a.path, filepath.FromSlash(a.Library)), nil
}

// Icon returns the icon path, falling back to icon.png in the addon directory.
func (a *Addon) Icon() string {
	return a.asset(a.IconAsset, "icon.png")
}

// Fanart returns the fanart path, falling back to fanart.jpg in the addon directory.
func (a *Addon) Fanart() string {
	return a.asset(a.FanartAsset, "fanart.jpg")
}

func (a *Addon) asset(declared, fallback string) string {
	if declared != "" {
		return filepath.Join(a.path, filepath.FromSlash(declared))
	}
	path := filepath.Join(a.path, fallback)
	if _, err := os.Stat(path); err == nil {
		return path
	}
	return ""
}

// Changelog returns the <news> text or the contents of changelog-<version>.txt.
func (a *Addon) Changelog() string {
	if a.News != "" {
		return a.News
	}
	data, err := os.ReadFile(filepath.Join(a.path, fmt.Sprintf("changelog-%s.txt", a.Version)))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// Info returns an addon property as a string, mirroring getAddonInfo.
// Unknown property names return an empty string. The profile property is
// host-dependent and is resolved by the caller.
func (a *Addon) Info(name string) string {
	switch name {
	case "id":
		return a.ID
	case "name":
		return a.Name
	case "version":
		return a.Version
	case "author":
		return a.Provider
	case "type":
		return a.Type
	case "path":
		return a.path
	case "summary":
		return a.Summary
	case "description":
		return a.Description
	case "disclaimer":
		return a.Disclaimer
	case "changelog":
		return a.Changelog()
	case "icon":
		return a.Icon()
	case "fanart":
		return a.Fanart()
	case "stars":
		return "-1"
	default:
		return ""
	}
}

// String returns a string representation of the addon.
func (a *Addon) String() string {
	return fmt.Sprintf("Addon(id=%s, version=%s)", a.ID, a.Version)
}
