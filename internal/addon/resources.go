package addon

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
)

// settingXML matches both the legacy <setting id default/> form and the
// versioned form where the default is a child element.
type settingXML struct {
	ID          string  `xml:"id,attr"`
	DefaultAttr *string `xml:"default,attr"`
	ValueAttr   *string `xml:"value,attr"`
	Default     *string `xml:"default"`
}

// SettingDefaults returns the setting defaults declared in resources/settings.xml.
// A missing file yields an empty map.
func (a *Addon) SettingDefaults() (map[string]string, error) {
	if a.path == "" {
		return map[string]string{}, nil
	}
	path := filepath.Join(a.path, "resources", "settings.xml")
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("failed to open settings: %w", err)
	}
	defer f.Close()

	defaults, err := ParseSettings(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return defaults, nil
}

// ParseSettings reads every <setting> element at any depth and returns id -> value.
// The value attribute wins over default, matching a saved profile file.
func ParseSettings(r io.Reader) (map[string]string, error) {
	values := make(map[string]string)
	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return values, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse settings: %w", err)
		}

		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "setting" {
			continue
		}

		var s settingXML
		if err := dec.DecodeElement(&s, &start); err != nil {
			return nil, fmt.Errorf("failed to parse setting: %w", err)
		}
		if s.ID == "" {
			continue
		}

		switch {
		case s.ValueAttr != nil:
			values[s.ID] = *s.ValueAttr
		case s.DefaultAttr != nil:
			values[s.ID] = *s.DefaultAttr
		case s.Default != nil:
			values[s.ID] = *s.Default
		default:
			values[s.ID] = ""
		}
	}
}

// stringsLocations are checked in order; the first existing file is used.
var stringsLocations = [][]string{
	{"resources", "language", "resource.language.en_gb", "strings.po"},
	{"resources", "language", "resource.language.en_us", "strings.po"},
	{"resources", "language", "English", "strings.po"},
	{"resources", "strings.po"},
}

// poEntry matches a numbered gettext entry.
var poEntry = regexp.MustCompile(`msgctxt\s+"#(\d+)"\s+msgid\s+"(.*?)"\s+msgstr\s+"(.*?)"`)

// Strings returns the addon's localized strings keyed by string id.
func (a *Addon) Strings() (map[int]string, error) {
	if a.path == "" {
		return map[int]string{}, nil
	}
	for _, parts := range stringsLocations {
		path := filepath.Join(append([]string{a.path}, parts...)...)
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("failed to read strings: %w", err)
		}
		return ParseStrings(data), nil
	}
	return map[int]string{}, nil
}

// ParseStrings parses strings.po data. An empty msgstr falls back to msgid.
func ParseStrings(data []byte) map[int]string {
	strs := make(map[int]string)
	for _, m := range poEntry.FindAllSubmatch(data, -1) {
		id, err := strconv.Atoi(string(m[1]))
		if err != nil {
			continue
		}
		if len(m[3]) > 0 {
			strs[id] = string(m[3])
		} else {
			strs[id] = string(m[2])
		}
	}
	return strs
}
