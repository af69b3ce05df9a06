package settings

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/dshills/addondev/internal/addon"
)

// XMLPersister stores user settings the way the host does, under
// <home>/userdata/addon_data/<id>/settings.xml.
type XMLPersister struct {
	home string
}

// NewXMLPersister creates a persister rooted at the host home directory.
func NewXMLPersister(home string) *XMLPersister {
	return &XMLPersister{home: home}
}

// Path returns the settings file for an addon.
func (p *XMLPersister) Path(addonID string) string {
	return filepath.Join(p.home, "userdata", "addon_data", addonID, "settings.xml")
}

type settingsFile struct {
	XMLName  xml.Name      `xml:"settings"`
	Version  string        `xml:"version,attr,omitempty"`
	Settings []settingElem `xml:"setting"`
}

type settingElem struct {
	ID    string `xml:"id,attr"`
	Value string `xml:",chardata"`
}

// Load reads the saved settings for an addon. A missing file yields no values.
func (p *XMLPersister) Load(addonID string) (map[string]string, error) {
	data, err := os.ReadFile(p.Path(addonID))
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}

	// Saved files use <setting id="x">value</setting>; older profiles use
	// the value attribute, which the addon parser already understands.
	var doc settingsFile
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse settings: %w", err)
	}
	legacy, err := addon.ParseSettings(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	values := make(map[string]string, len(doc.Settings))
	for _, s := range doc.Settings {
		if s.ID == "" {
			continue
		}
		if v, ok := legacy[s.ID]; ok && v != "" {
			values[s.ID] = v
			continue
		}
		values[s.ID] = s.Value
	}
	return values, nil
}

// Save writes the settings for an addon atomically.
func (p *XMLPersister) Save(addonID string, values map[string]string) error {
	path := p.Path(addonID)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	doc := settingsFile{Version: "2"}
	for _, k := range keys {
		doc.Settings = append(doc.Settings, settingElem{ID: k, Value: values[k]})
	}

	data, err := xml.MarshalIndent(doc, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".settings-*.xml")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write settings: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace settings: %w", err)
	}
	return nil
}
