package loader

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// TOMLFile is a Source backed by a TOML file. A missing file is an empty
// layer, so a fresh install runs on defaults.
type TOMLFile struct {
	fs   FileSystem
	path string
}

// NewTOMLFile returns a source reading path through fsys, or through the
// OS file system when fsys is nil.
func NewTOMLFile(fsys FileSystem, path string) *TOMLFile {
	if fsys == nil {
		fsys = DefaultFS()
	}
	return &TOMLFile{fs: fsys, path: path}
}

// Path returns the file path.
func (f *TOMLFile) Path() string {
	return f.path
}

// Load implements Source.
func (f *TOMLFile) Load() (map[string]any, error) {
	data, err := f.fs.ReadFile(f.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("reading config file %s: %w", f.path, err)
	}
	return Decode(f.path, data)
}

// Decode parses TOML data; source names it in errors.
func Decode(source string, data []byte) (map[string]any, error) {
	values := make(map[string]any)
	if err := toml.NewDecoder(bytes.NewReader(data)).Decode(&values); err != nil {
		pe := &ParseError{Path: source, Message: err.Error(), Err: err}
		var de *toml.DecodeError
		if errors.As(err, &de) {
			pe.Line, pe.Column = de.Position()
			pe.Key = strings.Join(de.Key(), ".")
		}
		return nil, pe
	}
	return values, nil
}
