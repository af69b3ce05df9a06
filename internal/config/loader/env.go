package loader

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// EnvLoader loads configuration from environment variables.
//
// Only variables in the mapping are read. Values are typed by shape:
// booleans, integers and floats are converted, everything else stays a
// string. Variables mapped to list keys are split on the OS path list
// separator.
type EnvLoader struct {
	mapping map[string]string // Env var -> config path
	lists   map[string]bool   // Config paths holding lists
}

// NewEnvLoader creates a loader with the given environment variable mapping.
func NewEnvLoader(mapping map[string]string, listPaths ...string) *EnvLoader {
	l := &EnvLoader{
		mapping: mapping,
		lists:   make(map[string]bool, len(listPaths)),
	}
	for _, p := range listPaths {
		l.lists[p] = true
	}
	return l
}

// Load reads environment variables and returns a configuration map.
// Empty values are treated as unset.
func (l *EnvLoader) Load() (map[string]any, error) {
	config := make(map[string]any)

	for env, path := range l.mapping {
		val, ok := os.LookupEnv(env)
		if !ok || val == "" {
			continue
		}
		if l.lists[path] {
			items := make([]any, 0)
			for _, item := range filepath.SplitList(val) {
				if item != "" {
					items = append(items, item)
				}
			}
			setByPath(config, path, items)
			continue
		}
		setByPath(config, path, parseValue(val))
	}

	return config, nil
}

// AddMapping adds an environment variable mapping.
func (l *EnvLoader) AddMapping(envVar, configPath string) {
	if l.mapping == nil {
		l.mapping = make(map[string]string)
	}
	l.mapping[envVar] = configPath
}

// parseValue converts a string into a bool, integer or float when it has
// that shape.
func parseValue(s string) any {
	lower := strings.ToLower(s)
	if lower == "true" || lower == "yes" || lower == "on" {
		return true
	}
	if lower == "false" || lower == "no" || lower == "off" {
		return false
	}

	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}

	// Only with a decimal point, to avoid misinterpreting ints
	if strings.Contains(s, ".") {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}

	return s
}

// setByPath sets a value in a nested map using a dot-separated path.
func setByPath(data map[string]any, path string, value any) {
	parts := strings.Split(path, ".")
	current := data

	for i := 0; i < len(parts)-1; i++ {
		part := parts[i]
		if next, ok := current[part].(map[string]any); ok {
			current = next
		} else {
			next := make(map[string]any)
			current[part] = next
			current = next
		}
	}

	current[parts[len(parts)-1]] = value
}

// getByPath returns the value at a dot-separated path.
func getByPath(data map[string]any, path string) (any, bool) {
	parts := strings.Split(path, ".")
	current := data
	for i, part := range parts {
		v, ok := current[part]
		if !ok {
			return nil, false
		}
		if i == len(parts)-1 {
			return v, true
		}
		if current, ok = v.(map[string]any); !ok {
			return nil, false
		}
	}
	return nil, false
}
