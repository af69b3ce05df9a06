package kodi

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Scheme is the URL scheme of plugin invocations.
const Scheme = "plugin"

// PluginURL is a parsed plugin://<addon-id>/<path>?<query> URL.
type PluginURL struct {
	AddonID  string
	Path     string
	RawQuery string

	// Query holds the first value of each query parameter.
	Query map[string]string
}

// ParseURL parses a plugin URL. The path defaults to "/".
func ParseURL(raw string) (PluginURL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return PluginURL{}, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != Scheme {
		return PluginURL{}, fmt.Errorf("%w: scheme %q", ErrInvalidURL, u.Scheme)
	}
	if u.Host == "" {
		return PluginURL{}, fmt.Errorf("%w: missing addon id in %q", ErrInvalidURL, raw)
	}

	values, err := url.ParseQuery(u.RawQuery)
	if err != nil {
		return PluginURL{}, fmt.Errorf("%w: bad query: %v", ErrInvalidURL, err)
	}
	query := make(map[string]string, len(values))
	for k, v := range values {
		if len(v) > 0 {
			query[k] = v[0]
		}
	}

	p := u.Path
	if p == "" {
		p = "/"
	}

	return PluginURL{
		AddonID:  u.Host,
		Path:     p,
		RawQuery: u.RawQuery,
		Query:    query,
	}, nil
}

// MustParseURL is like ParseURL but panics on error. For tests and constants.
func MustParseURL(raw string) PluginURL {
	u, err := ParseURL(raw)
	if err != nil {
		panic(err)
	}
	return u
}

// BuildURL creates a plugin URL from an addon id, path and parameters.
// Parameters are encoded in key order.
func BuildURL(addonID, path string, params map[string]string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	s := Scheme + "://" + addonID + path
	if len(params) == 0 {
		return s
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	q := make(url.Values, len(params))
	for _, k := range keys {
		q.Set(k, params[k])
	}
	return s + "?" + q.Encode()
}

// Base returns the URL without its query, as passed to plugins in argv[0].
func (u PluginURL) Base() string {
	return Scheme + "://" + u.AddonID + u.Path
}

// QueryString returns the query with a leading "?", as passed in argv[2].
func (u PluginURL) QueryString() string {
	if u.RawQuery == "" {
		return ""
	}
	return "?" + u.RawQuery
}

// String returns the full URL.
func (u PluginURL) String() string {
	return u.Base() + u.QueryString()
}

// Canonical returns the URL with its query re-encoded in key order, so
// equivalent URLs compare equal. Every value of a repeated key is kept in
// the order it appeared.
func (u PluginURL) Canonical() string {
	values, err := url.ParseQuery(u.RawQuery)
	if err != nil {
		values = make(url.Values, len(u.Query))
		for k, v := range u.Query {
			values.Set(k, v)
		}
	}
	s := u.Base()
	if q := values.Encode(); q != "" {
		s += "?" + q
	}
	return s
}

// Params returns a copy of the decoded query.
func (u PluginURL) Params() map[string]string {
	m := make(map[string]string, len(u.Query))
	for k, v := range u.Query {
		m[k] = v
	}
	return m
}

// IsPluginURL reports whether s uses the plugin scheme.
func IsPluginURL(s string) bool {
	return strings.HasPrefix(s, Scheme+"://")
}
