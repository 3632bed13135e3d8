// Package deeplink parses the underscore-delimited payloads delivered by
// the attribution provider into structured routing fields.
package deeplink

import "strings"

// Fields is the parsed form of a deep-link payload.
type Fields struct {
	Username string
	Domain   string
	Alias    string
	subs     []string
}

// Parse splits a bare payload on "_" and maps the segments to fields.
// It returns nil when fewer than three segments are present; that is the
// expected "not a valid link" outcome, not an error. The domain segment
// encodes dots as dashes so it survives path-safe transports; Parse
// normalizes them back. No further validation happens here.
func Parse(raw string) *Fields {
	parts := strings.Split(raw, "_")
	if len(parts) < 3 {
		return nil
	}

	return &Fields{
		Username: parts[0],
		Domain:   strings.ReplaceAll(parts[1], "-", "."),
		Alias:    parts[2],
		subs:     parts[3:],
	}
}

// Clean strips a URI scheme prefix, surrounding slashes, and whitespace,
// leaving the bare payload Parse expects.
func Clean(raw string) string {
	s := strings.TrimSpace(raw)
	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
	}
	s = strings.Trim(s, "/")
	return strings.TrimSpace(s)
}

// Sub returns the i-th sub-parameter (zero-based), or "" when absent.
func (f *Fields) Sub(i int) string {
	if i < 0 || i >= len(f.subs) {
		return ""
	}
	return f.subs[i]
}

// SubCount returns how many sub-parameters were present in the payload.
func (f *Fields) SubCount() int {
	return len(f.subs)
}
