// Package template renders message templates with {{placeholder}} markers.
package template

import (
	"regexp"
	"strings"
)

var placeholderRe = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_]+)\s*\}\}`)

// Render substitutes {{key}} markers in tmpl with values from vars.
// Key matching is case-insensitive. A nil value renders as the empty string.
// Markers whose key has no entry in vars are left untouched so that a typo in
// a template is visible in the delivered message instead of silently erased.
func Render(tmpl string, vars map[string]*string) string {
	if tmpl == "" {
		return ""
	}

	lowered := make(map[string]*string, len(vars))
	for k, v := range vars {
		lowered[strings.ToLower(k)] = v
	}

	return placeholderRe.ReplaceAllStringFunc(tmpl, func(match string) string {
		key := strings.ToLower(placeholderRe.FindStringSubmatch(match)[1])
		value, ok := lowered[key]
		if !ok {
			return match
		}
		if value == nil {
			return ""
		}
		return *value
	})
}

// Vars builds a substitution map from required and optional values. Entries
// in extra override the base entries on key collision (case-insensitive).
func Vars(base map[string]*string, extra map[string]string) map[string]*string {
	out := make(map[string]*string, len(base)+len(extra))
	for k, v := range base {
		out[strings.ToLower(k)] = v
	}
	for k, v := range extra {
		val := v
		out[strings.ToLower(k)] = &val
	}
	return out
}
