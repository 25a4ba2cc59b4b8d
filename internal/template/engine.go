// Package template implements the small section/variable template language
// used by the HTML and PDF report layouts, plus a path-keyed loader cache
// and a static template registry.
//
// The language supports two constructs:
//
//	{{key}}            dot-path variable interpolation (HTML-escaped)
//	{{#key}}...{{/key}} conditional / iterated section
//
// Section semantics: a falsy or missing key removes the block; an array
// renders the block once per element with the element's fields shadowing the
// outer data; a non-array object renders the block once with its fields
// merged the same way; any other truthy value renders the block once against
// the unmodified outer data. Missing keys are never an error — they resolve
// to empty.
package template

import (
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"
)

// RenderOptions controls variable rendering.
type RenderOptions struct {
	// DisableEscaping emits variable values verbatim instead of HTML-escaped.
	DisableEscaping bool
}

var variableRe = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_$.]+)\s*\}\}`)

// Render renders a template against a nested key/value tree.
// Sections are resolved in a single left-to-right pass before variable
// substitution; array and object members re-enter the full pipeline so
// nested sections inside iterated blocks resolve correctly.
func Render(tmpl string, data map[string]any, opts *RenderOptions) string {
	if opts == nil {
		opts = &RenderOptions{}
	}
	out := renderSections(tmpl, data, opts)
	return substituteVariables(out, data, opts)
}

// renderSections expands all {{#key}}...{{/key}} blocks.
func renderSections(text string, data map[string]any, opts *RenderOptions) string {
	var sb strings.Builder
	for {
		open := strings.Index(text, "{{#")
		if open < 0 {
			sb.WriteString(text)
			break
		}

		keyEnd := strings.Index(text[open:], "}}")
		if keyEnd < 0 {
			sb.WriteString(text)
			break
		}
		key := strings.TrimSpace(text[open+3 : open+keyEnd])
		blockStart := open + keyEnd + 2

		closeTag := "{{/" + key + "}}"
		close := strings.Index(text[blockStart:], closeTag)
		if close < 0 {
			// Unterminated section: emit the rest verbatim
			sb.WriteString(text)
			break
		}

		inner := text[blockStart : blockStart+close]
		sb.WriteString(text[:open])

		value := Lookup(data, key)
		switch v := value.(type) {
		case []any:
			for _, elem := range v {
				scope := data
				if m, ok := elem.(map[string]any); ok {
					scope = mergeScope(data, m)
				}
				sb.WriteString(Render(inner, scope, opts))
			}
		case []map[string]any:
			for _, elem := range v {
				sb.WriteString(Render(inner, mergeScope(data, elem), opts))
			}
		case map[string]any:
			sb.WriteString(Render(inner, mergeScope(data, v), opts))
		default:
			if !isFalsy(value) {
				// Truthy scalar: keep the block, rendered against outer data
				sb.WriteString(Render(inner, data, opts))
			}
			// Falsy: block removed
		}

		text = text[blockStart+close+len(closeTag):]
	}
	return sb.String()
}

// substituteVariables replaces {{key}} tokens via dot-path lookup.
func substituteVariables(text string, data map[string]any, opts *RenderOptions) string {
	return variableRe.ReplaceAllStringFunc(text, func(match string) string {
		key := strings.TrimSpace(match[2 : len(match)-2])
		value := Lookup(data, key)
		if value == nil {
			return ""
		}
		s := stringify(value)
		if opts.DisableEscaping {
			return s
		}
		return html.EscapeString(s)
	})
}

// Lookup resolves a dot-path key against a nested map tree.
// Returns nil when any path segment is missing or not traversable.
func Lookup(data map[string]any, path string) any {
	var current any = data
	for _, part := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current, ok = m[part]
		if !ok {
			return nil
		}
	}
	return current
}

// mergeScope overlays member fields on the outer data, member winning on
// key collision. The outer map is never mutated.
func mergeScope(outer, member map[string]any) map[string]any {
	merged := make(map[string]any, len(outer)+len(member))
	for k, v := range outer {
		merged[k] = v
	}
	for k, v := range member {
		merged[k] = v
	}
	return merged
}

// isFalsy matches the truthiness rules of the template language:
// nil, false, empty string, numeric zero, and empty collections are falsy.
func isFalsy(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case bool:
		return !t
	case string:
		return t == ""
	case int:
		return t == 0
	case int64:
		return t == 0
	case float64:
		return t == 0
	case []any:
		return len(t) == 0
	case []map[string]any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	default:
		return false
	}
}

// stringify converts a value to its display string. Floats use the shortest
// round-trip representation rather than Go's %v exponent form.
func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	default:
		return fmt.Sprintf("%v", t)
	}
}
