package event

import (
	"fmt"
	"regexp"
	"strings"
)

// placeholderRe matches a whole-string reference like "{{evt_123}}" or
// "{{evt_123.path.to.field}}", and also the same pattern embedded inside a
// larger string for interpolation.
var placeholderRe = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_\-]+)((?:\.[a-zA-Z0-9_\-]+)*)\s*\}\}`)

// Lookup resolves an event id to the CompletedEvent that produced it, so a
// later action's args can reference an earlier event's return value.
type Lookup func(eventID string) (*CompletedEvent, bool)

// ResolveArgPlaceholders walks args and replaces every "{{event_id}}" or
// "{{event_id.field.path}}" reference with the referenced event's return
// value (or the value at that field path within it). A value that is
// exactly one placeholder is replaced with the referenced value's native
// type (so a return value of type int stays an int); a placeholder embedded
// in a larger string is interpolated as text via fmt.Sprint.
func ResolveArgPlaceholders(args map[string]any, lookup Lookup) (map[string]any, error) {
	if args == nil {
		return nil, nil
	}
	out := make(map[string]any, len(args))
	for k, v := range args {
		rv, err := resolveValue(v, lookup)
		if err != nil {
			return nil, fmt.Errorf("resolving arg %q: %w", k, err)
		}
		out[k] = rv
	}
	return out, nil
}

func resolveValue(v any, lookup Lookup) (any, error) {
	switch val := v.(type) {
	case string:
		return resolveString(val, lookup)
	case map[string]any:
		return ResolveArgPlaceholders(val, lookup)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			rv, err := resolveValue(item, lookup)
			if err != nil {
				return nil, err
			}
			out[i] = rv
		}
		return out, nil
	default:
		return v, nil
	}
}

func resolveString(s string, lookup Lookup) (any, error) {
	matches := placeholderRe.FindAllStringSubmatchIndex(s, -1)
	if matches == nil {
		return s, nil
	}
	// A value that is exactly one placeholder keeps the referenced value's
	// native Go type instead of being stringified.
	if len(matches) == 1 && matches[0][0] == 0 && matches[0][1] == len(s) {
		m := matches[0]
		eventID := s[m[2]:m[3]]
		path := s[m[4]:m[5]]
		return resolveReference(eventID, path, lookup)
	}

	var b strings.Builder
	last := 0
	for _, m := range matches {
		b.WriteString(s[last:m[0]])
		eventID := s[m[2]:m[3]]
		path := s[m[4]:m[5]]
		ref, err := resolveReference(eventID, path, lookup)
		if err != nil {
			return nil, err
		}
		b.WriteString(fmt.Sprint(ref))
		last = m[1]
	}
	b.WriteString(s[last:])
	return b.String(), nil
}

func resolveReference(eventID, path string, lookup Lookup) (any, error) {
	completed, ok := lookup(eventID)
	if !ok {
		return nil, fmt.Errorf("no completed event %q to resolve placeholder against", eventID)
	}
	if completed.Metadata.Failed() {
		return nil, fmt.Errorf("referenced event %q failed: %s", eventID, completed.Metadata.Exception)
	}
	val := completed.Metadata.ReturnValue
	if path == "" {
		return val, nil
	}
	for _, field := range strings.Split(strings.TrimPrefix(path, "."), ".") {
		m, ok := val.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("referenced event %q: cannot index field %q into non-object value", eventID, field)
		}
		next, ok := m[field]
		if !ok {
			return nil, fmt.Errorf("referenced event %q: has no field %q", eventID, field)
		}
		val = next
	}
	return val, nil
}
