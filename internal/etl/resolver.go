package etl

import (
	"strconv"
)

// Personio attribute maps store every named attribute as {"value": V}, where
// V may be a scalar, a nested entity reference ({"attributes": {...}} or a
// plain object with label/name), or a list of such. The accessors below
// implement the fallback chains explicitly so the resolution order is
// auditable and testable in isolation.

// rawValue unwraps attrs[key].value, returning nil when the attribute is
// absent or not shaped as a wrapper.
func rawValue(attrs map[string]any, key string) any {
	wrapper, ok := attrs[key].(map[string]any)
	if !ok {
		return nil
	}
	return wrapper["value"]
}

// ResolveString resolves an attribute to a string. Nested objects resolve
// through their display name; absent or null values yield def. The order of
// the nested fallback chain is significant; provider responses are
// inconsistent about where display names live.
func ResolveString(attrs map[string]any, key, def string) string {
	switch v := rawValue(attrs, key).(type) {
	case nil:
		return def
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case map[string]any:
		if name, ok := displayName(v); ok {
			return name
		}
		return def
	default:
		return def
	}
}

// ResolveFloat resolves an attribute to a float64, parsing string-encoded
// numbers; anything else yields def.
func ResolveFloat(attrs map[string]any, key string, def float64) float64 {
	switch v := rawValue(attrs, key).(type) {
	case float64:
		return v
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
		return def
	default:
		return def
	}
}

// ResolveMap returns a nested value object (e.g. the supervisor reference),
// or nil.
func ResolveMap(attrs map[string]any, key string) map[string]any {
	m, _ := rawValue(attrs, key).(map[string]any)
	return m
}

// ResolveList returns a list-valued attribute (e.g. cost centers), or nil.
func ResolveList(attrs map[string]any, key string) []any {
	l, _ := rawValue(attrs, key).([]any)
	return l
}

// displayName resolves a nested object's human-readable name: first a direct
// label/name field, then name/label one level deeper inside the object's own
// attribute map (where entries may again be {"value": ...} wrappers).
func displayName(obj map[string]any) (string, bool) {
	for _, k := range []string{"label", "name"} {
		if s, ok := obj[k].(string); ok && s != "" {
			return s, true
		}
	}

	nested, ok := obj["attributes"].(map[string]any)
	if !ok {
		return "", false
	}
	for _, k := range []string{"name", "label"} {
		switch v := nested[k].(type) {
		case string:
			if v != "" {
				return v, true
			}
		case map[string]any:
			if s, ok := v["value"].(string); ok && s != "" {
				return s, true
			}
		}
	}
	return "", false
}

// ResolveNestedID extracts the identifier of a nested entity reference:
// a direct id field first, then attributes.id. Empty when absent.
func ResolveNestedID(attrs map[string]any, key string) string {
	obj, ok := rawValue(attrs, key).(map[string]any)
	if !ok {
		return ""
	}
	if id, ok := scalarID(obj["id"]); ok {
		return id
	}
	if nested, ok := obj["attributes"].(map[string]any); ok {
		v := nested["id"]
		if wrapper, ok := v.(map[string]any); ok {
			v = wrapper["value"]
		}
		if id, ok := scalarID(v); ok {
			return id
		}
	}
	return ""
}

func scalarID(v any) (string, bool) {
	switch t := v.(type) {
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case string:
		if t != "" {
			return t, true
		}
	}
	return "", false
}
