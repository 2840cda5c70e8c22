package airtable

import (
	"strconv"
	"strings"
)

// Typed accessors. The base is edited by hand, so column types drift:
// numbers show up as strings, single links as one-element arrays and
// so on. Each accessor coerces what it reasonably can and falls back
// to the zero value.

// String returns the field as a string.
func (f Fields) String(key string) string {
	switch v := f[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	}
	return ""
}

// StringSlice returns the field as a list of strings. A scalar string
// becomes a one-element list.
func (f Fields) StringSlice(key string) []string {
	switch v := f[key].(type) {
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return v
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	}
	return nil
}

// Float returns the field as a float64, parsing strings when needed.
func (f Fields) Float(key string) float64 {
	switch v := f[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case string:
		cleaned := strings.TrimSpace(strings.ReplaceAll(v, ",", "."))
		if parsed, err := strconv.ParseFloat(cleaned, 64); err == nil {
			return parsed
		}
	}
	return 0
}

// Int returns the field as an int, truncating floats.
func (f Fields) Int(key string) int {
	return int(f.Float(key))
}

// Bool returns the field as a bool. Airtable checkboxes are absent
// when unchecked.
func (f Fields) Bool(key string) bool {
	switch v := f[key].(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(v, "true")
	}
	return false
}

// AttachmentURL returns the URL of the first attachment in the field.
func (f Fields) AttachmentURL(key string) string {
	items, ok := f[key].([]any)
	if !ok || len(items) == 0 {
		return ""
	}
	first, ok := items[0].(map[string]any)
	if !ok {
		return ""
	}
	url, _ := first["url"].(string)
	return url
}

// Has reports whether the field is present at all.
func (f Fields) Has(key string) bool {
	_, ok := f[key]
	return ok
}
