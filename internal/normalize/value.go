// Package normalize turns the loosely-structured input documents (ticker
// catalog, file listing, news log) into canonical records. Producers rename
// fields and reshape containers between versions, so every lookup goes
// through an alias table and every scalar through tolerant coercion.
package normalize

import (
	"math"
	"strconv"
	"strings"
)

func asMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

func asList(v any) ([]any, bool) {
	l, ok := v.([]any)
	return l, ok
}

// number coerces v to a finite float64. Non-finite values and unparseable
// strings yield nil, never a malformed value.
func number(v any) *float64 {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// boolean coerces v to a bool. Numbers are truthy when non-zero; strings
// accept the usual spellings. Anything else yields nil.
func boolean(v any) *bool {
	var b bool
	switch n := v.(type) {
	case bool:
		b = n
	case float64:
		b = n != 0
	case int:
		b = n != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(n)) {
		case "true", "yes", "1":
			b = true
		case "false", "no", "0":
			b = false
		default:
			return nil
		}
	default:
		return nil
	}
	return &b
}

func str(v any) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(s)
}

// pick returns the value of the first alias present in m.
// Aliases are consulted in declared order; the first hit wins.
func pick(m map[string]any, aliases ...string) (any, bool) {
	for _, key := range aliases {
		if v, ok := m[key]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func pickNumber(m map[string]any, aliases ...string) *float64 {
	v, ok := pick(m, aliases...)
	if !ok {
		return nil
	}
	return number(v)
}

func pickBool(m map[string]any, aliases ...string) *bool {
	v, ok := pick(m, aliases...)
	if !ok {
		return nil
	}
	return boolean(v)
}

func pickString(m map[string]any, aliases ...string) string {
	v, ok := pick(m, aliases...)
	if !ok {
		return ""
	}
	return str(v)
}
