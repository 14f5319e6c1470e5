// Package redact strips credentials and card data from payloads before they
// reach a log sink.
package redact

import (
	"encoding/json"
	"strings"
)

// Marker replaces every sensitive value.
const Marker = "[REDACTED]"

var sensitiveKeys = map[string]struct{}{
	"token":        {},
	"secret":       {},
	"password":     {},
	"cardnumber":   {},
	"card_number":  {},
	"cvv":          {},
	"cvv2":         {},
	"access_token": {},
}

// partialKeys hold identifiers that are useful in logs but only by suffix.
var partialKeys = map[string]struct{}{
	"paymenttokenid": {},
}

// IsSensitiveKey reports whether values stored under key must never be logged.
// Matching is case-insensitive.
func IsSensitiveKey(key string) bool {
	_, ok := sensitiveKeys[strings.ToLower(key)]
	return ok
}

func isPartialKey(key string) bool {
	_, ok := partialKeys[strings.ToLower(key)]
	return ok
}

// Value returns a copy of v with sensitive keys replaced by Marker at any
// depth. Token identifiers keep their last four characters. Maps and slices
// are copied; v itself is never modified.
func Value(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			if IsSensitiveKey(k) {
				out[k] = Marker
				continue
			}
			if s, ok := val.(string); ok && isPartialKey(k) {
				out[k] = Last4(s)
				continue
			}
			out[k] = Value(val)
		}
		return out
	case map[string]string:
		out := make(map[string]any, len(t))
		for k, val := range t {
			if IsSensitiveKey(k) {
				out[k] = Marker
				continue
			}
			if isPartialKey(k) {
				out[k] = Last4(val)
				continue
			}
			out[k] = val
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = Value(val)
		}
		return out
	default:
		return v
	}
}

// JSON redacts an encoded JSON document. Bodies that are not JSON are
// replaced entirely, since their contents cannot be inspected.
func JSON(raw []byte) []byte {
	if len(raw) == 0 {
		return raw
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return []byte(`"` + Marker + `"`)
	}
	out, err := json.Marshal(Value(decoded))
	if err != nil {
		return []byte(`"` + Marker + `"`)
	}
	return out
}

// Struct encodes v as JSON and redacts it, so request structs can be logged
// through their wire form.
func Struct(v any) []byte {
	raw, err := json.Marshal(v)
	if err != nil {
		return []byte(`"` + Marker + `"`)
	}
	return JSON(raw)
}

// Last4 renders an identifier with everything but its trailing four
// characters masked.
func Last4(id string) string {
	if len(id) <= 4 {
		return "****"
	}
	return "****" + id[len(id)-4:]
}
