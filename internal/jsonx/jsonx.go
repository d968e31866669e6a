// Package jsonx holds the tolerant JSON accessors the provider adapters
// share. Remote payloads rename fields between releases, so every lookup
// takes an ordered alias list and the first present value wins. Absent and
// null are reported distinctly from zero values via pointer returns.
package jsonx

import (
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// Doc wraps a parsed JSON document. The zero Doc behaves like an empty
// object.
type Doc struct {
	root gjson.Result
}

// Parse wraps raw JSON bytes. Invalid JSON yields a Doc where every lookup
// misses; callers that need to distinguish check Valid.
func Parse(data []byte) Doc {
	return Doc{root: gjson.ParseBytes(data)}
}

// Valid reports whether the underlying bytes were well-formed JSON with an
// object or array at the top level.
func Valid(data []byte) bool {
	if !gjson.ValidBytes(data) {
		return false
	}
	root := gjson.ParseBytes(data)
	return root.IsObject() || root.IsArray()
}

// Get resolves a dotted path on the document.
func (d Doc) Get(path string) gjson.Result {
	return d.root.Get(path)
}

// Root returns the underlying result for iteration.
func (d Doc) Root() gjson.Result {
	return d.root
}

// FirstString returns the first alias present with a non-empty string
// value. Numeric values are stringified, matching payloads that flip a
// field between string and number across versions.
func (d Doc) FirstString(aliases ...string) (string, bool) {
	return FirstString(d.root, aliases...)
}

// FirstFloat returns the first alias present with a numeric value, or a
// string that parses as one.
func (d Doc) FirstFloat(aliases ...string) (float64, bool) {
	return FirstFloat(d.root, aliases...)
}

// FirstBool returns the first alias present with a boolean value.
func (d Doc) FirstBool(aliases ...string) (bool, bool) {
	return FirstBool(d.root, aliases...)
}

// FirstString is the alias lookup against an arbitrary subtree.
func FirstString(node gjson.Result, aliases ...string) (string, bool) {
	for _, alias := range aliases {
		val := node.Get(alias)
		if !val.Exists() || val.Type == gjson.Null {
			continue
		}
		switch val.Type {
		case gjson.String:
			if s := strings.TrimSpace(val.String()); s != "" {
				return s, true
			}
		case gjson.Number:
			return val.Raw, true
		}
	}
	return "", false
}

// FirstFloat is the numeric alias lookup against an arbitrary subtree.
// String values are accepted when they parse as floats, because several
// endpoints serialize counters as strings.
func FirstFloat(node gjson.Result, aliases ...string) (float64, bool) {
	for _, alias := range aliases {
		val := node.Get(alias)
		if !val.Exists() || val.Type == gjson.Null {
			continue
		}
		switch val.Type {
		case gjson.Number:
			return val.Float(), true
		case gjson.String:
			if f, err := strconv.ParseFloat(strings.TrimSpace(val.String()), 64); err == nil {
				return f, true
			}
		case gjson.True, gjson.False:
			// booleans are not numbers; keep scanning
		}
	}
	return 0, false
}

// FirstBool is the boolean alias lookup against an arbitrary subtree.
func FirstBool(node gjson.Result, aliases ...string) (bool, bool) {
	for _, alias := range aliases {
		val := node.Get(alias)
		if !val.Exists() || val.Type == gjson.Null {
			continue
		}
		switch val.Type {
		case gjson.True:
			return true, true
		case gjson.False:
			return false, true
		}
	}
	return false, false
}

// ClampFraction bounds a remaining-fraction value into [0, 1].
func ClampFraction(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// ClampPercent bounds a used-percent value into [0, 100].
func ClampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
