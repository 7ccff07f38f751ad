// Package payload wraps decoded JSON of unknown shape and looks fields up
// under the many spellings the platform's API versions use.
package payload

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/titanous/json5"
)

// Kind is the dynamic type held by a Value.
type Kind int

const (
	Null Kind = iota
	Map
	List
	String
	Number
	Bool
)

// Value is one node of a decoded payload tree: a map, a list or a scalar.
// The zero Value is Null.
type Value struct {
	raw any
}

var ErrEmptyBody = errors.New("payload: empty body")

// Parse decodes a response body. Strict JSON is tried first; bodies that only
// parse leniently (single quotes, trailing commas, comments) go through json5.
func Parse(body []byte) (Value, error) {
	body = bytes.TrimSpace(bytes.TrimPrefix(body, []byte("\xef\xbb\xbf")))
	if len(body) == 0 {
		return Value{}, ErrEmptyBody
	}
	var v any
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&v); err == nil {
		return From(v), nil
	}
	var lenient any
	if err := json5.Unmarshal(body, &lenient); err != nil {
		return Value{}, fmt.Errorf("payload: not json: %w", err)
	}
	return From(lenient), nil
}

// From wraps an already-decoded value.
func From(v any) Value {
	switch x := v.(type) {
	case Value:
		return x
	case int:
		return Value{raw: json.Number(strconv.Itoa(x))}
	case int64:
		return Value{raw: json.Number(strconv.FormatInt(x, 10))}
	}
	return Value{raw: v}
}

// Raw returns the underlying decoded value.
func (v Value) Raw() any { return v.raw }

func (v Value) Kind() Kind {
	switch v.raw.(type) {
	case map[string]any:
		return Map
	case []any:
		return List
	case string:
		return String
	case json.Number, float64:
		return Number
	case bool:
		return Bool
	}
	return Null
}

// Empty reports whether the value is absent or falsy: null, "", 0, false, or
// an empty map or list.
func (v Value) Empty() bool {
	switch x := v.raw.(type) {
	case nil:
		return true
	case map[string]any:
		return len(x) == 0
	case []any:
		return len(x) == 0
	case string:
		return x == ""
	case bool:
		return !x
	case json.Number:
		f, err := x.Float64()
		return err == nil && f == 0
	case float64:
		return x == 0
	}
	return false
}

// Get returns the map entry for key, or Null.
func (v Value) Get(key string) Value {
	if m, ok := v.raw.(map[string]any); ok {
		return From(m[key])
	}
	return Value{}
}

// Keys returns the map keys in sorted order.
func (v Value) Keys() []string {
	m, ok := v.raw.(map[string]any)
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Items returns the list elements, or nil for non-lists.
func (v Value) Items() []Value {
	l, ok := v.raw.([]any)
	if !ok {
		return nil
	}
	out := make([]Value, len(l))
	for i, x := range l {
		out[i] = From(x)
	}
	return out
}

// First returns the first list element, or Null.
func (v Value) First() Value {
	if l, ok := v.raw.([]any); ok && len(l) > 0 {
		return From(l[0])
	}
	return Value{}
}

// Text renders scalars as text. Maps and lists render as compact JSON.
func (v Value) Text() string {
	switch x := v.raw.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	}
	return v.JSON()
}

// Strings renders a list as its non-empty element texts, and a scalar as a
// one-element slice.
func (v Value) Strings() []string {
	if v.Kind() == List {
		var out []string
		for _, it := range v.Items() {
			if s := strings.TrimSpace(it.Text()); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	if s := strings.TrimSpace(v.Text()); s != "" {
		return []string{s}
	}
	return nil
}

// Int converts numbers and numeric strings, truncating fractions.
func (v Value) Int() (int, bool) {
	f, ok := v.Float()
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int(f), true
}

// Float converts numbers and numeric strings.
func (v Value) Float() (float64, bool) {
	switch x := v.raw.(type) {
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case float64:
		return x, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	}
	return 0, false
}

// JSON renders the value as compact JSON, for logs.
func (v Value) JSON() string {
	b, err := json.Marshal(v.raw)
	if err != nil {
		return ""
	}
	return string(b)
}

// Snippet returns at most n bytes of the JSON rendering.
func (v Value) Snippet(n int) string {
	s := v.JSON()
	if len(s) > n {
		return strings.ToValidUTF8(s[:n], "")
	}
	return s
}
