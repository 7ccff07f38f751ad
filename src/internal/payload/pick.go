package payload

import (
	"strings"
	"unicode"
)

const maxDepth = 8

// Lookup finds a field under any of several key spellings. Each candidate key
// is tried exactly (and, with Variants, in its camelCase/snake_case/lowercase
// spellings), then case-insensitively, and only then inside the Envelopes
// keys and list heads, recursively. The first non-empty match wins.
type Lookup struct {
	Envelopes []string
	Variants  bool
}

var (
	// Detail is the lookup used for detail payloads.
	Detail = Lookup{Envelopes: []string{"book", "novel", "data", "result"}, Variants: true}
	// Extended is the lookup used for the extended-info payload.
	Extended = Lookup{Envelopes: []string{"data", "a", "novel", "result"}}
)

// Pick applies the Detail lookup.
func Pick(v Value, keys ...string) Value { return Detail.Pick(v, keys...) }

// PickText is Pick followed by Text and TrimSpace.
func PickText(v Value, keys ...string) string {
	return strings.TrimSpace(Pick(v, keys...).Text())
}

// Pick returns the first non-empty value found for keys, or Null.
func (l Lookup) Pick(v Value, keys ...string) Value {
	if len(keys) == 0 {
		return Value{}
	}
	return l.pick(v, keys, 0)
}

func (l Lookup) pick(v Value, keys []string, depth int) Value {
	if depth > maxDepth || v.Empty() {
		return Value{}
	}
	switch v.Kind() {
	case List:
		return l.pick(v.First(), keys, depth+1)
	case Map:
	default:
		return Value{}
	}

	m := v.raw.(map[string]any)
	for _, k := range keys {
		spellings := []string{k}
		if l.Variants {
			spellings = keyVariants(k)
		}
		for _, s := range spellings {
			if x := From(m[s]); !x.Empty() {
				return x
			}
		}
	}
	sorted := v.Keys()
	for _, k := range keys {
		for _, mk := range sorted {
			if strings.EqualFold(mk, k) {
				if x := From(m[mk]); !x.Empty() {
					return x
				}
			}
		}
	}
	for _, nest := range l.Envelopes {
		nested := From(m[nest])
		if nested.Kind() != Map && nested.Kind() != List {
			continue
		}
		if x := l.pick(nested, keys, depth+1); !x.Empty() {
			return x
		}
	}
	return Value{}
}

// keyVariants returns k followed by its other common spellings:
// camelCase from snake_case, snake_case from camelCase, underscores dropped,
// and the lowercase forms. Duplicates are removed.
func keyVariants(k string) []string {
	out := []string{k}
	add := func(s string) {
		if s == "" {
			return
		}
		for _, o := range out {
			if o == s {
				return
			}
		}
		out = append(out, s)
	}
	add(snakeToCamel(k))
	add(camelToSnake(k))
	add(strings.ReplaceAll(k, "_", ""))
	add(strings.ReplaceAll(k, " ", ""))
	add(strings.ToLower(k))
	add(strings.ToLower(strings.ReplaceAll(k, "_", "")))
	return out
}

func snakeToCamel(k string) string {
	parts := strings.Split(k, "_")
	if len(parts) == 1 {
		return k
	}
	var b strings.Builder
	b.WriteString(parts[0])
	for _, p := range parts[1:] {
		if p == "" {
			continue
		}
		r := []rune(strings.ToLower(p))
		r[0] = unicode.ToUpper(r[0])
		b.WriteString(string(r))
	}
	return b.String()
}

func camelToSnake(k string) string {
	var b strings.Builder
	for i, r := range k {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
