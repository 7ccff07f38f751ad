package payload

import (
	"regexp"
	"strings"
)

var listKeys = []string{"books", "results", "items", "list"}

// SearchList finds the list of hits in a search response. Recognized shapes:
// {code:0, data:{books|results|items|list:[...]}}, the same keys at the top
// level, and a bare top-level list.
func SearchList(v Value) []Value {
	switch v.Kind() {
	case List:
		return v.Items()
	case Map:
	default:
		return nil
	}
	if ok, data := envelopeOK(v); ok {
		if data.Kind() == List {
			return data.Items()
		}
		return firstList(data)
	}
	return firstList(v)
}

func firstList(v Value) []Value {
	for _, k := range listKeys {
		if l := v.Get(k); l.Kind() == List && !l.Empty() {
			return l.Items()
		}
	}
	return nil
}

// envelopeOK reports whether v is a {code:0, data:...} envelope with data set.
func envelopeOK(v Value) (bool, Value) {
	code := v.Get("code")
	data := v.Get("data")
	if code.Kind() == Null || data.Empty() {
		return false, Value{}
	}
	if n, ok := code.Int(); !ok || n != 0 {
		return false, Value{}
	}
	return true, data
}

// CandidateID returns the novel id carried by a search hit.
func CandidateID(item Value) string {
	for _, k := range []string{"novelid", "bookId", "id"} {
		if x := item.Get(k); !x.Empty() {
			if s := strings.TrimSpace(x.Text()); s != "" {
				return s
			}
		}
	}
	return ""
}

var looseNovelID = regexp.MustCompile(`novelid\W*[:=]\W*"?(\d+)"?`)

// ScanNovelIDs pulls novel ids out of a body that did not decode into a
// recognizable list. Order is kept and duplicates are dropped.
func ScanNovelIDs(body string) []string {
	var out []string
	seen := map[string]bool{}
	for _, m := range looseNovelID.FindAllStringSubmatch(body, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			out = append(out, m[1])
		}
	}
	return out
}

// DetailRecord unwraps a detail response to the object describing novel id.
// Shapes are tried in order: {code:0, data:{book|novel|...}}, {data:{...}},
// {items:[...]} (the item matching id, else the first), the object itself,
// and the head of a bare list.
func DetailRecord(v Value, id string) Value {
	switch v.Kind() {
	case List:
		return v.First()
	case Map:
	default:
		return Value{}
	}
	if ok, data := envelopeOK(v); ok {
		if data.Kind() == Map {
			for _, k := range []string{"book", "novel"} {
				if x := data.Get(k); !x.Empty() {
					return x
				}
			}
		}
		return data
	}
	if data := v.Get("data"); data.Kind() == Map && !data.Empty() {
		return data
	}
	if items := v.Get("items"); !items.Empty() {
		if items.Kind() != List {
			return Value{}
		}
		for _, it := range items.Items() {
			if CandidateID(it) == strings.TrimSpace(id) {
				return it
			}
		}
		return items.First()
	}
	return v
}

// ExtendedRecord unwraps an extended-info response: the first non-empty of
// data, a, novelLeave, novel and result, else the object itself.
func ExtendedRecord(v Value) Value {
	switch v.Kind() {
	case List:
		return v.First()
	case Map:
		for _, k := range []string{"data", "a", "novelLeave", "novel", "result"} {
			if x := v.Get(k); !x.Empty() {
				return x
			}
		}
	}
	return v
}
