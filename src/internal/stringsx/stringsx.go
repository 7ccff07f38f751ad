package stringsx

import "strings"

// FirstNonEmpty returns the first string in vals that is non-empty when trimmed.
func FirstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

// CollapseSpace folds every whitespace run into a single space and trims the ends.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// AppendUnique appends the trimmed, non-empty values of add to dst, skipping
// anything dst already holds. First-seen order is kept.
func AppendUnique(dst []string, add ...string) []string {
	seen := make(map[string]struct{}, len(dst)+len(add))
	for _, v := range dst {
		seen[v] = struct{}{}
	}
	for _, v := range add {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		dst = append(dst, v)
	}
	return dst
}

// Prepend puts v in front of list and drops any later copy of it.
func Prepend(list []string, v string) []string {
	v = strings.TrimSpace(v)
	if v == "" {
		return list
	}
	return AppendUnique([]string{v}, list...)
}
