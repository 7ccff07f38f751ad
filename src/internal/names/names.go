package names

import (
	"strings"
	"unicode"

	"novelmeta/src/internal/stringsx"
)

// isAuthorDelimiter reports whether r separates two author names:
// comma, ampersand, slash, semicolon, full-width comma, enumeration comma,
// middle dot, or any whitespace.
func isAuthorDelimiter(r rune) bool {
	switch r {
	case ',', '&', '/', ';', '，', '、', '·':
		return true
	}
	return unicode.IsSpace(r)
}

// SplitAuthors splits a raw author field into an ordered, de-duplicated list.
func SplitAuthors(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	return stringsx.AppendUnique(nil, strings.FieldsFunc(raw, isAuthorDelimiter)...)
}

// JoinAuthors flattens several author values (for example a JSON array) and
// splits them the same way SplitAuthors does.
func JoinAuthors(parts []string) []string {
	return SplitAuthors(strings.Join(parts, ","))
}
