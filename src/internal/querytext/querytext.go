// Package querytext cleans free-text title and author queries before they are
// sent to the platform's search endpoints.
package querytext

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"

	"novelmeta/src/internal/stringsx"
)

// foldWidth maps the full-width ASCII block and the ideographic space to their
// half-width forms.
var foldWidth = runes.Map(func(r rune) rune {
	switch {
	case r == 0x3000:
		return ' '
	case r >= 0xFF01 && r <= 0xFF5E:
		return r - 0xFEE0
	}
	return r
})

var annotations = []*regexp.Regexp{
	regexp.MustCompile(`\([^)]*\)`),
	regexp.MustCompile(`\[[^\]]*\]`),
	regexp.MustCompile(`（[^）]*）`),
	regexp.MustCompile(`【[^】]*】`),
}

var punctuation = strings.NewReplacer(
	"·", " ", "•", " ", "・", " ", "…", " ",
	"：", ":", "。", ".", "，", ",",
)

// Normalize folds width, strips bracketed annotations, maps CJK punctuation to
// ASCII, replaces any remaining symbol with a space, and collapses whitespace.
// Empty input is returned unchanged.
func Normalize(s string) string {
	if s == "" {
		return s
	}
	if folded, _, err := transform.String(foldWidth, s); err == nil {
		s = folded
	}
	for _, re := range annotations {
		s = re.ReplaceAllString(s, "")
	}
	s = punctuation.Replace(s)
	s = strings.Map(func(r rune) rune {
		if keep(r) {
			return r
		}
		return ' '
	}, s)
	return stringsx.CollapseSpace(s)
}

func keep(r rune) bool {
	switch {
	case unicode.IsLetter(r), unicode.IsNumber(r), r == '_':
		return true
	case r >= 0x4E00 && r <= 0x9FFF, r >= 0x3000 && r <= 0x303F:
		return true
	}
	return strings.ContainsRune("-.:,' ", r)
}

// statusMarkers are serialization-status words that often trail a title.
var statusMarkers = []string{"完结", "完本", "连载", "番外", "全本", "txt", "全文", "番外篇"}

const maxTokenVariants = 5

// Variations derives progressively looser search keywords from a cleaned title:
// first the title without status markers, then its longest whitespace tokens.
// The result is de-duplicated and never contains the input itself unless it is
// also one of its own tokens.
func Variations(title string) []string {
	if title == "" {
		return nil
	}
	var out []string
	short := title
	for _, w := range statusMarkers {
		short = strings.ReplaceAll(short, w, " ")
	}
	short = stringsx.CollapseSpace(short)
	if short != "" && short != title {
		out = append(out, short)
	}
	tokens := strings.Fields(title)
	sort.SliceStable(tokens, func(i, j int) bool {
		return utf8.RuneCountInString(tokens[i]) > utf8.RuneCountInString(tokens[j])
	})
	if len(tokens) > maxTokenVariants {
		tokens = tokens[:maxTokenVariants]
	}
	for _, t := range tokens {
		if utf8.RuneCountInString(t) < 2 || contains(out, t) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
