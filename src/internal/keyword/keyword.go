// Package keyword turns a search string into a keyword and a search intent.
package keyword

import (
	"regexp"
	"strconv"
	"strings"
)

// Intent is the kind of search the platform should run.
type Intent int

const (
	Title Intent = iota
	Author
	Protagonist
	SupportingRole
	OtherKeyword
	ByID
)

var intentNames = map[Intent]string{
	Title:          "title",
	Author:         "author",
	Protagonist:    "protagonist",
	SupportingRole: "supporting",
	OtherKeyword:   "other",
	ByID:           "id",
}

// searchTypes maps intents to the platform's numeric search type codes.
var searchTypes = map[Intent]int{
	Title:          1,
	Author:         2,
	Protagonist:    4,
	SupportingRole: 5,
	OtherKeyword:   6,
	ByID:           7,
}

func (i Intent) String() string {
	if s, ok := intentNames[i]; ok {
		return s
	}
	return "unknown"
}

// Code returns the platform search type code for the intent.
func (i Intent) Code() int {
	if c, ok := searchTypes[i]; ok {
		return c
	}
	return searchTypes[Title]
}

// IntentForCode reverses Code. The second result is false for unknown codes.
func IntentForCode(code int) (Intent, bool) {
	for i, c := range searchTypes {
		if c == code {
			return i, true
		}
	}
	return Title, false
}

// Query is a classified search string.
type Query struct {
	Raw     string
	Keyword string
	Intent  Intent
}

var typePrefix = regexp.MustCompile(`(?i)^(?:t|type)\s*[:=]\s*(\d+)\s*(.*)$`)

type prefixRule struct {
	re     *regexp.Regexp
	intent Intent
}

var prefixRules = []prefixRule{
	{regexp.MustCompile(`(?i)^(?:作者|author)\s*[:：]\s*(.+)$`), Author},
	{regexp.MustCompile(`(?i)^(?:主角|protagonist)\s*[:：]\s*(.+)$`), Protagonist},
	{regexp.MustCompile(`(?i)^(?:配角|supporting)\s*[:：]\s*(.+)$`), SupportingRole},
	{regexp.MustCompile(`(?i)^(?:其它|其他|other)\s*[:：]\s*(.+)$`), OtherKeyword},
	{regexp.MustCompile(`(?i)^(?:ID|文章ID|id)\s*[:：]\s*(.+)$`), ByID},
}

type tagRule struct {
	label  string
	intent Intent
}

var tagRules = []tagRule{
	{"主角#", Protagonist},
	{"配角#", SupportingRole},
	{"其他#", OtherKeyword},
	{"ID#", ByID},
}

// Classify recognizes, in order: a "t=<code> rest" type prefix, a localized
// "label: rest" prefix, and the legacy "#name#" / "label#name#" notation.
// Anything else is a title search for the query as given.
func Classify(query string) Query {
	q := Query{Raw: query, Keyword: query, Intent: Title}
	s := strings.TrimSpace(query)
	if s == "" {
		return q
	}

	if m := typePrefix.FindStringSubmatch(s); m != nil {
		if code, err := strconv.Atoi(m[1]); err == nil {
			if intent, ok := IntentForCode(code); ok {
				q.Intent = intent
				if rest := strings.TrimSpace(m[2]); rest != "" {
					q.Keyword = rest
				}
				return q
			}
		}
	}

	for _, r := range prefixRules {
		if m := r.re.FindStringSubmatch(s); m != nil {
			q.Keyword, q.Intent = strings.TrimSpace(m[1]), r.intent
			return q
		}
	}

	if strings.HasPrefix(s, "#") && strings.HasSuffix(s, "#") {
		q.Keyword, q.Intent = strings.TrimSpace(strings.Trim(s, "#")), Author
		return q
	}
	for _, r := range tagRules {
		if len(s) > len(r.label) && strings.HasPrefix(s, r.label) && strings.HasSuffix(s, "#") {
			q.Keyword, q.Intent = strings.TrimSpace(s[len(r.label):len(s)-1]), r.intent
			return q
		}
	}
	return q
}

// AuthorQuery wraps author names in the bracketed author notation.
func AuthorQuery(authors []string) string {
	return "#" + strings.Join(authors, " ") + "#"
}
