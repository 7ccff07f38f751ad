package sanitize

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"novelmeta/src/internal/schema"
	"novelmeta/src/internal/stringsx"
)

// CleanString trims and removes ASCII control characters except tab/newline/carriage
// return up to max runes (if max <= 0, no truncation).
func CleanString(s string, max int) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	var b strings.Builder
	n := 0
	for _, r := range s {
		if r == '\n' || r == '\t' || r == '\r' || (r >= 0x20 && r != 0x7f) {
			b.WriteRune(r)
			n++
			if max > 0 && n >= max {
				break
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// CleanURL returns a validated http/https URL or empty string.
func CleanURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	u.Path = strings.ReplaceAll(u.Path, " ", "%20")
	return u.String()
}

// CoverURL resolves a cover reference against origin. Protocol-relative values
// get https, root-relative values get the origin prepended. The result is kept
// only when it is an absolute http(s) URL or a data URI.
func CoverURL(raw, origin string) string {
	raw = strings.TrimSpace(raw)
	switch {
	case raw == "":
		return ""
	case strings.HasPrefix(raw, "data:"):
		return raw
	case strings.HasPrefix(raw, "//"):
		raw = "https:" + raw
	case strings.HasPrefix(raw, "/"):
		raw = strings.TrimRight(origin, "/") + raw
	}
	return CleanURL(raw)
}

var tagPattern = regexp.MustCompile(`<[^>]+>`)

// HTMLToText renders an HTML fragment as plain text with whitespace collapsed.
func HTMLToText(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	if !strings.ContainsAny(s, "<&") {
		return stringsx.CollapseSpace(s)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return stringsx.CollapseSpace(tagPattern.ReplaceAllString(s, ""))
	}
	return stringsx.CollapseSpace(doc.Text())
}

// CleanRecord applies conservative sanitization to the free-text fields of r.
func CleanRecord(r *schema.Record) {
	if r == nil {
		return
	}
	r.ID = CleanString(r.ID, 32)
	r.Title = CleanString(r.Title, 512)
	r.URL = CleanURL(r.URL)
	r.Status = CleanString(r.Status, 64)
	r.WordCount = CleanString(r.WordCount, 64)
	r.Published = CleanString(r.Published, 32)
	r.ISBN = CleanString(r.ISBN, 32)
	r.Series = CleanString(r.Series, 256)
	authors := make([]string, 0, len(r.Authors))
	for _, a := range r.Authors {
		authors = append(authors, CleanString(a, 128))
	}
	r.Authors = stringsx.AppendUnique(nil, authors...)
	tags := make([]string, 0, len(r.Tags))
	for _, t := range r.Tags {
		tags = append(tags, CleanString(t, 64))
	}
	r.Tags = stringsx.AppendUnique(nil, tags...)
}
