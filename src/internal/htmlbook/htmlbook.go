// Package htmlbook extracts a record from the platform's rendered detail
// page. It is the last resort when every JSON endpoint failed.
package htmlbook

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"novelmeta/src/internal/apperr"
	"novelmeta/src/internal/dates"
	"novelmeta/src/internal/sanitize"
	"novelmeta/src/internal/schema"
	"novelmeta/src/internal/stringsx"
)

var (
	// ErrNoID means the page URL does not name a novel.
	ErrNoID = &apperr.Error{Kind: apperr.Input, Op: "htmlbook", Err: errors.New("no novelid in page url")}
	// ErrNoTitle means the page parsed but no title was found.
	ErrNoTitle = &apperr.Error{Kind: apperr.Schema, Op: "htmlbook", Err: errors.New("no title on page")}
)

var novelIDParam = regexp.MustCompile(`novelid=(\d+)`)

const (
	selTitle    = "h1[class*='bookname'], div[class*='novelname'] > h1"
	selAuthor   = "a[class*='author'], div[class*='authorinfo'] a[href*='authorid']"
	selCover    = "div[class*='bookimg'] img, div[class*='novelimg'] img"
	selSynopsis = "div[class*='intro'], div#novelintro"
	selTags     = "div[class*='tag'] a, div[class*='classify'] a"
	selInfoSpan = "div[class*='infobox'] span"
)

var pubMarkers = []string{"连载时间", "发表时间"}

// NovelID returns the novel id named by a detail page URL, or "".
func NovelID(pageURL string) string {
	if m := novelIDParam.FindStringSubmatch(pageURL); m != nil {
		return m[1]
	}
	return ""
}

// Parse builds a record from a detail page. The id comes from pageURL and
// the record needs a title; authors may be empty.
func Parse(pageURL string, body []byte, loc *time.Location) (schema.Record, error) {
	id := NovelID(pageURL)
	if id == "" {
		return schema.Record{}, ErrNoID
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return schema.Record{}, fmt.Errorf("parse page %s: %w", pageURL, err)
	}

	rec := schema.NewRecord(id)
	rec.URL = pageURL
	rec.Title = firstText(doc.Find(selTitle))
	if rec.Title == "" {
		return schema.Record{}, ErrNoTitle
	}
	if a := firstText(doc.Find(selAuthor)); a != "" {
		rec.Authors = []string{a}
	}
	if src, ok := doc.Find(selCover).First().Attr("src"); ok {
		rec.Cover = sanitize.CoverURL(src, schema.SiteOrigin)
	}

	var intro []string
	doc.Find(selSynopsis).Each(func(_ int, s *goquery.Selection) {
		if t := nodeText(s); t != "" {
			intro = append(intro, t)
		}
	})
	rec.Synopsis = strings.Join(intro, "\n")

	doc.Find(selTags).Each(func(_ int, s *goquery.Selection) {
		rec.Tags = stringsx.AppendUnique(rec.Tags, nodeText(s))
	})

	rec.Published = dates.Published(publishHint(doc), loc)
	return rec, nil
}

// nodeText joins the descendant text nodes of every node in s with spaces
// and collapses whitespace.
func nodeText(s *goquery.Selection) string {
	var parts []string
	for _, n := range s.Nodes {
		collectText(n, &parts)
	}
	return stringsx.CollapseSpace(strings.Join(parts, " "))
}

func collectText(n *html.Node, out *[]string) {
	if n == nil {
		return
	}
	if n.Type == html.TextNode {
		*out = append(*out, n.Data)
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, out)
	}
}

// firstText is the text of the first node in s that has any.
func firstText(s *goquery.Selection) string {
	for i := range s.Nodes {
		if t := nodeText(s.Eq(i)); t != "" {
			return t
		}
	}
	return ""
}

// publishHint finds the info span labelled with a publish marker and
// returns the text after it: its tail text, else the next element's text.
func publishHint(doc *goquery.Document) string {
	hint := ""
	doc.Find(selInfoSpan).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		n := s.Get(0)
		if !hasMarker(ownText(n)) {
			return true
		}
		if n.NextSibling != nil && n.NextSibling.Type == html.TextNode {
			if t := trimLabel(n.NextSibling.Data); t != "" {
				hint = t
				return false
			}
		}
		if t := trimLabel(nodeText(s.Next())); t != "" {
			hint = t
			return false
		}
		return true
	})
	return hint
}

func ownText(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return b.String()
}

func hasMarker(s string) bool {
	for _, m := range pubMarkers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

func trimLabel(s string) string {
	return strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(s), ":："))
}
