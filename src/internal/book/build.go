package book

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"novelmeta/src/internal/apperr"
	"novelmeta/src/internal/dates"
	"novelmeta/src/internal/names"
	"novelmeta/src/internal/payload"
	"novelmeta/src/internal/sanitize"
	"novelmeta/src/internal/schema"
	"novelmeta/src/internal/stringsx"
)

// ErrIncomplete marks a detail payload that did not yield both a title and
// an author.
var ErrIncomplete = &apperr.Error{Kind: apperr.Schema, Op: "build", Err: errors.New("record is missing title or authors")}

func pick(v payload.Value, f Field) payload.Value { return payload.Pick(v, aliases[f]...) }

func pickText(v payload.Value, f Field) string { return strings.TrimSpace(pick(v, f).Text()) }

// Build assembles a record for novel id from an unwrapped detail payload.
// Epoch timestamps are rendered in loc (nil means local time). The record is
// returned even when it fails the acceptance gate, together with an error
// wrapping ErrIncomplete.
func Build(v payload.Value, id string, loc *time.Location) (schema.Record, error) {
	rec := schema.NewRecord(id)

	rec.Title = sanitize.HTMLToText(pick(v, Title).Text())
	rec.Authors = authors(pick(v, Authors))
	rec.Cover = cover(v)

	intro := pick(v, Intro).Text()
	rec.SynopsisHTML = strings.TrimSpace(intro)
	rec.Synopsis = sanitize.HTMLToText(intro)

	rec.Tags = tags(pick(v, Tags))
	rec.Tags = stringsx.Prepend(rec.Tags, pickText(v, Category))

	rec.Published = dates.Published(pickText(v, Created), loc)
	rec.Status = pickText(v, Status)
	rec.WordCount = pickText(v, WordCount)
	rec.Chapters, _ = pick(v, Chapters).Int()
	rec.VIPStart, _ = pick(v, VIPStart).Int()
	if f, ok := pick(v, Rating).Float(); ok {
		rec.Rating = &f
	}
	rec.ISBN = pickText(v, ISBN)
	rec.Series = pickText(v, Series)

	if err := rec.Validate(); err != nil {
		return rec, fmt.Errorf("novel %s: %w: %w", rec.ID, ErrIncomplete, err)
	}
	return rec, nil
}

func authors(v payload.Value) []string {
	switch v.Kind() {
	case payload.List:
		parts := make([]string, 0, len(v.Items()))
		for _, it := range v.Items() {
			parts = append(parts, sanitize.HTMLToText(it.Text()))
		}
		return names.JoinAuthors(parts)
	default:
		return names.SplitAuthors(sanitize.HTMLToText(v.Text()))
	}
}

func cover(v payload.Value) string {
	for _, keys := range coverTiers {
		if raw := strings.TrimSpace(payload.Pick(v, keys...).Text()); raw != "" {
			return sanitize.CoverURL(raw, schema.SiteOrigin)
		}
	}
	return ""
}

func tags(v payload.Value) []string {
	if v.Kind() == payload.List {
		return stringsx.AppendUnique(nil, v.Strings()...)
	}
	return stringsx.AppendUnique(nil, strings.Split(v.Text(), ",")...)
}
