// Package book turns detail payloads into schema.Record values and merges
// the extended-info payload into them.
package book

// Field names a record field looked up in a detail payload.
type Field int

const (
	Title Field = iota
	Authors
	Intro
	Category
	Tags
	Created
	Status
	WordCount
	Chapters
	VIPStart
	Rating
	ISBN
	Series
)

// aliases lists the key spellings each field has used across API versions,
// most specific first.
var aliases = map[Field][]string{
	Title:     {"bookname", "bookName", "book_name", "novelname", "novelName", "name", "title", "novelname_format", "novelname_format_html"},
	Authors:   {"authorname", "author", "authorName", "authors", "writer", "writerName", "author_name", "authorNames"},
	Intro:     {"intro", "novelintroshort", "novelintro", "description", "desc"},
	Category:  {"category"},
	Tags:      {"tags"},
	Created:   {"createtime", "createTime", "publish_time"},
	Status:    {"status"},
	WordCount: {"wordcount", "wordCount"},
	Chapters:  {"chapterCount", "chaptercount", "chapters"},
	VIPStart:  {"vip_start", "vipStart", "vipstart"},
	Rating:    {"rating"},
	ISBN:      {"isbn"},
	Series:    {"series"},
}

// coverTiers are tried in order. The true cover fields come first and the
// platform's default placeholder image last.
var coverTiers = [][]string{
	{"novelCover"},
	{"originalCover"},
	{"coverimg", "cover", "cover_img", "bookimg", "coverUrl", "cover_url"},
	{"localImg"},
}
