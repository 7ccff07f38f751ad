package schema

import (
	"errors"
	"fmt"
	"strings"
)

// Platform constants shared by every stage that builds or links records.
const (
	ProviderID   = "jinjiang_enhanced"
	ProviderName = "Jinjiang Books"
	SiteOrigin   = "https://www.jjwxc.net/"
	MobileOrigin = "https://m.jjwxc.net/"
	Publisher    = "晋江文学城"
	Language     = "zh_CN"
)

// DetailPageURL is the web detail page pattern; %s is the novel id.
const DetailPageURL = "https://www.jjwxc.net/onebook.php?novelid=%s"

var (
	ErrMissingTitle   = errors.New("title is required")
	ErrMissingAuthors = errors.New("at least one author is required")
)

// Record is the canonical book record handed to callers and exported as YAML.
type Record struct {
	ID           string   `yaml:"id" json:"id"`
	Title        string   `yaml:"title" json:"title"`
	Authors      []string `yaml:"authors" json:"authors"`
	URL          string   `yaml:"url,omitempty" json:"url,omitempty"`
	Cover        string   `yaml:"cover,omitempty" json:"cover,omitempty"`
	Synopsis     string   `yaml:"synopsis,omitempty" json:"synopsis,omitempty"`
	SynopsisHTML string   `yaml:"synopsis_html,omitempty" json:"synopsis_html,omitempty"`
	Comments     string   `yaml:"comments,omitempty" json:"comments,omitempty"`
	Tags         []string `yaml:"tags,omitempty" json:"tags,omitempty"`
	Published    string   `yaml:"published,omitempty" json:"published,omitempty"`
	Status       string   `yaml:"status,omitempty" json:"status,omitempty"`
	WordCount    string   `yaml:"word_count,omitempty" json:"word_count,omitempty"`
	Chapters     int      `yaml:"chapters,omitempty" json:"chapters,omitempty"`
	VIPStart     int      `yaml:"vip_start,omitempty" json:"vip_start,omitempty"`
	Rating       *float64 `yaml:"rating,omitempty" json:"rating,omitempty"`
	ISBN         string   `yaml:"isbn,omitempty" json:"isbn,omitempty"`
	Series       string   `yaml:"series,omitempty" json:"series,omitempty"`
	Publisher    string   `yaml:"publisher,omitempty" json:"publisher,omitempty"`
	Language     string   `yaml:"language,omitempty" json:"language,omitempty"`
	Source       Source   `yaml:"source" json:"source"`
}

// Source describes where a record came from.
type Source struct {
	ID          string `yaml:"id" json:"id"`
	Description string `yaml:"description" json:"description"`
	Link        string `yaml:"link" json:"link"`
}

// JinjiangSource is the descriptor stamped on every record.
var JinjiangSource = Source{ID: ProviderID, Description: ProviderName, Link: SiteOrigin}

// NewRecord returns a record for id with the platform defaults filled in.
func NewRecord(id string) Record {
	id = strings.TrimSpace(id)
	r := Record{
		ID:        id,
		Publisher: Publisher,
		Language:  Language,
		Source:    JinjiangSource,
	}
	if id != "" {
		r.URL = DetailURL(id)
	}
	return r
}

// DetailURL returns the web detail page for a novel id.
func DetailURL(id string) string { return fmt.Sprintf(DetailPageURL, strings.TrimSpace(id)) }

// Validate is the acceptance gate: a usable record has a title and at least one author.
func (r Record) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return ErrMissingTitle
	}
	if len(r.Authors) == 0 {
		return ErrMissingAuthors
	}
	return nil
}
