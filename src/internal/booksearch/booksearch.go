// Package booksearch resolves a title/author query or a novel id into
// records: it classifies the query, searches the app API, then loads every
// candidate through the app detail endpoints with the web page as fallback.
package booksearch

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"novelmeta/src/internal/apperr"
	"novelmeta/src/internal/book"
	"novelmeta/src/internal/config"
	"novelmeta/src/internal/fallback"
	"novelmeta/src/internal/htmlbook"
	"novelmeta/src/internal/httpx"
	"novelmeta/src/internal/keyword"
	"novelmeta/src/internal/logging"
	"novelmeta/src/internal/payload"
	"novelmeta/src/internal/querytext"
	"novelmeta/src/internal/sanitize"
	"novelmeta/src/internal/schema"
)

// ErrAborted is returned by Identify when the abort signal fired before the
// batch completed. Partial results are discarded.
var ErrAborted = errors.New("booksearch: aborted")

var errAppDisabled = apperr.New(apperr.Transient, "detail", errors.New("app api disabled or no session id"))

// snippetLen bounds payload excerpts written to the log.
const snippetLen = 2000

// Request is one identify call. ID, when set, skips the search.
type Request struct {
	Title   string
	Authors []string
	ID      string
}

// CandidateRef is one search hit.
type CandidateRef struct {
	ID        string
	DetailURL string
}

// RefFor returns the candidate for a known novel id.
func RefFor(id string) CandidateRef {
	id = strings.TrimSpace(id)
	return CandidateRef{ID: id, DetailURL: schema.DetailURL(id)}
}

// AttemptHook observes every request the searcher makes. It may be called
// from several goroutines at once.
type AttemptHook func(pipeline string, a fallback.Attempt)

// Searcher runs searches and detail loads against the platform.
type Searcher struct {
	cfg   config.Config
	sid   string
	http  *resty.Client
	fc    *fallback.Client
	log   *zap.Logger
	loc   *time.Location
	sleep func(context.Context, time.Duration)
	hook  AttemptHook
}

type Option func(*Searcher)

// WithLocation sets the zone epoch publish dates are rendered in.
func WithLocation(loc *time.Location) Option { return func(s *Searcher) { s.loc = loc } }

// WithSleep replaces the politeness delay, for tests.
func WithSleep(fn func(context.Context, time.Duration)) Option {
	return func(s *Searcher) { s.sleep = fn }
}

// WithAttemptHook registers an observer for every request made.
func WithAttemptHook(h AttemptHook) Option { return func(s *Searcher) { s.hook = h } }

// New returns a Searcher. A nil client gets httpx.NewClient.
func New(cfg config.Config, client *resty.Client, log *zap.Logger, opts ...Option) *Searcher {
	log = logging.OrNop(log)
	if client == nil {
		client = httpx.NewClient(log)
	}
	cfg.Concurrency = config.ClampConcurrency(cfg.Concurrency)
	s := &Searcher{
		cfg:   cfg,
		sid:   cfg.SessionID(),
		http:  client,
		log:   log,
		sleep: sleepCtx,
	}
	for _, o := range opts {
		o(s)
	}
	s.fc = fallback.New(client, log)
	return s
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// withLogger returns a copy of s that logs to log.
func (s *Searcher) withLogger(log *zap.Logger) *Searcher {
	c := *s
	c.log = log
	c.fc = fallback.New(s.http, log)
	return &c
}

func (s *Searcher) headers() http.Header {
	return httpx.Headers(httpx.HeaderOptions{PreferApp: s.cfg.PreferAppAPI, Cookie: s.cfg.LoginCookie})
}

func (s *Searcher) observe(pipeline string, attempts []fallback.Attempt) {
	if s.hook == nil {
		return
	}
	for _, a := range attempts {
		s.hook(pipeline, a)
	}
}

type requestIDKey struct{}

// ContextWithRequestID makes Identify log under id instead of a fresh one.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func requestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok && id != "" {
		return id
	}
	return uuid.NewString()
}

// Identify resolves req into records. With an ID it loads that novel
// directly. Otherwise it searches the cleaned title (or the authors), then
// the author-only notation, then each title variation, stopping at the first
// search that yields candidates, and loads those candidates concurrently.
// abort is polled between completed loads; a nil channel never aborts.
func (s *Searcher) Identify(ctx context.Context, req Request, abort <-chan struct{}) ([]schema.Record, error) {
	s = s.withLogger(s.log.With(zap.String("request_id", requestID(ctx))))
	s.log.Info("identify", zap.String("title", req.Title), zap.Strings("authors", req.Authors), zap.String("id", req.ID))

	if id := strings.TrimSpace(req.ID); id != "" {
		s.log.Info("query by id", zap.String("novel_id", id))
		return s.loadAll(ctx, []CandidateRef{RefFor(id)}, abort)
	}
	if strings.TrimSpace(req.Title) == "" && len(nonEmpty(req.Authors)) == 0 {
		s.log.Warn("no title or authors provided")
		return nil, apperr.ErrNoQuery
	}

	title := querytext.Normalize(strings.TrimSpace(req.Title))
	var authors []string
	for _, a := range nonEmpty(req.Authors) {
		if n := querytext.Normalize(a); n != "" {
			authors = append(authors, n)
		}
	}

	refs := s.primarySearch(ctx, title, authors, req.Authors)
	if len(refs) == 0 && len(authors) > 0 {
		q := keyword.AuthorQuery(authors)
		s.log.Info("no results for title search, retrying author-only", zap.String("query", q))
		refs = s.timedSearch(ctx, q)
	}
	if len(refs) == 0 && title != "" {
		for _, v := range querytext.Variations(title) {
			if aborted(abort) {
				return nil, ErrAborted
			}
			s.log.Info("trying title variation", zap.String("variation", v))
			if refs = s.timedSearch(ctx, v); len(refs) > 0 {
				break
			}
		}
	}
	if aborted(abort) {
		return nil, ErrAborted
	}
	return s.loadAll(ctx, refs, abort)
}

func (s *Searcher) primarySearch(ctx context.Context, title string, authors, rawAuthors []string) []CandidateRef {
	q := title
	if q == "" {
		q = strings.Join(authors, " ")
	}
	if s.cfg.SearchWithAuthor && title != "" && len(rawAuthors) > 0 {
		q = strings.TrimSpace(q + " " + strings.Join(nonEmpty(rawAuthors), " "))
		s.log.Info("enhanced search query", zap.String("query", q))
	}
	return s.timedSearch(ctx, q)
}

func (s *Searcher) timedSearch(ctx context.Context, q string) []CandidateRef {
	start := time.Now()
	refs := s.Search(ctx, q)
	s.log.Info("search finished", zap.String("query", q), zap.Int("hits", len(refs)), zap.Duration("elapsed", time.Since(start)))
	return refs
}

// Search classifies query and runs it through the app search endpoints.
// Hits are de-duplicated and capped at the configured concurrency. Without a
// session id the app search cannot be used and nothing is returned.
func (s *Searcher) Search(ctx context.Context, query string) []CandidateRef {
	if strings.TrimSpace(query) == "" {
		return nil
	}
	q := keyword.Classify(query)
	s.log.Info("search query", zap.String("keyword", q.Keyword), zap.Int("type", q.Intent.Code()), zap.Stringer("intent", q.Intent))
	if s.sid == "" {
		s.log.Warn("app search needs a login cookie with a session id")
		return nil
	}
	res := fallback.Fetch(ctx, s.fc, s.searchPlan(q), s.acceptSearch)
	s.observe("search", res.Attempts)
	if !res.OK() {
		s.log.Info("app search returned no results", zap.String("keyword", q.Keyword))
		return nil
	}
	return res.Value
}

func (s *Searcher) acceptSearch(body string) ([]CandidateRef, error) {
	var ids []string
	if v, err := payload.Parse([]byte(body)); err == nil {
		for _, it := range payload.SearchList(v) {
			if id := payload.CandidateID(it); id != "" {
				ids = append(ids, id)
			}
		}
	}
	if len(ids) == 0 {
		ids = payload.ScanNovelIDs(body)
	}
	var refs []CandidateRef
	seen := map[string]bool{}
	for _, id := range ids {
		if seen[id] || len(refs) >= s.cfg.Concurrency {
			continue
		}
		seen[id] = true
		refs = append(refs, RefFor(id))
	}
	if len(refs) == 0 {
		return nil, fmt.Errorf("no books in response: %s", snippet(body, 200))
	}
	return refs, nil
}

// detailHit is an accepted app detail response.
type detailHit struct {
	rec  schema.Record
	base payload.Value
}

type step func(ctx context.Context, ref CandidateRef) (schema.Record, error)

// LoadBook loads one candidate: the app detail endpoints first, enriched
// with the extended info, then the web detail page.
func (s *Searcher) LoadBook(ctx context.Context, ref CandidateRef) (schema.Record, error) {
	if s.cfg.DelayEnabled {
		lo, hi := s.cfg.DelayRange()
		d := lo
		if hi > lo {
			d += rand.N(hi - lo)
		}
		s.sleep(ctx, d)
	}
	rec, err := firstOK(ctx, ref, s.loadFromApp, s.loadFromPage)
	if err != nil {
		return schema.Record{}, fmt.Errorf("load novel %s: %w", ref.ID, err)
	}
	sanitize.CleanRecord(&rec)
	return rec, nil
}

// firstOK runs steps in order and returns the first success.
func firstOK(ctx context.Context, ref CandidateRef, steps ...step) (schema.Record, error) {
	var errs []error
	for _, st := range steps {
		rec, err := st(ctx, ref)
		if err == nil {
			return rec, nil
		}
		errs = append(errs, err)
	}
	return schema.Record{}, errors.Join(errs...)
}

func (s *Searcher) loadFromApp(ctx context.Context, ref CandidateRef) (schema.Record, error) {
	if !s.cfg.PreferAppAPI || s.sid == "" {
		return schema.Record{}, errAppDisabled
	}
	start := time.Now()
	res := fallback.Fetch(ctx, s.fc, s.detailPlan(ref.ID), fallback.JSON(func(v payload.Value) (detailHit, error) {
		data := payload.DetailRecord(v, ref.ID)
		if data.Empty() {
			return detailHit{}, apperr.New(apperr.Schema, "detail", errors.New("no record in payload"))
		}
		rec, err := book.Build(data, ref.ID, s.loc)
		if err != nil {
			s.log.Warn("app detail missing title or authors", zap.String("novel_id", ref.ID), zap.String("payload", data.Snippet(snippetLen)))
			return detailHit{}, err
		}
		return detailHit{rec: rec, base: data}, nil
	}))
	s.observe("detail", res.Attempts)
	if !res.OK() {
		s.log.Info("app detail failed, falling back to web page", zap.String("novel_id", ref.ID))
		return schema.Record{}, apperr.New(apperr.Transient, "detail", res.Err())
	}
	rec := s.enrich(ctx, res.Value.rec, res.Value.base)
	s.log.Info("app api loaded book", zap.String("title", rec.Title), zap.Duration("elapsed", time.Since(start)))
	return rec, nil
}

// enrich merges the extended info into rec. Failures leave rec unchanged.
func (s *Searcher) enrich(ctx context.Context, rec schema.Record, base payload.Value) schema.Record {
	res := fallback.Fetch(ctx, s.fc, s.extendedPlan(rec.ID), fallback.JSON(func(v payload.Value) (payload.Value, error) {
		ext := payload.ExtendedRecord(v)
		if ext.Empty() {
			return payload.Value{}, errors.New("empty extended info")
		}
		return ext, nil
	}))
	s.observe("extended", res.Attempts)
	if !res.OK() {
		s.log.Debug("extended info unavailable", zap.String("novel_id", rec.ID),
			zap.Error(apperr.New(apperr.Enrichment, "enrich", res.Err())))
		return rec
	}
	return book.Enrich(rec, res.Value, base)
}

func (s *Searcher) loadFromPage(ctx context.Context, ref CandidateRef) (schema.Record, error) {
	pageURL := ref.DetailURL
	if pageURL == "" {
		pageURL = schema.DetailURL(ref.ID)
	}
	start := time.Now()
	resp, err := httpx.Get(ctx, s.http, pageURL, nil, s.headers(), s.cfg.PageTimeout)
	a := fallback.Attempt{URL: pageURL, Success: err == nil}
	if resp != nil {
		a.Status = resp.Status
	}
	if err != nil {
		a.Error = err.Error()
	}
	s.observe("page", []fallback.Attempt{a})
	if err != nil {
		s.log.Error("web load book failed", zap.String("url", pageURL), zap.Error(err))
		return schema.Record{}, apperr.New(apperr.Transient, "page", err)
	}
	s.log.Info("web loaded book", zap.String("url", pageURL), zap.Duration("elapsed", time.Since(start)))
	return htmlbook.Parse(pageURL, []byte(resp.Body), s.loc)
}

func nonEmpty(list []string) []string {
	var out []string
	for _, v := range list {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func snippet(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return strings.ToValidUTF8(s[:n], "")
}
