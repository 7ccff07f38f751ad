package booksearch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"novelmeta/src/internal/apperr"
	"novelmeta/src/internal/config"
	"novelmeta/src/internal/fallback"
	"novelmeta/src/internal/httpx"
	"novelmeta/src/internal/schema"
)

// fakeDoer implements httpx.Doer for deterministic responses.
type fakeDoer struct {
	handler func(req *http.Request) *http.Response
}

func (f fakeDoer) Do(req *http.Request) (*http.Response, error) { return f.handler(req), nil }

func jsonResp(code int, s string) *http.Response {
	return &http.Response{StatusCode: code, Body: io.NopCloser(bytes.NewBufferString(s)), Header: http.Header{"Content-Type": {"application/json"}}}
}

func textResp(code int, s string) *http.Response {
	return &http.Response{StatusCode: code, Body: io.NopCloser(strings.NewReader(s)), Header: http.Header{"Content-Type": {"text/html; charset=utf-8"}}}
}

func testConfig() config.Config {
	c := config.Default()
	c.DelayEnabled = false
	c.LoginCookie = "foo=1; sid=S"
	return c
}

func newSearcher(cfg config.Config, h func(*http.Request) *http.Response, opts ...Option) *Searcher {
	client := resty.New().SetTransport(httpx.Transport(fakeDoer{handler: h}))
	return New(cfg, client, nil, opts...)
}

func detailJSON(id string) string {
	return fmt.Sprintf(`{"code":0,"data":{"book":{"novelid":"%s","novelname":"书%s","authorname":"作者%s","tags":"甜文"}}}`, id, id, id)
}

// platform routes requests the way the real hosts would answer them.
type platform struct {
	search   func(keyword, typ string) string
	searches atomic.Int32
	details  atomic.Int32
}

func (p *platform) handle(r *http.Request) *http.Response {
	q := r.URL.Query()
	switch {
	case strings.HasSuffix(r.URL.Path, "/searchV3"), strings.HasSuffix(r.URL.Path, "/androidapi/search"):
		p.searches.Add(1)
		if p.search == nil {
			return jsonResp(200, `{"code":0,"data":{"books":[]}}`)
		}
		return jsonResp(200, p.search(q.Get("keyword"), q.Get("type")))
	case r.URL.Host == "app-cdn.jjwxc.net" && q.Get("novelid") != "":
		p.details.Add(1)
		return jsonResp(200, detailJSON(q.Get("novelid")))
	case strings.HasSuffix(r.URL.Path, "/getnovelOtherInfo"):
		return jsonResp(200, `{"code":0,"data":{"novelClass":"原创-言情","isSign":"1"}}`)
	}
	return textResp(404, "")
}

func ids(recs []schema.Record) []string {
	var out []string
	for _, r := range recs {
		out = append(out, r.ID)
	}
	sort.Strings(out)
	return out
}

func TestIdentifyByIDSkipsSearch(t *testing.T) {
	p := &platform{}
	s := newSearcher(testConfig(), p.handle)
	recs, err := s.Identify(context.Background(), Request{ID: "42", Title: "ignored"}, nil)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Zero(t, p.searches.Load())
	rec := recs[0]
	require.Equal(t, "书42", rec.Title)
	require.Equal(t, []string{"作者42"}, rec.Authors)
	require.Equal(t, []string{"原创-言情", "甜文"}, rec.Tags)
	require.Contains(t, rec.Synopsis, "签约状态：已签约")
}

func TestIdentifySearchFanOut(t *testing.T) {
	p := &platform{search: func(kw, typ string) string {
		if kw == "书名" && typ == "1" {
			return `{"code":0,"data":{"books":[{"novelid":"1"},{"bookId":"2"},{"novelid":"1"}]}}`
		}
		return `{}`
	}}
	s := newSearcher(testConfig(), p.handle)
	recs, err := s.Identify(context.Background(), Request{Title: "书名(完结)"}, nil)
	require.NoError(t, err)
	if diff := cmp.Diff([]string{"1", "2"}, ids(recs)); diff != "" {
		t.Fatalf("ids (-want +got):\n%s", diff)
	}
	require.EqualValues(t, 2, p.details.Load())
}

func TestIdentifyAuthorRetry(t *testing.T) {
	var seen []string
	var mu sync.Mutex
	p := &platform{search: func(kw, typ string) string {
		mu.Lock()
		seen = append(seen, typ+":"+kw)
		mu.Unlock()
		if kw == "作者甲" && typ == "2" {
			return `{"list":[{"id":7}]}`
		}
		return `{"code":0,"data":{}}`
	}}
	s := newSearcher(testConfig(), p.handle)
	recs, err := s.Identify(context.Background(), Request{Title: "无结果", Authors: []string{"作者甲"}}, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"7"}, ids(recs))
	// both search endpoints are tried for the title before the author retry
	require.Equal(t, []string{"1:无结果", "1:无结果", "2:作者甲"}, seen)
}

func TestIdentifyVariations(t *testing.T) {
	p := &platform{search: func(kw, typ string) string {
		if kw == "总有老师要请家长" {
			return `[{"novelid":"9"}]`
		}
		return `{}`
	}}
	s := newSearcher(testConfig(), p.handle)
	recs, err := s.Identify(context.Background(), Request{Title: "总有老师要请家长完结"}, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"9"}, ids(recs))
}

func TestIdentifyNoQuery(t *testing.T) {
	s := newSearcher(testConfig(), (&platform{}).handle)
	_, err := s.Identify(context.Background(), Request{Authors: []string{" "}}, nil)
	require.ErrorIs(t, err, apperr.ErrNoQuery)
	require.Equal(t, apperr.Input, apperr.KindOf(err))
}

func TestIdentifyEmptyResult(t *testing.T) {
	p := &platform{}
	s := newSearcher(testConfig(), p.handle)
	recs, err := s.Identify(context.Background(), Request{Title: "不存在"}, nil)
	require.NoError(t, err)
	require.Empty(t, recs)
	require.Positive(t, p.searches.Load())
}

func TestLoadBookFallsBackToPage(t *testing.T) {
	var mu sync.Mutex
	pipelines := map[string]int{}
	hook := func(pipeline string, a fallback.Attempt) {
		mu.Lock()
		pipelines[pipeline]++
		mu.Unlock()
	}
	s := newSearcher(testConfig(), func(r *http.Request) *http.Response {
		if r.URL.Host == "www.jjwxc.net" {
			return textResp(200, `<div class="novelname"><h1>网页书名</h1></div><a class="authorname">网页作者</a>`)
		}
		// every app detail endpoint answers without title/author
		return jsonResp(200, `{"code":0,"data":{"foo":1}}`)
	}, WithAttemptHook(hook))

	rec, err := s.LoadBook(context.Background(), RefFor("5"))
	require.NoError(t, err)
	require.Equal(t, "网页书名", rec.Title)
	require.Equal(t, []string{"网页作者"}, rec.Authors)
	require.Equal(t, 12, pipelines["detail"])
	require.Equal(t, 1, pipelines["page"])
	require.Zero(t, pipelines["extended"])
}

func TestLoadBookAllFail(t *testing.T) {
	s := newSearcher(testConfig(), func(r *http.Request) *http.Response { return textResp(500, "boom") })
	_, err := s.LoadBook(context.Background(), RefFor("5"))
	require.Error(t, err)
	var se *httpx.StatusError
	require.True(t, errors.As(err, &se))
}

func TestNoSessionUsesPageOnly(t *testing.T) {
	cfg := testConfig()
	cfg.LoginCookie = ""
	var app atomic.Int32
	s := newSearcher(cfg, func(r *http.Request) *http.Response {
		if r.URL.Host != "www.jjwxc.net" {
			app.Add(1)
			return jsonResp(200, detailJSON("1"))
		}
		return textResp(200, `<h1 class="bookname">页</h1>`)
	})
	require.Nil(t, s.Search(context.Background(), "书"))
	recs, err := s.Identify(context.Background(), Request{ID: "3"}, nil)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, "页", recs[0].Title)
	require.Empty(t, recs[0].Authors)
	require.Zero(t, app.Load())
}

func TestLoadAllRespectsConcurrency(t *testing.T) {
	cfg := testConfig()
	cfg.Concurrency = 3
	var inFlight, peak atomic.Int32
	p := &platform{}
	s := newSearcher(cfg, func(r *http.Request) *http.Response {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			old := peak.Load()
			if n <= old || peak.CompareAndSwap(old, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		return p.handle(r)
	})
	var refs []CandidateRef
	for i := 0; i < 10; i++ {
		refs = append(refs, RefFor(fmt.Sprint(i)))
	}
	recs, err := s.loadAll(context.Background(), refs, nil)
	require.NoError(t, err)
	require.Len(t, recs, 10)
	require.LessOrEqual(t, peak.Load(), int32(3))
}

func TestIdentifyAborted(t *testing.T) {
	abort := make(chan struct{})
	close(abort)
	s := newSearcher(testConfig(), (&platform{}).handle)
	recs, err := s.Identify(context.Background(), Request{ID: "1"}, abort)
	require.ErrorIs(t, err, ErrAborted)
	require.Nil(t, recs)
}

func TestIdentifyAbortedMidBatch(t *testing.T) {
	cfg := testConfig()
	cfg.Concurrency = 2
	abort := make(chan struct{})
	var once sync.Once
	p := &platform{}
	s := newSearcher(cfg, func(r *http.Request) *http.Response {
		time.Sleep(10 * time.Millisecond)
		out := p.handle(r)
		if p.details.Load() >= 2 {
			once.Do(func() { close(abort) })
		}
		return out
	})
	var refs []CandidateRef
	for i := 0; i < 10; i++ {
		refs = append(refs, RefFor(fmt.Sprint(i)))
	}

	type outcome struct {
		recs []schema.Record
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		recs, err := s.loadAll(context.Background(), refs, abort)
		done <- outcome{recs, err}
	}()
	select {
	case o := <-done:
		require.ErrorIs(t, o.err, ErrAborted)
		require.Nil(t, o.recs)
	case <-time.After(5 * time.Second):
		t.Fatalf("loadAll did not return after abort")
	}
	require.Less(t, p.details.Load(), int32(10))
}

func TestIdentifyUsesContextRequestID(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	client := resty.New().SetTransport(httpx.Transport(fakeDoer{handler: (&platform{}).handle}))
	s := New(testConfig(), client, zap.New(core))

	ctx := ContextWithRequestID(context.Background(), "req-1")
	_, err := s.Identify(ctx, Request{}, nil)
	require.ErrorIs(t, err, apperr.ErrNoQuery)
	entries := logs.FilterMessage("no title or authors provided").All()
	require.Len(t, entries, 1)
	require.Equal(t, "req-1", entries[0].ContextMap()["request_id"])

	_, _ = s.Identify(context.Background(), Request{}, nil)
	entries = logs.FilterMessage("no title or authors provided").All()
	require.Len(t, entries, 2)
	require.NotEqual(t, "req-1", entries[1].ContextMap()["request_id"])
	require.NotEmpty(t, entries[1].ContextMap()["request_id"])
}

func TestAcceptSearch(t *testing.T) {
	cfg := testConfig()
	cfg.Concurrency = 2
	s := newSearcher(cfg, (&platform{}).handle)

	refs, err := s.acceptSearch(`<script>var a = {novelid: "5"}; b = "novelid=5"; c = novelid=6; d = novelid=7</script>`)
	require.NoError(t, err)
	require.Equal(t, []CandidateRef{RefFor("5"), RefFor("6")}, refs)

	_, err = s.acceptSearch(`{"code":0,"data":{"books":[{"bookname":"no id"}]}}`)
	require.Error(t, err)
}

func TestDelayUsesConfiguredRange(t *testing.T) {
	cfg := testConfig()
	cfg.DelayEnabled = true
	var got []time.Duration
	var mu sync.Mutex
	s := newSearcher(cfg, (&platform{}).handle, WithSleep(func(_ context.Context, d time.Duration) {
		mu.Lock()
		got = append(got, d)
		mu.Unlock()
	}))
	_, err := s.LoadBook(context.Background(), RefFor("1"))
	require.NoError(t, err)
	require.Len(t, got, 1)
	lo, hi := cfg.DelayRange()
	require.GreaterOrEqual(t, got[0], lo)
	require.Less(t, got[0], hi)
}
