// Package fallback walks an ordered list of endpoint and parameter-name
// combinations and keeps the first response an acceptor is happy with.
package fallback

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"novelmeta/src/internal/httpx"
	"novelmeta/src/internal/payload"
)

// ErrExhausted is returned by Result.Err when no combination was accepted.
var ErrExhausted = errors.New("fallback: all endpoints exhausted")

// Endpoint is one URL with the parameters specific to it.
type Endpoint struct {
	URL    string
	Params url.Values
}

// Plan describes one pipeline: the endpoints in priority order and the
// spellings under which the looked-up value may be sent.
type Plan struct {
	// Name labels log lines, e.g. "search" or "detail".
	Name      string
	Endpoints []Endpoint
	// ParamNames are tried in order for every endpoint. When empty each
	// endpoint is requested once with its own parameters.
	ParamNames []string
	Value      string
	// Extra parameters are added after the value parameter.
	Extra   url.Values
	Header  http.Header
	Timeout time.Duration
}

// Attempt captures a single request outcome.
type Attempt struct {
	URL     string
	Status  int
	Success bool
	Error   string
}

// Result carries the accepted value and the full attempt trace.
type Result[T any] struct {
	Value    T
	URL      string
	Attempts []Attempt
	ok       bool
}

// OK reports whether some combination was accepted.
func (r Result[T]) OK() bool { return r.ok }

// Err is nil when OK, otherwise ErrExhausted.
func (r Result[T]) Err() error {
	if r.ok {
		return nil
	}
	return ErrExhausted
}

// Tried lists every URL requested, in order.
func (r Result[T]) Tried() []string {
	out := make([]string, 0, len(r.Attempts))
	for _, a := range r.Attempts {
		out = append(out, a.URL)
	}
	return out
}

// Accept validates a response body and converts it into a value. An error
// moves the walk on to the next combination.
type Accept[T any] func(body string) (T, error)

// JSON adapts a payload-level acceptor; bodies that do not parse are
// rejected.
func JSON[T any](fn func(payload.Value) (T, error)) Accept[T] {
	return func(body string) (T, error) {
		v, err := payload.Parse([]byte(body))
		if err != nil {
			var zero T
			return zero, err
		}
		return fn(v)
	}
}

// Client issues the requests of a Plan.
type Client struct {
	http *resty.Client
	log  *zap.Logger
}

// New returns a Client over a resty client.
func New(c *resty.Client, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{http: c, log: log}
}

type combo struct {
	url   string
	query url.Values
}

func (p Plan) combos() []combo {
	names := p.ParamNames
	if len(names) == 0 {
		names = []string{""}
	}
	out := make([]combo, 0, len(p.Endpoints)*len(names))
	for _, ep := range p.Endpoints {
		for _, name := range names {
			q := url.Values{}
			if name != "" {
				q.Set(name, p.Value)
			}
			for k, vs := range ep.Params {
				q[k] = append([]string(nil), vs...)
			}
			for k, vs := range p.Extra {
				if _, ok := q[k]; !ok {
					q[k] = append([]string(nil), vs...)
				}
			}
			out = append(out, combo{url: ep.URL, query: q})
		}
	}
	return out
}

// Fetch requests each combination of plan in order and returns the first
// value accept takes. Failures are recorded as attempts and never returned.
func Fetch[T any](ctx context.Context, c *Client, plan Plan, accept Accept[T]) Result[T] {
	var res Result[T]
	for _, cb := range plan.combos() {
		if ctx.Err() != nil {
			res.Attempts = append(res.Attempts, Attempt{URL: display(cb), Error: ctx.Err().Error()})
			break
		}
		a := Attempt{URL: display(cb)}
		resp, err := httpx.Get(ctx, c.http, cb.url, cb.query, plan.Header, plan.Timeout)
		if resp != nil {
			a.Status = resp.Status
		}
		if err != nil {
			a.Error = err.Error()
			res.Attempts = append(res.Attempts, a)
			c.log.Debug("request failed", zap.String("pipeline", plan.Name), zap.String("url", a.URL), zap.Error(err))
			continue
		}
		v, err := accept(resp.Body)
		if err != nil {
			a.Error = err.Error()
			res.Attempts = append(res.Attempts, a)
			c.log.Debug("response rejected", zap.String("pipeline", plan.Name), zap.String("url", a.URL), zap.Error(err),
				zap.String("snippet", snippet(resp.Body, 200)))
			continue
		}
		a.Success = true
		res.Attempts = append(res.Attempts, a)
		res.Value, res.URL, res.ok = v, a.URL, true
		return res
	}
	if len(res.Attempts) > 0 {
		c.log.Debug("all endpoints exhausted", zap.String("pipeline", plan.Name), zap.String("trace", Describe(res.Attempts)))
	}
	return res
}

func display(cb combo) string {
	if len(cb.query) == 0 {
		return cb.url
	}
	return cb.url + "?" + cb.query.Encode()
}

func snippet(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return strings.ToValidUTF8(s[:n], "")
}

// Describe formats the attempt trace for diagnostics.
func Describe(attempts []Attempt) string {
	var b strings.Builder
	for i, a := range attempts {
		if i > 0 {
			b.WriteString("; ")
		}
		switch {
		case a.Success:
			fmt.Fprintf(&b, "%s ok", a.URL)
		default:
			fmt.Fprintf(&b, "%s failed: %s", a.URL, a.Error)
		}
	}
	return b.String()
}
