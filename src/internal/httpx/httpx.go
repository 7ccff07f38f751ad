package httpx

import (
	"math/rand/v2"
	"net/http"
)

// Doer is the minimal HTTP client interface used across packages.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ChromeUA is a consistent, modern desktop Chrome User-Agent.
const ChromeUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36"

// AppUA is the user agent of the platform's Android app.
const AppUA = "JJWXC-Android/9.9.9 (Android; 10; SM-G973F)"

// PickUA maps a coin value in [0,1) to one of the two user agents.
func PickUA(coin float64) string {
	if coin > 0.5 {
		return ChromeUA
	}
	return AppUA
}

// RandomUA flips a coin between the desktop and the app user agent.
func RandomUA() string { return PickUA(rand.Float64()) }

// Transport adapts a Doer to an http.RoundTripper so resty clients can be
// pointed at fakes in tests.
func Transport(d Doer) http.RoundTripper { return doerTransport{d} }

type doerTransport struct{ d Doer }

func (t doerTransport) RoundTrip(req *http.Request) (*http.Response, error) { return t.d.Do(req) }
