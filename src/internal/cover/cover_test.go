package cover

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"

	"novelmeta/src/internal/booksearch"
	"novelmeta/src/internal/config"
	"novelmeta/src/internal/httpx"
	"novelmeta/src/internal/schema"
)

var png = []byte("\x89PNG\r\n\x1a\nfake")

type fakeDoer struct {
	reqs    []*http.Request
	handler func(*http.Request) *http.Response
}

func (f *fakeDoer) Do(r *http.Request) (*http.Response, error) {
	f.reqs = append(f.reqs, r)
	return f.handler(r), nil
}

func resp(code int, body []byte) *http.Response {
	return &http.Response{StatusCode: code, Body: io.NopCloser(bytes.NewReader(body)), Header: http.Header{}}
}

func testConfig() config.Config {
	c := config.Default()
	c.DelayEnabled = false
	c.LoginCookie = "sid=S"
	return c
}

func client(fd *fakeDoer) *resty.Client { return resty.New().SetTransport(httpx.Transport(fd)) }

func TestDownload(t *testing.T) {
	fd := &fakeDoer{handler: func(*http.Request) *http.Response { return resp(200, png) }}
	d := New(testConfig(), client(fd), nil)
	data, err := d.Download(context.Background(), "https://i9-static.jjwxc.net/novelimage.php?novelid=1")
	require.NoError(t, err)
	require.Equal(t, png, data)
	require.Len(t, fd.reqs, 1)
	h := fd.reqs[0].Header
	require.Equal(t, "sid=S", h.Get("Cookie"))
	require.Equal(t, schema.SiteOrigin, h.Get("Referer"))
	require.Contains(t, []string{httpx.ChromeUA, httpx.AppUA}, h.Get("User-Agent"))
}

func TestDownloadDataURI(t *testing.T) {
	fd := &fakeDoer{handler: func(*http.Request) *http.Response { return resp(500, nil) }}
	d := New(testConfig(), client(fd), nil)

	data, err := d.Download(context.Background(), "data:image/png;base64,"+base64.StdEncoding.EncodeToString(png))
	require.NoError(t, err)
	require.Equal(t, png, data)

	gif := []byte("GIF89a!")
	data, err = d.Download(context.Background(), "data:image/gif;base64,"+base64.RawStdEncoding.EncodeToString(gif))
	require.NoError(t, err)
	require.Equal(t, gif, data)

	data, err = d.Download(context.Background(), "data:image/svg+xml,%3Csvg%2F%3E")
	require.NoError(t, err)
	require.Equal(t, "<svg/>", string(data))

	_, err = d.Download(context.Background(), "data:image/png;base64,@@@@")
	require.ErrorIs(t, err, ErrDataURI)
	_, err = d.Download(context.Background(), "data:image/png;base64")
	require.ErrorIs(t, err, ErrDataURI)
	_, err = d.Download(context.Background(), "data:image/png,")
	require.ErrorIs(t, err, ErrEmptyBody)

	require.Empty(t, fd.reqs)
}

func TestDownloadFailures(t *testing.T) {
	cases := []struct {
		name string
		code int
		body []byte
		url  string
		want error
	}{
		{"empty url", 200, png, " ", ErrNoCover},
		{"empty body", 200, nil, "https://x/c.jpg", ErrEmptyBody},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			fd := &fakeDoer{handler: func(*http.Request) *http.Response { return resp(c.code, c.body) }}
			_, err := New(testConfig(), client(fd), nil).Download(context.Background(), c.url)
			require.ErrorIs(t, err, c.want)
		})
	}

	fd := &fakeDoer{handler: func(*http.Request) *http.Response { return resp(404, nil) }}
	_, err := New(testConfig(), client(fd), nil).Download(context.Background(), "https://x/c.jpg")
	var se *httpx.StatusError
	require.True(t, errors.As(err, &se))
	require.Equal(t, 404, se.Status)
}

func TestForQuery(t *testing.T) {
	fd := &fakeDoer{handler: func(r *http.Request) *http.Response {
		switch {
		case r.URL.Host == "img.example":
			return resp(200, png)
		case r.URL.Query().Get("novelid") != "":
			id := r.URL.Query().Get("novelid")
			body := fmt.Sprintf(`{"code":0,"data":{"novelname":"书","authorname":"某","novelCover":"//img.example/%s.jpg"}}`, id)
			return resp(200, []byte(body))
		}
		return resp(404, nil)
	}}
	c := client(fd)
	s := booksearch.New(testConfig(), c, nil)
	data, rec, err := New(testConfig(), c, nil).ForQuery(context.Background(), s, booksearch.Request{ID: "77"})
	require.NoError(t, err)
	require.Equal(t, png, data)
	require.Equal(t, "https://img.example/77.jpg", rec.Cover)
	require.True(t, strings.HasSuffix(fd.reqs[len(fd.reqs)-1].URL.Path, "/77.jpg"))
}

func TestForQueryNoCover(t *testing.T) {
	fd := &fakeDoer{handler: func(r *http.Request) *http.Response {
		if r.URL.Host == "www.jjwxc.net" {
			return resp(200, []byte(`<h1 class="bookname">书</h1>`))
		}
		return resp(500, nil)
	}}
	c := client(fd)
	_, _, err := New(testConfig(), c, nil).ForQuery(context.Background(), booksearch.New(testConfig(), c, nil), booksearch.Request{ID: "1"})
	require.ErrorIs(t, err, ErrNoCover)
}
