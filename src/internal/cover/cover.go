// Package cover downloads cover images with the platform's cookie and
// header conventions.
package cover

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"novelmeta/src/internal/booksearch"
	"novelmeta/src/internal/config"
	"novelmeta/src/internal/httpx"
	"novelmeta/src/internal/logging"
	"novelmeta/src/internal/schema"
)

var (
	ErrNoCover   = errors.New("no cover found")
	ErrEmptyBody = errors.New("cover response was empty")
	ErrDataURI   = errors.New("malformed data uri")
)

// Downloader fetches cover bytes.
type Downloader struct {
	cfg  config.Config
	http *resty.Client
	log  *zap.Logger
}

// New returns a Downloader. A nil client gets httpx.NewClient.
func New(cfg config.Config, client *resty.Client, log *zap.Logger) *Downloader {
	log = logging.OrNop(log)
	if client == nil {
		client = httpx.NewClient(log)
	}
	return &Downloader{cfg: cfg, http: client, log: log}
}

func (d *Downloader) headers() http.Header {
	h := http.Header{}
	h.Set("User-Agent", httpx.RandomUA())
	h.Set("Referer", schema.SiteOrigin)
	h.Set("Accept", "image/avif,image/webp,image/*,*/*;q=0.8")
	if c := strings.TrimSpace(d.cfg.LoginCookie); c != "" {
		h.Set("Cookie", c)
	}
	return h
}

// Download fetches the image at rawURL.
func (d *Downloader) Download(ctx context.Context, rawURL string) ([]byte, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, ErrNoCover
	}
	if strings.HasPrefix(rawURL, "data:") {
		data, err := decodeDataURI(rawURL)
		if err != nil {
			return nil, err
		}
		if len(data) == 0 {
			return nil, ErrEmptyBody
		}
		return data, nil
	}
	d.log.Info("downloading cover", zap.String("url", rawURL))
	data, ctype, err := httpx.GetBytes(ctx, d.http, rawURL, d.headers(), d.cfg.PageTimeout)
	if err != nil {
		d.log.Error("cover download failed", zap.String("url", rawURL), zap.Error(err))
		return nil, fmt.Errorf("download cover %s: %w", rawURL, err)
	}
	if len(data) == 0 {
		return nil, ErrEmptyBody
	}
	d.log.Debug("cover downloaded", zap.Int("bytes", len(data)), zap.String("content_type", ctype))
	return data, nil
}

// decodeDataURI returns the payload of a data: URI, base64 or percent-encoded.
func decodeDataURI(raw string) ([]byte, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(raw, "data:"), ",")
	if !ok {
		return nil, ErrDataURI
	}
	text, err := url.PathUnescape(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDataURI, err)
	}
	if !strings.HasSuffix(strings.ToLower(meta), ";base64") {
		return []byte(text), nil
	}
	text = strings.Join(strings.Fields(text), "")
	enc := base64.StdEncoding
	if !strings.HasSuffix(text, "=") && len(text)%4 != 0 {
		enc = base64.RawStdEncoding
	}
	data, err := enc.DecodeString(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDataURI, err)
	}
	return data, nil
}

// ForQuery identifies req and downloads the cover of the first record that
// has one. The record the cover belongs to is returned with it.
func (d *Downloader) ForQuery(ctx context.Context, s *booksearch.Searcher, req booksearch.Request) ([]byte, schema.Record, error) {
	recs, err := s.Identify(ctx, req, ctx.Done())
	if err != nil {
		return nil, schema.Record{}, err
	}
	for _, r := range recs {
		if r.Cover == "" {
			continue
		}
		data, err := d.Download(ctx, r.Cover)
		return data, r, err
	}
	return nil, schema.Record{}, ErrNoCover
}
