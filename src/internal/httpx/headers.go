package httpx

import (
	"net/http"
	"strings"

	"novelmeta/src/internal/schema"
)

const (
	acceptAll      = "application/json, text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
	acceptEncoding = "gzip, deflate"
)

// HeaderOptions selects the per-request platform headers.
type HeaderOptions struct {
	// PreferApp switches the Referer to the mobile site.
	PreferApp bool
	// Cookie is the raw login cookie; empty means anonymous.
	Cookie string
	// UA overrides the random user agent when set.
	UA string
}

// Headers builds the header set sent with every platform request.
func Headers(o HeaderOptions) http.Header {
	h := http.Header{}
	ua := o.UA
	if ua == "" {
		ua = RandomUA()
	}
	h.Set("User-Agent", ua)
	h.Set("Accept-Encoding", acceptEncoding)
	h.Set("Accept", acceptAll)
	if o.PreferApp {
		h.Set("Referer", schema.MobileOrigin)
	} else {
		h.Set("Referer", schema.SiteOrigin)
	}
	h.Set("Connection", "keep-alive")
	h.Set("X-Requested-With", "XMLHttpRequest")
	if c := strings.TrimSpace(o.Cookie); c != "" {
		h.Set("Cookie", c)
	}
	return h
}
