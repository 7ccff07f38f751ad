package httpx

import (
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var (
	sidField      = regexp.MustCompile(`sid=([^;\s]+)`)
	tokenField    = regexp.MustCompile(`token=([^;\s]+)`)
	bbsTokenField = regexp.MustCompile(`bbstoken=([^;\s]+)`)
	sessField     = regexp.MustCompile(`JJSESS=([^;]+)`)
	sidKeyLoose   = regexp.MustCompile(`sidkey\W*[:=]\W*'?"?([\w-]+)`)
)

// SessionID extracts the app session id from a login cookie string. It looks
// for a sid field, then a token or bbstoken field (URL-unescaped), then the
// JSON-encoded JJSESS cookie's sid, sidkey or token. Empty means none found.
func SessionID(cookie string) string {
	c := strings.TrimSpace(cookie)
	if c == "" {
		return ""
	}
	if m := sidField.FindStringSubmatch(c); m != nil {
		return m[1]
	}
	for _, re := range []*regexp.Regexp{tokenField, bbsTokenField} {
		if m := re.FindStringSubmatch(c); m != nil {
			return unescape(m[1])
		}
	}
	m := sessField.FindStringSubmatch(c)
	if m == nil {
		return ""
	}
	raw := unescape(m[1])
	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		if m2 := sidKeyLoose.FindStringSubmatch(raw); m2 != nil {
			return m2[1]
		}
		return ""
	}
	for _, k := range []string{"sid", "sidkey", "token"} {
		if v, ok := obj[k]; ok && v != nil {
			if s := strings.TrimSpace(fmt.Sprint(v)); s != "" {
				return s
			}
		}
	}
	return ""
}

func unescape(s string) string {
	if u, err := url.QueryUnescape(s); err == nil {
		return u
	}
	return s
}
