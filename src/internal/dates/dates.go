package dates

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// epochMillisThreshold separates epoch milliseconds from epoch seconds.
const epochMillisThreshold = 1_000_000_000_000

var looseDate = regexp.MustCompile(`^(\d{4})[-/年]?(\d{1,2})?[-/月]?(\d{1,2})?`)

// Published normalizes a publish-time value to YYYY-MM-DD.
//
// Accepted inputs are epoch seconds, epoch milliseconds (told apart by
// magnitude), and loosely delimited dates such as "2019年3月5日",
// "2019/03/05" or "20190305". Missing month or day default to 01.
// Anything else is returned trimmed but otherwise unchanged. Epoch values are
// rendered in loc; a nil loc means time.Local.
func Published(raw string, loc *time.Location) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if loc == nil {
		loc = time.Local
	}
	if isDigits(raw) && len(raw) != 4 && len(raw) != 8 {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return raw
		}
		var t time.Time
		if n > epochMillisThreshold {
			t = time.UnixMilli(n)
		} else {
			t = time.Unix(n, 0)
		}
		return t.In(loc).Format("2006-01-02")
	}
	m := looseDate.FindStringSubmatch(raw)
	if m == nil {
		return raw
	}
	month, day := atoiOr(m[2], 1), atoiOr(m[3], 1)
	return fmt.Sprintf("%s-%02d-%02d", m[1], month, day)
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

func atoiOr(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
