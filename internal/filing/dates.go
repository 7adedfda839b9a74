package filing

import (
	"regexp"
	"strconv"
	"time"
)

var (
	suffixDateRe = regexp.MustCompile(`-(\d{8})\.html?$`)
	cikDateRe    = regexp.MustCompile(`^(\d{10})(\d{8})`)
	cikSeqRe     = regexp.MustCompile(`^(\d{10})(\d{2})(\d{6})`)
	isoDateRe    = regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2})`)
)

// DateFromFilename infers the filing date encoded in an archive member
// filename. Rules apply in order and the first match wins. Returns a zero
// time when no rule matches.
func DateFromFilename(name string, now time.Time) time.Time {
	if m := suffixDateRe.FindStringSubmatch(name); m != nil {
		if t, ok := parseCompact(m[1], now); ok {
			return t
		}
	}
	if m := cikDateRe.FindStringSubmatch(name); m != nil {
		if t, ok := parseCompact(m[2], now); ok {
			return t
		}
	}
	if m := cikSeqRe.FindStringSubmatch(name); m != nil {
		yy, _ := strconv.Atoi(m[2])
		year := 2000 + yy
		if year >= 2000 && year <= now.Year()+1 {
			return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
		}
	}
	if m := isoDateRe.FindStringSubmatch(name); m != nil {
		t, err := time.Parse("2006-01-02", m[0])
		if err == nil && validYear(t.Year(), now) {
			return t
		}
	}
	return time.Time{}
}

func parseCompact(s string, now time.Time) (time.Time, bool) {
	t, err := time.Parse("20060102", s)
	if err != nil || !validYear(t.Year(), now) {
		return time.Time{}, false
	}
	return t, true
}

func validYear(year int, now time.Time) bool {
	return year >= 1990 && year <= now.Year()+1
}
