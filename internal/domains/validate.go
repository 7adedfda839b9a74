// Package domains implements canonical domain validation and the weighted
// multi-source consensus that decides each company's official domain.
package domains

import (
	"strings"

	"golang.org/x/net/publicsuffix"
)

// infrastructureBlacklist lists hosts that show up in filings and provider
// payloads but are never a company's own domain.
var infrastructureBlacklist = map[string]bool{
	"sec.gov":          true,
	"xbrl.org":         true,
	"fasb.org":         true,
	"w3.org":           true,
	"finviz.com":       true,
	"finnhub.io":       true,
	"yahoo.com":        true,
	"yahooapis.com":    true,
	"google.com":       true,
	"googleapis.com":   true,
	"edgar-online.com": true,
	"adobe.com":        true,
}

// Normalize accepts an arbitrary string (URL, hostname, free text) and
// returns the canonical PSL root domain, or "" if the input is not a valid
// company domain. Callers must funnel every externally sourced domain through
// this function before persistence.
func Normalize(raw string) string {
	d := strings.TrimSpace(strings.ToLower(raw))
	if d == "" {
		return ""
	}

	// Strip protocol, www, path, query, fragment, port.
	if i := strings.Index(d, "://"); i >= 0 {
		d = d[i+3:]
	}
	d = strings.TrimPrefix(d, "www.")
	for _, sep := range []string{"/", "?", "#"} {
		if i := strings.Index(d, sep); i >= 0 {
			d = d[:i]
		}
	}
	if i := strings.Index(d, ":"); i >= 0 {
		d = d[:i]
	}
	d = strings.Trim(d, ".")
	if d == "" || !strings.Contains(d, ".") {
		return ""
	}

	root, err := publicsuffix.EffectiveTLDPlusOne(d)
	if err != nil {
		return ""
	}

	dot := strings.Index(root, ".")
	if dot < 0 {
		return ""
	}
	name, suffix := root[:dot], root[dot+1:]
	if len(name) < 2 || len(suffix) > 15 {
		return ""
	}

	if strings.HasSuffix(root, ".gov") {
		return ""
	}
	if infrastructureBlacklist[root] {
		return ""
	}

	return root
}

// IsValid reports whether raw normalizes to a non-empty canonical domain.
func IsValid(raw string) bool {
	return Normalize(raw) != ""
}
