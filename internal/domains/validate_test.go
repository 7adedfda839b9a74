package domains

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize_StripsProtocolAndPath(t *testing.T) {
	assert.Equal(t, "apple.com", Normalize("https://www.apple.com/investor/relations?x=1#top"))
}

func TestNormalize_StripsPort(t *testing.T) {
	assert.Equal(t, "example.com", Normalize("http://example.com:8080/about"))
}

func TestNormalize_CollapsesToRegistrableDomain(t *testing.T) {
	assert.Equal(t, "apple.com", Normalize("investor.apple.com"))
	assert.Equal(t, "example.co.uk", Normalize("deep.sub.example.co.uk"))
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"https://www.apple.com/about",
		"investor.microsoft.com",
		"example.co.uk",
		"not a domain",
		"",
	}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "input %q", in)
	}
}

func TestNormalize_RejectsGovAndBlacklist(t *testing.T) {
	assert.Empty(t, Normalize("sec.gov"))
	assert.Empty(t, Normalize("https://www.sec.gov/cgi-bin/browse-edgar"))
	assert.Empty(t, Normalize("xbrl.org"))
	assert.Empty(t, Normalize("finance.yahoo.com"))
	assert.Empty(t, Normalize("finviz.com"))
}

func TestNormalize_RejectsGarbage(t *testing.T) {
	assert.Empty(t, Normalize(""))
	assert.Empty(t, Normalize("localhost"))
	assert.Empty(t, Normalize("no-dot"))
	assert.Empty(t, Normalize("   "))
}

func TestIsValid(t *testing.T) {
	assert.True(t, IsValid("apple.com"))
	assert.True(t, IsValid("https://www.stripe.com"))
	assert.False(t, IsValid("sec.gov"))
	assert.False(t, IsValid(""))
}
