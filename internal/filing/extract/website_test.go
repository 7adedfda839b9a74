package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func extractWebsite(t *testing.T, content string) string {
	t.Helper()
	value, err := WebsiteExtractor{}.Extract(docFromString(content))
	require.NoError(t, err)
	site, ok := value.(string)
	require.True(t, ok)
	return site
}

func TestWebsite_FromIXBRLFact(t *testing.T) {
	html := `<html><body>
		<span name="dei:EntityWebSite">https://www.apple.com</span>
		<p>Unrelated text mentioning example.org</p>
	</body></html>`
	assert.Equal(t, "apple.com", extractWebsite(t, html))
}

func TestWebsite_IXBRLInvalidValueFallsThrough(t *testing.T) {
	// The tagged fact holds garbage, so the heuristics take over.
	html := `<html><body>
		<span name="dei:EntityWebSite">N/A</span>
		<p>Our website is located at www.contoso.com and contains more information.</p>
	</body></html>`
	assert.Equal(t, "contoso.com", extractWebsite(t, html))
}

func TestWebsite_FromXMLElement(t *testing.T) {
	content := `<?xml version="1.0"?>
<edgarSubmission>
	<companyWebsite>https://www.fabrikam.com</companyWebsite>
</edgarSubmission>`
	assert.Equal(t, "fabrikam.com", extractWebsite(t, content))
}

func TestWebsite_HeuristicKeywordProximityWins(t *testing.T) {
	html := `<html><body>
		<p>Products are described at shopping.example.net among other places.</p>
		<p>Our internet address is www.contoso.com where filings are posted.</p>
	</body></html>`
	assert.Equal(t, "contoso.com", extractWebsite(t, html))
}

func TestWebsite_ScriptTextIgnored(t *testing.T) {
	html := `<html><head><script>var u = "https://tracker.adnetwork.example";</script></head>
	<body><p>Our website is www.contoso.com.</p></body></html>`
	assert.Equal(t, "contoso.com", extractWebsite(t, html))
}

func TestWebsite_NotFound(t *testing.T) {
	_, err := WebsiteExtractor{}.Extract(docFromString(`<html><body>No hosts here.</body></html>`))
	assert.Error(t, err)
}

func TestWebsite_ExternalEntityNotResolved(t *testing.T) {
	content := `<?xml version="1.0"?>
<!DOCTYPE edgarSubmission [<!ENTITY xxe SYSTEM "file:///etc/passwd">]>
<edgarSubmission>
	<companyWebsite>&xxe;</companyWebsite>
</edgarSubmission>`
	value, err := WebsiteExtractor{}.Extract(docFromString(content))
	if err == nil {
		// Whatever came back, it must not be file contents.
		assert.NotContains(t, value.(string), "root")
	}
}
