package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/edgar-graph/internal/domains"
)

func TestDomainStatusPayload(t *testing.T) {
	status := []domains.StatusRecord{
		{
			Domain:      "apple.com",
			Title:       "Apple",
			Keywords:    "iphone, mac",
			Description: "Consumer electronics.",
			Technologies: []domains.StatusTechnology{
				{Name: "Akamai", Category: "CDN"},
				{Name: "Adobe Analytics", Category: "Analytics"},
			},
		},
		{
			Domain: "microsoft.com",
			Title:  "Microsoft",
			Technologies: []domains.StatusTechnology{
				{Name: "Akamai", Category: "CDN"},
			},
		},
	}

	domainRows, techRows, uses := domainStatusPayload(status)

	require.Len(t, domainRows, 2)
	assert.Equal(t, "apple.com", domainRows[0]["final_domain"])
	assert.Equal(t, "iphone, mac", domainRows[0]["keywords"])
	assert.Equal(t, "Consumer electronics.", domainRows[0]["description"])

	// Technologies dedupe by name across domains.
	require.Len(t, techRows, 2)
	assert.Equal(t, "Akamai", techRows[0]["name"])
	assert.Equal(t, "CDN", techRows[0]["category"])
	assert.Equal(t, "Adobe Analytics", techRows[1]["name"])

	require.Len(t, uses, 3)
	assert.Equal(t, "apple.com", uses[0].FromKey)
	assert.Equal(t, "Akamai", uses[0].ToKey)
	assert.Equal(t, "microsoft.com", uses[2].FromKey)
	assert.Equal(t, "Akamai", uses[2].ToKey)
}

func TestDomainStatusPayload_Empty(t *testing.T) {
	domainRows, techRows, uses := domainStatusPayload(nil)
	assert.Empty(t, domainRows)
	assert.Empty(t, techRows)
	assert.Empty(t, uses)
}
