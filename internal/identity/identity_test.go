package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"jobreview-engine/internal/domain"
)

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name string
		a, b string
	}{
		{"tracking params", "https://Example.com/jobs/1?utm_source=x&gclid=2", "https://example.com/jobs/1"},
		{"fragment and scheme", "http://example.com/jobs/1#apply", "https://example.com/jobs/1"},
		{"trailing slash and www", "https://www.example.com/jobs/1/", "https://example.com/jobs/1"},
		{"query order", "https://example.com/j?b=2&a=1", "https://example.com/j?a=1&b=2"},
		{"linkedin view vs guest api", "https://www.linkedin.com/jobs/view/3912345678/?trackingId=abc&refId=x",
			"https://www.linkedin.com/jobs-guest/jobs/api/jobPosting/3912345678"},
		{"linkedin slug view", "https://dk.linkedin.com/jobs/view/backend-engineer-at-acme-3912345678",
			"https://www.linkedin.com/jobs/search/?currentJobId=3912345678&keywords=go"},
		{"surrounding whitespace", "  https://example.com/a  ", "https://example.com/a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, NormalizeURL(tt.b), NormalizeURL(tt.a))
			assert.NotEmpty(t, NormalizeURL(tt.a))
		})
	}
}

func TestNormalizeURLKeepsMeaningfulParams(t *testing.T) {
	assert.NotEqual(t,
		NormalizeURL("https://jobnet.dk/job?id=1"),
		NormalizeURL("https://jobnet.dk/job?id=2"))
}

func TestNormalizeURLEmpty(t *testing.T) {
	assert.Equal(t, "", NormalizeURL(""))
	assert.Equal(t, "", NormalizeURL("   \t"))
}

func TestFallbackKey(t *testing.T) {
	assert.Equal(t, FallbackKey("Senior  Engineer ", "ACME"), FallbackKey("senior engineer", " acme"))
	assert.NotEqual(t, FallbackKey("a b", "c"), FallbackKey("a", "b c"))
	assert.Equal(t, "", FallbackKey("  ", ""))
	assert.NotEmpty(t, FallbackKey("", "Acme"))
}

func TestResolve(t *testing.T) {
	r := domain.NewRecord(map[string]string{
		domain.ColTitle:   "Engineer",
		domain.ColCompany: "Acme",
	})
	k := Resolve(r)
	assert.Empty(t, k.Primary)
	assert.Equal(t, FallbackKey("engineer", "acme"), k.Fallback)

	k = Resolve(domain.Record{})
	assert.Empty(t, k.Primary)
	assert.Empty(t, k.Fallback)
}

func TestLinkedInJobID(t *testing.T) {
	assert.Equal(t, "42", LinkedInJobID("https://www.linkedin.com/jobs/view/42"))
	assert.Equal(t, "42", LinkedInJobID("https://linkedin.com/jobs-guest/jobs/api/jobPosting/42"))
	assert.Equal(t, "", LinkedInJobID("https://example.com/jobs/view/42"))
}

func TestMatchTierString(t *testing.T) {
	assert.Equal(t, "none", MatchNone.String())
	assert.Equal(t, "url", MatchURL.String())
	assert.Equal(t, "title_company", MatchTitleCompany.String())
}
