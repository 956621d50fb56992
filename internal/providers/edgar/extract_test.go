package edgar

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const filingHTML = `<html><body>
<table><tr><td>page header junk</td></tr></table>
<p>Forward-looking statements disclaimer.</p>
<p>Item 1A. Risk Factors</p>
<p>Our business depends on consumer demand for premium devices.</p>
<p>Supply chain concentration in a single region exposes us to disruption.</p>
<p>Item 7. Management's Discussion and Analysis</p>
<p>Revenue increased 8% year over year driven by services.</p>
<p>Operating margin expanded on product mix.</p>
<script>ignored()</script>
</body></html>`

func TestExtractSections(t *testing.T) {
	markdown, err := ExtractSections(filingHTML)
	require.NoError(t, err)

	assert.Contains(t, markdown, "## Item 1A. Risk Factors")
	assert.Contains(t, markdown, "consumer demand for premium devices")
	assert.Contains(t, markdown, "## Item 7. Management's Discussion and Analysis")
	assert.Contains(t, markdown, "Revenue increased 8% year over year")

	// Preamble before the first item heading is dropped
	assert.NotContains(t, markdown, "Forward-looking statements")
	assert.NotContains(t, markdown, "page header junk")
	assert.NotContains(t, markdown, "ignored()")
}

func TestExtractSectionsNoHeadings(t *testing.T) {
	_, err := ExtractSections("<html><body><p>nothing relevant here</p></body></html>")
	assert.Error(t, err)
}

func TestFetchFilingExcerpt(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/files/company_tickers.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"0":{"cik_str":320193,"ticker":"AAPL","title":"Apple Inc."}}`))
	})
	mux.HandleFunc("/submissions/CIK0000320193.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"filings":{"recent":{
			"accessionNumber":["0000320193-26-000007","0000320193-26-000005"],
			"form":["8-K","10-Q"],
			"filingDate":["2026-04-20","2026-04-01"],
			"primaryDocument":["event.htm","aapl-q2.htm"]
		}}}`))
	})
	mux.HandleFunc("/Archives/edgar/data/320193/000032019326000005/aapl-q2.htm", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(filingHTML))
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewClient("test-agent (test@example.com)",
		WithDataURL(server.URL),
		WithArchiveURL(server.URL),
	)

	excerpt, err := client.FetchFilingExcerpt(context.Background(), "AAPL")
	require.NoError(t, err)

	// 10-Q preferred over the newer 8-K
	assert.Equal(t, "10-Q", excerpt.FilingType)
	assert.Equal(t, "2026-04-01", excerpt.FiledAt.Format("2006-01-02"))
	assert.Contains(t, excerpt.Markdown, "Risk Factors")
	assert.Contains(t, excerpt.URL, "aapl-q2.htm")
}
