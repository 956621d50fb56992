// Package edgar fetches company filings from SEC EDGAR and extracts the
// narrative sections the micro scorer can use. Filings are an optional
// analysis source; every failure here is tolerated upstream.
package edgar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/aestimo/internal/common"
	"github.com/ternarybob/aestimo/internal/interfaces"
	"github.com/ternarybob/aestimo/internal/models"
	"golang.org/x/time/rate"
)

const (
	// DefaultDataURL serves structured submission indexes.
	DefaultDataURL = "https://data.sec.gov"

	// DefaultArchiveURL serves the ticker map and filing documents.
	DefaultArchiveURL = "https://www.sec.gov"

	// DefaultTimeout is the default HTTP timeout.
	DefaultTimeout = 30 * time.Second

	// maxExcerptLen bounds the markdown passed into the scoring prompt.
	maxExcerptLen = 8000
)

// relevantForms are the filing types worth excerpting, in preference order.
var relevantForms = []string{"10-K", "10-Q", "8-K"}

// Client fetches filings from SEC EDGAR.
type Client struct {
	dataURL    string
	archiveURL string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     arbor.ILogger

	mu       sync.Mutex
	cikCache map[string]string // ticker -> zero-padded CIK
}

var _ interfaces.FilingProvider = (*Client)(nil)

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithDataURL overrides the submissions host (tests).
func WithDataURL(url string) ClientOption {
	return func(c *Client) {
		c.dataURL = url
	}
}

// WithArchiveURL overrides the archive host (tests).
func WithArchiveURL(url string) ClientOption {
	return func(c *Client) {
		c.archiveURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets a logger.
func WithLogger(logger arbor.ILogger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates an EDGAR client. SEC requires an identifying user agent
// with contact information on every request.
func NewClient(userAgent string, opts ...ClientOption) *Client {
	c := &Client{
		dataURL:    DefaultDataURL,
		archiveURL: DefaultArchiveURL,
		userAgent:  userAgent,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		// SEC fair-access policy caps automated clients at 10 req/s
		limiter:  rate.NewLimiter(rate.Limit(5), 5),
		cikCache: make(map[string]string),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("EDGAR returned status %d for %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return body, nil
}

// tickerMapEntry is one row of company_tickers.json.
type tickerMapEntry struct {
	CIK    int64  `json:"cik_str"`
	Ticker string `json:"ticker"`
	Title  string `json:"title"`
}

// ResolveCIK maps a ticker to its zero-padded CIK, loading and caching the
// SEC ticker map on first use.
func (c *Client) ResolveCIK(ctx context.Context, ticker string) (string, error) {
	code := common.ParseTicker(ticker).Code

	c.mu.Lock()
	if cik, ok := c.cikCache[code]; ok {
		c.mu.Unlock()
		return cik, nil
	}
	c.mu.Unlock()

	body, err := c.get(ctx, c.archiveURL+"/files/company_tickers.json")
	if err != nil {
		return "", fmt.Errorf("ticker map fetch: %w", err)
	}

	var entries map[string]tickerMapEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return "", fmt.Errorf("ticker map parse: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, entry := range entries {
		c.cikCache[strings.ToUpper(entry.Ticker)] = fmt.Sprintf("%010d", entry.CIK)
	}

	cik, ok := c.cikCache[code]
	if !ok {
		return "", fmt.Errorf("no CIK found for ticker %s", code)
	}
	return cik, nil
}

// submissionsResponse is the subset of the submissions index we read.
type submissionsResponse struct {
	Filings struct {
		Recent struct {
			AccessionNumber []string `json:"accessionNumber"`
			Form            []string `json:"form"`
			FilingDate      []string `json:"filingDate"`
			PrimaryDocument []string `json:"primaryDocument"`
		} `json:"recent"`
	} `json:"filings"`
}

// filingRef locates one filing document.
type filingRef struct {
	Form     string
	FiledAt  time.Time
	Document string // Full archive URL
}

// latestFiling finds the newest relevant filing for a CIK.
func (c *Client) latestFiling(ctx context.Context, cik string) (*filingRef, error) {
	body, err := c.get(ctx, c.dataURL+"/submissions/CIK"+cik+".json")
	if err != nil {
		return nil, fmt.Errorf("submissions fetch: %w", err)
	}

	var subs submissionsResponse
	if err := json.Unmarshal(body, &subs); err != nil {
		return nil, fmt.Errorf("submissions parse: %w", err)
	}
	recent := subs.Filings.Recent

	for _, wanted := range relevantForms {
		for i, form := range recent.Form {
			if form != wanted || i >= len(recent.AccessionNumber) || i >= len(recent.PrimaryDocument) {
				continue
			}

			filedAt, _ := time.Parse("2006-01-02", recent.FilingDate[i])
			accession := strings.ReplaceAll(recent.AccessionNumber[i], "-", "")
			url := fmt.Sprintf("%s/Archives/edgar/data/%s/%s/%s",
				c.archiveURL, strings.TrimLeft(cik, "0"), accession, recent.PrimaryDocument[i])

			return &filingRef{
				Form:     form,
				FiledAt:  filedAt,
				Document: url,
			}, nil
		}
	}

	return nil, fmt.Errorf("no relevant filings for CIK %s", cik)
}

// FetchFilingExcerpt returns the extracted narrative excerpt from the
// ticker's most recent relevant filing.
func (c *Client) FetchFilingExcerpt(ctx context.Context, ticker string) (*models.FilingExcerpt, error) {
	cik, err := c.ResolveCIK(ctx, ticker)
	if err != nil {
		return nil, err
	}

	filing, err := c.latestFiling(ctx, cik)
	if err != nil {
		return nil, err
	}

	body, err := c.get(ctx, filing.Document)
	if err != nil {
		return nil, fmt.Errorf("filing document fetch: %w", err)
	}

	markdown, err := ExtractSections(string(body))
	if err != nil {
		return nil, fmt.Errorf("filing extraction: %w", err)
	}
	if len(markdown) > maxExcerptLen {
		markdown = markdown[:maxExcerptLen]
	}

	if c.logger != nil {
		c.logger.Debug().
			Str("ticker", ticker).
			Str("form", filing.Form).
			Int("excerpt_len", len(markdown)).
			Msg("Filing excerpt extracted")
	}

	return &models.FilingExcerpt{
		FilingType: filing.Form,
		FiledAt:    filing.FiledAt,
		URL:        filing.Document,
		Markdown:   markdown,
	}, nil
}
