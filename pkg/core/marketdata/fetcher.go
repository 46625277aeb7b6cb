package marketdata

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// QuoteFetcher scrapes the exchange's quote page for a ticker's latest
// traded price. It is best-effort: the dashboard falls back to the last
// CSV close when the fetch fails.
type QuoteFetcher struct {
	httpClient *http.Client
	baseURL    string
}

// NewQuoteFetcher creates a fetcher against the given quote-page base
// URL (the ticker symbol is appended as a query value).
func NewQuoteFetcher(baseURL string) *QuoteFetcher {
	return &QuoteFetcher{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    baseURL,
	}
}

// FetchLatestPrice fetches and parses the quote page, looking for a
// "last traded price" style row in the summary table.
func (f *QuoteFetcher) FetchLatestPrice(ctx context.Context, ticker string) (float64, error) {
	url := fmt.Sprintf("%s?symbol=%s", f.baseURL, ticker)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (investor-dashboard)")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("quote fetch for %s: %w", ticker, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("quote fetch for %s: HTTP %d", ticker, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("parse quote page: %w", err)
	}

	var price float64
	var found bool
	doc.Find("table tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		label := strings.ToLower(strings.TrimSpace(row.Find("td").First().Text()))
		if !strings.Contains(label, "last traded") && !strings.Contains(label, "last price") {
			return true
		}
		value := strings.TrimSpace(row.Find("td").Last().Text())
		if v, err := parseNumber(value); err == nil && v > 0 {
			price = v
			found = true
			return false
		}
		return true
	})
	if !found {
		return 0, fmt.Errorf("no price row found on quote page for %s", ticker)
	}
	return price, nil
}
