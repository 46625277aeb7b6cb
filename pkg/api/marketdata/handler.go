package marketdata

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"investor_dashboard/pkg/core/marketdata"
)

var series map[string]*marketdata.Series
var quotes *marketdata.QuoteFetcher

// InitHandler wires the loaded price series and the optional live
// quote fetcher (nil disables /quote fallback to the exchange).
func InitHandler(loaded map[string]*marketdata.Series, fetcher *marketdata.QuoteFetcher) {
	series = loaded
	quotes = fetcher
}

func cors(w http.ResponseWriter, r *http.Request) bool {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return true
	}
	return false
}

// HandleTickers lists the tickers with loaded history.
func HandleTickers(w http.ResponseWriter, r *http.Request) {
	if cors(w, r) {
		return
	}
	tickers := make([]string, 0, len(series))
	for t := range series {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(tickers)
}

// HandleHistory returns a ticker's bars with moving averages and daily
// returns, ready for charting.
func HandleHistory(w http.ResponseWriter, r *http.Request) {
	if cors(w, r) {
		return
	}
	ticker := strings.ToUpper(r.URL.Query().Get("ticker"))
	if ticker == "" {
		http.Error(w, "ticker query parameter is required", http.StatusBadRequest)
		return
	}
	s, ok := series[ticker]
	if !ok {
		http.Error(w, fmt.Sprintf("no history loaded for %s", ticker), http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s)
}

// HandleQuote returns the latest price: live from the exchange when the
// fetcher is configured and succeeds, otherwise the last CSV close.
func HandleQuote(w http.ResponseWriter, r *http.Request) {
	if cors(w, r) {
		return
	}
	ticker := strings.ToUpper(r.URL.Query().Get("ticker"))
	if ticker == "" {
		http.Error(w, "ticker query parameter is required", http.StatusBadRequest)
		return
	}

	type quoteResponse struct {
		Ticker string  `json:"ticker"`
		Price  float64 `json:"price"`
		Source string  `json:"source"` // "live" or "csv"
	}

	if quotes != nil {
		if price, err := quotes.FetchLatestPrice(r.Context(), ticker); err == nil {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(quoteResponse{Ticker: ticker, Price: price, Source: "live"})
			return
		} else {
			fmt.Printf("[WARNING] Live quote for %s failed, falling back to CSV: %v\n", ticker, err)
		}
	}

	s, ok := series[ticker]
	if !ok {
		http.Error(w, fmt.Sprintf("no history loaded for %s", ticker), http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(quoteResponse{Ticker: ticker, Price: s.LatestClose(), Source: "csv"})
}
