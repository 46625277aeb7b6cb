package marketdata

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"investor_dashboard/pkg/core/marketdata"
)

func setup(t *testing.T) {
	t.Helper()
	day := func(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }
	InitHandler(map[string]*marketdata.Series{
		"PKME": {
			Ticker: "PKME",
			Bars: []marketdata.Bar{
				{Date: day(2), Close: 100},
				{Date: day(3), Close: 105},
			},
		},
	}, nil)
}

func get(t *testing.T, handler http.HandlerFunc, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestHandleTickers(t *testing.T) {
	setup(t)

	rec := get(t, HandleTickers, "/api/marketdata/tickers")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var tickers []string
	if err := json.Unmarshal(rec.Body.Bytes(), &tickers); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(tickers) != 1 || tickers[0] != "PKME" {
		t.Errorf("tickers: got %v", tickers)
	}
}

func TestHandleHistory(t *testing.T) {
	setup(t)

	rec := get(t, HandleHistory, "/api/marketdata/history?ticker=pkme")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	var s marketdata.Series
	if err := json.Unmarshal(rec.Body.Bytes(), &s); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(s.Bars) != 2 {
		t.Errorf("bars: got %d", len(s.Bars))
	}
}

func TestHandleHistoryMissingTicker(t *testing.T) {
	setup(t)

	if rec := get(t, HandleHistory, "/api/marketdata/history"); rec.Code != http.StatusBadRequest {
		t.Errorf("no ticker: expected 400, got %d", rec.Code)
	}
	if rec := get(t, HandleHistory, "/api/marketdata/history?ticker=ZZZ"); rec.Code != http.StatusNotFound {
		t.Errorf("unknown ticker: expected 404, got %d", rec.Code)
	}
}

func TestHandleQuoteFallsBackToCSV(t *testing.T) {
	setup(t) // no live fetcher wired

	rec := get(t, HandleQuote, "/api/marketdata/quote?ticker=PKME")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	var q struct {
		Price  float64 `json:"price"`
		Source string  `json:"source"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &q); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if q.Source != "csv" || q.Price != 105 {
		t.Errorf("quote: got %+v", q)
	}
}
