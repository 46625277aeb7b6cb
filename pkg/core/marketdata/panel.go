package marketdata

import (
	"fmt"
	"sort"
	"time"
)

// Panel is an aligned close-price table: one row per date on which every
// selected ticker traded, one column per ticker. The covariance matrix
// downstream is computed only over these common dates.
type Panel struct {
	Tickers []string    `json:"tickers"`
	Dates   []time.Time `json:"dates"`
	Closes  [][]float64 `json:"closes"` // Closes[row][col] follows Dates/Tickers order
}

// BuildPanel merges the selected tickers' close series on dates and
// drops any date where at least one ticker has no bar. At least two
// surviving rows are required for return statistics to exist.
func BuildPanel(all map[string]*Series, tickers []string) (*Panel, error) {
	if len(tickers) == 0 {
		return nil, fmt.Errorf("no tickers selected")
	}

	perTicker := make([]map[time.Time]float64, len(tickers))
	for i, ticker := range tickers {
		series, ok := all[ticker]
		if !ok {
			return nil, fmt.Errorf("no price history for ticker %s", ticker)
		}
		closes := make(map[time.Time]float64, len(series.Bars))
		for _, b := range series.Bars {
			closes[b.Date] = b.Close
		}
		perTicker[i] = closes
	}

	// Intersect dates across all selected tickers.
	var common []time.Time
	for date := range perTicker[0] {
		present := true
		for _, closes := range perTicker[1:] {
			if _, ok := closes[date]; !ok {
				present = false
				break
			}
		}
		if present {
			common = append(common, date)
		}
	}
	sort.Slice(common, func(i, j int) bool { return common[i].Before(common[j]) })

	if len(common) < 2 {
		return nil, fmt.Errorf("only %d overlapping trading dates across %v; need at least 2", len(common), tickers)
	}

	closes := make([][]float64, len(common))
	for r, date := range common {
		row := make([]float64, len(tickers))
		for c := range tickers {
			row[c] = perTicker[c][date]
		}
		closes[r] = row
	}
	return &Panel{Tickers: append([]string(nil), tickers...), Dates: common, Closes: closes}, nil
}
