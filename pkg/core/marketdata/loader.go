// Package marketdata loads historical price series from CSV exports and
// derives the indicators the dashboard displays (moving averages, daily
// returns) plus the aligned close-price panel the portfolio optimizer
// consumes.
package marketdata

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// Bar is one trading day of a price history.
type Bar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Series is a per-ticker price history ordered by date with derived
// indicator columns. Indicator slices are index-aligned with Bars; MA
// entries before the window fills are zero.
type Series struct {
	Ticker  string    `json:"ticker"`
	Bars    []Bar     `json:"bars"`
	MA20    []float64 `json:"ma_20"`
	MA50    []float64 `json:"ma_50"`
	Returns []float64 `json:"returns"` // Returns[0] is always 0
}

// dateLayouts covers the export formats seen in the CSV files.
var dateLayouts = []string{"2006-01-02", "01/02/2006", "2-Jan-06", "02-Jan-2006"}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

func parseNumber(s string) (float64, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" || s == "-" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

// normalizeHeader lowercases a CSV header cell and strips the decoration
// the exchange exports carry (e.g. "Close (Rs.)" -> "close").
func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.ReplaceAll(h, " (rs.)", "")
	h = strings.ReplaceAll(h, " ", "_")
	if h == "trade_date" {
		h = "date"
	}
	return h
}

// LoadCSV reads one price-history CSV. Column names are normalized, rows
// are sorted by date and duplicate dates are dropped keeping the last
// occurrence. The focus company's export names its volume column
// differently ("share_volume"); both layouts are accepted.
func LoadCSV(path, ticker string) (*Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("%s: no data rows", path)
	}

	col := map[string]int{}
	for i, h := range records[0] {
		col[normalizeHeader(h)] = i
	}
	dateIdx, ok := col["date"]
	if !ok {
		return nil, fmt.Errorf("%s: no date column", path)
	}
	closeIdx, ok := col["close"]
	if !ok {
		return nil, fmt.Errorf("%s: no close column", path)
	}
	volumeIdx, hasVolume := col["volume"]
	if !hasVolume {
		volumeIdx, hasVolume = col["share_volume"]
	}

	get := func(row []string, idx int, ok bool) float64 {
		if !ok || idx >= len(row) {
			return 0
		}
		v, err := parseNumber(row[idx])
		if err != nil {
			return 0
		}
		return v
	}

	bars := make([]Bar, 0, len(records)-1)
	for _, row := range records[1:] {
		if dateIdx >= len(row) || closeIdx >= len(row) {
			continue
		}
		date, err := parseDate(row[dateIdx])
		if err != nil {
			continue // header repeats and footer junk are common in exports
		}
		closePrice, err := parseNumber(row[closeIdx])
		if err != nil {
			continue
		}
		openIdx, hasOpen := col["open"]
		highIdx, hasHigh := col["high"]
		lowIdx, hasLow := col["low"]
		bars = append(bars, Bar{
			Date:   date,
			Open:   get(row, openIdx, hasOpen),
			High:   get(row, highIdx, hasHigh),
			Low:    get(row, lowIdx, hasLow),
			Close:  closePrice,
			Volume: get(row, volumeIdx, hasVolume),
		})
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%s: no parsable rows", path)
	}

	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	bars = dedupeDates(bars)

	s := &Series{Ticker: ticker, Bars: bars}
	s.computeIndicators()
	return s, nil
}

// dedupeDates keeps the last bar for each date; input must be sorted.
func dedupeDates(bars []Bar) []Bar {
	out := bars[:0]
	for _, b := range bars {
		if len(out) > 0 && out[len(out)-1].Date.Equal(b.Date) {
			out[len(out)-1] = b
			continue
		}
		out = append(out, b)
	}
	return out
}

func (s *Series) computeIndicators() {
	n := len(s.Bars)
	s.MA20 = movingAverage(s.Bars, 20)
	s.MA50 = movingAverage(s.Bars, 50)
	s.Returns = make([]float64, n)
	for i := 1; i < n; i++ {
		prev := s.Bars[i-1].Close
		if prev != 0 {
			s.Returns[i] = s.Bars[i].Close/prev - 1
		}
	}
}

// movingAverage returns the simple moving average of closes; entries
// before the window is full are 0.
func movingAverage(bars []Bar, window int) []float64 {
	out := make([]float64, len(bars))
	var sum float64
	for i, b := range bars {
		sum += b.Close
		if i >= window {
			sum -= bars[i-window].Close
		}
		if i >= window-1 {
			out[i] = sum / float64(window)
		}
	}
	return out
}

// LatestClose returns the most recent closing price, 0 for an empty
// series.
func (s *Series) LatestClose() float64 {
	if len(s.Bars) == 0 {
		return 0
	}
	return s.Bars[len(s.Bars)-1].Close
}

// LoadDirectory loads every *.csv under dir concurrently, one series per
// file, ticker taken from the file name. Files that fail to parse are
// skipped with a warning rather than failing the whole load.
func LoadDirectory(dir string) (map[string]*Series, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no CSV files under %s", dir)
	}

	type loaded struct {
		ticker string
		series *Series
	}
	results := make([]loaded, len(paths))

	var g errgroup.Group
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			ticker := strings.ToUpper(strings.TrimSuffix(filepath.Base(path), ".csv"))
			series, err := LoadCSV(path, ticker)
			if err != nil {
				fmt.Printf("[WARNING] Skipping %s: %v\n", path, err)
				return nil
			}
			results[i] = loaded{ticker: ticker, series: series}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	all := make(map[string]*Series)
	for _, r := range results {
		if r.series != nil {
			all[r.ticker] = r.series
		}
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("no loadable CSV files under %s", dir)
	}
	return all, nil
}
