package simulation

import (
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/stat"

	"investor_dashboard/pkg/core/forecast"
	"investor_dashboard/pkg/core/valuation"
)

// MonteCarloConfig controls the randomized simulation. A zero Trials
// falls back to the dashboard default of 1000; sigmas are taken as
// given (zero collapses the distribution onto the base assumptions).
type MonteCarloConfig struct {
	Trials      int     `json:"trials"`
	WACCSigma   float64 `json:"wacc_sigma"`
	GrowthSigma float64 `json:"growth_sigma"`
	Seed        int64   `json:"seed"` // every value, 0 included, names a fixed stream
}

// DefaultMonteCarloConfig mirrors the dashboard's simulation settings.
func DefaultMonteCarloConfig() MonteCarloConfig {
	return MonteCarloConfig{Trials: 1000, WACCSigma: 0.01, GrowthSigma: 0.005}
}

// withDefaults fills only Trials. A zero sigma is a legal value: every
// draw collapses onto the base assumption and the sample is a point
// mass. Negative sigmas are clamped to zero.
func (c MonteCarloConfig) withDefaults() MonteCarloConfig {
	if c.Trials <= 0 {
		c.Trials = DefaultMonteCarloConfig().Trials
	}
	if c.WACCSigma < 0 {
		c.WACCSigma = 0
	}
	if c.GrowthSigma < 0 {
		c.GrowthSigma = 0
	}
	return c
}

// Summary holds descriptive statistics of the surviving implied-price
// sample.
type Summary struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std"`
	Min    float64 `json:"min"`
	Q25    float64 `json:"q25"`
	Median float64 `json:"median"`
	Q75    float64 `json:"q75"`
	Max    float64 `json:"max"`
}

// MonteCarloResult is the surviving sample plus its summary.
// Insufficient reports that every trial was skipped; callers must render
// it as "no valid trials" instead of presenting an empty distribution.
type MonteCarloResult struct {
	Prices       []float64 `json:"prices"`
	Requested    int       `json:"requested_trials"`
	Skipped      int       `json:"skipped_trials"`
	Summary      Summary   `json:"summary"`
	Insufficient bool      `json:"insufficient"`
}

// MonteCarlo draws Trials independent (WACC, growth) pairs from
// N(base, σ) and values each. Trials where the drawn WACC ≤ growth, or
// where the implied price comes out NaN/Inf, are skipped and do not
// count toward the sample. The same seed always reproduces the same
// sample.
func MonteCarlo(a forecast.Assumptions, base valuation.TerminalAssumptions, cfg MonteCarloConfig) (MonteCarloResult, error) {
	cfg = cfg.withDefaults()

	schedule, err := forecast.Project(a)
	if err != nil {
		return MonteCarloResult{}, err
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	res := MonteCarloResult{
		Prices:    make([]float64, 0, cfg.Trials),
		Requested: cfg.Trials,
	}
	for i := 0; i < cfg.Trials; i++ {
		wacc := base.WACC + cfg.WACCSigma*rng.NormFloat64()
		growth := base.TerminalGrowth + cfg.GrowthSigma*rng.NormFloat64()
		if wacc <= growth {
			res.Skipped++
			continue
		}
		v := valuation.Value(schedule, valuation.TerminalAssumptions{WACC: wacc, TerminalGrowth: growth}, a.NetAdjustments, a.SharesOutstanding)
		if math.IsNaN(v.ImpliedPrice) || math.IsInf(v.ImpliedPrice, 0) {
			res.Skipped++
			continue
		}
		res.Prices = append(res.Prices, v.ImpliedPrice)
	}

	if len(res.Prices) == 0 {
		res.Insufficient = true
		return res, nil
	}
	res.Summary = Summarize(res.Prices)
	return res, nil
}

// Summarize computes descriptive statistics over a non-empty sample.
func Summarize(sample []float64) Summary {
	sorted := make([]float64, len(sample))
	copy(sorted, sample)
	sort.Float64s(sorted)

	mean, std := stat.MeanStdDev(sorted, nil)
	if len(sorted) == 1 {
		std = 0 // MeanStdDev yields NaN for a single observation
	}
	return Summary{
		Count:  len(sorted),
		Mean:   mean,
		StdDev: std,
		Min:    sorted[0],
		Q25:    stat.Quantile(0.25, stat.Empirical, sorted, nil),
		Median: stat.Quantile(0.5, stat.Empirical, sorted, nil),
		Q75:    stat.Quantile(0.75, stat.Empirical, sorted, nil),
		Max:    sorted[len(sorted)-1],
	}
}
