// Package portfolio computes mean-variance statistics over historical
// return series and solves the long-only minimum-variance and
// maximum-Sharpe allocation problems, plus a random-sampling efficient
// frontier used for visualization.
package portfolio

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// DefaultTradingDays is the assumed number of trading periods per year
// used for annualization. Problem.PeriodsPerYear overrides it.
const DefaultTradingDays = 252

// Problem carries the optimizer's inputs by value: mean daily returns,
// the daily covariance matrix and the annual risk-free rate. Objective
// functions read from this struct instead of capturing loose variables.
type Problem struct {
	Assets         []string
	MeanReturns    []float64
	Covariance     *mat.SymDense
	RiskFreeRate   float64
	PeriodsPerYear float64
}

// DailyReturns converts an aligned close-price panel (rows ordered by
// date, one column per asset, no missing values) into fractional
// period-over-period returns. The result has one row fewer than the
// input.
func DailyReturns(closes [][]float64) ([][]float64, error) {
	if len(closes) < 2 {
		return nil, fmt.Errorf("need at least 2 aligned price rows, got %d", len(closes))
	}
	nAssets := len(closes[0])
	returns := make([][]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if len(closes[i]) != nAssets {
			return nil, fmt.Errorf("price row %d has %d assets, expected %d", i, len(closes[i]), nAssets)
		}
		row := make([]float64, nAssets)
		for j := 0; j < nAssets; j++ {
			prev := closes[i-1][j]
			if prev == 0 {
				return nil, fmt.Errorf("zero close for asset %d at row %d", j, i-1)
			}
			row[j] = closes[i][j]/prev - 1
		}
		returns = append(returns, row)
	}
	return returns, nil
}

// NewProblem computes mean returns and the sample covariance matrix from
// an aligned returns matrix (rows = observations, columns = assets) and
// assembles the optimization inputs. At least two assets and two
// observations are required.
func NewProblem(assets []string, returns [][]float64, riskFreeRate float64) (Problem, error) {
	n := len(assets)
	if n < 2 {
		return Problem{}, fmt.Errorf("portfolio optimization needs at least 2 assets, got %d", n)
	}
	if len(returns) < 2 {
		return Problem{}, fmt.Errorf("need at least 2 return observations, got %d", len(returns))
	}
	for i, row := range returns {
		if len(row) != n {
			return Problem{}, fmt.Errorf("return row %d has %d assets, expected %d", i, len(row), n)
		}
	}

	obs := mat.NewDense(len(returns), n, nil)
	for i, row := range returns {
		obs.SetRow(i, row)
	}

	mu := make([]float64, n)
	for j := 0; j < n; j++ {
		mu[j] = stat.Mean(mat.Col(nil, j, obs), nil)
	}

	sigma := mat.NewSymDense(n, nil)
	stat.CovarianceMatrix(sigma, obs, nil)

	return Problem{
		Assets:         assets,
		MeanReturns:    mu,
		Covariance:     sigma,
		RiskFreeRate:   riskFreeRate,
		PeriodsPerYear: DefaultTradingDays,
	}, nil
}

func (p Problem) periods() float64 {
	if p.PeriodsPerYear > 0 {
		return p.PeriodsPerYear
	}
	return DefaultTradingDays
}

// Performance returns the annualized expected return and volatility of a
// weight vector:
//
//	return     = P × wᵀμ
//	volatility = sqrt(P) × sqrt(wᵀΣw)
//
// where P is the number of trading periods per year.
func (p Problem) Performance(weights []float64) (annualReturn, annualVolatility float64) {
	n := len(p.MeanReturns)
	var ret, variance float64
	for i := 0; i < n; i++ {
		ret += p.MeanReturns[i] * weights[i]
		for j := 0; j < n; j++ {
			variance += weights[i] * weights[j] * p.Covariance.At(i, j)
		}
	}
	if variance < 0 {
		variance = 0 // numerical noise on near-singular matrices
	}
	periods := p.periods()
	return periods * ret, sqrt(periods) * sqrt(variance)
}

// Sharpe returns the annualized Sharpe ratio of a weight vector, defined
// as 0 when volatility is exactly 0 (degenerate single-point portfolio).
func (p Problem) Sharpe(weights []float64) float64 {
	ret, vol := p.Performance(weights)
	if vol == 0 {
		return 0
	}
	return (ret - p.RiskFreeRate) / vol
}
