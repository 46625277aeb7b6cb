package portfolio

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/optimize"
)

func sqrt(x float64) float64 { return math.Sqrt(x) }

// penaltyWeight enforces the sum-to-one equality constraint. The box
// bounds ([0,1] per weight) are enforced by projection inside the
// objective, so the solver itself runs unconstrained.
const penaltyWeight = 1000.0

// Allocation is a converged solution: long-only, fully invested weights
// plus the annualized performance they imply.
type Allocation struct {
	Weights          []float64 `json:"weights"`
	AnnualReturn     float64   `json:"annual_return"`
	AnnualVolatility float64   `json:"annual_volatility"`
	Sharpe           float64   `json:"sharpe"`
}

// OptimizeResult bundles the two canonical portfolios.
type OptimizeResult struct {
	MinVariance Allocation `json:"min_variance"`
	MaxSharpe   Allocation `json:"max_sharpe"`
}

// Optimize solves the minimum-variance and maximum-Sharpe problems over
// the same feasible set (Σw = 1, w ∈ [0,1]), both started from the
// uniform-weight vector. A solver that fails to converge on either
// problem returns an error; callers can rely on a nil error meaning both
// allocations genuinely converged.
func Optimize(p Problem) (OptimizeResult, error) {
	if err := p.check(); err != nil {
		return OptimizeResult{}, err
	}

	minVar, err := p.solveMinVariance()
	if err != nil {
		return OptimizeResult{}, fmt.Errorf("min-variance: %w", err)
	}
	maxSharpe, err := p.solveMaxSharpe()
	if err != nil {
		return OptimizeResult{}, fmt.Errorf("max-sharpe: %w", err)
	}
	return OptimizeResult{MinVariance: minVar, MaxSharpe: maxSharpe}, nil
}

func (p Problem) check() error {
	n := len(p.MeanReturns)
	if n < 2 {
		return fmt.Errorf("need at least 2 assets, got %d", n)
	}
	if p.Covariance == nil {
		return fmt.Errorf("covariance matrix is nil")
	}
	if r, _ := p.Covariance.Dims(); r != n {
		return fmt.Errorf("covariance matrix is %dx%d, expected %dx%d", r, r, n, n)
	}
	return nil
}

// projectToBounds clamps every weight into [0, 1].
func projectToBounds(x []float64) []float64 {
	proj := make([]float64, len(x))
	for i := range x {
		proj[i] = math.Max(0, math.Min(1, x[i]))
	}
	return proj
}

func uniformStart(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 1.0 / float64(n)
	}
	return w
}

// solveMinVariance minimizes wᵀΣw with a quadratic penalty on Σw − 1.
func (p Problem) solveMinVariance() (Allocation, error) {
	n := len(p.MeanReturns)

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			w := projectToBounds(x)
			var variance, sum float64
			for i := 0; i < n; i++ {
				sum += w[i]
				for j := 0; j < n; j++ {
					variance += w[i] * w[j] * p.Covariance.At(i, j)
				}
			}
			return variance + penaltyWeight*(sum-1)*(sum-1)
		},
		Grad: func(grad, x []float64) {
			w := projectToBounds(x)
			var sum float64
			for i := 0; i < n; i++ {
				sum += w[i]
			}
			for i := 0; i < n; i++ {
				grad[i] = 2 * penaltyWeight * (sum - 1)
				for j := 0; j < n; j++ {
					grad[i] += 2 * p.Covariance.At(i, j) * w[j]
				}
			}
		},
	}

	final, err := p.minimize(problem)
	if err != nil {
		return Allocation{}, err
	}
	return p.allocation(final), nil
}

// solveMaxSharpe minimizes the negated Sharpe ratio. The gradient is a
// finite-difference approximation of the same objective (BFGS requires
// one); the objective guards the zero-volatility point so the ratio
// stays defined there.
func (p Problem) solveMaxSharpe() (Allocation, error) {
	objective := func(x []float64) float64 {
		w := projectToBounds(x)
		var sum float64
		for i := range w {
			sum += w[i]
		}
		ret, vol := p.Performance(w)
		var negSharpe float64
		if vol > 0 {
			negSharpe = -(ret - p.RiskFreeRate) / vol
		}
		return negSharpe + penaltyWeight*(sum-1)*(sum-1)
	}
	problem := optimize.Problem{
		Func: objective,
		Grad: func(grad, x []float64) {
			fd.Gradient(grad, objective, x, nil)
		},
	}

	final, err := p.minimize(problem)
	if err != nil {
		return Allocation{}, err
	}
	return p.allocation(final), nil
}

// minimize runs BFGS from the uniform start, retries with Nelder-Mead if
// the first attempt errors or stalls, and reports non-convergence rather
// than returning a half-finished point.
func (p Problem) minimize(problem optimize.Problem) ([]float64, error) {
	initial := uniformStart(len(p.MeanReturns))

	result, err := optimize.Minimize(problem, initial, &optimize.Settings{}, &optimize.BFGS{})
	if err != nil || !converged(result.Status) {
		result, err = optimize.Minimize(problem, initial, &optimize.Settings{}, &optimize.NelderMead{})
		if err != nil {
			return nil, fmt.Errorf("solver failed: %w", err)
		}
		if !converged(result.Status) {
			return nil, fmt.Errorf("solver did not converge: status=%v", result.Status)
		}
	}

	// Project the solution back into the feasible set and renormalize;
	// the penalty keeps the sum near 1 but not exactly there.
	w := projectToBounds(result.X)
	var sum float64
	for _, v := range w {
		sum += v
	}
	if sum <= 0 {
		return nil, fmt.Errorf("solver produced an empty allocation")
	}
	for i := range w {
		w[i] /= sum
	}
	return w, nil
}

func converged(s optimize.Status) bool {
	switch s {
	case optimize.Success, optimize.GradientThreshold, optimize.FunctionConvergence:
		return true
	}
	return false
}

func (p Problem) allocation(weights []float64) Allocation {
	ret, vol := p.Performance(weights)
	return Allocation{
		Weights:          weights,
		AnnualReturn:     ret,
		AnnualVolatility: vol,
		Sharpe:           p.Sharpe(weights),
	}
}
