package portfolio

import (
	"math/rand"
)

// FrontierPoint is one random portfolio of the efficient-frontier cloud.
type FrontierPoint struct {
	Return     float64 `json:"return"`
	Volatility float64 `json:"volatility"`
	Sharpe     float64 `json:"sharpe"`
}

// DefaultFrontierTrials matches the dashboard's scatter density.
const DefaultFrontierTrials = 10000

// SampleFrontier draws random long-only weight vectors (uniform draws
// normalized to sum 1) and records their annualized performance. The
// cloud is descriptive visualization data only; it never influences the
// optimizer's output. A fixed seed reproduces the same cloud.
func SampleFrontier(p Problem, trials int, seed int64) []FrontierPoint {
	if trials <= 0 {
		trials = DefaultFrontierTrials
	}
	n := len(p.MeanReturns)
	rng := rand.New(rand.NewSource(seed))

	points := make([]FrontierPoint, 0, trials)
	weights := make([]float64, n)
	for t := 0; t < trials; t++ {
		var sum float64
		for i := 0; i < n; i++ {
			weights[i] = rng.Float64()
			sum += weights[i]
		}
		if sum == 0 {
			continue // all-zero draw, vanishingly rare
		}
		for i := 0; i < n; i++ {
			weights[i] /= sum
		}
		ret, vol := p.Performance(weights)
		point := FrontierPoint{Return: ret, Volatility: vol}
		if vol != 0 {
			point.Sharpe = (ret - p.RiskFreeRate) / vol
		}
		points = append(points, point)
	}
	return points
}
