package portfolio

import (
	"encoding/json"
	"fmt"
	"net/http"

	"investor_dashboard/pkg/core/marketdata"
	"investor_dashboard/pkg/core/portfolio"
)

var series map[string]*marketdata.Series

// InitHandler wires the loaded price series into the package-level
// handlers.
func InitHandler(loaded map[string]*marketdata.Series) {
	series = loaded
}

// OptimizeRequest selects the universe and risk-free rate. Frontier
// sampling is optional and off by default because it returns a large
// point cloud.
type OptimizeRequest struct {
	Tickers        []string `json:"tickers"`
	RiskFreeRate   float64  `json:"risk_free_rate"`
	IncludeCloud   bool     `json:"include_cloud"`
	FrontierTrials int      `json:"frontier_trials,omitempty"`
	Seed           int64    `json:"seed,omitempty"`
}

// OptimizeResponse carries both optimal portfolios plus the sampled
// frontier when requested.
type OptimizeResponse struct {
	Assets       []string                  `json:"assets"`
	MinVariance  portfolio.Allocation      `json:"min_variance"`
	MaxSharpe    portfolio.Allocation      `json:"max_sharpe"`
	Frontier     []portfolio.FrontierPoint `json:"frontier,omitempty"`
	Observations int                       `json:"observations"`
}

func writeCORS(w http.ResponseWriter, r *http.Request) bool {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return true
	}
	return false
}

func buildProblem(req *OptimizeRequest) (portfolio.Problem, int, error) {
	panel, err := marketdata.BuildPanel(series, req.Tickers)
	if err != nil {
		return portfolio.Problem{}, 0, err
	}
	returns, err := portfolio.DailyReturns(panel.Closes)
	if err != nil {
		return portfolio.Problem{}, 0, err
	}
	problem, err := portfolio.NewProblem(panel.Tickers, returns, req.RiskFreeRate)
	if err != nil {
		return portfolio.Problem{}, 0, err
	}
	return problem, len(returns), nil
}

// HandleOptimize runs the mean-variance optimization over the selected
// tickers' common price history.
func HandleOptimize(w http.ResponseWriter, r *http.Request) {
	if writeCORS(w, r) {
		return
	}

	var req OptimizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if len(req.Tickers) < 2 {
		http.Error(w, "at least two tickers are required", http.StatusBadRequest)
		return
	}

	problem, observations, err := buildProblem(&req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	fmt.Printf("[PORTFOLIO] Optimizing %d assets over %d observations\n", len(problem.Assets), observations)
	result, err := portfolio.Optimize(problem)
	if err != nil {
		http.Error(w, fmt.Sprintf("optimization failed: %v", err), http.StatusUnprocessableEntity)
		return
	}

	resp := OptimizeResponse{
		Assets:       problem.Assets,
		MinVariance:  result.MinVariance,
		MaxSharpe:    result.MaxSharpe,
		Observations: observations,
	}
	if req.IncludeCloud {
		trials := req.FrontierTrials
		if trials <= 0 {
			trials = portfolio.DefaultFrontierTrials
		}
		resp.Frontier = portfolio.SampleFrontier(problem, trials, req.Seed)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// HandleFrontier returns only the random-portfolio cloud, for plotting
// the feasible region behind the optimal points.
func HandleFrontier(w http.ResponseWriter, r *http.Request) {
	if writeCORS(w, r) {
		return
	}

	var req OptimizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if len(req.Tickers) < 2 {
		http.Error(w, "at least two tickers are required", http.StatusBadRequest)
		return
	}

	problem, _, err := buildProblem(&req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	trials := req.FrontierTrials
	if trials <= 0 {
		trials = portfolio.DefaultFrontierTrials
	}
	points := portfolio.SampleFrontier(problem, trials, req.Seed)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(points)
}
