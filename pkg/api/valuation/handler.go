package valuation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"investor_dashboard/pkg/core/forecast"
	"investor_dashboard/pkg/core/scenario"
	"investor_dashboard/pkg/core/simulation"
	"investor_dashboard/pkg/core/store"
	"investor_dashboard/pkg/core/valuation"
)

var scenarios map[string]*scenario.Scenario
var snapshots *store.SnapshotCache

// InitHandler wires the loaded scenarios and the snapshot cache into
// the package-level handlers.
func InitHandler(loaded map[string]*scenario.Scenario, cache *store.SnapshotCache) {
	scenarios = loaded
	snapshots = cache
	if snapshots == nil {
		snapshots = store.NewSnapshotCache(nil, "")
	}
}

// AssumptionsPayload mirrors the scenario file layout so the frontend
// can POST the slider state directly.
type AssumptionsPayload struct {
	Mode string `json:"mode"`

	RevenueY0        float64   `json:"revenue_y0"`
	RevenueGrowth    []float64 `json:"revenue_growth"`
	EBITDAMargin     []float64 `json:"ebitda_margin"`
	TaxRate          []float64 `json:"tax_rate"`
	DAPercentRevenue []float64 `json:"da_percent_revenue"`
	CapexPercent     []float64 `json:"capex_percent_revenue"`
	NWCPercent       []float64 `json:"nwc_percent_revenue"`

	FCFFForecast []float64 `json:"fcff_forecast"`

	NetAdjustments    float64 `json:"net_adjustments"`
	SharesOutstanding float64 `json:"shares_outstanding"`
}

func (p *AssumptionsPayload) toAssumptions() (forecast.Assumptions, error) {
	switch forecast.Mode(p.Mode) {
	case forecast.ModeDrivers:
		return forecast.NewDriverAssumptions(forecast.DriverAssumptions{
			RevenueY0:        p.RevenueY0,
			RevenueGrowth:    p.RevenueGrowth,
			EBITDAMargin:     p.EBITDAMargin,
			TaxRate:          p.TaxRate,
			DAPercentRevenue: p.DAPercentRevenue,
			CapexPercent:     p.CapexPercent,
			NWCPercent:       p.NWCPercent,
		}, p.NetAdjustments, p.SharesOutstanding), nil
	case forecast.ModeDirectFCFF:
		return forecast.NewDirectFCFF(p.FCFFForecast, p.NetAdjustments, p.SharesOutstanding), nil
	default:
		return forecast.Assumptions{}, fmt.Errorf("unknown forecast mode %q", p.Mode)
	}
}

// ValuationRequest selects either a named scenario or inline
// assumptions, plus the terminal inputs.
type ValuationRequest struct {
	Scenario    string              `json:"scenario,omitempty"`
	Assumptions *AssumptionsPayload `json:"assumptions,omitempty"`

	WACC              float64 `json:"wacc"`
	TerminalGrowth    float64 `json:"terminal_growth_rate"`
	CurrentSharePrice float64 `json:"current_share_price"`

	// Sensitivity overrides (optional)
	Grid *simulation.GridConfig `json:"grid,omitempty"`
	// Monte Carlo overrides (optional)
	MonteCarlo *simulation.MonteCarloConfig `json:"monte_carlo,omitempty"`
}

func (r *ValuationRequest) resolve() (forecast.Assumptions, valuation.TerminalAssumptions, error) {
	terminal := valuation.TerminalAssumptions{
		WACC:              r.WACC,
		TerminalGrowth:    r.TerminalGrowth,
		CurrentSharePrice: r.CurrentSharePrice,
	}

	if r.Scenario != "" {
		s, ok := scenarios[r.Scenario]
		if !ok {
			return forecast.Assumptions{}, terminal, fmt.Errorf("scenario %q not found", r.Scenario)
		}
		if r.WACC == 0 && r.TerminalGrowth == 0 {
			terminal = s.Terminal
		}
		if terminal.CurrentSharePrice == 0 {
			terminal.CurrentSharePrice = s.Terminal.CurrentSharePrice
		}
		return s.Forecast, terminal, nil
	}

	if r.Assumptions == nil {
		return forecast.Assumptions{}, terminal, fmt.Errorf("either scenario or assumptions is required")
	}
	a, err := r.Assumptions.toAssumptions()
	if err != nil {
		return forecast.Assumptions{}, terminal, err
	}
	if err := a.Validate(); err != nil {
		return forecast.Assumptions{}, terminal, err
	}
	return a, terminal, nil
}

// ValuationResponse bundles the forecast schedule with the DCF result
// so the dashboard renders both from one call.
type ValuationResponse struct {
	Scenario string            `json:"scenario,omitempty"`
	Schedule forecast.Schedule `json:"schedule"`
	Result   valuation.Result  `json:"result"`
	Upside   float64           `json:"upside"`
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

func decodeRequest(w http.ResponseWriter, r *http.Request) (*ValuationRequest, bool) {
	var req ValuationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil, false
	}
	return &req, true
}

// HandleDCF runs the discounted cash flow valuation. Results are
// cached by content key so repeated slider states are served from the
// snapshot store.
func HandleDCF(w http.ResponseWriter, r *http.Request) {
	if writeCORS(w, r) {
		return
	}
	req, ok := decodeRequest(w, r)
	if !ok {
		return
	}

	a, terminal, err := req.resolve()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx := context.Background()
	key, err := store.ContentKey(struct {
		Assumptions forecast.Assumptions          `json:"assumptions"`
		Terminal    valuation.TerminalAssumptions `json:"terminal"`
	}{a, terminal})
	if err == nil {
		if snap, _ := snapshots.Get(ctx, key); snap != nil {
			fmt.Printf("[VALUATION] Cache hit for %s\n", key[:12])
			w.Header().Set("Content-Type", "application/json")
			w.Write(snap.Result)
			return
		}
	}

	schedule, err := forecast.Project(a)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	result := valuation.Value(schedule, terminal, a.NetAdjustments, a.SharesOutstanding)
	if result.Degenerate {
		fmt.Printf("[VALUATION] Degenerate terminal value (wacc=%.4f g=%.4f)\n", terminal.WACC, terminal.TerminalGrowth)
	}

	resp := ValuationResponse{
		Scenario: req.Scenario,
		Schedule: schedule,
		Result:   result,
		Upside:   result.Upside(terminal.CurrentSharePrice),
	}

	if key != "" && result.IsFinite() {
		encoded, encErr := json.Marshal(resp)
		if encErr == nil {
			inputs, _ := json.Marshal(req)
			snap := &store.Snapshot{Key: key, Scenario: req.Scenario, Inputs: inputs, Result: encoded}
			if saveErr := snapshots.Save(ctx, snap); saveErr != nil {
				fmt.Printf("[WARNING] Failed to save snapshot: %v\n", saveErr)
			}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// HandleSensitivity computes the WACC x terminal-growth price grid.
func HandleSensitivity(w http.ResponseWriter, r *http.Request) {
	if writeCORS(w, r) {
		return
	}
	req, ok := decodeRequest(w, r)
	if !ok {
		return
	}

	a, terminal, err := req.resolve()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	cfg := simulation.DefaultGridConfig()
	if req.Grid != nil {
		cfg = *req.Grid
	}
	grid, err := simulation.SensitivityGrid(a, terminal, cfg)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(grid)
}

// HandleMonteCarlo runs the randomized WACC/growth simulation.
func HandleMonteCarlo(w http.ResponseWriter, r *http.Request) {
	if writeCORS(w, r) {
		return
	}
	req, ok := decodeRequest(w, r)
	if !ok {
		return
	}

	a, terminal, err := req.resolve()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	cfg := simulation.DefaultMonteCarloConfig()
	if req.MonteCarlo != nil {
		cfg = *req.MonteCarlo
	}
	result, err := simulation.MonteCarlo(a, terminal, cfg)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if result.Insufficient {
		fmt.Printf("[VALUATION] Monte Carlo produced no valid trials (%d requested)\n", result.Requested)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// HandleScenarios lists the loaded scenario names and descriptions.
func HandleScenarios(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	type entry struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Mode        string `json:"mode"`
		Horizon     int    `json:"horizon"`
	}
	var list []entry
	for _, s := range scenarios {
		list = append(list, entry{
			Name:        s.Name,
			Description: s.Description,
			Mode:        string(s.Forecast.Mode),
			Horizon:     s.Forecast.Horizon(),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(list)
}
