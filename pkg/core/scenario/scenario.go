// Package scenario loads named valuation scenarios (forecast + terminal
// assumptions) from HJSON files. The shipped defaults reproduce the
// dashboard's hard-coded assumption sets.
package scenario

import (
	"fmt"
	"os"
	"path/filepath"

	hjson "github.com/hjson/hjson-go/v4"

	"investor_dashboard/pkg/core/forecast"
	"investor_dashboard/pkg/core/valuation"
)

// Scenario is one named assumption set ready to value.
type Scenario struct {
	Name        string                        `json:"name"`
	Description string                        `json:"description"`
	Forecast    forecast.Assumptions          `json:"forecast"`
	Terminal    valuation.TerminalAssumptions `json:"terminal"`
}

// file mirrors the HJSON layout on disk.
type file struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Mode        string `json:"mode"`

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

	WACC              float64 `json:"wacc"`
	TerminalGrowth    float64 `json:"terminal_growth_rate"`
	CurrentSharePrice float64 `json:"current_share_price"`
}

// Load parses and validates one scenario file.
func Load(path string) (*Scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario %s: %w", path, err)
	}

	var f file
	if err := hjson.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}

	s := &Scenario{
		Name:        f.Name,
		Description: f.Description,
		Terminal: valuation.TerminalAssumptions{
			WACC:              f.WACC,
			TerminalGrowth:    f.TerminalGrowth,
			CurrentSharePrice: f.CurrentSharePrice,
		},
	}
	if s.Name == "" {
		s.Name = filepath.Base(path)
	}

	switch forecast.Mode(f.Mode) {
	case forecast.ModeDrivers:
		s.Forecast = forecast.NewDriverAssumptions(forecast.DriverAssumptions{
			RevenueY0:        f.RevenueY0,
			RevenueGrowth:    f.RevenueGrowth,
			EBITDAMargin:     f.EBITDAMargin,
			TaxRate:          f.TaxRate,
			DAPercentRevenue: f.DAPercentRevenue,
			CapexPercent:     f.CapexPercent,
			NWCPercent:       f.NWCPercent,
		}, f.NetAdjustments, f.SharesOutstanding)
	case forecast.ModeDirectFCFF:
		s.Forecast = forecast.NewDirectFCFF(f.FCFFForecast, f.NetAdjustments, f.SharesOutstanding)
	default:
		return nil, fmt.Errorf("scenario %s: unknown mode %q", path, f.Mode)
	}

	if err := s.Forecast.Validate(); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	return s, nil
}

// LoadDirectory loads every *.hjson scenario under dir, keyed by name.
func LoadDirectory(dir string) (map[string]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.hjson"))
	if err != nil {
		return nil, err
	}
	scenarios := make(map[string]*Scenario)
	for _, path := range paths {
		s, err := Load(path)
		if err != nil {
			fmt.Printf("[WARNING] Skipping scenario %s: %v\n", path, err)
			continue
		}
		scenarios[s.Name] = s
	}
	if len(scenarios) == 0 {
		return nil, fmt.Errorf("no loadable scenarios under %s", dir)
	}
	return scenarios, nil
}
