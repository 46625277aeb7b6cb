// Package simulation re-evaluates the DCF valuator under perturbed
// terminal assumptions: a two-way sensitivity grid over (WACC, terminal
// growth) and a Gaussian Monte Carlo over the same pair. Both procedures
// are stateless with respect to the valuator.
package simulation

import (
	"investor_dashboard/pkg/core/forecast"
	"investor_dashboard/pkg/core/valuation"
)

// GridConfig controls the sensitivity sweep. Zero values fall back to
// the defaults the dashboard renders: a 5×5 grid spanning ±2pp of WACC
// and ±1pp of terminal growth around the base pair.
type GridConfig struct {
	WACCSteps    int     `json:"wacc_steps"`
	GrowthSteps  int     `json:"growth_steps"`
	WACCSpread   float64 `json:"wacc_spread"`
	GrowthSpread float64 `json:"growth_spread"`
}

// DefaultGridConfig mirrors the dashboard's sensitivity table.
func DefaultGridConfig() GridConfig {
	return GridConfig{WACCSteps: 5, GrowthSteps: 5, WACCSpread: 0.02, GrowthSpread: 0.01}
}

func (c GridConfig) withDefaults() GridConfig {
	d := DefaultGridConfig()
	if c.WACCSteps <= 0 {
		c.WACCSteps = d.WACCSteps
	}
	if c.GrowthSteps <= 0 {
		c.GrowthSteps = d.GrowthSteps
	}
	if c.WACCSpread == 0 {
		c.WACCSpread = d.WACCSpread
	}
	if c.GrowthSpread == 0 {
		c.GrowthSpread = d.GrowthSpread
	}
	return c
}

// GridCell is one entry of the sensitivity table. Defined is false when
// the cell's WACC ≤ growth: such cells carry no price and must render
// distinctly from valid ones.
type GridCell struct {
	Price   float64 `json:"price"`
	Defined bool    `json:"defined"`
}

// Grid is the two-way sensitivity table: rows sweep WACC, columns sweep
// terminal growth.
type Grid struct {
	WACCValues   []float64    `json:"wacc_values"`
	GrowthValues []float64    `json:"growth_values"`
	Cells        [][]GridCell `json:"cells"`
}

// linspace returns n evenly spaced values from lo to hi inclusive.
func linspace(lo, hi float64, n int) []float64 {
	if n == 1 {
		return []float64{(lo + hi) / 2}
	}
	out := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	return out
}

// SensitivityGrid evaluates the valuator at every (WACC, growth) pair of
// a grid centered on the base terminal assumptions. With odd step counts
// the center cell reproduces the base valuation exactly.
func SensitivityGrid(a forecast.Assumptions, base valuation.TerminalAssumptions, cfg GridConfig) (Grid, error) {
	cfg = cfg.withDefaults()

	schedule, err := forecast.Project(a)
	if err != nil {
		return Grid{}, err
	}

	grid := Grid{
		WACCValues:   linspace(base.WACC-cfg.WACCSpread, base.WACC+cfg.WACCSpread, cfg.WACCSteps),
		GrowthValues: linspace(base.TerminalGrowth-cfg.GrowthSpread, base.TerminalGrowth+cfg.GrowthSpread, cfg.GrowthSteps),
	}
	grid.Cells = make([][]GridCell, len(grid.WACCValues))
	for i, wacc := range grid.WACCValues {
		row := make([]GridCell, len(grid.GrowthValues))
		for j, growth := range grid.GrowthValues {
			if wacc <= growth {
				row[j] = GridCell{Defined: false}
				continue
			}
			res := valuation.Value(schedule, valuation.TerminalAssumptions{WACC: wacc, TerminalGrowth: growth}, a.NetAdjustments, a.SharesOutstanding)
			row[j] = GridCell{Price: res.ImpliedPrice, Defined: true}
		}
		grid.Cells[i] = row
	}
	return grid, nil
}
