// verify_model runs the valuation engine against hand-checked numbers
// and prints a pass/fail line per check. It needs no network and no
// API keys; use it after touching the forecast or valuation math.
package main

import (
	"fmt"
	"math"
	"os"

	"investor_dashboard/pkg/core/forecast"
	"investor_dashboard/pkg/core/portfolio"
	"investor_dashboard/pkg/core/simulation"
	"investor_dashboard/pkg/core/valuation"
)

var failures int

func check(name string, got, want, tol float64) {
	if math.Abs(got-want) <= tol {
		fmt.Printf("  PASS %-40s got=%.4f\n", name, got)
		return
	}
	failures++
	fmt.Printf("  FAIL %-40s got=%.4f want=%.4f\n", name, got, want)
}

func main() {
	fmt.Println("--- DCF hand-checked example ---")
	horizon2()

	fmt.Println("--- Degenerate terminal value ---")
	degenerate()

	fmt.Println("--- Sensitivity grid center ---")
	gridCenter()

	fmt.Println("--- Monte Carlo zero-sigma ---")
	zeroSigma()

	fmt.Println("--- Portfolio symmetric assets ---")
	symmetricPortfolio()

	if failures > 0 {
		fmt.Printf("[FATAL] %d checks failed\n", failures)
		os.Exit(1)
	}
	fmt.Println("All checks passed.")
}

// Two-year revenue-driver model with zero tax, D&A, capex and NWC.
// The numbers work out exactly: FCF [330, 363], EV 3600, price 36.
func horizon2() {
	a := forecast.NewDriverAssumptions(forecast.DriverAssumptions{
		RevenueY0:        1000,
		RevenueGrowth:    []float64{0.10, 0.10},
		EBITDAMargin:     []float64{0.30, 0.30},
		TaxRate:          []float64{0, 0},
		DAPercentRevenue: []float64{0, 0},
		CapexPercent:     []float64{0, 0},
		NWCPercent:       []float64{0, 0},
	}, 0, 100)

	schedule, err := forecast.Project(a)
	if err != nil {
		fmt.Printf("  FAIL projection: %v\n", err)
		failures++
		return
	}
	check("revenue[0]", schedule.Periods[0].Revenue, 1100, 1e-9)
	check("revenue[1]", schedule.Periods[1].Revenue, 1210, 1e-9)
	check("fcf[0]", schedule.Periods[0].FCF, 330, 1e-9)
	check("fcf[1]", schedule.Periods[1].FCF, 363, 1e-9)

	terminal := valuation.TerminalAssumptions{WACC: 0.10, TerminalGrowth: 0}
	result := valuation.Value(schedule, terminal, 0, 100)
	check("terminal value", result.TerminalValue, 3630, 1e-9)
	check("pv terminal", result.PVTerminalValue, 3000, 1e-6)
	check("enterprise value", result.EnterpriseValue, 3600, 1e-6)
	check("implied price", result.ImpliedPrice, 36.00, 1e-6)
}

func degenerate() {
	a := forecast.NewDirectFCFF([]float64{100, 110}, 0, 10)
	result, err := valuation.ValueAssumptions(a, valuation.TerminalAssumptions{WACC: 0.03, TerminalGrowth: 0.03})
	if err != nil {
		fmt.Printf("  FAIL valuation: %v\n", err)
		failures++
		return
	}
	if !result.Degenerate {
		fmt.Println("  FAIL degenerate flag not set for wacc == growth")
		failures++
	} else {
		fmt.Println("  PASS degenerate flag set, terminal value excluded")
	}
	check("degenerate terminal value", result.TerminalValue, 0, 0)
}

func gridCenter() {
	a := forecast.NewDirectFCFF([]float64{100, 110, 120}, 50, 10)
	base := valuation.TerminalAssumptions{WACC: 0.10, TerminalGrowth: 0.03}

	grid, err := simulation.SensitivityGrid(a, base, simulation.DefaultGridConfig())
	if err != nil {
		fmt.Printf("  FAIL grid: %v\n", err)
		failures++
		return
	}
	direct, _ := valuation.ValueAssumptions(a, base)
	center := grid.Cells[2][2]
	if !center.Defined {
		fmt.Println("  FAIL center cell undefined")
		failures++
		return
	}
	check("center cell == direct price", center.Price, direct.ImpliedPrice, 1e-9)
}

func zeroSigma() {
	a := forecast.NewDirectFCFF([]float64{100, 110, 120}, 0, 10)
	base := valuation.TerminalAssumptions{WACC: 0.10, TerminalGrowth: 0.03}

	cfg := simulation.MonteCarloConfig{Trials: 200, WACCSigma: 0, GrowthSigma: 0, Seed: 7}
	result, err := simulation.MonteCarlo(a, base, cfg)
	if err != nil {
		fmt.Printf("  FAIL monte carlo: %v\n", err)
		failures++
		return
	}
	direct, _ := valuation.ValueAssumptions(a, base)
	check("zero-sigma mean == direct price", result.Summary.Mean, direct.ImpliedPrice, 1e-9)
	check("zero-sigma stddev", result.Summary.StdDev, 0, 1e-12)
}

// Three i.i.d. assets: any optimizer worth running lands near 1/3 each.
func symmetricPortfolio() {
	returns := make([][]float64, 300)
	for i := range returns {
		base := 0.001 * math.Sin(float64(i))
		returns[i] = []float64{base + 0.0005, base - 0.0005, base}
	}
	problem, err := portfolio.NewProblem([]string{"A", "B", "C"}, returns, 0.01)
	if err != nil {
		fmt.Printf("  FAIL problem: %v\n", err)
		failures++
		return
	}
	result, err := portfolio.Optimize(problem)
	if err != nil {
		fmt.Printf("  FAIL optimize: %v\n", err)
		failures++
		return
	}
	var sum float64
	for _, w := range result.MinVariance.Weights {
		sum += w
		if w < -1e-9 || w > 1+1e-9 {
			fmt.Printf("  FAIL weight out of bounds: %f\n", w)
			failures++
		}
	}
	check("min-variance weights sum", sum, 1, 1e-6)
}
