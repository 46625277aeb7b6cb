package simulation

import (
	"math"
	"testing"

	"investor_dashboard/pkg/core/forecast"
	"investor_dashboard/pkg/core/valuation"
)

func baseAssumptions() forecast.Assumptions {
	return forecast.NewDirectFCFF([]float64{100, 110, 120}, 50, 10)
}

func TestSensitivityGridShape(t *testing.T) {
	base := valuation.TerminalAssumptions{WACC: 0.10, TerminalGrowth: 0.03}
	grid, err := SensitivityGrid(baseAssumptions(), base, DefaultGridConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(grid.WACCValues) != 5 || len(grid.GrowthValues) != 5 {
		t.Fatalf("expected 5x5 axes, got %dx%d", len(grid.WACCValues), len(grid.GrowthValues))
	}
	if len(grid.Cells) != 5 || len(grid.Cells[0]) != 5 {
		t.Fatalf("expected 5x5 cells")
	}

	// Axes span ±spread around the base pair.
	if math.Abs(grid.WACCValues[0]-0.08) > 1e-12 || math.Abs(grid.WACCValues[4]-0.12) > 1e-12 {
		t.Errorf("wacc axis wrong: %v", grid.WACCValues)
	}
	if math.Abs(grid.GrowthValues[0]-0.02) > 1e-12 || math.Abs(grid.GrowthValues[4]-0.04) > 1e-12 {
		t.Errorf("growth axis wrong: %v", grid.GrowthValues)
	}
}

func TestSensitivityGridCenterMatchesDirect(t *testing.T) {
	a := baseAssumptions()
	base := valuation.TerminalAssumptions{WACC: 0.10, TerminalGrowth: 0.03}

	grid, err := SensitivityGrid(a, base, DefaultGridConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	direct, err := valuation.ValueAssumptions(a, base)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	center := grid.Cells[2][2]
	if !center.Defined {
		t.Fatal("center cell should be defined")
	}
	if math.Abs(center.Price-direct.ImpliedPrice) > 1e-9 {
		t.Errorf("center cell %v != direct valuation %v", center.Price, direct.ImpliedPrice)
	}
}

func TestSensitivityGridUndefinedCells(t *testing.T) {
	// Base chosen so low-WACC/high-growth corners cross r <= g.
	base := valuation.TerminalAssumptions{WACC: 0.04, TerminalGrowth: 0.03}
	grid, err := SensitivityGrid(baseAssumptions(), base, DefaultGridConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var undefined int
	for i, wacc := range grid.WACCValues {
		for j, growth := range grid.GrowthValues {
			cell := grid.Cells[i][j]
			if wacc <= growth {
				if cell.Defined {
					t.Errorf("cell (%.3f, %.3f) should be undefined", wacc, growth)
				}
				undefined++
			} else if !cell.Defined {
				t.Errorf("cell (%.3f, %.3f) should be defined", wacc, growth)
			}
		}
	}
	if undefined == 0 {
		t.Fatal("test setup expected some undefined cells")
	}
}

func TestMonteCarloDeterministicBySeed(t *testing.T) {
	a := baseAssumptions()
	base := valuation.TerminalAssumptions{WACC: 0.10, TerminalGrowth: 0.03}
	cfg := MonteCarloConfig{Trials: 500, WACCSigma: 0.01, GrowthSigma: 0.005, Seed: 42}

	first, err := MonteCarlo(a, base, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := MonteCarlo(a, base, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(first.Prices) != len(second.Prices) {
		t.Fatalf("sample sizes differ: %d vs %d", len(first.Prices), len(second.Prices))
	}
	for i := range first.Prices {
		if first.Prices[i] != second.Prices[i] {
			t.Fatalf("sample diverges at %d: %v vs %v", i, first.Prices[i], second.Prices[i])
		}
	}
}

func TestMonteCarloZeroSigmaPointMass(t *testing.T) {
	a := baseAssumptions()
	base := valuation.TerminalAssumptions{WACC: 0.10, TerminalGrowth: 0.03}
	cfg := MonteCarloConfig{Trials: 100, WACCSigma: 0, GrowthSigma: 0, Seed: 7}

	result, err := MonteCarlo(a, base, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	direct, _ := valuation.ValueAssumptions(a, base)

	if result.Skipped != 0 {
		t.Errorf("no trials should be skipped, got %d", result.Skipped)
	}
	if math.Abs(result.Summary.Mean-direct.ImpliedPrice) > 1e-9 {
		t.Errorf("mean %v != direct price %v", result.Summary.Mean, direct.ImpliedPrice)
	}
	if result.Summary.StdDev > 1e-12 {
		t.Errorf("point mass should have zero stddev, got %v", result.Summary.StdDev)
	}
}

func TestMonteCarloInsufficientWhenAllSkipped(t *testing.T) {
	a := baseAssumptions()
	// Base WACC below growth with zero sigma: every draw lands on r <= g.
	base := valuation.TerminalAssumptions{WACC: 0.02, TerminalGrowth: 0.05}
	cfg := MonteCarloConfig{Trials: 50, WACCSigma: 0, GrowthSigma: 0, Seed: 1}

	result, err := MonteCarlo(a, base, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Insufficient {
		t.Error("expected Insufficient flag when every trial is skipped")
	}
	if result.Skipped != 50 {
		t.Errorf("expected 50 skipped trials, got %d", result.Skipped)
	}
	if len(result.Prices) != 0 {
		t.Errorf("expected empty sample, got %d prices", len(result.Prices))
	}
}

func TestMonteCarloSkipsDegeneratePairs(t *testing.T) {
	a := baseAssumptions()
	// Large sigma around a narrow spread forces some r <= g draws.
	base := valuation.TerminalAssumptions{WACC: 0.05, TerminalGrowth: 0.045}
	cfg := MonteCarloConfig{Trials: 2000, WACCSigma: 0.02, GrowthSigma: 0.01, Seed: 3}

	result, err := MonteCarlo(a, base, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Skipped == 0 {
		t.Error("expected some skipped trials with overlapping distributions")
	}
	if len(result.Prices)+result.Skipped != result.Requested {
		t.Errorf("sample %d + skipped %d != requested %d", len(result.Prices), result.Skipped, result.Requested)
	}
	for _, p := range result.Prices {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			t.Fatal("non-finite price survived into the sample")
		}
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize([]float64{4, 1, 3, 2, 5})
	if s.Count != 5 {
		t.Errorf("count: got %d", s.Count)
	}
	if s.Min != 1 || s.Max != 5 {
		t.Errorf("min/max: got %v/%v", s.Min, s.Max)
	}
	if math.Abs(s.Mean-3) > 1e-12 {
		t.Errorf("mean: got %v", s.Mean)
	}
	if s.Median != 3 {
		t.Errorf("median: got %v", s.Median)
	}

	single := Summarize([]float64{7})
	if single.StdDev != 0 {
		t.Errorf("single observation stddev should be 0, got %v", single.StdDev)
	}
}
