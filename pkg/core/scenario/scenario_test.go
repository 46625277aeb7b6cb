package scenario

import (
	"os"
	"path/filepath"
	"testing"

	"investor_dashboard/pkg/core/forecast"
)

func writeScenario(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

const driverScenario = `{
  // comments are legal in hjson
  name: base_case
  description: test scenario
  mode: drivers

  revenue_y0: 1000
  revenue_growth: [0.10, 0.10]
  ebitda_margin: [0.30, 0.30]
  tax_rate: [0, 0]
  da_percent_revenue: [0, 0]
  capex_percent_revenue: [0, 0]
  nwc_percent_revenue: [0, 0]

  net_adjustments: 0
  shares_outstanding: 100

  wacc: 0.10
  terminal_growth_rate: 0.02
  current_share_price: 30
}`

const fcffScenario = `{
  name: direct_case
  mode: direct_fcff
  fcff_forecast: [100, 110, 120]
  net_adjustments: -50
  shares_outstanding: 10
  wacc: 0.09
  terminal_growth_rate: 0.03
}`

func TestLoadDriverScenario(t *testing.T) {
	path := writeScenario(t, t.TempDir(), "base.hjson", driverScenario)

	s, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Name != "base_case" {
		t.Errorf("name: got %q", s.Name)
	}
	if s.Forecast.Mode != forecast.ModeDrivers {
		t.Errorf("mode: got %q", s.Forecast.Mode)
	}
	if s.Forecast.Horizon() != 2 {
		t.Errorf("horizon: got %d", s.Forecast.Horizon())
	}
	if s.Terminal.WACC != 0.10 || s.Terminal.TerminalGrowth != 0.02 {
		t.Errorf("terminal assumptions wrong: %+v", s.Terminal)
	}
	if s.Terminal.CurrentSharePrice != 30 {
		t.Errorf("current share price: got %v", s.Terminal.CurrentSharePrice)
	}
}

func TestLoadFCFFScenario(t *testing.T) {
	path := writeScenario(t, t.TempDir(), "direct.hjson", fcffScenario)

	s, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Forecast.Mode != forecast.ModeDirectFCFF {
		t.Errorf("mode: got %q", s.Forecast.Mode)
	}
	if len(s.Forecast.FCFF) != 3 || s.Forecast.FCFF[2] != 120 {
		t.Errorf("fcff vector wrong: %v", s.Forecast.FCFF)
	}
	if s.Forecast.NetAdjustments != -50 {
		t.Errorf("net adjustments: got %v", s.Forecast.NetAdjustments)
	}
}

func TestLoadUnknownMode(t *testing.T) {
	path := writeScenario(t, t.TempDir(), "bad.hjson", `{name: x, mode: magic}`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}

func TestLoadInvalidVectors(t *testing.T) {
	bad := `{
  name: bad
  mode: drivers
  revenue_y0: 1000
  revenue_growth: [0.10, 0.10]
  ebitda_margin: [0.30]
  tax_rate: [0, 0]
  da_percent_revenue: [0, 0]
  capex_percent_revenue: [0, 0]
  nwc_percent_revenue: [0, 0]
  shares_outstanding: 100
}`
	path := writeScenario(t, t.TempDir(), "bad.hjson", bad)
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for mismatched vectors")
	}
}

func TestLoadDirectorySkipsBroken(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "good.hjson", fcffScenario)
	writeScenario(t, dir, "bad.hjson", `{name: broken, mode: magic}`)

	scenarios, err := LoadDirectory(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(scenarios) != 1 {
		t.Fatalf("expected 1 loadable scenario, got %d", len(scenarios))
	}
	if _, ok := scenarios["direct_case"]; !ok {
		t.Error("scenarios should be keyed by name")
	}
}

func TestLoadDirectoryEmpty(t *testing.T) {
	if _, err := LoadDirectory(t.TempDir()); err == nil {
		t.Fatal("expected error for directory without scenarios")
	}
}

func TestShippedScenariosLoad(t *testing.T) {
	scenarios, err := LoadDirectory(filepath.Join("..", "..", "..", "scenarios"))
	if err != nil {
		t.Fatalf("shipped scenarios failed to load: %v", err)
	}
	for _, name := range []string{"pkme_drivers", "pkme_fcff"} {
		if _, ok := scenarios[name]; !ok {
			t.Errorf("missing shipped scenario %q", name)
		}
	}
}
