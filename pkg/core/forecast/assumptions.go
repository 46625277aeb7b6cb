// Package forecast projects free-cash-flow schedules from per-period
// driver assumptions. It is the first stage of the DCF pipeline: the
// valuation package consumes the schedule produced here.
package forecast

import (
	"fmt"
)

// Mode distinguishes the two supported assumption shapes.
type Mode string

const (
	// ModeDrivers builds the FCFF vector from revenue drivers
	// (growth, margins, ratios of revenue).
	ModeDrivers Mode = "drivers"
	// ModeDirectFCFF takes a precomputed FCFF vector as-is.
	ModeDirectFCFF Mode = "direct_fcff"
)

// DriverAssumptions holds per-period drivers for a revenue-led forecast.
// All slices must have identical length; that length is the forecast
// horizon in periods (years).
type DriverAssumptions struct {
	RevenueY0        float64   `json:"revenue_y0"`
	RevenueGrowth    []float64 `json:"revenue_growth"`
	EBITDAMargin     []float64 `json:"ebitda_margin"`
	TaxRate          []float64 `json:"tax_rate"`
	DAPercentRevenue []float64 `json:"da_percent_revenue"`
	CapexPercent     []float64 `json:"capex_percent_revenue"`
	NWCPercent       []float64 `json:"nwc_percent_revenue"`
}

// Assumptions is the tagged variant over the two construction modes.
// Exactly one of Drivers or FCFF is used, selected by Mode.
// NetAdjustments is subtracted from enterprise value to reach equity
// value; SharesOutstanding divides equity value into a per-share price.
type Assumptions struct {
	Mode              Mode               `json:"mode"`
	Drivers           *DriverAssumptions `json:"drivers,omitempty"`
	FCFF              []float64          `json:"fcff_forecast,omitempty"`
	NetAdjustments    float64            `json:"net_adjustments"`
	SharesOutstanding float64            `json:"shares_outstanding"`
}

// NewDriverAssumptions wraps a driver set into the tagged form.
func NewDriverAssumptions(d DriverAssumptions, netAdjustments, sharesOutstanding float64) Assumptions {
	return Assumptions{
		Mode:              ModeDrivers,
		Drivers:           &d,
		NetAdjustments:    netAdjustments,
		SharesOutstanding: sharesOutstanding,
	}
}

// NewDirectFCFF wraps a precomputed FCFF vector into the tagged form.
func NewDirectFCFF(fcff []float64, netAdjustments, sharesOutstanding float64) Assumptions {
	return Assumptions{
		Mode:              ModeDirectFCFF,
		FCFF:              fcff,
		NetAdjustments:    netAdjustments,
		SharesOutstanding: sharesOutstanding,
	}
}

// Horizon returns the number of forecast periods.
func (a Assumptions) Horizon() int {
	switch a.Mode {
	case ModeDrivers:
		if a.Drivers == nil {
			return 0
		}
		return len(a.Drivers.RevenueGrowth)
	case ModeDirectFCFF:
		return len(a.FCFF)
	}
	return 0
}

// Validate checks the assumption shape. Mismatched vector lengths and an
// empty horizon are fatal to the call; a zero SharesOutstanding is NOT an
// error here (the valuator treats it as a defined zero-price result).
func (a Assumptions) Validate() error {
	switch a.Mode {
	case ModeDrivers:
		if a.Drivers == nil {
			return fmt.Errorf("mode %q requires a driver set", ModeDrivers)
		}
		return a.Drivers.validate()
	case ModeDirectFCFF:
		if len(a.FCFF) == 0 {
			return fmt.Errorf("mode %q requires a non-empty fcff_forecast vector", ModeDirectFCFF)
		}
		return nil
	}
	return fmt.Errorf("unknown forecast mode %q", a.Mode)
}

func (d *DriverAssumptions) validate() error {
	n := len(d.RevenueGrowth)
	if n == 0 {
		return fmt.Errorf("revenue_growth must have at least one period")
	}
	vectors := map[string]int{
		"ebitda_margin":         len(d.EBITDAMargin),
		"tax_rate":              len(d.TaxRate),
		"da_percent_revenue":    len(d.DAPercentRevenue),
		"capex_percent_revenue": len(d.CapexPercent),
		"nwc_percent_revenue":   len(d.NWCPercent),
	}
	for name, got := range vectors {
		if got != n {
			return fmt.Errorf("assumption vector %s has %d periods, expected %d (length of revenue_growth)", name, got, n)
		}
	}
	return nil
}
