// Package valuation implements the discounted-cash-flow valuator. It
// consumes a forecast.Schedule and terminal assumptions and produces
// enterprise value, equity value and an implied per-share price.
package valuation

import (
	"math"

	"investor_dashboard/pkg/core/forecast"
)

// TerminalAssumptions holds the inputs that survive past the explicit
// forecast horizon. CurrentSharePrice is a reference value for the
// upside/downside readout only; it never enters the valuation math.
type TerminalAssumptions struct {
	WACC              float64 `json:"wacc"`
	TerminalGrowth    float64 `json:"terminal_growth_rate"`
	CurrentSharePrice float64 `json:"current_share_price"`
}

// PeriodValue is one row of the discounted schedule.
type PeriodValue struct {
	Year           int     `json:"year"`
	FCF            float64 `json:"fcf"`
	DiscountFactor float64 `json:"discount_factor"`
	PresentValue   float64 `json:"present_value"`
}

// Result holds the valuation outputs.
//
// Degenerate reports that WACC ≤ terminal growth: the terminal value is
// forced to 0 and EnterpriseValue covers only the explicit periods.
// Callers must surface a degenerate result as "invalid inputs", never as
// a real valuation; the flag is what distinguishes it from a legitimate
// zero terminal value.
type Result struct {
	EnterpriseValue float64       `json:"enterprise_value"`
	EquityValue     float64       `json:"equity_value"`
	ImpliedPrice    float64       `json:"implied_share_price"`
	TerminalValue   float64       `json:"terminal_value"`
	PVTerminalValue float64       `json:"pv_terminal_value"`
	PVExplicit      float64       `json:"pv_explicit_fcf"`
	Periods         []PeriodValue `json:"periods"`
	Degenerate      bool          `json:"degenerate"`
}

// Value performs a standard two-stage DCF over the projected schedule.
//
// Discounting uses the end-of-period convention throughout: the factor
// for year t is 1/(1+r)^t, and the terminal value is discounted with the
// final period's factor. Terminal value follows Gordon growth:
//
//	TV = FCF[last] × (1 + g) / (r − g)
//
// with TV defined as 0 (and Result.Degenerate set) when r − g ≤ 0.
// SharesOutstanding of 0 yields a defined zero price, not an error.
// NaN or infinite inputs propagate into the result unmasked so callers
// can detect invalid scenarios.
func Value(schedule forecast.Schedule, terminal TerminalAssumptions, netAdjustments, sharesOutstanding float64) Result {
	r := terminal.WACC
	g := terminal.TerminalGrowth

	res := Result{Periods: make([]PeriodValue, 0, schedule.Horizon())}

	lastFactor := 1.0
	var lastFCF float64
	for i, p := range schedule.Periods {
		factor := 1.0 / math.Pow(1+r, float64(i+1))
		pv := p.FCF * factor
		res.Periods = append(res.Periods, PeriodValue{
			Year:           p.Year,
			FCF:            p.FCF,
			DiscountFactor: factor,
			PresentValue:   pv,
		})
		res.PVExplicit += pv
		lastFactor = factor
		lastFCF = p.FCF
	}

	if r-g <= 0 {
		res.Degenerate = true
		res.TerminalValue = 0
	} else if schedule.Horizon() > 0 {
		res.TerminalValue = lastFCF * (1 + g) / (r - g)
	}
	res.PVTerminalValue = res.TerminalValue * lastFactor

	res.EnterpriseValue = res.PVExplicit + res.PVTerminalValue
	res.EquityValue = res.EnterpriseValue - netAdjustments
	if sharesOutstanding != 0 {
		res.ImpliedPrice = res.EquityValue / sharesOutstanding
	}
	return res
}

// ValueAssumptions projects the assumptions and values the result in one
// call. This is the entry point the API layer uses.
func ValueAssumptions(a forecast.Assumptions, terminal TerminalAssumptions) (Result, error) {
	schedule, err := forecast.Project(a)
	if err != nil {
		return Result{}, err
	}
	return Value(schedule, terminal, a.NetAdjustments, a.SharesOutstanding), nil
}

// Upside returns the fractional upside (or downside) of the implied
// price against the reference market price, 0 when the reference is 0.
func (r Result) Upside(currentPrice float64) float64 {
	if currentPrice == 0 {
		return 0
	}
	return r.ImpliedPrice/currentPrice - 1
}

// IsFinite reports whether the headline outputs are real numbers.
// A false return means an upstream assumption produced NaN or ±Inf and
// the result must be rendered as invalid.
func (r Result) IsFinite() bool {
	for _, v := range []float64{r.EnterpriseValue, r.EquityValue, r.ImpliedPrice} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
