package forecast

// Period is one forecast year of the schedule. In driver mode every line
// item is populated for display; in direct-FCFF mode only FCF is set and
// HasLineItems on the schedule reports false.
type Period struct {
	Year      int     `json:"year"` // 1-based forecast year
	Revenue   float64 `json:"revenue"`
	EBITDA    float64 `json:"ebitda"`
	DA        float64 `json:"da"`
	EBIT      float64 `json:"ebit"`
	NOPAT     float64 `json:"nopat"`
	Capex     float64 `json:"capex"`
	NWCChange float64 `json:"nwc_change"`
	FCF       float64 `json:"fcf"`
}

// Schedule is the projected forecast: an ordered sequence of periods.
// It is a pure function of the assumptions and is recomputed on every
// valuation call, never mutated in place.
type Schedule struct {
	Periods      []Period `json:"periods"`
	HasLineItems bool     `json:"has_line_items"`
}

// FCFVector returns the free-cash-flow column, one value per period.
func (s Schedule) FCFVector() []float64 {
	out := make([]float64, len(s.Periods))
	for i, p := range s.Periods {
		out[i] = p.FCF
	}
	return out
}

// Horizon returns the number of projected periods.
func (s Schedule) Horizon() int { return len(s.Periods) }

// Project builds the forecast schedule from the assumptions.
//
// Driver mode compounds revenue period over period:
//
//	Revenue[0] = RevenueY0 × (1 + Growth[0])
//	Revenue[t] = Revenue[t-1] × (1 + Growth[t])
//
// and derives per period:
//
//	EBITDA = Revenue × Margin
//	D&A    = Revenue × DA%
//	EBIT   = EBITDA − D&A
//	NOPAT  = EBIT × (1 − Tax)
//	CapEx  = Revenue × CapEx%
//	ΔNWC   = Revenue × NWC%
//	FCF    = NOPAT + D&A − CapEx − ΔNWC
//
// Direct-FCFF mode copies the supplied vector. Deterministic, no side
// effects; the only error condition is a malformed assumption shape.
func Project(a Assumptions) (Schedule, error) {
	if err := a.Validate(); err != nil {
		return Schedule{}, err
	}

	switch a.Mode {
	case ModeDirectFCFF:
		periods := make([]Period, len(a.FCFF))
		for i, fcf := range a.FCFF {
			periods[i] = Period{Year: i + 1, FCF: fcf}
		}
		return Schedule{Periods: periods}, nil

	case ModeDrivers:
		d := a.Drivers
		n := len(d.RevenueGrowth)
		periods := make([]Period, n)
		prevRevenue := d.RevenueY0
		for t := 0; t < n; t++ {
			revenue := prevRevenue * (1 + d.RevenueGrowth[t])
			ebitda := revenue * d.EBITDAMargin[t]
			da := revenue * d.DAPercentRevenue[t]
			ebit := ebitda - da
			nopat := ebit * (1 - d.TaxRate[t])
			capex := revenue * d.CapexPercent[t]
			nwc := revenue * d.NWCPercent[t]
			periods[t] = Period{
				Year:      t + 1,
				Revenue:   revenue,
				EBITDA:    ebitda,
				DA:        da,
				EBIT:      ebit,
				NOPAT:     nopat,
				Capex:     capex,
				NWCChange: nwc,
				FCF:       nopat + da - capex - nwc,
			}
			prevRevenue = revenue
		}
		return Schedule{Periods: periods, HasLineItems: true}, nil
	}

	// Validate rejects unknown modes before we get here.
	return Schedule{}, nil
}
