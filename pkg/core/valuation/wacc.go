package valuation

// Cost-of-capital helpers for callers that derive the discount rate from
// capital-structure inputs instead of supplying WACC directly.

// CostOfEquityCAPM calculates required return on equity using CAPM.
//
// FORMULA: r_e = r_f + β × MRP
func CostOfEquityCAPM(riskFreeRate, beta, marketRiskPremium float64) float64 {
	return riskFreeRate + beta*marketRiskPremium
}

// WACC calculates the weighted average cost of capital.
//
// FORMULA: WACC = r_d × (1 − T) × (D/V) + r_e × (E/V)
func WACC(costOfDebt, taxRate, debtWeight, costOfEquity, equityWeight float64) float64 {
	afterTaxDebtCost := costOfDebt * (1 - taxRate) * debtWeight
	equityCost := costOfEquity * equityWeight
	return afterTaxDebtCost + equityCost
}
