package pricing

import "math"

// PriceForMargin returns the selling price needed to hit a target margin.
// Formula: price = cost / (1 - margin/100). Returns 0 for non-positive cost
// or margins at/over 100%, where the formula has no usable solution.
func PriceForMargin(costPrice, targetMarginPercent float64) float64 {
	if costPrice <= 0 || targetMarginPercent >= 100 {
		return 0
	}
	return round2(costPrice / (1 - targetMarginPercent/100))
}

// MarginForPrice returns the margin percentage achieved at a given price.
func MarginForPrice(price, costPrice float64) float64 {
	if price <= 0 {
		return 0
	}
	return round2((price - costPrice) / price * 100)
}

// ProfitPerUnit is the absolute profit at a given price, floored at zero.
func ProfitPerUnit(price, costPrice float64) float64 {
	return math.Max(0, price-costPrice)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
