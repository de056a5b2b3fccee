// Package validation holds the threshold rules and the shared ±5% competitor
// comparison used everywhere a price status badge is derived.
package validation

import (
	"fmt"
	"math"

	"github.com/phenrril/pricelens/internal/domain"
)

// DefaultThresholds is the session default until the user edits it.
var DefaultThresholds = domain.PriceThreshold{
	MinDiscount:        5,
	MaxDiscount:        50,
	MinMargin:          15,
	MaxMargin:          80,
	LowPriceThreshold:  10,
	HighPriceThreshold: 200,
}

// Validate runs every threshold check against a product. Checks do not
// short-circuit: all applicable issues accumulate, and severity only
// escalates (a high never drops back down within one pass).
func Validate(p domain.Product, t domain.PriceThreshold) domain.ValidationResult {
	issues := []string{}
	severity := domain.SeverityLow

	if p.DiscountPercent < t.MinDiscount {
		issues = append(issues, fmt.Sprintf("Discount (%g%%) is below minimum threshold (%g%%)", p.DiscountPercent, t.MinDiscount))
	}
	if p.DiscountPercent > t.MaxDiscount {
		issues = append(issues, fmt.Sprintf("Discount (%g%%) exceeds maximum threshold (%g%%)", p.DiscountPercent, t.MaxDiscount))
		severity = domain.SeverityHigh
	}

	if p.ProfitMargin < t.MinMargin {
		issues = append(issues, fmt.Sprintf("Profit margin (%.1f%%) is below minimum (%g%%)", p.ProfitMargin, t.MinMargin))
		severity = domain.SeverityHigh
	}
	if p.ProfitMargin > t.MaxMargin {
		issues = append(issues, fmt.Sprintf("Unusually high margin (%.1f%%) - verify pricing", p.ProfitMargin))
		if severity != domain.SeverityHigh {
			severity = domain.SeverityMedium
		}
	}

	if p.SellingPrice < t.LowPriceThreshold {
		issues = append(issues, fmt.Sprintf("Price (%g) is suspiciously low", p.SellingPrice))
		severity = domain.SeverityHigh
	}
	if p.SellingPrice > t.HighPriceThreshold && p.ProfitMargin < t.MinMargin {
		issues = append(issues, "High price with low margin - review cost structure")
		if severity != domain.SeverityHigh {
			severity = domain.SeverityMedium
		}
	}

	if p.CompetitorPrice > 0 {
		diff := (p.SellingPrice - p.CompetitorPrice) / p.CompetitorPrice * 100
		if diff > 20 {
			issues = append(issues, fmt.Sprintf("Price is %.1f%% higher than competitor", diff))
			if severity != domain.SeverityHigh {
				severity = domain.SeverityMedium
			}
		} else if diff < -30 {
			issues = append(issues, fmt.Sprintf("Price is %.1f%% lower than competitor - potential margin loss", math.Abs(diff)))
			if severity != domain.SeverityHigh {
				severity = domain.SeverityMedium
			}
		}
	}

	return domain.ValidationResult{
		ProductID:      p.ID,
		Issues:         issues,
		Severity:       severity,
		Recommendation: recommendation(p, t, issues),
	}
}

func recommendation(p domain.Product, t domain.PriceThreshold, issues []string) string {
	switch {
	case len(issues) == 0:
		return "Pricing is within acceptable ranges."
	case p.ProfitMargin < t.MinMargin:
		suggested := p.CostPrice * (1 + t.MinMargin/100)
		return fmt.Sprintf("Consider raising price to %.2f to meet minimum margin.", suggested)
	case p.DiscountPercent > t.MaxDiscount:
		suggested := p.OriginalPrice * (1 - t.MaxDiscount/100)
		return fmt.Sprintf("Reduce discount to %g%% (price: %.2f).", t.MaxDiscount, suggested)
	case p.CompetitorPrice > 0 && p.SellingPrice > p.CompetitorPrice*1.1:
		return fmt.Sprintf("Consider matching competitor price of %.2f.", p.CompetitorPrice)
	default:
		return "Review pricing strategy for this product."
	}
}

// DetermineStatus classifies a product. Warning conditions (margin below
// minimum, discount above maximum) override everything else; otherwise the
// competitor banding applies with a strictly exclusive ±5% boundary.
func DetermineStatus(p domain.Product, t domain.PriceThreshold) domain.Status {
	if p.ProfitMargin < t.MinMargin || p.DiscountPercent > t.MaxDiscount {
		return domain.StatusWarning
	}

	if p.CompetitorPrice > 0 {
		percentDiff := (p.SellingPrice - p.CompetitorPrice) / p.CompetitorPrice * 100
		if percentDiff > 5 {
			return domain.StatusHigh
		}
		if percentDiff < -5 {
			return domain.StatusLow
		}
		// Within ±5% of competitor: aligned.
		return domain.StatusValid
	}

	if p.ProfitMargin > t.MaxMargin {
		return domain.StatusHigh
	}
	return domain.StatusValid
}

// PriceComparisonStatus is the single ±5% banding implementation. The empty
// string means "no competitor data". The boundary is exclusive: exactly 5%
// is aligned.
func PriceComparisonStatus(ourPrice, competitorPrice float64) domain.ComparisonStatus {
	if competitorPrice <= 0 {
		return ""
	}
	diff := (ourPrice - competitorPrice) / competitorPrice * 100
	if diff > 5 {
		return domain.ComparisonHigher
	}
	if diff < -5 {
		return domain.ComparisonLower
	}
	return domain.ComparisonAligned
}

// RecommendedPrice undercuts the competitor by 2% without dropping below a
// 10%-over-cost floor, or 70% of our price when the cost is unknown.
// Returns 0 when there is no competitor price.
func RecommendedPrice(ourPrice, competitorPrice, costPrice float64) float64 {
	if competitorPrice <= 0 {
		return 0
	}
	target := competitorPrice * 0.98
	floor := ourPrice * 0.7
	if costPrice > 0 {
		floor = costPrice * 1.1
	}
	return math.Max(target, floor)
}

// RecommendationText produces the canned advice string shown next to a
// competitor match.
func RecommendationText(ourPrice, competitorPrice, costPrice float64) string {
	status := PriceComparisonStatus(ourPrice, competitorPrice)
	diffPercent := (ourPrice - competitorPrice) / competitorPrice * 100
	switch status {
	case domain.ComparisonLower:
		return fmt.Sprintf("Competitor price is %.1f%% lower. Recommend reducing to %.2f to match or beat competitor.",
			math.Abs(diffPercent), RecommendedPrice(ourPrice, competitorPrice, costPrice))
	case domain.ComparisonHigher:
		return fmt.Sprintf("Competitor price is %.1f%% higher. Consider a discount or maintain margin.", diffPercent)
	default:
		return "Price is competitive and aligned with market (within ±5%)"
	}
}
