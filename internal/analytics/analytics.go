// Package analytics reduces the product collection into dashboard summaries.
// Summaries are recomputed on demand and never stored.
package analytics

import "github.com/phenrril/pricelens/internal/domain"

// captureFactor is the assumed share of a missed price gap that would convert
// into revenue. Policy constant, not derived.
const captureFactor = 0.8

// Summarize reduces products into per-status counts, the mean margin, and the
// estimated revenue lost to underpriced items.
func Summarize(products []domain.Product) domain.AnalyticsSummary {
	s := domain.AnalyticsSummary{TotalProducts: len(products)}
	if len(products) == 0 {
		return s
	}

	var marginSum float64
	for _, p := range products {
		switch p.Status {
		case domain.StatusValid:
			s.ValidProducts++
		case domain.StatusLow:
			s.LowPricedProducts++
		case domain.StatusHigh:
			s.HighPricedProducts++
		}
		marginSum += p.ProfitMargin

		if p.Status == domain.StatusLow && p.CompetitorPrice > 0 {
			s.PotentialRevenueLoss += (p.CompetitorPrice - p.SellingPrice) * captureFactor
		}
	}
	s.AverageMargin = marginSum / float64(len(products))
	return s
}

// PriceAdvantage compares average selling price against average competitor
// price across products that have competitor data.
type PriceAdvantage struct {
	AverageCompetitorPrice     float64 `json:"averageCompetitorPrice"`
	AverageYourPrice           float64 `json:"averageYourPrice"`
	AverageAdvantagePercent    float64 `json:"averageAdvantagePercent"`
	ProductsWithCompetitorData int     `json:"productsWithCompetitorData"`
}

func CalculatePriceAdvantage(products []domain.Product) PriceAdvantage {
	var adv PriceAdvantage
	var compSum, ourSum float64
	for _, p := range products {
		if p.CompetitorPrice > 0 {
			adv.ProductsWithCompetitorData++
			compSum += p.CompetitorPrice
			ourSum += p.SellingPrice
		}
	}
	if adv.ProductsWithCompetitorData == 0 {
		return adv
	}
	n := float64(adv.ProductsWithCompetitorData)
	adv.AverageCompetitorPrice = compSum / n
	adv.AverageYourPrice = ourSum / n
	adv.AverageAdvantagePercent = (adv.AverageYourPrice - adv.AverageCompetitorPrice) / adv.AverageCompetitorPrice * 100
	return adv
}
