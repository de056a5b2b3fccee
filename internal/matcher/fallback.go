package matcher

import (
	"github.com/phenrril/pricelens/internal/domain"
	"github.com/phenrril/pricelens/internal/validation"
)

// fallback produces a simulated competitor price when the AI lookup failed:
// selling price scaled by a random factor in [0.8, 1.2) and a random source
// from the search scope. The result is always flagged IsFallback with the
// failure reason so it can never pass for real data downstream.
func (c *Client) fallback(p domain.Product, country domain.Country, scope []string, errMsg string) domain.MatchResult {
	if len(scope) == 0 {
		scope = ConfigFor(country).Sources
	}

	c.mu.Lock()
	variance := 0.8 + c.rng.Float64()*0.4
	source := scope[c.rng.Intn(len(scope))]
	c.mu.Unlock()

	price := round2(p.SellingPrice * variance)

	res := domain.MatchResult{
		MatchedBy:        domain.MatchByTitle,
		Confidence:       0.95,
		CompetitorPrice:  price,
		CompetitorSource: source,
		Country:          country,
		IsFallback:       true,
		Error:            errMsg,
	}
	res.PriceComparisonStatus = validation.PriceComparisonStatus(p.SellingPrice, price)
	res.RecommendedPrice = validation.RecommendedPrice(p.SellingPrice, price, p.CostPrice)
	res.Recommendation = validation.RecommendationText(p.SellingPrice, price, p.CostPrice)

	c.log.Warn().Str("product", p.Name).Str("reason", errMsg).Msg("using simulated competitor price")
	return res
}
