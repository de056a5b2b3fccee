package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phenrril/pricelens/internal/domain"
)

func product(selling, cost, competitor float64) domain.Product {
	p := domain.Product{
		ID:              "P1",
		Name:            "Widget",
		SellingPrice:    selling,
		OriginalPrice:   selling,
		CostPrice:       cost,
		CompetitorPrice: competitor,
	}
	p.RecalcDerived()
	return p
}

func findStrategy(recs []Recommendation, s Strategy) *Recommendation {
	for i := range recs {
		if recs[i].Strategy == s {
			return &recs[i]
		}
	}
	return nil
}

func TestOptimizeLadder(t *testing.T) {
	opt := Optimize(product(100, 60, 0))

	assert.Equal(t, PriceForMargin(60, 15), opt.PriceAt15Margin)
	assert.Equal(t, PriceForMargin(60, 30), opt.PriceAt30Margin)
	assert.Equal(t, 120.0, opt.PriceAt50Margin)
	assert.False(t, opt.HasCompetitorData)
}

func TestOptimizeCompete(t *testing.T) {
	opt := Optimize(product(100, 60, 90))

	rec := findStrategy(opt.Recommendations, StrategyCompete)
	require.NotNil(t, rec)
	assert.Equal(t, 88.2, rec.TargetPrice) // 90 * 0.98
	assert.InDelta(t, 31.97, rec.TargetMargin, 0.01)
	assert.Equal(t, RiskMedium, rec.RiskLevel)
}

func TestOptimizeCompeteSkippedOnThinMargin(t *testing.T) {
	// 50*0.98 = 49, margin vs cost 45 is 8.16%, below the 15% gate.
	opt := Optimize(product(60, 45, 50))
	assert.Nil(t, findStrategy(opt.Recommendations, StrategyCompete))
}

func TestOptimizeCompeteHighRisk(t *testing.T) {
	// 100*0.98 = 98, cost 80 → 18.37% margin: emitted but high risk.
	opt := Optimize(product(110, 80, 100))
	rec := findStrategy(opt.Recommendations, StrategyCompete)
	require.NotNil(t, rec)
	assert.Equal(t, RiskHigh, rec.RiskLevel)
}

func TestOptimizePremiumOnlyWhenMuchCheaper(t *testing.T) {
	// 15.25% cheaper than competitor, 0.95*200=190 against cost 100 → 47% margin.
	opt := Optimize(product(169.5, 100, 200))
	rec := findStrategy(opt.Recommendations, StrategyPremium)
	require.NotNil(t, rec)
	assert.Equal(t, 190.0, rec.TargetPrice)
	assert.Equal(t, RiskLow, rec.RiskLevel)

	// only 4% cheaper: no premium play
	opt = Optimize(product(192, 100, 200))
	assert.Nil(t, findStrategy(opt.Recommendations, StrategyPremium))
}

func TestOptimizePenetrate(t *testing.T) {
	p := product(100, 60, 0) // 40% margin
	opt := Optimize(p)
	rec := findStrategy(opt.Recommendations, StrategyPenetrate)
	require.NotNil(t, rec)
	assert.Equal(t, PriceForMargin(60, 20), rec.TargetPrice)
	assert.Equal(t, RiskMedium, rec.RiskLevel)

	// 20% margin: no penetrate play
	opt = Optimize(product(75, 60, 0))
	assert.Nil(t, findStrategy(opt.Recommendations, StrategyPenetrate))
}

func TestPositioning(t *testing.T) {
	opt := Optimize(product(80, 50, 100)) // 20% cheaper
	assert.Equal(t, PositionCheaper, opt.Positioning.Status)
	assert.Equal(t, 85.0, opt.Positioning.CompetitivenessScore) // 75 + 20/2
	assert.Equal(t, -20.0, opt.Positioning.PotentialRevenue)

	opt = Optimize(product(120, 50, 100)) // 20% premium
	assert.Equal(t, PositionPremium, opt.Positioning.Status)
	assert.Equal(t, 30.0, opt.Positioning.CompetitivenessScore) // 50 - 20

	opt = Optimize(product(103, 50, 100))
	assert.Equal(t, PositionAligned, opt.Positioning.Status)
	assert.Equal(t, 75.0, opt.Positioning.CompetitivenessScore)

	opt = Optimize(product(100, 50, 0))
	assert.Equal(t, PositionAligned, opt.Positioning.Status)
	assert.Equal(t, 50.0, opt.Positioning.CompetitivenessScore)
	assert.Zero(t, opt.Positioning.PotentialRevenue)
}

func TestOpportunitiesOrdering(t *testing.T) {
	far := product(100, 90, 0)   // 10% margin, far from the 30% target
	near := product(100, 70, 0)  // 30% margin, already at target
	opps := Opportunities([]domain.Product{near, far})

	require.Len(t, opps, 2)
	assert.Equal(t, far.ProfitMargin, opps[0].Product.ProfitMargin)
	assert.Greater(t, opps[0].PriorityScore, opps[1].PriorityScore)
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	assert.Zero(t, s.TotalProducts)
	assert.Zero(t, s.AverageCurrentMargin)
}

func TestSummarizeCounts(t *testing.T) {
	under := product(80, 40, 100)  // < 95% of competitor
	over := product(120, 40, 100)  // > 115% of competitor
	plain := product(100, 40, 0)
	s := Summarize([]domain.Product{under, over, plain})

	assert.Equal(t, 3, s.TotalProducts)
	assert.Equal(t, 2, s.ProductsWithCompetitorData)
	assert.Equal(t, 1, s.ProductsUnderpriced)
	assert.Equal(t, 1, s.ProductsOverpriced)
}
