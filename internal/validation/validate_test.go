package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phenrril/pricelens/internal/domain"
)

func product(original, selling, cost float64) domain.Product {
	p := domain.Product{
		ID:            "P1",
		Name:          "Widget",
		OriginalPrice: original,
		SellingPrice:  selling,
		CostPrice:     cost,
	}
	p.RecalcDerived()
	return p
}

func TestValidateClean(t *testing.T) {
	// 20% discount, 37.5% margin: inside every default threshold.
	res := Validate(product(100, 80, 50), DefaultThresholds)
	assert.Empty(t, res.Issues)
	assert.Equal(t, domain.SeverityLow, res.Severity)
	assert.Equal(t, "Pricing is within acceptable ranges.", res.Recommendation)
}

func TestValidateLowMarginEscalatesHigh(t *testing.T) {
	// 10% margin against a 15% minimum.
	res := Validate(product(120, 100, 90), DefaultThresholds)
	assert.Equal(t, domain.SeverityHigh, res.Severity)
	require.NotEmpty(t, res.Issues)
	assert.Contains(t, res.Recommendation, "raising price")
	// suggested price = cost * (1 + minMargin/100)
	assert.Contains(t, res.Recommendation, "103.50")
}

func TestValidateExcessDiscount(t *testing.T) {
	// 60% discount with a healthy margin.
	res := Validate(product(250, 100, 50), DefaultThresholds)
	assert.Equal(t, domain.SeverityHigh, res.Severity)
	assert.Contains(t, res.Recommendation, "Reduce discount to 50%")
}

func TestValidateIssuesAccumulate(t *testing.T) {
	// Low margin AND excess discount AND suspiciously low price all reported.
	res := Validate(product(100, 5, 4.8), DefaultThresholds)
	assert.GreaterOrEqual(t, len(res.Issues), 3)
	assert.Equal(t, domain.SeverityHigh, res.Severity)
}

func TestValidateHighNeverDowngraded(t *testing.T) {
	// Margin issue sets high; later maxMargin/competitor checks must not
	// pull it back to medium.
	p := product(120, 100, 90)
	p.CompetitorPrice = 80 // 25% above competitor → medium-grade issue
	res := Validate(p, DefaultThresholds)
	assert.Equal(t, domain.SeverityHigh, res.Severity)
}

func TestValidateCompetitorGaps(t *testing.T) {
	p := product(100, 80, 40)
	p.CompetitorPrice = 60 // we are 33% higher
	res := Validate(p, DefaultThresholds)
	found := false
	for _, iss := range res.Issues {
		if strings.Contains(iss, "higher than competitor") {
			found = true
		}
	}
	assert.True(t, found)
	assert.Equal(t, domain.SeverityMedium, res.Severity)

	p.CompetitorPrice = 130 // we are 38% lower
	res = Validate(p, DefaultThresholds)
	found = false
	for _, iss := range res.Issues {
		if strings.Contains(iss, "lower than competitor") {
			found = true
		}
	}
	assert.True(t, found)
}

func TestDetermineStatusWarningOverridesCompetitor(t *testing.T) {
	// Margin 5% under a 15% minimum must win even with a perfectly aligned
	// competitor price.
	p := product(100, 100, 95)
	p.CompetitorPrice = 100
	assert.Equal(t, domain.StatusWarning, DetermineStatus(p, DefaultThresholds))
}

func TestDetermineStatusCompetitorBanding(t *testing.T) {
	p := product(100, 100, 50)

	p.CompetitorPrice = 94 // diff 6.38%
	assert.Equal(t, domain.StatusHigh, DetermineStatus(p, DefaultThresholds))

	p.CompetitorPrice = 110 // diff -9.09%
	assert.Equal(t, domain.StatusLow, DetermineStatus(p, DefaultThresholds))

	p.CompetitorPrice = 98
	assert.Equal(t, domain.StatusValid, DetermineStatus(p, DefaultThresholds))
}

func TestDetermineStatusNoCompetitor(t *testing.T) {
	p := product(100, 100, 10) // 90% margin > 80% max
	assert.Equal(t, domain.StatusHigh, DetermineStatus(p, DefaultThresholds))

	p = product(100, 90, 50)
	assert.Equal(t, domain.StatusValid, DetermineStatus(p, DefaultThresholds))
}

func TestPriceComparisonBoundaryIsExclusive(t *testing.T) {
	// diff exactly 5.0% stays aligned; the tiniest step past it flips.
	assert.Equal(t, domain.ComparisonAligned, PriceComparisonStatus(105, 100))
	assert.Equal(t, domain.ComparisonHigher, PriceComparisonStatus(105.0001, 100))
	assert.Equal(t, domain.ComparisonAligned, PriceComparisonStatus(95, 100))
	assert.Equal(t, domain.ComparisonLower, PriceComparisonStatus(94.9999, 100))
	assert.Equal(t, domain.ComparisonStatus(""), PriceComparisonStatus(100, 0))
}

func TestRecommendedPrice(t *testing.T) {
	// max(competitor*0.98, cost*1.1)
	assert.InDelta(t, 92.12, RecommendedPrice(100, 94, 70), 0.001) // 94*0.98 wins over 77
	assert.InDelta(t, 99.0, RecommendedPrice(100, 94, 90), 0.001)  // cost floor 99 wins
	// degraded floor at 70% of our price when cost is unknown
	assert.InDelta(t, 70.0, RecommendedPrice(100, 50, 0), 0.001)
	assert.Zero(t, RecommendedPrice(100, 0, 50))
}

func TestSpecExampleSellingVsCompetitor(t *testing.T) {
	// selling=100, competitor=94 → diff 6.38% → higher
	assert.Equal(t, domain.ComparisonHigher, PriceComparisonStatus(100, 94))
	// selling=100, competitor=110 → diff -9.09% → lower
	assert.Equal(t, domain.ComparisonLower, PriceComparisonStatus(100, 110))
}

func TestRecommendationText(t *testing.T) {
	assert.Contains(t, RecommendationText(100, 98, 50), "aligned with market")
	assert.Contains(t, RecommendationText(100, 120, 50), "lower")
	assert.Contains(t, RecommendationText(120, 100, 50), "higher")
}
