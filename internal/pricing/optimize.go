package pricing

import (
	"fmt"
	"math"
	"sort"

	"github.com/phenrril/pricelens/internal/domain"
)

type Strategy string

const (
	StrategyCompete   Strategy = "compete"
	StrategyPremium   Strategy = "premium"
	StrategyMaximize  Strategy = "maximize"
	StrategyPenetrate Strategy = "penetrate"
)

type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

type Recommendation struct {
	Strategy     Strategy  `json:"strategy"`
	TargetPrice  float64   `json:"targetPrice"`
	TargetMargin float64   `json:"targetMargin"`
	Reasoning    string    `json:"reasoning"`
	RiskLevel    RiskLevel `json:"riskLevel"`
}

type PositioningStatus string

const (
	PositionCheaper PositioningStatus = "cheaper"
	PositionAligned PositioningStatus = "aligned"
	PositionPremium PositioningStatus = "premium"
)

type Positioning struct {
	Status               PositioningStatus `json:"status"`
	CompetitivenessScore float64           `json:"competitivenessScore"`
	RecommendedAction    string            `json:"recommendedAction"`
	PotentialRevenue     float64           `json:"potentialRevenue"`
}

// Optimization is the full pricing picture for one product: a ladder of
// prices at reference margins, strategy recommendations, and positioning
// against the lowest known competitor price.
type Optimization struct {
	CurrentPrice          float64 `json:"currentPrice"`
	CurrentMargin         float64 `json:"currentMargin"`
	LowestCompetitorPrice float64 `json:"lowestCompetitorPrice,omitempty"`
	CompetitorAdvantage   float64 `json:"competitorAdvantage,omitempty"`
	HasCompetitorData     bool    `json:"hasCompetitorData"`

	PriceAt15Margin float64 `json:"priceAt15Margin"`
	PriceAt20Margin float64 `json:"priceAt20Margin"`
	PriceAt25Margin float64 `json:"priceAt25Margin"`
	PriceAt30Margin float64 `json:"priceAt30Margin"`
	PriceAt40Margin float64 `json:"priceAt40Margin"`
	PriceAt50Margin float64 `json:"priceAt50Margin"`

	Recommendations []Recommendation `json:"recommendations"`
	Positioning     Positioning      `json:"positioningAnalysis"`
}

// Optimize computes pricing strategies for a product.
func Optimize(p domain.Product) Optimization {
	cost := p.CostPrice
	current := p.SellingPrice
	lowest := p.BestCompetitorPrice()

	opt := Optimization{
		CurrentPrice:          current,
		CurrentMargin:         p.ProfitMargin,
		LowestCompetitorPrice: lowest,
		HasCompetitorData:     lowest > 0,
		PriceAt15Margin:       PriceForMargin(cost, 15),
		PriceAt20Margin:       PriceForMargin(cost, 20),
		PriceAt25Margin:       PriceForMargin(cost, 25),
		PriceAt30Margin:       PriceForMargin(cost, 30),
		PriceAt40Margin:       PriceForMargin(cost, 40),
		PriceAt50Margin:       PriceForMargin(cost, 50),
	}
	if lowest > 0 {
		opt.CompetitorAdvantage = (current - lowest) / lowest * 100
	}

	opt.Recommendations = recommend(p, cost, current, lowest, opt.CompetitorAdvantage)
	opt.Positioning = position(current, lowest)
	return opt
}

func recommend(p domain.Product, cost, current, lowest, advantage float64) []Recommendation {
	recs := []Recommendation{}

	// Undercut the lowest competitor by 2%, but only while the margin stays
	// at a healthy 15% or better.
	if lowest > 0 {
		competePrice := round2(lowest * 0.98)
		competeMargin := MarginForPrice(competePrice, cost)
		if competeMargin >= 15 {
			risk := RiskMedium
			if competeMargin < 20 {
				risk = RiskHigh
			}
			recs = append(recs, Recommendation{
				Strategy:     StrategyCompete,
				TargetPrice:  competePrice,
				TargetMargin: competeMargin,
				Reasoning:    fmt.Sprintf("Match/undercut competitor price (%.2f) while maintaining %.1f%% margin", lowest, competeMargin),
				RiskLevel:    risk,
			})
		}
	}

	// Room to raise: we are more than 10% cheaper, so move up to 5% below the
	// competitor as long as that yields at least 25% margin.
	if lowest > 0 && advantage < -10 {
		premiumPrice := round2(lowest * 0.95)
		premiumMargin := MarginForPrice(premiumPrice, cost)
		if premiumMargin >= 25 {
			recs = append(recs, Recommendation{
				Strategy:     StrategyPremium,
				TargetPrice:  premiumPrice,
				TargetMargin: premiumMargin,
				Reasoning:    fmt.Sprintf("You're %.1f%% cheaper. Increase to %.2f and still beat competitor by 5%%", math.Abs(advantage), premiumPrice),
				RiskLevel:    RiskLow,
			})
		}
	}

	// 30% margin sweet spot, as long as it stays within 10% of the
	// competitor floor.
	maximizePrice := PriceForMargin(cost, 30)
	if current != maximizePrice && maximizePrice > lowest*0.9 {
		recs = append(recs, Recommendation{
			Strategy:     StrategyMaximize,
			TargetPrice:  maximizePrice,
			TargetMargin: 30,
			Reasoning:    fmt.Sprintf("Set price to %.2f for balanced 30%% margin (sweet spot between profitability & competitiveness)", maximizePrice),
			RiskLevel:    RiskLow,
		})
	}

	// Trade margin for volume when there is margin to spare.
	if p.ProfitMargin > 25 {
		penetratePrice := PriceForMargin(cost, 20)
		recs = append(recs, Recommendation{
			Strategy:     StrategyPenetrate,
			TargetPrice:  penetratePrice,
			TargetMargin: 20,
			Reasoning:    fmt.Sprintf("Reduce to %.2f for 20%% margin. Lower price = higher sales volume potential", penetratePrice),
			RiskLevel:    RiskMedium,
		})
	}

	return recs
}

func position(current, lowest float64) Positioning {
	if lowest <= 0 {
		return Positioning{
			Status:               PositionAligned,
			CompetitivenessScore: 50,
			RecommendedAction:    "No competitor data - maintain current pricing",
		}
	}

	diff := current - lowest
	diffPercent := diff / lowest * 100

	pos := Positioning{PotentialRevenue: diff}
	switch {
	case diffPercent < -5:
		pos.Status = PositionCheaper
		pos.CompetitivenessScore = math.Min(100, 75+math.Abs(diffPercent)/2)
		pos.RecommendedAction = fmt.Sprintf("Excellent: you're %.1f%% cheaper. Consider raising price to increase margins.", math.Abs(diffPercent))
	case diffPercent > 5:
		pos.Status = PositionPremium
		pos.CompetitivenessScore = math.Max(0, 50-diffPercent)
		pos.RecommendedAction = fmt.Sprintf("Warning: you're %.1f%% more expensive. Consider matching competitor price.", diffPercent)
	default:
		pos.Status = PositionAligned
		pos.CompetitivenessScore = 75
		pos.RecommendedAction = "Good: you're aligned with competitor within 5%. Maintain current positioning."
	}
	return pos
}

// OptimizeAll runs Optimize over a whole catalog, keyed by product ID.
func OptimizeAll(products []domain.Product) map[string]Optimization {
	out := make(map[string]Optimization, len(products))
	for _, p := range products {
		out[p.ID] = Optimize(p)
	}
	return out
}

// Opportunity ranks a product by how much pricing headroom it has.
type Opportunity struct {
	Product          domain.Product `json:"product"`
	Optimization     Optimization   `json:"optimization"`
	ProfitDifference float64        `json:"profitDifference"`
	PriorityScore    float64        `json:"priorityScore"`
}

const targetMargin = 30

// Opportunities sorts products by optimization opportunity, highest first.
func Opportunities(products []domain.Product) []Opportunity {
	out := make([]Opportunity, 0, len(products))
	for _, p := range products {
		opt := Optimize(p)
		optimalPrice := PriceForMargin(p.CostPrice, targetMargin)
		profitDiff := (optimalPrice - p.CostPrice) - (p.SellingPrice - p.CostPrice)

		score := math.Abs(p.ProfitMargin-targetMargin) * 2
		if opt.HasCompetitorData {
			if opt.CompetitorAdvantage < -15 {
				score += 20
			} else if opt.CompetitorAdvantage > 15 {
				score += 10
			}
		}

		out = append(out, Opportunity{Product: p, Optimization: opt, ProfitDifference: profitDiff, PriorityScore: score})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].PriorityScore > out[j].PriorityScore })
	return out
}

// Summary aggregates optimization opportunities for the dashboard.
type Summary struct {
	TotalProducts              int           `json:"totalProducts"`
	AverageCurrentMargin       float64       `json:"averageCurrentMargin"`
	TotalPotentialImprovement  float64       `json:"totalPotentialMarginImprovement"`
	ProductsWithCompetitorData int           `json:"productsWithCompetitorData"`
	ProductsUnderpriced        int           `json:"productsUnderpriced"`
	ProductsOverpriced         int           `json:"productsOverpriced"`
	TopOpportunities           []Opportunity `json:"topOpportunities"`
}

func Summarize(products []domain.Product) Summary {
	s := Summary{TotalProducts: len(products)}
	if len(products) == 0 {
		return s
	}

	opps := Opportunities(products)
	var marginSum float64
	for _, p := range products {
		marginSum += p.ProfitMargin
		lowest := p.BestCompetitorPrice()
		if lowest > 0 {
			s.ProductsWithCompetitorData++
			if p.SellingPrice < lowest*0.95 {
				s.ProductsUnderpriced++
			}
			if p.SellingPrice > lowest*1.15 {
				s.ProductsOverpriced++
			}
		}
	}
	s.AverageCurrentMargin = marginSum / float64(len(products))
	for _, o := range opps {
		s.TotalPotentialImprovement += o.ProfitDifference
	}
	if len(opps) > 5 {
		opps = opps[:5]
	}
	s.TopOpportunities = opps
	return s
}
