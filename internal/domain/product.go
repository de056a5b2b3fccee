package domain

import "time"

type Status string

const (
	StatusValid   Status = "valid"
	StatusLow     Status = "low"
	StatusHigh    Status = "high"
	StatusWarning Status = "warning"
)

type ComparisonStatus string

const (
	ComparisonAligned ComparisonStatus = "aligned"
	ComparisonLower   ComparisonStatus = "lower"
	ComparisonHigher  ComparisonStatus = "higher"
)

type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

type MatchStep string

const (
	MatchByTitle MatchStep = "title"
	MatchBySKU   MatchStep = "sku"
	MatchByBrand MatchStep = "brand"
)

type Country string

const (
	CountryIN Country = "IN"
	CountryUS Country = "US"
	CountryUK Country = "UK"
	CountryAE Country = "AE"
	CountryDE Country = "DE"
)

// Product is one catalog row under review. Zero-valued competitor fields mean
// "no competitor data yet". DiscountPercent and ProfitMargin are derived from
// the price fields and must be recomputed on every price edit.
type Product struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	SKU      string `json:"sku"`
	Category string `json:"category"`
	Brand    string `json:"brand,omitempty"`

	OriginalPrice   float64 `json:"originalPrice"`
	SellingPrice    float64 `json:"sellingPrice"`
	DiscountPercent float64 `json:"discountPercent"`
	CostPrice       float64 `json:"costPrice"`
	ProfitMargin    float64 `json:"profitMargin"`

	Status Status `json:"status"`

	CompetitorURL        string  `json:"competitorUrl,omitempty"`
	CompetitorPrice      float64 `json:"competitorPrice,omitempty"`
	CompetitorSource     string  `json:"competitorSource,omitempty"`
	CompetitorProductURL string  `json:"competitorProductUrl,omitempty"`

	LowestCompetitorPrice  float64               `json:"lowestCompetitorPrice,omitempty"`
	LowestCompetitorSource string                `json:"lowestCompetitorSource,omitempty"`
	LowestCompetitorURL    string                `json:"lowestCompetitorUrl,omitempty"`
	AllCompetitorPrices    []CompetitorPriceInfo `json:"allCompetitorPrices,omitempty"`

	Recommendation        string           `json:"recommendation,omitempty"`
	RecommendedPrice      float64          `json:"recommendedPrice,omitempty"`
	PriceComparisonStatus ComparisonStatus `json:"priceComparisonStatus,omitempty"`
	MatchedBy             MatchStep        `json:"matchedBy,omitempty"`
	MatchConfidence       float64          `json:"matchConfidence,omitempty"`
	IsFallback            bool             `json:"isFallback,omitempty"`
	AIError               string           `json:"aiError,omitempty"`
}

// RecalcDerived restores the discount/margin invariant after a price change.
func (p *Product) RecalcDerived() {
	if p.OriginalPrice > 0 {
		p.DiscountPercent = (p.OriginalPrice - p.SellingPrice) / p.OriginalPrice * 100
	} else {
		p.DiscountPercent = 0
	}
	if p.SellingPrice > 0 {
		p.ProfitMargin = (p.SellingPrice - p.CostPrice) / p.SellingPrice * 100
	} else {
		p.ProfitMargin = 0
	}
}

// BestCompetitorPrice prefers the lowest crawled price over a single match.
func (p *Product) BestCompetitorPrice() float64 {
	if p.LowestCompetitorPrice > 0 {
		return p.LowestCompetitorPrice
	}
	return p.CompetitorPrice
}

// PriceThreshold is the per-session validation configuration.
type PriceThreshold struct {
	MinDiscount        float64 `json:"minDiscount"`
	MaxDiscount        float64 `json:"maxDiscount"`
	MinMargin          float64 `json:"minMargin"`
	MaxMargin          float64 `json:"maxMargin"`
	LowPriceThreshold  float64 `json:"lowPriceThreshold"`
	HighPriceThreshold float64 `json:"highPriceThreshold"`
}

type ValidationResult struct {
	ProductID      string   `json:"productId"`
	Issues         []string `json:"issues"`
	Severity       Severity `json:"severity"`
	Recommendation string   `json:"recommendation"`
}

// MatchResult is the outcome of one competitor-price lookup. IsFallback and
// Error travel together: a fallback result carries a simulated price and must
// never be presented as AI-sourced.
type MatchResult struct {
	MatchedBy             MatchStep        `json:"matchedBy"`
	Confidence            float64          `json:"confidence"`
	CompetitorPrice       float64          `json:"competitorPrice"`
	CompetitorSource      string           `json:"competitorSource"`
	Country               Country          `json:"country"`
	CompetitorProductURL  string           `json:"competitorProductUrl,omitempty"`
	PriceComparisonStatus ComparisonStatus `json:"priceComparisonStatus,omitempty"`
	RecommendedPrice      float64          `json:"recommendedPrice,omitempty"`
	Recommendation        string           `json:"recommendation,omitempty"`
	IsFallback            bool             `json:"isFallback,omitempty"`
	Error                 string           `json:"error,omitempty"`
}

type CompetitorPriceInfo struct {
	Source      string    `json:"source"`
	Price       float64   `json:"price"`
	URL         string    `json:"url,omitempty"`
	Confidence  float64   `json:"confidence,omitempty"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// CrawlResult aggregates every competitor price found for one product.
type CrawlResult struct {
	ProductID    string                `json:"productId"`
	ProductName  string                `json:"productName"`
	Prices       []CompetitorPriceInfo `json:"prices"`
	LowestPrice  float64               `json:"lowestPrice,omitempty"`
	LowestSource string                `json:"lowestSource,omitempty"`
	LowestURL    string                `json:"lowestUrl,omitempty"`
	Error        string                `json:"error,omitempty"`
	IsCompleted  bool                  `json:"isCompleted"`
}

type AnalyticsSummary struct {
	TotalProducts        int     `json:"totalProducts"`
	ValidProducts        int     `json:"validProducts"`
	LowPricedProducts    int     `json:"lowPricedProducts"`
	HighPricedProducts   int     `json:"highPricedProducts"`
	AverageMargin        float64 `json:"averageMargin"`
	PotentialRevenueLoss float64 `json:"potentialRevenueLoss"`
}
