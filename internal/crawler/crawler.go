// Package crawler walks the catalog sequentially, fetching competitor prices
// per product through the matcher (and an optional direct-page probe) with a
// fixed pacing interval between external calls.
package crawler

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/phenrril/pricelens/internal/domain"
	"github.com/phenrril/pricelens/internal/matcher"
	"github.com/phenrril/pricelens/internal/validation"
)

// Matcher is the competitor-price lookup the crawler drives.
type Matcher interface {
	Match(ctx context.Context, req matcher.Request) domain.MatchResult
}

// Prober fetches a price straight off a product page, skipping the AI call.
type Prober interface {
	FetchPrice(ctx context.Context, rawURL string) (domain.CompetitorPriceInfo, error)
}

// ProgressFunc reports batch progress as percent complete plus the product
// being processed.
type ProgressFunc func(percent float64, productName string)

const (
	defaultInterval      = 400 * time.Millisecond
	defaultMaxDefSources = 3
)

type Config struct {
	Matcher Matcher
	Prober  Prober // optional
	// Interval is the minimum gap between external calls. External endpoints
	// are rate limited, so the batch runs strictly one request at a time.
	Interval          time.Duration
	MaxDefaultSources int
	Logger            zerolog.Logger
}

type Crawler struct {
	m          Matcher
	prober     Prober
	limiter    *rate.Limiter
	maxSources int
	log        zerolog.Logger
}

func New(cfg Config) *Crawler {
	interval := cfg.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	maxSources := cfg.MaxDefaultSources
	if maxSources <= 0 {
		maxSources = defaultMaxDefSources
	}
	return &Crawler{
		m:          cfg.Matcher,
		prober:     cfg.Prober,
		limiter:    rate.NewLimiter(rate.Every(interval), 1),
		maxSources: maxSources,
		log:        cfg.Logger,
	}
}

// Crawl processes products one at a time. Lookup failures degrade per product
// and never abort the batch; only context cancellation stops it early, in
// which case the results collected so far are returned with the error.
func (c *Crawler) Crawl(ctx context.Context, products []domain.Product, country domain.Country, progress ProgressFunc) ([]domain.CrawlResult, error) {
	results := make([]domain.CrawlResult, 0, len(products))
	total := float64(len(products))

	for i, p := range products {
		if progress != nil {
			progress(float64(i)/total*100, p.Name)
		}
		res, err := c.crawlProduct(ctx, p, country)
		if err != nil {
			return results, err
		}
		results = append(results, res)
		c.log.Info().Str("product", p.Name).Int("prices", len(res.Prices)).Bool("completed", res.IsCompleted).Msg("product crawled")
	}

	if progress != nil {
		progress(100, "")
	}
	return results, nil
}

func (c *Crawler) crawlProduct(ctx context.Context, p domain.Product, country domain.Country) (domain.CrawlResult, error) {
	out := domain.CrawlResult{ProductID: p.ID, ProductName: p.Name}
	var prices []domain.CompetitorPriceInfo

	// Direct product pages can be scraped without burning an AI call.
	urls := matcher.ParseURLs(p.CompetitorURL)
	if c.prober != nil {
		for _, u := range urls {
			if !matcher.IsDirectProductURL(u) {
				continue
			}
			if err := c.limiter.Wait(ctx); err != nil {
				return out, err
			}
			info, err := c.prober.FetchPrice(ctx, u)
			if err != nil {
				c.log.Debug().Str("url", u).Err(err).Msg("direct page probe missed")
				continue
			}
			if info.Price > 0 {
				prices = append(prices, info)
			}
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return out, err
	}
	res := c.m.Match(ctx, matcher.Request{Product: p, Country: country})
	if !res.IsFallback && res.Error == "" && res.CompetitorPrice > 0 {
		prices = append(prices, priceInfo(res))
	}

	// Without a dedicated competitor URL (or when nothing was found), probe
	// the country's top default sources and keep every real hit.
	if p.CompetitorURL == "" || len(prices) == 0 {
		cfg := matcher.ConfigFor(country)
		n := c.maxSources
		if n > len(cfg.Sources) {
			n = len(cfg.Sources)
		}
		for _, src := range cfg.Sources[:n] {
			if err := c.limiter.Wait(ctx); err != nil {
				return out, err
			}
			r := c.m.Match(ctx, matcher.Request{Product: p, Country: country, URLs: src})
			if !r.IsFallback && r.Error == "" && r.CompetitorPrice > 0 {
				prices = append(prices, priceInfo(r))
			}
		}
	}

	out.Prices = prices
	if len(prices) > 0 {
		sort.Slice(prices, func(i, j int) bool { return prices[i].Price < prices[j].Price })
		out.LowestPrice = prices[0].Price
		out.LowestSource = prices[0].Source
		out.LowestURL = prices[0].URL
		out.IsCompleted = true
	}
	return out, nil
}

func priceInfo(res domain.MatchResult) domain.CompetitorPriceInfo {
	conf := res.Confidence
	if conf == 0 {
		conf = 0.5
	}
	return domain.CompetitorPriceInfo{
		Source:      res.CompetitorSource,
		Price:       res.CompetitorPrice,
		URL:         res.CompetitorProductURL,
		Confidence:  conf,
		LastUpdated: time.Now(),
	}
}

// Merge writes crawl results back into the catalog. Only competitor-derived
// fields are overwritten; user-edited selling prices are never touched.
func Merge(products []domain.Product, results []domain.CrawlResult, thresholds domain.PriceThreshold) []domain.Product {
	byID := make(map[string]domain.CrawlResult, len(results))
	for _, r := range results {
		byID[r.ProductID] = r
	}

	out := make([]domain.Product, len(products))
	copy(out, products)
	for i := range out {
		r, ok := byID[out[i].ID]
		if !ok || len(r.Prices) == 0 {
			continue
		}
		out[i].CompetitorPrice = r.LowestPrice
		out[i].CompetitorSource = r.LowestSource
		out[i].CompetitorProductURL = r.LowestURL
		out[i].LowestCompetitorPrice = r.LowestPrice
		out[i].LowestCompetitorSource = r.LowestSource
		out[i].LowestCompetitorURL = r.LowestURL
		out[i].AllCompetitorPrices = r.Prices

		out[i].RecalcDerived()
		out[i].Status = validation.DetermineStatus(out[i], thresholds)
		out[i].PriceComparisonStatus = validation.PriceComparisonStatus(out[i].SellingPrice, r.LowestPrice)
		out[i].RecommendedPrice = validation.RecommendedPrice(out[i].SellingPrice, r.LowestPrice, out[i].CostPrice)
		out[i].Recommendation = validation.RecommendationText(out[i].SellingPrice, r.LowestPrice, out[i].CostPrice)
	}
	return out
}
