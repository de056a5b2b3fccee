// Package usecase holds the session-scoped catalog operations behind the
// dashboard API. A session is one uploaded spreadsheet plus its working state;
// everything lives in memory and dies with the process, except the upload
// audit trail which goes to the optional repo.
package usecase

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/phenrril/pricelens/internal/adapters/spreadsheet"
	"github.com/phenrril/pricelens/internal/analytics"
	"github.com/phenrril/pricelens/internal/crawler"
	"github.com/phenrril/pricelens/internal/domain"
	"github.com/phenrril/pricelens/internal/matcher"
	"github.com/phenrril/pricelens/internal/pricing"
	"github.com/phenrril/pricelens/internal/validation"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrProductNotFound = errors.New("product not found")
	ErrInvalidPrice    = errors.New("price must be a positive number")
)

// Matcher resolves a competitor price for one product.
type Matcher interface {
	Match(ctx context.Context, req matcher.Request) domain.MatchResult
}

// BatchCrawler walks a catalog collecting competitor prices.
type BatchCrawler interface {
	Crawl(ctx context.Context, products []domain.Product, country domain.Country, progress crawler.ProgressFunc) ([]domain.CrawlResult, error)
}

type session struct {
	id         string
	fileName   string
	products   []domain.Product
	rawRows    []spreadsheet.RawRow
	headers    []string
	thresholds domain.PriceThreshold
	createdAt  time.Time
}

type SessionUC struct {
	mu       sync.RWMutex
	sessions map[string]*session

	matcher Matcher
	crawler BatchCrawler
	uploads domain.UploadRepo // nil when running memory-only
	log     zerolog.Logger
}

func NewSessionUC(m Matcher, c BatchCrawler, uploads domain.UploadRepo, log zerolog.Logger) *SessionUC {
	return &SessionUC{
		sessions: make(map[string]*session),
		matcher:  m,
		crawler:  c,
		uploads:  uploads,
		log:      log,
	}
}

// IngestResult is the snapshot returned after an upload.
type IngestResult struct {
	SessionID  string                `json:"sessionId"`
	Products   []domain.Product      `json:"products"`
	Thresholds domain.PriceThreshold `json:"thresholds"`
	RowCount   int                   `json:"rowCount"`
	Skipped    []domain.SkippedRow   `json:"skipped,omitempty"`
}

// Ingest parses an uploaded sheet into a fresh session. A parse failure
// creates no session and records nothing.
func (uc *SessionUC) Ingest(ctx context.Context, fileName string, data []byte) (*IngestResult, error) {
	parsed, err := spreadsheet.Parse(fileName, data, validation.DefaultThresholds)
	if err != nil {
		return nil, err
	}

	s := &session{
		id:         uuid.NewString(),
		fileName:   fileName,
		products:   parsed.Products,
		rawRows:    parsed.RawRows,
		headers:    parsed.Headers,
		thresholds: validation.DefaultThresholds,
		createdAt:  time.Now(),
	}

	uc.mu.Lock()
	uc.sessions[s.id] = s
	uc.mu.Unlock()

	uc.recordUpload(ctx, s, parsed.Skipped)
	uc.log.Info().Str("session", s.id).Str("file", fileName).Int("products", len(s.products)).Int("skipped", len(parsed.Skipped)).Msg("spreadsheet ingested")

	return &IngestResult{
		SessionID:  s.id,
		Products:   snapshot(s.products),
		Thresholds: s.thresholds,
		RowCount:   len(parsed.Products) + len(parsed.Skipped),
		Skipped:    parsed.Skipped,
	}, nil
}

// recordUpload is best-effort: audit failures are logged, never surfaced.
func (uc *SessionUC) recordUpload(ctx context.Context, s *session, skipped []domain.SkippedRow) {
	if uc.uploads == nil {
		return
	}
	rec := domain.UploadRecord{
		ID:           uuid.MustParse(s.id),
		FileName:     s.fileName,
		RowCount:     len(s.products) + len(skipped),
		ProductCount: len(s.products),
		SkippedCount: len(skipped),
		Status:       "processed",
	}
	if err := uc.uploads.Save(ctx, &rec); err != nil {
		uc.log.Warn().Err(err).Msg("upload record not saved")
		return
	}
	for i := range skipped {
		skipped[i].UploadID = rec.ID
	}
	if err := uc.uploads.AddSkipped(ctx, skipped); err != nil {
		uc.log.Warn().Err(err).Msg("skipped rows not saved")
	}
}

func (uc *SessionUC) Products(sessionID string) ([]domain.Product, error) {
	uc.mu.RLock()
	defer uc.mu.RUnlock()
	s, ok := uc.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return snapshot(s.products), nil
}

func (uc *SessionUC) Thresholds(sessionID string) (domain.PriceThreshold, error) {
	uc.mu.RLock()
	defer uc.mu.RUnlock()
	s, ok := uc.sessions[sessionID]
	if !ok {
		return domain.PriceThreshold{}, ErrSessionNotFound
	}
	return s.thresholds, nil
}

// EditPrice sets a product's selling price and restores every derived field.
// Invalid prices leave the product untouched.
func (uc *SessionUC) EditPrice(sessionID, productID string, price float64) (domain.Product, error) {
	if price <= 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		return domain.Product{}, ErrInvalidPrice
	}

	uc.mu.Lock()
	defer uc.mu.Unlock()
	s, ok := uc.sessions[sessionID]
	if !ok {
		return domain.Product{}, ErrSessionNotFound
	}
	i := indexOf(s.products, productID)
	if i < 0 {
		return domain.Product{}, ErrProductNotFound
	}

	p := &s.products[i]
	p.SellingPrice = price
	refresh(p, s.thresholds)
	return *p, nil
}

// SetThresholds replaces the session thresholds and revalidates every product.
func (uc *SessionUC) SetThresholds(sessionID string, t domain.PriceThreshold) ([]domain.Product, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	s, ok := uc.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	s.thresholds = t
	for i := range s.products {
		refresh(&s.products[i], t)
	}
	return snapshot(s.products), nil
}

func (uc *SessionUC) Validation(sessionID string) ([]domain.ValidationResult, error) {
	uc.mu.RLock()
	defer uc.mu.RUnlock()
	s, ok := uc.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	out := make([]domain.ValidationResult, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, validation.Validate(p, s.thresholds))
	}
	return out, nil
}

// AnalyticsReport bundles the aggregate views the dashboard renders.
type AnalyticsReport struct {
	Summary       domain.AnalyticsSummary `json:"summary"`
	Optimization  pricing.Summary         `json:"optimization"`
	Opportunities []pricing.Opportunity   `json:"opportunities"`
}

func (uc *SessionUC) Analytics(sessionID string) (*AnalyticsReport, error) {
	uc.mu.RLock()
	defer uc.mu.RUnlock()
	s, ok := uc.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return &AnalyticsReport{
		Summary:       analytics.Summarize(s.products),
		Optimization:  pricing.Summarize(s.products),
		Opportunities: pricing.Opportunities(s.products),
	}, nil
}

func (uc *SessionUC) Optimization(sessionID, productID string) (pricing.Optimization, error) {
	uc.mu.RLock()
	defer uc.mu.RUnlock()
	s, ok := uc.sessions[sessionID]
	if !ok {
		return pricing.Optimization{}, ErrSessionNotFound
	}
	i := indexOf(s.products, productID)
	if i < 0 {
		return pricing.Optimization{}, ErrProductNotFound
	}
	return pricing.Optimize(s.products[i]), nil
}

// MatchProduct runs one competitor lookup and folds the result into the
// product. The matcher never fails outright, so neither does this.
func (uc *SessionUC) MatchProduct(ctx context.Context, sessionID, productID, urls string, country domain.Country, model string) (domain.Product, domain.MatchResult, error) {
	uc.mu.RLock()
	s, ok := uc.sessions[sessionID]
	if !ok {
		uc.mu.RUnlock()
		return domain.Product{}, domain.MatchResult{}, ErrSessionNotFound
	}
	i := indexOf(s.products, productID)
	if i < 0 {
		uc.mu.RUnlock()
		return domain.Product{}, domain.MatchResult{}, ErrProductNotFound
	}
	p := s.products[i]
	uc.mu.RUnlock()

	res := uc.matcher.Match(ctx, matcher.Request{Product: p, Country: country, URLs: urls, Model: model})

	uc.mu.Lock()
	defer uc.mu.Unlock()
	// Session may have vanished while the lookup ran.
	s, ok = uc.sessions[sessionID]
	if !ok {
		return domain.Product{}, res, ErrSessionNotFound
	}
	i = indexOf(s.products, productID)
	if i < 0 {
		return domain.Product{}, res, ErrProductNotFound
	}
	applyMatch(&s.products[i], res, s.thresholds)
	return s.products[i], res, nil
}

// Crawl runs the batch crawler over the session's catalog and merges the
// lowest prices back in. Selling prices are never modified by a crawl.
func (uc *SessionUC) Crawl(ctx context.Context, sessionID string, country domain.Country, progress crawler.ProgressFunc) ([]domain.Product, []domain.CrawlResult, error) {
	uc.mu.RLock()
	s, ok := uc.sessions[sessionID]
	if !ok {
		uc.mu.RUnlock()
		return nil, nil, ErrSessionNotFound
	}
	products := snapshot(s.products)
	uc.mu.RUnlock()

	results, err := uc.crawler.Crawl(ctx, products, country, progress)
	if err != nil {
		return nil, results, err
	}

	uc.mu.Lock()
	defer uc.mu.Unlock()
	s, ok = uc.sessions[sessionID]
	if !ok {
		return nil, results, ErrSessionNotFound
	}
	s.products = crawler.Merge(s.products, results, s.thresholds)
	return snapshot(s.products), results, nil
}

// Export renders the session back to CSV with the current selling prices.
func (uc *SessionUC) Export(sessionID string) ([]byte, string, error) {
	uc.mu.RLock()
	defer uc.mu.RUnlock()
	s, ok := uc.sessions[sessionID]
	if !ok {
		return nil, "", ErrSessionNotFound
	}
	data, err := spreadsheet.ExportCSV(s.products, s.rawRows, s.headers)
	if err != nil {
		return nil, "", err
	}
	return data, s.fileName, nil
}

// refresh restores the derived-field invariant after any mutation.
func refresh(p *domain.Product, t domain.PriceThreshold) {
	p.RecalcDerived()
	p.Status = validation.DetermineStatus(*p, t)
	comp := p.BestCompetitorPrice()
	p.PriceComparisonStatus = validation.PriceComparisonStatus(p.SellingPrice, comp)
	if comp > 0 {
		p.RecommendedPrice = validation.RecommendedPrice(p.SellingPrice, comp, p.CostPrice)
		p.Recommendation = validation.RecommendationText(p.SellingPrice, comp, p.CostPrice)
	}
}

func applyMatch(p *domain.Product, res domain.MatchResult, t domain.PriceThreshold) {
	p.CompetitorPrice = res.CompetitorPrice
	p.CompetitorSource = res.CompetitorSource
	p.CompetitorProductURL = res.CompetitorProductURL
	p.MatchedBy = res.MatchedBy
	p.MatchConfidence = res.Confidence
	p.IsFallback = res.IsFallback
	p.AIError = res.Error
	p.PriceComparisonStatus = res.PriceComparisonStatus
	p.RecommendedPrice = res.RecommendedPrice
	p.Recommendation = res.Recommendation
	p.RecalcDerived()
	p.Status = validation.DetermineStatus(*p, t)
}

func indexOf(products []domain.Product, id string) int {
	for i := range products {
		if products[i].ID == id {
			return i
		}
	}
	return -1
}

func snapshot(products []domain.Product) []domain.Product {
	out := make([]domain.Product, len(products))
	copy(out, products)
	return out
}
