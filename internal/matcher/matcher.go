// Package matcher looks up competitor prices through an OpenAI-compatible
// chat-completion endpoint, trying an ordered list of models and degrading to
// a clearly flagged simulated result when every attempt fails.
package matcher

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"github.com/phenrril/pricelens/internal/domain"
	"github.com/phenrril/pricelens/internal/validation"
)

// DefaultModel is the last-resort candidate when no override is configured.
const DefaultModel = "gpt-4.1"

const defaultTimeout = 30 * time.Second

type Config struct {
	APIKey  string
	BaseURL string // optional proxy/vendor override
	// Models are the configured candidates, tried first; a request-level
	// model and then DefaultModel are appended per lookup.
	Models  []string
	Timeout time.Duration
	// Rand drives the simulated fallback; seed it in tests for determinism.
	Rand   *rand.Rand
	Logger zerolog.Logger
}

type Client struct {
	api     *openai.Client
	models  []string
	timeout time.Duration
	log     zerolog.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

func New(cfg Config) *Client {
	occ := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		occ.BaseURL = cfg.BaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	rng := cfg.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Client{
		api:     openai.NewClientWithConfig(occ),
		models:  appendUnique(nil, cfg.Models...),
		timeout: timeout,
		log:     cfg.Logger,
		rng:     rng,
	}
}

func appendUnique(dst []string, vals ...string) []string {
	for _, v := range vals {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		seen := false
		for _, d := range dst {
			if d == v {
				seen = true
				break
			}
		}
		if !seen {
			dst = append(dst, v)
		}
	}
	return dst
}

// Request is one competitor-price lookup.
type Request struct {
	Product domain.Product
	Country domain.Country
	// URLs optionally restricts the search to a comma-separated site list;
	// when empty the product's own CompetitorURL, then the country defaults,
	// apply.
	URLs string
	// Model, when set, is tried after the configured candidates and before
	// DefaultModel.
	Model string
}

// Match resolves a competitor price for one product. It never returns an
// error: any failure degrades to a simulated fallback result with
// IsFallback=true and a descriptive Error, so a batch never aborts on a
// single product.
func (c *Client) Match(ctx context.Context, req Request) domain.MatchResult {
	p := req.Product
	cfg := ConfigFor(req.Country)

	customURLs := ParseURLs(req.URLs)
	if len(customURLs) == 0 {
		customURLs = ParseURLs(p.CompetitorURL)
	}
	direct := anyDirectProductURL(customURLs)

	scope := cfg.Sources
	if len(customURLs) > 0 {
		scope = customURLs
	}

	prompt := buildPrompt(p, cfg, scope, direct, len(customURLs) > 0)
	models := appendUnique(nil, c.models...)
	models = appendUnique(models, req.Model)
	models = appendUnique(models, DefaultModel)

	content, usedModel, errs := c.tryModels(ctx, models, prompt)
	if content == "" {
		msg := "No model responded"
		if len(errs) > 0 {
			msg = strings.Join(errs, " | ")
		}
		return c.fallback(p, req.Country, scope, fmt.Sprintf("AI attempts failed: %s", msg))
	}
	c.log.Debug().Str("model", usedModel).Str("product", p.Name).Msg("price lookup succeeded")

	reply, err := parseReply(content)
	if err != nil {
		return c.fallback(p, req.Country, scope, err.Error())
	}
	if !reply.Found || reply.Price <= 0 {
		return c.fallback(p, req.Country, scope,
			fmt.Sprintf("product %q not found on %s", p.Name, strings.Join(scope, ", ")))
	}
	if len(customURLs) > 0 && !withinAllowedHosts(reply.Source, reply.URL, customURLs) {
		return c.fallback(p, req.Country, scope,
			fmt.Sprintf("result came from outside provided URLs: %s", firstNonEmpty(reply.Source, reply.URL)))
	}

	res := domain.MatchResult{
		MatchedBy:            matchStep(reply.MatchedBy),
		Confidence:           math.Min(reply.Confidence, 1),
		CompetitorPrice:      reply.Price,
		CompetitorSource:     firstNonEmpty(reply.Source, strings.Join(scope, ", ")),
		Country:              req.Country,
		CompetitorProductURL: reply.URL,
	}
	res.PriceComparisonStatus = validation.PriceComparisonStatus(p.SellingPrice, reply.Price)
	res.RecommendedPrice = validation.RecommendedPrice(p.SellingPrice, reply.Price, p.CostPrice)
	res.Recommendation = validation.RecommendationText(p.SellingPrice, reply.Price, p.CostPrice)
	return res
}

// tryModels runs the candidates in order and returns the first successful
// completion, collecting one error message per failed attempt.
func (c *Client) tryModels(ctx context.Context, models []string, prompt string) (content, usedModel string, errs []string) {
	for _, model := range models {
		attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
		resp, err := c.api.CreateChatCompletion(attemptCtx, openai.ChatCompletionRequest{
			Model: model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
			Temperature: 0.2,
			MaxTokens:   600,
		})
		cancel()
		if err != nil {
			msg := fmt.Sprintf("model %s failed: %v", model, err)
			c.log.Warn().Str("model", model).Err(err).Msg("completion attempt failed")
			errs = append(errs, msg)
			continue
		}
		if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
			errs = append(errs, fmt.Sprintf("model %s returned an empty completion", model))
			continue
		}
		return resp.Choices[0].Message.Content, model, errs
	}
	return "", "", errs
}

type reply struct {
	Found      bool
	MatchedBy  string
	Price      float64
	Currency   string
	Source     string
	URL        string
	Confidence float64
	Notes      string
}

// parseReply strips code-fence wrapping and decodes the model's JSON answer,
// tolerating numeric fields that arrive as strings.
func parseReply(content string) (*reply, error) {
	clean := strings.TrimSpace(content)
	clean = strings.ReplaceAll(clean, "```json", "")
	clean = strings.ReplaceAll(clean, "```", "")
	clean = strings.TrimSpace(clean)

	var raw struct {
		Found      bool            `json:"found"`
		MatchedBy  string          `json:"matchedBy"`
		Price      json.RawMessage `json:"price"`
		Currency   string          `json:"currency"`
		Source     string          `json:"source"`
		URL        string          `json:"url"`
		Confidence json.RawMessage `json:"confidence"`
		Notes      string          `json:"notes"`
	}
	if err := json.Unmarshal([]byte(clean), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse AI response: %w", err)
	}

	r := &reply{
		Found:     raw.Found,
		MatchedBy: raw.MatchedBy,
		Currency:  raw.Currency,
		Source:    raw.Source,
		URL:       raw.URL,
		Notes:     raw.Notes,
	}
	if raw.Found {
		price, err := numericField(raw.Price)
		if err != nil {
			return nil, fmt.Errorf("invalid price value in AI response: %s", string(raw.Price))
		}
		r.Price = price
	}
	if conf, err := numericField(raw.Confidence); err == nil && conf > 0 {
		r.Confidence = conf
	} else {
		r.Confidence = 0.9
	}
	return r, nil
}

func numericField(raw json.RawMessage) (float64, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return 0, fmt.Errorf("missing numeric field")
	}
	s = strings.Trim(s, `"`)
	return strconv.ParseFloat(s, 64)
}

// withinAllowedHosts verifies the returned source or URL belongs to one of
// the caller-provided sites.
func withinAllowedHosts(source, resultURL string, allowed []string) bool {
	hosts := make([]string, 0, len(allowed))
	for _, a := range allowed {
		hosts = append(hosts, normalizeHost(a))
	}

	resultHost := ""
	if resultURL != "" {
		resultHost = normalizeHost(resultURL)
	}
	src := strings.ToLower(source)

	for _, h := range hosts {
		if h == "" {
			continue
		}
		if resultHost != "" && strings.Contains(resultHost, h) {
			return true
		}
		if src != "" && (strings.Contains(src, h) || strings.Contains(src, strings.ReplaceAll(h, ".", ""))) {
			return true
		}
	}
	return false
}

func normalizeHost(raw string) string {
	if u, err := url.Parse(raw); err == nil && u.Hostname() != "" {
		return strings.ToLower(strings.TrimPrefix(u.Hostname(), "www."))
	}
	s := strings.TrimPrefix(strings.TrimPrefix(raw, "https://"), "http://")
	s = strings.TrimPrefix(s, "www.")
	if i := strings.IndexByte(s, '/'); i >= 0 {
		s = s[:i]
	}
	return strings.ToLower(s)
}

func matchStep(s string) domain.MatchStep {
	switch domain.MatchStep(s) {
	case domain.MatchBySKU:
		return domain.MatchBySKU
	case domain.MatchByBrand:
		return domain.MatchByBrand
	default:
		return domain.MatchByTitle
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
