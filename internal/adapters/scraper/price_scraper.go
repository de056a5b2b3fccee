// Package scraper pulls prices straight off competitor product pages. It is
// the cheap path the crawler tries before spending an AI call on a URL that
// already points at a specific product.
package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/phenrril/pricelens/internal/domain"
)

type PriceScraper struct {
	client *http.Client
}

func NewPriceScraper() *PriceScraper {
	return &PriceScraper{
		client: &http.Client{
			Timeout: 20 * time.Second,
		},
	}
}

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

var priceTextRe = regexp.MustCompile(`[\d][\d,]*(?:\.\d+)?`)

// FetchPrice downloads the page and tries the structured sources first
// (price metas, schema.org markup, JSON-LD offers), then falls back to the
// usual price-node selectors retailers use.
func (s *PriceScraper) FetchPrice(ctx context.Context, rawURL string) (domain.CompetitorPriceInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return domain.CompetitorPriceInfo{}, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return domain.CompetitorPriceInfo{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.CompetitorPriceInfo{}, fmt.Errorf("status code: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return domain.CompetitorPriceInfo{}, err
	}

	price := extractPrice(doc)
	if price <= 0 {
		return domain.CompetitorPriceInfo{}, fmt.Errorf("no price found on %s", rawURL)
	}

	return domain.CompetitorPriceInfo{
		Source:      hostOf(rawURL),
		Price:       price,
		URL:         rawURL,
		Confidence:  0.9,
		LastUpdated: time.Now(),
	}, nil
}

func extractPrice(doc *goquery.Document) float64 {
	// 1. Price metas
	for _, sel := range []string{
		`meta[property="product:price:amount"]`,
		`meta[property="og:price:amount"]`,
		`meta[itemprop="price"]`,
	} {
		if content, ok := doc.Find(sel).First().Attr("content"); ok {
			if p := parsePriceText(content); p > 0 {
				return p
			}
		}
	}

	// 2. schema.org microdata
	var price float64
	doc.Find(`[itemprop="price"]`).EachWithBreak(func(i int, sel *goquery.Selection) bool {
		text := sel.AttrOr("content", sel.Text())
		if p := parsePriceText(text); p > 0 {
			price = p
			return false
		}
		return true
	})
	if price > 0 {
		return price
	}

	// 3. JSON-LD product offers
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(i int, sel *goquery.Selection) bool {
		if p := priceFromJSONLD(sel.Text()); p > 0 {
			price = p
			return false
		}
		return true
	})
	if price > 0 {
		return price
	}

	// 4. Common retailer price nodes
	for _, sel := range []string{
		".price", ".product-price", ".selling-price", ".offer-price",
		"#priceblock_ourprice", "span.a-price-whole", "div._30jeq3",
	} {
		text := strings.TrimSpace(doc.Find(sel).First().Text())
		if p := parsePriceText(text); p > 0 {
			return p
		}
	}
	return 0
}

// priceFromJSONLD walks a JSON-LD blob looking for offers.price. Both single
// objects and @graph-style arrays appear in the wild, as do string prices.
func priceFromJSONLD(raw string) float64 {
	var node interface{}
	if err := json.Unmarshal([]byte(raw), &node); err != nil {
		return 0
	}
	return offersPrice(node)
}

func offersPrice(node interface{}) float64 {
	switch v := node.(type) {
	case []interface{}:
		for _, item := range v {
			if p := offersPrice(item); p > 0 {
				return p
			}
		}
	case map[string]interface{}:
		if offers, ok := v["offers"]; ok {
			if p := priceField(offers); p > 0 {
				return p
			}
		}
		if graph, ok := v["@graph"]; ok {
			if p := offersPrice(graph); p > 0 {
				return p
			}
		}
	}
	return 0
}

func priceField(offers interface{}) float64 {
	switch v := offers.(type) {
	case []interface{}:
		for _, item := range v {
			if p := priceField(item); p > 0 {
				return p
			}
		}
	case map[string]interface{}:
		for _, key := range []string{"price", "lowPrice"} {
			switch pv := v[key].(type) {
			case float64:
				if pv > 0 {
					return pv
				}
			case string:
				if p := parsePriceText(pv); p > 0 {
					return p
				}
			}
		}
	}
	return 0
}

// parsePriceText pulls the first number out of arbitrary price text, so
// "₹1,299.00" and "1 299,00 ₹" style values both work. Thousands separators
// are stripped.
func parsePriceText(text string) float64 {
	m := priceTextRe.FindString(text)
	if m == "" {
		return 0
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(m, ",", ""), 64)
	if err != nil {
		return 0
	}
	return f
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	return strings.TrimPrefix(u.Host, "www.")
}
