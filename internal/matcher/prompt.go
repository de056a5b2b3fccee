package matcher

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/phenrril/pricelens/internal/domain"
)

// ParseURLs splits a comma-separated URL list, trimming entries and
// prefixing https:// where the scheme is missing.
func ParseURLs(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var urls []string
	for _, part := range strings.Split(raw, ",") {
		u := strings.TrimSpace(part)
		if u == "" {
			continue
		}
		if !strings.HasPrefix(u, "http") {
			u = "https://" + u
		}
		urls = append(urls, u)
	}
	return urls
}

var productPathRe = regexp.MustCompile(`(?i)/[a-z0-9-]+/p/`)

// IsDirectProductURL reports whether a URL points at a specific product page
// rather than a storefront, which switches the lookup to direct-fetch mode.
func IsDirectProductURL(u string) bool {
	return strings.Contains(u, "/p/") || strings.Contains(u, "/product/") || productPathRe.MatchString(u)
}

func anyDirectProductURL(urls []string) bool {
	for _, u := range urls {
		if IsDirectProductURL(u) {
			return true
		}
	}
	return false
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}

// buildPrompt composes the price-research instruction: search scope, the
// strict title → brand → SKU matching order, and the machine-readable JSON
// reply schema the model must emit.
func buildPrompt(p domain.Product, cfg CountryConfig, scope []string, direct, restricted bool) string {
	websites := strings.Join(scope, ", ")

	var strategy string
	switch {
	case direct:
		strategy = fmt.Sprintf(`DIRECT URL(S) PROVIDED:
- Fetch the price from these EXACT product URL(s): %s
- Extract the MAIN LIST PRICE shown on each product page
- Do NOT search other websites or products
- If multiple URLs: return the most reliable match
- IMPORTANT: Do not return prices from any websites not listed above; if not found on these URLs, return found:false`, websites)
	case restricted:
		strategy = fmt.Sprintf(`SEARCH STRATEGY (Multiple Websites):
- Search ONLY within these websites: %s
- Find the product on ANY of these websites
- Use title/SKU/brand matching to locate the exact product
- Return the best/most reliable match across these websites
- IMPORTANT: Do NOT search or return results from other websites. If the product is not available on these websites, return found:false`, websites)
	default:
		strategy = fmt.Sprintf(`SEARCH STRATEGY (Like Google Search):
- Search across these competitor websites: %s
- Find the product on ANY of these websites
- Pick the one with the BEST/most reliable match`, websites)
	}

	var matchingSteps string
	if !direct {
		matchingSteps = fmt.Sprintf(`
MULTI-STEP MATCHING (Use in this exact order):
1. FIRST: Search using the FULL PRODUCT NAME/TITLE: "%s"
  - Look for exact or near-exact title matches (including model/version/spec)
  - If multiple results, prefer the first listed or highest rated
  - If a match is found, return that result immediately

2. IF NOT FOUND by full title: Search using BRAND ONLY: "%s"
  - Browse the brand's listings on each website and look for identical or very similar models
  - Prefer matches that include the exact model number or SKU in the title or product details

3. IF STILL NOT FOUND by brand: Search using the SKU/ID: "%s"
  - Search using the SKU across the selected websites and product pages
  - Match SKU exactly when possible

IF NONE OF THE ABOVE YIELD A MATCH, return found:false (price:null) and include a short note explaining that the product was not found on the provided websites.`,
			p.Name, orNA(p.Brand), orNA(p.SKU))
	}

	matchedByHint := `"title" or "sku" or "brand"`
	confidenceHint := "0.0_to_1.0 (1.0 for exact title match, 0.85 for SKU match, 0.65 for brand match)"
	if direct {
		matchedByHint = `"direct"`
		confidenceHint = "1.0 for direct URL fetch"
	}

	return fmt.Sprintf(`You are a comprehensive price research assistant. Your task is to find the EXACT CURRENT LIST PRICE for a product from the best available source.

PRODUCT DETAILS:
- Product Name: %s
- SKU/ID: %s
- Brand: %s
- Target Country: %s
- Currency: %s (%s)

%s
%s

PRICING EXTRACTION (CRITICAL):
Once you find the product:
- Extract the EXACT LIST PRICE displayed on the website, as a number only
- Ignore sale or promotional pricing unless labeled as current
- Record the EXACT URL of the product page and which website it came from

RESPONSE FORMAT:
You MUST respond with ONLY valid JSON, no markdown, no explanations, no additional text:

{
  "found": true/false,
  "matchedBy": %s,
  "price": exact_number_only (null if not found),
  "currency": "%s",
  "source": "website_name_where_found",
  "url": "exact_product_url",
  "confidence": %s,
  "notes": "short_note"
}`,
		p.Name, orNA(p.SKU), orNA(p.Brand), cfg.Name, cfg.Currency, cfg.CurrencySymbol,
		strategy, matchingSteps, matchedByHint, cfg.Currency, confidenceHint)
}
