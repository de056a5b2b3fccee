package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func servePage(t *testing.T, html string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(html))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchPriceFromMeta(t *testing.T) {
	srv := servePage(t, `<html><head>
		<meta property="og:price:amount" content="1299.50"/>
	</head><body></body></html>`)

	info, err := NewPriceScraper().FetchPrice(context.Background(), srv.URL+"/gadget/p/itm1")
	require.NoError(t, err)
	assert.Equal(t, 1299.50, info.Price)
	assert.Equal(t, srv.URL+"/gadget/p/itm1", info.URL)
	assert.NotEmpty(t, info.Source)
	assert.Equal(t, 0.9, info.Confidence)
}

func TestFetchPriceFromJSONLD(t *testing.T) {
	srv := servePage(t, `<html><head>
		<script type="application/ld+json">
		{"@type":"Product","name":"Gadget","offers":{"@type":"Offer","price":"9,499","priceCurrency":"INR"}}
		</script>
	</head><body></body></html>`)

	info, err := NewPriceScraper().FetchPrice(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, 9499.0, info.Price)
}

func TestFetchPriceFromJSONLDGraph(t *testing.T) {
	srv := servePage(t, `<html><head>
		<script type="application/ld+json">
		{"@graph":[{"@type":"WebPage"},{"@type":"Product","offers":[{"lowPrice":499.0}]}]}
		</script>
	</head><body></body></html>`)

	info, err := NewPriceScraper().FetchPrice(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, 499.0, info.Price)
}

func TestFetchPriceFromPriceNode(t *testing.T) {
	srv := servePage(t, `<html><body>
		<div class="product-price">₹2,499</div>
	</body></html>`)

	info, err := NewPriceScraper().FetchPrice(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, 2499.0, info.Price)
}

func TestFetchPriceMetaWinsOverNodes(t *testing.T) {
	srv := servePage(t, `<html><head>
		<meta property="product:price:amount" content="1000"/>
	</head><body><div class="price">2000</div></body></html>`)

	info, err := NewPriceScraper().FetchPrice(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, 1000.0, info.Price)
}

func TestFetchPriceNoPrice(t *testing.T) {
	srv := servePage(t, `<html><body><p>out of stock</p></body></html>`)

	_, err := NewPriceScraper().FetchPrice(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no price found")
}

func TestFetchPriceBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	t.Cleanup(srv.Close)

	_, err := NewPriceScraper().FetchPrice(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status code: 403")
}

func TestParsePriceText(t *testing.T) {
	cases := map[string]float64{
		"₹1,299.00":   1299,
		"$ 45.50":     45.5,
		"1,70,000":    170000,
		"free":        0,
		"":            0,
		"MRP: ₹2,000": 2000,
	}
	for in, want := range cases {
		assert.Equal(t, want, parsePriceText(in), in)
	}
}
