package matcher

import "github.com/phenrril/pricelens/internal/domain"

// CountryConfig describes a target market: its currency and the default
// competitor sites searched when the caller restricts nothing.
type CountryConfig struct {
	Code           domain.Country `json:"code"`
	Name           string         `json:"name"`
	Currency       string         `json:"currency"`
	CurrencySymbol string         `json:"currencySymbol"`
	Sources        []string       `json:"sources"`
}

var CountryConfigs = map[domain.Country]CountryConfig{
	domain.CountryIN: {
		Code:           domain.CountryIN,
		Name:           "India",
		Currency:       "INR",
		CurrencySymbol: "₹",
		Sources:        []string{"flipkart.com", "Amazon.in", "Myntra", "Croma", "Reliance Digital", "Snapdeal"},
	},
	domain.CountryUS: {
		Code:           domain.CountryUS,
		Name:           "United States",
		Currency:       "USD",
		CurrencySymbol: "$",
		Sources:        []string{"Amazon.com", "Walmart", "Best Buy", "Target", "Newegg", "B&H"},
	},
	domain.CountryUK: {
		Code:           domain.CountryUK,
		Name:           "United Kingdom",
		Currency:       "GBP",
		CurrencySymbol: "£",
		Sources:        []string{"Amazon.co.uk", "Currys", "Argos", "John Lewis", "AO.com"},
	},
	domain.CountryAE: {
		Code:           domain.CountryAE,
		Name:           "UAE",
		Currency:       "AED",
		CurrencySymbol: "د.إ",
		Sources:        []string{"Amazon.ae", "Noon", "Jumbo Electronics", "Sharaf DG", "Carrefour"},
	},
	domain.CountryDE: {
		Code:           domain.CountryDE,
		Name:           "Germany",
		Currency:       "EUR",
		CurrencySymbol: "€",
		Sources:        []string{"Amazon.de", "MediaMarkt", "Saturn", "Otto", "Conrad"},
	},
}

// ConfigFor returns the country configuration, defaulting to India when the
// code is unknown.
func ConfigFor(country domain.Country) CountryConfig {
	if cfg, ok := CountryConfigs[country]; ok {
		return cfg
	}
	return CountryConfigs[domain.CountryIN]
}

// Static INR-based conversion table. A production deployment would swap in a
// live rates feed.
var exchangeRates = map[domain.Country]float64{
	domain.CountryIN: 1,
	domain.CountryUS: 0.012,
	domain.CountryUK: 0.0096,
	domain.CountryAE: 0.044,
	domain.CountryDE: 0.011,
}

// ConvertCurrency converts a price between two target markets via the INR
// base. Returns 0 for a zero price or an unknown country.
func ConvertCurrency(price float64, from, to domain.Country) float64 {
	if price == 0 || from == to {
		return price
	}
	fromRate, okFrom := exchangeRates[from]
	toRate, okTo := exchangeRates[to]
	if !okFrom || !okTo {
		return 0
	}
	return round2(price / fromRate * toRate)
}
