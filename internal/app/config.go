package app

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime configuration for the dashboard server.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"5m"`

	// DBDSN is optional: without it the upload audit trail is disabled and
	// the server runs memory-only.
	DBDSN string `envconfig:"DB_DSN"`

	OpenAIAPIKey  string `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL string `envconfig:"OPENAI_BASE_URL"`
	OpenAIModel   string `envconfig:"OPENAI_MODEL"`

	MatchTimeout      time.Duration `envconfig:"MATCH_TIMEOUT" default:"30s"`
	CrawlInterval     time.Duration `envconfig:"CRAWL_INTERVAL" default:"400ms"`
	MaxDefaultSources int           `envconfig:"MAX_DEFAULT_SOURCES" default:"3"`

	PricingUploadURL string `envconfig:"PRICING_UPLOAD_URL"`
	RateLimit        int    `envconfig:"RATE_LIMIT" default:"120"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}
