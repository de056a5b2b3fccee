// Package app wires configuration, storage, the AI matcher, the crawler and
// the HTTP surface into one runnable unit.
package app

import (
	"net/http"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/phenrril/pricelens/internal/adapters/httpserver"
	pgrepo "github.com/phenrril/pricelens/internal/adapters/repo/postgres"
	"github.com/phenrril/pricelens/internal/adapters/scraper"
	"github.com/phenrril/pricelens/internal/crawler"
	"github.com/phenrril/pricelens/internal/domain"
	"github.com/phenrril/pricelens/internal/matcher"
	"github.com/phenrril/pricelens/internal/usecase"
)

type App struct {
	Config   *Config
	DB       *gorm.DB // nil when running memory-only
	Sessions *usecase.SessionUC
	log      zerolog.Logger
}

func NewApp(cfg *Config, log zerolog.Logger) (*App, error) {
	a := &App{Config: cfg, log: log}

	var uploads domain.UploadRepo
	if cfg.DBDSN != "" {
		db, err := gorm.Open(postgres.Open(cfg.DBDSN), &gorm.Config{})
		if err != nil {
			return nil, err
		}
		if err := pgrepo.Migrate(db); err != nil {
			return nil, err
		}
		a.DB = db
		uploads = pgrepo.NewUploadRepo(db)
	} else {
		log.Warn().Msg("no DB_DSN configured, upload history disabled")
	}

	m := matcher.New(matcher.Config{
		APIKey:  cfg.OpenAIAPIKey,
		BaseURL: cfg.OpenAIBaseURL,
		Models:  modelList(cfg.OpenAIModel),
		Timeout: cfg.MatchTimeout,
		Logger:  log.With().Str("component", "matcher").Logger(),
	})

	c := crawler.New(crawler.Config{
		Matcher:           m,
		Prober:            scraper.NewPriceScraper(),
		Interval:          cfg.CrawlInterval,
		MaxDefaultSources: cfg.MaxDefaultSources,
		Logger:            log.With().Str("component", "crawler").Logger(),
	})

	a.Sessions = usecase.NewSessionUC(m, c, uploads, log.With().Str("component", "sessions").Logger())
	return a, nil
}

func (a *App) HTTPHandler() http.Handler {
	return httpserver.New(httpserver.Config{
		Sessions:       a.Sessions,
		PushURL:        a.Config.PricingUploadURL,
		RatePerMinute:  a.Config.RateLimit,
		RequestTimeout: a.Config.AppRequestTimeout,
		Logger:         a.log.With().Str("component", "http").Logger(),
	})
}

func modelList(configured string) []string {
	if configured == "" {
		return nil
	}
	return []string{configured}
}
