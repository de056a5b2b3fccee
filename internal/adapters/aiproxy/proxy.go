// Package aiproxy is a thin relay in front of the OpenAI chat-completions
// endpoint. Browsers never see the vendor key: the relay holds it, restricts
// callers by origin and optional shared token, and forwards request and
// response bodies verbatim.
package aiproxy

import (
	"bytes"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/rs/zerolog"
)

const (
	defaultUpstream = "https://api.openai.com/v1/chat/completions"
	maxBodyBytes    = 128 << 10
)

type Config struct {
	APIKey string
	// UpstreamURL overrides the OpenAI endpoint, mainly for tests.
	UpstreamURL    string
	AllowedOrigins []string
	// ProxyToken, when set, must match the x-proxy-token header. Without it
	// the relay is an open proxy for anyone who can reach it.
	ProxyToken    string
	RatePerMinute int
	Logger        zerolog.Logger
}

type Proxy struct {
	cfg    Config
	client *http.Client
	log    zerolog.Logger
}

func New(cfg Config) http.Handler {
	if cfg.UpstreamURL == "" {
		cfg.UpstreamURL = defaultUpstream
	}
	if cfg.RatePerMinute <= 0 {
		cfg.RatePerMinute = 60
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"http://localhost:8080"}
	}

	p := &Proxy{
		cfg:    cfg,
		client: &http.Client{Timeout: 60 * time.Second},
		log:    cfg.Logger,
	}

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "x-proxy-token"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(httprate.Limit(cfg.RatePerMinute, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	r.Post("/v1/chat/completions", p.handleCompletions)

	return r
}

func (p *Proxy) handleCompletions(w http.ResponseWriter, r *http.Request) {
	if p.cfg.ProxyToken != "" {
		token := r.Header.Get("x-proxy-token")
		if token == "" {
			token = r.URL.Query().Get("proxy_token")
		}
		if token != p.cfg.ProxyToken {
			http.Error(w, `{"error":"Invalid proxy token"}`, http.StatusUnauthorized)
			return
		}
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, `{"error":"Request body too large"}`, http.StatusRequestEntityTooLarge)
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodPost, p.cfg.UpstreamURL, bytes.NewReader(body))
	if err != nil {
		p.log.Error().Err(err).Msg("build upstream request")
		http.Error(w, `{"error":"Proxy internal error"}`, http.StatusInternalServerError)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)

	resp, err := p.client.Do(req)
	if err != nil {
		p.log.Error().Err(err).Msg("upstream call failed")
		http.Error(w, `{"error":"Proxy internal error"}`, http.StatusInternalServerError)
		return
	}
	defer resp.Body.Close()

	// The vendor response passes through untouched, status included.
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		p.log.Warn().Err(err).Msg("relay write interrupted")
	}
}
