package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/phenrril/pricelens/internal/adapters/aiproxy"
)

func main() {
	_ = godotenv.Load()

	zerolog.TimeFieldFormat = time.RFC3339
	zlog.Logger = zlog.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		zlog.Fatal().Msg("missing OPENAI_API_KEY in environment, set it before starting the proxy")
	}

	origins := strings.Split(envOr("ALLOWED_ORIGINS", "http://localhost:8080"), ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}
	rate, _ := strconv.Atoi(envOr("RATE_LIMIT", "60"))

	handler := aiproxy.New(aiproxy.Config{
		APIKey:         apiKey,
		AllowedOrigins: origins,
		ProxyToken:     os.Getenv("PROXY_TOKEN"),
		RatePerMinute:  rate,
		Logger:         zlog.Logger,
	})

	addr := ":" + envOr("PORT", "3000")
	server := &http.Server{Addr: addr, Handler: handler}

	go func() {
		zlog.Info().Str("addr", addr).Msg("ai relay listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal().Err(err).Msg("server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(ctx)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
