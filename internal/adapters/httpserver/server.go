// Package httpserver exposes the pricing dashboard API. All catalog state is
// session-scoped; handlers translate usecase errors into JSON problem
// responses and never leak partial mutations.
package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/rs/zerolog"

	"github.com/phenrril/pricelens/internal/domain"
	"github.com/phenrril/pricelens/internal/usecase"
)

const maxUploadBytes = 20 << 20 // spreadsheet uploads

type Config struct {
	Sessions *usecase.SessionUC
	// PushURL receives the corrected catalog on POST /push. Empty disables
	// the endpoint.
	PushURL        string
	RatePerMinute  int
	RequestTimeout time.Duration
	Logger         zerolog.Logger
}

type Server struct {
	sessions *usecase.SessionUC
	pushURL  string
	pusher   *http.Client
	log      zerolog.Logger
}

func New(cfg Config) http.Handler {
	s := &Server{
		sessions: cfg.Sessions,
		pushURL:  cfg.PushURL,
		pusher:   &http.Client{Timeout: 30 * time.Second},
		log:      cfg.Logger,
	}

	rate := cfg.RatePerMinute
	if rate <= 0 {
		rate = 120
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 5 * time.Minute // batch crawls are slow by design
	}

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(timeout))
	r.Use(chimw.Compress(5))
	r.Use(httprate.Limit(rate, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)))
	r.Use(s.logRequests)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/uploads", s.handleUpload)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/products", s.handleProducts)
			r.Get("/analytics", s.handleAnalytics)
			r.Get("/validation", s.handleValidation)
			r.Get("/export", s.handleExport)
			r.Put("/thresholds", s.handleThresholds)
			r.Post("/match", s.handleMatch)
			r.Post("/crawl", s.handleCrawl)
			r.Post("/push", s.handlePush)
			r.Get("/products/{pid}/optimization", s.handleOptimization)
			r.Patch("/products/{pid}", s.handleEditPrice)
			r.Patch("/products/{pid}/price", s.handleEditPrice)
		})
	})

	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "multipart form expected")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable upload")
		return
	}

	res, err := s.sessions.Ingest(r.Context(), header.Filename, data)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleProducts(w http.ResponseWriter, r *http.Request) {
	products, err := s.sessions.Products(chi.URLParam(r, "id"))
	if err != nil {
		s.writeUsecaseError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"products": products})
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	rep, err := s.sessions.Analytics(chi.URLParam(r, "id"))
	if err != nil {
		s.writeUsecaseError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleValidation(w http.ResponseWriter, r *http.Request) {
	results, err := s.sessions.Validation(chi.URLParam(r, "id"))
	if err != nil {
		s.writeUsecaseError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"results": results})
}

func (s *Server) handleOptimization(w http.ResponseWriter, r *http.Request) {
	opt, err := s.sessions.Optimization(chi.URLParam(r, "id"), chi.URLParam(r, "pid"))
	if err != nil {
		s.writeUsecaseError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, opt)
}

func (s *Server) handleEditPrice(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SellingPrice *float64 `json:"sellingPrice"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.SellingPrice == nil {
		// non-numeric or absent price: reject without touching the product
		writeError(w, http.StatusUnprocessableEntity, usecase.ErrInvalidPrice.Error())
		return
	}

	p, err := s.sessions.EditPrice(chi.URLParam(r, "id"), chi.URLParam(r, "pid"), *body.SellingPrice)
	if err != nil {
		s.writeUsecaseError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleThresholds(w http.ResponseWriter, r *http.Request) {
	var t domain.PriceThreshold
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		writeError(w, http.StatusBadRequest, "invalid thresholds payload")
		return
	}
	products, err := s.sessions.SetThresholds(chi.URLParam(r, "id"), t)
	if err != nil {
		s.writeUsecaseError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"thresholds": t, "products": products})
}

func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ProductID string `json:"productId"`
		URLs      string `json:"urls"`
		Country   string `json:"country"`
		Model     string `json:"model"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.ProductID == "" {
		writeError(w, http.StatusBadRequest, "productId required")
		return
	}

	p, res, err := s.sessions.MatchProduct(r.Context(), chi.URLParam(r, "id"), body.ProductID, body.URLs, domain.Country(body.Country), body.Model)
	if err != nil {
		s.writeUsecaseError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"product": p, "match": res})
}

func (s *Server) handleCrawl(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Country string `json:"country"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid crawl payload")
			return
		}
	}

	products, results, err := s.sessions.Crawl(r.Context(), chi.URLParam(r, "id"), domain.Country(body.Country), nil)
	if err != nil {
		if errors.Is(err, usecase.ErrSessionNotFound) {
			s.writeUsecaseError(w, err)
			return
		}
		// partial batch: report what completed alongside the failure
		writeJSON(w, http.StatusOK, map[string]interface{}{"results": results, "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"products": products, "results": results})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	data, fileName, err := s.sessions.Export(chi.URLParam(r, "id"))
	if err != nil {
		s.writeUsecaseError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exportName(fileName)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handlePush(w http.ResponseWriter, r *http.Request) {
	if s.pushURL == "" {
		writeError(w, http.StatusNotImplemented, "no push endpoint configured")
		return
	}
	data, _, err := s.sessions.Export(chi.URLParam(r, "id"))
	if err != nil {
		s.writeUsecaseError(w, err)
		return
	}

	status, respBody, err := s.push(r.Context(), data)
	if err != nil {
		s.log.Error().Err(err).Str("url", s.pushURL).Msg("push failed")
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"pushedTo":       s.pushURL,
		"upstreamStatus": status,
		"upstreamBody":   string(respBody),
	})
}

// push PUTs the CSV as a multipart file upload, which is the shape the
// pricing backend expects.
func (s *Server) push(ctx context.Context, csvData []byte) (int, []byte, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	name := fmt.Sprintf("pricing-data-%s.csv", time.Now().UTC().Format("2006-01-02T15-04-05"))
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return 0, nil, err
	}
	if _, err := part.Write(csvData); err != nil {
		return 0, nil, err
	}
	if err := mw.Close(); err != nil {
		return 0, nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, s.pushURL, &buf)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := s.pusher.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	return resp.StatusCode, body, nil
}

func (s *Server) writeUsecaseError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, usecase.ErrSessionNotFound), errors.Is(err, usecase.ErrProductNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, usecase.ErrInvalidPrice):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		s.log.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// exportName derives the download filename from the uploaded one, swapping
// the extension since exports are always CSV regardless of the input format.
func exportName(uploaded string) string {
	if uploaded == "" {
		return "products details.csv"
	}
	return strings.TrimSuffix(uploaded, filepath.Ext(uploaded)) + ".csv"
}
