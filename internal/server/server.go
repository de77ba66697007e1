// Package server serves the dashboard page and its JSON API.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/KaramelBytes/ecomdash/internal/analysis"
	"github.com/KaramelBytes/ecomdash/internal/config"
	"github.com/KaramelBytes/ecomdash/internal/logging"
	"github.com/KaramelBytes/ecomdash/internal/predict"
	"github.com/KaramelBytes/ecomdash/internal/session"
)

// Options configures a Server.
type Options struct {
	Addr            string
	ModelPath       string
	StrictSchema    bool
	MaxUploadBytes  int64
	PreviewRows     int
	SessionTTL      time.Duration
	MaxSessions     int
	RateLimitPerMin int
	CORSOrigins     []string
}

// OptionsFromConfig maps the persisted configuration onto server options.
func OptionsFromConfig(c *config.Global) Options {
	return Options{
		Addr:            c.ListenAddr,
		ModelPath:       c.ModelPath,
		StrictSchema:    c.StrictSchema,
		MaxUploadBytes:  int64(c.MaxUploadMB) << 20,
		PreviewRows:     c.PreviewRows,
		SessionTTL:      time.Duration(c.SessionTTLMin) * time.Minute,
		MaxSessions:     c.MaxSessions,
		RateLimitPerMin: c.RateLimitPerMin,
		CORSOrigins:     c.CORSOrigins,
	}
}

// Server holds the uploaded datasets and the predictor behind an HTTP handler.
type Server struct {
	opts      Options
	store     *session.Store
	predictor *predict.Service
	handler   http.Handler
}

// New builds a Server and its routes.
func New(opts Options) *Server {
	if opts.PreviewRows <= 0 {
		opts.PreviewRows = 5
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 200 << 20
	}
	s := &Server{
		opts:      opts,
		store:     session.NewStore(opts.SessionTTL, opts.MaxSessions),
		predictor: predict.NewService(opts.ModelPath, opts.StrictSchema),
	}
	s.handler = s.routes()
	return s
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler { return s.handler }

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(instrument)
	r.NotFound(handleNotFound)

	r.Get("/", s.handleIndex)
	r.Group(func(r chi.Router) {
		r.Use(s.rateLimit())
		r.Post("/upload", s.handleUpload)
		r.Post("/predict", s.handlePredict)
	})
	r.Get("/healthz", handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.cors())
		r.With(s.rateLimit()).Post("/datasets", s.apiCreateDataset)
		r.Get("/datasets/{id}", s.apiGetDataset)
		r.Get("/datasets/{id}/charts/{file}", s.apiChart)
		r.With(s.rateLimit()).Post("/predict", s.apiPredict)
	})
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	sweepCtx, stop := context.WithCancel(ctx)
	defer stop()
	go s.store.Run(sweepCtx, time.Minute)

	errc := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", s.opts.Addr).Str("model", s.opts.ModelPath).Msg("dashboard listening")
		errc <- srv.ListenAndServe()
	}()
	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logging.Info().Msg("dashboard stopped")
	return nil
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

// loadUpload parses an uploaded CSV into a Table. Only .csv files are accepted.
func loadUpload(r *http.Request, field string, maxBytes int64) (*analysis.Table, string, error) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return nil, "", &UploadError{Reason: fmt.Sprintf("file exceeds %d MB limit", maxBytes>>20)}
		}
		return nil, "", &UploadError{Reason: "malformed upload: " + err.Error()}
	}
	f, hdr, err := r.FormFile(field)
	if err != nil {
		return nil, "", &UploadError{Reason: "no file selected"}
	}
	defer f.Close()
	if !isCSV(hdr.Filename) {
		return nil, hdr.Filename, &UploadError{Reason: "only .csv files are accepted"}
	}
	t, err := analysis.LoadCSV(f, hdr.Filename, analysis.DefaultOptions())
	if err != nil {
		return nil, hdr.Filename, &UploadError{Reason: err.Error(), Err: err}
	}
	return t, hdr.Filename, nil
}

// UploadError is a rejected or unparsable upload.
type UploadError struct {
	Reason string
	Err    error
}

func (e *UploadError) Error() string { return "upload: " + e.Reason }

func (e *UploadError) Unwrap() error { return e.Err }
