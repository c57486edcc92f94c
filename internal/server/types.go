// Package server exposes document translation over HTTP: upload
// endpoints that start asynchronous runs, status polling, result
// download, and a websocket progress stream.
package server

import (
	"context"
	"io"
	"net/http"
	"os"
	"time"

	"golang.org/x/text/language"

	"github.com/MeKo-Tech/doctran/internal/config"
	"github.com/MeKo-Tech/doctran/internal/pipeline"
)

// processor is the slice of the pipeline the server needs.
type processor interface {
	ProcessPDF(ctx context.Context, filename string, source, target language.Tag, out io.Writer) (*pipeline.Summary, error)
}

// Server holds the HTTP server state and dependencies.
type Server struct {
	pipeline    processor
	runs        *runStore
	corsOrigin  string
	maxUploadMB int64
	outputDir   string
	rateLimiter *RateLimiter

	// defaults for requests that omit languages
	sourceLang language.Tag
	targetLang language.Tag
}

// HealthResponse is the payload of GET /health.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// TranslateAccepted is the payload returned when a run is started.
type TranslateAccepted struct {
	ID     string          `json:"id"`
	Status pipeline.Status `json:"status"`
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// NewServer creates a server around an already-built pipeline.
func NewServer(p processor, cfg config.Server, source, target language.Tag) (*Server, error) {
	outputDir := cfg.OutputDir
	if outputDir == "" {
		dir, err := os.MkdirTemp("", "doctran-server-*")
		if err != nil {
			return nil, err
		}
		outputDir = dir
	}

	var limiter *RateLimiter
	if cfg.RateLimitPerMin > 0 {
		limiter = NewRateLimiter(cfg.RateLimitPerMin)
	}

	return &Server{
		pipeline:    p,
		runs:        newRunStore(),
		corsOrigin:  cfg.CORSOrigin,
		maxUploadMB: int64(cfg.MaxUploadMB),
		outputDir:   outputDir,
		rateLimiter: limiter,
		sourceLang:  source,
		targetLang:  target,
	}, nil
}

// SetupRoutes configures the HTTP routes.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.corsMiddleware(s.healthHandler))
	mux.HandleFunc("POST /translate", s.corsMiddleware(s.rateLimitMiddleware(s.translateHandler)))
	mux.HandleFunc("GET /runs/{id}", s.corsMiddleware(s.statusHandler))
	mux.HandleFunc("GET /runs/{id}/download", s.corsMiddleware(s.downloadHandler))
	mux.HandleFunc("GET /runs/{id}/ws", s.progressSocketHandler)

	// CORS preflight for any path; the middleware answers OPTIONS itself.
	mux.HandleFunc("OPTIONS /", s.corsMiddleware(func(http.ResponseWriter, *http.Request) {}))
}

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339)
}
