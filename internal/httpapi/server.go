package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/apex/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sannux/pixelguard/internal/models"
	"github.com/sannux/pixelguard/internal/orchestrator"
)

// ImageProcessor is the detection pipeline the HTTP layer drives.
type ImageProcessor interface {
	ProcessImage(ctx context.Context, imageBytes []byte) (*orchestrator.Result, error)
	ProcessExtension(ctx context.Context, imageBytes []byte) (models.VulnerabilityTier, error)
}

// TextAnalyzer sends a text prompt to the LLM collaborator.
type TextAnalyzer interface {
	AnalyzeText(ctx context.Context, prompt string) (string, error)
}

type Server struct {
	analyzeAPI *AnalyzeAPI
	logger     log.Interface
	server     *http.Server
}

func New(analyzeAPI *AnalyzeAPI, logger log.Interface) *Server {
	return &Server{
		analyzeAPI: analyzeAPI,
		logger:     logger,
	}
}

func (s *Server) Start(addr string) error {
	mux := http.NewServeMux()

	s.analyzeAPI.RegisterRoutes(mux, s.corsMiddleware)

	// Health check
	mux.HandleFunc("/health", s.handleHealth)

	// Prometheus scrape endpoint
	mux.Handle("/metrics", promhttp.Handler())

	s.server = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	s.logger.WithField("addr", addr).Info("HTTP API server starting")
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
