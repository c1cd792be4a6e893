// Package api exposes the HTTP interface for the review insight service.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/vibefinder/vibefinder/internal/config"
	"github.com/vibefinder/vibefinder/internal/controller"
	"github.com/vibefinder/vibefinder/internal/insight"
	"github.com/vibefinder/vibefinder/internal/places"
	"github.com/vibefinder/vibefinder/internal/telemetry"
)

// Searcher is the slice of the places client the search endpoint needs.
type Searcher interface {
	FindRestaurants(ctx context.Context, location string, maxResults, radiusMeters int) ([]places.Place, error)
	SearchByName(ctx context.Context, query string, maxResults int) ([]places.Place, error)
}

// Server wires HTTP handlers to the controller and stores.
type Server struct {
	router     chi.Router
	controller *controller.Controller
	store      insight.Store
	searcher   Searcher
	cfg        config.Config
	logger     *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(
	ctrl *controller.Controller,
	store insight.Store,
	searcher Searcher,
	cfg config.Config,
	logger *zap.Logger,
) *Server {
	s := &Server{
		controller: ctrl,
		store:      store,
		searcher:   searcher,
		cfg:        cfg,
		logger:     logger,
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(telemetry.Middleware)
	r.Use(timeoutMiddleware(60 * time.Second))
	if cfg.Auth.Enabled {
		r.Use(apiKeyMiddleware(cfg.Auth.APIKey))
	}

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", telemetry.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/search", s.search)
		r.Route("/scraping", func(r chi.Router) {
			r.Post("/trigger/{place_id}", s.trigger)
			r.Get("/status/{job_id}", s.jobStatus)
			r.Get("/jobs", s.listJobs)
			r.Get("/stats", s.stats)
		})
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	if _, err := s.store.CountRestaurants(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) trigger(w http.ResponseWriter, r *http.Request) {
	placeID := chi.URLParam(r, "place_id")
	if placeID == "" {
		writeError(w, http.StatusBadRequest, "place_id required")
		return
	}

	admission, err := s.controller.Trigger(r.Context(), placeID)
	if err != nil {
		if conflict, ok := insight.AsConflict(err); ok {
			writeJSON(w, http.StatusConflict, map[string]string{
				"error":  "scrape job already in progress",
				"job_id": conflict.JobID,
			})
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"job_id":        admission.JobID,
		"restaurant_id": admission.RestaurantID,
		"place_id":      admission.PlaceID,
		"status":        string(insight.JobStatusPending),
	})
}

func (s *Server) jobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	job, err := s.controller.Job(r.Context(), jobID)
	if err != nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, toJobResponse(job))
}

func (s *Server) listJobs(w http.ResponseWriter, r *http.Request) {
	status := insight.JobStatus(r.URL.Query().Get("status"))
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	jobs, err := s.controller.Jobs(r.Context(), status, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list jobs")
		return
	}
	payload := make([]jobResponse, 0, len(jobs))
	for _, job := range jobs {
		payload = append(payload, toJobResponse(job))
	}
	writeJSON(w, http.StatusOK, map[string]any{"jobs": payload})
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.controller.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to compute stats")
		return
	}

	bySource := make(map[string]int, len(stats.ReviewsBySource))
	for source, n := range stats.ReviewsBySource {
		bySource[string(source)] = n
	}
	byStatus := make(map[string]int, len(stats.JobsByStatus))
	for status, n := range stats.JobsByStatus {
		byStatus[string(status)] = n
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"total_restaurants": stats.Restaurants,
		"total_reviews":     stats.Reviews,
		"reviews_by_source": bySource,
		"jobs_by_status":    byStatus,
	})
}

type jobResponse struct {
	JobID            string     `json:"job_id"`
	RestaurantID     string     `json:"restaurant_id"`
	PlaceID          string     `json:"place_id"`
	Status           string     `json:"status"`
	Attempt          int        `json:"attempt"`
	ReviewsCollected int        `json:"reviews_collected"`
	ErrorMessage     string     `json:"error_message,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
}

func toJobResponse(job insight.Job) jobResponse {
	return jobResponse{
		JobID:            job.ID,
		RestaurantID:     job.RestaurantID,
		PlaceID:          job.PlaceID,
		Status:           string(job.Status),
		Attempt:          job.Attempt,
		ReviewsCollected: job.ReviewsCollected,
		ErrorMessage:     job.ErrorMessage,
		CreatedAt:        job.CreatedAt,
		CompletedAt:      job.CompletedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
