// Package memory provides an in-memory insight.Store for local
// development and tests. A single mutex serializes all writes, which
// trivially satisfies the per-restaurant serialization the controller
// relies on.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vibefinder/vibefinder/internal/insight"
)

// Store keeps restaurants, reviews and jobs in maps.
type Store struct {
	mu           sync.RWMutex
	restaurants  map[string]insight.Restaurant
	placeIndex   map[string]string
	reviews      map[string]insight.Review
	reviewOrder  map[string][]string
	reviewHashes map[string]map[string]struct{}
	jobs         map[string]insight.Job
	jobOrder     []string
}

// New constructs an empty Store.
func New() *Store {
	return &Store{
		restaurants:  make(map[string]insight.Restaurant),
		placeIndex:   make(map[string]string),
		reviews:      make(map[string]insight.Review),
		reviewOrder:  make(map[string][]string),
		reviewHashes: make(map[string]map[string]struct{}),
		jobs:         make(map[string]insight.Job),
	}
}

// CreateRestaurant inserts a restaurant keyed by its surrogate ID.
func (s *Store) CreateRestaurant(_ context.Context, r insight.Restaurant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.restaurants[r.ID] = r
	s.placeIndex[r.PlaceID] = r.ID
	return nil
}

// RestaurantByPlaceID looks a restaurant up by its external ID.
func (s *Store) RestaurantByPlaceID(_ context.Context, placeID string) (insight.Restaurant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.placeIndex[placeID]
	if !ok {
		return insight.Restaurant{}, insight.ErrNotFound
	}
	return s.restaurants[id], nil
}

// Restaurant looks a restaurant up by its surrogate ID.
func (s *Store) Restaurant(_ context.Context, id string) (insight.Restaurant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.restaurants[id]
	if !ok {
		return insight.Restaurant{}, insight.ErrNotFound
	}
	return r, nil
}

// UpdateRestaurantProfile replaces the display fields.
func (s *Store) UpdateRestaurantProfile(_ context.Context, id, name string, rating float64, address string, totalRatings int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.restaurants[id]
	if !ok {
		return insight.ErrNotFound
	}
	r.Name = name
	r.Rating = rating
	r.Address = address
	r.TotalRatings = totalRatings
	s.restaurants[id] = r
	return nil
}

// SetLastRefreshed stamps the freshness timestamp.
func (s *Store) SetLastRefreshed(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.restaurants[id]
	if !ok {
		return insight.ErrNotFound
	}
	r.LastRefreshedAt = &at
	r.UpdatedAt = at
	s.restaurants[id] = r
	return nil
}

// CountRestaurants returns the number of stored restaurants.
func (s *Store) CountRestaurants(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.restaurants), nil
}

// AddReview persists a review unless its text hash already exists for
// the restaurant.
func (s *Store) AddReview(_ context.Context, rev insight.Review) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.restaurants[rev.RestaurantID]; !ok {
		return false, insight.ErrNotFound
	}
	hashes, ok := s.reviewHashes[rev.RestaurantID]
	if !ok {
		hashes = make(map[string]struct{})
		s.reviewHashes[rev.RestaurantID] = hashes
	}
	if rev.TextHash != "" {
		if _, dup := hashes[rev.TextHash]; dup {
			return false, nil
		}
		hashes[rev.TextHash] = struct{}{}
	}
	s.reviews[rev.ID] = rev
	s.reviewOrder[rev.RestaurantID] = append(s.reviewOrder[rev.RestaurantID], rev.ID)
	return true, nil
}

// ListReviews returns all reviews for the restaurant in insertion order.
func (s *Store) ListReviews(_ context.Context, restaurantID string) ([]insight.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.reviewOrder[restaurantID]
	out := make([]insight.Review, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.reviews[id])
	}
	return out, nil
}

// ListUnprocessedReviews returns reviews the cascade has not scored yet.
func (s *Store) ListUnprocessedReviews(_ context.Context, restaurantID string) ([]insight.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []insight.Review
	for _, id := range s.reviewOrder[restaurantID] {
		if rev := s.reviews[id]; !rev.Processed {
			out = append(out, rev)
		}
	}
	return out, nil
}

// MarkReviewProcessed applies the conditional processed transition.
func (s *Store) MarkReviewProcessed(_ context.Context, reviewID string, score float64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rev, ok := s.reviews[reviewID]
	if !ok {
		return false, insight.ErrNotFound
	}
	if rev.Processed {
		return false, nil
	}
	rev.SentimentScore = &score
	rev.Processed = true
	s.reviews[reviewID] = rev
	return true, nil
}

// CountReviewsBySource aggregates review counts per source.
func (s *Store) CountReviewsBySource(_ context.Context) (map[insight.ReviewSource]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[insight.ReviewSource]int)
	for _, rev := range s.reviews {
		out[rev.Source]++
	}
	return out, nil
}

// CreateJob inserts the job after the atomic active-job check.
func (s *Store) CreateJob(_ context.Context, job insight.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.jobOrder {
		existing := s.jobs[id]
		if existing.PlaceID == job.PlaceID && !existing.Terminal() {
			return &insight.ConflictError{JobID: existing.ID}
		}
	}
	s.jobs[job.ID] = job
	s.jobOrder = append(s.jobOrder, job.ID)
	return nil
}

// Job returns one job by ID.
func (s *Store) Job(_ context.Context, jobID string) (insight.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return insight.Job{}, insight.ErrNotFound
	}
	return job, nil
}

// MarkJobRunning flips a job to running for the given attempt, clearing
// any failure bookkeeping from the previous attempt.
func (s *Store) MarkJobRunning(_ context.Context, jobID string, attempt int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return insight.ErrNotFound
	}
	job.Status = insight.JobStatusRunning
	job.Attempt = attempt
	job.ErrorMessage = ""
	job.CompletedAt = nil
	s.jobs[jobID] = job
	return nil
}

// FinishJob records a terminal-or-retryable outcome for the attempt.
func (s *Store) FinishJob(_ context.Context, jobID string, status insight.JobStatus, reviewsCollected int, errMsg string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return insight.ErrNotFound
	}
	job.Status = status
	job.ReviewsCollected = reviewsCollected
	job.ErrorMessage = errMsg
	job.CompletedAt = &at
	s.jobs[jobID] = job
	return nil
}

// ListJobs returns jobs newest-first, optionally filtered by status.
func (s *Store) ListJobs(_ context.Context, status insight.JobStatus, limit int) ([]insight.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]insight.Job, 0, len(s.jobOrder))
	for _, id := range s.jobOrder {
		job := s.jobs[id]
		if status != "" && job.Status != status {
			continue
		}
		out = append(out, job)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// CountJobsByStatus aggregates job counts per status.
func (s *Store) CountJobsByStatus(_ context.Context) (map[insight.JobStatus]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[insight.JobStatus]int)
	for _, job := range s.jobs {
		out[job.Status]++
	}
	return out, nil
}
