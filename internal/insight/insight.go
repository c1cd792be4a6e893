// Package insight defines the core types and interfaces for the review
// insight engine: restaurants, collected reviews, scrape jobs, and the
// collaborator contracts the job controller orchestrates.
package insight

import (
	"context"
	"time"
)

// JobStatus enumerates the scrape job state machine.
// pending is the only initial state; completed and failed are terminal.
type JobStatus string

// Job state machine values.
const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// ReviewSource tags the origin of a collected review.
type ReviewSource string

// Known review origins.
const (
	SourceGoogleMaps ReviewSource = "google_maps"
	SourceReddit     ReviewSource = "reddit"
)

// Restaurant is the target entity reviews are collected for. It is
// identified externally by the immutable Google Places ID and internally
// by a surrogate UUID.
type Restaurant struct {
	ID              string
	PlaceID         string
	Name            string
	Rating          float64
	Address         string
	TotalRatings    int
	LastRefreshedAt *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Review is one collected review. Text is always non-empty; rows are
// immutable after collection except for the sentiment fields written by
// the cascade stage.
type Review struct {
	ID             string
	RestaurantID   string
	Text           string
	TextHash       string
	Rating         *float64
	Author         string
	DateText       string
	Source         ReviewSource
	SentimentScore *float64
	Processed      bool
	CollectedAt    time.Time
}

// Job is one unit of orchestrated scrape work against one restaurant.
// Rows are append-only history; retries reuse the same row and bump
// Attempt rather than creating a new job.
type Job struct {
	ID               string
	RestaurantID     string
	PlaceID          string
	Status           JobStatus
	Attempt          int
	ReviewsCollected int
	ErrorMessage     string
	CreatedAt        time.Time
	CompletedAt      *time.Time
}

// Terminal reports whether the job has reached a terminal state.
func (j Job) Terminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}

// RawReview is the shape collectors return before persistence.
type RawReview struct {
	Text     string
	Rating   *float64
	Author   string
	DateText string
}

// Profile is collector-observed display data for a restaurant, used to
// replace the placeholder row created at admission time.
type Profile struct {
	Name         string
	Rating       float64
	Address      string
	TotalRatings int
}

// Collection is the result of one collector invocation. Profile is nil
// when the source cannot observe display data.
type Collection struct {
	Profile *Profile
	Reviews []RawReview
}

// CollectTarget carries everything a collector may need to locate
// reviews for one restaurant.
type CollectTarget struct {
	PlaceID string
	Name    string
	Address string
	Limit   int
}

// SourceCollector fetches raw reviews from one origin. Collectors fail
// independently; only the primary collector's failure is fatal to a job
// attempt.
type SourceCollector interface {
	Name() ReviewSource
	Primary() bool
	Collect(ctx context.Context, target CollectTarget) (Collection, error)
}

// Engine scores a single review text with a compound sentiment value in
// [-1, 1]. Batch summarization is consumed by the API layer directly.
type Engine interface {
	ScoreReview(text string) float64
}

// Insights is the batch-level summary derived from a restaurant's reviews.
type Insights struct {
	TrueSentiment    string   `json:"trueSentiment"`
	VibeCheck        []string `json:"vibeCheck"`
	MustTryDishes    []string `json:"mustTryDishes"`
	CommonComplaints []string `json:"commonComplaints"`
}

// ScrapeTask is the scrape lane queue item.
type ScrapeTask struct {
	JobID        string
	RestaurantID string
	PlaceID      string
	Attempt      int
}

// CascadeTask is the analysis lane queue item.
type CascadeTask struct {
	RestaurantID string
}

// ScrapeQueue hands scrape tasks to the executor lane.
type ScrapeQueue interface {
	Enqueue(ctx context.Context, task ScrapeTask) error
	Dequeue(ctx context.Context) (ScrapeTask, error)
}

// CascadeQueue hands cascade tasks to the analysis lane.
type CascadeQueue interface {
	Enqueue(ctx context.Context, task CascadeTask) error
	Dequeue(ctx context.Context) (CascadeTask, error)
}

// EntityStore persists restaurants.
type EntityStore interface {
	CreateRestaurant(ctx context.Context, r Restaurant) error
	RestaurantByPlaceID(ctx context.Context, placeID string) (Restaurant, error)
	Restaurant(ctx context.Context, id string) (Restaurant, error)
	// UpdateRestaurantProfile replaces the placeholder display data once a
	// collector reports the real name and rating.
	UpdateRestaurantProfile(ctx context.Context, id, name string, rating float64, address string, totalRatings int) error
	SetLastRefreshed(ctx context.Context, id string, at time.Time) error
	CountRestaurants(ctx context.Context) (int, error)
}

// ReviewStore persists collected reviews.
type ReviewStore interface {
	// AddReview persists one review. It reports false without error when a
	// review with the same text hash already exists for the restaurant.
	AddReview(ctx context.Context, rev Review) (bool, error)
	ListReviews(ctx context.Context, restaurantID string) ([]Review, error)
	ListUnprocessedReviews(ctx context.Context, restaurantID string) ([]Review, error)
	// MarkReviewProcessed writes the sentiment score and flips the processed
	// flag iff it is still false. It reports false when another cascade run
	// already claimed the review.
	MarkReviewProcessed(ctx context.Context, reviewID string, score float64) (bool, error)
	CountReviewsBySource(ctx context.Context) (map[ReviewSource]int, error)
}

// JobStore persists scrape jobs.
type JobStore interface {
	// CreateJob inserts the job unless a pending or running job already
	// exists for the same place ID, in which case it returns a
	// ConflictError carrying the existing job's ID. The check-and-create
	// is atomic.
	CreateJob(ctx context.Context, job Job) error
	Job(ctx context.Context, jobID string) (Job, error)
	MarkJobRunning(ctx context.Context, jobID string, attempt int) error
	FinishJob(ctx context.Context, jobID string, status JobStatus, reviewsCollected int, errMsg string, at time.Time) error
	ListJobs(ctx context.Context, status JobStatus, limit int) ([]Job, error)
	CountJobsByStatus(ctx context.Context) (map[JobStatus]int, error)
}

// Store aggregates the three persistence surfaces. Implementations must
// serialize writes per restaurant; unrelated restaurants proceed
// independently.
type Store interface {
	EntityStore
	ReviewStore
	JobStore
}

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
}

// IDGenerator creates surrogate identifiers.
type IDGenerator interface {
	NewID() (string, error)
}

// Hasher fingerprints review text for duplicate suppression.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Publisher emits job lifecycle events for downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}
