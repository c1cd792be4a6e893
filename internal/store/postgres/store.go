// Package postgres implements insight.Store on PostgreSQL via pgx.
//
// Expected schema:
//
//	CREATE TABLE restaurants (
//	    id UUID PRIMARY KEY,
//	    place_id TEXT NOT NULL UNIQUE,
//	    name TEXT NOT NULL,
//	    rating DOUBLE PRECISION NOT NULL DEFAULT 0,
//	    address TEXT NOT NULL DEFAULT '',
//	    total_ratings INTEGER NOT NULL DEFAULT 0,
//	    last_refreshed_at TIMESTAMPTZ,
//	    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
//	    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
//
//	CREATE TABLE reviews (
//	    id UUID PRIMARY KEY,
//	    restaurant_id UUID NOT NULL REFERENCES restaurants(id) ON DELETE CASCADE,
//	    review_text TEXT NOT NULL,
//	    text_hash TEXT NOT NULL,
//	    rating DOUBLE PRECISION,
//	    author TEXT NOT NULL DEFAULT '',
//	    review_date TEXT NOT NULL DEFAULT '',
//	    source TEXT NOT NULL,
//	    sentiment_score DOUBLE PRECISION,
//	    processed BOOLEAN NOT NULL DEFAULT FALSE,
//	    collected_at TIMESTAMPTZ NOT NULL,
//	    UNIQUE (restaurant_id, text_hash)
//	);
//
//	CREATE TABLE scrape_jobs (
//	    id UUID PRIMARY KEY,
//	    restaurant_id UUID NOT NULL REFERENCES restaurants(id) ON DELETE CASCADE,
//	    place_id TEXT NOT NULL,
//	    status TEXT NOT NULL,
//	    attempt INTEGER NOT NULL DEFAULT 1,
//	    reviews_collected INTEGER NOT NULL DEFAULT 0,
//	    error_message TEXT NOT NULL DEFAULT '',
//	    created_at TIMESTAMPTZ NOT NULL,
//	    completed_at TIMESTAMPTZ
//	);
//	CREATE UNIQUE INDEX scrape_jobs_active_place
//	    ON scrape_jobs (place_id) WHERE status IN ('pending', 'running');
//
// The partial unique index makes the admission check-and-create atomic:
// two concurrent inserts for the same place cannot both succeed.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vibefinder/vibefinder/internal/insight"
)

// uniqueViolation is the Postgres error code for unique index conflicts.
const uniqueViolation = "23505"

// DB is the subset of pgxpool.Pool the store needs; pgxmock satisfies it
// in tests.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store implements insight.Store on PostgreSQL.
type Store struct {
	db DB
}

// New wraps an existing connection pool.
func New(db DB) *Store {
	return &Store{db: db}
}

// Connect opens a pgx pool and verifies the connection.
func Connect(ctx context.Context, dsn string, maxConns int) (*Store, *pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("parse dsn: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = int32(maxConns)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ping postgres: %w", err)
	}
	return New(pool), pool, nil
}

// CreateRestaurant inserts a restaurant row.
func (s *Store) CreateRestaurant(ctx context.Context, r insight.Restaurant) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO restaurants (id, place_id, name, rating, address, total_ratings, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`,
		r.ID, r.PlaceID, r.Name, r.Rating, r.Address, r.TotalRatings, r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert restaurant: %w", err)
	}
	return nil
}

const restaurantColumns = `id, place_id, name, rating, address, total_ratings, last_refreshed_at, created_at, updated_at`

func scanRestaurant(row pgx.Row) (insight.Restaurant, error) {
	var r insight.Restaurant
	err := row.Scan(&r.ID, &r.PlaceID, &r.Name, &r.Rating, &r.Address, &r.TotalRatings, &r.LastRefreshedAt, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return insight.Restaurant{}, insight.ErrNotFound
	}
	if err != nil {
		return insight.Restaurant{}, fmt.Errorf("scan restaurant: %w", err)
	}
	return r, nil
}

// RestaurantByPlaceID looks a restaurant up by its external ID.
func (s *Store) RestaurantByPlaceID(ctx context.Context, placeID string) (insight.Restaurant, error) {
	row := s.db.QueryRow(ctx, `SELECT `+restaurantColumns+` FROM restaurants WHERE place_id = $1`, placeID)
	return scanRestaurant(row)
}

// Restaurant looks a restaurant up by its surrogate ID.
func (s *Store) Restaurant(ctx context.Context, id string) (insight.Restaurant, error) {
	row := s.db.QueryRow(ctx, `SELECT `+restaurantColumns+` FROM restaurants WHERE id = $1`, id)
	return scanRestaurant(row)
}

// UpdateRestaurantProfile replaces the display fields.
func (s *Store) UpdateRestaurantProfile(ctx context.Context, id, name string, rating float64, address string, totalRatings int) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE restaurants
		SET name = $2, rating = $3, address = $4, total_ratings = $5, updated_at = NOW()
		WHERE id = $1`,
		id, name, rating, address, totalRatings,
	)
	if err != nil {
		return fmt.Errorf("update restaurant profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return insight.ErrNotFound
	}
	return nil
}

// SetLastRefreshed stamps the freshness timestamp.
func (s *Store) SetLastRefreshed(ctx context.Context, id string, at time.Time) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE restaurants SET last_refreshed_at = $2, updated_at = $2 WHERE id = $1`,
		id, at,
	)
	if err != nil {
		return fmt.Errorf("set last refreshed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return insight.ErrNotFound
	}
	return nil
}

// CountRestaurants returns the number of stored restaurants.
func (s *Store) CountRestaurants(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM restaurants`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count restaurants: %w", err)
	}
	return n, nil
}

// AddReview persists a review; the (restaurant_id, text_hash) unique
// constraint suppresses duplicates.
func (s *Store) AddReview(ctx context.Context, rev insight.Review) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		INSERT INTO reviews (id, restaurant_id, review_text, text_hash, rating, author, review_date, source, collected_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (restaurant_id, text_hash) DO NOTHING`,
		rev.ID, rev.RestaurantID, rev.Text, rev.TextHash, rev.Rating, rev.Author, rev.DateText, string(rev.Source), rev.CollectedAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert review: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

const reviewColumns = `id, restaurant_id, review_text, text_hash, rating, author, review_date, source, sentiment_score, processed, collected_at`

func scanReviews(rows pgx.Rows) ([]insight.Review, error) {
	defer rows.Close()
	var out []insight.Review
	for rows.Next() {
		var rev insight.Review
		var source string
		if err := rows.Scan(&rev.ID, &rev.RestaurantID, &rev.Text, &rev.TextHash, &rev.Rating, &rev.Author, &rev.DateText, &source, &rev.SentimentScore, &rev.Processed, &rev.CollectedAt); err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		rev.Source = insight.ReviewSource(source)
		out = append(out, rev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reviews: %w", err)
	}
	return out, nil
}

// ListReviews returns all reviews for the restaurant, oldest first.
func (s *Store) ListReviews(ctx context.Context, restaurantID string) ([]insight.Review, error) {
	rows, err := s.db.Query(ctx, `SELECT `+reviewColumns+` FROM reviews WHERE restaurant_id = $1 ORDER BY collected_at, id`, restaurantID)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	return scanReviews(rows)
}

// ListUnprocessedReviews returns reviews the cascade has not scored yet.
func (s *Store) ListUnprocessedReviews(ctx context.Context, restaurantID string) ([]insight.Review, error) {
	rows, err := s.db.Query(ctx, `SELECT `+reviewColumns+` FROM reviews WHERE restaurant_id = $1 AND processed = FALSE ORDER BY collected_at, id`, restaurantID)
	if err != nil {
		return nil, fmt.Errorf("list unprocessed reviews: %w", err)
	}
	return scanReviews(rows)
}

// MarkReviewProcessed applies the conditional processed transition. The
// processed = FALSE predicate serializes concurrent cascades per review.
func (s *Store) MarkReviewProcessed(ctx context.Context, reviewID string, score float64) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE reviews SET sentiment_score = $2, processed = TRUE
		WHERE id = $1 AND processed = FALSE`,
		reviewID, score,
	)
	if err != nil {
		return false, fmt.Errorf("mark review processed: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// CountReviewsBySource aggregates review counts per source.
func (s *Store) CountReviewsBySource(ctx context.Context) (map[insight.ReviewSource]int, error) {
	rows, err := s.db.Query(ctx, `SELECT source, COUNT(*) FROM reviews GROUP BY source`)
	if err != nil {
		return nil, fmt.Errorf("count reviews by source: %w", err)
	}
	defer rows.Close()
	out := make(map[insight.ReviewSource]int)
	for rows.Next() {
		var source string
		var n int
		if err := rows.Scan(&source, &n); err != nil {
			return nil, fmt.Errorf("scan review count: %w", err)
		}
		out[insight.ReviewSource(source)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate review counts: %w", err)
	}
	return out, nil
}

// CreateJob inserts the job; the scrape_jobs_active_place partial index
// rejects a second active job for the same place, which is surfaced as a
// ConflictError naming the existing job.
func (s *Store) CreateJob(ctx context.Context, job insight.Job) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO scrape_jobs (id, restaurant_id, place_id, status, attempt, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		job.ID, job.RestaurantID, job.PlaceID, string(job.Status), job.Attempt, job.CreatedAt,
	)
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return fmt.Errorf("insert job: %w", err)
	}
	var existingID string
	lookupErr := s.db.QueryRow(ctx, `
		SELECT id FROM scrape_jobs WHERE place_id = $1 AND status IN ('pending', 'running')`,
		job.PlaceID,
	).Scan(&existingID)
	if lookupErr != nil {
		return fmt.Errorf("lookup conflicting job: %w", lookupErr)
	}
	return &insight.ConflictError{JobID: existingID}
}

const jobColumns = `id, restaurant_id, place_id, status, attempt, reviews_collected, error_message, created_at, completed_at`

func scanJob(row pgx.Row) (insight.Job, error) {
	var job insight.Job
	var status string
	err := row.Scan(&job.ID, &job.RestaurantID, &job.PlaceID, &status, &job.Attempt, &job.ReviewsCollected, &job.ErrorMessage, &job.CreatedAt, &job.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return insight.Job{}, insight.ErrNotFound
	}
	if err != nil {
		return insight.Job{}, fmt.Errorf("scan job: %w", err)
	}
	job.Status = insight.JobStatus(status)
	return job, nil
}

// Job returns one job by ID.
func (s *Store) Job(ctx context.Context, jobID string) (insight.Job, error) {
	row := s.db.QueryRow(ctx, `SELECT `+jobColumns+` FROM scrape_jobs WHERE id = $1`, jobID)
	return scanJob(row)
}

// MarkJobRunning flips a job to running for the given attempt.
func (s *Store) MarkJobRunning(ctx context.Context, jobID string, attempt int) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE scrape_jobs
		SET status = 'running', attempt = $2, error_message = '', completed_at = NULL
		WHERE id = $1`,
		jobID, attempt,
	)
	if err != nil {
		return fmt.Errorf("mark job running: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return insight.ErrNotFound
	}
	return nil
}

// FinishJob records the attempt outcome.
func (s *Store) FinishJob(ctx context.Context, jobID string, status insight.JobStatus, reviewsCollected int, errMsg string, at time.Time) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE scrape_jobs
		SET status = $2, reviews_collected = $3, error_message = $4, completed_at = $5
		WHERE id = $1`,
		jobID, string(status), reviewsCollected, errMsg, at,
	)
	if err != nil {
		return fmt.Errorf("finish job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return insight.ErrNotFound
	}
	return nil
}

// ListJobs returns jobs newest-first, optionally filtered by status.
func (s *Store) ListJobs(ctx context.Context, status insight.JobStatus, limit int) ([]insight.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM scrape_jobs`
	args := []any{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at DESC`
	if limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, limit)
	}
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()
	var out []insight.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return out, nil
}

// CountJobsByStatus aggregates job counts per status.
func (s *Store) CountJobsByStatus(ctx context.Context) (map[insight.JobStatus]int, error) {
	rows, err := s.db.Query(ctx, `SELECT status, COUNT(*) FROM scrape_jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count jobs by status: %w", err)
	}
	defer rows.Close()
	out := make(map[insight.JobStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan job count: %w", err)
		}
		out[insight.JobStatus(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate job counts: %w", err)
	}
	return out, nil
}
