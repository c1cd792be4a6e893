// Package controller implements scrape job admission and the read-side
// projections served by the API: single-flight dedup per place, freshness
// gating, and aggregate stats.
package controller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/vibefinder/vibefinder/internal/insight"
	"github.com/vibefinder/vibefinder/internal/telemetry"
)

const enqueueTimeout = 5 * time.Second

// Controller admits scrape jobs and answers job and stats queries. It
// never performs collector I/O itself; admitted work is handed to the
// scrape lane through the queue.
type Controller struct {
	store  insight.Store
	queue  insight.ScrapeQueue
	ids    insight.IDGenerator
	clock  insight.Clock
	gate   insight.Gate
	logger *zap.Logger
}

// New creates a Controller with the given collaborators.
func New(store insight.Store, queue insight.ScrapeQueue, ids insight.IDGenerator, clock insight.Clock, gate insight.Gate, logger *zap.Logger) *Controller {
	return &Controller{
		store:  store,
		queue:  queue,
		ids:    ids,
		clock:  clock,
		gate:   gate,
		logger: logger,
	}
}

// Admission is the result of a successful trigger.
type Admission struct {
	JobID        string
	RestaurantID string
	PlaceID      string
}

// Stats is the aggregate service snapshot.
type Stats struct {
	Restaurants     int
	Reviews         int
	ReviewsBySource map[insight.ReviewSource]int
	JobsByStatus    map[insight.JobStatus]int
}

// Trigger admits a scrape job for the given place. At most one pending or
// running job exists per place at any time; a duplicate trigger returns an
// insight.ConflictError carrying the in-flight job's ID.
func (c *Controller) Trigger(ctx context.Context, placeID string) (Admission, error) {
	restaurant, err := c.resolveRestaurant(ctx, placeID)
	if err != nil {
		return Admission{}, fmt.Errorf("resolving restaurant: %w", err)
	}

	jobID, err := c.ids.NewID()
	if err != nil {
		return Admission{}, fmt.Errorf("generating job id: %w", err)
	}

	job := insight.Job{
		ID:           jobID,
		RestaurantID: restaurant.ID,
		PlaceID:      placeID,
		Status:       insight.JobStatusPending,
		Attempt:      1,
		CreatedAt:    c.clock.Now(),
	}
	if err := c.store.CreateJob(ctx, job); err != nil {
		if conflict, ok := insight.AsConflict(err); ok {
			telemetry.ObserveAdmissionConflict()
			c.logger.Info("duplicate trigger rejected",
				zap.String("place_id", placeID),
				zap.String("existing_job_id", conflict.JobID))
		}
		return Admission{}, err
	}

	enqCtx, cancel := context.WithTimeout(ctx, enqueueTimeout)
	defer cancel()
	task := insight.ScrapeTask{
		JobID:        job.ID,
		RestaurantID: job.RestaurantID,
		PlaceID:      job.PlaceID,
		Attempt:      job.Attempt,
	}
	if err := c.queue.Enqueue(enqCtx, task); err != nil {
		// The pending row would otherwise block every future trigger for
		// this place; fail it so admission stays live.
		if finishErr := c.store.FinishJob(ctx, job.ID, insight.JobStatusFailed, 0,
			"enqueue failed: "+err.Error(), c.clock.Now()); finishErr != nil {
			c.logger.Error("failing unqueued job", zap.String("job_id", job.ID), zap.Error(finishErr))
		}
		return Admission{}, fmt.Errorf("enqueueing scrape task: %w", err)
	}

	c.logger.Info("scrape job admitted",
		zap.String("job_id", job.ID),
		zap.String("restaurant_id", job.RestaurantID),
		zap.String("place_id", placeID))

	return Admission{JobID: job.ID, RestaurantID: job.RestaurantID, PlaceID: placeID}, nil
}

// TriggerIfStale admits a scrape job only when the restaurant's cached
// reviews are older than the freshness window or it was never scraped.
// The second return value reports whether a job was admitted.
func (c *Controller) TriggerIfStale(ctx context.Context, placeID string) (Admission, bool, error) {
	restaurant, err := c.store.RestaurantByPlaceID(ctx, placeID)
	switch {
	case errors.Is(err, insight.ErrNotFound):
		// Never seen; always stale.
	case err != nil:
		return Admission{}, false, fmt.Errorf("looking up restaurant: %w", err)
	case c.gate.Fresh(restaurant, c.clock.Now()):
		c.logger.Debug("cache fresh, skipping trigger",
			zap.String("place_id", placeID),
			zap.Timep("last_refreshed_at", restaurant.LastRefreshedAt))
		return Admission{}, false, nil
	}

	admission, err := c.Trigger(ctx, placeID)
	if err != nil {
		return Admission{}, false, err
	}
	return admission, true, nil
}

// Job returns the current state of one scrape job.
func (c *Controller) Job(ctx context.Context, jobID string) (insight.Job, error) {
	return c.store.Job(ctx, jobID)
}

// Jobs lists recent jobs, newest first, optionally filtered by status.
func (c *Controller) Jobs(ctx context.Context, status insight.JobStatus, limit int) ([]insight.Job, error) {
	return c.store.ListJobs(ctx, status, limit)
}

// Stats returns aggregate counts across restaurants, reviews, and jobs.
func (c *Controller) Stats(ctx context.Context) (Stats, error) {
	restaurants, err := c.store.CountRestaurants(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("counting restaurants: %w", err)
	}
	bySource, err := c.store.CountReviewsBySource(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("counting reviews: %w", err)
	}
	byStatus, err := c.store.CountJobsByStatus(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("counting jobs: %w", err)
	}

	total := 0
	for _, n := range bySource {
		total += n
	}
	return Stats{
		Restaurants:     restaurants,
		Reviews:         total,
		ReviewsBySource: bySource,
		JobsByStatus:    byStatus,
	}, nil
}

// resolveRestaurant finds the restaurant for a place ID, creating a
// placeholder row on first contact. The real name and rating arrive later
// from the primary collector.
func (c *Controller) resolveRestaurant(ctx context.Context, placeID string) (insight.Restaurant, error) {
	restaurant, err := c.store.RestaurantByPlaceID(ctx, placeID)
	if err == nil {
		return restaurant, nil
	}
	if !errors.Is(err, insight.ErrNotFound) {
		return insight.Restaurant{}, err
	}

	id, err := c.ids.NewID()
	if err != nil {
		return insight.Restaurant{}, fmt.Errorf("generating restaurant id: %w", err)
	}
	now := c.clock.Now()
	restaurant = insight.Restaurant{
		ID:        id,
		PlaceID:   placeID,
		Name:      placeholderName(placeID),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := c.store.CreateRestaurant(ctx, restaurant); err != nil {
		// A concurrent trigger may have created the row between our lookup
		// and insert; prefer the winner's row.
		if existing, lookupErr := c.store.RestaurantByPlaceID(ctx, placeID); lookupErr == nil {
			return existing, nil
		}
		return insight.Restaurant{}, err
	}
	return restaurant, nil
}

func placeholderName(placeID string) string {
	short := placeID
	if len(short) > 8 {
		short = short[:8]
	}
	return "Restaurant_" + short
}
