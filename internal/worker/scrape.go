// Package worker implements the two execution lanes: the scrape lane that
// runs collectors against a restaurant, and the analysis lane that scores
// collected reviews.
package worker

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vibefinder/vibefinder/internal/insight"
	"github.com/vibefinder/vibefinder/internal/telemetry"
)

// ScrapeConfig controls scrape lane behavior.
type ScrapeConfig struct {
	MaxReviews   int
	MaxAttempts  int
	RetryBackoff time.Duration
	SoftBudget   time.Duration
	HardBudget   time.Duration
	EventTopic   string
}

// ScrapeWorker consumes scrape tasks and executes the collection pipeline
// against every configured source. Only the primary source's failure fails
// the attempt; supplementary sources degrade to a warning.
type ScrapeWorker struct {
	queue      insight.ScrapeQueue
	cascade    insight.CascadeQueue
	store      insight.Store
	collectors []insight.SourceCollector
	hasher     insight.Hasher
	ids        insight.IDGenerator
	clock      insight.Clock
	publisher  insight.Publisher
	cfg        ScrapeConfig
	logger     *zap.Logger
}

// NewScrape constructs a ScrapeWorker. The publisher may be nil, in which
// case lifecycle events are not emitted.
func NewScrape(
	queue insight.ScrapeQueue,
	cascade insight.CascadeQueue,
	store insight.Store,
	collectors []insight.SourceCollector,
	hasher insight.Hasher,
	ids insight.IDGenerator,
	clock insight.Clock,
	publisher insight.Publisher,
	cfg ScrapeConfig,
	logger *zap.Logger,
) *ScrapeWorker {
	if cfg.MaxReviews <= 0 {
		cfg.MaxReviews = 100
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 60 * time.Second
	}
	if cfg.HardBudget <= 0 {
		cfg.HardBudget = 30 * time.Minute
	}
	if cfg.SoftBudget <= 0 || cfg.SoftBudget > cfg.HardBudget {
		cfg.SoftBudget = cfg.HardBudget
	}
	return &ScrapeWorker{
		queue:      queue,
		cascade:    cascade,
		store:      store,
		collectors: collectors,
		hasher:     hasher,
		ids:        ids,
		clock:      clock,
		publisher:  publisher,
		cfg:        cfg,
		logger:     logger,
	}
}

// Run blocks, consuming scrape tasks until the context finishes.
func (w *ScrapeWorker) Run(ctx context.Context) {
	for {
		task, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Error("scrape dequeue failed", zap.Error(err))
			continue
		}
		w.process(ctx, task)
	}
}

func (w *ScrapeWorker) process(ctx context.Context, task insight.ScrapeTask) {
	telemetry.IncActiveWorkers("scrape")
	defer telemetry.DecActiveWorkers("scrape")

	logger := w.logger.With(
		zap.String("job_id", task.JobID),
		zap.String("place_id", task.PlaceID),
		zap.Int("attempt", task.Attempt),
	)

	if err := w.store.MarkJobRunning(ctx, task.JobID, task.Attempt); err != nil {
		logger.Error("marking job running", zap.Error(err))
		return
	}
	w.publish(ctx, "job.running", task, 0, "")

	restaurant, err := w.store.Restaurant(ctx, task.RestaurantID)
	if err != nil {
		w.fail(ctx, task, 0, "loading restaurant: "+err.Error(), logger)
		return
	}

	jobCtx, cancel := context.WithTimeout(ctx, w.cfg.HardBudget)
	defer cancel()
	softTimer := time.AfterFunc(w.cfg.SoftBudget, func() {
		logger.Warn("scrape exceeding soft time budget",
			zap.Duration("soft_budget", w.cfg.SoftBudget))
	})
	defer softTimer.Stop()

	target := insight.CollectTarget{
		PlaceID: restaurant.PlaceID,
		Name:    restaurant.Name,
		Address: restaurant.Address,
		Limit:   w.cfg.MaxReviews,
	}

	total := 0
	for _, col := range w.collectors {
		collection, err := col.Collect(jobCtx, target)
		if err != nil {
			if col.Primary() {
				telemetry.ObserveCollectorFailure(string(col.Name()), "primary")
				w.fail(ctx, task, total, string(col.Name())+" collection failed: "+err.Error(), logger)
				return
			}
			telemetry.ObserveCollectorFailure(string(col.Name()), "supplementary")
			logger.Warn("supplementary source failed",
				zap.String("source", string(col.Name())), zap.Error(err))
			continue
		}

		if col.Primary() && collection.Profile != nil {
			p := collection.Profile
			if err := w.store.UpdateRestaurantProfile(ctx, restaurant.ID, p.Name, p.Rating, p.Address, p.TotalRatings); err != nil {
				logger.Error("updating restaurant profile", zap.Error(err))
			}
		}

		added := w.persist(ctx, restaurant.ID, col.Name(), collection.Reviews, logger)
		telemetry.ObserveReviewsCollected(string(col.Name()), added)
		total += added
	}

	now := w.clock.Now()
	if err := w.store.SetLastRefreshed(ctx, restaurant.ID, now); err != nil {
		logger.Error("stamping last refresh", zap.Error(err))
	}
	if err := w.store.FinishJob(ctx, task.JobID, insight.JobStatusCompleted, total, "", now); err != nil {
		logger.Error("completing job", zap.Error(err))
		return
	}
	telemetry.ObserveJob("completed")
	w.publish(ctx, "job.completed", task, total, "")
	logger.Info("scrape job completed", zap.Int("reviews_collected", total))

	if total > 0 {
		if err := w.cascade.Enqueue(ctx, insight.CascadeTask{RestaurantID: restaurant.ID}); err != nil {
			// Cascade loss never fails a completed job; unprocessed reviews
			// are picked up by the next scrape of the same restaurant.
			logger.Error("enqueueing cascade task", zap.Error(err))
		}
	}
}

// persist writes collected reviews, skipping textless entries and
// duplicates already cached for the restaurant.
func (w *ScrapeWorker) persist(ctx context.Context, restaurantID string, source insight.ReviewSource, raws []insight.RawReview, logger *zap.Logger) int {
	added := 0
	for _, raw := range raws {
		text := strings.TrimSpace(raw.Text)
		if text == "" {
			continue
		}
		hash, err := w.hasher.Hash([]byte(text))
		if err != nil {
			logger.Error("hashing review text", zap.Error(err))
			continue
		}
		id, err := w.ids.NewID()
		if err != nil {
			logger.Error("generating review id", zap.Error(err))
			continue
		}
		ok, err := w.store.AddReview(ctx, insight.Review{
			ID:           id,
			RestaurantID: restaurantID,
			Text:         text,
			TextHash:     hash,
			Rating:       raw.Rating,
			Author:       raw.Author,
			DateText:     raw.DateText,
			Source:       source,
			CollectedAt:  w.clock.Now(),
		})
		if err != nil {
			logger.Error("persisting review", zap.String("source", string(source)), zap.Error(err))
			continue
		}
		if ok {
			added++
		}
	}
	return added
}

// fail marks the attempt failed and, when attempts remain, schedules a
// delayed re-execution of the same job with the next attempt number. The
// job stays visible as failed while the backoff elapses.
func (w *ScrapeWorker) fail(ctx context.Context, task insight.ScrapeTask, reviews int, errMsg string, logger *zap.Logger) {
	if err := w.store.FinishJob(ctx, task.JobID, insight.JobStatusFailed, reviews, errMsg, w.clock.Now()); err != nil {
		logger.Error("failing job", zap.Error(err))
	}
	telemetry.ObserveJob("failed")
	w.publish(ctx, "job.failed", task, reviews, errMsg)
	logger.Error("scrape attempt failed", zap.String("error_message", errMsg))

	if task.Attempt >= w.cfg.MaxAttempts {
		logger.Error("job exhausted retries", zap.Int("max_attempts", w.cfg.MaxAttempts))
		return
	}

	next := task
	next.Attempt++
	telemetry.ObserveJob("retried")
	logger.Info("scheduling retry",
		zap.Int("next_attempt", next.Attempt),
		zap.Duration("backoff", w.cfg.RetryBackoff))
	go func() {
		select {
		case <-ctx.Done():
			return
		case <-time.After(w.cfg.RetryBackoff):
		}
		if err := w.queue.Enqueue(ctx, next); err != nil {
			logger.Error("re-enqueueing job", zap.Error(err))
		}
	}()
}

func (w *ScrapeWorker) publish(ctx context.Context, eventType string, task insight.ScrapeTask, reviews int, errMsg string) {
	if w.publisher == nil {
		return
	}
	event := struct {
		Type         string `json:"type"`
		JobID        string `json:"jobId"`
		RestaurantID string `json:"restaurantId"`
		PlaceID      string `json:"placeId"`
		Attempt      int    `json:"attempt"`
		Reviews      int    `json:"reviews"`
		Error        string `json:"error,omitempty"`
	}{eventType, task.JobID, task.RestaurantID, task.PlaceID, task.Attempt, reviews, errMsg}

	if _, err := w.publisher.Publish(ctx, w.cfg.EventTopic, event); err != nil {
		w.logger.Warn("publishing job event",
			zap.String("type", eventType),
			zap.String("job_id", task.JobID),
			zap.Error(err))
	}
}
