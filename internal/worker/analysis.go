package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/vibefinder/vibefinder/internal/insight"
	"github.com/vibefinder/vibefinder/internal/telemetry"
)

// AnalysisWorker consumes cascade tasks and scores every unprocessed
// review of the target restaurant. Runs are idempotent: concurrent or
// repeated runs over the same restaurant never double-score a review.
type AnalysisWorker struct {
	queue  insight.CascadeQueue
	store  insight.Store
	engine insight.Engine
	logger *zap.Logger
}

// NewAnalysis constructs an AnalysisWorker.
func NewAnalysis(queue insight.CascadeQueue, store insight.Store, engine insight.Engine, logger *zap.Logger) *AnalysisWorker {
	return &AnalysisWorker{
		queue:  queue,
		store:  store,
		engine: engine,
		logger: logger,
	}
}

// Run blocks, consuming cascade tasks until the context finishes.
func (w *AnalysisWorker) Run(ctx context.Context) {
	for {
		task, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Error("cascade dequeue failed", zap.Error(err))
			continue
		}
		w.process(ctx, task)
	}
}

func (w *AnalysisWorker) process(ctx context.Context, task insight.CascadeTask) {
	telemetry.IncActiveWorkers("analysis")
	defer telemetry.DecActiveWorkers("analysis")

	logger := w.logger.With(zap.String("restaurant_id", task.RestaurantID))

	reviews, err := w.store.ListUnprocessedReviews(ctx, task.RestaurantID)
	if err != nil {
		telemetry.ObserveCascade("error")
		logger.Error("listing unprocessed reviews", zap.Error(err))
		return
	}
	if len(reviews) == 0 {
		telemetry.ObserveCascade("no_reviews")
		logger.Debug("no unprocessed reviews")
		return
	}

	scored := 0
	for _, rev := range reviews {
		score := w.engine.ScoreReview(rev.Text)
		claimed, err := w.store.MarkReviewProcessed(ctx, rev.ID, score)
		if err != nil {
			logger.Error("marking review processed",
				zap.String("review_id", rev.ID), zap.Error(err))
			continue
		}
		if claimed {
			scored++
		}
	}

	telemetry.ObserveReviewsScored(scored)
	telemetry.ObserveCascade("success")
	logger.Info("cascade complete",
		zap.Int("unprocessed", len(reviews)),
		zap.Int("scored", scored))
}
