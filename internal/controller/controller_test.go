package controller

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vibefinder/vibefinder/internal/insight"
	memoryqueue "github.com/vibefinder/vibefinder/internal/queue/memory"
	memorystore "github.com/vibefinder/vibefinder/internal/store/memory"
	"github.com/vibefinder/vibefinder/internal/telemetry"
)

func init() {
	telemetry.Init()
}

type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time { return c.now }

type seqIDs struct {
	n int
}

func (g *seqIDs) NewID() (string, error) {
	g.n++
	return fmt.Sprintf("id-%d", g.n), nil
}

func newController(t *testing.T) (*Controller, *memorystore.Store, insight.ScrapeQueue, *fixedClock) {
	t.Helper()
	store := memorystore.New()
	queue := memoryqueue.NewQueue[insight.ScrapeTask](8)
	clock := &fixedClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	gate := insight.NewGate(7 * 24 * time.Hour)
	ctrl := New(store, queue, &seqIDs{}, clock, gate, zap.NewNop())
	return ctrl, store, queue, clock
}

func TestTrigger_CreatesPlaceholderAndEnqueues(t *testing.T) {
	t.Parallel()

	ctrl, store, queue, _ := newController(t)
	ctx := context.Background()

	admission, err := ctrl.Trigger(ctx, "ChIJabcdef123456")
	require.NoError(t, err)
	require.NotEmpty(t, admission.JobID)
	require.Equal(t, "ChIJabcdef123456", admission.PlaceID)

	restaurant, err := store.RestaurantByPlaceID(ctx, "ChIJabcdef123456")
	require.NoError(t, err)
	require.Equal(t, "Restaurant_ChIJabcd", restaurant.Name)
	require.Equal(t, admission.RestaurantID, restaurant.ID)

	job, err := store.Job(ctx, admission.JobID)
	require.NoError(t, err)
	require.Equal(t, insight.JobStatusPending, job.Status)
	require.Equal(t, 1, job.Attempt)

	dqCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	task, err := queue.Dequeue(dqCtx)
	require.NoError(t, err)
	require.Equal(t, admission.JobID, task.JobID)
	require.Equal(t, 1, task.Attempt)
}

func TestTrigger_DuplicateReturnsConflictWithExistingJobID(t *testing.T) {
	t.Parallel()

	ctrl, _, _, _ := newController(t)
	ctx := context.Background()

	first, err := ctrl.Trigger(ctx, "place-1")
	require.NoError(t, err)

	_, err = ctrl.Trigger(ctx, "place-1")
	conflict, ok := insight.AsConflict(err)
	require.True(t, ok)
	require.Equal(t, first.JobID, conflict.JobID)
}

func TestTrigger_AllowedAgainAfterTerminalJob(t *testing.T) {
	t.Parallel()

	ctrl, store, queue, clock := newController(t)
	ctx := context.Background()

	first, err := ctrl.Trigger(ctx, "place-1")
	require.NoError(t, err)
	drain(t, queue)

	require.NoError(t, store.FinishJob(ctx, first.JobID, insight.JobStatusCompleted, 12, "", clock.Now()))

	second, err := ctrl.Trigger(ctx, "place-1")
	require.NoError(t, err)
	require.NotEqual(t, first.JobID, second.JobID)
	require.Equal(t, first.RestaurantID, second.RestaurantID)
}

func TestTriggerIfStale_SkipsFreshCache(t *testing.T) {
	t.Parallel()

	ctrl, store, queue, clock := newController(t)
	ctx := context.Background()

	admission, triggered, err := ctrl.TriggerIfStale(ctx, "place-1")
	require.NoError(t, err)
	require.True(t, triggered, "never-scraped place must trigger")
	drain(t, queue)
	require.NoError(t, store.FinishJob(ctx, admission.JobID, insight.JobStatusCompleted, 5, "", clock.Now()))
	require.NoError(t, store.SetLastRefreshed(ctx, admission.RestaurantID, clock.Now()))

	_, triggered, err = ctrl.TriggerIfStale(ctx, "place-1")
	require.NoError(t, err)
	require.False(t, triggered, "fresh cache must not trigger")

	clock.now = clock.now.Add(8 * 24 * time.Hour)
	_, triggered, err = ctrl.TriggerIfStale(ctx, "place-1")
	require.NoError(t, err)
	require.True(t, triggered, "stale cache must trigger")
}

func TestTrigger_EnqueueFailureFailsJob(t *testing.T) {
	t.Parallel()

	store := memorystore.New()
	queue := memoryqueue.NewQueue[insight.ScrapeTask](1)
	clock := &fixedClock{now: time.Now().UTC()}
	ctrl := New(store, queue, &seqIDs{}, clock, insight.NewGate(0), zap.NewNop())

	// Fill the only queue slot so the next enqueue blocks until the
	// caller's deadline expires.
	require.NoError(t, queue.Enqueue(context.Background(), insight.ScrapeTask{JobID: "occupier"}))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	admission, err := ctrl.Trigger(ctx, "place-1")
	require.Error(t, err)
	require.Empty(t, admission.JobID)

	jobs, err := store.ListJobs(ctx, insight.JobStatusFailed, 10)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	require.Contains(t, jobs[0].ErrorMessage, "enqueue failed")

	// Admission must stay live for the place after the failed enqueue.
	_, err = store.RestaurantByPlaceID(ctx, "place-1")
	require.NoError(t, err)
}

func TestStats_Aggregates(t *testing.T) {
	t.Parallel()

	ctrl, store, queue, clock := newController(t)
	ctx := context.Background()

	a, err := ctrl.Trigger(ctx, "place-1")
	require.NoError(t, err)
	_, err = ctrl.Trigger(ctx, "place-2")
	require.NoError(t, err)
	drain(t, queue)
	drain(t, queue)

	require.NoError(t, store.FinishJob(ctx, a.JobID, insight.JobStatusCompleted, 2, "", clock.Now()))
	for i, src := range []insight.ReviewSource{insight.SourceGoogleMaps, insight.SourceReddit} {
		_, err := store.AddReview(ctx, insight.Review{
			ID:           fmt.Sprintf("rev-%d", i),
			RestaurantID: a.RestaurantID,
			Text:         fmt.Sprintf("review %d", i),
			TextHash:     fmt.Sprintf("hash-%d", i),
			Source:       src,
			CollectedAt:  clock.Now(),
		})
		require.NoError(t, err)
	}

	stats, err := ctrl.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, stats.Restaurants)
	require.Equal(t, 2, stats.Reviews)
	require.Equal(t, 1, stats.ReviewsBySource[insight.SourceGoogleMaps])
	require.Equal(t, 1, stats.ReviewsBySource[insight.SourceReddit])
	require.Equal(t, 1, stats.JobsByStatus[insight.JobStatusCompleted])
	require.Equal(t, 1, stats.JobsByStatus[insight.JobStatusPending])
}

func drain(t *testing.T, queue insight.ScrapeQueue) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := queue.Dequeue(ctx)
	require.NoError(t, err)
}
