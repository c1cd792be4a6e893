package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/vibefinder/vibefinder/internal/insight"
)

func newMockStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return New(mock), mock
}

func TestStore_CreateJob_Inserts(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO scrape_jobs`)).
		WithArgs("job-1", "rest-1", "place-1", "pending", 1, now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := store.CreateJob(context.Background(), insight.Job{
		ID:           "job-1",
		RestaurantID: "rest-1",
		PlaceID:      "place-1",
		Status:       insight.JobStatusPending,
		Attempt:      1,
		CreatedAt:    now,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_CreateJob_UniqueViolationBecomesConflict(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO scrape_jobs`)).
		WithArgs("job-2", "rest-1", "place-1", "pending", 1, now).
		WillReturnError(&pgconn.PgError{Code: uniqueViolation})
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM scrape_jobs WHERE place_id = $1 AND status IN ('pending', 'running')`)).
		WithArgs("place-1").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("job-1"))

	err := store.CreateJob(context.Background(), insight.Job{
		ID:           "job-2",
		RestaurantID: "rest-1",
		PlaceID:      "place-1",
		Status:       insight.JobStatusPending,
		Attempt:      1,
		CreatedAt:    now,
	})
	conflict, ok := insight.AsConflict(err)
	require.True(t, ok)
	require.Equal(t, "job-1", conflict.JobID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_MarkReviewProcessed_Conditional(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE reviews SET sentiment_score = $2, processed = TRUE`)).
		WithArgs("rev-1", 0.8).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE reviews SET sentiment_score = $2, processed = TRUE`)).
		WithArgs("rev-1", 0.8).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	claimed, err := store.MarkReviewProcessed(context.Background(), "rev-1", 0.8)
	require.NoError(t, err)
	require.True(t, claimed)

	claimed, err = store.MarkReviewProcessed(context.Background(), "rev-1", 0.8)
	require.NoError(t, err)
	require.False(t, claimed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_AddReview_DuplicateIsSkipped(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO reviews`)).
		WithArgs("rev-1", "rest-1", "solid brunch spot", "hash-1", pgxmock.AnyArg(), "ana", "a week ago", "google_maps", now).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	added, err := store.AddReview(context.Background(), insight.Review{
		ID:           "rev-1",
		RestaurantID: "rest-1",
		Text:         "solid brunch spot",
		TextHash:     "hash-1",
		Author:       "ana",
		DateText:     "a week ago",
		Source:       insight.SourceGoogleMaps,
		CollectedAt:  now,
	})
	require.NoError(t, err)
	require.False(t, added)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Job_NotFound(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT .+ FROM scrape_jobs WHERE id = \$1`).
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows([]string{"id", "restaurant_id", "place_id", "status", "attempt", "reviews_collected", "error_message", "created_at", "completed_at"}))

	_, err := store.Job(context.Background(), "missing")
	require.ErrorIs(t, err, insight.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_SetLastRefreshed(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	at := time.Now()

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE restaurants SET last_refreshed_at = $2, updated_at = $2 WHERE id = $1`)).
		WithArgs("rest-1", at).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, store.SetLastRefreshed(context.Background(), "rest-1", at))
	require.NoError(t, mock.ExpectationsWereMet())
}
