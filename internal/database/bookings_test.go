package database

import (
	"context"
	"sync"
	"testing"
	"time"

	"skyline/internal/models"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBooking(name string) *models.Booking {
	return &models.Booking{
		Name:    name,
		Email:   name + "@example.com",
		Service: "Drone Shooting",
		Date:    "2025-06-01",
		Notes:   "rooftop shots",
	}
}

func TestCreateBooking(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	b := newBooking("alice")
	require.NoError(t, db.CreateBooking(ctx, b))

	assert.Equal(t, int64(1), b.ID)
	assert.Equal(t, models.StatusPending, b.Status)
	assert.WithinDuration(t, time.Now(), b.CreatedAt, 5*time.Second)

	got, err := db.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	if diff := cmp.Diff(b, got, cmpopts.IgnoreFields(models.Booking{}, "CreatedAt")); diff != "" {
		t.Errorf("booking mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, b.CreatedAt.Equal(got.CreatedAt))
}

func TestCreateBooking_IDsAreMonotonic(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	var last int64
	for i := 0; i < 5; i++ {
		b := newBooking("user")
		require.NoError(t, db.CreateBooking(ctx, b))
		assert.Greater(t, b.ID, last)
		last = b.ID
	}
}

func TestCreateBooking_EmptyNotes(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	_, err := db.ExecContext(ctx,
		`INSERT INTO bookings (name, email, service, date) VALUES ('bob', 'bob@example.com', 'Web Development', '2025-07-01')`)
	require.NoError(t, err)

	list, err := db.ListBookings(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "", list[0].Notes)
	assert.Equal(t, models.StatusPending, list[0].Status)
}

func TestListBookings(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	empty, err := db.ListBookings(ctx)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	for _, name := range []string{"first", "second", "third"} {
		require.NoError(t, db.CreateBooking(ctx, newBooking(name)))
	}

	list, err := db.ListBookings(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "third", list[0].Name)
	assert.Equal(t, "second", list[1].Name)
	assert.Equal(t, "first", list[2].Name)
}

func TestGetBooking_NotFound(t *testing.T) {
	db := setupTestDB(t)

	_, err := db.GetBooking(context.Background(), 42)
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestUpdateBookingStatus(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	b := newBooking("carol")
	require.NoError(t, db.CreateBooking(ctx, b))

	require.NoError(t, db.UpdateBookingStatus(ctx, b.ID, models.StatusConfirmed))

	got, err := db.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, got.Status)
	assert.Equal(t, b.Name, got.Name)
	assert.Equal(t, b.Notes, got.Notes)
	assert.True(t, b.CreatedAt.Equal(got.CreatedAt))

	t.Run("UnknownID", func(t *testing.T) {
		err := db.UpdateBookingStatus(ctx, 999, models.StatusConfirmed)
		assert.ErrorIs(t, err, ErrBookingNotFound)

		list, err := db.ListBookings(ctx)
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})
}

func TestUpdateBookingStatusFrom(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	b := newBooking("dave")
	require.NoError(t, db.CreateBooking(ctx, b))

	require.NoError(t, db.UpdateBookingStatusFrom(ctx, b.ID, models.StatusPending, models.StatusConfirmed))

	err := db.UpdateBookingStatusFrom(ctx, b.ID, models.StatusPending, models.StatusCancelled)
	assert.ErrorIs(t, err, ErrConcurrentModification)

	err = db.UpdateBookingStatusFrom(ctx, 999, models.StatusPending, models.StatusCancelled)
	assert.ErrorIs(t, err, ErrBookingNotFound)

	got, err := db.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, got.Status)
}

func TestUpdateBookingStatusFrom_Concurrent(t *testing.T) {
	logger := zerologNop()
	db, err := NewDB(t.TempDir()+"/concurrency.db", logger)
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	b := newBooking("erin")
	require.NoError(t, db.CreateBooking(ctx, b))

	const workers = 10
	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- db.UpdateBookingStatusFrom(ctx, b.ID, models.StatusPending, models.StatusConfirmed)
		}()
	}
	wg.Wait()
	close(results)

	success := 0
	for err := range results {
		if err == nil {
			success++
		} else {
			assert.ErrorIs(t, err, ErrConcurrentModification)
		}
	}
	assert.Equal(t, 1, success)
}

func TestDB_ErrorPaths(t *testing.T) {
	logger := zerologNop()
	db, err := NewDB(":memory:", logger)
	require.NoError(t, err)
	db.Close()

	ctx := context.Background()

	assert.Error(t, db.CreateBooking(ctx, newBooking("x")))

	_, err = db.ListBookings(ctx)
	assert.Error(t, err)

	_, err = db.GetBooking(ctx, 1)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrBookingNotFound)

	assert.Error(t, db.UpdateBookingStatus(ctx, 1, models.StatusConfirmed))
	assert.Error(t, db.CreateSyncTask(ctx, &models.SyncTask{TaskType: models.TaskUpsert}))

	_, err = db.GetPendingSyncTasks(ctx, 10)
	assert.Error(t, err)
}
