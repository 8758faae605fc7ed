package client

import (
	"context"
	"errors"
	"testing"

	"skyline/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBookingAPI struct {
	bookings  []models.Booking
	updateErr error
	listCalls int
	updates   []string
}

func (f *fakeBookingAPI) ListBookings(context.Context) ([]models.Booking, error) {
	f.listCalls++
	out := make([]models.Booking, len(f.bookings))
	copy(out, f.bookings)
	return out, nil
}

func (f *fakeBookingAPI) UpdateStatus(_ context.Context, id int64, status string) error {
	f.updates = append(f.updates, status)
	if f.updateErr != nil {
		return f.updateErr
	}
	for i := range f.bookings {
		if f.bookings[i].ID == id {
			f.bookings[i].Status = status
		}
	}
	return nil
}

func sampleBookings() []models.Booking {
	return []models.Booking{
		{ID: 3, Name: "Ana Smith", Service: "Web Development", Status: models.StatusPending},
		{ID: 2, Name: "Ben", Service: "Drone Shooting", Status: models.StatusConfirmed},
		{ID: 1, Name: "Cleo", Service: "Video Editing", Status: models.StatusCompleted},
	}
}

func TestOrderManager_Visible(t *testing.T) {
	api := &fakeBookingAPI{bookings: sampleBookings()}
	m := NewOrderManager(api)
	require.NoError(t, m.Refresh(context.Background()))

	assert.Len(t, m.Visible(""), 3)

	byName := m.Visible("ANA")
	require.Len(t, byName, 1)
	assert.Equal(t, int64(3), byName[0].ID)

	byService := m.Visible("drone")
	require.Len(t, byService, 1)
	assert.Equal(t, "Ben", byService[0].Name)

	assert.Empty(t, m.Visible("zzz"))
	assert.Len(t, m.Bookings(), 3)
	assert.Equal(t, 1, api.listCalls)
}

func TestActions(t *testing.T) {
	assert.Equal(t, []Action{ActionConfirm, ActionCancel}, Actions(models.Booking{Status: models.StatusPending}))
	assert.Equal(t, []Action{ActionComplete, ActionCancel}, Actions(models.Booking{Status: models.StatusConfirmed}))
	assert.Empty(t, Actions(models.Booking{Status: models.StatusCompleted}))
	assert.Empty(t, Actions(models.Booking{Status: models.StatusCancelled}))
}

func TestParseAction(t *testing.T) {
	a, ok := ParseAction(" Confirm ")
	assert.True(t, ok)
	assert.Equal(t, ActionConfirm, a)
	assert.Equal(t, models.StatusConfirmed, a.TargetStatus())

	_, ok = ParseAction("delete")
	assert.False(t, ok)
}

func TestOrderManager_ApplyRefetches(t *testing.T) {
	api := &fakeBookingAPI{bookings: sampleBookings()}
	m := NewOrderManager(api)
	ctx := context.Background()
	require.NoError(t, m.Refresh(ctx))

	require.NoError(t, m.Apply(ctx, 3, ActionConfirm))
	assert.Equal(t, []string{models.StatusConfirmed}, api.updates)
	assert.Equal(t, 2, api.listCalls)
	assert.Equal(t, models.StatusConfirmed, m.Bookings()[0].Status)
}

func TestOrderManager_ApplyFailureStillRefetches(t *testing.T) {
	api := &fakeBookingAPI{bookings: sampleBookings(), updateErr: errors.New("conflict")}
	m := NewOrderManager(api)
	ctx := context.Background()

	err := m.Apply(ctx, 1, ActionCancel)
	assert.EqualError(t, err, "conflict")
	assert.Equal(t, 1, api.listCalls)
	assert.Len(t, m.Bookings(), 3)

	assert.Error(t, m.Apply(ctx, 1, Action("archive")))
	assert.Equal(t, 1, api.listCalls)
}
