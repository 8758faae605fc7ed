package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"skyline/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Bookings(t *testing.T) {
	var patched map[string]string
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/bookings", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]models.Booking{{ID: 1, Name: "Ana", Status: "pending"}})
	})
	mux.HandleFunc("POST /api/bookings", func(w http.ResponseWriter, r *http.Request) {
		var in models.NewBooking
		_ = json.NewDecoder(r.Body).Decode(&in)
		assert.Equal(t, "Ana", in.Name)
		_ = json.NewEncoder(w).Encode(map[string]any{"id": 7, "status": "success"})
	})
	mux.HandleFunc("PATCH /api/bookings/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "1" {
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "booking not found"})
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&patched)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "updated"})
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	c := New(ts.URL + "/")
	ctx := context.Background()

	list, err := c.ListBookings(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Ana", list[0].Name)

	created, err := c.CreateBooking(ctx, models.NewBooking{Name: "Ana"})
	require.NoError(t, err)
	assert.Equal(t, int64(7), created.ID)
	assert.Equal(t, "success", created.Status)

	require.NoError(t, c.UpdateStatus(ctx, 1, models.StatusConfirmed))
	assert.Equal(t, "confirmed", patched["status"])

	err = c.UpdateStatus(ctx, 2, models.StatusConfirmed)
	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusNotFound, httpErr.StatusCode)
	assert.Equal(t, "booking not found", httpErr.Message)
	assert.Equal(t, "http 404: booking not found", err.Error())
}

func TestClient_ServicesCache(t *testing.T) {
	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"services": []models.Service{{Key: "drone", Label: "Drone Shooting"}},
		})
	}))
	defer ts.Close()

	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()
	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer rdb.Close()

	c := New(ts.URL)
	c.UseRedisCache(rdb, time.Minute)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		services, err := c.ListServices(ctx)
		require.NoError(t, err)
		require.Len(t, services, 1)
		assert.Equal(t, "Drone Shooting", services[0].Label)
	}
	assert.Equal(t, int32(1), hits.Load())

	s.FastForward(2 * time.Minute)
	_, err = c.ListServices(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())
}

func TestClient_TransportError(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	ts.Close()

	_, err := New(ts.URL).ListBookings(context.Background())
	assert.Error(t, err)
}
