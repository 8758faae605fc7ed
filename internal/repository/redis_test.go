package repository

import (
	"context"
	"testing"
	"time"

	"skyline/internal/config"
	"skyline/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisChatStore(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	client := NewRedisClient(config.RedisConfig{Address: s.Addr()})
	defer Close(client)

	repo := NewRedisChatStore(client, time.Hour)
	ctx := context.Background()

	t.Run("SaveAndGet", func(t *testing.T) {
		session := &models.ChatSession{
			ID:       "abc",
			Language: models.LangAlbanian,
			Messages: []models.ChatMessage{{Role: models.RoleUser, Content: "Sa kushton?", At: time.Now().UTC()}},
		}
		require.NoError(t, repo.SaveSession(ctx, session))

		got, err := repo.GetSession(ctx, "abc")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, models.LangAlbanian, got.Language)
		require.Len(t, got.Messages, 1)
		assert.Equal(t, "Sa kushton?", got.Messages[0].Content)
		assert.True(t, s.Exists(chatKeyPrefix+"abc"))
	})

	t.Run("GetMissing", func(t *testing.T) {
		got, err := repo.GetSession(ctx, "missing")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("Expiry", func(t *testing.T) {
		require.NoError(t, repo.SaveSession(ctx, &models.ChatSession{ID: "short"}))
		s.FastForward(2 * time.Hour)

		got, err := repo.GetSession(ctx, "short")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, repo.SaveSession(ctx, &models.ChatSession{ID: "gone"}))
		require.NoError(t, repo.DeleteSession(ctx, "gone"))

		got, err := repo.GetSession(ctx, "gone")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("CorruptValue", func(t *testing.T) {
		require.NoError(t, s.Set(chatKeyPrefix+"bad", "{not json"))
		_, err := repo.GetSession(ctx, "bad")
		assert.Error(t, err)
	})

	t.Run("Ping", func(t *testing.T) {
		assert.NoError(t, Ping(ctx, client))
	})
}

func TestRedisChatStore_NilClient(t *testing.T) {
	repo := NewRedisChatStore(nil, time.Hour)
	ctx := context.Background()

	_, err := repo.GetSession(ctx, "x")
	assert.Error(t, err)
	assert.Error(t, repo.SaveSession(ctx, &models.ChatSession{ID: "x"}))
	assert.Error(t, repo.DeleteSession(ctx, "x"))
	assert.NoError(t, Close(nil))
}

func TestRedisChatStore_ServerDown(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: s.Addr(), MaxRetries: -1})
	defer client.Close()
	s.Close()

	repo := NewRedisChatStore(client, time.Hour)
	_, err = repo.GetSession(context.Background(), "x")
	assert.Error(t, err)
	assert.Error(t, Ping(context.Background(), client))
}
