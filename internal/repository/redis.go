package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"skyline/internal/config"
	"skyline/internal/models"

	"github.com/redis/go-redis/v9"
)

const chatKeyPrefix = "chat_session:"

// NewRedisClient builds a Redis client from the redis config section.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

// RedisChatStore keeps chat transcripts as JSON strings with a sliding TTL.
type RedisChatStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisChatStore(client *redis.Client, ttl time.Duration) *RedisChatStore {
	return &RedisChatStore{
		client: client,
		ttl:    ttl,
	}
}

func chatKey(id string) string {
	return chatKeyPrefix + id
}

func (r *RedisChatStore) GetSession(ctx context.Context, id string) (*models.ChatSession, error) {
	if r.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	val, err := r.client.Get(ctx, chatKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get chat session from redis: %w", err)
	}

	var session models.ChatSession
	if err := json.Unmarshal(val, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal chat session: %w", err)
	}
	return &session, nil
}

func (r *RedisChatStore) SaveSession(ctx context.Context, session *models.ChatSession) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal chat session: %w", err)
	}
	if err := r.client.Set(ctx, chatKey(session.ID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save chat session in redis: %w", err)
	}
	return nil
}

func (r *RedisChatStore) DeleteSession(ctx context.Context, id string) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := r.client.Del(ctx, chatKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete chat session from redis: %w", err)
	}
	return nil
}

// Ping checks the Redis connection.
func Ping(ctx context.Context, client *redis.Client) error {
	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

// Close closes the client if there is one.
func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}
