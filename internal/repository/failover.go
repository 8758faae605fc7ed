package repository

import (
	"context"
	"sync/atomic"
	"time"

	"skyline/internal/domain"
	"skyline/internal/models"

	"github.com/rs/zerolog"
)

const recoveryInterval = time.Minute

// FailoverChatStore writes to the primary store until it fails, then serves
// from the fallback and probes the primary again once a minute.
type FailoverChatStore struct {
	primary   domain.ChatStore
	fallback  domain.ChatStore
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck atomic.Int64
}

func NewFailoverChatStore(primary, fallback domain.ChatStore, logger *zerolog.Logger) *FailoverChatStore {
	return &FailoverChatStore{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (r *FailoverChatStore) markDown(err error) {
	r.logger.Error().Err(err).Msg("Primary chat store failed, falling back to memory")
	r.isDown.Store(true)
	r.lastCheck.Store(time.Now().UnixNano())
}

// usePrimary reports whether the next call should go to the primary store.
func (r *FailoverChatStore) usePrimary() bool {
	if !r.isDown.Load() {
		return true
	}
	last := time.Unix(0, r.lastCheck.Load())
	return time.Since(last) > recoveryInterval
}

func (r *FailoverChatStore) recovered() {
	if r.isDown.CompareAndSwap(true, false) {
		r.logger.Info().Msg("Primary chat store recovered")
	}
}

func (r *FailoverChatStore) GetSession(ctx context.Context, id string) (*models.ChatSession, error) {
	if r.usePrimary() {
		session, err := r.primary.GetSession(ctx, id)
		if err == nil {
			r.recovered()
			return session, nil
		}
		r.markDown(err)
	}
	return r.fallback.GetSession(ctx, id)
}

func (r *FailoverChatStore) SaveSession(ctx context.Context, session *models.ChatSession) error {
	if r.usePrimary() {
		err := r.primary.SaveSession(ctx, session)
		if err == nil {
			r.recovered()
			return nil
		}
		r.markDown(err)
	}
	return r.fallback.SaveSession(ctx, session)
}

func (r *FailoverChatStore) DeleteSession(ctx context.Context, id string) error {
	if r.usePrimary() {
		err := r.primary.DeleteSession(ctx, id)
		if err == nil {
			r.recovered()
			return r.fallback.DeleteSession(ctx, id)
		}
		r.markDown(err)
	}
	return r.fallback.DeleteSession(ctx, id)
}
