package repository

import (
	"context"
	"sync"
	"time"

	"skyline/internal/models"
)

type memoryEntry struct {
	session   models.ChatSession
	expiresAt time.Time
}

// MemoryChatStore is the process-local transcript store used when Redis is
// not configured or unreachable.
type MemoryChatStore struct {
	sessions sync.Map
	ttl      time.Duration
	now      func() time.Time
}

func NewMemoryChatStore(ttl time.Duration) *MemoryChatStore {
	return &MemoryChatStore{ttl: ttl, now: time.Now}
}

func (r *MemoryChatStore) GetSession(_ context.Context, id string) (*models.ChatSession, error) {
	val, ok := r.sessions.Load(id)
	if !ok {
		return nil, nil
	}
	entry := val.(*memoryEntry)
	if r.ttl > 0 && r.now().After(entry.expiresAt) {
		r.sessions.Delete(id)
		return nil, nil
	}

	session := entry.session
	session.Messages = append([]models.ChatMessage(nil), entry.session.Messages...)
	return &session, nil
}

func (r *MemoryChatStore) SaveSession(_ context.Context, session *models.ChatSession) error {
	entry := &memoryEntry{session: *session, expiresAt: r.now().Add(r.ttl)}
	entry.session.Messages = append([]models.ChatMessage(nil), session.Messages...)
	r.sessions.Store(session.ID, entry)
	return nil
}

// Cleanup drops every expired session and returns how many were removed.
func (r *MemoryChatStore) Cleanup() int {
	if r.ttl <= 0 {
		return 0
	}
	now := r.now()
	removed := 0
	r.sessions.Range(func(key, val any) bool {
		if now.After(val.(*memoryEntry).expiresAt) {
			r.sessions.Delete(key)
			removed++
		}
		return true
	})
	return removed
}

// StartCleanup runs Cleanup every interval until ctx is done.
func (r *MemoryChatStore) StartCleanup(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Cleanup()
		}
	}
}

func (r *MemoryChatStore) size() int {
	n := 0
	r.sessions.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

func (r *MemoryChatStore) DeleteSession(_ context.Context, id string) error {
	r.sessions.Delete(id)
	return nil
}
