package cache

import (
	"context"
	"sync"
	"time"

	"github.com/marcogenualdo/authgate/internal/store"
)

// MemoryCache holds sessions in-process. Suitable for single-instance
// deployments; run the redis backend when authgate is replicated.
type MemoryCache struct {
	sessions map[string]*cachedSession
	mu       sync.RWMutex
	stopCh   chan struct{}
}

type cachedSession struct {
	session   store.Session
	expiresAt time.Time
}

func NewMemoryCache() *MemoryCache {
	mc := &MemoryCache{
		sessions: make(map[string]*cachedSession),
		stopCh:   make(chan struct{}),
	}

	go mc.cleanupExpired()

	return mc
}

func (mc *MemoryCache) GetSession(ctx context.Context, sessionID string) (*store.Session, error) {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	item, exists := mc.sessions[sessionID]
	if !exists {
		return nil, ErrNotFound
	}

	if time.Now().After(item.expiresAt) {
		return nil, ErrNotFound
	}

	sessionCopy := item.session
	return &sessionCopy, nil
}

func (mc *MemoryCache) SetSession(ctx context.Context, session *store.Session, ttl time.Duration) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.sessions[session.SessionID] = &cachedSession{
		session:   *session,
		expiresAt: time.Now().Add(ttl),
	}

	return nil
}

func (mc *MemoryCache) DeleteSession(ctx context.Context, sessionID string) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	delete(mc.sessions, sessionID)
	return nil
}

func (mc *MemoryCache) Ping(ctx context.Context) error {
	return nil
}

func (mc *MemoryCache) Close() error {
	close(mc.stopCh)
	return nil
}

func (mc *MemoryCache) cleanupExpired() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			mc.cleanup()
		case <-mc.stopCh:
			return
		}
	}
}

func (mc *MemoryCache) cleanup() {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	now := time.Now()
	for id, item := range mc.sessions {
		if now.After(item.expiresAt) {
			delete(mc.sessions, id)
		}
	}
}
