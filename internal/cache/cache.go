// Package cache is a read-through layer in front of the session store.
// Lookups are best effort: a cache fault never fails a request, it only
// costs a database round trip.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/marcogenualdo/authgate/internal/config"
	"github.com/marcogenualdo/authgate/internal/store"
)

var ErrNotFound = errors.New("session not cached")

type Cache interface {
	GetSession(ctx context.Context, sessionID string) (*store.Session, error)
	SetSession(ctx context.Context, session *store.Session, ttl time.Duration) error
	DeleteSession(ctx context.Context, sessionID string) error
	Ping(ctx context.Context) error
	Close() error
}

func New(cfg config.CacheConfig) (Cache, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryCache(), nil
	case "redis":
		if cfg.Redis == nil {
			return nil, errors.New("redis config is required for redis cache type")
		}
		return NewRedisCache(*cfg.Redis)
	default:
		return nil, errors.New("unsupported cache type: " + cfg.Type)
	}
}
