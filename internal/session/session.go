// Package session resolves request cookies into live sessions.
package session

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/marcogenualdo/authgate/internal/cache"
	"github.com/marcogenualdo/authgate/internal/httpx"
	"github.com/marcogenualdo/authgate/internal/store"
)

type sessionStore interface {
	SessionByID(ctx context.Context, sessionID string) (*store.Session, error)
}

// Resolver turns a request's cookie header into a session, or nil when the
// caller is anonymous. Lookups go through the read-through cache first; the
// store stays authoritative.
type Resolver struct {
	store      sessionStore
	cache      cache.Cache
	cookieName string
	cacheTTL   time.Duration
	logger     *slog.Logger
}

func NewResolver(store sessionStore, cache cache.Cache, cookieName string, cacheTTL time.Duration, logger *slog.Logger) *Resolver {
	return &Resolver{
		store:      store,
		cache:      cache,
		cookieName: cookieName,
		cacheTTL:   cacheTTL,
		logger:     logger,
	}
}

// Resolve parses the cookie header strictly and looks the session up. A
// missing cookie, or an identifier matching no live row, is not an error: it
// returns nil and the caller enters the login flow.
func (r *Resolver) Resolve(ctx context.Context, req *http.Request) (*store.Session, error) {
	cookies, err := httpx.Cookies(req)
	if err != nil {
		return nil, err
	}

	sessionID, ok := cookies[r.cookieName]
	if !ok || sessionID == "" {
		return nil, nil
	}

	if r.cache != nil {
		cached, err := r.cache.GetSession(ctx, sessionID)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, cache.ErrNotFound) {
			r.logger.Warn("session cache lookup failed", "error", err)
		}
	}

	session, err := r.store.SessionByID(ctx, sessionID)
	if err != nil || session == nil {
		return nil, err
	}

	if r.cache != nil {
		if err := r.cache.SetSession(ctx, session, r.entryTTL(session)); err != nil {
			r.logger.Warn("session cache store failed", "error", err)
		}
	}
	return session, nil
}

// entryTTL caps the cache entry at the session's remaining validity, so an
// expired session can outlive the store by at most the configured TTL.
func (r *Resolver) entryTTL(session *store.Session) time.Duration {
	ttl := r.cacheTTL
	if remaining := time.Until(session.ValidUntil); remaining < ttl {
		ttl = remaining
	}
	return ttl
}
