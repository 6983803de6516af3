package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/marcogenualdo/authgate/internal/cache"
	"github.com/marcogenualdo/authgate/internal/httpx"
	"github.com/marcogenualdo/authgate/internal/store"
)

type fakeSessionStore struct {
	sessions map[string]*store.Session
	err      error
	lookups  int
}

func (f *fakeSessionStore) SessionByID(ctx context.Context, sessionID string) (*store.Session, error) {
	f.lookups++
	if f.err != nil {
		return nil, f.err
	}
	return f.sessions[sessionID], nil
}

type faultyCache struct{}

func (faultyCache) GetSession(ctx context.Context, sessionID string) (*store.Session, error) {
	return nil, errors.New("connection refused")
}
func (faultyCache) SetSession(ctx context.Context, session *store.Session, ttl time.Duration) error {
	return errors.New("connection refused")
}
func (faultyCache) DeleteSession(ctx context.Context, sessionID string) error { return nil }
func (faultyCache) Ping(ctx context.Context) error                            { return nil }
func (faultyCache) Close() error                                              { return nil }

func liveSession(id string) *store.Session {
	return &store.Session{
		SessionID:  id,
		UserID:     7,
		Email:      "a@b.example",
		ValidUntil: time.Now().Add(time.Hour),
	}
}

func newTestResolver(st sessionStore, c cache.Cache) *Resolver {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewResolver(st, c, "session", time.Minute, logger)
}

func TestResolveNoCookieHeader(t *testing.T) {
	resolver := newTestResolver(&fakeSessionStore{}, nil)

	r := httptest.NewRequest("GET", "/secure", nil)
	session, err := resolver.Resolve(context.Background(), r)
	if err != nil || session != nil {
		t.Fatalf("expected anonymous, got session=%v err=%v", session, err)
	}
}

func TestResolveOtherCookiesOnly(t *testing.T) {
	resolver := newTestResolver(&fakeSessionStore{}, nil)

	r := httptest.NewRequest("GET", "/secure", nil)
	r.Header.Set("Cookie", "theme=dark")
	session, err := resolver.Resolve(context.Background(), r)
	if err != nil || session != nil {
		t.Fatalf("expected anonymous, got session=%v err=%v", session, err)
	}
}

func TestResolveUnknownSessionID(t *testing.T) {
	st := &fakeSessionStore{sessions: map[string]*store.Session{}}
	resolver := newTestResolver(st, nil)

	r := httptest.NewRequest("GET", "/secure", nil)
	r.Header.Set("Cookie", "session=stale-id")
	session, err := resolver.Resolve(context.Background(), r)
	if err != nil || session != nil {
		t.Fatalf("unknown session must resolve to nil without error, got %v/%v", session, err)
	}
}

func TestResolveKnownSession(t *testing.T) {
	st := &fakeSessionStore{sessions: map[string]*store.Session{
		"abc": liveSession("abc"),
	}}
	resolver := newTestResolver(st, nil)

	r := httptest.NewRequest("GET", "/secure", nil)
	r.Header.Set("Cookie", "session=abc")
	session, err := resolver.Resolve(context.Background(), r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session == nil || session.Email != "a@b.example" {
		t.Fatalf("unexpected session: %+v", session)
	}
}

func TestResolveMalformedCookieIsAnError(t *testing.T) {
	resolver := newTestResolver(&fakeSessionStore{}, nil)

	r := httptest.NewRequest("GET", "/secure", nil)
	r.Header.Set("Cookie", "session=a; session=b")
	_, err := resolver.Resolve(context.Background(), r)

	var clientErr *httpx.ClientError
	if !errors.As(err, &clientErr) || clientErr.Kind != httpx.KindDuplicateCookies {
		t.Fatalf("expected DuplicateCookies, got %v", err)
	}
}

func TestResolveStoreFaultPropagates(t *testing.T) {
	st := &fakeSessionStore{err: httpx.Db(errors.New("connection reset"))}
	resolver := newTestResolver(st, nil)

	r := httptest.NewRequest("GET", "/secure", nil)
	r.Header.Set("Cookie", "session=abc")
	_, err := resolver.Resolve(context.Background(), r)

	var internalErr *httpx.InternalError
	if !errors.As(err, &internalErr) {
		t.Fatalf("expected an InternalError, got %v", err)
	}
}

func TestResolveCacheHitSkipsStore(t *testing.T) {
	st := &fakeSessionStore{sessions: map[string]*store.Session{
		"abc": liveSession("abc"),
	}}
	mc := cache.NewMemoryCache()
	defer mc.Close()
	resolver := newTestResolver(st, mc)

	r := httptest.NewRequest("GET", "/secure", nil)
	r.Header.Set("Cookie", "session=abc")

	if _, err := resolver.Resolve(context.Background(), r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.lookups != 1 {
		t.Fatalf("first resolve should hit the store once, got %d", st.lookups)
	}

	session, err := resolver.Resolve(context.Background(), r)
	if err != nil || session == nil {
		t.Fatalf("unexpected result: %v/%v", session, err)
	}
	if st.lookups != 1 {
		t.Fatalf("second resolve should be served from cache, store lookups=%d", st.lookups)
	}
}

func TestResolveCacheFaultFallsThroughToStore(t *testing.T) {
	st := &fakeSessionStore{sessions: map[string]*store.Session{
		"abc": liveSession("abc"),
	}}
	resolver := newTestResolver(st, faultyCache{})

	r := httptest.NewRequest("GET", "/secure", nil)
	r.Header.Set("Cookie", "session=abc")

	session, err := resolver.Resolve(context.Background(), r)
	if err != nil {
		t.Fatalf("cache faults must not fail the request: %v", err)
	}
	if session == nil || session.UserID != 7 {
		t.Fatalf("unexpected session: %+v", session)
	}
}

func TestEntryTTLCappedBySessionValidity(t *testing.T) {
	resolver := newTestResolver(&fakeSessionStore{}, nil)

	nearExpiry := liveSession("abc")
	nearExpiry.ValidUntil = time.Now().Add(10 * time.Second)

	if ttl := resolver.entryTTL(nearExpiry); ttl > 10*time.Second {
		t.Fatalf("ttl must not outlive the session, got %v", ttl)
	}

	longLived := liveSession("def")
	if ttl := resolver.entryTTL(longLived); ttl != time.Minute {
		t.Fatalf("expected the configured ttl, got %v", ttl)
	}
}
