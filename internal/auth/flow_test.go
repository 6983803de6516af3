package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/marcogenualdo/authgate/internal/httpx"
)

type fakeProvider struct {
	exchangeErr  error
	rawIDToken   string
	verifyErr    error
	email        string
	exchanged    string
	verifiedWith string
}

func (p *fakeProvider) AuthCodeURL(state, nonce string) string {
	return "https://idp.example/authorize?state=" + state + "&nonce=" + nonce
}

func (p *fakeProvider) Exchange(ctx context.Context, code string) (string, error) {
	p.exchanged = code
	return p.rawIDToken, p.exchangeErr
}

func (p *fakeProvider) VerifyIDToken(ctx context.Context, rawIDToken, nonce string) (string, error) {
	p.verifiedWith = nonce
	return p.email, p.verifyErr
}

type fakeStore struct {
	logins   map[string]string
	users    map[string]int64
	sessions map[string]int64
	storeErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		logins:   make(map[string]string),
		users:    make(map[string]int64),
		sessions: make(map[string]int64),
	}
}

func (s *fakeStore) CreateLoginProcess(ctx context.Context, stateToken, nonce string) error {
	if s.storeErr != nil {
		return s.storeErr
	}
	s.logins[stateToken] = nonce
	return nil
}

func (s *fakeStore) ConsumeLoginProcess(ctx context.Context, stateToken string) (string, bool, error) {
	if s.storeErr != nil {
		return "", false, s.storeErr
	}
	nonce, ok := s.logins[stateToken]
	delete(s.logins, stateToken)
	return nonce, ok, nil
}

func (s *fakeStore) UserByEmail(ctx context.Context, email string) (int64, bool, error) {
	id, ok := s.users[email]
	return id, ok, nil
}

func (s *fakeStore) CreateSession(ctx context.Context, sessionID string, userID int64, validUntil time.Time) error {
	s.sessions[sessionID] = userID
	return nil
}

func newTestFlow(provider IdentityProvider, store loginStore) *Flow {
	return NewFlow(provider, store, "session", time.Hour)
}

func kindOf(t *testing.T, err error) string {
	t.Helper()
	var clientErr *httpx.ClientError
	if !errors.As(err, &clientErr) {
		t.Fatalf("expected a ClientError, got %v", err)
	}
	return clientErr.Kind
}

func TestStartPersistsLoginProcessAndEmbedsAuthURL(t *testing.T) {
	store := newFakeStore()
	flow := newTestFlow(&fakeProvider{}, store)

	resp, err := flow.Start(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(store.logins) != 1 {
		t.Fatalf("expected one login process, got %d", len(store.logins))
	}
	var state, nonce string
	for s, n := range store.logins {
		state, nonce = s, n
	}
	if state == "" || nonce == "" {
		t.Fatal("state and nonce must both be persisted")
	}

	body := string(resp.Body)
	if !strings.Contains(body, "https://idp.example/authorize") {
		t.Fatalf("authorization URL missing from page: %s", body)
	}
	if !strings.Contains(body, state) {
		t.Fatal("state token missing from authorization URL")
	}
	if cc := resp.Header.Get("Cache-Control"); cc != "no-store" {
		t.Fatalf("login page must not be cacheable, got %q", cc)
	}
}

func TestStartTokensAreUniquePerLogin(t *testing.T) {
	store := newFakeStore()
	flow := newTestFlow(&fakeProvider{}, store)

	for i := 0; i < 5; i++ {
		if _, err := flow.Start(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if len(store.logins) != 5 {
		t.Fatalf("expected 5 distinct state tokens, got %d", len(store.logins))
	}
}

func TestFinishUnknownState(t *testing.T) {
	flow := newTestFlow(&fakeProvider{}, newFakeStore())

	r := httptest.NewRequest("GET", "/post-login?code=abc&state=unknown-token", nil)
	_, err := flow.Finish(context.Background(), r)
	if kindOf(t, err) != httpx.KindUnknownOIDCProcess {
		t.Fatalf("expected UnknownOIDCProcess, got %v", err)
	}
}

func TestFinishStateIsSingleUse(t *testing.T) {
	store := newFakeStore()
	store.logins["tok"] = "nonce-1"
	store.users["a@b.example"] = 7
	provider := &fakeProvider{rawIDToken: "raw", email: "a@b.example"}
	flow := newTestFlow(provider, store)

	r := httptest.NewRequest("GET", "/post-login?code=abc&state=tok", nil)
	if _, err := flow.Finish(context.Background(), r); err != nil {
		t.Fatalf("first redemption failed: %v", err)
	}

	r = httptest.NewRequest("GET", "/post-login?code=def&state=tok", nil)
	_, err := flow.Finish(context.Background(), r)
	if kindOf(t, err) != httpx.KindUnknownOIDCProcess {
		t.Fatalf("second redemption must fail with UnknownOIDCProcess, got %v", err)
	}
}

func TestFinishMissingQueryParameters(t *testing.T) {
	flow := newTestFlow(&fakeProvider{}, newFakeStore())

	for _, query := range []string{"", "code=abc", "state=tok"} {
		r := httptest.NewRequest("GET", "/post-login?"+query, nil)
		_, err := flow.Finish(context.Background(), r)
		if kindOf(t, err) != httpx.KindInvalidURLEncoding {
			t.Fatalf("query %q: expected InvalidUrlEncoding, got %v", query, err)
		}
	}
}

func TestFinishExchangeFailureIsInternal(t *testing.T) {
	store := newFakeStore()
	store.logins["tok"] = "nonce-1"
	provider := &fakeProvider{exchangeErr: httpx.OIDCExchange(fmt.Errorf("provider said no"))}
	flow := newTestFlow(provider, store)

	r := httptest.NewRequest("GET", "/post-login?code=abc&state=tok", nil)
	_, err := flow.Finish(context.Background(), r)

	var internalErr *httpx.InternalError
	if !errors.As(err, &internalErr) {
		t.Fatalf("expected an InternalError, got %v", err)
	}
}

func TestFinishNoIDToken(t *testing.T) {
	store := newFakeStore()
	store.logins["tok"] = "nonce-1"
	flow := newTestFlow(&fakeProvider{rawIDToken: ""}, store)

	r := httptest.NewRequest("GET", "/post-login?code=abc&state=tok", nil)
	_, err := flow.Finish(context.Background(), r)
	if kindOf(t, err) != httpx.KindOIDCGaveNoToken {
		t.Fatalf("expected OIDCGaveNoToken, got %v", err)
	}
}

func TestFinishTamperedClaimsAreInternal(t *testing.T) {
	store := newFakeStore()
	store.logins["tok"] = "nonce-1"
	provider := &fakeProvider{
		rawIDToken: "raw",
		verifyErr:  httpx.TamperedOIDCLogin(errors.New("nonce does not match login process")),
	}
	flow := newTestFlow(provider, store)

	r := httptest.NewRequest("GET", "/post-login?code=abc&state=tok", nil)
	_, err := flow.Finish(context.Background(), r)

	var internalErr *httpx.InternalError
	if !errors.As(err, &internalErr) {
		t.Fatalf("expected an InternalError, got %v", err)
	}
	if provider.verifiedWith != "nonce-1" {
		t.Fatalf("verification must use the persisted nonce, used %q", provider.verifiedWith)
	}
}

func TestFinishNoEmailClaim(t *testing.T) {
	store := newFakeStore()
	store.logins["tok"] = "nonce-1"
	flow := newTestFlow(&fakeProvider{rawIDToken: "raw", email: ""}, store)

	r := httptest.NewRequest("GET", "/post-login?code=abc&state=tok", nil)
	_, err := flow.Finish(context.Background(), r)
	if kindOf(t, err) != httpx.KindOIDCGaveNoEmail {
		t.Fatalf("expected OIDCGaveNoEmail, got %v", err)
	}
}

func TestFinishUnprovisionedUser(t *testing.T) {
	store := newFakeStore()
	store.logins["tok"] = "nonce-1"
	flow := newTestFlow(&fakeProvider{rawIDToken: "raw", email: "nobody@b.example"}, store)

	r := httptest.NewRequest("GET", "/post-login?code=abc&state=tok", nil)
	_, err := flow.Finish(context.Background(), r)

	var clientErr *httpx.ClientError
	if !errors.As(err, &clientErr) || clientErr.Kind != httpx.KindUserNotFound {
		t.Fatalf("expected UserNotFound, got %v", err)
	}
	if clientErr.Data != "nobody@b.example" {
		t.Fatalf("UserNotFound must carry the email, got %v", clientErr.Data)
	}
}

func TestFinishRejectsUnserializableCookieName(t *testing.T) {
	store := newFakeStore()
	store.logins["tok"] = "nonce-1"
	store.users["a@b.example"] = 7
	provider := &fakeProvider{rawIDToken: "raw", email: "a@b.example"}
	flow := NewFlow(provider, store, "session id", time.Hour)

	r := httptest.NewRequest("GET", "/post-login?code=abc&state=tok", nil)
	resp, err := flow.Finish(context.Background(), r)

	var internalErr *httpx.InternalError
	if !errors.As(err, &internalErr) {
		t.Fatalf("a cookie name with a space cannot go on the wire, got resp=%v err=%v", resp, err)
	}
}

func TestFinishIssuesSessionAndCookie(t *testing.T) {
	store := newFakeStore()
	store.logins["tok"] = "nonce-1"
	store.users["a@b.example"] = 42
	provider := &fakeProvider{rawIDToken: "raw", email: "a@b.example"}
	flow := newTestFlow(provider, store)

	r := httptest.NewRequest("GET", "/post-login?code=abc&state=tok", nil)
	resp, err := flow.Finish(context.Background(), r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if provider.exchanged != "abc" {
		t.Fatalf("exchanged wrong code %q", provider.exchanged)
	}

	if len(store.sessions) != 1 {
		t.Fatalf("expected one session, got %d", len(store.sessions))
	}
	var sessionID string
	for id, userID := range store.sessions {
		sessionID = id
		if userID != 42 {
			t.Fatalf("session bound to wrong user %d", userID)
		}
	}
	if len(sessionID) != 32 {
		t.Fatalf("session id must be 32 symbols, got %d", len(sessionID))
	}

	cookie := resp.Header.Get("Set-Cookie")
	want := "session=" + sessionID + "; HttpOnly; Secure; SameSite=Strict"
	if cookie != want {
		t.Fatalf("cookie attributes must be exactly Secure, HttpOnly, SameSite=Strict:\n got %q\nwant %q", cookie, want)
	}

	if !strings.Contains(string(resp.Body), "history.back()") {
		t.Fatal("post-login page must navigate the user agent back one step")
	}
}
