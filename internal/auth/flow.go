// Package auth implements the OIDC authorization-code login state machine.
package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/marcogenualdo/authgate/internal/httpx"
	"github.com/marcogenualdo/authgate/internal/templates"
	"github.com/marcogenualdo/authgate/pkg/security"
)

// IdentityProvider is the slice of the identity provider the flow drives.
type IdentityProvider interface {
	AuthCodeURL(state, nonce string) string
	Exchange(ctx context.Context, code string) (string, error)
	VerifyIDToken(ctx context.Context, rawIDToken, nonce string) (string, error)
}

// loginStore is the slice of the relational store the flow touches.
type loginStore interface {
	CreateLoginProcess(ctx context.Context, stateToken, nonce string) error
	ConsumeLoginProcess(ctx context.Context, stateToken string) (string, bool, error)
	UserByEmail(ctx context.Context, email string) (int64, bool, error)
	CreateSession(ctx context.Context, sessionID string, userID int64, validUntil time.Time) error
}

// Flow is the login state machine. Start runs when an anonymous request hits
// a protected resource; Finish handles the provider's redirect back and, on
// success, issues the session.
type Flow struct {
	provider   IdentityProvider
	store      loginStore
	cookieName string
	sessionTTL time.Duration
}

func NewFlow(provider IdentityProvider, store loginStore, cookieName string, sessionTTL time.Duration) *Flow {
	return &Flow{
		provider:   provider,
		store:      store,
		cookieName: cookieName,
		sessionTTL: sessionTTL,
	}
}

// Start generates the CSRF state token and nonce, persists them as a login
// process, and responds with a client-side navigation page to the provider's
// authorization URL. The page embeds a single-use state token, so the
// response must never be cached.
func (f *Flow) Start(ctx context.Context) (*httpx.Response, error) {
	state := uuid.New().String()
	nonce := security.NewNonce()

	if err := f.store.CreateLoginProcess(ctx, state, nonce); err != nil {
		return nil, err
	}

	page, err := templates.LoginRedirect(f.provider.AuthCodeURL(state, nonce))
	if err != nil {
		return nil, httpx.Rendering(err)
	}

	return httpx.HTML(page).WithHeader("Cache-Control", "no-store"), nil
}

// Finish completes the flow: callback validation, token exchange, claims
// verification, user resolution, session issuance. Each state's failure maps
// to exactly one error variant.
func (f *Flow) Finish(ctx context.Context, req *http.Request) (*httpx.Response, error) {
	query, err := httpx.Query(req)
	if err != nil {
		return nil, err
	}
	code, err := httpx.QueryParam(query, "code")
	if err != nil {
		return nil, err
	}
	state, err := httpx.QueryParam(query, "state")
	if err != nil {
		return nil, err
	}

	// The login process is consumed on read: a state token that was already
	// redeemed, never existed, or was swept looks the same.
	nonce, ok, err := f.store.ConsumeLoginProcess(ctx, state)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, httpx.UnknownOIDCProcess()
	}

	rawIDToken, err := f.provider.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}
	if rawIDToken == "" {
		return nil, httpx.OIDCGaveNoToken()
	}

	email, err := f.provider.VerifyIDToken(ctx, rawIDToken, nonce)
	if err != nil {
		return nil, err
	}
	if email == "" {
		return nil, httpx.OIDCGaveNoEmail()
	}

	userID, ok, err := f.store.UserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Deliberately informative: the user should ask to be provisioned.
		return nil, httpx.UserNotFound(email)
	}

	sessionID := security.NewSessionID()
	if err := f.store.CreateSession(ctx, sessionID, userID, time.Now().Add(f.sessionTTL)); err != nil {
		return nil, err
	}

	page, err := templates.PostLogin()
	if err != nil {
		return nil, httpx.Rendering(err)
	}

	// A cookie that does not serialize cleanly would silently strip the
	// session from the response.
	cookie := security.SessionCookie(f.cookieName, sessionID)
	if err := cookie.Valid(); err != nil {
		return nil, httpx.InvalidHeader(err)
	}

	resp := httpx.HTML(page).WithHeader("Cache-Control", "no-store")
	resp.Header.Add("Set-Cookie", cookie.String())
	return resp, nil
}
