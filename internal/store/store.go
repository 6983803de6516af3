package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/marcogenualdo/authgate/internal/httpx"
)

// Session is the Sessions⋈Users projection read on every protected request.
type Session struct {
	SessionID  string    `json:"session_id"`
	UserID     int64     `json:"user_id"`
	Email      string    `json:"email"`
	ValidUntil time.Time `json:"valid_until"`
}

// Store wraps the connection pool. The pool is the only shared mutable piece
// of process state; it arbitrates concurrent borrowing internally, and every
// write below is a single atomic statement.
type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return httpx.Db(err)
	}
	return nil
}

// Close releases the pool.
func (s *Store) Close() {
	s.pool.Close()
}

// CreateLoginProcess persists the state token and nonce of a login that has
// just started. The unique constraint on state_token backs the token's
// single-purpose invariant.
func (s *Store) CreateLoginProcess(ctx context.Context, stateToken, nonce string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO login_processes (state_token, nonce, created_at) VALUES ($1, $2, now())`,
		stateToken, nonce,
	)
	if err != nil {
		return httpx.Db(err)
	}
	return nil
}

// ConsumeLoginProcess looks up a login process by state token and deletes it
// in the same statement, so a token can be redeemed exactly once even under
// concurrent callbacks. The bool reports whether the row existed.
func (s *Store) ConsumeLoginProcess(ctx context.Context, stateToken string) (string, bool, error) {
	var nonce string
	err := s.pool.QueryRow(ctx,
		`DELETE FROM login_processes WHERE state_token = $1 RETURNING nonce`,
		stateToken,
	).Scan(&nonce)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, httpx.Db(err)
	}
	return nonce, true, nil
}

// UserByEmail returns the id of a provisioned user. Provisioning itself
// happens outside this system; the bool reports whether the user exists.
func (s *Store) UserByEmail(ctx context.Context, email string) (int64, bool, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`SELECT id FROM users WHERE email = $1`,
		email,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, httpx.Db(err)
	}
	return id, true, nil
}

// CreateSession persists a freshly issued session.
func (s *Store) CreateSession(ctx context.Context, sessionID string, userID int64, validUntil time.Time) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO sessions (session_id, user_id, valid_until) VALUES ($1, $2, $3)`,
		sessionID, userID, validUntil,
	)
	if err != nil {
		return httpx.Db(err)
	}
	return nil
}

// SessionByID joins sessions and users by session identifier. An expired row
// counts as absent even before the sweeper physically removes it. Absence is
// reported as a nil session, not an error.
func (s *Store) SessionByID(ctx context.Context, sessionID string) (*Session, error) {
	var session Session
	err := s.pool.QueryRow(ctx,
		`SELECT session_id, user_id, email, valid_until
		   FROM sessions
		   JOIN users ON users.id = sessions.user_id
		  WHERE session_id = $1 AND valid_until > now()`,
		sessionID,
	).Scan(&session.SessionID, &session.UserID, &session.Email, &session.ValidUntil)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, httpx.Db(err)
	}
	return &session, nil
}

// DeleteExpiredSessions removes sessions past their valid_until, returning
// the number of rows swept.
func (s *Store) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE valid_until <= now()`)
	if err != nil {
		return 0, httpx.Db(err)
	}
	return tag.RowsAffected(), nil
}

// DeleteStaleLoginProcesses removes login processes older than the given
// age. Consumed rows are already gone; this only clears abandoned logins.
func (s *Store) DeleteStaleLoginProcesses(ctx context.Context, olderThan time.Duration) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM login_processes WHERE created_at < now() - $1`,
		olderThan,
	)
	if err != nil {
		return 0, httpx.Db(err)
	}
	return tag.RowsAffected(), nil
}
