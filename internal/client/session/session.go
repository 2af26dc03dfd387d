// Package session holds the authentication token used for backend calls.
//
// The token is kept in memory and, when a metadata repository is supplied,
// persisted locally so that separate CLI invocations share one login. JWT
// tokens are inspected (without verification) for their exp claim; an
// expired token is reported as absent. Opaque tokens are taken as-is.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/memoria/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/memoria/internal/logging"
	"github.com/golang-jwt/jwt/v5"
)

const TokenKey = "access_token"

var ErrEmptyToken = errors.New("empty token")

type Session struct {
	mu     sync.Mutex
	token  string
	loaded bool
	repo   metadata.Repository
	now    func() time.Time
	log    logging.Logger
}

type Option func(*Session)

func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

func WithLogger(l logging.Logger) Option {
	return func(s *Session) { s.log = l }
}

// New returns a session backed by repo. A nil repo keeps the token in
// memory only.
func New(repo metadata.Repository, opts ...Option) *Session {
	s := &Session{repo: repo, now: time.Now, log: logging.Nop()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// CurrentToken returns the token to attach to requests, or false when the
// user is not logged in or the token has expired.
func (s *Session) CurrentToken(ctx context.Context) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded && s.repo != nil {
		v, err := s.repo.Get(ctx, TokenKey)
		if err != nil {
			s.log.Warn(ctx, "cannot read stored session", "error", err)
			return "", false
		}
		s.token = string(v)
		s.loaded = true
	}

	if s.token == "" {
		return "", false
	}
	if exp, ok := ExpiresAt(s.token); ok && !s.now().Before(exp) {
		s.log.Debug(ctx, "session token expired", "expired_at", exp)
		return "", false
	}
	return s.token, true
}

// Login stores token as the current credential.
func (s *Session) Login(ctx context.Context, token string) error {
	if token == "" {
		return ErrEmptyToken
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.repo != nil {
		if err := s.repo.Set(ctx, TokenKey, []byte(token)); err != nil {
			return fmt.Errorf("save session: %w", err)
		}
	}
	s.token = token
	s.loaded = true
	return nil
}

// Logout forgets the current token. It is safe to call when logged out.
func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.repo != nil {
		if err := s.repo.Delete(ctx, TokenKey); err != nil {
			return fmt.Errorf("clear session: %w", err)
		}
	}
	s.token = ""
	s.loaded = true
	return nil
}

// Status describes the stored login. Since is zero when the store does not
// track write times and ExpiresAt is zero for opaque tokens.
type Status struct {
	LoggedIn  bool
	Expired   bool
	Since     time.Time
	ExpiresAt time.Time
}

// Status re-reads the persisted token and reports on it.
func (s *Session) Status(ctx context.Context) (Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var st Status
	if s.repo != nil {
		e, ok, err := s.repo.Lookup(ctx, TokenKey)
		if err != nil {
			return Status{}, fmt.Errorf("read session: %w", err)
		}
		s.token, s.loaded = "", true
		if ok {
			s.token = string(e.Value)
			st.Since = e.UpdatedAt
		}
	}

	if s.token == "" {
		return st, nil
	}
	st.LoggedIn = true
	if exp, ok := ExpiresAt(s.token); ok {
		st.ExpiresAt = exp
		st.Expired = !s.now().Before(exp)
		st.LoggedIn = !st.Expired
	}
	return st, nil
}

// ExpiresAt reads the exp claim of a JWT without verifying its signature.
// ok is false for opaque tokens and JWTs without exp.
func ExpiresAt(token string) (time.Time, bool) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
