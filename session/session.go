// Package session consumes the bearer token issued by the auth provider.
// Token issuance and refresh stay with the provider; this package only
// decodes the claims the messaging core needs (user id, expiry) and hands
// the raw token to REST calls.
package session

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/nicolasparada/go-errs"
)

var (
	// ErrInvalidToken denotes a token whose claims cannot be decoded.
	ErrInvalidToken = errs.InvalidArgumentError("invalid session token")
	// ErrExpiredToken denotes a session past its expiry.
	ErrExpiredToken = errs.UnauthenticatedError("expired session")
	// ErrNoSession denotes a missing session where one is required.
	ErrNoSession = errs.UnauthenticatedError("no session")
)

// TokenSource provides the bearer token for authenticated operations.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Session is a parsed, unverified view of the provider's token.
// Verification is the backend's job; the client only needs to know who it is
// acting as and whether the token is worth sending at all.
type Session struct {
	token     string
	userID    string
	expiresAt time.Time

	now func() time.Time
}

func FromToken(token string) (*Session, error) {
	if token == "" {
		return nil, ErrNoSession
	}

	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return nil, ErrInvalidToken
	}

	sub, err := parsed.Claims.GetSubject()
	if err != nil || sub == "" {
		return nil, ErrInvalidToken
	}

	s := &Session{
		token:  token,
		userID: sub,
		now:    time.Now,
	}

	if exp, err := parsed.Claims.GetExpirationTime(); err == nil && exp != nil {
		s.expiresAt = exp.Time
	}

	return s, nil
}

func (s *Session) UserID() string {
	return s.userID
}

// Expired reports whether the token's expiry has passed.
// Tokens without an expiry claim never expire client-side.
func (s *Session) Expired() bool {
	return !s.expiresAt.IsZero() && s.expiresAt.Before(s.now())
}

// Token implements TokenSource. It refuses expired sessions so callers fail
// fast instead of collecting 401s.
func (s *Session) Token(ctx context.Context) (string, error) {
	if s.Expired() {
		return "", ErrExpiredToken
	}
	return s.token, nil
}

var ctxKeySession = struct{ name string }{name: "ctx-key-session"}

func ContextWithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKeySession, s)
}

func SessionFromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(ctxKeySession).(*Session)
	return s, ok
}
