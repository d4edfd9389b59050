package auth

import (
	"context"
	"errors"
	"time"

	"taskwhisker/internal/user"
)

// Session is what a verified token says about its bearer. It is not proof the account still exists.
type Session struct {
	UserID    string    `json:"userId"`
	Email     string    `json:"email"`
	Role      user.Role `json:"role"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Actor is a session resolved against the users table.
type Actor struct {
	UserID string
	Email  string
	Name   string
	Role   user.Role
}

var (
	ErrUnauthenticated = errors.New("not signed in")
	ErrForbidden       = errors.New("role not allowed")
	ErrStaleSession    = errors.New("Stale session: user not found. Sign out and sign back in.")
)

type ctxKey string

const (
	ctxKeySession ctxKey = "session"
	ctxKeyActor   ctxKey = "actor"
)

func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKeySession, s)
}

func SessionFromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(ctxKeySession).(*Session)
	return s
}

func WithActor(ctx context.Context, a *Actor) context.Context {
	return context.WithValue(ctx, ctxKeyActor, a)
}

func ActorFromContext(ctx context.Context) *Actor {
	a, _ := ctx.Value(ctxKeyActor).(*Actor)
	return a
}
