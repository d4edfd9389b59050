package auth

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"taskwhisker/internal/user"
)

// UserLookup is the slice of the user repository the gate needs.
type UserLookup interface {
	FindByID(ctx context.Context, id string) (*user.User, error)
	FindByEmail(ctx context.Context, email string) (*user.User, error)
}

// Gate resolves the acting user for a request. It fails closed.
type Gate struct {
	Users UserLookup
}

// ResolveActor returns the actor behind the request session when its role is one of roles.
// A session whose account no longer exists (by id, then by email) yields ErrStaleSession
// so the caller can force a fresh sign-in.
func (g Gate) ResolveActor(ctx context.Context, roles ...user.Role) (*Actor, error) {
	s := SessionFromContext(ctx)
	if s == nil {
		return nil, ErrUnauthenticated
	}
	if !slices.Contains(roles, s.Role) {
		return nil, ErrForbidden
	}

	u, err := g.lookup(ctx, s)
	if err != nil {
		return nil, err
	}
	return &Actor{UserID: u.ID, Email: u.Email, Name: u.Name, Role: s.Role}, nil
}

func (g Gate) lookup(ctx context.Context, s *Session) (*user.User, error) {
	if s.UserID != "" {
		u, err := g.Users.FindByID(ctx, s.UserID)
		if err == nil {
			return u, nil
		}
		if !errors.Is(err, user.ErrNotFound) {
			return nil, fmt.Errorf("find session user: %w", err)
		}
	}
	if s.Email != "" {
		u, err := g.Users.FindByEmail(ctx, s.Email)
		if err == nil {
			return u, nil
		}
		if !errors.Is(err, user.ErrNotFound) {
			return nil, fmt.Errorf("find session user: %w", err)
		}
	}
	return nil, ErrStaleSession
}
