package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var (
	ErrNotFound     = errors.New("client not found")
	ErrNameRequired = errors.New("client name is required")
)

const selectClient = `
SELECT id::text, name, COALESCE(email, ''), phone, city, state, created_at
FROM clients
`

func scanClient(row pgx.Row) (*Client, error) {
	var c Client
	if err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.City, &c.State, &c.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// Resolve finds the client described by in, creating one when nothing matches.
// It runs inside the caller's transaction so a new booking and its client commit together.
func Resolve(ctx context.Context, tx pgx.Tx, in Input) (*Client, error) {
	in = in.Normalize()

	switch in.strategy() {
	case matchByID:
		id, err := uuid.Parse(in.ID)
		if err != nil {
			return nil, ErrNotFound
		}
		return scanClient(tx.QueryRow(ctx, selectClient+`WHERE id = $1`, id.String()))
	case matchByEmail:
		c, err := scanClient(tx.QueryRow(ctx, selectClient+`WHERE lower(email) = $1`, in.Email))
		if err == nil || !errors.Is(err, ErrNotFound) {
			return c, err
		}
	default:
		if in.Name == "" {
			return nil, ErrNameRequired
		}
		c, err := scanClient(tx.QueryRow(ctx,
			selectClient+`WHERE name = $1 AND phone = $2 ORDER BY created_at ASC LIMIT 1`, in.Name, in.Phone))
		if err == nil || !errors.Is(err, ErrNotFound) {
			return c, err
		}
	}

	if in.Name == "" {
		return nil, ErrNameRequired
	}
	return create(ctx, tx, in)
}

// First returns the oldest client, or ErrNotFound on an empty table.
func First(ctx context.Context, tx pgx.Tx) (*Client, error) {
	return scanClient(tx.QueryRow(ctx, selectClient+`ORDER BY created_at ASC LIMIT 1`))
}

func create(ctx context.Context, tx pgx.Tx, in Input) (*Client, error) {
	var email *string
	if in.Email != "" {
		email = &in.Email
	}
	const q = `
INSERT INTO clients (name, email, phone, city, state)
VALUES ($1, $2, $3, $4, $5)
RETURNING id::text, name, COALESCE(email, ''), phone, city, state, created_at
`
	c, err := scanClient(tx.QueryRow(ctx, q, in.Name, email, in.Phone, in.City, in.State))
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}
	return c, nil
}
