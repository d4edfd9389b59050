package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("user not found")

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const selectUser = `
SELECT id::text, email, name, role, COALESCE(hashed_password, ''), created_at
FROM users
`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.HashedPassword, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *Repository) FindByID(ctx context.Context, id string) (*User, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrNotFound
	}
	return scanUser(r.db.QueryRow(ctx, selectUser+`WHERE id = $1`, uid.String()))
}

func (r *Repository) FindByEmail(ctx context.Context, email string) (*User, error) {
	return scanUser(r.db.QueryRow(ctx, selectUser+`WHERE lower(email) = lower($1)`, email))
}

// ListByRole returns users of one role ordered by creation, oldest first.
func (r *Repository) ListByRole(ctx context.Context, role Role) ([]User, error) {
	rows, err := r.db.Query(ctx, selectUser+`WHERE role = $1 ORDER BY created_at ASC`, string(role))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

// Upsert creates the user by email or leaves an existing one untouched.
func (r *Repository) Upsert(ctx context.Context, email, name string, role Role, hashedPassword string) (*User, error) {
	const q = `
INSERT INTO users (email, name, role, hashed_password)
VALUES ($1, $2, $3, $4)
ON CONFLICT (email) DO UPDATE SET email = EXCLUDED.email
RETURNING id::text, email, name, role, COALESCE(hashed_password, ''), created_at
`
	u, err := scanUser(r.db.QueryRow(ctx, q, email, name, string(role), hashedPassword))
	if err != nil {
		return nil, fmt.Errorf("upsert user %s: %w", email, err)
	}
	return u, nil
}

// FindInTx loads a user inside a transaction; sitter assignment checks the role through it.
func FindInTx(ctx context.Context, tx pgx.Tx, id string) (*User, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrNotFound
	}
	return scanUser(tx.QueryRow(ctx, selectUser+`WHERE id = $1`, uid.String()))
}

// FirstWithRole returns the oldest user with role, or ErrNotFound.
func FirstWithRole(ctx context.Context, tx pgx.Tx, role Role) (*User, error) {
	return scanUser(tx.QueryRow(ctx, selectUser+`WHERE role = $1 ORDER BY created_at ASC LIMIT 1`, string(role)))
}
