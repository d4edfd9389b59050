package booking

import (
	"context"
	"errors"

	"taskwhisker/internal/client"
	"taskwhisker/internal/money"
	"taskwhisker/internal/user"
)

var ErrNotFound = errors.New("booking not found")

// Store opens transactions for booking mutations. fn's error rolls everything back.
type Store interface {
	WithTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the set of statements a booking mutation may run.
type Tx interface {
	// GetForUpdate locks the booking row until the transaction ends.
	GetForUpdate(ctx context.Context, id string) (*Booking, error)
	UpdateStatus(ctx context.Context, b *Booking) error
	UpdateSitter(ctx context.Context, id string, sitterID *string) error
	InsertHistory(ctx context.Context, e *Entry) error
	InsertBooking(ctx context.Context, b *Booking, items []money.LineItem) error

	ResolveClient(ctx context.Context, in client.Input) (*client.Client, error)
	FirstClient(ctx context.Context) (*client.Client, error)
	FindUser(ctx context.Context, id string) (*user.User, error)
	FirstSitter(ctx context.Context) (*user.User, error)
}
