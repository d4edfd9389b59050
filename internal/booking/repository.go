package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"taskwhisker/internal/client"
	"taskwhisker/internal/money"
	"taskwhisker/internal/user"
	"taskwhisker/pkg/db"
)

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	return db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		return fn(pgxTx{tx: tx})
	})
}

// Columns selects a booking aliased as b, in ScanDest order.
const Columns = `
b.id::text, b.client_id::text, b.sitter_id::text, b.status, b.start_time, b.end_time,
b.service_summary, b.notes, b.client_total_cents, b.platform_fee_cents, b.sitter_payout_cents,
b.confirmed_at, b.canceled_at, b.completed_at, b.created_at, b.updated_at`

func ScanDest(b *Booking) []any {
	return []any{
		&b.ID, &b.ClientID, &b.SitterID, &b.Status, &b.StartTime, &b.EndTime,
		&b.ServiceSummary, &b.Notes, &b.ClientTotalCents, &b.PlatformFeeCents, &b.SitterPayoutCents,
		&b.ConfirmedAt, &b.CanceledAt, &b.CompletedAt, &b.CreatedAt, &b.UpdatedAt,
	}
}

func scanBooking(row pgx.Row) (*Booking, error) {
	var b Booking
	if err := row.Scan(ScanDest(&b)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

type pgxTx struct {
	tx pgx.Tx
}

func (t pgxTx) GetForUpdate(ctx context.Context, id string) (*Booking, error) {
	uid, ok := parseID(id)
	if !ok {
		return nil, ErrNotFound
	}
	q := `SELECT ` + Columns + `
FROM bookings b
WHERE b.id = $1
FOR UPDATE
`
	return scanBooking(t.tx.QueryRow(ctx, q, uid))
}

func (t pgxTx) UpdateStatus(ctx context.Context, b *Booking) error {
	const q = `
UPDATE bookings
SET status = $1, confirmed_at = $2, canceled_at = $3, completed_at = $4, updated_at = $5
WHERE id = $6
`
	_, err := t.tx.Exec(ctx, q, string(b.Status), b.ConfirmedAt, b.CanceledAt, b.CompletedAt, b.UpdatedAt, b.ID)
	if err != nil {
		return fmt.Errorf("update booking status: %w", err)
	}
	return nil
}

func (t pgxTx) UpdateSitter(ctx context.Context, id string, sitterID *string) error {
	const q = `UPDATE bookings SET sitter_id = $1, updated_at = NOW() WHERE id = $2`
	if _, err := t.tx.Exec(ctx, q, sitterID, id); err != nil {
		return fmt.Errorf("update booking sitter: %w", err)
	}
	return nil
}

func (t pgxTx) InsertHistory(ctx context.Context, e *Entry) error {
	var (
		kind                 string
		fromStatus, toStatus *string
		fromSitter, toSitter *string
	)
	switch c := e.Change.(type) {
	case StatusChange:
		kind = kindStatus
		to := string(c.To)
		toStatus = &to
		if c.From != nil {
			from := string(*c.From)
			fromStatus = &from
		}
	case SitterChange:
		kind = kindSitter
		fromSitter, toSitter = c.From, c.To
	default:
		return fmt.Errorf("insert history: unknown change %T", e.Change)
	}

	const q = `
INSERT INTO booking_history (booking_id, kind, from_status, to_status, from_sitter_id, to_sitter_id, note, changed_by_user_id, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING id::text
`
	err := t.tx.QueryRow(ctx, q,
		e.BookingID, kind, fromStatus, toStatus, fromSitter, toSitter, e.Note, e.ChangedByUserID, e.CreatedAt,
	).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("insert history: %w", err)
	}
	return nil
}

func (t pgxTx) InsertBooking(ctx context.Context, b *Booking, items []money.LineItem) error {
	const q = `
INSERT INTO bookings (
  client_id, sitter_id, status, start_time, end_time, service_summary, notes,
  client_total_cents, platform_fee_cents, sitter_payout_cents,
  confirmed_at, canceled_at, completed_at, created_at, updated_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $14)
RETURNING id::text
`
	err := t.tx.QueryRow(ctx, q,
		b.ClientID, b.SitterID, string(b.Status), b.StartTime, b.EndTime, b.ServiceSummary, b.Notes,
		b.ClientTotalCents, b.PlatformFeeCents, b.SitterPayoutCents,
		b.ConfirmedAt, b.CanceledAt, b.CompletedAt, b.CreatedAt,
	).Scan(&b.ID)
	if err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}

	if len(items) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for i, it := range items {
		batch.Queue(`
INSERT INTO booking_line_items (booking_id, position, label, quantity, unit_price_cents, total_price_cents)
VALUES ($1, $2, $3, $4, $5, $6)
`, b.ID, i, it.Label, it.Quantity, it.UnitPriceCents, it.TotalPriceCents)
	}
	if err := t.tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert line items: %w", err)
	}
	return nil
}

func (t pgxTx) ResolveClient(ctx context.Context, in client.Input) (*client.Client, error) {
	return client.Resolve(ctx, t.tx, in)
}

func (t pgxTx) FirstClient(ctx context.Context) (*client.Client, error) {
	return client.First(ctx, t.tx)
}

func (t pgxTx) FindUser(ctx context.Context, id string) (*user.User, error) {
	return user.FindInTx(ctx, t.tx, id)
}

func (t pgxTx) FirstSitter(ctx context.Context) (*user.User, error) {
	return user.FirstWithRole(ctx, t.tx, user.RoleSitter)
}

// GetDetail loads a booking with its client, sitter, line items and history (newest first).
func (r *Repository) GetDetail(ctx context.Context, id string) (*Detail, error) {
	uid, ok := parseID(id)
	if !ok {
		return nil, ErrNotFound
	}
	q := `SELECT ` + Columns + `,
  c.id::text, c.name, COALESCE(c.email, ''), c.phone, c.city, c.state, c.created_at,
  s.id::text, s.name, s.email
FROM bookings b
JOIN clients c ON c.id = b.client_id
LEFT JOIN users s ON s.id = b.sitter_id
WHERE b.id = $1
`
	var (
		d                               Detail
		sitterID, sitterName, sitterEml *string
	)
	dest := append(ScanDest(&d.Booking),
		&d.Client.ID, &d.Client.Name, &d.Client.Email, &d.Client.Phone, &d.Client.City, &d.Client.State, &d.Client.CreatedAt,
		&sitterID, &sitterName, &sitterEml,
	)
	if err := r.db.QueryRow(ctx, q, uid).Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get booking: %w", err)
	}
	if sitterID != nil {
		d.Sitter = &Person{ID: *sitterID, Name: deref(sitterName), Email: deref(sitterEml)}
	}

	items, err := r.listLineItems(ctx, d.Booking.ID)
	if err != nil {
		return nil, err
	}
	d.LineItems = items

	history, err := r.ListHistory(ctx, d.Booking.ID)
	if err != nil {
		return nil, err
	}
	d.History = history
	return &d, nil
}

func (r *Repository) listLineItems(ctx context.Context, bookingID string) ([]money.LineItem, error) {
	const q = `
SELECT label, quantity, unit_price_cents, total_price_cents
FROM booking_line_items
WHERE booking_id = $1
ORDER BY position ASC
`
	rows, err := r.db.Query(ctx, q, bookingID)
	if err != nil {
		return nil, fmt.Errorf("list line items: %w", err)
	}
	defer rows.Close()

	out := []money.LineItem{}
	for rows.Next() {
		var it money.LineItem
		if err := rows.Scan(&it.Label, &it.Quantity, &it.UnitPriceCents, &it.TotalPriceCents); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// ListHistory returns a booking's history, newest first.
func (r *Repository) ListHistory(ctx context.Context, bookingID string) ([]Entry, error) {
	const q = `
SELECT id::text, booking_id::text, kind, from_status, to_status, from_sitter_id::text, to_sitter_id::text,
       note, changed_by_user_id::text, created_at
FROM booking_history
WHERE booking_id = $1
ORDER BY created_at DESC, id DESC
`
	rows, err := r.db.Query(ctx, q, bookingID)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	out := []Entry{}
	for rows.Next() {
		var (
			e                    Entry
			kind                 string
			fromStatus, toStatus *string
			fromSitter, toSitter *string
		)
		if err := rows.Scan(&e.ID, &e.BookingID, &kind, &fromStatus, &toStatus, &fromSitter, &toSitter,
			&e.Note, &e.ChangedByUserID, &e.CreatedAt); err != nil {
			return nil, err
		}
		switch kind {
		case kindStatus:
			c := StatusChange{To: Status(deref(toStatus))}
			if fromStatus != nil {
				from := Status(*fromStatus)
				c.From = &from
			}
			e.Change = c
		case kindSitter:
			e.Change = SitterChange{From: fromSitter, To: toSitter}
		default:
			return nil, fmt.Errorf("list history: unknown kind %q", kind)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ListForSitter returns the sitter's bookings starting at or after since, soonest first.
func (r *Repository) ListForSitter(ctx context.Context, sitterID string, since time.Time) ([]Summary, error) {
	q := `SELECT ` + Columns + `, c.name
FROM bookings b
JOIN clients c ON c.id = b.client_id
WHERE b.sitter_id = $1 AND b.start_time >= $2 AND b.status <> 'CANCELED'
ORDER BY b.start_time ASC
LIMIT 100
`
	uid, ok := parseID(sitterID)
	if !ok {
		return []Summary{}, nil
	}
	rows, err := r.db.Query(ctx, q, uid, since)
	if err != nil {
		return nil, fmt.Errorf("list sitter bookings: %w", err)
	}
	defer rows.Close()

	out := []Summary{}
	for rows.Next() {
		var s Summary
		if err := rows.Scan(append(ScanDest(&s.Booking), &s.ClientName)...); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// parseID canonicalizes a booking or user id. Malformed ids cannot match a row.
func parseID(id string) (string, bool) {
	u, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return "", false
	}
	return u.String(), true
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
