package dashboard

import (
	"context"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"taskwhisker/internal/booking"
	"taskwhisker/internal/money"
)

// ListLimit caps the dashboard booking list.
const ListLimit = 50

var dialect = goqu.Dialect("postgres")

// Source is what Load reads from.
type Source interface {
	List(ctx context.Context, q Query) ([]booking.Summary, error)
	CountByStatus(ctx context.Context, r DateRange) ([]StatusRow, error)
}

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

func listSQL(q Query) (string, []any, error) {
	return dialect.From(goqu.T("bookings").As("b")).
		Select(goqu.L(booking.Columns), goqu.I("c.name"), goqu.I("s.name")).
		Join(goqu.T("clients").As("c"), goqu.On(goqu.I("c.id").Eq(goqu.I("b.client_id")))).
		LeftJoin(goqu.T("users").As("s"), goqu.On(goqu.I("s.id").Eq(goqu.I("b.sitter_id")))).
		Where(BookingsWhere(q)...).
		Order(colStartTime.Asc()).
		Limit(ListLimit).
		Prepared(true).
		ToSQL()
}

func lineItemsSQL(bookingIDs []string) (string, []any, error) {
	return dialect.From("booking_line_items").
		Select(goqu.L("booking_id::text"), "label", "quantity", "unit_price_cents", "total_price_cents").
		Where(goqu.C("booking_id").In(bookingIDs)).
		Order(goqu.C("booking_id").Asc(), goqu.C("position").Asc()).
		Prepared(true).
		ToSQL()
}

func countSQL(r DateRange) (string, []any, error) {
	return dialect.From(goqu.T("bookings").As("b")).
		Select(colStatus, goqu.COUNT(goqu.Star()), goqu.L("COALESCE(SUM(b.client_total_cents), 0)::bigint")).
		Where(DateWhere(r)...).
		GroupBy(colStatus).
		Prepared(true).
		ToSQL()
}

func (r *Repository) List(ctx context.Context, q Query) ([]booking.Summary, error) {
	query, args, err := listSQL(q)
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	out := []booking.Summary{}
	for rows.Next() {
		var s booking.Summary
		if err := rows.Scan(append(booking.ScanDest(&s.Booking), &s.ClientName, &s.SitterName)...); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	if err := r.attachLineItems(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repository) attachLineItems(ctx context.Context, list []booking.Summary) error {
	if len(list) == 0 {
		return nil
	}
	ids := make([]string, len(list))
	for i, s := range list {
		ids[i] = s.ID
	}
	query, args, err := lineItemsSQL(ids)
	if err != nil {
		return fmt.Errorf("build line items query: %w", err)
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("list line items: %w", err)
	}
	defer rows.Close()

	byBooking := make(map[string][]money.LineItem, len(list))
	for rows.Next() {
		var (
			bookingID string
			it        money.LineItem
		)
		if err := rows.Scan(&bookingID, &it.Label, &it.Quantity, &it.UnitPriceCents, &it.TotalPriceCents); err != nil {
			return err
		}
		byBooking[bookingID] = append(byBooking[bookingID], it)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	for i := range list {
		list[i].LineItems = byBooking[list[i].ID]
	}
	return nil
}

func (r *Repository) CountByStatus(ctx context.Context, rng DateRange) ([]StatusRow, error) {
	query, args, err := countSQL(rng)
	if err != nil {
		return nil, fmt.Errorf("build metrics query: %w", err)
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("count bookings: %w", err)
	}
	defer rows.Close()

	var out []StatusRow
	for rows.Next() {
		var s StatusRow
		if err := rows.Scan(&s.Status, &s.Count, &s.RevenueCents); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Data is the dashboard payload.
type Data struct {
	Query    Query             `json:"query"`
	Bookings []booking.Summary `json:"bookings"`
	Metrics  Metrics           `json:"metrics"`
}

// Load runs the list and the metrics query concurrently. Metrics ignore the status filter.
func Load(ctx context.Context, src Source, q Query) (*Data, error) {
	var (
		list []booking.Summary
		rows []StatusRow
	)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		list, err = src.List(ctx, q)
		return err
	})
	g.Go(func() error {
		var err error
		rows, err = src.CountByStatus(ctx, q.Range)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &Data{Query: q, Bookings: list, Metrics: Normalize(rows)}, nil
}
