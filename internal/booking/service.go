package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"taskwhisker/internal/client"
	"taskwhisker/internal/money"
	"taskwhisker/internal/observability"
	"taskwhisker/internal/user"
	"taskwhisker/pkg/config"
)

// Service applies operator actions to bookings. Each call is one transaction that locks the
// booking row, re-checks the precondition, then writes the booking and its history together.
type Service struct {
	Store    Store
	Calc     money.Calculator
	Policy   config.BookingPolicy
	Location *time.Location
	Now      func() time.Time
}

func NewService(store Store, policy config.BookingPolicy, loc *time.Location) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		Store:    store,
		Calc:     money.NewCalculator(policy.PlatformFeePercent),
		Policy:   policy,
		Location: loc,
		Now:      time.Now,
	}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Confirm moves a REQUESTED booking to CONFIRMED.
func (s *Service) Confirm(ctx context.Context, actorID, bookingID string) (Outcome, error) {
	return s.transition(ctx, "booking.Confirm", actorID, bookingID, StatusConfirmed, func(*Booking) (string, error) {
		return noteConfirmed, nil
	})
}

// Complete moves a CONFIRMED booking to COMPLETED.
func (s *Service) Complete(ctx context.Context, actorID, bookingID string) (Outcome, error) {
	return s.transition(ctx, "booking.Complete", actorID, bookingID, StatusCompleted, func(*Booking) (string, error) {
		return noteCompleted, nil
	})
}

// Cancel moves a REQUESTED or CONFIRMED booking to CANCELED. A confirmed booking needs a reason.
func (s *Service) Cancel(ctx context.Context, actorID, bookingID string, req CancelRequest) (Outcome, error) {
	reason := req.Text()
	return s.transition(ctx, "booking.Cancel", actorID, bookingID, StatusCanceled, func(b *Booking) (string, error) {
		if reason == "" {
			switch {
			case b.Status == StatusConfirmed:
				return "", ErrCancelReasonRequired
			case b.Status == StatusRequested && s.Policy.CancelReasonRequiredForRequest:
				return "", errCancelReasonRequiredByPolicy
			}
		}
		return cancelNote(reason), nil
	})
}

func (s *Service) transition(ctx context.Context, op, actorID, bookingID string, to Status, note func(*Booking) (string, error)) (outcome Outcome, err error) {
	ctx, span := observability.StartSpan(ctx, op,
		attribute.String("booking.id", bookingID),
		attribute.String("booking.to_status", string(to)),
	)
	defer func() {
		span.SetAttributes(attribute.String("booking.outcome", string(outcome)))
		observability.EndSpan(span, err)
	}()

	err = s.Store.WithTx(ctx, func(tx Tx) error {
		b, err := tx.GetForUpdate(ctx, bookingID)
		if errors.Is(err, ErrNotFound) {
			outcome = OutcomeNotFound
			return nil
		}
		if err != nil {
			return fmt.Errorf("lock booking: %w", err)
		}
		if !CanTransition(b.Status, to) {
			outcome = OutcomeInvalidTransition
			return nil
		}
		text, err := note(b)
		if err != nil {
			return err
		}

		from := b.Status
		now := s.now()
		b.markStatus(to, now)
		if err := tx.UpdateStatus(ctx, b); err != nil {
			return err
		}
		if err := tx.InsertHistory(ctx, &Entry{
			BookingID:       b.ID,
			Change:          StatusChange{From: &from, To: to},
			Note:            text,
			ChangedByUserID: &actorID,
			CreatedAt:       now,
		}); err != nil {
			return err
		}
		outcome = OutcomeApplied
		return nil
	})
	if err != nil {
		return "", err
	}

	observability.LoggerFromContext(ctx).Info().
		Str("op", op).
		Str("booking_id", bookingID).
		Str("actor_id", actorID).
		Str("outcome", string(outcome)).
		Msg("booking transition")
	return outcome, nil
}

// AssignSitter sets, replaces or clears (nil) the booking's sitter. Completed bookings are frozen.
// UUID sitter ids are compared in canonical form.
func (s *Service) AssignSitter(ctx context.Context, actorID, bookingID string, sitterID *string) (outcome Outcome, err error) {
	if sitterID != nil {
		v := strings.TrimSpace(*sitterID)
		if id, ok := parseID(v); ok {
			v = id
		}
		if v == "" {
			sitterID = nil
		} else {
			sitterID = &v
		}
	}

	ctx, span := observability.StartSpan(ctx, "booking.AssignSitter", attribute.String("booking.id", bookingID))
	defer func() {
		span.SetAttributes(attribute.String("booking.outcome", string(outcome)))
		observability.EndSpan(span, err)
	}()

	err = s.Store.WithTx(ctx, func(tx Tx) error {
		b, err := tx.GetForUpdate(ctx, bookingID)
		if errors.Is(err, ErrNotFound) {
			outcome = OutcomeNotFound
			return nil
		}
		if err != nil {
			return fmt.Errorf("lock booking: %w", err)
		}
		if b.Status == StatusCompleted {
			outcome = OutcomeInvalidTransition
			return nil
		}
		if sameSitter(b.SitterID, sitterID) {
			outcome = OutcomeUnchanged
			return nil
		}
		if sitterID != nil {
			if err := checkSitter(ctx, tx, *sitterID); err != nil {
				return err
			}
		}

		if err := tx.UpdateSitter(ctx, b.ID, sitterID); err != nil {
			return err
		}
		if err := tx.InsertHistory(ctx, &Entry{
			BookingID:       b.ID,
			Change:          SitterChange{From: b.SitterID, To: sitterID},
			Note:            sitterNote(b.SitterID, sitterID),
			ChangedByUserID: &actorID,
			CreatedAt:       s.now(),
		}); err != nil {
			return err
		}
		outcome = OutcomeApplied
		return nil
	})
	if err != nil {
		return "", err
	}

	observability.LoggerFromContext(ctx).Info().
		Str("booking_id", bookingID).
		Str("actor_id", actorID).
		Str("outcome", string(outcome)).
		Msg("sitter assignment")
	return outcome, nil
}

func checkSitter(ctx context.Context, tx Tx, id string) error {
	u, err := tx.FindUser(ctx, id)
	if errors.Is(err, user.ErrNotFound) {
		return ErrSitterInvalid
	}
	if err != nil {
		return fmt.Errorf("find sitter: %w", err)
	}
	if u.Role != user.RoleSitter {
		return ErrSitterInvalid
	}
	return nil
}

// Create inserts a booking, resolving or creating its client in the same transaction.
// A booking seeded past REQUESTED gets the full status path written to its history.
func (s *Service) Create(ctx context.Context, actorID string, in NewBooking) (b *Booking, err error) {
	ctx, span := observability.StartSpan(ctx, "booking.Create")
	defer func() { observability.EndSpan(span, err) }()

	in, err = s.validate(in)
	if err != nil {
		return nil, err
	}

	err = s.Store.WithTx(ctx, func(tx Tx) error {
		c, err := tx.ResolveClient(ctx, in.Client)
		switch {
		case errors.Is(err, client.ErrNameRequired):
			return ValidationError{Code: "CLIENT_NAME_REQUIRED", Message: "client name is required for a new client"}
		case errors.Is(err, client.ErrNotFound):
			return ValidationError{Code: "CLIENT_NOT_FOUND", Message: "client not found"}
		case err != nil:
			return fmt.Errorf("resolve client: %w", err)
		}
		if in.SitterID != nil {
			if err := checkSitter(ctx, tx, *in.SitterID); err != nil {
				return err
			}
		}

		b = &Booking{
			ClientID:       c.ID,
			SitterID:       in.SitterID,
			StartTime:      in.StartTime,
			EndTime:        in.EndTime,
			ServiceSummary: in.ServiceSummary,
			Notes:          in.Notes,
		}
		return s.insert(ctx, tx, actorID, b, in.Status, in.LineItems, noteCreated)
	})
	if err != nil {
		return nil, err
	}

	observability.LoggerFromContext(ctx).Info().
		Str("booking_id", b.ID).
		Str("actor_id", actorID).
		Str("status", string(b.Status)).
		Str("client_total", money.FormatUSD(b.ClientTotalCents)).
		Msg("booking created")
	return b, nil
}

func (s *Service) validate(in NewBooking) (NewBooking, error) {
	in.Client = in.Client.Normalize()
	if in.Client.Empty() {
		return in, ValidationError{Code: "CLIENT_REQUIRED", Message: "a client id, email or name is required"}
	}
	if in.StartTime.IsZero() || in.EndTime.IsZero() || !in.EndTime.After(in.StartTime) {
		return in, ValidationError{Code: "BOOKING_TIME_INVALID", Message: "endTime must be after startTime"}
	}
	if in.Status == "" {
		in.Status = StatusRequested
	}
	st, err := ParseStatus(string(in.Status))
	if err != nil {
		return in, ValidationError{Code: "STATUS_INVALID", Message: err.Error()}
	}
	in.Status = st

	if in.SitterID != nil && strings.TrimSpace(*in.SitterID) == "" {
		in.SitterID = nil
	}

	items := make([]money.LineItem, 0, len(in.LineItems))
	for i, it := range in.LineItems {
		it.Label = strings.TrimSpace(it.Label)
		if it.Label == "" || it.Quantity < 1 || it.UnitPriceCents < 0 {
			return in, ValidationError{Code: "LINE_ITEM_INVALID", Message: fmt.Sprintf("line item %d needs a label, quantity >= 1 and a non-negative unit price", i+1)}
		}
		want := int64(it.Quantity) * it.UnitPriceCents
		if it.TotalPriceCents == 0 {
			it.TotalPriceCents = want
		}
		if it.TotalPriceCents != want {
			return in, ValidationError{Code: "LINE_ITEM_INVALID", Message: fmt.Sprintf("line item %d total does not match quantity × unit price", i+1)}
		}
		items = append(items, it)
	}
	in.LineItems = items
	in.ServiceSummary = strings.TrimSpace(in.ServiceSummary)
	in.Notes = strings.TrimSpace(in.Notes)
	return in, nil
}

// insert writes b in status with derived financials, its line items, and the backfilled history.
func (s *Service) insert(ctx context.Context, tx Tx, actorID string, b *Booking, status Status, items []money.LineItem, firstNote string) error {
	now := s.now()
	b.CreatedAt = now
	b.markStatus(status, now)
	b.setSplit(s.Calc.Split(items))

	if err := tx.InsertBooking(ctx, b, items); err != nil {
		return err
	}

	var (
		prev  *Status
		actor *string
	)
	if actorID != "" {
		actor = &actorID
	}
	for i, st := range path(status) {
		note := firstNote
		if prev != nil {
			note = backfillNote(st)
		}
		// Steps share a transaction timestamp; offset them so newest-first ordering holds.
		e := &Entry{
			BookingID:       b.ID,
			Change:          StatusChange{From: prev, To: st},
			Note:            note,
			ChangedByUserID: actor,
			CreatedAt:       now.Add(time.Duration(i) * time.Microsecond),
		}
		if err := tx.InsertHistory(ctx, e); err != nil {
			return err
		}
		step := st
		prev = &step
	}
	return nil
}

func backfillNote(s Status) string {
	switch s {
	case StatusConfirmed:
		return noteConfirmed
	case StatusCompleted:
		return noteCompleted
	case StatusCanceled:
		return noteCanceled
	default:
		return noteCreated
	}
}

var (
	testClient = client.Input{
		Name:  "Test Client",
		Email: "testclient@example.com",
		Phone: "555-555-5555",
		City:  "Test City",
		State: "NJ",
	}
	testLineItems = []money.LineItem{
		{Label: "Visit", Quantity: 2, UnitPriceCents: 3500, TotalPriceCents: 7000},
		{Label: "Travel", Quantity: 1, UnitPriceCents: 1500, TotalPriceCents: 1500},
	}
)

// CreateTestBooking creates a REQUESTED booking for tomorrow 10:00–12:00 for the oldest client
// (or a new test client) and the oldest sitter, if any.
func (s *Service) CreateTestBooking(ctx context.Context, actorID string) (b *Booking, err error) {
	ctx, span := observability.StartSpan(ctx, "booking.CreateTestBooking")
	defer func() { observability.EndSpan(span, err) }()

	local := s.now().In(s.Location)
	start := time.Date(local.Year(), local.Month(), local.Day()+1, 10, 0, 0, 0, s.Location)
	end := time.Date(local.Year(), local.Month(), local.Day()+1, 12, 0, 0, 0, s.Location)

	err = s.Store.WithTx(ctx, func(tx Tx) error {
		c, err := tx.FirstClient(ctx)
		if errors.Is(err, client.ErrNotFound) {
			c, err = tx.ResolveClient(ctx, testClient)
		}
		if err != nil {
			return fmt.Errorf("test client: %w", err)
		}

		var sitterID *string
		sitter, err := tx.FirstSitter(ctx)
		switch {
		case err == nil:
			sitterID = &sitter.ID
		case !errors.Is(err, user.ErrNotFound):
			return fmt.Errorf("test sitter: %w", err)
		}

		b = &Booking{
			ClientID:       c.ID,
			SitterID:       sitterID,
			StartTime:      start.UTC(),
			EndTime:        end.UTC(),
			ServiceSummary: "Drop-in visits (test)",
			Notes:          "Auto-created test booking",
		}
		return s.insert(ctx, tx, actorID, b, StatusRequested, testLineItems, noteTestCreated)
	})
	if err != nil {
		return nil, err
	}

	observability.LoggerFromContext(ctx).Info().
		Str("booking_id", b.ID).
		Str("client_total", money.FormatUSD(b.ClientTotalCents)).
		Msg("test booking created")
	return b, nil
}
