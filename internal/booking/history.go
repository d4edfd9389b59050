package booking

import (
	"encoding/json"
	"time"
)

const (
	kindStatus = "STATUS"
	kindSitter = "SITTER"
)

const (
	noteConfirmed      = "Operator confirmed booking"
	noteCompleted      = "Operator marked booking complete"
	noteCanceled       = "Operator canceled booking"
	noteCreated        = "Operator created booking"
	noteTestCreated    = "Test booking created"
	noteSitterAssigned = "Operator assigned sitter"
	noteSitterRemoved  = "Operator unassigned sitter"
	noteSitterReplaced = "Operator reassigned sitter"
)

// Change is what a history entry records: a StatusChange or a SitterChange.
type Change interface {
	kind() string
}

// StatusChange with a nil From is the initial status of a new booking.
type StatusChange struct {
	From *Status
	To   Status
}

func (StatusChange) kind() string { return kindStatus }

// SitterChange with a nil side means no sitter.
type SitterChange struct {
	From *string
	To   *string
}

func (SitterChange) kind() string { return kindSitter }

// Entry is one append-only row of a booking's history.
type Entry struct {
	ID              string
	BookingID       string
	Change          Change
	Note            string
	ChangedByUserID *string
	CreatedAt       time.Time
}

type entryJSON struct {
	ID              string    `json:"id"`
	BookingID       string    `json:"bookingId"`
	Kind            string    `json:"kind"`
	FromStatus      *Status   `json:"fromStatus,omitempty"`
	ToStatus        *Status   `json:"toStatus,omitempty"`
	FromSitterID    *string   `json:"fromSitterId,omitempty"`
	ToSitterID      *string   `json:"toSitterId,omitempty"`
	Note            string    `json:"note"`
	ChangedByUserID *string   `json:"changedByUserId"`
	CreatedAt       time.Time `json:"createdAt"`
}

func (e Entry) MarshalJSON() ([]byte, error) {
	out := entryJSON{
		ID:              e.ID,
		BookingID:       e.BookingID,
		Note:            e.Note,
		ChangedByUserID: e.ChangedByUserID,
		CreatedAt:       e.CreatedAt,
	}
	switch c := e.Change.(type) {
	case StatusChange:
		to := c.To
		out.Kind, out.FromStatus, out.ToStatus = kindStatus, c.From, &to
	case SitterChange:
		out.Kind, out.FromSitterID, out.ToSitterID = kindSitter, c.From, c.To
	}
	return json.Marshal(out)
}

func sitterNote(from, to *string) string {
	switch {
	case from == nil && to != nil:
		return noteSitterAssigned
	case from != nil && to == nil:
		return noteSitterRemoved
	default:
		return noteSitterReplaced
	}
}

func sameSitter(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
