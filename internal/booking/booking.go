package booking

import (
	"time"

	"taskwhisker/internal/client"
	"taskwhisker/internal/money"
)

type Booking struct {
	ID             string    `json:"id"`
	ClientID       string    `json:"clientId"`
	SitterID       *string   `json:"sitterId"`
	Status         Status    `json:"status"`
	StartTime      time.Time `json:"startTime"`
	EndTime        time.Time `json:"endTime"`
	ServiceSummary string    `json:"serviceSummary"`
	Notes          string    `json:"notes"`

	ClientTotalCents  int64 `json:"clientTotalCents"`
	PlatformFeeCents  int64 `json:"platformFeeCents"`
	SitterPayoutCents int64 `json:"sitterPayoutCents"`

	ConfirmedAt *time.Time `json:"confirmedAt"`
	CanceledAt  *time.Time `json:"canceledAt"`
	CompletedAt *time.Time `json:"completedAt"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// markStatus moves b to s and stamps the marker for s. The other markers are cleared so at
// most one of them is ever set.
func (b *Booking) markStatus(s Status, at time.Time) {
	b.Status = s
	b.ConfirmedAt, b.CanceledAt, b.CompletedAt = nil, nil, nil
	t := at
	switch s {
	case StatusConfirmed:
		b.ConfirmedAt = &t
	case StatusCanceled:
		b.CanceledAt = &t
	case StatusCompleted:
		b.CompletedAt = &t
	}
	b.UpdatedAt = at
}

func (b *Booking) setSplit(s money.Split) {
	b.ClientTotalCents = s.ClientTotalCents
	b.PlatformFeeCents = s.PlatformFeeCents
	b.SitterPayoutCents = s.SitterPayoutCents
}

// Person is the display slice of a user attached to a booking.
type Person struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Summary is a booking row as the dashboard and sitter list show it.
type Summary struct {
	Booking
	ClientName string           `json:"clientName"`
	SitterName *string          `json:"sitterName"`
	LineItems  []money.LineItem `json:"lineItems,omitempty"`
}

// Detail is everything the booking page needs. History is newest first.
type Detail struct {
	Booking   Booking          `json:"booking"`
	Client    client.Client    `json:"client"`
	Sitter    *Person          `json:"sitter"`
	LineItems []money.LineItem `json:"lineItems"`
	History   []Entry          `json:"history"`
}

// NewBooking is the input for Create.
type NewBooking struct {
	Client         client.Input     `json:"client"`
	SitterID       *string          `json:"sitterId"`
	Status         Status           `json:"status"`
	StartTime      time.Time        `json:"startTime"`
	EndTime        time.Time        `json:"endTime"`
	ServiceSummary string           `json:"serviceSummary"`
	Notes          string           `json:"notes"`
	LineItems      []money.LineItem `json:"lineItems"`
}
