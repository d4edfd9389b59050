package client

import (
	"strings"
	"time"
)

type Client struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	City      string    `json:"city,omitempty"`
	State     string    `json:"state,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Input identifies a client for a new booking: either an existing ID, or contact details
// that are matched against existing clients before a new one is created.
type Input struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
	City  string `json:"city,omitempty"`
	State string `json:"state,omitempty"`
}

func (in Input) Normalize() Input {
	in.ID = strings.TrimSpace(in.ID)
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Phone = strings.TrimSpace(in.Phone)
	in.City = strings.TrimSpace(in.City)
	in.State = strings.TrimSpace(in.State)
	return in
}

// Empty reports whether the input carries nothing to resolve a client from.
func (in Input) Empty() bool {
	return in.ID == "" && in.Name == "" && in.Email == ""
}

type matchKind int

const (
	matchByID matchKind = iota
	matchByEmail
	matchByNamePhone
)

// strategy picks how an input is matched. Email wins when present; (name, phone) is a
// loose fallback and not a uniqueness guarantee.
func (in Input) strategy() matchKind {
	switch {
	case in.ID != "":
		return matchByID
	case in.Email != "":
		return matchByEmail
	default:
		return matchByNamePhone
	}
}
