package booking

import (
	"fmt"
	"strings"
)

type Status string

const (
	StatusRequested Status = "REQUESTED"
	StatusConfirmed Status = "CONFIRMED"
	StatusCompleted Status = "COMPLETED"
	StatusCanceled  Status = "CANCELED"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{StatusRequested, StatusConfirmed, StatusCompleted, StatusCanceled}

func ParseStatus(s string) (Status, error) {
	switch Status(strings.ToUpper(strings.TrimSpace(s))) {
	case StatusRequested:
		return StatusRequested, nil
	case StatusConfirmed:
		return StatusConfirmed, nil
	case StatusCompleted:
		return StatusCompleted, nil
	case StatusCanceled:
		return StatusCanceled, nil
	default:
		return "", fmt.Errorf("unknown status: %s", s)
	}
}

var allowedTransitions = map[Status]map[Status]bool{
	StatusRequested: {StatusConfirmed: true, StatusCanceled: true},
	StatusConfirmed: {StatusCompleted: true, StatusCanceled: true},
	StatusCompleted: {},
	StatusCanceled:  {},
}

func CanTransition(from, to Status) bool {
	m, ok := allowedTransitions[from]
	if !ok {
		return false
	}
	return m[to]
}

// path returns the status rows a booking created directly in s would have gone through.
func path(s Status) []Status {
	switch s {
	case StatusConfirmed:
		return []Status{StatusRequested, StatusConfirmed}
	case StatusCompleted:
		return []Status{StatusRequested, StatusConfirmed, StatusCompleted}
	case StatusCanceled:
		return []Status{StatusRequested, StatusCanceled}
	default:
		return []Status{StatusRequested}
	}
}
