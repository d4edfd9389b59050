package dashboard

import "taskwhisker/internal/booking"

type Bucket struct {
	Count        int64 `json:"count"`
	RevenueCents int64 `json:"revenueCents"`
}

func (b Bucket) add(o Bucket) Bucket {
	return Bucket{Count: b.Count + o.Count, RevenueCents: b.RevenueCents + o.RevenueCents}
}

// Metrics are per-status counts and client totals over the date window.
type Metrics struct {
	All       Bucket `json:"ALL"`
	Requested Bucket `json:"REQUESTED"`
	Confirmed Bucket `json:"CONFIRMED"`
	Completed Bucket `json:"COMPLETED"`
	Canceled  Bucket `json:"CANCELED"`
}

// StatusRow is one row of the group-by-status query.
type StatusRow struct {
	Status       string
	Count        int64
	RevenueCents int64
}

// Normalize folds grouped rows into Metrics. Unknown statuses are dropped and
// All is the sum of the four known buckets.
func Normalize(rows []StatusRow) Metrics {
	var m Metrics
	for _, r := range rows {
		b := Bucket{Count: r.Count, RevenueCents: r.RevenueCents}
		switch booking.Status(r.Status) {
		case booking.StatusRequested:
			m.Requested = b
		case booking.StatusConfirmed:
			m.Confirmed = b
		case booking.StatusCompleted:
			m.Completed = b
		case booking.StatusCanceled:
			m.Canceled = b
		}
	}
	m.All = m.Requested.add(m.Confirmed).add(m.Completed).add(m.Canceled)
	return m
}
