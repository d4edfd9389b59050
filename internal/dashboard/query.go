package dashboard

import (
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"

	"taskwhisker/internal/booking"
)

const StatusAll = "ALL"

// DefaultWindowDays is how far ahead the dashboard looks when no dates are given.
const DefaultWindowDays = 7

// DateRange bounds bookings by start time. A nil side is unbounded.
type DateRange struct {
	From      *time.Time `json:"from"`
	To        *time.Time `json:"to"`
	IsDefault bool       `json:"isDefault"`
}

// Query is the resolved dashboard filter.
type Query struct {
	Status string    `json:"status"`
	Range  DateRange `json:"range"`
}

// ResolveStatus accepts ALL or a booking status in any case. Anything else means ALL.
func ResolveStatus(raw string) string {
	v := strings.ToUpper(strings.TrimSpace(raw))
	if v == StatusAll {
		return StatusAll
	}
	if s, err := booking.ParseStatus(v); err == nil {
		return string(s)
	}
	return StatusAll
}

var dateOnly = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// ParseDateOnly parses a YYYY-MM-DD calendar date at midnight in loc.
// Other shapes and impossible dates (2026-02-31) are reported as absent.
func ParseDateOnly(raw string, loc *time.Location) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if !dateOnly.MatchString(s) {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(time.DateOnly, s, loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), t.Location())
}

// ResolveDateRange turns the raw from/to parameters into bounds. With neither given the
// window is today through today+7, end of day.
func ResolveDateRange(rawFrom, rawTo string, now time.Time, loc *time.Location) DateRange {
	from, okFrom := ParseDateOnly(rawFrom, loc)
	to, okTo := ParseDateOnly(rawTo, loc)

	if !okFrom && !okTo {
		today := now.In(loc)
		f := startOfDay(today)
		t := endOfDay(today.AddDate(0, 0, DefaultWindowDays))
		return DateRange{From: &f, To: &t, IsDefault: true}
	}

	var r DateRange
	if okFrom {
		f := startOfDay(from)
		r.From = &f
	}
	if okTo {
		t := endOfDay(to)
		r.To = &t
	}
	return r
}

// ResolveQuery reads status, from and to from the request query.
func ResolveQuery(v url.Values, now time.Time, loc *time.Location) Query {
	if loc == nil {
		loc = time.Local
	}
	return Query{
		Status: ResolveStatus(v.Get("status")),
		Range:  ResolveDateRange(v.Get("from"), v.Get("to"), now, loc),
	}
}

var (
	colStartTime = goqu.I("b.start_time")
	colStatus    = goqu.I("b.status")
)

// DateWhere bounds start_time by the range. Metrics use it alone.
func DateWhere(r DateRange) []exp.Expression {
	var out []exp.Expression
	if r.From != nil {
		out = append(out, colStartTime.Gte(*r.From))
	}
	if r.To != nil {
		out = append(out, colStartTime.Lte(*r.To))
	}
	return out
}

// BookingsWhere is DateWhere plus the status filter unless it is ALL.
func BookingsWhere(q Query) []exp.Expression {
	out := DateWhere(q.Range)
	if q.Status != "" && q.Status != StatusAll {
		out = append(out, colStatus.Eq(q.Status))
	}
	return out
}
