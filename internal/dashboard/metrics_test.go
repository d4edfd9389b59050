package dashboard

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskwhisker/internal/booking"
)

func TestNormalize(t *testing.T) {
	m := Normalize([]StatusRow{
		{Status: "REQUESTED", Count: 2, RevenueCents: 17000},
		{Status: "COMPLETED", Count: 1, RevenueCents: 10000},
		{Status: "ARCHIVED", Count: 9, RevenueCents: 99999},
	})

	assert.Equal(t, Bucket{Count: 2, RevenueCents: 17000}, m.Requested)
	assert.Equal(t, Bucket{}, m.Confirmed)
	assert.Equal(t, Bucket{Count: 1, RevenueCents: 10000}, m.Completed)
	assert.Equal(t, Bucket{}, m.Canceled)
	assert.Equal(t, Bucket{Count: 3, RevenueCents: 27000}, m.All)

	assert.Equal(t, Metrics{}, Normalize(nil))
}

type stubSource struct {
	list     []booking.Summary
	rows     []StatusRow
	err      error
	gotRange DateRange
	gotQuery Query
}

func (s *stubSource) List(_ context.Context, q Query) ([]booking.Summary, error) {
	s.gotQuery = q
	return s.list, nil
}

func (s *stubSource) CountByStatus(_ context.Context, r DateRange) ([]StatusRow, error) {
	s.gotRange = r
	return s.rows, s.err
}

func TestLoad(t *testing.T) {
	src := &stubSource{
		list: []booking.Summary{{Booking: booking.Booking{ID: "b1", Status: booking.StatusConfirmed}}},
		rows: []StatusRow{{Status: "CONFIRMED", Count: 1, RevenueCents: 8500}, {Status: "CANCELED", Count: 4, RevenueCents: 100}},
	}
	q := Query{Status: "CONFIRMED", Range: DateRange{IsDefault: true}}

	data, err := Load(context.Background(), src, q)
	require.NoError(t, err)
	assert.Len(t, data.Bookings, 1)
	assert.Equal(t, int64(5), data.Metrics.All.Count)
	assert.Equal(t, q, src.gotQuery)
	assert.Equal(t, q.Range, src.gotRange)

	src.err = errors.New("boom")
	_, err = Load(context.Background(), src, q)
	assert.Error(t, err)
}
