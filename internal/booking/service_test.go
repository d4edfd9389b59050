package booking

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskwhisker/internal/client"
	"taskwhisker/internal/money"
	"taskwhisker/internal/user"
	"taskwhisker/pkg/config"
)

const operatorID = "u-op"

var testNow = time.Date(2026, 5, 4, 15, 30, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

func newTestService(t *testing.T) (*Service, *fakeStore) {
	t.Helper()
	store := newFakeStore()
	store.state.users = []user.User{
		{ID: operatorID, Email: "ops@example.com", Role: user.RoleOperator},
		{ID: "s1", Email: "sam@example.com", Name: "Sam", Role: user.RoleSitter},
		{ID: "s2", Email: "kit@example.com", Name: "Kit", Role: user.RoleSitter},
	}
	svc := NewService(store, config.BookingPolicy{
		PlatformFeePercent: decimal.NewFromInt(10),
		CancelReasons:      []string{"Client requested", "No availability", "Weather"},
	}, time.UTC)
	svc.Now = func() time.Time { return testNow }
	return svc, store
}

func seed(store *fakeStore, id string, status Status) {
	b := Booking{ID: id, ClientID: "c1", Status: status}
	if status != StatusRequested {
		b.markStatus(status, testNow.Add(-time.Hour))
	}
	store.put(b)
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		ok       bool
	}{
		{StatusRequested, StatusConfirmed, true},
		{StatusRequested, StatusCanceled, true},
		{StatusRequested, StatusCompleted, false},
		{StatusConfirmed, StatusCompleted, true},
		{StatusConfirmed, StatusCanceled, true},
		{StatusConfirmed, StatusRequested, false},
		{StatusCompleted, StatusCanceled, false},
		{StatusCanceled, StatusConfirmed, false},
		{Status("BOGUS"), StatusConfirmed, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.ok, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestConfirm(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)
	seed(store, "b1", StatusRequested)

	out, err := svc.Confirm(ctx, operatorID, "b1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, out)

	b := store.get("b1")
	assert.Equal(t, StatusConfirmed, b.Status)
	require.NotNil(t, b.ConfirmedAt)
	assert.Equal(t, testNow, *b.ConfirmedAt)
	assert.Nil(t, b.CanceledAt)
	assert.Nil(t, b.CompletedAt)

	h := store.historyFor("b1")
	require.Len(t, h, 1)
	assert.Equal(t, StatusChange{From: ptr(StatusRequested), To: StatusConfirmed}, h[0].Change)
	assert.Equal(t, "Operator confirmed booking", h[0].Note)
	assert.Equal(t, operatorID, *h[0].ChangedByUserID)

	out, err = svc.Confirm(ctx, operatorID, "b1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeInvalidTransition, out)
	assert.Len(t, store.historyFor("b1"), 1)
}

func TestConfirm_NotFound(t *testing.T) {
	svc, store := newTestService(t)

	out, err := svc.Confirm(context.Background(), operatorID, "missing")
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotFound, out)
	assert.False(t, out.Applied())
	assert.Empty(t, store.state.history)
}

func TestComplete(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)
	seed(store, "req", StatusRequested)
	seed(store, "conf", StatusConfirmed)

	out, err := svc.Complete(ctx, operatorID, "req")
	require.NoError(t, err)
	assert.Equal(t, OutcomeInvalidTransition, out)
	assert.Equal(t, StatusRequested, store.get("req").Status)

	out, err = svc.Complete(ctx, operatorID, "conf")
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, out)

	b := store.get("conf")
	assert.Equal(t, StatusCompleted, b.Status)
	assert.NotNil(t, b.CompletedAt)
	assert.Nil(t, b.ConfirmedAt, "only the current status marker is kept")

	h := store.historyFor("conf")
	require.Len(t, h, 1)
	assert.Equal(t, "Operator marked booking complete", h[0].Note)
}

func TestCancel(t *testing.T) {
	ctx := context.Background()

	t.Run("confirmed without reason is rejected", func(t *testing.T) {
		svc, store := newTestService(t)
		seed(store, "b1", StatusConfirmed)

		out, err := svc.Cancel(ctx, operatorID, "b1", CancelRequest{})
		require.ErrorIs(t, err, ErrCancelReasonRequired)
		assert.Equal(t, Outcome(""), out)
		assert.Equal(t, "Cancel reason required for confirmed bookings.", err.Error())
		assert.Equal(t, StatusConfirmed, store.get("b1").Status)
		assert.Empty(t, store.historyFor("b1"))
	})

	t.Run("confirmed with preset", func(t *testing.T) {
		svc, store := newTestService(t)
		seed(store, "b1", StatusConfirmed)

		out, err := svc.Cancel(ctx, operatorID, "b1", CancelRequest{Reason: "Weather"})
		require.NoError(t, err)
		assert.Equal(t, OutcomeApplied, out)

		b := store.get("b1")
		assert.Equal(t, StatusCanceled, b.Status)
		assert.NotNil(t, b.CanceledAt)
		assert.Nil(t, b.ConfirmedAt)

		h := store.historyFor("b1")
		require.Len(t, h, 1)
		assert.Equal(t, "Operator canceled booking · Weather", h[0].Note)
		assert.Equal(t, StatusChange{From: ptr(StatusConfirmed), To: StatusCanceled}, h[0].Change)
	})

	t.Run("requested without reason", func(t *testing.T) {
		svc, store := newTestService(t)
		seed(store, "b1", StatusRequested)

		out, err := svc.Cancel(ctx, operatorID, "b1", CancelRequest{})
		require.NoError(t, err)
		assert.Equal(t, OutcomeApplied, out)
		assert.Equal(t, "Operator canceled booking", store.historyFor("b1")[0].Note)
	})

	t.Run("requested without reason when policy requires one", func(t *testing.T) {
		svc, store := newTestService(t)
		svc.Policy.CancelReasonRequiredForRequest = true
		seed(store, "b1", StatusRequested)

		_, err := svc.Cancel(ctx, operatorID, "b1", CancelRequest{Reason: "OTHER", ReasonOther: "   "})
		var ve ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "CANCEL_REASON_REQUIRED", ve.Code)
		assert.Equal(t, StatusRequested, store.get("b1").Status)
	})

	t.Run("other reason is capped", func(t *testing.T) {
		svc, store := newTestService(t)
		seed(store, "b1", StatusConfirmed)

		long := strings.Repeat("é", 200)
		_, err := svc.Cancel(ctx, operatorID, "b1", CancelRequest{Reason: "OTHER", ReasonOther: long})
		require.NoError(t, err)

		note := store.historyFor("b1")[0].Note
		reason := strings.TrimPrefix(note, "Operator canceled booking · ")
		assert.Equal(t, strings.Repeat("é", 140), reason)
	})

	t.Run("terminal states are left alone", func(t *testing.T) {
		svc, store := newTestService(t)
		seed(store, "done", StatusCompleted)
		seed(store, "gone", StatusCanceled)

		for _, id := range []string{"done", "gone"} {
			out, err := svc.Cancel(ctx, operatorID, id, CancelRequest{Reason: "Weather"})
			require.NoError(t, err)
			assert.Equal(t, OutcomeInvalidTransition, out)
		}
		assert.Empty(t, store.state.history)
	})
}

func TestLifecycle_CreateConfirmCancel(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)

	b, err := svc.Create(ctx, operatorID, NewBooking{
		Client:    client.Input{Name: "Ada", Email: "ada@example.com"},
		Status:    StatusRequested,
		StartTime: testNow.Add(24 * time.Hour),
		EndTime:   testNow.Add(26 * time.Hour),
		LineItems: []money.LineItem{{Label: "Visit", Quantity: 1, UnitPriceCents: 3500}},
	})
	require.NoError(t, err)

	out, err := svc.Confirm(ctx, operatorID, b.ID)
	require.NoError(t, err)
	require.Equal(t, OutcomeApplied, out)

	out, err = svc.Cancel(ctx, operatorID, b.ID, CancelRequest{Reason: "Weather"})
	require.NoError(t, err)
	require.Equal(t, OutcomeApplied, out)

	got := store.get(b.ID)
	assert.Equal(t, StatusCanceled, got.Status)
	assert.NotNil(t, got.CanceledAt)
	assert.Nil(t, got.ConfirmedAt)

	h := store.historyFor(b.ID)
	require.Len(t, h, 3)
	assert.Equal(t, StatusChange{From: nil, To: StatusRequested}, h[0].Change)
	assert.Equal(t, StatusChange{From: ptr(StatusRequested), To: StatusConfirmed}, h[1].Change)
	assert.Equal(t, StatusChange{From: ptr(StatusConfirmed), To: StatusCanceled}, h[2].Change)
	assert.Contains(t, h[2].Note, "Weather")
	for _, e := range h {
		assert.Equal(t, operatorID, *e.ChangedByUserID)
	}
}

func TestCancelRequest_Text(t *testing.T) {
	assert.Equal(t, "Weather", CancelRequest{Reason: "  Weather "}.Text())
	assert.Equal(t, "Dog is sick", CancelRequest{Reason: "OTHER", ReasonOther: " Dog is sick "}.Text())
	assert.Equal(t, "", CancelRequest{Reason: "OTHER"}.Text())
	assert.Equal(t, "", CancelRequest{ReasonOther: "ignored without OTHER"}.Text())
	assert.Len(t, []rune(CancelRequest{Reason: strings.Repeat("x", 300)}.Text()), 140)
}

func TestTransition_RollsBackOnFailure(t *testing.T) {
	svc, store := newTestService(t)
	seed(store, "b1", StatusRequested)
	store.failOn = "InsertHistory"

	_, err := svc.Confirm(context.Background(), operatorID, "b1")
	require.ErrorIs(t, err, errInjected)

	b := store.get("b1")
	assert.Equal(t, StatusRequested, b.Status)
	assert.Nil(t, b.ConfirmedAt)
	assert.Empty(t, store.state.history)
}

func TestAssignSitter(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)
	seed(store, "b1", StatusRequested)

	steps := []struct {
		name    string
		sitter  *string
		outcome Outcome
		note    string
	}{
		{"assign", ptr("s1"), OutcomeApplied, "Operator assigned sitter"},
		{"same sitter", ptr("s1"), OutcomeUnchanged, ""},
		{"reassign", ptr("s2"), OutcomeApplied, "Operator reassigned sitter"},
		{"unassign", nil, OutcomeApplied, "Operator unassigned sitter"},
		{"still unassigned", ptr(" "), OutcomeUnchanged, ""},
	}
	for _, st := range steps {
		before := len(store.historyFor("b1"))
		out, err := svc.AssignSitter(ctx, operatorID, "b1", st.sitter)
		require.NoError(t, err, st.name)
		assert.Equal(t, st.outcome, out, st.name)

		h := store.historyFor("b1")
		if st.note == "" {
			assert.Len(t, h, before, st.name)
			continue
		}
		require.Len(t, h, before+1, st.name)
		assert.Equal(t, st.note, h[len(h)-1].Note, st.name)
	}

	h := store.historyFor("b1")
	assert.Equal(t, SitterChange{From: ptr("s1"), To: ptr("s2")}, h[1].Change)
	assert.Nil(t, store.get("b1").SitterID)
}

func TestAssignSitter_SameSitterInAnotherForm(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)
	const sitterUUID = "6f1c2a9e-3b4d-4e5f-8a7b-9c0d1e2f3a4b"
	store.state.users = append(store.state.users,
		user.User{ID: sitterUUID, Email: "lee@example.com", Name: "Lee", Role: user.RoleSitter})
	seed(store, "b1", StatusConfirmed)

	out, err := svc.AssignSitter(ctx, operatorID, "b1", ptr(sitterUUID))
	require.NoError(t, err)
	require.Equal(t, OutcomeApplied, out)

	for _, form := range []string{
		strings.ToUpper(sitterUUID),
		"{" + sitterUUID + "}",
		" urn:uuid:" + sitterUUID + " ",
	} {
		out, err := svc.AssignSitter(ctx, operatorID, "b1", ptr(form))
		require.NoError(t, err, form)
		assert.Equal(t, OutcomeUnchanged, out, form)
	}

	assert.Len(t, store.historyFor("b1"), 1)
	assert.Equal(t, sitterUUID, *store.get("b1").SitterID)
}

func TestAssignSitter_Rejections(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)
	seed(store, "done", StatusCompleted)
	seed(store, "open", StatusConfirmed)

	out, err := svc.AssignSitter(ctx, operatorID, "done", ptr("s1"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeInvalidTransition, out)

	out, err = svc.AssignSitter(ctx, operatorID, "missing", ptr("s1"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotFound, out)

	_, err = svc.AssignSitter(ctx, operatorID, "open", ptr(operatorID))
	assert.ErrorIs(t, err, ErrSitterInvalid)
	_, err = svc.AssignSitter(ctx, operatorID, "open", ptr("nobody"))
	assert.ErrorIs(t, err, ErrSitterInvalid)

	assert.Nil(t, store.get("open").SitterID)
	assert.Empty(t, store.state.history)
}

func TestCreate_BackfillsHistory(t *testing.T) {
	svc, store := newTestService(t)

	b, err := svc.Create(context.Background(), operatorID, NewBooking{
		Client:    client.Input{Name: "Ada", Email: "ADA@example.com"},
		SitterID:  ptr("s1"),
		Status:    StatusCompleted,
		StartTime: testNow,
		EndTime:   testNow.Add(2 * time.Hour),
		LineItems: []money.LineItem{
			{Label: "Walk", Quantity: 4, UnitPriceCents: 2500},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, b.Status)
	assert.NotNil(t, b.CompletedAt)
	assert.Nil(t, b.ConfirmedAt)
	assert.EqualValues(t, 10000, b.ClientTotalCents)
	assert.EqualValues(t, 1000, b.PlatformFeeCents)
	assert.EqualValues(t, 9000, b.SitterPayoutCents)
	assert.EqualValues(t, 10000, store.state.items[b.ID][0].TotalPriceCents)

	require.Len(t, store.state.clients, 1)
	assert.Equal(t, "ada@example.com", store.state.clients[0].Email)

	h := store.historyFor(b.ID)
	require.Len(t, h, 3)
	assert.Equal(t, StatusChange{From: nil, To: StatusRequested}, h[0].Change)
	assert.Equal(t, StatusChange{From: ptr(StatusRequested), To: StatusConfirmed}, h[1].Change)
	assert.Equal(t, StatusChange{From: ptr(StatusConfirmed), To: StatusCompleted}, h[2].Change)
	assert.True(t, h[2].CreatedAt.After(h[1].CreatedAt))
	assert.True(t, h[1].CreatedAt.After(h[0].CreatedAt))
}

func TestCreate_Validation(t *testing.T) {
	svc, store := newTestService(t)
	valid := NewBooking{
		Client:    client.Input{Name: "Ada"},
		StartTime: testNow,
		EndTime:   testNow.Add(time.Hour),
	}

	cases := []struct {
		name string
		edit func(*NewBooking)
		code string
	}{
		{"no client", func(n *NewBooking) { n.Client = client.Input{} }, "CLIENT_REQUIRED"},
		{"end before start", func(n *NewBooking) { n.EndTime = n.StartTime }, "BOOKING_TIME_INVALID"},
		{"bad status", func(n *NewBooking) { n.Status = "PENDING" }, "STATUS_INVALID"},
		{"bad line item", func(n *NewBooking) {
			n.LineItems = []money.LineItem{{Label: "Visit", Quantity: 2, UnitPriceCents: 100, TotalPriceCents: 150}}
		}, "LINE_ITEM_INVALID"},
		{"unknown client id", func(n *NewBooking) { n.Client = client.Input{ID: "nope"} }, "CLIENT_NOT_FOUND"},
		{"operator as sitter", func(n *NewBooking) { n.SitterID = ptr(operatorID) }, "SITTER_INVALID"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := valid
			tc.edit(&in)
			_, err := svc.Create(context.Background(), operatorID, in)
			var ve ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tc.code, ve.Code)
		})
	}
	assert.Empty(t, store.state.bookings)
	assert.Empty(t, store.state.clients)
}

func TestCreateTestBooking(t *testing.T) {
	svc, store := newTestService(t)

	b, err := svc.CreateTestBooking(context.Background(), operatorID)
	require.NoError(t, err)

	assert.Equal(t, StatusRequested, b.Status)
	assert.Equal(t, time.Date(2026, 5, 5, 10, 0, 0, 0, time.UTC), b.StartTime)
	assert.Equal(t, time.Date(2026, 5, 5, 12, 0, 0, 0, time.UTC), b.EndTime)
	assert.EqualValues(t, 8500, b.ClientTotalCents)
	assert.EqualValues(t, 850, b.PlatformFeeCents)
	assert.EqualValues(t, 7650, b.SitterPayoutCents)
	require.NotNil(t, b.SitterID)
	assert.Equal(t, "s1", *b.SitterID)

	require.Len(t, store.state.clients, 1)
	assert.Equal(t, "Test Client", store.state.clients[0].Name)

	h := store.historyFor(b.ID)
	require.Len(t, h, 1)
	assert.Equal(t, "Test booking created", h[0].Note)

	// A second test booking reuses the oldest client.
	_, err = svc.CreateTestBooking(context.Background(), operatorID)
	require.NoError(t, err)
	assert.Len(t, store.state.clients, 1)
	assert.Len(t, store.state.bookings, 2)
}

func TestCreateTestBooking_Timezone(t *testing.T) {
	svc, _ := newTestService(t)
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	svc.Location = ny

	b, err := svc.CreateTestBooking(context.Background(), operatorID)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 5, 5, 10, 0, 0, 0, ny).UTC(), b.StartTime)
}
