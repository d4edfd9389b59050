package booking

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"

	"taskwhisker/internal/client"
	"taskwhisker/internal/money"
	"taskwhisker/internal/user"
)

// fakeStore keeps bookings in memory. A transaction works on a copy that replaces the
// committed state only when fn returns nil.
type fakeStore struct {
	state  fakeState
	seq    int
	failOn string
}

type fakeState struct {
	bookings map[string]Booking
	items    map[string][]money.LineItem
	history  []Entry
	clients  []client.Client
	users    []user.User
}

func newFakeStore() *fakeStore {
	return &fakeStore{state: fakeState{
		bookings: map[string]Booking{},
		items:    map[string][]money.LineItem{},
	}}
}

func (s fakeState) clone() fakeState {
	return fakeState{
		bookings: maps.Clone(s.bookings),
		items:    maps.Clone(s.items),
		history:  slices.Clone(s.history),
		clients:  slices.Clone(s.clients),
		users:    slices.Clone(s.users),
	}
}

func (f *fakeStore) nextID(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s-%d", prefix, f.seq)
}

func (f *fakeStore) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	working := f.state.clone()
	if err := fn(&fakeTx{store: f, st: &working}); err != nil {
		return err
	}
	f.state = working
	return nil
}

func (f *fakeStore) put(b Booking) {
	f.state.bookings[b.ID] = b
}

func (f *fakeStore) get(id string) Booking {
	return f.state.bookings[id]
}

func (f *fakeStore) historyFor(id string) []Entry {
	var out []Entry
	for _, e := range f.state.history {
		if e.BookingID == id {
			out = append(out, e)
		}
	}
	return out
}

var errInjected = errors.New("injected failure")

type fakeTx struct {
	store *fakeStore
	st    *fakeState
}

func (t *fakeTx) fail(op string) error {
	if t.store.failOn == op {
		return errInjected
	}
	return nil
}

func (t *fakeTx) GetForUpdate(_ context.Context, id string) (*Booking, error) {
	b, ok := t.st.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &b, nil
}

func (t *fakeTx) UpdateStatus(_ context.Context, b *Booking) error {
	if err := t.fail("UpdateStatus"); err != nil {
		return err
	}
	t.st.bookings[b.ID] = *b
	return nil
}

func (t *fakeTx) UpdateSitter(_ context.Context, id string, sitterID *string) error {
	if err := t.fail("UpdateSitter"); err != nil {
		return err
	}
	b := t.st.bookings[id]
	b.SitterID = sitterID
	t.st.bookings[id] = b
	return nil
}

func (t *fakeTx) InsertHistory(_ context.Context, e *Entry) error {
	if err := t.fail("InsertHistory"); err != nil {
		return err
	}
	e.ID = t.store.nextID("h")
	t.st.history = append(t.st.history, *e)
	return nil
}

func (t *fakeTx) InsertBooking(_ context.Context, b *Booking, items []money.LineItem) error {
	if err := t.fail("InsertBooking"); err != nil {
		return err
	}
	b.ID = t.store.nextID("b")
	t.st.bookings[b.ID] = *b
	t.st.items[b.ID] = slices.Clone(items)
	return nil
}

func (t *fakeTx) ResolveClient(_ context.Context, in client.Input) (*client.Client, error) {
	in = in.Normalize()
	for _, c := range t.st.clients {
		switch {
		case in.ID != "" && c.ID == in.ID,
			in.ID == "" && in.Email != "" && c.Email == in.Email,
			in.ID == "" && in.Email == "" && c.Name == in.Name && c.Phone == in.Phone:
			return &c, nil
		}
	}
	if in.ID != "" {
		return nil, client.ErrNotFound
	}
	if in.Name == "" {
		return nil, client.ErrNameRequired
	}
	c := client.Client{ID: t.store.nextID("c"), Name: in.Name, Email: in.Email, Phone: in.Phone, City: in.City, State: in.State}
	t.st.clients = append(t.st.clients, c)
	return &c, nil
}

func (t *fakeTx) FirstClient(context.Context) (*client.Client, error) {
	if len(t.st.clients) == 0 {
		return nil, client.ErrNotFound
	}
	c := t.st.clients[0]
	return &c, nil
}

func (t *fakeTx) FindUser(_ context.Context, id string) (*user.User, error) {
	for _, u := range t.st.users {
		if u.ID == id {
			return &u, nil
		}
	}
	return nil, user.ErrNotFound
}

func (t *fakeTx) FirstSitter(context.Context) (*user.User, error) {
	for _, u := range t.st.users {
		if u.Role == user.RoleSitter {
			return &u, nil
		}
	}
	return nil, user.ErrNotFound
}
