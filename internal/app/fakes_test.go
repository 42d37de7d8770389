package app_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"hotel_booking/internal/domain"
)

// memStore is an in-memory stand-in for the MySQL repo with the same
// semantics: overlap re-check inside CreateBooking, unique reference codes,
// idempotent payment outcomes.
type memStore struct {
	mu sync.Mutex

	rooms      map[int64]domain.Room
	nextRoomID int64

	bookings      map[int64]domain.Booking
	nextBookingID int64
	// bookingErr makes GetBookingByReference fail, for error-path tests.
	bookingErr error

	refs map[string]bool
	// forceCollisions makes the next N SaveReference calls conflict.
	forceCollisions int

	payments  []domain.PaymentRecord
	appliedTx map[string]bool
}

func newMemStore() *memStore {
	return &memStore{
		rooms:     map[int64]domain.Room{},
		bookings:  map[int64]domain.Booking{},
		refs:      map[string]bool{},
		appliedTx: map[string]bool{},
	}
}

func (m *memStore) addRoom(r domain.Room) domain.Room {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextRoomID++
	r.ID = m.nextRoomID
	m.rooms[r.ID] = r
	return r
}

func (m *memStore) overlapsLocked(roomID int64, checkIn, checkOut time.Time) bool {
	for _, b := range m.bookings {
		if b.RoomID == roomID && b.Status == domain.BookingBooked &&
			domain.Overlaps(b.CheckIn, b.CheckOut, checkIn, checkOut) {
			return true
		}
	}
	return false
}

// ---- BookingRepository ----

func (m *memStore) CreateBooking(ctx context.Context, b domain.Booking) (domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rooms[b.RoomID]; !ok {
		return domain.Booking{}, domain.ErrNotFound
	}
	if m.overlapsLocked(b.RoomID, b.CheckIn, b.CheckOut) {
		return domain.Booking{}, domain.ErrConflict
	}
	m.nextBookingID++
	b.ID = m.nextBookingID
	m.bookings[b.ID] = b
	return b, nil
}

func (m *memStore) UpdateBooking(ctx context.Context, id int64, p domain.BookingPatch) (domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return domain.Booking{}, domain.ErrNotFound
	}
	if p.Status != nil {
		b.Status = *p.Status
	}
	if p.PaymentStatus != nil {
		b.PaymentStatus = *p.PaymentStatus
	}
	m.bookings[id] = b
	return b, nil
}

func (m *memStore) GetBookingByReference(ctx context.Context, reference string) (domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.bookingErr != nil {
		return domain.Booking{}, m.bookingErr
	}
	for _, b := range m.bookings {
		if b.Reference == reference {
			return b, nil
		}
	}
	return domain.Booking{}, domain.ErrNotFound
}

func (m *memStore) ListBookings(ctx context.Context) ([]domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Booking, 0, len(m.bookings))
	for _, b := range m.bookings {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *memStore) IsRoomAvailable(ctx context.Context, roomID int64, checkIn, checkOut time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.overlapsLocked(roomID, checkIn, checkOut), nil
}

// ---- RoomRepository ----

func (m *memStore) CreateRoom(ctx context.Context, r domain.Room) (domain.Room, error) {
	return m.addRoom(r), nil
}

func (m *memStore) UpdateRoom(ctx context.Context, id int64, p domain.RoomPatch) (domain.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[id]
	if !ok {
		return domain.Room{}, domain.ErrNotFound
	}
	if p.Number != nil {
		r.Number = *p.Number
	}
	if p.Type != nil {
		r.Type = *p.Type
	}
	if p.PricePerNight != nil {
		r.PricePerNight = *p.PricePerNight
	}
	if p.Capacity != nil {
		r.Capacity = *p.Capacity
	}
	if p.Description != nil {
		r.Description = p.Description
	}
	if p.ImageURL != nil {
		r.ImageURL = p.ImageURL
	}
	m.rooms[id] = r
	return r, nil
}

func (m *memStore) DeleteRoom(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rooms[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.rooms, id)
	return nil
}

func (m *memStore) GetRoom(ctx context.Context, id int64) (domain.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[id]
	if !ok {
		return domain.Room{}, domain.ErrNotFound
	}
	return r, nil
}

func (m *memStore) ListRooms(ctx context.Context) ([]domain.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (m *memStore) SearchRooms(ctx context.Context, input string) ([]domain.Room, error) {
	return m.ListRooms(ctx)
}

func (m *memStore) AvailableRooms(ctx context.Context, checkIn, checkOut time.Time, roomType *domain.RoomType) ([]domain.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Room
	for _, r := range m.rooms {
		if roomType != nil && r.Type != *roomType {
			continue
		}
		if !m.overlapsLocked(r.ID, checkIn, checkOut) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

// ---- ReferenceStore ----

func (m *memStore) SaveReference(ctx context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.forceCollisions > 0 {
		m.forceCollisions--
		return domain.ErrConflict
	}
	if m.refs[code] {
		return domain.ErrConflict
	}
	m.refs[code] = true
	return nil
}

// ---- PaymentRepository ----

func (m *memStore) ApplyOutcome(ctx context.Context, rec domain.PaymentRecord) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var bookingID int64
	found := false
	for id, b := range m.bookings {
		if b.Reference == rec.BookingReference {
			bookingID, found = id, true
			break
		}
	}
	if !found {
		return false, domain.ErrNotFound
	}
	key := rec.BookingReference + "/" + rec.TransactionID
	if m.appliedTx[key] {
		return false, nil
	}
	m.appliedTx[key] = true
	m.payments = append(m.payments, rec)
	b := m.bookings[bookingID]
	if b.PaymentStatus != domain.PaymentCompleted {
		b.PaymentStatus = rec.Status
		m.bookings[bookingID] = b
	}
	return true, nil
}

func (m *memStore) ListPaymentsByReference(ctx context.Context, reference string) ([]domain.PaymentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.PaymentRecord
	for _, rec := range m.payments {
		if rec.BookingReference == reference {
			out = append(out, rec)
		}
	}
	return out, nil
}

// ---- other fakes ----

type noopCache struct{}

func (noopCache) Get(ctx context.Context, key string, dst any) (bool, error) { return false, nil }
func (noopCache) Set(ctx context.Context, key string, v any, ttl time.Duration) error {
	return nil
}
func (noopCache) Del(ctx context.Context, key string) error { return nil }

type fakeUsers struct{}

func (fakeUsers) GetUser(ctx context.Context, id int64) (domain.User, error) {
	return domain.User{ID: id, Email: fmt.Sprintf("user%d@example.com", id)}, nil
}

// gatedUsers blocks every lookup until gate is closed, to prove the lookup
// happens off the caller's path.
type gatedUsers struct{ gate chan struct{} }

func (g gatedUsers) GetUser(ctx context.Context, id int64) (domain.User, error) {
	select {
	case <-g.gate:
	case <-ctx.Done():
		return domain.User{}, ctx.Err()
	}
	return domain.User{ID: id, Email: fmt.Sprintf("user%d@example.com", id)}, nil
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []domain.Notification
	err  error
}

func (f *fakeNotifier) Notify(ctx context.Context, n domain.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, n)
	return nil
}

func (f *fakeNotifier) all() []domain.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Notification(nil), f.sent...)
}

type fakeGateway struct {
	mu          sync.Mutex
	lastAmount  int64
	lastCurr    string
	lastMeta    map[string]string
	secret      string
	err         error
	createCalls int
}

func (f *fakeGateway) CreateIntent(ctx context.Context, amountMinor int64, currency string, metadata map[string]string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	f.lastAmount = amountMinor
	f.lastCurr = currency
	f.lastMeta = metadata
	if f.err != nil {
		return "", f.err
	}
	if f.secret == "" {
		return "secret_test", nil
	}
	return f.secret, nil
}
