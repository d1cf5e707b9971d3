// Package bookingtest provides in-memory doubles for booking collaborators.
package bookingtest

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nekogravitycat/futsal-booking-backend/internal/booking"
	"github.com/nekogravitycat/futsal-booking-backend/internal/court"
	"github.com/nekogravitycat/futsal-booking-backend/internal/pkg/daytime"
)

// MemoryRepository is a booking.Repository whose writes are serialized by one mutex,
// the same guarantee the advisory lock gives the Postgres repository.
type MemoryRepository struct {
	mu       sync.Mutex
	bookings map[string]*booking.Booking
	now      func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{bookings: map[string]*booking.Booking{}, now: time.Now}
}

func clone(b *booking.Booking) *booking.Booking {
	cp := *b
	return &cp
}

// Put stores b as-is, assigning an ID if it has none.
func (r *MemoryRepository) Put(b *booking.Booking) *booking.Booking {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.TransactionUUID == "" {
		b.TransactionUUID = uuid.NewString()
	}
	r.bookings[b.ID] = clone(b)
	return clone(b)
}

func (r *MemoryRepository) conflicts(courtID string, date time.Time, start, end daytime.Time, excludeID string) bool {
	for _, b := range r.bookings {
		if b.ID != excludeID && b.CourtID == courtID && booking.Conflicts(b, date, start, end) {
			return true
		}
	}
	return false
}

func (r *MemoryRepository) CreateIfAvailable(_ context.Context, b *booking.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conflicts(b.CourtID, b.Date, b.StartTime, b.EndTime, "") {
		return booking.ErrTimeConflict
	}
	for _, existing := range r.bookings {
		if existing.TransactionUUID == b.TransactionUUID {
			return booking.ErrDuplicateTransaction
		}
	}

	b.ID = uuid.NewString()
	b.CreatedAt = r.now()
	b.UpdatedAt = b.CreatedAt
	r.bookings[b.ID] = clone(b)
	return nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id string) (*booking.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, booking.ErrNotFound
	}
	return clone(b), nil
}

func (r *MemoryRepository) byTxn(txn string) *booking.Booking {
	for _, b := range r.bookings {
		if b.TransactionUUID == txn {
			return b
		}
	}
	return nil
}

func (r *MemoryRepository) GetByTransactionUUID(_ context.Context, txn string) (*booking.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b := r.byTxn(txn); b != nil {
		return clone(b), nil
	}
	return nil, booking.ErrNotFound
}

func (r *MemoryRepository) List(_ context.Context, f booking.Filter) ([]*booking.Booking, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*booking.Booking
	for _, b := range r.bookings {
		switch {
		case f.UserID != "" && !b.IsPayer(f.UserID),
			f.VendorID != "" && b.VendorID != f.VendorID,
			f.CourtID != "" && b.CourtID != f.CourtID,
			f.Status != "" && b.Status != f.Status,
			f.Date != nil && !b.Date.Equal(*f.Date):
			continue
		}
		out = append(out, clone(b))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].StartTime > out[j].StartTime
	})

	total := len(out)
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = 20
	}
	lo := min((f.Page-1)*f.PageSize, total)
	hi := min(lo+f.PageSize, total)
	return out[lo:hi], total, nil
}

func (r *MemoryRepository) HasOverlap(_ context.Context, courtID string, date time.Time, start, end daytime.Time, excludeID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.conflicts(courtID, date, start, end, excludeID), nil
}

func (r *MemoryRepository) BookedSlots(_ context.Context, courtID string, date time.Time) ([]booking.Slot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	slots := []booking.Slot{}
	for _, b := range r.bookings {
		if b.CourtID == courtID && booking.Conflicts(b, date, 0, booking.EndOfDay) {
			slots = append(slots, booking.Slot{StartTime: b.StartTime, EndTime: b.EndTime, Status: b.Status})
		}
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].StartTime < slots[j].StartTime })
	return slots, nil
}

func (r *MemoryRepository) Reschedule(_ context.Context, rs booking.Reschedule) (*booking.Booking, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.bookings[rs.ID]
	if !ok {
		return nil, false, booking.ErrNotFound
	}
	if r.conflicts(b.CourtID, rs.Date, rs.StartTime, rs.EndTime, rs.ID) {
		return nil, false, booking.ErrTimeConflict
	}
	if !slices.Contains(rs.From, b.Status) {
		return nil, false, nil
	}

	b.Date, b.StartTime, b.EndTime, b.Notes = rs.Date, rs.StartTime, rs.EndTime, rs.Notes
	b.UpdatedAt = r.now()
	return clone(b), true, nil
}

func (r *MemoryRepository) Apply(_ context.Context, t booking.Transition) (*booking.Booking, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var b *booking.Booking
	if t.ID != "" {
		b = r.bookings[t.ID]
	} else {
		b = r.byTxn(t.TransactionUUID)
	}
	if b == nil || !slices.Contains(t.From, b.Status) {
		return nil, false, nil
	}
	if t.PaymentNot != "" && b.PaymentStatus == t.PaymentNot {
		return nil, false, nil
	}
	if t.RequireSettle && b.PaymentMethod != booking.PaymentCash && b.PaymentStatus != booking.PaymentPaid {
		return nil, false, nil
	}

	b.Status = t.To
	if t.SetPayment != "" {
		b.PaymentStatus = t.SetPayment
	}
	b.UpdatedAt = r.now()
	return clone(b), true, nil
}

// Courts is a court lookup backed by a map.
type Courts map[string]*court.Court

func (c Courts) GetByID(_ context.Context, id string) (*court.Court, error) {
	ct, ok := c[id]
	if !ok {
		return nil, court.ErrNotFound
	}
	cp := *ct
	return &cp, nil
}

// RecordingNotifier remembers every notification it was given.
type RecordingNotifier struct {
	mu        sync.Mutex
	Confirmed []string
	Rejected  []string
	Cancelled []string
}

func (n *RecordingNotifier) BookingConfirmed(_ context.Context, b *booking.Booking) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Confirmed = append(n.Confirmed, b.ID)
}

func (n *RecordingNotifier) BookingRejected(_ context.Context, b *booking.Booking) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Rejected = append(n.Rejected, b.ID)
}

func (n *RecordingNotifier) BookingCancelled(_ context.Context, b *booking.Booking) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Cancelled = append(n.Cancelled, b.ID)
}

// Counts returns the number of confirmed, rejected and cancelled notifications.
func (n *RecordingNotifier) Counts() (confirmed, rejected, cancelled int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.Confirmed), len(n.Rejected), len(n.Cancelled)
}
