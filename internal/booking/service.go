package booking

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/nekogravitycat/futsal-booking-backend/internal/auth"
	"github.com/nekogravitycat/futsal-booking-backend/internal/court"
	"github.com/nekogravitycat/futsal-booking-backend/internal/pkg/clock"
	"github.com/nekogravitycat/futsal-booking-backend/internal/pkg/daytime"
)

type CreateRequest struct {
	CourtID       string
	Date          time.Time
	StartTime     daytime.Time
	EndTime       daytime.Time
	PaymentMethod PaymentMethod
	Notes         *string
}

// ManualRequest is a walk-in booking entered by the court's vendor.
type ManualRequest struct {
	CreateRequest
	CustomerName  string
	CustomerPhone string
}

type UpdateRequest struct {
	Date      *time.Time
	StartTime *daytime.Time
	EndTime   *daytime.Time
	Notes     *string
}

// Notifier receives committed transitions. Implementations must not block.
type Notifier interface {
	BookingConfirmed(ctx context.Context, b *Booking)
	BookingRejected(ctx context.Context, b *Booking)
	BookingCancelled(ctx context.Context, b *Booking)
}

// CourtReader is the part of the court service bookings depend on.
type CourtReader interface {
	GetByID(ctx context.Context, id string) (*court.Court, error)
}

// Policy holds the venue-wide rules for bookings.
type Policy struct {
	Location *time.Location
	// Cutoff is how long before start a booking becomes frozen.
	Cutoff time.Duration
}

type Service interface {
	Create(ctx context.Context, actor auth.Identity, req CreateRequest) (*Booking, error)
	CreateManual(ctx context.Context, actor auth.Identity, req ManualRequest) (*Booking, error)
	IsAvailable(ctx context.Context, courtID string, date time.Time, start, end daytime.Time) (bool, error)
	BookedTimes(ctx context.Context, courtID string, date time.Time) ([]Slot, error)
	FreeIntervals(ctx context.Context, courtID string, date time.Time) ([]Interval, error)
	GetByID(ctx context.Context, actor auth.Identity, id string) (*Booking, error)
	List(ctx context.Context, actor auth.Identity, filter Filter) ([]*Booking, int, error)
	Edit(ctx context.Context, actor auth.Identity, id string, req UpdateRequest) (*Booking, error)
	Cancel(ctx context.Context, actor auth.Identity, id string) (*Booking, error)
	Approve(ctx context.Context, actor auth.Identity, id string) (*Booking, error)
	Reject(ctx context.Context, actor auth.Identity, id string) (*Booking, error)

	GetByTransactionUUID(ctx context.Context, txn string) (*Booking, error)
	// SettlePayment confirms a gateway booking. applied is false for replays.
	SettlePayment(ctx context.Context, txn string) (b *Booking, applied bool, err error)
	// FailPayment cancels a gateway booking. applied is false for replays.
	FailPayment(ctx context.Context, txn string) (b *Booking, applied bool, err error)
}

type service struct {
	repo     Repository
	courts   CourtReader
	notifier Notifier
	clock    clock.Clock
	policy   Policy
}

func NewService(repo Repository, courts CourtReader, notifier Notifier, clk clock.Clock, policy Policy) Service {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if clk == nil {
		clk = clock.NewRealClock()
	}
	if policy.Location == nil {
		policy.Location = time.UTC
	}
	return &service{repo: repo, courts: courts, notifier: notifier, clock: clk, policy: policy}
}

type nopNotifier struct{}

func (nopNotifier) BookingConfirmed(context.Context, *Booking) {}
func (nopNotifier) BookingRejected(context.Context, *Booking)  {}
func (nopNotifier) BookingCancelled(context.Context, *Booking) {}

func validateNotes(notes *string) (*string, error) {
	if notes == nil {
		return nil, nil
	}
	n := strings.TrimSpace(*notes)
	if n == "" {
		return nil, nil
	}
	if utf8.RuneCountInString(n) > maxNotesLength {
		return nil, ErrNotesTooLong
	}
	return &n, nil
}

// bookableCourt applies the gates that precede any availability check.
func (s *service) bookableCourt(ctx context.Context, courtID string, date time.Time, start, end daytime.Time) (*court.Court, error) {
	if start >= end {
		return nil, ErrInvalidTimeRange
	}

	c, err := s.courts.GetByID(ctx, courtID)
	if err != nil {
		return nil, err
	}
	if !c.AcceptsBookings() {
		return nil, ErrCourtUnavailable.With("court_status", c.Status)
	}
	if !c.WithinOperatingHours(start, end) {
		return nil, ErrOutsideOperatingHours.
			With("opening_time", c.OpeningTime.Short()).
			With("closing_time", c.ClosingTime.Short())
	}
	if !start.At(date, s.policy.Location).After(s.clock.Now()) {
		return nil, ErrStartTimePast
	}
	return c, nil
}

func (s *service) create(ctx context.Context, b *Booking, req CreateRequest) (*Booking, error) {
	if !req.PaymentMethod.Valid() {
		return nil, ErrInvalidPaymentMethod
	}
	notes, err := validateNotes(req.Notes)
	if err != nil {
		return nil, err
	}

	c, err := s.bookableCourt(ctx, req.CourtID, req.Date, req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}

	b.TransactionUUID = uuid.NewString()
	b.CourtID = c.ID
	b.CourtName = c.Name
	b.VendorID = c.VendorID
	b.Date = req.Date
	b.StartTime = req.StartTime
	b.EndTime = req.EndTime
	b.Price = c.Price
	b.PaymentMethod = req.PaymentMethod
	b.PaymentStatus = PaymentPending
	b.Status = InitialStatus(req.PaymentMethod)
	b.Notes = notes

	if err := s.repo.CreateIfAvailable(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *service) Create(ctx context.Context, actor auth.Identity, req CreateRequest) (*Booking, error) {
	userID := actor.UserID
	return s.create(ctx, &Booking{UserID: &userID, CreatedBy: &userID}, req)
}

func (s *service) CreateManual(ctx context.Context, actor auth.Identity, req ManualRequest) (*Booking, error) {
	c, err := s.courts.GetByID(ctx, req.CourtID)
	if err != nil {
		return nil, err
	}
	if !actor.IsVendor() || !c.OwnedBy(actor.UserID) {
		return nil, ErrPermissionDenied
	}

	name := strings.TrimSpace(req.CustomerName)
	if name == "" {
		return nil, ErrCustomerRequired
	}
	var phone *string
	if p := strings.TrimSpace(req.CustomerPhone); p != "" {
		phone = &p
	}

	vendorID := actor.UserID
	return s.create(ctx, &Booking{CustomerName: &name, CustomerPhone: phone, CreatedBy: &vendorID}, req.CreateRequest)
}

func (s *service) IsAvailable(ctx context.Context, courtID string, date time.Time, start, end daytime.Time) (bool, error) {
	if start >= end {
		return false, ErrInvalidTimeRange
	}
	taken, err := s.repo.HasOverlap(ctx, courtID, date, start, end, "")
	if err != nil {
		return false, err
	}
	return !taken, nil
}

func (s *service) BookedTimes(ctx context.Context, courtID string, date time.Time) ([]Slot, error) {
	if _, err := s.courts.GetByID(ctx, courtID); err != nil {
		return nil, err
	}
	return s.repo.BookedSlots(ctx, courtID, date)
}

func (s *service) FreeIntervals(ctx context.Context, courtID string, date time.Time) ([]Interval, error) {
	c, err := s.courts.GetByID(ctx, courtID)
	if err != nil {
		return nil, err
	}
	if !c.AcceptsBookings() {
		return []Interval{}, nil
	}

	booked, err := s.repo.BookedSlots(ctx, courtID, date)
	if err != nil {
		return nil, err
	}

	open, close := daytime.Time(0), EndOfDay
	if c.HasOperatingHours() {
		open, close = *c.OpeningTime, *c.ClosingTime
	}

	// Hide the part of today that has already passed.
	now := s.clock.Now()
	if daytime.DateOf(now, s.policy.Location).Equal(date) {
		local := now.In(s.policy.Location)
		elapsed := daytime.Of(local.Hour(), local.Minute(), 0) + 60
		if elapsed > open {
			open = min(elapsed, close)
		}
	}
	return FreeIntervals(open, close, booked), nil
}

// canView allows the payer, the court's vendor, and the vendor who entered a walk-in.
func canView(actor auth.Identity, b *Booking) bool {
	return b.IsPayer(actor.UserID) || (actor.IsVendor() && b.VendorID == actor.UserID)
}

// canModify allows the payer, or the court's vendor for walk-in bookings.
func canModify(actor auth.Identity, b *Booking) bool {
	if b.IsWalkIn() {
		return actor.IsVendor() && b.VendorID == actor.UserID
	}
	return b.IsPayer(actor.UserID)
}

func (s *service) GetByID(ctx context.Context, actor auth.Identity, id string) (*Booking, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canView(actor, b) {
		return nil, ErrPermissionDenied
	}
	return b, nil
}

func (s *service) List(ctx context.Context, actor auth.Identity, filter Filter) ([]*Booking, int, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, ErrInvalidStatus
	}

	filter.UserID, filter.VendorID = "", ""
	if actor.IsVendor() {
		filter.VendorID = actor.UserID
	} else {
		filter.UserID = actor.UserID
	}
	return s.repo.List(ctx, filter)
}

// checkCutoff rejects changes once start is within the cutoff window.
func (s *service) checkCutoff(b *Booking) error {
	if b.StartAt(s.policy.Location).Sub(s.clock.Now()) <= s.policy.Cutoff {
		return ErrCutoffPassed.With("cutoff", s.policy.Cutoff.String())
	}
	return nil
}

// currentStateError re-reads a booking whose guarded update matched nothing.
func (s *service) currentStateError(ctx context.Context, id string, ev Event) error {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if _, err := Next(b.Status, ev); err != nil {
		return err
	}
	if ev == EventApprove {
		return ErrPaymentNotSettled.With("payment_status", b.PaymentStatus)
	}
	return ErrIllegalTransition.With("current_status", b.Status)
}

func (s *service) Edit(ctx context.Context, actor auth.Identity, id string, req UpdateRequest) (*Booking, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canModify(actor, b) {
		return nil, ErrPermissionDenied
	}
	if _, err := Next(b.Status, EventEdit); err != nil {
		return nil, err
	}
	if err := s.checkCutoff(b); err != nil {
		return nil, err
	}

	date, start, end, notes := b.Date, b.StartTime, b.EndTime, b.Notes
	if req.Date != nil {
		date = *req.Date
	}
	if req.StartTime != nil {
		start = *req.StartTime
	}
	if req.EndTime != nil {
		end = *req.EndTime
	}
	if req.Notes != nil {
		if notes, err = validateNotes(req.Notes); err != nil {
			return nil, err
		}
	}

	// The new slot must also start outside the cutoff.
	if err := s.checkCutoff(&Booking{Date: date, StartTime: start}); err != nil {
		return nil, err
	}
	if _, err := s.bookableCourt(ctx, b.CourtID, date, start, end); err != nil {
		return nil, err
	}

	updated, applied, err := s.repo.Reschedule(ctx, Reschedule{
		ID:        b.ID,
		From:      sourceStatuses(EventEdit),
		Date:      date,
		StartTime: start,
		EndTime:   end,
		Notes:     notes,
	})
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, s.currentStateError(ctx, id, EventEdit)
	}
	return updated, nil
}

func (s *service) Cancel(ctx context.Context, actor auth.Identity, id string) (*Booking, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canModify(actor, b) {
		return nil, ErrPermissionDenied
	}
	to, err := Next(b.Status, EventCancel)
	if err != nil {
		return nil, err
	}
	if err := s.checkCutoff(b); err != nil {
		return nil, err
	}

	updated, applied, err := s.repo.Apply(ctx, Transition{
		ID:   b.ID,
		From: sourceStatuses(EventCancel),
		To:   to,
	})
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, s.currentStateError(ctx, id, EventCancel)
	}

	s.notifier.BookingCancelled(ctx, updated)
	return updated, nil
}

// vendorBooking loads a booking and checks that actor owns its court.
func (s *service) vendorBooking(ctx context.Context, actor auth.Identity, id string) (*Booking, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsVendor() || b.VendorID != actor.UserID {
		return nil, ErrPermissionDenied
	}
	return b, nil
}

func (s *service) Approve(ctx context.Context, actor auth.Identity, id string) (*Booking, error) {
	b, err := s.vendorBooking(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	to, err := Next(b.Status, EventApprove)
	if err != nil {
		return nil, err
	}
	if b.PaymentMethod == PaymentGateway && b.PaymentStatus != PaymentPaid {
		return nil, ErrPaymentNotSettled.With("payment_status", b.PaymentStatus)
	}

	updated, applied, err := s.repo.Apply(ctx, Transition{
		ID:            b.ID,
		From:          sourceStatuses(EventApprove),
		To:            to,
		RequireSettle: true,
	})
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, s.currentStateError(ctx, id, EventApprove)
	}

	s.notifier.BookingConfirmed(ctx, updated)
	return updated, nil
}

func (s *service) Reject(ctx context.Context, actor auth.Identity, id string) (*Booking, error) {
	b, err := s.vendorBooking(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	to, err := Next(b.Status, EventReject)
	if err != nil {
		return nil, err
	}

	updated, applied, err := s.repo.Apply(ctx, Transition{
		ID:   b.ID,
		From: sourceStatuses(EventReject),
		To:   to,
	})
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, s.currentStateError(ctx, id, EventReject)
	}

	s.notifier.BookingRejected(ctx, updated)
	return updated, nil
}

func (s *service) GetByTransactionUUID(ctx context.Context, txn string) (*Booking, error) {
	return s.repo.GetByTransactionUUID(ctx, txn)
}

func (s *service) SettlePayment(ctx context.Context, txn string) (*Booking, bool, error) {
	updated, applied, err := s.repo.Apply(ctx, Transition{
		TransactionUUID: txn,
		From:            sourceStatuses(EventPaymentComplete),
		To:              StatusConfirmed,
		PaymentNot:      PaymentPaid,
		SetPayment:      PaymentPaid,
	})
	if err != nil {
		return nil, false, err
	}
	if applied {
		s.notifier.BookingConfirmed(ctx, updated)
		return updated, true, nil
	}

	current, err := s.repo.GetByTransactionUUID(ctx, txn)
	if err != nil {
		return nil, false, err
	}
	if current.PaymentStatus == PaymentPaid {
		return current, false, nil
	}
	return nil, false, ErrNotAwaitingPayment.With("current_status", current.Status)
}

func (s *service) FailPayment(ctx context.Context, txn string) (*Booking, bool, error) {
	updated, applied, err := s.repo.Apply(ctx, Transition{
		TransactionUUID: txn,
		From:            sourceStatuses(EventPaymentFailed),
		To:              StatusCancelled,
		PaymentNot:      PaymentPaid,
		SetPayment:      PaymentFailed,
	})
	if err != nil {
		return nil, false, err
	}
	if applied {
		s.notifier.BookingCancelled(ctx, updated)
		return updated, true, nil
	}

	current, err := s.repo.GetByTransactionUUID(ctx, txn)
	if err != nil {
		return nil, false, err
	}
	if current.Status == StatusCancelled && current.PaymentStatus == PaymentFailed {
		return current, false, nil
	}
	return nil, false, ErrNotAwaitingPayment.With("current_status", current.Status)
}
