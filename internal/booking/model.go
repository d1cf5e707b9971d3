package booking

import (
	"time"

	"github.com/nekogravitycat/futsal-booking-backend/internal/pkg/apperror"
	"github.com/nekogravitycat/futsal-booking-backend/internal/pkg/daytime"
	"github.com/nekogravitycat/futsal-booking-backend/internal/pkg/money"
)

var (
	ErrNotFound              = apperror.NotFound("booking not found")
	ErrTimeConflict          = apperror.Conflict("time slot already booked")
	ErrDuplicateTransaction  = apperror.Conflict("duplicate transaction")
	ErrInvalidTimeRange      = apperror.Validation("start time must be before end time")
	ErrInvalidPaymentMethod  = apperror.Validation("payment_method must be GatewayPayment or Cash")
	ErrInvalidStatus         = apperror.Validation("invalid booking status")
	ErrStartTimePast         = apperror.Validation("cannot book a slot in the past")
	ErrNotesTooLong          = apperror.Validation("notes must be at most 255 characters")
	ErrCustomerRequired      = apperror.Validation("customer_name is required for walk-in bookings")
	ErrCourtUnavailable      = apperror.Validation("court is not accepting bookings")
	ErrOutsideOperatingHours = apperror.Validation("booking must fall within the court's operating hours")
	ErrCutoffPassed          = apperror.Validation("bookings cannot be changed within the cutoff before start")
	ErrPermissionDenied      = apperror.Authorization("permission denied")
	ErrIllegalTransition     = apperror.State("action not allowed in the booking's current status")
	ErrPaymentNotSettled     = apperror.State("gateway payment has not been received")
	ErrNotAwaitingPayment    = apperror.NotFound("booking is not awaiting payment")
)

const maxNotesLength = 255

type Status string

const (
	StatusPendingPayment Status = "PendingPayment"
	StatusPending        Status = "Pending"
	StatusConfirmed      Status = "Confirmed"
	StatusRejected       Status = "Rejected"
	StatusCancelled      Status = "Cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPendingPayment, StatusPending, StatusConfirmed, StatusRejected, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transitions are permitted.
func (s Status) Terminal() bool {
	return s == StatusConfirmed || s == StatusRejected || s == StatusCancelled
}

// HoldsSlot reports whether a booking in this status occupies its interval.
func (s Status) HoldsSlot() bool {
	return s != StatusCancelled && s != StatusRejected
}

// releasedStatuses free their slot for others.
var releasedStatuses = []Status{StatusCancelled, StatusRejected}

type PaymentMethod string

const (
	PaymentGateway PaymentMethod = "GatewayPayment"
	PaymentCash    PaymentMethod = "Cash"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentGateway || m == PaymentCash
}

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "Pending"
	PaymentPaid    PaymentStatus = "Paid"
	PaymentFailed  PaymentStatus = "Failed"
)

type Booking struct {
	ID              string
	TransactionUUID string
	CourtID         string
	CourtName       string
	VendorID        string
	UserID          *string
	CustomerName    *string
	CustomerPhone   *string
	CreatedBy       *string
	Date            time.Time // calendar day, midnight UTC
	StartTime       daytime.Time
	EndTime         daytime.Time
	Price           money.Amount
	PaymentMethod   PaymentMethod
	PaymentStatus   PaymentStatus
	Status          Status
	Notes           *string
	Reminder30Sent  bool
	Reminder10Sent  bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// StartAt is the instant the booking begins in the venue's time zone.
func (b *Booking) StartAt(loc *time.Location) time.Time {
	return b.StartTime.At(b.Date, loc)
}

func (b *Booking) EndAt(loc *time.Location) time.Time {
	return b.EndTime.At(b.Date, loc)
}

// IsWalkIn reports whether the booking was entered by a vendor for a customer without an account.
func (b *Booking) IsWalkIn() bool {
	return b.UserID == nil
}

// IsPayer reports whether userID booked for themselves.
func (b *Booking) IsPayer(userID string) bool {
	return b.UserID != nil && *b.UserID == userID
}

// Slot is an occupied interval on a court's day.
type Slot struct {
	StartTime daytime.Time
	EndTime   daytime.Time
	Status    Status
}

// Filter defines parameters for listing bookings.
type Filter struct {
	UserID   string
	VendorID string
	CourtID  string
	Status   Status
	Date     *time.Time
	Page     int
	PageSize int
}
