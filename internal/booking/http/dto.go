package http

import (
	"time"

	"github.com/nekogravitycat/futsal-booking-backend/internal/booking"
	"github.com/nekogravitycat/futsal-booking-backend/internal/payment"
	"github.com/nekogravitycat/futsal-booking-backend/internal/pkg/daytime"
	"github.com/nekogravitycat/futsal-booking-backend/internal/pkg/request"
)

type CourtTag struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type BookingResponse struct {
	ID              string    `json:"id"`
	TransactionUUID string    `json:"transaction_uuid"`
	Court           CourtTag  `json:"court"`
	UserID          *string   `json:"user_id"`
	CustomerName    *string   `json:"customer_name,omitempty"`
	CustomerPhone   *string   `json:"customer_phone,omitempty"`
	Date            string    `json:"date"`
	StartTime       string    `json:"start_time"`
	EndTime         string    `json:"end_time"`
	Price           string    `json:"price"`
	PaymentMethod   string    `json:"payment_method"`
	PaymentStatus   string    `json:"payment_status"`
	Status          string    `json:"status"`
	Notes           *string   `json:"notes"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func NewBookingResponse(b *booking.Booking) BookingResponse {
	return BookingResponse{
		ID:              b.ID,
		TransactionUUID: b.TransactionUUID,
		Court:           CourtTag{ID: b.CourtID, Name: b.CourtName},
		UserID:          b.UserID,
		CustomerName:    b.CustomerName,
		CustomerPhone:   b.CustomerPhone,
		Date:            daytime.FormatDate(b.Date),
		StartTime:       b.StartTime.Short(),
		EndTime:         b.EndTime.Short(),
		Price:           b.Price.String(),
		PaymentMethod:   string(b.PaymentMethod),
		PaymentStatus:   string(b.PaymentStatus),
		Status:          string(b.Status),
		Notes:           b.Notes,
		CreatedAt:       b.CreatedAt,
		UpdatedAt:       b.UpdatedAt,
	}
}

// CreateBookingResponse carries the payment form for gateway bookings.
type CreateBookingResponse struct {
	Message string           `json:"message"`
	Booking BookingResponse  `json:"booking"`
	Payment *payment.Request `json:"payment,omitempty"`
}

type CreateBookingRequest struct {
	CourtID       string  `json:"court_id" binding:"required,uuid"`
	Date          string  `json:"date" binding:"required"`
	StartTime     string  `json:"start_time" binding:"required"`
	EndTime       string  `json:"end_time" binding:"required"`
	PaymentMethod string  `json:"payment_method" binding:"required,oneof=GatewayPayment Cash"`
	Notes         *string `json:"notes" binding:"omitempty,max=255"`
}

func (r CreateBookingRequest) toService() (booking.CreateRequest, error) {
	out := booking.CreateRequest{
		CourtID:       r.CourtID,
		PaymentMethod: booking.PaymentMethod(r.PaymentMethod),
		Notes:         r.Notes,
	}
	var err error
	if out.Date, err = daytime.ParseDate(r.Date); err != nil {
		return out, err
	}
	if out.StartTime, err = daytime.Parse(r.StartTime); err != nil {
		return out, err
	}
	if out.EndTime, err = daytime.Parse(r.EndTime); err != nil {
		return out, err
	}
	return out, nil
}

type ManualBookingRequest struct {
	CreateBookingRequest
	CustomerName  string `json:"customer_name" binding:"required,max=120"`
	CustomerPhone string `json:"customer_phone" binding:"omitempty,max=32"`
}

type UpdateBookingRequest struct {
	Date      *string `json:"date"`
	StartTime *string `json:"start_time"`
	EndTime   *string `json:"end_time"`
	Notes     *string `json:"notes" binding:"omitempty,max=255"`
}

func (r UpdateBookingRequest) toService() (booking.UpdateRequest, error) {
	out := booking.UpdateRequest{Notes: r.Notes}
	if r.Date != nil {
		d, err := daytime.ParseDate(*r.Date)
		if err != nil {
			return out, err
		}
		out.Date = &d
	}
	if r.StartTime != nil {
		t, err := daytime.Parse(*r.StartTime)
		if err != nil {
			return out, err
		}
		out.StartTime = &t
	}
	if r.EndTime != nil {
		t, err := daytime.Parse(*r.EndTime)
		if err != nil {
			return out, err
		}
		out.EndTime = &t
	}
	return out, nil
}

// ListBookingsRequest defines query parameters for listing bookings.
type ListBookingsRequest struct {
	request.ListParams
	CourtID string `form:"court_id" binding:"omitempty,uuid"`
	Status  string `form:"status" binding:"omitempty,oneof=PendingPayment Pending Confirmed Rejected Cancelled"`
	Date    string `form:"date"`
}

// CourtDayQuery selects one court's calendar day.
type CourtDayQuery struct {
	CourtID string `form:"court_id" binding:"required,uuid"`
	Date    string `form:"date" binding:"required"`
}

type SlotResponse struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Status    string `json:"status,omitempty"`
}

type DaySlotsResponse struct {
	CourtID string         `json:"court_id"`
	Date    string         `json:"date"`
	Slots   []SlotResponse `json:"slots"`
}
