package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/futsal-booking-backend/internal/auth"
	"github.com/nekogravitycat/futsal-booking-backend/internal/booking"
	"github.com/nekogravitycat/futsal-booking-backend/internal/payment"
	"github.com/nekogravitycat/futsal-booking-backend/internal/pkg/daytime"
	"github.com/nekogravitycat/futsal-booking-backend/internal/pkg/request"
	"github.com/nekogravitycat/futsal-booking-backend/internal/pkg/response"
)

type Handler struct {
	service booking.Service
	signer  *payment.Signer
}

func NewHandler(service booking.Service, signer *payment.Signer) *Handler {
	return &Handler{service: service, signer: signer}
}

func (h *Handler) createdResponse(b *booking.Booking) CreateBookingResponse {
	resp := CreateBookingResponse{Booking: NewBookingResponse(b)}
	if b.PaymentMethod == booking.PaymentGateway {
		req := h.signer.NewRequest(b)
		resp.Payment = &req
		resp.Message = "Booking created. Proceed with gateway payment."
	} else {
		resp.Message = "Court booked successfully. Please pay in cash at the venue."
	}
	return resp
}

// Create reserves a slot for the authenticated user.
func (h *Handler) Create(c *gin.Context) {
	var body CreateBookingRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}
	req, err := body.toService()
	if err != nil {
		response.BadRequest(c, "invalid date or time", err)
		return
	}

	identity, _ := auth.GetIdentity(c)
	b, err := h.service.Create(c.Request.Context(), identity, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, h.createdResponse(b))
}

// CreateManual records a walk-in booking on the vendor's own court.
func (h *Handler) CreateManual(c *gin.Context) {
	var body ManualBookingRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}
	req, err := body.toService()
	if err != nil {
		response.BadRequest(c, "invalid date or time", err)
		return
	}

	identity, _ := auth.GetIdentity(c)
	b, err := h.service.CreateManual(c.Request.Context(), identity, booking.ManualRequest{
		CreateRequest: req,
		CustomerName:  body.CustomerName,
		CustomerPhone: body.CustomerPhone,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, h.createdResponse(b))
}

func (h *Handler) List(c *gin.Context) {
	var req ListBookingsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, "invalid query parameters", err)
		return
	}
	req.Normalize()

	filter := booking.Filter{
		CourtID:  req.CourtID,
		Status:   booking.Status(req.Status),
		Page:     req.Page,
		PageSize: req.PageSize,
	}
	if req.Date != "" {
		d, err := daytime.ParseDate(req.Date)
		if err != nil {
			response.BadRequest(c, "invalid date", err)
			return
		}
		filter.Date = &d
	}

	identity, _ := auth.GetIdentity(c)
	bookings, total, err := h.service.List(c.Request.Context(), identity, filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]BookingResponse, len(bookings))
	for i, b := range bookings {
		items[i] = NewBookingResponse(b)
	}
	c.JSON(http.StatusOK, response.NewPageResponse(items, req.Page, req.PageSize, total))
}

func (h *Handler) Get(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid booking id", err)
		return
	}

	identity, _ := auth.GetIdentity(c)
	b, err := h.service.GetByID(c.Request.Context(), identity, uri.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, NewBookingResponse(b))
}

// Update reschedules a booking or changes its notes.
func (h *Handler) Update(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid booking id", err)
		return
	}
	var body UpdateBookingRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}
	req, err := body.toService()
	if err != nil {
		response.BadRequest(c, "invalid date or time", err)
		return
	}

	identity, _ := auth.GetIdentity(c)
	b, err := h.service.Edit(c.Request.Context(), identity, uri.ID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, NewBookingResponse(b))
}

type transitionFunc func(c *gin.Context, actor auth.Identity, id string) (*booking.Booking, error)

// transition binds the id, runs fn with the caller's identity, and renders the booking.
func (h *Handler) transition(fn transitionFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		var uri request.ByIDRequest
		if err := c.ShouldBindUri(&uri); err != nil {
			response.BadRequest(c, "invalid booking id", err)
			return
		}

		identity, _ := auth.GetIdentity(c)
		b, err := fn(c, identity, uri.ID)
		if err != nil {
			response.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, NewBookingResponse(b))
	}
}

func (h *Handler) Cancel() gin.HandlerFunc {
	return h.transition(func(c *gin.Context, actor auth.Identity, id string) (*booking.Booking, error) {
		return h.service.Cancel(c.Request.Context(), actor, id)
	})
}

func (h *Handler) Approve() gin.HandlerFunc {
	return h.transition(func(c *gin.Context, actor auth.Identity, id string) (*booking.Booking, error) {
		return h.service.Approve(c.Request.Context(), actor, id)
	})
}

func (h *Handler) Reject() gin.HandlerFunc {
	return h.transition(func(c *gin.Context, actor auth.Identity, id string) (*booking.Booking, error) {
		return h.service.Reject(c.Request.Context(), actor, id)
	})
}

func bindCourtDay(c *gin.Context) (string, string, bool) {
	var q CourtDayQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, "court_id and date are required", err)
		return "", "", false
	}
	if _, err := daytime.ParseDate(q.Date); err != nil {
		response.BadRequest(c, "invalid date", err)
		return "", "", false
	}
	return q.CourtID, q.Date, true
}

// BookedTimes lists the slots already taken on a court's day.
func (h *Handler) BookedTimes(c *gin.Context) {
	courtID, day, ok := bindCourtDay(c)
	if !ok {
		return
	}
	date, _ := daytime.ParseDate(day)

	slots, err := h.service.BookedTimes(c.Request.Context(), courtID, date)
	if err != nil {
		response.Error(c, err)
		return
	}

	out := DaySlotsResponse{CourtID: courtID, Date: day, Slots: make([]SlotResponse, len(slots))}
	for i, s := range slots {
		out.Slots[i] = SlotResponse{StartTime: s.StartTime.Short(), EndTime: s.EndTime.Short(), Status: string(s.Status)}
	}
	c.JSON(http.StatusOK, out)
}

// Availability lists the free intervals on a court's day.
func (h *Handler) Availability(c *gin.Context) {
	courtID, day, ok := bindCourtDay(c)
	if !ok {
		return
	}
	date, _ := daytime.ParseDate(day)

	free, err := h.service.FreeIntervals(c.Request.Context(), courtID, date)
	if err != nil {
		response.Error(c, err)
		return
	}

	out := DaySlotsResponse{CourtID: courtID, Date: day, Slots: make([]SlotResponse, len(free))}
	for i, iv := range free {
		out.Slots[i] = SlotResponse{StartTime: iv.Start.Short(), EndTime: iv.End.Short()}
	}
	c.JSON(http.StatusOK, out)
}
