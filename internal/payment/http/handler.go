package http

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	bookingHttp "github.com/nekogravitycat/futsal-booking-backend/internal/booking/http"
	"github.com/nekogravitycat/futsal-booking-backend/internal/payment"
	"github.com/nekogravitycat/futsal-booking-backend/internal/pkg/response"
)

// maxCallbackBody bounds raw callback bodies.
const maxCallbackBody = 64 << 10

type Handler struct {
	engine *payment.Engine
}

func NewHandler(engine *payment.Engine) *Handler {
	return &Handler{engine: engine}
}

type CallbackResponse struct {
	Status          string                       `json:"status"`
	Message         string                       `json:"message"`
	TransactionUUID string                       `json:"transaction_uuid,omitempty"`
	Booking         *bookingHttp.BookingResponse `json:"booking,omitempty"`
}

// callbackData finds the envelope in the query string, then the form, then the raw body.
func callbackData(c *gin.Context) string {
	if v := c.Query("data"); v != "" {
		return v
	}
	if c.Request.Method != http.MethodPost || c.Request.Body == nil {
		return ""
	}

	ct := c.ContentType()
	if ct == "application/x-www-form-urlencoded" || ct == "multipart/form-data" {
		return c.PostForm("data")
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxCallbackBody))
	if err != nil {
		return ""
	}
	return strings.Trim(strings.TrimSpace(string(body)), `"`)
}

// Success applies a gateway success redirect or server notification.
func (h *Handler) Success(c *gin.Context) {
	res, err := h.engine.HandleCallback(c.Request.Context(), callbackData(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	resp := CallbackResponse{
		Status:          "success",
		Message:         "Payment successful and booking confirmed.",
		TransactionUUID: res.Booking.TransactionUUID,
	}
	switch {
	case res.Cancelled && res.AlreadySettled:
		resp.Status, resp.Message = "failed", "Payment failure already processed."
	case res.Cancelled:
		resp.Status, resp.Message = "failed", "Payment failed. Booking has been cancelled."
	case res.AlreadySettled:
		resp.Message = "Payment already processed."
	}
	b := bookingHttp.NewBookingResponse(res.Booking)
	resp.Booking = &b
	c.JSON(http.StatusOK, resp)
}

// Failure cancels the booking for an abandoned or failed payment.
func (h *Handler) Failure(c *gin.Context) {
	txn := strings.TrimSpace(c.Query("txn"))
	if txn == "" {
		txn = strings.TrimSpace(c.Query("transaction_uuid"))
	}

	res, err := h.engine.HandleFailure(c.Request.Context(), txn)
	if err != nil {
		response.Error(c, err)
		return
	}

	msg := "Payment failed. Booking has been cancelled."
	if res.AlreadySettled {
		msg = "Payment failure already processed."
	}
	c.JSON(http.StatusOK, CallbackResponse{
		Status:          "success",
		Message:         msg,
		TransactionUUID: txn,
	})
}
