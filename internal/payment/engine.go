package payment

import (
	"context"
	"errors"
	"log/slog"

	"github.com/nekogravitycat/futsal-booking-backend/internal/booking"
)

// Bookings is the slice of the booking service the engine drives.
type Bookings interface {
	GetByTransactionUUID(ctx context.Context, txn string) (*booking.Booking, error)
	SettlePayment(ctx context.Context, txn string) (*booking.Booking, bool, error)
	FailPayment(ctx context.Context, txn string) (*booking.Booking, bool, error)
}

// Result is the outcome of a callback that did not fail.
type Result struct {
	Booking *booking.Booking
	// AlreadySettled marks a replay that changed nothing.
	AlreadySettled bool
	// Cancelled is set when the gateway reported a failed payment.
	Cancelled bool
	Payload        Payload
}

type Engine struct {
	bookings Bookings
	signer   *Signer
}

func NewEngine(bookings Bookings, signer *Signer) *Engine {
	return &Engine{bookings: bookings, signer: signer}
}

// HandleCallback applies a gateway success callback carried as a base64 envelope.
func (e *Engine) HandleCallback(ctx context.Context, raw string) (Result, error) {
	payload, err := DecodeEnvelope(raw)
	if err != nil {
		return Result{}, err
	}
	res := Result{Payload: payload}

	txn := payload.TransactionUUID()
	if err := e.signer.Verify(payload); err != nil {
		if errors.Is(err, ErrInvalidSignature) {
			slog.WarnContext(ctx, "payment callback signature mismatch",
				"event", "payment.signature_mismatch",
				"transaction_uuid", txn,
				"signed_field_names", payload["signed_field_names"])
		}
		return res, err
	}
	if txn == "" {
		return res, ErrMissingTransaction
	}

	b, err := e.bookings.GetByTransactionUUID(ctx, txn)
	if err != nil {
		return res, err
	}
	res.Booking = b

	status := payload.Status()
	if failedStatuses[status] {
		return e.cancel(ctx, res, txn, status)
	}
	if status != StatusComplete {
		return res, ErrPaymentIncomplete.With("gateway_status", status)
	}

	amount, present, err := payload.TotalAmount()
	if err != nil {
		return res, ErrMalformedPayload
	}
	if present && amount != TotalOf(b) {
		slog.WarnContext(ctx, "payment callback amount mismatch",
			"event", "payment.amount_mismatch",
			"transaction_uuid", txn,
			"expected", TotalOf(b).String(),
			"received", amount.String())
		return res, ErrAmountMismatch
	}

	updated, applied, err := e.bookings.SettlePayment(ctx, txn)
	if err != nil {
		return res, err
	}
	res.Booking = updated
	res.AlreadySettled = !applied

	slog.InfoContext(ctx, "payment callback processed",
		"transaction_uuid", txn,
		"booking_id", updated.ID,
		"replay", res.AlreadySettled)
	return res, nil
}

// cancel applies a failure reported through the success callback.
func (e *Engine) cancel(ctx context.Context, res Result, txn, status string) (Result, error) {
	updated, applied, err := e.bookings.FailPayment(ctx, txn)
	if err != nil {
		return res, err
	}
	res.Booking = updated
	res.Cancelled = true
	res.AlreadySettled = !applied

	slog.InfoContext(ctx, "payment callback reported failure",
		"transaction_uuid", txn,
		"booking_id", updated.ID,
		"gateway_status", status,
		"replay", res.AlreadySettled)
	return res, nil
}

// HandleFailure cancels the booking behind a failed or abandoned payment.
func (e *Engine) HandleFailure(ctx context.Context, txn string) (Result, error) {
	if txn == "" {
		return Result{}, ErrMissingTransaction
	}

	updated, applied, err := e.bookings.FailPayment(ctx, txn)
	if err != nil {
		return Result{}, err
	}

	slog.InfoContext(ctx, "payment failure processed",
		"transaction_uuid", txn,
		"booking_id", updated.ID,
		"replay", !applied)
	return Result{Booking: updated, AlreadySettled: !applied, Cancelled: true}, nil
}
