package payment

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/nekogravitycat/futsal-booking-backend/internal/pkg/apperror"
	"github.com/nekogravitycat/futsal-booking-backend/internal/pkg/money"
)

var (
	ErrMissingData        = apperror.Validation("no payment data received")
	ErrMalformedPayload   = apperror.Validation("invalid payment data format")
	ErrMissingTransaction = apperror.Validation("transaction_uuid is required")
	ErrPaymentIncomplete  = apperror.Validation("payment status is not complete")
	ErrAmountMismatch     = apperror.Validation("paid amount does not match the booking total")
	ErrInvalidSignature   = apperror.Signature("invalid payment signature")
	ErrSignatureRequired  = apperror.Signature("payment signature is required")
)

// Gateway payment statuses.
const (
	StatusComplete = "COMPLETE"
	StatusPending  = "PENDING"
	StatusCanceled = "CANCELED"
	StatusNotFound = "NOT_FOUND"
	StatusFailed   = "FAILED"
)

// failedStatuses end a payment attempt without capturing money.
var failedStatuses = map[string]bool{
	StatusCanceled: true,
	StatusNotFound: true,
	StatusFailed:   true,
}

// Payload is a decoded callback with every scalar kept as its literal text.
type Payload map[string]string

func (p Payload) Status() string          { return strings.ToUpper(strings.TrimSpace(p["status"])) }
func (p Payload) TransactionUUID() string { return strings.TrimSpace(p["transaction_uuid"]) }

// TotalAmount parses total_amount if present. Thousands separators are ignored.
func (p Payload) TotalAmount() (money.Amount, bool, error) {
	raw, ok := p["total_amount"]
	if !ok || strings.TrimSpace(raw) == "" {
		return 0, false, nil
	}
	amt, err := money.Parse(strings.ReplaceAll(raw, ",", ""))
	return amt, true, err
}

var encodings = []*base64.Encoding{
	base64.StdEncoding,
	base64.URLEncoding,
	base64.RawStdEncoding,
	base64.RawURLEncoding,
}

// DecodeEnvelope decodes a base64 JSON object into a Payload.
func DecodeEnvelope(raw string) (Payload, error) {
	// An unescaped '+' in a query string arrives as a space.
	raw = strings.ReplaceAll(strings.TrimSpace(raw), " ", "+")
	if raw == "" {
		return nil, ErrMissingData
	}

	var decoded []byte
	for _, enc := range encodings {
		if b, err := enc.DecodeString(raw); err == nil {
			decoded = b
			break
		}
	}
	if decoded == nil {
		return nil, ErrMalformedPayload
	}

	dec := json.NewDecoder(bytes.NewReader(decoded))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil || obj == nil {
		return nil, ErrMalformedPayload
	}

	p := make(Payload, len(obj))
	for k, v := range obj {
		switch val := v.(type) {
		case string:
			p[k] = val
		case json.Number:
			p[k] = val.String()
		case bool:
			p[k] = strconv.FormatBool(val)
		case nil:
			p[k] = ""
		default:
			// Nested values are never signed.
		}
	}
	return p, nil
}
