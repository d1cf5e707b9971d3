// Package payment reconciles signed gateway callbacks against bookings.
package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/nekogravitycat/futsal-booking-backend/internal/booking"
	"github.com/nekogravitycat/futsal-booking-backend/internal/pkg/money"
)

// DefaultSignedFields are the fields signed in outbound payment requests.
const DefaultSignedFields = "total_amount,transaction_uuid,product_code"

// GatewayConfig is the merchant setup for the redirect gateway.
type GatewayConfig struct {
	SecretKey    string
	MerchantCode string
	FormURL      string
	SuccessURL   string
	FailureURL   string
	// RequireSignature rejects callbacks that carry no signature at all.
	RequireSignature bool
}

// Request is the form the client posts to the gateway.
type Request struct {
	Amount                string `json:"amount"`
	TaxAmount             string `json:"tax_amount"`
	TotalAmount           string `json:"total_amount"`
	TransactionUUID       string `json:"transaction_uuid"`
	ProductCode           string `json:"product_code"`
	MerchantCode          string `json:"merchant_code"`
	ProductServiceCharge  string `json:"product_service_charge"`
	ProductDeliveryCharge string `json:"product_delivery_charge"`
	SuccessURL            string `json:"success_url"`
	FailureURL            string `json:"failure_url"`
	FormURL               string `json:"form_url"`
	SignedFieldNames      string `json:"signed_field_names"`
	Signature             string `json:"signature"`
}

type Signer struct {
	cfg GatewayConfig
}

func NewSigner(cfg GatewayConfig) *Signer {
	return &Signer{cfg: cfg}
}

// Sign returns base64(HMAC-SHA256(secret, message)).
func (s *Signer) Sign(message string) string {
	mac := hmac.New(sha256.New, []byte(s.cfg.SecretKey))
	mac.Write([]byte(message))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Message joins the named fields as "name=value" pairs in the given order.
func Message(signedFieldNames string, fields map[string]string) (string, error) {
	names := strings.Split(signedFieldNames, ",")
	parts := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		value, ok := fields[name]
		if name == "" || !ok {
			return "", fmt.Errorf("signed field %q missing from payload", name)
		}
		parts = append(parts, name+"="+value)
	}
	return strings.Join(parts, ","), nil
}

// TotalOf is the amount charged for b. Tax and charges are zero.
func TotalOf(b *booking.Booking) money.Amount {
	return b.Price
}

// NewRequest builds the signed gateway form for a PendingPayment booking.
func (s *Signer) NewRequest(b *booking.Booking) Request {
	zero := money.Amount(0).String()
	req := Request{
		Amount:                b.Price.String(),
		TaxAmount:             zero,
		TotalAmount:           TotalOf(b).String(),
		TransactionUUID:       b.TransactionUUID,
		ProductCode:           s.cfg.MerchantCode,
		MerchantCode:          s.cfg.MerchantCode,
		ProductServiceCharge:  zero,
		ProductDeliveryCharge: zero,
		SuccessURL:            s.cfg.SuccessURL,
		FailureURL:            s.cfg.FailureURL,
		FormURL:               s.cfg.FormURL,
		SignedFieldNames:      DefaultSignedFields,
	}

	// The three default fields are always present.
	req.Signature, _ = s.SignFields(DefaultSignedFields, map[string]string{
		"total_amount":     req.TotalAmount,
		"transaction_uuid": req.TransactionUUID,
		"product_code":     req.ProductCode,
	})
	return req
}

// SignFields signs the named fields of fields in the listed order.
func (s *Signer) SignFields(signedFieldNames string, fields map[string]string) (string, error) {
	msg, err := Message(signedFieldNames, fields)
	if err != nil {
		return "", err
	}
	return s.Sign(msg), nil
}

// callbackFields must all be covered by a callback signature.
var callbackFields = []string{"status", "transaction_uuid", "total_amount"}

func coversCallbackFields(signedFieldNames string) bool {
	signed := make(map[string]bool)
	for _, name := range strings.Split(signedFieldNames, ",") {
		signed[strings.TrimSpace(name)] = true
	}
	for _, name := range callbackFields {
		if !signed[name] {
			return false
		}
	}
	return true
}

// Verify checks a callback signature in constant time. The signed list must
// cover status, transaction_uuid and total_amount.
// Unsigned payloads pass only when RequireSignature is off.
func (s *Signer) Verify(p Payload) error {
	names, hasNames := p["signed_field_names"]
	sig, hasSig := p["signature"]
	if !hasNames || !hasSig || names == "" || sig == "" {
		if s.cfg.RequireSignature {
			return ErrSignatureRequired
		}
		return nil
	}
	if names == DefaultSignedFields || !coversCallbackFields(names) {
		return ErrInvalidSignature
	}

	msg, err := Message(names, p)
	if err != nil {
		return ErrInvalidSignature
	}

	got, err := base64.StdEncoding.DecodeString(sig)
	if err != nil {
		return ErrInvalidSignature
	}
	want, _ := base64.StdEncoding.DecodeString(s.Sign(msg))
	if !hmac.Equal(got, want) {
		return ErrInvalidSignature
	}
	return nil
}
