package payment

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/futsal-booking-backend/internal/booking"
)

// Reference vector for the sandbox merchant key.
const (
	sandboxSecret    = "8gBm/:&EnhH.1/q"
	sandboxMessage   = "total_amount=100,transaction_uuid=11-201-13,product_code=EPAYTEST"
	sandboxSignature = "5DZywcrTKD0gia/rsSMcrRHmJl+4Tbol6S+lWgdJ94E="
)

func testConfig() GatewayConfig {
	return GatewayConfig{
		SecretKey:        sandboxSecret,
		MerchantCode:     "EPAYTEST",
		FormURL:          "https://rc-epay.esewa.com.np/api/epay/main/v2/form",
		SuccessURL:       "http://localhost:8080/v1/payments/gateway/success",
		FailureURL:       "http://localhost:8080/v1/payments/gateway/failure",
		RequireSignature: true,
	}
}

func TestSignReferenceVector(t *testing.T) {
	assert.Equal(t, sandboxSignature, NewSigner(testConfig()).Sign(sandboxMessage))
}

func TestMessage(t *testing.T) {
	msg, err := Message("total_amount,transaction_uuid,product_code", map[string]string{
		"product_code": "EPAYTEST", "total_amount": "100", "transaction_uuid": "11-201-13", "extra": "x",
	})
	require.NoError(t, err)
	assert.Equal(t, sandboxMessage, msg)

	_, err = Message("total_amount,missing", map[string]string{"total_amount": "1"})
	assert.Error(t, err)
}

func TestNewRequest(t *testing.T) {
	s := NewSigner(testConfig())
	b := &booking.Booking{TransactionUUID: "6f1e3c8a-2b1d-4e55-9b0c-5d7f9e2a1c33", Price: 100000}

	req := s.NewRequest(b)
	assert.Equal(t, "1000.00", req.Amount)
	assert.Equal(t, "0.00", req.TaxAmount)
	assert.Equal(t, "1000.00", req.TotalAmount)
	assert.Equal(t, "EPAYTEST", req.ProductCode)
	assert.Equal(t, req.ProductCode, req.MerchantCode)
	assert.Equal(t, DefaultSignedFields, req.SignedFieldNames)

	want := s.Sign("total_amount=1000.00,transaction_uuid=6f1e3c8a-2b1d-4e55-9b0c-5d7f9e2a1c33,product_code=EPAYTEST")
	assert.Equal(t, want, req.Signature)

	// The form signature does not cover status and cannot settle a callback.
	assert.ErrorIs(t, s.Verify(Payload{
		"status":             StatusComplete,
		"total_amount":       req.TotalAmount,
		"transaction_uuid":   req.TransactionUUID,
		"product_code":       req.ProductCode,
		"signed_field_names": req.SignedFieldNames,
		"signature":          req.Signature,
	}), ErrInvalidSignature)
}

const callbackNames = "transaction_code,status,total_amount,transaction_uuid,product_code,signed_field_names"

func TestVerify(t *testing.T) {
	s := NewSigner(testConfig())
	signed := func() Payload {
		p := Payload{
			"transaction_code":   "000AWEO",
			"status":             StatusComplete,
			"total_amount":       "100",
			"transaction_uuid":   "11-201-13",
			"product_code":       "EPAYTEST",
			"signed_field_names": callbackNames,
		}
		sig, err := s.SignFields(callbackNames, p)
		require.NoError(t, err)
		p["signature"] = sig
		return p
	}

	require.NoError(t, s.Verify(signed()))

	for _, field := range []string{"status", "total_amount", "transaction_uuid", "product_code", "transaction_code"} {
		p := signed()
		p[field] += "0"
		assert.ErrorIs(t, s.Verify(p), ErrInvalidSignature, "tampered %s", field)
	}

	p := signed()
	p["signature"] = base64.StdEncoding.EncodeToString([]byte("not the mac"))
	assert.ErrorIs(t, s.Verify(p), ErrInvalidSignature)

	p = signed()
	p["signature"] = "%%%"
	assert.ErrorIs(t, s.Verify(p), ErrInvalidSignature)

	p = signed()
	delete(p, "product_code")
	assert.ErrorIs(t, s.Verify(p), ErrInvalidSignature)

	p = signed()
	delete(p, "signature")
	assert.ErrorIs(t, s.Verify(p), ErrSignatureRequired)

	lenient := testConfig()
	lenient.RequireSignature = false
	assert.NoError(t, NewSigner(lenient).Verify(p))
}

func TestVerifyRequiresCallbackFieldsSigned(t *testing.T) {
	s := NewSigner(testConfig())

	// A valid MAC over the request fields, with status left unsigned.
	p := Payload{
		"status":             StatusComplete,
		"total_amount":       "100",
		"transaction_uuid":   "11-201-13",
		"product_code":       "EPAYTEST",
		"signed_field_names": DefaultSignedFields,
		"signature":          sandboxSignature,
	}
	assert.ErrorIs(t, s.Verify(p), ErrInvalidSignature)

	for _, names := range []string{
		"status,transaction_uuid,product_code",
		"status,total_amount,product_code",
		"total_amount,transaction_uuid,product_code,transaction_code",
	} {
		sig, err := s.SignFields(names, map[string]string{
			"status": "COMPLETE", "total_amount": "100", "transaction_uuid": "11-201-13",
			"product_code": "EPAYTEST", "transaction_code": "000AWEO",
		})
		require.NoError(t, err)
		p := Payload{
			"status": "COMPLETE", "total_amount": "100", "transaction_uuid": "11-201-13",
			"product_code": "EPAYTEST", "transaction_code": "000AWEO",
			"signed_field_names": names, "signature": sig,
		}
		assert.ErrorIs(t, s.Verify(p), ErrInvalidSignature, names)
	}
}
