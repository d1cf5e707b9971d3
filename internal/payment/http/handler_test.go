package http_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/futsal-booking-backend/internal/auth"
	"github.com/nekogravitycat/futsal-booking-backend/internal/booking"
	"github.com/nekogravitycat/futsal-booking-backend/internal/booking/bookingtest"
	"github.com/nekogravitycat/futsal-booking-backend/internal/court"
	"github.com/nekogravitycat/futsal-booking-backend/internal/payment"
	paymentHttp "github.com/nekogravitycat/futsal-booking-backend/internal/payment/http"
	"github.com/nekogravitycat/futsal-booking-backend/internal/pkg/clock"
	"github.com/nekogravitycat/futsal-booking-backend/internal/pkg/daytime"
)

const courtID = "1a2b3c4d-0000-4000-8000-000000000001"

type env struct {
	router *gin.Engine
	repo   *bookingtest.MemoryRepository
	signer *payment.Signer
	svc    booking.Service
}

func setup(t *testing.T) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)

	e := &env{
		repo:   bookingtest.NewMemoryRepository(),
		signer: payment.NewSigner(payment.GatewayConfig{SecretKey: "secret", MerchantCode: "EPAYTEST", RequireSignature: true}),
	}
	courts := bookingtest.Courts{courtID: {ID: courtID, VendorID: "v-1", Name: "Arena", Price: 150000, Status: court.StatusActive}}
	e.svc = booking.NewService(e.repo, courts, nil,
		clock.NewMockClock(time.Date(2026, 3, 13, 9, 0, 0, 0, time.UTC)),
		booking.Policy{Location: time.UTC, Cutoff: time.Hour})

	e.router = gin.New()
	paymentHttp.RegisterRoutes(e.router.Group("/v1"), paymentHttp.NewHandler(payment.NewEngine(e.svc, e.signer)))
	return e
}

// pendingEnvelope creates a gateway booking and returns it with the success envelope for it.
func (e *env) pendingEnvelope(t *testing.T) (*booking.Booking, string) {
	t.Helper()
	date, _ := daytime.ParseDate("2026-03-14")
	b, err := e.svc.Create(context.Background(), auth.Identity{UserID: "u-1", Role: auth.RoleUser}, booking.CreateRequest{
		CourtID: courtID, Date: date,
		StartTime: daytime.MustParse("18:00"), EndTime: daytime.MustParse("19:00"),
		PaymentMethod: booking.PaymentGateway,
	})
	require.NoError(t, err)

	return b, e.envelope(t, b, payment.StatusComplete)
}

// envelope signs a callback for b the way the gateway does.
func (e *env) envelope(t *testing.T, b *booking.Booking, status string) string {
	t.Helper()
	req := e.signer.NewRequest(b)
	names := "transaction_code,status,total_amount,transaction_uuid,product_code,signed_field_names"
	fields := map[string]string{
		"transaction_code":   "000AWEO",
		"status":             status,
		"total_amount":       req.TotalAmount,
		"transaction_uuid":   req.TransactionUUID,
		"product_code":       req.ProductCode,
		"signed_field_names": names,
	}
	sig, err := e.signer.SignFields(names, fields)
	require.NoError(t, err)
	fields["signature"] = sig

	raw, err := json.Marshal(fields)
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(raw)
}

func (e *env) do(req *http.Request) (*httptest.ResponseRecorder, paymentHttp.CallbackResponse) {
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	var body paymentHttp.CallbackResponse
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w, body
}

func TestSuccessViaQuery(t *testing.T) {
	e := setup(t)
	b, data := e.pendingEnvelope(t)

	w, body := e.do(httptest.NewRequest(http.MethodGet, "/v1/payments/gateway/success?data="+url.QueryEscape(data), nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Payment successful and booking confirmed.", body.Message)
	assert.Equal(t, b.TransactionUUID, body.TransactionUUID)
	require.NotNil(t, body.Booking)
	assert.Equal(t, string(booking.StatusConfirmed), body.Booking.Status)

	w, body = e.do(httptest.NewRequest(http.MethodGet, "/v1/payments/gateway/success?data="+url.QueryEscape(data), nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Payment already processed.", body.Message)
}

func TestSuccessViaFormAndRawBody(t *testing.T) {
	e := setup(t)

	_, data := e.pendingEnvelope(t)
	form := url.Values{"data": {data}}
	req := httptest.NewRequest(http.MethodPost, "/v1/payments/gateway/success", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w, _ := e.do(req)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// A second slot so the raw-body callback settles a fresh booking.
	date, _ := daytime.ParseDate("2026-03-15")
	b, err := e.svc.Create(context.Background(), auth.Identity{UserID: "u-2", Role: auth.RoleUser}, booking.CreateRequest{
		CourtID: courtID, Date: date,
		StartTime: daytime.MustParse("18:00"), EndTime: daytime.MustParse("19:00"),
		PaymentMethod: booking.PaymentGateway,
	})
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodPost, "/v1/payments/gateway/success",
		strings.NewReader(`"`+e.envelope(t, b, payment.StatusComplete)+`"`))
	req.Header.Set("Content-Type", "text/plain")
	w, body := e.do(req)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, b.TransactionUUID, body.TransactionUUID)
}

func TestSuccessErrors(t *testing.T) {
	e := setup(t)
	b, data := e.pendingEnvelope(t)

	w, _ := e.do(httptest.NewRequest(http.MethodGet, "/v1/payments/gateway/success", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = e.do(httptest.NewRequest(http.MethodGet, "/v1/payments/gateway/success?data=%25%25%25", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	decoded, _ := base64.StdEncoding.DecodeString(data)
	var fields map[string]string
	require.NoError(t, json.Unmarshal(decoded, &fields))
	fields["total_amount"] = "1.00"
	tampered, _ := json.Marshal(fields)
	w, _ = e.do(httptest.NewRequest(http.MethodGet,
		"/v1/payments/gateway/success?data="+url.QueryEscape(base64.StdEncoding.EncodeToString(tampered)), nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	got, err := e.repo.GetByID(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusPendingPayment, got.Status)

	_, err = e.svc.Cancel(context.Background(), auth.Identity{UserID: "u-1", Role: auth.RoleUser}, b.ID)
	require.NoError(t, err)
	w, _ = e.do(httptest.NewRequest(http.MethodGet, "/v1/payments/gateway/success?data="+url.QueryEscape(data), nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSuccessCallbackReportingCancellation(t *testing.T) {
	e := setup(t)
	b, _ := e.pendingEnvelope(t)
	data := url.QueryEscape(e.envelope(t, b, payment.StatusCanceled))

	w, body := e.do(httptest.NewRequest(http.MethodGet, "/v1/payments/gateway/success?data="+data, nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "failed", body.Status)
	assert.Equal(t, "Payment failed. Booking has been cancelled.", body.Message)

	w, body = e.do(httptest.NewRequest(http.MethodGet, "/v1/payments/gateway/success?data="+data, nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Payment failure already processed.", body.Message)

	got, err := e.repo.GetByID(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusCancelled, got.Status)
	assert.Equal(t, booking.PaymentFailed, got.PaymentStatus)
}

func TestFailure(t *testing.T) {
	e := setup(t)
	b, _ := e.pendingEnvelope(t)

	w, _ := e.do(httptest.NewRequest(http.MethodGet, "/v1/payments/gateway/failure", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = e.do(httptest.NewRequest(http.MethodGet, "/v1/payments/gateway/failure?txn=missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, body := e.do(httptest.NewRequest(http.MethodGet, "/v1/payments/gateway/failure?transaction_uuid="+b.TransactionUUID, nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Payment failed. Booking has been cancelled.", body.Message)

	w, body = e.do(httptest.NewRequest(http.MethodGet, "/v1/payments/gateway/failure?txn="+b.TransactionUUID, nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Payment failure already processed.", body.Message)

	got, err := e.repo.GetByID(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusCancelled, got.Status)
	assert.Equal(t, booking.PaymentFailed, got.PaymentStatus)
}
