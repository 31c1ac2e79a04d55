package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apppayment "github.com/mnpay/backend/internal/application/payment"
	"github.com/mnpay/backend/internal/domain/payment"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeInvoiceRepo is an in-memory InvoiceRepository for handler tests
type fakeInvoiceRepo struct {
	mu       sync.Mutex
	invoices map[string]*payment.Invoice // keyed by payment ref
}

func newFakeInvoiceRepo() *fakeInvoiceRepo {
	return &fakeInvoiceRepo{invoices: make(map[string]*payment.Invoice)}
}

func (r *fakeInvoiceRepo) Upsert(_ context.Context, inv *payment.Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invoices[inv.PaymentRef] = inv
	return nil
}

func (r *fakeInvoiceRepo) GetByID(_ context.Context, id uuid.UUID) (*payment.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, inv := range r.invoices {
		if inv.ID == id {
			return inv, nil
		}
	}
	return nil, payment.ErrInvoiceNotFound
}

func (r *fakeInvoiceRepo) GetByPaymentRef(_ context.Context, ref string) (*payment.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if inv, ok := r.invoices[ref]; ok {
		return inv, nil
	}
	return nil, payment.ErrInvoiceNotFound
}

func (r *fakeInvoiceRepo) GetByGatewayInvoice(_ context.Context, gatewayInvoice string) (*payment.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, inv := range r.invoices {
		if inv.GatewayInvoice == gatewayInvoice {
			return inv, nil
		}
	}
	return nil, payment.ErrInvoiceNotFound
}

func (r *fakeInvoiceRepo) ListPending(_ context.Context, limit int) ([]*payment.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*payment.Invoice
	for _, inv := range r.invoices {
		if inv.Status == payment.InvoiceStatusPending && len(out) < limit {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (r *fakeInvoiceRepo) ListScrubCandidates(context.Context, time.Time, int) ([]*payment.Invoice, error) {
	return nil, nil
}

func (r *fakeInvoiceRepo) Update(_ context.Context, inv *payment.Invoice) error {
	return r.Upsert(context.Background(), inv)
}

func (r *fakeInvoiceRepo) UpdateStatusFromPending(_ context.Context, id uuid.UUID, to payment.InvoiceStatus, _ string, paidAt *time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, inv := range r.invoices {
		if inv.ID == id && inv.Status == payment.InvoiceStatusPending {
			inv.Status = to
			inv.PaidAt = paidAt
			return true, nil
		}
	}
	return false, nil
}

// fakeGateway answers a fixed status for every invoice
type fakeGateway struct {
	status payment.GatewayStatus
}

func (g *fakeGateway) CreateInvoice(_ context.Context, req *payment.CreateInvoiceRequest) (*payment.CreateInvoiceResponse, error) {
	return &payment.CreateInvoiceResponse{
		InvoiceID: "gw-" + req.SenderInvoiceNo,
		QRText:    "qr-payload",
	}, nil
}

func (g *fakeGateway) GetInvoice(_ context.Context, invoiceID string) (*payment.InvoiceDetails, error) {
	return &payment.InvoiceDetails{InvoiceID: invoiceID, Status: g.status}, nil
}

func (g *fakeGateway) CancelInvoice(context.Context, string) error { return nil }

func (g *fakeGateway) CheckPayment(_ context.Context, _ string, _, _ int) (*payment.CheckResult, error) {
	if g.status == payment.GatewayStatusNew {
		return &payment.CheckResult{}, nil
	}
	return &payment.CheckResult{
		Count: 1,
		Rows:  []payment.PaymentRecord{{Status: g.status, Amount: decimal.NewFromInt(15000)}},
	}, nil
}

func (g *fakeGateway) GetPayment(context.Context, string) (*payment.PaymentRecord, error) {
	return nil, payment.ErrInvoiceNotFound
}

func (g *fakeGateway) CancelPayment(context.Context, string) error { return nil }

func (g *fakeGateway) RefundPayment(context.Context, string) error { return nil }

func callbackRouter(repo *fakeInvoiceRepo, gw payment.InvoiceGateway) *gin.Engine {
	reconcile := apppayment.NewReconcileService(apppayment.ReconcileServiceConfig{
		Invoices: repo,
		Gateway:  gw,
	})
	h := NewCallbackHandler(reconcile)

	engine := gin.New()
	engine.GET("/api/v1/qpay/callback", h.Handle)
	engine.POST("/api/v1/qpay/callback", h.Handle)
	return engine
}

func TestCallbackMissingInvoiceID(t *testing.T) {
	engine := callbackRouter(newFakeInvoiceRepo(), &fakeGateway{status: payment.GatewayStatusPaid})

	req := httptest.NewRequest("GET", "/api/v1/qpay/callback", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ignored","reason":"missing-invoice"}`, w.Body.String())
}

func TestCallbackUnknownInvoice(t *testing.T) {
	engine := callbackRouter(newFakeInvoiceRepo(), &fakeGateway{status: payment.GatewayStatusPaid})

	req := httptest.NewRequest("GET", "/api/v1/qpay/callback?invoice_id=missing", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ignored","reason":"unknown-invoice"}`, w.Body.String())
}

func TestCallbackMarksInvoicePaid(t *testing.T) {
	repo := newFakeInvoiceRepo()
	inv, err := payment.NewInvoice("ACC-PAY-2025-00042", decimal.NewFromInt(15000))
	require.NoError(t, err)
	inv.GatewayInvoice = "e7af92c5"
	require.NoError(t, repo.Upsert(context.Background(), inv))

	engine := callbackRouter(repo, &fakeGateway{status: payment.GatewayStatusPaid})

	req := httptest.NewRequest("GET", "/api/v1/qpay/callback?invoice_id=e7af92c5", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"success"`)

	stored, err := repo.GetByPaymentRef(context.Background(), "ACC-PAY-2025-00042")
	require.NoError(t, err)
	assert.Equal(t, payment.InvoiceStatusPaid, stored.Status)
}

func TestCallbackAcceptsObjectIDInBody(t *testing.T) {
	repo := newFakeInvoiceRepo()
	inv, err := payment.NewInvoice("ACC-PAY-2025-00042", decimal.NewFromInt(15000))
	require.NoError(t, err)
	inv.GatewayInvoice = "e7af92c5"
	require.NoError(t, repo.Upsert(context.Background(), inv))

	engine := callbackRouter(repo, &fakeGateway{status: payment.GatewayStatusPaid})

	req := httptest.NewRequest("POST", "/api/v1/qpay/callback",
		strings.NewReader(`{"object_id":"e7af92c5"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"success"`)
}

func TestCallbackRetryAfterPaidIsStillOK(t *testing.T) {
	repo := newFakeInvoiceRepo()
	inv, err := payment.NewInvoice("ACC-PAY-2025-00042", decimal.NewFromInt(15000))
	require.NoError(t, err)
	inv.GatewayInvoice = "e7af92c5"
	require.NoError(t, repo.Upsert(context.Background(), inv))

	engine := callbackRouter(repo, &fakeGateway{status: payment.GatewayStatusPaid})

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest("GET", "/api/v1/qpay/callback?invoice_id=e7af92c5", nil)
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"status":"success"`)
	}
}
