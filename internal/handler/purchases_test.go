package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/djaliloff/Palazzo-D-arte-sub000/internal/apierror"
	"github.com/djaliloff/Palazzo-D-arte-sub000/internal/dto"
	"github.com/djaliloff/Palazzo-D-arte-sub000/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() { gin.SetMode(gin.TestMode) }

type stubPurchaseService struct {
	err       error
	gotStaff  *uuid.UUID
	gotReq    dto.CreatePurchaseRequest
	gotID     uint
	createHit bool
}

func (s *stubPurchaseService) Create(_ context.Context, staffID *uuid.UUID, req dto.CreatePurchaseRequest) (*dto.PurchaseResponse, error) {
	s.createHit = true
	s.gotStaff = staffID
	s.gotReq = req
	if s.err != nil {
		return nil, s.err
	}
	return &dto.PurchaseResponse{ID: 1, Number: "20250101-000001"}, nil
}

func (s *stubPurchaseService) AddPayment(_ context.Context, id uint, _ dto.AddPaymentRequest) (*dto.PurchaseResponse, error) {
	s.gotID = id
	if s.err != nil {
		return nil, s.err
	}
	return &dto.PurchaseResponse{ID: id}, nil
}

func (s *stubPurchaseService) GetByID(_ context.Context, id uint) (*dto.PurchaseResponse, error) {
	s.gotID = id
	if s.err != nil {
		return nil, s.err
	}
	return &dto.PurchaseResponse{ID: id}, nil
}

func (s *stubPurchaseService) List(_ context.Context, f dto.PurchaseFilter) (*dto.PurchaseListResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &dto.PurchaseListResponse{Page: f.Page, Limit: f.Limit}, nil
}

func purchasesRouter(svc *stubPurchaseService, claims *middleware.JWTClaims) *gin.Engine {
	h := NewPurchasesHandler(svc)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if claims != nil {
			c.Set(middleware.ClaimsKey, claims)
		}
		c.Next()
	})
	r.POST("/purchases", h.Create)
	r.GET("/purchases", h.List)
	r.GET("/purchases/:id", h.Get)
	r.PUT("/purchases/:id/payment", h.AddPayment)
	return r
}

func do(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

const validPurchase = `{
	"client_id": "7f1b5c2e-2f5e-4a8b-9a55-2a3b4c5d6e7f",
	"lines": [{"product_id": "0b7e6f0a-1c2d-4e3f-8a9b-0c1d2e3f4a5b", "quantity": "2"}],
	"amount_paid": "100"
}`

func TestCreatePurchase_PassesStaffFromToken(t *testing.T) {
	staff := uuid.New()
	svc := &stubPurchaseService{}
	r := purchasesRouter(svc, &middleware.JWTClaims{UserID: staff.String(), Role: middleware.RoleCashier})

	w := do(r, http.MethodPost, "/purchases", validPurchase)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "20250101-000001")
	require.NotNil(t, svc.gotStaff)
	assert.Equal(t, staff, *svc.gotStaff)
	assert.Equal(t, "100", svc.gotReq.AmountPaid.String())
}

func TestCreatePurchase_RequestErrors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
		want   string
	}{
		{"malformed json", `{"client_id":`, http.StatusBadRequest, "ValidationError"},
		{"no lines", `{"client_id":"7f1b5c2e-2f5e-4a8b-9a55-2a3b4c5d6e7f","lines":[]}`, http.StatusUnprocessableEntity, "CreatePurchaseRequest.Lines"},
		{"bad client id", `{"client_id":"x","lines":[{"product_id":"0b7e6f0a-1c2d-4e3f-8a9b-0c1d2e3f4a5b","quantity":"1"}]}`, http.StatusUnprocessableEntity, "CreatePurchaseRequest.ClientID"},
		{"zero quantity", `{"client_id":"7f1b5c2e-2f5e-4a8b-9a55-2a3b4c5d6e7f","lines":[{"product_id":"0b7e6f0a-1c2d-4e3f-8a9b-0c1d2e3f4a5b","quantity":"0"}]}`, http.StatusUnprocessableEntity, "Quantity"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubPurchaseService{}
			w := do(purchasesRouter(svc, nil), http.MethodPost, "/purchases", tt.body)
			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, w.Body.String(), tt.want)
			assert.False(t, svc.createHit)
		})
	}
}

func TestRespondError_StatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		body   string
	}{
		{"insufficient stock", apierror.E(apierror.KindInsufficientStock, "only 3 left for Sofa"), http.StatusConflict, "only 3 left for Sofa"},
		{"not found", apierror.E(apierror.KindNotFound, "client not found"), http.StatusNotFound, "NotFound"},
		{"payment", apierror.E(apierror.KindPaymentExceeds, "payment exceeds balance"), http.StatusBadRequest, "PaymentExceedsBalance"},
		{"internal hides details", errors.New("pq: connection refused"), http.StatusInternalServerError, "internal server error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubPurchaseService{err: tt.err}
			w := do(purchasesRouter(svc, nil), http.MethodPost, "/purchases", validPurchase)
			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, w.Body.String(), tt.body)
			assert.NotContains(t, w.Body.String(), "pq:")
		})
	}
}

func TestGetPurchase_ParsesID(t *testing.T) {
	svc := &stubPurchaseService{}
	r := purchasesRouter(svc, nil)

	w := do(r, http.MethodGet, "/purchases/42", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, uint(42), svc.gotID)

	for _, bad := range []string{"abc", "0", "-1"} {
		w = do(r, http.MethodGet, "/purchases/"+bad, "")
		assert.Equal(t, http.StatusBadRequest, w.Code, bad)
	}
}

func TestAddPayment_ValidatesAmount(t *testing.T) {
	svc := &stubPurchaseService{}
	r := purchasesRouter(svc, nil)

	w := do(r, http.MethodPut, "/purchases/7/payment", `{"amount":"0"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = do(r, http.MethodPut, "/purchases/7/payment", `{"amount":"250.50"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, uint(7), svc.gotID)
}

func TestListPurchases_QueryDefaultsAndValidation(t *testing.T) {
	svc := &stubPurchaseService{}
	r := purchasesRouter(svc, nil)

	w := do(r, http.MethodGet, "/purchases", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"limit":50`)

	w = do(r, http.MethodGet, "/purchases?status=VOID", "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}
