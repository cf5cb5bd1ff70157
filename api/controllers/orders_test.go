package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/craftkart/storefront-backend/api/middleware"
	"github.com/craftkart/storefront-backend/internal/orders"
	"github.com/craftkart/storefront-backend/pkg/db/models"
	"github.com/craftkart/storefront-backend/pkg/enums"
	"github.com/craftkart/storefront-backend/pkg/pagination"
)

type stubOrderSvc struct {
	result     *orders.CheckoutResult
	order      *models.Order
	view       *orders.OrderView
	err        error
	lastCreate orders.CreateOrderInput
	lastVerify orders.VerifyPaymentInput
	lastUpdate orders.UpdateStatusInput
	lastScope  *uuid.UUID
}

func (s *stubOrderSvc) Create(_ context.Context, input orders.CreateOrderInput) (*orders.CheckoutResult, error) {
	s.lastCreate = input
	return s.result, s.err
}

func (s *stubOrderSvc) CreateGuest(_ context.Context, input orders.CreateOrderInput) (*orders.CheckoutResult, error) {
	s.lastCreate = input
	return s.result, s.err
}

func (s *stubOrderSvc) VerifyPayment(_ context.Context, input orders.VerifyPaymentInput) (*models.Order, error) {
	s.lastVerify = input
	return s.order, s.err
}

func (s *stubOrderSvc) UpdateStatus(_ context.Context, input orders.UpdateStatusInput) (*models.Order, error) {
	s.lastUpdate = input
	return s.order, s.err
}

func (s *stubOrderSvc) LookupGuestOrder(context.Context, string, string) (*orders.OrderView, error) {
	return s.view, s.err
}

func (s *stubOrderSvc) Get(_ context.Context, _ uuid.UUID, scope *uuid.UUID) (*orders.OrderView, error) {
	s.lastScope = scope
	return s.view, s.err
}

func (s *stubOrderSvc) ListForUser(context.Context, uuid.UUID, pagination.Params) (*orders.OrderList, error) {
	return &orders.OrderList{}, s.err
}

func orderBody() string {
	return `{"items":[{"product_id":"` + uuid.NewString() + `","name":"Brass Diya","sku":"BD-1","price":"349.00","quantity":2}],` +
		`"shipping_address":{"full_name":"Priya Sharma","email":"priya@example.in","line1":"14 MG Road","city":"Bengaluru","state":"Karnataka","postal_code":"560001","country":"IN","phone":"+919800000000"},` +
		`"subtotal":"698.00","total":"698.00"}`
}

func TestCreateOrderRequiresAuth(t *testing.T) {
	handler := CreateOrder(&stubOrderSvc{}, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(orderBody()))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without identity got %d", resp.Code)
	}
}

func TestCreateOrderForwardsIdentity(t *testing.T) {
	svc := &stubOrderSvc{result: &orders.CheckoutResult{}}
	handler := CreateOrder(svc, nil)
	userID := uuid.New()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(orderBody()))
	req = req.WithContext(middleware.WithIdentity(req.Context(), userID, enums.UserRoleCustomer))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.lastCreate.UserID == nil || *svc.lastCreate.UserID != userID {
		t.Fatalf("expected order scoped to caller")
	}
	if len(svc.lastCreate.Items) != 1 || svc.lastCreate.Items[0].Quantity != 2 {
		t.Fatalf("expected item mapping, got %+v", svc.lastCreate.Items)
	}
}

func TestCreateGuestOrderAllowsAnonymous(t *testing.T) {
	svc := &stubOrderSvc{result: &orders.CheckoutResult{}}
	handler := CreateGuestOrder(svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/guest", strings.NewReader(orderBody()))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.lastCreate.UserID != nil {
		t.Fatalf("guest order should carry no user id")
	}
}

func TestVerifyPaymentValidation(t *testing.T) {
	handler := VerifyPayment(&stubOrderSvc{}, nil)

	tests := []struct {
		name string
		body string
	}{
		{"missing signature", `{"order_id":"` + uuid.NewString() + `","razorpay_order_id":"order_x","razorpay_payment_id":"pay_x"}`},
		{"bad order id", `{"order_id":"nope","razorpay_order_id":"order_x","razorpay_payment_id":"pay_x","razorpay_signature":"sig"}`},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/verify", strings.NewReader(tt.body))
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		if resp.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400 got %d", tt.name, resp.Code)
		}
	}
}

func TestVerifyPaymentForwardsGatewayFields(t *testing.T) {
	svc := &stubOrderSvc{order: &models.Order{}}
	handler := VerifyPayment(svc, nil)
	orderID := uuid.New()

	body := `{"order_id":"` + orderID.String() + `","razorpay_order_id":"order_x","razorpay_payment_id":"pay_x","razorpay_signature":"sig"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/verify", strings.NewReader(body))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.lastVerify.OrderID != orderID || svc.lastVerify.PaymentID != "pay_x" || svc.lastVerify.Signature != "sig" {
		t.Fatalf("expected gateway fields forwarded, got %+v", svc.lastVerify)
	}
}

func TestGuestOrderLookupRequiresParams(t *testing.T) {
	handler := GuestOrderLookup(&stubOrderSvc{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/lookup?order_number=CK-1001", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without email got %d", resp.Code)
	}
}

func TestAdminUpdateOrderStatus(t *testing.T) {
	svc := &stubOrderSvc{order: &models.Order{}}
	handler := AdminUpdateOrderStatus(svc, nil)
	orderID := uuid.New()
	actorID := uuid.New()

	req := pathRequest(http.MethodPatch, "/api/admin/v1/orders/"+orderID.String()+"/status", "orderId", orderID.String(),
		`{"status":"shipped","tracking_number":"AWB123","notify_customer":true}`)
	req = req.WithContext(middleware.WithIdentity(req.Context(), actorID, enums.UserRoleAdmin))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.lastUpdate.Status != enums.OrderStatusShipped {
		t.Fatalf("expected shipped status got %s", svc.lastUpdate.Status)
	}
	if svc.lastUpdate.ActorID != actorID || !svc.lastUpdate.NotifyCustomer {
		t.Fatalf("expected actor and notify flag forwarded, got %+v", svc.lastUpdate)
	}
}

func TestAdminUpdateOrderStatusRejectsUnknownStatus(t *testing.T) {
	handler := AdminUpdateOrderStatus(&stubOrderSvc{}, nil)
	orderID := uuid.New()

	req := pathRequest(http.MethodPatch, "/api/admin/v1/orders/"+orderID.String()+"/status", "orderId", orderID.String(),
		`{"status":"teleported"}`)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status got %d", resp.Code)
	}
}

func TestGetOrderScopesNonAdmins(t *testing.T) {
	svc := &stubOrderSvc{view: &orders.OrderView{}}
	handler := GetOrder(svc, nil)
	orderID := uuid.New()
	userID := uuid.New()

	req := pathRequest(http.MethodGet, "/api/v1/orders/"+orderID.String(), "orderId", orderID.String(), "")
	req = req.WithContext(middleware.WithIdentity(req.Context(), userID, enums.UserRoleCustomer))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.lastScope == nil || *svc.lastScope != userID {
		t.Fatalf("expected customer lookup scoped to owner")
	}

	admin := pathRequest(http.MethodGet, "/api/v1/orders/"+orderID.String(), "orderId", orderID.String(), "")
	admin = admin.WithContext(middleware.WithIdentity(admin.Context(), uuid.New(), enums.UserRoleAdmin))
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, admin)

	if svc.lastScope != nil {
		t.Fatalf("expected admin lookup unscoped")
	}
}

func pathRequest(method, target, param, value, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rc := chi.NewRouteContext()
	rc.URLParams.Add(param, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
}
