package razorpay

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/craftkart/storefront-backend/pkg/config"
	pkgerrors "github.com/craftkart/storefront-backend/pkg/errors"
	"github.com/craftkart/storefront-backend/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "razorpay-test", Output: io.Discard})
}

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(context.Background(), config.RazorpayConfig{
		KeyID:     "rzp_test_key",
		KeySecret: "secret123",
		BaseURL:   srv.URL,
		Currency:  "INR",
	}, testLogger())
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c, srv
}

func TestNewClientValidatesCredentials(t *testing.T) {
	_, err := NewClient(context.Background(), config.RazorpayConfig{KeySecret: "s"}, testLogger())
	if err == nil {
		t.Fatal("expected error for missing key id")
	}
	_, err = NewClient(context.Background(), config.RazorpayConfig{KeyID: "k"}, testLogger())
	if err == nil {
		t.Fatal("expected error for missing key secret")
	}
}

func TestCreateOrderConvertsRupeesToPaise(t *testing.T) {
	var got map[string]any
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/orders" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "rzp_test_key" || pass != "secret123" {
			t.Error("missing or wrong basic auth")
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(Order{
			ID:       "order_ABC123",
			Amount:   int64(got["amount"].(float64)),
			Currency: "INR",
			Status:   "created",
		})
	}))

	order, err := c.CreateOrder(context.Background(), OrderCreateParams{
		Amount:  decimal.RequireFromString("1499.50"),
		Receipt: "CK-20260901-XYZ",
	})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if order.ID != "order_ABC123" {
		t.Fatalf("unexpected order id %q", order.ID)
	}
	if amt := got["amount"].(float64); amt != 149950 {
		t.Fatalf("expected 149950 paise on the wire, got %v", amt)
	}
	if got["currency"] != "INR" {
		t.Fatalf("expected INR currency, got %v", got["currency"])
	}
}

func TestCreateOrderRejectsNonPositiveAmount(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	}))

	_, err := c.CreateOrder(context.Background(), OrderCreateParams{Amount: decimal.Zero})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreateOrderMapsAPIErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		payload  string
		wantCode pkgerrors.Code
	}{
		{
			name:     "bad request",
			status:   http.StatusBadRequest,
			payload:  `{"error":{"code":"BAD_REQUEST_ERROR","description":"amount too low"}}`,
			wantCode: pkgerrors.CodeValidation,
		},
		{
			name:     "auth failure",
			status:   http.StatusUnauthorized,
			payload:  `{"error":{"code":"BAD_REQUEST_ERROR","description":"invalid key"}}`,
			wantCode: pkgerrors.CodeUnauthorized,
		},
		{
			name:     "server error",
			status:   http.StatusInternalServerError,
			payload:  `{}`,
			wantCode: pkgerrors.CodeDependency,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.payload))
			}))

			_, err := c.CreateOrder(context.Background(), OrderCreateParams{
				Amount: decimal.NewFromInt(100),
			})
			typed := pkgerrors.As(err)
			if typed == nil {
				t.Fatalf("expected typed error, got %v", err)
			}
			if typed.Code() != tt.wantCode {
				t.Fatalf("expected code %s, got %s", tt.wantCode, typed.Code())
			}
		})
	}
}

func TestFetchPayment(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/payments/pay_123" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(Payment{
			ID:       "pay_123",
			OrderID:  "order_ABC",
			Amount:   149950,
			Currency: "INR",
			Status:   "captured",
		})
	}))

	payment, err := c.FetchPayment(context.Background(), "pay_123")
	if err != nil {
		t.Fatalf("FetchPayment: %v", err)
	}
	if payment.Status != "captured" || payment.Amount != 149950 {
		t.Fatalf("unexpected payment %+v", payment)
	}
}

func TestVerifySignature(t *testing.T) {
	c := &Client{keySecret: "secret123"}

	mac := hmac.New(sha256.New, []byte("secret123"))
	mac.Write([]byte("order_ABC|pay_123"))
	valid := hex.EncodeToString(mac.Sum(nil))

	if !c.VerifySignature("order_ABC", "pay_123", valid) {
		t.Fatal("expected valid signature to verify")
	}
	if c.VerifySignature("order_ABC", "pay_123", "deadbeef") {
		t.Fatal("expected forged signature to fail")
	}
	if c.VerifySignature("order_XYZ", "pay_123", valid) {
		t.Fatal("expected signature bound to a different order to fail")
	}
	if c.VerifySignature("order_ABC", "pay_123", "") {
		t.Fatal("expected empty signature to fail")
	}
	if c.VerifySignature("order_ABC", "pay_123", strings.ToUpper(valid)) {
		t.Fatal("expected case-mutated signature to fail")
	}
	if c.VerifySignature("order_ABC", "pay_123", " "+valid) {
		t.Fatal("expected whitespace-padded signature to fail")
	}
	flip := "0"
	if valid[len(valid)-1] == '0' {
		flip = "1"
	}
	if c.VerifySignature("order_ABC", "pay_123", valid[:len(valid)-1]+flip) {
		t.Fatal("expected single-character mutation to fail")
	}
}
