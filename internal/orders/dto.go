package orders

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/craftkart/storefront-backend/pkg/db/models"
	"github.com/craftkart/storefront-backend/pkg/enums"
	"github.com/craftkart/storefront-backend/pkg/types"
)

// OrderItemInput is one cart line submitted at checkout. Prices arrive from
// the client cart; line totals are recomputed server-side as price×quantity.
type OrderItemInput struct {
	ProductID uuid.UUID
	VariantID *uuid.UUID
	Name      string
	SKU       string
	Price     decimal.Decimal
	Quantity  int
	Size      *string
	Color     *string
}

// CreateOrderInput carries everything checkout submits. UserID is set by the
// authenticated path and nil for guests, whose contact email comes from the
// shipping address.
type CreateOrderInput struct {
	UserID          *uuid.UUID
	Items           []OrderItemInput
	ShippingAddress types.Address
	BillingAddress  *types.Address
	Subtotal        decimal.Decimal
	Discount        decimal.Decimal
	ShippingCost    decimal.Decimal
	Tax             decimal.Decimal
	Total           decimal.Decimal
	CouponCode      *string
}

// CheckoutResult is handed back to the client to open the payment widget.
type CheckoutResult struct {
	OrderID        uuid.UUID       `json:"order_id"`
	OrderNumber    string          `json:"order_number"`
	GatewayOrderID string          `json:"gateway_order_id"`
	GatewayKeyID   string          `json:"gateway_key_id"`
	AmountPaise    int64           `json:"amount"`
	Amount         decimal.Decimal `json:"amount_rupees"`
	Currency       string          `json:"currency"`
}

// VerifyPaymentInput carries the gateway checkout callback fields.
type VerifyPaymentInput struct {
	OrderID        uuid.UUID
	GatewayOrderID string
	PaymentID      string
	Signature      string
}

// UpdateStatusInput is the admin fulfillment mutation.
type UpdateStatusInput struct {
	OrderID        uuid.UUID
	Status         enums.OrderStatus
	TrackingNumber *string
	TrackingURL    *string
	Note           *string
	NotifyCustomer bool
	ActorID        uuid.UUID
}

// OrderView is an order plus its visible timeline.
type OrderView struct {
	Order    *models.Order          `json:"order"`
	Timeline []models.OrderTimeline `json:"timeline"`
}

// OrderList wraps a customer's paginated order history.
type OrderList struct {
	Orders     []models.Order `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
}
