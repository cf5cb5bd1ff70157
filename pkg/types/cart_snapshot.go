package types

import "github.com/shopspring/decimal"

// CartItemSnapshot is a point-in-time copy of one cart line, stored as jsonb
// on the abandoned cart row.
type CartItemSnapshot struct {
	ProductID string          `json:"product_id"`
	VariantID *string         `json:"variant_id,omitempty"`
	Name      string          `json:"name"`
	SKU       string          `json:"sku"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	ImageURL  string          `json:"image_url,omitempty"`
}

// CartItemSnapshots is the jsonb array stored on abandoned_carts.items.
type CartItemSnapshots []CartItemSnapshot

// Subtotal sums price*quantity over every line.
func (s CartItemSnapshots) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range s {
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

// ReturnItemClaim records one order item and quantity included in a return
// request. Stored as jsonb on the return row.
type ReturnItemClaim struct {
	OrderItemID string `json:"order_item_id"`
	Quantity    int    `json:"quantity"`
	Reason      string `json:"reason,omitempty"`
}

// ReturnItemClaims is the jsonb array stored on order_returns.items.
type ReturnItemClaims []ReturnItemClaim
