package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/craftkart/storefront-backend/pkg/enums"
	"github.com/craftkart/storefront-backend/pkg/types"
)

// Order represents a purchase transaction. UserID is nil for guest orders,
// which are identified by GuestEmail instead. Monetary fields are numeric
// columns backed by decimal.Decimal so totals never touch binary floats.
type Order struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber   string              `gorm:"column:order_number;not null;uniqueIndex"`
	UserID        *uuid.UUID          `gorm:"column:user_id;type:uuid"`
	GuestEmail    *string             `gorm:"column:guest_email"`
	Status        enums.OrderStatus   `gorm:"column:status;type:text;not null;default:'pending'"`
	PaymentStatus enums.PaymentStatus `gorm:"column:payment_status;type:text;not null;default:'pending'"`

	Subtotal     decimal.Decimal `gorm:"column:subtotal;type:numeric(12,2);not null"`
	Discount     decimal.Decimal `gorm:"column:discount;type:numeric(12,2);not null;default:0"`
	ShippingCost decimal.Decimal `gorm:"column:shipping_cost;type:numeric(12,2);not null;default:0"`
	Tax          decimal.Decimal `gorm:"column:tax;type:numeric(12,2);not null;default:0"`
	Total        decimal.Decimal `gorm:"column:total;type:numeric(12,2);not null"`
	CouponCode   *string         `gorm:"column:coupon_code"`

	ShippingAddress types.Address  `gorm:"column:shipping_address;type:jsonb;serializer:json;not null"`
	BillingAddress  *types.Address `gorm:"column:billing_address;type:jsonb;serializer:json"`

	RazorpayOrderID   *string `gorm:"column:razorpay_order_id"`
	RazorpayPaymentID *string `gorm:"column:razorpay_payment_id"`
	PaymentMethod     *string `gorm:"column:payment_method"`

	TrackingNumber *string    `gorm:"column:tracking_number"`
	TrackingURL    *string    `gorm:"column:tracking_url"`
	ShippedAt      *time.Time `gorm:"column:shipped_at"`
	DeliveredAt    *time.Time `gorm:"column:delivered_at"`

	AdminNotes *string `gorm:"column:admin_notes"`

	Items    []OrderItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Timeline []OrderTimeline `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// IsGuest reports whether the order was placed without an account.
func (o *Order) IsGuest() bool {
	return o.UserID == nil
}

// CustomerEmail returns the address notifications should go to.
func (o *Order) CustomerEmail() string {
	if o.GuestEmail != nil && *o.GuestEmail != "" {
		return *o.GuestEmail
	}
	return o.ShippingAddress.NormalizedEmail()
}
