package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/craftkart/storefront-backend/pkg/enums"
	"github.com/craftkart/storefront-backend/pkg/types"
)

// OrderReturn is a secondary workflow attached to a delivered order. A partial
// unique index on order_id WHERE status NOT IN ('completed','rejected')
// guarantees at most one open return per order.
type OrderReturn struct {
	ID           uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ReturnNumber string                 `gorm:"column:return_number;not null;uniqueIndex"`
	OrderID      uuid.UUID              `gorm:"column:order_id;type:uuid;not null;index"`
	UserID       uuid.UUID              `gorm:"column:user_id;type:uuid;not null"`
	Reason       enums.ReturnReason     `gorm:"column:reason;type:text;not null"`
	Details      *string                `gorm:"column:details"`
	Items        types.ReturnItemClaims `gorm:"column:items;type:jsonb;serializer:json;not null"`
	Status       enums.ReturnStatus     `gorm:"column:status;type:text;not null;default:'requested'"`

	RefundAmount *decimal.Decimal `gorm:"column:refund_amount;type:numeric(12,2)"`
	RefundMethod *string          `gorm:"column:refund_method"`
	AdminNotes   *string          `gorm:"column:admin_notes"`

	ApprovedBy  *uuid.UUID `gorm:"column:approved_by;type:uuid"`
	ApprovedAt  *time.Time `gorm:"column:approved_at"`
	CompletedAt *time.Time `gorm:"column:completed_at"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
