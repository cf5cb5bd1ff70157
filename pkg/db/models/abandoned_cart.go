package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/craftkart/storefront-backend/pkg/types"
)

// AbandonedCart snapshots a cart for recovery mail. One live row per email
// while unrecovered, enforced by a partial unique index on email WHERE NOT
// recovered; a fresh capture for the same email extends the existing row.
type AbandonedCart struct {
	ID     uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Email  string     `gorm:"column:email;not null"`
	UserID *uuid.UUID `gorm:"column:user_id;type:uuid"`

	Items    types.CartItemSnapshots `gorm:"column:items;type:jsonb;serializer:json;not null"`
	Subtotal decimal.Decimal         `gorm:"column:subtotal;type:numeric(12,2);not null"`

	RecoveryToken string    `gorm:"column:recovery_token;not null;uniqueIndex"`
	ExpiresAt     time.Time `gorm:"column:expires_at;not null"`

	Recovered           bool       `gorm:"column:recovered;not null;default:false"`
	RecoveredAt         *time.Time `gorm:"column:recovered_at"`
	RecoveryEmailSent   bool       `gorm:"column:recovery_email_sent;not null;default:false"`
	RecoveryEmailSentAt *time.Time `gorm:"column:recovery_email_sent_at"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// Expired reports whether the snapshot is past its recovery window.
func (c *AbandonedCart) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}
