package models

import (
	"time"

	"github.com/google/uuid"
)

// InventoryAlert is a per-(product, optional variant) stock threshold. The
// unique index on (product_id, variant_id) makes duplicate subscriptions a
// database-level conflict instead of a racy existence check.
type InventoryAlert struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID   uuid.UUID  `gorm:"column:product_id;type:uuid;not null;uniqueIndex:idx_inventory_alerts_product_variant"`
	VariantID   *uuid.UUID `gorm:"column:variant_id;type:uuid;uniqueIndex:idx_inventory_alerts_product_variant"`
	Threshold   int        `gorm:"column:threshold;not null;default:5"`
	AlertSent   bool       `gorm:"column:alert_sent;not null;default:false"`
	AlertSentAt *time.Time `gorm:"column:alert_sent_at"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
