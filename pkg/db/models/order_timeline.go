package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/craftkart/storefront-backend/pkg/enums"
	"github.com/craftkart/storefront-backend/pkg/types"
)

// OrderTimeline is an immutable, append-only audit entry for one order. Every
// state-changing operation appends exactly one row; rows are never updated or
// deleted. IsPublic controls customer visibility.
type OrderTimeline struct {
	ID          uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID     uuid.UUID               `gorm:"column:order_id;type:uuid;not null;index"`
	Type        enums.TimelineEntryType `gorm:"column:type;type:text;not null"`
	Title       string                  `gorm:"column:title;not null"`
	Description string                  `gorm:"column:description"`
	Metadata    types.JSONMap           `gorm:"column:metadata;type:jsonb;serializer:json"`
	IsPublic    bool                    `gorm:"column:is_public;not null;default:true"`
	CreatedBy   *uuid.UUID              `gorm:"column:created_by;type:uuid"`
	CreatedAt   time.Time               `gorm:"column:created_at;autoCreateTime"`
}
