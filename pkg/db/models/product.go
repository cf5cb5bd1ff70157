package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Product carries the minimal catalog surface the order and cart workflows
// touch: pricing precedence and stock. Full catalog management lives in the
// back-office, not here.
type Product struct {
	ID        uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string           `gorm:"column:name;not null"`
	SKU       string           `gorm:"column:sku;not null;uniqueIndex"`
	Price     decimal.Decimal  `gorm:"column:price;type:numeric(12,2);not null"`
	SalePrice *decimal.Decimal `gorm:"column:sale_price;type:numeric(12,2)"`
	Stock     int              `gorm:"column:stock;not null;default:0"`
	Tags      pq.StringArray   `gorm:"column:tags;type:text[];default:ARRAY[]::text[]"`
	Active    bool             `gorm:"column:active;not null;default:true"`

	Variants []ProductVariant `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// EffectivePrice resolves sale price over base price.
func (p *Product) EffectivePrice() decimal.Decimal {
	if p.SalePrice != nil && p.SalePrice.IsPositive() {
		return *p.SalePrice
	}
	return p.Price
}

// ProductVariant is a size/color variation with its own stock and optional
// price override. Variant price wins over the parent product's pricing.
type ProductVariant struct {
	ID        uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID uuid.UUID        `gorm:"column:product_id;type:uuid;not null;index"`
	SKU       string           `gorm:"column:sku;not null;uniqueIndex"`
	Size      *string          `gorm:"column:size"`
	Color     *string          `gorm:"column:color"`
	Price     *decimal.Decimal `gorm:"column:price;type:numeric(12,2)"`
	Stock     int              `gorm:"column:stock;not null;default:0"`
	CreatedAt time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
