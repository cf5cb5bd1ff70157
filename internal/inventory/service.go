package inventory

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/craftkart/storefront-backend/pkg/db"
	"github.com/craftkart/storefront-backend/pkg/db/models"
	pkgerrors "github.com/craftkart/storefront-backend/pkg/errors"
)

// Decrementer removes sold stock inside the caller's transaction. Used by the
// payment-confirmation flow so stock and payment state commit atomically.
type Decrementer interface {
	Decrement(ctx context.Context, tx *gorm.DB, productID uuid.UUID, variantID *uuid.UUID, qty int) error
}

// Service exposes inventory operations beyond the transactional decrement.
type Service interface {
	Decrementer
	SubscribeAlert(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID, threshold int) (*models.InventoryAlert, error)
	SweepLowStock(ctx context.Context) ([]LowStockHit, error)
}

// LowStockHit is one product or variant at or below its alert threshold.
type LowStockHit struct {
	Product *models.Product
	Variant *models.ProductVariant
	Stock   int
}

type service struct {
	repo Repository
}

// NewService wires the inventory service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "inventory repository required")
	}
	return &service{repo: repo}, nil
}

// Decrement atomically removes qty units, failing when stock would go
// negative. Variant stock is tracked separately from the parent product.
func (s *service) Decrement(ctx context.Context, tx *gorm.DB, productID uuid.UUID, variantID *uuid.UUID, qty int) error {
	if qty <= 0 {
		return nil
	}
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for stock decrement")
	}

	var res *gorm.DB
	if variantID != nil {
		res = tx.WithContext(ctx).Exec(`
			UPDATE product_variants
			SET stock = stock - ?,
				updated_at = CURRENT_TIMESTAMP
			WHERE id = ? AND product_id = ? AND stock >= ?
		`, qty, *variantID, productID, qty)
	} else {
		res = tx.WithContext(ctx).Exec(`
			UPDATE products
			SET stock = stock - ?,
				updated_at = CURRENT_TIMESTAMP
			WHERE id = ? AND stock >= ?
		`, qty, productID, qty)
	}
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "decrement stock")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "insufficient stock")
	}
	return nil
}

func (s *service) SubscribeAlert(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID, threshold int) (*models.InventoryAlert, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if threshold < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "threshold must be non-negative")
	}

	alert := &models.InventoryAlert{
		ProductID: productID,
		VariantID: variantID,
		Threshold: threshold,
	}
	created, err := s.repo.CreateAlert(ctx, alert)
	if err != nil {
		if db.IsUniqueViolation(err, "idx_inventory_alerts_product_variant") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "alert already exists for this product")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create inventory alert")
	}
	return created, nil
}

// SweepLowStock finds subscriptions whose stock has reached the threshold and
// marks them notified. Alerts whose stock has recovered are re-armed so the
// next dip fires again.
func (s *service) SweepLowStock(ctx context.Context) ([]LowStockHit, error) {
	if err := s.repo.RearmRecoveredAlerts(ctx); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rearm recovered alerts")
	}

	alerts, err := s.repo.ListTriggeredAlerts(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list triggered alerts")
	}

	hits := make([]LowStockHit, 0, len(alerts))
	for _, alert := range alerts {
		product, err := s.repo.FindProduct(ctx, alert.ProductID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				continue
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product for alert")
		}

		hit := LowStockHit{Product: product, Stock: product.Stock}
		if alert.VariantID != nil {
			variant, err := s.repo.FindVariant(ctx, *alert.VariantID)
			if err != nil {
				if err == gorm.ErrRecordNotFound {
					continue
				}
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load variant for alert")
			}
			hit.Variant = variant
			hit.Stock = variant.Stock
		}

		if err := s.repo.MarkAlertSent(ctx, alert.ID); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark alert sent")
		}
		hits = append(hits, hit)
	}
	return hits, nil
}
