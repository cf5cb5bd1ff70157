package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/craftkart/storefront-backend/pkg/db/models"
)

// Repository covers the catalog and alert rows the inventory flows touch.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindVariant(ctx context.Context, id uuid.UUID) (*models.ProductVariant, error)
	CreateAlert(ctx context.Context, alert *models.InventoryAlert) (*models.InventoryAlert, error)
	ListTriggeredAlerts(ctx context.Context) ([]models.InventoryAlert, error)
	RearmRecoveredAlerts(ctx context.Context) error
	MarkAlertSent(ctx context.Context, alertID uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an inventory repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) FindVariant(ctx context.Context, id uuid.UUID) (*models.ProductVariant, error) {
	var variant models.ProductVariant
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&variant).Error
	if err != nil {
		return nil, err
	}
	return &variant, nil
}

func (r *repository) CreateAlert(ctx context.Context, alert *models.InventoryAlert) (*models.InventoryAlert, error) {
	if err := r.db.WithContext(ctx).Create(alert).Error; err != nil {
		return nil, err
	}
	return alert, nil
}

// ListTriggeredAlerts returns unsent alerts whose tracked stock is at or below
// the threshold.
func (r *repository) ListTriggeredAlerts(ctx context.Context) ([]models.InventoryAlert, error) {
	var alerts []models.InventoryAlert
	err := r.db.WithContext(ctx).
		Where(`alert_sent = ? AND (
			(variant_id IS NULL AND product_id IN (
				SELECT p.id FROM products p WHERE p.stock <= inventory_alerts.threshold
			)) OR
			(variant_id IS NOT NULL AND variant_id IN (
				SELECT v.id FROM product_variants v WHERE v.stock <= inventory_alerts.threshold
			))
		)`, false).
		Order("created_at ASC").
		Find(&alerts).Error
	if err != nil {
		return nil, err
	}
	return alerts, nil
}

// RearmRecoveredAlerts clears the sent flag where stock has risen back above
// the threshold.
func (r *repository) RearmRecoveredAlerts(ctx context.Context) error {
	return r.db.WithContext(ctx).Exec(`
		UPDATE inventory_alerts
		SET alert_sent = FALSE,
			alert_sent_at = NULL,
			updated_at = CURRENT_TIMESTAMP
		WHERE alert_sent = TRUE AND (
			(variant_id IS NULL AND product_id IN (
				SELECT p.id FROM products p WHERE p.stock > inventory_alerts.threshold
			)) OR
			(variant_id IS NOT NULL AND variant_id IN (
				SELECT v.id FROM product_variants v WHERE v.stock > inventory_alerts.threshold
			))
		)
	`).Error
}

func (r *repository) MarkAlertSent(ctx context.Context, alertID uuid.UUID) error {
	now := time.Now().UTC()
	return r.db.WithContext(ctx).
		Model(&models.InventoryAlert{}).
		Where("id = ?", alertID).
		Updates(map[string]any{
			"alert_sent":    true,
			"alert_sent_at": now,
		}).Error
}
