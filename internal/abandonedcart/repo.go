package abandonedcart

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/craftkart/storefront-backend/pkg/db/models"
)

// Repository defines persistence operations for abandoned cart snapshots.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, cart *models.AbandonedCart) (*models.AbandonedCart, error)
	FindLiveByEmail(ctx context.Context, email string) (*models.AbandonedCart, error)
	FindByToken(ctx context.Context, token string) (*models.AbandonedCart, error)
	Update(ctx context.Context, cartID uuid.UUID, updates map[string]any) error
	ListDue(ctx context.Context, cutoff, now time.Time, limit int) ([]models.AbandonedCart, error)
	MarkEmailSent(ctx context.Context, cartID uuid.UUID, at time.Time) error
	MarkRecovered(ctx context.Context, cartID uuid.UUID, at time.Time) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an abandoned cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, cart *models.AbandonedCart) (*models.AbandonedCart, error) {
	if err := r.db.WithContext(ctx).Create(cart).Error; err != nil {
		return nil, err
	}
	return cart, nil
}

func (r *repository) FindLiveByEmail(ctx context.Context, email string) (*models.AbandonedCart, error) {
	var cart models.AbandonedCart
	err := r.db.WithContext(ctx).
		Where("email = ? AND recovered = ?", email, false).
		First(&cart).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *repository) FindByToken(ctx context.Context, token string) (*models.AbandonedCart, error) {
	var cart models.AbandonedCart
	err := r.db.WithContext(ctx).
		Where("recovery_token = ?", token).
		First(&cart).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *repository) Update(ctx context.Context, cartID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.AbandonedCart{}).
		Where("id = ?", cartID).
		Updates(updates).Error
}

// ListDue returns unrecovered, not-yet-emailed carts idle since before cutoff
// and still inside their recovery window, oldest first.
func (r *repository) ListDue(ctx context.Context, cutoff, now time.Time, limit int) ([]models.AbandonedCart, error) {
	var rows []models.AbandonedCart
	err := r.db.WithContext(ctx).
		Where("recovered = ? AND recovery_email_sent = ?", false, false).
		Where("updated_at <= ?", cutoff).
		Where("expires_at > ?", now).
		Order("updated_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) MarkEmailSent(ctx context.Context, cartID uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.AbandonedCart{}).
		Where("id = ?", cartID).
		Updates(map[string]any{
			"recovery_email_sent":    true,
			"recovery_email_sent_at": at,
		}).Error
}

// MarkRecovered flips the recovered flag with a guard so concurrent
// recoveries resolve to exactly one winner.
func (r *repository) MarkRecovered(ctx context.Context, cartID uuid.UUID, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.AbandonedCart{}).
		Where("id = ? AND recovered = ?", cartID, false).
		Updates(map[string]any{
			"recovered":    true,
			"recovered_at": at,
		})
	return res.RowsAffected, res.Error
}

func (r *repository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("recovered = ? AND expires_at <= ?", false, now).
		Delete(&models.AbandonedCart{})
	return res.RowsAffected, res.Error
}
