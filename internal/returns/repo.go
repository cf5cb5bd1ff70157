package returns

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/craftkart/storefront-backend/pkg/db/models"
)

// Repository defines persistence operations for return rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, ret *models.OrderReturn) (*models.OrderReturn, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.OrderReturn, error)
	Update(ctx context.Context, returnID uuid.UUID, updates map[string]any) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.OrderReturn, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a returns repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, ret *models.OrderReturn) (*models.OrderReturn, error) {
	if err := r.db.WithContext(ctx).Create(ret).Error; err != nil {
		return nil, err
	}
	return ret, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.OrderReturn, error) {
	var ret models.OrderReturn
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&ret).Error
	if err != nil {
		return nil, err
	}
	return &ret, nil
}

func (r *repository) Update(ctx context.Context, returnID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.OrderReturn{}).
		Where("id = ?", returnID).
		Updates(updates).Error
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.OrderReturn, error) {
	var rows []models.OrderReturn
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
