package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/craftkart/storefront-backend/pkg/db/models"
	"github.com/craftkart/storefront-backend/pkg/pagination"
)

// Repository defines persistence operations for order tables.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error)
	CreateOrderItems(ctx context.Context, items []models.OrderItem) error
	AppendTimeline(ctx context.Context, entry *models.OrderTimeline) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByNumber(ctx context.Context, orderNumber string) (*models.Order, error)
	UpdateOrder(ctx context.Context, orderID uuid.UUID, updates map[string]any) (int64, error)
	ConfirmPayment(ctx context.Context, orderID uuid.UUID, paymentID, method string) (int64, error)
	ListTimeline(ctx context.Context, orderID uuid.UUID, publicOnly bool) ([]models.OrderTimeline, error)
	ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error)
}
