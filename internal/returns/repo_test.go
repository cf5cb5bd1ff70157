package returns

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/craftkart/storefront-backend/pkg/db"
	"github.com/craftkart/storefront-backend/pkg/db/models"
	"github.com/craftkart/storefront-backend/pkg/enums"
	"github.com/craftkart/storefront-backend/pkg/types"
)

func setupReturnsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	ddl := []string{`
CREATE TABLE order_returns (
  id TEXT PRIMARY KEY,
  return_number TEXT NOT NULL,
  order_id TEXT NOT NULL,
  user_id TEXT NOT NULL,
  reason TEXT NOT NULL,
  details TEXT,
  items TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'requested',
  refund_amount TEXT,
  refund_method TEXT,
  admin_notes TEXT,
  approved_by TEXT,
  approved_at DATETIME,
  completed_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE UNIQUE INDEX idx_order_returns_return_number ON order_returns (return_number);`, `
CREATE UNIQUE INDEX idx_order_returns_open_per_order
  ON order_returns (order_id)
  WHERE status NOT IN ('completed', 'rejected');`,
	}
	for _, stmt := range ddl {
		require.NoError(t, conn.Exec(stmt).Error)
	}
	return conn
}

func seedReturn(orderID, userID uuid.UUID, number string, status enums.ReturnStatus) *models.OrderReturn {
	return &models.OrderReturn{
		ID:           uuid.New(),
		ReturnNumber: number,
		OrderID:      orderID,
		UserID:       userID,
		Reason:       enums.ReturnReasonDefective,
		Items:        types.ReturnItemClaims{{OrderItemID: uuid.NewString(), Quantity: 1}},
		Status:       status,
	}
}

func TestRepoCreateAndFind(t *testing.T) {
	repo := NewRepository(setupReturnsTestDB(t))
	ctx := context.Background()

	ret := seedReturn(uuid.New(), uuid.New(), "RET-20260801-AAAAAA", enums.ReturnStatusRequested)
	_, err := repo.Create(ctx, ret)
	require.NoError(t, err)

	found, err := repo.FindByID(ctx, ret.ID)
	require.NoError(t, err)
	assert.Equal(t, ret.ReturnNumber, found.ReturnNumber)
	require.Len(t, found.Items, 1)
	assert.Equal(t, 1, found.Items[0].Quantity)
}

func TestRepoOpenReturnIndexBlocksSecondOpen(t *testing.T) {
	repo := NewRepository(setupReturnsTestDB(t))
	ctx := context.Background()
	orderID := uuid.New()
	userID := uuid.New()

	_, err := repo.Create(ctx, seedReturn(orderID, userID, "RET-20260801-AAAAAA", enums.ReturnStatusRequested))
	require.NoError(t, err)

	_, err = repo.Create(ctx, seedReturn(orderID, userID, "RET-20260801-BBBBBB", enums.ReturnStatusRequested))
	require.Error(t, err)
	assert.True(t, db.IsUniqueViolation(err, ""))
}

func TestRepoTerminalReturnAllowsReopen(t *testing.T) {
	repo := NewRepository(setupReturnsTestDB(t))
	ctx := context.Background()
	orderID := uuid.New()
	userID := uuid.New()

	_, err := repo.Create(ctx, seedReturn(orderID, userID, "RET-20260801-AAAAAA", enums.ReturnStatusRejected))
	require.NoError(t, err)

	// A rejected return is outside the partial index, so a fresh open
	// return for the same order is allowed.
	_, err = repo.Create(ctx, seedReturn(orderID, userID, "RET-20260801-BBBBBB", enums.ReturnStatusRequested))
	require.NoError(t, err)
}

func TestRepoUpdatePersistsRefundFields(t *testing.T) {
	repo := NewRepository(setupReturnsTestDB(t))
	ctx := context.Background()

	ret := seedReturn(uuid.New(), uuid.New(), "RET-20260801-AAAAAA", enums.ReturnStatusReceived)
	_, err := repo.Create(ctx, ret)
	require.NoError(t, err)

	amount := decimal.RequireFromString("250.00")
	err = repo.Update(ctx, ret.ID, map[string]any{
		"status":        enums.ReturnStatusRefunded,
		"refund_amount": amount,
		"refund_method": "original_payment",
	})
	require.NoError(t, err)

	found, err := repo.FindByID(ctx, ret.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.ReturnStatusRefunded, found.Status)
	require.NotNil(t, found.RefundAmount)
	assert.True(t, found.RefundAmount.Equal(amount))
	require.NotNil(t, found.RefundMethod)
	assert.Equal(t, "original_payment", *found.RefundMethod)
}

func TestRepoListByUser(t *testing.T) {
	repo := NewRepository(setupReturnsTestDB(t))
	ctx := context.Background()
	userID := uuid.New()

	_, err := repo.Create(ctx, seedReturn(uuid.New(), userID, "RET-20260801-AAAAAA", enums.ReturnStatusRequested))
	require.NoError(t, err)
	_, err = repo.Create(ctx, seedReturn(uuid.New(), userID, "RET-20260801-BBBBBB", enums.ReturnStatusCompleted))
	require.NoError(t, err)
	_, err = repo.Create(ctx, seedReturn(uuid.New(), uuid.New(), "RET-20260801-CCCCCC", enums.ReturnStatusRequested))
	require.NoError(t, err)

	rows, err := repo.ListByUser(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}
