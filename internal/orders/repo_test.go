package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/craftkart/storefront-backend/pkg/db"
	"github.com/craftkart/storefront-backend/pkg/db/models"
	"github.com/craftkart/storefront-backend/pkg/enums"
	"github.com/craftkart/storefront-backend/pkg/pagination"
	"github.com/craftkart/storefront-backend/pkg/types"
)

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	ddl := []string{`
CREATE TABLE orders (
  id TEXT PRIMARY KEY,
  order_number TEXT NOT NULL,
  user_id TEXT,
  guest_email TEXT,
  status TEXT NOT NULL DEFAULT 'pending',
  payment_status TEXT NOT NULL DEFAULT 'pending',
  subtotal TEXT NOT NULL DEFAULT '0',
  discount TEXT NOT NULL DEFAULT '0',
  shipping_cost TEXT NOT NULL DEFAULT '0',
  tax TEXT NOT NULL DEFAULT '0',
  total TEXT NOT NULL DEFAULT '0',
  coupon_code TEXT,
  shipping_address TEXT NOT NULL,
  billing_address TEXT,
  razorpay_order_id TEXT,
  razorpay_payment_id TEXT,
  payment_method TEXT,
  tracking_number TEXT,
  tracking_url TEXT,
  shipped_at DATETIME,
  delivered_at DATETIME,
  admin_notes TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE UNIQUE INDEX idx_orders_order_number ON orders (order_number);`, `
CREATE TABLE order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  variant_id TEXT,
  name TEXT NOT NULL,
  sku TEXT NOT NULL,
  price TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  total TEXT NOT NULL,
  size TEXT,
  color TEXT,
  created_at DATETIME
);`, `
CREATE TABLE order_timeline (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  type TEXT NOT NULL,
  title TEXT NOT NULL,
  description TEXT,
  metadata TEXT,
  is_public INTEGER NOT NULL DEFAULT 1,
  created_by TEXT,
  created_at DATETIME
);`}
	for _, stmt := range ddl {
		require.NoError(t, conn.Exec(stmt).Error)
	}
	return conn
}

func insertTestOrder(t *testing.T, repo Repository, userID *uuid.UUID, number string, createdAt time.Time) *models.Order {
	t.Helper()

	order := &models.Order{
		ID:          uuid.New(),
		OrderNumber: number,
		UserID:      userID,
		Status:      enums.OrderStatusPending,
		PaymentStatus: enums.PaymentStatusPending,
		Subtotal:    decimal.RequireFromString("1200.00"),
		Total:       decimal.RequireFromString("1200.00"),
		ShippingAddress: types.Address{
			FullName:   "Asha Rao",
			Email:      "asha.rao@example.com",
			Line1:      "14 MG Road",
			City:       "Bengaluru",
			State:      "Karnataka",
			PostalCode: "560001",
			Country:    "IN",
		},
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
	gwOrder := "order_GW123"
	order.RazorpayOrderID = &gwOrder

	_, err := repo.CreateOrder(context.Background(), order)
	require.NoError(t, err)
	return order
}

func TestRepoCreateAndFindRoundtrip(t *testing.T) {
	conn := setupOrdersTestDB(t)
	repo := NewRepository(conn)

	userID := uuid.New()
	order := insertTestOrder(t, repo, &userID, "CK-20260901-AAAAAA", time.Now().UTC())

	require.NoError(t, repo.CreateOrderItems(context.Background(), []models.OrderItem{{
		ID:        uuid.New(),
		OrderID:   order.ID,
		ProductID: uuid.New(),
		Name:      "Block Print Cushion Cover",
		SKU:       "BP-CC-01",
		Price:     decimal.RequireFromString("400.00"),
		Quantity:  3,
		Total:     decimal.RequireFromString("1200.00"),
	}}))

	found, err := repo.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, "CK-20260901-AAAAAA", found.OrderNumber)
	assert.Equal(t, "asha.rao@example.com", found.ShippingAddress.Email)
	require.Len(t, found.Items, 1)
	assert.Equal(t, 3, found.Items[0].Quantity)

	byNumber, err := repo.FindByNumber(context.Background(), "CK-20260901-AAAAAA")
	require.NoError(t, err)
	assert.Equal(t, order.ID, byNumber.ID)
}

func TestRepoOrderNumberUniqueViolation(t *testing.T) {
	conn := setupOrdersTestDB(t)
	repo := NewRepository(conn)

	insertTestOrder(t, repo, nil, "CK-20260901-DUP001", time.Now().UTC())

	duplicate := &models.Order{
		ID:              uuid.New(),
		OrderNumber:     "CK-20260901-DUP001",
		Status:          enums.OrderStatusPending,
		PaymentStatus:   enums.PaymentStatusPending,
		ShippingAddress: types.Address{FullName: "B", Line1: "x", City: "y", State: "z", PostalCode: "1"},
	}
	_, err := repo.CreateOrder(context.Background(), duplicate)
	require.Error(t, err)
	assert.True(t, db.IsUniqueViolation(err, "idx_orders_order_number"))
}

func TestRepoConfirmPaymentGuard(t *testing.T) {
	conn := setupOrdersTestDB(t)
	repo := NewRepository(conn)

	order := insertTestOrder(t, repo, nil, "CK-20260901-PAY001", time.Now().UTC())

	affected, err := repo.ConfirmPayment(context.Background(), order.ID, "pay_123", "upi")
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	// Second confirmation finds no pending row.
	affected, err = repo.ConfirmPayment(context.Background(), order.ID, "pay_456", "card")
	require.NoError(t, err)
	assert.Equal(t, int64(0), affected)

	found, err := repo.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusPaid, found.PaymentStatus)
	require.NotNil(t, found.RazorpayPaymentID)
	assert.Equal(t, "pay_123", *found.RazorpayPaymentID)
}

func TestRepoListTimelinePublicFilter(t *testing.T) {
	conn := setupOrdersTestDB(t)
	repo := NewRepository(conn)

	order := insertTestOrder(t, repo, nil, "CK-20260901-TL0001", time.Now().UTC())

	require.NoError(t, repo.AppendTimeline(context.Background(), &models.OrderTimeline{
		ID: uuid.New(), OrderID: order.ID, Type: enums.TimelineEntryStatusChange,
		Title: "Order placed", IsPublic: true, CreatedAt: time.Now().UTC(),
	}))
	require.NoError(t, repo.AppendTimeline(context.Background(), &models.OrderTimeline{
		ID: uuid.New(), OrderID: order.ID, Type: enums.TimelineEntryNote,
		Title: "Fraud review", IsPublic: false, CreatedAt: time.Now().UTC().Add(time.Second),
	}))

	all, err := repo.ListTimeline(context.Background(), order.ID, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	public, err := repo.ListTimeline(context.Background(), order.ID, true)
	require.NoError(t, err)
	require.Len(t, public, 1)
	assert.Equal(t, "Order placed", public[0].Title)
}

func TestRepoListByUserPagination(t *testing.T) {
	conn := setupOrdersTestDB(t)
	repo := NewRepository(conn)

	userID := uuid.New()
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		insertTestOrder(t, repo, &userID, "CK-20260801-P"+string(rune('A'+i))+"0001", base.Add(time.Duration(i)*time.Hour))
	}
	insertTestOrder(t, repo, nil, "CK-20260801-GUEST1", base)

	page, err := repo.ListByUser(context.Background(), userID, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Orders, 2)
	require.NotEmpty(t, page.NextCursor)
	// Newest first.
	assert.True(t, page.Orders[0].CreatedAt.After(page.Orders[1].CreatedAt))

	rest, err := repo.ListByUser(context.Background(), userID, pagination.Params{Limit: 2, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, rest.Orders, 1)
	assert.Empty(t, rest.NextCursor)
}
