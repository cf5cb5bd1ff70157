package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/craftkart/storefront-backend/internal/inventory"
	"github.com/craftkart/storefront-backend/internal/notifications"
	"github.com/craftkart/storefront-backend/pkg/config"
	"github.com/craftkart/storefront-backend/pkg/db"
	"github.com/craftkart/storefront-backend/pkg/db/models"
	"github.com/craftkart/storefront-backend/pkg/enums"
	pkgerrors "github.com/craftkart/storefront-backend/pkg/errors"
	"github.com/craftkart/storefront-backend/pkg/pagination"
	"github.com/craftkart/storefront-backend/pkg/razorpay"
	"github.com/craftkart/storefront-backend/pkg/refnum"
	"github.com/craftkart/storefront-backend/pkg/types"
)

var paiseFactor = decimal.NewFromInt(100)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// paymentGateway is the slice of the Razorpay client the order engine uses.
type paymentGateway interface {
	CreateOrder(ctx context.Context, params razorpay.OrderCreateParams) (*razorpay.Order, error)
	FetchPayment(ctx context.Context, paymentID string) (*razorpay.Payment, error)
	VerifySignature(gatewayOrderID, paymentID, signature string) bool
	KeyID() string
	Currency() string
}

// Service drives an order from checkout through payment confirmation to
// fulfillment.
type Service interface {
	Create(ctx context.Context, input CreateOrderInput) (*CheckoutResult, error)
	CreateGuest(ctx context.Context, input CreateOrderInput) (*CheckoutResult, error)
	VerifyPayment(ctx context.Context, input VerifyPaymentInput) (*models.Order, error)
	UpdateStatus(ctx context.Context, input UpdateStatusInput) (*models.Order, error)
	LookupGuestOrder(ctx context.Context, orderNumber, email string) (*OrderView, error)
	Get(ctx context.Context, orderID uuid.UUID, userID *uuid.UUID) (*OrderView, error)
	ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error)
}

type service struct {
	repo       Repository
	tx         txRunner
	gateway    paymentGateway
	stock      inventory.Decrementer
	dispatcher notifications.Dispatcher
	store      config.StoreConfig
	now        func() time.Time
}

// NewService builds the order workflow engine with its dependencies.
func NewService(repo Repository, tx txRunner, gateway paymentGateway, stock inventory.Decrementer, dispatcher notifications.Dispatcher, store config.StoreConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if stock == nil {
		return nil, fmt.Errorf("stock decrementer required")
	}
	if dispatcher == nil {
		return nil, fmt.Errorf("notification dispatcher required")
	}
	return &service{
		repo:       repo,
		tx:         tx,
		gateway:    gateway,
		stock:      stock,
		dispatcher: dispatcher,
		store:      store,
		now:        func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateOrderInput) (*CheckoutResult, error) {
	if input.UserID == nil || *input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	return s.createOrder(ctx, input)
}

func (s *service) CreateGuest(ctx context.Context, input CreateOrderInput) (*CheckoutResult, error) {
	input.UserID = nil
	if input.ShippingAddress.NormalizedEmail() == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping address email required for guest checkout")
	}
	return s.createOrder(ctx, input)
}

// createOrder requests a gateway order first, then persists the order, its
// items, and the opening timeline entry in one transaction. Gateway failure
// therefore never leaves an orphaned order row; a database failure after the
// gateway call orphans only the gateway-side order, which expires unpaid.
func (s *service) createOrder(ctx context.Context, input CreateOrderInput) (*CheckoutResult, error) {
	if err := validateCreateInput(input); err != nil {
		return nil, err
	}

	orderNumber := refnum.Generate(s.store.OrderPrefix, s.now())

	gatewayOrder, err := s.gateway.CreateOrder(ctx, razorpay.OrderCreateParams{
		Amount:  input.Total,
		Receipt: orderNumber,
		Notes:   map[string]any{"order_number": orderNumber},
	})
	if err != nil {
		return nil, err
	}

	order, err := s.persistOrder(ctx, input, orderNumber, gatewayOrder.ID)
	if err != nil {
		if !db.IsUniqueViolation(err, "idx_orders_order_number") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist order")
		}
		// Order-number collision: regenerate the suffix and retry once.
		orderNumber = refnum.Generate(s.store.OrderPrefix, s.now())
		order, err = s.persistOrder(ctx, input, orderNumber, gatewayOrder.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist order after number retry")
		}
	}

	return &CheckoutResult{
		OrderID:        order.ID,
		OrderNumber:    order.OrderNumber,
		GatewayOrderID: gatewayOrder.ID,
		GatewayKeyID:   s.gateway.KeyID(),
		AmountPaise:    input.Total.Mul(paiseFactor).Round(0).IntPart(),
		Amount:         input.Total,
		Currency:       s.gateway.Currency(),
	}, nil
}

func (s *service) persistOrder(ctx context.Context, input CreateOrderInput, orderNumber, gatewayOrderID string) (*models.Order, error) {
	order := &models.Order{
		ID:              uuid.New(),
		OrderNumber:     orderNumber,
		UserID:          input.UserID,
		Status:          enums.OrderStatusPending,
		PaymentStatus:   enums.PaymentStatusPending,
		Subtotal:        input.Subtotal,
		Discount:        input.Discount,
		ShippingCost:    input.ShippingCost,
		Tax:             input.Tax,
		Total:           input.Total,
		CouponCode:      input.CouponCode,
		ShippingAddress: input.ShippingAddress,
		BillingAddress:  input.BillingAddress,
		RazorpayOrderID: &gatewayOrderID,
	}
	if input.UserID == nil {
		email := input.ShippingAddress.NormalizedEmail()
		order.GuestEmail = &email
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.CreateOrder(ctx, order); err != nil {
			return err
		}

		items := make([]models.OrderItem, 0, len(input.Items))
		for _, line := range input.Items {
			items = append(items, models.OrderItem{
				ID:        uuid.New(),
				OrderID:   order.ID,
				ProductID: line.ProductID,
				VariantID: line.VariantID,
				Name:      line.Name,
				SKU:       line.SKU,
				Price:     line.Price,
				Quantity:  line.Quantity,
				Total:     line.Price.Mul(decimal.NewFromInt(int64(line.Quantity))),
				Size:      line.Size,
				Color:     line.Color,
			})
		}
		if err := repo.CreateOrderItems(ctx, items); err != nil {
			return err
		}
		order.Items = items

		return repo.AppendTimeline(ctx, &models.OrderTimeline{
			ID:          uuid.New(),
			OrderID:     order.ID,
			Type:        enums.TimelineEntryStatusChange,
			Title:       "Order placed",
			Description: fmt.Sprintf("Order %s created, awaiting payment", order.OrderNumber),
			Metadata:    types.JSONMap{"status": enums.OrderStatusPending.String()},
			IsPublic:    true,
			CreatedBy:   input.UserID,
		})
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func validateCreateInput(input CreateOrderInput) error {
	if len(input.Items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "order must contain at least one item")
	}
	for _, line := range input.Items {
		if line.ProductID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "item product id required")
		}
		if line.Quantity <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "item quantity must be positive")
		}
		if line.Price.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeValidation, "item price must not be negative")
		}
		if strings.TrimSpace(line.Name) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "item name required")
		}
	}
	if field := input.ShippingAddress.Validate(); field != "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "shipping address missing "+field).
			WithDetails(map[string]string{"field": field})
	}
	if input.BillingAddress != nil {
		if field := input.BillingAddress.Validate(); field != "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "billing address missing "+field).
				WithDetails(map[string]string{"field": field})
		}
	}
	if !input.Total.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "order total must be positive")
	}
	return nil
}

// VerifyPayment authorizes the mutation solely by the gateway signature, then
// cross-checks the captured payment's amount and currency against the stored
// order before flipping it to confirmed/paid, decrementing stock, and
// appending the payment timeline entry, all in one transaction.
func (s *service) VerifyPayment(ctx context.Context, input VerifyPaymentInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.GatewayOrderID == "" || input.PaymentID == "" || input.Signature == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment callback fields required")
	}

	order, err := s.repo.FindByID(ctx, input.OrderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}

	if order.RazorpayOrderID == nil || *order.RazorpayOrderID != input.GatewayOrderID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gateway order does not match this order")
	}

	if !s.gateway.VerifySignature(input.GatewayOrderID, input.PaymentID, input.Signature) {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "payment verification failed")
	}

	// Replayed callback for an already-confirmed payment is a no-op success.
	if order.PaymentStatus == enums.PaymentStatusPaid {
		if order.RazorpayPaymentID != nil && *order.RazorpayPaymentID == input.PaymentID {
			return order, nil
		}
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order already paid with a different payment")
	}

	payment, err := s.gateway.FetchPayment(ctx, input.PaymentID)
	if err != nil {
		return nil, err
	}
	if payment.OrderID != input.GatewayOrderID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment belongs to a different gateway order")
	}
	expectedPaise := order.Total.Mul(paiseFactor).Round(0).IntPart()
	if payment.Amount != expectedPaise {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "payment amount does not match order total")
	}
	if payment.Currency != "" && !strings.EqualFold(payment.Currency, s.gateway.Currency()) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "payment currency does not match order currency")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		affected, err := repo.ConfirmPayment(ctx, order.ID, input.PaymentID, payment.Method)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "confirm payment")
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order payment already processed")
		}

		for _, item := range order.Items {
			if err := s.stock.Decrement(ctx, tx, item.ProductID, item.VariantID, item.Quantity); err != nil {
				return err
			}
		}

		return repo.AppendTimeline(ctx, &models.OrderTimeline{
			ID:      uuid.New(),
			OrderID: order.ID,
			Type:    enums.TimelineEntryPayment,
			Title:   "Payment received",
			Description: fmt.Sprintf("Payment %s captured via %s", input.PaymentID,
				nonEmpty(payment.Method, "razorpay")),
			Metadata: types.JSONMap{
				"payment_id":       input.PaymentID,
				"gateway_order_id": input.GatewayOrderID,
				"amount_paise":     payment.Amount,
			},
			IsPublic: true,
		})
	})
	if err != nil {
		return nil, err
	}

	paymentID := input.PaymentID
	order.Status = enums.OrderStatusConfirmed
	order.PaymentStatus = enums.PaymentStatusPaid
	order.RazorpayPaymentID = &paymentID
	if payment.Method != "" {
		method := payment.Method
		order.PaymentMethod = &method
	}

	s.dispatcher.OrderConfirmed(ctx, order)
	s.dispatcher.NewOrderAdminAlert(ctx, order)
	return order, nil
}

func (s *service) UpdateStatus(ctx context.Context, input UpdateStatusInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}

	order, err := s.repo.FindByID(ctx, input.OrderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}

	// Re-submitting the current status is an idempotent no-op: timestamps and
	// the timeline are left untouched.
	if order.Status == input.Status {
		return order, nil
	}
	if !CanTransition(order.Status, input.Status) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("cannot transition order from %s to %s", order.Status, input.Status)).
			WithDetails(map[string]string{"from": order.Status.String(), "to": input.Status.String()})
	}

	previous := order.Status
	now := s.now()
	updates := map[string]any{"status": input.Status}
	if input.TrackingNumber != nil {
		updates["tracking_number"] = *input.TrackingNumber
		order.TrackingNumber = input.TrackingNumber
	}
	if input.TrackingURL != nil {
		updates["tracking_url"] = *input.TrackingURL
		order.TrackingURL = input.TrackingURL
	}
	if input.Status == enums.OrderStatusShipped && order.ShippedAt == nil {
		updates["shipped_at"] = now
		order.ShippedAt = &now
	}
	if input.Status == enums.OrderStatusDelivered && order.DeliveredAt == nil {
		updates["delivered_at"] = now
		order.DeliveredAt = &now
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.UpdateOrder(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}

		actor := input.ActorID
		entry := &models.OrderTimeline{
			ID:          uuid.New(),
			OrderID:     order.ID,
			Type:        enums.TimelineEntryStatusChange,
			Title:       fmt.Sprintf("Order %s", input.Status),
			Description: fmt.Sprintf("Status changed from %s to %s", previous, input.Status),
			Metadata:    types.JSONMap{"from": previous.String(), "to": input.Status.String()},
			IsPublic:    true,
			CreatedBy:   &actor,
		}
		if input.Note != nil && *input.Note != "" {
			entry.Description = entry.Description + ": " + *input.Note
		}
		return repo.AppendTimeline(ctx, entry)
	})
	if err != nil {
		return nil, err
	}

	order.Status = input.Status
	if input.NotifyCustomer {
		switch input.Status {
		case enums.OrderStatusShipped:
			s.dispatcher.OrderShipped(ctx, order)
		case enums.OrderStatusDelivered:
			s.dispatcher.OrderDelivered(ctx, order)
		case enums.OrderStatusCancelled:
			s.dispatcher.OrderCancelled(ctx, order)
		}
	}
	return order, nil
}

// LookupGuestOrder authorizes access by knowledge of both the order number
// and the contact email. A mismatched email reports not-found, never "wrong
// email", so order numbers cannot be probed.
func (s *service) LookupGuestOrder(ctx context.Context, orderNumber, email string) (*OrderView, error) {
	orderNumber = strings.TrimSpace(orderNumber)
	email = strings.ToLower(strings.TrimSpace(email))
	if orderNumber == "" || email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order number and email required")
	}

	order, err := s.repo.FindByNumber(ctx, orderNumber)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.CustomerEmail() != email {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}

	timeline, err := s.repo.ListTimeline(ctx, order.ID, true)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load timeline")
	}
	return &OrderView{Order: order, Timeline: timeline}, nil
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID, userID *uuid.UUID) (*OrderView, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}

	// A nil userID means an admin read: full timeline, no ownership check.
	publicOnly := false
	if userID != nil {
		if order.UserID == nil || *order.UserID != *userID {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		publicOnly = true
	}

	timeline, err := s.repo.ListTimeline(ctx, order.ID, publicOnly)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load timeline")
	}
	return &OrderView{Order: order, Timeline: timeline}, nil
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	list, err := s.repo.ListByUser(ctx, userID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return list, nil
}

func nonEmpty(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}
