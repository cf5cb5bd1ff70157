package notifications

import (
	"context"
	"fmt"

	"github.com/craftkart/storefront-backend/pkg/config"
	"github.com/craftkart/storefront-backend/pkg/db/models"
	pkgerrors "github.com/craftkart/storefront-backend/pkg/errors"
	"github.com/craftkart/storefront-backend/pkg/logger"
	"github.com/craftkart/storefront-backend/pkg/mailer"
	"github.com/craftkart/storefront-backend/pkg/metrics"
)

// EmailSender is the slice of the mailer client the dispatcher needs.
type EmailSender interface {
	Send(ctx context.Context, msg mailer.Message) (string, error)
	DefaultFrom() string
}

// Dispatcher sends transactional email for workflow events. Every method is
// fire-and-forget: failures are counted and logged but never propagate to the
// mutation that triggered them.
type Dispatcher interface {
	OrderConfirmed(ctx context.Context, order *models.Order)
	OrderShipped(ctx context.Context, order *models.Order)
	OrderDelivered(ctx context.Context, order *models.Order)
	OrderCancelled(ctx context.Context, order *models.Order)
	NewOrderAdminAlert(ctx context.Context, order *models.Order)
	ReturnRequested(ctx context.Context, ret *models.OrderReturn, order *models.Order)
	ReturnStatusChanged(ctx context.Context, ret *models.OrderReturn, order *models.Order)
	CartRecovery(ctx context.Context, cart *models.AbandonedCart)
	// CartRecoveryNow is the synchronous variant used by the recovery batch
	// job, which must not mark a cart emailed until the send succeeded.
	CartRecoveryNow(ctx context.Context, cart *models.AbandonedCart) error
	LowStockAdminAlert(ctx context.Context, product *models.Product, variant *models.ProductVariant, stock int)
}

type dispatcher struct {
	sender  EmailSender
	store   config.StoreConfig
	logger  *logger.Logger
	metrics *metrics.MailerMetrics
}

// NewDispatcher wires the email dispatcher.
func NewDispatcher(sender EmailSender, store config.StoreConfig, logg *logger.Logger, m *metrics.MailerMetrics) (Dispatcher, error) {
	if sender == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "email sender required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &dispatcher{
		sender:  sender,
		store:   store,
		logger:  logg,
		metrics: m,
	}, nil
}

func (d *dispatcher) OrderConfirmed(ctx context.Context, order *models.Order) {
	if order == nil {
		return
	}
	d.deliver(ctx, "order_confirmed", order.CustomerEmail(), orderConfirmedEmail(d.store, order))
}

func (d *dispatcher) OrderShipped(ctx context.Context, order *models.Order) {
	if order == nil {
		return
	}
	d.deliver(ctx, "order_shipped", order.CustomerEmail(), orderShippedEmail(d.store, order))
}

func (d *dispatcher) OrderDelivered(ctx context.Context, order *models.Order) {
	if order == nil {
		return
	}
	d.deliver(ctx, "order_delivered", order.CustomerEmail(), orderDeliveredEmail(d.store, order))
}

func (d *dispatcher) OrderCancelled(ctx context.Context, order *models.Order) {
	if order == nil {
		return
	}
	d.deliver(ctx, "order_cancelled", order.CustomerEmail(), orderCancelledEmail(d.store, order))
}

func (d *dispatcher) NewOrderAdminAlert(ctx context.Context, order *models.Order) {
	if order == nil || d.store.AdminEmail == "" {
		return
	}
	d.deliver(ctx, "new_order_admin", d.store.AdminEmail, newOrderAdminEmail(d.store, order))
}

func (d *dispatcher) ReturnRequested(ctx context.Context, ret *models.OrderReturn, order *models.Order) {
	if ret == nil || order == nil {
		return
	}
	d.deliver(ctx, "return_requested", order.CustomerEmail(), returnRequestedEmail(d.store, ret, order))
	if d.store.AdminEmail != "" {
		d.deliver(ctx, "return_requested_admin", d.store.AdminEmail, returnRequestedAdminEmail(d.store, ret, order))
	}
}

func (d *dispatcher) ReturnStatusChanged(ctx context.Context, ret *models.OrderReturn, order *models.Order) {
	if ret == nil || order == nil {
		return
	}
	d.deliver(ctx, "return_status_changed", order.CustomerEmail(), returnStatusEmail(d.store, ret, order))
}

func (d *dispatcher) CartRecovery(ctx context.Context, cart *models.AbandonedCart) {
	if cart == nil || cart.Email == "" {
		return
	}
	d.deliver(ctx, "cart_recovery", cart.Email, cartRecoveryEmail(d.store, cart))
}

func (d *dispatcher) CartRecoveryNow(ctx context.Context, cart *models.AbandonedCart) error {
	if cart == nil || cart.Email == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart recipient missing")
	}
	return d.send(ctx, "cart_recovery", cart.Email, cartRecoveryEmail(d.store, cart))
}

func (d *dispatcher) LowStockAdminAlert(ctx context.Context, product *models.Product, variant *models.ProductVariant, stock int) {
	if product == nil || d.store.AdminEmail == "" {
		return
	}
	d.deliver(ctx, "low_stock_admin", d.store.AdminEmail, lowStockEmail(d.store, product, variant, stock))
}

// deliver sends one email on a detached goroutine. The send uses a background
// context so it survives the request that triggered it.
func (d *dispatcher) deliver(ctx context.Context, kind, to string, content emailContent) {
	if to == "" {
		d.metrics.IncFailed(kind)
		fields := map[string]any{"kind": kind}
		d.logger.Warn(d.logger.WithFields(ctx, fields), "email skipped: no recipient")
		return
	}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				d.metrics.IncFailed(kind)
				fields := map[string]any{"kind": kind, "panic": fmt.Sprint(r)}
				bg := d.logger.WithFields(context.Background(), fields)
				d.logger.Error(bg, "email dispatch panicked", fmt.Errorf("%v", r))
			}
		}()

		_ = d.send(context.Background(), kind, to, content)
	}()
}

func (d *dispatcher) send(ctx context.Context, kind, to string, content emailContent) error {
	_, err := d.sender.Send(ctx, mailer.Message{
		To:      []string{to},
		Subject: content.subject,
		HTML:    content.html,
		Text:    content.text,
	})
	fields := map[string]any{"kind": kind, "recipient": to}
	if err != nil {
		d.metrics.IncFailed(kind)
		d.logger.Error(d.logger.WithFields(ctx, fields), "email dispatch failed", err)
		return err
	}
	d.metrics.IncSent(kind)
	d.logger.Info(d.logger.WithFields(ctx, fields), "email dispatched")
	return nil
}
