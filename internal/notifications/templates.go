package notifications

import (
	"fmt"
	"strings"

	"github.com/craftkart/storefront-backend/pkg/config"
	"github.com/craftkart/storefront-backend/pkg/db/models"
)

type emailContent struct {
	subject string
	html    string
	text    string
}

func orderConfirmedEmail(store config.StoreConfig, order *models.Order) emailContent {
	var items strings.Builder
	for _, item := range order.Items {
		fmt.Fprintf(&items, "<li>%s × %d - ₹%s</li>", item.Name, item.Quantity, item.Total.StringFixed(2))
	}
	return emailContent{
		subject: fmt.Sprintf("Order %s confirmed - %s", order.OrderNumber, store.Name),
		html: fmt.Sprintf(
			"<h2>Thanks for your order!</h2><p>Your order <strong>%s</strong> has been confirmed.</p><ul>%s</ul><p>Total: <strong>₹%s</strong></p><p>Track it anytime at %s/orders/%s</p>",
			order.OrderNumber, items.String(), order.Total.StringFixed(2), store.BaseURL, order.OrderNumber,
		),
		text: fmt.Sprintf("Your order %s has been confirmed. Total: ₹%s.", order.OrderNumber, order.Total.StringFixed(2)),
	}
}

func orderShippedEmail(store config.StoreConfig, order *models.Order) emailContent {
	tracking := ""
	if order.TrackingNumber != nil && *order.TrackingNumber != "" {
		tracking = fmt.Sprintf("<p>Tracking number: <strong>%s</strong></p>", *order.TrackingNumber)
		if order.TrackingURL != nil && *order.TrackingURL != "" {
			tracking += fmt.Sprintf(`<p><a href="%s">Track your shipment</a></p>`, *order.TrackingURL)
		}
	}
	return emailContent{
		subject: fmt.Sprintf("Order %s is on its way - %s", order.OrderNumber, store.Name),
		html: fmt.Sprintf(
			"<h2>Your order has shipped</h2><p>Order <strong>%s</strong> is on its way.</p>%s",
			order.OrderNumber, tracking,
		),
		text: fmt.Sprintf("Your order %s has shipped.", order.OrderNumber),
	}
}

func orderDeliveredEmail(store config.StoreConfig, order *models.Order) emailContent {
	return emailContent{
		subject: fmt.Sprintf("Order %s delivered - %s", order.OrderNumber, store.Name),
		html: fmt.Sprintf(
			"<h2>Delivered!</h2><p>Order <strong>%s</strong> was delivered. We hope you love it.</p><p>Questions? Write to %s.</p>",
			order.OrderNumber, store.SupportEmail,
		),
		text: fmt.Sprintf("Your order %s was delivered.", order.OrderNumber),
	}
}

func orderCancelledEmail(store config.StoreConfig, order *models.Order) emailContent {
	return emailContent{
		subject: fmt.Sprintf("Order %s cancelled - %s", order.OrderNumber, store.Name),
		html: fmt.Sprintf(
			"<h2>Order cancelled</h2><p>Order <strong>%s</strong> has been cancelled. If you were charged, the refund will reach you within 5-7 business days.</p>",
			order.OrderNumber,
		),
		text: fmt.Sprintf("Your order %s has been cancelled.", order.OrderNumber),
	}
}

func newOrderAdminEmail(store config.StoreConfig, order *models.Order) emailContent {
	return emailContent{
		subject: fmt.Sprintf("New order %s - ₹%s", order.OrderNumber, order.Total.StringFixed(2)),
		html: fmt.Sprintf(
			"<p>New paid order <strong>%s</strong> for ₹%s (%d items).</p><p>Customer: %s</p>",
			order.OrderNumber, order.Total.StringFixed(2), len(order.Items), order.CustomerEmail(),
		),
		text: fmt.Sprintf("New paid order %s for ₹%s.", order.OrderNumber, order.Total.StringFixed(2)),
	}
}

func returnRequestedEmail(store config.StoreConfig, ret *models.OrderReturn, order *models.Order) emailContent {
	return emailContent{
		subject: fmt.Sprintf("Return %s received - %s", ret.ReturnNumber, store.Name),
		html: fmt.Sprintf(
			"<h2>We received your return request</h2><p>Return <strong>%s</strong> for order %s is being reviewed. We'll email you once it is approved.</p>",
			ret.ReturnNumber, order.OrderNumber,
		),
		text: fmt.Sprintf("Return %s for order %s is being reviewed.", ret.ReturnNumber, order.OrderNumber),
	}
}

func returnRequestedAdminEmail(store config.StoreConfig, ret *models.OrderReturn, order *models.Order) emailContent {
	return emailContent{
		subject: fmt.Sprintf("Return requested: %s (order %s)", ret.ReturnNumber, order.OrderNumber),
		html: fmt.Sprintf(
			"<p>Return <strong>%s</strong> requested against order %s. Reason: %s.</p>",
			ret.ReturnNumber, order.OrderNumber, ret.Reason,
		),
		text: fmt.Sprintf("Return %s requested against order %s.", ret.ReturnNumber, order.OrderNumber),
	}
}

func returnStatusEmail(store config.StoreConfig, ret *models.OrderReturn, order *models.Order) emailContent {
	extra := ""
	if ret.RefundAmount != nil {
		extra = fmt.Sprintf("<p>Refund amount: <strong>₹%s</strong></p>", ret.RefundAmount.StringFixed(2))
	}
	return emailContent{
		subject: fmt.Sprintf("Return %s update: %s - %s", ret.ReturnNumber, ret.Status, store.Name),
		html: fmt.Sprintf(
			"<h2>Return update</h2><p>Return <strong>%s</strong> for order %s is now <strong>%s</strong>.</p>%s",
			ret.ReturnNumber, order.OrderNumber, ret.Status, extra,
		),
		text: fmt.Sprintf("Return %s is now %s.", ret.ReturnNumber, ret.Status),
	}
}

func cartRecoveryEmail(store config.StoreConfig, cart *models.AbandonedCart) emailContent {
	var items strings.Builder
	for _, item := range cart.Items {
		fmt.Fprintf(&items, "<li>%s × %d - ₹%s</li>", item.Name, item.Quantity, item.Price.StringFixed(2))
	}
	link := fmt.Sprintf("%s/cart/recover?token=%s", store.BaseURL, cart.RecoveryToken)
	return emailContent{
		subject: fmt.Sprintf("You left something behind - %s", store.Name),
		html: fmt.Sprintf(
			`<h2>Your cart is waiting</h2><ul>%s</ul><p>Subtotal: <strong>₹%s</strong></p><p><a href="%s">Pick up where you left off</a></p>`,
			items.String(), cart.Subtotal.StringFixed(2), link,
		),
		text: fmt.Sprintf("Your cart (₹%s) is waiting: %s", cart.Subtotal.StringFixed(2), link),
	}
}

func lowStockEmail(store config.StoreConfig, product *models.Product, variant *models.ProductVariant, stock int) emailContent {
	label := product.Name
	if variant != nil {
		label = fmt.Sprintf("%s (%s)", product.Name, variant.SKU)
	}
	return emailContent{
		subject: fmt.Sprintf("Low stock: %s (%d left)", label, stock),
		html: fmt.Sprintf(
			"<p><strong>%s</strong> is down to %d units. Restock soon to avoid overselling.</p>",
			label, stock,
		),
		text: fmt.Sprintf("%s is down to %d units.", label, stock),
	}
}
