package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/craftkart/storefront-backend/api/middleware"
	"github.com/craftkart/storefront-backend/api/responses"
	"github.com/craftkart/storefront-backend/api/validators"
	"github.com/craftkart/storefront-backend/internal/orders"
	"github.com/craftkart/storefront-backend/pkg/enums"
	pkgerrors "github.com/craftkart/storefront-backend/pkg/errors"
	"github.com/craftkart/storefront-backend/pkg/logger"
	"github.com/craftkart/storefront-backend/pkg/pagination"
	"github.com/craftkart/storefront-backend/pkg/types"
)

type orderItemRequest struct {
	ProductID string          `json:"product_id" validate:"required,uuid"`
	VariantID *string         `json:"variant_id,omitempty" validate:"omitempty,uuid"`
	Name      string          `json:"name" validate:"required"`
	SKU       string          `json:"sku" validate:"required"`
	Price     decimal.Decimal `json:"price" validate:"required"`
	Quantity  int             `json:"quantity" validate:"required,gt=0"`
	Size      *string         `json:"size,omitempty"`
	Color     *string         `json:"color,omitempty"`
}

type createOrderRequest struct {
	Items           []orderItemRequest `json:"items" validate:"required,min=1,dive"`
	ShippingAddress types.Address      `json:"shipping_address" validate:"required"`
	BillingAddress  *types.Address     `json:"billing_address,omitempty"`
	Subtotal        decimal.Decimal    `json:"subtotal"`
	Discount        decimal.Decimal    `json:"discount"`
	ShippingCost    decimal.Decimal    `json:"shipping_cost"`
	Tax             decimal.Decimal    `json:"tax"`
	Total           decimal.Decimal    `json:"total" validate:"required"`
	CouponCode      *string            `json:"coupon_code,omitempty"`
}

func (req *createOrderRequest) toInput(userID *uuid.UUID) (orders.CreateOrderInput, error) {
	items := make([]orders.OrderItemInput, 0, len(req.Items))
	for _, item := range req.Items {
		productID, err := uuid.Parse(item.ProductID)
		if err != nil {
			return orders.CreateOrderInput{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid product id")
		}
		var variantID *uuid.UUID
		if item.VariantID != nil {
			id, err := uuid.Parse(*item.VariantID)
			if err != nil {
				return orders.CreateOrderInput{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid variant id")
			}
			variantID = &id
		}
		items = append(items, orders.OrderItemInput{
			ProductID: productID,
			VariantID: variantID,
			Name:      item.Name,
			SKU:       item.SKU,
			Price:     item.Price,
			Quantity:  item.Quantity,
			Size:      item.Size,
			Color:     item.Color,
		})
	}
	return orders.CreateOrderInput{
		UserID:          userID,
		Items:           items,
		ShippingAddress: req.ShippingAddress,
		BillingAddress:  req.BillingAddress,
		Subtotal:        req.Subtotal,
		Discount:        req.Discount,
		ShippingCost:    req.ShippingCost,
		Tax:             req.Tax,
		Total:           req.Total,
		CouponCode:      req.CouponCode,
	}, nil
}

func CreateOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())
		if userID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}

		var req createOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := req.toInput(&userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

func CreateGuestOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := req.toInput(nil)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.CreateGuest(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

type verifyPaymentRequest struct {
	OrderID           string `json:"order_id" validate:"required,uuid"`
	RazorpayOrderID   string `json:"razorpay_order_id" validate:"required"`
	RazorpayPaymentID string `json:"razorpay_payment_id" validate:"required"`
	RazorpaySignature string `json:"razorpay_signature" validate:"required"`
}

func VerifyPayment(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req verifyPaymentRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := uuid.Parse(req.OrderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid order id"))
			return
		}

		order, err := svc.VerifyPayment(r.Context(), orders.VerifyPaymentInput{
			OrderID:        orderID,
			GatewayOrderID: req.RazorpayOrderID,
			PaymentID:      req.RazorpayPaymentID,
			Signature:      req.RazorpaySignature,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

type updateOrderStatusRequest struct {
	Status         string  `json:"status" validate:"required"`
	TrackingNumber *string `json:"tracking_number,omitempty"`
	TrackingURL    *string `json:"tracking_url,omitempty"`
	Note           *string `json:"note,omitempty"`
	NotifyCustomer bool    `json:"notify_customer"`
}

func AdminUpdateOrderStatus(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParsePathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req updateOrderStatusRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enums.ParseOrderStatus(req.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order status"))
			return
		}

		order, err := svc.UpdateStatus(r.Context(), orders.UpdateStatusInput{
			OrderID:        orderID,
			Status:         status,
			TrackingNumber: req.TrackingNumber,
			TrackingURL:    req.TrackingURL,
			Note:           req.Note,
			NotifyCustomer: req.NotifyCustomer,
			ActorID:        middleware.UserIDFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// GuestOrderLookup resolves an order by number + email without authentication.
func GuestOrderLookup(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderNumber := strings.TrimSpace(r.URL.Query().Get("order_number"))
		email := strings.TrimSpace(r.URL.Query().Get("email"))
		if orderNumber == "" || email == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "order_number and email are required"))
			return
		}

		view, err := svc.LookupGuestOrder(r.Context(), orderNumber, email)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func GetOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParsePathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var scope *uuid.UUID
		if middleware.RoleFromContext(r.Context()) != enums.UserRoleAdmin {
			userID := middleware.UserIDFromContext(r.Context())
			scope = &userID
		}

		view, err := svc.Get(r.Context(), orderID, scope)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func ListOrders(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())
		if userID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}

		list, err := svc.ListForUser(r.Context(), userID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}
