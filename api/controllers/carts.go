package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/craftkart/storefront-backend/api/middleware"
	"github.com/craftkart/storefront-backend/api/responses"
	"github.com/craftkart/storefront-backend/api/validators"
	"github.com/craftkart/storefront-backend/internal/abandonedcart"
	pkgerrors "github.com/craftkart/storefront-backend/pkg/errors"
	"github.com/craftkart/storefront-backend/pkg/logger"
	"github.com/craftkart/storefront-backend/pkg/types"
)

type cartItemRequest struct {
	ProductID string          `json:"product_id" validate:"required,uuid"`
	VariantID *string         `json:"variant_id,omitempty" validate:"omitempty,uuid"`
	Name      string          `json:"name" validate:"required"`
	SKU       string          `json:"sku" validate:"required"`
	Price     decimal.Decimal `json:"price" validate:"required"`
	Quantity  int             `json:"quantity" validate:"required,gt=0"`
	ImageURL  string          `json:"image_url,omitempty"`
}

type captureCartRequest struct {
	Email string            `json:"email" validate:"required,email"`
	Items []cartItemRequest `json:"items" validate:"required,min=1,dive"`
}

// CaptureAbandonedCart snapshots a stalled checkout for recovery mail. Works
// for both guests and signed-in customers.
func CaptureAbandonedCart(svc abandonedcart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req captureCartRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make(types.CartItemSnapshots, 0, len(req.Items))
		for _, item := range req.Items {
			items = append(items, types.CartItemSnapshot{
				ProductID: item.ProductID,
				VariantID: item.VariantID,
				Name:      item.Name,
				SKU:       item.SKU,
				Price:     item.Price,
				Quantity:  item.Quantity,
				ImageURL:  item.ImageURL,
			})
		}

		var userID *uuid.UUID
		if id := middleware.UserIDFromContext(r.Context()); id != uuid.Nil {
			userID = &id
		}

		cart, err := svc.Capture(r.Context(), abandonedcart.CaptureInput{
			Email:  req.Email,
			UserID: userID,
			Items:  items,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{
			"id":         cart.ID,
			"expires_at": cart.ExpiresAt,
		})
	}
}

// RecoverCart resolves a recovery token back into the cart snapshot.
func RecoverCart(svc abandonedcart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimSpace(r.URL.Query().Get("token"))
		if token == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "token is required"))
			return
		}

		cart, err := svc.Recover(r.Context(), token)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"email":    cart.Email,
			"items":    cart.Items,
			"subtotal": cart.Subtotal,
		})
	}
}

type markRecoveredRequest struct {
	Token string `json:"token" validate:"required"`
}

// MarkCartRecovered retires a snapshot after its cart completed checkout.
func MarkCartRecovered(svc abandonedcart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req markRecoveredRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.MarkRecovered(r.Context(), req.Token); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "recovered"})
	}
}
