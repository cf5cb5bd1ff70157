package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/craftkart/storefront-backend/api/responses"
	"github.com/craftkart/storefront-backend/api/validators"
	"github.com/craftkart/storefront-backend/internal/inventory"
	pkgerrors "github.com/craftkart/storefront-backend/pkg/errors"
	"github.com/craftkart/storefront-backend/pkg/logger"
)

type subscribeAlertRequest struct {
	ProductID string  `json:"product_id" validate:"required,uuid"`
	VariantID *string `json:"variant_id,omitempty" validate:"omitempty,uuid"`
	Threshold int     `json:"threshold" validate:"required,gt=0"`
}

// AdminSubscribeInventoryAlert registers a low-stock alert subscription.
func AdminSubscribeInventoryAlert(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req subscribeAlertRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		productID, err := uuid.Parse(req.ProductID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid product id"))
			return
		}
		var variantID *uuid.UUID
		if req.VariantID != nil {
			id, err := uuid.Parse(*req.VariantID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid variant id"))
				return
			}
			variantID = &id
		}

		alert, err := svc.SubscribeAlert(r.Context(), productID, variantID, req.Threshold)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, alert)
	}
}
