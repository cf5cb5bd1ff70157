package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/craftkart/storefront-backend/api/middleware"
	"github.com/craftkart/storefront-backend/api/responses"
	"github.com/craftkart/storefront-backend/api/validators"
	"github.com/craftkart/storefront-backend/internal/returns"
	"github.com/craftkart/storefront-backend/pkg/enums"
	pkgerrors "github.com/craftkart/storefront-backend/pkg/errors"
	"github.com/craftkart/storefront-backend/pkg/logger"
	"github.com/craftkart/storefront-backend/pkg/types"
)

type returnItemClaimRequest struct {
	OrderItemID string `json:"order_item_id" validate:"required,uuid"`
	Quantity    int    `json:"quantity" validate:"required,gt=0"`
	Reason      string `json:"reason,omitempty"`
}

type createReturnRequest struct {
	OrderID string                   `json:"order_id" validate:"required,uuid"`
	Reason  string                   `json:"reason" validate:"required"`
	Details *string                  `json:"details,omitempty"`
	Items   []returnItemClaimRequest `json:"items" validate:"required,min=1,dive"`
}

func CreateReturn(svc returns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())
		if userID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}

		var req createReturnRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := uuid.Parse(req.OrderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid order id"))
			return
		}
		reason, err := enums.ParseReturnReason(req.Reason)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid return reason"))
			return
		}

		claims := make(types.ReturnItemClaims, 0, len(req.Items))
		for _, item := range req.Items {
			claims = append(claims, types.ReturnItemClaim{
				OrderItemID: item.OrderItemID,
				Quantity:    item.Quantity,
				Reason:      item.Reason,
			})
		}

		ret, err := svc.Create(r.Context(), returns.CreateReturnInput{
			OrderID: orderID,
			UserID:  userID,
			Reason:  reason,
			Details: req.Details,
			Items:   claims,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, ret)
	}
}

type adminUpdateReturnRequest struct {
	Status       string           `json:"status" validate:"required"`
	RefundAmount *decimal.Decimal `json:"refund_amount,omitempty"`
	RefundMethod *string          `json:"refund_method,omitempty"`
	AdminNote    *string          `json:"admin_note,omitempty"`
}

func AdminUpdateReturn(svc returns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		returnID, err := validators.ParsePathUUID(r, "returnId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req adminUpdateReturnRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enums.ParseReturnStatus(req.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid return status"))
			return
		}

		ret, err := svc.AdminUpdateStatus(r.Context(), returns.AdminUpdateInput{
			ReturnID:     returnID,
			Status:       status,
			RefundAmount: req.RefundAmount,
			RefundMethod: req.RefundMethod,
			AdminNote:    req.AdminNote,
			ActorID:      middleware.UserIDFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, ret)
	}
}

func GetReturn(svc returns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		returnID, err := validators.ParsePathUUID(r, "returnId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		scope := middleware.UserIDFromContext(r.Context())
		if middleware.RoleFromContext(r.Context()) == enums.UserRoleAdmin {
			scope = uuid.Nil
		}

		ret, err := svc.Get(r.Context(), returnID, scope)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, ret)
	}
}

func ListReturns(svc returns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())
		if userID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}

		rows, err := svc.ListForUser(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}
