package returns

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/craftkart/storefront-backend/pkg/enums"
	"github.com/craftkart/storefront-backend/pkg/types"
)

// CreateReturnInput is the customer-facing return request.
type CreateReturnInput struct {
	OrderID uuid.UUID
	UserID  uuid.UUID
	Reason  enums.ReturnReason
	Details *string
	Items   types.ReturnItemClaims
}

// AdminUpdateInput drives the admin-side return state machine.
type AdminUpdateInput struct {
	ReturnID     uuid.UUID
	Status       enums.ReturnStatus
	RefundAmount *decimal.Decimal
	RefundMethod *string
	AdminNote    *string
	ActorID      uuid.UUID
}
