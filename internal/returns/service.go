package returns

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/craftkart/storefront-backend/internal/notifications"
	"github.com/craftkart/storefront-backend/internal/orders"
	"github.com/craftkart/storefront-backend/pkg/config"
	"github.com/craftkart/storefront-backend/pkg/db"
	"github.com/craftkart/storefront-backend/pkg/db/models"
	"github.com/craftkart/storefront-backend/pkg/enums"
	pkgerrors "github.com/craftkart/storefront-backend/pkg/errors"
	"github.com/craftkart/storefront-backend/pkg/refnum"
	"github.com/craftkart/storefront-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service runs the return workflow attached to delivered orders.
type Service interface {
	Create(ctx context.Context, input CreateReturnInput) (*models.OrderReturn, error)
	AdminUpdateStatus(ctx context.Context, input AdminUpdateInput) (*models.OrderReturn, error)
	Get(ctx context.Context, returnID, userID uuid.UUID) (*models.OrderReturn, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]models.OrderReturn, error)
}

type service struct {
	repo       Repository
	ordersRepo orders.Repository
	tx         txRunner
	dispatcher notifications.Dispatcher
	store      config.StoreConfig
	now        func() time.Time
}

// NewService builds the returns workflow with its dependencies.
func NewService(repo Repository, ordersRepo orders.Repository, tx txRunner, dispatcher notifications.Dispatcher, store config.StoreConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("returns repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if dispatcher == nil {
		return nil, fmt.Errorf("notification dispatcher required")
	}
	return &service{
		repo:       repo,
		ordersRepo: ordersRepo,
		tx:         tx,
		dispatcher: dispatcher,
		store:      store,
		now:        func() time.Time { return time.Now().UTC() },
	}, nil
}

// Create opens a return against a delivered order the caller owns. The
// partial unique index on open returns is the duplicate gate: a second open
// return for the same order surfaces as a conflict regardless of timing.
func (s *service) Create(ctx context.Context, input CreateReturnInput) (*models.OrderReturn, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !input.Reason.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid return reason")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "return must claim at least one item")
	}

	order, err := s.ordersRepo.FindByID(ctx, input.OrderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.UserID == nil || *order.UserID != input.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to user")
	}
	if order.Status != enums.OrderStatusDelivered {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "returns can only be opened for delivered orders")
	}
	if err := validateClaims(input.Items, order.Items); err != nil {
		return nil, err
	}

	ret := &models.OrderReturn{
		ID:           uuid.New(),
		ReturnNumber: refnum.Generate(s.store.ReturnPrefix, s.now()),
		OrderID:      order.ID,
		UserID:       input.UserID,
		Reason:       input.Reason,
		Details:      input.Details,
		Items:        input.Items,
		Status:       enums.ReturnStatusRequested,
	}

	err = s.persistReturn(ctx, ret, order)
	if err != nil {
		if db.IsUniqueViolation(err, "idx_order_returns_open_per_order") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "a return is already open for this order")
		}
		if db.IsUniqueViolation(err, "idx_order_returns_return_number") {
			// Number collision: regenerate once and retry.
			ret.ReturnNumber = refnum.Generate(s.store.ReturnPrefix, s.now())
			err = s.persistReturn(ctx, ret, order)
			if db.IsUniqueViolation(err, "idx_order_returns_open_per_order") {
				return nil, pkgerrors.New(pkgerrors.CodeConflict, "a return is already open for this order")
			}
		}
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist return")
		}
	}

	s.dispatcher.ReturnRequested(ctx, ret, order)
	return ret, nil
}

func (s *service) persistReturn(ctx context.Context, ret *models.OrderReturn, order *models.Order) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.Create(ctx, ret); err != nil {
			return err
		}

		actor := ret.UserID
		return s.ordersRepo.WithTx(tx).AppendTimeline(ctx, &models.OrderTimeline{
			ID:          uuid.New(),
			OrderID:     order.ID,
			Type:        enums.TimelineEntryNote,
			Title:       "Return requested",
			Description: fmt.Sprintf("Return %s opened (%s)", ret.ReturnNumber, ret.Reason),
			Metadata:    types.JSONMap{"return_number": ret.ReturnNumber, "reason": ret.Reason.String()},
			IsPublic:    true,
			CreatedBy:   &actor,
		})
	})
}

func validateClaims(claims types.ReturnItemClaims, items []models.OrderItem) error {
	quantities := make(map[string]int, len(items))
	for _, item := range items {
		quantities[item.ID.String()] = item.Quantity
	}
	for _, claim := range claims {
		ordered, ok := quantities[claim.OrderItemID]
		if !ok {
			return pkgerrors.New(pkgerrors.CodeValidation, "claimed item does not belong to this order")
		}
		if claim.Quantity <= 0 || claim.Quantity > ordered {
			return pkgerrors.New(pkgerrors.CodeValidation, "claimed quantity exceeds ordered quantity")
		}
	}
	return nil
}

// AdminUpdateStatus walks the return state machine. Approval and completion
// timestamps are stamped on first entry only; admin notes are append-only
// with a timestamp prefix; refund fields persist when supplied.
func (s *service) AdminUpdateStatus(ctx context.Context, input AdminUpdateInput) (*models.OrderReturn, error) {
	if input.ReturnID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "return id required")
	}
	if !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid return status")
	}

	ret, err := s.repo.FindByID(ctx, input.ReturnID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "return not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load return")
	}

	if ret.Status != input.Status && !CanTransition(ret.Status, input.Status) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("cannot transition return from %s to %s", ret.Status, input.Status)).
			WithDetails(map[string]string{"from": ret.Status.String(), "to": input.Status.String()})
	}

	previous := ret.Status
	now := s.now()
	updates := map[string]any{"status": input.Status}

	if input.RefundAmount != nil {
		updates["refund_amount"] = *input.RefundAmount
		ret.RefundAmount = input.RefundAmount
	}
	if input.RefundMethod != nil {
		updates["refund_method"] = *input.RefundMethod
		ret.RefundMethod = input.RefundMethod
	}
	if input.AdminNote != nil && strings.TrimSpace(*input.AdminNote) != "" {
		note := fmt.Sprintf("[%s] %s", now.Format(time.RFC3339), strings.TrimSpace(*input.AdminNote))
		if ret.AdminNotes != nil && *ret.AdminNotes != "" {
			note = *ret.AdminNotes + "\n" + note
		}
		updates["admin_notes"] = note
		ret.AdminNotes = &note
	}
	if input.Status == enums.ReturnStatusApproved && ret.ApprovedAt == nil {
		actor := input.ActorID
		updates["approved_by"] = actor
		updates["approved_at"] = now
		ret.ApprovedBy = &actor
		ret.ApprovedAt = &now
	}
	if input.Status == enums.ReturnStatusCompleted && ret.CompletedAt == nil {
		updates["completed_at"] = now
		ret.CompletedAt = &now
	}

	statusChanged := previous != input.Status
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Update(ctx, ret.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update return")
		}
		if !statusChanged {
			return nil
		}

		actor := input.ActorID
		return s.ordersRepo.WithTx(tx).AppendTimeline(ctx, &models.OrderTimeline{
			ID:          uuid.New(),
			OrderID:     ret.OrderID,
			Type:        enums.TimelineEntryNote,
			Title:       fmt.Sprintf("Return %s", input.Status),
			Description: fmt.Sprintf("Return %s moved from %s to %s", ret.ReturnNumber, previous, input.Status),
			Metadata:    types.JSONMap{"return_number": ret.ReturnNumber, "from": previous.String(), "to": input.Status.String()},
			IsPublic:    true,
			CreatedBy:   &actor,
		})
	})
	if err != nil {
		return nil, err
	}

	ret.Status = input.Status
	if statusChanged {
		switch input.Status {
		case enums.ReturnStatusApproved, enums.ReturnStatusRejected, enums.ReturnStatusRefunded:
			if order, err := s.ordersRepo.FindByID(ctx, ret.OrderID); err == nil {
				s.dispatcher.ReturnStatusChanged(ctx, ret, order)
			}
		}
	}
	return ret, nil
}

func (s *service) Get(ctx context.Context, returnID, userID uuid.UUID) (*models.OrderReturn, error) {
	if returnID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "return id required")
	}

	ret, err := s.repo.FindByID(ctx, returnID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "return not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load return")
	}
	// uuid.Nil means an admin read.
	if userID != uuid.Nil && ret.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "return not found")
	}
	return ret, nil
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.OrderReturn, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	rows, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list returns")
	}
	return rows, nil
}
