package abandonedcart

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/craftkart/storefront-backend/internal/notifications"
	"github.com/craftkart/storefront-backend/pkg/config"
	"github.com/craftkart/storefront-backend/pkg/db"
	"github.com/craftkart/storefront-backend/pkg/db/models"
	pkgerrors "github.com/craftkart/storefront-backend/pkg/errors"
	"github.com/craftkart/storefront-backend/pkg/logger"
	"github.com/craftkart/storefront-backend/pkg/types"
)

// CaptureInput is a cart snapshot submitted when a checkout stalls.
type CaptureInput struct {
	Email  string
	UserID *uuid.UUID
	Items  types.CartItemSnapshots
}

// ProcessReport summarizes one recovery batch run.
type ProcessReport struct {
	Scanned int
	Emailed int
	Failed  int
}

// Service manages abandoned cart capture, recovery and the mail batch.
type Service interface {
	Capture(ctx context.Context, input CaptureInput) (*models.AbandonedCart, error)
	Recover(ctx context.Context, token string) (*models.AbandonedCart, error)
	MarkRecovered(ctx context.Context, token string) error
	ProcessAbandonedCarts(ctx context.Context) (*ProcessReport, error)
	SweepExpired(ctx context.Context) (int64, error)
}

type service struct {
	repo       Repository
	dispatcher notifications.Dispatcher
	cfg        config.AbandonedCartConfig
	logger     *logger.Logger
	now        func() time.Time
}

// NewService builds the abandoned cart service.
func NewService(repo Repository, dispatcher notifications.Dispatcher, cfg config.AbandonedCartConfig, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("abandoned cart repository required")
	}
	if dispatcher == nil {
		return nil, fmt.Errorf("notification dispatcher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:       repo,
		dispatcher: dispatcher,
		cfg:        cfg,
		logger:     logg,
		now:        func() time.Time { return time.Now().UTC() },
	}, nil
}

// Capture upserts the live snapshot for an email. A repeat capture replaces
// the items and restarts the recovery window; the partial unique index on
// unrecovered emails resolves the create/create race.
func (s *service) Capture(ctx context.Context, input CaptureInput) (*models.AbandonedCart, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email required")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart must contain at least one item")
	}

	now := s.now()
	existing, err := s.repo.FindLiveByEmail(ctx, email)
	if err != nil && err != gorm.ErrRecordNotFound {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load abandoned cart")
	}
	if existing != nil {
		return s.refresh(ctx, existing, input, now)
	}

	cart := &models.AbandonedCart{
		ID:            uuid.New(),
		Email:         email,
		UserID:        input.UserID,
		Items:         input.Items,
		Subtotal:      input.Items.Subtotal(),
		RecoveryToken: newRecoveryToken(),
		ExpiresAt:     now.Add(s.cfg.Expiry()),
	}
	_, err = s.repo.Create(ctx, cart)
	if err != nil {
		if db.IsUniqueViolation(err, "idx_abandoned_carts_live_per_email") {
			// Lost the race: another capture landed first, refresh that row.
			existing, findErr := s.repo.FindLiveByEmail(ctx, email)
			if findErr != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, findErr, "load abandoned cart")
			}
			return s.refresh(ctx, existing, input, now)
		}
		if db.IsUniqueViolation(err, "idx_abandoned_carts_recovery_token") {
			cart.RecoveryToken = newRecoveryToken()
			if _, err = s.repo.Create(ctx, cart); err == nil {
				return cart, nil
			}
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist abandoned cart")
	}
	return cart, nil
}

func (s *service) refresh(ctx context.Context, cart *models.AbandonedCart, input CaptureInput, now time.Time) (*models.AbandonedCart, error) {
	updates := map[string]any{
		"items":                  input.Items,
		"subtotal":               input.Items.Subtotal(),
		"expires_at":             now.Add(s.cfg.Expiry()),
		"recovery_email_sent":    false,
		"recovery_email_sent_at": nil,
	}
	if input.UserID != nil {
		updates["user_id"] = *input.UserID
	}
	if err := s.repo.Update(ctx, cart.ID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "refresh abandoned cart")
	}

	cart.Items = input.Items
	cart.Subtotal = input.Items.Subtotal()
	cart.ExpiresAt = now.Add(s.cfg.Expiry())
	cart.RecoveryEmailSent = false
	cart.RecoveryEmailSentAt = nil
	if input.UserID != nil {
		cart.UserID = input.UserID
	}
	return cart, nil
}

// Recover resolves a recovery token to its snapshot. An expired token and an
// already-recovered cart are distinct failures so the storefront can render
// the right message.
func (s *service) Recover(ctx context.Context, token string) (*models.AbandonedCart, error) {
	cart, err := s.load(ctx, token)
	if err != nil {
		return nil, err
	}
	return cart, nil
}

// MarkRecovered retires the snapshot once its cart made it through checkout.
func (s *service) MarkRecovered(ctx context.Context, token string) error {
	cart, err := s.load(ctx, token)
	if err != nil {
		return err
	}

	affected, err := s.repo.MarkRecovered(ctx, cart.ID, s.now())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark cart recovered")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "cart already recovered")
	}
	return nil
}

func (s *service) load(ctx context.Context, token string) (*models.AbandonedCart, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "recovery token required")
	}

	cart, err := s.repo.FindByToken(ctx, token)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "recovery link not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load abandoned cart")
	}
	if cart.Recovered {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "cart already recovered")
	}
	if cart.Expired(s.now()) {
		return nil, pkgerrors.New(pkgerrors.CodeExpired, "recovery link expired")
	}
	return cart, nil
}

// ProcessAbandonedCarts emails recovery links for carts idle past the
// threshold. Each cart is marked emailed only after its send succeeded, so a
// crashed run re-sends rather than silently drops. Per-cart failures do not
// stop the batch.
func (s *service) ProcessAbandonedCarts(ctx context.Context) (*ProcessReport, error) {
	now := s.now()
	cutoff := now.Add(-s.cfg.Threshold())

	rows, err := s.repo.ListDue(ctx, cutoff, now, s.cfg.BatchSize)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list due carts")
	}

	report := &ProcessReport{Scanned: len(rows)}
	var errs error
	for i := range rows {
		cart := &rows[i]
		if err := s.dispatcher.CartRecoveryNow(ctx, cart); err != nil {
			report.Failed++
			errs = multierr.Append(errs, fmt.Errorf("cart %s: %w", cart.ID, err))
			continue
		}
		if err := s.repo.MarkEmailSent(ctx, cart.ID, s.now()); err != nil {
			report.Failed++
			errs = multierr.Append(errs, fmt.Errorf("cart %s: mark emailed: %w", cart.ID, err))
			continue
		}
		report.Emailed++
	}

	fields := map[string]any{
		"scanned": report.Scanned,
		"emailed": report.Emailed,
		"failed":  report.Failed,
	}
	s.logger.Info(s.logger.WithFields(ctx, fields), "abandoned cart batch finished")
	return report, errs
}

// SweepExpired deletes unrecovered snapshots past their window.
func (s *service) SweepExpired(ctx context.Context) (int64, error) {
	deleted, err := s.repo.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sweep expired carts")
	}
	if deleted > 0 {
		fields := map[string]any{"deleted": deleted}
		s.logger.Info(s.logger.WithFields(ctx, fields), "expired abandoned carts removed")
	}
	return deleted, nil
}

func newRecoveryToken() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing means the process cannot mint any secret.
		panic(err)
	}
	return hex.EncodeToString(buf)
}
