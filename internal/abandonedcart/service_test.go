package abandonedcart

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/craftkart/storefront-backend/pkg/config"
	"github.com/craftkart/storefront-backend/pkg/db/models"
	pkgerrors "github.com/craftkart/storefront-backend/pkg/errors"
	"github.com/craftkart/storefront-backend/pkg/logger"
	"github.com/craftkart/storefront-backend/pkg/types"
)

type stubCartRepo struct {
	carts map[uuid.UUID]*models.AbandonedCart
}

func newStubCartRepo() *stubCartRepo {
	return &stubCartRepo{carts: make(map[uuid.UUID]*models.AbandonedCart)}
}

func (s *stubCartRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubCartRepo) Create(ctx context.Context, cart *models.AbandonedCart) (*models.AbandonedCart, error) {
	for _, existing := range s.carts {
		if existing.Email == cart.Email && !existing.Recovered {
			return nil, fmt.Errorf(`duplicate key value violates unique constraint "idx_abandoned_carts_live_per_email"`)
		}
	}
	clone := *cart
	clone.UpdatedAt = time.Now().UTC()
	s.carts[cart.ID] = &clone
	return cart, nil
}

func (s *stubCartRepo) FindLiveByEmail(ctx context.Context, email string) (*models.AbandonedCart, error) {
	for _, cart := range s.carts {
		if cart.Email == email && !cart.Recovered {
			clone := *cart
			return &clone, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubCartRepo) FindByToken(ctx context.Context, token string) (*models.AbandonedCart, error) {
	for _, cart := range s.carts {
		if cart.RecoveryToken == token {
			clone := *cart
			return &clone, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubCartRepo) Update(ctx context.Context, cartID uuid.UUID, updates map[string]any) error {
	cart, ok := s.carts[cartID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if items, ok := updates["items"].(types.CartItemSnapshots); ok {
		cart.Items = items
	}
	if subtotal, ok := updates["subtotal"].(decimal.Decimal); ok {
		cart.Subtotal = subtotal
	}
	if expiresAt, ok := updates["expires_at"].(time.Time); ok {
		cart.ExpiresAt = expiresAt
	}
	if sent, ok := updates["recovery_email_sent"].(bool); ok {
		cart.RecoveryEmailSent = sent
	}
	if _, ok := updates["recovery_email_sent_at"]; ok {
		cart.RecoveryEmailSentAt = nil
	}
	cart.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *stubCartRepo) ListDue(ctx context.Context, cutoff, now time.Time, limit int) ([]models.AbandonedCart, error) {
	var out []models.AbandonedCart
	for _, cart := range s.carts {
		if cart.Recovered || cart.RecoveryEmailSent {
			continue
		}
		if cart.UpdatedAt.After(cutoff) || !cart.ExpiresAt.After(now) {
			continue
		}
		out = append(out, *cart)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *stubCartRepo) MarkEmailSent(ctx context.Context, cartID uuid.UUID, at time.Time) error {
	cart, ok := s.carts[cartID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	cart.RecoveryEmailSent = true
	cart.RecoveryEmailSentAt = &at
	return nil
}

func (s *stubCartRepo) MarkRecovered(ctx context.Context, cartID uuid.UUID, at time.Time) (int64, error) {
	cart, ok := s.carts[cartID]
	if !ok || cart.Recovered {
		return 0, nil
	}
	cart.Recovered = true
	cart.RecoveredAt = &at
	return 1, nil
}

func (s *stubCartRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	var deleted int64
	for id, cart := range s.carts {
		if !cart.Recovered && !cart.ExpiresAt.After(now) {
			delete(s.carts, id)
			deleted++
		}
	}
	return deleted, nil
}

type recordingDispatcher struct {
	recovered []string
	sendErr   error
	failFor   map[string]error
}

func (d *recordingDispatcher) OrderConfirmed(ctx context.Context, order *models.Order)     {}
func (d *recordingDispatcher) OrderShipped(ctx context.Context, order *models.Order)       {}
func (d *recordingDispatcher) OrderDelivered(ctx context.Context, order *models.Order)     {}
func (d *recordingDispatcher) OrderCancelled(ctx context.Context, order *models.Order)     {}
func (d *recordingDispatcher) NewOrderAdminAlert(ctx context.Context, order *models.Order) {}
func (d *recordingDispatcher) ReturnRequested(ctx context.Context, ret *models.OrderReturn, order *models.Order) {
}
func (d *recordingDispatcher) ReturnStatusChanged(ctx context.Context, ret *models.OrderReturn, order *models.Order) {
}
func (d *recordingDispatcher) CartRecovery(ctx context.Context, cart *models.AbandonedCart) {}
func (d *recordingDispatcher) CartRecoveryNow(ctx context.Context, cart *models.AbandonedCart) error {
	if err, ok := d.failFor[cart.Email]; ok {
		return err
	}
	if d.sendErr != nil {
		return d.sendErr
	}
	d.recovered = append(d.recovered, cart.Email)
	return nil
}
func (d *recordingDispatcher) LowStockAdminAlert(ctx context.Context, product *models.Product, variant *models.ProductVariant, stock int) {
}

type cartFixture struct {
	repo       *stubCartRepo
	dispatcher *recordingDispatcher
	svc        *service
}

func newCartFixture(t *testing.T) *cartFixture {
	t.Helper()

	logg := logger.New(logger.Options{ServiceName: "abandonedcart-test", Output: io.Discard})

	f := &cartFixture{
		repo:       newStubCartRepo(),
		dispatcher: &recordingDispatcher{},
	}
	svc, err := NewService(f.repo, f.dispatcher, config.AbandonedCartConfig{
		ThresholdHours: 4,
		BatchSize:      50,
		ExpiryDays:     7,
	}, logg)
	require.NoError(t, err)
	f.svc = svc.(*service)
	return f
}

func sampleItems() types.CartItemSnapshots {
	return types.CartItemSnapshots{{
		ProductID: uuid.NewString(),
		Name:      "Block Print Cushion Cover",
		SKU:       "CUSH-BP-01",
		Price:     decimal.RequireFromString("349.00"),
		Quantity:  2,
	}}
}

func TestCaptureCreatesSnapshot(t *testing.T) {
	f := newCartFixture(t)

	cart, err := f.svc.Capture(context.Background(), CaptureInput{
		Email: "  Asha.Rao@Example.com ",
		Items: sampleItems(),
	})
	require.NoError(t, err)

	assert.Equal(t, "asha.rao@example.com", cart.Email)
	assert.Len(t, cart.RecoveryToken, 32)
	assert.True(t, cart.Subtotal.Equal(decimal.RequireFromString("698.00")))
	assert.WithinDuration(t, time.Now().UTC().Add(7*24*time.Hour), cart.ExpiresAt, time.Minute)
}

func TestCaptureUpsertsLiveRow(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()

	first, err := f.svc.Capture(ctx, CaptureInput{Email: "asha@example.com", Items: sampleItems()})
	require.NoError(t, err)

	newItems := sampleItems()
	newItems[0].Quantity = 5
	second, err := f.svc.Capture(ctx, CaptureInput{Email: "asha@example.com", Items: newItems})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.RecoveryToken, second.RecoveryToken)
	assert.True(t, second.Subtotal.Equal(decimal.RequireFromString("1745.00")))
	assert.Len(t, f.repo.carts, 1)
}

func TestCaptureValidation(t *testing.T) {
	f := newCartFixture(t)

	_, err := f.svc.Capture(context.Background(), CaptureInput{Email: "", Items: sampleItems()})
	require.NotNil(t, pkgerrors.As(err))
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	_, err = f.svc.Capture(context.Background(), CaptureInput{Email: "a@b.com"})
	require.NotNil(t, pkgerrors.As(err))
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestRecoverDistinguishesExpiredFromRecovered(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()

	cart, err := f.svc.Capture(ctx, CaptureInput{Email: "asha@example.com", Items: sampleItems()})
	require.NoError(t, err)

	// Live token resolves.
	found, err := f.svc.Recover(ctx, cart.RecoveryToken)
	require.NoError(t, err)
	assert.Equal(t, cart.ID, found.ID)

	// Unknown token.
	_, err = f.svc.Recover(ctx, "deadbeefdeadbeefdeadbeefdeadbeef")
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())

	// Expired token.
	f.repo.carts[cart.ID].ExpiresAt = time.Now().UTC().Add(-time.Hour)
	_, err = f.svc.Recover(ctx, cart.RecoveryToken)
	assert.Equal(t, pkgerrors.CodeExpired, pkgerrors.As(err).Code())

	// Recovered wins over expired.
	f.repo.carts[cart.ID].Recovered = true
	_, err = f.svc.Recover(ctx, cart.RecoveryToken)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())
}

func TestMarkRecoveredIsOneShot(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()

	cart, err := f.svc.Capture(ctx, CaptureInput{Email: "asha@example.com", Items: sampleItems()})
	require.NoError(t, err)

	require.NoError(t, f.svc.MarkRecovered(ctx, cart.RecoveryToken))

	err = f.svc.MarkRecovered(ctx, cart.RecoveryToken)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())
}

func TestProcessAbandonedCartsMarksEmailedAfterSend(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()

	cart, err := f.svc.Capture(ctx, CaptureInput{Email: "asha@example.com", Items: sampleItems()})
	require.NoError(t, err)
	// Age the row past the threshold.
	f.repo.carts[cart.ID].UpdatedAt = time.Now().UTC().Add(-5 * time.Hour)

	report, err := f.svc.ProcessAbandonedCarts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Scanned)
	assert.Equal(t, 1, report.Emailed)
	assert.Equal(t, []string{"asha@example.com"}, f.dispatcher.recovered)
	assert.True(t, f.repo.carts[cart.ID].RecoveryEmailSent)

	// A second run finds nothing due.
	report, err = f.svc.ProcessAbandonedCarts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Scanned)
}

func TestProcessAbandonedCartsContinuesPastFailures(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()
	f.dispatcher.failFor = map[string]error{"broken@example.com": fmt.Errorf("smtp down")}

	past := time.Now().UTC().Add(-5 * time.Hour)
	for _, email := range []string{"broken@example.com", "fine@example.com"} {
		cart, err := f.svc.Capture(ctx, CaptureInput{Email: email, Items: sampleItems()})
		require.NoError(t, err)
		f.repo.carts[cart.ID].UpdatedAt = past
	}

	report, err := f.svc.ProcessAbandonedCarts(ctx)
	require.Error(t, err)
	assert.Equal(t, 2, report.Scanned)
	assert.Equal(t, 1, report.Emailed)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, []string{"fine@example.com"}, f.dispatcher.recovered)

	// The failed cart stays due for the next run.
	report, err = f.svc.ProcessAbandonedCarts(ctx)
	require.Error(t, err)
	assert.Equal(t, 1, report.Scanned)
}

func TestSweepExpiredDeletesOnlyExpiredUnrecovered(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()

	expired, err := f.svc.Capture(ctx, CaptureInput{Email: "old@example.com", Items: sampleItems()})
	require.NoError(t, err)
	f.repo.carts[expired.ID].ExpiresAt = time.Now().UTC().Add(-time.Hour)

	_, err = f.svc.Capture(ctx, CaptureInput{Email: "fresh@example.com", Items: sampleItems()})
	require.NoError(t, err)

	deleted, err := f.svc.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
	assert.Len(t, f.repo.carts, 1)
}
