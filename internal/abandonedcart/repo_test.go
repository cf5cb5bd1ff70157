package abandonedcart

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/craftkart/storefront-backend/pkg/db"
	"github.com/craftkart/storefront-backend/pkg/db/models"
	"github.com/craftkart/storefront-backend/pkg/types"
)

func setupCartTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	ddl := []string{`
CREATE TABLE abandoned_carts (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL,
  user_id TEXT,
  items TEXT NOT NULL,
  subtotal TEXT NOT NULL DEFAULT '0',
  recovery_token TEXT NOT NULL,
  expires_at DATETIME NOT NULL,
  recovered INTEGER NOT NULL DEFAULT 0,
  recovered_at DATETIME,
  recovery_email_sent INTEGER NOT NULL DEFAULT 0,
  recovery_email_sent_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE UNIQUE INDEX idx_abandoned_carts_recovery_token ON abandoned_carts (recovery_token);`, `
CREATE UNIQUE INDEX idx_abandoned_carts_live_per_email
  ON abandoned_carts (email)
  WHERE NOT recovered;`,
	}
	for _, stmt := range ddl {
		require.NoError(t, conn.Exec(stmt).Error)
	}
	return conn
}

func seedCart(email string, expiresAt time.Time) *models.AbandonedCart {
	return &models.AbandonedCart{
		ID:    uuid.New(),
		Email: email,
		Items: types.CartItemSnapshots{{
			ProductID: uuid.NewString(),
			Name:      "Jute Table Runner",
			SKU:       "RUN-JT-01",
			Price:     decimal.RequireFromString("499.00"),
			Quantity:  1,
		}},
		Subtotal:      decimal.RequireFromString("499.00"),
		RecoveryToken: newRecoveryToken(),
		ExpiresAt:     expiresAt,
	}
}

func TestRepoLiveEmailIndexBlocksSecondRow(t *testing.T) {
	repo := NewRepository(setupCartTestDB(t))
	ctx := context.Background()
	future := time.Now().UTC().Add(24 * time.Hour)

	_, err := repo.Create(ctx, seedCart("asha@example.com", future))
	require.NoError(t, err)

	_, err = repo.Create(ctx, seedCart("asha@example.com", future))
	require.Error(t, err)
	assert.True(t, db.IsUniqueViolation(err, ""))

	// A recovered row frees the slot.
	recoveredCart := seedCart("meera@example.com", future)
	recoveredCart.Recovered = true
	_, err = repo.Create(ctx, recoveredCart)
	require.NoError(t, err)
	_, err = repo.Create(ctx, seedCart("meera@example.com", future))
	require.NoError(t, err)
}

func TestRepoFindByToken(t *testing.T) {
	repo := NewRepository(setupCartTestDB(t))
	ctx := context.Background()

	cart := seedCart("asha@example.com", time.Now().UTC().Add(24*time.Hour))
	_, err := repo.Create(ctx, cart)
	require.NoError(t, err)

	found, err := repo.FindByToken(ctx, cart.RecoveryToken)
	require.NoError(t, err)
	assert.Equal(t, cart.ID, found.ID)
	require.Len(t, found.Items, 1)
	assert.Equal(t, "RUN-JT-01", found.Items[0].SKU)

	_, err = repo.FindByToken(ctx, "missing")
	assert.Equal(t, gorm.ErrRecordNotFound, err)
}

func TestRepoMarkRecoveredGuard(t *testing.T) {
	repo := NewRepository(setupCartTestDB(t))
	ctx := context.Background()

	cart := seedCart("asha@example.com", time.Now().UTC().Add(24*time.Hour))
	_, err := repo.Create(ctx, cart)
	require.NoError(t, err)

	affected, err := repo.MarkRecovered(ctx, cart.ID, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	affected, err = repo.MarkRecovered(ctx, cart.ID, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, int64(0), affected)
}

func TestRepoListDueFilters(t *testing.T) {
	repo := NewRepository(setupCartTestDB(t))
	ctx := context.Background()
	now := time.Now().UTC()
	future := now.Add(24 * time.Hour)

	due := seedCart("due@example.com", future)
	_, err := repo.Create(ctx, due)
	require.NoError(t, err)

	fresh := seedCart("fresh@example.com", future)
	_, err = repo.Create(ctx, fresh)
	require.NoError(t, err)

	emailed := seedCart("emailed@example.com", future)
	emailed.RecoveryEmailSent = true
	_, err = repo.Create(ctx, emailed)
	require.NoError(t, err)

	expired := seedCart("expired@example.com", now.Add(-time.Hour))
	_, err = repo.Create(ctx, expired)
	require.NoError(t, err)

	// Age only the due and expired rows past the threshold.
	old := now.Add(-6 * time.Hour)
	for _, id := range []uuid.UUID{due.ID, expired.ID} {
		require.NoError(t, repo.(*repository).db.Exec(
			"UPDATE abandoned_carts SET updated_at = ? WHERE id = ?", old, id).Error)
	}

	rows, err := repo.ListDue(ctx, now.Add(-4*time.Hour), now, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "due@example.com", rows[0].Email)
}

func TestRepoDeleteExpired(t *testing.T) {
	repo := NewRepository(setupCartTestDB(t))
	ctx := context.Background()
	now := time.Now().UTC()

	_, err := repo.Create(ctx, seedCart("old@example.com", now.Add(-time.Hour)))
	require.NoError(t, err)
	_, err = repo.Create(ctx, seedCart("fresh@example.com", now.Add(24*time.Hour)))
	require.NoError(t, err)

	deleted, err := repo.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
}
