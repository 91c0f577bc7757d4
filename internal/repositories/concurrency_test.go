package repositories

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgconn"
	"github.com/poofware/rental-service/internal/models"
	"github.com/poofware/rental-service/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errMissing = errors.New("missing")

// versionedStore simulates a single row guarded by row_version. bumpOnRead
// makes the next N reads race with a concurrent writer.
type versionedStore struct {
	row        *models.Payment
	bumpOnRead int
	writes     int
}

func (s *versionedStore) get(_ context.Context, _ string) (*models.Payment, error) {
	if s.row == nil {
		return nil, nil
	}
	cp := *s.row
	if s.bumpOnRead > 0 {
		s.bumpOnRead--
		s.row.RowVersion++
	}
	return &cp, nil
}

func (s *versionedStore) update(_ context.Context, p *models.Payment, expected int64) (pgconn.CommandTag, error) {
	if s.row.RowVersion != expected {
		return pgconn.CommandTag("UPDATE 0"), nil
	}
	s.writes++
	cp := *p
	cp.RowVersion = expected + 1
	s.row = &cp
	return pgconn.CommandTag("UPDATE 1"), nil
}

func TestWithRetryAppliesMutation(t *testing.T) {
	store := &versionedStore{row: &models.Payment{Status: models.PaymentStatusPending, Versioned: models.Versioned{RowVersion: 1}}}

	err := WithRetry(context.Background(), 3, "p1", errMissing, store.get, store.update, func(p *models.Payment) error {
		p.Status = models.PaymentStatusSucceeded
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusSucceeded, store.row.Status)
	assert.Equal(t, int64(2), store.row.RowVersion)
}

func TestWithRetryRetriesOnVersionConflict(t *testing.T) {
	store := &versionedStore{
		row:        &models.Payment{Status: models.PaymentStatusPending, Versioned: models.Versioned{RowVersion: 1}},
		bumpOnRead: 2,
	}
	calls := 0
	err := WithRetry(context.Background(), 3, "p1", errMissing, store.get, store.update, func(p *models.Payment) error {
		calls++
		p.Status = models.PaymentStatusFailed
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 1, store.writes)
}

func TestWithRetryGivesUpUnderContention(t *testing.T) {
	store := &versionedStore{
		row:        &models.Payment{Versioned: models.Versioned{RowVersion: 1}},
		bumpOnRead: 10,
	}
	err := WithRetry(context.Background(), 3, "p1", errMissing, store.get, store.update, func(*models.Payment) error { return nil })
	require.ErrorIs(t, err, utils.ErrRowVersionConflict)
	assert.Zero(t, store.writes)
}

func TestWithRetryNoChangeSkipsWrite(t *testing.T) {
	store := &versionedStore{row: &models.Payment{Status: models.PaymentStatusSucceeded, Versioned: models.Versioned{RowVersion: 4}}}

	err := WithRetry(context.Background(), 3, "p1", errMissing, store.get, store.update, func(*models.Payment) error {
		return ErrNoChange
	})
	require.NoError(t, err)
	assert.Zero(t, store.writes)
	assert.Equal(t, int64(4), store.row.RowVersion)
}

func TestWithRetryMissingRow(t *testing.T) {
	store := &versionedStore{}
	err := WithRetry(context.Background(), 3, "p1", errMissing, store.get, store.update, func(*models.Payment) error { return nil })
	require.ErrorIs(t, err, errMissing)
}
