package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/poofware/rental-service/internal/models"
	"github.com/poofware/rental-service/internal/utils"
)

type LeaseRepository interface {
	// CreateClaimingUnit inserts the lease and flips its unit to occupied
	// in one transaction. With a nil unitID the first available unit is
	// claimed. On success l.UnitID holds the claimed unit.
	CreateClaimingUnit(ctx context.Context, l *models.Lease, unitID *uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Lease, error)
	ListAll(ctx context.Context) ([]*models.Lease, error)
	ListByTenantID(ctx context.Context, tenantID uuid.UUID) ([]*models.Lease, error)
	FindActiveByTenantID(ctx context.Context, tenantID uuid.UUID) (*models.Lease, error)
	UpdateIfVersion(ctx context.Context, l *models.Lease, expected int64) (pgconn.CommandTag, error)
	UpdateWithRetry(ctx context.Context, id uuid.UUID, mutate func(*models.Lease) error) error
	// Delete removes the lease and releases its unit when it was held.
	Delete(ctx context.Context, id uuid.UUID) error
}

type leaseRepo struct {
	*BaseVersionedRepo[*models.Lease]
	db DB
}

func NewLeaseRepository(db DB) LeaseRepository {
	r := &leaseRepo{db: db}
	r.BaseVersionedRepo = NewBaseRepo(db, selectLease+" WHERE id = $1", scanLease, utils.ErrLeaseNotFound)
	return r
}

const selectLease = `
	SELECT id, tenant_id, unit_id, start_date, end_date, rent_amount_cents,
		deposit_amount_cents, lease_status, created_at, updated_at, row_version
	FROM leases
`

func scanLease(row pgx.Row) (*models.Lease, error) {
	var l models.Lease
	err := row.Scan(
		&l.ID, &l.TenantID, &l.UnitID, &l.StartDate, &l.EndDate, &l.RentAmountCents,
		&l.DepositAmountCents, &l.Status, &l.CreatedAt, &l.UpdatedAt, &l.RowVersion,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *leaseRepo) CreateClaimingUnit(ctx context.Context, l *models.Lease, unitID *uuid.UUID) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Serialize lease creation per tenant so the active-lease check holds.
	var lockedTenant uuid.UUID
	err = tx.QueryRow(ctx, `SELECT id FROM tenants WHERE id = $1 FOR UPDATE`, l.TenantID).Scan(&lockedTenant)
	if err == pgx.ErrNoRows {
		return utils.ErrTenantNotFound
	}
	if err != nil {
		return err
	}

	var hasActive bool
	err = tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM leases WHERE tenant_id = $1 AND lease_status = $2)`,
		l.TenantID, models.LeaseStatusActive,
	).Scan(&hasActive)
	if err != nil {
		return err
	}
	if hasActive {
		return utils.ErrActiveLeaseExists
	}

	claimed, err := claimUnit(ctx, tx, unitID)
	if err != nil {
		return err
	}

	if _, err = tx.Exec(ctx, `
		UPDATE units SET status = $1, updated_at = NOW(), row_version = row_version + 1
		WHERE id = $2
	`, models.UnitStatusOccupied, claimed); err != nil {
		return err
	}

	l.UnitID = claimed
	if l.Status == "" {
		l.Status = models.LeaseStatusActive
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO leases (
			id, tenant_id, unit_id, start_date, end_date, rent_amount_cents,
			deposit_amount_cents, lease_status, created_at, updated_at, row_version
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW(), 1)
		RETURNING created_at, updated_at, row_version
	`, l.ID, l.TenantID, l.UnitID, l.StartDate, l.EndDate, l.RentAmountCents,
		l.DepositAmountCents, l.Status,
	).Scan(&l.CreatedAt, &l.UpdatedAt, &l.RowVersion)
	if err != nil {
		return activeLeaseConflict(err)
	}

	return tx.Commit(ctx)
}

// activeLeaseConflict maps a violation of the one-active-lease indexes to
// the matching domain error. The checks above normally catch both cases;
// the indexes still fire when unit status has drifted from the leases.
func activeLeaseConflict(err error) error {
	switch constraintName(err) {
	case "uq_leases_active_unit":
		return fmt.Errorf("%w: %v", utils.ErrUnitOccupied, err)
	case "uq_leases_active_tenant":
		return fmt.Errorf("%w: %v", utils.ErrActiveLeaseExists, err)
	default:
		return err
	}
}

// claimUnit locks the requested unit, or the oldest available one, and
// returns its id. Concurrent auto-claims skip each other's locked rows.
func claimUnit(ctx context.Context, tx pgx.Tx, unitID *uuid.UUID) (uuid.UUID, error) {
	if unitID != nil {
		var status models.UnitStatusType
		err := tx.QueryRow(ctx, `SELECT status FROM units WHERE id = $1 FOR UPDATE`, *unitID).Scan(&status)
		if err == pgx.ErrNoRows {
			return uuid.Nil, utils.ErrUnitNotFound
		}
		if err != nil {
			return uuid.Nil, err
		}
		if status != models.UnitStatusAvailable {
			return uuid.Nil, utils.ErrUnitOccupied
		}
		return *unitID, nil
	}

	var id uuid.UUID
	err := tx.QueryRow(ctx, `
		SELECT id FROM units
		WHERE status = $1
		ORDER BY created_at, id
		LIMIT 1
		FOR UPDATE SKIP LOCKED
	`, models.UnitStatusAvailable).Scan(&id)
	if err == pgx.ErrNoRows {
		return uuid.Nil, utils.ErrNoAvailableUnit
	}
	return id, err
}

func (r *leaseRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Lease, error) {
	return r.BaseVersionedRepo.GetByID(ctx, id.String())
}

func (r *leaseRepo) ListAll(ctx context.Context) ([]*models.Lease, error) {
	return r.list(ctx, selectLease+" ORDER BY created_at, id")
}

func (r *leaseRepo) ListByTenantID(ctx context.Context, tenantID uuid.UUID) ([]*models.Lease, error) {
	return r.list(ctx, selectLease+" WHERE tenant_id = $1 ORDER BY created_at, id", tenantID)
}

func (r *leaseRepo) FindActiveByTenantID(ctx context.Context, tenantID uuid.UUID) (*models.Lease, error) {
	row := r.db.QueryRow(ctx,
		selectLease+" WHERE tenant_id = $1 AND lease_status = $2 ORDER BY created_at DESC LIMIT 1",
		tenantID, models.LeaseStatusActive,
	)
	return scanLease(row)
}

func (r *leaseRepo) list(ctx context.Context, q string, args ...any) ([]*models.Lease, error) {
	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Lease
	for rows.Next() {
		l, err := scanLease(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// UpdateIfVersion writes the lease and, when it no longer holds its unit,
// returns the unit to the available pool in the same transaction.
func (r *leaseRepo) UpdateIfVersion(ctx context.Context, l *models.Lease, expected int64) (pgconn.CommandTag, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		UPDATE leases SET
			start_date = $1,
			end_date = $2,
			rent_amount_cents = $3,
			deposit_amount_cents = $4,
			lease_status = $5,
			updated_at = NOW(),
			row_version = row_version + 1
		WHERE id = $6 AND row_version = $7
	`, l.StartDate, l.EndDate, l.RentAmountCents, l.DepositAmountCents, l.Status, l.ID, expected)
	if err != nil {
		return nil, activeLeaseConflict(err)
	}
	if tag.RowsAffected() != 1 {
		return tag, nil
	}

	if !l.Status.HoldsUnit() {
		if err := releaseUnit(ctx, tx, l.UnitID); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return tag, nil
}

func (r *leaseRepo) UpdateWithRetry(ctx context.Context, id uuid.UUID, mutate func(*models.Lease) error) error {
	return r.BaseVersionedRepo.UpdateWithRetry(ctx, id.String(), mutate, r.UpdateIfVersion)
}

func (r *leaseRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var unitID uuid.UUID
	err = tx.QueryRow(ctx, `DELETE FROM leases WHERE id = $1 RETURNING unit_id`, id).Scan(&unitID)
	if err == pgx.ErrNoRows {
		return utils.ErrLeaseNotFound
	}
	if err != nil {
		return err
	}
	if err := releaseUnit(ctx, tx, unitID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// releaseUnit marks the unit available unless another active lease still
// references it.
func releaseUnit(ctx context.Context, tx pgx.Tx, unitID uuid.UUID) error {
	_, err := tx.Exec(ctx, `
		UPDATE units SET status = $1, updated_at = NOW(), row_version = row_version + 1
		WHERE id = $2
		  AND status = $3
		  AND NOT EXISTS (SELECT 1 FROM leases WHERE unit_id = $2 AND lease_status = $4)
	`, models.UnitStatusAvailable, unitID, models.UnitStatusOccupied, models.LeaseStatusActive)
	if err != nil {
		return fmt.Errorf("releasing unit %s: %w", unitID, err)
	}
	return nil
}
