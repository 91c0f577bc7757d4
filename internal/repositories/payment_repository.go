package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/poofware/rental-service/internal/models"
	"github.com/poofware/rental-service/internal/utils"
)

type PaymentRepository interface {
	// Create fails with utils.ErrDuplicateCheckoutID when the checkout
	// session is already correlated with another payment.
	Create(ctx context.Context, p *models.Payment) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	GetByCheckoutSessionID(ctx context.Context, sessionID string) (*models.Payment, error)
	ListAll(ctx context.Context) ([]*models.Payment, error)
	FindPendingCreatedBefore(ctx context.Context, cutoff time.Time, limit int) ([]*models.Payment, error)
	UpdateIfVersion(ctx context.Context, p *models.Payment, expected int64) (pgconn.CommandTag, error)
	UpdateWithRetry(ctx context.Context, id uuid.UUID, mutate func(*models.Payment) error) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type paymentRepo struct {
	*BaseVersionedRepo[*models.Payment]
	db DB
}

func NewPaymentRepository(db DB) PaymentRepository {
	r := &paymentRepo{db: db}
	r.BaseVersionedRepo = NewBaseRepo(db, selectPayment+" WHERE id = $1", scanPayment, utils.ErrPaymentNotFound)
	return r
}

const selectPayment = `
	SELECT id, tenant_id, lease_id, amount_cents, payment_status, checkout_session_id,
		stripe_charge_id, failure_reason, created_at, updated_at, row_version
	FROM payments
`

func scanPayment(row pgx.Row) (*models.Payment, error) {
	var p models.Payment
	err := row.Scan(
		&p.ID, &p.TenantID, &p.LeaseID, &p.AmountCents, &p.Status, &p.CheckoutSessionID,
		&p.StripeChargeID, &p.FailureReason, &p.CreatedAt, &p.UpdatedAt, &p.RowVersion,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *paymentRepo) Create(ctx context.Context, p *models.Payment) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO payments (
			id, tenant_id, lease_id, amount_cents, payment_status, checkout_session_id,
			stripe_charge_id, created_at, updated_at, row_version
		) VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW(), 1)
		RETURNING created_at, updated_at, row_version
	`, p.ID, p.TenantID, p.LeaseID, p.AmountCents, p.Status, p.CheckoutSessionID, p.StripeChargeID,
	).Scan(&p.CreatedAt, &p.UpdatedAt, &p.RowVersion)
	if IsUniqueViolation(err) {
		return utils.ErrDuplicateCheckoutID
	}
	return err
}

func (r *paymentRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	return r.BaseVersionedRepo.GetByID(ctx, id.String())
}

func (r *paymentRepo) GetByCheckoutSessionID(ctx context.Context, sessionID string) (*models.Payment, error) {
	return scanPayment(r.db.QueryRow(ctx, selectPayment+" WHERE checkout_session_id = $1", sessionID))
}

func (r *paymentRepo) ListAll(ctx context.Context) ([]*models.Payment, error) {
	return r.list(ctx, selectPayment+" ORDER BY created_at, id")
}

func (r *paymentRepo) FindPendingCreatedBefore(ctx context.Context, cutoff time.Time, limit int) ([]*models.Payment, error) {
	return r.list(ctx,
		selectPayment+" WHERE payment_status = $1 AND created_at < $2 ORDER BY created_at LIMIT $3",
		models.PaymentStatusPending, cutoff, limit,
	)
}

func (r *paymentRepo) list(ctx context.Context, q string, args ...any) ([]*models.Payment, error) {
	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *paymentRepo) UpdateIfVersion(ctx context.Context, p *models.Payment, expected int64) (pgconn.CommandTag, error) {
	return r.db.Exec(ctx, `
		UPDATE payments SET
			amount_cents = $1,
			payment_status = $2,
			stripe_charge_id = $3,
			failure_reason = $4,
			updated_at = NOW(),
			row_version = row_version + 1
		WHERE id = $5 AND row_version = $6
	`, p.AmountCents, p.Status, p.StripeChargeID, p.FailureReason, p.ID, expected)
}

func (r *paymentRepo) UpdateWithRetry(ctx context.Context, id uuid.UUID, mutate func(*models.Payment) error) error {
	return r.BaseVersionedRepo.UpdateWithRetry(ctx, id.String(), mutate, r.UpdateIfVersion)
}

func (r *paymentRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM payments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return utils.ErrPaymentNotFound
	}
	return nil
}
