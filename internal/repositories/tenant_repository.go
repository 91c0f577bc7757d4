package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/poofware/rental-service/internal/models"
)

type TenantRepository interface {
	Create(ctx context.Context, t *models.Tenant) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Tenant, error)
}

type tenantRepo struct{ db DB }

func NewTenantRepository(db DB) TenantRepository {
	return &tenantRepo{db: db}
}

const selectTenant = `
	SELECT id, user_id, full_name, email, phone_number, created_at
	FROM tenants
`

func scanTenant(row pgx.Row) (*models.Tenant, error) {
	var t models.Tenant
	err := row.Scan(&t.ID, &t.UserID, &t.FullName, &t.Email, &t.PhoneNumber, &t.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *tenantRepo) Create(ctx context.Context, t *models.Tenant) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO tenants (id, user_id, full_name, email, phone_number, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING created_at
	`, t.ID, t.UserID, t.FullName, t.Email, t.PhoneNumber).Scan(&t.CreatedAt)
}

func (r *tenantRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	return scanTenant(r.db.QueryRow(ctx, selectTenant+" WHERE id = $1", id))
}

func (r *tenantRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Tenant, error) {
	return scanTenant(r.db.QueryRow(ctx, selectTenant+" WHERE user_id = $1", userID))
}
