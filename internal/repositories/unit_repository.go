package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/poofware/rental-service/internal/models"
	"github.com/poofware/rental-service/internal/utils"
)

// UnitRepository only creates and reads units. Occupancy changes happen
// inside the lease transactions in LeaseRepository.
type UnitRepository interface {
	Create(ctx context.Context, u *models.Unit) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Unit, error)
	ListByPropertyID(ctx context.Context, propertyID uuid.UUID) ([]*models.Unit, error)
}

type unitRepo struct {
	*BaseVersionedRepo[*models.Unit]
	db DB
}

func NewUnitRepository(db DB) UnitRepository {
	r := &unitRepo{db: db}
	r.BaseVersionedRepo = NewBaseRepo(db, selectUnit+" WHERE id = $1", scanUnit, utils.ErrUnitNotFound)
	return r
}

const selectUnit = `
	SELECT id, property_id, name, status, created_at, updated_at, row_version
	FROM units
`

func scanUnit(row pgx.Row) (*models.Unit, error) {
	var u models.Unit
	err := row.Scan(&u.ID, &u.PropertyID, &u.Name, &u.Status, &u.CreatedAt, &u.UpdatedAt, &u.RowVersion)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *unitRepo) Create(ctx context.Context, u *models.Unit) error {
	if u.Status == "" {
		u.Status = models.UnitStatusAvailable
	}
	return r.db.QueryRow(ctx, `
		INSERT INTO units (id, property_id, name, status, created_at, updated_at, row_version)
		VALUES ($1, $2, $3, $4, NOW(), NOW(), 1)
		RETURNING created_at, updated_at, row_version
	`, u.ID, u.PropertyID, u.Name, u.Status).Scan(&u.CreatedAt, &u.UpdatedAt, &u.RowVersion)
}

func (r *unitRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Unit, error) {
	return r.BaseVersionedRepo.GetByID(ctx, id.String())
}

func (r *unitRepo) ListByPropertyID(ctx context.Context, propertyID uuid.UUID) ([]*models.Unit, error) {
	rows, err := r.db.Query(ctx, selectUnit+" WHERE property_id = $1 ORDER BY name", propertyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Unit
	for rows.Next() {
		u, err := scanUnit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
