package dtos

import (
	"time"

	"github.com/google/uuid"
	"github.com/poofware/rental-service/internal/models"
)

// CreateLeaseRequest creates a lease for the caller's tenant record. Admins
// may name another tenant. Without unit_id the first vacant unit is used.
type CreateLeaseRequest struct {
	TenantID      *uuid.UUID `json:"tenant_id,omitempty"`
	UnitID        *uuid.UUID `json:"unit_id,omitempty"`
	StartDate     Date       `json:"start_date"`
	EndDate       Date       `json:"end_date"`
	RentAmount    Money      `json:"rent_amount"`
	DepositAmount Money      `json:"deposit_amount"`
}

// UpdateLeaseRequest is a partial update; nil fields are left untouched.
type UpdateLeaseRequest struct {
	StartDate     *Date   `json:"start_date,omitempty"`
	EndDate       *Date   `json:"end_date,omitempty"`
	RentAmount    *Money  `json:"rent_amount,omitempty"`
	DepositAmount *Money  `json:"deposit_amount,omitempty"`
	LeaseStatus   *string `json:"lease_status,omitempty" validate:"omitempty,oneof=Active Terminated Expired active terminated expired"`
}

type LeaseResponse struct {
	ID            uuid.UUID `json:"id"`
	TenantID      uuid.UUID `json:"tenant_id"`
	UnitID        uuid.UUID `json:"unit_id"`
	StartDate     Date      `json:"start_date"`
	EndDate       Date      `json:"end_date"`
	RentAmount    Money     `json:"rent_amount"`
	DepositAmount Money     `json:"deposit_amount"`
	LeaseStatus   string    `json:"lease_status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	RowVersion    int64     `json:"row_version"`
}

func NewLeaseResponse(l *models.Lease) LeaseResponse {
	return LeaseResponse{
		ID:            l.ID,
		TenantID:      l.TenantID,
		UnitID:        l.UnitID,
		StartDate:     NewDate(l.StartDate),
		EndDate:       NewDate(l.EndDate),
		RentAmount:    MoneyFromCents(l.RentAmountCents),
		DepositAmount: MoneyFromCents(l.DepositAmountCents),
		LeaseStatus:   string(l.Status),
		CreatedAt:     l.CreatedAt,
		UpdatedAt:     l.UpdatedAt,
		RowVersion:    l.RowVersion,
	}
}

func NewLeaseListResponse(leases []*models.Lease) []LeaseResponse {
	out := make([]LeaseResponse, 0, len(leases))
	for _, l := range leases {
		out = append(out, NewLeaseResponse(l))
	}
	return out
}
