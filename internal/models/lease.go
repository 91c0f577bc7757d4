package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type LeaseStatusType string

const (
	LeaseStatusActive     LeaseStatusType = "Active"
	LeaseStatusTerminated LeaseStatusType = "Terminated"
	LeaseStatusExpired    LeaseStatusType = "Expired"
)

// ParseLeaseStatus accepts any casing of the three lease states.
func ParseLeaseStatus(s string) (LeaseStatusType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "active":
		return LeaseStatusActive, nil
	case "terminated":
		return LeaseStatusTerminated, nil
	case "expired":
		return LeaseStatusExpired, nil
	default:
		return "", fmt.Errorf("invalid lease status: %q", s)
	}
}

// HoldsUnit reports whether a lease in this state keeps its unit occupied.
func (s LeaseStatusType) HoldsUnit() bool {
	return s == LeaseStatusActive
}

// Lease links one tenant to one unit for a date range.
type Lease struct {
	Versioned
	ID                 uuid.UUID       `json:"id"`
	TenantID           uuid.UUID       `json:"tenant_id"`
	UnitID             uuid.UUID       `json:"unit_id"`
	StartDate          time.Time       `json:"start_date"`
	EndDate            time.Time       `json:"end_date"`
	RentAmountCents    int64           `json:"rent_amount_cents"`
	DepositAmountCents int64           `json:"deposit_amount_cents"`
	Status             LeaseStatusType `json:"lease_status"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

func (l *Lease) GetID() string {
	return l.ID.String()
}
