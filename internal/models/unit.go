package models

import (
	"time"

	"github.com/google/uuid"
)

type UnitStatusType string

const (
	UnitStatusAvailable UnitStatusType = "available"
	UnitStatusOccupied  UnitStatusType = "occupied"
)

// Unit is a leasable space on a property.
type Unit struct {
	Versioned
	ID         uuid.UUID      `json:"id"`
	PropertyID uuid.UUID      `json:"property_id"`
	Name       string         `json:"name"`
	Status     UnitStatusType `json:"status"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

func (u *Unit) GetID() string {
	return u.ID.String()
}
