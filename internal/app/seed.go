package app

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/poofware/rental-service/internal/models"
	"github.com/poofware/rental-service/internal/repositories"
	"github.com/poofware/rental-service/internal/utils"
)

// Fixed ids so every environment seeded with test data agrees on them.
const (
	DemoPropertyID   = "aaaaaaaa-aaaa-4aaa-aaaa-aaaaaaaaaaa1"
	DemoTenantID     = "bbbbbbbb-bbbb-4bbb-bbbb-bbbbbbbbbbb1"
	DemoTenantUserID = "cccccccc-cccc-4ccc-cccc-ccccccccccc1"
)

var demoUnitNames = []string{"101", "102", "103", "201", "202"}

// SeedAllTestData creates a demo tenant and a property's worth of vacant
// units. It is idempotent: rows that already exist are left as they are.
func SeedAllTestData(ctx context.Context, tenantRepo repositories.TenantRepository, unitRepo repositories.UnitRepository) error {
	if err := seedDemoTenant(ctx, tenantRepo); err != nil {
		return err
	}
	if err := seedDemoUnits(ctx, unitRepo); err != nil {
		return err
	}
	utils.Logger.Info("rental-service: Seeding completed successfully.")
	return nil
}

func seedDemoTenant(ctx context.Context, tenantRepo repositories.TenantRepository) error {
	id := uuid.MustParse(DemoTenantID)
	existing, err := tenantRepo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to check for demo tenant: %w", err)
	}
	if existing != nil {
		utils.Logger.Info("rental-service: Demo tenant already present; skipping.")
		return nil
	}

	t := &models.Tenant{
		ID:          id,
		UserID:      uuid.MustParse(DemoTenantUserID),
		FullName:    "Demo Tenant",
		Email:       "demo.tenant@thepoofapp.com",
		PhoneNumber: utils.Ptr("+15555550100"),
	}
	if err := tenantRepo.Create(ctx, t); err != nil {
		// Another replica may have won the race.
		if repositories.IsUniqueViolation(err) {
			return nil
		}
		return fmt.Errorf("seed demo tenant: %w", err)
	}
	return nil
}

func seedDemoUnits(ctx context.Context, unitRepo repositories.UnitRepository) error {
	propertyID := uuid.MustParse(DemoPropertyID)
	existing, err := unitRepo.ListByPropertyID(ctx, propertyID)
	if err != nil {
		return fmt.Errorf("failed to list demo units: %w", err)
	}
	have := make(map[string]bool, len(existing))
	for _, u := range existing {
		have[u.Name] = true
	}

	for _, name := range demoUnitNames {
		if have[name] {
			continue
		}
		u := &models.Unit{ID: uuid.New(), PropertyID: propertyID, Name: name}
		if err := unitRepo.Create(ctx, u); err != nil && !repositories.IsUniqueViolation(err) {
			return fmt.Errorf("seed demo unit %s: %w", name, err)
		}
	}
	return nil
}
