package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/poofware/rental-service/internal/dtos"
	"github.com/poofware/rental-service/internal/models"
	"github.com/poofware/rental-service/internal/repositories"
	"github.com/poofware/rental-service/internal/utils"
	"github.com/sirupsen/logrus"
)

type LeaseService struct {
	tenantRepo repositories.TenantRepository
	leaseRepo  repositories.LeaseRepository
}

func NewLeaseService(tenantRepo repositories.TenantRepository, leaseRepo repositories.LeaseRepository) *LeaseService {
	return &LeaseService{tenantRepo: tenantRepo, leaseRepo: leaseRepo}
}

// CreateLease creates a lease for the caller's tenant record and claims a
// unit for it atomically.
func (s *LeaseService) CreateLease(ctx context.Context, caller models.Principal, req dtos.CreateLeaseRequest) (*dtos.LeaseResponse, error) {
	tenant, err := s.resolveTenant(ctx, caller, req.TenantID)
	if err != nil {
		return nil, err
	}

	rentCents, depositCents, err := validateLeaseTerms(req.StartDate, req.EndDate, req.RentAmount, req.DepositAmount)
	if err != nil {
		return nil, err
	}

	lease := &models.Lease{
		ID:                 uuid.New(),
		TenantID:           tenant.ID,
		StartDate:          req.StartDate.Time,
		EndDate:            req.EndDate.Time,
		RentAmountCents:    rentCents,
		DepositAmountCents: depositCents,
		Status:             models.LeaseStatusActive,
	}

	if err := s.leaseRepo.CreateClaimingUnit(ctx, lease, req.UnitID); err != nil {
		switch {
		case errors.Is(err, utils.ErrTenantNotFound):
			return nil, utils.NotFound("Tenant not found", err)
		case errors.Is(err, utils.ErrUnitNotFound):
			return nil, utils.NotFound("Unit not found", err)
		case errors.Is(err, utils.ErrNoAvailableUnit):
			return nil, utils.NotFound("No available unit", err)
		case errors.Is(err, utils.ErrUnitOccupied):
			return nil, utils.Conflict("Unit is already leased", err)
		case errors.Is(err, utils.ErrActiveLeaseExists):
			return nil, utils.Conflict("Tenant already has an active lease", err)
		default:
			return nil, utils.Internal("Failed to create lease", err)
		}
	}

	utils.Logger.WithFields(logrus.Fields{
		"lease_id":  lease.ID,
		"tenant_id": lease.TenantID,
		"unit_id":   lease.UnitID,
	}).Info("Lease created")

	resp := dtos.NewLeaseResponse(lease)
	return &resp, nil
}

// ListLeases returns every lease for admins and the caller's own otherwise.
func (s *LeaseService) ListLeases(ctx context.Context, caller models.Principal) ([]dtos.LeaseResponse, error) {
	if caller.IsAdmin() {
		leases, err := s.leaseRepo.ListAll(ctx)
		if err != nil {
			return nil, utils.Internal("Failed to list leases", err)
		}
		return dtos.NewLeaseListResponse(leases), nil
	}

	tenant, err := s.resolveTenant(ctx, caller, nil)
	if err != nil {
		return nil, err
	}
	leases, err := s.leaseRepo.ListByTenantID(ctx, tenant.ID)
	if err != nil {
		return nil, utils.Internal("Failed to list leases", err)
	}
	return dtos.NewLeaseListResponse(leases), nil
}

func (s *LeaseService) GetLease(ctx context.Context, caller models.Principal, id uuid.UUID) (*dtos.LeaseResponse, error) {
	lease, err := s.leaseRepo.GetByID(ctx, id)
	if err != nil {
		return nil, utils.Internal("Failed to load lease", err)
	}
	if lease == nil {
		return nil, utils.NotFound("Lease not found", utils.ErrLeaseNotFound)
	}
	if err := s.authorizeTenantResource(ctx, caller, lease.TenantID); err != nil {
		return nil, err
	}
	resp := dtos.NewLeaseResponse(lease)
	return &resp, nil
}

// UpdateLease applies a partial update. Ending a lease releases its unit;
// an ended lease cannot be reactivated.
func (s *LeaseService) UpdateLease(ctx context.Context, caller models.Principal, id uuid.UUID, req dtos.UpdateLeaseRequest) (*dtos.LeaseResponse, error) {
	if !caller.IsAdmin() {
		return nil, utils.Forbidden("Only admins can update leases")
	}

	var newStatus *models.LeaseStatusType
	if req.LeaseStatus != nil {
		st, err := models.ParseLeaseStatus(*req.LeaseStatus)
		if err != nil {
			return nil, utils.Validation("%s", err.Error())
		}
		newStatus = &st
	}

	var updated *models.Lease
	err := s.leaseRepo.UpdateWithRetry(ctx, id, func(l *models.Lease) error {
		start, end := dtos.NewDate(l.StartDate), dtos.NewDate(l.EndDate)
		rent, deposit := dtos.MoneyFromCents(l.RentAmountCents), dtos.MoneyFromCents(l.DepositAmountCents)
		if req.StartDate != nil {
			start = *req.StartDate
		}
		if req.EndDate != nil {
			end = *req.EndDate
		}
		if req.RentAmount != nil {
			rent = *req.RentAmount
		}
		if req.DepositAmount != nil {
			deposit = *req.DepositAmount
		}
		rentCents, depositCents, err := validateLeaseTerms(start, end, rent, deposit)
		if err != nil {
			return err
		}

		if newStatus != nil && *newStatus != l.Status {
			if !l.Status.HoldsUnit() && newStatus.HoldsUnit() {
				return utils.Conflict(fmt.Sprintf("Lease is %s and cannot be reactivated", l.Status), nil)
			}
			l.Status = *newStatus
		}
		l.StartDate, l.EndDate = start.Time, end.Time
		l.RentAmountCents, l.DepositAmountCents = rentCents, depositCents
		updated = l
		return nil
	})
	if err != nil {
		return nil, leaseRepoError(err, "Failed to update lease")
	}

	resp := dtos.NewLeaseResponse(updated)
	return &resp, nil
}

func (s *LeaseService) DeleteLease(ctx context.Context, caller models.Principal, id uuid.UUID) error {
	if !caller.IsAdmin() {
		return utils.Forbidden("Only admins can delete leases")
	}
	if err := s.leaseRepo.Delete(ctx, id); err != nil {
		return leaseRepoError(err, "Failed to delete lease")
	}
	utils.Logger.WithField("lease_id", id).Info("Lease deleted")
	return nil
}

// resolveTenant finds the tenant record a request acts for. Only admins
// may act for a tenant other than their own.
func (s *LeaseService) resolveTenant(ctx context.Context, caller models.Principal, tenantID *uuid.UUID) (*models.Tenant, error) {
	return resolveTenant(ctx, s.tenantRepo, caller, tenantID)
}

func (s *LeaseService) authorizeTenantResource(ctx context.Context, caller models.Principal, ownerTenantID uuid.UUID) error {
	return authorizeTenantResource(ctx, s.tenantRepo, caller, ownerTenantID)
}

func resolveTenant(ctx context.Context, repo repositories.TenantRepository, caller models.Principal, tenantID *uuid.UUID) (*models.Tenant, error) {
	var (
		tenant *models.Tenant
		err    error
	)
	if tenantID != nil {
		if !caller.IsAdmin() {
			return nil, utils.Forbidden("Only admins can act for another tenant")
		}
		tenant, err = repo.GetByID(ctx, *tenantID)
	} else {
		tenant, err = repo.GetByUserID(ctx, caller.UserID)
	}
	if err != nil {
		return nil, utils.Internal("Failed to load tenant", err)
	}
	if tenant == nil {
		return nil, utils.NotFound("Tenant not found", utils.ErrTenantNotFound)
	}
	return tenant, nil
}

func authorizeTenantResource(ctx context.Context, repo repositories.TenantRepository, caller models.Principal, ownerTenantID uuid.UUID) error {
	if caller.IsAdmin() {
		return nil
	}
	tenant, err := repo.GetByUserID(ctx, caller.UserID)
	if err != nil {
		return utils.Internal("Failed to load tenant", err)
	}
	if tenant == nil || tenant.ID != ownerTenantID {
		return utils.Forbidden("Not authorized to access this resource")
	}
	return nil
}

func validateLeaseTerms(start, end dtos.Date, rent, deposit dtos.Money) (int64, int64, error) {
	if start.IsZero() || end.IsZero() {
		return 0, 0, utils.Validation("start_date and end_date are required")
	}
	if !start.Before(end.Time) {
		return 0, 0, utils.Validation("start_date must be before end_date")
	}
	rentCents, err := utils.PositiveCents(rent.Decimal)
	if err != nil {
		return 0, 0, utils.Validation("rent_amount: %s", err.Error())
	}
	depositCents, err := utils.DecimalToCents(deposit.Decimal)
	if err != nil {
		return 0, 0, utils.Validation("deposit_amount: %s", err.Error())
	}
	return rentCents, depositCents, nil
}

func leaseRepoError(err error, msg string) error {
	var appErr *utils.AppError
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, utils.ErrLeaseNotFound):
		return utils.NotFound("Lease not found", err)
	case errors.Is(err, utils.ErrRowVersionConflict):
		return &utils.AppError{StatusCode: http.StatusConflict, Code: utils.ErrCodeRowVersionConflict, Message: "Lease was modified concurrently", Err: err}
	default:
		return utils.Internal(msg, err)
	}
}
