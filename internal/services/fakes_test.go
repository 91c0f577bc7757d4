package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/poofware/rental-service/internal/dtos"
	"github.com/poofware/rental-service/internal/models"
	"github.com/poofware/rental-service/internal/repositories"
	"github.com/poofware/rental-service/internal/utils"
	"github.com/shopspring/decimal"
)

func testMoney(s string) dtos.Money {
	return dtos.Money{Decimal: decimal.RequireFromString(s)}
}

type fakeTenantRepo struct {
	mu      sync.Mutex
	tenants map[uuid.UUID]*models.Tenant
}

func newFakeTenantRepo(ts ...*models.Tenant) *fakeTenantRepo {
	r := &fakeTenantRepo{tenants: map[uuid.UUID]*models.Tenant{}}
	for _, t := range ts {
		r.tenants[t.ID] = t
	}
	return r
}

func (r *fakeTenantRepo) Create(_ context.Context, t *models.Tenant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tenants[t.ID] = t
	return nil
}

func (r *fakeTenantRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tenants[id], nil
}

func (r *fakeTenantRepo) GetByUserID(_ context.Context, userID uuid.UUID) (*models.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tenants {
		if t.UserID == userID {
			return t, nil
		}
	}
	return nil, nil
}

// fakeLeaseRepo keeps leases and unit occupancy in memory with the same
// claim and release rules as the SQL implementation.
type fakeLeaseRepo struct {
	mu        sync.Mutex
	leases    map[uuid.UUID]*models.Lease
	order     []uuid.UUID
	units     map[uuid.UUID]models.UnitStatusType
	unitOrder []uuid.UUID
	// createErr, when set, is what the insert fails with after the
	// claim checks pass.
	createErr error
}

func newFakeLeaseRepo(unitIDs ...uuid.UUID) *fakeLeaseRepo {
	r := &fakeLeaseRepo{
		leases: map[uuid.UUID]*models.Lease{},
		units:  map[uuid.UUID]models.UnitStatusType{},
	}
	for _, id := range unitIDs {
		r.units[id] = models.UnitStatusAvailable
		r.unitOrder = append(r.unitOrder, id)
	}
	return r
}

func (r *fakeLeaseRepo) unitStatus(id uuid.UUID) models.UnitStatusType {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.units[id]
}

func (r *fakeLeaseRepo) CreateClaimingUnit(_ context.Context, l *models.Lease, unitID *uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.leases {
		if existing.TenantID == l.TenantID && existing.Status.HoldsUnit() {
			return utils.ErrActiveLeaseExists
		}
	}

	var claimed uuid.UUID
	if unitID != nil {
		st, ok := r.units[*unitID]
		if !ok {
			return utils.ErrUnitNotFound
		}
		if st != models.UnitStatusAvailable {
			return utils.ErrUnitOccupied
		}
		claimed = *unitID
	} else {
		for _, id := range r.unitOrder {
			if r.units[id] == models.UnitStatusAvailable {
				claimed = id
				break
			}
		}
		if claimed == uuid.Nil {
			return utils.ErrNoAvailableUnit
		}
	}
	if r.createErr != nil {
		return r.createErr
	}

	r.units[claimed] = models.UnitStatusOccupied
	l.UnitID = claimed
	l.RowVersion = 1
	l.CreatedAt = time.Now()
	l.UpdatedAt = l.CreatedAt
	cp := *l
	r.leases[l.ID] = &cp
	r.order = append(r.order, l.ID)
	return nil
}

func (r *fakeLeaseRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Lease, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.leases[id]
	if !ok {
		return nil, nil
	}
	cp := *l
	return &cp, nil
}

func (r *fakeLeaseRepo) ListAll(ctx context.Context) ([]*models.Lease, error) {
	return r.filter(func(*models.Lease) bool { return true }), nil
}

func (r *fakeLeaseRepo) ListByTenantID(_ context.Context, tenantID uuid.UUID) ([]*models.Lease, error) {
	return r.filter(func(l *models.Lease) bool { return l.TenantID == tenantID }), nil
}

func (r *fakeLeaseRepo) FindActiveByTenantID(_ context.Context, tenantID uuid.UUID) (*models.Lease, error) {
	out := r.filter(func(l *models.Lease) bool { return l.TenantID == tenantID && l.Status.HoldsUnit() })
	if len(out) == 0 {
		return nil, nil
	}
	return out[len(out)-1], nil
}

func (r *fakeLeaseRepo) filter(keep func(*models.Lease) bool) []*models.Lease {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Lease
	for _, id := range r.order {
		if l, ok := r.leases[id]; ok && keep(l) {
			cp := *l
			out = append(out, &cp)
		}
	}
	return out
}

func (r *fakeLeaseRepo) UpdateIfVersion(_ context.Context, l *models.Lease, expected int64) (pgconn.CommandTag, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.leases[l.ID]
	if !ok || cur.RowVersion != expected {
		return pgconn.CommandTag("UPDATE 0"), nil
	}
	cp := *l
	cp.RowVersion = expected + 1
	r.leases[l.ID] = &cp
	if !cp.Status.HoldsUnit() {
		r.releaseLocked(cp.UnitID)
	}
	return pgconn.CommandTag("UPDATE 1"), nil
}

func (r *fakeLeaseRepo) UpdateWithRetry(ctx context.Context, id uuid.UUID, mutate func(*models.Lease) error) error {
	get := func(ctx context.Context, _ string) (*models.Lease, error) { return r.GetByID(ctx, id) }
	return repositories.WithRetry(ctx, 3, id.String(), utils.ErrLeaseNotFound, get, r.UpdateIfVersion, mutate)
}

func (r *fakeLeaseRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.leases[id]
	if !ok {
		return utils.ErrLeaseNotFound
	}
	delete(r.leases, id)
	r.releaseLocked(l.UnitID)
	return nil
}

func (r *fakeLeaseRepo) releaseLocked(unitID uuid.UUID) {
	for _, l := range r.leases {
		if l.UnitID == unitID && l.Status.HoldsUnit() {
			return
		}
	}
	r.units[unitID] = models.UnitStatusAvailable
}

type fakePaymentRepo struct {
	mu       sync.Mutex
	payments map[uuid.UUID]*models.Payment
	order    []uuid.UUID
	// conflictWrites makes the next N conditional updates lose their race.
	conflictWrites int
	createErr      error
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{payments: map[uuid.UUID]*models.Payment{}}
}

func (r *fakePaymentRepo) add(p *models.Payment) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.RowVersion == 0 {
		p.RowVersion = 1
	}
	cp := *p
	r.payments[p.ID] = &cp
	r.order = append(r.order, p.ID)
}

func (r *fakePaymentRepo) get(id uuid.UUID) *models.Payment {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok {
		return nil
	}
	cp := *p
	return &cp
}

func (r *fakePaymentRepo) Create(_ context.Context, p *models.Payment) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.mu.Lock()
	for _, existing := range r.payments {
		if existing.CheckoutSessionID == p.CheckoutSessionID {
			r.mu.Unlock()
			return utils.ErrDuplicateCheckoutID
		}
	}
	r.mu.Unlock()
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	r.add(p)
	return nil
}

func (r *fakePaymentRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Payment, error) {
	return r.get(id), nil
}

func (r *fakePaymentRepo) GetByCheckoutSessionID(_ context.Context, sessionID string) (*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.payments {
		if p.CheckoutSessionID == sessionID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakePaymentRepo) ListAll(_ context.Context) ([]*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Payment
	for _, id := range r.order {
		if p, ok := r.payments[id]; ok {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakePaymentRepo) FindPendingCreatedBefore(_ context.Context, cutoff time.Time, limit int) ([]*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Payment
	for _, id := range r.order {
		p, ok := r.payments[id]
		if !ok || p.Status != models.PaymentStatusPending || !p.CreatedAt.Before(cutoff) {
			continue
		}
		cp := *p
		out = append(out, &cp)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *fakePaymentRepo) UpdateIfVersion(_ context.Context, p *models.Payment, expected int64) (pgconn.CommandTag, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conflictWrites > 0 {
		r.conflictWrites--
		return pgconn.CommandTag("UPDATE 0"), nil
	}
	cur, ok := r.payments[p.ID]
	if !ok || cur.RowVersion != expected {
		return pgconn.CommandTag("UPDATE 0"), nil
	}
	cp := *p
	cp.RowVersion = expected + 1
	r.payments[p.ID] = &cp
	return pgconn.CommandTag("UPDATE 1"), nil
}

func (r *fakePaymentRepo) UpdateWithRetry(ctx context.Context, id uuid.UUID, mutate func(*models.Payment) error) error {
	get := func(ctx context.Context, _ string) (*models.Payment, error) { return r.GetByID(ctx, id) }
	return repositories.WithRetry(ctx, 3, id.String(), utils.ErrPaymentNotFound, get, r.UpdateIfVersion, mutate)
}

func (r *fakePaymentRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.payments[id]; !ok {
		return utils.ErrPaymentNotFound
	}
	delete(r.payments, id)
	return nil
}

var errGatewayNoSuchSession = errors.New("no such checkout session")

type fakeGateway struct {
	mu        sync.Mutex
	created   []CheckoutSessionRequest
	sessions  map[string]*CheckoutSession
	createErr error
	nextID    int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{sessions: map[string]*CheckoutSession{}}
}

func (g *fakeGateway) CreateSession(_ context.Context, req CheckoutSessionRequest) (*CheckoutSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createErr != nil {
		return nil, g.createErr
	}
	g.nextID++
	g.created = append(g.created, req)
	s := &CheckoutSession{
		ID:            fmt.Sprintf("cs_test_%03d", g.nextID),
		PaymentStatus: "unpaid",
		Status:        "open",
	}
	s.URL = "https://checkout.stripe.com/c/pay/" + s.ID
	g.sessions[s.ID] = s
	return s, nil
}

func (g *fakeGateway) RetrieveSession(_ context.Context, id string) (*CheckoutSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	s, ok := g.sessions[id]
	if !ok {
		return nil, errGatewayNoSuchSession
	}
	cp := *s
	return &cp, nil
}

func (g *fakeGateway) setSession(s *CheckoutSession) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sessions[s.ID] = s
}

type settledCall struct {
	TenantID uuid.UUID
	Payment  models.Payment
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls []settledCall
}

func (n *fakeNotifier) PaymentSettled(_ context.Context, tenant *models.Tenant, p *models.Payment) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, settledCall{TenantID: tenant.ID, Payment: *p})
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.calls)
}
