package payment

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/agricoop/backend/internal/domain/fee"
	"github.com/agricoop/backend/internal/domain/payment"
	"github.com/agricoop/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockGateway is a mock implementation of payment.Gateway
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) RequestToPay(ctx context.Context, req payment.ChargeRequest) (*payment.ChargeResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.ChargeResult), args.Error(1)
}

func (m *MockGateway) GetStatus(ctx context.Context, referenceID string) (*payment.StatusResult, error) {
	args := m.Called(ctx, referenceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.StatusResult), args.Error(1)
}

func (m *MockGateway) ParseCallback(body []byte) (*payment.StatusResult, error) {
	args := m.Called(body)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.StatusResult), args.Error(1)
}

// memStore is an in-memory stand-in for the payments and fee_applications
// tables. A failing transaction restores the state it started from.
type memStore struct {
	mu       sync.Mutex
	payments map[uuid.UUID]payment.Payment
	apps     map[uuid.UUID]fee.FeeApplication

	errCommit error
}

func newMemStore() *memStore {
	return &memStore{
		payments: map[uuid.UUID]payment.Payment{},
		apps:     map[uuid.UUID]fee.FeeApplication{},
	}
}

func (s *memStore) Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error {
	s.mu.Lock()
	payments := make(map[uuid.UUID]payment.Payment, len(s.payments))
	for k, v := range s.payments {
		payments[k] = v
	}
	apps := make(map[uuid.UUID]fee.FeeApplication, len(s.apps))
	for k, v := range s.apps {
		apps[k] = v
	}
	s.mu.Unlock()

	err := fn(memRepos{s: s})
	if err == nil {
		err = s.errCommit
	}
	if err != nil {
		s.mu.Lock()
		s.payments = payments
		s.apps = apps
		s.mu.Unlock()
	}
	return err
}

func (s *memStore) addApp(userID uuid.UUID, amount string, status fee.ApplicationStatus, now time.Time) fee.FeeApplication {
	app := fee.FeeApplication{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(now),
		FeeRuleID:         uuid.New(),
		UserID:            userID,
		Amount:            decimal.RequireFromString(amount),
		Status:            status,
		DueDate:           now.AddDate(0, 1, 0),
	}
	s.mu.Lock()
	s.apps[app.ID] = app
	s.mu.Unlock()
	return app
}

func (s *memStore) app(id uuid.UUID) fee.FeeApplication {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apps[id]
}

func (s *memStore) byReference(ref string) []payment.Payment {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []payment.Payment
	for _, p := range s.payments {
		if p.ReferenceID == ref {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Amount.LessThan(out[j].Amount) })
	return out
}

func (s *memStore) paymentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.payments)
}

type memRepos struct{ s *memStore }

func (r memRepos) PaymentRepo() payment.Repository {
	return memPaymentRepo(r)
}

func (r memRepos) FeeApplicationRepo() fee.FeeApplicationRepository {
	return memFeeAppRepo(r)
}

type memPaymentRepo struct{ s *memStore }

func (r memPaymentRepo) CreateBatch(_ context.Context, payments []*payment.Payment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range payments {
		r.s.payments[p.ID] = *p
	}
	return nil
}

func (r memPaymentRepo) Save(_ context.Context, p *payment.Payment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.payments[p.ID] = *p
	return nil
}

func (r memPaymentRepo) FindByReference(_ context.Context, ref string) ([]payment.Payment, error) {
	return r.s.byReference(ref), nil
}

func (r memPaymentRepo) FindByReferenceForUpdate(ctx context.Context, ref string) ([]payment.Payment, error) {
	return r.FindByReference(ctx, ref)
}

func (r memPaymentRepo) FindByReferenceForUser(_ context.Context, ref string, userID uuid.UUID) ([]payment.Payment, error) {
	var out []payment.Payment
	for _, p := range r.s.byReference(ref) {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r memPaymentRepo) PendingFeeApplicationIDs(_ context.Context, feeIDs []uuid.UUID) ([]uuid.UUID, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	wanted := make(map[uuid.UUID]bool, len(feeIDs))
	for _, id := range feeIDs {
		wanted[id] = true
	}
	var out []uuid.UUID
	for _, p := range r.s.payments {
		if p.FeeApplicationID != nil && wanted[*p.FeeApplicationID] && p.IsPending() {
			out = append(out, *p.FeeApplicationID)
		}
	}
	return out, nil
}

func (r memPaymentRepo) FindByUser(_ context.Context, userID uuid.UUID, filter shared.Filter) ([]payment.Payment, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []payment.Payment
	for _, p := range r.s.payments {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	total := int64(len(out))
	start := filter.Offset()
	if start > len(out) {
		start = len(out)
	}
	end := start + filter.PageSize
	if end > len(out) {
		end = len(out)
	}
	return out[start:end], total, nil
}

type memFeeAppRepo struct{ s *memStore }

func (r memFeeAppRepo) FindByID(_ context.Context, id uuid.UUID) (*fee.FeeApplication, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	app, ok := r.s.apps[id]
	if !ok {
		return nil, fee.ErrFeeApplicationNotFound
	}
	return &app, nil
}

func (r memFeeAppRepo) FindByIDsForUser(_ context.Context, ids []uuid.UUID, userID uuid.UUID) ([]fee.FeeApplication, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []fee.FeeApplication
	for _, id := range ids {
		if app, ok := r.s.apps[id]; ok && app.UserID == userID {
			out = append(out, app)
		}
	}
	return out, nil
}

func (r memFeeAppRepo) FindByIDs(_ context.Context, ids []uuid.UUID) ([]fee.FeeApplication, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []fee.FeeApplication
	for _, id := range ids {
		if app, ok := r.s.apps[id]; ok {
			out = append(out, app)
		}
	}
	return out, nil
}

func (r memFeeAppRepo) FindByUser(context.Context, uuid.UUID, shared.Filter) ([]fee.FeeApplication, int64, error) {
	return nil, 0, nil
}

func (r memFeeAppRepo) FindPendingDueBefore(context.Context, time.Time) ([]fee.FeeApplication, error) {
	return nil, nil
}

func (r memFeeAppRepo) ExistsOpen(context.Context, uuid.UUID, uuid.UUID) (bool, error) {
	return false, nil
}

func (r memFeeAppRepo) OpenUserIDs(context.Context, uuid.UUID) ([]uuid.UUID, error) {
	return nil, nil
}

func (r memFeeAppRepo) Create(ctx context.Context, app *fee.FeeApplication) error {
	return r.Save(ctx, app)
}

func (r memFeeAppRepo) Save(_ context.Context, app *fee.FeeApplication) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.apps[app.ID] = *app
	return nil
}

// recordingPublisher collects published events
type recordingPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (p *recordingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.EventType()
	}
	return out
}
