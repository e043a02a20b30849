package fee

import (
	"context"
	"sync"
	"time"

	"github.com/agricoop/backend/internal/domain/fee"
	"github.com/agricoop/backend/internal/domain/membership"
	"github.com/agricoop/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// memStore is an in-memory stand-in for the database. Values are copied in
// and out so callers cannot mutate stored state by accident.
type memStore struct {
	mu          sync.Mutex
	rules       map[uuid.UUID]fee.FeeRule
	assignments map[[2]uuid.UUID]fee.UnitAssignment
	apps        map[uuid.UUID]fee.FeeApplication
	users       []membership.User
	units       map[uuid.UUID]bool

	errFindApplicable error
	errUsersFor       map[fee.Applicability]error
	errCreateFor      map[uuid.UUID]error
	errCommit         error
}

func newMemStore() *memStore {
	return &memStore{
		rules:        map[uuid.UUID]fee.FeeRule{},
		assignments:  map[[2]uuid.UUID]fee.UnitAssignment{},
		apps:         map[uuid.UUID]fee.FeeApplication{},
		units:        map[uuid.UUID]bool{},
		errUsersFor:  map[fee.Applicability]error{},
		errCreateFor: map[uuid.UUID]error{},
	}
}

func (s *memStore) snapshot() map[uuid.UUID]fee.FeeApplication {
	out := make(map[uuid.UUID]fee.FeeApplication, len(s.apps))
	for k, v := range s.apps {
		out[k] = v
	}
	return out
}

func (s *memStore) appsFor(ruleID uuid.UUID) []fee.FeeApplication {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []fee.FeeApplication
	for _, a := range s.apps {
		if a.FeeRuleID == ruleID {
			out = append(out, a)
		}
	}
	return out
}

// TransactionScope

func (s *memStore) Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error {
	s.mu.Lock()
	before := s.snapshot()
	s.mu.Unlock()

	err := fn(memRepos{s: s})
	if err == nil {
		err = s.errCommit
	}
	if err != nil {
		s.mu.Lock()
		s.apps = before
		s.mu.Unlock()
	}
	return err
}

type memRepos struct{ s *memStore }

func (r memRepos) UserRepo() membership.UserRepository { return memUserRepo{r.s} }

func (r memRepos) AssignmentRepo() fee.UnitAssignmentRepository { return memAssignmentRepo{r.s} }

func (r memRepos) FeeRuleRepo() fee.FeeRuleRepository { return memRuleRepo{r.s} }

func (r memRepos) FeeApplicationRepo() fee.FeeApplicationRepository { return memApplicationRepo{r.s} }

func (r memRepos) Nested(ctx context.Context, fn func(repos TransactionalRepositories) error) error {
	r.s.mu.Lock()
	before := r.s.snapshot()
	r.s.mu.Unlock()
	if err := fn(r); err != nil {
		r.s.mu.Lock()
		r.s.apps = before
		r.s.mu.Unlock()
		return err
	}
	return nil
}

// Rules

type memRuleRepo struct{ s *memStore }

func (r memRuleRepo) FindByID(_ context.Context, id uuid.UUID) (*fee.FeeRule, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rule, ok := r.s.rules[id]
	if !ok || rule.IsDeleted() {
		return nil, fee.ErrFeeRuleNotFound
	}
	return &rule, nil
}

func (r memRuleRepo) FindAll(_ context.Context, filter shared.Filter) ([]fee.FeeRule, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []fee.FeeRule
	for _, rule := range r.s.rules {
		if !rule.IsDeleted() {
			out = append(out, rule)
		}
	}
	return out, int64(len(out)), nil
}

func (r memRuleRepo) FindApplicable(_ context.Context, day time.Time) ([]fee.FeeRule, error) {
	if r.s.errFindApplicable != nil {
		return nil, r.s.errFindApplicable
	}
	return r.byStatus(fee.RuleStatusActive, day), nil
}

func (r memRuleRepo) FindScheduledDue(_ context.Context, day time.Time) ([]fee.FeeRule, error) {
	return r.byStatus(fee.RuleStatusScheduled, day), nil
}

func (r memRuleRepo) byStatus(status fee.RuleStatus, day time.Time) []fee.FeeRule {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []fee.FeeRule
	for _, rule := range r.s.rules {
		if rule.Status == status && !rule.IsDeleted() && !rule.EffectiveDate.After(day) {
			out = append(out, rule)
		}
	}
	return out
}

func (r memRuleRepo) Save(_ context.Context, rule *fee.FeeRule) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored := *rule
	stored.ClearDomainEvents()
	r.s.rules[rule.ID] = stored
	return nil
}

// Assignments

type memAssignmentRepo struct{ s *memStore }

func (r memAssignmentRepo) Upsert(_ context.Context, a *fee.UnitAssignment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := [2]uuid.UUID{a.FeeRuleID, a.UnitID}
	if prev, ok := r.s.assignments[key]; ok {
		a.CreatedAt = prev.CreatedAt
	}
	r.s.assignments[key] = *a
	return nil
}

func (r memAssignmentRepo) FindByRule(_ context.Context, ruleID uuid.UUID) ([]fee.UnitAssignment, error) {
	return r.find(ruleID, false), nil
}

func (r memAssignmentRepo) FindActiveByRule(_ context.Context, ruleID uuid.UUID) ([]fee.UnitAssignment, error) {
	return r.find(ruleID, true), nil
}

func (r memAssignmentRepo) find(ruleID uuid.UUID, activeOnly bool) []fee.UnitAssignment {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []fee.UnitAssignment
	for _, a := range r.s.assignments {
		if a.FeeRuleID == ruleID && (!activeOnly || a.IsActive) {
			out = append(out, a)
		}
	}
	return out
}

// Applications

type memApplicationRepo struct{ s *memStore }

func (r memApplicationRepo) FindByID(_ context.Context, id uuid.UUID) (*fee.FeeApplication, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.apps[id]
	if !ok {
		return nil, fee.ErrFeeApplicationNotFound
	}
	return &a, nil
}

func (r memApplicationRepo) FindByIDsForUser(_ context.Context, ids []uuid.UUID, userID uuid.UUID) ([]fee.FeeApplication, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []fee.FeeApplication
	for _, id := range ids {
		if a, ok := r.s.apps[id]; ok && a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r memApplicationRepo) FindByIDs(_ context.Context, ids []uuid.UUID) ([]fee.FeeApplication, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []fee.FeeApplication
	for _, id := range ids {
		if a, ok := r.s.apps[id]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r memApplicationRepo) FindByUser(_ context.Context, userID uuid.UUID, _ shared.Filter) ([]fee.FeeApplication, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []fee.FeeApplication
	for _, a := range r.s.apps {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, int64(len(out)), nil
}

func (r memApplicationRepo) FindPendingDueBefore(_ context.Context, day time.Time) ([]fee.FeeApplication, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []fee.FeeApplication
	for _, a := range r.s.apps {
		if a.Status == fee.ApplicationStatusPending && a.DueDate.Before(day) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r memApplicationRepo) ExistsOpen(_ context.Context, ruleID, userID uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.openLocked(ruleID, userID), nil
}

func (r memApplicationRepo) openLocked(ruleID, userID uuid.UUID) bool {
	for _, a := range r.s.apps {
		if a.FeeRuleID == ruleID && a.UserID == userID && a.IsOpen() {
			return true
		}
	}
	return false
}

func (r memApplicationRepo) OpenUserIDs(_ context.Context, ruleID uuid.UUID) ([]uuid.UUID, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []uuid.UUID
	for _, a := range r.s.apps {
		if a.FeeRuleID == ruleID && a.IsOpen() {
			out = append(out, a.UserID)
		}
	}
	return out, nil
}

func (r memApplicationRepo) Create(_ context.Context, app *fee.FeeApplication) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.errCreateFor[app.UserID]; err != nil {
		return err
	}
	if r.openLocked(app.FeeRuleID, app.UserID) {
		return fee.ErrDuplicateOpenApplication
	}
	r.s.apps[app.ID] = *app
	return nil
}

func (r memApplicationRepo) Save(_ context.Context, app *fee.FeeApplication) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored := *app
	stored.ClearDomainEvents()
	r.s.apps[app.ID] = stored
	return nil
}

// Membership

type memUserRepo struct{ s *memStore }

func (r memUserRepo) FindByID(_ context.Context, id uuid.UUID) (*membership.User, error) {
	for _, u := range r.s.users {
		if u.ID == id {
			u := u
			return &u, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r memUserRepo) FindActiveByRole(_ context.Context, role shared.Role) ([]membership.User, error) {
	return r.filter(role, func(membership.User) bool { return true }), nil
}

func (r memUserRepo) FindActiveByRoleCreatedSince(_ context.Context, role shared.Role, since time.Time) ([]membership.User, error) {
	if err := r.s.errUsersFor[fee.ApplicableNewMembers]; err != nil {
		return nil, err
	}
	return r.filter(role, func(u membership.User) bool { return !u.CreatedAt.Before(since) }), nil
}

func (r memUserRepo) FindActiveByRoleActiveSince(_ context.Context, role shared.Role, since time.Time) ([]membership.User, error) {
	return r.filter(role, func(u membership.User) bool {
		return u.LastActivityAt != nil && !u.LastActivityAt.Before(since)
	}), nil
}

func (r memUserRepo) FindActiveByRoleInUnits(_ context.Context, role shared.Role, unitIDs []uuid.UUID) ([]membership.User, error) {
	return r.filter(role, func(u membership.User) bool {
		for _, id := range unitIDs {
			if u.InUnit(id) {
				return true
			}
		}
		return false
	}), nil
}

func (r memUserRepo) filter(role shared.Role, keep func(membership.User) bool) []membership.User {
	var out []membership.User
	for _, u := range r.s.users {
		if u.Role == role && u.IsActive() && keep(u) {
			out = append(out, u)
		}
	}
	return out
}

type memUnitRepo struct{ s *memStore }

func (r memUnitRepo) FindByID(_ context.Context, id uuid.UUID) (*membership.Unit, error) {
	if !r.s.units[id] {
		return nil, shared.ErrNotFound
	}
	return &membership.Unit{ID: id}, nil
}

func (r memUnitRepo) FindExistingIDs(_ context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	var out []uuid.UUID
	for _, id := range ids {
		if r.s.units[id] {
			out = append(out, id)
		}
	}
	return out, nil
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
