package handler

import (
	"context"
	"time"

	appfee "github.com/agricoop/backend/internal/application/fee"
	apppayment "github.com/agricoop/backend/internal/application/payment"
	"github.com/agricoop/backend/internal/domain/fee"
	"github.com/agricoop/backend/internal/domain/shared"
	"github.com/agricoop/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// withActor stands in for the JWT middleware
func withActor(actor shared.Actor) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.JWTActorKey, actor)
		c.Set(middleware.JWTUserIDKey, actor.UserID.String())
		c.Next()
	}
}

type MockFeeRuleService struct {
	mock.Mock
}

func (m *MockFeeRuleService) Create(ctx context.Context, actor shared.Actor, in fee.RuleInput) (*appfee.FeeRuleResponse, error) {
	args := m.Called(ctx, actor, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appfee.FeeRuleResponse), args.Error(1)
}

func (m *MockFeeRuleService) Get(ctx context.Context, id uuid.UUID) (*appfee.FeeRuleResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appfee.FeeRuleResponse), args.Error(1)
}

func (m *MockFeeRuleService) List(ctx context.Context, filter shared.Filter) (*shared.Paginated[appfee.FeeRuleResponse], error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.Paginated[appfee.FeeRuleResponse]), args.Error(1)
}

func (m *MockFeeRuleService) Update(ctx context.Context, actor shared.Actor, id uuid.UUID, in fee.RuleInput) (*appfee.FeeRuleResponse, error) {
	args := m.Called(ctx, actor, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appfee.FeeRuleResponse), args.Error(1)
}

func (m *MockFeeRuleService) Deactivate(ctx context.Context, actor shared.Actor, id uuid.UUID) (*appfee.FeeRuleResponse, error) {
	args := m.Called(ctx, actor, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appfee.FeeRuleResponse), args.Error(1)
}

func (m *MockFeeRuleService) Delete(ctx context.Context, actor shared.Actor, id uuid.UUID) error {
	return m.Called(ctx, actor, id).Error(0)
}

func (m *MockFeeRuleService) UnitAssignments(ctx context.Context, id uuid.UUID) ([]fee.UnitAssignment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]fee.UnitAssignment), args.Error(1)
}

func (m *MockFeeRuleService) ListApplications(ctx context.Context, actor shared.Actor, userID *uuid.UUID, filter shared.Filter) (*shared.Paginated[appfee.FeeApplicationResponse], error) {
	args := m.Called(ctx, actor, userID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.Paginated[appfee.FeeApplicationResponse]), args.Error(1)
}

type MockSchedulingService struct {
	mock.Mock
}

func (m *MockSchedulingService) ApplyFeeRule(ctx context.Context, actor shared.Actor, ruleID uuid.UUID) (*appfee.ApplyResult, error) {
	args := m.Called(ctx, actor, ruleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appfee.ApplyResult), args.Error(1)
}

func (m *MockSchedulingService) Schedule(ctx context.Context, actor shared.Actor, ruleID uuid.UUID, effectiveDate time.Time) (*fee.FeeRule, error) {
	args := m.Called(ctx, actor, ruleID, effectiveDate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fee.FeeRule), args.Error(1)
}

func (m *MockSchedulingService) AssignFeeRuleToUnits(ctx context.Context, actor shared.Actor, ruleID uuid.UUID, unitIDs []uuid.UUID, customAmounts map[uuid.UUID]decimal.Decimal) (*appfee.AssignResult, error) {
	args := m.Called(ctx, actor, ruleID, unitIDs, customAmounts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appfee.AssignResult), args.Error(1)
}

func (m *MockSchedulingService) Sweep(ctx context.Context, actor shared.Actor) (*appfee.DailySweepResult, error) {
	args := m.Called(ctx, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appfee.DailySweepResult), args.Error(1)
}

type MockPaymentService struct {
	mock.Mock
}

func (m *MockPaymentService) Initiate(ctx context.Context, actor shared.Actor, req apppayment.InitiatePaymentRequest) (*apppayment.InitiatePaymentResult, error) {
	args := m.Called(ctx, actor, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*apppayment.InitiatePaymentResult), args.Error(1)
}

func (m *MockPaymentService) CheckStatus(ctx context.Context, actor shared.Actor, referenceID string) (*apppayment.StatusResponse, error) {
	args := m.Called(ctx, actor, referenceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*apppayment.StatusResponse), args.Error(1)
}

func (m *MockPaymentService) HandleCallback(ctx context.Context, body []byte) apppayment.CallbackResult {
	return m.Called(ctx, body).Get(0).(apppayment.CallbackResult)
}

func (m *MockPaymentService) History(ctx context.Context, actor shared.Actor, filter shared.Filter) (*shared.Paginated[apppayment.PaymentResponse], error) {
	args := m.Called(ctx, actor, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.Paginated[apppayment.PaymentResponse]), args.Error(1)
}
