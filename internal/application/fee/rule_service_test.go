package fee

import (
	"context"
	"testing"

	"github.com/agricoop/backend/internal/domain/fee"
	"github.com/agricoop/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRuleService(store *memStore) (*RuleService, *recordingPublisher) {
	pub := &recordingPublisher{}
	return NewRuleService(RuleServiceConfig{
		RuleRepo:        memRuleRepo{store},
		AssignmentRepo:  memAssignmentRepo{store},
		ApplicationRepo: memApplicationRepo{store},
		EventPublisher:  pub,
		Clock:           shared.FixedClock{At: testNow},
	}), pub
}

func ruleInput(status fee.RuleStatus, effective string) fee.RuleInput {
	req := CreateFeeRuleRequest{
		Name:          "Tractor hire",
		Type:          "equipment",
		Amount:        decimal.NewFromInt(750),
		Frequency:     "per_transaction",
		Status:        string(status),
		ApplicableTo:  "all_members",
		EffectiveDate: effective,
	}
	in, err := req.ToInput(testNow.Location())
	if err != nil {
		panic(err)
	}
	return in
}

func TestRuleService_Create(t *testing.T) {
	store := newMemStore()
	svc, _ := newTestRuleService(store)

	t.Run("future active rule is forced to scheduled", func(t *testing.T) {
		resp, err := svc.Create(context.Background(), admin, ruleInput(fee.RuleStatusActive, "2024-02-01"))
		require.NoError(t, err)
		assert.Equal(t, "scheduled", resp.Status)
		assert.Equal(t, "2024-02-01", resp.EffectiveDate)
		assert.Equal(t, admin.UserID, resp.CreatedBy)
	})

	t.Run("future draft stays draft", func(t *testing.T) {
		resp, err := svc.Create(context.Background(), admin, ruleInput(fee.RuleStatusDraft, "2024-02-01"))
		require.NoError(t, err)
		assert.Equal(t, "draft", resp.Status)
	})

	t.Run("effective today may be active", func(t *testing.T) {
		resp, err := svc.Create(context.Background(), admin, ruleInput(fee.RuleStatusActive, "2024-01-10"))
		require.NoError(t, err)
		assert.Equal(t, "active", resp.Status)
		assert.Equal(t, "2024-01-10", resp.DueDate)
	})

	t.Run("members cannot create rules", func(t *testing.T) {
		_, err := svc.Create(context.Background(), member, ruleInput(fee.RuleStatusActive, "2024-01-10"))
		assert.ErrorIs(t, err, shared.ErrForbidden)
	})
}

func TestRuleService_UpdateActivatingPublishesEvent(t *testing.T) {
	store := newMemStore()
	svc, pub := newTestRuleService(store)

	created, err := svc.Create(context.Background(), admin, ruleInput(fee.RuleStatusDraft, "2024-01-10"))
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), admin, created.ID, ruleInput(fee.RuleStatusActive, "2024-01-10"))
	require.NoError(t, err)
	assert.Equal(t, "active", updated.Status)
	assert.Equal(t, []string{fee.EventTypeFeeRuleActivated}, pub.types())
}

func TestRuleService_DeleteHidesRule(t *testing.T) {
	store := newMemStore()
	svc, _ := newTestRuleService(store)

	created, err := svc.Create(context.Background(), admin, ruleInput(fee.RuleStatusActive, "2024-01-10"))
	require.NoError(t, err)
	require.NoError(t, svc.Delete(context.Background(), admin, created.ID))

	_, err = svc.Get(context.Background(), created.ID)
	assert.ErrorIs(t, err, fee.ErrFeeRuleNotFound)

	page, err := svc.List(context.Background(), shared.DefaultFilter())
	require.NoError(t, err)
	assert.Equal(t, int64(0), page.Total)
}

func TestRuleService_ListApplications(t *testing.T) {
	store := newMemStore()
	svc, _ := newTestRuleService(store)
	rule := addRule(t, store, fee.RuleInput{Amount: decimal.NewFromInt(10)}, testNow)
	app, err := fee.NewFeeApplication(rule, member.UserID, nil, nil, testNow)
	require.NoError(t, err)
	require.NoError(t, memApplicationRepo{store}.Create(context.Background(), app))

	page, err := svc.ListApplications(context.Background(), member, nil, shared.DefaultFilter())
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, app.ID, page.Items[0].ID)

	other := uuid.New()
	_, err = svc.ListApplications(context.Background(), member, &other, shared.DefaultFilter())
	assert.ErrorIs(t, err, shared.ErrForbidden)

	page, err = svc.ListApplications(context.Background(), admin, &member.UserID, shared.DefaultFilter())
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
}
