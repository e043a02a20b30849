package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	appfee "github.com/agricoop/backend/internal/application/fee"
	"github.com/agricoop/backend/internal/domain/fee"
	"github.com/agricoop/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func createApplication(t *testing.T, db *gorm.DB, rule *fee.FeeRule, userID uuid.UUID, now time.Time) *fee.FeeApplication {
	t.Helper()
	app, err := fee.NewFeeApplication(rule, userID, nil, nil, now)
	require.NoError(t, err)
	require.NoError(t, NewGormFeeApplicationRepository(db).Create(context.Background(), app))
	return app
}

func TestFeeApplicationRepository_CreateAndFind(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormFeeApplicationRepository(db)
	ctx := context.Background()

	rule := saveRule(t, db, "Land levy", fee.RuleStatusActive, testDay(2024, 3, 1))
	unitID := seedUnit(t, db, "North")
	userID := seedUser(t, db, userSeed{unitID: &unitID})

	override := decimal.NewFromInt(4200)
	app, err := fee.NewFeeApplication(rule, userID, &unitID, &override, testNow)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, app))

	found, err := repo.FindByID(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, rule.ID, found.FeeRuleID)
	assert.Equal(t, userID, found.UserID)
	require.NotNil(t, found.UnitID)
	assert.Equal(t, unitID, *found.UnitID)
	assert.True(t, override.Equal(found.Amount))
	assert.Equal(t, fee.ApplicationStatusPending, found.Status)
	assert.True(t, found.DueDate.Equal(testDay(2024, 4, 1)))
	assert.Nil(t, found.PaidDate)

	calc := found.CalculationData
	assert.True(t, decimal.NewFromInt(5000).Equal(calc.BaseAmount))
	require.NotNil(t, calc.UnitOverride)
	assert.True(t, override.Equal(*calc.UnitOverride))
	assert.True(t, override.Equal(calc.FinalAmount))
	assert.Equal(t, fee.FrequencyMonthly, calc.Frequency)

	_, err = repo.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, fee.ErrFeeApplicationNotFound)
}

func TestFeeApplicationRepository_OneOpenApplicationPerRuleAndUser(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormFeeApplicationRepository(db)
	ctx := context.Background()

	rule := saveRule(t, db, "Land levy", fee.RuleStatusActive, testDay(2024, 3, 1))
	userID := seedUser(t, db, userSeed{})

	first := createApplication(t, db, rule, userID, testNow)

	dup, err := fee.NewFeeApplication(rule, userID, nil, nil, testNow)
	require.NoError(t, err)
	assert.ErrorIs(t, repo.Create(ctx, dup), fee.ErrDuplicateOpenApplication)

	open, err := repo.ExistsOpen(ctx, rule.ID, userID)
	require.NoError(t, err)
	assert.True(t, open)

	// once paid, the user may be charged under the rule again
	require.True(t, first.MarkPaid(testNow.Add(time.Hour)))
	require.NoError(t, repo.Save(ctx, first))

	open, err = repo.ExistsOpen(ctx, rule.ID, userID)
	require.NoError(t, err)
	assert.False(t, open)

	next, err := fee.NewFeeApplication(rule, userID, nil, nil, testNow.Add(2*time.Hour))
	require.NoError(t, err)
	assert.NoError(t, repo.Create(ctx, next))
}

func TestFeeApplicationRepository_OverdueApplicationStaysOpen(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormFeeApplicationRepository(db)
	ctx := context.Background()

	rule := saveRule(t, db, "Water levy", fee.RuleStatusActive, testDay(2024, 3, 1))
	userID := seedUser(t, db, userSeed{})

	first := createApplication(t, db, rule, userID, testNow)
	require.True(t, first.MarkOverdue(first.DueDate.AddDate(0, 0, 1)))
	require.NoError(t, repo.Save(ctx, first))

	dup, err := fee.NewFeeApplication(rule, userID, nil, nil, testNow)
	require.NoError(t, err)
	assert.ErrorIs(t, repo.Create(ctx, dup), fee.ErrDuplicateOpenApplication)
}

func TestFeeApplicationRepository_DuplicateLeavesTransactionUsable(t *testing.T) {
	db := newTestDB(t)
	scope := NewGormFeeTransactionScope(db)
	ctx := context.Background()

	rule := saveRule(t, db, "Land levy", fee.RuleStatusActive, testDay(2024, 3, 1))
	alice := seedUser(t, db, userSeed{})
	bob := seedUser(t, db, userSeed{})
	createApplication(t, db, rule, alice, testNow)

	var skipped int
	err := scope.Execute(ctx, func(repos appfee.TransactionalRepositories) error {
		for _, userID := range []uuid.UUID{alice, bob} {
			app, err := fee.NewFeeApplication(rule, userID, nil, nil, testNow)
			if err != nil {
				return err
			}
			err = repos.Nested(ctx, func(inner appfee.TransactionalRepositories) error {
				return inner.FeeApplicationRepo().Create(ctx, app)
			})
			if errors.Is(err, fee.ErrDuplicateOpenApplication) {
				skipped++
				continue
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, skipped)

	ids, err := NewGormFeeApplicationRepository(db).OpenUserIDs(ctx, rule.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{alice, bob}, ids)
}

func TestFeeApplicationRepository_SaveDetectsStaleVersion(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormFeeApplicationRepository(db)
	ctx := context.Background()

	rule := saveRule(t, db, "Land levy", fee.RuleStatusActive, testDay(2024, 3, 1))
	app := createApplication(t, db, rule, seedUser(t, db, userSeed{}), testNow)

	stale := *app
	require.True(t, app.MarkPaid(testNow.Add(time.Hour)))
	require.NoError(t, repo.Save(ctx, app))

	require.True(t, stale.MarkOverdue(testDay(2024, 5, 1)))
	assert.ErrorIs(t, repo.Save(ctx, &stale), shared.ErrConcurrencyConflict)

	found, err := repo.FindByID(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, fee.ApplicationStatusPaid, found.Status)
	require.NotNil(t, found.PaidDate)
	assert.Equal(t, app.Version, found.Version)
}

func TestFeeApplicationRepository_Queries(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormFeeApplicationRepository(db)
	ctx := context.Background()

	monthly := saveRule(t, db, "Land levy", fee.RuleStatusActive, testDay(2024, 2, 1))
	yearly := saveRule(t, db, "Storage", fee.RuleStatusActive, testDay(2024, 3, 1))
	yearly.Frequency = fee.FrequencyYearly
	alice := seedUser(t, db, userSeed{})
	bob := seedUser(t, db, userSeed{})

	overdueCandidate := createApplication(t, db, monthly, alice, testNow)
	notDue := createApplication(t, db, yearly, alice, testNow.Add(time.Minute))
	bobs := createApplication(t, db, monthly, bob, testNow.Add(2*time.Minute))

	t.Run("pending due before", func(t *testing.T) {
		due, err := repo.FindPendingDueBefore(ctx, testDay(2024, 3, 15))
		require.NoError(t, err)
		require.Len(t, due, 2)
		for _, app := range due {
			assert.Equal(t, monthly.ID, app.FeeRuleID)
		}

		localMidnight := time.Date(2024, 3, 15, 0, 0, 0, 0, time.FixedZone("EAT", 3*60*60))
		due, err = repo.FindPendingDueBefore(ctx, localMidnight)
		require.NoError(t, err)
		assert.Len(t, due, 2)
	})

	t.Run("ids for user skip foreign applications", func(t *testing.T) {
		apps, err := repo.FindByIDsForUser(ctx, []uuid.UUID{overdueCandidate.ID, bobs.ID, uuid.New()}, alice)
		require.NoError(t, err)
		require.Len(t, apps, 1)
		assert.Equal(t, overdueCandidate.ID, apps[0].ID)

		apps, err = repo.FindByIDsForUser(ctx, nil, alice)
		require.NoError(t, err)
		assert.Empty(t, apps)
	})

	t.Run("ids", func(t *testing.T) {
		apps, err := repo.FindByIDs(ctx, []uuid.UUID{notDue.ID, bobs.ID})
		require.NoError(t, err)
		assert.Len(t, apps, 2)
	})

	t.Run("by user newest first", func(t *testing.T) {
		apps, total, err := repo.FindByUser(ctx, alice, shared.DefaultFilter())
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		require.Len(t, apps, 2)
		assert.Equal(t, notDue.ID, apps[0].ID)
		assert.Equal(t, overdueCandidate.ID, apps[1].ID)
	})

	t.Run("by user filtered by rule", func(t *testing.T) {
		filter := shared.DefaultFilter()
		filter.Filters["fee_rule_id"] = yearly.ID.String()
		apps, total, err := repo.FindByUser(ctx, alice, filter)
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, apps, 1)
		assert.Equal(t, notDue.ID, apps[0].ID)
	})
}
