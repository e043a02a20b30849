package persistence

import (
	"testing"
	"time"

	"github.com/agricoop/backend/internal/domain/membership"
	"github.com/agricoop/backend/internal/domain/shared"
	"github.com/agricoop/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testNow = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

func testDay(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// newTestDB opens an in-memory SQLite database with the real schema.
// A single connection keeps every statement on the same in-memory database.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, AutoMigrate(db))
	return db
}

func seedUnit(t *testing.T, db *gorm.DB, name string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	require.NoError(t, db.Create(&models.UnitModel{
		BaseModel: models.BaseModel{ID: id, CreatedAt: testNow, UpdatedAt: testNow},
		Name:      name,
	}).Error)
	return id
}

type userSeed struct {
	role         shared.Role
	status       membership.UserStatus
	unitID       *uuid.UUID
	createdAt    time.Time
	lastActivity *time.Time
}

func seedUser(t *testing.T, db *gorm.DB, s userSeed) uuid.UUID {
	t.Helper()
	if s.role == "" {
		s.role = shared.RoleMember
	}
	if s.status == "" {
		s.status = membership.UserStatusActive
	}
	if s.createdAt.IsZero() {
		s.createdAt = testNow.AddDate(-1, 0, 0)
	}
	u := &membership.User{
		ID:             uuid.New(),
		Name:           "member",
		Phone:          "0772123456",
		Role:           s.role,
		Status:         s.status,
		UnitID:         s.unitID,
		LastActivityAt: s.lastActivity,
		CreatedAt:      s.createdAt,
		UpdatedAt:      s.createdAt,
	}
	require.NoError(t, db.Create(models.UserModelFromDomain(u)).Error)
	return u.ID
}
