package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/agricoop/backend/internal/infrastructure/config"
	"github.com/agricoop/backend/internal/infrastructure/persistence/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// pingTimeout bounds health-check pings so a stalled pool fails /health fast
const pingTimeout = 2 * time.Second

// Database wraps the GORM handle shared by the repositories
type Database struct {
	DB *gorm.DB
}

// NewDatabaseWithCustomLogger opens the Postgres pool and verifies it with a
// ping. TranslateError makes unique violations surface as
// gorm.ErrDuplicatedKey, which the fee application index relies on.
func NewDatabaseWithCustomLogger(cfg *config.DatabaseConfig, gormLogger logger.Interface) (*Database, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
		TranslateError:         true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Minute)

	database := &Database{DB: db}
	if err := database.Ping(); err != nil {
		return nil, err
	}
	return database, nil
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}

// Ping checks the pool within pingTimeout. It backs the database entry of
// the health endpoint.
func (d *Database) Ping() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	return nil
}

// AutoMigrate creates or updates every table this service owns or reads.
// Used by tests and local development; deployments run the SQL migrations.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.UnitModel{},
		&models.UserModel{},
		&models.FeeRuleModel{},
		&models.FeeRuleUnitModel{},
		&models.FeeApplicationModel{},
		&models.PaymentModel{},
	)
}
