package telemetry

import (
	"fmt"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig configures RegisterDBTracing
type DBTracingConfig struct {
	Enabled bool
	DBName  string
	// WithVariables puts bound query values into spans. Member MSISDNs are
	// among them, so this stays off outside development.
	WithVariables  bool
	TracerProvider trace.TracerProvider
}

// RegisterDBTracing adds a span per GORM statement, parented on the request
// or sweep span carried by the statement context. Repositories must pass ctx
// through WithContext for the parent to be found.
func RegisterDBTracing(db *gorm.DB, cfg DBTracingConfig, logger *zap.Logger) error {
	if !cfg.Enabled {
		return nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := []otelgorm.Option{otelgorm.WithDBName(cfg.DBName)}
	if cfg.TracerProvider != nil {
		opts = append(opts, otelgorm.WithTracerProvider(cfg.TracerProvider))
	}
	if !cfg.WithVariables {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return fmt.Errorf("failed to register gorm tracing: %w", err)
	}

	logger.Info("Database tracing enabled",
		zap.String("db_name", cfg.DBName),
		zap.Bool("with_variables", cfg.WithVariables))
	return nil
}
