package telemetry

import (
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig controls GORM span creation
type DBTracingConfig struct {
	Enabled bool
	// IncludeQueryVariables puts bound values into db.statement; leaks data, dev only
	IncludeQueryVariables bool
	DBName                string
}

// RegisterDBTracing installs the otelgorm plugin so every query becomes a child span
func RegisterDBTracing(db *gorm.DB, cfg DBTracingConfig, logger *zap.Logger) error {
	if !cfg.Enabled {
		return nil
	}
	opts := []otelgorm.Option{}
	if cfg.DBName != "" {
		opts = append(opts, otelgorm.WithDBName(cfg.DBName))
	}
	if !cfg.IncludeQueryVariables {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}
	logger.Info("Database tracing enabled",
		zap.String("dialect", db.Dialector.Name()),
		zap.Bool("query_variables", cfg.IncludeQueryVariables),
	)
	return nil
}
