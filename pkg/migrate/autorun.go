package migrate

import (
	"context"
	"fmt"

	"github.com/bairdservice/baird-backend/pkg/config"
	"github.com/bairdservice/baird-backend/pkg/db"
	"github.com/bairdservice/baird-backend/pkg/logger"
)

// MaybeRunDev applies the embedded migrations on boot when running in dev
// with BAIRD_AUTO_MIGRATE enabled.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	sqlDB, err := client.SQL()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	ctx = logg.WithField(ctx, "env", cfg.App.Env)
	logg.Info(ctx, "applying embedded migrations")
	if err := Up(ctx, sqlDB); err != nil {
		return err
	}
	logg.Info(ctx, "embedded migrations applied")
	return nil
}
