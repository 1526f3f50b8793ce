package migrate

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// MaybeRunDev applies the embedded migrations on startup when running in dev
// with STOREFRONT_AUTO_MIGRATE enabled. Other environments migrate through
// cmd/migrate.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if cfg == nil || !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	sqlDB, err := client.SQL()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "source": "embedded"})
	started := time.Now()
	logg.Info(ctx, "migrations.autorun.start")

	if err := Run(ctx, sqlDB, "", "up"); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}

	logg.Info(logg.WithField(ctx, "elapsed_ms", time.Since(started).Milliseconds()), "migrations.autorun.done")
	return nil
}
