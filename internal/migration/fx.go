package migration

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/disputeops/internal/config"
	"github.com/smallbiznis/disputeops/internal/seed"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, genID *snowflake.Node, log *zap.Logger) error {
		if err := Run(conn, cfg.DBType); err != nil {
			return err
		}

		ctx := context.Background()
		created, err := seed.EnsureAdmin(ctx, conn, genID, cfg.Bootstrap)
		if err != nil {
			return err
		}
		if created {
			log.Info("bootstrap admin created", zap.String("username", cfg.Bootstrap.AdminUsername))
		}

		if cfg.Bootstrap.SeedSampleData {
			inserted, err := seed.SampleData(ctx, conn, genID)
			if err != nil {
				return err
			}
			log.Info("sample dispute records seeded", zap.Int("records", inserted))
		}
		return nil
	}),
)
