package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/disputeops/internal/clock"
	"github.com/smallbiznis/disputeops/internal/config"
	"github.com/smallbiznis/disputeops/internal/ingest"
	"github.com/smallbiznis/disputeops/internal/migration"
	"github.com/smallbiznis/disputeops/internal/observability"
	"github.com/smallbiznis/disputeops/internal/scheduler"
	"github.com/smallbiznis/disputeops/internal/server"
	"github.com/smallbiznis/disputeops/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// HTTP API and the domains it serves
		server.Module,

		dropDirImports(config.Load()),
	)
	app.Run()
}

// dropDirImports polls INGEST_DROP_DIR when it is set. The ingest ledger is
// only opened then, leaving it free for disputectl otherwise.
func dropDirImports(cfg config.Config) fx.Option {
	if cfg.Ingest.DropDir == "" {
		return fx.Options()
	}
	return fx.Options(ingest.Module, scheduler.Module)
}

func RegisterSnowflake() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}
