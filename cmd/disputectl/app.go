package main

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/disputeops/internal/clock"
	"github.com/smallbiznis/disputeops/internal/config"
	"github.com/smallbiznis/disputeops/internal/migration"
	"github.com/smallbiznis/disputeops/internal/observability"
	"github.com/smallbiznis/disputeops/pkg/db"
	"go.uber.org/fx"
)

const appTimeout = 30 * time.Second

// nodeID keeps CLI generated ids apart from the server's node.
const nodeID = 2

func newSnowflake() (*snowflake.Node, error) {
	return snowflake.NewNode(nodeID)
}

// withApp starts the core modules plus opts, brings the schema up to date,
// runs fn and stops the app again. Use fx.Populate in opts to hand
// dependencies to fn.
func withApp(ctx context.Context, fn func(context.Context) error, opts ...fx.Option) error {
	options := []fx.Option{
		fx.NopLogger,
		config.Module,
		observability.Module,
		fx.Provide(newSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
	}
	app := fx.New(append(options, opts...)...)
	if err := app.Err(); err != nil {
		return err
	}

	startCtx, cancel := context.WithTimeout(ctx, appTimeout)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), appTimeout)
		defer cancel()
		_ = app.Stop(stopCtx)
	}()

	return fn(ctx)
}
