package ingest

import (
	"context"

	"github.com/smallbiznis/disputeops/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("ingest",
	fx.Provide(
		func(lc fx.Lifecycle, cfg config.Config) (*Ledger, error) {
			ledger, err := OpenLedger(cfg.Ingest.LedgerPath)
			if err != nil {
				return nil, err
			}
			lc.Append(fx.Hook{
				OnStop: func(context.Context) error { return ledger.Close() },
			})
			return ledger, nil
		},
		NewImporter,
	),
)
