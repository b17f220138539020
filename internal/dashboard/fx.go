package dashboard

import (
	"github.com/smallbiznis/disputeops/internal/cache"
	"github.com/smallbiznis/disputeops/internal/dashboard/aggregation"
	"github.com/smallbiznis/disputeops/internal/dashboard/matching"
	"github.com/smallbiznis/disputeops/internal/dashboard/ranking"
	"github.com/smallbiznis/disputeops/internal/dashboard/service"
	"go.uber.org/fx"
)

var Module = fx.Module("dashboard.service",
	fx.Provide(matching.NewEngine),
	fx.Provide(aggregation.NewEngine),
	fx.Provide(ranking.NewEngine),
	fx.Provide(cache.NewStatsCache),
	fx.Provide(service.NewService),
)
