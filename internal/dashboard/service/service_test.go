package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/smallbiznis/disputeops/internal/cache"
	"github.com/smallbiznis/disputeops/internal/clock"
	"github.com/smallbiznis/disputeops/internal/config"
	"github.com/smallbiznis/disputeops/internal/dashboard/aggregation"
	"github.com/smallbiznis/disputeops/internal/dashboard/domain"
	"github.com/smallbiznis/disputeops/internal/dashboard/matching"
	"github.com/smallbiznis/disputeops/internal/dashboard/ranking"
	"github.com/smallbiznis/disputeops/internal/dispute/disputetest"
	disputedomain "github.com/smallbiznis/disputeops/internal/dispute/domain"
	"github.com/smallbiznis/disputeops/internal/dispute/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var fixtureDay = time.Date(2024, 12, 9, 0, 0, 0, 0, time.UTC)

type testEnv struct {
	svc   domain.Service
	db    *gorm.DB
	clock *clock.FakeClock
	cache cache.StatsCache
}

func newTestEnv(t *testing.T, cfg config.DashboardConfig, repo disputedomain.Repository) testEnv {
	t.Helper()
	conn := disputetest.NewDB(t)
	if repo == nil {
		repo = repository.Provide()
	}
	holder := config.StaticDashboardConfig(cfg)
	appCfg := config.Config{Timezone: "UTC"}
	fake := clock.NewFakeClock(fixtureDay.Add(15 * time.Hour))
	stats := cache.NewStatsCache()

	svc := NewService(Params{
		DB:          conn,
		Repo:        repo,
		Clock:       fake,
		Aggregation: aggregation.NewEngine(aggregation.Params{DB: conn, Repo: repo, Config: appCfg, Dashboard: holder}),
		Matching:    matching.NewEngine(matching.Params{DB: conn, Repo: repo}),
		Ranking:     ranking.NewEngine(ranking.Params{DB: conn, Repo: repo}),
		Dashboard:   holder,
		Cache:       stats,
	})
	return testEnv{svc: svc, db: conn, clock: fake, cache: stats}
}

func TestGetMatchingRecordsWithoutCounterpart(t *testing.T) {
	env := newTestEnv(t, config.DefaultDashboardConfig(), nil)

	chargeback := disputetest.Record(fixtureDay.Add(10*time.Hour), "1250.50")
	representment := disputetest.Record(fixtureDay.Add(11*time.Hour), "1250.50")
	representment.AuthorizationCode = "OTHER"
	disputetest.Insert(t, env.db, disputedomain.CategoryReceivedChargeback, chargeback)
	disputetest.Insert(t, env.db, disputedomain.CategoryIssuedRepresentment, representment)

	got, err := env.svc.GetMatchingRecords(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.ReceivedChargebacksLinked)
	assert.Equal(t, int64(1), got.ReceivedChargebacksTotal)
	assert.Equal(t, 0.0, got.ReceivedChargebacksRate)
	assert.Equal(t, int64(0), got.IssuedChargebacksLinked)
	assert.Equal(t, int64(0), got.IssuedChargebacksTotal)
	assert.Equal(t, 0.0, got.IssuedChargebacksRate)
}

func TestGetMatchingRecordsLinked(t *testing.T) {
	env := newTestEnv(t, config.DefaultDashboardConfig(), nil)

	disputetest.Insert(t, env.db, disputedomain.CategoryIssuedChargeback,
		disputetest.Record(fixtureDay, "10.00"),
		disputetest.Record(fixtureDay, "20.00"),
	)
	disputetest.Insert(t, env.db, disputedomain.CategoryReceivedRepresentment, disputetest.Record(fixtureDay, "10.00"))

	got, err := env.svc.GetMatchingRecords(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.IssuedChargebacksLinked)
	assert.Equal(t, int64(2), got.IssuedChargebacksTotal)
	assert.Equal(t, 100.0, got.IssuedChargebacksRate)

	window, err := disputedomain.NewWindow(fixtureDay.AddDate(0, 0, 1), fixtureDay.AddDate(0, 0, 3), time.UTC)
	require.NoError(t, err)
	got, err = env.svc.GetMatchingRecords(context.Background(), &window)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.IssuedChargebacksTotal)
	assert.Equal(t, "2024-12-10", got.StartDate)
	assert.Equal(t, "2024-12-12", got.EndDate)
}

func TestGetMatchingRecordsRejectsInvertedWindow(t *testing.T) {
	env := newTestEnv(t, config.DefaultDashboardConfig(), nil)
	window := disputedomain.Window{Start: fixtureDay, End: fixtureDay.AddDate(0, 0, -1)}

	_, err := env.svc.GetMatchingRecords(context.Background(), &window)
	assert.ErrorIs(t, err, domain.ErrInvalidWindow)
}

func TestGetDailyVolumesDefaultsToToday(t *testing.T) {
	env := newTestEnv(t, config.DefaultDashboardConfig(), nil)
	disputetest.Insert(t, env.db, disputedomain.CategoryReceivedChargeback,
		disputetest.Record(fixtureDay.Add(time.Hour), "1250.50"),
		disputetest.Record(fixtureDay.Add(2*time.Hour), "875.25"),
	)

	got, err := env.svc.GetDailyVolumes(context.Background(), time.Time{})
	require.NoError(t, err)
	assert.Equal(t, "2024-12-09", got.Date)
	assert.Equal(t, int64(2), got.ReceivedChargebacks.Count)
	assert.Equal(t, "2125.75", got.ReceivedChargebacks.AmountPresented.StringFixed(2))
	assert.Equal(t, int64(0), got.IssuedRepresentments.Count)
	assert.Equal(t, int64(0), got.IssuedChargebacks.Count)
	assert.Equal(t, int64(0), got.ReceivedRepresentments.Count)
}

func TestGetTodayCasesMergesAndPages(t *testing.T) {
	cfg := config.DefaultDashboardConfig()
	cfg.TodayCasesCap = 2
	env := newTestEnv(t, cfg, nil)

	disputetest.Insert(t, env.db, disputedomain.CategoryReceivedChargeback,
		disputetest.Record(fixtureDay.Add(1*time.Hour), "1.00"),
		disputetest.Record(fixtureDay.Add(5*time.Hour), "1.00"),
		disputetest.Record(fixtureDay.Add(6*time.Hour), "1.00"),
	)
	disputetest.Insert(t, env.db, disputedomain.CategoryIssuedRepresentment,
		disputetest.Record(fixtureDay.Add(4*time.Hour), "1.00"),
	)
	disputetest.Insert(t, env.db, disputedomain.CategoryIssuedChargeback,
		disputetest.Record(fixtureDay.Add(6*time.Hour), "1.00"),
	)
	disputetest.Insert(t, env.db, disputedomain.CategoryReceivedRepresentment,
		disputetest.Record(fixtureDay.AddDate(0, 0, 1), "1.00"),
	)

	got, err := env.svc.GetTodayCases(context.Background(), fixtureDay, 3, 0)
	require.NoError(t, err)
	assert.True(t, got.Truncated)
	assert.Equal(t, 4, got.Total)
	require.Len(t, got.Cases, 3)

	assert.Equal(t, disputedomain.CategoryReceivedChargeback, got.Cases[0].Category)
	assert.Equal(t, disputedomain.CategoryIssuedChargeback, got.Cases[1].Category)
	assert.Equal(t, disputedomain.CategoryReceivedChargeback, got.Cases[2].Category)
	for i := 1; i < len(got.Cases); i++ {
		assert.False(t, got.Cases[i].ProcessedAt.After(got.Cases[i-1].ProcessedAt))
	}

	next, err := env.svc.GetTodayCases(context.Background(), fixtureDay, 3, 3)
	require.NoError(t, err)
	require.Len(t, next.Cases, 1)
	assert.Equal(t, disputedomain.CategoryIssuedRepresentment, next.Cases[0].Category)

	past, err := env.svc.GetTodayCases(context.Background(), fixtureDay, 3, 10)
	require.NoError(t, err)
	assert.NotNil(t, past.Cases)
	assert.Empty(t, past.Cases)

	_, err = env.svc.GetTodayCases(context.Background(), fixtureDay, -1, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidLimit)
}

func TestGetTopIssuers(t *testing.T) {
	env := newTestEnv(t, config.DefaultDashboardConfig(), nil)
	lcl := disputetest.Record(fixtureDay.Add(time.Hour), "5000.00")
	lcl.IssuerBank, lcl.IssuerName = "30002", "LCL"
	disputetest.Insert(t, env.db, disputedomain.CategoryReceivedChargeback,
		disputetest.Record(fixtureDay.Add(time.Hour), "1250.50"),
		lcl,
	)

	zero, err := env.svc.GetTopIssuers(context.Background(), fixtureDay, 0)
	require.NoError(t, err)
	assert.NotNil(t, zero.Issuers)
	assert.Empty(t, zero.Issuers)

	got, err := env.svc.GetTopIssuers(context.Background(), fixtureDay, 1)
	require.NoError(t, err)
	require.Len(t, got.Issuers, 1)
	assert.Equal(t, "LCL", got.Issuers[0].DisplayName)

	acquirers, err := env.svc.GetTopAcquirers(context.Background(), fixtureDay, 5)
	require.NoError(t, err)
	require.Len(t, acquirers.Acquirers, 1)
	assert.Equal(t, int64(2), acquirers.Acquirers[0].Count)
	assert.Equal(t, "6250.50", acquirers.Acquirers[0].Volume.StringFixed(2))
}

func TestGetTopIssuersLegacyScope(t *testing.T) {
	cfg := config.DefaultDashboardConfig()
	cfg.RankingScope = config.RankingScopeReceivedChargebacks
	env := newTestEnv(t, cfg, nil)

	disputetest.Insert(t, env.db, disputedomain.CategoryIssuedChargeback, disputetest.Record(fixtureDay, "10.00"))

	got, err := env.svc.GetTopIssuers(context.Background(), fixtureDay, 5)
	require.NoError(t, err)
	assert.Empty(t, got.Issuers)
}

func TestGetVolumeHistory(t *testing.T) {
	env := newTestEnv(t, config.DefaultDashboardConfig(), nil)

	disputetest.Insert(t, env.db, disputedomain.CategoryReceivedChargeback,
		disputetest.Record(fixtureDay.Add(time.Hour), "1.00"),
		disputetest.Record(fixtureDay.AddDate(0, 0, -1).Add(time.Hour), "1.00"),
		disputetest.Record(fixtureDay.AddDate(0, 0, -7).Add(time.Hour), "1.00"),
	)

	got, err := env.svc.GetVolumeHistory(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 7, got.Days)
	require.Len(t, got.Points, 7)
	assert.Equal(t, "2024-12-02", got.Points[0].Date)
	assert.Equal(t, "2024-12-08", got.Points[6].Date)
	assert.Equal(t, int64(1), got.Points[0].ReceivedChargebacks)
	assert.Equal(t, int64(1), got.Points[6].ReceivedChargebacks)

	var total int64
	for _, p := range got.Points {
		total += p.Total
	}
	assert.Equal(t, int64(2), total, "today's records are not part of the series")

	env.clock.Set(fixtureDay.AddDate(0, 0, 1).Add(time.Minute))
	got, err = env.svc.GetVolumeHistory(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, got.Points, 1)
	assert.Equal(t, "2024-12-09", got.Points[0].Date)
	assert.Equal(t, int64(1), got.Points[0].Total)

	_, err = env.svc.GetVolumeHistory(context.Background(), 367)
	assert.ErrorIs(t, err, domain.ErrInvalidDays)
	_, err = env.svc.GetVolumeHistory(context.Background(), -1)
	assert.ErrorIs(t, err, domain.ErrInvalidDays)
}

func TestGetAnnualStatisticsEmpty(t *testing.T) {
	env := newTestEnv(t, config.DefaultDashboardConfig(), nil)

	got, err := env.svc.GetAnnualStatistics(context.Background(), 2025, "all")
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.TotalCases)
	assert.Equal(t, 0.0, got.Trend)
	assert.Equal(t, domain.AllBanksLabel, got.Bank)

	_, err = env.svc.GetAnnualStatistics(context.Background(), 12, "all")
	assert.ErrorIs(t, err, domain.ErrInvalidYear)
}

func TestGetAnnualStatisticsCachesClosedYears(t *testing.T) {
	env := newTestEnv(t, config.DefaultDashboardConfig(), nil)
	disputetest.Insert(t, env.db, disputedomain.CategoryReceivedChargeback,
		disputetest.Record(time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC), "1.00"))

	first, err := env.svc.GetAnnualStatistics(context.Background(), 2023, "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.TotalCases)

	disputetest.Insert(t, env.db, disputedomain.CategoryReceivedChargeback,
		disputetest.Record(time.Date(2023, 4, 1, 0, 0, 0, 0, time.UTC), "1.00"))

	cached, err := env.svc.GetAnnualStatistics(context.Background(), 2023, "all")
	require.NoError(t, err)
	assert.Equal(t, int64(1), cached.TotalCases)

	current, err := env.svc.GetAnnualStatistics(context.Background(), 2024, "all")
	require.NoError(t, err)
	_, ok := env.cache.GetAnnual(2024, "all")
	assert.False(t, ok)
	assert.Equal(t, int64(0), current.TotalCases)
}

func TestGetAnnualStatisticsBankIsCaseSensitive(t *testing.T) {
	env := newTestEnv(t, config.DefaultDashboardConfig(), nil)
	disputetest.Insert(t, env.db, disputedomain.CategoryReceivedChargeback,
		disputetest.Record(time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC), "1.00"))

	lower, err := env.svc.GetAnnualStatistics(context.Background(), 2023, "worldline")
	require.NoError(t, err)
	assert.Equal(t, "worldline", lower.Bank)
	assert.Equal(t, int64(0), lower.TotalCases)

	upper, err := env.svc.GetAnnualStatistics(context.Background(), 2023, "WORLDLINE")
	require.NoError(t, err)
	assert.Equal(t, "WORLDLINE", upper.Bank)
	assert.Equal(t, int64(1), upper.TotalCases)

	all, err := env.svc.GetAnnualStatistics(context.Background(), 2023, "ALL")
	require.NoError(t, err)
	assert.Equal(t, domain.AllBanksLabel, all.Bank)
	assert.Equal(t, int64(1), all.TotalCases)
}

func TestGetBankDistributionCoversAllCategories(t *testing.T) {
	env := newTestEnv(t, config.DefaultDashboardConfig(), nil)
	noName := disputetest.Record(fixtureDay, "1.00")
	noName.IssuerName = ""
	unknown := disputetest.Record(fixtureDay, "1.00")
	unknown.IssuerName, unknown.IssuerBank, unknown.AcquirerBank = "", "", ""

	disputetest.Insert(t, env.db, disputedomain.CategoryReceivedChargeback, disputetest.Record(fixtureDay, "1.00"), noName)
	disputetest.Insert(t, env.db, disputedomain.CategoryIssuedRepresentment, disputetest.Record(fixtureDay, "1.00"))
	disputetest.Insert(t, env.db, disputedomain.CategoryReceivedRepresentment, unknown)

	got, err := env.svc.GetBankDistribution(context.Background(), 2024)
	require.NoError(t, err)

	byBank := map[string]domain.BankCounts{}
	for _, row := range got.Issuers {
		byBank[row.Bank] = row
	}
	require.Contains(t, byBank, "BNP PARIBAS")
	assert.Equal(t, int64(1), byBank["BNP PARIBAS"].ReceivedChargebacks)
	assert.Equal(t, int64(1), byBank["BNP PARIBAS"].IssuedRepresentments)
	assert.Equal(t, int64(1), byBank["30004"].ReceivedChargebacks)
	assert.Equal(t, int64(1), byBank[domain.UnknownBank].ReceivedRepresentments)
	assert.Equal(t, "BNP PARIBAS", got.Issuers[0].Bank)

	require.Len(t, got.Acquirers, 2)
	assert.Equal(t, "WORLDLINE", got.Acquirers[0].Bank)
	assert.Equal(t, int64(3), got.Acquirers[0].Total)
	assert.Equal(t, domain.UnknownBank, got.Acquirers[1].Bank)
}

func TestGetMonthlyYearlyStatistics(t *testing.T) {
	env := newTestEnv(t, config.DefaultDashboardConfig(), nil)

	monthly, err := env.svc.GetMonthlyYearlyStatistics(context.Background(), 2024, "")
	require.NoError(t, err)
	assert.Equal(t, domain.ModeMonthly, monthly.Mode)
	assert.Len(t, monthly.Periods, 12)

	yearly, err := env.svc.GetMonthlyYearlyStatistics(context.Background(), 2024, "YEARLY")
	require.NoError(t, err)
	assert.Len(t, yearly.Periods, 5)
	assert.Equal(t, 2024, yearly.Periods[0].Year)

	_, err = env.svc.GetMonthlyYearlyStatistics(context.Background(), 2024, "weekly")
	assert.ErrorIs(t, err, domain.ErrInvalidMode)
}

func TestGetTodayDataByCategory(t *testing.T) {
	cfg := config.DefaultDashboardConfig()
	cfg.CategoryCap = 1
	env := newTestEnv(t, cfg, nil)
	disputetest.Insert(t, env.db, disputedomain.CategoryIssuedChargeback,
		disputetest.Record(fixtureDay.Add(time.Hour), "1.00"),
		disputetest.Record(fixtureDay.Add(2*time.Hour), "1.00"),
	)

	got, err := env.svc.GetTodayDataByCategory(context.Background(), fixtureDay)
	require.NoError(t, err)
	assert.Len(t, got.IssuedChargebacks, 1)
	assert.NotNil(t, got.ReceivedChargebacks)
	assert.Empty(t, got.ReceivedChargebacks)
	assert.True(t, fixtureDay.Add(2*time.Hour).Equal(got.IssuedChargebacks[0].ProcessedAt))
}

type failingRepo struct {
	disputedomain.Repository
	err   error
	block bool
}

func (r failingRepo) Totals(ctx context.Context, _ *gorm.DB, _ disputedomain.Category, _ disputedomain.Filter) (disputedomain.Totals, error) {
	if r.block {
		<-ctx.Done()
		return disputedomain.Totals{}, ctx.Err()
	}
	return disputedomain.Totals{}, r.err
}

func (r failingRepo) Keys(ctx context.Context, _ *gorm.DB, _ disputedomain.Category, _ disputedomain.Filter) ([]disputedomain.CompositeKey, error) {
	return nil, r.err
}

func TestStorageFailureIsClassified(t *testing.T) {
	driverErr := errors.New("connection refused")
	env := newTestEnv(t, config.DefaultDashboardConfig(), failingRepo{err: driverErr})

	_, err := env.svc.GetDailyVolumes(context.Background(), fixtureDay)
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
	assert.ErrorIs(t, err, driverErr)

	_, err = env.svc.GetMatchingRecords(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
}

func TestDeadlineSurfacesTimeout(t *testing.T) {
	cfg := config.DefaultDashboardConfig()
	cfg.QueryTimeout = 20 * time.Millisecond
	env := newTestEnv(t, cfg, failingRepo{block: true})

	_, err := env.svc.GetVolumeHistory(context.Background(), 3)
	assert.ErrorIs(t, err, domain.ErrTimeout)
}

func TestGetBankDistributionCachesClosedYears(t *testing.T) {
	env := newTestEnv(t, config.DefaultDashboardConfig(), nil)

	_, err := env.svc.GetBankDistribution(context.Background(), 2022)
	require.NoError(t, err)
	_, ok := env.cache.GetDistribution(2022)
	assert.True(t, ok)

	_, err = env.svc.GetBankDistribution(context.Background(), 2024)
	require.NoError(t, err)
	_, ok = env.cache.GetDistribution(2024)
	assert.False(t, ok)
}
