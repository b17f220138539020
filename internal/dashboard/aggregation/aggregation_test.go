package aggregation

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/disputeops/internal/config"
	"github.com/smallbiznis/disputeops/internal/dashboard/domain"
	"github.com/smallbiznis/disputeops/internal/dispute/disputetest"
	disputedomain "github.com/smallbiznis/disputeops/internal/dispute/domain"
	"github.com/smallbiznis/disputeops/internal/dispute/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestEngine(t *testing.T) (*Engine, *gorm.DB) {
	t.Helper()
	conn := disputetest.NewDB(t)
	engine := NewEngine(Params{
		DB:        conn,
		Repo:      repository.Provide(),
		Config:    config.Config{Timezone: "UTC"},
		Dashboard: config.StaticDashboardConfig(config.DefaultDashboardConfig()),
	})
	return engine, conn
}

func TestTrend(t *testing.T) {
	for _, x := range []int64{0, 1, 7, 1000} {
		assert.Equal(t, 0.0, Trend(x, 0), "trend(%d, 0)", x)
		if x > 0 {
			assert.Equal(t, 0.0, Trend(x, x), "trend(%d, %d)", x, x)
			assert.Equal(t, 100.0, Trend(2*x, x), "trend(%d, %d)", 2*x, x)
		}
	}
	assert.Equal(t, -50.0, Trend(1, 2))
	assert.Equal(t, 33.33, Trend(4, 3))
	assert.Equal(t, -100.0, Trend(0, 5))
}

func TestDailyVolumes(t *testing.T) {
	engine, conn := newTestEngine(t)
	day := time.Date(2024, 12, 9, 9, 15, 0, 0, time.UTC)
	disputetest.Insert(t, conn, disputedomain.CategoryReceivedChargeback,
		disputetest.Record(day, "1250.50"),
		disputetest.Record(day.Add(3*time.Hour), "875.25"),
	)
	disputetest.Insert(t, conn, disputedomain.CategoryIssuedChargeback,
		disputetest.Record(day.AddDate(0, 0, 1), "10.00"),
	)

	got, err := engine.DailyVolumes(context.Background(), day)
	require.NoError(t, err)

	assert.Equal(t, "2024-12-09", got.Date)
	assert.Equal(t, int64(2), got.ReceivedChargebacks.Count)
	assert.True(t, got.ReceivedChargebacks.AmountPresented.Equal(decimal.RequireFromString("2125.75")),
		"amount = %s", got.ReceivedChargebacks.AmountPresented)
	for _, category := range []disputedomain.Category{
		disputedomain.CategoryIssuedRepresentment,
		disputedomain.CategoryIssuedChargeback,
		disputedomain.CategoryReceivedRepresentment,
	} {
		totals := got.For(category)
		assert.Equal(t, int64(0), totals.Count, category)
		assert.True(t, totals.AmountPresented.IsZero(), category)
	}
	assert.Equal(t, int64(2), got.TotalCount)
	assert.True(t, got.TotalAmount.Equal(decimal.RequireFromString("2125.75")))
}

func TestAggregateWindowIsDateInclusive(t *testing.T) {
	engine, conn := newTestEngine(t)
	start := time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 12, 9, 0, 0, 0, 0, time.UTC)

	disputetest.Insert(t, conn, disputedomain.CategoryReceivedChargeback,
		disputetest.Record(start, "1.00"),
		disputetest.Record(time.Date(2024, 12, 9, 23, 59, 59, 999_000_000, time.UTC), "2.00"),
		disputetest.Record(time.Date(2024, 12, 10, 0, 0, 0, 1_000_000, time.UTC), "4.00"),
		disputetest.Record(time.Date(2024, 11, 30, 23, 59, 59, 0, time.UTC), "8.00"),
	)

	window, err := disputedomain.NewWindow(start, end, time.UTC)
	require.NoError(t, err)

	got, err := engine.Aggregate(context.Background(), window, disputedomain.AllBanks)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.ReceivedChargebacks.Count)
	assert.True(t, got.ReceivedChargebacks.AmountPresented.Equal(decimal.RequireFromString("3.00")))
}

func TestAggregateTotalsAreCategorySums(t *testing.T) {
	engine, conn := newTestEngine(t)
	day := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)
	amounts := map[disputedomain.Category][]string{
		disputedomain.CategoryReceivedChargeback:    {"100.10", "0.01"},
		disputedomain.CategoryIssuedRepresentment:   {"55.55"},
		disputedomain.CategoryIssuedChargeback:      {"0.10", "0.20", "0.30"},
		disputedomain.CategoryReceivedRepresentment: {},
	}
	for category, values := range amounts {
		for _, value := range values {
			disputetest.Insert(t, conn, category, disputetest.Record(day, value))
		}
	}

	got, err := engine.Aggregate(context.Background(), disputedomain.DayWindow(day, time.UTC), "")
	require.NoError(t, err)

	var count int64
	sum := decimal.Zero
	for _, category := range disputedomain.Categories {
		count += got.For(category).Count
		sum = sum.Add(got.For(category).AmountPresented.Decimal)
	}
	assert.Equal(t, int64(6), got.TotalCount)
	assert.Equal(t, count, got.TotalCount)
	assert.True(t, got.TotalAmount.Equal(sum))
	assert.True(t, got.TotalAmount.Equal(decimal.RequireFromString("156.26")), "total = %s", got.TotalAmount)
}

func TestAggregateFiltersAcquirerBank(t *testing.T) {
	engine, conn := newTestEngine(t)
	day := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

	other := disputetest.Record(day, "40.00")
	other.AcquirerBank = "INGENICO"
	disputetest.Insert(t, conn, disputedomain.CategoryReceivedChargeback, disputetest.Record(day, "10.00"), other)

	window := disputedomain.DayWindow(day, time.UTC)
	got, err := engine.Aggregate(context.Background(), window, "INGENICO")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.TotalCount)

	got, err = engine.Aggregate(context.Background(), window, "all")
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.TotalCount)
}

func TestAnnualWithoutData(t *testing.T) {
	engine, _ := newTestEngine(t)

	got, err := engine.Annual(context.Background(), 2025, "all")
	require.NoError(t, err)
	assert.Equal(t, 2025, got.Year)
	assert.Equal(t, domain.AllBanksLabel, got.Bank)
	assert.Equal(t, int64(0), got.TotalCases)
	assert.Equal(t, 0.0, got.Trend)
	assert.True(t, got.TotalAmount.IsZero())
}

func TestAnnualTrend(t *testing.T) {
	engine, conn := newTestEngine(t)
	disputetest.Insert(t, conn, disputedomain.CategoryReceivedChargeback,
		disputetest.Record(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), "1.00"),
		disputetest.Record(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), "1.00"),
		disputetest.Record(time.Date(2025, 12, 31, 23, 59, 59, 0, time.UTC), "1.00"),
	)

	got, err := engine.Annual(context.Background(), 2025, "WORLDLINE")
	require.NoError(t, err)
	assert.Equal(t, "WORLDLINE", got.Bank)
	assert.Equal(t, int64(2), got.TotalCases)
	assert.Equal(t, int64(1), got.PreviousTotalCases)
	assert.Equal(t, 100.0, got.Trend)
}

func TestMonthlyComparesWithPreviousMonth(t *testing.T) {
	engine, conn := newTestEngine(t)
	disputetest.Insert(t, conn, disputedomain.CategoryIssuedChargeback,
		disputetest.Record(time.Date(2024, 12, 15, 0, 0, 0, 0, time.UTC), "1.00"),
		disputetest.Record(time.Date(2024, 12, 16, 0, 0, 0, 0, time.UTC), "1.00"),
		disputetest.Record(time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC), "1.00"),
		disputetest.Record(time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC), "1.00"),
		disputetest.Record(time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC), "1.00"),
	)

	periods, err := engine.Monthly(context.Background(), 2025)
	require.NoError(t, err)
	require.Len(t, periods, 12)

	assert.Equal(t, 1, periods[0].Month)
	assert.Equal(t, int64(1), periods[0].IssuedChargebacks.Count)
	assert.Equal(t, -50.0, periods[0].Trend.IssuedChargebacks)
	assert.Equal(t, 100.0, periods[1].Trend.IssuedChargebacks)
	assert.Equal(t, -100.0, periods[2].Trend.Total)
	assert.Equal(t, 0.0, periods[3].Trend.Total)
	assert.Equal(t, 0.0, periods[0].Trend.ReceivedChargebacks)
}

func TestYearlySeries(t *testing.T) {
	engine, conn := newTestEngine(t)
	disputetest.Insert(t, conn, disputedomain.CategoryReceivedChargeback,
		disputetest.Record(time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC), "1.00"),
		disputetest.Record(time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC), "1.00"),
		disputetest.Record(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), "1.00"),
	)

	periods, err := engine.Yearly(context.Background(), 2025, 5)
	require.NoError(t, err)
	require.Len(t, periods, 5)

	years := make([]int, 0, len(periods))
	for _, p := range periods {
		years = append(years, p.Year)
		assert.Zero(t, p.Month)
	}
	assert.Equal(t, []int{2025, 2024, 2023, 2022, 2021}, years)
	assert.Equal(t, int64(2), periods[0].TotalCount)
	assert.Equal(t, 0.0, periods[0].Trend.Total)
	assert.Equal(t, -100.0, periods[1].Trend.Total)
}

func TestHistoryIsChronological(t *testing.T) {
	engine, conn := newTestEngine(t)
	end := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	disputetest.Insert(t, conn, disputedomain.CategoryReceivedRepresentment,
		disputetest.Record(time.Date(2025, 2, 28, 10, 0, 0, 0, time.UTC), "1.00"),
		disputetest.Record(time.Date(2025, 2, 22, 10, 0, 0, 0, time.UTC), "1.00"),
	)

	points, err := engine.History(context.Background(), end, 7)
	require.NoError(t, err)
	require.Len(t, points, 7)
	assert.Equal(t, "2025-02-23", points[0].Date)
	assert.Equal(t, "2025-03-01", points[6].Date)
	assert.Equal(t, int64(1), points[5].ReceivedRepresentments)
	assert.Equal(t, int64(1), points[5].Total)

	var total int64
	for _, p := range points {
		total += p.Total
	}
	assert.Equal(t, int64(1), total)
}
