package domain

import (
	"context"
	"time"

	disputedomain "github.com/smallbiznis/disputeops/internal/dispute/domain"
)

// Service is the query surface the dashboard endpoints call. Dates are
// interpreted as calendar dates in the dashboard location.
type Service interface {
	GetDailyVolumes(ctx context.Context, date time.Time) (DailyVolumes, error)
	GetMatchingRecords(ctx context.Context, window *disputedomain.Window) (MatchingRecords, error)
	GetTodayCases(ctx context.Context, date time.Time, limit, offset int) (TodayCases, error)
	GetTopIssuers(ctx context.Context, date time.Time, limit int) (TopIssuers, error)
	GetTopAcquirers(ctx context.Context, date time.Time, limit int) (TopAcquirers, error)
	GetVolumeHistory(ctx context.Context, days int) (VolumeHistory, error)
	GetAnnualStatistics(ctx context.Context, year int, bank string) (AnnualStatistics, error)
	GetBankDistribution(ctx context.Context, year int) (BankDistribution, error)
	GetMonthlyYearlyStatistics(ctx context.Context, year int, mode string) (PeriodSeries, error)
	GetTodayDataByCategory(ctx context.Context, date time.Time) (CategoryRecords, error)
}
