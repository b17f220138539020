package aggregation

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/disputeops/internal/config"
	"github.com/smallbiznis/disputeops/internal/dashboard/domain"
	disputedomain "github.com/smallbiznis/disputeops/internal/dispute/domain"
	"go.uber.org/fx"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Repo      disputedomain.Repository
	Config    config.Config
	Dashboard *config.DashboardConfigHolder `optional:"true"`
}

// Engine computes per-category counts and sums over calendar windows.
type Engine struct {
	db        *gorm.DB
	repo      disputedomain.Repository
	loc       *time.Location
	dashboard *config.DashboardConfigHolder
}

func NewEngine(p Params) *Engine {
	return &Engine{
		db:        p.DB,
		repo:      p.Repo,
		loc:       p.Config.Location(),
		dashboard: p.Dashboard,
	}
}

// Location is the time zone calendar dates are evaluated in.
func (e *Engine) Location() *time.Location {
	return e.loc
}

// Trend is the percentage change from previous to current rounded to two
// places. A zero previous value yields 0 rather than an infinite change.
func Trend(current, previous int64) float64 {
	if previous <= 0 {
		return 0
	}
	delta := decimal.NewFromInt(current - previous)
	return delta.Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(previous)).
		Round(2).
		InexactFloat64()
}

// Aggregate returns the totals of every category within window. A dimension
// of "all" or "" disables the acquirer bank filter.
func (e *Engine) Aggregate(ctx context.Context, window disputedomain.Window, dimension string) (domain.PerCategoryAggregate, error) {
	results, err := e.aggregateMany(ctx, []disputedomain.Window{window}, dimension)
	if err != nil {
		return domain.PerCategoryAggregate{}, err
	}
	return results[0], nil
}

// aggregateMany runs one Totals query per window and category on a single
// bounded group. The first failure cancels the rest.
func (e *Engine) aggregateMany(ctx context.Context, windows []disputedomain.Window, dimension string) ([]domain.PerCategoryAggregate, error) {
	categories := disputedomain.Categories
	totals := make([]disputedomain.Totals, len(windows)*len(categories))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency(e.dashboard.Get()))
	for wi := range windows {
		window := windows[wi]
		for ci, category := range categories {
			category := category
			slot := wi*len(categories) + ci
			filter := disputedomain.Filter{Window: &window, AcquirerBank: dimension}
			g.Go(func() error {
				row, err := e.repo.Totals(gctx, e.db, category, filter)
				if err != nil {
					return err
				}
				totals[slot] = row
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	results := make([]domain.PerCategoryAggregate, len(windows))
	for wi := range windows {
		agg := domain.PerCategoryAggregate{}
		for ci, category := range categories {
			agg.Set(category, totals[wi*len(categories)+ci])
		}
		results[wi] = agg
	}
	return results, nil
}

// DailyVolumes aggregates the single calendar date of date across all banks.
func (e *Engine) DailyVolumes(ctx context.Context, date time.Time) (domain.DailyVolumes, error) {
	window := disputedomain.DayWindow(date, e.loc)
	agg, err := e.Aggregate(ctx, window, disputedomain.AllBanks)
	if err != nil {
		return domain.DailyVolumes{}, err
	}
	return domain.DailyVolumes{
		Date:                 domain.FormatDate(window.Start),
		PerCategoryAggregate: agg,
	}, nil
}

// Annual aggregates year for bank and compares the total case count with
// the same window of the prior year.
func (e *Engine) Annual(ctx context.Context, year int, bank string) (domain.AnnualStatistics, error) {
	windows := []disputedomain.Window{
		disputedomain.YearWindow(year, e.loc),
		disputedomain.YearWindow(year-1, e.loc),
	}
	results, err := e.aggregateMany(ctx, windows, bank)
	if err != nil {
		return domain.AnnualStatistics{}, err
	}
	current, previous := results[0], results[1]

	label := bank
	if (disputedomain.Filter{AcquirerBank: bank}).BankFilter() == "" {
		label = domain.AllBanksLabel
	}

	return domain.AnnualStatistics{
		Year:                 year,
		Bank:                 label,
		TotalCases:           current.TotalCount,
		PreviousTotalCases:   previous.TotalCount,
		Trend:                Trend(current.TotalCount, previous.TotalCount),
		PerCategoryAggregate: current,
	}, nil
}

// Yearly returns span years ending at year, most recent first, each compared
// with the year before it.
func (e *Engine) Yearly(ctx context.Context, year, span int) ([]domain.PeriodStatistics, error) {
	if span <= 0 {
		return []domain.PeriodStatistics{}, nil
	}

	// windows[i] is year-i; the extra trailing window feeds the oldest trend.
	windows := make([]disputedomain.Window, span+1)
	for i := range windows {
		windows[i] = disputedomain.YearWindow(year-i, e.loc)
	}
	results, err := e.aggregateMany(ctx, windows, disputedomain.AllBanks)
	if err != nil {
		return nil, err
	}

	periods := make([]domain.PeriodStatistics, 0, span)
	for i := 0; i < span; i++ {
		periods = append(periods, domain.PeriodStatistics{
			Year:                 year - i,
			Trend:                categoryTrend(results[i], results[i+1]),
			PerCategoryAggregate: results[i],
		})
	}
	return periods, nil
}

// Monthly returns the twelve months of year in order. Each month is compared
// with the month before it, January with December of the prior year.
func (e *Engine) Monthly(ctx context.Context, year int) ([]domain.PeriodStatistics, error) {
	// windows[0] is December of year-1, windows[m] is month m of year.
	windows := make([]disputedomain.Window, 13)
	windows[0] = disputedomain.MonthWindow(year-1, time.December, e.loc)
	for m := 1; m <= 12; m++ {
		windows[m] = disputedomain.MonthWindow(year, time.Month(m), e.loc)
	}
	results, err := e.aggregateMany(ctx, windows, disputedomain.AllBanks)
	if err != nil {
		return nil, err
	}

	periods := make([]domain.PeriodStatistics, 0, 12)
	for m := 1; m <= 12; m++ {
		periods = append(periods, domain.PeriodStatistics{
			Year:                 year,
			Month:                m,
			Trend:                categoryTrend(results[m], results[m-1]),
			PerCategoryAggregate: results[m],
		})
	}
	return periods, nil
}

// History returns per-day category counts for the days calendar dates
// ending at end, in chronological order.
func (e *Engine) History(ctx context.Context, end time.Time, days int) ([]domain.VolumePoint, error) {
	if days <= 0 {
		return []domain.VolumePoint{}, nil
	}
	last := disputedomain.DayWindow(end, e.loc).Start
	first := time.Date(last.Year(), last.Month(), last.Day()-(days-1), 0, 0, 0, 0, last.Location())

	span := disputedomain.Window{Start: first, End: last}
	dates := span.Days()
	windows := make([]disputedomain.Window, len(dates))
	for i, d := range dates {
		windows[i] = disputedomain.Window{Start: d, End: d}
	}
	results, err := e.aggregateMany(ctx, windows, disputedomain.AllBanks)
	if err != nil {
		return nil, err
	}

	points := make([]domain.VolumePoint, len(dates))
	for i, d := range dates {
		agg := results[i]
		points[i] = domain.VolumePoint{
			Date:                   domain.FormatDate(d),
			ReceivedChargebacks:    agg.ReceivedChargebacks.Count,
			IssuedRepresentments:   agg.IssuedRepresentments.Count,
			IssuedChargebacks:      agg.IssuedChargebacks.Count,
			ReceivedRepresentments: agg.ReceivedRepresentments.Count,
			Total:                  agg.TotalCount,
		}
	}
	return points, nil
}

func concurrency(cfg config.DashboardConfig) int {
	if cfg.MaxConcurrency <= 0 {
		return -1
	}
	return cfg.MaxConcurrency
}

func categoryTrend(current, previous domain.PerCategoryAggregate) domain.CategoryTrend {
	return domain.CategoryTrend{
		ReceivedChargebacks:    Trend(current.ReceivedChargebacks.Count, previous.ReceivedChargebacks.Count),
		IssuedRepresentments:   Trend(current.IssuedRepresentments.Count, previous.IssuedRepresentments.Count),
		IssuedChargebacks:      Trend(current.IssuedChargebacks.Count, previous.IssuedChargebacks.Count),
		ReceivedRepresentments: Trend(current.ReceivedRepresentments.Count, previous.ReceivedRepresentments.Count),
		Total:                  Trend(current.TotalCount, previous.TotalCount),
	}
}
