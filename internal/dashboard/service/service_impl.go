package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/smallbiznis/disputeops/internal/cache"
	"github.com/smallbiznis/disputeops/internal/clock"
	"github.com/smallbiznis/disputeops/internal/config"
	"github.com/smallbiznis/disputeops/internal/dashboard/aggregation"
	"github.com/smallbiznis/disputeops/internal/dashboard/domain"
	"github.com/smallbiznis/disputeops/internal/dashboard/matching"
	"github.com/smallbiznis/disputeops/internal/dashboard/ranking"
	disputedomain "github.com/smallbiznis/disputeops/internal/dispute/domain"
	"github.com/smallbiznis/disputeops/internal/observability/metrics"
	"go.uber.org/fx"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const (
	minYear = 1900
	maxYear = 9999

	outcomeOK      = "ok"
	outcomeError   = "error"
	outcomeTimeout = "timeout"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Repo         disputedomain.Repository
	Clock        clock.Clock
	Aggregation  *aggregation.Engine
	Matching     *matching.Engine
	Ranking      *ranking.Engine
	Dashboard    *config.DashboardConfigHolder `optional:"true"`
	Cache        cache.StatsCache              `optional:"true"`
	QueryMetrics *metrics.QueryMetrics         `optional:"true"`
	Metrics      *metrics.Metrics              `optional:"true"`
}

type Service struct {
	db           *gorm.DB
	repo         disputedomain.Repository
	clock        clock.Clock
	aggregation  *aggregation.Engine
	matching     *matching.Engine
	ranking      *ranking.Engine
	dashboard    *config.DashboardConfigHolder
	cache        cache.StatsCache
	queryMetrics *metrics.QueryMetrics
	metrics      *metrics.Metrics
}

func NewService(p Params) domain.Service {
	statsCache := p.Cache
	if statsCache == nil {
		statsCache = cache.NewStatsCache()
	}
	return &Service{
		db:           p.DB,
		repo:         p.Repo,
		clock:        p.Clock,
		aggregation:  p.Aggregation,
		matching:     p.Matching,
		ranking:      p.Ranking,
		dashboard:    p.Dashboard,
		cache:        statsCache,
		queryMetrics: p.QueryMetrics,
		metrics:      p.Metrics,
	}
}

// run executes fn under the configured query deadline and maps its failure
// onto the query error taxonomy.
func (s *Service) run(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	if timeout := s.dashboard.Get().QueryTimeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	err := disputedomain.ClassifyError(ctx, fn(ctx))
	s.queryMetrics.Observe(operation, time.Since(start), err)

	outcome := outcomeOK
	switch {
	case errors.Is(err, domain.ErrTimeout):
		outcome = outcomeTimeout
	case err != nil:
		outcome = outcomeError
	}
	s.metrics.RecordDashboardQuery(ctx, operation, outcome)
	return err
}

func (s *Service) loc() *time.Location {
	return s.aggregation.Location()
}

func (s *Service) today() time.Time {
	return disputedomain.DayWindow(s.clock.Now(), s.loc()).Start
}

func (s *Service) dateOrToday(date time.Time) time.Time {
	if date.IsZero() {
		return s.today()
	}
	return date
}

func (s *Service) GetDailyVolumes(ctx context.Context, date time.Time) (domain.DailyVolumes, error) {
	var out domain.DailyVolumes
	err := s.run(ctx, "daily_volumes", func(ctx context.Context) error {
		volumes, err := s.aggregation.DailyVolumes(ctx, s.dateOrToday(date))
		if err != nil {
			return err
		}
		out = volumes
		return nil
	})
	if err != nil {
		return domain.DailyVolumes{}, err
	}
	return out, nil
}

func (s *Service) GetMatchingRecords(ctx context.Context, window *disputedomain.Window) (domain.MatchingRecords, error) {
	if window != nil && window.End.Before(window.Start) {
		return domain.MatchingRecords{}, domain.ErrInvalidWindow
	}

	var received, issued matching.Linkage
	err := s.run(ctx, "matching_records", func(ctx context.Context) error {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			linkage, err := s.matching.CountLinked(gctx, matching.ReceivedChargebacks, window)
			if err != nil {
				return err
			}
			received = linkage
			return nil
		})
		g.Go(func() error {
			linkage, err := s.matching.CountLinked(gctx, matching.IssuedChargebacks, window)
			if err != nil {
				return err
			}
			issued = linkage
			return nil
		})
		return g.Wait()
	})
	if err != nil {
		return domain.MatchingRecords{}, err
	}

	out := domain.MatchingRecords{
		ReceivedChargebacksLinked: received.Linked,
		ReceivedChargebacksTotal:  received.Total,
		ReceivedChargebacksRate:   matching.Rate(received),
		IssuedChargebacksLinked:   issued.Linked,
		IssuedChargebacksTotal:    issued.Total,
		IssuedChargebacksRate:     matching.Rate(issued),
	}
	if window != nil {
		out.StartDate = domain.FormatDate(window.Start)
		out.EndDate = domain.FormatDate(window.End)
	}
	return out, nil
}

// GetTodayCases reads up to the configured cap of each category for the day,
// merges them newest first and pages through the merged list.
func (s *Service) GetTodayCases(ctx context.Context, date time.Time, limit, offset int) (domain.TodayCases, error) {
	cfg := s.dashboard.Get()
	if limit < 0 || offset < 0 {
		return domain.TodayCases{}, domain.ErrInvalidLimit
	}
	if limit == 0 {
		limit = cfg.TodayCasesLimit
	}

	window := disputedomain.DayWindow(s.dateOrToday(date), s.loc())
	perCategory := make([][]*disputedomain.Record, len(disputedomain.Categories))
	err := s.run(ctx, "today_cases", func(ctx context.Context) error {
		g, gctx := errgroup.WithContext(ctx)
		for i, category := range disputedomain.Categories {
			i, category := i, category
			g.Go(func() error {
				records, err := s.repo.Query(gctx, s.db, category, disputedomain.Filter{
					Window: &window,
					Limit:  cfg.TodayCasesCap + 1,
				})
				if err != nil {
					return err
				}
				perCategory[i] = records
				return nil
			})
		}
		return g.Wait()
	})
	if err != nil {
		return domain.TodayCases{}, err
	}

	truncated := false
	var cases []domain.TodayCase
	for i, category := range disputedomain.Categories {
		records := perCategory[i]
		if len(records) > cfg.TodayCasesCap {
			records = records[:cfg.TodayCasesCap]
			truncated = true
		}
		for _, record := range records {
			cases = append(cases, domain.TodayCase{Category: category, Record: record})
		}
	}
	sortCases(cases)

	total := len(cases)
	page := []domain.TodayCase{}
	if offset < total {
		end := offset + limit
		if end > total {
			end = total
		}
		page = cases[offset:end]
	}

	return domain.TodayCases{
		Date:      domain.FormatDate(window.Start),
		Cases:     page,
		Total:     total,
		Limit:     limit,
		Offset:    offset,
		Truncated: truncated,
	}, nil
}

// sortCases orders cases newest first, then by category display order, then
// by id descending.
func sortCases(cases []domain.TodayCase) {
	sort.SliceStable(cases, func(i, j int) bool {
		a, b := cases[i], cases[j]
		if !a.ProcessedAt.Equal(b.ProcessedAt) {
			return a.ProcessedAt.After(b.ProcessedAt)
		}
		if a.Category != b.Category {
			return a.Category.Index() < b.Category.Index()
		}
		return a.ID > b.ID
	})
}

func (s *Service) GetTopIssuers(ctx context.Context, date time.Time, limit int) (domain.TopIssuers, error) {
	if limit < 0 {
		return domain.TopIssuers{}, domain.ErrInvalidLimit
	}
	window := disputedomain.DayWindow(s.dateOrToday(date), s.loc())
	out := domain.TopIssuers{Date: domain.FormatDate(window.Start), Issuers: []domain.TopIssuer{}}
	if limit == 0 {
		return out, nil
	}

	groups, err := s.rank(ctx, "top_issuers", window, disputedomain.GroupByIssuer)
	if err != nil {
		return domain.TopIssuers{}, err
	}
	out.Issuers = ranking.TopIssuers(groups, limit)
	return out, nil
}

func (s *Service) GetTopAcquirers(ctx context.Context, date time.Time, limit int) (domain.TopAcquirers, error) {
	if limit < 0 {
		return domain.TopAcquirers{}, domain.ErrInvalidLimit
	}
	window := disputedomain.DayWindow(s.dateOrToday(date), s.loc())
	out := domain.TopAcquirers{Date: domain.FormatDate(window.Start), Acquirers: []domain.TopAcquirer{}}
	if limit == 0 {
		return out, nil
	}

	groups, err := s.rank(ctx, "top_acquirers", window, disputedomain.GroupByAcquirer)
	if err != nil {
		return domain.TopAcquirers{}, err
	}
	out.Acquirers = ranking.TopAcquirers(groups, limit)
	return out, nil
}

func (s *Service) rank(ctx context.Context, operation string, window disputedomain.Window, grouping disputedomain.Grouping) ([]disputedomain.GroupTotal, error) {
	categories := ranking.ScopeCategories(s.dashboard.Get().RankingScope)
	var groups []disputedomain.GroupTotal
	err := s.run(ctx, operation, func(ctx context.Context) error {
		collected, err := s.ranking.Collect(ctx, window, grouping, categories)
		if err != nil {
			return err
		}
		groups = collected
		return nil
	})
	return groups, err
}

func (s *Service) GetVolumeHistory(ctx context.Context, days int) (domain.VolumeHistory, error) {
	cfg := s.dashboard.Get()
	if days == 0 {
		days = cfg.HistoryDays
	}
	if days < 0 || days > cfg.MaxHistoryDays {
		return domain.VolumeHistory{}, domain.ErrInvalidDays
	}

	// The current day is still filling, so the series closes at yesterday.
	end := s.today().AddDate(0, 0, -1)

	var points []domain.VolumePoint
	err := s.run(ctx, "volume_history", func(ctx context.Context) error {
		history, err := s.aggregation.History(ctx, end, days)
		if err != nil {
			return err
		}
		points = history
		return nil
	})
	if err != nil {
		return domain.VolumeHistory{}, err
	}
	return domain.VolumeHistory{Days: days, Points: points}, nil
}

func (s *Service) GetAnnualStatistics(ctx context.Context, year int, bank string) (domain.AnnualStatistics, error) {
	year, err := s.resolveYear(year)
	if err != nil {
		return domain.AnnualStatistics{}, err
	}
	bank = strings.TrimSpace(bank)
	if bank == "" {
		bank = disputedomain.AllBanks
	}

	cacheable := s.cacheable(year)
	if cacheable {
		if stats, ok := s.cache.GetAnnual(year, bank); ok {
			s.queryMetrics.Cache("annual_statistics", true)
			return stats, nil
		}
		s.queryMetrics.Cache("annual_statistics", false)
	}

	var out domain.AnnualStatistics
	err = s.run(ctx, "annual_statistics", func(ctx context.Context) error {
		stats, err := s.aggregation.Annual(ctx, year, bank)
		if err != nil {
			return err
		}
		out = stats
		return nil
	})
	if err != nil {
		return domain.AnnualStatistics{}, err
	}

	if cacheable {
		s.cache.SetAnnual(year, bank, out, s.dashboard.Get().StatsCacheTTL)
	}
	return out, nil
}

// GetBankDistribution counts the year's records of every category per issuer
// and per acquirer label.
func (s *Service) GetBankDistribution(ctx context.Context, year int) (domain.BankDistribution, error) {
	year, err := s.resolveYear(year)
	if err != nil {
		return domain.BankDistribution{}, err
	}

	cacheable := s.cacheable(year)
	if cacheable {
		if distribution, ok := s.cache.GetDistribution(year); ok {
			s.queryMetrics.Cache("bank_distribution", true)
			return distribution, nil
		}
		s.queryMetrics.Cache("bank_distribution", false)
	}

	window := disputedomain.YearWindow(year, s.loc())
	var issuers, acquirers map[disputedomain.Category][]disputedomain.GroupTotal
	err = s.run(ctx, "bank_distribution", func(ctx context.Context) error {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			grouped, err := s.ranking.Groups(gctx, window, disputedomain.GroupByIssuer, disputedomain.Categories)
			if err != nil {
				return err
			}
			issuers = grouped
			return nil
		})
		g.Go(func() error {
			grouped, err := s.ranking.Groups(gctx, window, disputedomain.GroupByAcquirer, disputedomain.Categories)
			if err != nil {
				return err
			}
			acquirers = grouped
			return nil
		})
		return g.Wait()
	})
	if err != nil {
		return domain.BankDistribution{}, err
	}

	out := domain.BankDistribution{
		Year:      year,
		Issuers:   distribute(issuers, issuerLabel),
		Acquirers: distribute(acquirers, acquirerLabel),
	}
	if cacheable {
		s.cache.SetDistribution(year, out, s.dashboard.Get().StatsCacheTTL)
	}
	return out, nil
}

func issuerLabel(g disputedomain.GroupTotal) string {
	if name := strings.TrimSpace(g.Attribute); name != "" {
		return name
	}
	if bank := strings.TrimSpace(g.Bank); bank != "" {
		return bank
	}
	return domain.UnknownBank
}

func acquirerLabel(g disputedomain.GroupTotal) string {
	if bank := strings.TrimSpace(g.Bank); bank != "" {
		return bank
	}
	return domain.UnknownBank
}

// distribute folds the groups of each category into one row per label,
// ordered by total count descending then label.
func distribute(grouped map[disputedomain.Category][]disputedomain.GroupTotal, label func(disputedomain.GroupTotal) string) []domain.BankCounts {
	index := make(map[string]int)
	rows := []domain.BankCounts{}
	for _, category := range disputedomain.Categories {
		for _, g := range grouped[category] {
			name := label(g)
			i, ok := index[name]
			if !ok {
				i = len(rows)
				index[name] = i
				rows = append(rows, domain.BankCounts{Bank: name})
			}
			rows[i].Add(category, g.Count)
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Total != rows[j].Total {
			return rows[i].Total > rows[j].Total
		}
		return rows[i].Bank < rows[j].Bank
	})
	return rows
}

func (s *Service) GetMonthlyYearlyStatistics(ctx context.Context, year int, mode string) (domain.PeriodSeries, error) {
	year, err := s.resolveYear(year)
	if err != nil {
		return domain.PeriodSeries{}, err
	}
	mode = strings.ToLower(strings.TrimSpace(mode))
	if mode == "" {
		mode = domain.ModeMonthly
	}
	if mode != domain.ModeMonthly && mode != domain.ModeYearly {
		return domain.PeriodSeries{}, domain.ErrInvalidMode
	}

	cacheable := s.cacheable(year)
	if cacheable {
		if series, ok := s.cache.GetSeries(year, mode); ok {
			s.queryMetrics.Cache("period_series", true)
			return series, nil
		}
		s.queryMetrics.Cache("period_series", false)
	}

	cfg := s.dashboard.Get()
	var periods []domain.PeriodStatistics
	err = s.run(ctx, "monthly_yearly_statistics", func(ctx context.Context) error {
		var err error
		if mode == domain.ModeYearly {
			periods, err = s.aggregation.Yearly(ctx, year, cfg.YearlySpan)
		} else {
			periods, err = s.aggregation.Monthly(ctx, year)
		}
		return err
	})
	if err != nil {
		return domain.PeriodSeries{}, err
	}

	out := domain.PeriodSeries{Year: year, Mode: mode, Periods: periods}
	if cacheable {
		s.cache.SetSeries(year, mode, out, cfg.StatsCacheTTL)
	}
	return out, nil
}

func (s *Service) GetTodayDataByCategory(ctx context.Context, date time.Time) (domain.CategoryRecords, error) {
	capacity := s.dashboard.Get().CategoryCap
	window := disputedomain.DayWindow(s.dateOrToday(date), s.loc())

	perCategory := make([][]*disputedomain.Record, len(disputedomain.Categories))
	err := s.run(ctx, "today_data", func(ctx context.Context) error {
		g, gctx := errgroup.WithContext(ctx)
		for i, category := range disputedomain.Categories {
			i, category := i, category
			g.Go(func() error {
				records, err := s.repo.Query(gctx, s.db, category, disputedomain.Filter{
					Window: &window,
					Limit:  capacity,
				})
				if err != nil {
					return err
				}
				perCategory[i] = records
				return nil
			})
		}
		return g.Wait()
	})
	if err != nil {
		return domain.CategoryRecords{}, err
	}

	out := domain.CategoryRecords{Date: domain.FormatDate(window.Start)}
	for i, category := range disputedomain.Categories {
		out.Set(category, perCategory[i])
	}
	return out, nil
}

// resolveYear defaults a zero year to the current one.
func (s *Service) resolveYear(year int) (int, error) {
	if year == 0 {
		return s.today().Year(), nil
	}
	if year < minYear || year > maxYear {
		return 0, domain.ErrInvalidYear
	}
	return year, nil
}

// cacheable reports whether statistics of year are closed and caching is on.
func (s *Service) cacheable(year int) bool {
	return s.dashboard.Get().StatsCacheTTL > 0 && year < s.today().Year()
}
