package cache

import (
	"strconv"
	"strings"
	"time"

	dashboarddomain "github.com/smallbiznis/disputeops/internal/dashboard/domain"
	disputedomain "github.com/smallbiznis/disputeops/internal/dispute/domain"
)

// StatsCache memoizes dashboard statistics of closed years.
type StatsCache interface {
	GetAnnual(year int, bank string) (dashboarddomain.AnnualStatistics, bool)
	SetAnnual(year int, bank string, stats dashboarddomain.AnnualStatistics, ttl time.Duration)
	GetDistribution(year int) (dashboarddomain.BankDistribution, bool)
	SetDistribution(year int, distribution dashboarddomain.BankDistribution, ttl time.Duration)
	GetSeries(year int, mode string) (dashboarddomain.PeriodSeries, bool)
	SetSeries(year int, mode string, series dashboarddomain.PeriodSeries, ttl time.Duration)
}

type statsCache struct {
	annual        Cache[string, dashboarddomain.AnnualStatistics]
	distributions Cache[string, dashboarddomain.BankDistribution]
	series        Cache[string, dashboarddomain.PeriodSeries]
}

// NewStatsCache returns an in-memory statistics cache.
func NewStatsCache() StatsCache {
	return &statsCache{
		annual:        NewTTLCache[string, dashboarddomain.AnnualStatistics](),
		distributions: NewTTLCache[string, dashboarddomain.BankDistribution](),
		series:        NewTTLCache[string, dashboarddomain.PeriodSeries](),
	}
}

func (c *statsCache) GetAnnual(year int, bank string) (dashboarddomain.AnnualStatistics, bool) {
	return c.annual.Get(cacheKey(strconv.Itoa(year), bankKey(bank)))
}

func (c *statsCache) SetAnnual(year int, bank string, stats dashboarddomain.AnnualStatistics, ttl time.Duration) {
	c.annual.Set(cacheKey(strconv.Itoa(year), bankKey(bank)), stats, ttl)
}

func (c *statsCache) GetDistribution(year int) (dashboarddomain.BankDistribution, bool) {
	return c.distributions.Get(cacheKey(strconv.Itoa(year)))
}

func (c *statsCache) SetDistribution(year int, distribution dashboarddomain.BankDistribution, ttl time.Duration) {
	c.distributions.Set(cacheKey(strconv.Itoa(year)), distribution, ttl)
}

func (c *statsCache) GetSeries(year int, mode string) (dashboarddomain.PeriodSeries, bool) {
	return c.series.Get(cacheKey(strconv.Itoa(year), mode))
}

func (c *statsCache) SetSeries(year int, mode string, series dashboarddomain.PeriodSeries, ttl time.Duration) {
	c.series.Set(cacheKey(strconv.Itoa(year), mode), series, ttl)
}

func cacheKey(parts ...string) string {
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		values = append(values, trimmed)
	}
	return strings.Join(values, "|")
}

// bankKey folds a bank filter the way the store applies it: "all" in any case
// and the empty string select every bank, any other name matches exactly.
func bankKey(bank string) string {
	if filter := (disputedomain.Filter{AcquirerBank: bank}).BankFilter(); filter != "" {
		return filter
	}
	return disputedomain.AllBanks
}
