package config

import (
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	RankingScopeAll                 = "all"
	RankingScopeReceivedChargebacks = "received_chargebacks"
)

// DashboardConfig tunes the dashboard queries and may change at runtime.
type DashboardConfig struct {
	RankingLimit    int           `mapstructure:"rankingLimit"`
	RankingScope    string        `mapstructure:"rankingScope"`
	TodayCasesLimit int           `mapstructure:"todayCasesLimit"`
	TodayCasesCap   int           `mapstructure:"todayCasesCap"`
	CategoryCap     int           `mapstructure:"categoryCap"`
	HistoryDays     int           `mapstructure:"historyDays"`
	MaxHistoryDays  int           `mapstructure:"maxHistoryDays"`
	YearlySpan      int           `mapstructure:"yearlySpan"`
	QueryTimeout    time.Duration `mapstructure:"queryTimeout"`
	MaxConcurrency  int           `mapstructure:"maxConcurrency"`
	StatsCacheTTL   time.Duration `mapstructure:"statsCacheTTL"`
}

func DefaultDashboardConfig() DashboardConfig {
	return DashboardConfig{
		RankingLimit:    5,
		RankingScope:    RankingScopeAll,
		TodayCasesLimit: 50,
		TodayCasesCap:   500,
		CategoryCap:     100,
		HistoryDays:     7,
		MaxHistoryDays:  366,
		YearlySpan:      5,
		QueryTimeout:    10 * time.Second,
		MaxConcurrency:  8,
		StatsCacheTTL:   time.Minute,
	}
}

type DashboardConfigHolder struct {
	current atomic.Value // holds DashboardConfig
}

// NewDashboardConfigHolder reads dashboard.yml from the standard locations and
// watches it for changes.
func NewDashboardConfigHolder(log *zap.Logger) (*DashboardConfigHolder, error) {
	return NewDashboardConfigHolderFromPaths(log,
		"/var/lib/disputeops/config", // Volume-mounted config
		"/etc/disputeops",            // System config
		".",                          // Current directory (dev mode)
	)
}

func NewDashboardConfigHolderFromPaths(log *zap.Logger, paths ...string) (*DashboardConfigHolder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("config.dashboard")

	v := viper.New()
	v.SetConfigName("dashboard")
	v.SetConfigType("yml")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	v.SetEnvPrefix("DISPUTEOPS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultDashboardConfig()
	v.SetDefault("dashboard.rankingLimit", defaults.RankingLimit)
	v.SetDefault("dashboard.rankingScope", defaults.RankingScope)
	v.SetDefault("dashboard.todayCasesLimit", defaults.TodayCasesLimit)
	v.SetDefault("dashboard.todayCasesCap", defaults.TodayCasesCap)
	v.SetDefault("dashboard.categoryCap", defaults.CategoryCap)
	v.SetDefault("dashboard.historyDays", defaults.HistoryDays)
	v.SetDefault("dashboard.maxHistoryDays", defaults.MaxHistoryDays)
	v.SetDefault("dashboard.yearlySpan", defaults.YearlySpan)
	v.SetDefault("dashboard.queryTimeout", defaults.QueryTimeout)
	v.SetDefault("dashboard.maxConcurrency", defaults.MaxConcurrency)
	v.SetDefault("dashboard.statsCacheTTL", defaults.StatsCacheTTL)

	fileFound := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileFound = false
	}

	var cfg DashboardConfig
	if err := v.UnmarshalKey("dashboard", &cfg); err != nil {
		return nil, err
	}
	if err := validateDashboardConfig(cfg); err != nil {
		return nil, err
	}

	holder := &DashboardConfigHolder{}
	holder.current.Store(cfg)

	if !fileFound {
		log.Info("dashboard config file not found, using defaults")
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated DashboardConfig
		if err := v.UnmarshalKey("dashboard", &updated); err != nil {
			log.Warn("dashboard config reload failed", zap.Error(err))
			return
		}
		if err := validateDashboardConfig(updated); err != nil {
			log.Warn("invalid dashboard config ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("dashboard config reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

// StaticDashboardConfig returns a holder pinned to cfg.
func StaticDashboardConfig(cfg DashboardConfig) *DashboardConfigHolder {
	holder := &DashboardConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func (h *DashboardConfigHolder) Get() DashboardConfig {
	if h == nil {
		return DefaultDashboardConfig()
	}
	cfg, ok := h.current.Load().(DashboardConfig)
	if !ok {
		return DefaultDashboardConfig()
	}
	return cfg
}

func validateDashboardConfig(cfg DashboardConfig) error {
	if cfg.RankingLimit <= 0 {
		return errors.New("dashboard.rankingLimit must be positive")
	}
	switch cfg.RankingScope {
	case RankingScopeAll, RankingScopeReceivedChargebacks:
	default:
		return errors.New("dashboard.rankingScope must be all or received_chargebacks")
	}
	if cfg.TodayCasesLimit <= 0 || cfg.TodayCasesCap <= 0 || cfg.CategoryCap <= 0 {
		return errors.New("dashboard case limits must be positive")
	}
	if cfg.TodayCasesLimit > cfg.TodayCasesCap*4 {
		return errors.New("dashboard.todayCasesLimit cannot exceed four times todayCasesCap")
	}
	if cfg.HistoryDays <= 0 || cfg.MaxHistoryDays < cfg.HistoryDays {
		return errors.New("dashboard.historyDays must be positive and within maxHistoryDays")
	}
	if cfg.YearlySpan <= 0 {
		return errors.New("dashboard.yearlySpan must be positive")
	}
	if cfg.QueryTimeout < 0 || cfg.StatsCacheTTL < 0 {
		return errors.New("dashboard durations cannot be negative")
	}
	if cfg.MaxConcurrency <= 0 {
		return errors.New("dashboard.maxConcurrency must be positive")
	}
	return nil
}
