package scheduler

import (
	"strings"
	"time"

	"github.com/smallbiznis/disputeops/internal/config"
)

// Config controls the drop directory poll.
type Config struct {
	DropDir     string
	RunInterval time.Duration
	JobTimeout  time.Duration
}

func DefaultConfig() Config {
	return Config{
		RunInterval: time.Minute,
		JobTimeout:  5 * time.Minute,
	}
}

func ProvideConfig(cfg config.Config) Config {
	return Config{
		DropDir:     strings.TrimSpace(cfg.Ingest.DropDir),
		RunInterval: cfg.Ingest.PollInterval,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	return c
}
