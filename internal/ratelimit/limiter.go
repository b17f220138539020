package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/disputeops/internal/config"
)

const (
	keyDashboardUser = "dashboard:user:%s"
	keyLoginAttempt  = "auth:login:%s:%s"
)

// Limiter throttles dashboard reads per user and failed logins per identity.
// A nil or disabled Limiter allows everything.
type Limiter struct {
	enabled bool

	client   *redis.Client
	bucket   *TokenBucket
	attempts *AttemptCounter

	userRate      float64
	userBurst     int
	loginAttempts int
	loginWindow   time.Duration
}

func NewLimiter(cfg config.Config) (*Limiter, error) {
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled {
		return nil, nil
	}

	addr := strings.TrimSpace(limitCfg.RedisAddr)
	if addr == "" {
		return nil, errors.New("rate limit redis addr is required")
	}
	if limitCfg.DashboardUserRate <= 0 || limitCfg.DashboardUserBurst <= 0 {
		return nil, errors.New("dashboard user rate limit must be positive")
	}
	if limitCfg.LoginAttempts <= 0 || limitCfg.LoginWindow <= 0 {
		return nil, errors.New("login attempt limit must be positive")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(limitCfg.RedisPassword),
		DB:       limitCfg.RedisDB,
	})

	return &Limiter{
		enabled:       true,
		client:        client,
		bucket:        NewTokenBucket(client),
		attempts:      NewAttemptCounter(client),
		userRate:      limitCfg.DashboardUserRate,
		userBurst:     limitCfg.DashboardUserBurst,
		loginAttempts: limitCfg.LoginAttempts,
		loginWindow:   limitCfg.LoginWindow,
	}, nil
}

func (l *Limiter) Enabled() bool {
	return l != nil && l.enabled
}

// AllowUser spends one dashboard token of userID.
func (l *Limiter) AllowUser(ctx context.Context, userID string) (*Result, error) {
	if !l.Enabled() {
		return &Result{Allowed: true}, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyDashboardUser, strings.TrimSpace(userID)), l.userRate, l.userBurst)
}

// AllowLogin records a login attempt for identity from clientIP.
func (l *Limiter) AllowLogin(ctx context.Context, identity, clientIP string) (*Result, error) {
	if !l.Enabled() {
		return &Result{Allowed: true}, nil
	}
	return l.attempts.Hit(ctx, loginKey(identity, clientIP), l.loginAttempts, l.loginWindow)
}

// ResetLogin clears the attempts of identity after a successful login.
func (l *Limiter) ResetLogin(ctx context.Context, identity, clientIP string) error {
	if !l.Enabled() {
		return nil
	}
	return l.attempts.Reset(ctx, loginKey(identity, clientIP))
}

func (l *Limiter) Close() error {
	if l == nil || l.client == nil {
		return nil
	}
	return l.client.Close()
}

func loginKey(identity, clientIP string) string {
	return fmt.Sprintf(keyLoginAttempt, strings.ToLower(strings.TrimSpace(identity)), strings.TrimSpace(clientIP))
}
