package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string
	Timezone    string

	OTLPEndpoint string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	RateLimit RateLimitConfig
	Bootstrap BootstrapConfig
	Ingest    IngestConfig
}

type RateLimitConfig struct {
	Enabled            bool
	RedisAddr          string
	RedisPassword      string
	RedisDB            int
	DashboardUserRate  float64
	DashboardUserBurst int
	LoginAttempts      int
	LoginWindow        time.Duration
}

type BootstrapConfig struct {
	AdminEmail     string
	AdminUsername  string
	AdminPassword  string
	SeedSampleData bool
}

type IngestConfig struct {
	LedgerPath   string
	DropDir      string
	PollInterval time.Duration
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:      getenv("APP_SERVICE", "disputeops"),
		AppVersion:   getenv("APP_VERSION", "0.1.0"),
		Environment:  getenv("ENVIRONMENT", "development"),
		HTTPAddr:     getenv("HTTP_ADDR", ":8080"),
		Timezone:     getenv("DASHBOARD_TIMEZONE", "UTC"),
		OTLPEndpoint: getenv("OTLP_ENDPOINT", "localhost:4317"),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "disputeops"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 10),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 50),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 60),

		RateLimit: RateLimitConfig{
			Enabled:            getenvBool("RATE_LIMIT_ENABLED", false),
			RedisAddr:          strings.TrimSpace(getenv("REDIS_ADDR", "")),
			RedisPassword:      getenv("REDIS_PASSWORD", ""),
			RedisDB:            getenvInt("REDIS_DB", 0),
			DashboardUserRate:  getenvFloat("RATE_LIMIT_DASHBOARD_USER_RATE", 5),
			DashboardUserBurst: getenvInt("RATE_LIMIT_DASHBOARD_USER_BURST", 20),
			LoginAttempts:      getenvInt("RATE_LIMIT_LOGIN_ATTEMPTS", 5),
			LoginWindow:        time.Duration(getenvInt("RATE_LIMIT_LOGIN_WINDOW_SECONDS", 600)) * time.Second,
		},
		Bootstrap: BootstrapConfig{
			AdminEmail:     strings.TrimSpace(getenv("BOOTSTRAP_ADMIN_EMAIL", "")),
			AdminUsername:  strings.TrimSpace(getenv("BOOTSTRAP_ADMIN_USERNAME", "admin")),
			AdminPassword:  getenv("BOOTSTRAP_ADMIN_PASSWORD", ""),
			SeedSampleData: getenvBool("SEED_SAMPLE_DATA", false),
		},
		Ingest: IngestConfig{
			LedgerPath:   getenv("INGEST_LEDGER_PATH", "ingest-ledger.db"),
			DropDir:      strings.TrimSpace(getenv("INGEST_DROP_DIR", "")),
			PollInterval: time.Duration(getenvInt("INGEST_POLL_INTERVAL_SECONDS", 60)) * time.Second,
		},
	}

	return cfg
}

// Location resolves the dashboard timezone, falling back to UTC.
func (c Config) Location() *time.Location {
	name := strings.TrimSpace(c.Timezone)
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}
