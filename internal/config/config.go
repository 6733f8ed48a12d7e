// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes application settings
// such as server timeouts, logging, database paths, rate limiting, cache TTLs,
// credit policy seeds, and observability.
//
// Precedence, highest first: environment variables, the optional TOML policy
// file named by CREDITS_POLICY_FILE, built-in defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "listing-credits")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// CreditsConfig holds the credit policy seeds and the calendar used for the
// daily quota.
type CreditsConfig struct {
	DailyFreeListings int            // DAILY_FREE_LISTINGS, seed for a fresh settings row
	CommunityPotSeed  int64          // COMMUNITY_POT_SEED, seed for a fresh settings row
	Timezone          string         // CREDITS_TIMEZONE, IANA name
	Location          *time.Location // resolved Timezone
}

// CacheConfig holds the read-through cache TTLs.
type CacheConfig struct {
	SettingsTTL  time.Duration // CACHE_TTL_SETTINGS
	ProfileTTL   time.Duration // CACHE_TTL_PROFILE
	PotTTL       time.Duration // CACHE_TTL_POT
	StatsTTL     time.Duration // CACHE_TTL_STATS
	UserStatsTTL time.Duration // CACHE_TTL_USER_STATS
	FetchTimeout time.Duration // FETCH_TIMEOUT, bound on each store read behind the cache
}

// RedisConfig configures the cross-instance invalidation bridge. An empty URL
// disables it.
type RedisConfig struct {
	URL     string // REDIS_URL, e.g. redis://localhost:6379/0
	Channel string // REDIS_CHANNEL
}

// JobsConfig holds cron schedules for maintenance jobs. An empty schedule
// disables that job.
type JobsConfig struct {
	PurgeSchedule string // PURGE_SCHEDULE, expired idempotency rows
	WarmSchedule  string // WARM_SCHEDULE, community stats pre-warm
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	// App
	DBPath     string // SQLite path
	PolicyFile string // optional TOML policy file

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS         CORSConfig
	Security     SecurityConfig
	AdminUserIDs []string // ADMIN_USER_IDS, callers allowed on /admin and /credits/grant

	// Idempotency
	IdempotencyTTL time.Duration // how long a given Idempotency-Key is valid

	Credits CreditsConfig
	Cache   CacheConfig
	Redis   RedisConfig
	Jobs    JobsConfig

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	policyPath := getenv("CREDITS_POLICY_FILE", "")
	pol := defaultPolicy()
	if policyPath != "" {
		p, err := LoadPolicyFile(policyPath)
		if err != nil {
			return Config{}, err
		}
		pol = pol.merge(p)
	}

	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		// App
		DBPath:     getenv("DB_PATH", "credits.db"),
		PolicyFile: policyPath,

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},
		AdminUserIDs: splitCSV(getenv("ADMIN_USER_IDS", "")),

		// Idempotency
		IdempotencyTTL: getdur("IDEMPOTENCY_TTL", 24*time.Hour),

		Credits: CreditsConfig{
			DailyFreeListings: getint("DAILY_FREE_LISTINGS", pol.Credits.DailyFreeListings),
			CommunityPotSeed:  getint64("COMMUNITY_POT_SEED", pol.Credits.CommunityPotSeed),
			Timezone:          getenv("CREDITS_TIMEZONE", pol.Credits.Timezone),
		},
		Cache: CacheConfig{
			SettingsTTL:  getdur("CACHE_TTL_SETTINGS", pol.Cache.SettingsTTL.D()),
			ProfileTTL:   getdur("CACHE_TTL_PROFILE", pol.Cache.ProfileTTL.D()),
			PotTTL:       getdur("CACHE_TTL_POT", pol.Cache.PotTTL.D()),
			StatsTTL:     getdur("CACHE_TTL_STATS", pol.Cache.StatsTTL.D()),
			UserStatsTTL: getdur("CACHE_TTL_USER_STATS", pol.Cache.UserStatsTTL.D()),
			FetchTimeout: getdur("FETCH_TIMEOUT", pol.Cache.FetchTimeout.D()),
		},
		Redis: RedisConfig{
			URL:     getenv("REDIS_URL", ""),
			Channel: getenv("REDIS_CHANNEL", "credits:invalidate"),
		},
		Jobs: JobsConfig{
			PurgeSchedule: getenv("PURGE_SCHEDULE", "@hourly"),
			WarmSchedule:  getenv("WARM_SCHEDULE", "@every 1m"),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "listing-credits"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}
	if strings.EqualFold(cfg.Jobs.PurgeSchedule, "off") {
		cfg.Jobs.PurgeSchedule = ""
	}
	if strings.EqualFold(cfg.Jobs.WarmSchedule, "off") {
		cfg.Jobs.WarmSchedule = ""
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		return cfg, errors.New("DB_PATH must not be empty")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.IdempotencyTTL <= 0 {
		return cfg, errors.New("IDEMPOTENCY_TTL must be > 0")
	}
	if cfg.Credits.DailyFreeListings < 0 {
		return cfg, errors.New("DAILY_FREE_LISTINGS must be >= 0")
	}
	if cfg.Credits.CommunityPotSeed < 0 {
		return cfg, errors.New("COMMUNITY_POT_SEED must be >= 0")
	}
	loc, err := time.LoadLocation(cfg.Credits.Timezone)
	if err != nil {
		return cfg, fmt.Errorf("CREDITS_TIMEZONE: %w", err)
	}
	cfg.Credits.Location = loc
	if cfg.Cache.SettingsTTL <= 0 || cfg.Cache.ProfileTTL <= 0 || cfg.Cache.PotTTL <= 0 ||
		cfg.Cache.StatsTTL <= 0 || cfg.Cache.UserStatsTTL <= 0 {
		return cfg, errors.New("CACHE_TTL_* must be positive durations")
	}
	if cfg.Cache.FetchTimeout <= 0 {
		return cfg, errors.New("FETCH_TIMEOUT must be > 0")
	}
	if cfg.Redis.URL != "" && strings.TrimSpace(cfg.Redis.Channel) == "" {
		return cfg, errors.New("REDIS_CHANNEL must not be empty when REDIS_URL is set")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// ---- helpers ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getint64(k string, def int64) int64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
