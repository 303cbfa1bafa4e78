// Package config loads process settings from the environment.
package config

import (
	"context"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"github.com/islandman/hotel-listing/internal/core/domain"
)

const (
	IdentityStoreSQL   = "sql"
	IdentityStoreMongo = "mongo"

	RateLimitStoreMemory = "memory"
	RateLimitStoreRedis  = "redis"
)

type Config struct {
	Port       string `env:"PORT,        default=8080"`
	Env        string `env:"ENV,         default=development"`
	LogLevel   string `env:"LOG_LEVEL,   default=info"`
	BcryptCost int    `env:"BCRYPT_COST, default=10"`

	// IdentityStore selects where principals live: sql or mongo.
	IdentityStore string `env:"IDENTITY_STORE, default=sql"`

	JWT       JWTConfig
	DB        DBConfig
	Mongo     MongoConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
}

type JWTConfig struct {
	Key             string `env:"KEY"`
	Issuer          string `env:"JWT_ISSUER,           default=HotelListingAPI"`
	Audience        string `env:"JWT_AUDIENCE,         default=HotelListingClients"`
	LifetimeMinutes int    `env:"JWT_LIFETIME_MINUTES, default=15"`
}

// Lifetime converts the configured minutes into a duration.
func (c JWTConfig) Lifetime() time.Duration {
	return time.Duration(c.LifetimeMinutes) * time.Minute
}

type DBConfig struct {
	Dialect         string        `env:"DB_DIALECT,           default=sqlite"`
	DSN             string        `env:"DB_DSN,               default=file:hotellisting.db?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_txlock=immediate"`
	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS,    default=25"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS,    default=5"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME, default=30m"`
	AutoMigrate     bool          `env:"DB_AUTO_MIGRATE,      default=true"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=hotel_listing"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB, default=0"`
}

type RateLimitConfig struct {
	Enabled   bool          `env:"RATE_LIMIT_ENABLED,    default=true"`
	Store     string        `env:"RATE_LIMIT_STORE,      default=memory"`
	Endpoint  string        `env:"RATE_LIMIT_ENDPOINT,   default=*"`
	Limit     int           `env:"RATE_LIMIT_LIMIT,      default=1"`
	Period    time.Duration `env:"RATE_LIMIT_PERIOD,     default=5s"`
	RulesFile string        `env:"RATE_LIMIT_RULES_FILE"`
}

type CacheConfig struct {
	MaxAge         time.Duration `env:"CACHE_MAX_AGE,         default=120s"`
	MustRevalidate bool          `env:"CACHE_MUST_REVALIDATE, default=true"`
}

// Policy returns the freshness advice for cached reads.
func (c CacheConfig) Policy() domain.CachePolicy {
	return domain.CachePolicy{MaxAge: c.MaxAge, MustRevalidate: c.MustRevalidate}
}

// IsDevelopment reports whether human-friendly logging should be used.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Env, "development")
}

// Load reads configuration from the process environment.
func Load(ctx context.Context) (*Config, error) {
	return LoadWith(ctx, envconfig.OsLookuper())
}

// LoadWith reads configuration through l and validates it.
func LoadWith(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.JWT.Key) == "" {
		return fmt.Errorf("config: KEY: %w", domain.ErrMissingSigningKey)
	}
	if c.JWT.LifetimeMinutes <= 0 {
		return fmt.Errorf("config: JWT_LIFETIME_MINUTES must be positive, got %d", c.JWT.LifetimeMinutes)
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("config: BCRYPT_COST must be between %d and %d, got %d", bcrypt.MinCost, bcrypt.MaxCost, c.BcryptCost)
	}
	switch c.IdentityStore {
	case IdentityStoreSQL, IdentityStoreMongo:
	default:
		return fmt.Errorf("config: IDENTITY_STORE must be %q or %q, got %q", IdentityStoreSQL, IdentityStoreMongo, c.IdentityStore)
	}
	switch c.RateLimit.Store {
	case RateLimitStoreMemory:
	case RateLimitStoreRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("config: RATE_LIMIT_STORE=redis requires REDIS_ADDR")
		}
	default:
		return fmt.Errorf("config: RATE_LIMIT_STORE must be %q or %q, got %q", RateLimitStoreMemory, RateLimitStoreRedis, c.RateLimit.Store)
	}
	return nil
}

type rulesFile struct {
	Rules []domain.RateLimitRule `yaml:"rules"`
}

// Rules returns the configured rate-limit rules: the YAML rules file when
// one is set, otherwise the single rule described by RATE_LIMIT_*.
func (c RateLimitConfig) Rules() ([]domain.RateLimitRule, error) {
	if c.RulesFile == "" {
		rule := domain.RateLimitRule{Endpoint: c.Endpoint, Limit: c.Limit, Period: c.Period}
		if err := validateRule(rule); err != nil {
			return nil, err
		}
		return []domain.RateLimitRule{rule}, nil
	}

	raw, err := os.ReadFile(c.RulesFile)
	if err != nil {
		return nil, fmt.Errorf("config: read rate limit rules: %w", err)
	}
	return ParseRules(raw)
}

// ParseRules decodes a YAML rules document.
func ParseRules(raw []byte) ([]domain.RateLimitRule, error) {
	var f rulesFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("config: parse rate limit rules: %w", err)
	}
	if len(f.Rules) == 0 {
		return nil, fmt.Errorf("config: rate limit rules file defines no rules")
	}
	for _, r := range f.Rules {
		if err := validateRule(r); err != nil {
			return nil, err
		}
	}
	return f.Rules, nil
}

func validateRule(r domain.RateLimitRule) error {
	if r.Limit <= 0 || r.Period <= 0 {
		return fmt.Errorf("config: rate limit rule %q needs a positive limit and period", r.Endpoint)
	}
	if r.Endpoint == "*" {
		return nil
	}
	method, pattern, ok := strings.Cut(r.Endpoint, ":")
	if !ok || method == "" || !strings.HasPrefix(pattern, "/") {
		return fmt.Errorf("config: rate limit endpoint %q must be \"*\" or METHOD:/path", r.Endpoint)
	}
	if _, err := path.Match(pattern, "/"); err != nil {
		return fmt.Errorf("config: rate limit endpoint %q: %w", r.Endpoint, err)
	}
	return nil
}
