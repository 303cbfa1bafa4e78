package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/islandman/hotel-listing/internal/core/domain"
)

func load(t *testing.T, env map[string]string) (*Config, error) {
	t.Helper()
	return LoadWith(context.Background(), envconfig.MapLookuper(env))
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := load(t, map[string]string{"KEY": "super-secret-signing-key"})
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, IdentityStoreSQL, cfg.IdentityStore)
	assert.Equal(t, "HotelListingAPI", cfg.JWT.Issuer)
	assert.Equal(t, "HotelListingClients", cfg.JWT.Audience)
	assert.Equal(t, 15*time.Minute, cfg.JWT.Lifetime())
	assert.Equal(t, "sqlite", cfg.DB.Dialect)
	assert.Equal(t, 120*time.Second, cfg.Cache.MaxAge)
	assert.True(t, cfg.Cache.MustRevalidate)

	rules, err := cfg.RateLimit.Rules()
	require.NoError(t, err)
	assert.Equal(t, []domain.RateLimitRule{{Endpoint: "*", Limit: 1, Period: 5 * time.Second}}, rules)
}

func TestLoadRequiresSigningKey(t *testing.T) {
	_, err := load(t, map[string]string{})
	require.ErrorIs(t, err, domain.ErrMissingSigningKey)

	_, err = load(t, map[string]string{"KEY": "   "})
	require.ErrorIs(t, err, domain.ErrMissingSigningKey)
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := load(t, map[string]string{
		"KEY":                  "k",
		"ENV":                  "production",
		"JWT_LIFETIME_MINUTES": "60",
		"IDENTITY_STORE":       "mongo",
		"RATE_LIMIT_STORE":     "redis",
		"REDIS_ADDR":           "localhost:6379",
		"RATE_LIMIT_LIMIT":     "100",
		"RATE_LIMIT_PERIOD":    "1m",
		"CACHE_MAX_AGE":        "30s",
	})
	require.NoError(t, err)

	assert.False(t, cfg.IsDevelopment())
	assert.Equal(t, time.Hour, cfg.JWT.Lifetime())
	assert.Equal(t, IdentityStoreMongo, cfg.IdentityStore)
	assert.Equal(t, domain.CachePolicy{MaxAge: 30 * time.Second, MustRevalidate: true}, cfg.Cache.Policy())

	rules, err := cfg.RateLimit.Rules()
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, 100, rules[0].Limit)
	assert.Equal(t, time.Minute, rules[0].Period)
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	cases := map[string]map[string]string{
		"identity store": {"KEY": "k", "IDENTITY_STORE": "ldap"},
		"limiter store":  {"KEY": "k", "RATE_LIMIT_STORE": "memcached"},
		"redis no addr":  {"KEY": "k", "RATE_LIMIT_STORE": "redis"},
		"lifetime":       {"KEY": "k", "JWT_LIFETIME_MINUTES": "0"},
		"bad duration":   {"KEY": "k", "RATE_LIMIT_PERIOD": "soon"},
		"bcrypt too low": {"KEY": "k", "BCRYPT_COST": "3"},
		"bcrypt too big": {"KEY": "k", "BCRYPT_COST": "32"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := load(t, env)
			require.Error(t, err)
		})
	}
}

func TestLoadAcceptsBcryptBounds(t *testing.T) {
	for _, cost := range []string{"4", "31"} {
		cfg, err := load(t, map[string]string{"KEY": "k", "BCRYPT_COST": cost})
		require.NoError(t, err, cost)
		assert.NotZero(t, cfg.BcryptCost)
	}
}

func TestRulesFromFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
rules:
  - endpoint: "POST:/api/account/login"
    limit: 5
    period: 1m
  - endpoint: "*:/api/hotels*"
    limit: 20
    period: 10s
`), 0o600))

	rules, err := RateLimitConfig{RulesFile: file}.Rules()
	require.NoError(t, err)
	assert.Equal(t, []domain.RateLimitRule{
		{Endpoint: "POST:/api/account/login", Limit: 5, Period: time.Minute},
		{Endpoint: "*:/api/hotels*", Limit: 20, Period: 10 * time.Second},
	}, rules)
}

func TestParseRulesRejectsBadRules(t *testing.T) {
	for name, doc := range map[string]string{
		"empty":      "rules: []",
		"zero limit": "rules: [{endpoint: '*', limit: 0, period: 1s}]",
		"no method":  "rules: [{endpoint: '/api/hotels', limit: 1, period: 1s}]",
		"bad glob":   "rules: [{endpoint: 'GET:/api/[', limit: 1, period: 1s}]",
		"not yaml":   "rules: {",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseRules([]byte(doc))
			require.Error(t, err)
		})
	}
}
