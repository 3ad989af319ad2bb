package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("SETTLE_CACHE_TTL", "not-a-duration")

	cfg := Load()

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 5*time.Minute, cfg.SettleCacheTTL)
	assert.NotEmpty(t, cfg.Currency)
	assert.Equal(t, "http://localhost:8080", cfg.AppURL)
}

func TestLoad_CacheTTL(t *testing.T) {
	t.Setenv("SETTLE_CACHE_TTL", "90s")
	t.Setenv("DEFAULT_CURRENCY", "EUR")

	cfg := Load()

	assert.Equal(t, 90*time.Second, cfg.SettleCacheTTL)
	assert.Equal(t, "EUR", cfg.Currency)
}
