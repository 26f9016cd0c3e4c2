package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("COLLECTOR_MODE", "")
	t.Setenv("RESOLVER_ALLOWED_HOSTS", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "public", cfg.Collector.Mode)
	assert.Equal(t, 50, cfg.Browse.EngagementTarget)
	assert.Equal(t, 1500, cfg.Browse.EngagementMinScore)
	assert.Equal(t, 50, cfg.Browse.EngagementMinComments)
	assert.Equal(t, 100, cfg.Browse.EngagementPageSize)
	assert.Equal(t, []string{"reddit.com", "redd.it"}, cfg.Resolver.AllowedHosts)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("COLLECTOR_MODE", "mock")
	t.Setenv("ENGAGEMENT_MAX_PAGES", "3")
	t.Setenv("RESOLVER_ATTEMPT_TIMEOUT", "2s")
	t.Setenv("RESOLVER_ALLOWED_HOSTS", "reddit.com, example.org ,")
	t.Setenv("BROWSE_PAGE_SIZE", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "mock", cfg.Collector.Mode)
	assert.Equal(t, 3, cfg.Browse.EngagementMaxPages)
	assert.Equal(t, 2*time.Second, cfg.Resolver.AttemptTimeout)
	assert.Equal(t, []string{"reddit.com", "example.org"}, cfg.Resolver.AllowedHosts)
	assert.Equal(t, 25, cfg.Browse.PageSize)
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("COLLECTOR_MODE", "carrier-pigeon")
	_, err := Load()
	assert.ErrorContains(t, err, "unknown COLLECTOR_MODE")

	t.Setenv("COLLECTOR_MODE", "proxy")
	t.Setenv("RELAY_URL", "")
	_, err = Load()
	assert.ErrorContains(t, err, "RELAY_URL")

	t.Setenv("COLLECTOR_MODE", "public")
	t.Setenv("ENGAGEMENT_PAGE_SIZE", "500")
	_, err = Load()
	assert.ErrorContains(t, err, "ENGAGEMENT_PAGE_SIZE")
}

func TestLoad_EngagementBounds(t *testing.T) {
	t.Setenv("COLLECTOR_MODE", "public")
	t.Setenv("ENGAGEMENT_TARGET", "-1")
	_, err := Load()
	assert.ErrorContains(t, err, "ENGAGEMENT_TARGET")

	t.Setenv("ENGAGEMENT_TARGET", "50")
	t.Setenv("ENGAGEMENT_MAX_PAGES", "0")
	_, err = Load()
	assert.ErrorContains(t, err, "ENGAGEMENT_MAX_PAGES")
}
