package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadFlowTimingsDefaultsAndOverrides(t *testing.T) {
	assert.Equal(t, DefaultFlowTimings(), LoadFlowTimings())

	t.Setenv("FLOW_MAX_WAIT", "10s")
	t.Setenv("FLOW_POLL_INTERVAL", "bogus")
	got := LoadFlowTimings()
	assert.Equal(t, 10*time.Second, got.MaxWait)
	assert.Equal(t, 100*time.Millisecond, got.PollInterval)

	t.Setenv("FLOW_MAX_WAIT", "1ms")
	assert.Equal(t, got.PollInterval, LoadFlowTimings().MaxWait)
}

func TestLoadFlowTimingsSuggestionWait(t *testing.T) {
	t.Setenv("FLOW_SUGGESTION_WAIT", "0s")
	assert.Equal(t, time.Duration(0), LoadFlowTimings().SuggestionWait)

	t.Setenv("FLOW_SUGGESTION_WAIT", "-2s")
	assert.Equal(t, time.Duration(0), LoadFlowTimings().SuggestionWait)
}

func TestLoadBrowserConfig(t *testing.T) {
	t.Setenv("BROWSER_DRIVER", "Rod")
	t.Setenv("BROWSER_HEADLESS", "yes")
	cfg := LoadBrowserConfig()
	assert.Equal(t, "rod", cfg.Driver)
	assert.True(t, cfg.Headless)
	assert.Equal(t, DefaultSiteURL, cfg.SiteURL)
	assert.Equal(t, "irctc.co.in", cfg.SiteHost)
}

func TestLoadRateLimitConfigClamps(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "10s")
	t.Setenv("RATE_LIMIT_TTL", "1s")
	cfg := LoadRateLimitConfig()
	assert.Equal(t, 1, cfg.Capacity)
	assert.Equal(t, 50*time.Second, cfg.TTL)
}

func TestLoadCacheConfigMethods(t *testing.T) {
	t.Setenv("CACHE_METHODS", "get, head ,")
	cfg := LoadCacheConfig()
	assert.Equal(t, map[string]bool{"GET": true, "HEAD": true}, cfg.Methods)
	assert.Equal(t, "irctc:cache", cfg.Prefix)
}

func TestLoadRedisConfigAddr(t *testing.T) {
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("REDIS_TLS", "1")
	cfg := LoadRedisConfig()
	assert.Equal(t, "cache:6380", cfg.Addr)
	assert.True(t, cfg.TLS)
}
