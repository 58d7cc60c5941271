//go:build integration
// +build integration

package testhelpers

import (
	"os"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/kjstillabower/deskclock/internal/cache"
	"github.com/kjstillabower/deskclock/internal/client"
	"github.com/kjstillabower/deskclock/internal/config"
	"github.com/kjstillabower/deskclock/internal/service"
)

// IntegrationTestConfig holds configuration for live integration tests.
type IntegrationTestConfig struct {
	APIKey        string
	APIURL        string
	Location      string
	CacheBackend  string // "none" or "memcached"
	MemcachedAddr string
}

// GetIntegrationConfig loads integration test configuration from the
// environment. Skips the test if WEATHER_API_KEY is not set.
func GetIntegrationConfig(t *testing.T) IntegrationTestConfig {
	t.Helper()
	apiKey := os.Getenv("WEATHER_API_KEY")
	if apiKey == "" {
		t.Skip("WEATHER_API_KEY not set, skipping integration test")
	}

	apiURL := os.Getenv("WEATHER_API_URL")
	if apiURL == "" {
		apiURL = config.DefaultWeatherAPIURL
	}
	location := os.Getenv("WEATHER_LOCATION")
	if location == "" {
		location = "Bengaluru"
	}
	memcachedAddr := os.Getenv("MEMCACHED_ADDRS")
	if memcachedAddr == "" {
		memcachedAddr = "localhost:11211"
	}

	return IntegrationTestConfig{
		APIKey:        apiKey,
		APIURL:        apiURL,
		Location:      location,
		CacheBackend:  os.Getenv("INTEGRATION_CACHE_BACKEND"),
		MemcachedAddr: memcachedAddr,
	}
}

// SetupIntegrationService builds the poll path against the live API: client,
// last-known-good cache and, when requested and reachable, the memcached
// mirror. The cleanup func closes the mirror.
func SetupIntegrationService(t *testing.T, cfg IntegrationTestConfig) (*service.WeatherService, *cache.WeatherCache, func()) {
	t.Helper()
	weatherClient := SetupIntegrationClient(t, cfg)

	var mirror cache.Mirror = cache.NopMirror{}
	if cfg.CacheBackend == "memcached" {
		mc, err := cache.NewMemcachedMirror(cfg.MemcachedAddr, "integration", 500*time.Millisecond, time.Minute)
		if err == nil && mc.Ping() == nil {
			mirror = mc
			t.Logf("Using memcached mirror at %s", cfg.MemcachedAddr)
		} else {
			t.Logf("memcached not available (%v), mirror disabled", err)
		}
	}

	wc := cache.NewWeatherCache()
	svc := service.NewWeatherService(weatherClient, wc, mirror, 500*time.Millisecond, zaptest.NewLogger(t))
	return svc, wc, func() { _ = mirror.Close() }
}

// SetupIntegrationClient creates a live weather client.
func SetupIntegrationClient(t *testing.T, cfg IntegrationTestConfig) client.WeatherClient {
	t.Helper()
	c, err := client.NewWeatherAPIClient(cfg.APIKey, cfg.APIURL, cfg.Location, client.Options{Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("NewWeatherAPIClient() error = %v", err)
	}
	return c
}
