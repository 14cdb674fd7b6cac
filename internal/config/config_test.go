package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		HTTP:     HTTPConfig{Port: 8080},
		Database: DatabaseConfig{Addrs: []string{"localhost:6379"}},
	}
}

func TestValidate_InvalidCacheBackend(t *testing.T) {
	cfg := validConfig()
	cfg.Cache.Backend = "memcached"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for invalid cache backend")
	}
	expected := `cache.backend must be "none", "redis" or "badger", got "memcached"`
	if err.Error() != expected {
		t.Errorf("unexpected error message:\ngot:  %q\nwant: %q", err.Error(), expected)
	}
}

func TestValidate_ValidCacheBackends(t *testing.T) {
	for _, backend := range []string{"", CacheNone, CacheRedis, CacheBadger} {
		t.Run("backend="+backend, func(t *testing.T) {
			cfg := validConfig()
			cfg.Cache.Backend = backend
			if err := cfg.Validate(); err != nil {
				t.Fatalf("unexpected error for valid backend %q: %v", backend, err)
			}
		})
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.Port = 0

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_MissingAddrs(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Addrs = nil

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing database addrs")
	}
}

func TestValidate_NegativeRateLimit(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.RateLimit.RequestsPerSec = -1

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for negative rate limit")
	}
}

func TestValidate_DefaultAboveMaxValues(t *testing.T) {
	cfg := validConfig()
	cfg.Search.DefaultMaxValuesPerFacet = 50
	cfg.Search.MaxValuesPerFacet = 10

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when default max values exceeds the cap")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 10 {
		t.Errorf("expected ReadTimeoutSec=10, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.HTTP.WriteTimeoutSec != 10 {
		t.Errorf("expected WriteTimeoutSec=10, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.HTTP.ShutdownSec != 10 {
		t.Errorf("expected ShutdownSec=10, got %d", cfg.HTTP.ShutdownSec)
	}
	if cfg.Database.ReadinessTimeout != 10 {
		t.Errorf("expected ReadinessTimeout=10, got %d", cfg.Database.ReadinessTimeout)
	}
	if cfg.Search.PoolSize != 64 {
		t.Errorf("expected PoolSize=64, got %d", cfg.Search.PoolSize)
	}
	if cfg.Search.DefaultMaxValuesPerFacet != 10 || cfg.Search.MaxValuesPerFacet != 1000 {
		t.Errorf("unexpected max values defaults: %+v", cfg.Search)
	}
	if cfg.Cache.Backend != CacheNone || cfg.Cache.TTLSec != 30 {
		t.Errorf("unexpected cache defaults: %+v", cfg.Cache)
	}
	if cfg.Records.MaxBatchSize != 1000 {
		t.Errorf("expected MaxBatchSize=1000, got %d", cfg.Records.MaxBatchSize)
	}
}

func TestApplyDefaults_RateLimitBurst(t *testing.T) {
	cfg := Config{HTTP: HTTPConfig{RateLimit: RateLimitConfig{RequestsPerSec: 50}}}
	cfg.ApplyDefaults()

	if cfg.HTTP.RateLimit.Burst != 50 {
		t.Errorf("expected Burst=50, got %d", cfg.HTTP.RateLimit.Burst)
	}
}

func TestApplyDefaults_BadgerPath(t *testing.T) {
	cfg := Config{Cache: CacheConfig{Backend: CacheBadger}}
	cfg.ApplyDefaults()

	if cfg.Cache.Path != filepath.Join("data", "cache") {
		t.Errorf("unexpected badger path %q", cfg.Cache.Path)
	}
}

func TestValidate_ReportsAllProblems(t *testing.T) {
	cfg := Config{
		HTTP:     HTTPConfig{Port: 70000},
		Database: DatabaseConfig{Addrs: []string{"a:6379", "b:6379"}, DB: 2},
		Cache:    CacheConfig{Backend: "memcached"},
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"http.port", "database.db", "cache.backend"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

func TestApplyDefaults_HealthTimeout(t *testing.T) {
	cfg := validConfig()
	cfg.ApplyDefaults()
	if cfg.Health.Timeout != 2*time.Second {
		t.Errorf("health timeout = %s, want 2s", cfg.Health.Timeout)
	}
}

func TestFindConfigPath_Override(t *testing.T) {
	t.Setenv("FACETDEX_CONFIG", "/etc/facetdex/custom.yaml")
	if got := findConfigPath("prod"); got != "/etc/facetdex/custom.yaml" {
		t.Errorf("findConfigPath = %q", got)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("FACETDEX_TEST_ADDR", "redis:6379")

	got := string(expandEnvVars([]byte("a: ${FACETDEX_TEST_ADDR}\nb: ${FACETDEX_TEST_MISSING:-fallback}")))
	want := "a: redis:6379\nb: fallback"
	if got != want {
		t.Errorf("expandEnvVars() = %q, want %q", got, want)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "config"), 0o755); err != nil {
		t.Fatal(err)
	}
	yaml := []byte("http:\n  port: 9090\ndatabase:\n  addrs: [\"${FACETDEX_TEST_DB:-localhost:6379}\"]\n" +
		"cache:\n  backend: redis\nhealth:\n  timeout: 500ms\n")
	if err := os.WriteFile(filepath.Join(dir, "config", "unit.yaml"), yaml, 0o600); err != nil {
		t.Fatal(err)
	}
	t.Chdir(dir)

	cfg, err := Load("unit")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTP.Port != 9090 || cfg.Database.Addrs[0] != "localhost:6379" || cfg.Cache.Backend != CacheRedis ||
		cfg.Health.Timeout != 500*time.Millisecond {
		t.Errorf("unexpected config: %+v", cfg)
	}
}
