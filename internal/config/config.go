package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the facetdex API configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Search   SearchConfig   `yaml:"search"`
	Cache    CacheConfig    `yaml:"cache"`
	Records  RecordsConfig  `yaml:"records"`
	Auth     AuthConfig     `yaml:"auth"`
	Health   HealthConfig   `yaml:"health"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// HealthConfig bounds /healthz probes.
type HealthConfig struct {
	Timeout time.Duration `yaml:"timeout"` // e.g. "2s"
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings. Search keys may only run
// search and refine rounds.
type AuthConfig struct {
	APIKeys       []string `yaml:"api_keys"`
	SearchAPIKeys []string `yaml:"search_api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int             `yaml:"port"`
	ReadTimeoutSec  int             `yaml:"read_timeout_sec"`
	WriteTimeoutSec int             `yaml:"write_timeout_sec"`
	ShutdownSec     int             `yaml:"shutdown_timeout_sec"`
	CORS            CORSConfig      `yaml:"cors"`
	RateLimit       RateLimitConfig `yaml:"rate_limit"`
}

// CORSConfig holds cross-origin settings. Empty origins disable CORS.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// RateLimitConfig holds the global request rate limit. Zero disables it.
type RateLimitConfig struct {
	RequestsPerSec float64 `yaml:"requests_per_sec"`
	Burst          int     `yaml:"burst"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// SearchConfig holds search round settings.
type SearchConfig struct {
	PoolSize                 int `yaml:"pool_size"`
	DefaultMaxValuesPerFacet int `yaml:"default_max_values_per_facet"`
	MaxValuesPerFacet        int `yaml:"max_values_per_facet"`
}

// Cache backends.
const (
	CacheNone   = "none"
	CacheRedis  = "redis"
	CacheBadger = "badger"
)

// CacheConfig holds backend response cache settings.
type CacheConfig struct {
	Backend  string `yaml:"backend"` // none, redis, badger (default: none)
	TTLSec   int    `yaml:"ttl_sec"`
	Path     string `yaml:"path"`      // badger only
	InMemory bool   `yaml:"in_memory"` // badger only
}

// RecordsConfig holds record write settings.
type RecordsConfig struct {
	MaxBatchSize int `yaml:"max_batch_size"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.HTTP.RateLimit.RequestsPerSec > 0 && c.HTTP.RateLimit.Burst <= 0 {
		c.HTTP.RateLimit.Burst = int(c.HTTP.RateLimit.RequestsPerSec)
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Search.PoolSize <= 0 {
		c.Search.PoolSize = 64
	}
	if c.Search.DefaultMaxValuesPerFacet <= 0 {
		c.Search.DefaultMaxValuesPerFacet = 10
	}
	if c.Search.MaxValuesPerFacet <= 0 {
		c.Search.MaxValuesPerFacet = 1000
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = CacheNone
	}
	if c.Cache.TTLSec <= 0 {
		c.Cache.TTLSec = 30
	}
	if c.Cache.Backend == CacheBadger && c.Cache.Path == "" && !c.Cache.InMemory {
		c.Cache.Path = filepath.Join("data", "cache")
	}
	if c.Records.MaxBatchSize <= 0 {
		c.Records.MaxBatchSize = 1000
	}
	if c.Health.Timeout <= 0 {
		c.Health.Timeout = 2 * time.Second
	}
}

// Validate checks the configuration and reports every problem at once.
func (c *Config) Validate() error {
	var errs []error
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		errs = append(errs, fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port))
	}
	if c.HTTP.RateLimit.RequestsPerSec < 0 {
		errs = append(errs, errors.New("http.rate_limit.requests_per_sec must be >= 0"))
	}
	if len(c.Database.Addrs) == 0 {
		errs = append(errs, errors.New("database.addrs is required"))
	}
	if len(c.Database.Addrs) > 1 && c.Database.DB != 0 {
		errs = append(errs, errors.New("database.db must be 0 with several addrs (cluster mode)"))
	}
	switch c.Cache.Backend {
	case "", CacheNone, CacheRedis, CacheBadger:
	default:
		errs = append(errs, fmt.Errorf(
			"cache.backend must be %q, %q or %q, got %q",
			CacheNone, CacheRedis, CacheBadger, c.Cache.Backend,
		))
	}
	if c.Search.DefaultMaxValuesPerFacet > c.Search.MaxValuesPerFacet && c.Search.MaxValuesPerFacet > 0 {
		errs = append(errs, errors.New(
			"search.default_max_values_per_facet must not exceed search.max_values_per_facet"))
	}
	return errors.Join(errs...)
}

// findConfigPath locates the config file. FACETDEX_CONFIG, when set, wins.
func findConfigPath(env string) string {
	if path := os.Getenv("FACETDEX_CONFIG"); path != "" {
		return path
	}
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
