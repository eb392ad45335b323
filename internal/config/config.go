package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the rentsearch API configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Cache     CacheConfig     `yaml:"cache"`
	Search    SearchConfig    `yaml:"search"`
	Signals   SignalsConfig   `yaml:"signals"`
	Geocoding GeocodingConfig `yaml:"geocoding"`
	Planner   PlannerConfig   `yaml:"planner"`
	Listings  ListingsConfig  `yaml:"listings"`
	Index     IndexConfig     `yaml:"index"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// CacheConfig holds cache and preference store connection settings.
// URL wins over Addrs, Addrs wins over Host+Port.
type CacheConfig struct {
	Driver           string   `yaml:"driver"` // redis, valkey (default: redis)
	URL              string   `yaml:"url"`
	Addrs            []string `yaml:"addrs"`
	Host             string   `yaml:"host"`
	Port             int      `yaml:"port"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// SearchConfig holds search pipeline settings.
type SearchConfig struct {
	ResultTTLSec  int     `yaml:"result_ttl_sec"`
	DefaultUserID string  `yaml:"default_user_id"`
	MaxDistanceM  float64 `yaml:"max_distance_m"`
	ResultLimit   int     `yaml:"result_limit"`
}

// SignalsConfig holds preference signal settings.
type SignalsConfig struct {
	HistoryTTLSec int `yaml:"history_ttl_sec"`
	HistoryMaxLen int `yaml:"history_max_len"`
}

// GeocodingConfig holds geocoding provider settings.
type GeocodingConfig struct {
	BaseURL             string  `yaml:"base_url"`
	APIKey              string  `yaml:"api_key"`
	Country             string  `yaml:"country"`
	CacheTTLSec         int     `yaml:"cache_ttl_sec"`
	TimeoutSec          int     `yaml:"timeout_sec"`
	BreakerMinRequests  uint32  `yaml:"breaker_min_requests"`
	BreakerFailureRatio float64 `yaml:"breaker_failure_ratio"`
	BreakerOpenSec      int     `yaml:"breaker_open_sec"`
}

// PlannerConfig holds query planner settings.
type PlannerConfig struct {
	Provider   string `yaml:"provider"` // openai, rules (default: rules without api key)
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// ListingsConfig selects and configures the listing store.
type ListingsConfig struct {
	Driver string            `yaml:"driver"` // mongo, memory (default: mongo)
	Mongo  MongoConfig       `yaml:"mongo"`
	Memory MemoryStoreConfig `yaml:"memory"`
}

// MongoConfig holds MongoDB listing store settings.
type MongoConfig struct {
	URI        string `yaml:"uri"`
	Database   string `yaml:"database"`
	Collection string `yaml:"collection"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// MemoryStoreConfig holds in-memory listing store settings.
type MemoryStoreConfig struct {
	SeedFile string `yaml:"seed_file"`
}

// IndexConfig holds listing index (Elasticsearch) settings. Empty Addresses disables enrichment.
type IndexConfig struct {
	Addresses []string `yaml:"addresses"`
	Username  string   `yaml:"username"`
	Password  string   `yaml:"password"`
	Index     string   `yaml:"index"`
}

// Planner providers.
const (
	PlannerOpenAI = "openai"
	PlannerRules  = "rules"
)

// Listing store drivers.
const (
	ListingsMongo  = "mongo"
	ListingsMemory = "memory"
)

// LoadDotEnv loads variables from a .env file into the process environment.
// A missing file is not an error. Variables already set are kept.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// Load reads configuration from a YAML file by environment name (local, dev, docker, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from a YAML file.
func LoadFile(configPath string) (Config, error) {
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

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
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
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}

	if c.Cache.Driver == "" {
		c.Cache.Driver = "redis"
	}
	if c.Cache.ReadinessTimeout <= 0 {
		c.Cache.ReadinessTimeout = 10
	}
	if c.Cache.URL == "" && len(c.Cache.Addrs) == 0 && c.Cache.Host != "" {
		port := c.Cache.Port
		if port <= 0 {
			port = 6379
		}
		c.Cache.Addrs = []string{net.JoinHostPort(c.Cache.Host, strconv.Itoa(port))}
	}

	if c.Search.ResultTTLSec <= 0 {
		c.Search.ResultTTLSec = 3600
	}
	if c.Search.DefaultUserID == "" {
		c.Search.DefaultUserID = "anonymous"
	}
	if c.Search.MaxDistanceM <= 0 {
		c.Search.MaxDistanceM = 5000
	}
	if c.Search.ResultLimit <= 0 {
		c.Search.ResultLimit = 50
	}

	if c.Signals.HistoryTTLSec <= 0 {
		c.Signals.HistoryTTLSec = 30 * 24 * 3600
	}
	if c.Signals.HistoryMaxLen <= 0 {
		c.Signals.HistoryMaxLen = 20
	}

	if c.Geocoding.BaseURL == "" {
		c.Geocoding.BaseURL = "https://api.mapbox.com"
	}
	if c.Geocoding.Country == "" {
		c.Geocoding.Country = "vn"
	}
	if c.Geocoding.CacheTTLSec <= 0 {
		c.Geocoding.CacheTTLSec = 30 * 24 * 3600
	}
	if c.Geocoding.TimeoutSec <= 0 {
		c.Geocoding.TimeoutSec = 5
	}
	if c.Geocoding.BreakerMinRequests == 0 {
		c.Geocoding.BreakerMinRequests = 5
	}
	if c.Geocoding.BreakerFailureRatio <= 0 {
		c.Geocoding.BreakerFailureRatio = 0.5
	}
	if c.Geocoding.BreakerOpenSec <= 0 {
		c.Geocoding.BreakerOpenSec = 30
	}

	if c.Planner.Provider == "" {
		c.Planner.Provider = PlannerRules
		if c.Planner.APIKey != "" {
			c.Planner.Provider = PlannerOpenAI
		}
	}
	if c.Planner.Model == "" {
		c.Planner.Model = "gpt-4o-mini"
	}
	if c.Planner.TimeoutSec <= 0 {
		c.Planner.TimeoutSec = 15
	}

	if c.Listings.Driver == "" {
		c.Listings.Driver = ListingsMongo
	}
	if c.Listings.Mongo.Collection == "" {
		c.Listings.Mongo.Collection = "listings"
	}
	if c.Listings.Mongo.TimeoutSec <= 0 {
		c.Listings.Mongo.TimeoutSec = 10
	}

	if c.Index.Index == "" {
		c.Index.Index = "listings"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}

	switch c.Cache.Driver {
	case "redis", "valkey":
	default:
		return fmt.Errorf("cache.driver must be \"redis\" or \"valkey\", got %q", c.Cache.Driver)
	}
	if c.Cache.URL == "" && len(c.Cache.Addrs) == 0 {
		return errors.New("cache.url, cache.addrs or cache.host is required")
	}

	if c.Geocoding.BreakerFailureRatio > 1 {
		return fmt.Errorf("geocoding.breaker_failure_ratio must be in (0, 1], got %v", c.Geocoding.BreakerFailureRatio)
	}

	switch c.Planner.Provider {
	case PlannerRules:
	case PlannerOpenAI:
		if c.Planner.APIKey == "" {
			return errors.New("planner.api_key is required for the openai provider")
		}
	default:
		return fmt.Errorf("planner.provider must be %q or %q, got %q", PlannerOpenAI, PlannerRules, c.Planner.Provider)
	}

	switch c.Listings.Driver {
	case ListingsMongo:
		if c.Listings.Mongo.URI == "" || c.Listings.Mongo.Database == "" {
			return errors.New("listings.mongo.uri and listings.mongo.database are required")
		}
	case ListingsMemory:
	default:
		return fmt.Errorf("listings.driver must be %q or %q, got %q", ListingsMongo, ListingsMemory, c.Listings.Driver)
	}

	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
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
