package config

import (
	"errors"
	"time"

	"github.com/jonesrussell/reader/internal/logger"
)

// Default configuration values.
const (
	defaultServiceName    = "reader"
	defaultServiceVersion = "1.0.0"
	defaultServicePort    = 8090

	defaultESURL        = "http://localhost:9200"
	defaultESMaxRetries = 3
	defaultESTimeout    = 30 * time.Second

	defaultExtractionIndex = "extracted_content"
	defaultSimplifyIndex   = "simplified_content"
	defaultNewsIndex       = "news_listings"

	defaultExtractionTTL = 7 * 24 * time.Hour
	defaultSimplifyTTL   = 24 * time.Hour
	defaultNewsTTL       = 30 * time.Minute

	defaultRedisAddress = "localhost:6379"

	defaultModel             = "claude-sonnet-4-20250514"
	defaultMaxOutputTokens   = 3000
	defaultFetchTimeout      = 30 * time.Second
	defaultFetchRetries      = 2
	defaultFetchRetryDelay   = 2 * time.Second
	defaultNewsBaseURL       = "https://newsdata.io/api/1"
	defaultRateLimitRequests = 60
	defaultRateLimitWindow   = time.Minute
)

// Config holds all configuration for the reader service.
type Config struct {
	Service       ServiceConfig       `yaml:"service"`
	Elasticsearch ElasticsearchConfig `yaml:"elasticsearch"`
	Redis         RedisConfig         `yaml:"redis"`
	Cache         CacheConfig         `yaml:"cache"`
	Fetcher       FetcherConfig       `yaml:"fetcher"`
	Simplifier    SimplifierConfig    `yaml:"simplifier"`
	News          NewsConfig          `yaml:"news"`
	Auth          AuthConfig          `yaml:"auth"`
	RateLimit     RateLimitConfig     `yaml:"rate_limit"`
	Logging       logger.Config       `yaml:"logging"`
}

// ServiceConfig holds service-level configuration.
type ServiceConfig struct {
	Name        string   `yaml:"name"`
	Version     string   `yaml:"version"`
	Port        int      `env:"READER_PORT"         yaml:"port"`
	Debug       bool     `env:"APP_DEBUG"           yaml:"debug"`
	CORSOrigins []string `env:"READER_CORS_ORIGINS" yaml:"cors_origins"`
}

// ElasticsearchConfig holds Elasticsearch configuration.
type ElasticsearchConfig struct {
	URL        string        `env:"ELASTICSEARCH_URL"      yaml:"url"`
	Username   string        `env:"ELASTICSEARCH_USER"     yaml:"username"`
	Password   string        `env:"ELASTICSEARCH_PASSWORD" yaml:"password"`
	MaxRetries int           `yaml:"max_retries"`
	Timeout    time.Duration `yaml:"timeout"`

	ExtractionIndex string `yaml:"extraction_index"`
	SimplifyIndex   string `yaml:"simplify_index"`
	NewsIndex       string `yaml:"news_index"`
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Address  string `env:"REDIS_ADDRESS"  yaml:"address"`
	Password string `env:"REDIS_PASSWORD" yaml:"password"`
	DB       int    `yaml:"db"`
}

// CacheConfig holds the staleness windows for the three caches.
type CacheConfig struct {
	ExtractionTTL time.Duration `yaml:"extraction_ttl"`
	SimplifyTTL   time.Duration `yaml:"simplify_ttl"`
	NewsTTL       time.Duration `yaml:"news_ttl"`
}

// FetcherConfig holds article fetcher configuration.
type FetcherConfig struct {
	Timeout    time.Duration `yaml:"timeout"`
	Retries    int           `yaml:"retries"`
	RetryDelay time.Duration `yaml:"retry_delay"`
}

// SimplifierConfig holds generative model configuration.
type SimplifierConfig struct {
	APIKey          string `env:"ANTHROPIC_API_KEY" yaml:"api_key"`
	Model           string `env:"READER_MODEL"      yaml:"model"`
	MaxOutputTokens int    `yaml:"max_output_tokens"`
}

// NewsConfig holds upstream news provider configuration.
type NewsConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `env:"NEWSDATA_API_KEY" yaml:"api_key"`
}

// AuthConfig holds authentication configuration. An empty secret disables
// the bearer-token gate.
type AuthConfig struct {
	JWTSecret string `env:"AUTH_JWT_SECRET" yaml:"jwt_secret"`
}

// RateLimitConfig holds per-client request limiting configuration.
type RateLimitConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
}

// Load reads configuration from the given path, applies defaults, then
// environment overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := load(path, cfg); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SetDefaults applies default values where config values are not set.
func (c *Config) SetDefaults() {
	if c.Service.Name == "" {
		c.Service.Name = defaultServiceName
	}
	if c.Service.Version == "" {
		c.Service.Version = defaultServiceVersion
	}
	if c.Service.Port == 0 {
		c.Service.Port = defaultServicePort
	}
	if c.Elasticsearch.URL == "" {
		c.Elasticsearch.URL = defaultESURL
	}
	if c.Elasticsearch.MaxRetries == 0 {
		c.Elasticsearch.MaxRetries = defaultESMaxRetries
	}
	if c.Elasticsearch.Timeout == 0 {
		c.Elasticsearch.Timeout = defaultESTimeout
	}
	if c.Elasticsearch.ExtractionIndex == "" {
		c.Elasticsearch.ExtractionIndex = defaultExtractionIndex
	}
	if c.Elasticsearch.SimplifyIndex == "" {
		c.Elasticsearch.SimplifyIndex = defaultSimplifyIndex
	}
	if c.Elasticsearch.NewsIndex == "" {
		c.Elasticsearch.NewsIndex = defaultNewsIndex
	}
	if c.Redis.Address == "" {
		c.Redis.Address = defaultRedisAddress
	}
	if c.Cache.ExtractionTTL == 0 {
		c.Cache.ExtractionTTL = defaultExtractionTTL
	}
	if c.Cache.SimplifyTTL == 0 {
		c.Cache.SimplifyTTL = defaultSimplifyTTL
	}
	if c.Cache.NewsTTL == 0 {
		c.Cache.NewsTTL = defaultNewsTTL
	}
	if c.Fetcher.Timeout == 0 {
		c.Fetcher.Timeout = defaultFetchTimeout
	}
	if c.Fetcher.Retries == 0 {
		c.Fetcher.Retries = defaultFetchRetries
	}
	if c.Fetcher.RetryDelay == 0 {
		c.Fetcher.RetryDelay = defaultFetchRetryDelay
	}
	if c.Simplifier.Model == "" {
		c.Simplifier.Model = defaultModel
	}
	if c.Simplifier.MaxOutputTokens == 0 {
		c.Simplifier.MaxOutputTokens = defaultMaxOutputTokens
	}
	if c.News.BaseURL == "" {
		c.News.BaseURL = defaultNewsBaseURL
	}
	if c.RateLimit.Requests == 0 {
		c.RateLimit.Requests = defaultRateLimitRequests
	}
	if c.RateLimit.Window == 0 {
		c.RateLimit.Window = defaultRateLimitWindow
	}
	c.Logging.SetDefaults()
}

// Validate checks configuration invariants that cannot be defaulted.
func (c *Config) Validate() error {
	if c.Simplifier.APIKey == "" {
		return errors.New("simplifier api key is required (ANTHROPIC_API_KEY)")
	}
	if c.News.APIKey == "" {
		return errors.New("news provider api key is required (NEWSDATA_API_KEY)")
	}
	return nil
}
