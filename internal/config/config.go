package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	CacheMemory = "memory"
	CacheRedis  = "redis"

	DefaultBoundarySource = "https://naciscdn.org/naturalearth/10m/cultural/ne_10m_admin_1_states_provinces.zip"
)

type Config struct {
	Server   ServerConfig
	Data     DataConfig
	Cache    CacheConfig
	Logger   LoggerConfig
	Security SecurityConfig
}

type ServerConfig struct {
	Host             string        `envconfig:"SERVER_HOST" default:"localhost"`
	Port             int           `envconfig:"SERVER_PORT" default:"8084"`
	ReadTimeout      time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"10s"`
	WriteTimeout     time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"0s"`
	IdleTimeout      time.Duration `envconfig:"SERVER_IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout  time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
	RecomputeTimeout time.Duration `envconfig:"SERVER_RECOMPUTE_TIMEOUT" default:"15s"`
}

type DataConfig struct {
	FactSource      string        `envconfig:"FACT_SOURCE" default:"data/processed/amazon_sale_report_clean.csv"`
	BoundarySource  string        `envconfig:"BOUNDARY_SOURCE"`
	Country         string        `envconfig:"BOUNDARY_COUNTRY" default:"IN"`
	NameProperty    string        `envconfig:"BOUNDARY_NAME_PROPERTY" default:"name"`
	SQLTable        string        `envconfig:"FACT_SQL_TABLE" default:"amazon_in_sales"`
	SnapshotDir     string        `envconfig:"SNAPSHOT_DIR" default:".cache"`
	DisableSnapshot bool          `envconfig:"SNAPSHOT_DISABLED" default:"false"`
	FetchAttempts   int           `envconfig:"BOUNDARY_FETCH_ATTEMPTS" default:"3"`
	FetchBackoff    time.Duration `envconfig:"BOUNDARY_FETCH_BACKOFF" default:"500ms"`
	LoadTimeout     time.Duration `envconfig:"DATA_LOAD_TIMEOUT" default:"2m"`
}

type CacheConfig struct {
	Backend      string        `envconfig:"CACHE_BACKEND" default:"memory"`
	Size         int           `envconfig:"CACHE_SIZE" default:"256"`
	RedisURL     string        `envconfig:"CACHE_REDIS_URL"`
	TTL          time.Duration `envconfig:"CACHE_TTL" default:"10m"`
	SessionLimit int           `envconfig:"SESSION_LIMIT" default:"1024"`
}

type LoggerConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Format string `envconfig:"LOG_FORMAT" default:"json"`
}

type SecurityConfig struct {
	EnableRateLimit bool     `envconfig:"SECURITY_RATE_LIMIT_ENABLED" default:"true"`
	RateLimitRPS    int      `envconfig:"SECURITY_RATE_LIMIT_RPS" default:"100"`
	RateLimitBurst  int      `envconfig:"SECURITY_RATE_LIMIT_BURST" default:"20"`
	AllowedOrigins  []string `envconfig:"SECURITY_ALLOWED_ORIGINS" default:"http://localhost:8084"`
	TrustedProxies  []string `envconfig:"SECURITY_TRUSTED_PROXIES" default:"127.0.0.1"`
}

// Load reads an optional .env file, then the environment. Variables already
// set in the environment win over the file.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && len(envFiles) > 0 {
		return nil, fmt.Errorf("loading env files: %w", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.Data.BoundarySource == "" {
		cfg.Data.BoundarySource = DefaultBoundarySource
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	// SSE streams stay open, so a zero write timeout (none) is allowed.
	if c.Server.WriteTimeout < 0 {
		return fmt.Errorf("server write timeout cannot be negative")
	}

	if c.Server.RecomputeTimeout <= 0 {
		return fmt.Errorf("recompute timeout must be positive")
	}

	if strings.TrimSpace(c.Data.FactSource) == "" {
		return fmt.Errorf("fact source cannot be empty")
	}

	if c.Data.FetchAttempts <= 0 {
		return fmt.Errorf("boundary fetch attempts must be positive")
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLogLevels, c.Logger.Level) {
		return fmt.Errorf("invalid log level %q, must be one of: %s", c.Logger.Level, strings.Join(validLogLevels, ", "))
	}

	validLogFormats := []string{"json", "text"}
	if !slices.Contains(validLogFormats, c.Logger.Format) {
		return fmt.Errorf("invalid log format %q, must be one of: %s", c.Logger.Format, strings.Join(validLogFormats, ", "))
	}

	validBackends := []string{CacheMemory, CacheRedis}
	if !slices.Contains(validBackends, c.Cache.Backend) {
		return fmt.Errorf("invalid cache backend %q, must be one of: %s", c.Cache.Backend, strings.Join(validBackends, ", "))
	}

	if c.Cache.Backend == CacheRedis && c.Cache.RedisURL == "" {
		return fmt.Errorf("redis cache backend requires CACHE_REDIS_URL")
	}

	if c.Cache.Size <= 0 || c.Cache.SessionLimit <= 0 {
		return fmt.Errorf("cache size and session limit must be positive")
	}

	if c.Security.RateLimitRPS <= 0 {
		return fmt.Errorf("rate limit RPS must be positive")
	}

	if c.Security.RateLimitBurst <= 0 {
		return fmt.Errorf("rate limit burst must be positive")
	}

	return nil
}

func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
