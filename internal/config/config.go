package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Catalog sources
const (
	CatalogSourceDB   = "db"
	CatalogSourceFile = "file"
	CatalogSourceHTTP = "http"
)

// Config holds configuration for the pricing service.
type Config struct {
	HTTPPort        string
	JWTSecret       []byte
	JWTTTL          time.Duration
	ShutdownTimeout time.Duration
	Database        DatabaseConfig
	Redis           RedisConfig
	Pricing         PricingConfig
	Invalidation    InvalidationConfig
	Logging         LoggingConfig
	Metrics         MetricsConfig

	// Login attempts per client address per minute; 0 disables the limit
	LoginAttemptsPerMinute int
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	QueryTimeout    time.Duration
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Enabled      bool
	Address      string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// PricingConfig holds tariff cache and quote settings
type PricingConfig struct {
	StaleTime            time.Duration
	FetchAttemptTimeout  time.Duration // per try
	FetchTimeout         time.Duration // whole fetch including retries; zero derives it from the attempts
	FetchAttempts        int
	RetryInitialInterval time.Duration
	CatalogSource        string // db, file or http
	CatalogFile          string
	CatalogURL           string
	PackSizes            []int
	QuoteCacheSize       int
	QuoteCacheTTL        time.Duration
}

// InvalidationConfig holds cross-instance invalidation settings
type InvalidationConfig struct {
	Channel    string
	InstanceID string
}

// LoggingConfig holds process logger settings
type LoggingConfig struct {
	Level  string
	Format string
	Output string
}

// MetricsConfig holds OTLP metrics export settings
type MetricsConfig struct {
	Enabled     bool
	Endpoint    string
	Insecure    bool
	ServiceName string
}

func getEnvInt(key string, defaultValue int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}

	intVal, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}

	return intVal
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(val)
	if err != nil {
		return defaultValue
	}

	return duration
}

func getEnvString(key string, defaultValue string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	return val
}

func getEnvBool(key string, defaultValue bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}

	boolVal, err := strconv.ParseBool(val)
	if err != nil {
		return defaultValue
	}

	return boolVal
}

// getEnvIntList parses a comma-separated list, skipping entries that are not positive integers
func getEnvIntList(key string, defaultValue []int) []int {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}

	var out []int
	for _, part := range strings.Split(val, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n <= 0 {
			continue
		}
		out = append(out, n)
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

func defaultInstanceID() string {
	if pod := os.Getenv("POD_NAME"); pod != "" {
		return pod
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host + "-" + uuid.NewString()[:8]
	}
	return uuid.NewString()
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		HTTPPort:        getEnvString("HTTP_PORT", "8080"),
		JWTSecret:       []byte(getEnvString("JWT_SECRET", "supersecretkey")),
		JWTTTL:          getEnvDuration("JWT_TTL", 12*time.Hour),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),

		LoginAttemptsPerMinute: getEnvInt("LOGIN_ATTEMPTS_PER_MINUTE", 10),
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			ConnMaxIdleTime: getEnvDuration("DB_CONN_MAX_IDLE_TIME", 1*time.Minute),
			QueryTimeout:    getEnvDuration("DB_QUERY_TIMEOUT", 5*time.Second),
		},
		Redis: RedisConfig{
			Enabled:      getEnvBool("REDIS_ENABLED", false),
			Address:      getEnvString("REDIS_ADDRESS", "localhost:6379"),
			Password:     getEnvString("REDIS_PASSWORD", ""),
			DB:           getEnvInt("REDIS_DB", 0),
			PoolSize:     getEnvInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getEnvDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getEnvDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getEnvDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Pricing: PricingConfig{
			StaleTime:            getEnvDuration("PRICING_STALE_TIME", 5*time.Minute),
			FetchAttemptTimeout:  getEnvDuration("PRICING_FETCH_ATTEMPT_TIMEOUT", 5*time.Second),
			FetchTimeout:         getEnvDuration("PRICING_FETCH_TIMEOUT", 0),
			FetchAttempts:        getEnvInt("PRICING_FETCH_ATTEMPTS", 2),
			RetryInitialInterval: getEnvDuration("PRICING_RETRY_INITIAL_INTERVAL", 200*time.Millisecond),
			CatalogSource:        strings.ToLower(getEnvString("CATALOG_SOURCE", CatalogSourceDB)),
			CatalogFile:          getEnvString("CATALOG_FILE", "tariffs.json"),
			CatalogURL:           getEnvString("CATALOG_URL", ""),
			PackSizes:            getEnvIntList("PRICING_PACK_SIZES", []int{50, 150, 300, 500}),
			QuoteCacheSize:       getEnvInt("PRICING_QUOTE_CACHE_SIZE", 1000),
			QuoteCacheTTL:        getEnvDuration("PRICING_QUOTE_CACHE_TTL", 10*time.Minute),
		},
		Invalidation: InvalidationConfig{
			Channel:    getEnvString("INVALIDATION_CHANNEL", "tariffs:invalidate"),
			InstanceID: getEnvString("INSTANCE_ID", defaultInstanceID()),
		},
		Logging: LoggingConfig{
			Level:  getEnvString("LOG_LEVEL", "info"),
			Format: getEnvString("LOG_FORMAT", "console"),
			Output: getEnvString("LOG_OUTPUT", "stderr"),
		},
		Metrics: MetricsConfig{
			Enabled:     getEnvBool("OTEL_METRICS_ENABLED", false),
			Endpoint:    getEnvString("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Insecure:    getEnvBool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getEnvString("OTEL_SERVICE_NAME", "correction-pricing"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that depend on each other.
func (c *Config) Validate() error {
	switch c.Pricing.CatalogSource {
	case CatalogSourceDB:
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required when CATALOG_SOURCE=db")
		}
	case CatalogSourceFile:
		if c.Pricing.CatalogFile == "" {
			return fmt.Errorf("CATALOG_FILE is required when CATALOG_SOURCE=file")
		}
	case CatalogSourceHTTP:
		if c.Pricing.CatalogURL == "" {
			return fmt.Errorf("CATALOG_URL is required when CATALOG_SOURCE=http")
		}
	default:
		return fmt.Errorf("unknown CATALOG_SOURCE %q", c.Pricing.CatalogSource)
	}

	if c.Pricing.StaleTime <= 0 {
		return fmt.Errorf("PRICING_STALE_TIME must be positive")
	}
	if c.Pricing.FetchAttempts < 1 {
		return fmt.Errorf("PRICING_FETCH_ATTEMPTS must be at least 1")
	}
	return nil
}
