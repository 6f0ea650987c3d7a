package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendMemory   = "memory"
	BackendMongo    = "mongo"
	BackendPostgres = "postgres"
)

type Config struct {
	HTTPAddr    string
	ServiceName string
	Env         string

	StoreBackend  string
	StoreTimeout  time.Duration
	MongoURI      string
	MongoDatabase string
	PostgresDSN   string

	// RedisAddr enables the count cache and shared idempotency keys when set.
	RedisAddr     string
	CountCacheTTL time.Duration
	// KafkaBrokers enables the event relay when non-empty.
	KafkaBrokers []string

	CatalogPageSize int
	TopSellingLimit int

	OTLPEndpoint string
	LogLevel     string
	LogFile      string
}

// Load reads .env files (when present) and then the environment.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("config: load env file: %w", err)
	}

	cfg := Config{
		HTTPAddr:      getenv("HTTP_ADDR", ":8080"),
		ServiceName:   getenv("SERVICE_NAME", "foodmarket"),
		Env:           getenv("ENV", "dev"),
		StoreBackend:  strings.ToLower(getenv("STORE_BACKEND", BackendMemory)),
		MongoURI:      getenv("MONGO_URI", ""),
		MongoDatabase: getenv("MONGO_DATABASE", "foodmarket"),
		PostgresDSN:   getenv("POSTGRES_DSN", ""),
		RedisAddr:     getenv("REDIS_ADDR", ""),
		KafkaBrokers:  splitCSV(getenv("KAFKA_BROKERS", "")),
		OTLPEndpoint:  getenv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		LogLevel:      getenv("LOG_LEVEL", "info"),
		LogFile:       getenv("LOG_FILE", ""),
	}

	var err error
	if cfg.CatalogPageSize, err = intEnv("CATALOG_PAGE_SIZE", 9); err != nil {
		return Config{}, err
	}
	if cfg.TopSellingLimit, err = intEnv("TOP_SELLING_LIMIT", 6); err != nil {
		return Config{}, err
	}
	if cfg.CountCacheTTL, err = durationEnv("COUNT_CACHE_TTL", 30*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.StoreTimeout, err = durationEnv("STORE_TIMEOUT", 5*time.Second); err != nil {
		return Config{}, err
	}

	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	switch c.StoreBackend {
	case BackendMemory:
	case BackendMongo:
		if c.MongoURI == "" {
			return errors.New("config: MONGO_URI is required for the mongo backend")
		}
	case BackendPostgres:
		if c.PostgresDSN == "" {
			return errors.New("config: POSTGRES_DSN is required for the postgres backend")
		}
	default:
		return fmt.Errorf("config: unknown STORE_BACKEND %q", c.StoreBackend)
	}
	if c.CatalogPageSize <= 0 {
		return errors.New("config: CATALOG_PAGE_SIZE must be positive")
	}
	if c.TopSellingLimit < 0 {
		return errors.New("config: TOP_SELLING_LIMIT must not be negative")
	}
	return nil
}

func getenv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func intEnv(k string, def int) (int, error) {
	v := getenv(k, "")
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", k, err)
	}
	return n, nil
}

func durationEnv(k string, def time.Duration) (time.Duration, error) {
	v := getenv(k, "")
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", k, err)
	}
	return d, nil
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
