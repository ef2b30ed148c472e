package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"inventory-service/internal/store"
)

// Config holds the application's configuration values.
// Tags like `envconfig:"HTTP_SERVER_PORT"` name the environment variable and
// `default:""` supplies the value used when it is unset.
type Config struct {
	AppEnv     string `envconfig:"APP_ENV" default:"development"` // development, staging, production
	LogLevel   string `envconfig:"LOG_LEVEL" default:"info"`      // debug, info, warn, error
	HttpServer ServerConfig
	GrpcServer GrpcServerConfig
	Remote     RemoteConfig
	Cache      CacheConfig
	Storage    StorageConfig
}

// ServerConfig holds HTTP server-specific configurations.
type ServerConfig struct {
	Port         string        `envconfig:"HTTP_SERVER_PORT" default:"8080"`
	TimeoutRead  time.Duration `envconfig:"HTTP_SERVER_TIMEOUT_READ" default:"15s"`
	TimeoutWrite time.Duration `envconfig:"HTTP_SERVER_TIMEOUT_WRITE" default:"15s"`
	TimeoutIdle  time.Duration `envconfig:"HTTP_SERVER_TIMEOUT_IDLE" default:"60s"`
	BasePath     string        `envconfig:"HTTP_SERVER_BASE_PATH" default:"/api/v1"`
}

// GrpcServerConfig holds gRPC server-specific configurations.
type GrpcServerConfig struct {
	Port string `envconfig:"GRPC_SERVER_PORT" default:"9090"`
}

// RemoteConfig points at the demo catalog API.
type RemoteConfig struct {
	BaseURL        string        `envconfig:"REMOTE_BASE_URL" default:"https://dummyjson.com"`
	Timeout        time.Duration `envconfig:"REMOTE_TIMEOUT" default:"10s"`
	SimulateWrites bool          `envconfig:"REMOTE_SIMULATE_WRITES" default:"false"`
}

// CacheConfig sets freshness windows and retry behaviour.
type CacheConfig struct {
	CatalogStaleTime  time.Duration `envconfig:"CATALOG_STALE_TIME" default:"10m"`
	CategoryStaleTime time.Duration `envconfig:"CATEGORY_STALE_TIME" default:"30m"`
	ResultCacheSize   int           `envconfig:"RESULT_CACHE_SIZE" default:"256"`
	ResultCacheTTL    time.Duration `envconfig:"RESULT_CACHE_TTL" default:"10m"`
	CatalogRetries    int           `envconfig:"CATALOG_RETRIES" default:"3"`
	CategoryRetries   int           `envconfig:"CATEGORY_RETRIES" default:"2"`
	RetryBaseDelay    time.Duration `envconfig:"RETRY_BASE_DELAY" default:"1s"`
	RetryMaxDelay     time.Duration `envconfig:"RETRY_MAX_DELAY" default:"30s"`
}

// StorageConfig selects and configures the key-value backend.
type StorageConfig struct {
	Driver     store.Driver `envconfig:"STORAGE_DRIVER" default:"memory"`
	Postgres   PostgresConfig
	SQLitePath string `envconfig:"SQLITE_PATH" default:"inventory.db"`
	Redis      RedisConfig
	S3         S3Config
}

// PostgresConfig holds PostgreSQL database connection details.
type PostgresConfig struct {
	Host     string `envconfig:"POSTGRES_HOST" default:"localhost"`
	Port     string `envconfig:"POSTGRES_PORT" default:"5432"`
	User     string `envconfig:"POSTGRES_USER"`
	Password string `envconfig:"POSTGRES_PASSWORD"`
	DBName   string `envconfig:"POSTGRES_DBNAME"`
	SSLMode  string `envconfig:"POSTGRES_SSLMODE" default:"disable"`
}

// DSN constructs the Data Source Name string for connecting to PostgreSQL.
func (pc *PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		pc.Host, pc.Port, pc.User, pc.Password, pc.DBName, pc.SSLMode)
}

// RedisConfig holds the Redis connection details.
type RedisConfig struct {
	Addr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
	Prefix   string `envconfig:"REDIS_PREFIX" default:"inventory:"`
}

// S3Config holds the bucket the s3 backend writes to.
type S3Config struct {
	Bucket    string `envconfig:"S3_BUCKET"`
	Region    string `envconfig:"S3_REGION" default:"us-east-1"`
	Endpoint  string `envconfig:"S3_ENDPOINT"`
	Prefix    string `envconfig:"S3_PREFIX" default:"inventory/"`
	PathStyle bool   `envconfig:"S3_PATH_STYLE" default:"false"`
}

// StoreOptions maps the storage section onto store.Options.
func (sc *StorageConfig) StoreOptions() store.Options {
	return store.Options{
		Driver:        sc.Driver,
		PostgresDSN:   sc.Postgres.DSN(),
		SQLitePath:    sc.SQLitePath,
		RedisAddr:     sc.Redis.Addr,
		RedisPassword: sc.Redis.Password,
		RedisDB:       sc.Redis.DB,
		RedisPrefix:   sc.Redis.Prefix,
		S3: store.S3Config{
			Bucket:    sc.S3.Bucket,
			Region:    sc.S3.Region,
			Endpoint:  sc.S3.Endpoint,
			Prefix:    sc.S3.Prefix,
			PathStyle: sc.S3.PathStyle,
		},
	}
}

// Load reads an optional .env file and then the environment.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config: failed to load %s: %w", f, err)
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("config: failed to process configuration: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case store.DriverPostgres:
		if c.Storage.Postgres.User == "" || c.Storage.Postgres.DBName == "" {
			return errors.New("config: POSTGRES_USER and POSTGRES_DBNAME are required for the postgres driver")
		}
	case store.DriverS3:
		if c.Storage.S3.Bucket == "" {
			return errors.New("config: S3_BUCKET is required for the s3 driver")
		}
	}
	if c.Cache.CatalogRetries < 0 || c.Cache.CategoryRetries < 0 {
		return errors.New("config: retry counts must not be negative")
	}
	return nil
}
