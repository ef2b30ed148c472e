package store

import (
	"context"
	"fmt"
)

// Options selects and configures a backend for Open.
type Options struct {
	Driver      Driver
	PostgresDSN string
	SQLitePath  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string

	S3 S3Config
}

// Open returns the KVStore for opts.Driver. An empty driver means memory.
func Open(ctx context.Context, opts Options) (KVStore, error) {
	switch opts.Driver {
	case "", DriverMemory:
		return NewMemoryStore(), nil
	case DriverPostgres:
		return OpenPostgres(ctx, opts.PostgresDSN)
	case DriverSQLite:
		return OpenSQLite(ctx, opts.SQLitePath)
	case DriverRedis:
		return OpenRedis(ctx, opts.RedisAddr, opts.RedisPassword, opts.RedisDB, opts.RedisPrefix)
	case DriverS3:
		return OpenS3(ctx, opts.S3)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, opts.Driver)
	}
}
