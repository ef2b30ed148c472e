package store

import (
	"context"
	"errors"
)

// Predefined errors for store operations
var (
	ErrStorageUnavailable = errors.New("store: storage unavailable")
	ErrQuotaExceeded      = errors.New("store: quota exceeded")
	ErrUnknownDriver      = errors.New("store: unknown storage driver")
)

// Driver identifies a concrete key-value backend.
type Driver string

const (
	DriverMemory   Driver = "memory"
	DriverPostgres Driver = "postgres"
	DriverSQLite   Driver = "sqlite"
	DriverRedis    Driver = "redis"
	DriverS3       Driver = "s3"
)

// KVStore is a string key-value store holding the client-side persisted state.
// Get reports found=false for a missing key; only backend failures return an error.
type KVStore interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}
