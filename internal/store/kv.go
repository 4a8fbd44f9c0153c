// Package store provides the keyed document stores the card list is persisted in.
// Every backend holds opaque byte values under string keys; callers read and
// rewrite whole documents.
package store

import (
	"context"
	"fmt"
)

// KV is a keyed persistent store.
type KV interface {
	// Get returns the value under key and whether it was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	// Delete removes key; deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
	Healthy(ctx context.Context) bool
	Close() error
}

// Backend names accepted by Open.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

// Options selects and configures a backend.
type Options struct {
	Backend     string
	Dir         string
	RedisAddr   string
	DatabaseURL string
	SQLitePath  string
}

// Open builds the backend named in opts.
func Open(ctx context.Context, opts Options) (KV, error) {
	switch opts.Backend {
	case BackendMemory, "":
		return NewMemory(), nil
	case BackendFile:
		return NewFile(opts.Dir)
	case BackendRedis:
		r := NewRedis(opts.RedisAddr)
		if !r.Healthy(ctx) {
			return r, fmt.Errorf("redis at %s not reachable", opts.RedisAddr)
		}
		return r, nil
	case BackendPostgres:
		return NewPostgres(ctx, opts.DatabaseURL)
	case BackendSQLite:
		return NewSQLite(ctx, opts.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown store backend %q", opts.Backend)
	}
}
