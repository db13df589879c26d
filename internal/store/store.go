// Package store provides the key-value backends drafts and session mirrors
// are persisted in. Every backend satisfies core.Store.
package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/JonMunkholm/intake/internal/core"
)

// Backend is a core.Store that can be health-checked and closed.
type Backend interface {
	core.Store
	Ping(ctx context.Context) error
	Close() error
	Name() string
}

// Kind selects a backend.
type Kind string

const (
	KindMemory   Kind = "memory"
	KindRedis    Kind = "redis"
	KindPostgres Kind = "postgres"
)

// Options configures Open. Only the fields of the selected kind are read.
type Options struct {
	Kind Kind

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	KeyPrefix     string
	TTL           time.Duration

	DatabaseURL     string
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Open connects to the selected backend and verifies it is reachable.
func Open(ctx context.Context, opts Options) (Backend, error) {
	switch Kind(strings.ToLower(string(opts.Kind))) {
	case KindMemory, "":
		return NewMemory(), nil
	case KindRedis:
		return NewRedis(ctx, RedisOptions{
			Addr:     opts.RedisAddr,
			Password: opts.RedisPassword,
			DB:       opts.RedisDB,
			Prefix:   opts.KeyPrefix,
			TTL:      opts.TTL,
		})
	case KindPostgres:
		return NewPostgres(ctx, PostgresOptions{
			URL:             opts.DatabaseURL,
			MaxConns:        opts.MaxConns,
			MinConns:        opts.MinConns,
			MaxConnLifetime: opts.MaxConnLifetime,
			MaxConnIdleTime: opts.MaxConnIdleTime,
		})
	default:
		return nil, fmt.Errorf("store: unknown backend %q", opts.Kind)
	}
}
