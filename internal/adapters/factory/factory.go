// Package factory builds the configured persistence gateway.
package factory

import (
	"context"
	"fmt"

	backend "github.com/redis/go-redis/v9"

	"github.com/incari/dashgrid/internal/adapters/file"
	"github.com/incari/dashgrid/internal/adapters/memory"
	"github.com/incari/dashgrid/internal/adapters/redis"
	"github.com/incari/dashgrid/internal/adapters/sqlite"
	"github.com/incari/dashgrid/internal/config"
	"github.com/incari/dashgrid/pkg/ports"
)

// New creates the gateway selected by the store configuration. The returned
// close function releases backend resources and is always non-nil.
func New(ctx context.Context, cfg config.StoreConfig) (ports.Gateway, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Backend {
	case "", "memory":
		return memory.New(), noop, nil

	case "file":
		var opts config.FileOptions
		if err := cfg.DecodeOptions(&opts); err != nil {
			return nil, nil, err
		}
		gw := file.New(opts.Path)
		if !opts.Watch {
			// Hide the Watch method so serve never follows external edits.
			return watchless{gw, gw}, noop, nil
		}
		return gw, noop, nil

	case "redis":
		var opts config.RedisOptions
		if err := cfg.DecodeOptions(&opts); err != nil {
			return nil, nil, err
		}
		if opts.Addr == "" {
			opts.Addr = "localhost:6379"
		}
		var gwOpts []redis.Option
		if opts.Prefix != "" {
			gwOpts = append(gwOpts, redis.WithPrefix(opts.Prefix))
		}
		// A zero timeout keeps the client's defaults.
		client := backend.NewClient(&backend.Options{
			Addr:         opts.Addr,
			Password:     opts.Password,
			DB:           opts.DB,
			DialTimeout:  opts.Timeout,
			ReadTimeout:  opts.Timeout,
			WriteTimeout: opts.Timeout,
		})
		return redis.NewFromClient(client, gwOpts...), client.Close, nil

	case "sqlite":
		var opts config.SQLiteOptions
		if err := cfg.DecodeOptions(&opts); err != nil {
			return nil, nil, err
		}
		if opts.Path == "" {
			opts.Path = "dashgrid.sqlite"
		}
		gw, err := sqlite.Open(ctx, opts.Path)
		if err != nil {
			return nil, nil, err
		}
		return gw, gw.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

// watchless wraps a gateway so it no longer satisfies ports.Watcher while
// still allowing seeding.
type watchless struct {
	ports.Gateway
	ports.Seeder
}
