// Package redis opens Redis clients.
package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/sethvargo/go-retry"
)

const (
	pingRetries = 3
	pingBackoff = 500 * time.Millisecond
)

type Option func(*goredis.Options)

func WithPassword(password string) Option {
	return func(o *goredis.Options) {
		o.Password = password
	}
}

func WithDB(db int) Option {
	return func(o *goredis.Options) {
		o.DB = db
	}
}

func WithPoolSize(n int) Option {
	return func(o *goredis.Options) {
		o.PoolSize = n
	}
}

// New creates a client for the server at addr and waits until it answers a PING.
func New(ctx context.Context, addr string, opts ...Option) (*goredis.Client, error) {
	const op = "redis.New"

	o := &goredis.Options{
		Addr:         addr,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}

	for _, opt := range opts {
		opt(o)
	}

	client := goredis.NewClient(o)

	b := retry.WithMaxRetries(pingRetries, retry.NewExponential(pingBackoff))

	err := retry.Do(ctx, b, func(ctx context.Context) error {
		if err := client.Ping(ctx).Err(); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%s: failed to connect to redis: %w", op, err)
	}

	return client, nil
}
