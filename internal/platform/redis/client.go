package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Client wraps go-redis so callers get a health check without importing the
// driver package.
type Client struct {
	*redis.Client
}

// Option overrides connection settings parsed from the URL.
type Option func(*redis.Options)

// WithPoolSize caps the connection pool. Zero keeps the driver default.
func WithPoolSize(n int) Option {
	return func(o *redis.Options) {
		if n > 0 {
			o.PoolSize = n
		}
	}
}

// New creates a Redis client from a URL and pings it. Returns nil if the URL
// is empty (Redis not configured); callers fall back to in-memory stores.
func New(ctx context.Context, url string, opts ...Option) (*Client, error) {
	if url == "" {
		return nil, nil
	}

	options, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	for _, opt := range opts {
		opt(options)
	}

	client := redis.NewClient(options)

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{Client: client}, nil
}

// Health reports whether the connection still answers.
func (c *Client) Health(ctx context.Context) error {
	return c.Ping(ctx).Err()
}

// Close closes the underlying connection pool.
func (c *Client) Close() error {
	return c.Client.Close()
}
