// Package redis connects the shared Redis client backing transient review
// handles.
package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// New parses url, connects, and verifies the connection with a ping. An
// empty url returns (nil, nil) so callers can treat Redis as optional.
func New(ctx context.Context, url string) (*redis.Client, error) {
	if url == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}
