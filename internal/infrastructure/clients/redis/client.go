package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/nehallsharma/roaster-management/pkg/config"
	"github.com/nehallsharma/roaster-management/pkg/retry"
)

// Client represents a Redis client
type Client struct {
	client *redis.Client
	prefix string
}

// NewClient creates a new Redis client and waits for the server to answer a
// ping, backing off between attempts.
func NewClient(ctx context.Context, cfg *config.RedisConfig, retryCfg retry.Config) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	retryCfg.OnRetry = func(attempt int, err error, next time.Duration) {
		log.Warn().Err(err).
			Int("attempt", attempt).
			Dur("next_delay", next).
			Str("addr", cfg.RedisAddr()).
			Msg("Redis not ready, retrying")
	}
	retryCfg.Retryable = func(err error) bool {
		return !errors.Is(err, context.Canceled)
	}
	if err := retry.Do(ctx, retryCfg, func() error {
		return classifyPingError(client.Ping(ctx).Err())
	}); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Client{client: client, prefix: cfg.KeyPrefix}, nil
}

// Replies that no amount of waiting will change: bad credentials or a DB
// index the server does not have.
var permanentReplyPrefixes = []string{
	"NOAUTH",
	"WRONGPASS",
	"ERR invalid password",
	"ERR AUTH",
	"ERR DB index is out of range",
	"ERR invalid DB index",
}

// classifyPingError marks configuration errors as permanent so startup fails
// fast instead of retrying until the timeout.
func classifyPingError(err error) error {
	if err == nil {
		return nil
	}
	var replyErr redis.Error
	if !errors.As(err, &replyErr) {
		return err
	}
	for _, prefix := range permanentReplyPrefixes {
		if strings.HasPrefix(replyErr.Error(), prefix) {
			return retry.Permanent(err)
		}
	}
	return err
}

// Wrap adopts an existing go-redis client.
func Wrap(client *redis.Client, prefix string) *Client {
	return &Client{client: client, prefix: prefix}
}

// Client returns the underlying Redis client
func (c *Client) Client() *redis.Client {
	return c.client
}

// Key namespaces a key with the configured prefix.
func (c *Client) Key(key string) string {
	return c.prefix + key
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.client.Close()
}

// Ping verifies the connection to Redis
func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
