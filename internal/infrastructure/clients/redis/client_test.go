package redis

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nehallsharma/roaster-management/pkg/config"
	"github.com/nehallsharma/roaster-management/pkg/retry"
)

func quickRetry() retry.Config {
	return retry.Config{
		MaxAttempts:   2,
		InitialDelay:  time.Millisecond,
		MaxDelay:      time.Millisecond,
		BackoffFactor: 1,
	}
}

func TestNewClient_Connects(t *testing.T) {
	mr := miniredis.RunT(t)
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)

	client, err := NewClient(context.Background(), &config.RedisConfig{
		Host:      mr.Host(),
		Port:      port,
		KeyPrefix: "roster:",
	}, quickRetry())
	require.NoError(t, err)
	defer client.Close()

	assert.NoError(t, client.Ping(context.Background()))
	assert.Equal(t, "roster:view:1", client.Key("view:1"))
}

func TestNewClient_GivesUpWhenUnreachable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)
	mr.Close()

	_, err = NewClient(context.Background(), &config.RedisConfig{Host: mr.Host(), Port: port}, quickRetry())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to Redis")
}

func TestNewClient_StopsOnAuthFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	mr.RequireAuth("secret")
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)

	cfg := retry.Config{
		MaxAttempts:   5,
		InitialDelay:  time.Second,
		MaxDelay:      time.Second,
		BackoffFactor: 1,
	}
	for _, password := range []string{"", "wrong"} {
		start := time.Now()
		_, err := NewClient(context.Background(), &config.RedisConfig{Host: mr.Host(), Port: port, Password: password}, cfg)
		require.Error(t, err, "password %q", password)
		assert.ErrorIs(t, err, retry.ErrNotRetryable)
		// One attempt, no backoff sleep
		assert.Less(t, time.Since(start), 500*time.Millisecond)
	}
}

func TestNewClient_AuthenticatesWithPassword(t *testing.T) {
	mr := miniredis.RunT(t)
	mr.RequireAuth("secret")
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)

	client, err := NewClient(context.Background(), &config.RedisConfig{Host: mr.Host(), Port: port, Password: "secret"}, quickRetry())
	require.NoError(t, err)
	defer client.Close()
	assert.NoError(t, client.Ping(context.Background()))
}

func TestClassifyPingError(t *testing.T) {
	assert.NoError(t, classifyPingError(nil))

	dial := errors.New("dial tcp 127.0.0.1:6379: connect: connection refused")
	assert.Equal(t, dial, classifyPingError(dial))

	loading := redisReply("LOADING Redis is loading the dataset in memory")
	assert.NotErrorIs(t, classifyPingError(loading), retry.ErrNotRetryable)

	for _, reply := range []string{"NOAUTH Authentication required.", "WRONGPASS invalid username-password pair", "ERR DB index is out of range"} {
		err := classifyPingError(redisReply(reply))
		assert.ErrorIs(t, err, retry.ErrNotRetryable, reply)
	}
}

func TestNewClient_CanceledContextIsNotRetried(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewClient(ctx, &config.RedisConfig{Host: "127.0.0.1", Port: 1}, quickRetry())
	assert.ErrorIs(t, err, context.Canceled)
}

// redisReply is an error reply as go-redis reports it
type redisReply string

func (e redisReply) Error() string { return string(e) }
func (redisReply) RedisError()     {}
