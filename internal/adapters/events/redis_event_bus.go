package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/nehallsharma/roaster-management/internal/domain/entities"
	"github.com/nehallsharma/roaster-management/internal/domain/providers"
	redisclient "github.com/nehallsharma/roaster-management/internal/infrastructure/clients/redis"
)

const subscriberBuffer = 16

var errBusClosed = errors.New("event bus is closed")

// topic is one Redis subscription shared by every local listener of a channel
type topic struct {
	pubsub    *redis.PubSub
	listeners map[chan *entities.RosterEvent]struct{}
}

// RedisEventBus implements the EventBus interface using Redis Pub/Sub.
// Channel names are namespaced with the client's key prefix, so instances
// sharing a Redis but not a dataset do not hear each other.
type RedisEventBus struct {
	client *redisclient.Client

	mu     sync.RWMutex
	topics map[string]*topic

	ctx    context.Context
	cancel context.CancelFunc
}

// NewRedisEventBus creates a new Redis-based event bus
func NewRedisEventBus(client *redisclient.Client) providers.EventBus {
	ctx, cancel := context.WithCancel(context.Background())
	return &RedisEventBus{
		client: client,
		topics: make(map[string]*topic),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Publish sends an event to every instance subscribed to channel
func (b *RedisEventBus) Publish(ctx context.Context, channel string, event *entities.RosterEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal roster event: %w", err)
	}
	if err := b.client.Client().Publish(ctx, b.client.Key(channel), data).Err(); err != nil {
		return fmt.Errorf("failed to publish roster event: %w", err)
	}

	log.Debug().Str("channel", channel).Str("event_id", event.ID).Msg("Published roster event")
	return nil
}

// Subscribe returns a channel of events published on channel. It is closed
// when ctx ends, on Unsubscribe or on Close.
func (b *RedisEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.RosterEvent, error) {
	b.mu.Lock()
	if b.ctx.Err() != nil {
		b.mu.Unlock()
		return nil, errBusClosed
	}

	t, ok := b.topics[channel]
	if !ok {
		pubsub := b.client.Client().Subscribe(b.ctx, b.client.Key(channel))
		// Wait for the confirmation so publishes right after Subscribe are seen.
		if _, err := pubsub.Receive(ctx); err != nil {
			b.mu.Unlock()
			_ = pubsub.Close()
			return nil, fmt.Errorf("failed to subscribe to %s: %w", channel, err)
		}
		t = &topic{pubsub: pubsub, listeners: make(map[chan *entities.RosterEvent]struct{})}
		b.topics[channel] = t
		go b.forward(channel, t)
	}

	listener := make(chan *entities.RosterEvent, subscriberBuffer)
	t.listeners[listener] = struct{}{}
	count := len(t.listeners)
	b.mu.Unlock()

	log.Info().Str("channel", channel).Int("subscribers", count).Msg("Subscribed to roster channel")

	go func() {
		select {
		case <-ctx.Done():
		case <-b.ctx.Done():
		}
		b.removeListener(channel, listener)
	}()

	return listener, nil
}

// forward decodes messages of one topic and hands them to its listeners.
// A slow listener misses events rather than blocking the others.
func (b *RedisEventBus) forward(channel string, t *topic) {
	defer b.dropTopic(channel, t)

	messages := t.pubsub.Channel()
	for {
		select {
		case <-b.ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			event, err := decodeRosterEvent(msg.Payload)
			if err != nil {
				log.Warn().Err(err).Str("channel", channel).Msg("Dropping undecodable roster event")
				continue
			}

			b.mu.RLock()
			for listener := range t.listeners {
				select {
				case listener <- event:
				default:
					log.Warn().Str("channel", channel).Str("event_id", event.ID).Msg("Roster listener full, skipping event")
				}
			}
			b.mu.RUnlock()
		}
	}
}

func decodeRosterEvent(payload string) (*entities.RosterEvent, error) {
	var event entities.RosterEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return nil, err
	}
	if event.ID == "" {
		return nil, errors.New("roster event has no id")
	}
	return &event, nil
}

func (b *RedisEventBus) removeListener(channel string, listener chan *entities.RosterEvent) {
	b.mu.Lock()
	t, ok := b.topics[channel]
	if !ok {
		b.mu.Unlock()
		return
	}
	if _, ok := t.listeners[listener]; !ok {
		b.mu.Unlock()
		return
	}
	delete(t.listeners, listener)
	close(listener)
	last := len(t.listeners) == 0
	if last {
		// New subscribers get a fresh topic
		delete(b.topics, channel)
	}
	b.mu.Unlock()

	// The forward loop exits once the pubsub is closed and drops the topic.
	if last {
		_ = t.pubsub.Close()
	}
}

// dropTopic closes every listener of t and forgets it. It returns the
// pubsub close error, if any.
func (b *RedisEventBus) dropTopic(channel string, t *topic) error {
	b.mu.Lock()
	for listener := range t.listeners {
		close(listener)
	}
	t.listeners = nil
	if b.topics[channel] == t {
		delete(b.topics, channel)
	}
	b.mu.Unlock()

	if err := t.pubsub.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
		return fmt.Errorf("failed to close subscription %s: %w", channel, err)
	}
	return nil
}

// Unsubscribe closes every local listener of channel
func (b *RedisEventBus) Unsubscribe(_ context.Context, channel string) error {
	b.mu.RLock()
	t, ok := b.topics[channel]
	b.mu.RUnlock()
	if !ok {
		return nil
	}
	if err := b.dropTopic(channel, t); err != nil {
		return err
	}
	log.Info().Str("channel", channel).Msg("Unsubscribed from roster channel")
	return nil
}

// Close stops all subscriptions. Later calls to Subscribe fail.
func (b *RedisEventBus) Close() error {
	b.cancel()

	b.mu.RLock()
	topics := make(map[string]*topic, len(b.topics))
	for channel, t := range b.topics {
		topics[channel] = t
	}
	b.mu.RUnlock()

	var errs []error
	for channel, t := range topics {
		if err := b.dropTopic(channel, t); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
