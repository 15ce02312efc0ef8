package providers

import (
	"context"

	"github.com/nehallsharma/roaster-management/internal/domain/entities"
)

// EventBus defines the interface for publishing and subscribing to events
type EventBus interface {
	// Publish publishes an event to all subscribers
	Publish(ctx context.Context, channel string, event *entities.RosterEvent) error

	// Subscribe subscribes to events on a channel. The returned channel is
	// closed when ctx ends or the bus is closed.
	Subscribe(ctx context.Context, channel string) (<-chan *entities.RosterEvent, error)

	// Unsubscribe unsubscribes from a channel
	Unsubscribe(ctx context.Context, channel string) error

	// Close closes the event bus and all subscriptions
	Close() error
}

// EventChannelRosterUpdates carries dataset reload announcements
const EventChannelRosterUpdates = "roster:updates"
