package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/nehallsharma/roaster-management/internal/domain/entities"
	"github.com/nehallsharma/roaster-management/internal/domain/providers"
	"github.com/nehallsharma/roaster-management/internal/domain/repositories"
	"github.com/nehallsharma/roaster-management/internal/infrastructure/observability"
)

// RosterSyncService keeps replicas on the same dataset version. Local rebuilds
// are announced on the event bus; announcements from other instances trigger
// a reload when the version differs from ours.
type RosterSyncService struct {
	repo     repositories.ProviderRepository
	eventBus providers.EventBus
	metrics  *observability.Metrics
	origin   string

	// onReload runs after a reload caused by a peer, e.g. cache warming
	onReload func(ctx context.Context)

	ctx    context.Context
	cancel context.CancelFunc
	done   sync.WaitGroup
}

// NewRosterSyncService creates a sync service. origin identifies this
// instance in published events.
func NewRosterSyncService(
	repo repositories.ProviderRepository,
	eventBus providers.EventBus,
	metrics *observability.Metrics,
	origin string,
) *RosterSyncService {
	ctx, cancel := context.WithCancel(context.Background())
	return &RosterSyncService{
		repo:     repo,
		eventBus: eventBus,
		metrics:  metrics,
		origin:   origin,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// OnReload registers a callback for reloads triggered by peers
func (s *RosterSyncService) OnReload(fn func(ctx context.Context)) {
	s.onReload = fn
}

// Announce publishes a rebuild to peer instances
func (s *RosterSyncService) Announce(ctx context.Context, result *RebuildResult) error {
	event := entities.NewDatasetReloadedEvent(s.origin, result.Version, result.Providers)
	if err := s.eventBus.Publish(ctx, providers.EventChannelRosterUpdates, event); err != nil {
		return fmt.Errorf("failed to announce dataset version: %w", err)
	}
	return nil
}

// Start begins listening for roster events
func (s *RosterSyncService) Start() error {
	eventChan, err := s.eventBus.Subscribe(s.ctx, providers.EventChannelRosterUpdates)
	if err != nil {
		return fmt.Errorf("failed to subscribe to roster updates: %w", err)
	}

	s.done.Add(1)
	go s.processEvents(eventChan)
	log.Info().Str("origin", s.origin).Msg("Roster sync service started")
	return nil
}

// Stop stops the sync service and waits for the event loop to exit
func (s *RosterSyncService) Stop() {
	s.cancel()
	s.done.Wait()
	log.Info().Msg("Roster sync service stopped")
}

func (s *RosterSyncService) processEvents(eventChan <-chan *entities.RosterEvent) {
	defer s.done.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		case event, ok := <-eventChan:
			if !ok {
				return
			}
			if event == nil {
				continue
			}
			s.handleEvent(event)
		}
	}
}

// handleEvent reloads the dataset when a peer announces a version we do not
// have. Our own announcements and duplicates are ignored.
func (s *RosterSyncService) handleEvent(event *entities.RosterEvent) {
	if event.EventType != entities.RosterEventTypeDatasetReloaded || event.Origin == s.origin {
		return
	}

	ctx, cancel := context.WithTimeout(s.ctx, 30*time.Second)
	defer cancel()

	logger := log.With().Str("event_id", event.ID).Str("origin", event.Origin).Logger()

	current, err := s.repo.Version(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to read dataset version")
		return
	}
	if current == event.Version {
		logger.Debug().Msg("Dataset already at announced version")
		return
	}

	err = s.repo.Reload(ctx)
	observability.RecordDatasetReload(ctx, s.metrics, err)
	if err != nil {
		logger.Error().Err(err).Msg("Reload requested by peer failed, keeping previous snapshot")
		return
	}

	version, _ := s.repo.Version(ctx)
	logger.Info().Str("version", version).Msg("Dataset reloaded on peer announcement")
	if version != event.Version {
		// The source changed again in between, or the peer reads a different file.
		logger.Warn().Str("announced", event.Version).Msg("Dataset version differs from peer after reload")
	}

	if s.onReload != nil {
		s.onReload(ctx)
	}
}
