package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/nehallsharma/roaster-management/internal/domain/availability"
)

// ViewBuilder is the part of ScheduleService the warmer drives
type ViewBuilder interface {
	ListView(ctx context.Context, req ListViewRequest) (*ListView, error)
	CalendarView(ctx context.Context, req CalendarViewRequest) (*CalendarView, error)
	Facets(ctx context.Context) (*availability.Facets, error)
}

// CacheWarmingService pre-builds the views most dashboards open with: the
// unfiltered list for each day of the strip, the current week's calendar and
// the facets. Building them through the service memoizes them.
type CacheWarmingService struct {
	views ViewBuilder
	days  int
	now   func() time.Time
}

// NewCacheWarmingService creates a new cache warming service. days is how many
// list views to warm starting today.
func NewCacheWarmingService(views ViewBuilder, days int) *CacheWarmingService {
	if days <= 0 {
		days = 1
	}
	return &CacheWarmingService{views: views, days: days, now: time.Now}
}

// WarmCache builds the views once. Every view is attempted; the joined
// error lists the ones that failed.
func (s *CacheWarmingService) WarmCache(ctx context.Context) error {
	start := time.Now()
	today := s.now()

	var errs []error
	warmed := 0
	for i := 0; i < s.days; i++ {
		date := availability.FormatDate(today.AddDate(0, 0, i))
		if _, err := s.views.ListView(ctx, ListViewRequest{Date: date}); err != nil {
			errs = append(errs, err)
			continue
		}
		warmed++
	}

	if _, err := s.views.CalendarView(ctx, CalendarViewRequest{Anchor: availability.FormatDate(today)}); err != nil {
		errs = append(errs, err)
	} else {
		warmed++
	}

	if _, err := s.views.Facets(ctx); err != nil {
		errs = append(errs, err)
	} else {
		warmed++
	}

	log.Info().
		Int("views", warmed).
		Int("failed", len(errs)).
		Dur("duration", time.Since(start)).
		Msg("Cache warming completed")
	return errors.Join(errs...)
}

// StartPeriodicWarming warms once, then again every interval until ctx ends
func (s *CacheWarmingService) StartPeriodicWarming(ctx context.Context, interval time.Duration) {
	if err := s.WarmCache(ctx); err != nil {
		log.Warn().Err(err).Msg("Initial cache warming failed")
	}
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("Stopping cache warming service")
				return
			case <-ticker.C:
				if err := s.WarmCache(ctx); err != nil {
					log.Warn().Err(err).Msg("Periodic cache warming failed")
				}
			}
		}
	}()
	log.Info().Dur("interval", interval).Msg("Started periodic cache warming")
}
