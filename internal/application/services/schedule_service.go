package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/nehallsharma/roaster-management/internal/domain/availability"
	"github.com/nehallsharma/roaster-management/internal/domain/entities"
	"github.com/nehallsharma/roaster-management/internal/domain/providers"
	"github.com/nehallsharma/roaster-management/internal/domain/repositories"
	"github.com/nehallsharma/roaster-management/internal/infrastructure/observability"
	apperrors "github.com/nehallsharma/roaster-management/pkg/errors"
)

// View names used in cache keys and metrics.
const (
	viewList     = "list"
	viewCalendar = "calendar"
	viewSlots    = "slots"
	viewFacets   = "facets"
)

// ScheduleOptions holds the grid defaults of the schedule views
type ScheduleOptions struct {
	ListGranularity     int
	CalendarGranularity int
	SuggestionLimit     int
	CacheTTLSeconds     int
}

// DefaultScheduleOptions returns the quarter-hour list, hourly calendar and
// five suggestions.
func DefaultScheduleOptions() ScheduleOptions {
	return ScheduleOptions{
		ListGranularity:     availability.ListGranularity,
		CalendarGranularity: availability.CalendarGranularity,
		SuggestionLimit:     availability.DefaultSuggestionLimit,
		CacheTTLSeconds:     300,
	}
}

// ProviderSummary is the provider header shown next to a slot grid
type ProviderSummary struct {
	ID      string                `json:"id"`
	Name    string                `json:"name"`
	Image   string                `json:"image,omitempty"`
	Service string                `json:"service"`
	Type    entities.ProviderType `json:"type"`
	Centre  string                `json:"centre"`
}

// ProviderDayGrid is one provider's classified slots for a date
type ProviderDayGrid struct {
	Provider ProviderSummary          `json:"provider"`
	Date     string                   `json:"date"`
	Slots    []availability.TimedSlot `json:"slots"`
}

// ListViewRequest selects the providers and date of the list view
type ListViewRequest struct {
	Date        string                  `json:"date"`
	Term        string                  `json:"term"`
	Filter      entities.ProviderFilter `json:"filter"`
	Granularity int                     `json:"granularity"`
}

// ListView is the per-provider slot strip for one date
type ListView struct {
	Date        string                   `json:"date"`
	Granularity int                      `json:"granularity"`
	Strip       []availability.DayHeader `json:"strip"`
	Labels      []string                 `json:"labels"`
	Providers   []ProviderDayGrid        `json:"providers"`
	Legend      []entities.LegendEntry   `json:"legend"`
}

// CalendarViewRequest selects the week and providers of the calendar view
type CalendarViewRequest struct {
	Anchor     string                  `json:"anchor"`
	Term       string                  `json:"term"`
	Filter     entities.ProviderFilter `json:"filter"`
	ProviderID string                  `json:"provider_id"`
}

// CalendarView is a Sunday-start week of hourly cells
type CalendarView struct {
	Anchor        string                         `json:"anchor"`
	Days          []availability.DayHeader       `json:"days"`
	Labels        []string                       `json:"labels"`
	Cells         availability.AvailabilityIndex `json:"cells"`
	ProviderCount int                            `json:"provider_count"`
}

// RebuildResult reports the dataset after an explicit rebuild
type RebuildResult struct {
	Version   string `json:"version"`
	Providers int    `json:"providers"`
}

// ScheduleService derives schedule views from the provider dataset
type ScheduleService struct {
	repo    repositories.ProviderRepository
	cache   providers.CacheProvider
	metrics *observability.Metrics
	opts    ScheduleOptions

	rebuildHooks []RebuildHook
}

// RebuildHook runs after a successful Rebuild. Hooks report their own
// failures; they cannot fail the rebuild.
type RebuildHook func(ctx context.Context, result *RebuildResult)

// NewScheduleService creates a new schedule service. cache and metrics may be
// nil.
func NewScheduleService(
	repo repositories.ProviderRepository,
	cache providers.CacheProvider,
	metrics *observability.Metrics,
	opts ScheduleOptions,
) *ScheduleService {
	defaults := DefaultScheduleOptions()
	if opts.ListGranularity == 0 {
		opts.ListGranularity = defaults.ListGranularity
	}
	if opts.CalendarGranularity == 0 {
		opts.CalendarGranularity = defaults.CalendarGranularity
	}
	if opts.SuggestionLimit == 0 {
		opts.SuggestionLimit = defaults.SuggestionLimit
	}
	return &ScheduleService{
		repo:    repo,
		cache:   cache,
		metrics: metrics,
		opts:    opts,
	}
}

// TimeLabels returns the labels of a day. Zero selects the list granularity.
func (s *ScheduleService) TimeLabels(granularity int) ([]string, error) {
	if granularity == 0 {
		granularity = s.opts.ListGranularity
	}
	return availability.GenerateLabels(granularity)
}

// ListView classifies every matching provider's slots on one date
func (s *ScheduleService) ListView(ctx context.Context, req ListViewRequest) (*ListView, error) {
	ctx, span := observability.StartSpan(ctx, "ScheduleService.ListView",
		attribute.String("schedule.date", req.Date),
		attribute.String("schedule.term", req.Term),
	)
	defer span.End()

	if req.Granularity == 0 {
		req.Granularity = s.opts.ListGranularity
	}
	date, err := availability.ParseDate(req.Date)
	if err != nil {
		return nil, err
	}
	labels, err := availability.GenerateLabels(req.Granularity)
	if err != nil {
		return nil, err
	}

	view, err := memoize(ctx, s, viewList, req, func() (*ListView, error) {
		all, err := s.repo.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list providers: %w", err)
		}
		matched := availability.FilterProviders(all, req.Term, req.Filter)

		grids := make([]ProviderDayGrid, 0, len(matched))
		for _, p := range matched {
			slots, err := availability.ClassifyProviderDay(p, req.Date, labels)
			if err != nil {
				return nil, fmt.Errorf("provider %q: %w", p.Name, err)
			}
			grids = append(grids, ProviderDayGrid{Provider: summarize(p), Date: req.Date, Slots: slots})
		}
		return &ListView{
			Date:        req.Date,
			Granularity: req.Granularity,
			Strip:       availability.DateStrip(date),
			Labels:      labels,
			Providers:   grids,
			Legend:      entities.SlotLegend(),
		}, nil
	})
	observability.RecordError(span, err)
	return view, err
}

// CalendarView builds the hourly index for the week containing the anchor
func (s *ScheduleService) CalendarView(ctx context.Context, req CalendarViewRequest) (*CalendarView, error) {
	ctx, span := observability.StartSpan(ctx, "ScheduleService.CalendarView",
		attribute.String("schedule.anchor", req.Anchor),
		attribute.String("schedule.provider_id", req.ProviderID),
	)
	defer span.End()

	anchor, err := availability.ParseDate(req.Anchor)
	if err != nil {
		return nil, err
	}
	if req.ProviderID != "" {
		if _, err := s.repo.GetByID(ctx, req.ProviderID); err != nil {
			return nil, err
		}
	}

	view, err := memoize(ctx, s, viewCalendar, req, func() (*CalendarView, error) {
		all, err := s.repo.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list providers: %w", err)
		}
		matched := availability.FilterProviders(all, req.Term, req.Filter)
		if req.ProviderID != "" {
			matched = onlyProvider(matched, req.ProviderID)
		}

		index, err := availability.BuildIndexAt(matched, s.opts.CalendarGranularity)
		if err != nil {
			return nil, err
		}
		labels, err := availability.GenerateLabels(s.opts.CalendarGranularity)
		if err != nil {
			return nil, err
		}

		days := availability.WeekDays(anchor)
		cells := index.Restrict(availability.FullDates(days))
		observability.RecordIndexSize(ctx, s.metrics, countCells(cells))

		return &CalendarView{
			Anchor:        req.Anchor,
			Days:          days,
			Labels:        labels,
			Cells:         cells,
			ProviderCount: len(matched),
		}, nil
	})
	observability.RecordError(span, err)
	return view, err
}

// ProviderSlots classifies a single provider's day
func (s *ScheduleService) ProviderSlots(ctx context.Context, providerID, date string, granularity int) (*ProviderDayGrid, error) {
	ctx, span := observability.StartSpan(ctx, "ScheduleService.ProviderSlots",
		attribute.String("schedule.provider_id", providerID),
		attribute.String("schedule.date", date),
	)
	defer span.End()

	if granularity == 0 {
		granularity = s.opts.ListGranularity
	}
	if _, err := availability.ParseDate(date); err != nil {
		return nil, err
	}
	labels, err := availability.GenerateLabels(granularity)
	if err != nil {
		return nil, err
	}

	key := struct {
		ProviderID  string `json:"provider_id"`
		Date        string `json:"date"`
		Granularity int    `json:"granularity"`
	}{providerID, date, granularity}

	grid, err := memoize(ctx, s, viewSlots, key, func() (*ProviderDayGrid, error) {
		p, err := s.repo.GetByID(ctx, providerID)
		if err != nil {
			return nil, err
		}
		slots, err := availability.ClassifyProviderDay(p, date, labels)
		if err != nil {
			return nil, err
		}
		return &ProviderDayGrid{Provider: summarize(p), Date: date, Slots: slots}, nil
	})
	observability.RecordError(span, err)
	return grid, err
}

// ShiftWeek moves a YYYY-MM-DD anchor by offset weeks
func (s *ScheduleService) ShiftWeek(anchor string, offset int) (string, error) {
	t, err := availability.ParseDate(anchor)
	if err != nil {
		return "", err
	}
	return availability.FormatDate(availability.ShiftWeek(t, offset)), nil
}

// DateStrip returns the seven days starting at start
func (s *ScheduleService) DateStrip(start string) ([]availability.DayHeader, error) {
	t, err := availability.ParseDate(start)
	if err != nil {
		return nil, err
	}
	return availability.DateStrip(t), nil
}

// Suggest returns providers whose name contains term, skipping selected ids
func (s *ScheduleService) Suggest(ctx context.Context, term string, excludeIDs []string) ([]ProviderSummary, error) {
	ctx, span := observability.StartSpan(ctx, "ScheduleService.Suggest", attribute.String("schedule.term", term))
	defer span.End()

	if term == "" {
		return []ProviderSummary{}, nil
	}
	all, err := s.repo.List(ctx)
	if err != nil {
		observability.RecordError(span, err)
		return nil, fmt.Errorf("failed to list providers: %w", err)
	}

	matched := availability.Suggest(all, term, excludeIDs, s.opts.SuggestionLimit)
	out := make([]ProviderSummary, len(matched))
	for i, p := range matched {
		out[i] = summarize(p)
	}
	return out, nil
}

// Facets lists the filter options present in the dataset
func (s *ScheduleService) Facets(ctx context.Context) (*availability.Facets, error) {
	ctx, span := observability.StartSpan(ctx, "ScheduleService.Facets")
	defer span.End()

	facets, err := memoize(ctx, s, viewFacets, struct{}{}, func() (*availability.Facets, error) {
		all, err := s.repo.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list providers: %w", err)
		}
		f := availability.CollectFacets(all)
		return &f, nil
	})
	observability.RecordError(span, err)
	return facets, err
}

// Rebuild reloads the dataset. Memoized views keyed by the previous version
// are no longer reachable.
func (s *ScheduleService) Rebuild(ctx context.Context) (*RebuildResult, error) {
	ctx, span := observability.StartSpan(ctx, "ScheduleService.Rebuild")
	defer span.End()
	logger := observability.LoggerFromContext(ctx)

	err := s.repo.Reload(ctx)
	observability.RecordDatasetReload(ctx, s.metrics, err)
	if err != nil {
		observability.RecordError(span, err)
		logger.Error().Err(err).Msg("Provider dataset reload failed")
		return nil, err
	}

	version, err := s.repo.Version(ctx)
	if err != nil {
		return nil, err
	}
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	logger.Info().Str("version", version).Int("providers", len(all)).Msg("Schedule rebuilt")
	result := &RebuildResult{Version: version, Providers: len(all)}
	for _, hook := range s.rebuildHooks {
		hook(ctx, result)
	}
	return result, nil
}

// OnRebuild registers a hook. Not safe to call once requests are served.
func (s *ScheduleService) OnRebuild(hook RebuildHook) {
	s.rebuildHooks = append(s.rebuildHooks, hook)
}

// memoize serves a view from the cache when one is configured, keyed by the
// dataset version and the request. Cache failures degrade to a rebuild.
func memoize[T any](ctx context.Context, s *ScheduleService, view string, request any, build func() (T, error)) (T, error) {
	var zero T
	start := time.Now()
	defer func() { observability.RecordViewBuild(ctx, s.metrics, view, time.Since(start)) }()

	if s.cache == nil {
		return build()
	}
	logger := observability.LoggerFromContext(ctx)

	key, err := s.cacheKey(ctx, view, request)
	if err != nil {
		return zero, err
	}

	cached, err := s.cache.Get(ctx, key)
	switch {
	case err == nil:
		var out T
		jsonErr := json.Unmarshal(cached, &out)
		if jsonErr == nil {
			observability.RecordCacheHit(ctx, s.metrics, view)
			return out, nil
		}
		logger.Warn().Err(jsonErr).Str("key", key).Msg("Discarding undecodable cached view")
	case !errors.Is(err, providers.ErrCacheMiss):
		logger.Warn().Err(err).Str("key", key).Msg("Cache read failed")
	}
	observability.RecordCacheMiss(ctx, s.metrics, view)

	out, err := build()
	if err != nil {
		return zero, err
	}
	if data, err := json.Marshal(out); err == nil {
		if err := s.cache.Set(ctx, key, data, s.opts.CacheTTLSeconds); err != nil {
			logger.Warn().Err(err).Str("key", key).Msg("Cache write failed")
		}
	}
	return out, nil
}

// cacheKey hashes the dataset version together with the request, so a new
// dataset never reads views derived from the old one.
func (s *ScheduleService) cacheKey(ctx context.Context, view string, request any) (string, error) {
	version, err := s.repo.Version(ctx)
	if err != nil {
		return "", apperrors.NewInternalError("failed to read dataset version", err)
	}
	payload, err := json.Marshal(struct {
		Version string `json:"version"`
		View    string `json:"view"`
		Request any    `json:"request"`
	}{version, view, request})
	if err != nil {
		return "", apperrors.NewInternalError("failed to encode cache key", err)
	}
	sum := sha256.Sum256(payload)
	return fmt.Sprintf("schedule:%s:%s", view, hex.EncodeToString(sum[:])), nil
}

func summarize(p *entities.Provider) ProviderSummary {
	return ProviderSummary{
		ID:      p.ID,
		Name:    p.Name,
		Image:   p.Image,
		Service: p.ProviderUsertype,
		Type:    p.Type(),
		Centre:  p.ClinicDetails.Name,
	}
}

func onlyProvider(providers []*entities.Provider, id string) []*entities.Provider {
	for _, p := range providers {
		if p.ID == id {
			return []*entities.Provider{p}
		}
	}
	return []*entities.Provider{}
}

func countCells(index availability.AvailabilityIndex) int {
	n := 0
	for _, row := range index {
		n += len(row)
	}
	return n
}
