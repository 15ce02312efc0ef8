package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/nehallsharma/roaster-management/internal/application/services"
	"github.com/nehallsharma/roaster-management/internal/domain/availability"
	"github.com/nehallsharma/roaster-management/internal/domain/entities"
	apperrors "github.com/nehallsharma/roaster-management/pkg/errors"
)

// ScheduleService is the application surface the schedule endpoints consume
type ScheduleService interface {
	TimeLabels(granularity int) ([]string, error)
	ListView(ctx context.Context, req services.ListViewRequest) (*services.ListView, error)
	CalendarView(ctx context.Context, req services.CalendarViewRequest) (*services.CalendarView, error)
	ProviderSlots(ctx context.Context, providerID, date string, granularity int) (*services.ProviderDayGrid, error)
	ShiftWeek(anchor string, offset int) (string, error)
	Suggest(ctx context.Context, term string, excludeIDs []string) ([]services.ProviderSummary, error)
	Facets(ctx context.Context) (*availability.Facets, error)
	Rebuild(ctx context.Context) (*services.RebuildResult, error)
}

// ScheduleHandler handles schedule and provider HTTP requests
type ScheduleHandler struct {
	service ScheduleService
	now     func() time.Time
}

// HandlerOption customizes a ScheduleHandler
type HandlerOption func(*ScheduleHandler)

// WithClock replaces the clock used when a request omits its date.
func WithClock(now func() time.Time) HandlerOption {
	return func(h *ScheduleHandler) { h.now = now }
}

// NewScheduleHandler creates a new schedule handler
func NewScheduleHandler(service ScheduleService, opts ...HandlerOption) *ScheduleHandler {
	h := &ScheduleHandler{service: service, now: time.Now}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// GetTimeLabels handles GET /api/time-labels
func (h *ScheduleHandler) GetTimeLabels(w http.ResponseWriter, r *http.Request) {
	granularity, err := intParam(r, "granularity")
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	labels, err := h.service.TimeLabels(granularity)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"labels": labels,
		"count":  len(labels),
	})
}

// GetListView handles GET /api/schedule/list
func (h *ScheduleHandler) GetListView(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	granularity, err := intParam(r, "granularity")
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	view, err := h.service.ListView(r.Context(), services.ListViewRequest{
		Date:        h.dateParam(r),
		Term:        r.URL.Query().Get("q"),
		Filter:      filter,
		Granularity: granularity,
	})
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, view)
}

// GetCalendarView handles GET /api/schedule/calendar. offset moves the anchor
// by whole weeks.
func (h *ScheduleHandler) GetCalendarView(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	offset, err := intParam(r, "offset")
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	anchor := h.dateParam(r)
	if offset != 0 {
		if anchor, err = h.service.ShiftWeek(anchor, offset); err != nil {
			respondWithAppError(w, r, err)
			return
		}
	}

	view, err := h.service.CalendarView(r.Context(), services.CalendarViewRequest{
		Anchor:     anchor,
		Term:       r.URL.Query().Get("q"),
		Filter:     filter,
		ProviderID: r.URL.Query().Get("provider_id"),
	})
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, view)
}

// GetProviderSlots handles GET /api/providers/{id}/slots/{date}
func (h *ScheduleHandler) GetProviderSlots(w http.ResponseWriter, r *http.Request) {
	providerID := r.PathValue("id")
	if providerID == "" {
		respondWithError(w, http.StatusBadRequest, "provider ID is required")
		return
	}
	granularity, err := intParam(r, "granularity")
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	grid, err := h.service.ProviderSlots(r.Context(), providerID, r.PathValue("date"), granularity)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, grid)
}

// SuggestProviders handles GET /api/providers/suggest
func (h *ScheduleHandler) SuggestProviders(w http.ResponseWriter, r *http.Request) {
	var exclude []string
	for _, id := range strings.Split(r.URL.Query().Get("exclude"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			exclude = append(exclude, id)
		}
	}

	suggestions, err := h.service.Suggest(r.Context(), r.URL.Query().Get("q"), exclude)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"suggestions": suggestions,
		"count":       len(suggestions),
	})
}

// GetFacets handles GET /api/providers/facets
func (h *ScheduleHandler) GetFacets(w http.ResponseWriter, r *http.Request) {
	facets, err := h.service.Facets(r.Context())
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, facets)
}

// Rebuild handles POST /api/schedule/rebuild
func (h *ScheduleHandler) Rebuild(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Rebuild(r.Context())
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

func (h *ScheduleHandler) dateParam(r *http.Request) string {
	if date := strings.TrimSpace(r.URL.Query().Get("date")); date != "" {
		return date
	}
	return availability.FormatDate(h.now())
}

// parseFilter reads service, type and centre. The type accepts loose
// spellings and is canonicalized here so the engine can compare exactly.
func parseFilter(r *http.Request) (entities.ProviderFilter, error) {
	q := r.URL.Query()
	providerType, ok := entities.NormalizeProviderType(q.Get("type"))
	if !ok {
		return entities.ProviderFilter{}, apperrors.NewValidationError(
			fmt.Sprintf("unknown provider type %q, expected %q or %q",
				q.Get("type"), entities.ProviderTypeInHouse, entities.ProviderTypeExternal))
	}
	return entities.ProviderFilter{
		Service: q.Get("service"),
		Type:    providerType,
		Centre:  q.Get("centre"),
	}, nil
}

func intParam(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.NewValidationError(fmt.Sprintf("%s must be an integer, got %q", name, raw))
	}
	return v, nil
}
