package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/nehallsharma/roaster-management/internal/api/handlers"
	"github.com/nehallsharma/roaster-management/internal/application/services"
	"github.com/nehallsharma/roaster-management/internal/domain/availability"
	"github.com/nehallsharma/roaster-management/internal/domain/entities"
	apperrors "github.com/nehallsharma/roaster-management/pkg/errors"
)

type MockScheduleService struct {
	mock.Mock
}

func (m *MockScheduleService) TimeLabels(granularity int) ([]string, error) {
	args := m.Called(granularity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockScheduleService) ListView(ctx context.Context, req services.ListViewRequest) (*services.ListView, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.ListView), args.Error(1)
}

func (m *MockScheduleService) CalendarView(ctx context.Context, req services.CalendarViewRequest) (*services.CalendarView, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.CalendarView), args.Error(1)
}

func (m *MockScheduleService) ProviderSlots(ctx context.Context, providerID, date string, granularity int) (*services.ProviderDayGrid, error) {
	args := m.Called(ctx, providerID, date, granularity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.ProviderDayGrid), args.Error(1)
}

func (m *MockScheduleService) ShiftWeek(anchor string, offset int) (string, error) {
	args := m.Called(anchor, offset)
	return args.String(0), args.Error(1)
}

func (m *MockScheduleService) Suggest(ctx context.Context, term string, excludeIDs []string) ([]services.ProviderSummary, error) {
	args := m.Called(ctx, term, excludeIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]services.ProviderSummary), args.Error(1)
}

func (m *MockScheduleService) Facets(ctx context.Context) (*availability.Facets, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*availability.Facets), args.Error(1)
}

func (m *MockScheduleService) Rebuild(ctx context.Context) (*services.RebuildResult, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.RebuildResult), args.Error(1)
}

type errorBody struct {
	Error string `json:"error"`
	Type  string `json:"type"`
}

func fixedClock() time.Time {
	return time.Date(2024, time.February, 5, 22, 0, 0, 0, time.UTC)
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestScheduleHandler_GetListView(t *testing.T) {
	t.Run("normalizes the provider type and defaults the date", func(t *testing.T) {
		service := new(MockScheduleService)
		handler := handlers.NewScheduleHandler(service, handlers.WithClock(fixedClock))

		expected := services.ListViewRequest{
			Date:        "2024-02-05",
			Term:        "ali",
			Filter:      entities.ProviderFilter{Service: "Doctor", Type: entities.ProviderTypeInHouse, Centre: "Central"},
			Granularity: 30,
		}
		service.On("ListView", mock.Anything, expected).Return(&services.ListView{
			Date:        "2024-02-05",
			Granularity: 30,
			Labels:      []string{"00:00"},
			Providers:   []services.ProviderDayGrid{},
		}, nil)

		req := httptest.NewRequest(http.MethodGet,
			"/api/schedule/list?q=ali&service=Doctor&type=in+house&centre=Central&granularity=30", nil)
		rec := httptest.NewRecorder()
		handler.GetListView(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		var view services.ListView
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
		assert.Equal(t, 30, view.Granularity)
		service.AssertExpectations(t)
	})

	t.Run("unknown type is rejected", func(t *testing.T) {
		service := new(MockScheduleService)
		handler := handlers.NewScheduleHandler(service)

		rec := httptest.NewRecorder()
		handler.GetListView(rec, httptest.NewRequest(http.MethodGet, "/api/schedule/list?type=contractor", nil))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "VALIDATION", decodeError(t, rec).Type)
		service.AssertNotCalled(t, "ListView", mock.Anything, mock.Anything)
	})

	t.Run("non-numeric granularity is rejected", func(t *testing.T) {
		handler := handlers.NewScheduleHandler(new(MockScheduleService))

		rec := httptest.NewRecorder()
		handler.GetListView(rec, httptest.NewRequest(http.MethodGet, "/api/schedule/list?granularity=quarter", nil))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, decodeError(t, rec).Error, "granularity")
	})

	t.Run("engine errors map to 400", func(t *testing.T) {
		service := new(MockScheduleService)
		handler := handlers.NewScheduleHandler(service)
		service.On("ListView", mock.Anything, mock.Anything).Return(nil, apperrors.NewInvalidGranularityError(45))

		rec := httptest.NewRecorder()
		handler.GetListView(rec, httptest.NewRequest(http.MethodGet, "/api/schedule/list?date=2024-02-05&granularity=45", nil))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		body := decodeError(t, rec)
		assert.Equal(t, "INVALID_GRANULARITY", body.Type)
		assert.Equal(t, "granularity 45 does not evenly divide 60 minutes", body.Error)
	})
}

func TestScheduleHandler_GetCalendarView(t *testing.T) {
	t.Run("offset shifts the anchor", func(t *testing.T) {
		service := new(MockScheduleService)
		handler := handlers.NewScheduleHandler(service)
		service.On("ShiftWeek", "2024-02-07", -1).Return("2024-01-31", nil)
		service.On("CalendarView", mock.Anything, services.CalendarViewRequest{
			Anchor:     "2024-01-31",
			ProviderID: "1",
			Filter:     entities.ProviderFilter{Type: entities.ProviderTypeExternal},
		}).Return(&services.CalendarView{Anchor: "2024-01-31"}, nil)

		rec := httptest.NewRecorder()
		handler.GetCalendarView(rec, httptest.NewRequest(http.MethodGet,
			"/api/schedule/calendar?date=2024-02-07&offset=-1&provider_id=1&type=EXTERNAL", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		service.AssertExpectations(t)
	})

	t.Run("unknown provider is 404", func(t *testing.T) {
		service := new(MockScheduleService)
		handler := handlers.NewScheduleHandler(service)
		service.On("CalendarView", mock.Anything, mock.Anything).Return(nil, apperrors.NewNotFoundError("provider 9 not found"))

		rec := httptest.NewRecorder()
		handler.GetCalendarView(rec, httptest.NewRequest(http.MethodGet, "/api/schedule/calendar?date=2024-02-07&provider_id=9", nil))

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "provider 9 not found", decodeError(t, rec).Error)
	})
}

func TestScheduleHandler_GetProviderSlots(t *testing.T) {
	service := new(MockScheduleService)
	handler := handlers.NewScheduleHandler(service)
	service.On("ProviderSlots", mock.Anything, "1", "2024-02-05", 60).Return(&services.ProviderDayGrid{
		Provider: services.ProviderSummary{ID: "1", Name: "Dr. A"},
		Date:     "2024-02-05",
		Slots: []availability.TimedSlot{
			{Time: "09:00", ResolvedSlot: entities.ResolvedSlot{Category: entities.SlotCategoryOnline}},
		},
	}, nil)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/providers/{id}/slots/{date}", handler.GetProviderSlots)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/providers/1/slots/2024-02-05?granularity=60", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{
		"provider": {"id": "1", "name": "Dr. A", "service": "", "type": "", "centre": ""},
		"date": "2024-02-05",
		"slots": [{"time": "09:00", "category": "online"}]
	}`, rec.Body.String())
}

func TestScheduleHandler_SuggestProviders(t *testing.T) {
	service := new(MockScheduleService)
	handler := handlers.NewScheduleHandler(service)
	service.On("Suggest", mock.Anything, "ali", []string{"2", "3"}).Return([]services.ProviderSummary{
		{ID: "1", Name: "Alice"},
	}, nil)

	rec := httptest.NewRecorder()
	handler.SuggestProviders(rec, httptest.NewRequest(http.MethodGet, "/api/providers/suggest?q=ali&exclude=2,%203,,", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Suggestions []services.ProviderSummary `json:"suggestions"`
		Count       int                        `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Count)
	assert.Equal(t, "Alice", body.Suggestions[0].Name)
}

func TestScheduleHandler_GetTimeLabels(t *testing.T) {
	service := new(MockScheduleService)
	handler := handlers.NewScheduleHandler(service)
	service.On("TimeLabels", 0).Return([]string{"00:00", "00:15"}, nil)

	rec := httptest.NewRecorder()
	handler.GetTimeLabels(rec, httptest.NewRequest(http.MethodGet, "/api/time-labels", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"labels": ["00:00", "00:15"], "count": 2}`, rec.Body.String())
}

func TestScheduleHandler_GetFacets(t *testing.T) {
	service := new(MockScheduleService)
	handler := handlers.NewScheduleHandler(service)
	service.On("Facets", mock.Anything).Return(&availability.Facets{
		Services: []string{"Doctor"},
		Types:    []entities.ProviderType{entities.ProviderTypeInHouse},
		Centres:  []string{"Central"},
	}, nil)

	rec := httptest.NewRecorder()
	handler.GetFacets(rec, httptest.NewRequest(http.MethodGet, "/api/providers/facets", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"services": ["Doctor"], "types": ["In-house"], "centres": ["Central"]}`, rec.Body.String())
}

func TestScheduleHandler_Rebuild(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
	}{
		{"unclassified error", errors.New("disk on fire"), http.StatusInternalServerError, "internal server error"},
		{"dataset source unavailable", apperrors.NewExternalError("failed to read provider dataset", errors.New("eof")), http.StatusBadGateway, "upstream dependency failed"},
		{"invalid dataset", apperrors.NewMissingRequiredFieldError("provider 7", "name"), http.StatusBadRequest, `provider 7 is missing required field "name"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := new(MockScheduleService)
			handler := handlers.NewScheduleHandler(service)
			service.On("Rebuild", mock.Anything).Return(nil, tt.err)

			rec := httptest.NewRecorder()
			handler.Rebuild(rec, httptest.NewRequest(http.MethodPost, "/api/schedule/rebuild", nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantError, decodeError(t, rec).Error)
		})
	}

	t.Run("success", func(t *testing.T) {
		service := new(MockScheduleService)
		handler := handlers.NewScheduleHandler(service)
		service.On("Rebuild", mock.Anything).Return(&services.RebuildResult{Version: "abc", Providers: 6}, nil)

		rec := httptest.NewRecorder()
		handler.Rebuild(rec, httptest.NewRequest(http.MethodPost, "/api/schedule/rebuild", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"version": "abc", "providers": 6}`, rec.Body.String())
	})
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func TestHealthHandler(t *testing.T) {
	healthy := handlers.NewHealthHandler("1.0.0", map[string]handlers.Pinger{"redis": stubPinger{}})
	rec := httptest.NewRecorder()
	healthy.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status": "healthy", "version": "1.0.0", "checks": {"redis": "ok"}}`, rec.Body.String())

	degraded := handlers.NewHealthHandler("1.0.0", map[string]handlers.Pinger{"redis": stubPinger{err: errors.New("refused")}})
	rec = httptest.NewRecorder()
	degraded.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
