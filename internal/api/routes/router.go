package routes

import (
	"net/http"

	"github.com/nehallsharma/roaster-management/internal/api/handlers"
	"github.com/nehallsharma/roaster-management/internal/api/middleware"
	"github.com/nehallsharma/roaster-management/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	scheduleHandler *handlers.ScheduleHandler
	healthHandler   *handlers.HealthHandler

	allowedOrigins []string
	metrics        *observability.Metrics
}

// NewRouter creates a new router
func NewRouter(
	scheduleHandler *handlers.ScheduleHandler,
	healthHandler *handlers.HealthHandler,
	allowedOrigins []string,
	metrics *observability.Metrics,
) *Router {
	return &Router{
		mux:             http.NewServeMux(),
		scheduleHandler: scheduleHandler,
		healthHandler:   healthHandler,
		allowedOrigins:  allowedOrigins,
		metrics:         metrics,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	r.mux.HandleFunc("GET /health", r.healthHandler.Health)

	// Time grid
	r.mux.HandleFunc("GET /api/time-labels", r.scheduleHandler.GetTimeLabels)

	// Schedule views
	r.mux.HandleFunc("GET /api/schedule/list", r.scheduleHandler.GetListView)
	r.mux.HandleFunc("GET /api/schedule/calendar", r.scheduleHandler.GetCalendarView)
	r.mux.HandleFunc("POST /api/schedule/rebuild", r.scheduleHandler.Rebuild)

	// Provider endpoints
	r.mux.HandleFunc("GET /api/providers/suggest", r.scheduleHandler.SuggestProviders)
	r.mux.HandleFunc("GET /api/providers/facets", r.scheduleHandler.GetFacets)
	r.mux.HandleFunc("GET /api/providers/{id}/slots/{date}", r.scheduleHandler.GetProviderSlots)

	// Apply middleware in reverse order (last middleware wraps first)
	var handler http.Handler = r.mux
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)

	// Apply HTTP performance optimizations (compression, ETag, cache headers)
	handler = middleware.ResponseOptimization(handler)

	// Request id precedes logging and tracing so both can see it
	handler = middleware.RequestID(handler)

	// CORS wraps everything so preflights never reach the handlers
	handler = middleware.CORSMiddleware(r.allowedOrigins)(handler)

	return handler
}
