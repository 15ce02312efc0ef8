package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/nehallsharma/roaster-management/internal/adapters/cache"
	"github.com/nehallsharma/roaster-management/internal/adapters/dataset"
	"github.com/nehallsharma/roaster-management/internal/adapters/events"
	"github.com/nehallsharma/roaster-management/internal/api/handlers"
	"github.com/nehallsharma/roaster-management/internal/api/routes"
	"github.com/nehallsharma/roaster-management/internal/application/services"
	"github.com/nehallsharma/roaster-management/internal/infrastructure/clients/redis"
	"github.com/nehallsharma/roaster-management/internal/infrastructure/observability"
	"github.com/nehallsharma/roaster-management/pkg/config"
	"github.com/nehallsharma/roaster-management/pkg/retry"
)

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		log.Fatal().Err(err).Msg("Failed to read .env")
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Log.Env, cfg.Log.Level)

	// Set up context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry if enabled
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to set up OpenTelemetry")
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					log.Error().Err(err).Msg("Error shutting down OpenTelemetry")
				}
			}()
			// Re-initialize so log lines are exported alongside traces
			observability.InitLogger(cfg.OTEL.ServiceName, cfg.Log.Env, cfg.Log.Level,
				observability.NewLogBridge(cfg.OTEL.ServiceName))
			log.Info().Str("endpoint", cfg.OTEL.Endpoint).Msg("OpenTelemetry initialized successfully")
		}
	}

	// Initialize metrics
	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize metrics")
	}

	// Provider dataset
	repo, err := dataset.NewJSONAdapter(ctx, cfg.Dataset.Path)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.Dataset.Path).Msg("Failed to load provider dataset")
	}

	scheduleService := services.NewScheduleService(repo, nil, metrics, scheduleOptions(cfg))
	healthDeps := map[string]handlers.Pinger{}
	var warmer *services.CacheWarmingService

	// Redis backs the optional view cache and the optional reload fan-out.
	// Without it the service derives every view directly.
	if cfg.Cache.Enabled || cfg.Sync.Enabled {
		retryCfg := retry.DefaultConfig()
		retryCfg.MaxAttempts = 5
		retryCfg.MaxTotalTimeout = 15 * time.Second

		redisClient, err := redis.NewClient(ctx, &cfg.Redis, retryCfg)
		if err != nil {
			log.Warn().Err(err).Msg("Redis unavailable, running without cache and reload fan-out")
		} else {
			defer redisClient.Close()
			healthDeps["redis"] = redisClient
			log.Info().Str("addr", cfg.Redis.RedisAddr()).Msg("Redis client initialized successfully")

			if cfg.Cache.Enabled {
				scheduleService = services.NewScheduleService(repo, cache.NewRedisAdapter(redisClient), metrics, scheduleOptions(cfg))

				warmer = services.NewCacheWarmingService(scheduleService, cfg.Cache.WarmDays)
				warmer.StartPeriodicWarming(ctx, cfg.Cache.WarmInterval)
				scheduleService.OnRebuild(func(ctx context.Context, _ *services.RebuildResult) {
					if err := warmer.WarmCache(ctx); err != nil {
						log.Warn().Err(err).Msg("Cache warming after rebuild failed")
					}
				})
			}

			if cfg.Sync.Enabled {
				eventBus := events.NewRedisEventBus(redisClient)
				defer eventBus.Close()

				syncService := services.NewRosterSyncService(repo, eventBus, metrics, cfg.Sync.InstanceID)
				if warmer != nil {
					syncService.OnReload(func(ctx context.Context) {
						if err := warmer.WarmCache(ctx); err != nil {
							log.Warn().Err(err).Msg("Cache warming after peer reload failed")
						}
					})
				}
				if err := syncService.Start(); err != nil {
					log.Warn().Err(err).Msg("Roster sync disabled")
				} else {
					defer syncService.Stop()
					scheduleService.OnRebuild(func(ctx context.Context, result *services.RebuildResult) {
						if err := syncService.Announce(ctx, result); err != nil {
							log.Warn().Err(err).Msg("Failed to announce rebuild to peers")
						}
					})
				}
			}
		}
	}

	// Set up router
	router := routes.NewRouter(
		handlers.NewScheduleHandler(scheduleService),
		handlers.NewHealthHandler(cfg.OTEL.ServiceVersion, healthDeps),
		cfg.Server.AllowedOrigins,
		metrics,
	)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router.SetupRoutes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("addr", server.Addr).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// SIGHUP reloads the dataset; SIGINT and SIGTERM stop the server
	reload := make(chan os.Signal, 1)
	signal.Notify(reload, syscall.SIGHUP)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	for running := true; running; {
		select {
		case <-reload:
			result, err := scheduleService.Rebuild(ctx)
			if err != nil {
				log.Error().Err(err).Msg("Dataset reload failed, keeping previous snapshot")
				continue
			}
			log.Info().Str("version", result.Version).Int("providers", result.Providers).Msg("Dataset reloaded")
		case <-quit:
			running = false
		}
	}

	log.Info().Msg("Server shutting down...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during server shutdown")
	}

	log.Info().Msg("Server stopped")
}

func scheduleOptions(cfg *config.Config) services.ScheduleOptions {
	return services.ScheduleOptions{
		ListGranularity:     cfg.Schedule.ListGranularity,
		CalendarGranularity: cfg.Schedule.CalendarGranularity,
		SuggestionLimit:     cfg.Schedule.SuggestionLimit,
		CacheTTLSeconds:     cfg.Cache.TTLSeconds,
	}
}
