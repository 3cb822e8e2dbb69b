// Package main - точка входа REST API сервиса Reef Progression Hub.
//
// API отвечает за:
// - Приём событий активности с платформы (уроки, квизы, логи времени)
// - Выдачу снимков прогрессии, истории очков и лидербордов
// - Административные коррекции очков
// - Фоновое перестроение лидербордов по расписанию
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/reefacademy/progression-hub/config"
	"github.com/reefacademy/progression-hub/internal/application/command"
	"github.com/reefacademy/progression-hub/internal/application/eventhandler"
	"github.com/reefacademy/progression-hub/internal/application/query"
	"github.com/reefacademy/progression-hub/internal/domain/progression"
	"github.com/reefacademy/progression-hub/internal/domain/shared"
	"github.com/reefacademy/progression-hub/internal/infrastructure/messaging"
	"github.com/reefacademy/progression-hub/internal/infrastructure/persistence/memory"
	"github.com/reefacademy/progression-hub/internal/infrastructure/persistence/postgres"
	"github.com/reefacademy/progression-hub/internal/infrastructure/persistence/redis"
	"github.com/reefacademy/progression-hub/internal/infrastructure/scheduler"
	"github.com/reefacademy/progression-hub/internal/infrastructure/scheduler/jobs"
	"github.com/reefacademy/progression-hub/internal/infrastructure/service"
	httpapi "github.com/reefacademy/progression-hub/internal/interface/http"
	"github.com/reefacademy/progression-hub/internal/interface/http/handlers"
	"github.com/reefacademy/progression-hub/pkg/logger"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. КОНФИГУРАЦИЯ
	// ─────────────────────────────────────────────────────────────────────────
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. ЛОГИРОВАНИЕ
	// ─────────────────────────────────────────────────────────────────────────
	log := setupSlog(cfg)
	appLog := logger.New(logger.Options{
		Output: os.Stdout,
		Level:  logger.ParseLevel(cfg.Observability.LogLevel),
	})

	log.Info("starting Reef Progression Hub API",
		"env", cfg.App.Environment,
		"version", cfg.App.Version,
		"debug", cfg.App.Debug,
	)

	healthChecker := handlers.NewCompositeHealthChecker(cfg.App.Version)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. ХРАНИЛИЩЕ ПРОГРЕССИИ (PostgreSQL или in-memory для разработки)
	// ─────────────────────────────────────────────────────────────────────────
	var repo progression.Repository

	if cfg.Database.URL != "" {
		log.Info("connecting to database...")
		dbConn, err := postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer func() {
			log.Info("closing database connection...")
			dbConn.Close()
		}()

		if err := dbConn.Ping(ctx); err != nil {
			return fmt.Errorf("database ping failed: %w", err)
		}

		log.Info("running database migrations...")
		if err := postgres.NewMigrator(dbConn).Migrate(ctx); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}

		repo = postgres.NewProgressionRepo(dbConn)
		healthChecker.AddCheck("database", handlers.NewDatabaseCheck(dbConn))
		log.Info("database connection established")
	} else {
		log.Warn("DATABASE_URL is empty, using in-memory progression store")
		repo = memory.NewProgressionRepo()
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. REDIS (лидерборд, кеш прогрессии, pub/sub)
	// ─────────────────────────────────────────────────────────────────────────
	var (
		leaderboard  progression.LeaderboardStore
		progCache    progression.Cache
		busTransport *redis.BusTransport
	)

	if !cfg.Redis.Disabled {
		log.Info("connecting to Redis...")
		redisCfg := redis.DefaultConfig()
		redisCfg.Host = cfg.Redis.Host
		redisCfg.Port = cfg.Redis.Port
		redisCfg.Password = cfg.Redis.Password
		redisCfg.DB = cfg.Redis.DB
		if cfg.Redis.PoolSize > 0 {
			redisCfg.PoolSize = cfg.Redis.PoolSize
		}

		redisCache, err := redis.NewCache(redisCfg)
		if err != nil {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		defer func() {
			log.Info("closing Redis connection...")
			_ = redisCache.Close()
		}()

		leaderboard = redis.NewLeaderboardStore(redisCache)
		busTransport = redis.NewBusTransport(redisCache)
		if cfg.Features.LeaderboardCacheEnabled() {
			progCache = redis.NewProgressionCache(redisCache)
		}
		healthChecker.AddCheck("cache", handlers.NewCacheCheck(redisCache))
		log.Info("Redis connection established")
	} else {
		log.Warn("Redis is disabled, using in-memory leaderboard store")
		leaderboard = memory.NewLeaderboardStore()
	}

	// Лидерборд живёт за circuit breaker: недоступный Redis не должен
	// ронять запись событий.
	guarded := service.NewGuardedLeaderboardStore(leaderboard, nil, appLog)
	leaderboard = guarded

	// Кеш снимков прогрессии (read-through).
	if progCache != nil {
		repo = service.NewCachedProgressionRepo(repo, progCache, cfg.Engine.CacheTTL, appLog)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. EVENT BUS + DISPATCHER
	// ─────────────────────────────────────────────────────────────────────────
	localBusCfg := messaging.DefaultInMemoryEventBusConfig()
	localBusCfg.Logger = log

	// closableEventBus объединяет шину событий с её закрытием.
	type closableEventBus interface {
		shared.EventBus
		Close() error
	}

	var eventBus closableEventBus
	if busTransport != nil && cfg.Features.PubSubFanoutEnabled() {
		redisBus, err := messaging.NewRedisEventBus(messaging.RedisEventBusConfig{
			Client:         busTransport,
			LocalBusConfig: localBusCfg,
			Logger:         log,
		})
		if err != nil {
			return fmt.Errorf("failed to create Redis event bus: %w", err)
		}
		eventBus = redisBus
		log.Info("event bus: Redis pub/sub fanout enabled")
	} else {
		eventBus = messaging.NewInMemoryEventBus(localBusCfg)
		log.Info("event bus: in-memory")
	}
	defer func() {
		log.Info("closing event bus...")
		_ = eventBus.Close()
	}()

	dispatcherCfg := messaging.DefaultDispatcherConfig(eventBus)
	dispatcherCfg.Logger = log
	dispatcher := messaging.NewDispatcher(dispatcherCfg)

	if progCache != nil {
		invalidator := eventhandler.NewOnProgressionChangedHandler(progCache, log)
		for _, et := range eventhandler.ProgressionChangedEvents {
			if err := dispatcher.Register(et, "cache_invalidation", invalidator.Handle); err != nil {
				return fmt.Errorf("failed to register cache invalidation handler: %w", err)
			}
		}
	}

	var announcer eventhandler.Announcer
	if busTransport != nil {
		announcer = busTransport
	}
	levelUp := eventhandler.NewOnLevelUpHandler(announcer, "", log)
	if err := dispatcher.Register(shared.EventLevelUp, "level_up_announcer", levelUp.Handle); err != nil {
		return fmt.Errorf("failed to register level up handler: %w", err)
	}

	if err := dispatcher.Start(); err != nil {
		return fmt.Errorf("failed to start dispatcher: %w", err)
	}
	defer func() { _ = dispatcher.Stop() }()

	// ─────────────────────────────────────────────────────────────────────────
	// 6. CQRS ОБРАБОТЧИКИ
	// ─────────────────────────────────────────────────────────────────────────
	catalog := progression.DefaultCatalog()

	recordEvent := command.NewRecordEventHandler(repo, leaderboard, catalog, eventBus)
	registerUser := command.NewRegisterUserHandler(repo, eventBus)
	adjustPoints := command.NewAdjustPointsHandler(repo, leaderboard, catalog, eventBus)

	getProgression := query.NewGetProgressionHandler(repo, leaderboard, catalog)
	getHistory := query.NewGetPointHistoryHandler(repo)
	getLeaderboard := query.NewGetLeaderboardHandler(leaderboard).WithFallback(repo)

	// ─────────────────────────────────────────────────────────────────────────
	// 7. ПЛАНИРОВЩИК (перестроение лидербордов)
	// ─────────────────────────────────────────────────────────────────────────
	if cfg.Scheduler.Enabled && cfg.Features.SchedulerRebuildEnabled() {
		schedCfg := scheduler.DefaultSchedulerConfig()
		schedCfg.Logger = log
		sched := scheduler.NewScheduler(schedCfg)

		rebuildJob := jobs.NewRebuildLeaderboardJob(repo, leaderboard, eventBus, log, jobs.RebuildLeaderboardConfig{
			BatchSize: cfg.Scheduler.RebuildBatchSize,
			Timeout:   cfg.Scheduler.JobTimeout,
		})
		var schedule scheduler.Schedule = scheduler.
			NewIntervalSchedule(cfg.Scheduler.RebuildLeaderboardInterval).
			WithJitter(30 * time.Second)
		if cfg.Scheduler.RebuildLeaderboardCron != "" {
			cronSchedule, err := scheduler.ParseCronExpression(cfg.Scheduler.RebuildLeaderboardCron)
			if err != nil {
				return fmt.Errorf("invalid SCHEDULER_LEADERBOARD_CRON: %w", err)
			}
			schedule = cronSchedule
		}

		if err := sched.Register(rebuildJob, schedule); err != nil {
			return fmt.Errorf("failed to register rebuild job: %w", err)
		}

		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
		defer func() {
			log.Info("stopping scheduler...")
			_ = sched.Stop()
		}()

		log.Info("scheduler started",
			"rebuild_interval", cfg.Scheduler.RebuildLeaderboardInterval.String(),
		)
	} else {
		log.Info("scheduler is disabled")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 8. HTTP СЕРВЕР
	// ─────────────────────────────────────────────────────────────────────────
	serverCfg := httpapi.DefaultConfig()
	serverCfg.Host = cfg.HTTP.Host
	serverCfg.Port = cfg.HTTP.Port
	serverCfg.ReadTimeout = cfg.HTTP.ReadTimeout
	serverCfg.WriteTimeout = cfg.HTTP.WriteTimeout
	serverCfg.IdleTimeout = cfg.HTTP.IdleTimeout
	serverCfg.MaxBodyBytes = cfg.HTTP.MaxBodyBytes
	serverCfg.AdminTokenHash = cfg.Admin.TokenHash
	serverCfg.Version = cfg.App.Version

	server := httpapi.NewServer(serverCfg, httpapi.Dependencies{
		RecordEventHandler:     recordEvent,
		RegisterUserHandler:    registerUser,
		AdjustPointsHandler:    adjustPoints,
		GetProgressionHandler:  getProgression,
		GetPointHistoryHandler: getHistory,
		GetLeaderboardHandler:  getLeaderboard,
		Logger:                 appLog,
		HealthChecker:          healthChecker,
	})

	errCh := server.StartAsync()
	log.Info("HTTP server started", "address", server.Address())

	// ─────────────────────────────────────────────────────────────────────────
	// 9. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown failed: %w", err)
	}

	log.Info("shutdown completed successfully")
	return nil
}

// setupSlog настраивает структурированное логирование для инфраструктуры
// (event bus, планировщик, обработчики событий).
func setupSlog(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Observability.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Observability.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	log := slog.New(handler)
	slog.SetDefault(log)

	return log
}
