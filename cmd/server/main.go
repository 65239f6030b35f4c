package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/user/rag-orchestrator/internal/adapter/api"
	"github.com/user/rag-orchestrator/internal/adapter/api/handler"
	"github.com/user/rag-orchestrator/internal/adapter/api/middleware"
	"github.com/user/rag-orchestrator/internal/adapter/metrics"
	"github.com/user/rag-orchestrator/internal/adapter/repository/postgres"
	redisrepo "github.com/user/rag-orchestrator/internal/adapter/repository/redis"
	"github.com/user/rag-orchestrator/internal/adapter/runner"
	"github.com/user/rag-orchestrator/internal/adapter/signaler"
	"github.com/user/rag-orchestrator/internal/domain"
	"github.com/user/rag-orchestrator/internal/pkg/config"
	"github.com/user/rag-orchestrator/internal/pkg/logger"
	"github.com/user/rag-orchestrator/internal/usecase"

	_ "github.com/lib/pq" // postgres driver
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)

	m := metrics.New()

	// --- Admin and metrics server ---
	adminMux := http.NewServeMux()
	adminMux.Handle("/metrics", promhttp.Handler())

	adminServer := &http.Server{
		Addr:    cfg.AdminServerAddr,
		Handler: adminMux,
	}

	go func() {
		log.Info("starting admin & metrics server", "addr", adminServer.Addr)
		if err := adminServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("admin & metrics server failed", "error", err)
		}
	}()

	// --- Graceful shutdown context ---
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Identity store and Redis connections ---
	db, err := sql.Open("postgres", cfg.PostgresURL)
	if err != nil {
		log.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		log.Error("failed to ping postgres", "error", err)
		os.Exit(1)
	}

	var eventPublisher *redisrepo.JobEventRepository
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Warn("could not connect to redis, job events will not be published", "error", err)
		}
		eventPublisher = redisrepo.NewJobEventRepository(redisClient, log)
	}

	// --- Repositories and usecases ---
	tenantRepo := postgres.NewTenantRepository(db, log)

	provisioner := usecase.NewProvisionService(tenantRepo, usecase.DerivationBases{
		DataStoreURIBase:      cfg.DataStoreURIBase,
		IndexRootPath:         cfg.IndexRootPath,
		BotEndpointBase:       cfg.BotEndpointBase,
		SchedulerEndpointBase: cfg.SchedulerEndpointBase,
		ScraperEndpointBase:   cfg.ScraperEndpointBase,
	}, log, m)

	contextCache := usecase.NewTenantContextCache(tenantRepo, log, m)
	tenantService := usecase.NewTenantService(tenantRepo, provisioner, contextCache, log)

	jobRunner := runner.NewProcessRunner(cfg.ScraperBin, cfg.UpdaterBin, log)
	botSignaler := signaler.NewBotSignaler(cfg.SignalTimeout, cfg.ServiceToken, log)

	// Avoid a typed-nil publisher sneaking into the interface.
	var events domain.JobEventPublisher
	if eventPublisher != nil {
		events = eventPublisher
	}
	dispatchUseCase := usecase.NewDispatchJobUseCase(contextCache, jobRunner, botSignaler, events, log, m)

	// --- HTTP server ---
	tenantHandler := handler.NewTenantHandler(tenantService, log)
	jobHandler := handler.NewJobHandler(dispatchUseCase, log)
	router := api.NewRouter(cfg, log, tenantHandler, jobHandler)

	server := &http.Server{
		Addr:        cfg.ServerAddr,
		Handler:     middleware.Logging(log)(router),
		ReadTimeout: 10 * time.Second,
		// No write timeout: job dispatches block for the job's full
		// duration.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("starting orchestration server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("orchestration server failed", "error", err)
			stop()
		}
	}()

	// --- Wait for shutdown signal ---
	<-ctx.Done()
	log.Info("shutting down servers...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := adminServer.Shutdown(shutdownCtx); err != nil {
		log.Error("admin server shutdown failed", "error", err)
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("orchestration server shutdown failed", "error", err)
	}

	log.Info("servers shut down gracefully")
}
