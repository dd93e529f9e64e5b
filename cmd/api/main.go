package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/sla-engine/internal/api/http"
	"github.com/spec-kit/sla-engine/internal/api/http/handlers"
	"github.com/spec-kit/sla-engine/internal/auth"
	"github.com/spec-kit/sla-engine/internal/config"
	"github.com/spec-kit/sla-engine/internal/events"
	"github.com/spec-kit/sla-engine/internal/livefeed"
	"github.com/spec-kit/sla-engine/internal/observability"
	"github.com/spec-kit/sla-engine/internal/persistence"
	"github.com/spec-kit/sla-engine/internal/repository"
	"github.com/spec-kit/sla-engine/internal/repository/memory"
	"github.com/spec-kit/sla-engine/internal/service"
	"github.com/spec-kit/sla-engine/internal/sla"
	"github.com/spec-kit/sla-engine/internal/webhook"
	"github.com/spec-kit/sla-engine/internal/worker"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	var stores repository.Stores
	if pg.Enabled() {
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), persistence.DefaultMigrationsDir, logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		stores = repository.NewPostgresStores(pg.PoolHandle())
	} else {
		logger.Warn("using in-memory stores; data is lost on restart")
		stores = memory.NewStores()
	}

	healthDeps := map[string]handlers.Pinger{}
	if pg.Enabled() {
		healthDeps["postgres"] = pg
	}

	var feed livefeed.Registry = livefeed.NewMemoryRegistry()
	if cfg.LiveFeed.Backend == config.LiveFeedBackendRedis {
		redis := persistence.NewRedis(cfg.Redis, logger)
		defer redis.Close()
		healthDeps["redis"] = redis
		feed = livefeed.NewRedisRegistry(redis.Client, logger)
	}

	policy, err := loadPolicy(cfg.SLA)
	if err != nil {
		logger.Fatal("failed to load sla policy", zap.Error(err))
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(registry)

	bus := events.NewInMemoryDispatcher()
	deliverer := webhook.New(webhook.Options{
		Client:    &http.Client{},
		Timeout:   cfg.Webhook.Timeout(),
		UserAgent: cfg.Webhook.UserAgent,
		Recorder:  stores.Webhooks,
		Metrics:   metrics,
		Logger:    logger,
	})

	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo: stores.Tickets,
		Policy:     policy,
		Dispatcher: bus,
		Logger:     logger,
	})
	alertService := service.NewAlertService(service.AlertDependencies{
		TicketRepo:  stores.Tickets,
		AlertRepo:   stores.Alerts,
		Policy:      policy,
		Dispatcher:  bus,
		Metrics:     metrics,
		Logger:      logger,
		Concurrency: cfg.SLA.ScanConcurrency,
	})
	assignmentService := service.NewAssignmentService(service.AssignmentDependencies{
		TicketRepo:        stores.Tickets,
		AgentRepo:         stores.Agents,
		Dispatcher:        bus,
		Metrics:           metrics,
		Logger:            logger,
		PerformanceWeight: cfg.Assignment.PerformanceWeight,
		SpecialtyWeight:   cfg.Assignment.SpecialtyWeight,
	})
	webhookService := service.NewWebhookService(service.WebhookDependencies{
		WebhookRepo: stores.Webhooks,
		RetryCount:  cfg.Webhook.DefaultRetryCount,
	})
	agentService := service.NewAgentService(service.AgentDependencies{
		AgentRepo:  stores.Agents,
		Dispatcher: bus,
		Logger:     logger,
	})
	notificationService := service.NewNotificationService(service.NotificationDependencies{
		Dispatcher:  bus,
		WebhookRepo: stores.Webhooks,
		Broadcaster: deliverer,
		LiveFeed:    feed,
		Logger:      logger,
	})
	stopNotifications := worker.StartNotificationWorker(notificationService)

	scanWorker, err := worker.NewScanWorker(alertService, cfg.SLA.ScanSchedule, cfg.App.RequestTimeout(), logger)
	if err != nil {
		logger.Fatal("invalid scan schedule", zap.Error(err))
	}
	if err := scanWorker.Start(ctx); err != nil {
		logger.Fatal("failed to start scan worker", zap.Error(err))
	}

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, healthDeps),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		Assign:         handlers.NewAssignHandler(assignmentService),
		Monitor:        handlers.NewMonitorHandler(alertService, feed, logger),
		Webhooks:       handlers.NewWebhooksHandler(webhookService),
		Agents:         handlers.NewAgentsHandler(agentService),
		Metrics:        adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})),
		AuthMiddleware: auth.NewAuthMiddleware(tokens),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	scanWorker.Stop(shutdownCtx)
	cancel()
	stopNotifications()
}

func loadPolicy(cfg config.SLAConfig) (*sla.Policy, error) {
	if cfg.PolicyFile != "" {
		return sla.LoadPolicyFile(cfg.PolicyFile, cfg.RiskWindow())
	}
	return sla.NewPolicy(nil, cfg.RiskWindow())
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
