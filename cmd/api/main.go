package main

import (
	"context"
	"log"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	httptransport "github.com/supportdesk/helpdesk-service/internal/api/http"
	"github.com/supportdesk/helpdesk-service/internal/api/http/handlers"
	"github.com/supportdesk/helpdesk-service/internal/auth"
	"github.com/supportdesk/helpdesk-service/internal/cache"
	"github.com/supportdesk/helpdesk-service/internal/config"
	"github.com/supportdesk/helpdesk-service/internal/events"
	"github.com/supportdesk/helpdesk-service/internal/observability"
	"github.com/supportdesk/helpdesk-service/internal/persistence"
	"github.com/supportdesk/helpdesk-service/internal/policy"
	"github.com/supportdesk/helpdesk-service/internal/repository"
	"github.com/supportdesk/helpdesk-service/internal/service"
	"github.com/supportdesk/helpdesk-service/internal/worker"
)

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

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)
	commentRepo := repository.NewCommentRepository(pool)
	logRepo := repository.NewTicketLogRepository(pool)

	ticketCache := cache.NewRedisCache(redis.Client, logger)
	cacheService := service.NewTicketCacheService(service.CacheDependencies{
		TicketRepo:    ticketRepo,
		CommentRepo:   commentRepo,
		LogRepo:       logRepo,
		Cache:         ticketCache,
		TicketTTL:     cfg.Cache.TicketTTL(),
		StatisticsTTL: cfg.Cache.StatisticsTTL(),
	})

	dispatcher := events.NewQueueDispatcher(cfg.Notification.QueueSize, cfg.Notification.Workers, logger)
	defer dispatcher.Close()

	ticketPolicy := policy.NewTicketPolicy()
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:  ticketRepo,
		UserRepo:    userRepo,
		CommentRepo: commentRepo,
		LogRepo:     logRepo,
		Policy:      ticketPolicy,
		CacheSvc:    cacheService,
		Dispatcher:  dispatcher,
	})
	assignmentService := service.NewAssignmentService(service.AssignmentDependencies{
		TicketRepo: ticketRepo,
		UserRepo:   userRepo,
		LogRepo:    logRepo,
		CacheSvc:   cacheService,
		Dispatcher: dispatcher,
	})
	assignmentService.RegisterHandlers(dispatcher)

	notificationService := service.NewNotificationService(logger, cfg.Notification)
	notificationService.RegisterHandlers(dispatcher)

	authService := service.NewAuthService(userRepo, cfg.Auth)
	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo)

	staleMonitor := worker.NewStaleMonitor(worker.StaleMonitorDependencies{
		TicketRepo:  ticketRepo,
		Assignments: assignmentService,
		Dispatcher:  dispatcher,
		Metrics:     metrics,
		Logger:      logger,
		Interval:    cfg.Monitor.SweepInterval(),
		StaleAfter:  cfg.Monitor.StaleAfter(),
	})
	go staleMonitor.Run(ctx)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Users:          handlers.NewUsersHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService, cacheService),
		Dashboard:      handlers.NewDashboardHandler(cacheService),
		AuthMiddleware: authMiddleware,
	})

	metricsServer := &nethttp.Server{
		Addr:    cfg.App.MetricsAddr(),
		Handler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != nethttp.ErrServerClosed {
			logger.Error("metrics listen", zap.Error(err))
		}
	}()

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = metricsServer.Shutdown(shutdownCtx)
	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
