package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/contact-center/internal/api/http"
	"github.com/spec-kit/contact-center/internal/api/http/handlers"
	"github.com/spec-kit/contact-center/internal/auth"
	"github.com/spec-kit/contact-center/internal/balancer"
	"github.com/spec-kit/contact-center/internal/config"
	"github.com/spec-kit/contact-center/internal/events"
	"github.com/spec-kit/contact-center/internal/observability"
	"github.com/spec-kit/contact-center/internal/persistence"
	"github.com/spec-kit/contact-center/internal/queue"
	"github.com/spec-kit/contact-center/internal/realtime"
	"github.com/spec-kit/contact-center/internal/repository"
	"github.com/spec-kit/contact-center/internal/routing"
	"github.com/spec-kit/contact-center/internal/service"
	"github.com/spec-kit/contact-center/internal/storage"
	"github.com/spec-kit/contact-center/internal/worker"
	"github.com/spec-kit/contact-center/migrations"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.App, cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	if cfg.Mail.OutboundAddress == "" {
		logger.Warn("MAIL_OUTBOUND_ADDRESS not set, advisor-sent mail will not be recognised")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	if pg.Pool == nil {
		logger.Fatal("POSTGRES_DSN is required")
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		applied, err := persistence.RunMigrations(ctx, pg.Pool, migrations.FS, logger)
		if err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
		logger.Info("migrations complete", zap.Int("applied", applied))
	}

	rdb, err := persistence.NewRedis(ctx, cfg.Redis, logger)
	if err != nil {
		logger.Fatal("failed to connect redis", zap.Error(err))
	}
	defer rdb.Close()

	metrics := observability.NewMetrics()

	ticketRepo := repository.NewTicketRepository(pg.Pool)
	messageRepo := repository.NewMessageRepository(pg.Pool)
	attachmentRepo := repository.NewAttachmentRepository(pg.Pool)
	historyRepo := repository.NewTicketHistoryRepository(pg.Pool)
	advisorRepo := repository.NewAdvisorRepository(pg.Pool)

	var rotation balancer.Rotation = balancer.NewLocalRotation()
	if cfg.Routing.RoundRobinBackend == "redis" {
		rotation = balancer.NewRedisRotation(rdb.Client)
	}

	dispatcher := events.NewInMemoryDispatcher()
	notifier := realtime.NewRedisNotifier(rdb.Client, cfg.Notification.Channel, logger)
	service.NewNotificationService(dispatcher, notifier, logger).RegisterHandlers()

	store, err := storage.NewFileStore(cfg.Attachments.Dir, cfg.Attachments.BaseURL)
	if err != nil {
		logger.Fatal("failed to init attachment store", zap.Error(err))
	}

	assignmentService := service.NewAssignmentService(service.AssignmentDependencies{
		TicketRepo:  ticketRepo,
		AdvisorRepo: advisorRepo,
		HistoryRepo: historyRepo,
		Rotation:    rotation,
		Dispatcher:  dispatcher,
		Metrics:     metrics,
		Logger:      logger.Named("assignment"),
		Tolerance:   cfg.Routing.RebalanceTolerance,
	})
	attentionService := service.NewAttentionService(service.AttentionDependencies{
		TicketRepo:     ticketRepo,
		MessageRepo:    messageRepo,
		AttachmentRepo: attachmentRepo,
		HistoryRepo:    historyRepo,
		Store:          store,
		Fetcher:        storage.NewRedisBlobFetcher(rdb.Client, cfg.Attachments.BlobPrefix),
		Selector:       assignmentService,
		Dispatcher:     dispatcher,
		Logger:         logger.Named("attention"),
	})

	lookup := service.NewRepositoryLookup(ticketRepo, messageRepo)
	classifier := routing.NewClassifier(lookup, logger.Named("classifier"), routing.DefaultCases(cfg.Mail.OutboundAddress)...)
	inboundService := service.NewInboundService(service.InboundDependencies{
		Lookup:     lookup,
		Classifier: classifier,
		Attention:  attentionService,
		Metrics:    metrics,
		Logger:     logger.Named("inbound"),
	})

	consumer := queue.NewConsumer(rdb.Client, cfg.Queue.Name, cfg.Queue.ConsumerID, cfg.Queue.BlockTimeout())
	pool := worker.NewPool(consumer, inboundService, worker.PoolOptions{
		Workers:     cfg.Queue.Workers,
		MaxAttempts: cfg.Queue.MaxAttempts,
		Metrics:     metrics,
		Logger:      logger.Named("worker"),
	})
	poolDone := make(chan struct{})
	go func() {
		defer close(poolDone)
		if err := pool.Run(ctx); err != nil {
			logger.Error("worker pool stopped", zap.Error(err))
		}
	}()
	logger.Info("consuming inbound events",
		zap.String("queue", cfg.Queue.Name),
		zap.Int("workers", cfg.Queue.Workers),
		zap.Strings("cases", classifier.Cases()),
	)

	scheduler, err := worker.NewRebalanceScheduler(cfg.Routing.RebalanceCron, assignmentService, logger.Named("scheduler"))
	if err != nil {
		logger.Fatal("invalid REBALANCE_CRON", zap.Error(err))
	}
	if scheduler != nil {
		scheduler.Start()
	}

	app := fiber.New(fiber.Config{AppName: cfg.App.Name, DisableStartupMessage: true})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, rdb),
		Ops:            handlers.NewOpsHandler(service.NewThreadService(ticketRepo, messageRepo, attachmentRepo), assignmentService, logger),
		AuthMiddleware: auth.NewAuthMiddleware(auth.NewTokenManager(cfg.Auth.JWTSecret, 0)),
		Registry:       metrics.Registry(),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	_ = app.ShutdownWithContext(shutdownCtx)
	if scheduler != nil {
		scheduler.Stop(shutdownCtx)
	}

	cancel()
	select {
	case <-poolDone:
	case <-shutdownCtx.Done():
		logger.Warn("worker pool did not drain before timeout")
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
