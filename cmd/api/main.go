package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/support-chat-service/internal/api/http"
	"github.com/spec-kit/support-chat-service/internal/api/http/handlers"
	"github.com/spec-kit/support-chat-service/internal/auth"
	"github.com/spec-kit/support-chat-service/internal/config"
	"github.com/spec-kit/support-chat-service/internal/domain"
	"github.com/spec-kit/support-chat-service/internal/events"
	"github.com/spec-kit/support-chat-service/internal/observability"
	"github.com/spec-kit/support-chat-service/internal/persistence"
	"github.com/spec-kit/support-chat-service/internal/presence"
	"github.com/spec-kit/support-chat-service/internal/realtime"
	"github.com/spec-kit/support-chat-service/internal/repository"
	"github.com/spec-kit/support-chat-service/internal/service"
	"github.com/spec-kit/support-chat-service/internal/worker"
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

	pool := pg.PoolHandle()
	caseRepo := repository.NewCaseRepository(pool)
	messageRepo := repository.NewCaseMessageRepository(pool)
	staffRepo := repository.NewStaffRepository(pool)

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	hub := realtime.NewHub(logger, metrics)
	var bridge *realtime.Bridge
	if cfg.Realtime.BridgeEnabled {
		bridge = realtime.NewBridge(redis.Client, cfg.Realtime.EventChannel, hub, logger)
		go bridge.Run(ctx)
	}
	broadcaster := realtime.NewBroadcaster(hub, bridge)

	caseService := service.NewCaseService(service.CaseDependencies{
		CaseRepo:    caseRepo,
		MessageRepo: messageRepo,
		Dispatcher:  dispatcher,
	})
	authService := service.NewAuthService(cfg.Auth, staffRepo)

	// The gateway owns typing semantics but the tracker fires expiry
	// callbacks into it, so the tracker is built around a late-bound
	// reference.
	var gateway *service.SocketGateway
	typingTracker := presence.NewTypingTracker(cfg.Realtime.TypingTTL(), func(signal domain.TypingSignal) {
		gateway.OnTypingExpired(signal)
	})
	defer typingTracker.Close()
	gateway = service.NewSocketGateway(caseService, typingTracker, broadcaster, logger)

	broadcastService := service.NewBroadcastService(dispatcher, broadcaster, logger)
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	worker.StartSubscribers(broadcastService, notificationService)

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), staffRepo)

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: cfg.App.Env == "production",
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	healthHandler := handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis)
	authHandler := handlers.NewAuthHandler(authService)
	casesHandler := handlers.NewCasesHandler(caseService, authService)
	staffCasesHandler := handlers.NewStaffCasesHandler(caseService)
	wsHandler := handlers.NewWSHandler(hub, gateway, authService.TokenManager(), staffRepo, cfg.Realtime.SendBufferSize, logger)

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         healthHandler,
		Auth:           authHandler,
		Cases:          casesHandler,
		StaffCases:     staffCasesHandler,
		WS:             wsHandler,
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
