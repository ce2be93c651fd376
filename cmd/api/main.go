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

	httptransport "github.com/yakubjanov004/telecom-support-engine/internal/api/http"
	"github.com/yakubjanov004/telecom-support-engine/internal/api/http/handlers"
	"github.com/yakubjanov004/telecom-support-engine/internal/auth"
	"github.com/yakubjanov004/telecom-support-engine/internal/config"
	"github.com/yakubjanov004/telecom-support-engine/internal/domain"
	"github.com/yakubjanov004/telecom-support-engine/internal/events"
	"github.com/yakubjanov004/telecom-support-engine/internal/idgen"
	"github.com/yakubjanov004/telecom-support-engine/internal/notify"
	"github.com/yakubjanov004/telecom-support-engine/internal/observability"
	"github.com/yakubjanov004/telecom-support-engine/internal/persistence"
	"github.com/yakubjanov004/telecom-support-engine/internal/query"
	"github.com/yakubjanov004/telecom-support-engine/internal/repository"
	"github.com/yakubjanov004/telecom-support-engine/internal/worker"
	"github.com/yakubjanov004/telecom-support-engine/internal/workflow"
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
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	requestRepo := repository.NewRequestRepository(pool)
	staffRepo := repository.NewStaffRepository(pool)

	dispatcher := events.NewAsyncDispatcher(logger)
	keys := idgen.NewGenerator(redis.Client)

	engine := workflow.NewService(workflow.Dependencies{
		RequestRepo: requestRepo,
		StaffRepo:   staffRepo,
		Keys:        keys,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})

	classifier := workflow.NewClassifier(slaThresholds(cfg.Workflow))
	queries := query.NewService(query.Dependencies{
		RequestRepo:      requestRepo,
		Classifier:       classifier,
		SupervisoryRoles: supervisoryRoles(cfg.Workflow),
	})

	channels := []notify.Channel{
		notify.NewLogChannel(logger),
		notify.NewRedisChannel(redis.Client, cfg.Notification.RedisChannel),
	}
	notifications := notify.NewService(dispatcher, staffRepo, channels, logger)
	worker.StartNotificationWorker(notifications)

	tokenManager := auth.NewTokenManager(cfg.Auth)
	authMiddleware := auth.NewAuthMiddleware(tokenManager, staffRepo)

	metrics := observability.NewMetrics()

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(pg, redis),
		Requests:       handlers.NewRequestsHandler(engine, queries, metrics),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
	dispatcher.Drain()
}

func slaThresholds(cfg config.WorkflowConfig) workflow.Thresholds {
	return workflow.Thresholds{
		domain.RoleCallCenter:    time.Duration(cfg.SLACallCenterMinutes) * time.Minute,
		domain.RoleSupervisor:    time.Duration(cfg.SLASupervisorMinutes) * time.Minute,
		domain.RoleController:    time.Duration(cfg.SLAControllerMinutes) * time.Minute,
		domain.RoleManager:       time.Duration(cfg.SLAManagerMinutes) * time.Minute,
		domain.RoleJuniorManager: time.Duration(cfg.SLAJuniorManagerMinutes) * time.Minute,
		domain.RoleTechnician:    time.Duration(cfg.SLATechnicianMinutes) * time.Minute,
		domain.RoleWarehouse:     time.Duration(cfg.SLAWarehouseMinutes) * time.Minute,
	}
}

func supervisoryRoles(cfg config.WorkflowConfig) []domain.Role {
	roles := make([]domain.Role, 0, len(cfg.SupervisoryRoles))
	for _, raw := range cfg.SupervisoryRoles {
		role := domain.Role(raw)
		if role.Valid() {
			roles = append(roles, role)
		}
	}
	return roles
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
