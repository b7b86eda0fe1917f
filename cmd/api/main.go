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

	httptransport "github.com/spec-kit/helpdesk-service/internal/api/http"
	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/persistence"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/service"
	"github.com/spec-kit/helpdesk-service/internal/sla"
	"github.com/spec-kit/helpdesk-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	metrics := observability.NewMetrics()

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
	userRepo := repository.NewUserRepository(pool)
	staffRepo := repository.NewStaffRepository(pool)
	departmentRepo := repository.NewDepartmentRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)
	historyRepo := repository.NewTicketHistoryRepository(pool)
	categoryRepo := repository.NewCategoryRepository(pool)
	priorityRepo := repository.NewPriorityRepository(pool)
	ruleRepo := repository.NewCachedRuleRepository(
		repository.NewSLARuleRepository(pool),
		redis.Handle(),
		cfg.SLA.RuleCacheTTL(),
		logger,
	)

	strategy, err := sla.ParseMatchStrategy(cfg.SLA.MatchStrategy)
	if err != nil {
		logger.Fatal("invalid sla match strategy", zap.Error(err))
	}
	clock := sla.SystemClock{}
	evaluator := sla.NewEvaluator(sla.Dependencies{
		Rules:      ruleRepo,
		Categories: categoryRepo,
		Priorities: priorityRepo,
		Clock:      clock,
		Observer:   metrics,
		Logger:     logger,
	}, sla.Options{
		DefaultHours: cfg.SLA.DefaultHours,
		AtRiskRatio:  cfg.SLA.AtRiskRatio,
		Strategy:     strategy,
	})

	dispatcher := events.NewInMemoryDispatcher(logger)

	authService := service.NewAuthService(cfg.Auth, service.AuthDependencies{
		UserRepo:  userRepo,
		StaffRepo: staffRepo,
	})
	orgService := service.NewStaffService(cfg.Auth, service.OrgDependencies{
		DepartmentRepo: departmentRepo,
		StaffRepo:      staffRepo,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:     ticketRepo,
		DepartmentRepo: departmentRepo,
		CategoryRepo:   categoryRepo,
		PriorityRepo:   priorityRepo,
		StaffRepo:      staffRepo,
		HistoryRepo:    historyRepo,
		Evaluator:      evaluator,
		Dispatcher:     dispatcher,
		Clock:          clock,
		ScanBatchSize:  cfg.SLA.SweepBatchSize,
		Logger:         logger,
	})
	slaConfigService := service.NewSLAConfigService(service.SLAConfigDependencies{
		RuleRepo:       ruleRepo,
		CategoryRepo:   categoryRepo,
		PriorityRepo:   priorityRepo,
		DepartmentRepo: departmentRepo,
		Logger:         logger,
	})
	reportService := service.NewSLAReportService(service.SLAReportDependencies{
		TicketRepo: ticketRepo,
		Evaluator:  evaluator,
		Clock:      clock,
		BatchSize:  cfg.SLA.SweepBatchSize,
		Logger:     logger,
	})
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	background, err := worker.StartBackground(worker.BackgroundDependencies{
		Notifications: notificationService,
		TicketRepo:    ticketRepo,
		Evaluator:     evaluator,
		Dispatcher:    dispatcher,
		Gauge:         metrics,
		Redis:         redis.Handle(),
		Logger:        logger,
	}, worker.BackgroundConfig{
		Schedule:    cfg.SLA.SweepSchedule,
		BatchSize:   cfg.SLA.SweepBatchSize,
		DedupeAfter: cfg.SLA.AlertDedupeWindow(),
	})
	if err != nil {
		logger.Fatal("failed to start background workers", zap.Error(err))
	}

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo, staffRepo)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	healthDeps := map[string]handlers.Pinger{"postgres": pg}
	if redis.Handle() != nil {
		healthDeps["redis"] = redis
	}

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, healthDeps),
		Users:          handlers.NewUsersHandler(authService),
		Staff:          handlers.NewStaffHandler(authService, orgService),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		StaffTickets:   handlers.NewStaffTicketsHandler(ticketService),
		SLA:            handlers.NewSLAHandler(slaConfigService, ticketService),
		Reports:        handlers.NewReportsHandler(reportService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	background.Stop(shutdownCtx)
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
