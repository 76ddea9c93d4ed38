// Package app wires configuration, storage and services into a runnable
// service shared by the API binary and the operator CLI.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/repairdesk/repair-service/internal/api/http"
	"github.com/repairdesk/repair-service/internal/api/http/handlers"
	"github.com/repairdesk/repair-service/internal/auth"
	"github.com/repairdesk/repair-service/internal/config"
	"github.com/repairdesk/repair-service/internal/domain"
	"github.com/repairdesk/repair-service/internal/events"
	"github.com/repairdesk/repair-service/internal/legacyimport"
	"github.com/repairdesk/repair-service/internal/observability"
	"github.com/repairdesk/repair-service/internal/persistence"
	"github.com/repairdesk/repair-service/internal/reports"
	"github.com/repairdesk/repair-service/internal/service"
	"github.com/repairdesk/repair-service/internal/store"
	"github.com/repairdesk/repair-service/internal/store/memory"
	"github.com/repairdesk/repair-service/internal/store/postgres"
	"github.com/repairdesk/repair-service/internal/validation"
	"github.com/repairdesk/repair-service/internal/worker"
)

// App holds the wired components.
type App struct {
	Config  *config.Config
	Logger  *zap.Logger
	Metrics *observability.Metrics

	Store      store.Store
	Postgres   *persistence.Postgres
	Redis      *persistence.Redis
	Dispatcher events.Dispatcher
	Validator  *validation.Validator

	Auth          *service.AuthService
	Requests      *service.RequestService
	Help          *service.HelpService
	Reference     *service.ReferenceService
	Reports       *reports.Service
	Diagnostics   *service.DiagnosticsService
	Notifications *service.NotificationService
	Importer      *legacyimport.Importer
}

// New connects the configured store and builds every service. Reference
// data is seeded on every start.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger, Metrics: observability.NewMetrics()}

	switch cfg.Store.Driver {
	case config.StoreDriverPostgres:
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, cfg.Postgres.MigrationsDir, logger)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		a.Postgres = pg
		a.Store = postgres.NewStore(pg.PoolHandle())
	default:
		a.Store = memory.NewStore()
	}

	var cache reports.Cache
	if cfg.Reports.CacheEnabled {
		a.Redis = persistence.NewRedis(ctx, cfg.Redis, logger)
		cache = reports.NewRedisCache(a.Redis.Client, cfg.App.Name+":reports")
	}

	a.Dispatcher = events.NewInMemoryDispatcher(logger, a.Metrics)
	a.Validator = validation.New(validation.WithRecorder(a.Metrics))

	a.Auth = service.NewAuthService(*cfg, service.AuthDependencies{Store: a.Store, Dispatcher: a.Dispatcher, Logger: logger})
	a.Requests = service.NewRequestService(service.RequestDependencies{
		Store: a.Store, Validator: a.Validator, Dispatcher: a.Dispatcher, Logger: logger,
	})
	a.Help = service.NewHelpService(service.HelpDependencies{
		Store: a.Store, Validator: a.Validator, Dispatcher: a.Dispatcher, Logger: logger,
	})
	a.Reference = service.NewReferenceService(service.ReferenceDependencies{Store: a.Store, Dispatcher: a.Dispatcher, Logger: logger})
	a.Reports = reports.NewService(reports.ServiceDependencies{
		Store:    a.Store,
		Engine:   reports.NewEngine(nil),
		Cache:    cache,
		CacheTTL: cfg.Reports.CacheTTL(),
		Logger:   logger,
		Metrics:  a.Metrics,
	})
	a.Diagnostics = service.NewDiagnosticsService(a.Store, a.Metrics, logger)
	a.Notifications = service.NewNotificationService(a.Dispatcher, logger, cfg.Notification, cfg.Quality)
	a.Importer = legacyimport.New(legacyimport.Dependencies{Store: a.Store, Dispatcher: a.Dispatcher, Logger: logger})

	worker.StartNotificationWorker(a.Notifications)
	worker.StartReportCacheWorker(a.Dispatcher, a.Reports, logger)

	if err := a.Reference.Seed(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("seed reference data: %w", err)
	}
	if err := a.bootstrapAdmin(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// bootstrapAdmin creates the configured manager account once.
func (a *App) bootstrapAdmin(ctx context.Context) error {
	login := a.Config.Auth.BootstrapLogin
	if login == "" {
		return nil
	}
	err := a.Store.View(ctx, func(v store.View) error {
		_, err := v.FindUserByLogin(ctx, login)
		return err
	})
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return err
	}
	_, err = a.Auth.CreateUser(ctx, 0, service.UserInput{
		FIO:      "Administrator",
		Phone:    "-",
		Login:    login,
		Password: a.Config.Auth.BootstrapPassword,
		Role:     domain.RoleManager,
	})
	if err != nil {
		return fmt.Errorf("bootstrap user %q: %w", login, err)
	}
	a.Logger.Info("bootstrap user created", zap.String("login", login))
	return nil
}

// HTTP builds the fiber application. The policy file is required.
func (a *App) HTTP() (*fiber.App, error) {
	policy, err := auth.LoadPolicy(a.Config.Auth.PolicyFile)
	if err != nil {
		return nil, err
	}

	deps := map[string]handlers.Pinger{}
	if a.Postgres != nil {
		deps["postgres"] = a.Postgres
	}
	if a.Redis != nil {
		deps["redis"] = a.Redis
	}

	server := fiber.New(fiber.Config{AppName: a.Config.App.Name})
	httptransport.RegisterMiddlewares(server, a.Logger, a.Metrics, a.Config.App.RequestTimeout())
	httptransport.RegisterRoutes(server, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(a.Config.App.Name, a.Config.App.Version, deps),
		Users:          handlers.NewUsersHandler(a.Auth),
		Requests:       handlers.NewRequestsHandler(a.Requests, a.Config.Quality.SurveyURL),
		Help:           handlers.NewHelpHandler(a.Help),
		Reports:        handlers.NewReportsHandler(a.Reports, a.Diagnostics, policy),
		Reference:      handlers.NewReferenceHandler(a.Reference),
		AuthMiddleware: auth.NewAuthMiddleware(a.Auth.TokenManager(), a.Store),
		Policy:         policy,
		Metrics:        a.Metrics.Handler(),
	})
	return server, nil
}

// Close releases connections.
func (a *App) Close() {
	a.Redis.Close()
	if a.Postgres != nil {
		a.Postgres.Close()
	}
}
