package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	httptransport "github.com/spec-kit/issue-tracker/internal/api/http"
	"github.com/spec-kit/issue-tracker/internal/api/http/handlers"
	"github.com/spec-kit/issue-tracker/internal/auth"
	"github.com/spec-kit/issue-tracker/internal/config"
	"github.com/spec-kit/issue-tracker/internal/observability"
	"github.com/spec-kit/issue-tracker/internal/persistence"
	"github.com/spec-kit/issue-tracker/internal/repository"
	"github.com/spec-kit/issue-tracker/internal/repository/sqlite"
	"github.com/spec-kit/issue-tracker/internal/service"
)

// store groups the repositories of whichever backend DATABASE_URL selects.
type store struct {
	name     string
	users    repository.UserRepository
	projects repository.ProjectRepository
	issues   repository.IssueRepository
	pinger   handlers.Pinger
	close    func()
}

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

	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to open store", zap.Error(err))
	}
	defer st.close()

	tokens, err := auth.NewTokenManager(cfg.Auth.SecretKey, cfg.Auth.Algorithm, cfg.Auth.AccessTokenTTL())
	if err != nil {
		logger.Fatal("failed to init token manager", zap.Error(err))
	}
	hasher := auth.NewPasswordHasher(cfg.Auth.BcryptCost)

	authService, err := service.NewAuthService(service.AuthDependencies{
		UserRepo: st.users,
		Hasher:   hasher,
		Tokens:   tokens,
	})
	if err != nil {
		logger.Fatal("failed to init auth service", zap.Error(err))
	}
	projectService := service.NewProjectService(st.projects)
	issueService := service.NewIssueService(service.IssueDependencies{
		ProjectRepo: st.projects,
		IssueRepo:   st.issues,
	})
	authMiddleware := auth.NewAuthMiddleware(tokens, st.users)

	metrics := observability.NewMetrics()
	app := httptransport.NewApp(cfg.App.Name, logger, metrics)
	httptransport.RegisterMiddlewares(app, httptransport.MiddlewareConfig{
		Logger:        logger,
		Metrics:       metrics,
		Timeout:       cfg.App.RequestTimeout(),
		AllowedOrigin: cfg.CORS.AllowedOrigin,
	})

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, st.name, st.pinger),
		Metrics:        handlers.NewMetricsHandler(metrics),
		Users:          handlers.NewUsersHandler(authService),
		Projects:       handlers.NewProjectsHandler(projectService),
		Issues:         handlers.NewIssuesHandler(issueService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()), zap.String("store", st.name))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.Shutdown(); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
}

func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*store, error) {
	driver, err := cfg.Database.Driver()
	if err != nil {
		return nil, err
	}
	switch driver {
	case config.DriverPostgres:
		pg, err := persistence.NewPostgres(ctx, cfg.Database, logger)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if cfg.Database.AutoMigrate {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
				pg.Close()
				return nil, fmt.Errorf("migrate postgres: %w", err)
			}
		}
		pool := pg.PoolHandle()
		return &store{
			name:     config.DriverPostgres,
			users:    repository.NewUserRepository(pool),
			projects: repository.NewProjectRepository(pool),
			issues:   repository.NewIssueRepository(pool),
			pinger:   pg,
			close:    pg.Close,
		}, nil
	case config.DriverSQLite:
		db, err := persistence.NewSQLite(ctx, cfg.Database.SQLitePath(), logger)
		if err != nil {
			return nil, err
		}
		if cfg.Database.AutoMigrate {
			if err := persistence.RunSQLiteMigrations(ctx, db.DB, logger); err != nil {
				db.Close()
				return nil, fmt.Errorf("migrate sqlite: %w", err)
			}
		}
		repo := sqlite.New(db.DB)
		return &store{
			name:     config.DriverSQLite,
			users:    repo,
			projects: repo,
			issues:   repo,
			pinger:   db,
			close:    db.Close,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
