package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/pressroom-cms/pressroom/internal/app"
	"github.com/pressroom-cms/pressroom/internal/audit"
	"github.com/pressroom-cms/pressroom/internal/auth"
	"github.com/pressroom-cms/pressroom/internal/authz"
	"github.com/pressroom-cms/pressroom/internal/categories"
	"github.com/pressroom-cms/pressroom/internal/contributors"
	"github.com/pressroom-cms/pressroom/internal/domains"
	"github.com/pressroom-cms/pressroom/internal/identity"
	"github.com/pressroom-cms/pressroom/internal/invites"
	"github.com/pressroom-cms/pressroom/internal/jobposts"
	"github.com/pressroom-cms/pressroom/internal/observability"
	"github.com/pressroom-cms/pressroom/internal/platform/db"
	"github.com/pressroom-cms/pressroom/internal/posts"
	"github.com/pressroom-cms/pressroom/internal/roles"
	"github.com/pressroom-cms/pressroom/internal/shared"
	"github.com/pressroom-cms/pressroom/internal/users"
	"github.com/pressroom-cms/pressroom/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "pressroom_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	metrics := observability.NewMetrics()

	var provider identity.Provider
	if cfg.IdentityURL != "" {
		provider = identity.NewHTTPProvider(cfg.IdentityURL, cfg.IdentityServiceKey, &http.Client{Timeout: cfg.IdentityTimeout})
	} else {
		provider = identity.NewLocalProvider(pool, cfg.SessionTTL)
	}

	engine := authz.NewEngine(provider, authz.NewDirectoryStore(pool), logger)
	guard := authz.Middleware{Engine: engine, Logger: logger, Metrics: metrics}

	recorder := audit.NewRecorder(pool, logger)

	userRepo := users.NewRepository(pool)
	userService := users.NewService(userRepo, engine, provider, recorder, logger)
	userHandler := users.NewHandler(logger, userService)

	roleRepo := roles.NewRepository(pool)
	roleService := roles.NewService(roleRepo, engine, recorder)
	roleHandler := roles.NewHandler(logger, roleService)

	queueClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init queue client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := queueClient.Close(); err != nil {
			logger.Warn("queue client close", slog.Any("error", err))
		}
	}()

	domainRepo := domains.NewRepository(pool)
	domainService := domains.NewService(domainRepo, engine, recorder)
	domainHandler := domains.NewHandler(logger, domainService)

	inviteRepo := invites.NewRepository(pool)
	inviteService := invites.NewService(
		inviteRepo, userRepo, engine, provider, recorder,
		jobs.NewInviteDelivery(queueClient), domainService,
		cfg.InviteTokenSecret, cfg.InviteTTL, logger,
	)
	inviteHandler := invites.NewHandler(logger, inviteService)

	authService := auth.NewService(provider, engine, userService, domainService, logger)
	authHandler := auth.NewHandler(logger, authService, sessionManager)

	postRepo := posts.NewRepository(pool)
	postService := posts.NewService(postRepo, engine, recorder)
	postHandler := posts.NewHandler(logger, postService)

	jobPostRepo := jobposts.NewRepository(pool)
	jobPostService := jobposts.NewService(jobPostRepo, engine, recorder)
	jobPostHandler := jobposts.NewHandler(logger, jobPostService)

	categoryRepo := categories.NewRepository(pool)
	categoryService := categories.NewService(categoryRepo, postRepo, engine, recorder)
	categoryHandler := categories.NewHandler(logger, categoryService)

	contributorRepo := contributors.NewRepository(pool)
	contributorService := contributors.NewService(contributorRepo, engine, recorder)
	contributorHandler := contributors.NewHandler(logger, contributorService)

	auditRepo := audit.NewRepository(pool)
	auditService := audit.NewService(auditRepo, engine, recorder)
	auditHandler := audit.NewHandler(logger, auditService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:              logger,
		Config:              cfg,
		SessionManager:      sessionManager,
		CSRFManager:         csrfManager,
		Guard:               guard,
		AuthHandler:         authHandler,
		InvitesHandler:      inviteHandler,
		UsersHandler:        userHandler,
		RolesHandler:        roleHandler,
		PostsHandler:        postHandler,
		JobPostsHandler:     jobPostHandler,
		CategoriesHandler:   categoryHandler,
		ContributorsHandler: contributorHandler,
		DomainsHandler:      domainHandler,
		AuditHandler:        auditHandler,
		JobHandler:          jobHandler,
		Metrics:             metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server exit", slog.Any("error", err))
		os.Exit(1)
	}
}
