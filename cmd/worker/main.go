package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/pressroom-cms/pressroom/internal/app"
	"github.com/pressroom-cms/pressroom/internal/audit"
	"github.com/pressroom-cms/pressroom/internal/authz"
	jobmetrics "github.com/pressroom-cms/pressroom/internal/jobs"
	"github.com/pressroom-cms/pressroom/internal/mailer"
	"github.com/pressroom-cms/pressroom/internal/platform/db"
	"github.com/pressroom-cms/pressroom/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	recorder := audit.NewRecorder(pool, logger)
	auditRepo := audit.NewRepository(pool)
	auditService := audit.NewService(auditRepo, authz.NewEngine(nil, authz.NewDirectoryStore(pool), logger), recorder)

	mail := mailer.New(mailer.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		BaseURL:  cfg.AppBaseURL,
	})

	metrics := jobmetrics.NewMetrics(nil)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskTypeInviteMail, Handler: jobs.NewInviteMailHandler(mail, metrics, logger)},
			{Type: jobs.TaskTypeAuditRetention, Handler: jobs.NewAuditRetentionHandler(auditService, cfg.AuditRetention, metrics, logger)},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "0 3 * * *", Task: jobs.NewAuditRetentionTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
