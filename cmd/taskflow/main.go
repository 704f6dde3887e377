package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"taskflow/internal/bot"
	"taskflow/internal/config"
	"taskflow/internal/logging"
	"taskflow/internal/repository"
	"taskflow/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logging.New(logging.DefaultOptions()).Fatal("config", "err", err)
	}

	opts := logging.DefaultOptions()
	opts.Level = cfg.LogLevel
	logger := logging.New(opts)

	db, err := repository.NewDB(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("db", "err", err)
	}
	sqlDB, err := db.DB()
	if err == nil {
		defer sqlDB.Close()
	}

	store := repository.NewSQLStore(db)
	userRepo := repository.NewUserRepository(store, logger)
	categoryRepo := repository.NewCategoryRepository(store, logger)
	taskRepo := repository.NewTaskRepository(store, logger)

	locks := service.NewUserLocks()
	categorySvc := service.NewCategoryService(categoryRepo, taskRepo, userRepo, locks, logger)
	taskSvc := service.NewTaskService(taskRepo, categorySvc, logger)
	authSvc := service.NewAuthService(userRepo, taskRepo, categoryRepo, locks, logger)
	statsSvc := service.NewStatsService(taskRepo, categoryRepo, locks)

	telegramBot, err := bot.New(cfg.TelegramToken, authSvc, taskSvc, categorySvc, statsSvc, logger)
	if err != nil {
		logger.Fatal("bot", "err", err)
	}

	scheduler := service.NewSchedulerService(time.Local, logger)
	if cfg.ReconcileInterval > 0 {
		if _, err := scheduler.Every("reconcile", cfg.ReconcileInterval, categorySvc.ReconcileAll); err != nil {
			logger.Fatal("schedule reconcile", "err", err)
		}
	}
	if cfg.DigestTime != "" {
		if _, err := scheduler.Daily("digest", cfg.DigestTime, telegramBot.SendDigests); err != nil {
			logger.Fatal("schedule digest", "err", err)
		}
	}
	scheduler.Start()
	defer scheduler.Stop()

	logger.Info("taskflow bot started")
	if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("bot stopped with error", "err", err)
		return
	}
	logger.Info("shutdown complete")
}
