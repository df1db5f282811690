package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"daily-tracker/internal/bot"
	"daily-tracker/internal/config"
	"daily-tracker/internal/logger"
	"daily-tracker/internal/metrics"
	"daily-tracker/internal/repository"
	"daily-tracker/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{Level: cfg.LogLevel, Environment: cfg.LogEnv, File: cfg.LogFile})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	slog.SetDefault(log)

	if err := run(ctx, cfg, log); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("tracker stopped with error", "err", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	db, err := repository.NewDB(cfg.DatabaseURL, log)
	if err != nil {
		return fmt.Errorf("db: %w", err)
	}
	sqlDB, err := db.DB()
	if err == nil {
		defer sqlDB.Close()
	}

	userRepo := repository.NewUserRepository(db)
	kvRepo := repository.NewKVRepository(db)

	scheduler := service.NewSchedulerService(cfg.Location)
	notifications := service.NewNotificationService(scheduler, userRepo, log)
	sessions := service.NewSessionRegistry(kvRepo, cfg.StorageKey, notifications, cfg.Location, log)
	digests := service.NewDigestService(sessions, cfg.Location)

	telegramBot, err := bot.New(cfg.TelegramToken, userRepo, sessions, digests, &cfg, log)
	if err != nil {
		return fmt.Errorf("bot: %w", err)
	}
	notifications.Attach(telegramBot)

	report := func() {
		jobCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := telegramBot.SendDailyReports(jobCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("report", "err", err)
		}
	}
	if cfg.ReportAt != "" {
		if _, err := scheduler.ScheduleDaily(cfg.ReportAt, report); err != nil {
			return fmt.Errorf("schedule reports: %w", err)
		}
		log.Info("daily report scheduled", "at", cfg.ReportAt)
	} else if cfg.ReportInterval > 0 {
		if _, err := scheduler.ScheduleInterval(cfg.ReportInterval, report); err != nil {
			return fmt.Errorf("schedule reports: %w", err)
		}
		log.Info("report interval scheduled", "every", cfg.ReportInterval)
	}
	scheduler.Start()
	defer scheduler.Stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("daily tracker bot started", "timezone", cfg.Location.String(), "storage_key", cfg.StorageKey)
		return telegramBot.Start(gctx)
	})
	if cfg.MetricsAddr != "" {
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: metricsMux(), ReadHeaderTimeout: 5 * time.Second}
		g.Go(func() error {
			log.Info("metrics listening", "addr", cfg.MetricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}
	return g.Wait()
}

func metricsMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	return mux
}
