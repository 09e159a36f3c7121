package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"stadion/internal/booking"
	"stadion/internal/bot"
	"stadion/internal/cache"
	"stadion/internal/config"
	"stadion/internal/db"
	"stadion/internal/metrics"
	"stadion/internal/schedule"
)

func main() {
	_ = godotenv.Load()

	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	cfg, err := config.Load(os.Getenv("STADION_CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	if cfg.Telegram.BotToken == "" || cfg.Telegram.BotToken == "YOUR_BOT_TOKEN_HERE" {
		logger.Fatal().Msg("set telegram.bot_token in config")
	}

	database, err := db.New(cfg.Database.Path, cfg.Booking.SlotCapacity, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("open db error")
	}
	defer database.Close()

	var rdb *redis.Client
	if cfg.Redis.Address != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	slotCache := cache.New(rdb, cfg.CacheTTL(), &logger)

	sched, err := schedule.New(cfg.Booking.Timezone, cfg.Booking.OpenHour, cfg.Booking.CloseHour)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid schedule config")
	}

	svc := booking.NewService(database, sched, slotCache, cfg.CancelWindow(), &logger)

	b, err := bot.New(cfg.Telegram.BotToken, cfg.Telegram.Debug, svc, cfg.Telegram.Admins, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("create bot error")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backup := db.NewBackupService(database, db.BackupConfig{
		Enabled:       cfg.Backup.Enabled,
		IntervalHours: cfg.Backup.IntervalHours,
		Path:          cfg.Backup.Path,
		RetentionDays: cfg.Backup.RetentionDays,
	}, &logger)
	go backup.Start(ctx)

	if cfg.Monitoring.HealthCheckPort == 0 {
		cfg.Monitoring.HealthCheckPort = 8090
	}
	go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, database, rdb, &logger)

	if cfg.Monitoring.PrometheusEnabled {
		if cfg.Monitoring.PrometheusPort == 0 {
			cfg.Monitoring.PrometheusPort = 9090
		}
		metrics.Register()
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	b.StartReminders(ctx, cfg.Booking.OpenHour)

	logger.Info().Msg("Stadion bot started")
	b.Start(ctx)
}

func startHealthServer(ctx context.Context, port int, database *db.DB, rdb *redis.Client, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ctxPing, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if err := database.PingContext(ctxPing); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		if rdb != nil {
			if err := rdb.Ping(ctxPing).Err(); err != nil {
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("health server error")
	}
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
