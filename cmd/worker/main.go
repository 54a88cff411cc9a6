package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/medconsult-api/internal/app"
	"github.com/jwalitptl/medconsult-api/internal/config"
	"github.com/jwalitptl/medconsult-api/internal/email"
	"github.com/jwalitptl/medconsult-api/internal/worker"
	"github.com/jwalitptl/medconsult-api/pkg/logger"
	"github.com/jwalitptl/medconsult-api/pkg/messaging/redis"
	"github.com/jwalitptl/medconsult-api/pkg/metrics"
)

func setupHealthCheck(logger *logger.Logger, registry *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	srv := &http.Server{Addr: ":8081", Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ZL.Error().Err(err).Msg("Health check server failed")
			os.Exit(1)
		}
	}()
	return srv
}

func main() {
	// Load config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	// Initialize logger
	level := logger.ParseLevel(cfg.Log.Level)
	zerolog.SetGlobalLevel(level)
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	appLogger := &logger.Logger{ZL: log.Logger}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registry := prometheus.NewRegistry()
	appMetrics := metrics.NewMetrics("medconsult_worker", registry)

	// The worker only reads records to address emails
	backend, err := app.OpenBackend(ctx, cfg)
	if err != nil {
		appLogger.ZL.Fatal().Err(err).Msg("Failed to open record store")
	}
	services, err := app.NewServices(cfg, backend, nil, appLogger, appMetrics)
	if err != nil {
		appLogger.ZL.Fatal().Err(err).Msg("Failed to initialize services")
	}
	defer services.Store.Close()

	// Initialize Redis broker
	broker, err := redis.NewRedisBroker(redis.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		RetryBackoff: cfg.Redis.RetryBackoff,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, &log.Logger)
	if err != nil {
		appLogger.ZL.Fatal().Err(err).Msg("Failed to create Redis broker")
	}
	defer broker.Close()

	mailer := email.NewSMTPService(email.Config{
		Host:     cfg.Mail.Host,
		Port:     cfg.Mail.Port,
		Username: cfg.Mail.Username,
		Password: cfg.Mail.Password,
		From:     cfg.Mail.From,
	})

	notifier := worker.NewNotifier(
		broker,
		services.Users,
		services.Appointments,
		mailer,
		worker.NotifierConfig{
			Channel:    cfg.Events.Channel,
			MaxRetries: 3,
			RetryDelay: 5 * time.Second,
		},
		appLogger,
		appMetrics,
	)

	// Setup health check endpoints
	healthSrv := setupHealthCheck(appLogger, registry)

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		appLogger.ZL.Info().Msg("Shutting down...")
		cancel()
	}()

	if err := notifier.Start(ctx); err != nil {
		appLogger.ZL.Error().Err(err).Msg("Notifier stopped")
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer stop()
	_ = healthSrv.Shutdown(shutdownCtx)
}
