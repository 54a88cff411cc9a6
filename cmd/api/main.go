package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/medconsult-api/internal/app"
	"github.com/jwalitptl/medconsult-api/internal/config"
	"github.com/jwalitptl/medconsult-api/internal/handler/appointment"
	"github.com/jwalitptl/medconsult-api/internal/handler/auth"
	"github.com/jwalitptl/medconsult-api/internal/handler/health"
	"github.com/jwalitptl/medconsult-api/internal/handler/prescription"
	"github.com/jwalitptl/medconsult-api/internal/handler/prometheus"
	"github.com/jwalitptl/medconsult-api/internal/handler/user"
	"github.com/jwalitptl/medconsult-api/internal/router"
	"github.com/jwalitptl/medconsult-api/pkg/event"
	"github.com/jwalitptl/medconsult-api/pkg/logger"
	"github.com/jwalitptl/medconsult-api/pkg/messaging"
	"github.com/jwalitptl/medconsult-api/pkg/messaging/redis"
	"github.com/jwalitptl/medconsult-api/pkg/metrics"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	level := logger.ParseLevel(cfg.Log.Level)
	zerolog.SetGlobalLevel(level)
	appLogger := logger.NewLogger(&logger.Config{
		Level:      level,
		TimeFormat: time.RFC3339,
		Output:     os.Stdout,
	})

	ctx := context.Background()

	// Metrics share one registry so /metrics exposes everything
	registry := promclient.NewRegistry()
	metricsH := prometheus.New("medconsult", registry)
	appMetrics := metrics.NewMetrics("medconsult", registry)

	backend, err := app.OpenBackend(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Storage.Driver).Msg("failed to open record store")
	}

	// Domain events are optional
	var publisher event.Publisher = event.NopPublisher{}
	var broker messaging.Broker
	if cfg.Events.Enabled {
		broker, err = redis.NewRedisBroker(redis.Config{
			URL:          cfg.Redis.URL,
			MaxRetries:   cfg.Redis.MaxRetries,
			RetryBackoff: cfg.Redis.RetryBackoff,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
		}, &appLogger.ZL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to Redis")
		}
		publisher = event.NewBrokerPublisher(broker, cfg.Events.Channel, appMetrics)
	}

	// Initialize services
	services, err := app.NewServices(cfg, backend, publisher, appLogger, appMetrics)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize services")
	}
	defer services.Store.Close()

	if cfg.Seed.Enabled {
		if err := services.Users.Seed(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to seed demo data")
		}
	}

	// Initialize handlers
	gin.SetMode(cfg.Server.Mode)
	r := router.NewRouter(
		health.NewHandler(services.Store, cfg.Server.Port),
		metricsH,
		router.RouterConfig{
			RateLimitEnabled: cfg.RateLimit.Enabled,
			RateLimit:        rate.Limit(cfg.RateLimit.RequestsPerSecond),
			RateBurst:        cfg.RateLimit.Burst,
			AllowedOrigins:   cfg.Security.AllowedOrigins,
			MaxBodyBytes:     cfg.Server.MaxBodyBytes,
		},
		user.NewHandler(services.Users),
		auth.NewHandler(services.Users),
		appointment.NewHandler(services.Appointments, services.Prescriptions),
		prescription.NewHandler(services.Prescriptions),
	)
	r.Setup()

	// Create server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server
	go func() {
		log.Info().Int("port", cfg.Server.Port).Str("driver", cfg.Storage.Driver).Msg("API running")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
	if broker != nil {
		if err := broker.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close broker")
		}
	}

	log.Info().Msg("server exited properly")
}
