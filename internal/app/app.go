// Package app assembles the record store and domain services from config.
package app

import (
	"context"
	"fmt"

	"github.com/jwalitptl/medconsult-api/internal/config"
	"github.com/jwalitptl/medconsult-api/internal/service/appointment"
	"github.com/jwalitptl/medconsult-api/internal/service/prescription"
	"github.com/jwalitptl/medconsult-api/internal/service/user"
	"github.com/jwalitptl/medconsult-api/internal/store"
	"github.com/jwalitptl/medconsult-api/pkg/event"
	"github.com/jwalitptl/medconsult-api/pkg/logger"
	"github.com/jwalitptl/medconsult-api/pkg/metrics"
	"github.com/jwalitptl/medconsult-api/pkg/security"
)

// Services bundles the three domain services over one store.
type Services struct {
	Store         *store.Store
	Users         *user.Service
	Appointments  *appointment.Service
	Prescriptions *prescription.Service
}

// OpenBackend connects the storage driver named in cfg.
func OpenBackend(ctx context.Context, cfg *config.Config) (store.Backend, error) {
	switch cfg.Storage.Driver {
	case config.DriverFile:
		return store.NewFileBackend(cfg.Storage.DataDir)
	case config.DriverMemory:
		return store.NewMemoryBackend(), nil
	case config.DriverRedis:
		return store.NewRedisBackend(ctx, store.RedisConfig{
			URL:          cfg.Redis.URL,
			KeyPrefix:    cfg.Storage.KeyPrefix,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
		})
	case config.DriverPostgres:
		db, err := store.NewDB(cfg.Database.DSN())
		if err != nil {
			return nil, err
		}
		backend := store.NewPostgresBackend(db)
		if err := backend.Migrate(ctx); err != nil {
			_ = backend.Close()
			return nil, err
		}
		return backend, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// NewServices wires the domain services. A nil publisher disables events.
func NewServices(cfg *config.Config, backend store.Backend, publisher event.Publisher, log *logger.Logger, m *metrics.Metrics) (*Services, error) {
	loc, err := cfg.Appointments.Location()
	if err != nil {
		return nil, fmt.Errorf("invalid appointments timezone: %w", err)
	}
	if publisher == nil {
		publisher = event.NopPublisher{}
	}

	st := store.New(backend, log, m)
	return &Services{
		Store: st,
		Users: user.NewService(st, security.NewBcryptHasher(cfg.Security.BcryptCost), publisher, log),
		Appointments: appointment.NewService(st, publisher, log,
			appointment.WithLocation(loc),
			appointment.WithVideoBaseURL(cfg.Appointments.VideoBaseURL),
		),
		Prescriptions: prescription.NewService(st, publisher, log),
	}, nil
}
