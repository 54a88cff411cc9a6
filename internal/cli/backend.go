package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jwalitptl/medconsult-api/internal/app"
	"github.com/jwalitptl/medconsult-api/internal/config"
	"github.com/jwalitptl/medconsult-api/internal/dashboard"
	"github.com/jwalitptl/medconsult-api/internal/model"
	"github.com/jwalitptl/medconsult-api/internal/store"
	"github.com/jwalitptl/medconsult-api/pkg/apiclient"
	"github.com/jwalitptl/medconsult-api/pkg/logger"
	"github.com/jwalitptl/medconsult-api/pkg/metrics"
)

// Backend is everything the dashboards can do. The api backend talks to a
// running server; the local backend runs the same services over files.
type Backend interface {
	Register(ctx context.Context, req model.CreateUserRequest) (*model.User, error)
	Login(ctx context.Context, req model.LoginRequest) (*model.User, error)
	Snapshot(ctx context.Context) (dashboard.Snapshot, error)

	Book(ctx context.Context, req model.CreateAppointmentRequest) (*model.Appointment, error)
	Approve(ctx context.Context, id string) (*model.Appointment, error)
	Reject(ctx context.Context, id, reason string) (*model.Appointment, error)
	Complete(ctx context.Context, id string) (*model.Appointment, error)
	DeleteAppointment(ctx context.Context, id string) error

	WritePrescription(ctx context.Context, apptID, text string) (*model.Prescription, error)
	GetPrescription(ctx context.Context, id string) (*model.Prescription, error)
	ToggleDispensed(ctx context.Context, id string) (*model.Prescription, error)
	MarkUnavailable(ctx context.Context, id string) (*model.Prescription, error)
	MarkAvailable(ctx context.Context, id string) (*model.Prescription, error)

	DeleteUser(ctx context.Context, id string) error
	Close() error
}

// OpenBackend builds the backend selected by s.Mode.
func OpenBackend(ctx context.Context, s Settings) (Backend, error) {
	switch s.Mode {
	case ModeAPI:
		return NewAPIBackend(apiclient.New(apiclient.Config{BaseURL: s.APIURL, RetryCount: 1})), nil
	case ModeLocal:
		dir := s.DataDir
		if dir == "" {
			base, err := os.UserConfigDir()
			if err != nil {
				return nil, fmt.Errorf("failed to resolve data dir: %w", err)
			}
			dir = filepath.Join(base, "medctl", "data")
		}
		return NewLocalBackend(ctx, dir)
	default:
		return nil, s.Validate()
	}
}

type APIBackend struct {
	client *apiclient.Client
}

func NewAPIBackend(client *apiclient.Client) *APIBackend {
	return &APIBackend{client: client}
}

func (b *APIBackend) Register(ctx context.Context, req model.CreateUserRequest) (*model.User, error) {
	return b.client.CreateUser(ctx, req)
}

func (b *APIBackend) Login(ctx context.Context, req model.LoginRequest) (*model.User, error) {
	return b.client.Login(ctx, req)
}

func (b *APIBackend) Snapshot(ctx context.Context) (dashboard.Snapshot, error) {
	users, err := b.client.ListUsers(ctx, "")
	if err != nil {
		return dashboard.Snapshot{}, err
	}
	appts, err := b.client.ListAppointments(ctx, model.AppointmentFilters{})
	if err != nil {
		return dashboard.Snapshot{}, err
	}
	prescs, err := b.client.ListPrescriptions(ctx)
	if err != nil {
		return dashboard.Snapshot{}, err
	}
	return dashboard.Snapshot{Users: users, Appointments: appts, Prescriptions: prescs}, nil
}

func (b *APIBackend) Book(ctx context.Context, req model.CreateAppointmentRequest) (*model.Appointment, error) {
	return b.client.BookAppointment(ctx, req)
}

func (b *APIBackend) Approve(ctx context.Context, id string) (*model.Appointment, error) {
	return b.client.ApproveAppointment(ctx, id)
}

func (b *APIBackend) Reject(ctx context.Context, id, reason string) (*model.Appointment, error) {
	return b.client.RejectAppointment(ctx, id, reason)
}

func (b *APIBackend) Complete(ctx context.Context, id string) (*model.Appointment, error) {
	return b.client.CompleteAppointment(ctx, id)
}

func (b *APIBackend) DeleteAppointment(ctx context.Context, id string) error {
	return b.client.DeleteAppointment(ctx, id)
}

func (b *APIBackend) WritePrescription(ctx context.Context, apptID, text string) (*model.Prescription, error) {
	return b.client.WritePrescription(ctx, apptID, text)
}

func (b *APIBackend) GetPrescription(ctx context.Context, id string) (*model.Prescription, error) {
	return b.client.GetPrescription(ctx, id)
}

func (b *APIBackend) ToggleDispensed(ctx context.Context, id string) (*model.Prescription, error) {
	return b.client.ToggleDispensed(ctx, id)
}

func (b *APIBackend) MarkUnavailable(ctx context.Context, id string) (*model.Prescription, error) {
	return b.client.MarkUnavailable(ctx, id)
}

func (b *APIBackend) MarkAvailable(ctx context.Context, id string) (*model.Prescription, error) {
	return b.client.MarkAvailable(ctx, id)
}

func (b *APIBackend) DeleteUser(ctx context.Context, id string) error {
	return b.client.DeleteUser(ctx, id)
}

func (b *APIBackend) Close() error {
	return nil
}

// LocalBackend runs the domain services in-process over a file store. It
// seeds the demo accounts the first time a data dir is used.
type LocalBackend struct {
	services *app.Services
}

func NewLocalBackend(ctx context.Context, dataDir string) (*LocalBackend, error) {
	fileBackend, err := store.NewFileBackend(dataDir)
	if err != nil {
		return nil, err
	}
	return newLocalBackend(ctx, fileBackend, &config.Config{})
}

func newLocalBackend(ctx context.Context, backend store.Backend, cfg *config.Config) (*LocalBackend, error) {
	services, err := app.NewServices(cfg, backend, nil, logger.Nop(), metrics.NewNop())
	if err != nil {
		return nil, err
	}
	if err := services.Users.Seed(ctx); err != nil {
		return nil, err
	}
	return &LocalBackend{services: services}, nil
}

func (b *LocalBackend) Register(ctx context.Context, req model.CreateUserRequest) (*model.User, error) {
	return b.services.Users.CreateUser(ctx, req)
}

func (b *LocalBackend) Login(ctx context.Context, req model.LoginRequest) (*model.User, error) {
	return b.services.Users.Authenticate(ctx, req)
}

func (b *LocalBackend) Snapshot(ctx context.Context) (dashboard.Snapshot, error) {
	users, err := b.services.Users.ListUsers(ctx)
	if err != nil {
		return dashboard.Snapshot{}, err
	}
	appts, err := b.services.Appointments.List(ctx, model.AppointmentFilters{})
	if err != nil {
		return dashboard.Snapshot{}, err
	}
	prescs, err := b.services.Prescriptions.List(ctx)
	if err != nil {
		return dashboard.Snapshot{}, err
	}
	return dashboard.Snapshot{Users: users, Appointments: appts, Prescriptions: prescs}, nil
}

func (b *LocalBackend) Book(ctx context.Context, req model.CreateAppointmentRequest) (*model.Appointment, error) {
	return b.services.Appointments.Book(ctx, req)
}

func (b *LocalBackend) Approve(ctx context.Context, id string) (*model.Appointment, error) {
	return b.services.Appointments.Approve(ctx, id)
}

func (b *LocalBackend) Reject(ctx context.Context, id, reason string) (*model.Appointment, error) {
	return b.services.Appointments.Reject(ctx, id, reason)
}

func (b *LocalBackend) Complete(ctx context.Context, id string) (*model.Appointment, error) {
	return b.services.Appointments.Complete(ctx, id)
}

func (b *LocalBackend) DeleteAppointment(ctx context.Context, id string) error {
	return b.services.Appointments.Delete(ctx, id)
}

func (b *LocalBackend) WritePrescription(ctx context.Context, apptID, text string) (*model.Prescription, error) {
	return b.services.Prescriptions.Write(ctx, apptID, text)
}

func (b *LocalBackend) GetPrescription(ctx context.Context, id string) (*model.Prescription, error) {
	return b.services.Prescriptions.Get(ctx, id)
}

func (b *LocalBackend) ToggleDispensed(ctx context.Context, id string) (*model.Prescription, error) {
	return b.services.Prescriptions.ToggleDispensed(ctx, id)
}

func (b *LocalBackend) MarkUnavailable(ctx context.Context, id string) (*model.Prescription, error) {
	return b.services.Prescriptions.MarkUnavailable(ctx, id)
}

func (b *LocalBackend) MarkAvailable(ctx context.Context, id string) (*model.Prescription, error) {
	return b.services.Prescriptions.MarkAvailable(ctx, id)
}

func (b *LocalBackend) DeleteUser(ctx context.Context, id string) error {
	return b.services.Users.DeleteUser(ctx, id)
}

func (b *LocalBackend) Close() error {
	return b.services.Store.Close()
}
