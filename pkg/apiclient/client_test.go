package apiclient_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/medconsult-api/internal/app"
	"github.com/jwalitptl/medconsult-api/internal/config"
	"github.com/jwalitptl/medconsult-api/internal/handler/appointment"
	"github.com/jwalitptl/medconsult-api/internal/handler/auth"
	"github.com/jwalitptl/medconsult-api/internal/handler/health"
	"github.com/jwalitptl/medconsult-api/internal/handler/prescription"
	"github.com/jwalitptl/medconsult-api/internal/handler/user"
	"github.com/jwalitptl/medconsult-api/internal/model"
	"github.com/jwalitptl/medconsult-api/internal/router"
	"github.com/jwalitptl/medconsult-api/internal/store"
	"github.com/jwalitptl/medconsult-api/pkg/apiclient"
	apperrors "github.com/jwalitptl/medconsult-api/pkg/errors"
	"github.com/jwalitptl/medconsult-api/pkg/logger"
	"github.com/jwalitptl/medconsult-api/pkg/metrics"
)

func newClient(t *testing.T) *apiclient.Client {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log.Logger = zerolog.Nop()

	cfg := &config.Config{}
	cfg.Server.Port = 5000
	cfg.Security.BcryptCost = 4

	services, err := app.NewServices(cfg, store.NewMemoryBackend(), nil, logger.Nop(), metrics.NewNop())
	require.NoError(t, err)

	r := router.NewRouter(
		health.NewHandler(services.Store, cfg.Server.Port),
		nil,
		router.RouterConfig{},
		user.NewHandler(services.Users),
		auth.NewHandler(services.Users),
		appointment.NewHandler(services.Appointments, services.Prescriptions),
		prescription.NewHandler(services.Prescriptions),
	)
	r.Setup()

	srv := httptest.NewServer(r.Engine())
	t.Cleanup(srv.Close)

	return apiclient.New(apiclient.Config{BaseURL: srv.URL + "/", Timeout: 5 * time.Second})
}

func TestClient_EndToEnd(t *testing.T) {
	ctx := context.Background()
	c := newClient(t)

	status, err := c.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, "API running on port 5000", status)

	doctor, err := c.CreateUser(ctx, model.CreateUserRequest{Name: "Alice Smith", Email: "alice@medf.test", Password: "Test@1234", Role: model.RoleDoctor})
	require.NoError(t, err)
	_, err = c.CreateUser(ctx, model.CreateUserRequest{Name: "Bob Jones", Email: "bob@medf.test", Password: "Bob@12345", Role: model.RolePatient})
	require.NoError(t, err)

	bob, err := c.Login(ctx, model.LoginRequest{Email: "bob@medf.test", Password: "Bob@12345", Role: model.RolePatient})
	require.NoError(t, err)

	found, err := c.FindUserByEmail(ctx, "bob@medf.test")
	require.NoError(t, err)
	assert.Equal(t, bob.ID, found.ID)

	doctors, err := c.ListUsers(ctx, model.RoleDoctor)
	require.NoError(t, err)
	require.Len(t, doctors, 1)

	appt, err := c.BookAppointment(ctx, model.CreateAppointmentRequest{
		PatientID: bob.ID,
		DoctorID:  doctor.ID,
		Datetime:  time.Now().Add(24 * time.Hour).Format("2006-01-02T15:04"),
		Reason:    "checkup",
	})
	require.NoError(t, err)

	mine, err := c.ListAppointments(ctx, model.AppointmentFilters{PatientID: bob.ID, Status: model.AppointmentStatusPending})
	require.NoError(t, err)
	require.Len(t, mine, 1)

	approved, err := c.ApproveAppointment(ctx, appt.ID)
	require.NoError(t, err)
	require.NotNil(t, approved.VideoLink)

	presc, err := c.WritePrescription(ctx, appt.ID, "Paracetamol")
	require.NoError(t, err)

	presc, err = c.MarkUnavailable(ctx, presc.ID)
	require.NoError(t, err)
	assert.False(t, presc.Available)

	_, err = c.ToggleDispensed(ctx, presc.ID)
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidState))

	_, err = c.MarkAvailable(ctx, presc.ID)
	require.NoError(t, err)
	presc, err = c.ToggleDispensed(ctx, presc.ID)
	require.NoError(t, err)
	assert.True(t, presc.Dispensed)

	require.NoError(t, c.DeleteUser(ctx, bob.ID))
	prescs, err := c.ListPrescriptions(ctx)
	require.NoError(t, err)
	assert.Empty(t, prescs)
}

func TestClient_ErrorsCarryServerMessage(t *testing.T) {
	ctx := context.Background()
	c := newClient(t)

	_, err := c.FindUserByEmail(ctx, "nobody@medf.test")
	require.Error(t, err)
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrNotFound, appErr.Code)
	assert.Equal(t, "User not found", appErr.Message)

	_, err = c.CreateUser(ctx, model.CreateUserRequest{Name: "Bob"})
	appErr, ok = apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, "Missing required fields", appErr.Message)

	_, err = c.Login(ctx, model.LoginRequest{Email: "x@medf.test", Password: "nope", Role: model.RoleAdmin})
	assert.True(t, apperrors.Is(err, apperrors.ErrUnauthorized))

	_, err = c.GetPrescription(ctx, "missing")
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}

func TestClient_TransportError(t *testing.T) {
	c := apiclient.New(apiclient.Config{BaseURL: "http://127.0.0.1:1", Timeout: time.Second})

	_, err := c.Health(context.Background())
	require.Error(t, err)
	_, isAppErr := apperrors.As(err)
	assert.False(t, isAppErr)
}

func TestClient_RetriesOnlyReads(t *testing.T) {
	var mu sync.Mutex
	hits := map[string]int{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits[r.Method]++
		mu.Unlock()

		// Drop the connection without answering.
		conn, _, err := w.(http.Hijacker).Hijack()
		if err == nil {
			_ = conn.Close()
		}
	}))
	t.Cleanup(srv.Close)

	c := apiclient.New(apiclient.Config{
		BaseURL:       srv.URL,
		Timeout:       time.Second,
		RetryCount:    2,
		RetryWaitTime: time.Millisecond,
	})
	ctx := context.Background()

	_, err := c.BookAppointment(ctx, model.CreateAppointmentRequest{PatientID: "user_p", DoctorID: "user_d", Datetime: "2099-01-31T14:30", Reason: "Cough"})
	require.Error(t, err)

	_, err = c.ListUsers(ctx, "")
	require.Error(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, hits[http.MethodPost])
	assert.Equal(t, 3, hits[http.MethodGet])
}
