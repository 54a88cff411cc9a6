package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/medconsult-api/internal/config"
	"github.com/jwalitptl/medconsult-api/internal/model"
	"github.com/jwalitptl/medconsult-api/internal/service/user"
	"github.com/jwalitptl/medconsult-api/internal/session"
	"github.com/jwalitptl/medconsult-api/internal/store"
)

type harness struct {
	backend *LocalBackend
	session *session.MemorySession
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	fileBackend, err := store.NewFileBackend(t.TempDir())
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.Security.BcryptCost = 4
	b, err := newLocalBackend(context.Background(), fileBackend, cfg)
	require.NoError(t, err)

	return &harness{backend: b, session: &session.MemorySession{}}
}

// exec runs one medctl command line with stdin and returns its output.
func (h *harness) exec(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := New(Settings{Mode: ModeLocal},
		WithBackend(h.backend),
		WithSession(h.session),
		WithIO(strings.NewReader(stdin), &out),
	)
	cmd := app.Command()
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (h *harness) login(t *testing.T, email string, role model.Role) {
	t.Helper()
	_, err := h.exec(t, "", "login", "--email", email, "--password", user.DemoPassword, "--role", string(role))
	require.NoError(t, err)
}

func (h *harness) onlyAppointment(t *testing.T) model.Appointment {
	t.Helper()
	snap, err := h.backend.Snapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, snap.Appointments, 1)
	return snap.Appointments[0]
}

func TestRegisterAndLogin(t *testing.T) {
	h := newHarness(t)

	out, err := h.exec(t, "", "register", "--name", "Carol Patient", "--email", "carol@medf.test", "--password", "Carol@123")
	require.NoError(t, err)
	assert.Contains(t, out, "Registration successful! You can now login.")

	out, err = h.exec(t, "Carol@123\n", "login", "--email", "carol@medf.test", "--role", "patient")
	require.NoError(t, err)
	assert.Contains(t, out, "Welcome, Carol Patient")
	assert.Contains(t, out, "Patient Dashboard")
	assert.Contains(t, out, "No appointments yet")

	current, err := h.session.Current()
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, "carol@medf.test", current.Email)
	assert.Empty(t, current.PasswordHash)

	out, err = h.exec(t, "", "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "Carol Patient <carol@medf.test> (patient)")

	out, err = h.exec(t, "", "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged out")

	out, err = h.exec(t, "", "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "Not logged in")
}

func TestRegisterRejectsWeakPassword(t *testing.T) {
	h := newHarness(t)

	_, err := h.exec(t, "", "register", "--name", "Carol", "--email", "carol@medf.test", "--password", "short")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "password is missing")
}

func TestLoginWrongRole(t *testing.T) {
	h := newHarness(t)

	_, err := h.exec(t, "", "login", "--email", "bob@medf.test", "--password", user.DemoPassword, "--role", "doctor")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid email or password")
}

func TestRoleCommandsRequireMatchingSession(t *testing.T) {
	h := newHarness(t)

	_, err := h.exec(t, "", "doctor", "dashboard")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not logged in")

	h.login(t, "bob@medf.test", model.RolePatient)
	_, err = h.exec(t, "", "admin", "dashboard")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "signed in as patient, not admin")
}

func TestBookingWorkflow(t *testing.T) {
	h := newHarness(t)

	h.login(t, "bob@medf.test", model.RolePatient)
	out, err := h.exec(t, "n\n", "patient", "book", "--datetime", "2099-01-31T14:30", "--reason", "Headache")
	require.NoError(t, err)
	assert.Contains(t, out, "Booking cancelled")

	out, err = h.exec(t, "y\n", "patient", "book", "--doctor", "alice@medf.test", "--datetime", "2099-01-31T14:30", "--reason", "Headache")
	require.NoError(t, err)
	assert.Contains(t, out, "Appointment booked successfully!")
	assert.Contains(t, out, "Alice Doctor")
	appt := h.onlyAppointment(t)
	assert.Equal(t, model.AppointmentStatusPending, appt.Status)
	assert.True(t, appt.Paid)

	h.login(t, "alice@medf.test", model.RoleDoctor)
	out, err = h.exec(t, "", "doctor", "dashboard")
	require.NoError(t, err)
	assert.Contains(t, out, "Pending Approval")
	assert.Contains(t, out, "Headache")

	out, err = h.exec(t, "", "doctor", "approve", appt.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "Approved! Video link: ")
	assert.Contains(t, out, "No pending appointments")

	out, err = h.exec(t, "", "doctor", "prescribe", appt.ID, "--text", "Paracetamol 500mg")
	require.NoError(t, err)
	assert.Contains(t, out, "Prescription saved!")

	appt = h.onlyAppointment(t)
	require.NotNil(t, appt.PrescriptionID)
	rxID := *appt.PrescriptionID

	h.login(t, "john@medf.test", model.RolePharmacist)
	out, err = h.exec(t, "", "pharmacist", "unavailable", rxID)
	require.NoError(t, err)
	assert.Contains(t, out, "Unavailable")

	h.login(t, "bob@medf.test", model.RolePatient)
	out, err = h.exec(t, "", "patient", "rx", appt.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "Prescription currently not available")

	h.login(t, "john@medf.test", model.RolePharmacist)
	_, err = h.exec(t, "", "pharmacist", "available", rxID)
	require.NoError(t, err)
	out, err = h.exec(t, "", "pharmacist", "dispense", rxID)
	require.NoError(t, err)
	assert.Contains(t, out, "Marked dispensed")

	h.login(t, "bob@medf.test", model.RolePatient)
	out, err = h.exec(t, "", "patient", "rx", appt.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "Paracetamol 500mg")
}

func TestBookRejectsPastDate(t *testing.T) {
	h := newHarness(t)
	h.login(t, "bob@medf.test", model.RolePatient)

	_, err := h.exec(t, "", "patient", "book", "--datetime", "2000-01-01T10:00", "--reason", "Headache", "--confirm-payment")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "future date and time")
}

func TestApproveTwiceFails(t *testing.T) {
	h := newHarness(t)
	h.login(t, "bob@medf.test", model.RolePatient)
	_, err := h.exec(t, "", "patient", "book", "--datetime", "2099-01-31T14:30", "--reason", "Cough", "--confirm-payment")
	require.NoError(t, err)
	appt := h.onlyAppointment(t)

	h.login(t, "alice@medf.test", model.RoleDoctor)
	out, err := h.exec(t, "", "doctor", "reject", appt.ID, "--reason", "Fully booked")
	require.NoError(t, err)
	assert.Contains(t, out, "Appointment rejected: Fully booked")

	_, err = h.exec(t, "", "doctor", "approve", appt.ID)
	require.Error(t, err)
}

func TestAdminDeletesUser(t *testing.T) {
	h := newHarness(t)
	h.login(t, "bob@medf.test", model.RolePatient)
	_, err := h.exec(t, "", "patient", "book", "--datetime", "2099-01-31T14:30", "--reason", "Cough", "--confirm-payment")
	require.NoError(t, err)
	bob, err := h.session.Current()
	require.NoError(t, err)

	h.login(t, "admin@medf.test", model.RoleAdmin)
	out, err := h.exec(t, "", "admin", "dashboard")
	require.NoError(t, err)
	assert.Contains(t, out, "Users: 4  Appointments: 1  Pending: 1  Prescriptions: 0")

	_, err = h.exec(t, "no\n", "admin", "delete-user", bob.ID)
	require.NoError(t, err)
	snap, err := h.backend.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Len(t, snap.Users, 4)

	out, err = h.exec(t, "", "admin", "delete-user", bob.ID, "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "User deleted successfully")
	assert.Contains(t, out, "Users: 3  Appointments: 0  Pending: 0  Prescriptions: 0")
}
