package user

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/medconsult-api/internal/model"
	"github.com/jwalitptl/medconsult-api/internal/store"
	apperrors "github.com/jwalitptl/medconsult-api/pkg/errors"
	"github.com/jwalitptl/medconsult-api/pkg/event"
	"github.com/jwalitptl/medconsult-api/pkg/security"
)

func setupService(t *testing.T) (*Service, *store.Store, *event.Recorder) {
	t.Helper()
	st := store.New(store.NewMemoryBackend(), nil, nil)
	rec := &event.Recorder{}
	clock := time.Date(2030, 1, 1, 9, 0, 0, 0, time.UTC)
	svc := NewService(st, security.NewBcryptHasher(4), rec, nil, WithClock(func() time.Time { return clock }))
	return svc, st, rec
}

func bob() model.CreateUserRequest {
	return model.CreateUserRequest{Name: "Bob Patient", Email: "bob@medf.test", Password: "Bob@12345", Role: model.RolePatient}
}

func TestCreateUser(t *testing.T) {
	svc, st, rec := setupService(t)
	ctx := context.Background()

	user, err := svc.CreateUser(ctx, bob())
	require.NoError(t, err)

	assert.Contains(t, user.ID, model.UserIDPrefix)
	assert.Equal(t, "bob@medf.test", user.Email)
	assert.Empty(t, user.PasswordHash)
	assert.Equal(t, time.Date(2030, 1, 1, 9, 0, 0, 0, time.UTC).UnixMilli(), user.CreatedAt)

	stored, err := st.Users.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.NotEqual(t, "Bob@12345", stored[0].PasswordHash)
	assert.NotEmpty(t, stored[0].PasswordHash)

	assert.Equal(t, []event.Type{event.UserCreated}, rec.Types())
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, bob())
	require.NoError(t, err)

	dup := bob()
	dup.Name = "Other Bob"
	_, err = svc.CreateUser(ctx, dup)

	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrConflict))
	appErr, _ := apperrors.As(err)
	assert.Equal(t, "Email already exists", appErr.Message)
}

func TestCreateUser_IDsAreUnique(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	seen := map[string]bool{}
	for _, email := range []string{"a@x.io", "b@x.io", "c@x.io", "d@x.io"} {
		req := bob()
		req.Email = email
		u, err := svc.CreateUser(ctx, req)
		require.NoError(t, err)
		assert.False(t, seen[u.ID])
		seen[u.ID] = true
	}
}

func TestCreateUser_Validation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*model.CreateUserRequest)
		message string
	}{
		{
			name:    "missing name",
			mutate:  func(r *model.CreateUserRequest) { r.Name = "" },
			message: "Missing required fields",
		},
		{
			name:    "missing role",
			mutate:  func(r *model.CreateUserRequest) { r.Role = "" },
			message: "Missing required fields",
		},
		{
			name:    "digits in name",
			mutate:  func(r *model.CreateUserRequest) { r.Name = "Bob 2" },
			message: "name must contain only letters and spaces",
		},
		{
			name:    "bad email",
			mutate:  func(r *model.CreateUserRequest) { r.Email = "bob@medf" },
			message: "email must be a valid address",
		},
		{
			name:    "weak password",
			mutate:  func(r *model.CreateUserRequest) { r.Password = "password" },
			message: "one uppercase letter",
		},
		{
			name:    "short multibyte password",
			mutate:  func(r *model.CreateUserRequest) { r.Password = "Ab1@ééé" },
			message: "at least 8 characters",
		},
		{
			name:    "password beyond bcrypt limit",
			mutate:  func(r *model.CreateUserRequest) { r.Password = "Aa1@" + strings.Repeat("x", 80) },
			message: "at most 72 bytes",
		},
		{
			name:    "unknown role",
			mutate:  func(r *model.CreateUserRequest) { r.Role = "nurse" },
			message: "role must be one of",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, st, _ := setupService(t)
			req := bob()
			tt.mutate(&req)

			_, err := svc.CreateUser(context.Background(), req)

			require.Error(t, err)
			assert.True(t, apperrors.Is(err, apperrors.ErrBadRequest))
			assert.Contains(t, err.Error(), tt.message)

			users, _ := st.Users.LoadAll(context.Background())
			assert.Empty(t, users)
		})
	}
}

func TestFindByEmail(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	created, err := svc.CreateUser(ctx, bob())
	require.NoError(t, err)

	found, err := svc.FindByEmail(ctx, "bob@medf.test")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
	assert.Empty(t, found.PasswordHash)

	_, err = svc.FindByEmail(ctx, "nobody@medf.test")
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}

func TestListByRole(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()
	require.NoError(t, svc.Seed(ctx))

	doctors, err := svc.ListByRole(ctx, model.RoleDoctor)
	require.NoError(t, err)
	require.Len(t, doctors, 1)
	assert.Equal(t, "Alice Doctor", doctors[0].Name)

	all, err := svc.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 4)
	for _, u := range all {
		assert.Empty(t, u.PasswordHash)
	}

	_, err = svc.ListByRole(ctx, "nurse")
	assert.True(t, apperrors.Is(err, apperrors.ErrBadRequest))
}

func TestAuthenticate(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	created, err := svc.CreateUser(ctx, bob())
	require.NoError(t, err)

	user, err := svc.Authenticate(ctx, model.LoginRequest{Email: "bob@medf.test", Password: "Bob@12345", Role: model.RolePatient})
	require.NoError(t, err)
	assert.Equal(t, created.ID, user.ID)

	for name, req := range map[string]model.LoginRequest{
		"wrong password": {Email: "bob@medf.test", Password: "Bob@99999", Role: model.RolePatient},
		"wrong role":     {Email: "bob@medf.test", Password: "Bob@12345", Role: model.RoleDoctor},
		"unknown email":  {Email: "eve@medf.test", Password: "Bob@12345", Role: model.RolePatient},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Authenticate(ctx, req)
			require.Error(t, err)
			assert.True(t, apperrors.Is(err, apperrors.ErrUnauthorized))
		})
	}

	_, err = svc.Authenticate(ctx, model.LoginRequest{Email: "bob@medf.test"})
	assert.True(t, apperrors.Is(err, apperrors.ErrBadRequest))
}

// countingHasher records how many password comparisons were made.
type countingHasher struct {
	security.PasswordHasher
	compares int
}

func (h *countingHasher) Compare(hashed, password string) error {
	h.compares++
	return h.PasswordHasher.Compare(hashed, password)
}

func TestAuthenticate_ComparesOnceForEveryOutcome(t *testing.T) {
	hasher := &countingHasher{PasswordHasher: security.NewBcryptHasher(4)}
	svc := NewService(store.New(store.NewMemoryBackend(), nil, nil), hasher, nil, nil)
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, bob())
	require.NoError(t, err)

	for name, req := range map[string]model.LoginRequest{
		"match":          {Email: "bob@medf.test", Password: "Bob@12345", Role: model.RolePatient},
		"wrong password": {Email: "bob@medf.test", Password: "Bob@99999", Role: model.RolePatient},
		"wrong role":     {Email: "bob@medf.test", Password: "Bob@12345", Role: model.RoleDoctor},
		"unknown email":  {Email: "eve@medf.test", Password: "Bob@12345", Role: model.RolePatient},
	} {
		t.Run(name, func(t *testing.T) {
			hasher.compares = 0
			_, _ = svc.Authenticate(ctx, req)
			assert.Equal(t, 1, hasher.compares)
		})
	}

	_, err = svc.Authenticate(ctx, model.LoginRequest{Email: "eve@medf.test", Password: unknownUserPassword, Role: model.RolePatient})
	assert.True(t, apperrors.Is(err, apperrors.ErrUnauthorized))
}

func TestDeleteUser_Cascades(t *testing.T) {
	svc, st, rec := setupService(t)
	ctx := context.Background()

	require.NoError(t, st.Users.SaveAll(ctx, []model.User{
		{ID: "user_p", Name: "Pat", Role: model.RolePatient},
		{ID: "user_d", Name: "Doc", Role: model.RoleDoctor},
		{ID: "user_d2", Name: "Doc Two", Role: model.RoleDoctor},
		{ID: "user_q", Name: "Quinn", Role: model.RolePatient},
	}))
	require.NoError(t, st.Appointments.SaveAll(ctx, []model.Appointment{
		{ID: "appt_1", PatientID: "user_p", DoctorID: "user_d"},
		{ID: "appt_2", PatientID: "user_q", DoctorID: "user_d"},
		{ID: "appt_3", PatientID: "user_q", DoctorID: "user_d2"},
		{ID: "appt_4", PatientID: "user_p", DoctorID: "user_d2"},
	}))
	require.NoError(t, st.Prescriptions.SaveAll(ctx, []model.Prescription{
		{ID: "presc_1", ApptID: "appt_1"},
		{ID: "presc_2", ApptID: "appt_2"},
		{ID: "presc_3", ApptID: "appt_3"},
		{ID: "presc_orphan", ApptID: "appt_gone"},
	}))

	require.NoError(t, svc.DeleteUser(ctx, "user_d"))

	users, _ := st.Users.LoadAll(ctx)
	appts, _ := st.Appointments.LoadAll(ctx)
	prescs, _ := st.Prescriptions.LoadAll(ctx)

	assert.Len(t, users, 3)
	for _, u := range users {
		assert.NotEqual(t, "user_d", u.ID)
	}
	assert.Equal(t, []string{"appt_3", "appt_4"}, apptIDs(appts))
	for _, a := range appts {
		assert.False(t, a.Involves("user_d"))
	}
	require.Len(t, prescs, 1)
	assert.Equal(t, "presc_3", prescs[0].ID)

	assert.Equal(t, []event.Type{event.UserDeleted}, rec.Types())
}

func TestDeleteUser_UnknownIDIsNoop(t *testing.T) {
	svc, st, rec := setupService(t)
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, bob())
	require.NoError(t, err)

	require.NoError(t, svc.DeleteUser(ctx, "user_missing"))

	users, _ := st.Users.LoadAll(ctx)
	assert.Len(t, users, 1)
	assert.Equal(t, []event.Type{event.UserCreated}, rec.Types())
}

func TestSeed(t *testing.T) {
	svc, st, _ := setupService(t)
	ctx := context.Background()

	require.NoError(t, svc.Seed(ctx))
	require.NoError(t, svc.Seed(ctx))

	users, err := st.Users.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, users, len(DemoAccounts))

	for _, demo := range DemoAccounts {
		u, err := svc.Authenticate(ctx, model.LoginRequest{Email: demo.Email, Password: DemoPassword, Role: demo.Role})
		require.NoError(t, err)
		assert.Equal(t, demo.Name, u.Name)
	}
}

func apptIDs(appts []model.Appointment) []string {
	ids := make([]string, 0, len(appts))
	for _, a := range appts {
		ids = append(ids, a.ID)
	}
	return ids
}
