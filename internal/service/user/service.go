package user

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jwalitptl/medconsult-api/internal/model"
	"github.com/jwalitptl/medconsult-api/internal/store"
	apperrors "github.com/jwalitptl/medconsult-api/pkg/errors"
	"github.com/jwalitptl/medconsult-api/pkg/event"
	"github.com/jwalitptl/medconsult-api/pkg/logger"
	"github.com/jwalitptl/medconsult-api/pkg/security"
	"github.com/jwalitptl/medconsult-api/pkg/validator"
)

// DemoPassword is the password of every seeded account.
const DemoPassword = "Test@1234"

// DemoAccounts are created by Seed on an empty users collection.
var DemoAccounts = []model.CreateUserRequest{
	{Name: "Bob Patient", Email: "bob@medf.test", Password: DemoPassword, Role: model.RolePatient},
	{Name: "Alice Doctor", Email: "alice@medf.test", Password: DemoPassword, Role: model.RoleDoctor},
	{Name: "John Pharmacist", Email: "john@medf.test", Password: DemoPassword, Role: model.RolePharmacist},
	{Name: "Admin User", Email: "admin@medf.test", Password: DemoPassword, Role: model.RoleAdmin},
}

type UserServicer interface {
	CreateUser(ctx context.Context, req model.CreateUserRequest) (*model.User, error)
	GetUser(ctx context.Context, id string) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)
	ListByRole(ctx context.Context, role model.Role) ([]model.User, error)
	Authenticate(ctx context.Context, req model.LoginRequest) (*model.User, error)
	DeleteUser(ctx context.Context, id string) error
}

type Service struct {
	store     *store.Store
	hasher    security.PasswordHasher
	validator validator.Validator
	publisher event.Publisher
	logger    *logger.Logger
	now       func() time.Time

	// dummyHash is compared against when no account matches a login, so
	// unknown emails cost the same bcrypt work as known ones.
	dummyOnce sync.Once
	dummyHash string
}

// unknownUserPassword only feeds dummyHash; no account ever holds it.
const unknownUserPassword = "Unknown@User1"

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(st *store.Store, hasher security.PasswordHasher, publisher event.Publisher, log *logger.Logger, opts ...Option) *Service {
	if publisher == nil {
		publisher = event.NopPublisher{}
	}
	if log == nil {
		log = logger.Nop()
	}
	if hasher == nil {
		hasher = security.NewBcryptHasher(0)
	}
	s := &Service{
		store:     st,
		hasher:    hasher,
		validator: validator.New(),
		publisher: publisher,
		logger:    log,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) CreateUser(ctx context.Context, req model.CreateUserRequest) (*model.User, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	var created model.User
	err = s.store.Atomically(ctx, func() error {
		users, err := s.store.Users.LoadAll(ctx)
		if err != nil {
			return err
		}
		if _, found := findByEmail(users, req.Email); found {
			return apperrors.Conflict("Email already exists")
		}

		created = model.User{
			ID:           model.NewID(model.UserIDPrefix),
			Name:         req.Name,
			Email:        req.Email,
			PasswordHash: hash,
			Role:         req.Role,
			CreatedAt:    model.Millis(s.now()),
		}
		return s.store.Users.SaveAll(ctx, append(users, created))
	}, store.Users)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("User created", "user_id", created.ID, "role", string(created.Role))
	event.Emit(ctx, s.publisher, s.logger, event.UserCreated, created.ID, created.Public(), nil)

	public := created.Public()
	return &public, nil
}

func (s *Service) GetUser(ctx context.Context, id string) (*model.User, error) {
	users, err := s.store.Users.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	for _, u := range users {
		if u.ID == id {
			public := u.Public()
			return &public, nil
		}
	}
	return nil, apperrors.NotFound("User", nil)
}

// FindByEmail returns the first user with exactly this email.
func (s *Service) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	users, err := s.store.Users.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	u, found := findByEmail(users, email)
	if !found {
		return nil, apperrors.NotFound("User", nil)
	}
	public := u.Public()
	return &public, nil
}

func (s *Service) ListUsers(ctx context.Context) ([]model.User, error) {
	return s.ListByRole(ctx, "")
}

// ListByRole lists users in collection order. An empty role lists everyone.
func (s *Service) ListByRole(ctx context.Context, role model.Role) ([]model.User, error) {
	if role != "" && !role.Valid() {
		return nil, apperrors.Validation(fmt.Sprintf("unknown role %q", role))
	}

	users, err := s.store.Users.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	result := make([]model.User, 0, len(users))
	for _, u := range users {
		if role == "" || u.Role == role {
			result = append(result, u.Public())
		}
	}
	return result, nil
}

// Authenticate resolves the user whose email, role and password all match.
// Every mismatch yields the same unauthorized error.
func (s *Service) Authenticate(ctx context.Context, req model.LoginRequest) (*model.User, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	users, err := s.store.Users.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to authenticate: %w", err)
	}

	var match *model.User
	for i := range users {
		if users[i].Email == req.Email && users[i].Role == req.Role {
			match = &users[i]
			break
		}
	}

	if match == nil {
		_ = s.hasher.Compare(s.unknownUserHash(), req.Password)
	} else if err := s.hasher.Compare(match.PasswordHash, req.Password); err == nil {
		public := match.Public()
		return &public, nil
	}

	s.logger.Debug("Login rejected", "email", req.Email, "role", string(req.Role))
	return nil, apperrors.Unauthorized(nil)
}

func (s *Service) unknownUserHash() string {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash(unknownUserPassword)
		if err != nil {
			s.logger.Error(err, "Failed to prepare login hash")
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}

// DeleteUser removes the user, every appointment where the user is patient or
// doctor, and every prescription whose appointment no longer exists. Deleting
// an unknown id succeeds without changes.
func (s *Service) DeleteUser(ctx context.Context, id string) error {
	var (
		removed      *model.User
		removedAppts int
		removedRx    int
	)

	err := s.store.Atomically(ctx, func() error {
		users, err := s.store.Users.LoadAll(ctx)
		if err != nil {
			return err
		}
		appts, err := s.store.Appointments.LoadAll(ctx)
		if err != nil {
			return err
		}
		prescs, err := s.store.Prescriptions.LoadAll(ctx)
		if err != nil {
			return err
		}

		keptUsers := make([]model.User, 0, len(users))
		for _, u := range users {
			if u.ID == id {
				u := u
				removed = &u
				continue
			}
			keptUsers = append(keptUsers, u)
		}

		keptAppts := make([]model.Appointment, 0, len(appts))
		remaining := make(map[string]struct{}, len(appts))
		for _, a := range appts {
			if a.Involves(id) {
				continue
			}
			keptAppts = append(keptAppts, a)
			remaining[a.ID] = struct{}{}
		}

		keptRx := make([]model.Prescription, 0, len(prescs))
		for _, p := range prescs {
			if _, ok := remaining[p.ApptID]; ok {
				keptRx = append(keptRx, p)
			}
		}

		removedAppts = len(appts) - len(keptAppts)
		removedRx = len(prescs) - len(keptRx)

		if err := s.store.Users.SaveAll(ctx, keptUsers); err != nil {
			return err
		}
		if err := s.store.Appointments.SaveAll(ctx, keptAppts); err != nil {
			return err
		}
		return s.store.Prescriptions.SaveAll(ctx, keptRx)
	}, store.Users, store.Appointments, store.Prescriptions)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	if removed == nil {
		return nil
	}

	s.logger.Info("User deleted",
		"user_id", id,
		"appointments_removed", removedAppts,
		"prescriptions_removed", removedRx)
	event.Emit(ctx, s.publisher, s.logger, event.UserDeleted, id, removed.Public(), nil)
	return nil
}

// Seed creates the demo accounts when no user exists yet.
func (s *Service) Seed(ctx context.Context) error {
	users, err := s.store.Users.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to seed users: %w", err)
	}
	if len(users) > 0 {
		return nil
	}

	for _, req := range DemoAccounts {
		if _, err := s.CreateUser(ctx, req); err != nil {
			if apperrors.Is(err, apperrors.ErrConflict) {
				continue
			}
			return fmt.Errorf("failed to seed %s: %w", req.Email, err)
		}
	}

	s.logger.Info("Demo data seeded", "users", len(DemoAccounts))
	return nil
}

func findByEmail(users []model.User, email string) (model.User, bool) {
	for _, u := range users {
		if u.Email == email {
			return u, true
		}
	}
	return model.User{}, false
}

var _ UserServicer = (*Service)(nil)
