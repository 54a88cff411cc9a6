// Package cli is the medctl command-line front end: login, registration and
// one dashboard per role.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jwalitptl/medconsult-api/internal/dashboard"
	"github.com/jwalitptl/medconsult-api/internal/model"
	"github.com/jwalitptl/medconsult-api/internal/session"
	apperrors "github.com/jwalitptl/medconsult-api/pkg/errors"
	"github.com/jwalitptl/medconsult-api/pkg/validator"
)

type App struct {
	settings Settings
	session  session.Session
	backend  Backend
	open     func(ctx context.Context, s Settings) (Backend, error)
	in       *bufio.Reader
	out      io.Writer
}

type Option func(*App)

func WithBackend(b Backend) Option {
	return func(a *App) { a.backend = b }
}

func WithSession(s session.Session) Option {
	return func(a *App) { a.session = s }
}

func WithIO(in io.Reader, out io.Writer) Option {
	return func(a *App) {
		a.in = bufio.NewReader(in)
		a.out = out
	}
}

func New(settings Settings, opts ...Option) *App {
	a := &App{
		settings: settings,
		open:     OpenBackend,
		in:       bufio.NewReader(os.Stdin),
		out:      os.Stdout,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Execute runs one command line and releases the backend afterwards.
func (a *App) Execute(ctx context.Context, args []string) error {
	cmd := a.Command()
	cmd.SetArgs(args)
	defer a.Close()
	return cmd.ExecuteContext(ctx)
}

func (a *App) Close() error {
	if a.backend == nil {
		return nil
	}
	return a.backend.Close()
}

func (a *App) Command() *cobra.Command {
	root := &cobra.Command{
		Use:   "medctl",
		Short: "MedConsult - book and manage online medical consultations",
		Long: `medctl is the terminal front end of MedConsult.

Patients book paid consultations with a doctor, doctors approve them and
write prescriptions, pharmacists dispense, and admins manage everything.
It talks to a running API (--mode api) or keeps data in local files
(--mode local).`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := a.settings.Validate(); err != nil {
				return err
			}
			if a.session == nil {
				path := a.settings.SessionFile
				if path == "" {
					var err error
					if path, err = session.DefaultPath(); err != nil {
						return err
					}
				}
				a.session = session.NewFileSession(path)
			}
			return nil
		},
	}
	root.SetOut(a.out)

	root.PersistentFlags().StringVar(&a.settings.Mode, "mode", a.settings.Mode, "Backend: api or local")
	root.PersistentFlags().StringVar(&a.settings.APIURL, "api-url", a.settings.APIURL, "API base URL (api mode)")
	root.PersistentFlags().StringVar(&a.settings.DataDir, "data-dir", a.settings.DataDir, "Data directory (local mode)")
	root.PersistentFlags().StringVar(&a.settings.SessionFile, "session-file", a.settings.SessionFile, "Where the signed-in user is kept")

	root.AddCommand(
		a.registerCmd(),
		a.loginCmd(),
		a.logoutCmd(),
		a.whoamiCmd(),
		a.patientCmd(),
		a.doctorCmd(),
		a.pharmacistCmd(),
		a.adminCmd(),
	)
	return root
}

func (a *App) client(ctx context.Context) (Backend, error) {
	if a.backend != nil {
		return a.backend, nil
	}
	b, err := a.open(ctx, a.settings)
	if err != nil {
		return nil, err
	}
	a.backend = b
	return b, nil
}

// requireRole returns the signed-in user if they hold role.
func (a *App) requireRole(role model.Role) (*model.User, error) {
	user, err := a.session.Current()
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("not logged in; run `medctl login --role %s`", role)
	}
	if user.Role != role {
		return nil, fmt.Errorf("signed in as %s, not %s", user.Role, role)
	}
	return user, nil
}

// confirm asks a y/N question on the input stream.
func (a *App) confirm(question string) bool {
	fmt.Fprintf(a.out, "%s [y/N]: ", question)
	answer, _ := a.in.ReadString('\n')
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

// prompt reads one line from the input stream.
func (a *App) prompt(question string) string {
	fmt.Fprintf(a.out, "%s: ", question)
	answer, _ := a.in.ReadString('\n')
	return strings.TrimSpace(answer)
}

// refresh reloads every collection and renders the dashboard of user's role.
func (a *App) refresh(ctx context.Context, user model.User) error {
	b, err := a.client(ctx)
	if err != nil {
		return err
	}
	snap, err := b.Snapshot(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintln(a.out)
	switch user.Role {
	case model.RolePatient:
		renderPatient(a.out, dashboard.Patient(snap, user))
	case model.RoleDoctor:
		renderDoctor(a.out, dashboard.Doctor(snap, user))
	case model.RolePharmacist:
		renderPharmacist(a.out, dashboard.Pharmacist(snap))
	case model.RoleAdmin:
		renderAdmin(a.out, dashboard.Admin(snap))
	}
	return nil
}

func (a *App) registerCmd() *cobra.Command {
	var req model.CreateUserRequest
	var role string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a new account",
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Role = model.Role(role)
			if err := validator.New().Validate(req); err != nil {
				return err
			}

			b, err := a.client(cmd.Context())
			if err != nil {
				return err
			}
			if _, err := b.Register(cmd.Context(), req); err != nil {
				return err
			}
			success(a.out, "Registration successful! You can now login.")
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Name, "name", "", "Full name (letters and spaces)")
	cmd.Flags().StringVar(&req.Email, "email", "", "Email address")
	cmd.Flags().StringVar(&req.Password, "password", "", "Password (8+ chars, upper, lower, digit, one of "+validator.PasswordSpecials+")")
	cmd.Flags().StringVar(&role, "role", string(model.RolePatient), "patient, doctor, pharmacist or admin")
	return cmd
}

func (a *App) loginCmd() *cobra.Command {
	var req model.LoginRequest
	var role string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to a role dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Role = model.Role(role)
			if !req.Role.Valid() {
				return fmt.Errorf("unknown role %q", role)
			}
			if req.Password == "" {
				req.Password = a.prompt("Password")
			}

			b, err := a.client(cmd.Context())
			if err != nil {
				return err
			}
			user, err := b.Login(cmd.Context(), req)
			if err != nil {
				return err
			}
			if err := a.session.Set(*user); err != nil {
				return err
			}

			success(a.out, "Welcome, %s", user.Name)
			return a.refresh(cmd.Context(), *user)
		},
	}

	cmd.Flags().StringVar(&req.Email, "email", "", "Email address")
	cmd.Flags().StringVar(&req.Password, "password", "", "Password (prompted when omitted)")
	cmd.Flags().StringVar(&role, "role", "", "patient, doctor, pharmacist or admin")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("role")
	return cmd
}

func (a *App) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.session.Clear(); err != nil {
				return err
			}
			success(a.out, "Logged out")
			return nil
		},
	}
}

func (a *App) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := a.session.Current()
			if err != nil {
				return err
			}
			if user == nil {
				fmt.Fprintln(a.out, "Not logged in")
				return nil
			}
			fmt.Fprintf(a.out, "%s <%s> (%s)\n", user.Name, user.Email, user.Role)
			return nil
		},
	}
}

// dashboardCmd renders the dashboard of role for the signed-in user.
func (a *App) dashboardCmd(role model.Role) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show the " + string(role) + " dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := a.requireRole(role)
			if err != nil {
				return err
			}
			return a.refresh(cmd.Context(), *user)
		},
	}
}

// action wraps a mutation on one record id: it checks the role, runs fn and
// re-renders the dashboard.
func (a *App) action(role model.Role, use, short string, fn func(ctx context.Context, b Backend, id string) (string, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := a.requireRole(role)
			if err != nil {
				return err
			}
			b, err := a.client(cmd.Context())
			if err != nil {
				return err
			}
			msg, err := fn(cmd.Context(), b, args[0])
			if err != nil {
				return err
			}
			if msg != "" {
				success(a.out, "%s", msg)
			}
			return a.refresh(cmd.Context(), *user)
		},
	}
}

// Execute runs medctl with the process arguments and returns the exit code.
func Execute() int {
	settings, err := LoadSettings()
	if err != nil {
		fmt.Fprintln(os.Stderr, dangerStyle.Render("✗ ")+err.Error())
		return 1
	}

	if err := New(settings).Execute(context.Background(), os.Args[1:]); err != nil {
		msg := err.Error()
		if appErr, ok := apperrors.As(err); ok {
			msg = appErr.Message
		}
		fmt.Fprintln(os.Stderr, dangerStyle.Render("✗ ")+msg)
		return 1
	}
	return 0
}
