package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jwalitptl/medconsult-api/internal/model"
	apperrors "github.com/jwalitptl/medconsult-api/pkg/errors"
)

// BookingFee is shown in the simulated payment confirmation.
const BookingFee = "₹500"

func (a *App) patientCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patient",
		Short: "Patient dashboard and booking",
	}
	cmd.AddCommand(
		a.dashboardCmd(model.RolePatient),
		a.bookCmd(),
		a.viewRxCmd(),
	)
	return cmd
}

func (a *App) bookCmd() *cobra.Command {
	var doctor, datetime, reason string
	var confirmPayment bool

	cmd := &cobra.Command{
		Use:   "book",
		Short: "Pay for and book an appointment",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			user, err := a.requireRole(model.RolePatient)
			if err != nil {
				return err
			}
			if datetime == "" || reason == "" {
				return apperrors.Validation("Please fill all fields")
			}

			b, err := a.client(ctx)
			if err != nil {
				return err
			}
			doctorID, err := a.resolveDoctor(ctx, b, doctor)
			if err != nil {
				return err
			}

			if !confirmPayment && !a.confirm(fmt.Sprintf("Simulate payment of %s and complete booking?", BookingFee)) {
				warn(a.out, "Booking cancelled")
				return nil
			}

			_, err = b.Book(ctx, model.CreateAppointmentRequest{
				PatientID: user.ID,
				DoctorID:  doctorID,
				Datetime:  datetime,
				Reason:    reason,
			})
			if err != nil {
				return err
			}
			success(a.out, "Appointment booked successfully!")
			return a.refresh(ctx, *user)
		},
	}

	cmd.Flags().StringVar(&doctor, "doctor", "", "Doctor id or email (defaults to the first doctor)")
	cmd.Flags().StringVar(&datetime, "datetime", "", "Future date and time, e.g. 2030-01-31T14:30")
	cmd.Flags().StringVar(&reason, "reason", "", "Symptoms or concerns")
	cmd.Flags().BoolVar(&confirmPayment, "confirm-payment", false, "Skip the payment confirmation prompt")
	return cmd
}

// resolveDoctor matches ref against doctor ids and emails. An empty ref picks
// the first doctor.
func (a *App) resolveDoctor(ctx context.Context, b Backend, ref string) (string, error) {
	snap, err := b.Snapshot(ctx)
	if err != nil {
		return "", err
	}
	for _, u := range snap.Users {
		if u.Role != model.RoleDoctor {
			continue
		}
		if ref == "" || u.ID == ref || u.Email == ref {
			return u.ID, nil
		}
	}
	if ref == "" {
		return "", apperrors.NotFound("Doctor", nil)
	}
	return "", apperrors.NotFound(fmt.Sprintf("Doctor %q", ref), nil)
}

func (a *App) viewRxCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rx <appointment-id>",
		Short: "Show the prescription of one of your appointments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			user, err := a.requireRole(model.RolePatient)
			if err != nil {
				return err
			}
			b, err := a.client(ctx)
			if err != nil {
				return err
			}

			snap, err := b.Snapshot(ctx)
			if err != nil {
				return err
			}
			var appt *model.Appointment
			for i := range snap.Appointments {
				if snap.Appointments[i].ID == args[0] && snap.Appointments[i].PatientID == user.ID {
					appt = &snap.Appointments[i]
				}
			}
			if appt == nil {
				return apperrors.NotFound("Appointment", nil)
			}
			if appt.PrescriptionID == nil {
				return apperrors.NotFound("Prescription", nil)
			}

			presc, err := b.GetPrescription(ctx, *appt.PrescriptionID)
			if err != nil {
				return err
			}
			if !presc.Available {
				warn(a.out, "Prescription currently not available")
				return nil
			}
			fmt.Fprintf(a.out, "Prescription:\n\n%s\n", presc.Text)
			return nil
		},
	}
}

func (a *App) doctorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Doctor dashboard and appointment workflow",
	}

	var reason string
	reject := a.action(model.RoleDoctor, "reject", "Reject a pending appointment",
		func(ctx context.Context, b Backend, id string) (string, error) {
			if _, err := b.Reject(ctx, id, reason); err != nil {
				return "", err
			}
			if reason != "" {
				return "Appointment rejected: " + reason, nil
			}
			return "Appointment rejected", nil
		})
	reject.Flags().StringVar(&reason, "reason", "", "Optional rejection reason")

	var text string
	prescribe := a.action(model.RoleDoctor, "prescribe", "Write a prescription for an appointment",
		func(ctx context.Context, b Backend, id string) (string, error) {
			if text == "" {
				text = a.prompt("Enter prescription text (medications, dosages, instructions)")
			}
			if text == "" {
				return "", nil
			}
			if _, err := b.WritePrescription(ctx, id, text); err != nil {
				return "", err
			}
			return "Prescription saved!", nil
		})
	prescribe.Flags().StringVar(&text, "text", "", "Prescription text (prompted when omitted)")

	cmd.AddCommand(
		a.dashboardCmd(model.RoleDoctor),
		a.action(model.RoleDoctor, "approve", "Approve a pending appointment and send the video link",
			func(ctx context.Context, b Backend, id string) (string, error) {
				appt, err := b.Approve(ctx, id)
				if err != nil {
					return "", err
				}
				return "Approved! Video link: " + *appt.VideoLink, nil
			}),
		reject,
		prescribe,
		a.action(model.RoleDoctor, "complete", "Mark an approved appointment completed",
			func(ctx context.Context, b Backend, id string) (string, error) {
				if _, err := b.Complete(ctx, id); err != nil {
					return "", err
				}
				return "Appointment marked as completed", nil
			}),
	)
	return cmd
}

func (a *App) pharmacistCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pharmacist",
		Short: "Pharmacist dashboard and dispensing",
	}
	cmd.AddCommand(
		a.dashboardCmd(model.RolePharmacist),
		a.action(model.RolePharmacist, "dispense", "Mark a prescription dispensed, or undo it",
			func(ctx context.Context, b Backend, id string) (string, error) {
				presc, err := b.ToggleDispensed(ctx, id)
				if err != nil {
					return "", err
				}
				if presc.Dispensed {
					return "Marked dispensed", nil
				}
				return "Dispensing undone", nil
			}),
		a.action(model.RolePharmacist, "unavailable", "Mark a prescription's medicine unavailable",
			func(ctx context.Context, b Backend, id string) (string, error) {
				_, err := b.MarkUnavailable(ctx, id)
				return "Marked unavailable", err
			}),
		a.action(model.RolePharmacist, "available", "Mark a prescription's medicine available again",
			func(ctx context.Context, b Backend, id string) (string, error) {
				_, err := b.MarkAvailable(ctx, id)
				return "Marked available", err
			}),
	)
	return cmd
}

func (a *App) adminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Admin dashboard and record management",
	}

	var yesUser, yesAppt bool
	deleteUser := a.action(model.RoleAdmin, "delete-user", "Delete a user with their appointments and prescriptions",
		func(ctx context.Context, b Backend, id string) (string, error) {
			if !yesUser && !a.confirm("Delete this user? This will also remove all their appointments and related data.") {
				return "", nil
			}
			if err := b.DeleteUser(ctx, id); err != nil {
				return "", err
			}
			return "User deleted successfully", nil
		})
	deleteUser.Flags().BoolVarP(&yesUser, "yes", "y", false, "Do not ask for confirmation")

	deleteAppt := a.action(model.RoleAdmin, "delete-appointment", "Delete an appointment and its prescriptions",
		func(ctx context.Context, b Backend, id string) (string, error) {
			if !yesAppt && !a.confirm("Delete this appointment?") {
				return "", nil
			}
			if err := b.DeleteAppointment(ctx, id); err != nil {
				return "", err
			}
			return "Appointment deleted", nil
		})
	deleteAppt.Flags().BoolVarP(&yesAppt, "yes", "y", false, "Do not ask for confirmation")

	cmd.AddCommand(
		a.dashboardCmd(model.RoleAdmin),
		deleteUser,
		deleteAppt,
	)
	return cmd
}
