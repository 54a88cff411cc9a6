package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jwalitptl/medconsult-api/internal/dashboard"
	"github.com/jwalitptl/medconsult-api/internal/model"
)

var (
	colorPrimary = lipgloss.Color("#0B5ED7")
	colorSuccess = lipgloss.Color("#10B981")
	colorWarning = lipgloss.Color("#F59E0B")
	colorDanger  = lipgloss.Color("#EF4444")
	colorMuted   = lipgloss.Color("#6B7280")

	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorPrimary)
	sectionStyle = lipgloss.NewStyle().Bold(true).MarginTop(1)
	successStyle = lipgloss.NewStyle().Foreground(colorSuccess).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(colorWarning).Bold(true)
	dangerStyle  = lipgloss.NewStyle().Foreground(colorDanger).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorMuted)
	cardStyle    = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderLeft(true).
			BorderForeground(colorPrimary).
			PaddingLeft(1)
)

func statusStyle(status model.AppointmentStatus) lipgloss.Style {
	switch status {
	case model.AppointmentStatusPending:
		return warningStyle
	case model.AppointmentStatusApproved, model.AppointmentStatusCompleted:
		return successStyle
	case model.AppointmentStatusRejected:
		return dangerStyle
	default:
		return mutedStyle
	}
}

func success(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintln(w, successStyle.Render("✓ ")+fmt.Sprintf(format, args...))
}

func warn(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintln(w, warningStyle.Render("⚠ ")+fmt.Sprintf(format, args...))
}

func header(w io.Writer, title string, user model.User) {
	line := titleStyle.Render(title)
	if user.Name != "" {
		line += "  " + mutedStyle.Render(user.Name+" <"+user.Email+">")
	}
	fmt.Fprintln(w, line)
}

func section(w io.Writer, title string) {
	fmt.Fprintln(w, sectionStyle.Render(title))
}

func empty(w io.Writer, msg string) {
	fmt.Fprintln(w, mutedStyle.Render("  "+msg))
}

func card(w io.Writer, lines ...string) {
	fmt.Fprintln(w, cardStyle.Render(strings.Join(lines, "\n")))
}

func displayTime(dt string) string {
	return strings.Replace(dt, "T", " ", 1)
}

func renderPatient(w io.Writer, view dashboard.PatientView) {
	header(w, "Patient Dashboard", view.User)

	section(w, "Doctors")
	if len(view.Doctors) == 0 {
		empty(w, "No doctors available")
	}
	for _, d := range view.Doctors {
		fmt.Fprintf(w, "  %s  %s (%s)\n", mutedStyle.Render(d.ID), d.Name, d.Email)
	}

	section(w, "My Appointments")
	if len(view.Appointments) == 0 {
		empty(w, "No appointments yet")
	}
	for _, a := range view.Appointments {
		lines := []string{
			fmt.Sprintf("%s  %s", a.ID, statusStyle(a.Status).Render(string(a.Status))),
			fmt.Sprintf("Doctor: %s", a.DoctorName),
			fmt.Sprintf("When:   %s", displayTime(a.Datetime)),
		}
		if a.JoinLink != "" {
			lines = append(lines, "Join:   "+a.JoinLink)
		}
		switch a.Rx {
		case dashboard.RxViewable, dashboard.RxMissing:
			lines = append(lines, fmt.Sprintf("Rx:     view with `medctl patient rx %s`", a.ID))
		case dashboard.RxUnavailable:
			lines = append(lines, dangerStyle.Render("Rx:     Currently not available"))
		}
		card(w, lines...)
	}
}

func renderDoctor(w io.Writer, view dashboard.DoctorView) {
	header(w, "Doctor Dashboard", view.User)

	section(w, "Pending Appointments")
	if len(view.Pending) == 0 {
		empty(w, "No pending appointments")
	}
	for _, a := range view.Pending {
		card(w,
			fmt.Sprintf("%s  %s", a.ID, warningStyle.Render("Pending Approval")),
			fmt.Sprintf("Patient: %s", a.PatientName),
			fmt.Sprintf("When:    %s", displayTime(a.Datetime)),
			fmt.Sprintf("Reason:  %s", a.Reason),
		)
	}

	section(w, "History")
	if len(view.History) == 0 {
		empty(w, "No approved/completed/rejected appointments")
	}
	for _, a := range view.History {
		lines := []string{
			fmt.Sprintf("%s  %s", a.ID, statusStyle(a.Status).Render(string(a.Status))),
			fmt.Sprintf("Patient: %s", a.PatientName),
			fmt.Sprintf("When:    %s", displayTime(a.Datetime)),
			fmt.Sprintf("Reason:  %s", a.Reason),
		}
		if a.VideoLink != nil {
			lines = append(lines, "Video:   "+*a.VideoLink)
		}
		if a.RxUnavailable {
			lines = append(lines, dangerStyle.Render("Pharmacy: medicine currently not available"))
		}
		if a.Status == model.AppointmentStatusRejected && a.RejectionReason != "" {
			lines = append(lines, "Rejected: "+a.RejectionReason)
		}
		var actions []string
		if a.CanPrescribe {
			actions = append(actions, "prescribe")
		}
		if a.CanComplete {
			actions = append(actions, "complete")
		}
		if len(actions) > 0 {
			lines = append(lines, mutedStyle.Render("Actions: "+strings.Join(actions, ", ")))
		}
		card(w, lines...)
	}
}

func renderPharmacist(w io.Writer, view dashboard.PharmacistView) {
	header(w, "Pharmacist Dashboard", model.User{})

	if len(view.Pending)+len(view.Dispensed) == 0 {
		empty(w, "No prescriptions available")
		return
	}

	render := func(p dashboard.PharmacistPrescription) {
		label := successStyle.Render(p.Label)
		switch p.Label {
		case "Pending":
			label = warningStyle.Render(p.Label)
		case "Unavailable":
			label = dangerStyle.Render(p.Label)
		}

		var actions []string
		if p.CanDispense {
			actions = append(actions, "dispense")
		}
		if p.CanUndo {
			actions = append(actions, "dispense (undo)")
		}
		if p.CanMarkUnavailable {
			actions = append(actions, "unavailable")
		}
		if p.CanMarkAvailable {
			actions = append(actions, "available")
		}

		card(w,
			fmt.Sprintf("%s  %s", p.ID, label),
			fmt.Sprintf("Patient: %s", p.PatientName),
			fmt.Sprintf("Doctor:  %s", p.DoctorName),
			fmt.Sprintf("Rx:      %s", p.Text),
			mutedStyle.Render("Actions: "+strings.Join(actions, ", ")),
		)
	}

	if len(view.Pending) > 0 {
		section(w, "Pending")
		for _, p := range view.Pending {
			render(p)
		}
	}
	if len(view.Dispensed) > 0 {
		section(w, "Dispensed")
		for _, p := range view.Dispensed {
			render(p)
		}
	}
}

func renderAdmin(w io.Writer, view dashboard.AdminView) {
	header(w, "Admin Dashboard", model.User{})

	s := view.Stats
	fmt.Fprintf(w, "Users: %d  Appointments: %d  Pending: %d  Prescriptions: %d\n",
		s.TotalUsers, s.TotalAppointments, s.PendingAppointments, s.TotalPrescriptions)

	section(w, "Users")
	if len(view.Users) == 0 {
		empty(w, "No users")
	}
	for _, u := range view.Users {
		fmt.Fprintf(w, "  %s  %-20s %-28s %s\n", mutedStyle.Render(u.ID), u.Name, u.Email, u.Role)
	}

	section(w, "Appointments")
	if len(view.Appointments) == 0 {
		empty(w, "No appointments")
	}
	for _, a := range view.Appointments {
		fmt.Fprintf(w, "  %s  %s → %s  %s  %s\n",
			mutedStyle.Render(a.ID), a.PatientName, a.DoctorName, displayTime(a.Datetime),
			statusStyle(a.Status).Render(string(a.Status)))
	}
}
