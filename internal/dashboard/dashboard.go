// Package dashboard derives what each role sees from a full snapshot of the
// three collections. Views are rebuilt from scratch after every change.
package dashboard

import (
	"github.com/jwalitptl/medconsult-api/internal/model"
)

// DeletedName stands in for a user that no longer exists.
const DeletedName = "(deleted)"

type Snapshot struct {
	Users         []model.User
	Appointments  []model.Appointment
	Prescriptions []model.Prescription
}

func (s Snapshot) user(id string) (model.User, bool) {
	for _, u := range s.Users {
		if u.ID == id {
			return u, true
		}
	}
	return model.User{}, false
}

func (s Snapshot) userName(id string) string {
	if u, ok := s.user(id); ok {
		return u.Name
	}
	return DeletedName
}

func (s Snapshot) appointment(id string) (model.Appointment, bool) {
	for _, a := range s.Appointments {
		if a.ID == id {
			return a, true
		}
	}
	return model.Appointment{}, false
}

func (s Snapshot) prescription(id string) (model.Prescription, bool) {
	for _, p := range s.Prescriptions {
		if p.ID == id {
			return p, true
		}
	}
	return model.Prescription{}, false
}

// RxState is what a patient can do with an appointment's prescription.
type RxState string

const (
	RxNone        RxState = ""
	RxViewable    RxState = "viewable"
	RxUnavailable RxState = "unavailable"
	// RxMissing means the appointment points at a deleted prescription.
	RxMissing RxState = "missing"
)

type PatientAppointment struct {
	model.Appointment
	DoctorName string
	JoinLink   string
	Rx         RxState
	RxText     string
}

type PatientView struct {
	User         model.User
	Doctors      []model.User
	Appointments []PatientAppointment
}

func Patient(snap Snapshot, user model.User) PatientView {
	view := PatientView{
		User:         user,
		Doctors:      []model.User{},
		Appointments: []PatientAppointment{},
	}

	for _, u := range snap.Users {
		if u.Role == model.RoleDoctor {
			view.Doctors = append(view.Doctors, u.Public())
		}
	}

	for _, a := range snap.Appointments {
		if a.PatientID != user.ID {
			continue
		}
		pa := PatientAppointment{
			Appointment: a,
			DoctorName:  snap.userName(a.DoctorID),
		}
		if a.VideoLink != nil {
			pa.JoinLink = *a.VideoLink
		}
		if a.PrescriptionID != nil {
			p, ok := snap.prescription(*a.PrescriptionID)
			switch {
			case !ok:
				pa.Rx = RxMissing
			case !p.Available:
				pa.Rx = RxUnavailable
			default:
				pa.Rx = RxViewable
				pa.RxText = p.Text
			}
		}
		view.Appointments = append(view.Appointments, pa)
	}
	return view
}

type DoctorAppointment struct {
	model.Appointment
	PatientName   string
	RxUnavailable bool
	CanApprove    bool
	CanComplete   bool
	CanPrescribe  bool
}

type DoctorView struct {
	User    model.User
	Pending []DoctorAppointment
	// History holds approved, completed and rejected appointments.
	History []DoctorAppointment
}

func Doctor(snap Snapshot, user model.User) DoctorView {
	view := DoctorView{
		User:    user,
		Pending: []DoctorAppointment{},
		History: []DoctorAppointment{},
	}

	for _, a := range snap.Appointments {
		if a.DoctorID != user.ID {
			continue
		}
		da := DoctorAppointment{
			Appointment:  a,
			PatientName:  snap.userName(a.PatientID),
			CanApprove:   a.Status == model.AppointmentStatusPending,
			CanComplete:  a.Status == model.AppointmentStatusApproved,
			CanPrescribe: a.Status == model.AppointmentStatusApproved || a.Status == model.AppointmentStatusCompleted,
		}
		if a.PrescriptionID != nil {
			if p, ok := snap.prescription(*a.PrescriptionID); ok && !p.Available {
				da.RxUnavailable = true
			}
		}

		switch a.Status {
		case model.AppointmentStatusPending:
			view.Pending = append(view.Pending, da)
		case model.AppointmentStatusApproved, model.AppointmentStatusCompleted, model.AppointmentStatusRejected:
			view.History = append(view.History, da)
		}
	}
	return view
}

type PharmacistPrescription struct {
	model.Prescription
	PatientName string
	DoctorName  string
	// Label is Pending, Dispensed or Unavailable.
	Label              string
	CanDispense        bool
	CanUndo            bool
	CanMarkUnavailable bool
	CanMarkAvailable   bool
}

type PharmacistView struct {
	Pending   []PharmacistPrescription
	Dispensed []PharmacistPrescription
}

func Pharmacist(snap Snapshot) PharmacistView {
	view := PharmacistView{
		Pending:   []PharmacistPrescription{},
		Dispensed: []PharmacistPrescription{},
	}

	for _, p := range snap.Prescriptions {
		pp := PharmacistPrescription{
			Prescription: p,
			PatientName:  DeletedName,
			DoctorName:   DeletedName,
		}
		if a, ok := snap.appointment(p.ApptID); ok {
			pp.PatientName = snap.userName(a.PatientID)
			pp.DoctorName = snap.userName(a.DoctorID)
		}

		switch {
		case !p.Available:
			pp.Label = "Unavailable"
		case p.Dispensed:
			pp.Label = "Dispensed"
		default:
			pp.Label = "Pending"
		}

		if p.Dispensed {
			pp.CanUndo = true
			view.Dispensed = append(view.Dispensed, pp)
			continue
		}
		pp.CanDispense = p.Available
		pp.CanMarkUnavailable = p.Available
		pp.CanMarkAvailable = !p.Available
		view.Pending = append(view.Pending, pp)
	}
	return view
}

type Stats struct {
	TotalUsers          int
	TotalAppointments   int
	PendingAppointments int
	TotalPrescriptions  int
}

type AdminAppointment struct {
	model.Appointment
	PatientName string
	DoctorName  string
}

type AdminView struct {
	Users        []model.User
	Appointments []AdminAppointment
	Stats        Stats
}

func Admin(snap Snapshot) AdminView {
	view := AdminView{
		Users:        make([]model.User, 0, len(snap.Users)),
		Appointments: make([]AdminAppointment, 0, len(snap.Appointments)),
		Stats: Stats{
			TotalUsers:         len(snap.Users),
			TotalAppointments:  len(snap.Appointments),
			TotalPrescriptions: len(snap.Prescriptions),
		},
	}

	for _, u := range snap.Users {
		view.Users = append(view.Users, u.Public())
	}
	for _, a := range snap.Appointments {
		if a.Status == model.AppointmentStatusPending {
			view.Stats.PendingAppointments++
		}
		view.Appointments = append(view.Appointments, AdminAppointment{
			Appointment: a,
			PatientName: snap.userName(a.PatientID),
			DoctorName:  snap.userName(a.DoctorID),
		})
	}
	return view
}
