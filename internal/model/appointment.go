package model

type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "pending"
	AppointmentStatusApproved  AppointmentStatus = "approved"
	AppointmentStatusCompleted AppointmentStatus = "completed"
	AppointmentStatusRejected  AppointmentStatus = "rejected"
)

// Valid reports whether s is a known status.
func (s AppointmentStatus) Valid() bool {
	switch s {
	case AppointmentStatusPending, AppointmentStatusApproved,
		AppointmentStatusCompleted, AppointmentStatusRejected:
		return true
	}
	return false
}

// Appointment is a record of the appointments collection. Datetime is the
// client-local date-time string exactly as it was booked.
type Appointment struct {
	ID              string            `json:"id"`
	PatientID       string            `json:"patientId"`
	DoctorID        string            `json:"doctorId"`
	Datetime        string            `json:"datetime"`
	Reason          string            `json:"reason"`
	Status          AppointmentStatus `json:"status"`
	Paid            bool              `json:"paid"`
	VideoLink       *string           `json:"videoLink"`
	PrescriptionID  *string           `json:"prescriptionId"`
	RejectionReason string            `json:"rejectionReason"`
	CreatedAt       int64             `json:"createdAt"`
}

// Involves reports whether userID is the patient or the doctor.
func (a Appointment) Involves(userID string) bool {
	return a.PatientID == userID || a.DoctorID == userID
}

type CreateAppointmentRequest struct {
	PatientID string `json:"patientId" validate:"required"`
	DoctorID  string `json:"doctorId" validate:"required"`
	Datetime  string `json:"datetime" validate:"required"`
	Reason    string `json:"reason" validate:"required"`
}

// UpdateAppointmentRequest overwrites only the fields that are present.
// videoLink and prescriptionId may also be sent as null to clear them.
// Identity fields (id, patientId, doctorId, createdAt) are not updatable.
type UpdateAppointmentRequest struct {
	Datetime        *string            `json:"datetime"`
	Reason          *string            `json:"reason"`
	Status          *AppointmentStatus `json:"status"`
	Paid            *bool              `json:"paid"`
	VideoLink       NullableString     `json:"videoLink,omitzero"`
	PrescriptionID  NullableString     `json:"prescriptionId,omitzero"`
	RejectionReason *string            `json:"rejectionReason"`
}

type RejectAppointmentRequest struct {
	Reason string `json:"reason"`
}

type AppointmentFilters struct {
	PatientID string
	DoctorID  string
	Status    AppointmentStatus
}

// Match reports whether a passes every non-empty filter.
func (f AppointmentFilters) Match(a Appointment) bool {
	if f.PatientID != "" && a.PatientID != f.PatientID {
		return false
	}
	if f.DoctorID != "" && a.DoctorID != f.DoctorID {
		return false
	}
	if f.Status != "" && a.Status != f.Status {
		return false
	}
	return true
}
