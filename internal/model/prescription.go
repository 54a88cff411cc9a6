package model

// Prescription is a record of the prescriptions collection. Available is a
// supply flag kept independently of Dispensed.
type Prescription struct {
	ID        string `json:"id"`
	ApptID    string `json:"apptId"`
	Text      string `json:"text"`
	Dispensed bool   `json:"dispensed"`
	Available bool   `json:"available"`
	CreatedAt int64  `json:"createdAt"`
}

type CreatePrescriptionRequest struct {
	ApptID string `json:"apptId" validate:"required"`
	Text   string `json:"text" validate:"required"`
}

type WritePrescriptionRequest struct {
	Text string `json:"text" validate:"required"`
}

// UpdatePrescriptionRequest overwrites only the fields that are present.
type UpdatePrescriptionRequest struct {
	Text      *string `json:"text"`
	Dispensed *bool   `json:"dispensed"`
	Available *bool   `json:"available"`
}
