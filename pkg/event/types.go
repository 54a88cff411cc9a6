package event

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Channel is the default broker channel domain events are published on.
const Channel = "medconsult.events"

type Type string

const (
	UserCreated Type = "user.created"
	UserDeleted Type = "user.deleted"

	AppointmentBooked    Type = "appointment.booked"
	AppointmentUpdated   Type = "appointment.updated"
	AppointmentApproved  Type = "appointment.approved"
	AppointmentRejected  Type = "appointment.rejected"
	AppointmentCompleted Type = "appointment.completed"
	AppointmentDeleted   Type = "appointment.deleted"

	PrescriptionWritten     Type = "prescription.written"
	PrescriptionUpdated     Type = "prescription.updated"
	PrescriptionDispensed   Type = "prescription.dispensed"
	PrescriptionUnavailable Type = "prescription.unavailable"
	PrescriptionDeleted     Type = "prescription.deleted"
)

// Event is a committed change to one record. Data holds the record as it was
// after the change, or before it for deletions.
type Event struct {
	ID         string                 `json:"id"`
	Type       Type                   `json:"type"`
	Subject    string                 `json:"subject"`
	OccurredAt time.Time              `json:"occurredAt"`
	Data       json.RawMessage        `json:"data,omitempty"`
	Changes    map[string]interface{} `json:"changes,omitempty"`
}

func New(t Type, subject string, data interface{}) (Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Event{}, fmt.Errorf("failed to marshal %s payload: %w", t, err)
	}
	return Event{
		ID:         uuid.NewString(),
		Type:       t,
		Subject:    subject,
		OccurredAt: time.Now().UTC(),
		Data:       raw,
	}, nil
}

// Decode unmarshals Data into v.
func (e Event) Decode(v interface{}) error {
	if len(e.Data) == 0 {
		return fmt.Errorf("event %s has no data", e.ID)
	}
	return json.Unmarshal(e.Data, v)
}

// Parse decodes an event received from a broker.
func Parse(b []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(b, &e); err != nil {
		return Event{}, fmt.Errorf("failed to parse event: %w", err)
	}
	if e.Type == "" {
		return Event{}, fmt.Errorf("event has no type")
	}
	return e, nil
}
