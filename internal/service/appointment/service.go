package appointment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/medconsult-api/internal/model"
	"github.com/jwalitptl/medconsult-api/internal/store"
	apperrors "github.com/jwalitptl/medconsult-api/pkg/errors"
	"github.com/jwalitptl/medconsult-api/pkg/event"
	"github.com/jwalitptl/medconsult-api/pkg/logger"
	"github.com/jwalitptl/medconsult-api/pkg/validator"
)

// DefaultVideoBaseURL prefixes the meeting link issued on approval.
const DefaultVideoBaseURL = "https://meet.example.com/"

// DatetimeLayouts are the accepted booking formats, tried in order. Values
// without a zone are read in the service's location.
var DatetimeLayouts = []string{
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

type AppointmentServicer interface {
	Book(ctx context.Context, req model.CreateAppointmentRequest) (*model.Appointment, error)
	List(ctx context.Context, filters model.AppointmentFilters) ([]model.Appointment, error)
	Get(ctx context.Context, id string) (*model.Appointment, error)
	Update(ctx context.Context, id string, req model.UpdateAppointmentRequest) (*model.Appointment, error)
	Delete(ctx context.Context, id string) error
	Approve(ctx context.Context, id string) (*model.Appointment, error)
	Reject(ctx context.Context, id string, reason string) (*model.Appointment, error)
	Complete(ctx context.Context, id string) (*model.Appointment, error)
}

type Service struct {
	store        *store.Store
	validator    validator.Validator
	publisher    event.Publisher
	logger       *logger.Logger
	now          func() time.Time
	location     *time.Location
	videoBaseURL string
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithLocation(loc *time.Location) Option {
	return func(s *Service) { s.location = loc }
}

func WithVideoBaseURL(base string) Option {
	return func(s *Service) {
		if base != "" {
			s.videoBaseURL = strings.TrimRight(base, "/") + "/"
		}
	}
}

func NewService(st *store.Store, publisher event.Publisher, log *logger.Logger, opts ...Option) *Service {
	if publisher == nil {
		publisher = event.NopPublisher{}
	}
	if log == nil {
		log = logger.Nop()
	}
	s := &Service{
		store:        st,
		validator:    validator.New(),
		publisher:    publisher,
		logger:       log,
		now:          time.Now,
		location:     time.Local,
		videoBaseURL: DefaultVideoBaseURL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ParseDatetime reads a booking date-time in one of DatetimeLayouts.
func ParseDatetime(value string, loc *time.Location) (time.Time, error) {
	for _, layout := range DatetimeLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date-time %q", value)
}

// Book creates a pending, paid appointment. The requested time must be
// strictly in the future.
func (s *Service) Book(ctx context.Context, req model.CreateAppointmentRequest) (*model.Appointment, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	at, err := ParseDatetime(req.Datetime, s.location)
	if err != nil {
		return nil, apperrors.BadRequest("datetime must look like 2006-01-02T15:04", err)
	}
	now := s.now()
	if !at.After(now) {
		return nil, apperrors.Validation("Please select a future date and time for your appointment")
	}

	appt := model.Appointment{
		ID:              model.NewID(model.AppointmentIDPrefix),
		PatientID:       req.PatientID,
		DoctorID:        req.DoctorID,
		Datetime:        req.Datetime,
		Reason:          req.Reason,
		Status:          model.AppointmentStatusPending,
		Paid:            true,
		VideoLink:       nil,
		PrescriptionID:  nil,
		RejectionReason: "",
		CreatedAt:       model.Millis(now),
	}

	err = s.store.Atomically(ctx, func() error {
		appts, err := s.store.Appointments.LoadAll(ctx)
		if err != nil {
			return err
		}
		return s.store.Appointments.SaveAll(ctx, append(appts, appt))
	}, store.Appointments)
	if err != nil {
		return nil, fmt.Errorf("failed to book appointment: %w", err)
	}

	s.logger.Info("Appointment booked",
		"appointment_id", appt.ID,
		"patient_id", appt.PatientID,
		"doctor_id", appt.DoctorID)
	event.Emit(ctx, s.publisher, s.logger, event.AppointmentBooked, appt.ID, appt, nil)

	return &appt, nil
}

func (s *Service) List(ctx context.Context, filters model.AppointmentFilters) ([]model.Appointment, error) {
	if filters.Status != "" && !filters.Status.Valid() {
		return nil, apperrors.Validation(fmt.Sprintf("unknown status %q", filters.Status))
	}

	appts, err := s.store.Appointments.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}

	result := make([]model.Appointment, 0, len(appts))
	for _, a := range appts {
		if filters.Match(a) {
			result = append(result, a)
		}
	}
	return result, nil
}

func (s *Service) Get(ctx context.Context, id string) (*model.Appointment, error) {
	appts, err := s.store.Appointments.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	if i := indexOf(appts, id); i >= 0 {
		return &appts[i], nil
	}
	return nil, apperrors.NotFound("Appointment", nil)
}

// Update overwrites the fields present in req. Any known status may be set,
// regardless of the current one.
func (s *Service) Update(ctx context.Context, id string, req model.UpdateAppointmentRequest) (*model.Appointment, error) {
	if req.Status != nil && !req.Status.Valid() {
		return nil, apperrors.Validation(fmt.Sprintf("unknown status %q", *req.Status))
	}

	var before, after model.Appointment
	err := s.store.Atomically(ctx, func() error {
		appts, err := s.store.Appointments.LoadAll(ctx)
		if err != nil {
			return err
		}
		i := indexOf(appts, id)
		if i < 0 {
			return apperrors.NotFound("Appointment", nil)
		}

		before = appts[i]
		applyUpdate(&appts[i], req)
		after = appts[i]
		return s.store.Appointments.SaveAll(ctx, appts)
	}, store.Appointments)
	if err != nil {
		return nil, fmt.Errorf("failed to update appointment: %w", err)
	}

	changes := event.Changes(before, after)
	s.logger.Debug("Appointment updated", "appointment_id", id, "fields", len(changes))
	event.Emit(ctx, s.publisher, s.logger, event.AppointmentUpdated, id, after, changes)

	return &after, nil
}

// Delete removes the appointment and every prescription written for it.
// Deleting an unknown id succeeds without changes.
func (s *Service) Delete(ctx context.Context, id string) error {
	var removed *model.Appointment
	err := s.store.Atomically(ctx, func() error {
		appts, err := s.store.Appointments.LoadAll(ctx)
		if err != nil {
			return err
		}
		i := indexOf(appts, id)
		if i < 0 {
			return nil
		}
		a := appts[i]
		removed = &a

		prescs, err := s.store.Prescriptions.LoadAll(ctx)
		if err != nil {
			return err
		}
		kept := make([]model.Prescription, 0, len(prescs))
		for _, p := range prescs {
			if p.ApptID != id {
				kept = append(kept, p)
			}
		}

		if err := s.store.Appointments.SaveAll(ctx, append(appts[:i], appts[i+1:]...)); err != nil {
			return err
		}
		if len(kept) == len(prescs) {
			return nil
		}
		return s.store.Prescriptions.SaveAll(ctx, kept)
	}, store.Appointments, store.Prescriptions)
	if err != nil {
		return fmt.Errorf("failed to delete appointment: %w", err)
	}

	if removed != nil {
		s.logger.Info("Appointment deleted", "appointment_id", id)
		event.Emit(ctx, s.publisher, s.logger, event.AppointmentDeleted, id, removed, nil)
	}
	return nil
}

// Approve moves a pending appointment to approved and issues its video link.
func (s *Service) Approve(ctx context.Context, id string) (*model.Appointment, error) {
	return s.transition(ctx, id, "approve", model.AppointmentStatusPending, event.AppointmentApproved, func(a *model.Appointment) {
		link := s.videoBaseURL + meetingCode()
		a.Status = model.AppointmentStatusApproved
		a.VideoLink = &link
	})
}

// Reject moves a pending appointment to rejected. The reason may be empty.
func (s *Service) Reject(ctx context.Context, id string, reason string) (*model.Appointment, error) {
	return s.transition(ctx, id, "reject", model.AppointmentStatusPending, event.AppointmentRejected, func(a *model.Appointment) {
		a.Status = model.AppointmentStatusRejected
		a.RejectionReason = strings.TrimSpace(reason)
	})
}

func (s *Service) Complete(ctx context.Context, id string) (*model.Appointment, error) {
	return s.transition(ctx, id, "complete", model.AppointmentStatusApproved, event.AppointmentCompleted, func(a *model.Appointment) {
		a.Status = model.AppointmentStatusCompleted
	})
}

func (s *Service) transition(ctx context.Context, id, action string, from model.AppointmentStatus, evt event.Type, mutate func(*model.Appointment)) (*model.Appointment, error) {
	var updated model.Appointment
	err := s.store.Atomically(ctx, func() error {
		appts, err := s.store.Appointments.LoadAll(ctx)
		if err != nil {
			return err
		}
		i := indexOf(appts, id)
		if i < 0 {
			return apperrors.NotFound("Appointment", nil)
		}
		if appts[i].Status != from {
			return apperrors.InvalidState(fmt.Sprintf("cannot %s an appointment that is %s", action, appts[i].Status))
		}

		mutate(&appts[i])
		updated = appts[i]
		return s.store.Appointments.SaveAll(ctx, appts)
	}, store.Appointments)
	if err != nil {
		return nil, fmt.Errorf("failed to %s appointment: %w", action, err)
	}

	s.logger.Info("Appointment "+string(updated.Status), "appointment_id", id)
	event.Emit(ctx, s.publisher, s.logger, evt, id, updated, nil)

	return &updated, nil
}

func applyUpdate(a *model.Appointment, req model.UpdateAppointmentRequest) {
	if req.Datetime != nil {
		a.Datetime = *req.Datetime
	}
	if req.Reason != nil {
		a.Reason = *req.Reason
	}
	if req.Status != nil {
		a.Status = *req.Status
	}
	if req.Paid != nil {
		a.Paid = *req.Paid
	}
	req.VideoLink.Apply(&a.VideoLink)
	req.PrescriptionID.Apply(&a.PrescriptionID)
	if req.RejectionReason != nil {
		a.RejectionReason = *req.RejectionReason
	}
}

func indexOf(appts []model.Appointment, id string) int {
	for i, a := range appts {
		if a.ID == id {
			return i
		}
	}
	return -1
}

func meetingCode() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

var _ AppointmentServicer = (*Service)(nil)
