package prescription

import (
	"context"
	"fmt"
	"time"

	"github.com/jwalitptl/medconsult-api/internal/model"
	"github.com/jwalitptl/medconsult-api/internal/store"
	apperrors "github.com/jwalitptl/medconsult-api/pkg/errors"
	"github.com/jwalitptl/medconsult-api/pkg/event"
	"github.com/jwalitptl/medconsult-api/pkg/logger"
	"github.com/jwalitptl/medconsult-api/pkg/validator"
)

// UnavailableMessage is the refusal for dispensing an unavailable medicine.
const UnavailableMessage = "Cannot mark dispensed: medicine is marked as unavailable"

type PrescriptionServicer interface {
	Create(ctx context.Context, req model.CreatePrescriptionRequest) (*model.Prescription, error)
	Write(ctx context.Context, apptID, text string) (*model.Prescription, error)
	List(ctx context.Context) ([]model.Prescription, error)
	Get(ctx context.Context, id string) (*model.Prescription, error)
	Update(ctx context.Context, id string, req model.UpdatePrescriptionRequest) (*model.Prescription, error)
	Delete(ctx context.Context, id string) error
	ToggleDispensed(ctx context.Context, id string) (*model.Prescription, error)
	MarkUnavailable(ctx context.Context, id string) (*model.Prescription, error)
	MarkAvailable(ctx context.Context, id string) (*model.Prescription, error)
}

type Service struct {
	store     *store.Store
	validator validator.Validator
	publisher event.Publisher
	logger    *logger.Logger
	now       func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(st *store.Store, publisher event.Publisher, log *logger.Logger, opts ...Option) *Service {
	if publisher == nil {
		publisher = event.NopPublisher{}
	}
	if log == nil {
		log = logger.Nop()
	}
	s := &Service{
		store:     st,
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

// Create stores a prescription without touching its appointment.
func (s *Service) Create(ctx context.Context, req model.CreatePrescriptionRequest) (*model.Prescription, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	presc := s.newPrescription(req.ApptID, req.Text)
	err := s.store.Atomically(ctx, func() error {
		prescs, err := s.store.Prescriptions.LoadAll(ctx)
		if err != nil {
			return err
		}
		return s.store.Prescriptions.SaveAll(ctx, append(prescs, presc))
	}, store.Prescriptions)
	if err != nil {
		return nil, fmt.Errorf("failed to create prescription: %w", err)
	}

	s.logger.Info("Prescription created", "prescription_id", presc.ID, "appointment_id", presc.ApptID)
	return &presc, nil
}

// Write is the doctor's prescription for an approved or completed
// appointment. The appointment's prescriptionId is set in the same step.
func (s *Service) Write(ctx context.Context, apptID, text string) (*model.Prescription, error) {
	if err := s.validator.Validate(model.CreatePrescriptionRequest{ApptID: apptID, Text: text}); err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	var presc model.Prescription
	err := s.store.Atomically(ctx, func() error {
		appts, err := s.store.Appointments.LoadAll(ctx)
		if err != nil {
			return err
		}
		i := -1
		for j, a := range appts {
			if a.ID == apptID {
				i = j
				break
			}
		}
		if i < 0 {
			return apperrors.NotFound("Appointment", nil)
		}
		switch appts[i].Status {
		case model.AppointmentStatusApproved, model.AppointmentStatusCompleted:
		default:
			return apperrors.InvalidState(fmt.Sprintf("cannot prescribe for an appointment that is %s", appts[i].Status))
		}

		prescs, err := s.store.Prescriptions.LoadAll(ctx)
		if err != nil {
			return err
		}
		presc = s.newPrescription(apptID, text)
		if err := s.store.Prescriptions.SaveAll(ctx, append(prescs, presc)); err != nil {
			return err
		}

		id := presc.ID
		appts[i].PrescriptionID = &id
		return s.store.Appointments.SaveAll(ctx, appts)
	}, store.Appointments, store.Prescriptions)
	if err != nil {
		return nil, fmt.Errorf("failed to write prescription: %w", err)
	}

	s.logger.Info("Prescription written", "prescription_id", presc.ID, "appointment_id", apptID)
	event.Emit(ctx, s.publisher, s.logger, event.PrescriptionWritten, presc.ID, presc, nil)

	return &presc, nil
}

func (s *Service) List(ctx context.Context) ([]model.Prescription, error) {
	prescs, err := s.store.Prescriptions.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list prescriptions: %w", err)
	}
	return prescs, nil
}

func (s *Service) Get(ctx context.Context, id string) (*model.Prescription, error) {
	prescs, err := s.store.Prescriptions.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get prescription: %w", err)
	}
	if i := indexOf(prescs, id); i >= 0 {
		return &prescs[i], nil
	}
	return nil, apperrors.NotFound("Prescription", nil)
}

// Update overwrites the fields present in req.
func (s *Service) Update(ctx context.Context, id string, req model.UpdatePrescriptionRequest) (*model.Prescription, error) {
	return s.mutate(ctx, id, "update", event.PrescriptionUpdated, func(p *model.Prescription) error {
		if req.Text != nil {
			p.Text = *req.Text
		}
		if req.Dispensed != nil {
			p.Dispensed = *req.Dispensed
		}
		if req.Available != nil {
			p.Available = *req.Available
		}
		return nil
	})
}

// Delete removes one prescription. Deleting an unknown id succeeds.
func (s *Service) Delete(ctx context.Context, id string) error {
	var removed *model.Prescription
	err := s.store.Atomically(ctx, func() error {
		prescs, err := s.store.Prescriptions.LoadAll(ctx)
		if err != nil {
			return err
		}
		i := indexOf(prescs, id)
		if i < 0 {
			return nil
		}
		p := prescs[i]
		removed = &p
		return s.store.Prescriptions.SaveAll(ctx, append(prescs[:i], prescs[i+1:]...))
	}, store.Prescriptions)
	if err != nil {
		return fmt.Errorf("failed to delete prescription: %w", err)
	}

	if removed != nil {
		s.logger.Info("Prescription deleted", "prescription_id", id)
		event.Emit(ctx, s.publisher, s.logger, event.PrescriptionDeleted, id, removed, nil)
	}
	return nil
}

// ToggleDispensed flips dispensed. An unavailable, undispensed prescription
// is refused and left unchanged; un-dispensing is always allowed.
func (s *Service) ToggleDispensed(ctx context.Context, id string) (*model.Prescription, error) {
	var evt event.Type
	p, err := s.mutate(ctx, id, "dispense", "", func(p *model.Prescription) error {
		if !p.Available && !p.Dispensed {
			return apperrors.InvalidState(UnavailableMessage)
		}
		p.Dispensed = !p.Dispensed
		if p.Dispensed {
			evt = event.PrescriptionDispensed
		} else {
			evt = event.PrescriptionUpdated
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	event.Emit(ctx, s.publisher, s.logger, evt, p.ID, p, nil)
	return p, nil
}

// MarkUnavailable also clears dispensed, whatever its prior value.
func (s *Service) MarkUnavailable(ctx context.Context, id string) (*model.Prescription, error) {
	return s.mutate(ctx, id, "mark unavailable", event.PrescriptionUnavailable, func(p *model.Prescription) error {
		p.Available = false
		p.Dispensed = false
		return nil
	})
}

func (s *Service) MarkAvailable(ctx context.Context, id string) (*model.Prescription, error) {
	return s.mutate(ctx, id, "mark available", event.PrescriptionUpdated, func(p *model.Prescription) error {
		p.Available = true
		return nil
	})
}

// mutate applies fn to one prescription under the collection lock. A non-empty
// evt is published after a successful save.
func (s *Service) mutate(ctx context.Context, id, action string, evt event.Type, fn func(*model.Prescription) error) (*model.Prescription, error) {
	var before, after model.Prescription
	err := s.store.Atomically(ctx, func() error {
		prescs, err := s.store.Prescriptions.LoadAll(ctx)
		if err != nil {
			return err
		}
		i := indexOf(prescs, id)
		if i < 0 {
			return apperrors.NotFound("Prescription", nil)
		}

		before = prescs[i]
		if err := fn(&prescs[i]); err != nil {
			return err
		}
		after = prescs[i]
		return s.store.Prescriptions.SaveAll(ctx, prescs)
	}, store.Prescriptions)
	if err != nil {
		return nil, fmt.Errorf("failed to %s prescription: %w", action, err)
	}

	if evt != "" {
		event.Emit(ctx, s.publisher, s.logger, evt, id, after, event.Changes(before, after))
	}
	return &after, nil
}

func (s *Service) newPrescription(apptID, text string) model.Prescription {
	return model.Prescription{
		ID:        model.NewID(model.PrescriptionIDPrefix),
		ApptID:    apptID,
		Text:      text,
		Dispensed: false,
		Available: true,
		CreatedAt: model.Millis(s.now()),
	}
}

func indexOf(prescs []model.Prescription, id string) int {
	for i, p := range prescs {
		if p.ID == id {
			return i
		}
	}
	return -1
}

var _ PrescriptionServicer = (*Service)(nil)
