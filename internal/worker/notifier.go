package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/jwalitptl/medconsult-api/internal/email"
	"github.com/jwalitptl/medconsult-api/internal/model"
	"github.com/jwalitptl/medconsult-api/pkg/event"
	"github.com/jwalitptl/medconsult-api/pkg/logger"
	"github.com/jwalitptl/medconsult-api/pkg/messaging"
	"github.com/jwalitptl/medconsult-api/pkg/metrics"
	"github.com/jwalitptl/medconsult-api/pkg/worker"
)

type UserLookup interface {
	GetUser(ctx context.Context, id string) (*model.User, error)
}

type AppointmentLookup interface {
	Get(ctx context.Context, id string) (*model.Appointment, error)
}

type NotifierConfig struct {
	Channel    string
	MaxRetries int
	RetryDelay time.Duration
}

// Notifier emails patients when a doctor acts on their appointment.
type Notifier struct {
	broker       messaging.Broker
	users        UserLookup
	appointments AppointmentLookup
	mail         email.Service
	config       NotifierConfig
	logger       *logger.Logger
	metrics      *metrics.Metrics
}

func NewNotifier(
	broker messaging.Broker,
	users UserLookup,
	appointments AppointmentLookup,
	mail email.Service,
	config NotifierConfig,
	log *logger.Logger,
	m *metrics.Metrics,
) *Notifier {
	if config.Channel == "" {
		config.Channel = event.Channel
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = 3
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = 5 * time.Second
	}
	if log == nil {
		log = logger.Nop()
	}
	if m == nil {
		m = metrics.NewNop()
	}
	return &Notifier{
		broker:       broker,
		users:        users,
		appointments: appointments,
		mail:         mail,
		config:       config,
		logger:       log.WithFields(map[string]interface{}{"component": "notifier"}),
		metrics:      m,
	}
}

// Start blocks until ctx is done or the subscription closes.
func (n *Notifier) Start(ctx context.Context) error {
	n.logger.ZL.Info().Str("channel", n.config.Channel).Msg("Notifier started")
	defer n.logger.ZL.Info().Msg("Notifier shutting down")

	return messaging.Consume(ctx, n.broker, n.config.Channel, func(msg []byte) error {
		return n.HandleMessage(ctx, msg)
	}, func(err error) {
		n.logger.ZL.Error().Err(err).Msg("Failed to handle event")
	})
}

// HandleMessage sends the email for one event. Events that need no email are
// ignored.
func (n *Notifier) HandleMessage(ctx context.Context, msg []byte) error {
	evt, err := event.Parse(msg)
	if err != nil {
		return err
	}

	var send func() error
	switch evt.Type {
	case event.AppointmentApproved, event.AppointmentRejected:
		send, err = n.appointmentMail(ctx, evt)
	case event.PrescriptionWritten:
		send, err = n.prescriptionMail(ctx, evt)
	default:
		return nil
	}
	if err != nil {
		n.metrics.NotificationsFailed.WithLabelValues(string(evt.Type)).Inc()
		return fmt.Errorf("failed to prepare %s notification: %w", evt.Type, err)
	}

	err = worker.Retry(ctx, worker.RetryConfig{Attempts: n.config.MaxRetries, Delay: n.config.RetryDelay}, send,
		func(attempt int, err error) {
			n.logger.ZL.Warn().Str("event_id", evt.ID).Int("attempt", attempt).Err(err).Msg("Retry sending notification")
		})
	if err != nil {
		n.metrics.NotificationsFailed.WithLabelValues(string(evt.Type)).Inc()
		return fmt.Errorf("failed to send %s notification: %w", evt.Type, err)
	}

	n.metrics.NotificationsSent.WithLabelValues(string(evt.Type)).Inc()
	n.logger.ZL.Info().Str("event_id", evt.ID).Str("type", string(evt.Type)).Str("subject", evt.Subject).Msg("Notification sent")
	return nil
}

func (n *Notifier) appointmentMail(ctx context.Context, evt event.Event) (func() error, error) {
	var appt model.Appointment
	if err := evt.Decode(&appt); err != nil {
		return nil, err
	}
	patient, err := n.users.GetUser(ctx, appt.PatientID)
	if err != nil {
		return nil, err
	}

	if evt.Type == event.AppointmentApproved {
		return func() error { return n.mail.SendAppointmentApproved(ctx, *patient, appt) }, nil
	}
	return func() error { return n.mail.SendAppointmentRejected(ctx, *patient, appt) }, nil
}

func (n *Notifier) prescriptionMail(ctx context.Context, evt event.Event) (func() error, error) {
	var presc model.Prescription
	if err := evt.Decode(&presc); err != nil {
		return nil, err
	}
	appt, err := n.appointments.Get(ctx, presc.ApptID)
	if err != nil {
		return nil, err
	}
	patient, err := n.users.GetUser(ctx, appt.PatientID)
	if err != nil {
		return nil, err
	}

	return func() error { return n.mail.SendPrescriptionWritten(ctx, *patient, *appt, presc) }, nil
}
