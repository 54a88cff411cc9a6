package email

import (
	"context"
	"fmt"
	"strings"

	"gopkg.in/gomail.v2"

	"github.com/jwalitptl/medconsult-api/internal/model"
)

type Service interface {
	SendAppointmentApproved(ctx context.Context, to model.User, appt model.Appointment) error
	SendAppointmentRejected(ctx context.Context, to model.User, appt model.Appointment) error
	SendPrescriptionWritten(ctx context.Context, to model.User, appt model.Appointment, presc model.Prescription) error
	SendCustom(ctx context.Context, to string, subject string, content string) error
}

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Sender delivers composed messages. *gomail.Dialer satisfies it.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

type SMTPService struct {
	sender Sender
	from   string
}

func NewSMTPService(cfg Config) *SMTPService {
	return NewService(gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password), cfg.From)
}

func NewService(sender Sender, from string) *SMTPService {
	return &SMTPService{sender: sender, from: from}
}

func (s *SMTPService) SendAppointmentApproved(ctx context.Context, to model.User, appt model.Appointment) error {
	link := "will be shared by your doctor"
	if appt.VideoLink != nil {
		link = *appt.VideoLink
	}
	body := fmt.Sprintf("Hello %s,\n\nYour appointment on %s has been approved.\nJoin the consultation: %s\n",
		to.Name, displayDatetime(appt.Datetime), link)
	return s.SendCustom(ctx, to.Email, "Your appointment is confirmed", body)
}

func (s *SMTPService) SendAppointmentRejected(ctx context.Context, to model.User, appt model.Appointment) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\nYour appointment on %s was not approved.\n", to.Name, displayDatetime(appt.Datetime))
	if appt.RejectionReason != "" {
		fmt.Fprintf(&b, "Reason: %s\n", appt.RejectionReason)
	}
	return s.SendCustom(ctx, to.Email, "Your appointment was rejected", b.String())
}

func (s *SMTPService) SendPrescriptionWritten(ctx context.Context, to model.User, appt model.Appointment, presc model.Prescription) error {
	body := fmt.Sprintf("Hello %s,\n\nYour doctor wrote a prescription for your appointment on %s:\n\n%s\n",
		to.Name, displayDatetime(appt.Datetime), presc.Text)
	return s.SendCustom(ctx, to.Email, "New prescription", body)
}

func (s *SMTPService) SendCustom(ctx context.Context, to string, subject string, content string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", content)

	if err := s.sender.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	return nil
}

func displayDatetime(dt string) string {
	return strings.Replace(dt, "T", " ", 1)
}
