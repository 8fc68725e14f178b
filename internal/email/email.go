package email

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"

	"github.com/jwalitptl/clinic-api/internal/config"
	"github.com/jwalitptl/clinic-api/internal/model"
)

// Sender delivers appointment notifications. Delivery is best-effort;
// a failed send never affects the appointment itself.
type Sender interface {
	SendBookingConfirmation(to string, appt *model.Appointment) error
	SendCancellation(to string, appt *model.Appointment) error
	SendCompletion(to string, appt *model.Appointment) error
}

type smtpSender struct {
	dialer *gomail.Dialer
	from   string
	logger *zerolog.Logger
}

// NewSender returns an SMTP-backed sender, or a no-op one when email is
// disabled in config.
func NewSender(cfg config.EmailConfig, logger *zerolog.Logger) Sender {
	if !cfg.Enabled {
		return &noopSender{logger: logger}
	}
	return &smtpSender{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
		logger: logger,
	}
}

func (s *smtpSender) SendBookingConfirmation(to string, appt *model.Appointment) error {
	subject := "Appointment confirmed"
	body := fmt.Sprintf(
		"Hello %s,\n\nYour appointment with %s on %s has been confirmed.\n\nSee you then!",
		appt.PatientName, appt.DoctorName, formatSlot(appt.ScheduledAt),
	)
	return s.send(to, subject, body)
}

func (s *smtpSender) SendCancellation(to string, appt *model.Appointment) error {
	subject := "Appointment cancelled"
	body := fmt.Sprintf(
		"Hello %s,\n\nYour appointment with %s on %s has been cancelled.",
		appt.PatientName, appt.DoctorName, formatSlot(appt.ScheduledAt),
	)
	return s.send(to, subject, body)
}

func (s *smtpSender) SendCompletion(to string, appt *model.Appointment) error {
	subject := "Thank you for your visit"
	body := fmt.Sprintf(
		"Hello %s,\n\nYour appointment with %s on %s is complete. We hope to see you again.",
		appt.PatientName, appt.DoctorName, formatSlot(appt.ScheduledAt),
	)
	return s.send(to, subject, body)
}

func (s *smtpSender) send(to, subject, body string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", s.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	if err := s.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	if s.logger != nil {
		s.logger.Info().Str("to", to).Str("subject", subject).Msg("email sent")
	}
	return nil
}

func formatSlot(at time.Time) string {
	return at.Format("Monday, January 2 2006 at 15:04")
}

// noopSender logs instead of sending. Used in development and tests.
type noopSender struct {
	logger *zerolog.Logger
}

func (s *noopSender) SendBookingConfirmation(to string, appt *model.Appointment) error {
	return s.log("booking confirmation", to)
}

func (s *noopSender) SendCancellation(to string, appt *model.Appointment) error {
	return s.log("cancellation", to)
}

func (s *noopSender) SendCompletion(to string, appt *model.Appointment) error {
	return s.log("completion", to)
}

func (s *noopSender) log(kind, to string) error {
	if s.logger != nil {
		s.logger.Debug().Str("kind", kind).Str("to", to).Msg("email disabled, skipping send")
	}
	return nil
}
