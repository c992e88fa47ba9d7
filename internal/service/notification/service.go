package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/pkg/circuitbreaker"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/logger"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
)

// ErrNoChannel is returned when no configured sender can reach the contact
var ErrNoChannel = errors.New("no notification channel can reach the patient")

type Notifier interface {
	Notify(ctx context.Context, contact model.Contact, msg model.Message) (*model.ReminderResult, error)
}

type channel struct {
	sender  Sender
	breaker *circuitbreaker.CircuitBreaker
}

// Service fans a message out to every sender that can reach the contact.
// Each channel sits behind its own circuit breaker.
type Service struct {
	channels []channel
	metrics  *metrics.Metrics
	log      *logger.Logger
}

func NewService(m *metrics.Metrics, log *logger.Logger, senders ...Sender) *Service {
	if log == nil {
		log = logger.Nop()
	}
	s := &Service{metrics: m, log: log}
	for _, sender := range senders {
		s.channels = append(s.channels, channel{
			sender: sender,
			breaker: circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
				Name:        "notification-" + string(sender.Channel()),
				MaxRequests: 1,
				Interval:    time.Minute,
				Timeout:     30 * time.Second,
			}),
		})
	}
	return s
}

var _ Notifier = (*Service)(nil)

// Notify succeeds when at least one channel delivered the message
func (s *Service) Notify(ctx context.Context, contact model.Contact, msg model.Message) (*model.ReminderResult, error) {
	result := &model.ReminderResult{Delivered: []model.NotificationChannel{}}
	var errs []error

	for _, ch := range s.channels {
		if !ch.sender.CanReach(contact) {
			continue
		}
		name := ch.sender.Channel()
		err := ch.breaker.Execute(func() error {
			return ch.sender.Send(ctx, contact, msg)
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			s.count(name, err)
			s.log.Warn(err, "notification failed", "channel", string(name))
			continue
		}
		s.count(name, nil)
		result.Delivered = append(result.Delivered, name)
	}

	if len(result.Delivered) > 0 {
		return result, nil
	}
	if len(errs) == 0 {
		return nil, apperrors.Dependency("notification", ErrNoChannel)
	}
	return nil, apperrors.Dependency("notification", errors.Join(errs...))
}

func (s *Service) count(ch model.NotificationChannel, err error) {
	if s.metrics == nil {
		return
	}
	if err != nil {
		s.metrics.NotificationsFailed.WithLabelValues(string(ch)).Inc()
		return
	}
	s.metrics.NotificationsSent.WithLabelValues(string(ch)).Inc()
}

const dateLayout = "Mon, 02 Jan 2006"

// ReminderMessage builds the text for an upcoming appointment
func ReminderMessage(clinic string, p *model.Patient) model.Message {
	return model.Message{
		Subject: fmt.Sprintf("%s: appointment reminder", clinic),
		Body: fmt.Sprintf("Hello %s, this is a reminder of your appointment at %s on %s. Reg. no: %s.",
			p.Name, clinic, p.NextAppointmentDate.Format(dateLayout), p.RegNo),
	}
}

// VisitRecordedMessage builds the visit receipt sent after a visit commits
func VisitRecordedMessage(clinic string, v model.VisitRecordedPayload) model.Message {
	body := fmt.Sprintf("Hello %s, thank you for visiting %s on %s. Amount paid: %.2f (%s).",
		v.PatientName, clinic, v.VisitDate.Format(dateLayout), v.AmountPaid, v.PaymentStatus)
	if v.NextAppointmentDate != nil {
		body += fmt.Sprintf(" Your next appointment is on %s.", v.NextAppointmentDate.Format(dateLayout))
	}
	return model.Message{
		Subject: fmt.Sprintf("%s: visit summary", clinic),
		Body:    body,
	}
}
