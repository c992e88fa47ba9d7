package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/internal/service/notification"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/logger"
)

const (
	DefaultWindowDays = 10
	MaxWindowDays     = 365
)

type AppointmentService interface {
	GetUpcoming(ctx context.Context, windowDays int) ([]*model.Patient, error)
	SendReminder(ctx context.Context, patientID uuid.UUID) (*model.ReminderResult, error)
}

type Service struct {
	patients repository.PatientRepository
	notifier notification.Notifier
	clinic   string
	log      *logger.Logger
	now      func() time.Time
}

func NewService(patients repository.PatientRepository, notifier notification.Notifier, clinic string, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{patients: patients, notifier: notifier, clinic: clinic, log: log, now: time.Now}
}

var _ AppointmentService = (*Service)(nil)

// GetUpcoming lists ongoing patients whose next appointment falls between
// the start of today and windowDays from now, soonest first.
func (s *Service) GetUpcoming(ctx context.Context, windowDays int) ([]*model.Patient, error) {
	if windowDays < 1 || windowDays > MaxWindowDays {
		return nil, apperrors.Validation("invalid request",
			apperrors.FieldError{Field: "days", Message: "must be between 1 and 365"})
	}
	now := s.now().UTC()
	return s.patients.ListUpcoming(ctx, startOfDay(now), now.AddDate(0, 0, windowDays))
}

// SendReminder notifies the patient of their next appointment right away.
// Delivery failures are returned to the caller.
func (s *Service) SendReminder(ctx context.Context, patientID uuid.UUID) (*model.ReminderResult, error) {
	p, err := s.patients.Get(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if p.NextAppointmentDate == nil || p.NextAppointmentDate.Before(startOfDay(s.now().UTC())) {
		return nil, apperrors.Validation("patient has no upcoming appointment")
	}
	if p.TreatmentStatus != model.TreatmentStatusOngoing {
		return nil, apperrors.Validation("patient treatment is " + string(p.TreatmentStatus))
	}

	contact := model.Contact{Name: p.Name, PhoneNo: p.PhoneNo, Email: p.Email}
	result, err := s.notifier.Notify(ctx, contact, notification.ReminderMessage(s.clinic, p))
	if err != nil {
		return nil, err
	}
	s.log.Info("appointment reminder sent", "patient_id", p.ID.String(), "channels", len(result.Delivered))
	return result, nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
