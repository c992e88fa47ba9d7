package visit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/logger"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
	"github.com/jwalitptl/clinic-api/pkg/validator"
)

type VisitService interface {
	RecordVisit(ctx context.Context, patientID uuid.UUID, req *model.CreateVisitRequest) (*model.Visit, *model.Patient, error)
	GetVisitHistory(ctx context.Context, patientID uuid.UUID) ([]*model.Visit, error)
}

// Service is the visit ledger
type Service struct {
	visits   repository.VisitRepository
	patients repository.PatientRepository
	metrics  *metrics.Metrics
	log      *logger.Logger
	now      func() time.Time
}

func NewService(visits repository.VisitRepository, patients repository.PatientRepository, m *metrics.Metrics, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{visits: visits, patients: patients, metrics: m, log: log, now: time.Now}
}

var _ VisitService = (*Service)(nil)

// RecordVisit stores a visit and moves the patient's last visit date to the
// visit date. A supplied next appointment replaces the patient's; without
// one the existing appointment is kept unless the visit has passed it.
// The visit.recorded event is written in the same transaction.
func (s *Service) RecordVisit(ctx context.Context, patientID uuid.UUID, req *model.CreateVisitRequest) (*model.Visit, *model.Patient, error) {
	v, status, err := s.buildVisit(patientID, req)
	if err != nil {
		return nil, nil, err
	}

	patient, err := s.patients.Get(ctx, patientID)
	if err != nil {
		return nil, nil, err
	}

	event, err := model.NewOutboxEvent(model.EventVisitRecorded, model.VisitRecordedPayload{
		VisitID:             v.ID,
		PatientID:           patient.ID,
		PatientName:         patient.Name,
		PhoneNo:             patient.PhoneNo,
		Email:               patient.Email,
		VisitDate:           v.VisitDate,
		NextAppointmentDate: v.NextAppointmentDate,
		AmountPaid:          v.AmountPaid,
		PaymentStatus:       v.PaymentStatus,
	}, v.CreatedAt)
	if err != nil {
		return nil, nil, apperrors.Internal(err)
	}

	updated, err := s.visits.Record(ctx, &model.VisitRecord{Visit: v, TreatmentStatus: status, Event: event})
	if err != nil {
		return nil, nil, err
	}

	if s.metrics != nil {
		s.metrics.VisitsRecorded.Inc()
	}
	s.log.Info("visit recorded",
		"visit_id", v.ID.String(),
		"patient_id", patientID.String(),
		"event_id", event.ID.String(),
	)
	return v, updated, nil
}

func (s *Service) buildVisit(patientID uuid.UUID, req *model.CreateVisitRequest) (*model.Visit, *model.TreatmentStatus, error) {
	if req == nil {
		return nil, nil, apperrors.Validation("request body is required")
	}
	res := validator.Struct(req)
	if !res.Valid {
		return nil, nil, res.Err()
	}

	now := s.now().UTC()
	v := &model.Visit{
		ID:            uuid.New(),
		PatientID:     patientID,
		VisitDate:     now,
		Treatment:     req.Treatment,
		Notes:         req.Notes,
		Prescription:  req.Prescription,
		PaymentMethod: model.PaymentMethodCash,
		PaymentStatus: model.PaymentStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if req.VisitDate != "" {
		v.VisitDate, _ = validator.ParseDate(req.VisitDate)
	}
	if req.NextAppointmentDate != "" {
		next, _ := validator.ParseDate(req.NextAppointmentDate)
		if next.Before(v.VisitDate) {
			res.Add("next_appointment_date", "must not be before the visit date")
			return nil, nil, res.Err()
		}
		v.NextAppointmentDate = &next
	}
	if req.AmountPaid != nil {
		v.AmountPaid = *req.AmountPaid
	}
	if req.PaymentMethod != "" {
		v.PaymentMethod = model.PaymentMethod(req.PaymentMethod)
	}
	if req.PaymentStatus != "" {
		v.PaymentStatus = model.PaymentStatus(req.PaymentStatus)
	}

	var status *model.TreatmentStatus
	if req.TreatmentStatus != "" {
		ts := model.TreatmentStatus(req.TreatmentStatus)
		status = &ts
	}
	return v, status, nil
}

// GetVisitHistory lists a patient's visits, most recent first
func (s *Service) GetVisitHistory(ctx context.Context, patientID uuid.UUID) ([]*model.Visit, error) {
	if _, err := s.patients.Get(ctx, patientID); err != nil {
		return nil, err
	}
	return s.visits.ListByPatient(ctx, patientID)
}
