package patient

import (
	"context"
	"iter"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/logger"
	"github.com/jwalitptl/clinic-api/pkg/pagination"
	"github.com/jwalitptl/clinic-api/pkg/validator"
)

type PatientService interface {
	AddPatient(ctx context.Context, req *model.CreatePatientRequest) (*model.Patient, error)
	GetPatient(ctx context.Context, id uuid.UUID) (*model.Patient, error)
	GetPatientByRegNo(ctx context.Context, regNo string) (*model.Patient, error)
	SearchByRegNo(ctx context.Context, prefix string) (iter.Seq2[*model.Patient, error], error)
	ListPatients(ctx context.Context, page pagination.Params) (*model.PatientList, error)
	UpdateTreatmentStatus(ctx context.Context, id uuid.UUID, status string) (*model.Patient, error)
	UpdateDetails(ctx context.Context, id uuid.UUID, req *model.UpdatePatientRequest) (*model.Patient, error)
	DeletePatient(ctx context.Context, id uuid.UUID) error
}

type Service struct {
	repo repository.PatientRepository
	log  *logger.Logger
	now  func() time.Time
}

func NewService(repo repository.PatientRepository, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{repo: repo, log: log, now: time.Now}
}

var _ PatientService = (*Service)(nil)

// AddPatient registers a new patient with an ongoing treatment status.
// The join date defaults to today.
func (s *Service) AddPatient(ctx context.Context, req *model.CreatePatientRequest) (*model.Patient, error) {
	if req == nil {
		return nil, apperrors.Validation("request body is required")
	}
	req.RegNo = strings.TrimSpace(req.RegNo)
	if err := validator.Struct(req).Err(); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	dob, _ := validator.ParseDate(req.DateOfBirth)
	if dob.After(now) {
		return nil, apperrors.Validation("invalid request",
			apperrors.FieldError{Field: "date_of_birth", Message: "must not be in the future"})
	}
	joinDate := now.Truncate(24 * time.Hour)
	if req.JoinDate != "" {
		joinDate, _ = validator.ParseDate(req.JoinDate)
	}

	patient := &model.Patient{
		ID:              uuid.New(),
		RegNo:           req.RegNo,
		Name:            strings.TrimSpace(req.Name),
		PhoneNo:         strings.TrimSpace(req.PhoneNo),
		Email:           strings.TrimSpace(req.Email),
		Address:         req.Address,
		DateOfBirth:     dob,
		DoctorName:      req.DoctorName,
		Prescription:    req.Prescription,
		Disease:         req.Disease,
		JoinDate:        joinDate,
		TreatmentStatus: model.TreatmentStatusOngoing,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.Create(ctx, patient); err != nil {
		return nil, err
	}

	s.log.Info("patient registered", "patient_id", patient.ID.String(), "reg_no", patient.RegNo)
	return patient, nil
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) GetPatientByRegNo(ctx context.Context, regNo string) (*model.Patient, error) {
	regNo = strings.TrimSpace(regNo)
	if regNo == "" {
		return nil, apperrors.Validation("invalid request",
			apperrors.FieldError{Field: "reg_no", Message: "is required"})
	}
	return s.repo.GetByRegNo(ctx, regNo)
}

// SearchByRegNo returns a sequence of patients whose registration number
// starts with prefix. The sequence can be ranged over more than once.
func (s *Service) SearchByRegNo(ctx context.Context, prefix string) (iter.Seq2[*model.Patient, error], error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return nil, apperrors.Validation("invalid request",
			apperrors.FieldError{Field: "reg_no", Message: "is required"})
	}
	return s.repo.SearchByRegNoPrefix(ctx, prefix), nil
}

func (s *Service) ListPatients(ctx context.Context, page pagination.Params) (*model.PatientList, error) {
	page = page.Normalize()
	return s.repo.List(ctx, page.Limit, page.Offset)
}

func (s *Service) UpdateTreatmentStatus(ctx context.Context, id uuid.UUID, status string) (*model.Patient, error) {
	ts := model.TreatmentStatus(status)
	if !ts.Valid() {
		return nil, apperrors.Validation("invalid request",
			apperrors.FieldError{Field: "status", Message: "must be one of [ongoing completed cancelled]"})
	}

	patient, err := s.repo.UpdateTreatmentStatus(ctx, id, ts, s.now().UTC())
	if err != nil {
		return nil, err
	}
	s.log.Info("treatment status updated", "patient_id", id.String(), "status", status)
	return patient, nil
}

// UpdateDetails changes demographic fields only. The registration number
// and the scheduling fields cannot be changed through it.
func (s *Service) UpdateDetails(ctx context.Context, id uuid.UUID, req *model.UpdatePatientRequest) (*model.Patient, error) {
	if req == nil {
		return nil, apperrors.Validation("request body is required")
	}

	res := validator.Struct(req)
	if req.RegNo != nil {
		res.Add("reg_no", "cannot be changed")
	}
	if req.LastVisitDate != nil {
		res.Add("last_visit_date", "is set by recording a visit")
	}
	if req.NextAppointmentDate != nil {
		res.Add("next_appointment_date", "is set by recording a visit")
	}
	if req.TreatmentStatus != nil {
		res.Add("treatment_status", "use the status endpoint")
	}
	if err := res.Err(); err != nil {
		return nil, err
	}

	details := model.PatientDetails{
		Name:         req.Name,
		PhoneNo:      req.PhoneNo,
		Email:        req.Email,
		Address:      req.Address,
		DoctorName:   req.DoctorName,
		Prescription: req.Prescription,
		Disease:      req.Disease,
	}
	if req.DateOfBirth != nil {
		dob, _ := validator.ParseDate(*req.DateOfBirth)
		if dob.After(s.now().UTC()) {
			return nil, apperrors.Validation("invalid request",
				apperrors.FieldError{Field: "date_of_birth", Message: "must not be in the future"})
		}
		details.DateOfBirth = &dob
	}
	if details.Empty() {
		return nil, apperrors.Validation("no fields to update")
	}

	return s.repo.UpdateDetails(ctx, id, details, s.now().UTC())
}

// DeletePatient removes a patient that has no recorded visits
func (s *Service) DeletePatient(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("patient deleted", "patient_id", id.String())
	return nil
}
