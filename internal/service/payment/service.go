package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/logger"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
	"github.com/jwalitptl/clinic-api/pkg/validator"
)

type PaymentService interface {
	UpdatePayment(ctx context.Context, visitID uuid.UUID, update model.PaymentUpdate) (*model.Visit, error)
	BulkUpdatePayments(ctx context.Context, req *model.BulkPaymentRequest) (*model.BulkPaymentResponse, error)
	GetPaymentHistory(ctx context.Context, patientID uuid.UUID) ([]*model.Visit, error)
	GetPendingPayments(ctx context.Context) ([]*model.PendingPayment, error)
	GetPaymentSummary(ctx context.Context, patientID uuid.UUID) (*model.PaymentSummary, error)
	GetPaymentOverview(ctx context.Context) (*model.PaymentOverview, error)
}

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

var _ PaymentService = (*Service)(nil)

func (s *Service) UpdatePayment(ctx context.Context, visitID uuid.UUID, update model.PaymentUpdate) (*model.Visit, error) {
	if err := validateUpdate(update); err != nil {
		return nil, err
	}

	v, err := s.visits.UpdatePayment(ctx, visitID, update, s.now().UTC())
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.PaymentsUpdated.WithLabelValues(string(v.PaymentStatus)).Inc()
	}
	return v, nil
}

func validateUpdate(update model.PaymentUpdate) error {
	if update.Empty() {
		return apperrors.Validation("no payment fields to update")
	}
	return validator.Struct(update).Err()
}

// BulkUpdatePayments applies each item on its own. A failed item is
// reported in its result and never stops the rest.
func (s *Service) BulkUpdatePayments(ctx context.Context, req *model.BulkPaymentRequest) (*model.BulkPaymentResponse, error) {
	if req == nil {
		return nil, apperrors.Validation("request body is required")
	}
	if err := validator.Struct(req).Err(); err != nil {
		return nil, err
	}

	resp := &model.BulkPaymentResponse{Results: make([]model.BulkPaymentResult, 0, len(req.Items))}
	for _, item := range req.Items {
		result := model.BulkPaymentResult{VisitID: item.VisitID}

		visit, err := s.applyItem(ctx, item)
		if err != nil {
			result.Error = errorMessage(err)
			resp.Failed++
			if apperrors.KindOf(err) == apperrors.KindDependency || apperrors.KindOf(err) == apperrors.KindInternal {
				s.log.Warn(err, "bulk payment item failed", "visit_id", item.VisitID)
			}
		} else {
			result.Success = true
			result.Visit = visit
			resp.Succeeded++
		}
		resp.Results = append(resp.Results, result)
	}

	s.log.Info("bulk payment update finished", "succeeded", resp.Succeeded, "failed", resp.Failed)
	return resp, nil
}

func (s *Service) applyItem(ctx context.Context, item model.BulkPaymentItem) (*model.Visit, error) {
	id, err := uuid.Parse(item.VisitID)
	if err != nil {
		return nil, apperrors.Validation("invalid request",
			apperrors.FieldError{Field: "visit_id", Message: "must be a valid UUID"})
	}
	return s.UpdatePayment(ctx, id, item.Fields)
}

func errorMessage(err error) string {
	var appErr *apperrors.AppError
	if !apperrors.As(err, &appErr) {
		return "internal server error"
	}
	if len(appErr.Fields) == 0 {
		return appErr.Message
	}
	f := appErr.Fields[0]
	return fmt.Sprintf("%s: %s %s", appErr.Message, f.Field, f.Message)
}

// GetPaymentHistory lists a patient's visits with their payment fields,
// most recent first
func (s *Service) GetPaymentHistory(ctx context.Context, patientID uuid.UUID) ([]*model.Visit, error) {
	if _, err := s.patients.Get(ctx, patientID); err != nil {
		return nil, err
	}
	return s.visits.ListByPatient(ctx, patientID)
}

// GetPendingPayments lists every pending visit, oldest first
func (s *Service) GetPendingPayments(ctx context.Context) ([]*model.PendingPayment, error) {
	return s.visits.ListPending(ctx)
}

func (s *Service) GetPaymentSummary(ctx context.Context, patientID uuid.UUID) (*model.PaymentSummary, error) {
	visits, err := s.GetPaymentHistory(ctx, patientID)
	if err != nil {
		return nil, err
	}

	summary := &model.PaymentSummary{
		PatientID:     patientID,
		VisitCount:    len(visits),
		PendingVisits: []*model.Visit{},
	}
	for _, v := range visits {
		summary.TotalPaid += v.AmountPaid
		if v.PaymentStatus == model.PaymentStatusPending {
			summary.PendingVisits = append(summary.PendingVisits, v)
		}
	}
	summary.PendingCount = len(summary.PendingVisits)
	return summary, nil
}

func (s *Service) GetPaymentOverview(ctx context.Context) (*model.PaymentOverview, error) {
	return s.visits.Overview(ctx)
}
