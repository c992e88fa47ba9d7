package repository

import (
	"context"
	"iter"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
)

// All repository interfaces in one file
type (
	// PatientRepository persists patient records
	PatientRepository interface {
		Create(ctx context.Context, patient *model.Patient) error
		Get(ctx context.Context, id uuid.UUID) (*model.Patient, error)
		GetByRegNo(ctx context.Context, regNo string) (*model.Patient, error)
		// SearchByRegNoPrefix yields patients ordered by reg_no. Every range
		// over the returned sequence runs a fresh query.
		SearchByRegNoPrefix(ctx context.Context, prefix string) iter.Seq2[*model.Patient, error]
		List(ctx context.Context, limit, offset int) (*model.PatientList, error)
		ListUpcoming(ctx context.Context, from, to time.Time) ([]*model.Patient, error)
		UpdateDetails(ctx context.Context, id uuid.UUID, details model.PatientDetails, at time.Time) (*model.Patient, error)
		UpdateTreatmentStatus(ctx context.Context, id uuid.UUID, status model.TreatmentStatus, at time.Time) (*model.Patient, error)
		// Delete fails with a conflict while the patient still has visits
		Delete(ctx context.Context, id uuid.UUID) error
	}

	// VisitRepository persists the visit ledger
	VisitRepository interface {
		// Record inserts the visit, advances the patient's scheduling fields
		// and stores the outbox event in one transaction.
		Record(ctx context.Context, rec *model.VisitRecord) (*model.Patient, error)
		Get(ctx context.Context, id uuid.UUID) (*model.Visit, error)
		ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Visit, error)
		UpdatePayment(ctx context.Context, id uuid.UUID, update model.PaymentUpdate, at time.Time) (*model.Visit, error)
		ListPending(ctx context.Context) ([]*model.PendingPayment, error)
		Overview(ctx context.Context) (*model.PaymentOverview, error)
	}

	UserRepository interface {
		Create(ctx context.Context, user *model.User) error
		Get(ctx context.Context, id uuid.UUID) (*model.User, error)
		GetByEmail(ctx context.Context, email string) (*model.User, error)
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		// ClaimPending leases up to limit pending events so that concurrent
		// workers never publish the same event at the same time
		ClaimPending(ctx context.Context, limit int, lease time.Duration) ([]*model.OutboxEvent, error)
		MarkProcessed(ctx context.Context, id uuid.UUID) error
		MarkFailed(ctx context.Context, id uuid.UUID, reason string, terminal bool) error
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}
)
