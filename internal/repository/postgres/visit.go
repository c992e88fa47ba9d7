package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

var visitColumnNames = []string{
	"id", "patient_id", "visit_date", "treatment", "notes", "prescription",
	"next_appointment_date", "amount_paid", "payment_method", "payment_status",
	"created_at", "updated_at",
}

var visitColumns = strings.Join(visitColumnNames, ", ")

func prefixed(alias string, columns []string) string {
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = alias + "." + c
	}
	return strings.Join(out, ", ")
}

type visitRepository struct {
	BaseRepository
}

func NewVisitRepository(base BaseRepository) repository.VisitRepository {
	return &visitRepository{base}
}

func (r *visitRepository) Record(ctx context.Context, rec *model.VisitRecord) (*model.Patient, error) {
	start := time.Now()
	v := rec.Visit

	var status *string
	if rec.TreatmentStatus != nil {
		s := string(*rec.TreatmentStatus)
		status = &s
	}

	var patient model.Patient
	err := r.WithTx(ctx, func(tx *sqlx.Tx) error {
		// An existing appointment that the new visit has overtaken is cleared
		// so next_appointment_date never precedes last_visit_date.
		update := `
			UPDATE patients SET
				last_visit_date = $2,
				next_appointment_date = CASE
					WHEN $3::timestamptz IS NOT NULL THEN $3::timestamptz
					WHEN next_appointment_date < $2 THEN NULL
					ELSE next_appointment_date
				END,
				treatment_status = COALESCE($4::text, treatment_status),
				updated_at = $5
			WHERE id = $1
			RETURNING ` + patientColumns
		if err := tx.GetContext(ctx, &patient, update,
			v.PatientID, v.VisitDate, v.NextAppointmentDate, status, v.UpdatedAt,
		); err != nil {
			return translate(err, "patient")
		}

		insert := `
			INSERT INTO visits (` + visitColumns + `)
			VALUES (
				:id, :patient_id, :visit_date, :treatment, :notes, :prescription,
				:next_appointment_date, :amount_paid, :payment_method, :payment_status,
				:created_at, :updated_at
			)
		`
		if _, err := tx.NamedExecContext(ctx, insert, v); err != nil {
			if isForeignKeyViolation(err) {
				return apperrors.NotFound("patient", err)
			}
			return translate(err, "visit")
		}

		if rec.Event != nil {
			if err := insertOutboxEvent(ctx, tx, rec.Event); err != nil {
				return translate(err, "outbox event")
			}
		}
		return nil
	})
	r.observe("record_visit", start, err)
	if err != nil {
		return nil, err
	}
	return &patient, nil
}

func (r *visitRepository) Get(ctx context.Context, id uuid.UUID) (*model.Visit, error) {
	var visit model.Visit
	query := `SELECT ` + visitColumns + ` FROM visits WHERE id = $1`
	if err := r.db.GetContext(ctx, &visit, query, id); err != nil {
		return nil, translate(err, "visit")
	}
	return &visit, nil
}

func (r *visitRepository) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Visit, error) {
	visits := []*model.Visit{}
	query := `
		SELECT ` + visitColumns + `
		FROM visits
		WHERE patient_id = $1
		ORDER BY visit_date DESC, created_at DESC
	`
	if err := r.db.SelectContext(ctx, &visits, query, patientID); err != nil {
		return nil, translate(err, "visit")
	}
	return visits, nil
}

func (r *visitRepository) UpdatePayment(ctx context.Context, id uuid.UUID, u model.PaymentUpdate, at time.Time) (*model.Visit, error) {
	start := time.Now()
	query := `
		UPDATE visits SET
			amount_paid = COALESCE($2::numeric, amount_paid),
			payment_method = COALESCE($3::text, payment_method),
			payment_status = COALESCE($4::text, payment_status),
			updated_at = $5
		WHERE id = $1
		RETURNING ` + visitColumns

	var visit model.Visit
	err := r.db.GetContext(ctx, &visit, query, id, u.AmountPaid, u.PaymentMethod, u.PaymentStatus, at)
	r.observe("update_payment", start, err)
	if err != nil {
		return nil, translate(err, "visit")
	}
	return &visit, nil
}

func (r *visitRepository) ListPending(ctx context.Context) ([]*model.PendingPayment, error) {
	pending := []*model.PendingPayment{}
	query := `
		SELECT ` + prefixed("v", visitColumnNames) + `,
			p.id AS "patient.id",
			p.reg_no AS "patient.reg_no",
			p.name AS "patient.name",
			p.phone_no AS "patient.phone_no"
		FROM visits v
		JOIN patients p ON p.id = v.patient_id
		WHERE v.payment_status = $1
		ORDER BY v.visit_date ASC, v.id
	`
	if err := r.db.SelectContext(ctx, &pending, query, model.PaymentStatusPending); err != nil {
		return nil, translate(err, "visit")
	}
	return pending, nil
}

func (r *visitRepository) Overview(ctx context.Context) (*model.PaymentOverview, error) {
	query := `
		SELECT
			COALESCE(SUM(amount_paid), 0) AS total_collected,
			COUNT(*) AS visit_count,
			COUNT(*) FILTER (WHERE payment_status = 'pending') AS pending_visits,
			COUNT(DISTINCT patient_id) FILTER (WHERE payment_status = 'pending') AS patients_with_pending
		FROM visits
	`
	var overview model.PaymentOverview
	if err := r.db.GetContext(ctx, &overview, query); err != nil {
		return nil, translate(err, "visit")
	}
	return &overview, nil
}
