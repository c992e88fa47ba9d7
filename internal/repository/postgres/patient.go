package postgres

import (
	"context"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

const patientColumns = `id, reg_no, name, phone_no, email, address, date_of_birth, doctor_name,
	prescription, disease, join_date, last_visit_date, next_appointment_date,
	treatment_status, created_at, updated_at`

type patientRepository struct {
	BaseRepository
}

func NewPatientRepository(base BaseRepository) repository.PatientRepository {
	return &patientRepository{base}
}

func (r *patientRepository) Create(ctx context.Context, patient *model.Patient) error {
	start := time.Now()
	query := `
		INSERT INTO patients (` + patientColumns + `)
		VALUES (
			:id, :reg_no, :name, :phone_no, :email, :address, :date_of_birth, :doctor_name,
			:prescription, :disease, :join_date, :last_visit_date, :next_appointment_date,
			:treatment_status, :created_at, :updated_at
		)
	`
	_, err := r.db.NamedExecContext(ctx, query, patient)
	r.observe("create_patient", start, err)
	if err != nil {
		return translate(err, "patient")
	}
	return nil
}

func (r *patientRepository) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	var patient model.Patient
	query := `SELECT ` + patientColumns + ` FROM patients WHERE id = $1`
	if err := r.db.GetContext(ctx, &patient, query, id); err != nil {
		return nil, translate(err, "patient")
	}
	return &patient, nil
}

func (r *patientRepository) GetByRegNo(ctx context.Context, regNo string) (*model.Patient, error) {
	var patient model.Patient
	query := `SELECT ` + patientColumns + ` FROM patients WHERE reg_no = $1`
	if err := r.db.GetContext(ctx, &patient, query, regNo); err != nil {
		return nil, translate(err, "patient")
	}
	return &patient, nil
}

func (r *patientRepository) SearchByRegNoPrefix(ctx context.Context, prefix string) iter.Seq2[*model.Patient, error] {
	query := `
		SELECT ` + patientColumns + `
		FROM patients
		WHERE reg_no LIKE $1 ESCAPE '\'
		ORDER BY reg_no ASC
	`
	pattern := escapeLike(prefix) + "%"

	return func(yield func(*model.Patient, error) bool) {
		rows, err := r.db.QueryxContext(ctx, query, pattern)
		if err != nil {
			yield(nil, translate(err, "patient"))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var p model.Patient
			if err := rows.StructScan(&p); err != nil {
				yield(nil, translate(err, "patient"))
				return
			}
			if !yield(&p, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(nil, translate(err, "patient"))
		}
	}
}

func (r *patientRepository) List(ctx context.Context, limit, offset int) (*model.PatientList, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM patients`); err != nil {
		return nil, translate(err, "patient")
	}

	patients := []*model.Patient{}
	query := `
		SELECT ` + patientColumns + `
		FROM patients
		ORDER BY created_at DESC, id
		LIMIT $1 OFFSET $2
	`
	if err := r.db.SelectContext(ctx, &patients, query, limit, offset); err != nil {
		return nil, translate(err, "patient")
	}
	return &model.PatientList{Patients: patients, Total: total}, nil
}

func (r *patientRepository) ListUpcoming(ctx context.Context, from, to time.Time) ([]*model.Patient, error) {
	patients := []*model.Patient{}
	query := `
		SELECT ` + patientColumns + `
		FROM patients
		WHERE treatment_status = $1
		AND next_appointment_date IS NOT NULL
		AND next_appointment_date BETWEEN $2 AND $3
		ORDER BY next_appointment_date ASC, reg_no ASC
	`
	if err := r.db.SelectContext(ctx, &patients, query, model.TreatmentStatusOngoing, from, to); err != nil {
		return nil, translate(err, "patient")
	}
	return patients, nil
}

func (r *patientRepository) UpdateDetails(ctx context.Context, id uuid.UUID, d model.PatientDetails, at time.Time) (*model.Patient, error) {
	sets := []string{}
	args := map[string]any{"id": id, "updated_at": at}

	add := func(column string, value any) {
		sets = append(sets, fmt.Sprintf("%s = :%s", column, column))
		args[column] = value
	}
	if d.Name != nil {
		add("name", *d.Name)
	}
	if d.PhoneNo != nil {
		add("phone_no", *d.PhoneNo)
	}
	if d.Email != nil {
		add("email", *d.Email)
	}
	if d.Address != nil {
		add("address", *d.Address)
	}
	if d.DateOfBirth != nil {
		add("date_of_birth", *d.DateOfBirth)
	}
	if d.DoctorName != nil {
		add("doctor_name", *d.DoctorName)
	}
	if d.Prescription != nil {
		add("prescription", *d.Prescription)
	}
	if d.Disease != nil {
		add("disease", *d.Disease)
	}
	if len(sets) == 0 {
		return r.Get(ctx, id)
	}
	sets = append(sets, "updated_at = :updated_at")

	query := `UPDATE patients SET ` + strings.Join(sets, ", ") +
		` WHERE id = :id RETURNING ` + patientColumns
	return r.updateReturning(ctx, query, args)
}

func (r *patientRepository) UpdateTreatmentStatus(ctx context.Context, id uuid.UUID, status model.TreatmentStatus, at time.Time) (*model.Patient, error) {
	query := `
		UPDATE patients SET treatment_status = :status, updated_at = :updated_at
		WHERE id = :id
		RETURNING ` + patientColumns
	return r.updateReturning(ctx, query, map[string]any{
		"id":         id,
		"status":     status,
		"updated_at": at,
	})
}

func (r *patientRepository) updateReturning(ctx context.Context, query string, args map[string]any) (*model.Patient, error) {
	rows, err := r.db.NamedQueryContext(ctx, query, args)
	if err != nil {
		return nil, translate(err, "patient")
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, translate(err, "patient")
		}
		return nil, apperrors.NotFound("patient", nil)
	}
	var p model.Patient
	if err := rows.StructScan(&p); err != nil {
		return nil, translate(err, "patient")
	}
	return &p, nil
}

func (r *patientRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		var visits int
		if err := tx.GetContext(ctx, &visits, `SELECT COUNT(*) FROM visits WHERE patient_id = $1`, id); err != nil {
			return translate(err, "patient")
		}
		if visits > 0 {
			return apperrors.Conflict(
				fmt.Sprintf("patient has %d recorded visits and cannot be deleted", visits), nil)
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM patients WHERE id = $1`, id)
		if err != nil {
			if isForeignKeyViolation(err) {
				return apperrors.Conflict("patient has recorded visits and cannot be deleted", err)
			}
			return translate(err, "patient")
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return apperrors.NotFound("patient", nil)
		}
		return nil
	})
}
