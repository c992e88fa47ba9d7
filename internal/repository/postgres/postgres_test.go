package postgres

import (
	"database/sql/driver"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
)

func newMock(t *testing.T) (BaseRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewBaseRepository(sqlx.NewDb(db, "postgres"), metrics.NewNoop()), mock
}

var patientColumnList = []string{
	"id", "reg_no", "name", "phone_no", "email", "address", "date_of_birth", "doctor_name",
	"prescription", "disease", "join_date", "last_visit_date", "next_appointment_date",
	"treatment_status", "created_at", "updated_at",
}

func patientRows(patients ...*model.Patient) *sqlmock.Rows {
	rows := sqlmock.NewRows(patientColumnList)
	for _, p := range patients {
		rows.AddRow(p.ID, p.RegNo, p.Name, p.PhoneNo, p.Email, p.Address, p.DateOfBirth, p.DoctorName,
			p.Prescription, p.Disease, p.JoinDate, nullTime(p.LastVisitDate), nullTime(p.NextAppointmentDate),
			string(p.TreatmentStatus), p.CreatedAt, p.UpdatedAt)
	}
	return rows
}

func visitRows(visits ...*model.Visit) *sqlmock.Rows {
	rows := sqlmock.NewRows(visitColumnNames)
	for _, v := range visits {
		rows.AddRow(v.ID, v.PatientID, v.VisitDate, v.Treatment, v.Notes, v.Prescription,
			nullTime(v.NextAppointmentDate), v.AmountPaid, string(v.PaymentMethod), string(v.PaymentStatus),
			v.CreatedAt, v.UpdatedAt)
	}
	return rows
}

func nullTime(t *time.Time) driver.Value {
	if t == nil {
		return nil
	}
	return *t
}

func samplePatient(regNo string) *model.Patient {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	return &model.Patient{
		ID:              uuid.New(),
		RegNo:           regNo,
		Name:            "Asha",
		PhoneNo:         "9800000000",
		Address:         "12 Lake Road",
		DateOfBirth:     time.Date(1990, 1, 2, 0, 0, 0, 0, time.UTC),
		DoctorName:      "Dr. Rao",
		Disease:         "Migraine",
		JoinDate:        now,
		TreatmentStatus: model.TreatmentStatusOngoing,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func sampleVisit(patientID uuid.UUID) *model.Visit {
	now := time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC)
	return &model.Visit{
		ID:            uuid.New(),
		PatientID:     patientID,
		VisitDate:     now,
		Treatment:     "Acupressure",
		AmountPaid:    500,
		PaymentMethod: model.PaymentMethodCash,
		PaymentStatus: model.PaymentStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}
