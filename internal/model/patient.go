package model

import (
	"time"

	"github.com/google/uuid"
)

type TreatmentStatus string

const (
	TreatmentStatusOngoing   TreatmentStatus = "ongoing"
	TreatmentStatusCompleted TreatmentStatus = "completed"
	TreatmentStatusCancelled TreatmentStatus = "cancelled"
)

func (s TreatmentStatus) Valid() bool {
	switch s {
	case TreatmentStatusOngoing, TreatmentStatusCompleted, TreatmentStatusCancelled:
		return true
	}
	return false
}

// Patient is a registered clinic patient. LastVisitDate and
// NextAppointmentDate only move when a visit is recorded.
type Patient struct {
	ID                  uuid.UUID       `db:"id" json:"id"`
	RegNo               string          `db:"reg_no" json:"reg_no"`
	Name                string          `db:"name" json:"name"`
	PhoneNo             string          `db:"phone_no" json:"phone_no"`
	Email               string          `db:"email" json:"email,omitempty"`
	Address             string          `db:"address" json:"address"`
	DateOfBirth         time.Time       `db:"date_of_birth" json:"date_of_birth"`
	DoctorName          string          `db:"doctor_name" json:"doctor_name"`
	Prescription        string          `db:"prescription" json:"prescription,omitempty"`
	Disease             string          `db:"disease" json:"disease"`
	JoinDate            time.Time       `db:"join_date" json:"join_date"`
	LastVisitDate       *time.Time      `db:"last_visit_date" json:"last_visit_date,omitempty"`
	NextAppointmentDate *time.Time      `db:"next_appointment_date" json:"next_appointment_date,omitempty"`
	TreatmentStatus     TreatmentStatus `db:"treatment_status" json:"treatment_status"`
	CreatedAt           time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time       `db:"updated_at" json:"updated_at"`
}

type CreatePatientRequest struct {
	RegNo        string `json:"reg_no" validate:"required,max=64,regno"`
	Name         string `json:"name" validate:"required,max=200"`
	PhoneNo      string `json:"phone_no" validate:"required,min=5,max=20"`
	Email        string `json:"email" validate:"omitempty,email"`
	Address      string `json:"address" validate:"required,max=500"`
	DateOfBirth  string `json:"date_of_birth" validate:"required,date"`
	DoctorName   string `json:"doctor_name" validate:"required,max=200"`
	Prescription string `json:"prescription" validate:"max=4000"`
	Disease      string `json:"disease" validate:"required,max=500"`
	JoinDate     string `json:"join_date" validate:"omitempty,date"`
}

// UpdatePatientRequest is a partial update of demographic fields. The
// registration number and scheduling fields are decoded only so that
// attempts to change them can be rejected.
type UpdatePatientRequest struct {
	Name         *string `json:"name" validate:"omitempty,min=1,max=200"`
	PhoneNo      *string `json:"phone_no" validate:"omitempty,min=5,max=20"`
	Email        *string `json:"email" validate:"omitempty,email"`
	Address      *string `json:"address" validate:"omitempty,min=1,max=500"`
	DateOfBirth  *string `json:"date_of_birth" validate:"omitempty,date"`
	DoctorName   *string `json:"doctor_name" validate:"omitempty,min=1,max=200"`
	Prescription *string `json:"prescription" validate:"omitempty,max=4000"`
	Disease      *string `json:"disease" validate:"omitempty,min=1,max=500"`

	RegNo               *string `json:"reg_no"`
	LastVisitDate       *string `json:"last_visit_date"`
	NextAppointmentDate *string `json:"next_appointment_date"`
	TreatmentStatus     *string `json:"treatment_status"`
}

// PatientDetails holds the demographic columns changed by a partial update
type PatientDetails struct {
	Name         *string
	PhoneNo      *string
	Email        *string
	Address      *string
	DateOfBirth  *time.Time
	DoctorName   *string
	Prescription *string
	Disease      *string
}

// Empty reports whether no column is set
func (d PatientDetails) Empty() bool {
	return d.Name == nil && d.PhoneNo == nil && d.Email == nil && d.Address == nil &&
		d.DateOfBirth == nil && d.DoctorName == nil && d.Prescription == nil && d.Disease == nil
}

type UpdateTreatmentStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=ongoing completed cancelled"`
}

// PatientList is one page of patients
type PatientList struct {
	Patients []*Patient
	Total    int
}

// PatientRef identifies the owner of a visit in cross-patient listings
type PatientRef struct {
	ID      uuid.UUID `db:"id" json:"id"`
	RegNo   string    `db:"reg_no" json:"reg_no"`
	Name    string    `db:"name" json:"name"`
	PhoneNo string    `db:"phone_no" json:"phone_no"`
}
