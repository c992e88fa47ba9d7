package model

import (
	"time"

	"github.com/google/uuid"
)

type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "cash"
	PaymentMethodCard         PaymentMethod = "card"
	PaymentMethodUPI          PaymentMethod = "upi"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodOther        PaymentMethod = "other"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
)

// Visit is one clinical encounter. After creation only the payment
// fields change.
type Visit struct {
	ID                  uuid.UUID     `db:"id" json:"id"`
	PatientID           uuid.UUID     `db:"patient_id" json:"patient_id"`
	VisitDate           time.Time     `db:"visit_date" json:"visit_date"`
	Treatment           string        `db:"treatment" json:"treatment"`
	Notes               string        `db:"notes" json:"notes,omitempty"`
	Prescription        string        `db:"prescription" json:"prescription,omitempty"`
	NextAppointmentDate *time.Time    `db:"next_appointment_date" json:"next_appointment_date,omitempty"`
	AmountPaid          float64       `db:"amount_paid" json:"amount_paid"`
	PaymentMethod       PaymentMethod `db:"payment_method" json:"payment_method"`
	PaymentStatus       PaymentStatus `db:"payment_status" json:"payment_status"`
	CreatedAt           time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time     `db:"updated_at" json:"updated_at"`
}

type CreateVisitRequest struct {
	VisitDate           string   `json:"visit_date" validate:"omitempty,date"`
	Treatment           string   `json:"treatment" validate:"required,max=4000"`
	Notes               string   `json:"notes" validate:"max=4000"`
	Prescription        string   `json:"prescription" validate:"max=4000"`
	NextAppointmentDate string   `json:"next_appointment_date" validate:"omitempty,date"`
	AmountPaid          *float64 `json:"amount_paid" validate:"omitempty,gte=0,lte=9999999999.99"`
	PaymentMethod       string   `json:"payment_method" validate:"omitempty,oneof=cash card upi bank_transfer other"`
	PaymentStatus       string   `json:"payment_status" validate:"omitempty,oneof=pending completed"`
	TreatmentStatus     string   `json:"treatment_status" validate:"omitempty,oneof=ongoing completed cancelled"`
}

// VisitRecord is everything the ledger writes in one transaction
type VisitRecord struct {
	Visit           *Visit
	TreatmentStatus *TreatmentStatus
	Event           *OutboxEvent
}
