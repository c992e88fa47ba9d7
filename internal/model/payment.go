package model

import (
	"github.com/google/uuid"
)

// PaymentUpdate changes the payment fields of one visit. Nil fields are
// left as they are.
type PaymentUpdate struct {
	AmountPaid    *float64 `json:"amount_paid" validate:"omitempty,gte=0,lte=9999999999.99"`
	PaymentMethod *string  `json:"payment_method" validate:"omitempty,oneof=cash card upi bank_transfer other"`
	PaymentStatus *string  `json:"payment_status" validate:"omitempty,oneof=pending completed"`
}

func (u PaymentUpdate) Empty() bool {
	return u.AmountPaid == nil && u.PaymentMethod == nil && u.PaymentStatus == nil
}

type BulkPaymentItem struct {
	VisitID string        `json:"visit_id"`
	Fields  PaymentUpdate `json:"fields"`
}

type BulkPaymentRequest struct {
	Items []BulkPaymentItem `json:"items" validate:"required,min=1,max=500"`
}

// BulkPaymentResult reports the outcome of one item of a bulk update
type BulkPaymentResult struct {
	VisitID string `json:"visit_id"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Visit   *Visit `json:"visit,omitempty"`
}

type BulkPaymentResponse struct {
	Results   []BulkPaymentResult `json:"results"`
	Succeeded int                 `json:"succeeded"`
	Failed    int                 `json:"failed"`
}

// PendingPayment is a pending visit with its owning patient
type PendingPayment struct {
	Visit
	Patient PatientRef `db:"patient" json:"patient"`
}

// PaymentSummary aggregates one patient's visits
type PaymentSummary struct {
	PatientID     uuid.UUID `json:"patient_id"`
	TotalPaid     float64   `json:"total_paid"`
	VisitCount    int       `json:"visit_count"`
	PendingCount  int       `json:"pending_count"`
	PendingVisits []*Visit  `json:"pending_visits"`
}

// PaymentOverview aggregates the whole ledger
type PaymentOverview struct {
	TotalCollected      float64 `db:"total_collected" json:"total_collected"`
	VisitCount          int     `db:"visit_count" json:"visit_count"`
	PendingVisits       int     `db:"pending_visits" json:"pending_visits"`
	PatientsWithPending int     `db:"patients_with_pending" json:"patients_with_pending"`
}
