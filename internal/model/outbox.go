package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "pending"
	OutboxStatusProcessed OutboxStatus = "processed"
	OutboxStatusFailed    OutboxStatus = "failed"
)

// Event types
const (
	EventVisitRecorded = "visit.recorded"
)

type OutboxEvent struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	EventType    string          `db:"event_type" json:"event_type"`
	Payload      json.RawMessage `db:"payload" json:"payload"`
	Status       OutboxStatus    `db:"status" json:"status"`
	ErrorMessage *string         `db:"error_message" json:"error_message,omitempty"`
	RetryCount   int             `db:"retry_count" json:"retry_count"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	ProcessedAt  *time.Time      `db:"processed_at" json:"processed_at,omitempty"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
}

// VisitRecordedPayload is published after a visit commits
type VisitRecordedPayload struct {
	VisitID             uuid.UUID     `json:"visit_id"`
	PatientID           uuid.UUID     `json:"patient_id"`
	PatientName         string        `json:"patient_name"`
	PhoneNo             string        `json:"phone_no"`
	Email               string        `json:"email,omitempty"`
	VisitDate           time.Time     `json:"visit_date"`
	NextAppointmentDate *time.Time    `json:"next_appointment_date,omitempty"`
	AmountPaid          float64       `json:"amount_paid"`
	PaymentStatus       PaymentStatus `json:"payment_status"`
}

// NewOutboxEvent marshals payload into a pending event
func NewOutboxEvent(eventType string, payload any, now time.Time) (*OutboxEvent, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &OutboxEvent{
		ID:        uuid.New(),
		EventType: eventType,
		Payload:   raw,
		Status:    OutboxStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}
