package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

const outboxColumns = `id, event_type, payload, status, error_message, retry_count, created_at, processed_at, updated_at`

type outboxRepository struct {
	BaseRepository
}

func NewOutboxRepository(base BaseRepository) repository.OutboxRepository {
	return &outboxRepository{base}
}

func insertOutboxEvent(ctx context.Context, ext sqlx.ExtContext, event *model.OutboxEvent) error {
	if event.Payload == nil {
		return fmt.Errorf("event payload cannot be nil")
	}
	query := `
		INSERT INTO outbox_events (id, event_type, payload, status, created_at, updated_at)
		VALUES ($1, $2, $3::jsonb, $4, $5, $6)
	`
	// lib/pq sends []byte as bytea, so the JSON goes over the wire as text
	_, err := ext.ExecContext(ctx, query,
		event.ID, event.EventType, string(event.Payload), string(event.Status),
		event.CreatedAt, event.UpdatedAt,
	)
	return err
}

func (r *outboxRepository) Create(ctx context.Context, event *model.OutboxEvent) error {
	if event == nil {
		return fmt.Errorf("event cannot be nil")
	}
	if err := insertOutboxEvent(ctx, r.db, event); err != nil {
		return translate(err, "outbox event")
	}
	return nil
}

func (r *outboxRepository) ClaimPending(ctx context.Context, limit int, lease time.Duration) ([]*model.OutboxEvent, error) {
	start := time.Now()
	query := `
		UPDATE outbox_events SET locked_until = NOW() + $2::interval, updated_at = NOW()
		WHERE id IN (
			SELECT id FROM outbox_events
			WHERE status = 'pending'
			AND (locked_until IS NULL OR locked_until < NOW())
			ORDER BY created_at ASC
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + outboxColumns

	events := []*model.OutboxEvent{}
	err := r.db.SelectContext(ctx, &events, query, limit, fmt.Sprintf("%d milliseconds", lease.Milliseconds()))
	r.observe("claim_outbox_events", start, err)
	if err != nil {
		return nil, translate(err, "outbox event")
	}
	return events, nil
}

func (r *outboxRepository) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE outbox_events
		SET status = 'processed', processed_at = NOW(), locked_until = NULL,
			error_message = NULL, updated_at = NOW()
		WHERE id = $1
	`
	return r.exec(ctx, query, id)
}

// MarkFailed records a delivery failure. Non-terminal failures stay pending
// and become claimable again once the lease is released.
func (r *outboxRepository) MarkFailed(ctx context.Context, id uuid.UUID, reason string, terminal bool) error {
	status := model.OutboxStatusPending
	if terminal {
		status = model.OutboxStatusFailed
	}
	query := `
		UPDATE outbox_events
		SET status = $2, error_message = $3, retry_count = retry_count + 1,
			locked_until = NULL, updated_at = NOW()
		WHERE id = $1
	`
	return r.exec(ctx, query, id, status, reason)
}

func (r *outboxRepository) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return translate(err, "outbox event")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NotFound("outbox event", nil)
	}
	return nil
}

func (r *outboxRepository) DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error) {
	query := `
		DELETE FROM outbox_events
		WHERE status = 'processed'
		AND processed_at < $1
	`
	result, err := r.db.ExecContext(ctx, query, before)
	if err != nil {
		return 0, fmt.Errorf("failed to delete processed events: %w", err)
	}

	return result.RowsAffected()
}
