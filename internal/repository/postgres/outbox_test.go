package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-api/internal/model"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

func TestOutboxRepository_CreateRejectsNilPayload(t *testing.T) {
	base, _ := newMock(t)
	repo := NewOutboxRepository(base)

	err := repo.Create(context.Background(), &model.OutboxEvent{ID: uuid.New()})
	assert.Error(t, err)
}

func TestOutboxRepository_ClaimPending(t *testing.T) {
	base, mock := newMock(t)
	repo := NewOutboxRepository(base)
	id := uuid.New()
	now := time.Now()

	rows := sqlmock.NewRows([]string{
		"id", "event_type", "payload", "status", "error_message", "retry_count",
		"created_at", "processed_at", "updated_at",
	}).AddRow(id, model.EventVisitRecorded, []byte(`{"a":1}`), "pending", nil, 1, now, nil, now)

	mock.ExpectQuery(`FOR UPDATE SKIP LOCKED`).
		WithArgs(10, "30000 milliseconds").
		WillReturnRows(rows)

	events, err := repo.ClaimPending(context.Background(), 10, 30*time.Second)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, id, events[0].ID)
	assert.Equal(t, 1, events[0].RetryCount)
	assert.JSONEq(t, `{"a":1}`, string(events[0].Payload))
}

func TestOutboxRepository_MarkFailed(t *testing.T) {
	base, mock := newMock(t)
	repo := NewOutboxRepository(base)
	id := uuid.New()

	mock.ExpectExec(`SET status = \$2, error_message = \$3, retry_count = retry_count \+ 1`).
		WithArgs(id, model.OutboxStatusFailed, "broker down").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`SET status = \$2`).
		WithArgs(id, model.OutboxStatusPending, "broker down").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.MarkFailed(context.Background(), id, "broker down", true))
	require.NoError(t, repo.MarkFailed(context.Background(), id, "broker down", false))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOutboxRepository_MarkProcessedUnknown(t *testing.T) {
	base, mock := newMock(t)
	repo := NewOutboxRepository(base)

	mock.ExpectExec(`SET status = 'processed'`).WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.MarkProcessed(context.Background(), uuid.New())
	assert.True(t, apperrors.Is(err, apperrors.KindNotFound))
}

func TestOutboxRepository_DeleteProcessedBefore(t *testing.T) {
	base, mock := newMock(t)
	repo := NewOutboxRepository(base)
	cutoff := time.Now().Add(-24 * time.Hour)

	mock.ExpectExec(`DELETE FROM outbox_events`).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.DeleteProcessedBefore(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}
