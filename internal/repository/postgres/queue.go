package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/farewatch-api/internal/model"
	"github.com/jwalitptl/farewatch-api/internal/repository"
	apperrors "github.com/jwalitptl/farewatch-api/pkg/errors"
)

type queueRepository struct {
	BaseRepository
}

func NewQueueRepository(base BaseRepository) repository.QueueRepository {
	return &queueRepository{base}
}

func (r *queueRepository) Get(ctx context.Context, id uuid.UUID) (*model.QueuedMessage, error) {
	query := `
		SELECT id, alert_event_id, user_id, email_type, recipient, payload,
			   status, retry_count, last_error, retry_at, sent_at,
			   opened, clicked, created_at, updated_at
		FROM email_queue
		WHERE id = $1
	`
	var msg model.QueuedMessage
	err := r.db.GetContext(ctx, &msg, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFound("queued message", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get queued message: %w", err)
	}
	return &msg, nil
}

// ClaimPending selects deliverable messages. SKIP LOCKED keeps concurrent
// dispatchers from blocking on each other's rows, but the locks only last for
// this statement, so delivery is at-least-once and the status transitions in
// MarkSent and MarkFailed must stay idempotent.
func (r *queueRepository) ClaimPending(ctx context.Context, limit int) ([]*model.QueuedMessage, error) {
	query := `
		SELECT id, alert_event_id, user_id, email_type, recipient, payload,
			   status, retry_count, last_error, retry_at, sent_at,
			   opened, clicked, created_at, updated_at
		FROM email_queue
		WHERE status = $1
		AND (retry_at IS NULL OR retry_at <= NOW())
		ORDER BY created_at ASC
		FOR UPDATE SKIP LOCKED
		LIMIT $2
	`
	var messages []*model.QueuedMessage
	err := r.db.SelectContext(ctx, &messages, query, model.QueueStatusPending, limit)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to claim pending messages: %w", err)
	}
	return messages, nil
}

func (r *queueRepository) MarkSent(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE email_queue
		SET status = $1, sent_at = NOW(), last_error = NULL, updated_at = NOW()
		WHERE id = $2
	`
	_, err := r.db.ExecContext(ctx, query, model.QueueStatusSent, id)
	if err != nil {
		return fmt.Errorf("failed to mark message sent: %w", err)
	}
	return nil
}

// MarkFailed records a delivery failure. With a retryAt the message stays
// pending and is picked up again after the backoff; without one it is
// terminally failed.
func (r *queueRepository) MarkFailed(ctx context.Context, id uuid.UUID, sendErr string, retryAt *time.Time) error {
	status := model.QueueStatusFailed
	if retryAt != nil {
		status = model.QueueStatusPending
	}
	query := `
		UPDATE email_queue
		SET status = $1, retry_count = retry_count + 1,
			last_error = $2, retry_at = $3, updated_at = NOW()
		WHERE id = $4
	`
	_, err := r.db.ExecContext(ctx, query, status, sendErr, retryAt, id)
	if err != nil {
		return fmt.Errorf("failed to mark message failed: %w", err)
	}
	return nil
}

func (r *queueRepository) MarkOpened(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE email_queue SET opened = TRUE, updated_at = NOW() WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to mark message opened: %w", err)
	}
	return nil
}

func (r *queueRepository) MarkClicked(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE email_queue SET clicked = TRUE, updated_at = NOW() WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to mark message clicked: %w", err)
	}
	return nil
}

func (r *queueRepository) PendingCount(ctx context.Context) (int, error) {
	query := `SELECT COUNT(*) FROM email_queue WHERE status = $1`
	var count int
	err := r.db.GetContext(ctx, &count, query, model.QueueStatusPending)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending messages: %w", err)
	}
	return count, nil
}

func (r *queueRepository) DeleteSentBefore(ctx context.Context, before time.Time) (int64, error) {
	query := `
		DELETE FROM email_queue
		WHERE status = $1
		AND sent_at < $2
	`
	result, err := r.db.ExecContext(ctx, query, model.QueueStatusSent, before)
	if err != nil {
		return 0, fmt.Errorf("failed to delete sent messages: %w", err)
	}
	return result.RowsAffected()
}
