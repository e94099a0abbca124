package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/farewatch-api/internal/model"
	"github.com/jwalitptl/farewatch-api/internal/repository"
)

type alertRepository struct {
	BaseRepository
}

func NewAlertRepository(base BaseRepository) repository.AlertRepository {
	return &alertRepository{base}
}

// CreateWithMessage writes the alert event and its queued message in one
// transaction. The linkage lets delivery tracking resolve a message back
// to the event that caused it, and guarantees neither row exists alone.
func (r *alertRepository) CreateWithMessage(ctx context.Context, event *model.AlertEvent, msg *model.QueuedMessage) error {
	event.ID = uuid.New()
	event.CreatedAt = time.Now()

	msg.ID = uuid.New()
	msg.AlertEventID = event.ID
	msg.Status = model.QueueStatusPending
	msg.CreatedAt = event.CreatedAt
	msg.UpdatedAt = event.CreatedAt

	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		alertQuery := `
			INSERT INTO price_alerts (
				id, user_id, destination_id, price, tracking_threshold,
				deal_quality, savings_percent, avg_90day_price, all_time_low,
				outbound_date, email_opened, link_clicked, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, FALSE, FALSE, $11)
		`
		_, err := tx.ExecContext(ctx, alertQuery,
			event.ID,
			event.UserID,
			event.DestinationID,
			event.Price,
			event.TrackingThreshold,
			event.DealQuality,
			event.SavingsPercent,
			event.Avg90DayPrice,
			event.AllTimeLow,
			event.OutboundDate,
			event.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create alert event: %w", err)
		}

		queueQuery := `
			INSERT INTO email_queue (
				id, alert_event_id, user_id, email_type, recipient, payload,
				status, retry_count, opened, clicked, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, 0, FALSE, FALSE, $8, $9)
		`
		_, err = tx.ExecContext(ctx, queueQuery,
			msg.ID,
			msg.AlertEventID,
			msg.UserID,
			msg.EmailType,
			msg.Recipient,
			msg.Payload,
			msg.Status,
			msg.CreatedAt,
			msg.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to enqueue message: %w", err)
		}

		return nil
	})
}

func (r *alertRepository) CountForUserSince(ctx context.Context, userID uuid.UUID, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM price_alerts
		WHERE user_id = $1
		AND created_at >= $2
	`
	var count int
	err := r.db.GetContext(ctx, &count, query, userID, since)
	if err != nil {
		return 0, fmt.Errorf("failed to count alerts: %w", err)
	}
	return count, nil
}

func (r *alertRepository) SetEmailOpened(ctx context.Context, id uuid.UUID) error {
	return r.setFlag(ctx, id, "email_opened")
}

func (r *alertRepository) SetLinkClicked(ctx context.Context, id uuid.UUID) error {
	return r.setFlag(ctx, id, "link_clicked")
}

func (r *alertRepository) setFlag(ctx context.Context, id uuid.UUID, column string) error {
	query := fmt.Sprintf(`UPDATE price_alerts SET %s = TRUE WHERE id = $1`, column)
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to set %s: %w", column, err)
	}
	return nil
}
