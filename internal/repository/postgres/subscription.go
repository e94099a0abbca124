package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/farewatch-api/internal/model"
	"github.com/jwalitptl/farewatch-api/internal/repository"
)

type subscriptionRepository struct {
	BaseRepository
}

func NewSubscriptionRepository(base BaseRepository) repository.SubscriptionRepository {
	return &subscriptionRepository{base}
}

func (r *subscriptionRepository) ListActiveForDestination(ctx context.Context, destinationID uuid.UUID) ([]*model.SubscriptionWithPreference, error) {
	query := `
		SELECT ud.id, ud.user_id, ud.destination_id, ud.price_threshold,
			   ud.alert_cooldown_days, ud.min_deal_quality, ud.min_drop_percent,
			   ud.is_active, ud.last_alert_sent_at, ud.created_at,
			   up.user_id AS "preference.user_id",
			   up.email AS "preference.email",
			   up.email_notifications_enabled AS "preference.email_notifications_enabled",
			   up.digest_frequency AS "preference.digest_frequency",
			   up.max_alerts_per_week AS "preference.max_alerts_per_week",
			   up.quiet_hours_start AS "preference.quiet_hours_start",
			   up.quiet_hours_end AS "preference.quiet_hours_end",
			   up.timezone AS "preference.timezone"
		FROM user_destinations ud
		JOIN user_preferences up ON up.user_id = ud.user_id
		WHERE ud.destination_id = $1
		AND ud.is_active = TRUE
		ORDER BY ud.created_at ASC
	`
	var subscriptions []*model.SubscriptionWithPreference
	err := r.db.SelectContext(ctx, &subscriptions, query, destinationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	return subscriptions, nil
}

func (r *subscriptionRepository) UpdateLastAlertSentAt(ctx context.Context, id uuid.UUID, sentAt time.Time) error {
	query := `
		UPDATE user_destinations
		SET last_alert_sent_at = $1
		WHERE id = $2
	`
	result, err := r.db.ExecContext(ctx, query, sentAt, id)
	if err != nil {
		return fmt.Errorf("failed to update last alert timestamp: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("subscription not found")
	}

	return nil
}
