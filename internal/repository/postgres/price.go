package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/farewatch-api/internal/model"
	"github.com/jwalitptl/farewatch-api/internal/repository"
)

type priceRepository struct {
	BaseRepository
}

func NewPriceRepository(base BaseRepository) repository.PriceRepository {
	return &priceRepository{base}
}

// RecordObservation appends one fare sample to the observation log.
// Rows are never updated or deleted; the log is the audit trail behind
// every classification.
func (r *priceRepository) RecordObservation(ctx context.Context, destinationID uuid.UUID, price float64, outboundDate time.Time) (uuid.UUID, error) {
	query := `
		INSERT INTO price_history (
			id, destination_id, price, outbound_date, checked_at
		) VALUES ($1, $2, $3, $4, $5)
	`
	id := uuid.New()
	_, err := r.db.ExecContext(ctx, query, id, destinationID, price, outboundDate, time.Now())
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to record observation: %w", err)
	}
	return id, nil
}

// RefreshStatistics recomputes the destination's aggregate from the
// observation log and upserts the single statistics row. The average and
// percentiles cover the trailing 90 days; the all-time low covers every
// observation ever recorded. Idempotent: with no new observations the
// upserted values are unchanged. An empty log yields a sample_count 0 row.
func (r *priceRepository) RefreshStatistics(ctx context.Context, destinationID uuid.UUID) (*model.PriceStatistics, error) {
	query := `
		INSERT INTO price_statistics (
			destination_id, sample_count, avg_90day,
			percentile_25, percentile_50, all_time_low, updated_at
		)
		SELECT
			$1,
			COUNT(*),
			AVG(price) FILTER (WHERE checked_at >= NOW() - INTERVAL '90 days'),
			PERCENTILE_CONT(0.25) WITHIN GROUP (ORDER BY price)
				FILTER (WHERE checked_at >= NOW() - INTERVAL '90 days'),
			PERCENTILE_CONT(0.50) WITHIN GROUP (ORDER BY price)
				FILTER (WHERE checked_at >= NOW() - INTERVAL '90 days'),
			MIN(price),
			NOW()
		FROM price_history
		WHERE destination_id = $1
		ON CONFLICT (destination_id) DO UPDATE SET
			sample_count = EXCLUDED.sample_count,
			avg_90day = EXCLUDED.avg_90day,
			percentile_25 = EXCLUDED.percentile_25,
			percentile_50 = EXCLUDED.percentile_50,
			all_time_low = EXCLUDED.all_time_low,
			updated_at = EXCLUDED.updated_at
		RETURNING destination_id, sample_count, avg_90day,
			percentile_25, percentile_50, all_time_low, updated_at
	`
	var stats model.PriceStatistics
	err := r.db.GetContext(ctx, &stats, query, destinationID)
	if err != nil {
		return nil, fmt.Errorf("failed to refresh price statistics: %w", err)
	}
	return &stats, nil
}
