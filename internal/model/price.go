package model

import (
	"time"

	"github.com/google/uuid"
)

// PriceObservation is one recorded fare sample. The price_history table is
// append-only: observations are never updated or deleted.
type PriceObservation struct {
	ID            uuid.UUID `db:"id" json:"id"`
	DestinationID uuid.UUID `db:"destination_id" json:"destination_id"`
	Price         float64   `db:"price" json:"price"`
	OutboundDate  time.Time `db:"outbound_date" json:"outbound_date"`
	CheckedAt     time.Time `db:"checked_at" json:"checked_at"`
}

// PriceStatistics is the derived per-destination aggregate, recomputed from
// the observation log after every new observation and upserted as a single
// row. Percentiles and the average are nil until at least one observation
// exists.
type PriceStatistics struct {
	DestinationID uuid.UUID `db:"destination_id" json:"destination_id"`
	SampleCount   int       `db:"sample_count" json:"sample_count"`
	Avg90Day      *float64  `db:"avg_90day" json:"avg_90day,omitempty"`
	Percentile25  *float64  `db:"percentile_25" json:"percentile_25,omitempty"`
	Percentile50  *float64  `db:"percentile_50" json:"percentile_50,omitempty"`
	AllTimeLow    *float64  `db:"all_time_low" json:"all_time_low,omitempty"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// HasSamples reports whether the snapshot is usable for deal classification.
func (s *PriceStatistics) HasSamples() bool {
	return s != nil && s.SampleCount > 0 && s.Avg90Day != nil
}
