package model

import (
	"time"

	"github.com/google/uuid"
)

// AlertEvent is the durable record of one fired notification decision
// (price_alerts table). Immutable after creation except for the
// opened/clicked flags, which are set by delivery-tracking callbacks.
type AlertEvent struct {
	ID                uuid.UUID   `db:"id" json:"id"`
	UserID            uuid.UUID   `db:"user_id" json:"user_id"`
	DestinationID     uuid.UUID   `db:"destination_id" json:"destination_id"`
	Price             float64     `db:"price" json:"price"`
	TrackingThreshold float64     `db:"tracking_threshold" json:"tracking_threshold"`
	DealQuality       DealQuality `db:"deal_quality" json:"deal_quality"`
	SavingsPercent    float64     `db:"savings_percent" json:"savings_percent"`
	Avg90DayPrice     *float64    `db:"avg_90day_price" json:"avg_90day_price,omitempty"`
	AllTimeLow        *float64    `db:"all_time_low" json:"all_time_low,omitempty"`
	OutboundDate      time.Time   `db:"outbound_date" json:"outbound_date"`
	EmailOpened       bool        `db:"email_opened" json:"email_opened"`
	LinkClicked       bool        `db:"link_clicked" json:"link_clicked"`
	CreatedAt         time.Time   `db:"created_at" json:"created_at"`
}
