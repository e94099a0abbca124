package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type QueueStatus string

const (
	QueueStatusPending QueueStatus = "pending"
	QueueStatusSent    QueueStatus = "sent"
	QueueStatusFailed  QueueStatus = "failed"
)

const EmailTypePriceAlert = "price_alert"

// QueuedMessage is one outbound delivery work item (email_queue table).
// Created by the pipeline in the same transaction as its AlertEvent; the
// delivery worker owns the status transitions afterwards.
type QueuedMessage struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	AlertEventID uuid.UUID       `db:"alert_event_id" json:"alert_event_id"`
	UserID       uuid.UUID       `db:"user_id" json:"user_id"`
	EmailType    string          `db:"email_type" json:"email_type"`
	Recipient    string          `db:"recipient" json:"recipient"`
	Payload      json.RawMessage `db:"payload" json:"payload"`
	Status       QueueStatus     `db:"status" json:"status"`
	RetryCount   int             `db:"retry_count" json:"retry_count"`
	LastError    *string         `db:"last_error" json:"last_error,omitempty"`
	RetryAt      *time.Time      `db:"retry_at" json:"retry_at,omitempty"`
	SentAt       *time.Time      `db:"sent_at" json:"sent_at,omitempty"`
	Opened       bool            `db:"opened" json:"opened"`
	Clicked      bool            `db:"clicked" json:"clicked"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
}

// AlertEmailPayload is the payload stored on a price-alert queue entry and
// rendered into the outbound email.
type AlertEmailPayload struct {
	Destination    string      `json:"destination"`
	Country        string      `json:"country"`
	CurrentPrice   float64     `json:"current_price"`
	UserThreshold  float64     `json:"user_threshold"`
	DealQuality    DealQuality `json:"deal_quality"`
	SavingsPercent float64     `json:"savings_percent"`
	Recommendation string      `json:"recommendation"`
	Avg90Day       *float64    `json:"avg_90day,omitempty"`
	AllTimeLow     *float64    `json:"all_time_low,omitempty"`
	OutboundDate   string      `json:"outbound_date"`
}
