package model

import (
	"time"

	"github.com/google/uuid"
)

// DefaultCooldownDays applies when a subscription row predates the
// cooldown column and carries a zero value.
const DefaultCooldownDays = 7

// Subscription is one user's tracking record for one destination
// (user_destinations table). The pipeline mutates only LastAlertSentAt;
// everything else is owned by user-facing flows. Paused subscriptions are
// deactivated, never deleted.
type Subscription struct {
	ID                uuid.UUID    `db:"id" json:"id"`
	UserID            uuid.UUID    `db:"user_id" json:"user_id"`
	DestinationID     uuid.UUID    `db:"destination_id" json:"destination_id"`
	PriceThreshold    float64      `db:"price_threshold" json:"price_threshold"`
	AlertCooldownDays int          `db:"alert_cooldown_days" json:"alert_cooldown_days"`
	MinDealQuality    *DealQuality `db:"min_deal_quality" json:"min_deal_quality,omitempty"`
	MinDropPercent    *float64     `db:"min_drop_percent" json:"min_drop_percent,omitempty"`
	IsActive          bool         `db:"is_active" json:"is_active"`
	LastAlertSentAt   *time.Time   `db:"last_alert_sent_at" json:"last_alert_sent_at,omitempty"`
	CreatedAt         time.Time    `db:"created_at" json:"created_at"`
}

// CooldownDays returns the configured cooldown, falling back to the default.
func (s *Subscription) CooldownDays() int {
	if s.AlertCooldownDays <= 0 {
		return DefaultCooldownDays
	}
	return s.AlertCooldownDays
}

type DigestFrequency string

const (
	DigestInstant DigestFrequency = "instant"
	DigestDaily   DigestFrequency = "daily"
	DigestWeekly  DigestFrequency = "weekly"
)

// NotificationPreference holds per-user delivery settings. Only the
// "instant" digest frequency drives the alert pipeline; daily and weekly
// digests are assembled elsewhere.
type NotificationPreference struct {
	UserID                    uuid.UUID       `db:"user_id" json:"user_id"`
	Email                     string          `db:"email" json:"email"`
	EmailNotificationsEnabled bool            `db:"email_notifications_enabled" json:"email_notifications_enabled"`
	DigestFrequency           DigestFrequency `db:"digest_frequency" json:"digest_frequency"`
	MaxAlertsPerWeek          int             `db:"max_alerts_per_week" json:"max_alerts_per_week"`
	QuietHoursStart           *int            `db:"quiet_hours_start" json:"quiet_hours_start,omitempty"`
	QuietHoursEnd             *int            `db:"quiet_hours_end" json:"quiet_hours_end,omitempty"`
	Timezone                  string          `db:"timezone" json:"timezone"`
}

// SubscriptionWithPreference is the joined row the pipeline evaluates.
type SubscriptionWithPreference struct {
	Subscription
	Preference NotificationPreference `json:"preference"`
}
