// Package eligibility decides whether a subscription should be notified
// about a classified price. Every check is a pure function of its inputs;
// the clock is always passed in, never read.
package eligibility

import (
	"time"

	"github.com/jwalitptl/farewatch-api/internal/deal"
	"github.com/jwalitptl/farewatch-api/internal/model"
)

// Reason explains why a subscription was not notified. Empty for eligible.
type Reason string

const (
	ReasonEligible        Reason = ""
	ReasonInactive        Reason = "subscription inactive or notifications disabled"
	ReasonAboveThreshold  Reason = "price above threshold"
	ReasonUnclassified    Reason = "deal quality unknown"
	ReasonBelowQuality    Reason = "deal quality below floor"
	ReasonBelowDrop       Reason = "savings below minimum drop percent"
	ReasonCooldown        Reason = "cooldown active"
	ReasonWeeklyCap       Reason = "weekly alert cap reached"
	ReasonQuietHours      Reason = "quiet hours"
	ReasonDigestMode      Reason = "digest frequency is not instant"
)

// Input bundles everything Evaluate needs. WeeklyAlertCount is the number
// of AlertEvents recorded for the user in the trailing 7 days before Now.
type Input struct {
	Subscription     model.Subscription
	Preference       model.NotificationPreference
	Price            float64
	Classification   deal.Classification
	WeeklyAlertCount int
	Now              time.Time
}

// Evaluate applies the checks in fixed order; the first failure wins.
// EXCEPTIONAL deals bypass the cooldown (an all-time low must never be
// silently suppressed) but never the weekly cap or quiet hours.
func Evaluate(in Input) (bool, Reason) {
	sub := in.Subscription
	pref := in.Preference

	if !sub.IsActive || !pref.EmailNotificationsEnabled {
		return false, ReasonInactive
	}
	if pref.DigestFrequency != "" && pref.DigestFrequency != model.DigestInstant {
		return false, ReasonDigestMode
	}
	if in.Price > sub.PriceThreshold {
		return false, ReasonAboveThreshold
	}
	if in.Classification.Quality == model.DealQualityUnknown {
		return false, ReasonUnclassified
	}
	if sub.MinDealQuality != nil && !in.Classification.Quality.AtLeast(*sub.MinDealQuality) {
		return false, ReasonBelowQuality
	}
	if sub.MinDropPercent != nil && in.Classification.SavingsPercent < *sub.MinDropPercent {
		return false, ReasonBelowDrop
	}
	if in.Classification.Quality != model.DealQualityExceptional && inCooldown(sub, in.Now) {
		return false, ReasonCooldown
	}
	if pref.MaxAlertsPerWeek > 0 && in.WeeklyAlertCount >= pref.MaxAlertsPerWeek {
		return false, ReasonWeeklyCap
	}
	if inQuietHours(pref, in.Now) {
		return false, ReasonQuietHours
	}
	return true, ReasonEligible
}

func inCooldown(sub model.Subscription, now time.Time) bool {
	if sub.LastAlertSentAt == nil {
		return false
	}
	requiredGap := time.Duration(sub.CooldownDays()) * 24 * time.Hour
	return now.Sub(*sub.LastAlertSentAt) < requiredGap
}

// inQuietHours checks [start, end) against the user's local hour. When
// start > end the window wraps past midnight, e.g. 22..8.
func inQuietHours(pref model.NotificationPreference, now time.Time) bool {
	if pref.QuietHoursStart == nil || pref.QuietHoursEnd == nil {
		return false
	}
	start, end := *pref.QuietHoursStart, *pref.QuietHoursEnd
	if start == end {
		return false
	}

	hour := now.In(location(pref.Timezone)).Hour()
	if start < end {
		return hour >= start && hour < end
	}
	return hour >= start || hour < end
}

func location(tz string) *time.Location {
	if tz == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.UTC
	}
	return loc
}
