// Package deal classifies a fare against a destination's price statistics.
// Classification is a pure function of its inputs so it can be exercised
// exhaustively in tests.
package deal

import (
	"github.com/jwalitptl/farewatch-api/internal/model"
)

// Classification is the result of scoring one price against one
// statistics snapshot.
type Classification struct {
	Quality        model.DealQuality `json:"quality"`
	SavingsPercent float64           `json:"savings_percent"`
	Recommendation string            `json:"recommendation"`
}

const (
	recUnknown     = "Not enough historical data to classify this deal"
	recExceptional = "ALL-TIME LOW! Book immediately - prices rarely get this low!"
	recExcellent   = "Excellent deal! Book within 24 hours as prices may rise."
	recGreat       = "Great price! This is a solid deal worth booking."
	recGood        = "Good deal! Consider booking if the dates work for you."
	recFair        = "Fair price, slightly below average. Could wait for better."
	recPoor        = "This is above average pricing. Consider waiting for a better deal."
)

// Classify maps a new price and the destination's statistics to a quality
// tier, a savings percentage relative to the 90-day average, and a fixed
// recommendation string. A snapshot without samples always classifies as
// UNKNOWN, which downstream eligibility treats as never alert-worthy.
func Classify(price float64, stats *model.PriceStatistics) Classification {
	if !stats.HasSamples() {
		return Classification{
			Quality:        model.DealQualityUnknown,
			SavingsPercent: 0,
			Recommendation: recUnknown,
		}
	}

	avg90 := *stats.Avg90Day
	savings := (avg90 - price) / avg90 * 100

	atLow := stats.AllTimeLow != nil && price <= *stats.AllTimeLow

	switch {
	case atLow || savings >= 40:
		return Classification{model.DealQualityExceptional, savings, recExceptional}
	case savings >= 30:
		return Classification{model.DealQualityExcellent, savings, recExcellent}
	case savings >= 20:
		return Classification{model.DealQualityGreat, savings, recGreat}
	case savings >= 10:
		return Classification{model.DealQualityGood, savings, recGood}
	case savings >= 0:
		return Classification{model.DealQualityFair, savings, recFair}
	default:
		return Classification{model.DealQualityPoor, savings, recPoor}
	}
}
