package deal

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jwalitptl/farewatch-api/internal/model"
)

func floatPtr(v float64) *float64 { return &v }

func statsWith(avg, low float64, samples int) *model.PriceStatistics {
	return &model.PriceStatistics{
		SampleCount: samples,
		Avg90Day:    floatPtr(avg),
		AllTimeLow:  floatPtr(low),
	}
}

func TestClassifyNoHistory(t *testing.T) {
	c := Classify(350, &model.PriceStatistics{})
	assert.Equal(t, model.DealQualityUnknown, c.Quality)
	assert.Zero(t, c.SavingsPercent)

	c = Classify(350, nil)
	assert.Equal(t, model.DealQualityUnknown, c.Quality)
}

func TestClassifyAllTimeLowIsExceptional(t *testing.T) {
	// Savings alone would only be GOOD, but matching the floor promotes it.
	stats := statsWith(500, 440, 20)
	c := Classify(440, stats)
	assert.Equal(t, model.DealQualityExceptional, c.Quality)
	assert.InDelta(t, 12.0, c.SavingsPercent, 0.01)
}

func TestClassifyTiers(t *testing.T) {
	stats := statsWith(1000, 100, 50)

	tests := []struct {
		name  string
		price float64
		want  model.DealQuality
	}{
		{"forty percent off", 600, model.DealQualityExceptional},
		{"thirty percent off", 700, model.DealQualityExcellent},
		{"twenty percent off", 800, model.DealQualityGreat},
		{"ten percent off", 900, model.DealQualityGood},
		{"just below average", 950, model.DealQualityFair},
		{"at average", 1000, model.DealQualityFair},
		{"above average", 1100, model.DealQualityPoor},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Classify(tt.price, stats)
			assert.Equal(t, tt.want, c.Quality)
		})
	}
}

func TestClassifySavingsSign(t *testing.T) {
	stats := statsWith(400, 100, 10)

	c := Classify(500, stats)
	assert.Equal(t, model.DealQualityPoor, c.Quality)
	assert.InDelta(t, -25.0, c.SavingsPercent, 0.01)
	assert.NotEmpty(t, c.Recommendation)
}

func TestClassifyQualityNeverDegradesAsPriceDrops(t *testing.T) {
	stats := statsWith(800, 50, 30)

	prev := Classify(1200, stats)
	for price := 1190.0; price >= 60; price -= 10 {
		cur := Classify(price, stats)
		assert.GreaterOrEqual(t, cur.Quality.Rank(), prev.Quality.Rank(),
			"quality dropped between %.0f and %.0f", price+10, price)
		prev = cur
	}
}
