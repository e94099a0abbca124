package model

// DealQuality is the ordinal classification of a fare against a
// destination's historical statistics.
type DealQuality string

const (
	DealQualityUnknown     DealQuality = "UNKNOWN"
	DealQualityPoor        DealQuality = "POOR"
	DealQualityFair        DealQuality = "FAIR"
	DealQualityGood        DealQuality = "GOOD"
	DealQualityGreat       DealQuality = "GREAT"
	DealQualityExcellent   DealQuality = "EXCELLENT"
	DealQualityExceptional DealQuality = "EXCEPTIONAL"
)

var dealQualityRank = map[DealQuality]int{
	DealQualityUnknown:     0,
	DealQualityPoor:        1,
	DealQualityFair:        2,
	DealQualityGood:        3,
	DealQualityGreat:       4,
	DealQualityExcellent:   5,
	DealQualityExceptional: 6,
}

// Rank returns the position of the quality on the ordinal scale
// POOR < FAIR < GOOD < GREAT < EXCELLENT < EXCEPTIONAL, with UNKNOWN
// below everything.
func (q DealQuality) Rank() int {
	return dealQualityRank[q]
}

// AtLeast reports whether q meets the given floor on the ordinal scale.
func (q DealQuality) AtLeast(floor DealQuality) bool {
	return q.Rank() >= floor.Rank()
}
