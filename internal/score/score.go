// Package score derives the precision score shown next to a reach report.
//
// The score is a fixed linear blend of report richness:
//
//	platforms          20  (saturates at 6 platforms)
//	conversion intent  30  (mean of High=3, Medium=2, Low=1, rescaled from [1,3])
//	communities        25  (saturates at 20 communities across platforms)
//	keyword clusters   15  (saturates at 15 clusters)
//	advanced insights  10  (5 for outreach examples, 5 for a seeker profile)
//
// It is never stored; callers recompute it from the current report.
package score

import (
	"math"
	"strings"

	"github.com/BerylCAtieno/getreach/internal/models"
)

type Tier string

const (
	TierScattered      Tier = "Scattered"
	TierFocused        Tier = "Focused"
	TierHighlyTargeted Tier = "Highly Targeted"
	TierMarketSniper   Tier = "Market Sniper"
)

const (
	platformWeight  = 20.0
	intentWeight    = 30.0
	communityWeight = 25.0
	keywordWeight   = 15.0

	platformSaturation  = 6.0
	communitySaturation = 20.0
	keywordSaturation   = 15.0

	examplesBonus = 5.0
	seekersBonus  = 5.0
)

// PrecisionScore is the displayed score and its tier.
type PrecisionScore struct {
	Score int  `json:"score"`
	Tier  Tier `json:"tier"`
}

// Compute scores a report. A nil report scores like an empty one.
func Compute(report *models.ReachReport) PrecisionScore {
	s := Raw(report)
	s = math.Max(0, math.Min(100, s))
	n := int(math.Round(s))
	return PrecisionScore{Score: n, Tier: TierFor(n)}
}

// Raw returns the unrounded, unclamped weighted sum.
func Raw(report *models.ReachReport) float64 {
	if report == nil {
		return 0
	}

	platformCount := float64(len(report.Platforms))
	platformScore := math.Min(platformCount/platformSaturation, 1) * platformWeight

	avgIntent := 1.0
	totalCommunities := 0
	if len(report.Platforms) > 0 {
		sum := 0
		for _, p := range report.Platforms {
			sum += IntentValue(p.ConversionIntent)
			totalCommunities += len(p.Communities)
		}
		avgIntent = float64(sum) / platformCount
	}
	intentScore := ((avgIntent - 1) / 2) * intentWeight

	communityScore := math.Min(float64(totalCommunities)/communitySaturation, 1) * communityWeight
	keywordScore := math.Min(float64(len(report.Advanced.KeywordClusters))/keywordSaturation, 1) * keywordWeight

	advancedScore := 0.0
	if len(report.Advanced.WhatToSayExamples) > 0 {
		advancedScore += examplesBonus
	}
	if report.Advanced.WhoIsLookingForSolution != nil {
		advancedScore += seekersBonus
	}

	return platformScore + intentScore + communityScore + keywordScore + advancedScore
}

// IntentValue maps a conversion intent to 3/2/1. Anything unrecognised counts as Low.
func IntentValue(l models.Level) int {
	switch {
	case strings.EqualFold(string(l), string(models.LevelHigh)):
		return 3
	case strings.EqualFold(string(l), string(models.LevelMedium)):
		return 2
	default:
		return 1
	}
}

// TierFor buckets a score; each band includes its upper bound.
func TierFor(score int) Tier {
	switch {
	case score <= 40:
		return TierScattered
	case score <= 70:
		return TierFocused
	case score <= 85:
		return TierHighlyTargeted
	default:
		return TierMarketSniper
	}
}
