// Package ranking scores items from their ratings and orders them into
// leaderboards. Every function is pure: callers hand in the current groups,
// items and ratings and get freshly computed values back.
package ranking

import (
	"math"
	"time"

	"github.com/Clark-Hu/dishrank/internal/domain"
)

// TrustThreshold is the prior weight m of the Bayesian average and the vote
// count at which an item joins the trusted cohort.
const TrustThreshold = 10

// Percentage maps an average on the -2..+2 scale to 0..100, rounding half up.
func Percentage(avg float64) int {
	return int(math.Floor((avg+2)/4*100 + 0.5))
}

// RatingPercentage is the percentage of a single rating.
func RatingPercentage(score domain.Score) int {
	return Percentage(float64(score))
}

// GlobalAverage is the mean score over every rating, or 0 when there are none.
func GlobalAverage(ratings []domain.Rating) float64 {
	if len(ratings) == 0 {
		return 0
	}
	sum := 0
	for _, r := range ratings {
		sum += int(r.Score)
	}
	return float64(sum) / float64(len(ratings))
}

// VoteCount returns the number of ratings for itemID.
func VoteCount(itemID string, ratings []domain.Rating) int {
	t := tallyItem(itemID, ratings)
	return t.votes
}

// WeightedScore returns the trust-weighted percentage of itemID, shrinking its
// average toward the mean of all ratings.
func WeightedScore(itemID string, ratings []domain.Rating) int {
	return WeightedScoreWithMean(itemID, ratings, GlobalAverage(ratings))
}

// WeightedScoreWithMean is WeightedScore with a precomputed global mean.
func WeightedScoreWithMean(itemID string, ratings []domain.Rating, globalMean float64) int {
	return tallyItem(itemID, ratings).weightedScore(globalMean)
}

// RawScore returns the unshrunk percentage of itemID.
func RawScore(itemID string, ratings []domain.Rating) int {
	return tallyItem(itemID, ratings).rawScore()
}

// Stars converts a percentage into a 0..5 star display: full stars plus an
// optional half star.
func Stars(percentage int) (full int, half bool) {
	rating := math.Max(0, math.Min(5, float64(percentage)/20))
	full = int(math.Floor(rating))
	half = rating-float64(full) >= 0.5
	return full, half
}

// tally accumulates the ratings of one item.
type tally struct {
	sum       int
	votes     int
	lastRated time.Time
}

func (t *tally) add(r domain.Rating) {
	t.sum += int(r.Score)
	t.votes++
	if t.votes == 1 || r.CreatedAt.After(t.lastRated) {
		t.lastRated = r.CreatedAt
	}
}

func (t tally) rawAverage() float64 {
	if t.votes == 0 {
		return 0
	}
	return float64(t.sum) / float64(t.votes)
}

// weighted is the Bayesian average (v/(v+m))*R + (m/(v+m))*C.
func (t tally) weighted(globalMean float64) float64 {
	v := float64(t.votes)
	m := float64(TrustThreshold)
	return (v/(v+m))*t.rawAverage() + (m/(v+m))*globalMean
}

func (t tally) weightedScore(globalMean float64) int {
	if t.votes == 0 {
		return 0
	}
	return Percentage(t.weighted(globalMean))
}

func (t tally) rawScore() int {
	if t.votes == 0 {
		return 0
	}
	return Percentage(t.rawAverage())
}

func tallyItem(itemID string, ratings []domain.Rating) tally {
	var t tally
	for _, r := range ratings {
		if r.ItemID == itemID {
			t.add(r)
		}
	}
	return t
}
