package domain

import (
	"errors"
	"time"
)

// Score bounds on the internal rating scale.
const (
	MinScore Score = -2
	MaxScore Score = 2
)

// ErrInvalidStars is returned when a star input falls outside 1..5.
var ErrInvalidStars = errors.New("domain: stars must be between 1 and 5")

// Score is a single rating on the -2..+2 scale.
type Score int8

// ScoreFromStars converts the 1..5 star input used by raters into a Score.
func ScoreFromStars(stars int) (Score, error) {
	if stars < 1 || stars > 5 {
		return 0, ErrInvalidStars
	}
	return Score(stars - 3), nil
}

// Valid reports whether the score lies within MinScore..MaxScore.
func (s Score) Valid() bool {
	return s >= MinScore && s <= MaxScore
}

// Stars converts the score back to the 1..5 input scale.
func (s Score) Stars() int {
	return int(s) + 3
}

// Rating represents a single rater's score for an item. Ratings are never
// edited; they are created and deleted.
type Rating struct {
	ID        string
	ItemID    string
	RaterID   string
	Score     Score
	Comment   *string
	PhotoRef  *string
	CreatedAt time.Time
}
