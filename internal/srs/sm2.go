// Package srs implements the SM-2 family spaced-repetition algorithm used to
// reschedule items after each graded review. Scheduling is a pure function of
// the current memory state and the grade; persistence is the caller's problem.
package srs

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Grade is a 0-3 recall-quality signal supplied by the learner
const (
	GradeForgot  = 0
	GradeUnsure  = 1
	GradeGood    = 2
	GradePerfect = 3
)

const (
	// DefaultEaseFactor is the standard SM-2 starting EF for unseen items
	DefaultEaseFactor = 2.5
	// MinEaseFactor is the floor below which EF never drops
	MinEaseFactor = 1.3
)

// ErrInvalidGrade is returned for grades outside 0-3.
// Check with errors.Is.
var ErrInvalidGrade = errors.New("srs: grade out of range")

// State is the memory-strength snapshot for one (learner, item) pair
type State struct {
	EaseFactor          float64
	Interval            int // days
	Repetitions         int
	NextReviewDate      time.Time
	TotalReviews        int
	TotalCorrectReviews int
}

// NewState returns the state applied before the first-ever grade of an item
func NewState() State {
	return State{
		EaseFactor:  DefaultEaseFactor,
		Interval:    0,
		Repetitions: 0,
	}
}

// IsCorrect reports whether a grade counts as a successful recall
func IsCorrect(grade int) bool {
	return grade >= GradeGood
}

// Schedule computes the next memory state for a grade given at the reference
// time. The input state is not mutated.
//
// Correct recall bumps the repetition count and grows the interval
// (1 day, then 6 days, then interval*EF); the ease factor is adjusted by how
// far the grade fell short of perfect and clamped at the 1.3 floor. A failed
// recall resets repetitions and schedules the item for tomorrow, leaving the
// ease factor untouched.
func Schedule(state State, grade int, now time.Time) (State, error) {
	if grade < GradeForgot || grade > GradePerfect {
		return State{}, fmt.Errorf("grade %d: %w", grade, ErrInvalidGrade)
	}

	next := state
	if IsCorrect(grade) {
		next.Repetitions++
		switch next.Repetitions {
		case 1:
			next.Interval = 1
		case 2:
			next.Interval = 6
		default:
			// Interval grows by the pre-adjustment ease factor
			next.Interval = int(math.Round(float64(next.Interval) * next.EaseFactor))
		}

		shortfall := float64(GradePerfect - grade)
		next.EaseFactor += 0.1 - shortfall*(0.08+shortfall*0.02)
		if next.EaseFactor < MinEaseFactor {
			next.EaseFactor = MinEaseFactor
		}

		next.TotalCorrectReviews++
	} else {
		next.Repetitions = 0
		next.Interval = 1
	}

	next.TotalReviews++
	next.NextReviewDate = now.AddDate(0, 0, next.Interval)

	return next, nil
}
