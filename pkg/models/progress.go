package models

import "time"

// Progress tracks a learner's memory strength for a specific item using SM-2 parameters.
// One row per (learner, item) pair, created lazily on the first grade.
type Progress struct {
	ID                  int64     `json:"id" db:"id"`
	LearnerID           string    `json:"learner_id" db:"learner_id"`
	ItemID              int64     `json:"item_id" db:"item_id"`
	EaseFactor          float64   `json:"ease_factor" db:"ease_factor"`           // SM-2 EF parameter, floor 1.3
	Interval            int       `json:"interval" db:"interval"`                 // Current interval in days
	Repetitions         int       `json:"repetitions" db:"repetitions"`           // Consecutive correct reviews
	NextReviewDate      time.Time `json:"next_review_date" db:"next_review_date"`
	TotalReviews        int       `json:"total_reviews" db:"total_reviews"`
	TotalCorrectReviews int       `json:"total_correct_reviews" db:"total_correct_reviews"`
	CreatedAt           time.Time `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time `json:"updated_at" db:"updated_at"`
}
