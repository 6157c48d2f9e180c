package models

import "time"

// PracticeRecord is the finished-session summary handed to the practice log
type PracticeRecord struct {
	ID              int64     `json:"id" db:"id"`
	LearnerID       string    `json:"learner_id" db:"learner_id"`
	TopicID         int64     `json:"topic_id" db:"topic_id"`
	Accuracy        float64   `json:"accuracy" db:"accuracy"`
	DurationSeconds int       `json:"duration_seconds" db:"duration_seconds"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}

// Learner holds the per-learner practice streak counters
type Learner struct {
	ID               string     `json:"id" db:"id"`
	CurrentStreak    int        `json:"current_streak" db:"current_streak"`
	LongestStreak    int        `json:"longest_streak" db:"longest_streak"`
	LastPracticeDate *time.Time `json:"last_practice_date" db:"last_practice_date"`
}

// SessionSummary is a finished-session summary parked for redelivery after the
// practice-record sink rejected it. The session's FINISHED transition is
// authoritative regardless of delivery.
type SessionSummary struct {
	ID              int64     `json:"id" db:"id"`
	LearnerID       string    `json:"learner_id" db:"learner_id"`
	TopicID         int64     `json:"topic_id" db:"topic_id"`
	Accuracy        float64   `json:"accuracy" db:"accuracy"`
	DurationSeconds int       `json:"duration_seconds" db:"duration_seconds"`
	Attempts        int       `json:"attempts" db:"attempts"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}
