package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/example/studyengine/pkg/models"
)

// PracticeRepository is the database-backed practice-record sink. Besides
// appending the practice log it maintains the learner's consecutive-day
// streak counters.
type PracticeRepository struct{}

// NewPracticeRepository creates a new repository instance
func NewPracticeRepository() *PracticeRepository {
	return &PracticeRepository{}
}

// RecordCompletedSession appends a practice record and updates the learner's
// streak in one transaction
func (r *PracticeRepository) RecordCompletedSession(ctx context.Context, learnerID string, topicID int64, accuracy float64, durationSeconds int) error {
	tx, err := DB.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to start transaction")
	}

	insert := DB.Rebind(`
		INSERT INTO practice_records (learner_id, topic_id, accuracy, duration_seconds)
		VALUES (?, ?, ?, ?)
	`)
	if _, err := tx.ExecContext(ctx, insert, learnerID, topicID, accuracy, durationSeconds); err != nil {
		tx.Rollback()
		return errors.Wrap(err, "failed to insert practice record")
	}

	if err := r.updateStreak(ctx, tx, learnerID, time.Now()); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}
	return nil
}

// GetLearner returns the learner's streak row, or nil when the learner has
// never completed a session
func (r *PracticeRepository) GetLearner(ctx context.Context, learnerID string) (*models.Learner, error) {
	var learner models.Learner
	query := DB.Rebind("SELECT * FROM learners WHERE id = ?")
	err := DB.GetContext(ctx, &learner, query, learnerID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get learner")
	}
	return &learner, nil
}

// updateStreak applies the consecutive-day rule: practicing the day after the
// last practice extends the streak, a gap resets it, a second session on the
// same day leaves it unchanged.
func (r *PracticeRepository) updateStreak(ctx context.Context, tx *sqlx.Tx, learnerID string, now time.Time) error {
	var learner models.Learner
	query := DB.Rebind("SELECT * FROM learners WHERE id = ?")
	err := tx.GetContext(ctx, &learner, query, learnerID)
	if err != nil && err != sql.ErrNoRows {
		return errors.Wrap(err, "failed to get learner streak")
	}

	today := midnight(now)
	current := 1
	if err == nil && learner.LastPracticeDate != nil {
		switch daysBetween(midnight(*learner.LastPracticeDate), today) {
		case 0:
			current = learner.CurrentStreak
			if current < 1 {
				current = 1
			}
		case 1:
			current = learner.CurrentStreak + 1
		}
	}
	longest := learner.LongestStreak
	if current > longest {
		longest = current
	}

	upsert := DB.Rebind(`
		INSERT INTO learners (id, current_streak, longest_streak, last_practice_date)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			current_streak = EXCLUDED.current_streak,
			longest_streak = EXCLUDED.longest_streak,
			last_practice_date = EXCLUDED.last_practice_date
	`)
	if _, err := tx.ExecContext(ctx, upsert, learnerID, current, longest, now); err != nil {
		return errors.Wrap(err, "failed to update learner streak")
	}
	return nil
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}
