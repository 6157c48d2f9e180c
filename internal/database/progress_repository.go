package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"

	"github.com/example/studyengine/pkg/models"
)

// ProgressRepository handles database operations for per-(learner, item)
// memory-strength records
type ProgressRepository struct{}

// NewProgressRepository creates a new repository instance
func NewProgressRepository() *ProgressRepository {
	return &ProgressRepository{}
}

// Get returns the progress record for a learner and item, or nil when the
// item has never been graded
func (r *ProgressRepository) Get(ctx context.Context, learnerID string, itemID int64) (*models.Progress, error) {
	var progress models.Progress
	query := DB.Rebind("SELECT * FROM progress WHERE learner_id = ? AND item_id = ?")
	err := DB.GetContext(ctx, &progress, query, learnerID, itemID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get progress")
	}
	return &progress, nil
}

// Upsert creates or replaces the learner's progress record for the item
func (r *ProgressRepository) Upsert(ctx context.Context, progress *models.Progress) error {
	query := DB.Rebind(`
		INSERT INTO progress (
			learner_id, item_id, ease_factor, interval, repetitions,
			next_review_date, total_reviews, total_correct_reviews
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (learner_id, item_id) DO UPDATE SET
			ease_factor = EXCLUDED.ease_factor,
			interval = EXCLUDED.interval,
			repetitions = EXCLUDED.repetitions,
			next_review_date = EXCLUDED.next_review_date,
			total_reviews = EXCLUDED.total_reviews,
			total_correct_reviews = EXCLUDED.total_correct_reviews,
			updated_at = CURRENT_TIMESTAMP
	`)
	_, err := DB.ExecContext(ctx, query,
		progress.LearnerID,
		progress.ItemID,
		progress.EaseFactor,
		progress.Interval,
		progress.Repetitions,
		progress.NextReviewDate,
		progress.TotalReviews,
		progress.TotalCorrectReviews,
	)
	return errors.Wrap(err, "failed to upsert progress")
}

// DueItemIDs returns item ids in the topic due at or before the given time,
// earliest first, ties broken by item id for determinism
func (r *ProgressRepository) DueItemIDs(ctx context.Context, learnerID string, topicID int64, before time.Time, limit int) ([]int64, error) {
	ids := []int64{}
	query := DB.Rebind(`
		SELECT p.item_id FROM progress p
		JOIN items i ON i.id = p.item_id
		WHERE p.learner_id = ? AND i.topic_id = ? AND p.next_review_date <= ?
		ORDER BY p.next_review_date ASC, p.item_id ASC
		LIMIT ?
	`)
	if err := DB.SelectContext(ctx, &ids, query, learnerID, topicID, before, limit); err != nil {
		return nil, errors.Wrap(err, "failed to get due items")
	}
	return ids, nil
}

// StudiedItemIDs returns every item in the topic the learner has a progress
// record for
func (r *ProgressRepository) StudiedItemIDs(ctx context.Context, learnerID string, topicID int64) ([]int64, error) {
	ids := []int64{}
	query := DB.Rebind(`
		SELECT p.item_id FROM progress p
		JOIN items i ON i.id = p.item_id
		WHERE p.learner_id = ? AND i.topic_id = ?
	`)
	if err := DB.SelectContext(ctx, &ids, query, learnerID, topicID); err != nil {
		return nil, errors.Wrap(err, "failed to get studied items")
	}
	return ids, nil
}

// LeastRecentItemIDs returns studied items ordered by next review date
// ascending, including far-future dates. Used by the cram fallback.
func (r *ProgressRepository) LeastRecentItemIDs(ctx context.Context, learnerID string, topicID int64, limit int) ([]int64, error) {
	ids := []int64{}
	query := DB.Rebind(`
		SELECT p.item_id FROM progress p
		JOIN items i ON i.id = p.item_id
		WHERE p.learner_id = ? AND i.topic_id = ?
		ORDER BY p.next_review_date ASC, p.item_id ASC
		LIMIT ?
	`)
	if err := DB.SelectContext(ctx, &ids, query, learnerID, topicID, limit); err != nil {
		return nil, errors.Wrap(err, "failed to get least recent items")
	}
	return ids, nil
}

// DueCount counts the learner's due items in the topic
func (r *ProgressRepository) DueCount(ctx context.Context, learnerID string, topicID int64, before time.Time) (int, error) {
	var count int
	query := DB.Rebind(`
		SELECT COUNT(*) FROM progress p
		JOIN items i ON i.id = p.item_id
		WHERE p.learner_id = ? AND i.topic_id = ? AND p.next_review_date <= ?
	`)
	if err := DB.GetContext(ctx, &count, query, learnerID, topicID, before); err != nil {
		return 0, errors.Wrap(err, "failed to count due items")
	}
	return count, nil
}

// MasteredCount counts items whose repetition streak reached the threshold
func (r *ProgressRepository) MasteredCount(ctx context.Context, learnerID string, topicID int64, threshold int) (int, error) {
	var count int
	query := DB.Rebind(`
		SELECT COUNT(*) FROM progress p
		JOIN items i ON i.id = p.item_id
		WHERE p.learner_id = ? AND i.topic_id = ? AND p.repetitions >= ?
	`)
	if err := DB.GetContext(ctx, &count, query, learnerID, topicID, threshold); err != nil {
		return 0, errors.Wrap(err, "failed to count mastered items")
	}
	return count, nil
}

// LifetimeTotals sums the learner's review counters across all items
func (r *ProgressRepository) LifetimeTotals(ctx context.Context, learnerID string) (int, int, error) {
	var totals struct {
		Reviews int `db:"reviews"`
		Correct int `db:"correct"`
	}
	query := DB.Rebind(`
		SELECT
			COALESCE(SUM(total_reviews), 0) AS reviews,
			COALESCE(SUM(total_correct_reviews), 0) AS correct
		FROM progress WHERE learner_id = ?
	`)
	if err := DB.GetContext(ctx, &totals, query, learnerID); err != nil {
		return 0, 0, errors.Wrap(err, "failed to get lifetime totals")
	}
	return totals.Reviews, totals.Correct, nil
}
