package database

import (
	"context"

	"github.com/pkg/errors"

	"github.com/example/studyengine/pkg/models"
)

// OutboxRepository persists finished-session summaries whose delivery to the
// practice-record sink failed, so the background sweep can retry them
type OutboxRepository struct{}

// NewOutboxRepository creates a new repository instance
func NewOutboxRepository() *OutboxRepository {
	return &OutboxRepository{}
}

// Enqueue parks a summary for redelivery
func (r *OutboxRepository) Enqueue(ctx context.Context, summary *models.SessionSummary) error {
	query := DB.Rebind(`
		INSERT INTO summary_outbox (learner_id, topic_id, accuracy, duration_seconds, attempts)
		VALUES (?, ?, ?, ?, 0)
	`)
	_, err := DB.ExecContext(ctx, query,
		summary.LearnerID,
		summary.TopicID,
		summary.Accuracy,
		summary.DurationSeconds,
	)
	return errors.Wrap(err, "failed to enqueue summary")
}

// ListPending returns queued summaries, oldest first
func (r *OutboxRepository) ListPending(ctx context.Context, limit int) ([]models.SessionSummary, error) {
	summaries := []models.SessionSummary{}
	query := DB.Rebind("SELECT * FROM summary_outbox ORDER BY id ASC LIMIT ?")
	if err := DB.SelectContext(ctx, &summaries, query, limit); err != nil {
		return nil, errors.Wrap(err, "failed to list pending summaries")
	}
	return summaries, nil
}

// Delete removes a delivered summary
func (r *OutboxRepository) Delete(ctx context.Context, id int64) error {
	query := DB.Rebind("DELETE FROM summary_outbox WHERE id = ?")
	_, err := DB.ExecContext(ctx, query, id)
	return errors.Wrap(err, "failed to delete summary")
}

// IncrementAttempts bumps the retry counter after a failed delivery
func (r *OutboxRepository) IncrementAttempts(ctx context.Context, id int64) error {
	query := DB.Rebind("UPDATE summary_outbox SET attempts = attempts + 1 WHERE id = ?")
	_, err := DB.ExecContext(ctx, query, id)
	return errors.Wrap(err, "failed to increment attempts")
}
