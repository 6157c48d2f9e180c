package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pkg/errors"

	"github.com/example/studyengine/internal/study"
	"github.com/example/studyengine/pkg/models"
)

// SessionRepository handles database operations for study sessions
type SessionRepository struct{}

// NewSessionRepository creates a new repository instance
func NewSessionRepository() *SessionRepository {
	return &SessionRepository{}
}

// GetByID returns a session by ID, or nil when it does not exist
func (r *SessionRepository) GetByID(ctx context.Context, sessionID string) (*models.Session, error) {
	var session models.Session
	query := DB.Rebind("SELECT * FROM sessions WHERE id = ?")
	err := DB.GetContext(ctx, &session, query, sessionID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get session")
	}
	return &session, nil
}

// FindOpen returns the learner's ACTIVE or PAUSED session for the topic, or
// nil when none is open
func (r *SessionRepository) FindOpen(ctx context.Context, learnerID string, topicID int64) (*models.Session, error) {
	var session models.Session
	query := DB.Rebind(`
		SELECT * FROM sessions
		WHERE learner_id = ? AND topic_id = ? AND status IN ('ACTIVE', 'PAUSED')
		ORDER BY created_at DESC
		LIMIT 1
	`)
	err := DB.GetContext(ctx, &session, query, learnerID, topicID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find open session")
	}
	return &session, nil
}

// OpenTopicIDs returns the topics the learner holds an open session in
func (r *SessionRepository) OpenTopicIDs(ctx context.Context, learnerID string) ([]int64, error) {
	ids := []int64{}
	query := DB.Rebind(`
		SELECT topic_id FROM sessions
		WHERE learner_id = ? AND status IN ('ACTIVE', 'PAUSED')
	`)
	if err := DB.SelectContext(ctx, &ids, query, learnerID); err != nil {
		return nil, errors.Wrap(err, "failed to get open topics")
	}
	return ids, nil
}

// FinishedCount counts the learner's completed sessions
func (r *SessionRepository) FinishedCount(ctx context.Context, learnerID string) (int, error) {
	var count int
	query := DB.Rebind("SELECT COUNT(*) FROM sessions WHERE learner_id = ? AND status = 'FINISHED'")
	if err := DB.GetContext(ctx, &count, query, learnerID); err != nil {
		return 0, errors.Wrap(err, "failed to count finished sessions")
	}
	return count, nil
}

// Create inserts a new session
func (r *SessionRepository) Create(ctx context.Context, session *models.Session) error {
	if session.Version == 0 {
		session.Version = 1
	}
	query := DB.Rebind(`
		INSERT INTO sessions (
			id, learner_id, topic_id, status, queue,
			correct_count, incorrect_count, elapsed_seconds, version
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	_, err := DB.ExecContext(ctx, query,
		session.ID,
		session.LearnerID,
		session.TopicID,
		session.Status,
		session.Queue,
		session.CorrectCount,
		session.IncorrectCount,
		session.ElapsedSeconds,
		session.Version,
	)
	return errors.Wrap(err, "failed to create session")
}

// UpdateVersioned writes the session conditioned on its current version.
// A concurrent writer that advanced the version first causes study.ErrConflict,
// which rejects stale grades without partial writes.
func (r *SessionRepository) UpdateVersioned(ctx context.Context, session *models.Session) error {
	query := DB.Rebind(`
		UPDATE sessions SET
			status = ?,
			queue = ?,
			correct_count = ?,
			incorrect_count = ?,
			elapsed_seconds = ?,
			completed_at = ?,
			version = version + 1,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND version = ?
	`)
	result, err := DB.ExecContext(ctx, query,
		session.Status,
		session.Queue,
		session.CorrectCount,
		session.IncorrectCount,
		session.ElapsedSeconds,
		session.CompletedAt,
		session.ID,
		session.Version,
	)
	if err != nil {
		return errors.Wrap(err, "failed to update session")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to get rows affected")
	}
	if rows == 0 {
		return fmt.Errorf("session %s version %d: %w", session.ID, session.Version, study.ErrConflict)
	}
	session.Version++
	return nil
}
