package database

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/example/studyengine/pkg/models"
)

// TopicRepository handles database operations for topics
type TopicRepository struct{}

// NewTopicRepository creates a new repository instance
func NewTopicRepository() *TopicRepository {
	return &TopicRepository{}
}

// GetByID returns a topic by ID, or nil when it does not exist
func (r *TopicRepository) GetByID(ctx context.Context, topicID int64) (*models.Topic, error) {
	var topic models.Topic
	query := DB.Rebind("SELECT * FROM topics WHERE id = ?")
	err := DB.GetContext(ctx, &topic, query, topicID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get topic")
	}
	return &topic, nil
}

// GetByTitle returns a topic by its unique title, or nil when it does not exist
func (r *TopicRepository) GetByTitle(ctx context.Context, title string) (*models.Topic, error) {
	var topic models.Topic
	query := DB.Rebind("SELECT * FROM topics WHERE title = ?")
	err := DB.GetContext(ctx, &topic, query, title)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get topic by title")
	}
	return &topic, nil
}

// GetAll returns all topics in creation order
func (r *TopicRepository) GetAll(ctx context.Context) ([]models.Topic, error) {
	topics := []models.Topic{}
	err := DB.SelectContext(ctx, &topics, "SELECT * FROM topics ORDER BY id")
	if err != nil {
		return nil, errors.Wrap(err, "failed to get topics")
	}
	return topics, nil
}

// Create inserts a new topic and fills in its generated ID
func (r *TopicRepository) Create(ctx context.Context, topic *models.Topic) error {
	if topic.Difficulty == "" {
		topic.Difficulty = "normal"
	}

	if DB.DriverName() == "postgres" {
		query := DB.Rebind(`
			INSERT INTO topics (title, difficulty)
			VALUES (?, ?)
			RETURNING id
		`)
		err := DB.QueryRowContext(ctx, query, topic.Title, topic.Difficulty).Scan(&topic.ID)
		return errors.Wrap(err, "failed to create topic")
	}

	result, err := DB.ExecContext(ctx,
		"INSERT INTO topics (title, difficulty) VALUES (?, ?)",
		topic.Title, topic.Difficulty,
	)
	if err != nil {
		return errors.Wrap(err, "failed to create topic")
	}
	id, err := result.LastInsertId()
	if err != nil {
		return errors.Wrap(err, "failed to get last insert ID")
	}
	topic.ID = id
	return nil
}
