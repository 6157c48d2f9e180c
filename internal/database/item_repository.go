package database

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/example/studyengine/pkg/models"
)

// ItemRepository handles database operations for study items
type ItemRepository struct{}

// NewItemRepository creates a new repository instance
func NewItemRepository() *ItemRepository {
	return &ItemRepository{}
}

// GetByID returns an item by ID, or nil when it does not exist
func (r *ItemRepository) GetByID(ctx context.Context, itemID int64) (*models.Item, error) {
	var item models.Item
	query := DB.Rebind("SELECT * FROM items WHERE id = ?")
	err := DB.GetContext(ctx, &item, query, itemID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get item")
	}
	return &item, nil
}

// GetByTopic returns the topic's items in creation order
func (r *ItemRepository) GetByTopic(ctx context.Context, topicID int64) ([]models.Item, error) {
	items := []models.Item{}
	query := DB.Rebind("SELECT * FROM items WHERE topic_id = ? ORDER BY id ASC")
	if err := DB.SelectContext(ctx, &items, query, topicID); err != nil {
		return nil, errors.Wrap(err, "failed to get items")
	}
	return items, nil
}

// CountByTopic returns how many items the topic holds
func (r *ItemRepository) CountByTopic(ctx context.Context, topicID int64) (int, error) {
	var count int
	query := DB.Rebind("SELECT COUNT(*) FROM items WHERE topic_id = ?")
	if err := DB.GetContext(ctx, &count, query, topicID); err != nil {
		return 0, errors.Wrap(err, "failed to count items")
	}
	return count, nil
}

// Create inserts a new item and fills in its generated ID
func (r *ItemRepository) Create(ctx context.Context, item *models.Item) error {
	if DB.DriverName() == "postgres" {
		query := DB.Rebind(`
			INSERT INTO items (topic_id, front_text, back_text)
			VALUES (?, ?, ?)
			RETURNING id
		`)
		err := DB.QueryRowContext(ctx, query, item.TopicID, item.FrontText, item.BackText).Scan(&item.ID)
		return errors.Wrap(err, "failed to create item")
	}

	result, err := DB.ExecContext(ctx,
		"INSERT INTO items (topic_id, front_text, back_text) VALUES (?, ?, ?)",
		item.TopicID, item.FrontText, item.BackText,
	)
	if err != nil {
		return errors.Wrap(err, "failed to create item")
	}
	id, err := result.LastInsertId()
	if err != nil {
		return errors.Wrap(err, "failed to get last insert ID")
	}
	item.ID = id
	return nil
}
