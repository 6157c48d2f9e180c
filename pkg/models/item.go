package models

import "time"

// Item is a single memorizable fact (front/back pair) belonging to one topic
type Item struct {
	ID        int64     `json:"id" db:"id"`
	TopicID   int64     `json:"topic_id" db:"topic_id"`
	FrontText string    `json:"front_text" db:"front_text"`
	BackText  string    `json:"back_text" db:"back_text"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
