package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// SessionStatus is the lifecycle state of a study session
type SessionStatus string

const (
	// SessionActive means the learner is currently reviewing
	SessionActive SessionStatus = "ACTIVE"
	// SessionPaused means the learner stepped away; the session is resumable
	SessionPaused SessionStatus = "PAUSED"
	// SessionFinished is terminal; the session is immutable once here
	SessionFinished SessionStatus = "FINISHED"
)

// ItemQueue is the ordered list of item ids remaining in a session.
// Persisted as a JSON array in a TEXT column.
type ItemQueue []int64

// Value implements driver.Valuer
func (q ItemQueue) Value() (driver.Value, error) {
	if q == nil {
		return "[]", nil
	}
	b, err := json.Marshal(q)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (q *ItemQueue) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*q = nil
		return nil
	case []byte:
		return json.Unmarshal(v, q)
	case string:
		return json.Unmarshal([]byte(v), q)
	default:
		return fmt.Errorf("cannot scan %T into ItemQueue", src)
	}
}

// Session is a learner's resumable review run over one topic. At most one
// non-finished session exists per (learner, topic) pair. The queue and the
// counters are mutated only through the study service; every update is
// conditioned on Version to reject concurrent writers.
type Session struct {
	ID             string        `json:"id" db:"id"`
	LearnerID      string        `json:"learner_id" db:"learner_id"`
	TopicID        int64         `json:"topic_id" db:"topic_id"`
	Status         SessionStatus `json:"status" db:"status"`
	Queue          ItemQueue     `json:"queue" db:"queue"`
	CorrectCount   int           `json:"correct_count" db:"correct_count"`
	IncorrectCount int           `json:"incorrect_count" db:"incorrect_count"`
	ElapsedSeconds int           `json:"elapsed_seconds" db:"elapsed_seconds"`
	Version        int64         `json:"-" db:"version"`
	CompletedAt    *time.Time    `json:"completed_at,omitempty" db:"completed_at"`
	CreatedAt      time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at" db:"updated_at"`
}
