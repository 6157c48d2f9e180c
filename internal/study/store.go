package study

import (
	"context"
	"time"

	"github.com/example/studyengine/pkg/models"
)

// TopicStore provides read access to topics. Authoring is out of scope; the
// engine never writes topics.
type TopicStore interface {
	GetByID(ctx context.Context, topicID int64) (*models.Topic, error)
	GetAll(ctx context.Context) ([]models.Topic, error)
}

// ItemStore provides read access to the items of a topic
type ItemStore interface {
	GetByID(ctx context.Context, itemID int64) (*models.Item, error)
	// GetByTopic returns the topic's items in creation order
	GetByTopic(ctx context.Context, topicID int64) ([]models.Item, error)
	CountByTopic(ctx context.Context, topicID int64) (int, error)
}

// ProgressStore persists per-(learner, item) memory-strength records.
// Lookups return (nil, nil) when no record exists.
type ProgressStore interface {
	Get(ctx context.Context, learnerID string, itemID int64) (*models.Progress, error)
	Upsert(ctx context.Context, progress *models.Progress) error

	// DueItemIDs returns item ids in the topic whose next review is at or
	// before the given time, earliest first, ties broken by item id
	DueItemIDs(ctx context.Context, learnerID string, topicID int64, before time.Time, limit int) ([]int64, error)
	// StudiedItemIDs returns every item id in the topic the learner has a
	// progress record for
	StudiedItemIDs(ctx context.Context, learnerID string, topicID int64) ([]int64, error)
	// LeastRecentItemIDs returns item ids the learner has studied, ordered
	// by next review date ascending regardless of dueness
	LeastRecentItemIDs(ctx context.Context, learnerID string, topicID int64, limit int) ([]int64, error)

	DueCount(ctx context.Context, learnerID string, topicID int64, before time.Time) (int, error)
	MasteredCount(ctx context.Context, learnerID string, topicID int64, threshold int) (int, error)
	// LifetimeTotals returns the learner's summed review and correct-review
	// counters across all items
	LifetimeTotals(ctx context.Context, learnerID string) (reviews int, correct int, err error)
}

// SessionStore persists study sessions. Lookups return (nil, nil) when no
// session matches. UpdateVersioned must condition the write on the session's
// current Version, bump it on success, and return ErrConflict when another
// writer won the race.
type SessionStore interface {
	GetByID(ctx context.Context, sessionID string) (*models.Session, error)
	// FindOpen returns the learner's ACTIVE or PAUSED session for the topic
	FindOpen(ctx context.Context, learnerID string, topicID int64) (*models.Session, error)
	// OpenTopicIDs returns the topics the learner holds an open session in
	OpenTopicIDs(ctx context.Context, learnerID string) ([]int64, error)
	FinishedCount(ctx context.Context, learnerID string) (int, error)
	Create(ctx context.Context, session *models.Session) error
	UpdateVersioned(ctx context.Context, session *models.Session) error
}

// PracticeRecorder is the external practice-record sink. Delivery is
// fire-and-forget on session finish: a failure never rolls back the FINISHED
// transition.
type PracticeRecorder interface {
	RecordCompletedSession(ctx context.Context, learnerID string, topicID int64, accuracy float64, durationSeconds int) error
}

// SummaryOutbox parks summaries whose sink delivery failed so a background
// sweep can redeliver them
type SummaryOutbox interface {
	Enqueue(ctx context.Context, summary *models.SessionSummary) error
}
