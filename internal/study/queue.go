package study

import (
	"context"
	"fmt"
	"time"
)

const (
	// DefaultSessionLimit caps how many items enter a new session
	DefaultSessionLimit = 12
	// MaxSessionLimit bounds caller-supplied limits
	MaxSessionLimit = 100
)

// QueueBuilder selects the ordered item queue for a new session using a
// three-tier fallback: due items first, then unseen items, and only when both
// tiers come up empty, the least-recently-reviewed items (cram). Due reviews
// always outrank new material so a backlog is never buried under fresh items,
// and the cram tier keeps a fully-studied topic reviewable.
type QueueBuilder struct {
	items    ItemStore
	progress ProgressStore
}

// NewQueueBuilder creates a queue builder over the given stores
func NewQueueBuilder(items ItemStore, progress ProgressStore) *QueueBuilder {
	return &QueueBuilder{items: items, progress: progress}
}

// Build returns at most limit item ids for the learner's next session over the
// topic. It fails with ErrNoContent when the topic has no items at all;
// "nothing due" is not an error.
func (b *QueueBuilder) Build(ctx context.Context, learnerID string, topicID int64, limit int, now time.Time) ([]int64, error) {
	all, err := b.items.GetByTopic(ctx, topicID)
	if err != nil {
		return nil, fmt.Errorf("failed to load topic items: %w", err)
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("topic %d: %w", topicID, ErrNoContent)
	}

	// Tier 1: due reviews, earliest first
	queue, err := b.progress.DueItemIDs(ctx, learnerID, topicID, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load due items: %w", err)
	}

	// Tier 2: fill the remainder with never-studied items in creation order
	if len(queue) < limit {
		studied, err := b.progress.StudiedItemIDs(ctx, learnerID, topicID)
		if err != nil {
			return nil, fmt.Errorf("failed to load studied items: %w", err)
		}
		seen := make(map[int64]bool, len(studied))
		for _, id := range studied {
			seen[id] = true
		}
		for _, item := range all {
			if len(queue) == limit {
				break
			}
			if !seen[item.ID] {
				queue = append(queue, item.ID)
			}
		}
	}

	// Cram fallback: everything studied, nothing due. Resurface the oldest
	// reviews rather than returning an idle session.
	if len(queue) == 0 {
		queue, err = b.progress.LeastRecentItemIDs(ctx, learnerID, topicID, limit)
		if err != nil {
			return nil, fmt.Errorf("failed to load cram items: %w", err)
		}
	}

	return queue, nil
}
