package study

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/example/studyengine/pkg/models"
)

// In-memory store fakes backing the queue and lifecycle tests.

type fakeTopicStore struct {
	topics map[int64]models.Topic
}

func (f *fakeTopicStore) GetByID(_ context.Context, topicID int64) (*models.Topic, error) {
	t, ok := f.topics[topicID]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (f *fakeTopicStore) GetAll(_ context.Context) ([]models.Topic, error) {
	out := make([]models.Topic, 0, len(f.topics))
	for _, t := range f.topics {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type fakeItemStore struct {
	items []models.Item // creation order
}

func (f *fakeItemStore) GetByID(_ context.Context, itemID int64) (*models.Item, error) {
	for _, it := range f.items {
		if it.ID == itemID {
			item := it
			return &item, nil
		}
	}
	return nil, nil
}

func (f *fakeItemStore) GetByTopic(_ context.Context, topicID int64) ([]models.Item, error) {
	var out []models.Item
	for _, it := range f.items {
		if it.TopicID == topicID {
			out = append(out, it)
		}
	}
	return out, nil
}

func (f *fakeItemStore) CountByTopic(ctx context.Context, topicID int64) (int, error) {
	items, _ := f.GetByTopic(ctx, topicID)
	return len(items), nil
}

type fakeProgressStore struct {
	records    map[string]*models.Progress
	itemTopics map[int64]int64
}

func newFakeProgressStore(items *fakeItemStore) *fakeProgressStore {
	topics := make(map[int64]int64)
	for _, it := range items.items {
		topics[it.ID] = it.TopicID
	}
	return &fakeProgressStore{
		records:    make(map[string]*models.Progress),
		itemTopics: topics,
	}
}

func progressKey(learnerID string, itemID int64) string {
	return fmt.Sprintf("%s|%d", learnerID, itemID)
}

func (f *fakeProgressStore) Get(_ context.Context, learnerID string, itemID int64) (*models.Progress, error) {
	p, ok := f.records[progressKey(learnerID, itemID)]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProgressStore) Upsert(_ context.Context, progress *models.Progress) error {
	cp := *progress
	f.records[progressKey(progress.LearnerID, progress.ItemID)] = &cp
	return nil
}

func (f *fakeProgressStore) topicRecords(learnerID string, topicID int64) []*models.Progress {
	var out []*models.Progress
	for _, p := range f.records {
		if p.LearnerID == learnerID && f.itemTopics[p.ItemID] == topicID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].NextReviewDate.Equal(out[j].NextReviewDate) {
			return out[i].NextReviewDate.Before(out[j].NextReviewDate)
		}
		return out[i].ItemID < out[j].ItemID
	})
	return out
}

func (f *fakeProgressStore) DueItemIDs(_ context.Context, learnerID string, topicID int64, before time.Time, limit int) ([]int64, error) {
	var out []int64
	for _, p := range f.topicRecords(learnerID, topicID) {
		if !p.NextReviewDate.After(before) {
			out = append(out, p.ItemID)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (f *fakeProgressStore) StudiedItemIDs(_ context.Context, learnerID string, topicID int64) ([]int64, error) {
	var out []int64
	for _, p := range f.topicRecords(learnerID, topicID) {
		out = append(out, p.ItemID)
	}
	return out, nil
}

func (f *fakeProgressStore) LeastRecentItemIDs(_ context.Context, learnerID string, topicID int64, limit int) ([]int64, error) {
	var out []int64
	for _, p := range f.topicRecords(learnerID, topicID) {
		out = append(out, p.ItemID)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeProgressStore) DueCount(ctx context.Context, learnerID string, topicID int64, before time.Time) (int, error) {
	ids, _ := f.DueItemIDs(ctx, learnerID, topicID, before, len(f.records)+1)
	return len(ids), nil
}

func (f *fakeProgressStore) MasteredCount(_ context.Context, learnerID string, topicID int64, threshold int) (int, error) {
	count := 0
	for _, p := range f.topicRecords(learnerID, topicID) {
		if p.Repetitions >= threshold {
			count++
		}
	}
	return count, nil
}

func (f *fakeProgressStore) LifetimeTotals(_ context.Context, learnerID string) (int, int, error) {
	reviews, correct := 0, 0
	for _, p := range f.records {
		if p.LearnerID == learnerID {
			reviews += p.TotalReviews
			correct += p.TotalCorrectReviews
		}
	}
	return reviews, correct, nil
}

type fakeSessionStore struct {
	sessions map[string]*models.Session
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: make(map[string]*models.Session)}
}

func copySession(s *models.Session) *models.Session {
	cp := *s
	cp.Queue = append(models.ItemQueue(nil), s.Queue...)
	return &cp
}

func (f *fakeSessionStore) GetByID(_ context.Context, sessionID string) (*models.Session, error) {
	s, ok := f.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	return copySession(s), nil
}

func (f *fakeSessionStore) FindOpen(_ context.Context, learnerID string, topicID int64) (*models.Session, error) {
	for _, s := range f.sessions {
		if s.LearnerID == learnerID && s.TopicID == topicID && s.Status != models.SessionFinished {
			return copySession(s), nil
		}
	}
	return nil, nil
}

func (f *fakeSessionStore) OpenTopicIDs(_ context.Context, learnerID string) ([]int64, error) {
	var out []int64
	for _, s := range f.sessions {
		if s.LearnerID == learnerID && s.Status != models.SessionFinished {
			out = append(out, s.TopicID)
		}
	}
	return out, nil
}

func (f *fakeSessionStore) FinishedCount(_ context.Context, learnerID string) (int, error) {
	count := 0
	for _, s := range f.sessions {
		if s.LearnerID == learnerID && s.Status == models.SessionFinished {
			count++
		}
	}
	return count, nil
}

func (f *fakeSessionStore) Create(_ context.Context, session *models.Session) error {
	if session.Version == 0 {
		session.Version = 1
	}
	f.sessions[session.ID] = copySession(session)
	return nil
}

func (f *fakeSessionStore) UpdateVersioned(_ context.Context, session *models.Session) error {
	stored, ok := f.sessions[session.ID]
	if !ok {
		return fmt.Errorf("session %s: %w", session.ID, ErrNotFound)
	}
	if stored.Version != session.Version {
		return fmt.Errorf("session %s: %w", session.ID, ErrConflict)
	}
	session.Version++
	f.sessions[session.ID] = copySession(session)
	return nil
}

type recordedSummary struct {
	learnerID       string
	topicID         int64
	accuracy        float64
	durationSeconds int
}

type fakeRecorder struct {
	calls    []recordedSummary
	failWith error
}

func (f *fakeRecorder) RecordCompletedSession(_ context.Context, learnerID string, topicID int64, accuracy float64, durationSeconds int) error {
	if f.failWith != nil {
		return f.failWith
	}
	f.calls = append(f.calls, recordedSummary{learnerID, topicID, accuracy, durationSeconds})
	return nil
}

type fakeOutbox struct {
	entries []*models.SessionSummary
}

func (f *fakeOutbox) Enqueue(_ context.Context, summary *models.SessionSummary) error {
	f.entries = append(f.entries, summary)
	return nil
}
