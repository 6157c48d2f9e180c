package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/studyengine/internal/study"
	"github.com/example/studyengine/pkg/models"
)

// Minimal in-memory stores, enough to drive the service end to end over HTTP.

type stubStores struct {
	topics   map[int64]models.Topic
	items    []models.Item
	progress map[string]*models.Progress
	sessions map[string]*models.Session
}

func newStubStores(itemCount int) *stubStores {
	s := &stubStores{
		topics:   map[int64]models.Topic{1: {ID: 1, Title: "Geography", Difficulty: "normal"}},
		progress: make(map[string]*models.Progress),
		sessions: make(map[string]*models.Session),
	}
	for i := 1; i <= itemCount; i++ {
		s.items = append(s.items, models.Item{
			ID:        int64(i),
			TopicID:   1,
			FrontText: fmt.Sprintf("front %d", i),
			BackText:  fmt.Sprintf("back %d", i),
		})
	}
	return s
}

func (s *stubStores) GetByID(_ context.Context, topicID int64) (*models.Topic, error) {
	t, ok := s.topics[topicID]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (s *stubStores) GetAll(_ context.Context) ([]models.Topic, error) {
	out := make([]models.Topic, 0, len(s.topics))
	for _, t := range s.topics {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type stubItems struct{ s *stubStores }

func (f stubItems) GetByID(_ context.Context, itemID int64) (*models.Item, error) {
	for _, it := range f.s.items {
		if it.ID == itemID {
			item := it
			return &item, nil
		}
	}
	return nil, nil
}

func (f stubItems) GetByTopic(_ context.Context, topicID int64) ([]models.Item, error) {
	var out []models.Item
	for _, it := range f.s.items {
		if it.TopicID == topicID {
			out = append(out, it)
		}
	}
	return out, nil
}

func (f stubItems) CountByTopic(ctx context.Context, topicID int64) (int, error) {
	items, _ := f.GetByTopic(ctx, topicID)
	return len(items), nil
}

type stubProgress struct{ s *stubStores }

func (f stubProgress) key(learnerID string, itemID int64) string {
	return fmt.Sprintf("%s|%d", learnerID, itemID)
}

func (f stubProgress) Get(_ context.Context, learnerID string, itemID int64) (*models.Progress, error) {
	p, ok := f.s.progress[f.key(learnerID, itemID)]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (f stubProgress) Upsert(_ context.Context, progress *models.Progress) error {
	cp := *progress
	f.s.progress[f.key(progress.LearnerID, progress.ItemID)] = &cp
	return nil
}

func (f stubProgress) DueItemIDs(context.Context, string, int64, time.Time, int) ([]int64, error) {
	return nil, nil
}

func (f stubProgress) StudiedItemIDs(_ context.Context, learnerID string, _ int64) ([]int64, error) {
	var out []int64
	for _, p := range f.s.progress {
		if p.LearnerID == learnerID {
			out = append(out, p.ItemID)
		}
	}
	return out, nil
}

func (f stubProgress) LeastRecentItemIDs(ctx context.Context, learnerID string, topicID int64, _ int) ([]int64, error) {
	return f.StudiedItemIDs(ctx, learnerID, topicID)
}

func (f stubProgress) DueCount(context.Context, string, int64, time.Time) (int, error) {
	return 0, nil
}

func (f stubProgress) MasteredCount(context.Context, string, int64, int) (int, error) {
	return 0, nil
}

func (f stubProgress) LifetimeTotals(_ context.Context, learnerID string) (int, int, error) {
	reviews, correct := 0, 0
	for _, p := range f.s.progress {
		if p.LearnerID == learnerID {
			reviews += p.TotalReviews
			correct += p.TotalCorrectReviews
		}
	}
	return reviews, correct, nil
}

type stubSessions struct{ s *stubStores }

func copySession(s *models.Session) *models.Session {
	cp := *s
	cp.Queue = append(models.ItemQueue(nil), s.Queue...)
	return &cp
}

func (f stubSessions) GetByID(_ context.Context, sessionID string) (*models.Session, error) {
	s, ok := f.s.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	return copySession(s), nil
}

func (f stubSessions) FindOpen(_ context.Context, learnerID string, topicID int64) (*models.Session, error) {
	for _, s := range f.s.sessions {
		if s.LearnerID == learnerID && s.TopicID == topicID && s.Status != models.SessionFinished {
			return copySession(s), nil
		}
	}
	return nil, nil
}

func (f stubSessions) OpenTopicIDs(_ context.Context, learnerID string) ([]int64, error) {
	var out []int64
	for _, s := range f.s.sessions {
		if s.LearnerID == learnerID && s.Status != models.SessionFinished {
			out = append(out, s.TopicID)
		}
	}
	return out, nil
}

func (f stubSessions) FinishedCount(_ context.Context, learnerID string) (int, error) {
	count := 0
	for _, s := range f.s.sessions {
		if s.LearnerID == learnerID && s.Status == models.SessionFinished {
			count++
		}
	}
	return count, nil
}

func (f stubSessions) Create(_ context.Context, session *models.Session) error {
	if session.Version == 0 {
		session.Version = 1
	}
	f.s.sessions[session.ID] = copySession(session)
	return nil
}

func (f stubSessions) UpdateVersioned(_ context.Context, session *models.Session) error {
	stored, ok := f.s.sessions[session.ID]
	if !ok {
		return fmt.Errorf("session %s: %w", session.ID, study.ErrNotFound)
	}
	if stored.Version != session.Version {
		return fmt.Errorf("session %s: %w", session.ID, study.ErrConflict)
	}
	session.Version++
	f.s.sessions[session.ID] = copySession(session)
	return nil
}

type stubRecorder struct{}

func (stubRecorder) RecordCompletedSession(context.Context, string, int64, float64, int) error {
	return nil
}

type stubOutbox struct{}

func (stubOutbox) Enqueue(context.Context, *models.SessionSummary) error { return nil }

func newTestServer(t *testing.T, itemCount int) (*httptest.Server, *stubStores) {
	t.Helper()
	stores := newStubStores(itemCount)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	service := study.NewService(study.Deps{
		Topics:   stores,
		Items:    stubItems{stores},
		Progress: stubProgress{stores},
		Sessions: stubSessions{stores},
		Recorder: stubRecorder{},
		Outbox:   stubOutbox{},
		Logger:   logger,
	})

	server := httptest.NewServer(NewRouter(NewHandler(service, stores, stubItems{stores}, logger)))
	t.Cleanup(server.Close)
	return server, stores
}

func doJSON(t *testing.T, method, url, learnerID, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if learnerID != "" {
		req.Header.Set("X-Learner-ID", learnerID)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestStartSessionEndpoint(t *testing.T) {
	server, _ := newTestServer(t, 3)

	resp := doJSON(t, http.MethodPost, server.URL+"/api/study/topics/1/start", "learner-1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	result := decode[study.StartResult](t, resp)
	assert.NotEmpty(t, result.SessionID)
	assert.Equal(t, models.SessionActive, result.Status)
	assert.Equal(t, 3, result.Remaining)
	require.NotNil(t, result.CurrentItem)
	assert.Equal(t, int64(1), result.CurrentItem.ItemID)
	assert.Equal(t, "front 1", result.CurrentItem.FrontText)
}

func TestStartSessionRequiresLearnerHeader(t *testing.T) {
	server, _ := newTestServer(t, 3)

	resp := doJSON(t, http.MethodPost, server.URL+"/api/study/topics/1/start", "", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStartSessionUnknownTopic(t *testing.T) {
	server, _ := newTestServer(t, 3)

	resp := doJSON(t, http.MethodPost, server.URL+"/api/study/topics/99/start", "learner-1", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStartSessionRejectsBadLimit(t *testing.T) {
	server, _ := newTestServer(t, 3)

	resp := doJSON(t, http.MethodPost, server.URL+"/api/study/topics/1/start", "learner-1", `{"limit": 500}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGradeEndpointWalksQueueToFinish(t *testing.T) {
	server, stores := newTestServer(t, 2)

	start := decode[study.StartResult](t,
		doJSON(t, http.MethodPost, server.URL+"/api/study/topics/1/start", "learner-1", ""))
	gradeURL := server.URL + "/api/study/sessions/" + start.SessionID + "/grade"

	resp := doJSON(t, http.MethodPost, gradeURL, "learner-1", `{"item_id": 1, "grade": 3}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	first := decode[study.GradeResult](t, resp)
	assert.False(t, first.SessionFinished)
	require.NotNil(t, first.NextItem)
	assert.Equal(t, int64(2), first.NextItem.ItemID)

	resp = doJSON(t, http.MethodPost, gradeURL, "learner-1", `{"item_id": 2, "grade": 0, "elapsed_seconds": 60}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	last := decode[study.GradeResult](t, resp)
	assert.True(t, last.SessionFinished)
	assert.Nil(t, last.NextItem)
	assert.Equal(t, 1, last.Scores.CorrectCount)
	assert.Equal(t, 1, last.Scores.IncorrectCount)

	assert.Equal(t, models.SessionFinished, stores.sessions[start.SessionID].Status)
}

func TestGradeEndpointOutOfOrder(t *testing.T) {
	server, _ := newTestServer(t, 3)

	start := decode[study.StartResult](t,
		doJSON(t, http.MethodPost, server.URL+"/api/study/topics/1/start", "learner-1", ""))

	resp := doJSON(t, http.MethodPost,
		server.URL+"/api/study/sessions/"+start.SessionID+"/grade",
		"learner-1", `{"item_id": 2, "grade": 3}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestGradeEndpointInvalidGrade(t *testing.T) {
	server, _ := newTestServer(t, 3)

	start := decode[study.StartResult](t,
		doJSON(t, http.MethodPost, server.URL+"/api/study/topics/1/start", "learner-1", ""))

	resp := doJSON(t, http.MethodPost,
		server.URL+"/api/study/sessions/"+start.SessionID+"/grade",
		"learner-1", `{"item_id": 1, "grade": 5}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGradeEndpointUnknownSession(t *testing.T) {
	server, _ := newTestServer(t, 3)

	resp := doJSON(t, http.MethodPost,
		server.URL+"/api/study/sessions/no-such-session/grade",
		"learner-1", `{"item_id": 1, "grade": 3}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPauseEndpoint(t *testing.T) {
	server, stores := newTestServer(t, 3)

	start := decode[study.StartResult](t,
		doJSON(t, http.MethodPost, server.URL+"/api/study/topics/1/start", "learner-1", ""))

	resp := doJSON(t, http.MethodPost,
		server.URL+"/api/study/sessions/"+start.SessionID+"/pause",
		"learner-1", `{"elapsed_seconds": 42}`)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	session := stores.sessions[start.SessionID]
	assert.Equal(t, models.SessionPaused, session.Status)
	assert.Equal(t, 42, session.ElapsedSeconds)
}

func TestPauseEndpointRejectsNegativeElapsed(t *testing.T) {
	server, _ := newTestServer(t, 3)

	start := decode[study.StartResult](t,
		doJSON(t, http.MethodPost, server.URL+"/api/study/topics/1/start", "learner-1", ""))

	resp := doJSON(t, http.MethodPost,
		server.URL+"/api/study/sessions/"+start.SessionID+"/pause",
		"learner-1", `{"elapsed_seconds": -1}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestOverviewEndpoint(t *testing.T) {
	server, _ := newTestServer(t, 3)

	resp := doJSON(t, http.MethodGet, server.URL+"/api/study/overview", "learner-1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	overview := decode[study.Overview](t, resp)
	require.Len(t, overview.Topics, 1)
	assert.Equal(t, "Geography", overview.Topics[0].Title)
	assert.Equal(t, 3, overview.Topics[0].TotalItems)
}

func TestTopicsEndpoint(t *testing.T) {
	server, _ := newTestServer(t, 3)

	resp := doJSON(t, http.MethodGet, server.URL+"/api/topics", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	topics := decode[[]models.Topic](t, resp)
	require.Len(t, topics, 1)
	assert.Equal(t, "Geography", topics[0].Title)
}

func TestTopicItemsEndpoint(t *testing.T) {
	server, _ := newTestServer(t, 2)

	resp := doJSON(t, http.MethodGet, server.URL+"/api/topics/1/items", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	items := decode[[]models.Item](t, resp)
	require.Len(t, items, 2)
	assert.Equal(t, "front 1", items[0].FrontText)

	resp = doJSON(t, http.MethodGet, server.URL+"/api/topics/99/items", "", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
