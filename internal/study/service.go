// Package study implements the core of the spaced-repetition engine: queue
// construction for new sessions, the session lifecycle state machine
// (start/resume, grade, pause, finish) and the glue to the SM-2 scheduler.
package study

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/example/studyengine/internal/srs"
	"github.com/example/studyengine/pkg/models"
)

const (
	// MasteryThreshold is the repetition count after which an item counts
	// as mastered in overview stats
	MasteryThreshold = 5
	// MaxElapsedSeconds bounds the caller-reported session duration
	MaxElapsedSeconds = 24 * 60 * 60
)

// Deps are the collaborators the study service is built from
type Deps struct {
	Topics   TopicStore
	Items    ItemStore
	Progress ProgressStore
	Sessions SessionStore
	Recorder PracticeRecorder
	Outbox   SummaryOutbox

	// SessionLimit is the default queue size for new sessions; zero means
	// DefaultSessionLimit
	SessionLimit int
	// Now overrides the clock, for tests; nil means time.Now
	Now func() time.Time
	// Logger defaults to slog.Default
	Logger *slog.Logger
}

// Service owns the session lifecycle. Sessions are scoped per (learner, topic):
// a learner may hold open sessions in different topics concurrently, and start
// resumes only a session matching the requested topic.
type Service struct {
	topics   TopicStore
	items    ItemStore
	progress ProgressStore
	sessions SessionStore
	recorder PracticeRecorder
	outbox   SummaryOutbox
	queue    *QueueBuilder
	limit    int
	now      func() time.Time
	logger   *slog.Logger
}

// NewService creates the study service
func NewService(d Deps) *Service {
	limit := d.SessionLimit
	if limit == 0 {
		limit = DefaultSessionLimit
	}
	now := d.Now
	if now == nil {
		now = time.Now
	}
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		topics:   d.Topics,
		items:    d.Items,
		progress: d.Progress,
		sessions: d.Sessions,
		recorder: d.Recorder,
		outbox:   d.Outbox,
		queue:    NewQueueBuilder(d.Items, d.Progress),
		limit:    limit,
		now:      now,
		logger:   logger,
	}
}

// CurrentItem is the head-of-queue item served to the learner
type CurrentItem struct {
	ItemID          int64  `json:"item_id"`
	FrontText       string `json:"front_text"`
	BackText        string `json:"back_text"`
	CurrentInterval int    `json:"current_interval"`
}

// Scores are the running correct/incorrect counters of a session
type Scores struct {
	CorrectCount   int `json:"correct_count"`
	IncorrectCount int `json:"incorrect_count"`
}

// StartResult is the response to a start-or-resume request
type StartResult struct {
	SessionID      string               `json:"session_id"`
	Status         models.SessionStatus `json:"status"`
	Remaining      int                  `json:"remaining"`
	Scores         Scores               `json:"scores"`
	CurrentItem    *CurrentItem         `json:"current_item"`
	ElapsedSeconds int                  `json:"elapsed_seconds"`
}

// GradeResult is the response to grading the head item
type GradeResult struct {
	Scores          Scores       `json:"scores"`
	SessionFinished bool         `json:"session_finished"`
	NextItem        *CurrentItem `json:"next_item"`
	ElapsedSeconds  int          `json:"elapsed_seconds"`
}

// StartSession resumes the learner's open session for the topic, or builds a
// fresh queue and creates one. An open session holding an empty queue is an
// inconsistent leftover: it is finalized and the call fails with ErrEmptyQueue.
func (s *Service) StartSession(ctx context.Context, learnerID string, topicID int64, limit int) (*StartResult, error) {
	if learnerID == "" {
		return nil, fmt.Errorf("learner id required: %w", ErrInvalidInput)
	}
	if limit == 0 {
		limit = s.limit
	}
	if limit < 1 || limit > MaxSessionLimit {
		return nil, fmt.Errorf("limit %d out of range 1-%d: %w", limit, MaxSessionLimit, ErrInvalidInput)
	}

	topic, err := s.topics.GetByID(ctx, topicID)
	if err != nil {
		return nil, fmt.Errorf("failed to load topic: %w", err)
	}
	if topic == nil {
		return nil, fmt.Errorf("topic %d: %w", topicID, ErrNotFound)
	}

	open, err := s.sessions.FindOpen(ctx, learnerID, topicID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up open session: %w", err)
	}
	if open != nil {
		return s.resumeSession(ctx, open)
	}

	ids, err := s.queue.Build(ctx, learnerID, topicID, limit, s.now())
	if err != nil {
		return nil, err
	}

	session := &models.Session{
		ID:        uuid.NewString(),
		LearnerID: learnerID,
		TopicID:   topicID,
		Status:    models.SessionActive,
		Queue:     ids,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	s.logger.Info("session started",
		"session", session.ID, "learner", learnerID, "topic", topicID, "items", len(ids))

	current, err := s.currentItem(ctx, learnerID, ids[0])
	if err != nil {
		return nil, err
	}
	return &StartResult{
		SessionID:   session.ID,
		Status:      models.SessionActive,
		Remaining:   len(ids),
		CurrentItem: current,
	}, nil
}

func (s *Service) resumeSession(ctx context.Context, session *models.Session) (*StartResult, error) {
	if len(session.Queue) == 0 {
		// Defensive repair: an open session should never persist an empty
		// queue. Finalize it so the learner can start fresh.
		now := s.now()
		session.Status = models.SessionFinished
		session.CompletedAt = &now
		if err := s.sessions.UpdateVersioned(ctx, session); err != nil {
			return nil, fmt.Errorf("failed to finalize stale session: %w", err)
		}
		s.logger.Warn("finalized open session with empty queue", "session", session.ID)
		return nil, fmt.Errorf("session %s: %w", session.ID, ErrEmptyQueue)
	}

	if session.Status == models.SessionPaused {
		session.Status = models.SessionActive
		if err := s.sessions.UpdateVersioned(ctx, session); err != nil {
			return nil, fmt.Errorf("failed to resume session: %w", err)
		}
	}

	current, err := s.currentItem(ctx, session.LearnerID, session.Queue[0])
	if err != nil {
		return nil, err
	}
	return &StartResult{
		SessionID: session.ID,
		Status:    models.SessionActive,
		Remaining: len(session.Queue),
		Scores: Scores{
			CorrectCount:   session.CorrectCount,
			IncorrectCount: session.IncorrectCount,
		},
		CurrentItem:    current,
		ElapsedSeconds: session.ElapsedSeconds,
	}, nil
}

// GradeItem grades the session's head item, reschedules it through SM-2 and
// advances the queue. Items are graded strictly in the order served; anything
// else is ErrOutOfOrder and mutates nothing. Failed items are not requeued
// within the session. When the queue empties the session transitions to
// FINISHED and exactly one summary is emitted to the practice-record sink.
func (s *Service) GradeItem(ctx context.Context, learnerID, sessionID string, itemID int64, grade int, elapsedSeconds *int) (*GradeResult, error) {
	if learnerID == "" || sessionID == "" {
		return nil, fmt.Errorf("learner and session ids required: %w", ErrInvalidInput)
	}
	if grade < srs.GradeForgot || grade > srs.GradePerfect {
		return nil, fmt.Errorf("grade %d: %w", grade, ErrInvalidGrade)
	}
	if elapsedSeconds != nil {
		if err := validateElapsed(*elapsedSeconds); err != nil {
			return nil, err
		}
	}

	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if session == nil || session.LearnerID != learnerID || session.Status == models.SessionFinished {
		return nil, fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
	}
	if len(session.Queue) == 0 || session.Queue[0] != itemID {
		return nil, fmt.Errorf("item %d: %w", itemID, ErrOutOfOrder)
	}

	now := s.now()
	session.Queue = session.Queue[1:]
	if srs.IsCorrect(grade) {
		session.CorrectCount++
	} else {
		session.IncorrectCount++
	}
	if elapsedSeconds != nil {
		session.ElapsedSeconds = *elapsedSeconds
	}
	finished := len(session.Queue) == 0
	if finished {
		session.Status = models.SessionFinished
		session.CompletedAt = &now
	}

	// The versioned session write is the serialization point: a stale
	// concurrent grade loses here before any progress row is touched.
	if err := s.sessions.UpdateVersioned(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to update session: %w", err)
	}

	if err := s.applyGrade(ctx, learnerID, itemID, grade, now); err != nil {
		return nil, err
	}

	result := &GradeResult{
		Scores: Scores{
			CorrectCount:   session.CorrectCount,
			IncorrectCount: session.IncorrectCount,
		},
		SessionFinished: finished,
		ElapsedSeconds:  session.ElapsedSeconds,
	}

	if finished {
		s.logger.Info("session finished",
			"session", session.ID, "correct", session.CorrectCount, "incorrect", session.IncorrectCount)
		s.emitSummary(ctx, session)
		return result, nil
	}

	next, err := s.currentItem(ctx, learnerID, session.Queue[0])
	if err != nil {
		return nil, err
	}
	result.NextItem = next
	return result, nil
}

// PauseSession saves the caller-reported elapsed time and parks the session.
// Only ACTIVE sessions can pause. The duration is trusted client input,
// validated for bounds only.
func (s *Service) PauseSession(ctx context.Context, learnerID, sessionID string, elapsedSeconds int) error {
	if learnerID == "" || sessionID == "" {
		return fmt.Errorf("learner and session ids required: %w", ErrInvalidInput)
	}
	if err := validateElapsed(elapsedSeconds); err != nil {
		return err
	}

	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}
	if session == nil || session.LearnerID != learnerID || session.Status != models.SessionActive {
		return fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
	}

	session.Status = models.SessionPaused
	session.ElapsedSeconds = elapsedSeconds
	if err := s.sessions.UpdateVersioned(ctx, session); err != nil {
		return fmt.Errorf("failed to pause session: %w", err)
	}
	s.logger.Info("session paused", "session", sessionID, "elapsed_seconds", elapsedSeconds)
	return nil
}

// applyGrade loads or lazily initializes the progress record and persists the
// rescheduled state
func (s *Service) applyGrade(ctx context.Context, learnerID string, itemID int64, grade int, now time.Time) error {
	progress, err := s.progress.Get(ctx, learnerID, itemID)
	if err != nil {
		return fmt.Errorf("failed to load progress: %w", err)
	}
	if progress == nil {
		progress = &models.Progress{
			LearnerID:  learnerID,
			ItemID:     itemID,
			EaseFactor: srs.DefaultEaseFactor,
		}
	}

	state, err := srs.Schedule(srs.State{
		EaseFactor:          progress.EaseFactor,
		Interval:            progress.Interval,
		Repetitions:         progress.Repetitions,
		TotalReviews:        progress.TotalReviews,
		TotalCorrectReviews: progress.TotalCorrectReviews,
	}, grade, now)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidGrade, err)
	}

	progress.EaseFactor = state.EaseFactor
	progress.Interval = state.Interval
	progress.Repetitions = state.Repetitions
	progress.NextReviewDate = state.NextReviewDate
	progress.TotalReviews = state.TotalReviews
	progress.TotalCorrectReviews = state.TotalCorrectReviews

	if err := s.progress.Upsert(ctx, progress); err != nil {
		return fmt.Errorf("failed to save progress: %w", err)
	}
	return nil
}

// emitSummary delivers the finished-session summary to the practice-record
// sink. The FINISHED transition is already committed, so delivery failures are
// parked in the outbox for the background sweep instead of being surfaced.
func (s *Service) emitSummary(ctx context.Context, session *models.Session) {
	accuracy := Accuracy(session.CorrectCount, session.IncorrectCount)
	err := s.recorder.RecordCompletedSession(ctx, session.LearnerID, session.TopicID, accuracy, session.ElapsedSeconds)
	if err == nil {
		return
	}
	s.logger.Warn("practice record delivery failed, queueing for retry",
		"session", session.ID, "error", err)
	summary := &models.SessionSummary{
		LearnerID:       session.LearnerID,
		TopicID:         session.TopicID,
		Accuracy:        accuracy,
		DurationSeconds: session.ElapsedSeconds,
	}
	if qerr := s.outbox.Enqueue(ctx, summary); qerr != nil {
		s.logger.Error("failed to queue session summary",
			"session", session.ID, "error", qerr)
	}
}

func (s *Service) currentItem(ctx context.Context, learnerID string, itemID int64) (*CurrentItem, error) {
	item, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to load item: %w", err)
	}
	if item == nil {
		return nil, fmt.Errorf("item %d: %w", itemID, ErrNotFound)
	}

	interval := 0
	progress, err := s.progress.Get(ctx, learnerID, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to load progress: %w", err)
	}
	if progress != nil {
		interval = progress.Interval
	}

	return &CurrentItem{
		ItemID:          item.ID,
		FrontText:       item.FrontText,
		BackText:        item.BackText,
		CurrentInterval: interval,
	}, nil
}

// Accuracy returns the percentage of correct answers, 0 when nothing was graded
func Accuracy(correct, incorrect int) float64 {
	total := correct + incorrect
	if total == 0 {
		return 0
	}
	return float64(correct) / float64(total) * 100
}

func validateElapsed(seconds int) error {
	if seconds < 0 || seconds > MaxElapsedSeconds {
		return fmt.Errorf("elapsed seconds %d out of range: %w", seconds, ErrInvalidInput)
	}
	return nil
}

// TopicSummary is the per-topic slice of the study overview
type TopicSummary struct {
	TopicID        int64  `json:"topic_id"`
	Title          string `json:"title"`
	Difficulty     string `json:"difficulty"`
	TotalItems     int    `json:"total_items"`
	DueItems       int    `json:"due_items"`
	MasteredItems  int    `json:"mastered_items"`
	HasOpenSession bool   `json:"has_open_session"`
}

// LifetimeMetrics aggregates the learner's all-time study history
type LifetimeMetrics struct {
	SessionsCompleted int     `json:"sessions_completed"`
	TotalReviews      int     `json:"total_reviews"`
	AverageAccuracy   float64 `json:"average_accuracy"`
}

// Overview is the read-only snapshot consumed by the dashboard
type Overview struct {
	Topics   []TopicSummary  `json:"topics"`
	Lifetime LifetimeMetrics `json:"lifetime"`
}

// GetOverview assembles per-topic due/mastered counts and lifetime metrics for
// the learner. Read-only; contains no scheduling decisions.
func (s *Service) GetOverview(ctx context.Context, learnerID string) (*Overview, error) {
	if learnerID == "" {
		return nil, fmt.Errorf("learner id required: %w", ErrInvalidInput)
	}

	topics, err := s.topics.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load topics: %w", err)
	}
	openTopics, err := s.sessions.OpenTopicIDs(ctx, learnerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load open sessions: %w", err)
	}
	open := make(map[int64]bool, len(openTopics))
	for _, id := range openTopics {
		open[id] = true
	}

	now := s.now()
	summaries := make([]TopicSummary, 0, len(topics))
	for _, topic := range topics {
		total, err := s.items.CountByTopic(ctx, topic.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to count items: %w", err)
		}
		due, err := s.progress.DueCount(ctx, learnerID, topic.ID, now)
		if err != nil {
			return nil, fmt.Errorf("failed to count due items: %w", err)
		}
		mastered, err := s.progress.MasteredCount(ctx, learnerID, topic.ID, MasteryThreshold)
		if err != nil {
			return nil, fmt.Errorf("failed to count mastered items: %w", err)
		}
		summaries = append(summaries, TopicSummary{
			TopicID:        topic.ID,
			Title:          topic.Title,
			Difficulty:     topic.Difficulty,
			TotalItems:     total,
			DueItems:       due,
			MasteredItems:  mastered,
			HasOpenSession: open[topic.ID],
		})
	}

	finished, err := s.sessions.FinishedCount(ctx, learnerID)
	if err != nil {
		return nil, fmt.Errorf("failed to count finished sessions: %w", err)
	}
	reviews, correct, err := s.progress.LifetimeTotals(ctx, learnerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load lifetime totals: %w", err)
	}

	avg := 0.0
	if reviews > 0 {
		avg = math.Round(float64(correct)/float64(reviews)*1000) / 10
	}

	return &Overview{
		Topics: summaries,
		Lifetime: LifetimeMetrics{
			SessionsCompleted: finished,
			TotalReviews:      reviews,
			AverageAccuracy:   avg,
		},
	}, nil
}
