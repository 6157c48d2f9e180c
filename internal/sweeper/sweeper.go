// Package sweeper redelivers finished-session summaries that the
// practice-record sink rejected at finish time. Session completion is
// authoritative; delivery just has to happen eventually.
package sweeper

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/example/studyengine/internal/study"
	"github.com/example/studyengine/pkg/models"
)

const batchSize = 50

// Outbox is the queue of summaries awaiting redelivery
type Outbox interface {
	ListPending(ctx context.Context, limit int) ([]models.SessionSummary, error)
	Delete(ctx context.Context, id int64) error
	IncrementAttempts(ctx context.Context, id int64) error
}

// Sweeper periodically drains the summary outbox into the practice-record sink
type Sweeper struct {
	scheduler *gocron.Scheduler
	outbox    Outbox
	recorder  study.PracticeRecorder
	interval  time.Duration
	logger    *slog.Logger
}

// New creates a sweeper that retries every interval
func New(outbox Outbox, recorder study.PracticeRecorder, interval time.Duration, logger *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		scheduler: gocron.NewScheduler(time.UTC),
		outbox:    outbox,
		recorder:  recorder,
		interval:  interval,
		logger:    logger,
	}
}

// Start begins the periodic sweep in a non-blocking manner
func (s *Sweeper) Start() {
	s.scheduler.Every(s.interval).Do(s.DeliverPending)
	s.scheduler.StartAsync()
}

// Stop terminates the periodic sweep
func (s *Sweeper) Stop() {
	s.scheduler.Stop()
}

// DeliverPending pushes queued summaries to the sink, removing the ones that
// stick and counting attempts on the ones that don't
func (s *Sweeper) DeliverPending() {
	ctx := context.Background()

	pending, err := s.outbox.ListPending(ctx, batchSize)
	if err != nil {
		s.logger.Error("failed to list pending summaries", "error", err)
		return
	}

	for _, summary := range pending {
		err := s.recorder.RecordCompletedSession(ctx,
			summary.LearnerID, summary.TopicID, summary.Accuracy, summary.DurationSeconds)
		if err != nil {
			s.logger.Warn("summary redelivery failed",
				"summary", summary.ID, "attempts", summary.Attempts+1, "error", err)
			if err := s.outbox.IncrementAttempts(ctx, summary.ID); err != nil {
				s.logger.Error("failed to record delivery attempt", "summary", summary.ID, "error", err)
			}
			continue
		}
		if err := s.outbox.Delete(ctx, summary.ID); err != nil {
			s.logger.Error("failed to remove delivered summary", "summary", summary.ID, "error", err)
			continue
		}
		s.logger.Info("summary delivered", "summary", summary.ID, "learner", summary.LearnerID)
	}
}
