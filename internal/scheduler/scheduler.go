// Package scheduler enumerates users with stored portal credentials
// and fans grade-check tasks out to the queue. Dispatch is
// fire-and-forget: a trigger sweep returns once the last task is
// enqueued and never waits for job results.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/gradewatch/gradewatch-server/internal/logger"
	"github.com/gradewatch/gradewatch-server/internal/model"
	"github.com/gradewatch/gradewatch-server/internal/queue"
)

// Enqueuer puts grade-check tasks on the broker.
type Enqueuer interface {
	EnqueueGradeCheck(ctx context.Context, userEmail string, trigger time.Time) error
}

// UserLister enumerates users eligible for a grade check.
type UserLister interface {
	ListWithCredential(ctx context.Context) ([]model.User, error)
}

// Scheduler runs the periodic trigger sweep.
type Scheduler struct {
	users     UserLister
	enqueuer  Enqueuer
	batchSize int
	logger    *logger.Logger
}

// New creates a Scheduler. batchSize below 1 disables batch logging.
func New(users UserLister, enqueuer Enqueuer, batchSize int, l *logger.Logger) *Scheduler {
	return &Scheduler{
		users:     users,
		enqueuer:  enqueuer,
		batchSize: batchSize,
		logger:    l,
	}
}

// TriggerAll enqueues one grade check per credentialed user and
// returns the number enqueued. A failed enqueue is logged and
// skipped; one broker hiccup must not halt the sweep.
func (s *Scheduler) TriggerAll(ctx context.Context, trigger time.Time) (int, error) {
	users, err := s.users.ListWithCredential(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list users: %w", err)
	}

	enqueued := 0
	for _, u := range users {
		if err := s.enqueuer.EnqueueGradeCheck(ctx, u.Email, trigger); err != nil {
			s.logger.Error("failed to enqueue grade check", "user", u.Email, "error", err.Error())
			continue
		}
		enqueued++
	}

	return enqueued, nil
}

// TriggerAllBatched is TriggerAll with progress logged per batch.
// Batching changes observability only, never dispatch semantics.
func (s *Scheduler) TriggerAllBatched(ctx context.Context, trigger time.Time) (int, error) {
	users, err := s.users.ListWithCredential(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list users: %w", err)
	}

	enqueued := 0
	for i, u := range users {
		if err := s.enqueuer.EnqueueGradeCheck(ctx, u.Email, trigger); err != nil {
			s.logger.Error("failed to enqueue grade check", "user", u.Email, "error", err.Error())
		} else {
			enqueued++
		}

		if s.batchSize > 0 && (i+1)%s.batchSize == 0 {
			s.logger.Info("trigger sweep progress", "dispatched", i+1, "total", len(users))
		}
	}

	return enqueued, nil
}

// HandleTrigger is the asynq handler behind the periodic cron task.
// The trigger time is truncated to the minute so a redelivered
// trigger collapses onto the same grade-check task IDs.
func (s *Scheduler) HandleTrigger(ctx context.Context, _ *asynq.Task) error {
	trigger := time.Now().UTC().Truncate(time.Minute)

	n, err := s.TriggerAllBatched(ctx, trigger)
	if err != nil {
		return err
	}

	s.logger.Info("trigger sweep complete", "enqueued", n)
	return nil
}

// NewPeriodic creates an asynq scheduler with the trigger task
// registered on the given cron spec.
func NewPeriodic(redisOpt asynq.RedisClientOpt, cronSpec string) (*asynq.Scheduler, error) {
	sch := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{})

	task := asynq.NewTask(queue.TaskGradeTrigger, nil)
	if _, err := sch.Register(cronSpec, task, asynq.Queue(queue.QueueDefault)); err != nil {
		return nil, fmt.Errorf("failed to register periodic trigger: %w", err)
	}

	return sch, nil
}
