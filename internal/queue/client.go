package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/gradewatch/gradewatch-server/internal/logger"
)

// broker is the slice of *asynq.Client the enqueue path needs.
type broker interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

// Client enqueues tasks with the configured retry policy applied.
type Client struct {
	broker broker
	policy RetryPolicy
	logger *logger.Logger
}

// NewClient creates a queue client backed by a real asynq connection.
func NewClient(redisOpt asynq.RedisClientOpt, policy RetryPolicy, l *logger.Logger) *Client {
	return NewClientWithBroker(asynq.NewClient(redisOpt), policy, l)
}

// NewClientWithBroker allows injecting a mockable broker (used in tests).
func NewClientWithBroker(b broker, policy RetryPolicy, l *logger.Logger) *Client {
	return &Client{
		broker: b,
		policy: policy,
		logger: l,
	}
}

// EnqueueGradeCheck puts one grade-check task on the grades queue.
// The deterministic task ID makes same-trigger duplicates a no-op.
func (c *Client) EnqueueGradeCheck(ctx context.Context, userEmail string, trigger time.Time) error {
	payload, err := json.Marshal(GradeCheckPayload{UserEmail: userEmail})
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	task := asynq.NewTask(TaskGradeCheck, payload)
	info, err := c.broker.EnqueueContext(ctx, task,
		asynq.Queue(QueueGrades),
		asynq.TaskID(GradeCheckTaskID(userEmail, trigger)),
		asynq.MaxRetry(c.policy.MaxRedeliveries),
		asynq.Timeout(c.policy.VisibilityTimeout),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		c.logger.Debug("grade check already queued for this trigger", "user", userEmail)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to enqueue grade check: %w", err)
	}

	c.logger.Debug("enqueued grade check", "user", userEmail, "task_id", info.ID, "queue", info.Queue)
	return nil
}

// EnqueueAutoComplete puts one course auto-complete task on the
// general queue.
func (c *Client) EnqueueAutoComplete(ctx context.Context, userEmail string) error {
	payload, err := json.Marshal(AutoCompletePayload{UserEmail: userEmail})
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	task := asynq.NewTask(TaskAutoComplete, payload)
	_, err = c.broker.EnqueueContext(ctx, task,
		asynq.Queue(QueueGeneral),
		asynq.MaxRetry(c.policy.MaxRedeliveries),
		asynq.Timeout(c.policy.VisibilityTimeout),
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue auto-complete: %w", err)
	}

	return nil
}

// Close releases the broker connection.
func (c *Client) Close() error {
	return c.broker.Close()
}
