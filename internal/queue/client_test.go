package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gradewatch/gradewatch-server/internal/testutil"
)

type fakeBroker struct {
	tasks  []*asynq.Task
	opts   [][]asynq.Option
	err    error
	closed bool
}

func (f *fakeBroker) EnqueueContext(_ context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	f.tasks = append(f.tasks, task)
	f.opts = append(f.opts, opts)
	if f.err != nil {
		return nil, f.err
	}
	return &asynq.TaskInfo{ID: "id-1", Queue: QueueGrades}, nil
}

func (f *fakeBroker) Close() error {
	f.closed = true
	return nil
}

func optValue(opts []asynq.Option, typ asynq.OptionType) (any, bool) {
	for _, o := range opts {
		if o.Type() == typ {
			return o.Value(), true
		}
	}
	return nil, false
}

func TestClient_EnqueueGradeCheck(t *testing.T) {
	ctx := context.Background()
	trigger := time.Date(2025, 3, 14, 15, 0, 0, 0, time.UTC)
	policy := RetryPolicy{MaxRedeliveries: 1, VisibilityTimeout: 90 * time.Second}

	t.Run("success", func(t *testing.T) {
		b := &fakeBroker{}
		c := NewClientWithBroker(b, policy, testutil.MakeNoopLogger())

		require.NoError(t, c.EnqueueGradeCheck(ctx, "user@school.example", trigger))
		require.Len(t, b.tasks, 1)
		assert.Equal(t, TaskGradeCheck, b.tasks[0].Type())

		var p GradeCheckPayload
		require.NoError(t, json.Unmarshal(b.tasks[0].Payload(), &p))
		assert.Equal(t, "user@school.example", p.UserEmail)

		q, ok := optValue(b.opts[0], asynq.QueueOpt)
		require.True(t, ok)
		assert.Equal(t, QueueGrades, q)

		id, ok := optValue(b.opts[0], asynq.TaskIDOpt)
		require.True(t, ok)
		assert.Equal(t, "grade-check:user@school.example:2025-03-14T15:00:00Z", id)

		retry, ok := optValue(b.opts[0], asynq.MaxRetryOpt)
		require.True(t, ok)
		assert.Equal(t, 1, retry)

		timeout, ok := optValue(b.opts[0], asynq.TimeoutOpt)
		require.True(t, ok)
		assert.Equal(t, 90*time.Second, timeout)
	})

	t.Run("duplicate task id is a no-op", func(t *testing.T) {
		b := &fakeBroker{err: asynq.ErrTaskIDConflict}
		c := NewClientWithBroker(b, policy, testutil.MakeNoopLogger())

		assert.NoError(t, c.EnqueueGradeCheck(ctx, "user@school.example", trigger))
	})

	t.Run("broker error propagates", func(t *testing.T) {
		b := &fakeBroker{err: errors.New("redis down")}
		c := NewClientWithBroker(b, policy, testutil.MakeNoopLogger())

		err := c.EnqueueGradeCheck(ctx, "user@school.example", trigger)
		assert.ErrorContains(t, err, "failed to enqueue grade check")
	})
}

func TestClient_EnqueueAutoComplete(t *testing.T) {
	ctx := context.Background()
	b := &fakeBroker{}
	c := NewClientWithBroker(b, RetryPolicy{MaxRedeliveries: 2, VisibilityTimeout: time.Minute}, testutil.MakeNoopLogger())

	require.NoError(t, c.EnqueueAutoComplete(ctx, "user@school.example"))
	require.Len(t, b.tasks, 1)
	assert.Equal(t, TaskAutoComplete, b.tasks[0].Type())

	q, ok := optValue(b.opts[0], asynq.QueueOpt)
	require.True(t, ok)
	assert.Equal(t, QueueGeneral, q)
}

func TestClient_Close(t *testing.T) {
	b := &fakeBroker{}
	c := NewClientWithBroker(b, RetryPolicy{}, testutil.MakeNoopLogger())

	require.NoError(t, c.Close())
	assert.True(t, b.closed)
}

func TestGradeCheckTaskID_SameTriggerCollides(t *testing.T) {
	trigger := time.Date(2025, 3, 14, 15, 0, 0, 0, time.UTC)
	a := GradeCheckTaskID("u@x", trigger)
	b := GradeCheckTaskID("u@x", trigger.In(time.FixedZone("CET", 3600)))
	assert.Equal(t, a, b)

	c := GradeCheckTaskID("u@x", trigger.Add(time.Hour))
	assert.NotEqual(t, a, c)
}
