package queue

import (
	"context"

	"github.com/hibiken/asynq"

	"github.com/gradewatch/gradewatch-server/internal/logger"
)

// NewGradeServer creates an asynq server that consumes only the grades
// queue. Concurrency stays small because every task holds a full
// browser process.
func NewGradeServer(redisOpt asynq.RedisClientOpt, concurrency int, l *logger.Logger) *asynq.Server {
	if concurrency < 1 {
		concurrency = 1
	}
	return asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			QueueGrades: 1,
		},
		ErrorHandler: errorHandler(l),
	})
}

// NewGeneralServer creates an asynq server for the remaining queues
// with weighted priorities.
func NewGeneralServer(redisOpt asynq.RedisClientOpt, concurrency int, l *logger.Logger) *asynq.Server {
	if concurrency < 1 {
		concurrency = 4
	}
	return asynq.NewServer(redisOpt, asynq.Config{
		Concurrency:  concurrency,
		Queues:       GeneralQueuePriorities(),
		ErrorHandler: errorHandler(l),
	})
}

func errorHandler(l *logger.Logger) asynq.ErrorHandler {
	return asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
		l.Error("task failed", "type", task.Type(), "error", err.Error())
	})
}
