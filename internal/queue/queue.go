// Package queue wraps the asynq broker: queue names, task types,
// payload shapes and the retry policy applied at the enqueue boundary.
package queue

import (
	"fmt"
	"time"
)

// Queue names. Grade checks run browser sessions and get a dedicated
// queue so a slow portal never starves lightweight work.
const (
	QueueGrades  = "grades"
	QueueGeneral = "general"
	QueueHigh    = "high"
	QueueDefault = "default"
	QueueLow     = "low"
)

// Task type names.
const (
	TaskGradeCheck   = "grade:check"
	TaskGradeTrigger = "grade:trigger_all"
	TaskAutoComplete = "course:autocomplete"
)

// GeneralQueuePriorities returns the weighted priorities for the
// general worker. Grades is excluded; it has its own server.
func GeneralQueuePriorities() map[string]int {
	return map[string]int{
		QueueHigh:    6,
		QueueGeneral: 3,
		QueueDefault: 2,
		QueueLow:     1,
	}
}

// RetryPolicy makes redelivery explicit at the queue boundary.
// VisibilityTimeout is the hard per-attempt time limit: asynq cancels
// the task context and the task becomes eligible for redelivery.
type RetryPolicy struct {
	MaxRedeliveries   int
	VisibilityTimeout time.Duration
}

// GradeCheckPayload is the body of a grade:check task.
type GradeCheckPayload struct {
	UserEmail string `json:"user_email"`
}

// AutoCompletePayload is the body of a course:autocomplete task.
type AutoCompletePayload struct {
	UserEmail string `json:"user_email"`
}

// GradeCheckTaskID builds a deterministic task ID so that repeated
// enqueues for the same user within one trigger window collapse into
// a single pending task.
func GradeCheckTaskID(userEmail string, trigger time.Time) string {
	return fmt.Sprintf("grade-check:%s:%s", userEmail, trigger.UTC().Format(time.RFC3339))
}
