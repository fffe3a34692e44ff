package model

// DispatchJob identifies one unit of scheduled work. Re-running a job
// against an unchanged snapshot is a no-op downstream: detection is
// idempotent, delivery is not guaranteed exactly-once.
type DispatchJob struct {
	UserEmail  string
	QueueName  string
	RoutingKey string
}
