package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SnapshotStore defines persistence operations for assignment snapshots.
// At most one live snapshot exists per (user, section, marking period).
type SnapshotStore interface {
	Get(ctx context.Context, userID uuid.UUID, sectionID, markingPeriodID string) (AssignmentSnapshot, error)
	GetLatestForUser(ctx context.Context, userID uuid.UUID) (AssignmentSnapshot, error)
	Upsert(ctx context.Context, snapshot AssignmentSnapshot) (AssignmentSnapshot, error)
}

// AssignmentSnapshot is the last persisted copy of a section's assignment
// data, used as the diff baseline.
type AssignmentSnapshot struct {
	ID              uuid.UUID
	UserID          uuid.UUID
	SectionID       string
	MarkingPeriodID string
	Assignments     []Assignment
	Timestamp       time.Time
}
