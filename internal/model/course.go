package model

import (
	"context"

	"github.com/google/uuid"
)

// CourseRef points at a canonical course record owned by the course
// search collaborator.
type CourseRef struct {
	ID   uuid.UUID
	Name string
}

// CourseSearch ranks canonical courses against a free-text name.
type CourseSearch interface {
	Find(ctx context.Context, freeTextName string) ([]CourseRef, error)
}

// AutoCompleteResult maps schedule blocks to matched canonical courses.
// RawData keeps the parsed free-text labels for blocks that matched
// nothing, so callers can surface them for manual selection.
type AutoCompleteResult struct {
	MatchedCourses map[string]CourseRef
	RawData        map[string]string
}
