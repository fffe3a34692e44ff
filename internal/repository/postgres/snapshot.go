package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/gradewatch/gradewatch-server/internal/model"
)

var _ model.SnapshotStore = (*SnapshotRepository)(nil)

type SnapshotRepository struct {
	db *Connection
}

func NewSnapshotRepository(db *Connection) *SnapshotRepository {
	return &SnapshotRepository{
		db: db,
	}
}

func (r *SnapshotRepository) Get(ctx context.Context, userID uuid.UUID, sectionID, markingPeriodID string) (model.AssignmentSnapshot, error) {
	query := `SELECT id, user_id, section_id, marking_period_id, assignments, ts
			  FROM snapshots
			  WHERE user_id = $1 AND section_id = $2 AND marking_period_id = $3`

	return r.scanOne(r.db.QueryRow(ctx, query, userID, sectionID, markingPeriodID))
}

func (r *SnapshotRepository) GetLatestForUser(ctx context.Context, userID uuid.UUID) (model.AssignmentSnapshot, error) {
	query := `SELECT id, user_id, section_id, marking_period_id, assignments, ts
			  FROM snapshots
			  WHERE user_id = $1
			  ORDER BY ts DESC
			  LIMIT 1`

	return r.scanOne(r.db.QueryRow(ctx, query, userID))
}

// Upsert keeps exactly one live snapshot per (user, section, marking
// period): the first successful fetch inserts, every later one
// overwrites in place.
func (r *SnapshotRepository) Upsert(ctx context.Context, snapshot model.AssignmentSnapshot) (model.AssignmentSnapshot, error) {
	assignments, err := json.Marshal(snapshot.Assignments)
	if err != nil {
		return model.AssignmentSnapshot{}, fmt.Errorf("failed to marshal assignments: %w", err)
	}

	query := `INSERT INTO snapshots (id, user_id, section_id, marking_period_id, assignments, ts)
			  VALUES ($1, $2, $3, $4, $5, $6)
			  ON CONFLICT (user_id, section_id, marking_period_id)
			  DO UPDATE SET assignments = EXCLUDED.assignments, ts = EXCLUDED.ts
			  RETURNING id, user_id, section_id, marking_period_id, assignments, ts`

	return r.scanOne(r.db.QueryRow(ctx, query,
		snapshot.ID, snapshot.UserID, snapshot.SectionID, snapshot.MarkingPeriodID,
		assignments, snapshot.Timestamp,
	))
}

func (r *SnapshotRepository) scanOne(row pgx.Row) (model.AssignmentSnapshot, error) {
	var (
		snapshot model.AssignmentSnapshot
		raw      []byte
	)
	err := row.Scan(
		&snapshot.ID, &snapshot.UserID, &snapshot.SectionID, &snapshot.MarkingPeriodID,
		&raw, &snapshot.Timestamp,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.AssignmentSnapshot{}, model.ErrNotFound
		}
		return model.AssignmentSnapshot{}, fmt.Errorf("failed to scan snapshot: %w", err)
	}

	if err := json.Unmarshal(raw, &snapshot.Assignments); err != nil {
		return model.AssignmentSnapshot{}, fmt.Errorf("failed to unmarshal assignments: %w", err)
	}

	return snapshot, nil
}
