package model

// Skill is a proficiency-based grading axis attached to an assignment,
// coexisting with numeric points.
type Skill struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Rating            string `json:"rating"`
	RatingDescription string `json:"rating_description"`
}

// Assignment is one graded item in a section's grade book.
// PointsEarned and MaxPoints are nil when the portal has not published a score.
type Assignment struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	PointsEarned *float64 `json:"points_earned,omitempty"`
	MaxPoints    *float64 `json:"max_points,omitempty"`
	Comment      string   `json:"comment,omitempty"`
	Skills       []Skill  `json:"skills,omitempty"`
}

// Graded reports whether both a score and a maximum are published.
func (a Assignment) Graded() bool {
	return a.PointsEarned != nil && a.MaxPoints != nil
}

// SkillByID returns the skill with the given id, if present.
func (a Assignment) SkillByID(id string) (Skill, bool) {
	for _, s := range a.Skills {
		if s.ID == id {
			return s, true
		}
	}
	return Skill{}, false
}

// ChangeKind enumerates detected difference kinds.
type ChangeKind string

const (
	// ChangeNew is an assignment absent from the previous snapshot.
	ChangeNew ChangeKind = "new"
	// ChangeSkill is a skill added or re-rated on an existing assignment.
	ChangeSkill ChangeKind = "skill"
	// ChangePoints is a points_earned or max_points difference.
	ChangePoints ChangeKind = "points"
	// ChangeComment is a comment text difference.
	ChangeComment ChangeKind = "comment"
)

// Change records one detected difference between two snapshots.
// Skill is set only for ChangeSkill.
type Change struct {
	Kind       ChangeKind
	Assignment Assignment
	Skill      *Skill
}
