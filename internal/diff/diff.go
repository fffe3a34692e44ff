// Package diff compares two assignment collections and reports typed
// changes. Comparison is pure: inputs are never mutated, and identical
// input pairs always yield identical output.
package diff

import "github.com/gradewatch/gradewatch-server/internal/model"

// Changes walks new assignments in fetch order and reports differences
// against old. Per assignment the checks run skills, then points, then
// comment. Assignments or skills present only in old are not reported:
// the portal effectively never retracts published grades, so removal
// detection is deliberately left out.
func Changes(old, new []model.Assignment) []model.Change {
	oldByID := make(map[string]model.Assignment, len(old))
	for _, a := range old {
		oldByID[a.ID] = a
	}

	var changes []model.Change
	for _, a := range new {
		prev, ok := oldByID[a.ID]
		if !ok {
			changes = append(changes, model.Change{Kind: model.ChangeNew, Assignment: a})
			continue
		}

		for _, skill := range a.Skills {
			prevSkill, ok := prev.SkillByID(skill.ID)
			if !ok || prevSkill.Rating != skill.Rating || prevSkill.RatingDescription != skill.RatingDescription {
				skill := skill
				changes = append(changes, model.Change{Kind: model.ChangeSkill, Assignment: a, Skill: &skill})
			}
		}

		if !floatEqual(prev.PointsEarned, a.PointsEarned) || !floatEqual(prev.MaxPoints, a.MaxPoints) {
			changes = append(changes, model.Change{Kind: model.ChangePoints, Assignment: a})
		}

		if prev.Comment != a.Comment {
			changes = append(changes, model.Change{Kind: model.ChangeComment, Assignment: a})
		}
	}

	return changes
}

func floatEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
