package diff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gradewatch/gradewatch-server/internal/model"
)

func fp(v float64) *float64 { return &v }

func TestChanges_IdenticalSnapshotsYieldNothing(t *testing.T) {
	snapshot := []model.Assignment{
		{
			ID:           "1",
			Name:         "Essay draft",
			PointsEarned: fp(8),
			MaxPoints:    fp(10),
			Comment:      "Good start",
			Skills: []model.Skill{
				{ID: "7", Name: "Argumentation", Rating: "Developing", RatingDescription: "Needs evidence"},
			},
		},
		{ID: "2", Name: "Quiz 3", PointsEarned: fp(5), MaxPoints: fp(5)},
	}

	assert.Empty(t, Changes(snapshot, snapshot))
}

func TestChanges_NewAssignment(t *testing.T) {
	old := []model.Assignment{{ID: "1", PointsEarned: fp(8), MaxPoints: fp(10)}}
	new := []model.Assignment{
		{ID: "1", PointsEarned: fp(8), MaxPoints: fp(10)},
		{
			ID:     "2",
			Name:   "Lab report",
			Skills: []model.Skill{{ID: "3", Rating: "Proficient"}},
		},
	}

	changes := Changes(old, new)
	require.Len(t, changes, 1)
	assert.Equal(t, model.ChangeNew, changes[0].Kind)
	assert.Equal(t, "2", changes[0].Assignment.ID)
}

func TestChanges_PointsChanged(t *testing.T) {
	old := []model.Assignment{{ID: "1", PointsEarned: fp(8), MaxPoints: fp(10)}}
	new := []model.Assignment{{ID: "1", PointsEarned: fp(9), MaxPoints: fp(10)}}

	changes := Changes(old, new)
	require.Len(t, changes, 1)
	assert.Equal(t, model.ChangePoints, changes[0].Kind)
	assert.Equal(t, "1", changes[0].Assignment.ID)
	assert.Nil(t, changes[0].Skill)
}

func TestChanges_PointsPublished(t *testing.T) {
	old := []model.Assignment{{ID: "1"}}
	new := []model.Assignment{{ID: "1", PointsEarned: fp(4), MaxPoints: fp(5)}}

	changes := Changes(old, new)
	require.Len(t, changes, 1)
	assert.Equal(t, model.ChangePoints, changes[0].Kind)
}

func TestChanges_SkillRatingChanged(t *testing.T) {
	old := []model.Assignment{{
		ID:     "1",
		Skills: []model.Skill{{ID: "7", Name: "Argumentation", Rating: "Developing"}},
	}}
	new := []model.Assignment{{
		ID:     "1",
		Skills: []model.Skill{{ID: "7", Name: "Argumentation", Rating: "Proficient"}},
	}}

	changes := Changes(old, new)
	require.Len(t, changes, 1)
	assert.Equal(t, model.ChangeSkill, changes[0].Kind)
	require.NotNil(t, changes[0].Skill)
	assert.Equal(t, "7", changes[0].Skill.ID)
	assert.Equal(t, "Proficient", changes[0].Skill.Rating)
}

func TestChanges_SkillAdded(t *testing.T) {
	old := []model.Assignment{{ID: "1"}}
	new := []model.Assignment{{
		ID:     "1",
		Skills: []model.Skill{{ID: "9", Rating: "Emerging"}},
	}}

	changes := Changes(old, new)
	require.Len(t, changes, 1)
	assert.Equal(t, model.ChangeSkill, changes[0].Kind)
}

func TestChanges_CommentChanged(t *testing.T) {
	old := []model.Assignment{{ID: "1", Comment: "Resubmit please"}}
	new := []model.Assignment{{ID: "1", Comment: "Much improved"}}

	changes := Changes(old, new)
	require.Len(t, changes, 1)
	assert.Equal(t, model.ChangeComment, changes[0].Kind)
	assert.Equal(t, "Much improved", changes[0].Assignment.Comment)
}

func TestChanges_RemovalsNotReported(t *testing.T) {
	old := []model.Assignment{
		{ID: "1", Skills: []model.Skill{{ID: "7", Rating: "Developing"}}},
		{ID: "2"},
	}
	new := []model.Assignment{{ID: "1"}}

	assert.Empty(t, Changes(old, new))
}

func TestChanges_OrderFollowsFetchOrder(t *testing.T) {
	old := []model.Assignment{{ID: "1", PointsEarned: fp(8), MaxPoints: fp(10)}}
	new := []model.Assignment{
		{ID: "1", PointsEarned: fp(9), MaxPoints: fp(10)},
		{ID: "2", PointsEarned: fp(5), MaxPoints: fp(5)},
	}

	changes := Changes(old, new)
	require.Len(t, changes, 2)
	assert.Equal(t, model.ChangePoints, changes[0].Kind)
	assert.Equal(t, "1", changes[0].Assignment.ID)
	assert.Equal(t, model.ChangeNew, changes[1].Kind)
	assert.Equal(t, "2", changes[1].Assignment.ID)
}

func TestChanges_SkillsBeforePointsBeforeComment(t *testing.T) {
	old := []model.Assignment{{
		ID:           "1",
		PointsEarned: fp(8),
		MaxPoints:    fp(10),
		Comment:      "old",
		Skills:       []model.Skill{{ID: "7", Rating: "Developing"}},
	}}
	new := []model.Assignment{{
		ID:           "1",
		PointsEarned: fp(9),
		MaxPoints:    fp(10),
		Comment:      "new",
		Skills:       []model.Skill{{ID: "7", Rating: "Proficient"}},
	}}

	changes := Changes(old, new)
	require.Len(t, changes, 3)
	assert.Equal(t, model.ChangeSkill, changes[0].Kind)
	assert.Equal(t, model.ChangePoints, changes[1].Kind)
	assert.Equal(t, model.ChangeComment, changes[2].Kind)
}

func TestChanges_DoesNotMutateInputs(t *testing.T) {
	old := []model.Assignment{{ID: "1", Comment: "a"}}
	new := []model.Assignment{{ID: "1", Comment: "b"}, {ID: "2"}}

	_ = Changes(old, new)

	assert.Equal(t, "a", old[0].Comment)
	assert.Equal(t, "b", new[0].Comment)
	assert.Len(t, old, 1)
	assert.Len(t, new, 2)
}
