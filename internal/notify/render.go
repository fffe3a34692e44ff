// Package notify renders detected changes into user-facing messages and
// forwards them to the notification sink: one in-app notification per
// change, one combined digest email per job.
package notify

import (
	"fmt"
	"html"
	"strings"

	"github.com/gradewatch/gradewatch-server/internal/model"
)

// Render converts one change into plain and HTML representations.
// Proficiency phrasing wins whenever any skill on the assignment
// carries a rating description; otherwise a percentage is computed when
// both points are present, guarding against a zero maximum.
func Render(change model.Change, assignmentName, courseName string) model.Message {
	if assignmentName == "" {
		assignmentName = change.Assignment.Name
	}

	var subject, text string
	switch change.Kind {
	case model.ChangeNew:
		subject = fmt.Sprintf("New assignment in %s", courseName)
		text = fmt.Sprintf("%s was added to %s.\n%s", assignmentName, courseName, gradeLine(change.Assignment))
		if change.Assignment.Comment != "" {
			text += fmt.Sprintf("\nComment: %s", change.Assignment.Comment)
		}

	case model.ChangeSkill:
		subject = fmt.Sprintf("Skill update in %s", courseName)
		skill := change.Skill
		text = fmt.Sprintf("%s (%s): %s is now %s.", assignmentName, courseName, skill.Name, skill.Rating)
		if skill.RatingDescription != "" {
			text += fmt.Sprintf("\n%s", skill.RatingDescription)
		}

	case model.ChangePoints:
		subject = fmt.Sprintf("Grade update in %s", courseName)
		text = fmt.Sprintf("%s (%s): %s", assignmentName, courseName, gradeLine(change.Assignment))

	case model.ChangeComment:
		subject = fmt.Sprintf("New comment in %s", courseName)
		text = fmt.Sprintf("%s (%s): %s", assignmentName, courseName, change.Assignment.Comment)
	}

	return model.Message{
		Subject: subject,
		Text:    text,
		HTML:    toHTML(text),
	}
}

// gradeLine renders the grade state of an assignment.
func gradeLine(a model.Assignment) string {
	if lines := skillLines(a); len(lines) > 0 {
		return strings.Join(lines, "\n")
	}

	if a.Graded() {
		if *a.MaxPoints == 0 {
			return fmt.Sprintf("Score: %s", trimFloat(*a.PointsEarned))
		}
		pct := *a.PointsEarned / *a.MaxPoints * 100
		return fmt.Sprintf("Score: %s/%s (%.0f%%)", trimFloat(*a.PointsEarned), trimFloat(*a.MaxPoints), pct)
	}

	return "No grade information available yet."
}

// skillLines returns one "<skill>: <rating>" line per skill when the
// assignment is graded on the proficiency axis.
func skillLines(a model.Assignment) []string {
	proficiency := false
	for _, s := range a.Skills {
		if s.RatingDescription != "" {
			proficiency = true
			break
		}
	}
	if !proficiency {
		return nil
	}

	lines := make([]string, 0, len(a.Skills))
	for _, s := range a.Skills {
		lines = append(lines, fmt.Sprintf("%s: %s", s.Name, s.Rating))
	}
	return lines
}

func trimFloat(v float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", v), "0"), ".")
}

func toHTML(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = html.EscapeString(line)
	}
	return "<p>" + strings.Join(lines, "<br>") + "</p>"
}
