package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/gradewatch/gradewatch-server/internal/logger"
	"github.com/gradewatch/gradewatch-server/internal/model"
)

// SectionChanges groups one section's detected changes with its display
// name for rendering.
type SectionChanges struct {
	SectionID  string
	CourseName string
	Changes    []model.Change
}

// Dispatcher renders changes and forwards them to the sink. All changes
// for one job are batched into a single digest email so a burst of
// grades does not become a burst of emails.
type Dispatcher struct {
	sink   model.NotificationSink
	logger *logger.Logger
}

func NewDispatcher(sink model.NotificationSink, logger *logger.Logger) *Dispatcher {
	return &Dispatcher{
		sink:   sink,
		logger: logger,
	}
}

// Dispatch sends one in-app notification per change and one combined
// digest email for the whole job. Per-message sink failures are logged
// and do not abort the remaining messages. A job with zero changes
// sends nothing.
func (d *Dispatcher) Dispatch(ctx context.Context, user model.User, sections []SectionChanges) error {
	var rendered []model.Message
	for _, sc := range sections {
		for _, change := range sc.Changes {
			msg := Render(change, change.Assignment.Name, sc.CourseName)
			rendered = append(rendered, msg)

			if err := d.sink.Send(ctx, user, msg, model.ChannelInApp); err != nil {
				d.logger.Error("failed to send in-app notification", "user", user.Email, "error", err)
			}
		}
	}

	if len(rendered) == 0 {
		return nil
	}

	digest := buildDigest(rendered)
	if err := d.sink.Send(ctx, user, digest, model.ChannelEmail); err != nil {
		return fmt.Errorf("failed to send digest email: %w", err)
	}

	return nil
}

func buildDigest(messages []model.Message) model.Message {
	subject := fmt.Sprintf("%d grade updates", len(messages))
	if len(messages) == 1 {
		subject = "1 grade update"
	}

	texts := make([]string, 0, len(messages))
	htmls := make([]string, 0, len(messages))
	for _, m := range messages {
		texts = append(texts, m.Text)
		htmls = append(htmls, m.HTML)
	}

	return model.Message{
		Subject: subject,
		Text:    strings.Join(texts, "\n\n"),
		HTML:    strings.Join(htmls, "\n"),
	}
}
