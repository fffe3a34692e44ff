// Package sendgridmail forwards digest emails through SendGrid. It
// implements the notification sink for the email channel only; in-app
// delivery belongs to a separate collaborator.
package sendgridmail

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/gradewatch/gradewatch-server/internal/logger"
	"github.com/gradewatch/gradewatch-server/internal/model"
)

var (
	host     = "https://api.sendgrid.com"
	endpoint = "/v3/mail/send"
)

var _ model.NotificationSink = (*Sink)(nil)

type Sink struct {
	key    string
	from   *sgmail.Email
	logger *logger.Logger
}

func NewSink(key, fromName, fromEmail string, logger *logger.Logger) *Sink {
	return &Sink{
		key:    key,
		from:   sgmail.NewEmail(fromName, fromEmail),
		logger: logger,
	}
}

// Send delivers email-channel messages; other channels are skipped so
// the dispatcher can use one sink for both. Delivery is best-effort and
// the result is not polled beyond the immediate status code.
func (s *Sink) Send(ctx context.Context, user model.User, msg model.Message, channel model.Channel) error {
	if channel != model.ChannelEmail {
		s.logger.Debug("skipping non-email channel", "channel", string(channel), "user", user.Email)
		return nil
	}

	p := sgmail.NewPersonalization()
	p.Subject = msg.Subject
	p.AddTos(sgmail.NewEmail("", user.Email))

	m := sgmail.NewV3Mail()
	m.SetFrom(s.from)
	m.AddPersonalizations(p)
	m.AddContent(
		sgmail.NewContent("text/plain", msg.Text),
		sgmail.NewContent("text/html", msg.HTML),
	)

	req := sendgrid.GetRequest(s.key, endpoint, host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(m)

	resp, err := sendgrid.MakeRequestWithContext(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid returned status %d", resp.StatusCode)
	}

	return nil
}
