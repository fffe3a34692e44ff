package model

import "context"

// Channel selects a delivery mechanism on the notification sink.
type Channel string

const (
	// ChannelInApp delivers one notification per change.
	ChannelInApp Channel = "in_app"
	// ChannelEmail delivers one combined digest per job.
	ChannelEmail Channel = "email"
)

// Message is a rendered notification with both representations.
type Message struct {
	Subject string
	Text    string
	HTML    string
}

// NotificationSink forwards rendered messages for delivery. Delivery is
// best-effort; the result is not polled.
type NotificationSink interface {
	Send(ctx context.Context, user User, msg Message, channel Channel) error
}
