// Package notification delivers booking messages over push, email and the
// event bus without holding up the request that produced them.
package notification

import (
	"context"

	"github.com/cockroachdb/errors"
)

// Event keys double as AMQP routing keys.
const (
	EventBookingConfirmed = "booking.confirmed"
	EventBookingRejected  = "booking.rejected"
	EventBookingCancelled = "booking.cancelled"
	EventBookingReminder  = "booking.reminder"
)

// Message is a channel-neutral notification.
type Message struct {
	Event string
	Title string
	Body  string
	Data  map[string]string
}

// Recipient is where a message goes. Empty fields skip that channel.
type Recipient struct {
	UserID    string
	Name      string
	Email     string
	PushToken string
}

type Sender interface {
	Send(ctx context.Context, to Recipient, msg Message) error
}

// MultiSender fans a message out to every sender and reports all failures.
type MultiSender []Sender

func (m MultiSender) Send(ctx context.Context, to Recipient, msg Message) error {
	var errs error
	for _, s := range m {
		if err := s.Send(ctx, to, msg); err != nil {
			errs = errors.CombineErrors(errs, err)
		}
	}
	return errs
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, to Recipient, msg Message) error

func (f SenderFunc) Send(ctx context.Context, to Recipient, msg Message) error {
	return f(ctx, to, msg)
}
