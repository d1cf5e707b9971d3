package notification

import (
	"context"
	"log/slog"

	"github.com/cockroachdb/errors"
	expo "github.com/oliveroneill/exponent-server-sdk-golang/sdk"
)

// pushClient is the part of *expo.PushClient used here.
type pushClient interface {
	Publish(message *expo.PushMessage) (expo.PushResponse, error)
}

// ExpoSender delivers push notifications through the Expo push service.
type ExpoSender struct {
	client pushClient
}

func NewExpoSender() *ExpoSender {
	return &ExpoSender{client: expo.NewPushClient(nil)}
}

func (s *ExpoSender) Send(ctx context.Context, to Recipient, msg Message) error {
	if to.PushToken == "" {
		return nil
	}
	token, err := expo.NewExponentPushToken(to.PushToken)
	if err != nil {
		slog.WarnContext(ctx, "skipping malformed push token", "user_id", to.UserID)
		return nil
	}

	resp, err := s.client.Publish(&expo.PushMessage{
		To:       []expo.ExponentPushToken{token},
		Title:    msg.Title,
		Body:     msg.Body,
		Data:     msg.Data,
		Sound:    "default",
		Priority: expo.HighPriority,
	})
	if err != nil {
		return errors.Wrap(err, "expo publish")
	}
	if err := resp.ValidateResponse(); err != nil {
		return errors.Wrapf(err, "expo rejected push for user %s", to.UserID)
	}
	return nil
}
