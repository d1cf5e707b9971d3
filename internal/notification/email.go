package notification

import (
	"context"
	"fmt"
	"html"

	"github.com/cockroachdb/errors"
	"gopkg.in/gomail.v2"
)

type mailDialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// EmailSender mails the notification to the account address.
type EmailSender struct {
	dialer mailDialer
	from   string
}

func NewEmailSender(host string, port int, username, password, from string) *EmailSender {
	if from == "" {
		from = username
	}
	return &EmailSender{dialer: gomail.NewDialer(host, port, username, password), from: from}
}

func (s *EmailSender) Send(ctx context.Context, to Recipient, msg Message) error {
	if to.Email == "" {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetAddressHeader("To", to.Email, to.Name)
	m.SetHeader("Subject", msg.Title)
	m.SetBody("text/plain", msg.Body)
	m.AddAlternative("text/html", fmt.Sprintf("<p>%s</p>", html.EscapeString(msg.Body)))

	if err := s.dialer.DialAndSend(m); err != nil {
		return errors.Wrap(err, "smtp send")
	}
	return nil
}
