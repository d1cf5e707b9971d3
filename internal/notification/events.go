package notification

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	amqp "github.com/rabbitmq/amqp091-go"
)

type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// EventPublisher emits booking events on a topic exchange keyed by Message.Event.
type EventPublisher struct {
	conn     *amqp.Connection
	ch       amqpChannel
	exchange string
	now      func() time.Time
}

// Event is the JSON body published for downstream consumers.
type Event struct {
	Event      string            `json:"event"`
	UserID     string            `json:"user_id,omitempty"`
	Title      string            `json:"title"`
	Body       string            `json:"body"`
	Data       map[string]string `json:"data,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

func NewEventPublisher(url, exchange string) (*EventPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, errors.Wrap(err, "dial rabbitmq")
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(err, "open channel")
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, errors.Wrap(err, "declare exchange")
	}
	return &EventPublisher{conn: conn, ch: ch, exchange: exchange, now: time.Now}, nil
}

func (p *EventPublisher) Send(ctx context.Context, to Recipient, msg Message) error {
	if msg.Event == "" {
		return nil
	}
	body, err := json.Marshal(Event{
		Event:      msg.Event,
		UserID:     to.UserID,
		Title:      msg.Title,
		Body:       msg.Body,
		Data:       msg.Data,
		OccurredAt: p.now().UTC(),
	})
	if err != nil {
		return err
	}

	err = p.ch.PublishWithContext(ctx, p.exchange, msg.Event, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
	return errors.Wrapf(err, "publish %s", msg.Event)
}

func (p *EventPublisher) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
