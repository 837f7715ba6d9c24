// Package events announces finalized templates on a topic exchange so
// downstream systems (submission workers, analytics) can react without
// coupling to the composer.
package events

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
)

const RoutingKeyFinalized = "template.finalized"

// FinalizedEvent is the message body for a finalized template.
type FinalizedEvent struct {
	EventID   string          `json:"event_id"`
	SessionID string          `json:"session_id"`
	Name      string          `json:"name"`
	Language  string          `json:"language"`
	Category  string          `json:"category"`
	Payload   json.RawMessage `json:"payload"`
	At        time.Time       `json:"at"`
}

// Publisher emits composer events. The Noop implementation keeps the
// server runnable without a broker.
type Publisher interface {
	PublishFinalized(ctx context.Context, ev FinalizedEvent) error
	Close() error
}

type Noop struct{}

func (Noop) PublishFinalized(context.Context, FinalizedEvent) error { return nil }
func (Noop) Close() error                                           { return nil }

type rmqPublisher struct {
	conn     *amqp091.Connection
	exchange string
}

// New connects to the broker and declares the topic exchange. An empty
// URL yields the Noop publisher.
func New(url, exchange string) (Publisher, error) {
	if url == "" {
		return Noop{}, nil
	}
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	defer ch.Close()
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, err
	}
	return &rmqPublisher{conn: conn, exchange: exchange}, nil
}

func (r *rmqPublisher) PublishFinalized(ctx context.Context, ev FinalizedEvent) error {
	ch, err := r.conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	if ev.EventID == "" {
		ev.EventID = uuid.NewString()
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	err = ch.PublishWithContext(
		ctx, r.exchange, RoutingKeyFinalized, false, false,
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			MessageId:    ev.EventID,
			Timestamp:    ev.At,
			Body:         body,
		},
	)
	if err == nil {
		log.Printf("Published %s for session %s", RoutingKeyFinalized, ev.SessionID)
	}
	return err
}

func (r *rmqPublisher) Close() error {
	return r.conn.Close()
}
