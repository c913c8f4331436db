// Package amqppub pushes committed changesets to a durable rabbitmq queue.
package amqppub

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/Xausdorf/presentation-poll/internal/replication"
	"github.com/Xausdorf/presentation-poll/internal/store"
	amqp "github.com/rabbitmq/amqp091-go"
)

const defaultQueue = "presentation.changes"

type Config struct {
	URL   string
	Queue string
}

// LoadConfig reads AMQP_URL and AMQP_QUEUE. An empty url leaves the publisher disabled.
func LoadConfig() Config {
	var cfg Config

	cfg.URL = os.Getenv("AMQP_URL")
	cfg.Queue = os.Getenv("AMQP_QUEUE")
	if cfg.Queue == "" {
		cfg.Queue = defaultQueue
	}

	return cfg
}

func (c Config) Enabled() bool {
	return c.URL != ""
}

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type Publisher struct {
	conn  *amqp.Connection
	ch    channel
	queue string
}

// Dial connects to the broker and makes sure the queue exists.
func Dial(cfg Config) (*Publisher, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("could not dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("could not open rabbitmq channel: %w", err)
	}
	if _, err = ch.QueueDeclare(
		cfg.Queue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("could not declare queue %s: %w", cfg.Queue, err)
	}

	return &Publisher{
		conn:  conn,
		ch:    ch,
		queue: cfg.Queue,
	}, nil
}

func (p *Publisher) Name() string { return "amqp" }

func (p *Publisher) Apply(ctx context.Context, cs store.Changeset) error {
	body, err := replication.MarshalEvent(cs)
	if err != nil {
		return err
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    cs.TxID,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	// default exchange, routing key is the queue name
	if err = p.ch.PublishWithContext(ctx, "", p.queue, false, false, msg); err != nil {
		return fmt.Errorf("could not publish to queue %s: %w", p.queue, err)
	}
	return nil
}

func (p *Publisher) Close() error {
	if p.conn == nil {
		return nil
	}
	return p.conn.Close()
}
