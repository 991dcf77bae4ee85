// Package events publishes audit trail entries to a message broker so other
// systems can follow changes without polling the database.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"famli/internal/config"
	"famli/internal/logging"

	amqp "github.com/rabbitmq/amqp091-go"
)

// AuditEvent mirrors one row of the audit log.
type AuditEvent struct {
	ID         uint           `json:"id"`
	UserID     *uint          `json:"user_id"`
	Action     string         `json:"action"`
	EntityType string         `json:"entity_type"`
	EntityID   uint           `json:"entity_id"`
	Details    map[string]any `json:"details"`
	CreatedAt  time.Time      `json:"created_at"`
}

type Publisher interface {
	PublishAudit(ctx context.Context, event AuditEvent) error
	Close() error
}

// NewPublisher returns an AMQP publisher when a broker URL is configured and
// a no-op publisher otherwise.
func NewPublisher(cfg config.EventsConfig, log logging.Logger) Publisher {
	if cfg.AMQPURL == "" {
		return NopPublisher{}
	}
	queue := cfg.Queue
	if queue == "" {
		queue = config.DefaultQueue
	}
	return &AMQPPublisher{
		url:   cfg.AMQPURL,
		queue: queue,
		log:   log.With("component", "events", "queue", queue),
	}
}

type NopPublisher struct{}

func (NopPublisher) PublishAudit(context.Context, AuditEvent) error { return nil }
func (NopPublisher) Close() error                                   { return nil }

// AMQPPublisher keeps one broker connection and opens a channel per message.
// A dropped connection is redialed on the next publish.
type AMQPPublisher struct {
	url   string
	queue string
	log   logging.Logger

	mu   sync.Mutex
	conn *amqp.Connection
}

func (p *AMQPPublisher) PublishAudit(ctx context.Context, event AuditEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	ch, err := p.channel()
	if err != nil {
		return err
	}
	defer func() { _ = ch.Close() }()

	// Durable so messages survive broker restarts
	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         "audit." + event.EntityType,
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", p.queue, false, false, msg); err != nil {
		return fmt.Errorf("publish: %w", err)
	}

	p.log.Debug(ctx, "audit event published", "audit_id", event.ID)
	return nil
}

func (p *AMQPPublisher) channel() (*amqp.Channel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn == nil || p.conn.IsClosed() {
		conn, err := amqp.DialConfig(p.url, amqp.Config{
			Dial: amqp.DefaultDial(2 * time.Second),
		})
		if err != nil {
			return nil, fmt.Errorf("dial broker: %w", err)
		}
		p.conn = conn
	}

	ch, err := p.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("channel open: %w", err)
	}
	return ch, nil
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn == nil || p.conn.IsClosed() {
		return nil
	}
	return p.conn.Close()
}
