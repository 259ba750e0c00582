package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ErrPublisherClosed is returned by Publish after Close.
var ErrPublisherClosed = errors.New("publisher closed")

// Publisher sends ReservationEvents to a durable queue on the default
// exchange.  The connection and channel are reused between publishes and
// re-dialled when the broker has dropped them; Publish is safe for
// concurrent use.
type Publisher struct {
	mu     sync.Mutex
	url    string
	queue  string
	conn   *amqp.Connection
	ch     *amqp.Channel
	closed bool
}

// NewPublisher dials the broker and declares queue (durable, idempotent).
func NewPublisher(url, queue string) (*Publisher, error) {
	p := &Publisher{url: url, queue: queue}
	if err := p.connectLocked(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Publisher) connectLocked() error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}
	if _, err := ch.QueueDeclare(
		p.queue, // name
		true,    // durable
		false,   // autoDelete
		false,   // exclusive
		false,   // noWait
		nil,     // args
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("declare queue: %w", err)
	}
	p.conn, p.ch = conn, ch
	return nil
}

func (p *Publisher) dropLocked() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.conn, p.ch = nil, nil
}

// usableLocked reports whether the current channel can still carry messages.
func (p *Publisher) usableLocked() bool {
	return p.ch != nil && !p.ch.IsClosed() && p.conn != nil && !p.conn.IsClosed()
}

// Publish marshals ev and sends it as a persistent message whose routing key
// is the queue name.  A dropped connection is re-dialled once per call.
func (p *Publisher) Publish(ctx context.Context, ev ReservationEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.EventID,
		Type:         string(ev.Type),
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPublisherClosed
	}
	redialled := false
	if !p.usableLocked() {
		p.dropLocked()
		if err := p.connectLocked(); err != nil {
			return fmt.Errorf("publish %s: %w", ev.Type, err)
		}
		redialled = true
	}
	err = p.ch.PublishWithContext(ctx, "", p.queue, false, false, pub)
	if errors.Is(err, amqp.ErrClosed) && !redialled {
		p.dropLocked()
		if err = p.connectLocked(); err == nil {
			err = p.ch.PublishWithContext(ctx, "", p.queue, false, false, pub)
		}
	}
	if err != nil {
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}
	return nil
}

// Close releases the channel and the connection.  Later publishes fail with
// ErrPublisherClosed.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	if p.ch != nil {
		_ = p.ch.Close()
	}
	var err error
	if p.conn != nil {
		err = p.conn.Close()
	}
	p.conn, p.ch = nil, nil
	return err
}
