package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/event-seat-booking/internal/queue"
)

// publisherDialTimeout caps the TCP and AMQP handshake of a (re)connect.
const publisherDialTimeout = 2 * time.Second

// RabbitPublisher publishes order.committed messages.  The connection is
// opened on first use and reopened after a failure.  Errors are logged and
// returned so callers can ignore them without interrupting the booking.
// Callers queue for the connection on a one-slot semaphore so a waiting
// publish gives up when its context ends.
type RabbitPublisher struct {
	url         string
	queue       string
	dialTimeout time.Duration
	logger      *logrus.Logger

	sem  chan struct{}
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewRabbitPublisher(logger *logrus.Logger, url, queueName string) *RabbitPublisher {
	return &RabbitPublisher{
		url:         url,
		queue:       queueName,
		dialTimeout: publisherDialTimeout,
		logger:      logger,
		sem:         make(chan struct{}, 1),
	}
}

// PublishOrderCommitted sends ev as a persistent JSON message on the
// default exchange with the queue name as routing key.
func (p *RabbitPublisher) PublishOrderCommitted(ctx context.Context, ev queue.OrderCommittedEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal order event: %w", err)
	}

	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return fmt.Errorf("rabbitmq: waiting for connection: %w", ctx.Err())
	}
	defer func() { <-p.sem }()
	ch, err := p.channelLocked()
	if err != nil {
		p.logger.WithContext(ctx).WithError(err).Warn("rabbitmq: connect failed")
		return err
	}
	err = ch.PublishWithContext(ctx,
		"",      // default exchange
		p.queue, // routing key = queue name
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	)
	if err != nil {
		p.resetLocked()
		p.logger.WithContext(ctx).WithError(err).WithField("order_id", ev.OrderID).Warn("rabbitmq: publish failed")
		return err
	}
	return nil
}

func (p *RabbitPublisher) channelLocked() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	p.resetLocked()
	conn, err := amqp.DialConfig(p.url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(p.dialTimeout),
	})
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("channel open: %w", err)
	}
	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("queue declare: %w", err)
	}
	p.conn, p.ch = conn, ch
	return ch, nil
}

func (p *RabbitPublisher) resetLocked() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.ch, p.conn = nil, nil
}

// Close drops the broker connection.
func (p *RabbitPublisher) Close() error {
	p.sem <- struct{}{}
	defer func() { <-p.sem }()
	p.resetLocked()
	return nil
}
