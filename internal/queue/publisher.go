package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/tour-booking-api/internal/email"
	"github.com/iliyamo/tour-booking-api/internal/logging"
	"github.com/iliyamo/tour-booking-api/internal/metrics"
)

// channel is the subset of *amqp.Channel used to publish.
type channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// MailPublisher implements email.Sender by publishing to a durable queue.
// A connection is opened per publish; reset mails are rare.
type MailPublisher struct {
	queue string
	open  func() (channel, func(), error)
	now   func() time.Time
}

// NewMailPublisher returns a publisher for the broker at url.
func NewMailPublisher(url, queue string) *MailPublisher {
	return &MailPublisher{
		queue: queue,
		now:   time.Now,
		open: func() (channel, func(), error) {
			conn, err := amqp.Dial(url)
			if err != nil {
				return nil, nil, fmt.Errorf("dial: %w", err)
			}
			ch, err := conn.Channel()
			if err != nil {
				_ = conn.Close()
				return nil, nil, fmt.Errorf("channel open: %w", err)
			}
			return ch, func() { _ = conn.Close() }, nil
		},
	}
}

// Send publishes m as a persistent MailRequestedEvent.
func (p *MailPublisher) Send(ctx context.Context, m email.Message) error {
	err := p.publish(ctx, MailRequestedEvent{
		ID:          uuid.NewString(),
		Kind:        KindPasswordReset,
		UserID:      m.UserID,
		Message:     m,
		RequestedAt: p.now().UTC(),
	})
	metrics.RecordMailDispatch("rabbitmq", err)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("queue", p.queue).Msg("rabbitmq: publish failed")
	}
	return err
}

func (p *MailPublisher) publish(ctx context.Context, ev MailRequestedEvent) error {
	ch, closeConn, err := p.open()
	if err != nil {
		return err
	}
	defer closeConn()
	defer func() { _ = ch.Close() }()

	// Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.ID,
		Timestamp:    ev.RequestedAt,
		Body:         body,
	}
	// default exchange, routing key = queue name
	if err := ch.PublishWithContext(ctx, "", p.queue, false, false, pub); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}
