package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/tour-booking-api/internal/email"
	"github.com/iliyamo/tour-booking-api/internal/logging"
)

// ResetClearer revokes the pending reset token of a user.
type ResetClearer interface {
	ClearReset(ctx context.Context, userID uint64) error
}

// MailConsumer delivers queued mail through an email.Sender. When Resets
// is set, a reset mail that cannot be delivered has its token cleared, as
// the synchronous path does.
type MailConsumer struct {
	URL    string
	Queue  string
	Sender email.Sender
	Resets ResetClearer
}

// Run connects to RabbitMQ, declares the queue and consumes until ctx is
// cancelled. Broker failures are retried with exponential backoff.
func (c *MailConsumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.URL)
		if err != nil {
			logging.Warn().Err(err).Dur("retry_in", backoff).Msg("mail-consumer: failed to dial broker")
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		err = c.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logging.Warn().Err(err).Msg("mail-consumer: consume loop ended, reconnecting")
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *MailConsumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(10, 0, false); err != nil {
		logging.Warn().Err(err).Msg("mail-consumer: set QoS failed")
	}
	if _, err := ch.QueueDeclare(c.Queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(c.Queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}
	logging.Info().Str("queue", c.Queue).Msg("mail-consumer: consuming")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.handle(ctx, d.Body); err != nil {
				logging.Error().Err(err).Str("message_id", d.MessageId).Msg("mail-consumer: handle message failed")
				_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// handle decodes one delivery and sends its message.
func (c *MailConsumer) handle(ctx context.Context, body []byte) error {
	var ev MailRequestedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Message.To == "" {
		return errors.New("event has no recipient")
	}
	if err := c.Sender.Send(ctx, ev.Message); err != nil {
		c.revoke(ctx, ev)
		return fmt.Errorf("send %s mail %s: %w", ev.Kind, ev.ID, err)
	}
	logging.Info().Str("event_id", ev.ID).Str("kind", ev.Kind).Msg("mail-consumer: delivered")
	return nil
}

// revoke clears the reset token an undelivered reset mail carried.
func (c *MailConsumer) revoke(ctx context.Context, ev MailRequestedEvent) {
	if c.Resets == nil || ev.Kind != KindPasswordReset || ev.UserID == 0 {
		return
	}
	if err := c.Resets.ClearReset(ctx, ev.UserID); err != nil {
		logging.Error().Err(err).Uint64("user_id", ev.UserID).Str("event_id", ev.ID).Msg("mail-consumer: clear reset token failed")
		return
	}
	logging.Info().Uint64("user_id", ev.UserID).Str("event_id", ev.ID).Msg("mail-consumer: reset token cleared after failed delivery")
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
