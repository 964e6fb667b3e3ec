// Package queue moves outbound mail through RabbitMQ: the API publishes
// MailRequestedEvent and cmd/mailer consumes and delivers it.
package queue

import (
	"time"

	"github.com/iliyamo/tour-booking-api/internal/email"
)

// Event kinds carried in MailRequestedEvent.Kind.
const (
	KindPasswordReset = "password_reset"
)

// MailRequestedEvent is published when the API needs a mail sent. It
// carries the fully rendered message. UserID lets the consumer revoke
// the reset token of a mail it could not deliver.
type MailRequestedEvent struct {
	ID          string        `json:"id"`
	Kind        string        `json:"kind"`
	UserID      uint64        `json:"user_id,omitempty"`
	Message     email.Message `json:"message"`
	RequestedAt time.Time     `json:"requested_at"`
}
