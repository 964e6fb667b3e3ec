package email

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/mail"
	"net/smtp"
	"strconv"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/iliyamo/tour-booking-api/internal/config"
	"github.com/iliyamo/tour-booking-api/internal/logging"
	"github.com/iliyamo/tour-booking-api/internal/metrics"
)

const breakerName = "smtp"

// ErrUnavailable is returned while the circuit breaker is open.
var ErrUnavailable = errors.New("mail server unavailable")

type deliverFunc func(ctx context.Context, from string, to []string, msg []byte) error

// SMTPSender delivers mail over SMTP behind a circuit breaker so that a
// dead mail server fails requests quickly instead of stalling them.
type SMTPSender struct {
	cfg     config.EmailConfig
	from    string // envelope sender
	deliver deliverFunc
	cb      *gobreaker.CircuitBreaker[struct{}]
	now     func() time.Time
}

// NewSMTPSender returns a sender for cfg. cfg.From may carry a display name.
func NewSMTPSender(cfg config.EmailConfig) (*SMTPSender, error) {
	addr, err := mail.ParseAddress(cfg.From)
	if err != nil {
		return nil, fmt.Errorf("parse EMAIL_FROM: %w", err)
	}
	s := &SMTPSender{cfg: cfg, from: addr.Address, now: time.Now}
	s.deliver = s.dial
	s.cb = newBreaker()
	return s, nil
}

func newBreaker() *gobreaker.CircuitBreaker[struct{}] {
	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)
	return gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
	})
}

// Send delivers m, or fails fast with ErrUnavailable while the breaker is
// open.
func (s *SMTPSender) Send(ctx context.Context, m Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.cb.Execute(func() (struct{}, error) {
		return struct{}{}, s.deliver(ctx, s.from, []string{m.To}, render(s.cfg.From, m, s.now()))
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		err = fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	metrics.RecordMailDispatch("smtp", err)
	return err
}

// dial runs one SMTP session. STARTTLS is used when offered and AUTH when
// credentials are configured.
func (s *SMTPSender) dial(ctx context.Context, from string, to []string, msg []byte) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	c, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		_ = conn.Close()
		return err
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: s.cfg.Host, MinVersion: tls.VersionTLS12}); err != nil {
			return err
		}
	}
	if s.cfg.Username != "" {
		if err := c.Auth(smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)); err != nil {
			return err
		}
	}
	if err := c.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}
