// Command mailer consumes queued mail from RabbitMQ and delivers it over
// SMTP. The API server publishes to the same queue when RABBITMQ_URL is set.
// It connects to MySQL to revoke reset tokens whose mail failed.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/iliyamo/tour-booking-api/internal/config"
	"github.com/iliyamo/tour-booking-api/internal/database"
	"github.com/iliyamo/tour-booking-api/internal/email"
	"github.com/iliyamo/tour-booking-api/internal/logging"
	"github.com/iliyamo/tour-booking-api/internal/queue"
	"github.com/iliyamo/tour-booking-api/internal/repository"
)

func main() {
	_ = godotenv.Load()
	logging.Init(logging.Config{Level: os.Getenv("LOG_LEVEL"), Format: os.Getenv("LOG_FORMAT")})

	qcfg := config.LoadQueue()
	if qcfg.URL == "" {
		logging.Fatal().Msg("RABBITMQ_URL is required")
	}
	sender, err := email.NewSMTPSender(config.LoadEmail())
	if err != nil {
		logging.Fatal().Err(err).Msg("mail setup failed")
	}

	dbc := config.LoadDatabase()
	db, err := database.Open(database.Options{
		User:     dbc.User,
		Password: dbc.Pass,
		Host:     dbc.Host,
		Port:     dbc.Port,
		Name:     dbc.Name,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("database connection failed")
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := &queue.MailConsumer{
		URL:    qcfg.URL,
		Queue:  qcfg.MailQueue,
		Sender: sender,
		Resets: repository.NewTokenRepo(db),
	}
	logging.Info().Str("queue", qcfg.MailQueue).Msg("mailer started")
	if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Fatal().Err(err).Msg("mailer stopped")
	}
	logging.Info().Msg("mailer stopped")
}
