package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/iliyamo/tour-booking-api/internal/config"
	"github.com/iliyamo/tour-booking-api/internal/database"
	"github.com/iliyamo/tour-booking-api/internal/email"
	"github.com/iliyamo/tour-booking-api/internal/logging"
	"github.com/iliyamo/tour-booking-api/internal/queue"
	"github.com/iliyamo/tour-booking-api/internal/repository"
	"github.com/iliyamo/tour-booking-api/internal/router"
	"github.com/iliyamo/tour-booking-api/internal/service"
)

func main() {
	_ = godotenv.Load() // .env is optional
	cfg := config.Load()
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Caller: cfg.IsDevelopment()})

	db, err := database.Open(database.Options{
		User:            cfg.DB.User,
		Password:        cfg.DB.Pass,
		Host:            cfg.DB.Host,
		Port:            cfg.DB.Port,
		Name:            cfg.DB.Name,
		MultiStatements: cfg.DBMigrate,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("database connection failed")
	}
	defer db.Close()
	if cfg.DBMigrate {
		if err := database.EnsureSchema(context.Background(), db); err != nil {
			logging.Fatal().Err(err).Msg("schema migration failed")
		}
	}

	rdb := config.NewRedisClient(cfg.Redis)
	if rdb == nil {
		logging.Warn().Msg("redis unavailable: in-process rate limiting, no response cache")
	} else {
		defer rdb.Close()
	}

	mailer, err := newMailer(cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("mail setup failed")
	}

	users := repository.NewUserRepo(db)
	tours := repository.NewTourRepo(db)
	reviews := repository.NewReviewRepo(db)
	resets := repository.NewTokenRepo(db)
	reviewSvc := service.NewReviewService(reviews, tours)

	e := router.New(router.Deps{
		Development: cfg.IsDevelopment(),
		Production:  cfg.IsProduction(),
		CookieDays:  cfg.JWTCookieExpiresD,
		RateLimit:   config.LoadRateLimitConfig(),
		Cache:       config.LoadCacheConfig(),
		Auth: service.NewAuthService(users, resets, mailer, service.AuthConfig{
			Secret:     cfg.JWTSecret,
			TokenTTL:   cfg.JWTExpiresIn,
			ResetTTL:   cfg.ResetTokenTTL,
			BcryptCost: cfg.BcryptCost,
		}),
		Tours:   service.NewTourService(tours, reviews),
		Users:   service.NewUserService(users, reviewSvc, cfg.BcryptCost),
		Reviews: reviewSvc,
		DB:      db,
		Redis:   rdb,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := ":" + cfg.Port
	go func() {
		logging.Info().Str("addr", addr).Str("env", cfg.Env).Msg("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	logging.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("graceful shutdown failed")
	}
}

// newMailer publishes reset mail to RabbitMQ when a broker is configured
// and otherwise talks to the SMTP server directly.
func newMailer(cfg config.Config) (email.Sender, error) {
	if cfg.Queue.URL != "" {
		logging.Info().Str("queue", cfg.Queue.MailQueue).Msg("mail goes through the broker")
		return queue.NewMailPublisher(cfg.Queue.URL, cfg.Queue.MailQueue), nil
	}
	return email.NewSMTPSender(cfg.Email)
}
