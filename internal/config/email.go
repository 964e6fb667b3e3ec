package config

import "time"

// EmailConfig holds SMTP settings used by the mail sender.
type EmailConfig struct {
	Host     string        // EMAIL_HOST
	Port     int           // EMAIL_PORT
	Username string        // EMAIL_USERNAME
	Password string        // EMAIL_PASSWORD
	From     string        // EMAIL_FROM
	Timeout  time.Duration // EMAIL_TIMEOUT
}

// LoadEmail reads the EMAIL_* variables. Defaults target a local mail
// catcher.
func LoadEmail() EmailConfig {
	return EmailConfig{
		Host:     envStr("EMAIL_HOST", "localhost"),
		Port:     envInt("EMAIL_PORT", 1025),
		Username: envStr("EMAIL_USERNAME", ""),
		Password: envStr("EMAIL_PASSWORD", ""),
		From:     envStr("EMAIL_FROM", "Tour Booking <noreply@tour-booking.local>"),
		Timeout:  envDur("EMAIL_TIMEOUT", 10*time.Second),
	}
}
