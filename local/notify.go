package local

import (
	"log/slog"
)

// Mailer delivers email action links. Applications provide their own
// implementation; ConsoleMailer is for development.
type Mailer interface {
	SendVerificationEmail(to string, verificationLink string) error
	SendPasswordResetEmail(to string, resetLink string) error
}

// SMSSender delivers phone verification codes.
type SMSSender interface {
	SendCode(phone string, code string) error
}

// ConsoleMailer logs emails instead of sending them.
type ConsoleMailer struct {
	Logger *slog.Logger
}

func (c *ConsoleMailer) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

func (c *ConsoleMailer) SendVerificationEmail(to string, verificationLink string) error {
	c.logger().Info("EMAIL: Verify your email address", "to", to, "link", verificationLink)
	return nil
}

func (c *ConsoleMailer) SendPasswordResetEmail(to string, resetLink string) error {
	c.logger().Info("EMAIL: Reset your password", "to", to, "link", resetLink)
	return nil
}

// ConsoleSMS logs verification codes instead of texting them.
type ConsoleSMS struct {
	Logger *slog.Logger
}

func (c *ConsoleSMS) SendCode(phone string, code string) error {
	l := c.Logger
	if l == nil {
		l = slog.Default()
	}
	l.Info("SMS: verification code", "to", phone, "code", code)
	return nil
}
