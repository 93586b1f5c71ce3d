package mail

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"meeting-rooms/internal/lib/sl"
)

// Sender writes messages through a Dialer, at most ratePerMinute per minute.
type Sender struct {
	dialer  Dialer
	limiter *rate.Limiter
	timeout time.Duration
	log     *slog.Logger
}

func NewSender(dialer Dialer, ratePerMinute int, timeout time.Duration, log *slog.Logger) *Sender {
	limit := rate.Inf
	if ratePerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(ratePerMinute))
	}
	return &Sender{
		dialer:  dialer,
		limiter: rate.NewLimiter(limit, 1),
		timeout: timeout,
		log:     log,
	}
}

// Send delivers one plain-text message. It blocks until the rate limiter admits
// it or ctx ends; the SMTP exchange itself runs in the caller's goroutine and is
// bounded by the dialer's deadline.
func (s *Sender) Send(ctx context.Context, to, subject, body string) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("mail rate limit: %w", err)
	}

	from := s.dialer.From()
	msg := buildMessage(from, to, subject, body)

	client, err := s.dialer.Connect()
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.Mail(from); err != nil {
		s.log.Error("failed to set MAIL FROM", slog.String("from", from), sl.Err(err))
		return err
	}
	if err := client.Rcpt(to); err != nil {
		s.log.Error("failed to set RCPT TO", slog.String("recipient", to), sl.Err(err))
		return err
	}

	wc, err := client.Data()
	if err != nil {
		s.log.Error("failed to get Data writer", sl.Err(err))
		return err
	}
	if _, err := wc.Write([]byte(msg)); err != nil {
		s.log.Error("failed to write email body", sl.Err(err))
		return err
	}
	if err := wc.Close(); err != nil {
		s.log.Error("failed to close Data writer", sl.Err(err))
		return err
	}
	if err := client.Quit(); err != nil {
		s.log.Error("failed to quit SMTP client", sl.Err(err))
		return err
	}

	s.log.Info("email sent", slog.String("to", to), slog.String("subject", subject))
	return nil
}

func buildMessage(from, to, subject, body string) string {
	return strings.Join([]string{
		"From: " + from,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		strings.ReplaceAll(body, "\n", "\r\n"),
	}, "\r\n")
}

// LogSender stands in for SMTP when no server is configured: each message is
// written to the log at info level.
type LogSender struct {
	log *slog.Logger
}

func NewLogSender(log *slog.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Send(_ context.Context, to, subject, body string) error {
	s.log.Info("email not sent, SMTP disabled",
		slog.String("to", to),
		slog.String("subject", subject),
		slog.String("body", body),
	)
	return nil
}
