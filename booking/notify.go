package booking

import (
	"context"
	"fmt"
	"strings"
)

// Notifier delivers a message to a user. Delivery is best effort: callers log
// failures and never undo the operation that triggered the message.
type Notifier interface {
	Notify(ctx context.Context, user User, subject, body string) error
}

// Mailer sends a plain-text email.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// EmailNotifier notifies users at their registered email address.
type EmailNotifier struct {
	mailer Mailer
}

func NewEmailNotifier(mailer Mailer) *EmailNotifier {
	return &EmailNotifier{mailer: mailer}
}

func (n *EmailNotifier) Notify(ctx context.Context, user User, subject, body string) error {
	if strings.TrimSpace(user.Email) == "" {
		return ErrNoEmail
	}
	return n.mailer.Send(ctx, user.Email, subject, body)
}

const (
	subjectConfirmation = "Meeting Room Booking Confirmation"
	subjectUpdate       = "Meeting Room Booking Update"
	subjectPasswordOTP  = "Password Reset OTP"
)

func confirmationBody(username string, b Booking) string {
	return fmt.Sprintf("Dear %s,\n\nYour booking details:\n%s\n\nThank you for using our meeting room booking system!",
		username, bookingDetails(b))
}

func updateBody(username string, b Booking) string {
	return fmt.Sprintf("Dear %s,\n\nYour booking has been updated:\n%s\n\nThank you for using our meeting room booking system!",
		username, bookingDetails(b))
}

func otpBody(username, code string) string {
	return fmt.Sprintf("Dear %s,\n\nYour OTP for password reset is: %s\n\nThis OTP is valid for a single use only.",
		username, code)
}

func bookingDetails(b Booking) string {
	return fmt.Sprintf("Room: %s\nStart Time: %s\nEnd Time: %s", b.Room, FormatTime(b.Start), FormatTime(b.End))
}
