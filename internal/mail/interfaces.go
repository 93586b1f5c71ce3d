// Package mail delivers plain-text email over SMTP.
package mail

import "io"

// Client is the subset of *smtp.Client used to send one message.
type Client interface {
	Mail(from string) error
	Rcpt(to string) error
	Data() (io.WriteCloser, error)
	Quit() error
	Close() error
}

// Dialer opens an authenticated SMTP session.
type Dialer interface {
	Connect() (Client, error)
	From() string
}
