// Package sl holds small helpers for building slog attributes.
package sl

import "log/slog"

// Err wraps err as an "error" attribute:
//
//	log.Error("failed to save bookings", sl.Err(err))
func Err(err error) slog.Attr {
	return slog.Attr{
		Key:   "error",
		Value: slog.StringValue(err.Error()),
	}
}
