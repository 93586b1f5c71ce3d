package booking

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidFormat = errors.New("invalid date-time format, use 'YYYY-MM-DD HH:MM:SS'")

	ErrInvalidRange = errors.New("end time must be after start time")

	ErrPastStartTime = errors.New("booking time must be in the future")

	ErrConflict = errors.New("room already booked for the given time slot")

	ErrOutOfRange = errors.New("index out of range")

	ErrPersist = errors.New("failed to save bookings")

	ErrNoEmail = errors.New("user email address is empty")
)

var (
	ErrUserExists = errors.New("username already taken")

	ErrUserNotFound = errors.New("user not found")

	ErrInvalidCredentials = errors.New("incorrect password")

	ErrInvalidEmail = errors.New("invalid email or email format")

	ErrEmptyPassword = errors.New("password cannot be empty")

	ErrEmptyUsername = errors.New("username cannot be empty")

	ErrInvalidOTP = errors.New("invalid or expired OTP")
)

// ConflictError reports a rejected booking together with the rooms still on
// offer after the conflict policy ran.
type ConflictError struct {
	Room      string
	Available []string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: %s (available rooms: %s)", e.Room, ErrConflict, strings.Join(e.Available, ", "))
}

func (e *ConflictError) Unwrap() error { return ErrConflict }
