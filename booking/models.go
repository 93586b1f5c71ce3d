package booking

import "time"

// Booking is a single room reservation owned by one user.
// ID is assigned in memory when the booking is created or loaded and is never
// written to the bookings file.
type Booking struct {
	ID    string
	Room  string
	Start time.Time
	End   time.Time
}

// User represents a registered account.
type User struct {
	Username     string `json:"username" validate:"required"`
	PasswordHash string `json:"-"` // Don't serialize password hash
	Salt         string `json:"-"`
	Email        string `json:"email" validate:"required,email"`
}
