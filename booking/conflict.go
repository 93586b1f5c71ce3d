package booking

// Conflicts reports whether a and b reserve the same room over overlapping
// half-open intervals [Start, End). Back-to-back bookings do not conflict.
func Conflicts(a, b Booking) bool {
	if a.Room != b.Room {
		return false
	}
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}
