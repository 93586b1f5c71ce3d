package booking

import (
	"fmt"
	"iter"
	"slices"
	"time"

	"github.com/google/uuid"
)

// Repository loads and saves the complete booking list of one owner.
type Repository interface {
	Load(owner string) ([]Booking, error)
	Save(owner string, bookings []Booking) error
}

// Store is the in-memory, ordered booking list of a single user. Every
// successful mutation is written back through the Repository.
type Store struct {
	owner    string
	bookings []Booking
	pool     *RoomPool
	repo     Repository
	now      func() time.Time

	// OnConflict runs with the requested room whenever a create or update is
	// rejected for overlapping an existing booking. Nil disables it.
	OnConflict func(room string)
}

// NewStore returns an empty store whose conflict policy removes the offending
// room from pool.
func NewStore(owner string, pool *RoomPool, repo Repository, now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	s := &Store{owner: owner, pool: pool, repo: repo, now: now}
	s.OnConflict = func(room string) { pool.Remove(room) }
	return s
}

// OpenStore is NewStore followed by loading the owner's persisted bookings.
func OpenStore(owner string, pool *RoomPool, repo Repository, now func() time.Time) (*Store, error) {
	s := NewStore(owner, pool, repo, now)
	loaded, err := repo.Load(owner)
	if err != nil {
		return nil, fmt.Errorf("load bookings for %s: %w", owner, err)
	}
	for _, b := range loaded {
		b.ID = uuid.NewString()
		s.bookings = append(s.bookings, b)
	}
	return s, nil
}

func (s *Store) Len() int { return len(s.bookings) }

// Bookings returns a copy of the list in storage order.
func (s *Store) Bookings() []Booking { return slices.Clone(s.bookings) }

// All yields (position, booking) pairs in storage order, positions 1-based.
// The sequence can be ranged over repeatedly.
func (s *Store) All() iter.Seq2[int, Booking] {
	return func(yield func(int, Booking) bool) {
		for i, b := range s.bookings {
			if !yield(i+1, b) {
				return
			}
		}
	}
}

// IDAt maps a 1-based position in the current listing to the booking ID.
func (s *Store) IDAt(position int) (string, error) {
	if position < 1 || position > len(s.bookings) {
		return "", fmt.Errorf("booking %d (have %d): %w", position, len(s.bookings), ErrOutOfRange)
	}
	return s.bookings[position-1].ID, nil
}

// Create validates and appends a booking for room. It returns the booking and
// its position. An error wrapping ErrPersist means the booking was added in
// memory but could not be saved.
func (s *Store) Create(room, startStr, endStr string) (Booking, int, error) {
	start, end, err := parseRange(startStr, endStr)
	if err != nil {
		return Booking{}, 0, err
	}
	if start.Before(s.now()) {
		return Booking{}, 0, ErrPastStartTime
	}
	if !start.Before(end) {
		return Booking{}, 0, ErrInvalidRange
	}

	candidate := Booking{ID: uuid.NewString(), Room: room, Start: start, End: end}
	if s.conflicting(candidate, "") {
		return Booking{}, 0, s.conflict(room)
	}

	s.bookings = append(s.bookings, candidate)
	return candidate, len(s.bookings), s.save()
}

// Update replaces the booking with the given ID in place. Unlike Create it
// accepts a start time in the past.
func (s *Store) Update(id, room, startStr, endStr string) (Booking, error) {
	i := s.index(id)
	if i < 0 {
		return Booking{}, fmt.Errorf("booking %s: %w", id, ErrOutOfRange)
	}
	start, end, err := parseRange(startStr, endStr)
	if err != nil {
		return Booking{}, err
	}
	if !start.Before(end) {
		return Booking{}, ErrInvalidRange
	}

	updated := Booking{ID: id, Room: room, Start: start, End: end}
	if s.conflicting(updated, id) {
		return Booking{}, s.conflict(room)
	}

	s.bookings[i] = updated
	return updated, s.save()
}

// Delete removes the booking with the given ID and puts its room back on offer.
func (s *Store) Delete(id string) (Booking, error) {
	i := s.index(id)
	if i < 0 {
		return Booking{}, fmt.Errorf("booking %s: %w", id, ErrOutOfRange)
	}
	deleted := s.bookings[i]
	s.bookings = slices.Delete(s.bookings, i, i+1)
	s.pool.Restore(deleted.Room)
	return deleted, s.save()
}

func (s *Store) index(id string) int {
	return slices.IndexFunc(s.bookings, func(b Booking) bool { return b.ID == id })
}

func (s *Store) conflicting(candidate Booking, excludeID string) bool {
	for _, existing := range s.bookings {
		if excludeID != "" && existing.ID == excludeID {
			continue
		}
		if Conflicts(candidate, existing) {
			return true
		}
	}
	return false
}

func (s *Store) conflict(room string) error {
	if s.OnConflict != nil {
		s.OnConflict(room)
	}
	return &ConflictError{Room: room, Available: s.pool.List()}
}

func (s *Store) save() error {
	if err := s.repo.Save(s.owner, s.bookings); err != nil {
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	return nil
}
