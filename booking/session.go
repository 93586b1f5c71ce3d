package booking

import (
	"context"
	"errors"
	"iter"
	"log/slog"

	"meeting-rooms/internal/lib/sl"
)

// Session is the booking workspace of one authenticated user. It owns the
// user's store and room pool and is discarded on logout.
type Session struct {
	user     User
	store    *Store
	rooms    *RoomPool
	notifier Notifier
	log      *slog.Logger
}

// Result describes a completed mutation. SaveErr and NotifyErr report side
// effects that failed after the in-memory change was applied.
type Result struct {
	Booking   Booking
	Position  int
	SaveErr   error
	NotifyErr error
}

func NewSession(user User, store *Store, rooms *RoomPool, notifier Notifier, log *slog.Logger) *Session {
	return &Session{
		user:     user,
		store:    store,
		rooms:    rooms,
		notifier: notifier,
		log:      log.With(slog.String("user", user.Username)),
	}
}

func (s *Session) User() User { return s.user }

// Rooms lists the rooms currently offered, in display order.
func (s *Session) Rooms() []string { return s.rooms.List() }

// Bookings yields the user's bookings with their 1-based positions.
func (s *Session) Bookings() iter.Seq2[int, Booking] { return s.store.All() }

// HasRoom reports whether room is currently on offer.
func (s *Session) HasRoom(room string) bool { return s.rooms.Contains(room) }

func (s *Session) Count() int { return s.store.Len() }

// Create books the room at roomIndex (1-based, current pool order).
func (s *Session) Create(ctx context.Context, roomIndex int, startStr, endStr string) (Result, error) {
	room, err := s.rooms.At(roomIndex)
	if err != nil {
		return Result{}, err
	}

	b, pos, err := s.store.Create(room, startStr, endStr)
	if err != nil && !errors.Is(err, ErrPersist) {
		s.log.Debug("booking rejected", slog.String("room", room), sl.Err(err))
		return Result{}, err
	}

	res := Result{Booking: b, Position: pos, SaveErr: err}
	if err != nil {
		s.log.Error("booking created but not saved", slog.String("room", room), sl.Err(err))
	}
	s.log.Info("booking created", slog.String("id", b.ID), slog.String("room", room), slog.Int("position", pos))

	res.NotifyErr = s.notify(ctx, subjectConfirmation, confirmationBody(s.user.Username, b))
	return res, nil
}

// Update replaces the booking at position with the room at roomIndex.
func (s *Session) Update(ctx context.Context, position, roomIndex int, startStr, endStr string) (Result, error) {
	id, err := s.store.IDAt(position)
	if err != nil {
		return Result{}, err
	}
	room, err := s.rooms.At(roomIndex)
	if err != nil {
		return Result{}, err
	}

	b, err := s.store.Update(id, room, startStr, endStr)
	if err != nil && !errors.Is(err, ErrPersist) {
		s.log.Debug("update rejected", slog.Int("position", position), sl.Err(err))
		return Result{}, err
	}

	res := Result{Booking: b, Position: position, SaveErr: err}
	if err != nil {
		s.log.Error("booking updated but not saved", slog.String("id", id), sl.Err(err))
	}
	s.log.Info("booking updated", slog.String("id", id), slog.String("room", room))

	res.NotifyErr = s.notify(ctx, subjectUpdate, updateBody(s.user.Username, b))
	return res, nil
}

// Delete removes the booking at position; its room goes back into the pool.
func (s *Session) Delete(position int) (Result, error) {
	id, err := s.store.IDAt(position)
	if err != nil {
		return Result{}, err
	}

	b, err := s.store.Delete(id)
	if err != nil && !errors.Is(err, ErrPersist) {
		return Result{}, err
	}
	if err != nil {
		s.log.Error("booking deleted but not saved", slog.String("id", id), sl.Err(err))
	}
	s.log.Info("booking deleted", slog.String("id", id), slog.String("room", b.Room))
	return Result{Booking: b, Position: position, SaveErr: err}, nil
}

func (s *Session) notify(ctx context.Context, subject, body string) error {
	if s.notifier == nil {
		return nil
	}
	if err := s.notifier.Notify(ctx, s.user, subject, body); err != nil {
		s.log.Warn("notification failed", slog.String("subject", subject), sl.Err(err))
		return err
	}
	return nil
}
