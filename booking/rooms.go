package booking

import (
	"fmt"
	"slices"
)

// RoomPool holds the room identifiers currently offered for new bookings, in
// display order.
type RoomPool struct {
	rooms []string
}

// NewRoomPool seeds a pool with Room1..Room<count>.
func NewRoomPool(count int) *RoomPool {
	rooms := make([]string, 0, count)
	for i := 1; i <= count; i++ {
		rooms = append(rooms, fmt.Sprintf("Room%d", i))
	}
	return &RoomPool{rooms: rooms}
}

// List returns a copy of the available identifiers.
func (p *RoomPool) List() []string { return slices.Clone(p.rooms) }

func (p *RoomPool) Len() int { return len(p.rooms) }

func (p *RoomPool) Contains(room string) bool { return slices.Contains(p.rooms, room) }

// At resolves a 1-based index into the current listing.
func (p *RoomPool) At(index int) (string, error) {
	if index < 1 || index > len(p.rooms) {
		return "", fmt.Errorf("room %d (have %d): %w", index, len(p.rooms), ErrOutOfRange)
	}
	return p.rooms[index-1], nil
}

// Remove drops room from the pool and reports whether it was present.
func (p *RoomPool) Remove(room string) bool {
	i := slices.Index(p.rooms, room)
	if i < 0 {
		return false
	}
	p.rooms = slices.Delete(p.rooms, i, i+1)
	return true
}

// Restore appends room at the end of the pool. Identifiers are unique, so a room
// already on offer is left where it is.
func (p *RoomPool) Restore(room string) {
	if p.Contains(room) {
		return
	}
	p.rooms = append(p.rooms, room)
}
