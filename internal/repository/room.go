package repository

import (
	"sync"

	"github.com/playlobby/tictactoe-server/internal/apperror"
	"github.com/playlobby/tictactoe-server/internal/entity"
)

// MaxRooms is the registry capacity; creation past it is refused.
const MaxRooms = 256

// RoomRegistry is the in-memory room registry, ordered by insertion.
// The registry lock guards the room list; per-room state is guarded by
// each room's own lock.
type RoomRegistry struct {
	mu    sync.Mutex
	rooms []*entity.Room
}

func NewRoomRegistry() *RoomRegistry {
	return &RoomRegistry{}
}

// Create validates the name, then uniqueness, then capacity — in that
// order, so an invalid name is reported even when the registry is full.
func (that *RoomRegistry) Create(name string) (*entity.Room, error) {
	if !entity.IsValidName(name) {
		return nil, apperror.ErrInvalidRoomName
	}

	that.mu.Lock()
	defer that.mu.Unlock()

	if that.findLocked(name) != nil {
		return nil, apperror.ErrRoomExists
	}

	if len(that.rooms) >= MaxRooms {
		return nil, apperror.ErrRegistryFull
	}

	room := entity.NewRoom(name)
	that.rooms = append(that.rooms, room)

	return room, nil
}

// Get returns the room with the given name.
func (that *RoomRegistry) Get(name string) (*entity.Room, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	room := that.findLocked(name)
	if room == nil {
		return nil, apperror.ErrRoomNotFound
	}

	return room, nil
}

// ListNames returns room names in insertion order. With playersOnly set
// it skips rooms that already hold two players.
func (that *RoomRegistry) ListNames(playersOnly bool) []string {
	that.mu.Lock()
	rooms := make([]*entity.Room, len(that.rooms))
	copy(rooms, that.rooms)
	that.mu.Unlock()

	names := make([]string, 0, len(rooms))
	for _, room := range rooms {
		if playersOnly && room.IsFull() {
			continue
		}
		names = append(names, room.Name)
	}

	return names
}

// Count returns the number of rooms ever created.
func (that *RoomRegistry) Count() int {
	that.mu.Lock()
	defer that.mu.Unlock()

	return len(that.rooms)
}

func (that *RoomRegistry) findLocked(name string) *entity.Room {
	for _, room := range that.rooms {
		if room.Name == name {
			return room
		}
	}
	return nil
}
