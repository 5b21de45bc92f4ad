package chat

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultRooms is the room set used when none is configured.
var DefaultRooms = []string{
	"Open Mic",
	"Code & Coffee",
	"XP Zone",
	"Study Squad",
	"Lo-Fi Corner",
	"Meme Stream",
	"Wellness Wave",
}

// Registry maps room names to rooms. It is filled once at construction and
// never changes afterwards, so lookups need no lock.
type Registry struct {
	names []string
	rooms map[string]*Room
}

// NewRegistry creates one room per distinct, non-blank name.
func NewRegistry(names []string) (*Registry, error) {
	reg := &Registry{rooms: make(map[string]*Room, len(names))}
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, dup := reg.rooms[name]; dup {
			continue
		}
		reg.rooms[name] = NewRoom(name)
		reg.names = append(reg.names, name)
	}
	if len(reg.names) == 0 {
		return nil, errors.New("registry: no rooms configured")
	}
	return reg, nil
}

// Room looks up a room by name.
func (r *Registry) Room(name string) (*Room, error) {
	room, ok := r.rooms[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRoom, name)
	}
	return room, nil
}

// Names returns the configured room names in configuration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.names...)
}

// Rooms returns every room in configuration order.
func (r *Registry) Rooms() []*Room {
	rooms := make([]*Room, len(r.names))
	for i, name := range r.names {
		rooms[i] = r.rooms[name]
	}
	return rooms
}
