package portal

import (
	"fmt"
	"strings"
)

// Room identifies a physical unit; its row in the simple-management grid is fixed
// by roomRows, not by declaration order.
type Room string

const (
	RoomYeoyu   Room = "Yeoyu"
	RoomYeohang Room = "Yeohang"
)

var roomRows = map[Room]int{
	RoomYeoyu:   0,
	RoomYeohang: 1,
}

// Rooms lists every room in grid order.
func Rooms() []Room {
	return []Room{RoomYeoyu, RoomYeohang}
}

// ParseRoom matches name case-insensitively against the known rooms.
func ParseRoom(name string) (Room, error) {
	name = strings.TrimSpace(name)
	for r := range roomRows {
		if strings.EqualFold(string(r), name) {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown room %q", name)
}

// Index returns the room's zero-based grid row, or -1 for an unknown room.
func (r Room) Index() int {
	i, ok := roomRows[r]
	if !ok {
		return -1
	}
	return i
}

func (r Room) String() string { return string(r) }
