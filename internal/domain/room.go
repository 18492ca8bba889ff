package domain

type (
	RoomName string
	RoomID   string
)

type Room struct {
	ID   RoomID
	Name RoomName
}

const MaxRoomNameLen = 36

// NormalizeRoomName trims over-long names instead of rejecting them.
func NormalizeRoomName(raw string) RoomName {
	if len(raw) > MaxRoomNameLen {
		raw = raw[:MaxRoomNameLen]
	}
	return RoomName(raw)
}
