package errors

import "fmt"

var (
	ErrRoomNotFound    = fmt.Errorf("room not found")
	ErrRoomExists      = fmt.Errorf("room name taken")
	ErrUsernameInUse   = fmt.Errorf("username already in use")
	ErrInvalidName     = fmt.Errorf("invalid name")
	ErrNotInRoom       = fmt.Errorf("not currently in a room")
	ErrChannelClosed   = fmt.Errorf("room channel closed")
	ErrRehydrateFailed = fmt.Errorf("failed to load persisted rooms")
	ErrWorkerPanic     = fmt.Errorf("worker panic")
	ErrEmptyWords      = fmt.Errorf("no words have been found")
)
