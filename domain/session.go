package domain

// Session is the per-connection mutable state. It is only ever touched by the
// connection's own handler goroutine, so it needs no locking.
type Session struct {
	Addr        string
	Username    string
	CurrentRoom string
}

func (s *Session) InRoom() bool {
	return s.CurrentRoom != ""
}
