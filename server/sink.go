package server

import (
	"io"
	"sync"
)

// ConnSink serializes all writes to one connection. The handler's synchronous
// acknowledgements and the room delivery task both write through it, so lines
// never interleave mid-way.
type ConnSink struct {
	mu sync.Mutex
	w  io.Writer
}

func NewConnSink(w io.Writer) *ConnSink {
	return &ConnSink{w: w}
}

func (s *ConnSink) WriteLine(line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.w.Write(append([]byte(line), '\n'))
	return err
}
