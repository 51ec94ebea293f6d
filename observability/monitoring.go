// Package observability aggregates runtime counters for the reporter worker.
package observability

import (
	"sync/atomic"
	"time"
)

// Stats is a point-in-time snapshot of the server's counters.
type Stats struct {
	ActiveConnections int64  `json:"active_connections"`
	RoomsCreated      uint64 `json:"rooms_created"`
	MessagesPosted    uint64 `json:"messages_posted"`
	MessagesDelivered uint64 `json:"messages_delivered"`
	MessagesDropped   uint64 `json:"messages_dropped"`
	CensorHits        uint64 `json:"censor_hits"`
}

// Monitor collects metrics from handlers and brokers. All methods are safe for
// concurrent use; counters are plain atomics so the hot path stays lock-free.
type Monitor struct {
	activeConnections int64
	roomsCreated      uint64
	messagesPosted    uint64
	messagesDelivered uint64
	messagesDropped   uint64
	censorHits        uint64
	startedAt         time.Time
}

func NewMonitor() *Monitor {
	return &Monitor{startedAt: time.Now()}
}

func (m *Monitor) ConnOpened()  { atomic.AddInt64(&m.activeConnections, 1) }
func (m *Monitor) ConnClosed()  { atomic.AddInt64(&m.activeConnections, -1) }
func (m *Monitor) RoomCreated() { atomic.AddUint64(&m.roomsCreated, 1) }

func (m *Monitor) MessagePosted() { atomic.AddUint64(&m.messagesPosted, 1) }

func (m *Monitor) MessagesDelivered(n uint64) { atomic.AddUint64(&m.messagesDelivered, n) }
func (m *Monitor) MessageDropped()            { atomic.AddUint64(&m.messagesDropped, 1) }

func (m *Monitor) CensorHits(n uint64) { atomic.AddUint64(&m.censorHits, n) }

func (m *Monitor) Uptime() time.Duration { return time.Since(m.startedAt) }

func (m *Monitor) Snapshot() Stats {
	return Stats{
		ActiveConnections: atomic.LoadInt64(&m.activeConnections),
		RoomsCreated:      atomic.LoadUint64(&m.roomsCreated),
		MessagesPosted:    atomic.LoadUint64(&m.messagesPosted),
		MessagesDelivered: atomic.LoadUint64(&m.messagesDelivered),
		MessagesDropped:   atomic.LoadUint64(&m.messagesDropped),
		CensorHits:        atomic.LoadUint64(&m.censorHits),
	}
}
