// Package event defines the events consumed by a room broker. They are
// transient: they exist only in flight on a room's event channel.
package event

import (
	"time"

	"chatsapp/contract"
)

type BrokerEvent interface {
	isBrokerEvent()
}

// Join asks the broker to admit User. The broker answers on Reply once the
// membership entry and its delivery task exist: any Post processed after a
// nil reply reaches this member.
type Join struct {
	User  string
	Sink  contract.LineSink
	Reply chan error
}

// Leave removes User from the room. Idempotent.
type Leave struct {
	User string
}

// Post fans a message out to every current member, sender included.
type Post struct {
	Sender  string
	Content string
	At      time.Time
}

func (Join) isBrokerEvent()  {}
func (Leave) isBrokerEvent() {}
func (Post) isBrokerEvent()  {}
