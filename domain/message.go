// Package domain contains core concepts of the chat system.
// This file defines Message events and related rules.
// Messages are immutable and validated by the domain.
package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Message represents an immutable chat event.
type Message struct {
	ID      uuid.UUID // unique identifier
	Room    string
	Sender  string
	Content string
	At      time.Time
}

// Render formats the message the way members see it on the wire.
func (m Message) Render() string {
	if m.Sender == "" {
		return m.Content
	}
	return fmt.Sprintf("%s: %s", m.Sender, m.Content)
}
