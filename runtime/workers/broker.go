package workers

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"chatsapp/domain"
	"chatsapp/domain/event"
	"chatsapp/moderation"
	"chatsapp/observability"
	"chatsapp/repositories"
)

// MessageIndex is the slice of the search index the broker needs.
type MessageIndex interface {
	Add(msg domain.Message) error
}

// Broker is the single writer of one room's membership and the single
// distributor of messages sent to that room. It processes events from its
// channel strictly in arrival order; no other goroutine ever touches the
// membership map.
type Broker struct {
	room       string
	events     chan event.BrokerEvent
	members    map[string]chan domain.Message
	bufferSize int

	moderator *moderation.Moderator
	messages  repositories.IMessageRepository
	index     MessageIndex
	monitor   *observability.Monitor
	log       *slog.Logger

	deliveries deliveryGroup
}

func NewBroker(room string, eventBufferSize, deliveryBufferSize int,
	moderator *moderation.Moderator, messages repositories.IMessageRepository,
	index MessageIndex, monitor *observability.Monitor, log *slog.Logger) *Broker {
	return &Broker{
		room:       room,
		events:     make(chan event.BrokerEvent, eventBufferSize),
		members:    make(map[string]chan domain.Message),
		bufferSize: deliveryBufferSize,
		moderator:  moderator,
		messages:   messages,
		index:      index,
		monitor:    monitor,
		log:        log.With("room", room),
	}
}

// Events is the handle other components use to reach this broker. It never
// changes for the lifetime of the room.
func (b *Broker) Events() chan<- event.BrokerEvent {
	return b.events
}

func (b *Broker) Run(ctx context.Context) error {
	defer b.shutdown()
	for {
		select {
		case <-ctx.Done():
			return nil
		case evt, ok := <-b.events:
			if !ok {
				return nil
			}
			switch e := evt.(type) {
			case event.Join:
				b.handleJoin(ctx, e)
			case event.Leave:
				b.handleLeave(e.User, true)
			case event.Post:
				b.handlePost(e)
			}
		}
	}
}

// handleJoin admits a member. A re-join with a name already present replaces
// the stale entry: the old channel is closed first, which is what terminates
// its delivery task, then a fresh channel and task are wired up.
func (b *Broker) handleJoin(ctx context.Context, e event.Join) {
	if old, ok := b.members[e.User]; ok {
		close(old)
		delete(b.members, e.User)
	}

	inbox := make(chan domain.Message, b.bufferSize)
	b.members[e.User] = inbox
	b.startDelivery(ctx, e.User, inbox, e.Sink)

	if e.Reply != nil {
		e.Reply <- nil
	}

	b.notice(fmt.Sprintf("%s has joined the room", e.User))
}

// handleLeave removes a member. Idempotent: leaving a member not present is a
// no-op. Closing the stored channel is the sole mechanism that terminates the
// paired delivery task.
func (b *Broker) handleLeave(user string, announce bool) {
	inbox, ok := b.members[user]
	if !ok {
		return
	}
	close(inbox)
	delete(b.members, user)

	if announce {
		b.notice(fmt.Sprintf("%s has left the room", user))
	}
}

// handlePost censors, fans out to a point-in-time snapshot of the membership
// (sender included), then appends to durable history and the search index.
// Persistence failures are logged, never surfaced to members.
func (b *Broker) handlePost(e event.Post) {
	content := e.Content
	if b.moderator != nil {
		var found []string
		content, found = b.moderator.Censor(e.Content)
		if len(found) > 0 {
			b.monitor.CensorHits(uint64(len(found)))
			b.log.Info("Censored message",
				"author", e.Sender,
				"words", len(found),
				"lang", moderation.DetectLang(e.Content))
		}
	}

	msg := domain.Message{
		ID:      uuid.New(),
		Room:    b.room,
		Sender:  e.Sender,
		Content: content,
		At:      e.At,
	}
	b.monitor.MessagePosted()
	b.fanout(msg)
	b.persist(msg)
}

// notice broadcasts and persists a system line (join/leave announcements).
func (b *Broker) notice(text string) {
	msg := domain.Message{
		ID:      uuid.New(),
		Room:    b.room,
		Content: text,
		At:      time.Now().UTC(),
	}
	b.fanout(msg)
	b.persist(msg)
}

func (b *Broker) fanout(msg domain.Message) {
	for user, inbox := range b.members {
		select {
		case inbox <- msg:
			b.monitor.MessagesDelivered(1)
		default:
			// Slow consumer: best-effort delivery, drop and count.
			b.monitor.MessageDropped()
			b.log.Warn("Delivery buffer full, message dropped", "member", user)
		}
	}
}

func (b *Broker) persist(msg domain.Message) {
	err := b.messages.StoreMessage(repositories.DiskMessage{
		ID:      msg.ID,
		Room:    msg.Room,
		Author:  msg.Sender,
		Content: msg.Content,
		At:      msg.At,
	})
	if err != nil {
		b.log.Error("Storing message failed", "error", err)
	}
	if b.index != nil {
		if err := b.index.Add(msg); err != nil {
			b.log.Error("Indexing message failed", "error", err)
		}
	}
}

// shutdown closes every member channel so all delivery tasks wind down, then
// waits for them.
func (b *Broker) shutdown() {
	for user, inbox := range b.members {
		close(inbox)
		delete(b.members, user)
	}
	b.deliveries.wait()
	b.log.Debug("Broker stopped")
}
