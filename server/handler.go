package server

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"chatsapp/domain"
	"chatsapp/domain/event"
	cerrors "chatsapp/errors"
	"chatsapp/observability"
	"chatsapp/repositories"
	"chatsapp/runtime"
	"chatsapp/search"
)

const searchLimit = 10

const greetingText = `Welcome to ChatsApp!
Enter ">help" for a list of commands and their usage.
`

const helpText = `Commands:
>help               - Display commands
>exit               - Close connection
>list               - List rooms
>me                 - Your user info
>leave              - Leave current room
>history            - Recent messages of the room
>search terms       - Search room history
>set-username name  - Set username
>create-room room   - Create room
>join-room room     - Join room`

// Handler runs the per-connection protocol loop: one command per line,
// synchronous acknowledgements on the same stream, asynchronous room traffic
// delivered through the shared sink by the room's delivery task.
type Handler struct {
	registry *runtime.Registry
	messages repositories.IMessageRepository
	index    *search.Index
	monitor  *observability.Monitor
	log      *slog.Logger
}

func NewHandler(registry *runtime.Registry, messages repositories.IMessageRepository,
	index *search.Index, monitor *observability.Monitor, log *slog.Logger) *Handler {
	return &Handler{registry: registry, messages: messages, index: index, monitor: monitor, log: log}
}

// Handle owns one connection from accept to close. Protocol errors keep the
// connection open; transport errors and >exit end it. Cleanup always leaves
// the current room and releases the claimed username.
func (h *Handler) Handle(ctx context.Context, conn net.Conn) {
	defer func() { _ = conn.Close() }()

	h.monitor.ConnOpened()
	defer h.monitor.ConnClosed()

	sink := NewConnSink(conn)
	session := &domain.Session{
		Addr:     conn.RemoteAddr().String(),
		Username: "guest-" + uuid.NewString()[:8],
	}
	if err := h.registry.ClaimUsername("", session.Username); err != nil {
		// Guest names carry a random suffix; a collision here means the rng
		// is broken, not the user.
		h.log.Error("Claiming guest name failed", "error", err)
		return
	}
	defer func() {
		h.leaveRoom(ctx, session)
		h.registry.ReleaseUsername(session.Username)
	}()

	log := h.log.With("addr", session.Addr)
	log.Debug("Connection opened")

	if err := sink.WriteLine(greetingText); err != nil {
		return
	}

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}

		var err error
		switch cmd := domain.ParseCommand(line).(type) {
		case domain.Help:
			err = sink.WriteLine(helpText)
		case domain.Exit:
			return
		case domain.List:
			err = h.listRooms(sink)
		case domain.Me:
			err = sink.WriteLine(fmt.Sprintf("Username: %s, IP: %s, Room: %s",
				session.Username, session.Addr, lo.Ternary(session.InRoom(), session.CurrentRoom, "-")))
		case domain.SetUsername:
			err = h.setUsername(session, sink, cmd.Name)
		case domain.CreateRoom:
			err = h.createRoom(ctx, sink, cmd.Room)
		case domain.JoinRoom:
			err = h.joinRoom(ctx, session, sink, cmd.Room)
		case domain.Leave:
			err = h.handleLeave(ctx, session, sink)
		case domain.History:
			err = h.history(session, sink)
		case domain.Search:
			err = h.search(ctx, session, sink, cmd.Terms)
		case domain.Send:
			err = h.send(ctx, session, sink, cmd.Text)
		case domain.Invalid:
			err = sink.WriteLine(`Invalid command. Enter ">help" for a list of commands and their usage.`)
		}
		if err != nil {
			log.Debug("Connection write failed", "error", err)
			return
		}
	}

	if err := scanner.Err(); err != nil {
		log.Debug("Connection read failed", "error", err)
	}
}

func (h *Handler) listRooms(sink *ConnSink) error {
	rooms := h.registry.List()
	if len(rooms) == 0 {
		return sink.WriteLine("No rooms yet. Create one with >create-room")
	}
	return sink.WriteLine(strings.Join(rooms, "\n"))
}

func (h *Handler) setUsername(session *domain.Session, sink *ConnSink, name string) error {
	if session.InRoom() {
		return sink.WriteLine("Error: leave the room before renaming")
	}
	if err := domain.ValidateName(name); err != nil {
		return errorLine(sink, err)
	}
	if err := h.registry.ClaimUsername(session.Username, name); err != nil {
		return errorLine(sink, err)
	}
	session.Username = name
	return sink.WriteLine(fmt.Sprintf("Username set to %s", name))
}

func (h *Handler) createRoom(ctx context.Context, sink *ConnSink, room string) error {
	if err := domain.ValidateName(room); err != nil {
		return errorLine(sink, err)
	}
	if _, err := h.registry.Create(ctx, room); err != nil {
		return errorLine(sink, err)
	}
	return sink.WriteLine(fmt.Sprintf("Room created: %s", room))
}

// joinRoom resolves the target first so that joining a nonexistent room
// leaves the current membership untouched. Only one active room per
// connection: a successful lookup triggers a Leave for the previous room
// before the Join is sent.
func (h *Handler) joinRoom(ctx context.Context, session *domain.Session, sink *ConnSink, room string) error {
	handle, ok := h.registry.Lookup(room)
	if !ok {
		return errorLine(sink, cerrors.ErrRoomNotFound)
	}

	h.leaveRoom(ctx, session)

	reply := make(chan error, 1)
	if err := sendEvent(ctx, handle, event.Join{User: session.Username, Sink: sink, Reply: reply}); err != nil {
		return errorLine(sink, cerrors.ErrChannelClosed)
	}
	select {
	case err := <-reply:
		if err != nil {
			return errorLine(sink, err)
		}
	case <-ctx.Done():
		return ctx.Err()
	}

	session.CurrentRoom = room
	return sink.WriteLine(fmt.Sprintf("Joined %s", room))
}

func (h *Handler) handleLeave(ctx context.Context, session *domain.Session, sink *ConnSink) error {
	if !session.InRoom() {
		return sink.WriteLine("You're not currently in a room.")
	}
	room := session.CurrentRoom
	h.leaveRoom(ctx, session)
	return sink.WriteLine(fmt.Sprintf("Left %s", room))
}

// leaveRoom sends the Leave event for the current room, if any. Used by
// >leave, by >join-room switching rooms, and by connection teardown.
func (h *Handler) leaveRoom(ctx context.Context, session *domain.Session) {
	if !session.InRoom() {
		return
	}
	if handle, ok := h.registry.Lookup(session.CurrentRoom); ok {
		if err := sendEvent(ctx, handle, event.Leave{User: session.Username}); err != nil {
			h.log.Debug("Leave event not delivered", "room", session.CurrentRoom, "error", err)
		}
	}
	session.CurrentRoom = ""
}

func (h *Handler) send(ctx context.Context, session *domain.Session, sink *ConnSink, text string) error {
	if !session.InRoom() {
		return sink.WriteLine("You're not currently in a room.")
	}
	handle, ok := h.registry.Lookup(session.CurrentRoom)
	if !ok {
		return errorLine(sink, cerrors.ErrRoomNotFound)
	}
	evt := event.Post{Sender: session.Username, Content: text, At: time.Now().UTC()}
	if err := sendEvent(ctx, handle, evt); err != nil {
		return errorLine(sink, cerrors.ErrChannelClosed)
	}
	return nil
}

func (h *Handler) history(session *domain.Session, sink *ConnSink) error {
	if !session.InRoom() {
		return sink.WriteLine("You're not currently in a room.")
	}
	messages, _, err := h.messages.GetMessages(session.CurrentRoom, nil)
	if err != nil {
		return errorLine(sink, err)
	}
	if len(messages) == 0 {
		return sink.WriteLine("No history yet.")
	}
	// The store hands back newest first; replay oldest first.
	for _, m := range lo.Reverse(messages) {
		line := m.Content
		if m.Author != "" {
			line = fmt.Sprintf("%s: %s", m.Author, m.Content)
		}
		if err := sink.WriteLine(line); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) search(ctx context.Context, session *domain.Session, sink *ConnSink, terms string) error {
	if !session.InRoom() {
		return sink.WriteLine("You're not currently in a room.")
	}
	hits, err := h.index.Search(ctx, session.CurrentRoom, terms, searchLimit)
	if err != nil {
		return errorLine(sink, err)
	}
	if len(hits) == 0 {
		return sink.WriteLine("No match.")
	}
	for _, hit := range hits {
		if err := sink.WriteLine(fmt.Sprintf("%s: %s", hit.Author, hit.Content)); err != nil {
			return err
		}
	}
	return nil
}

func errorLine(sink *ConnSink, err error) error {
	return sink.WriteLine(fmt.Sprintf("Error: %s", err))
}

func sendEvent(ctx context.Context, handle runtime.RoomHandle, evt event.BrokerEvent) error {
	select {
	case handle.Events <- evt:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
