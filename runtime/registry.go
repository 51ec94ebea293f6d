// Package runtime wires rooms, brokers, and the shared directories together.
// It contains no protocol or storage logic.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/samber/lo"

	"chatsapp/contract"
	"chatsapp/domain/event"
	cerrors "chatsapp/errors"
	"chatsapp/observability"
	"chatsapp/repositories"
	"chatsapp/runtime/workers"
)

// RoomHandle is the stable address of a room: its name and the send side of
// its broker's event channel. Handles never change once the room exists.
type RoomHandle struct {
	Name   string
	Events chan<- event.BrokerEvent
}

// BrokerFactory builds the broker for a new room; injected so the registry
// stays free of storage and moderation dependencies.
type BrokerFactory func(room string) *workers.Broker

// Registry is the process-wide directory mapping room names to broker handles,
// plus the directory of display names currently claimed by live sessions.
// It is the only cross-cutting shared structure; a single RWMutex serializes
// creates against lookups so no caller can observe a torn entry.
type Registry struct {
	mu        sync.RWMutex
	rooms     map[string]RoomHandle
	usernames map[string]struct{}

	repository repositories.IRoomRepository
	supervisor contract.ISupervisor
	newBroker  BrokerFactory
	monitor    *observability.Monitor
	log        *slog.Logger
}

func NewRegistry(repository repositories.IRoomRepository, supervisor contract.ISupervisor,
	newBroker BrokerFactory, monitor *observability.Monitor, log *slog.Logger) *Registry {
	return &Registry{
		rooms:      make(map[string]RoomHandle),
		usernames:  make(map[string]struct{}),
		repository: repository,
		supervisor: supervisor,
		newBroker:  newBroker,
		monitor:    monitor,
		log:        log,
	}
}

// Rehydrate loads the persisted room list and starts one broker per room.
// Called once at startup, before the listener accepts connections.
// A failure here is fatal: serving without the durable room list would let
// clients recreate rooms that already have history.
func (r *Registry) Rehydrate(ctx context.Context) error {
	names, err := r.repository.ListRooms()
	if err != nil {
		return fmt.Errorf("%w: %v", cerrors.ErrRehydrateFailed, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, name := range names {
		r.startLocked(ctx, name)
	}
	r.log.Info(fmt.Sprintf("Rehydrated %d room(s)", len(names)))
	return nil
}

// Lookup is read-only and safe for concurrent callers.
func (r *Registry) Lookup(name string) (RoomHandle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	handle, ok := r.rooms[name]
	return handle, ok
}

// Create persists the room's existence, then starts its broker and registers
// the handle. Fails with ErrRoomExists on a name collision; the check and the
// insert happen under the same lock so two concurrent creates cannot both
// spawn a broker.
func (r *Registry) Create(ctx context.Context, name string) (RoomHandle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rooms[name]; ok {
		return RoomHandle{}, cerrors.ErrRoomExists
	}
	if err := r.repository.CreateRoom(name); err != nil {
		return RoomHandle{}, err
	}

	handle := r.startLocked(ctx, name)
	r.monitor.RoomCreated()
	r.log.Info("Room created", "room", name)
	return handle, nil
}

// List returns a sorted snapshot of known room names.
func (r *Registry) List() []string {
	r.mu.RLock()
	names := lo.Keys(r.rooms)
	r.mu.RUnlock()

	sort.Strings(names)
	return names
}

// ClaimUsername reserves a display name for a live session, releasing the
// previous one. Display names are unique across connected sessions.
func (r *Registry) ClaimUsername(previous, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.usernames[name]; taken {
		return cerrors.ErrUsernameInUse
	}
	delete(r.usernames, previous)
	r.usernames[name] = struct{}{}
	return nil
}

// ReleaseUsername frees a display name when its session ends.
func (r *Registry) ReleaseUsername(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.usernames, name)
}

func (r *Registry) startLocked(ctx context.Context, name string) RoomHandle {
	broker := r.newBroker(name)
	r.supervisor.Start(ctx, broker)
	handle := RoomHandle{Name: name, Events: broker.Events()}
	r.rooms[name] = handle
	return handle
}
