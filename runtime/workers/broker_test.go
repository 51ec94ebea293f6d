package workers

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"chatsapp/domain/event"
	"chatsapp/mocks"
	"chatsapp/moderation"
	"chatsapp/observability"
	"chatsapp/repositories"
)

// chanSink records delivered lines; tests block on the channel to observe
// asynchronous fan-out without sleeping.
type chanSink struct {
	lines chan string
}

func newChanSink() *chanSink {
	return &chanSink{lines: make(chan string, 100)}
}

func (s *chanSink) WriteLine(line string) error {
	s.lines <- line
	return nil
}

// expect reads lines until it sees want, failing on timeout. Join/leave
// notices may interleave with chat messages, so skipping is intentional.
func (s *chanSink) expect(t *testing.T, want string) {
	t.Helper()
	for {
		select {
		case line := <-s.lines:
			if line == want {
				return
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %q", want)
		}
	}
}

// expectSilence asserts that want never arrives within the grace period.
func (s *chanSink) expectSilence(t *testing.T, want string) {
	t.Helper()
	deadline := time.After(200 * time.Millisecond)
	for {
		select {
		case line := <-s.lines:
			require.NotEqual(t, want, line)
		case <-deadline:
			return
		}
	}
}

func startBroker(t *testing.T, moderator *moderation.Moderator) chan<- event.BrokerEvent {
	t.Helper()
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockIMessageRepository(ctrl)
	repo.EXPECT().StoreMessage(gomock.Any()).Return(nil).AnyTimes()

	broker := NewBroker("lobby", 16, 16, moderator, repo, nil, observability.NewMonitor(), slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = broker.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		wg.Wait()
	})
	return broker.Events()
}

func join(t *testing.T, events chan<- event.BrokerEvent, user string, sink *chanSink) {
	t.Helper()
	reply := make(chan error, 1)
	events <- event.Join{User: user, Sink: sink, Reply: reply}
	select {
	case err := <-reply:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatalf("join of %s not acknowledged", user)
	}
}

func Test_Broker_Fans_Out_To_All_Members_Including_Sender(t *testing.T) {
	events := startBroker(t, nil)

	alice, bob := newChanSink(), newChanSink()
	join(t, events, "alice", alice)
	join(t, events, "bob", bob)

	events <- event.Post{Sender: "alice", Content: "hello", At: time.Now().UTC()}

	alice.expect(t, "alice: hello")
	bob.expect(t, "alice: hello")
}

func Test_Broker_Preserves_Dispatch_Order_Per_Member(t *testing.T) {
	events := startBroker(t, nil)

	bob := newChanSink()
	join(t, events, "bob", bob)

	events <- event.Post{Sender: "alice", Content: "first", At: time.Now().UTC()}
	events <- event.Post{Sender: "alice", Content: "second", At: time.Now().UTC()}

	bob.expect(t, "alice: first")
	bob.expect(t, "alice: second")
}

func Test_Broker_Leave_Stops_Delivery(t *testing.T) {
	events := startBroker(t, nil)

	alice, bob := newChanSink(), newChanSink()
	join(t, events, "alice", alice)
	join(t, events, "bob", bob)

	events <- event.Leave{User: "bob"}
	events <- event.Post{Sender: "alice", Content: "after-leave", At: time.Now().UTC()}

	alice.expect(t, "alice: after-leave")
	bob.expectSilence(t, "alice: after-leave")
}

func Test_Broker_Leave_Is_Idempotent(t *testing.T) {
	events := startBroker(t, nil)

	alice := newChanSink()
	join(t, events, "alice", alice)

	events <- event.Leave{User: "ghost"}
	events <- event.Post{Sender: "alice", Content: "still-alive", At: time.Now().UTC()}

	alice.expect(t, "alice: still-alive")
}

func Test_Broker_Rejoin_Replaces_Stale_Entry(t *testing.T) {
	events := startBroker(t, nil)

	old, fresh := newChanSink(), newChanSink()
	join(t, events, "bob", old)
	join(t, events, "bob", fresh)

	events <- event.Post{Sender: "alice", Content: "ping", At: time.Now().UTC()}

	fresh.expect(t, "alice: ping")
	// No duplicate delivery to the replaced entry.
	old.expectSilence(t, "alice: ping")
}

func Test_Broker_Announces_Joins_And_Leaves(t *testing.T) {
	events := startBroker(t, nil)

	alice := newChanSink()
	join(t, events, "alice", alice)
	join(t, events, "bob", newChanSink())

	alice.expect(t, "bob has joined the room")

	events <- event.Leave{User: "bob"}
	alice.expect(t, "bob has left the room")
}

func Test_Broker_Censors_Before_Fanout(t *testing.T) {
	moderator, err := moderation.NewModerator([]string{"badger"}, '*', slog.Default())
	require.NoError(t, err)
	events := startBroker(t, &moderator)

	alice := newChanSink()
	join(t, events, "alice", alice)

	events <- event.Post{Sender: "alice", Content: "a wild badger appears", At: time.Now().UTC()}

	alice.expect(t, "alice: a wild ****** appears")
}

func Test_Broker_Persists_Posts(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockIMessageRepository(ctrl)

	stored := make(chan repositories.DiskMessage, 10)
	repo.EXPECT().StoreMessage(gomock.Any()).DoAndReturn(func(m repositories.DiskMessage) error {
		stored <- m
		return nil
	}).AnyTimes()

	broker := NewBroker("lobby", 16, 16, nil, repo, nil, observability.NewMonitor(), slog.Default())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = broker.Run(ctx) }()

	alice := newChanSink()
	join(t, broker.Events(), "alice", alice)

	// The join notice is persisted too, with an empty author.
	select {
	case m := <-stored:
		req.Empty(m.Author)
		req.Equal("alice has joined the room", m.Content)
	case <-time.After(2 * time.Second):
		req.Fail("join notice was not persisted")
	}

	broker.Events() <- event.Post{Sender: "alice", Content: "keep this", At: time.Now().UTC()}

	select {
	case m := <-stored:
		req.Equal("alice", m.Author)
		req.Equal("keep this", m.Content)
		req.Equal("lobby", m.Room)
	case <-time.After(2 * time.Second):
		req.Fail("post was not persisted")
	}
}

func Test_Broker_Stops_On_Context_Cancel(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockIMessageRepository(ctrl)
	repo.EXPECT().StoreMessage(gomock.Any()).Return(nil).AnyTimes()

	broker := NewBroker("lobby", 16, 16, nil, repo, nil, observability.NewMonitor(), slog.Default())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- broker.Run(ctx) }()

	join(t, broker.Events(), "alice", newChanSink())
	cancel()

	select {
	case err := <-done:
		req.NoError(err)
	case <-time.After(2 * time.Second):
		req.Fail("broker did not stop on cancellation")
	}
}
