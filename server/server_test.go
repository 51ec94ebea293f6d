package server

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func Test_Server_Serves_TCP_And_Stops_On_Cancel(t *testing.T) {
	req := require.New(t)
	handler := newTestHandler(t)
	srv := NewServer("127.0.0.1:0", handler, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	var addr string
	req.Eventually(func() bool {
		addr = srv.ListenAddr()
		return addr != ""
	}, 2*time.Second, 10*time.Millisecond)

	conn, err := net.Dial("tcp", addr)
	req.NoError(err)
	defer conn.Close()

	req.NoError(conn.SetReadDeadline(time.Now().Add(2 * time.Second)))
	scanner := bufio.NewScanner(conn)
	req.True(scanner.Scan())
	req.Equal("Welcome to ChatsApp!", scanner.Text())

	// Shutdown closes the listener and every live connection.
	cancel()
	select {
	case err := <-done:
		req.NoError(err)
	case <-time.After(2 * time.Second):
		req.Fail("server did not stop on cancellation")
	}

	req.NoError(conn.SetReadDeadline(time.Now().Add(2 * time.Second)))
	for scanner.Scan() {
		// Drain whatever was in flight before the close.
	}

	_, err = net.Dial("tcp", addr)
	req.Error(err)
}

// tcpClient reads lines off a live TCP connection, skipping asynchronous
// notices until the expected line arrives.
type tcpClient struct {
	conn    net.Conn
	scanner *bufio.Scanner
}

func dial(t *testing.T, addr string) *tcpClient {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return &tcpClient{conn: conn, scanner: bufio.NewScanner(conn)}
}

func (c *tcpClient) send(t *testing.T, line string) {
	t.Helper()
	_, err := fmt.Fprintf(c.conn, "%s\n", line)
	require.NoError(t, err)
}

func (c *tcpClient) expect(t *testing.T, want string) {
	t.Helper()
	require.NoError(t, c.conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for c.scanner.Scan() {
		if c.scanner.Text() == want {
			return
		}
	}
	t.Fatalf("connection ended while waiting for %q: %v", want, c.scanner.Err())
}

func Test_Server_Two_Clients_Chat_Over_TCP(t *testing.T) {
	req := require.New(t)
	handler := newTestHandler(t)
	srv := NewServer("127.0.0.1:0", handler, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() { _ = srv.Run(ctx) }()

	var addr string
	req.Eventually(func() bool {
		addr = srv.ListenAddr()
		return addr != ""
	}, 2*time.Second, 10*time.Millisecond)

	alice := dial(t, addr)
	alice.expect(t, "Welcome to ChatsApp!")
	alice.send(t, ">set-username alice")
	alice.expect(t, "Username set to alice")
	alice.send(t, ">create-room lobby")
	alice.expect(t, "Room created: lobby")
	alice.send(t, ">join-room lobby")
	alice.expect(t, "Joined lobby")

	bob := dial(t, addr)
	bob.expect(t, "Welcome to ChatsApp!")
	bob.send(t, ">set-username bob")
	bob.expect(t, "Username set to bob")
	bob.send(t, ">join-room lobby")
	bob.expect(t, "Joined lobby")

	alice.expect(t, "bob has joined the room")

	alice.send(t, "hello")
	alice.expect(t, "alice: hello")
	bob.expect(t, "alice: hello")

	bob.send(t, ">exit")
	alice.expect(t, "bob has left the room")

	alice.send(t, ">list")
	alice.expect(t, "lobby")
}
