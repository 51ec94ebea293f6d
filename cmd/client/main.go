package main

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes for the client application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

// Config defines the client-side environment variables.
type Config struct {
	ServerAddress string `env:"CHAT_SERVER_ADDR,default=localhost:8000"`
	LogLevel      string `env:"LOG_LEVEL,default=INFO"`
}

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

// run connects to the chat server and bridges stdin/stdout to the socket.
// Room messages arrive colored; everything typed is sent verbatim.
func run() (int, error) {
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	log := logs.GetLoggerFromString(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := net.Dial("tcp", config.ServerAddress)
	if err != nil {
		return exitRuntime, fmt.Errorf("could not connect to server at %s: %w", config.ServerAddress, err)
	}
	defer func() {
		log.Info("Closing connection...")
		_ = conn.Close()
	}()

	// Unblock the read loop when Ctrl+C fires.
	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	// Reception loop: server lines to stdout.
	done := make(chan struct{})
	go func() {
		defer close(done)
		scanner := bufio.NewScanner(conn)
		for scanner.Scan() {
			fmt.Println(render(scanner.Text()))
		}
	}()

	// Input loop: stdin lines to the server.
	go func() {
		stdin := bufio.NewScanner(os.Stdin)
		for stdin.Scan() {
			if _, err := fmt.Fprintf(conn, "%s\n", stdin.Text()); err != nil {
				return
			}
		}
	}()

	select {
	case <-ctx.Done():
	case <-done:
		log.Info("Server closed the connection")
	}
	return exitOK, nil
}

// render colors a server line: errors red, chat messages with a cyan sender,
// everything else (acknowledgements, notices) untouched.
func render(line string) string {
	if strings.HasPrefix(line, "Error: ") {
		return color.Red.Sprint(line)
	}
	if sender, body, found := strings.Cut(line, ": "); found && !strings.Contains(sender, " ") {
		return fmt.Sprintf("%s: %s", color.Cyan.Sprint(sender), body)
	}
	return line
}
