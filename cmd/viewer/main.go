package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"

	"chatsapp/repositories"
)

// Config keeps the viewer independent from the server's full configuration.
type Config struct {
	BadgerFilepath string `env:"BADGER_FILEPATH,required=true"`
}

// The viewer inspects the durable store offline: room directory by default,
// one room's history with -room.
func main() {
	room := flag.String("room", "", "dump this room's history instead of the room list")
	limit := flag.Int("limit", 50, "maximum number of messages to show")
	flag.Parse()

	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		log.Fatalf("Config error: %v", err)
	}

	// BypassLockGuard allows opening while the server holds the lock.
	opts := badger.DefaultOptions(config.BadgerFilepath).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(opts)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	if *room == "" {
		listRooms(db)
		return
	}
	dumpRoom(db, *room, *limit)
}

func listRooms(db *badger.DB) {
	rooms, err := repositories.NewRoomRepository(db).ListRooms()
	if err != nil {
		log.Fatalf("Failed to list rooms: %v", err)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Room"})
	for _, name := range rooms {
		table.Append([]string{name})
	}
	table.Render()
	fmt.Printf("%d room(s)\n", len(rooms))
}

func dumpRoom(db *badger.DB, room string, limit int) {
	repository := repositories.NewMessageRepository(db, slog.Default(), &limit)
	messages, _, err := repository.GetMessages(room, nil)
	if err != nil {
		log.Fatalf("Failed to fetch messages: %v", err)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"At", "Author", "Content"})
	// Store order is newest first; show the log the way members saw it.
	for _, m := range lo.Reverse(messages) {
		table.Append([]string{m.At.Format("2006-01-02 15:04:05"), m.Author, m.Content})
	}
	table.Render()
	fmt.Printf("%d message(s) in %s\n", len(messages), room)
}
