package repositories

import (
	"log/slog"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func Test_Record_Multiple_Messages(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)

	repository := NewMessageRepository(db, slog.Default(), nil)
	room := "lobby"
	at := time.Now().UTC()
	diskMessages := []DiskMessage{
		{uuid.New(), room, "Alice", "first", at},
		{uuid.New(), room, "Bob", "second", at.Add(1 * time.Minute)},
		{uuid.New(), room, "Clara", "third", at.Add(2 * time.Minute)},
	}
	for _, dm := range diskMessages {
		req.NoError(repository.StoreMessage(dm))
	}

	fetched, _, err := repository.GetMessages(room, nil)
	req.NoError(err)
	req.Len(fetched, len(diskMessages))
	// Reverse scan: newest first
	req.Equal(diskMessages[2], fetched[0])
	req.Equal(diskMessages[1], fetched[1])
	req.Equal(diskMessages[0], fetched[2])
}

func Test_Messages_Are_Scoped_To_Their_Room(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)

	repository := NewMessageRepository(db, slog.Default(), nil)
	at := time.Now().UTC()
	req.NoError(repository.StoreMessage(DiskMessage{uuid.New(), "lobby", "Alice", "hi", at}))
	req.NoError(repository.StoreMessage(DiskMessage{uuid.New(), "other", "Bob", "yo", at}))

	fetched, _, err := repository.GetMessages("lobby", nil)
	req.NoError(err)
	req.Len(fetched, 1)
	req.Equal("Alice", fetched[0].Author)
}

func Test_Limit_And_Cursor(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)

	limit := 2
	repository := NewMessageRepository(db, slog.Default(), &limit)
	room := "lobby"
	at := time.Now().UTC()
	contents := []string{"one", "two", "three"}
	for i, c := range contents {
		req.NoError(repository.StoreMessage(DiskMessage{
			ID: uuid.New(), Room: room, Author: "Alice", Content: c,
			At: at.Add(time.Duration(i) * time.Minute),
		}))
	}

	page1, cursor, err := repository.GetMessages(room, nil)
	req.NoError(err)
	req.Len(page1, limit)
	req.Equal("three", page1[0].Content)
	req.Equal("two", page1[1].Content)

	page2, _, err := repository.GetMessages(room, cursor)
	req.NoError(err)
	req.Len(page2, 1)
	req.Equal("one", page2[0].Content)
}
