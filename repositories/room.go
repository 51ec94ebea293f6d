//go:generate go run go.uber.org/mock/mockgen -source=room.go -destination=../mocks/mock_room_repository.go -package=mocks
package repositories

import (
	"errors"
	"sort"

	"github.com/dgraph-io/badger/v4"

	cerrors "chatsapp/errors"
)

const roomKeyPrefix = "room:"

type IRoomRepository interface {
	CreateRoom(name string) error
	ListRooms() ([]string, error)
}

// RoomRepository persists the room directory. A room is a bare key
// "room:{name}" with no value; existence of the key is existence of the room.
type RoomRepository struct {
	db *badger.DB
}

func NewRoomRepository(db *badger.DB) RoomRepository {
	return RoomRepository{db: db}
}

// CreateRoom registers a room name, failing if it is already taken.
// The existence check and the insert run in the same transaction so two
// concurrent creates cannot both succeed.
func (r RoomRepository) CreateRoom(name string) error {
	key := []byte(roomKeyPrefix + name)
	return r.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		if err == nil {
			return cerrors.ErrRoomExists
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set(key, nil)
	})
}

// ListRooms scans room keys only, values are never fetched.
func (r RoomRepository) ListRooms() ([]string, error) {
	var rooms []string
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false // room names live in the keys
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(roomKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			rooms = append(rooms, string(it.Item().Key()[len(prefix):]))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(rooms)
	return rooms, nil
}
