package repositories

import (
	"testing"

	"github.com/stretchr/testify/require"

	cerrors "chatsapp/errors"
)

func Test_Create_And_List_Rooms(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)

	repository := NewRoomRepository(db)
	req.NoError(repository.CreateRoom("lobby"))
	req.NoError(repository.CreateRoom("attic"))

	rooms, err := repository.ListRooms()
	req.NoError(err)
	req.Equal([]string{"attic", "lobby"}, rooms)
}

func Test_Create_Duplicate_Room_Fails(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)

	repository := NewRoomRepository(db)
	req.NoError(repository.CreateRoom("lobby"))
	req.ErrorIs(repository.CreateRoom("lobby"), cerrors.ErrRoomExists)
}

func Test_Room_Names_Are_Case_Sensitive(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)

	repository := NewRoomRepository(db)
	req.NoError(repository.CreateRoom("Lobby"))
	req.NoError(repository.CreateRoom("lobby"))

	rooms, err := repository.ListRooms()
	req.NoError(err)
	req.Len(rooms, 2)
}
