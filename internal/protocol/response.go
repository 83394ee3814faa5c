package protocol

import (
	"fmt"
	"strings"
)

// ACKSTATUS codes per command.
const (
	RegisterOK        = 0
	RegisterExists    = 1
	RegisterMalformed = 2

	LoginOK              = 0
	LoginNotFound        = 1
	LoginWrongPassword   = 2
	LoginMalformed       = 3
	LoginAlreadyLoggedIn = -1

	RoomListMalformed = 1

	CreateOK           = 0
	CreateInvalidName  = 1
	CreateExists       = 2
	CreateRegistryFull = 3
	CreateMalformed    = 4

	JoinOK        = 0
	JoinNoRoom    = 1
	JoinRoomFull  = 2
	JoinMalformed = 3
)

// Game join statuses.
const (
	GameWaiting    = 0
	GameStarting   = 1
	GameInProgress = 2
)

// Game end outcomes.
const (
	EndWin     = 0
	EndDraw    = 1
	EndForfeit = 2
)

const BadAuth = "BADAUTH"

func RegisterAck(code int) string {
	return fmt.Sprintf("REGISTER:ACKSTATUS:%d", code)
}

func LoginAck(code int) string {
	return fmt.Sprintf("LOGIN:ACKSTATUS:%d", code)
}

func RoomListAck(code int) string {
	return fmt.Sprintf("ROOMLIST:ACKSTATUS:%d", code)
}

func RoomListOK(names []string) string {
	return "ROOMLIST:ACKSTATUS:0:" + strings.Join(names, ",")
}

func CreateAck(code int) string {
	return fmt.Sprintf("CREATE:ACKSTATUS:%d", code)
}

func JoinAck(code int) string {
	return fmt.Sprintf("JOIN:ACKSTATUS:%d", code)
}

func GameStatus(code int) string {
	return fmt.Sprintf("GAME:%d", code)
}

func Begin(crosses, noughts string) string {
	return fmt.Sprintf("BEGIN:%s:%s", crosses, noughts)
}

func InProgress(onTurn, opponent string) string {
	return fmt.Sprintf("INPROGRESS:%s:%s", onTurn, opponent)
}

func BoardStatus(board string) string {
	return "BOARDSTATUS:" + board
}

func GameEndWin(board, winner string) string {
	return fmt.Sprintf("GAMEEND:%s:%d:%s", board, EndWin, winner)
}

func GameEndDraw(board string) string {
	return fmt.Sprintf("GAMEEND:%s:%d", board, EndDraw)
}

func GameEndForfeit(board, winner string) string {
	return fmt.Sprintf("GAMEEND:%s:%d:%s", board, EndForfeit, winner)
}
