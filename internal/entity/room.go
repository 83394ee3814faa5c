package entity

import (
	"sync"

	"github.com/playlobby/tictactoe-server/internal/apperror"
	"github.com/playlobby/tictactoe-server/internal/tictactoe"
)

const (
	StatusWaiting  = "waiting"
	StatusOngoing  = "ongoing"
	StatusFinished = "finished"
)

const (
	MaxPlayers     = 2
	MaxRoomNameLen = 20
)

// MoveResult reports how an applied move ended.
type MoveResult int

const (
	MoveContinue MoveResult = iota
	MoveWin
	MoveDraw
)

// Snapshot is a consistent view of a room taken under its lock,
// used to brief participants who arrive mid-game.
type Snapshot struct {
	Status   string
	OnTurn   string
	Opponent string
	Board    string
}

// Room is a named match lobby. The first player to join plays crosses,
// the second plays noughts; viewers are unbounded. All state behind the
// lock, so every check-then-act on one room is atomic.
type Room struct {
	Name string

	mu        sync.Mutex
	players   []string
	viewers   []string
	status    string
	crossTurn bool
	board     tictactoe.Board
}

func NewRoom(name string) *Room {
	return &Room{
		Name:      name,
		status:    StatusWaiting,
		crossTurn: true,
		board:     tictactoe.NewBoard(),
	}
}

// IsValidName reports whether a room name is alphanumeric plus
// '-', '_' or space, and at most 20 characters.
func IsValidName(name string) bool {
	if name == "" || len(name) > MaxRoomNameLen {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '-' || r == '_' || r == ' ':
		default:
			return false
		}
	}
	return true
}

// AddPlayer appends an account to the player list and returns its slot
// (0 = crosses, 1 = noughts). A room that already holds two players
// never accepts a third, even after the match ended.
func (that *Room) AddPlayer(account string) (int, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if len(that.players) >= MaxPlayers {
		return 0, apperror.ErrRoomFull
	}

	that.players = append(that.players, account)

	return len(that.players) - 1, nil
}

// RemovePlayer frees a waiting player's slot, reporting whether the
// player was removed. It refuses once the room is full: from that
// point the slot belongs to the match and never frees up.
func (that *Room) RemovePlayer(account string) bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	if len(that.players) >= MaxPlayers {
		return false
	}

	for i, name := range that.players {
		if name == account {
			that.players = append(that.players[:i], that.players[i+1:]...)
			return true
		}
	}

	return false
}

// AddViewer appends an account to the viewer list regardless of
// fullness and calls brief with a consistent snapshot while the room is
// still locked. Broadcasts read the participant list under the same
// lock, so a board push either precedes the whole briefing or reaches
// the viewer after it.
func (that *Room) AddViewer(account string, brief func(Snapshot)) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.viewers = append(that.viewers, account)

	brief(that.snapshotLocked())
}

func (that *Room) snapshotLocked() Snapshot {
	snap := Snapshot{
		Status: that.status,
		Board:  that.board.Encode(),
	}

	if len(that.players) == MaxPlayers {
		onTurn, opponent := 0, 1
		if !that.crossTurn {
			onTurn, opponent = 1, 0
		}
		snap.OnTurn = that.players[onTurn]
		snap.Opponent = that.players[opponent]
	}

	return snap
}

func (that *Room) IsFull() bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	return len(that.players) >= MaxPlayers
}

// Begin marks the match as running; crosses is always first to move.
func (that *Room) Begin() {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.status = StatusOngoing
	that.crossTurn = true
}

// Finish marks the match as over. Finished rooms are single-use and
// never return to waiting.
func (that *Room) Finish() {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.status = StatusFinished
}

func (that *Room) Crosses() string {
	that.mu.Lock()
	defer that.mu.Unlock()

	if len(that.players) == 0 {
		return ""
	}
	return that.players[0]
}

func (that *Room) Noughts() string {
	that.mu.Lock()
	defer that.mu.Unlock()

	if len(that.players) < MaxPlayers {
		return ""
	}
	return that.players[1]
}

// CrossTurn reports whether crosses is the player on turn.
func (that *Room) CrossTurn() bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.crossTurn
}

// ApplyMove places the current player's mark at (x, y), evaluates the
// end conditions, and toggles the turn when the game continues. An
// invalid move leaves the board and turn untouched.
func (that *Room) ApplyMove(x, y int) (MoveResult, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.status == StatusFinished {
		return MoveContinue, apperror.ErrGameFinished
	}

	if !tictactoe.InRange(x, y) {
		return MoveContinue, apperror.ErrInvalidCell
	}

	if that.board.Cell(x, y) != tictactoe.Empty {
		return MoveContinue, apperror.ErrCellOccupied
	}

	mark := tictactoe.Cross
	if !that.crossTurn {
		mark = tictactoe.Nought
	}

	that.board.Place(x, y, mark)

	if that.board.IsWinner(mark) {
		that.status = StatusFinished
		return MoveWin, nil
	}

	if that.board.IsFull() {
		that.status = StatusFinished
		return MoveDraw, nil
	}

	that.crossTurn = !that.crossTurn

	return MoveContinue, nil
}

// EncodedBoard returns the 9-character wire form of the board.
func (that *Room) EncodedBoard() string {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.board.Encode()
}

// Participants returns every player and viewer of the room.
func (that *Room) Participants() []string {
	that.mu.Lock()
	defer that.mu.Unlock()

	participants := make([]string, 0, len(that.players)+len(that.viewers))
	participants = append(participants, that.players...)
	participants = append(participants, that.viewers...)

	return participants
}
