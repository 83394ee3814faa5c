package tcp

import (
	"github.com/playlobby/tictactoe-server/internal/entity"
	"github.com/playlobby/tictactoe-server/internal/protocol"
)

type matchPlayer struct {
	name    string
	session *Session
}

// runMatch drives one room's match to completion. It runs in the
// goroutine of the session that completed the room (noughts) and is the
// only reader of both players' sockets until the match ends; crosses is
// parked in its own join handler for the duration. Move application and
// board broadcast are strictly ordered: the next move is not read until
// the previous one is applied and pushed.
//
// It returns true when this session consumed its own QUIT.
func (that *Session) runMatch(room *entity.Room) bool {
	log := that.logger.With("method", "runMatch", "room", room.Name)

	crossName := room.Crosses()
	noughtName := room.Noughts()

	cross, _ := that.server.sessionByAccount(crossName)
	players := map[bool]*matchPlayer{
		true:  {name: crossName, session: cross},
		false: {name: noughtName, session: that},
	}

	// claim the first player's socket and wait until it stops reading
	// it, so BEGIN cannot overtake its GAME status line
	if cross != nil && cross.matchClaim != nil {
		close(cross.matchClaim)
		<-cross.matchReady
	}

	defer func() {
		room.Finish()
		if cross != nil && cross.matchDone != nil {
			close(cross.matchDone)
		}
	}()

	room.Begin()
	that.server.broadcastRoom(room, protocol.Begin(crossName, noughtName))

	log.Info("match started", "crosses", crossName, "noughts", noughtName)

	for {
		crossTurn := room.CrossTurn()
		active := players[crossTurn]
		opponent := players[!crossTurn]

		if active.session == nil {
			// the player vanished before the match began
			that.server.broadcastRoom(room, protocol.GameEndForfeit(room.EncodedBoard(), opponent.name))
			return false
		}

		command, err := active.session.readCommand()
		if err != nil {
			log.Info("player disconnected mid-game, forfeiting", "player", active.name)
			that.server.broadcastRoom(room, protocol.GameEndForfeit(room.EncodedBoard(), opponent.name))
			return false
		}

		switch move := command.(type) {
		case protocol.Place:
			result, err := room.ApplyMove(move.X, move.Y)
			if err != nil {
				// invalid move does not consume the turn; the same
				// player is re-prompted
				log.Debug("move rejected", "player", active.name, "error", err)
				continue
			}

			board := room.EncodedBoard()
			that.server.broadcastRoom(room, protocol.BoardStatus(board))

			switch result {
			case entity.MoveWin:
				that.server.broadcastRoom(room, protocol.GameEndWin(board, active.name))
				log.Info("match won", "winner", active.name)
				return false
			case entity.MoveDraw:
				that.server.broadcastRoom(room, protocol.GameEndDraw(board))
				log.Info("match drawn")
				return false
			case entity.MoveContinue:
			}
		case protocol.Forfeit:
			that.server.broadcastRoom(room, protocol.GameEndForfeit(room.EncodedBoard(), opponent.name))
			log.Info("match forfeited", "by", active.name, "winner", opponent.name)
			return false
		case protocol.Quit:
			that.server.broadcastRoom(room, protocol.GameEndForfeit(room.EncodedBoard(), opponent.name))
			log.Info("player quit mid-game, forfeiting", "by", active.name)
			if active.session == that {
				return true
			}
			_ = active.session.Close()
			return false
		default:
			log.Debug("unexpected command during match", "player", active.name)
		}
	}
}
