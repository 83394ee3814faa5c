package tcp

import (
	"context"
	"errors"

	"github.com/playlobby/tictactoe-server/internal/apperror"
	"github.com/playlobby/tictactoe-server/internal/entity"
	"github.com/playlobby/tictactoe-server/internal/protocol"
)

// dispatch routes one decoded command. It returns true when the session
// should terminate.
func (that *Session) dispatch(ctx context.Context, command protocol.Command) bool {
	switch cmd := command.(type) {
	case protocol.Register:
		that.handleRegister(ctx, cmd)
	case protocol.Login:
		that.handleLogin(ctx, cmd)
	case protocol.RoomList:
		that.handleRoomList(cmd)
	case protocol.Create:
		that.handleCreate(cmd)
	case protocol.Join:
		return that.handleJoin(cmd)
	case protocol.Place, protocol.Forfeit:
		// game commands are only read by a running match; outside one
		// they are discarded
		that.logger.Debug("game command outside a match, discarding")
	case protocol.Quit:
		return true
	case protocol.Malformed:
		that.handleMalformed(cmd)
	case protocol.Unknown:
		that.logger.Debug("unknown command", "word", cmd.Word)
	}

	return false
}

// handleMalformed answers a recognized command with bad arguments using
// that command's own malformed code.
func (that *Session) handleMalformed(cmd protocol.Malformed) {
	switch cmd.Word {
	case "REGISTER":
		that.send(protocol.RegisterAck(protocol.RegisterMalformed))
	case "LOGIN":
		that.send(protocol.LoginAck(protocol.LoginMalformed))
	case "ROOMLIST":
		that.send(protocol.RoomListAck(protocol.RoomListMalformed))
	case "CREATE":
		that.send(protocol.CreateAck(protocol.CreateMalformed))
	case "JOIN":
		that.send(protocol.JoinAck(protocol.JoinMalformed))
	default:
		that.logger.Debug("malformed command", "word", cmd.Word)
	}
}

// requireAuth discards the command and signals BADAUTH when the session
// has no bound account.
func (that *Session) requireAuth() bool {
	if that.account == nil {
		that.send(protocol.BadAuth)
		return false
	}
	return true
}

func (that *Session) handleRegister(ctx context.Context, cmd protocol.Register) {
	err := that.server.auth.Register(ctx, cmd.User, cmd.Pass)

	switch {
	case err == nil:
		that.send(protocol.RegisterAck(protocol.RegisterOK))
	case errors.Is(err, apperror.ErrAccountExists):
		that.send(protocol.RegisterAck(protocol.RegisterExists))
	default:
		// persistence failed; the account was not created and the
		// client must not see a success ack
		that.logger.Error("registration failed", "user", cmd.User, "error", err)
	}
}

func (that *Session) handleLogin(ctx context.Context, cmd protocol.Login) {
	account, err := that.server.auth.Login(ctx, cmd.User, cmd.Pass)

	switch {
	case err == nil:
		if that.account != nil {
			that.server.unbindAccount(that.account.Name, that)
			that.server.auth.Logout(that.account)
		}
		that.account = account
		that.server.bindAccount(account.Name, that)
		that.send(protocol.LoginAck(protocol.LoginOK))
	case errors.Is(err, apperror.ErrAccountNotFound):
		that.send(protocol.LoginAck(protocol.LoginNotFound))
	case errors.Is(err, apperror.ErrWrongPassword):
		that.send(protocol.LoginAck(protocol.LoginWrongPassword))
	case errors.Is(err, apperror.ErrAlreadyLoggedIn):
		that.send(protocol.LoginAck(protocol.LoginAlreadyLoggedIn))
	default:
		that.logger.Error("login failed", "user", cmd.User, "error", err)
	}
}

func (that *Session) handleRoomList(cmd protocol.RoomList) {
	if !that.requireAuth() {
		return
	}

	names := that.server.rooms.ListNames(cmd.AsPlayer)
	that.send(protocol.RoomListOK(names))
}

func (that *Session) handleCreate(cmd protocol.Create) {
	if !that.requireAuth() {
		return
	}

	_, err := that.server.rooms.Create(cmd.Name)

	switch {
	case err == nil:
		that.send(protocol.CreateAck(protocol.CreateOK))
	case errors.Is(err, apperror.ErrInvalidRoomName):
		that.send(protocol.CreateAck(protocol.CreateInvalidName))
	case errors.Is(err, apperror.ErrRoomExists):
		that.send(protocol.CreateAck(protocol.CreateExists))
	case errors.Is(err, apperror.ErrRegistryFull):
		that.send(protocol.CreateAck(protocol.CreateRegistryFull))
	}
}

func (that *Session) handleJoin(cmd protocol.Join) bool {
	if !that.requireAuth() {
		return false
	}

	room, err := that.server.rooms.Get(cmd.Name)
	if err != nil {
		that.send(protocol.JoinAck(protocol.JoinNoRoom))
		return false
	}

	if cmd.AsPlayer {
		return that.joinAsPlayer(room)
	}

	that.joinAsViewer(room)

	return false
}

// joinAsPlayer takes a player slot. The first player parks until the
// match is over; the second player's goroutine drives the match.
func (that *Session) joinAsPlayer(room *entity.Room) bool {
	// channels must exist before the join is visible to the opponent
	claim := make(chan struct{})
	ready := make(chan struct{})
	done := make(chan struct{})
	that.matchClaim, that.matchReady, that.matchDone = claim, ready, done

	slot, err := room.AddPlayer(that.account.Name)
	if err != nil {
		that.matchClaim, that.matchReady, that.matchDone = nil, nil, nil
		that.send(protocol.JoinAck(protocol.JoinRoomFull))
		return false
	}

	that.send(protocol.JoinAck(protocol.JoinOK))

	if slot == 0 {
		that.send(protocol.GameStatus(protocol.GameWaiting))
		return that.waitForOpponent(room, claim, ready, done)
	}

	that.send(protocol.GameStatus(protocol.GameStarting))

	return that.runMatch(room)
}

// joinAsViewer briefs the new viewer under the room lock, so the ack
// and snapshot lines cannot interleave with a concurrent board push.
func (that *Session) joinAsViewer(room *entity.Room) {
	room.AddViewer(that.account.Name, func(snapshot entity.Snapshot) {
		that.send(protocol.JoinAck(protocol.JoinOK))

		if snapshot.Status == entity.StatusOngoing {
			that.send(protocol.GameStatus(protocol.GameInProgress))
			that.send(protocol.InProgress(snapshot.OnTurn, snapshot.Opponent))
			return
		}

		that.send(protocol.GameStatus(protocol.GameWaiting))
	})
}
