package tcp

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/playlobby/tictactoe-server/internal/entity"
	"github.com/playlobby/tictactoe-server/internal/protocol"
)

// waitPollInterval bounds how long a disconnect of a lone waiting
// player can go unnoticed.
const waitPollInterval = 100 * time.Millisecond

// Session is the server-side state of one live connection: the
// transport, an optional bound account, and the command loop. The
// account reference is a weak back-reference; the account itself
// belongs to the account store.
type Session struct {
	server *Server
	logger *slog.Logger
	conn   net.Conn
	reader *bufio.Reader

	writeMu sync.Mutex

	// touched only by this session's own goroutine
	account *entity.Account

	// set before joining a room as the first player: matchClaim is
	// closed by the opponent's goroutine to take over this socket,
	// matchReady is closed once this session stops reading it, and
	// matchDone is closed when the match is over.
	matchClaim chan struct{}
	matchReady chan struct{}
	matchDone  chan struct{}
}

func newSession(server *Server, conn net.Conn) *Session {
	return &Session{
		server: server,
		logger: server.logger.With("remote", conn.RemoteAddr().String()),
		conn:   conn,
		reader: bufio.NewReader(conn),
	}
}

// serve runs the per-connection command loop until the client quits or
// the transport fails. Disconnecting while authenticated logs out the
// bound account so it becomes available again.
func (that *Session) serve(ctx context.Context) {
	defer that.cleanup()

	for {
		command, err := that.readCommand()
		if err != nil {
			return
		}

		if quit := that.dispatch(ctx, command); quit {
			return
		}
	}
}

// readCommand reads and decodes one framed command. During a match the
// opponent's goroutine calls this on the parked player's session; at
// any point in time exactly one goroutine reads a given socket.
func (that *Session) readCommand() (protocol.Command, error) {
	line, err := protocol.ReadMessage(that.reader)
	if err != nil {
		return nil, err
	}

	return protocol.Parse(line), nil
}

// waitForOpponent parks the first player of a room until an opponent
// claims it. The socket stays with this goroutine, polled under a short
// read deadline so a disconnect while waiting is noticed and the slot
// freed; once the room is claimed the deadline is cleared and the
// socket handed to the match. It returns true when the player quit.
func (that *Session) waitForOpponent(room *entity.Room, claim, ready, done chan struct{}) bool {
	for {
		select {
		case <-claim:
			_ = that.conn.SetReadDeadline(time.Time{})
			close(ready)
			<-done
			return false
		default:
		}

		_ = that.conn.SetReadDeadline(time.Now().Add(waitPollInterval))
		_, err := that.reader.Peek(1)

		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			continue
		}

		_ = that.conn.SetReadDeadline(time.Time{})

		if err == nil {
			command, readErr := that.readCommand()
			if readErr != nil {
				return that.leaveWaiting(room, done, false)
			}

			if _, quit := command.(protocol.Quit); quit {
				return that.leaveWaiting(room, done, true)
			}

			// nothing but QUIT means anything while waiting
			that.logger.Debug("command while waiting for an opponent, discarding")
			continue
		}

		that.logger.Debug("waiting player lost its transport", "error", err)

		return that.leaveWaiting(room, done, false)
	}
}

// leaveWaiting abandons a waiting player slot. When an opponent took
// the second slot in the same instant, the slot can no longer be freed:
// the socket is released to the match instead, which observes the
// closed transport and settles the game by forfeit.
func (that *Session) leaveWaiting(room *entity.Room, done chan struct{}, quit bool) bool {
	if room.RemovePlayer(that.account.Name) {
		return quit
	}

	_ = that.conn.Close()
	close(that.matchReady)
	<-done

	return quit
}

// Send writes one framed message. Safe for concurrent use: replies from
// the command loop and pushes from a match never interleave mid-line.
func (that *Session) Send(message string) error {
	that.writeMu.Lock()
	defer that.writeMu.Unlock()

	if _, err := that.conn.Write([]byte(message + "\n")); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}

	return nil
}

// Close shuts the transport, unblocking any pending read.
func (that *Session) Close() error {
	return that.conn.Close()
}

func (that *Session) send(message string) {
	if err := that.Send(message); err != nil {
		that.logger.Debug("failed to send response", "error", err)
	}
}

func (that *Session) cleanup() {
	if that.account != nil {
		that.server.unbindAccount(that.account.Name, that)
		that.server.auth.Logout(that.account)
		that.account = nil
	}

	_ = that.conn.Close()
}
