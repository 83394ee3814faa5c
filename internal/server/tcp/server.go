package tcp

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/playlobby/tictactoe-server/internal/entity"
	"github.com/playlobby/tictactoe-server/internal/repository"
	"github.com/playlobby/tictactoe-server/internal/service"
)

// Server owns the shared registries and the set of live sessions. Each
// accepted connection runs its own session goroutine against the same
// account store and room registry.
type Server struct {
	logger *slog.Logger
	auth   *service.AuthService
	rooms  *repository.RoomRegistry

	mu        sync.Mutex
	sessions  map[*Session]struct{}
	byAccount map[string]*Session
}

func New(logger *slog.Logger, auth *service.AuthService, rooms *repository.RoomRegistry) *Server {
	return &Server{
		logger:    logger.With("component", "tcp-server"),
		auth:      auth,
		rooms:     rooms,
		sessions:  make(map[*Session]struct{}),
		byAccount: make(map[string]*Session),
	}
}

// Start listens on the given port and serves until ctx is canceled.
func (that *Server) Start(ctx context.Context, port string) error {
	listener, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return fmt.Errorf("failed to listen on port %s: %w", port, err)
	}

	return that.Serve(ctx, listener)
}

// Serve accepts connections on the listener, spawning one session
// goroutine per connection. Context cancellation closes the listener
// and every live session transport.
func (that *Server) Serve(ctx context.Context, listener net.Listener) error {
	go func() {
		<-ctx.Done()
		_ = listener.Close()
		that.closeSessions()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("failed to accept connection: %w", err)
		}

		that.logger.Info("connection accepted", "remote", conn.RemoteAddr())

		session := newSession(that, conn)

		that.mu.Lock()
		that.sessions[session] = struct{}{}
		that.mu.Unlock()

		go func() {
			session.serve(ctx)

			that.mu.Lock()
			delete(that.sessions, session)
			that.mu.Unlock()

			that.logger.Info("connection closed", "remote", conn.RemoteAddr())
		}()
	}
}

func (that *Server) closeSessions() {
	that.mu.Lock()
	defer that.mu.Unlock()

	for session := range that.sessions {
		_ = session.Close()
	}
}

// bindAccount makes the session reachable for room broadcasts.
func (that *Server) bindAccount(name string, session *Session) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.byAccount[name] = session
}

func (that *Server) unbindAccount(name string, session *Session) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.byAccount[name] == session {
		delete(that.byAccount, name)
	}
}

func (that *Server) sessionByAccount(name string) (*Session, bool) {
	that.mu.Lock()
	defer that.mu.Unlock()

	session, ok := that.byAccount[name]

	return session, ok
}

// broadcastRoom pushes a message to every participant of the room.
// Participants whose connection is gone are skipped.
func (that *Server) broadcastRoom(room *entity.Room, message string) {
	for _, name := range room.Participants() {
		session, ok := that.sessionByAccount(name)
		if !ok {
			continue
		}

		if err := session.Send(message); err != nil {
			that.logger.Debug("failed to push message", "account", name, "error", err)
		}
	}
}
