package tcp

import (
	"bufio"
	"context"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/playlobby/tictactoe-server/internal/protocol"
	"github.com/playlobby/tictactoe-server/internal/repository"
	"github.com/playlobby/tictactoe-server/internal/service"
	"github.com/playlobby/tictactoe-server/internal/storage"
)

const readTimeout = 5 * time.Second

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// newTestServer boots a server with a fresh user database on an
// ephemeral port and returns its address.
func newTestServer(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "users.json")
	require.NoError(t, os.WriteFile(path, []byte("[]"), 0o600))

	logger := testLogger()
	accounts := repository.NewAccountStore()
	rooms := repository.NewRoomRegistry()
	auth := service.NewAuthService(logger, accounts, storage.NewFileUserStore(path))
	server := New(logger, auth, rooms)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	go func() {
		_ = server.Serve(ctx, listener)
	}()

	return listener.Addr().String()
}

type testClient struct {
	t      *testing.T
	conn   net.Conn
	reader *bufio.Reader
}

func dial(t *testing.T, addr string) *testClient {
	t.Helper()

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = conn.Close()
	})

	return &testClient{t: t, conn: conn, reader: bufio.NewReader(conn)}
}

func (that *testClient) send(line string) {
	that.t.Helper()

	_, err := that.conn.Write([]byte(line + "\n"))
	require.NoError(that.t, err)
}

func (that *testClient) expect(want string) {
	that.t.Helper()

	require.NoError(that.t, that.conn.SetReadDeadline(time.Now().Add(readTimeout)))

	line, err := protocol.ReadMessage(that.reader)
	require.NoError(that.t, err)
	require.Equal(that.t, want, line)
}

// relogin polls fresh connections until the account is released, then
// returns a logged-in client. The server needs a moment to observe a
// dropped peer.
func relogin(t *testing.T, addr, user, pass string) *testClient {
	t.Helper()

	deadline := time.Now().Add(readTimeout)
	for {
		probe := dial(t, addr)
		probe.send("LOGIN:" + user + ":" + pass)
		require.NoError(t, probe.conn.SetReadDeadline(time.Now().Add(readTimeout)))
		line, err := protocol.ReadMessage(probe.reader)
		require.NoError(t, err)
		if line == "LOGIN:ACKSTATUS:0" {
			return probe
		}
		require.Equal(t, "LOGIN:ACKSTATUS:-1", line)
		require.True(t, time.Now().Before(deadline), "account was never freed")
		probe.send("QUIT")
		time.Sleep(50 * time.Millisecond)
	}
}

// login registers (when asked) and logs in one client.
func (that *testClient) login(user, pass string, register bool) {
	that.t.Helper()

	if register {
		that.send("REGISTER:" + user + ":" + pass)
		that.expect("REGISTER:ACKSTATUS:0")
	}
	that.send("LOGIN:" + user + ":" + pass)
	that.expect("LOGIN:ACKSTATUS:0")
}

func TestServer_Register(t *testing.T) {
	addr := newTestServer(t)
	client := dial(t, addr)

	// When: registering a fresh name and then the same name again
	client.send("REGISTER:alice:pw1")
	client.expect("REGISTER:ACKSTATUS:0")

	client.send("REGISTER:alice:pw2")
	client.expect("REGISTER:ACKSTATUS:1")

	// Then: malformed registration is code 2
	client.send("REGISTER:alice")
	client.expect("REGISTER:ACKSTATUS:2")
}

func TestServer_Login(t *testing.T) {
	addr := newTestServer(t)

	client := dial(t, addr)
	client.send("REGISTER:alice:pw1")
	client.expect("REGISTER:ACKSTATUS:0")

	t.Run("Unknown user", func(t *testing.T) {
		client.send("LOGIN:bob:pw1")
		client.expect("LOGIN:ACKSTATUS:1")
	})

	t.Run("Wrong password", func(t *testing.T) {
		client.send("LOGIN:alice:nope")
		client.expect("LOGIN:ACKSTATUS:2")
	})

	t.Run("Malformed", func(t *testing.T) {
		client.send("LOGIN:alice")
		client.expect("LOGIN:ACKSTATUS:3")
	})

	t.Run("Success, then a second session is rejected", func(t *testing.T) {
		client.send("LOGIN:alice:pw1")
		client.expect("LOGIN:ACKSTATUS:0")

		other := dial(t, addr)
		other.send("LOGIN:alice:pw1")
		other.expect("LOGIN:ACKSTATUS:-1")
	})

	t.Run("Disconnect frees the account", func(t *testing.T) {
		require.NoError(t, client.conn.Close())

		relogin(t, addr, "alice", "pw1")
	})
}

func TestServer_AuthRequired(t *testing.T) {
	addr := newTestServer(t)
	client := dial(t, addr)

	// When: using protected commands without logging in
	client.send("ROOMLIST:PLAYER")
	client.expect("BADAUTH")
	client.send("CREATE:room1")
	client.expect("BADAUTH")
	client.send("JOIN:room1:PLAYER")
	client.expect("BADAUTH")

	// Then: after login the same room list succeeds and is empty
	client.login("alice", "pw1", true)
	client.send("ROOMLIST:PLAYER")
	client.expect("ROOMLIST:ACKSTATUS:0:")
}

func TestServer_Create(t *testing.T) {
	addr := newTestServer(t)
	client := dial(t, addr)
	client.login("alice", "pw1", true)

	client.send("CREATE:room1")
	client.expect("CREATE:ACKSTATUS:0")

	t.Run("Duplicate name", func(t *testing.T) {
		client.send("CREATE:room1")
		client.expect("CREATE:ACKSTATUS:2")
	})

	t.Run("Invalid name", func(t *testing.T) {
		client.send("CREATE:notamused!")
		client.expect("CREATE:ACKSTATUS:1")
	})

	t.Run("Malformed", func(t *testing.T) {
		client.send("CREATE")
		client.expect("CREATE:ACKSTATUS:4")
	})

	t.Run("Created room shows up in the list", func(t *testing.T) {
		client.send("ROOMLIST:VIEWER")
		client.expect("ROOMLIST:ACKSTATUS:0:room1")
	})
}

func TestServer_JoinErrors(t *testing.T) {
	addr := newTestServer(t)
	client := dial(t, addr)
	client.login("alice", "pw1", true)

	t.Run("Missing room", func(t *testing.T) {
		client.send("JOIN:nowhere:PLAYER")
		client.expect("JOIN:ACKSTATUS:1")
	})

	t.Run("Malformed mode", func(t *testing.T) {
		client.send("JOIN:room1:SPECTATOR")
		client.expect("JOIN:ACKSTATUS:3")
	})
}

// joinWaiting brings one client into room1 as its lone waiting player.
func joinWaiting(t *testing.T, addr string) *testClient {
	t.Helper()

	alice := dial(t, addr)
	alice.login("alice", "pw1", true)
	alice.send("CREATE:room1")
	alice.expect("CREATE:ACKSTATUS:0")
	alice.send("JOIN:room1:PLAYER")
	alice.expect("JOIN:ACKSTATUS:0")
	alice.expect("GAME:0")

	return alice
}

func TestServer_WaitingPlayerDisconnect(t *testing.T) {
	addr := newTestServer(t)
	alice := joinWaiting(t, addr)

	// When: the lone waiting player drops its connection
	require.NoError(t, alice.conn.Close())

	// Then: the account is logged out and the abandoned crosses slot is
	// free again
	probe := relogin(t, addr, "alice", "pw1")
	probe.send("JOIN:room1:PLAYER")
	probe.expect("JOIN:ACKSTATUS:0")
	probe.expect("GAME:0")
}

func TestServer_QuitWhileWaiting(t *testing.T) {
	addr := newTestServer(t)
	alice := joinWaiting(t, addr)

	// When: the waiting player quits instead of waiting for an opponent
	alice.send("QUIT")

	// Then: the account and the slot are released
	probe := relogin(t, addr, "alice", "pw1")
	probe.send("JOIN:room1:PLAYER")
	probe.expect("JOIN:ACKSTATUS:0")
	probe.expect("GAME:0")
}

// startMatch brings two clients into a running match in room1 and
// returns them as (crosses, noughts).
func startMatch(t *testing.T, addr string) (*testClient, *testClient) {
	t.Helper()

	alice := dial(t, addr)
	alice.login("alice", "pw1", true)
	bob := dial(t, addr)
	bob.login("bob", "pw2", true)

	alice.send("CREATE:room1")
	alice.expect("CREATE:ACKSTATUS:0")

	alice.send("JOIN:room1:PLAYER")
	alice.expect("JOIN:ACKSTATUS:0")
	alice.expect("GAME:0")

	bob.send("JOIN:room1:PLAYER")
	bob.expect("JOIN:ACKSTATUS:0")
	bob.expect("GAME:1")

	alice.expect("BEGIN:alice:bob")
	bob.expect("BEGIN:alice:bob")

	return alice, bob
}

func TestServer_FullGame(t *testing.T) {
	addr := newTestServer(t)
	alice, bob := startMatch(t, addr)

	both := []*testClient{alice, bob}

	// When: the players alternate through a crosses win on the top row
	moves := []struct {
		client *testClient
		place  string
		board  string
	}{
		{alice, "PLACE:0:0", "100000000"},
		{bob, "PLACE:1:1", "100020000"},
		{alice, "PLACE:1:0", "110020000"},
		{bob, "PLACE:2:2", "110020002"},
		{alice, "PLACE:2:0", "111020002"},
	}

	for _, move := range moves {
		move.client.send(move.place)
		for _, client := range both {
			client.expect("BOARDSTATUS:" + move.board)
		}
	}

	// Then: both players get the win broadcast naming crosses
	for _, client := range both {
		client.expect("GAMEEND:111020002:0:alice")
	}

	// Then: the finished room never frees its player slots
	carol := dial(t, addr)
	carol.login("carol", "pw3", true)
	carol.send("JOIN:room1:PLAYER")
	carol.expect("JOIN:ACKSTATUS:2")

	// Then: the first player's session resumes its command loop
	alice.send("ROOMLIST:PLAYER")
	alice.expect("ROOMLIST:ACKSTATUS:0:")
}

func TestServer_InvalidMovesDoNotConsumeTurn(t *testing.T) {
	addr := newTestServer(t)
	alice, bob := startMatch(t, addr)

	// When: crosses sends out-of-range and occupied-cell moves
	alice.send("PLACE:5:5")
	alice.send("PLACE:0:0")
	alice.expect("BOARDSTATUS:100000000")
	bob.expect("BOARDSTATUS:100000000")

	bob.send("PLACE:0:0")
	bob.send("PLACE:1:1")

	// Then: only the valid moves were applied, in turn order
	alice.expect("BOARDSTATUS:100020000")
	bob.expect("BOARDSTATUS:100020000")
}

func TestServer_Forfeit(t *testing.T) {
	addr := newTestServer(t)
	alice, bob := startMatch(t, addr)

	alice.send("PLACE:0:0")
	alice.expect("BOARDSTATUS:100000000")
	bob.expect("BOARDSTATUS:100000000")

	// When: noughts forfeits on its turn
	bob.send("FORFEIT")

	// Then: crosses is declared winner by forfeit
	alice.expect("GAMEEND:100000000:2:alice")
	bob.expect("GAMEEND:100000000:2:alice")
}

func TestServer_DisconnectIsForfeit(t *testing.T) {
	addr := newTestServer(t)
	alice, bob := startMatch(t, addr)

	// When: crosses drops its connection on its own turn
	require.NoError(t, alice.conn.Close())

	// Then: noughts wins by forfeit
	bob.expect("GAMEEND:000000000:2:bob")
}

func TestServer_Viewers(t *testing.T) {
	t.Run("Viewer of a waiting room", func(t *testing.T) {
		addr := newTestServer(t)
		alice := dial(t, addr)
		alice.login("alice", "pw1", true)
		alice.send("CREATE:lounge")
		alice.expect("CREATE:ACKSTATUS:0")

		alice.send("JOIN:lounge:VIEWER")
		alice.expect("JOIN:ACKSTATUS:0")
		alice.expect("GAME:0")

		alice.send("QUIT")
	})

	t.Run("Late viewer of a running match", func(t *testing.T) {
		addr := newTestServer(t)
		alice, bob := startMatch(t, addr)

		alice.send("PLACE:0:0")
		alice.expect("BOARDSTATUS:100000000")
		bob.expect("BOARDSTATUS:100000000")

		// When: a viewer joins mid-game
		carol := dial(t, addr)
		carol.login("carol", "pw3", true)
		carol.send("JOIN:room1:VIEWER")

		// Then: the viewer gets the in-progress snapshot naming the
		// player on turn
		carol.expect("JOIN:ACKSTATUS:0")
		carol.expect("GAME:2")
		carol.expect("INPROGRESS:bob:alice")

		// Then: the viewer receives further board updates and the end
		bob.send("PLACE:1:1")
		for _, client := range []*testClient{alice, bob, carol} {
			client.expect("BOARDSTATUS:100020000")
		}

		bob.send("FORFEIT")
		// not bob's turn: forfeit waits until the engine reads his
		// socket again, so crosses moves first
		alice.send("PLACE:1:0")
		for _, client := range []*testClient{alice, bob, carol} {
			client.expect("BOARDSTATUS:110020000")
		}
		for _, client := range []*testClient{alice, bob, carol} {
			client.expect("GAMEEND:110020000:2:alice")
		}
	})
}
