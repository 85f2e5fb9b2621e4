package handler

import (
	"bufio"
	"fmt"
	"net"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"tlschat/internal/app/ai"
	"tlschat/internal/app/auth"
	"tlschat/internal/app/chat"
	"tlschat/internal/app/storage"
	"tlschat/internal/app/token"
	"tlschat/internal/pkg/limiter"
	"tlschat/internal/pkg/secrets"
)

func newDeps(t *testing.T) *Deps {
	t.Helper()
	dir := t.TempDir()

	sealer, err := secrets.NewSealer("test-token-secret")
	require.NoError(t, err)
	sessions, err := token.NewManager(storage.NewTokenStore(filepath.Join(dir, "tokens.dat")), sealer)
	require.NoError(t, err)
	authenticator, err := auth.NewAuthenticator(storage.NewUserStore(filepath.Join(dir, "users.dat")), sessions)
	require.NoError(t, err)
	messages, err := storage.NewMessageStore(filepath.Join(dir, "messages"))
	require.NoError(t, err)
	rooms, err := chat.NewRegistry(storage.NewRoomStore(filepath.Join(dir, "rooms.dat")), messages, ai.Config{})
	require.NoError(t, err)

	// Pipe connections all share the same remote address, so the limiter
	// is kept wide open here.
	return &Deps{
		Auth:     authenticator,
		Sessions: sessions,
		Rooms:    rooms,
		Limiter:  limiter.NewKeyed(rate.Limit(10000), 10000),
	}
}

// testClient talks the line protocol over one end of a net.Pipe whose other
// end is served by Handle.
type testClient struct {
	t     *testing.T
	conn  net.Conn
	lines chan string
}

func dial(t *testing.T, deps *Deps) *testClient {
	t.Helper()

	server, client := net.Pipe()
	go Handle(deps, server)

	c := &testClient{t: t, conn: client, lines: make(chan string, 100)}
	go func() {
		scanner := bufio.NewScanner(client)
		for scanner.Scan() {
			c.lines <- scanner.Text()
		}
		close(c.lines)
	}()

	t.Cleanup(func() { client.Close() })
	return c
}

func (c *testClient) sendLine(line string) {
	c.t.Helper()
	if _, err := fmt.Fprintf(c.conn, "%s\n", line); err != nil {
		c.t.Fatalf("write %q: %v", line, err)
	}
}

// expect reads until a line containing substr arrives; intermediate lines
// are discarded.
func (c *testClient) expect(substr string) string {
	c.t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case line, ok := <-c.lines:
			if !ok {
				c.t.Fatalf("connection closed while waiting for %q", substr)
			}
			if strings.Contains(line, substr) {
				return line
			}
		case <-deadline:
			c.t.Fatalf("timed out waiting for %q", substr)
		}
	}
}

// neverReceives drains output for the given window and fails if a matching
// line shows up.
func (c *testClient) neverReceives(substr string, window time.Duration) {
	c.t.Helper()
	deadline := time.After(window)
	for {
		select {
		case line, ok := <-c.lines:
			if !ok {
				return
			}
			if strings.Contains(line, substr) {
				c.t.Fatalf("unexpectedly received %q", line)
			}
		case <-deadline:
			return
		}
	}
}

func (c *testClient) expectClosed() {
	c.t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case _, ok := <-c.lines:
			if !ok {
				return
			}
		case <-deadline:
			c.t.Fatal("timed out waiting for the connection to close")
		}
	}
}

// registerAndLogin walks a fresh client through registration and login and
// returns the issued reconnection token.
func registerAndLogin(c *testClient, username, password string) string {
	c.t.Helper()

	c.expect("AUTH Choose")
	c.sendLine("2")
	c.expect("AUTH Enter username:")
	c.sendLine(username)
	c.expect("AUTH Enter password:")
	c.sendLine(password)
	c.expect("AUTH_SUCCESS Account created. Please login.")

	c.expect("AUTH Choose")
	c.sendLine("1")
	c.expect("AUTH Enter username:")
	c.sendLine(username)
	c.expect("AUTH Enter password:")
	c.sendLine(password)

	welcome := c.expect("AUTH_SUCCESS Welcome " + username)
	_, rawToken, found := strings.Cut(welcome, "Token: ")
	require.True(c.t, found, "welcome line must carry the token: %q", welcome)
	return strings.TrimSpace(rawToken)
}

// enterRoom answers the room-selection prompt. When create is set the room
// does not exist yet and the creation sub-dialog is answered (non-AI).
func enterRoom(c *testClient, username, room string, create bool) {
	c.t.Helper()

	c.expect("Enter room name to join/create")
	c.sendLine(room)
	if create {
		c.expect("Do you want to create an AI room?")
		c.sendLine("2")
	}
	c.expect("Room: " + room)
	c.expect("To exit the room type /exit.")
	c.expect("[" + username + " enters the room]")
}

func TestTwoClientsChat(t *testing.T) {
	deps := newDeps(t)

	alice := dial(t, deps)
	registerAndLogin(alice, "alice", "secret")
	enterRoom(alice, "alice", "general", true)

	bob := dial(t, deps)
	registerAndLogin(bob, "bob", "hunter2")
	bob.expect("- general")
	enterRoom(bob, "bob", "general", false)
	alice.expect("[bob enters the room]")

	alice.sendLine("hello bob")
	bob.expect("alice: hello bob")
	alice.neverReceives("alice: hello bob", 300*time.Millisecond)

	bob.sendLine("hello alice")
	alice.expect("bob: hello alice")
}

func TestReconnectRestoresRoomMembership(t *testing.T) {
	deps := newDeps(t)

	bob := dial(t, deps)
	registerAndLogin(bob, "bob", "hunter2")
	enterRoom(bob, "bob", "general", true)

	alice := dial(t, deps)
	aliceToken := registerAndLogin(alice, "alice", "secret")
	enterRoom(alice, "alice", "general", false)
	bob.expect("[alice enters the room]")

	// Drop alice's connection mid-room.
	require.NoError(t, alice.conn.Close())
	bob.expect("[alice leaves the room]")

	// The token minted at login still works and carries the room.
	alice2 := dial(t, deps)
	alice2.expect("AUTH Choose")
	alice2.sendLine("3")
	alice2.expect("Enter your reconnection token:")
	alice2.sendLine(aliceToken)
	alice2.expect("AUTH_SUCCESS Welcome back alice.")
	alice2.expect("Your new token is ")
	alice2.expect("You were reconnected to general")
	alice2.expect("To exit the room type /exit.")
	alice2.expect("[alice reconnected to the room]")
	bob.expect("[alice reconnected to the room]")

	alice2.sendLine("back again")
	bob.expect("alice: back again")
}

func TestSlashExitReturnsToRoomList(t *testing.T) {
	deps := newDeps(t)

	alice := dial(t, deps)
	registerAndLogin(alice, "alice", "secret")
	enterRoom(alice, "alice", "general", true)

	alice.sendLine("/exit")
	alice.expect("[alice leaves the room]")
	alice.expect("ROOMS Available rooms:")
	alice.expect("- general")
}

func TestLogoutRevokesTokens(t *testing.T) {
	deps := newDeps(t)

	alice := dial(t, deps)
	aliceToken := registerAndLogin(alice, "alice", "secret")

	alice.expect("Enter room name to join/create")
	alice.sendLine("/exit")
	alice.expectClosed()

	again := dial(t, deps)
	again.expect("AUTH Choose")
	again.sendLine("3")
	again.expect("Enter your reconnection token:")
	again.sendLine(aliceToken)
	again.expect("AUTH_FAIL Invalid or expired token")
}

func TestInvalidMenuChoice(t *testing.T) {
	deps := newDeps(t)

	c := dial(t, deps)
	c.expect("AUTH Choose")
	c.sendLine("9")
	c.expect("AUTH_FAIL Invalid choice")
	c.expect("AUTH Choose")
}

func TestExitChoiceSendsSentinel(t *testing.T) {
	deps := newDeps(t)

	c := dial(t, deps)
	c.expect("AUTH Choose")
	c.sendLine("4")
	c.expect(ExitSentinel)
	c.expectClosed()
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	deps := newDeps(t)

	c := dial(t, deps)
	c.expect("AUTH Choose")
	c.sendLine("1")
	c.expect("AUTH Enter username:")
	c.sendLine("nobody")
	c.expect("AUTH Enter password:")
	c.sendLine("wrong")
	c.expect("AUTH_FAIL Invalid credentials")
	c.expect("AUTH Choose")
}

func TestBlankRoomNameRejected(t *testing.T) {
	deps := newDeps(t)

	c := dial(t, deps)
	registerAndLogin(c, "alice", "secret")
	c.expect("Enter room name to join/create")
	c.sendLine("   ")
	c.expect("ERROR")
	c.expect("Enter room name to join/create")
}

func TestAIRoomCreationDialog(t *testing.T) {
	deps := newDeps(t)

	c := dial(t, deps)
	registerAndLogin(c, "alice", "secret")
	c.expect("Enter room name to join/create")
	c.sendLine("oracle")
	c.expect("Do you want to create an AI room?")
	c.sendLine("1")
	c.expect("ROOM_PROMPT Enter the AI prompt/topic for this room:")
	c.sendLine("Answer everything")
	c.expect("Room: oracle (AI Room) [Prompt: Answer everything]")
	c.expect("To exit the room type /exit.")
	c.expect("[alice enters the room]")

	c.sendLine("/exit")
	c.expect("[alice leaves the room]")
	c.expect("- oracle (AI Room) [Prompt: Answer everything]")
}
