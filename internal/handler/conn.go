/*
Package handler drives the per-connection protocol state machine.

This file implements the states UNAUTHENTICATED -> AUTHENTICATED (no room)
-> IN_ROOM over a line-oriented connection: the authentication menu, the
room-selection loop with its creation sub-dialog, and the in-room message
loop. One goroutine runs the state machine and reads the socket; a second
drains the connection's outbound channel to the socket.
*/
package handler

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/rs/zerolog"

	"tlschat/internal/app/ai"
	"tlschat/internal/app/chat"
	"tlschat/internal/app/user"
	"tlschat/internal/pkg/errs"
	"tlschat/internal/pkg/logx"
)

const (
	// ExitSentinel signals "close the connection now" in both directions.
	ExitSentinel = "_/#EXIT$%_"

	// exitCommand leaves the current room; outside a room it logs out.
	exitCommand = "/exit"

	authMenu       = "AUTH Choose: \n1. Login \n2. Register \n3. Reconnect \n4. Exit"
	promptUsername = "AUTH Enter username:"
	promptPassword = "AUTH Enter password:"
	promptToken    = "Enter your reconnection token:"
	roomTypeMenu   = "ROOM_TYPE Do you want to create an AI room? \n1. Yes \n2. No"
	roomPromptAsk  = "ROOM_PROMPT Enter the AI prompt/topic for this room:"
	roomSelectAsk  = "ROOMS Enter room name to join/create (or /exit to logout and disconnect):"
)

// Conn is the per-connection protocol state.
type Conn struct {
	deps *Deps
	conn net.Conn

	scanner *bufio.Scanner

	// out is the connection's outbound channel. Everything written to the
	// socket goes through it: protocol replies from this handler and
	// broadcast lines queued by rooms.
	out chan string

	// writeDone closes when the writer goroutine has drained out.
	writeDone chan struct{}

	logger zerolog.Logger
}

// Handle runs the protocol state machine for one accepted connection and
// blocks until the session ends. It is intended to be run in its own
// goroutine per connection.
func Handle(deps *Deps, netConn net.Conn) {
	c := &Conn{
		deps:      deps,
		conn:      netConn,
		scanner:   bufio.NewScanner(netConn),
		out:       make(chan string, 256),
		writeDone: make(chan struct{}),
		logger:    logx.Logger().With().Str("remote", netConn.RemoteAddr().String()).Logger(),
	}

	go c.writePump()

	c.run()

	// Every exit path from run leaves any joined room first, so no room
	// holds a reference to c.out by the time it is closed.
	close(c.out)
	<-c.writeDone

	if err := netConn.Close(); err != nil {
		c.logger.Debug().Err(err).Msg("Connection close error.")
	}
}

// writePump drains the outbound channel to the socket. After the first
// write failure it keeps draining without writing, so queued senders are
// never blocked by a dead connection.
func (c *Conn) writePump() {
	defer close(c.writeDone)

	failed := false
	for line := range c.out {
		if failed {
			continue
		}
		if _, err := fmt.Fprintf(c.conn, "%s\n", line); err != nil {
			c.logger.Debug().Err(err).Msg("Write failed, discarding remaining output.")
			failed = true
		}
	}
}

// send queues a protocol line for the client.
func (c *Conn) send(line string) {
	c.out <- line
}

// sendFail queues an AUTH_FAIL line carrying the error's reason phrase.
func (c *Conn) sendFail(code int) {
	c.send("AUTH_FAIL " + errs.NewError(code).Message)
}

// readLine reads the next input line. ok is false once the peer is gone.
func (c *Conn) readLine() (string, bool) {
	if !c.scanner.Scan() {
		return "", false
	}
	return c.scanner.Text(), true
}

// run walks the connection through authentication and the chat loop. A
// reconnect that restored a room enters it directly, skipping the room
// list.
func (c *Conn) run() {
	u := c.authenticate()
	if u == nil {
		return
	}

	c.logger = c.logger.With().Str("username", u.Username).Logger()

	if roomName := u.CurrentRoom(); roomName != "" {
		room := c.deps.Rooms.GetRoom(roomName)
		if room == nil {
			c.logger.Warn().Str("room", roomName).Msg("Reconnect referenced a room that no longer exists.")
			u.SetCurrentRoom("")
		} else {
			room.Rejoin(u.Username, c.out)
			if !c.roomLoop(u, room) {
				return
			}
		}
	}

	c.chatLoop(u)
}

// authenticate drives the UNAUTHENTICATED state. It returns the
// authenticated user, or nil when the connection should end (explicit exit
// or unreadable input).
func (c *Conn) authenticate() *user.User {
	for {
		c.send(authMenu)

		choice, ok := c.readLine()
		if !ok {
			return nil
		}

		switch choice {
		case "1":
			if u := c.login(); u != nil {
				return u
			}

		case "2":
			c.register()

		case "3":
			if u := c.reconnect(); u != nil {
				return u
			}

		case "4":
			c.send(ExitSentinel)
			return nil

		default:
			c.sendFail(errs.ErrInvalidChoice)
		}
	}
}

// login handles one login attempt: credentials in, fresh roomless token out.
func (c *Conn) login() *user.User {
	c.send(promptUsername)
	username, ok := c.readLine()
	if !ok {
		return nil
	}
	c.send(promptPassword)
	password, ok := c.readLine()
	if !ok {
		return nil
	}

	u, err := c.deps.Auth.Authenticate(username, password)
	if err != nil {
		c.sendFail(errs.ErrInvalidCredentials)
		return nil
	}

	rawToken, err := c.deps.Sessions.Create(u.Username, "")
	if err != nil {
		c.logger.Error().Err(err).Str("username", u.Username).Msg("Failed to mint login token.")
		c.send("ERROR " + errs.NewError(errs.ErrStorageFailed).Message)
		return nil
	}

	c.send("AUTH_SUCCESS Welcome " + u.Username + " Token: " + rawToken)
	return u
}

// register handles one registration attempt. Registration does not
// authenticate; the client is told to log in afterwards.
func (c *Conn) register() {
	c.send(promptUsername)
	username, ok := c.readLine()
	if !ok {
		return
	}
	c.send(promptPassword)
	password, ok := c.readLine()
	if !ok {
		return
	}

	if err := c.deps.Auth.Register(username, password); err != nil {
		var customErr *errs.CustomError
		if errors.As(err, &customErr) {
			c.send("AUTH_FAIL " + customErr.Message)
			return
		}
		c.logger.Error().Err(err).Str("username", username).Msg("Registration failed to persist.")
		c.send("ERROR " + errs.NewError(errs.ErrStorageFailed).Message)
		return
	}

	c.send("AUTH_SUCCESS Account created. Please login.")
}

// reconnect handles one token reconnect attempt. On success the presented
// token is replaced by a fresh one carrying the same room, and the restored
// room (if any) is reported so run can re-enter it directly.
func (c *Conn) reconnect() *user.User {
	c.send(promptToken)
	rawToken, ok := c.readLine()
	if !ok {
		return nil
	}

	u, err := c.deps.Auth.Reconnect(rawToken)
	if err != nil {
		c.sendFail(errs.ErrTokenInvalid)
		return nil
	}

	room := u.CurrentRoom()
	newToken, err := c.deps.Sessions.Create(u.Username, room)
	if err != nil {
		c.logger.Error().Err(err).Str("username", u.Username).Msg("Failed to mint reconnect token.")
		c.send("ERROR " + errs.NewError(errs.ErrStorageFailed).Message)
		return nil
	}

	c.send("AUTH_SUCCESS Welcome back " + u.Username + ".\nYour new token is " + newToken)
	if room != "" {
		c.send("You were reconnected to " + room)
	}

	return u
}

// chatLoop drives the AUTHENTICATED state: list rooms, join or create one,
// run the in-room loop, repeat. It returns when the session ends.
func (c *Conn) chatLoop(u *user.User) {
	for {
		c.send(c.roomListing())
		c.send(roomSelectAsk)

		roomName, ok := c.readLine()
		if !ok {
			return
		}

		if strings.EqualFold(roomName, exitCommand) {
			if _, err := c.deps.Sessions.DeleteAll(u.Username); err != nil {
				c.logger.Error().Err(err).Msg("Failed to revoke tokens on logout.")
			}
			return
		}

		if strings.TrimSpace(roomName) == "" {
			c.send("ERROR " + errs.NewError(errs.ErrEmptyRoomName).Message)
			continue
		}

		room, entered := c.enterRoom(u, roomName)
		if !entered {
			continue
		}

		if !c.roomLoop(u, room) {
			return
		}
	}
}

// roomListing renders the room list, annotating AI rooms with their prompt.
func (c *Conn) roomListing() string {
	var b strings.Builder
	b.WriteString("ROOMS Available rooms:\n")
	for _, name := range c.deps.Rooms.RoomNames() {
		b.WriteString("- ")
		b.WriteString(name)
		if room := c.deps.Rooms.GetRoom(name); room != nil && room.IsAI {
			b.WriteString(" (AI Room) [Prompt: " + room.Prompt() + "]")
		}
		b.WriteString("\n")
	}
	return b.String()
}

// enterRoom joins an existing room by name, running the creation sub-dialog
// first when the name is unused. A lost creation race falls through to
// joining the room the winner created.
func (c *Conn) enterRoom(u *user.User, roomName string) (*chat.Room, bool) {
	isAI := false
	prompt := ""

	if c.deps.Rooms.GetRoom(roomName) == nil {
		c.send(roomTypeMenu)
		aiChoice, ok := c.readLine()
		if !ok {
			return nil, false
		}
		if aiChoice == "1" {
			isAI = true
			c.send(roomPromptAsk)
			prompt, ok = c.readLine()
			if !ok {
				return nil, false
			}
			if strings.TrimSpace(prompt) == "" {
				prompt = ai.DefaultPrompt
			}
		}
	}

	room := c.deps.Rooms.GetRoom(roomName)
	if room == nil {
		if _, err := c.deps.Rooms.CreateRoom(roomName, isAI, prompt); err != nil {
			c.logger.Error().Err(err).Str("room", roomName).Msg("Room creation failed to persist.")
			c.send("ERROR " + errs.NewError(errs.ErrRoomCreateFailed).Message)
			return nil, false
		}
		// Whether we won or lost the race, the room exists now.
		room = c.deps.Rooms.GetRoom(roomName)
		if room == nil {
			c.send("ERROR " + errs.NewError(errs.ErrRoomCreateFailed).Message)
			return nil, false
		}
	}

	banner := "\nRoom: " + room.Name
	if room.IsAI {
		banner += " (AI Room) [Prompt: " + room.Prompt() + "]"
	}
	c.send(banner)

	room.Join(u.Username, c.out)
	c.markRoom(u, room.Name)

	return room, true
}

// markRoom updates the denormalized current-room hints: the user directory
// entry and the token record (which slides the token's expiry).
func (c *Conn) markRoom(u *user.User, roomName string) {
	u.SetCurrentRoom(roomName)
	if _, err := c.deps.Sessions.UpdateRoom(u.Username, roomName); err != nil {
		c.logger.Error().Err(err).Str("room", roomName).Msg("Failed to persist room change on token.")
		c.send("ERROR " + errs.NewError(errs.ErrStorageFailed).Message)
	}
}

// roomLoop drives the IN_ROOM state. It returns true when the user left the
// room and should see the room list again, false when the connection is
// gone. A dropped connection is an implicit leave; tokens stay valid so the
// user can reconnect into the room later.
func (c *Conn) roomLoop(u *user.User, room *chat.Room) bool {
	limiterKey := c.conn.RemoteAddr().String()

	for {
		line, ok := c.readLine()
		if !ok {
			room.Leave(u.Username)
			return false
		}

		if strings.EqualFold(line, exitCommand) {
			announcement := room.Leave(u.Username)
			c.send(announcement)
			c.markRoom(u, "")
			return true
		}

		if !c.deps.Limiter.Allow(limiterKey) {
			c.send("ERROR " + errs.NewError(errs.ErrRateLimitExceeded).Message)
			continue
		}

		if err := room.PostMessage(u.Username, line); err != nil {
			c.logger.Error().Err(err).Str("room", room.Name).Msg("Failed to post message.")
			c.send("ERROR " + errs.NewError(errs.ErrStorageFailed).Message)
		}
	}
}
