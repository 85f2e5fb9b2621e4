/*
Package user contains the core data structure for an authenticated chat
participant.

The current-room field is a denormalized hint used only to restore room
membership on reconnect; live broadcast membership is owned by the room's
participant map.
*/
package user

import "sync"

// User represents a registered account held in the server's user directory.
type User struct {
	// Username is the unique, immutable account name.
	Username string

	// PasswordHash is the stored hash of the account password.
	PasswordHash uint32

	mu sync.Mutex

	// currentRoom names the room to rejoin on reconnect; empty when roomless.
	currentRoom string
}

// New constructs a User with the given credentials and no current room.
func New(username string, passwordHash uint32) *User {
	return &User{Username: username, PasswordHash: passwordHash}
}

// CurrentRoom returns the room this user should rejoin on reconnect, or the
// empty string.
func (u *User) CurrentRoom() string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.currentRoom
}

// SetCurrentRoom records the room the user is in, or clears it when empty.
func (u *User) SetCurrentRoom(room string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.currentRoom = room
}
