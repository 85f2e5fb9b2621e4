/*
Package auth implements the Authenticator, which owns the in-memory user
directory, wraps the credential store, and produces authenticated user
handles for login, registration, and token-based reconnection.
*/
package auth

import (
	"fmt"
	"hash/fnv"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"tlschat/internal/app/storage"
	"tlschat/internal/app/token"
	"tlschat/internal/app/user"
	"tlschat/internal/pkg/errs"
	"tlschat/internal/pkg/logx"
)

// Authenticator owns the user directory. The directory is exclusive to this
// component; all access goes through its operations.
type Authenticator struct {
	mu       sync.RWMutex
	users    map[string]*user.User
	store    *storage.UserStore
	sessions *token.Manager
	logger   zerolog.Logger
}

// NewAuthenticator loads the persisted credentials into memory and returns a
// ready Authenticator.
func NewAuthenticator(store *storage.UserStore, sessions *token.Manager) (*Authenticator, error) {
	loaded, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}

	users := make(map[string]*user.User, len(loaded))
	for name, hash := range loaded {
		users[name] = user.New(name, hash)
	}

	return &Authenticator{
		users:    users,
		store:    store,
		sessions: sessions,
		logger:   logx.Logger().With().Str("component", "Authenticator").Logger(),
	}, nil
}

// HashPassword hashes a password with FNV-32a. This mirrors the reference
// behavior and is not a production credential scheme; substituting a salted,
// slow hash is an isolated change behind this function.
func HashPassword(password string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(password))
	return h.Sum32()
}

// Register validates username uniqueness and stores the credential durably
// before inserting it into the directory. It does not authenticate.
func (a *Authenticator) Register(username, password string) error {
	if strings.TrimSpace(username) == "" || password == "" {
		return errs.NewError(errs.ErrInvalidCredentials)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists := a.users[username]; exists {
		return errs.NewError(errs.ErrUserAlreadyExists)
	}

	hash := HashPassword(password)
	if err := a.store.Append(username, hash); err != nil {
		return fmt.Errorf("persist user %s: %w", username, err)
	}
	a.users[username] = user.New(username, hash)

	a.logger.Info().Str("username", username).Msg("User registered.")
	return nil
}

// Authenticate verifies a username/password pair. On success the user's
// current-room marker is cleared: login always starts roomless.
func (a *Authenticator) Authenticate(username, password string) (*user.User, error) {
	a.mu.RLock()
	u, exists := a.users[username]
	a.mu.RUnlock()

	if !exists || u.PasswordHash != HashPassword(password) {
		return nil, errs.NewError(errs.ErrInvalidCredentials)
	}

	u.SetCurrentRoom("")
	return u, nil
}

// Reconnect resolves a reconnection token to its user and restores the
// user's current-room marker from the token's stored room.
func (a *Authenticator) Reconnect(rawToken string) (*user.User, error) {
	session, ok := a.sessions.Validate(rawToken)
	if !ok {
		return nil, errs.NewError(errs.ErrTokenInvalid)
	}

	a.mu.RLock()
	u, exists := a.users[session.Username]
	a.mu.RUnlock()

	if !exists {
		a.logger.Warn().Str("username", session.Username).Msg("Valid token for unknown user. Treating as invalid.")
		return nil, errs.NewError(errs.ErrTokenInvalid)
	}

	u.SetCurrentRoom(session.Room)
	return u, nil
}
