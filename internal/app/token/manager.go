/*
Package token implements the session/token manager: it issues, validates,
refreshes, and revokes opaque reconnection tokens.

Token values are random and unguessable. Only the encrypted form is kept in
memory and on disk; the plaintext is returned exactly once, to the caller of
Create. Every mutation is serialized by one mutex and persisted through the
TokenStore before it is acknowledged.
*/
package token

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"tlschat/internal/app/storage"
	"tlschat/internal/pkg/logx"
	"tlschat/internal/pkg/randx"
	"tlschat/internal/pkg/secrets"
)

// TTL is the validity window of a token. Room changes slide the window
// forward, so a token doubles as a "resume where I left off" credential.
const TTL = 2 * time.Hour

// Session is the result of validating a token.
type Session struct {
	Username  string
	Room      string
	ExpiresAt time.Time
}

// Manager owns the token records. At most one live token exists per
// username: creating a new token replaces all of that user's prior tokens.
type Manager struct {
	mu sync.Mutex

	// records is keyed by username, which enforces the single-live-token
	// invariant structurally.
	records map[string]storage.TokenRecord

	store  *storage.TokenStore
	sealer *secrets.Sealer

	// now is injected for expiry tests.
	now func() time.Time

	logger zerolog.Logger
}

// NewManager loads the persisted token records and returns a ready Manager.
func NewManager(store *storage.TokenStore, sealer *secrets.Sealer) (*Manager, error) {
	persisted, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load token records: %w", err)
	}

	records := make(map[string]storage.TokenRecord, len(persisted))
	for _, rec := range persisted {
		records[rec.Username] = rec
	}

	return &Manager{
		records: records,
		store:   store,
		sealer:  sealer,
		now:     time.Now,
		logger:  logx.Logger().With().Str("component", "TokenManager").Logger(),
	}, nil
}

// Create invalidates all existing tokens for the username, mints a fresh
// token bound to the given room, persists the encrypted record, and returns
// the plaintext value. Only the caller ever sees the plaintext.
func (m *Manager) Create(username, room string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	raw := randx.Token()
	sealed, err := m.sealer.Seal(raw)
	if err != nil {
		return "", fmt.Errorf("seal token: %w", err)
	}

	previous, replaced := m.records[username]
	m.records[username] = storage.TokenRecord{
		Sealed:    sealed,
		ExpiresAt: m.now().Add(TTL).Unix(),
		Username:  username,
		Room:      room,
	}

	if err := m.persist(); err != nil {
		// Roll back so memory and disk cannot diverge silently.
		if replaced {
			m.records[username] = previous
		} else {
			delete(m.records, username)
		}
		return "", err
	}

	return raw, nil
}

// Validate looks up the session for a presented plaintext token. Records are
// matched by decrypting each stored value; an expired record is treated as
// not found even if still physically present.
func (m *Manager) Validate(raw string) (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !randx.IsValidToken(raw) {
		return Session{}, false
	}

	for _, rec := range m.records {
		plain, err := m.sealer.Open(rec.Sealed)
		if err != nil {
			m.logger.Warn().Str("username", rec.Username).Msg("Stored token record failed to decrypt. Skipping.")
			continue
		}
		if plain != raw {
			continue
		}
		if !m.now().Before(time.Unix(rec.ExpiresAt, 0)) {
			return Session{}, false
		}
		return Session{
			Username:  rec.Username,
			Room:      rec.Room,
			ExpiresAt: time.Unix(rec.ExpiresAt, 0),
		}, true
	}

	return Session{}, false
}

// UpdateRoom rewrites the room bound to the user's token and slides its
// expiry to now + TTL. It reports false when the user holds no record.
func (m *Manager) UpdateRoom(username, newRoom string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[username]
	if !ok {
		return false, nil
	}

	previous := rec
	rec.Room = newRoom
	rec.ExpiresAt = m.now().Add(TTL).Unix()
	m.records[username] = rec

	if err := m.persist(); err != nil {
		m.records[username] = previous
		return false, err
	}

	return true, nil
}

// DeleteAll removes every record for the user; used on explicit logout.
// It reports false when the user held no record.
func (m *Manager) DeleteAll(username string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	previous, ok := m.records[username]
	if !ok {
		return false, nil
	}

	delete(m.records, username)

	if err := m.persist(); err != nil {
		m.records[username] = previous
		return false, err
	}

	return true, nil
}

// CleanupExpired removes all records whose expiry has passed and returns how
// many were removed. Running it again immediately is a no-op.
func (m *Manager) CleanupExpired() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	expired := lo.PickBy(m.records, func(_ string, rec storage.TokenRecord) bool {
		return !now.Before(time.Unix(rec.ExpiresAt, 0))
	})
	if len(expired) == 0 {
		return 0, nil
	}

	for username := range expired {
		delete(m.records, username)
	}

	if err := m.persist(); err != nil {
		for username, rec := range expired {
			m.records[username] = rec
		}
		return 0, err
	}

	return len(expired), nil
}

// persist rewrites the token store from the in-memory record set.
// Callers must hold m.mu.
func (m *Manager) persist() error {
	records := lo.Values(m.records)
	if err := m.store.ReplaceAll(records); err != nil {
		return fmt.Errorf("persist token records: %w", err)
	}
	return nil
}
